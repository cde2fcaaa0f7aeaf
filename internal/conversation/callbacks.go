package conversation

import (
	"context"
	"strconv"
	"strings"

	"github.com/solwatch/solwatch/internal/dispatch"
	"github.com/solwatch/solwatch/internal/signal"
	"github.com/solwatch/solwatch/internal/strategy"
)

// HandleCallback routes one inline-button press. The pressed message is
// edited in place wherever possible so the chat stays tidy.
func (m *Manager) HandleCallback(ctx context.Context, chatID, senderID, messageID int64, callbackID, data string) {
	sender := m.getSender()
	if sender == nil {
		return
	}
	if !m.Authorized(senderID) {
		sender.AnswerCallback(ctx, callbackID, "Not allowed")
		return
	}
	answer := func(text string) {
		if err := sender.AnswerCallback(ctx, callbackID, text); err != nil {
			m.logger.Debug("callback answer failed", "error", err)
		}
	}

	switch {
	case data == "noop":
		answer("")

	case data == "dash" || data == "menu":
		m.editMessage(ctx, chatID, messageID, m.statusText(), dashboardButtons())
		answer("")

	case data == "stat":
		m.editMessage(ctx, chatID, messageID, m.statusText(), statusButtons())
		answer("")

	case data == "change_group":
		st, ok := m.getState(chatID)
		if !ok {
			st = &state{mode: ModeCreate, step: StepGroup}
			m.setState(chatID, st)
		}
		st.anchorID = messageID
		m.editMessage(ctx, chatID, messageID, "Choose group:", m.groupChoiceButtons("builder"))
		answer("")

	case strings.HasPrefix(data, "edit:"):
		m.openFieldEdit(ctx, chatID, messageID, strings.TrimPrefix(data, "edit:"), answer)

	case data == "strats" || strings.HasPrefix(data, "page:"):
		page := 1
		if rest, ok := strings.CutPrefix(data, "page:"); ok {
			if parsed, err := strconv.Atoi(rest); err == nil {
				page = parsed
			}
		}
		text, rows := m.strategiesPage(senderID, page)
		m.editMessage(ctx, chatID, messageID, text, rows)
		answer("")

	case strings.HasPrefix(data, "view:"):
		index := parseIndex(data)
		item, err := m.store.GetOwned(senderID, index)
		if err != nil {
			answer("Not found")
			return
		}
		m.editMessage(ctx, chatID, messageID, m.strategyDetail(index, item), detailButtons(index, item.Enabled))
		answer("")

	case strings.HasPrefix(data, "edit_strategy:"):
		index := parseIndex(data)
		item, err := m.store.GetOwned(senderID, index)
		if err != nil {
			answer("Out of range")
			return
		}
		st := &state{
			mode:      ModeEdit,
			step:      StepBuilder,
			draft:     item,
			editIndex: index,
			anchorID:  messageID,
		}
		m.setState(chatID, st)
		m.editMessage(ctx, chatID, messageID, builderText(), m.builderButtons(st))
		answer("")

	case strings.HasPrefix(data, "delete:"):
		index := parseIndex(data)
		item, err := m.store.GetOwned(senderID, index)
		if err != nil {
			answer("Not found")
			return
		}
		m.editMessage(ctx, chatID, messageID,
			"Delete strategy #"+strconv.Itoa(index)+" '"+orUnnamed(item.Name)+"'?",
			dispatch.Row(
				dispatch.Button{Label: "❌ Cancel", Data: "view:" + strconv.Itoa(index)},
				dispatch.Button{Label: "✅ Confirm", Data: "confirm_delete:" + strconv.Itoa(index)},
			))
		answer("")

	case strings.HasPrefix(data, "confirm_delete:"):
		index := parseIndex(data)
		if err := m.store.DeleteOwned(senderID, index); err != nil {
			answer("Delete failed")
			return
		}
		answer("Deleted")
		text, rows := m.strategiesPage(senderID, 1)
		m.editMessage(ctx, chatID, messageID, text, rows)

	case strings.HasPrefix(data, "toggle:"):
		index := parseIndex(data)
		item, err := m.store.ToggleOwned(senderID, index)
		if err != nil {
			answer("Save failed")
			return
		}
		answer("Saved")
		m.editMessage(ctx, chatID, messageID, m.strategyDetail(index, item), detailButtons(index, item.Enabled))

	case strings.HasPrefix(data, "act:"):
		index := parseIndex(data)
		item, err := m.store.GetOwned(senderID, index)
		if err != nil {
			answer("Not found")
			return
		}
		// Reuse the strategy's last matched token so the test send can
		// render a real {token}; empty when nothing matched yet.
		var token string
		if matchCtx, ok := m.registry.Latest(item.Name); ok {
			token = matchCtx.Token
		}
		m.setState(chatID, &state{mode: ModeQuickAction, step: StepTarget, actionIndex: index, token: token})
		m.editMessage(ctx, chatID, messageID, "Action Target (e.g., @mychannel):", backRow("dash"))
		answer("")

	case data == "new":
		// Always a fresh message so the dashboard stays behind it.
		st := &state{mode: ModeCreate, step: StepBuilder}
		m.setState(chatID, st)
		answer("New Strategy")
		st.anchorID = m.sendWithButtons(ctx, chatID, builderText(), m.builderButtons(st))

	case strings.HasPrefix(data, "new_group:"):
		group := strings.TrimPrefix(data, "new_group:")
		st, ok := m.getState(chatID)
		if !ok {
			st = &state{mode: ModeCreate, step: StepGroup}
			m.setState(chatID, st)
		}
		st.draft.Group = group
		st.step = StepBuilder
		st.anchorID = messageID
		m.editMessage(ctx, chatID, messageID, builderText(), m.builderButtons(st))
		answer("")

	case data == "builder":
		st, ok := m.getState(chatID)
		if !ok {
			answer("No active builder")
			return
		}
		st.step = StepBuilder
		st.anchorID = messageID
		m.editMessage(ctx, chatID, messageID, builderText(), m.builderButtons(st))
		answer("")

	case data == "menu:label":
		st, ok := m.getState(chatID)
		if !ok {
			answer("No active builder")
			return
		}
		st.anchorID = messageID
		m.editMessage(ctx, chatID, messageID, labelMenuText(st), labelMenuButtons())
		answer("")

	case data == "menu:order":
		st, ok := m.getState(chatID)
		if !ok {
			answer("No active builder")
			return
		}
		st.anchorID = messageID
		m.editMessage(ctx, chatID, messageID, orderMenuText(st), orderMenuButtons())
		answer("")

	case strings.HasPrefix(data, "label:"):
		st, ok := m.getState(chatID)
		if !ok {
			answer("No active builder")
			return
		}
		st.draft.Filters.Label = strings.TrimPrefix(data, "label:")
		st.anchorID = messageID
		m.editMessage(ctx, chatID, messageID, builderText(), m.builderButtons(st))
		answer("")

	case strings.HasPrefix(data, "set:"):
		m.applyQuickPick(ctx, chatID, messageID, data, answer)

	case data == "save":
		m.saveDraft(ctx, chatID, senderID, messageID, answer)

	case data == "cancel":
		m.clearState(chatID)
		m.editMessage(ctx, chatID, messageID, "Canceled", backRow("dash"))
		answer("")

	case data == "pause":
		m.pause.Set(true)
		answer("Paused")
		text, rows := m.strategiesPage(senderID, 1)
		m.editMessage(ctx, chatID, messageID, text, rows)

	case data == "resume":
		m.pause.Set(false)
		answer("Resumed")
		text, rows := m.strategiesPage(senderID, 1)
		m.editMessage(ctx, chatID, messageID, text, rows)

	case data == "reload":
		if _, err := m.store.LoadAll(); err != nil {
			answer("Reload failed")
		} else {
			answer("Reloaded")
		}
		text, rows := m.strategiesPage(senderID, 1)
		m.editMessage(ctx, chatID, messageID, text, rows)

	case data == "limit_menu":
		m.setState(chatID, &state{mode: ModeLimitAdHoc, step: StepToken})
		m.editMessage(ctx, chatID, messageID, "Enter Token Address for LIMIT order:", backRow("dash"))
		answer("")

	case strings.HasPrefix(data, "limit:"):
		cid := strings.TrimPrefix(data, "limit:")
		matchCtx, ok := m.registry.Get(cid)
		if !ok || matchCtx.Token == "" {
			answer("Context expired")
			return
		}
		m.setState(chatID, &state{
			mode:         ModeLimit,
			step:         StepAmount,
			token:        matchCtx.Token,
			strategyName: matchCtx.StrategyName,
		})
		m.editMessage(ctx, chatID, messageID, "Amount (SOL) for "+matchCtx.Token+":", backRow("dash"))
		answer("")

	default:
		answer("Updated")
		m.editMessage(ctx, chatID, messageID, m.statusText(), dashboardButtons())
	}
}

func (m *Manager) openFieldEdit(ctx context.Context, chatID, messageID int64, key string, answer func(string)) {
	st, ok := m.getState(chatID)
	if !ok {
		if key != "name" {
			answer("No active builder")
			return
		}
		st = &state{mode: ModeCreate, step: StepBuilder}
		m.setState(chatID, st)
	}
	step, known := editSteps[key]
	if !known {
		answer("Unknown field")
		return
	}
	st.step = step
	st.anchorID = messageID
	m.editMessage(ctx, chatID, messageID, editPrompts[key], backRow("builder"))
	answer("")
}

func (m *Manager) applyQuickPick(ctx context.Context, chatID, messageID int64, data string, answer func(string)) {
	st, ok := m.getState(chatID)
	if !ok {
		answer("No active builder")
		return
	}
	parts := strings.SplitN(data, ":", 3)
	if len(parts) != 3 {
		answer("Invalid")
		return
	}
	field, value := parts[1], parts[2]
	trojan := ensureTrojan(&st.draft)
	switch field {
	case "amount":
		if number, ok := signal.ParseNumber(value); ok {
			trojan.Amount = &number
		}
	case "expiry":
		if minutes, ok := signal.ParseDurationMinutes(value); ok {
			trojan.ExpiryMinutes = &minutes
		}
	case "slippage":
		if number, ok := signal.ParseNumber(value); ok {
			trojan.SlippagePct = &number
		}
	case "trigger":
		if number, ok := signal.ParseNumber(value); ok {
			trojan.TriggerPrice = &number
		}
	}
	st.step = StepBuilder
	st.anchorID = messageID
	m.editMessage(ctx, chatID, messageID, builderText(), m.builderButtons(st))
	answer("")
}

func (m *Manager) saveDraft(ctx context.Context, chatID, senderID, messageID int64, answer func(string)) {
	st, ok := m.getState(chatID)
	if !ok {
		answer("Nothing to save")
		return
	}

	var err error
	if st.mode == ModeEdit {
		err = m.store.UpdateOwned(senderID, st.editIndex, st.draft)
	} else {
		_, err = m.store.Create(senderID, st.draft)
	}
	if err != nil {
		answer(userMessage(err))
		// Keep the builder open so the draft can be fixed.
		m.editMessage(ctx, chatID, messageID, builderText(), m.builderButtons(st))
		return
	}
	m.clearState(chatID)
	if st.mode == ModeEdit {
		m.editMessage(ctx, chatID, messageID, "Updated ✅", backRow("strats"))
	} else {
		m.editMessage(ctx, chatID, messageID, "Saved ✅", backRow("dash"))
	}
	answer("")
}

// userMessage strips the sentinel prefix off a wrapped error so the
// user-facing part remains.
func userMessage(err error) string {
	text := err.Error()
	if i := strings.Index(text, ": "); i >= 0 {
		return strings.ToUpper(text[i+2:i+3]) + text[i+3:]
	}
	return text
}

func ensureTrojan(draft *strategy.Strategy) *strategy.Trojan {
	if draft.Trojan == nil {
		draft.Trojan = &strategy.Trojan{}
	}
	return draft.Trojan
}

func parseIndex(data string) int {
	_, rest, _ := strings.Cut(data, ":")
	index, err := strconv.Atoi(rest)
	if err != nil {
		return 0
	}
	return index
}
