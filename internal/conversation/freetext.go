package conversation

import (
	"context"
	"strings"

	"github.com/solwatch/solwatch/internal/dispatch"
	"github.com/solwatch/solwatch/internal/signal"
	"github.com/solwatch/solwatch/internal/strategy"
)

// handleFreeText routes free-text input by the chat's current step. With
// no active conversation the text is ignored; the user's own message is
// deleted so only the anchored UI remains.
func (m *Manager) handleFreeText(ctx context.Context, chatID, senderID, messageID int64, text string) {
	st, ok := m.getState(chatID)
	if !ok {
		return
	}
	if sender := m.getSender(); sender != nil && messageID != 0 {
		if err := sender.Delete(ctx, chatID, messageID); err != nil {
			m.logger.Debug("input cleanup failed", "chat_id", chatID, "error", err)
		}
	}

	switch st.mode {
	case ModeCreate, ModeEdit:
		m.builderInput(ctx, chatID, st, text)
	case ModeQuickAction:
		m.quickActionInput(ctx, chatID, senderID, st, text)
	case ModeLimit, ModeLimitAdHoc:
		m.limitInput(ctx, chatID, senderID, st, text)
	}
}

const (
	invalidNumber  = "Invalid number. Try again or tap Back."
	invalidExpiry  = "Invalid expiry. Use formats like 45s, 30m, 2h, 1d."
	invalidRange   = "Invalid format. Use 'min,max'. Tap Back to cancel."
	expiryPrompt   = "Expiry (e.g., 45s, 30m, 2h, 1d):"
	slippagePrompt = "Slippage %:"
	triggerPrompt  = "Trigger Price (SOL):"
)

func (m *Manager) builderInput(ctx context.Context, chatID int64, st *state, text string) {
	switch st.step {
	case StepEditName:
		st.draft.Name = text
	case StepEditAmount:
		number, ok := signal.ParseNumber(text)
		if !ok {
			m.rePrompt(ctx, chatID, st, invalidNumber)
			return
		}
		ensureTrojan(&st.draft).Amount = &number
	case StepEditExpiry:
		minutes, ok := signal.ParseDurationMinutes(text)
		if !ok {
			m.rePrompt(ctx, chatID, st, invalidExpiry)
			return
		}
		ensureTrojan(&st.draft).ExpiryMinutes = &minutes
	case StepEditSlippage:
		number, ok := signal.ParseNumber(text)
		if !ok {
			m.rePrompt(ctx, chatID, st, invalidNumber)
			return
		}
		ensureTrojan(&st.draft).SlippagePct = &number
	case StepEditTrigger:
		number, ok := signal.ParseNumber(text)
		if !ok {
			m.rePrompt(ctx, chatID, st, invalidNumber)
			return
		}
		ensureTrojan(&st.draft).TriggerPrice = &number
	case StepEditTokenAge, StepEditFirstBuy, StepEditBalance, StepEditTx:
		lo, hi, ok := signal.ParseRange(text)
		if !ok {
			m.rePrompt(ctx, chatID, st, invalidRange)
			return
		}
		rng := &strategy.Range{From: lo, To: hi}
		switch st.step {
		case StepEditTokenAge:
			st.draft.Filters.TokenAge = rng
		case StepEditFirstBuy:
			st.draft.Filters.FirstBuy = rng
		case StepEditBalance:
			st.draft.Filters.Balance = rng
		case StepEditTx:
			st.draft.Filters.Tx = rng
		}
	case StepEditActionTarget:
		ensureAction(&st.draft).Target = text
	case StepEditActionTemplate:
		ensureAction(&st.draft).Template = text
	default:
		return
	}
	st.step = StepBuilder
	m.showBuilder(ctx, chatID, st)
}

// showBuilder refreshes the anchored builder message, sending a fresh
// one when no anchor exists yet.
func (m *Manager) showBuilder(ctx context.Context, chatID int64, st *state) {
	if st.anchorID != 0 {
		m.editMessage(ctx, chatID, st.anchorID, builderText(), m.builderButtons(st))
		return
	}
	st.anchorID = m.sendWithButtons(ctx, chatID, builderText(), m.builderButtons(st))
}

// rePrompt re-displays the current prompt without advancing the step or
// mutating the draft.
func (m *Manager) rePrompt(ctx context.Context, chatID int64, st *state, prompt string) {
	if st.anchorID != 0 {
		m.editMessage(ctx, chatID, st.anchorID, prompt, backRow("builder"))
		return
	}
	st.anchorID = m.sendWithButtons(ctx, chatID, prompt, backRow("builder"))
}

// quickActionInput chains target -> template -> send for an already
// saved strategy, persisting each value as it arrives.
func (m *Manager) quickActionInput(ctx context.Context, chatID, senderID int64, st *state, text string) {
	item, err := m.store.GetOwned(senderID, st.actionIndex)
	if err != nil {
		m.sendWithButtons(ctx, chatID, "Strategy not found. Use /start", backRow("dash"))
		m.clearState(chatID)
		return
	}

	switch st.step {
	case StepTarget:
		action := item.Action
		if action == nil {
			action = &strategy.Action{}
		}
		action.Target = "@" + strings.TrimPrefix(strings.TrimSpace(text), "@")
		if _, err := m.store.UpdateActionOwned(senderID, st.actionIndex, action); err != nil {
			m.sendWithButtons(ctx, chatID, "Failed to save action", backRow("dash"))
			m.clearState(chatID)
			return
		}
		st.step = StepTemplate
		m.sendWithButtons(ctx, chatID,
			`Set Action Template (e.g., "buy {token}"). Placeholders: {token} {name}`, backRow("dash"))

	case StepTemplate:
		template := text
		if strings.TrimSpace(template) == "" {
			template = "{token}"
		}
		action := item.Action
		if action == nil {
			action = &strategy.Action{}
		}
		action.Template = template
		updated, err := m.store.UpdateActionOwned(senderID, st.actionIndex, action)
		if err != nil {
			m.sendWithButtons(ctx, chatID, "Failed to save action", backRow("dash"))
			m.clearState(chatID)
			return
		}
		message := dispatch.RenderTemplate(template, map[string]string{
			"token": st.token,
			"name":  updated.Name,
		})
		sender := m.getSender()
		if sender == nil {
			m.clearState(chatID)
			return
		}
		if _, err := sender.Send(ctx, action.Target, message, nil); err != nil {
			m.logger.Error("quick action send failed", "target", action.Target, "error", err)
			m.reply(ctx, chatID, "Failed to send")
		} else {
			m.reply(ctx, chatID, "Sent ✅")
		}
		m.clearState(chatID)
	}
}

// limitInput walks the linear limit-order flow. The ad-hoc variant asks
// for the token first; the match-seeded variant starts at the amount.
func (m *Manager) limitInput(ctx context.Context, chatID, senderID int64, st *state, text string) {
	switch st.step {
	case StepToken:
		st.token = strings.TrimSpace(text)
		st.step = StepAmount
		m.sendWithButtons(ctx, chatID, "Amount (SOL):", backRow("dash"))

	case StepAmount:
		value, ok := signal.ParseNumber(text)
		if !ok {
			m.sendWithButtons(ctx, chatID, "Invalid amount. Enter number.", backRow("dash"))
			return
		}
		st.amount = value
		st.step = StepExpiry
		m.sendWithButtons(ctx, chatID, expiryPrompt, backRow("dash"))

	case StepExpiry:
		value, ok := signal.ParseDurationMinutes(text)
		if !ok {
			m.sendWithButtons(ctx, chatID, invalidExpiry, backRow("dash"))
			return
		}
		st.expiry = value
		st.step = StepSlippage
		m.sendWithButtons(ctx, chatID, slippagePrompt, backRow("dash"))

	case StepSlippage:
		value, ok := signal.ParseNumber(text)
		if !ok {
			m.sendWithButtons(ctx, chatID, "Invalid slippage. Enter percent.", backRow("dash"))
			return
		}
		st.slippage = value
		st.step = StepTrigger
		m.sendWithButtons(ctx, chatID, triggerPrompt, backRow("dash"))

	case StepTrigger:
		trigger, ok := signal.ParseNumber(text)
		if !ok {
			m.sendWithButtons(ctx, chatID, "Invalid trigger price. Enter number.", backRow("dash"))
			return
		}
		if st.mode == ModeLimit && !m.ownsStrategyNamed(senderID, st.strategyName) {
			m.sendWithButtons(ctx, chatID, "Strategy not found. Use /start", backRow("dash"))
			m.clearState(chatID)
			return
		}
		if err := m.orders.SendLimitOrder(ctx, st.token, st.amount, st.expiry, st.slippage, trigger); err != nil {
			m.reply(ctx, chatID, "Failed to send")
		} else {
			m.reply(ctx, chatID, "LIMIT sent ✅")
		}
		m.clearState(chatID)
	}
}

func ensureAction(draft *strategy.Strategy) *strategy.Action {
	if draft.Action == nil {
		draft.Action = &strategy.Action{}
	}
	return draft.Action
}

func (m *Manager) ownsStrategyNamed(ownerID int64, name string) bool {
	list, _ := m.store.LoadAll()
	for _, item := range strategy.OwnedBy(list, ownerID) {
		if item.Name == name {
			return true
		}
	}
	return false
}
