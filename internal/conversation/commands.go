package conversation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/solwatch/solwatch/internal/dispatch"
	"github.com/solwatch/solwatch/internal/strategy"
)

const helpText = "Commands:\n" +
	"/help – this help\n" +
	"/status – show bot status\n" +
	"/strategies – list strategies with index\n" +
	"/enable <#idx|name> – enable a strategy\n" +
	"/disable <#idx|name> – disable a strategy\n" +
	"/pause – pause processing group messages\n" +
	"/resume – resume processing\n" +
	"/reload – reload the strategy file (ack)\n" +
	"/ping – health check\n" +
	"/whoami – show your Telegram ID\n" +
	"/dashboard – open inline dashboard\n" +
	"/new – start new strategy wizard"

// HandlePrivateMessage routes one private-chat text message: slash
// commands first, everything else as free-text input to the active
// conversation. Unauthorized senders are silently ignored.
func (m *Manager) HandlePrivateMessage(ctx context.Context, chatID, senderID, messageID int64, text string) {
	if !m.Authorized(senderID) {
		return
	}
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "/") {
		m.handleCommand(ctx, chatID, senderID, text)
		return
	}
	m.handleFreeText(ctx, chatID, senderID, messageID, text)
}

func (m *Manager) handleCommand(ctx context.Context, chatID, senderID int64, text string) {
	command, arg := text, ""
	if i := strings.IndexAny(text, " \t"); i >= 0 {
		command, arg = text[:i], strings.TrimSpace(text[i+1:])
	}

	switch command {
	case "/start":
		m.control.Set(chatID)
		m.clearState(chatID)
		m.sendDashboard(ctx, chatID)
	case "/help", "/h":
		m.reply(ctx, chatID, helpText)
	case "/ping":
		m.reply(ctx, chatID, "pong")
	case "/dashboard", "/menu":
		m.control.Set(chatID)
		m.sendDashboard(ctx, chatID)
	case "/whoami":
		m.reply(ctx, chatID, fmt.Sprintf("Your ID: %d", senderID))
	case "/status":
		m.reply(ctx, chatID, m.statusText())
	case "/strategies":
		m.replyStrategyList(ctx, chatID, senderID)
	case "/new":
		m.setState(chatID, &state{mode: ModeCreate, step: StepGroup})
		m.sendWithButtons(ctx, chatID, "Choose group for the new strategy:", m.groupChoiceButtons("cancel"))
	case "/enable":
		m.setEnabled(ctx, chatID, senderID, arg, true)
	case "/disable":
		m.setEnabled(ctx, chatID, senderID, arg, false)
	case "/pause":
		m.pause.Set(true)
		m.reply(ctx, chatID, "Processing paused")
	case "/resume":
		m.pause.Set(false)
		m.reply(ctx, chatID, "Processing resumed")
	case "/reload":
		if _, err := m.store.LoadAll(); err != nil {
			m.reply(ctx, chatID, "Reload failed: "+err.Error())
			return
		}
		m.reply(ctx, chatID, "Strategies reloaded")
	}
}

func (m *Manager) replyStrategyList(ctx context.Context, chatID, senderID int64) {
	list, _ := m.store.LoadAll()
	owned := strategy.OwnedBy(list, senderID)
	if len(owned) == 0 {
		m.reply(ctx, chatID, "No strategies found.")
		return
	}
	lines := make([]string, 0, len(owned))
	for i, item := range owned {
		lines = append(lines, fmt.Sprintf("#%d %s %s — %s",
			i+1, enabledFlag(item.Enabled), orUnnamed(item.Name), item.Group))
	}
	m.reply(ctx, chatID, strings.Join(lines, "\n"))
}

func (m *Manager) setEnabled(ctx context.Context, chatID, senderID int64, arg string, enabled bool) {
	if arg == "" {
		m.reply(ctx, chatID, "Provide a name or #index")
		return
	}
	item, err := m.store.SetEnabledByRef(senderID, arg, enabled)
	if err != nil {
		m.reply(ctx, chatID, "Strategy not found")
		return
	}
	verb := "Disabled"
	if enabled {
		verb = "Enabled"
	}
	m.reply(ctx, chatID, verb+": "+item.Name)
}

func (m *Manager) sendDashboard(ctx context.Context, chatID int64) {
	m.sendWithButtons(ctx, chatID, m.statusText(), dashboardButtons())
}

func (m *Manager) reply(ctx context.Context, chatID int64, text string) {
	m.sendWithButtons(ctx, chatID, text, nil)
}

func (m *Manager) sendWithButtons(ctx context.Context, chatID int64, text string, buttons [][]dispatch.Button) int64 {
	sender := m.getSender()
	if sender == nil {
		return 0
	}
	messageID, err := sender.Send(ctx, strconv.FormatInt(chatID, 10), text, buttons)
	if err != nil {
		m.logger.Warn("conversation send failed", "chat_id", chatID, "error", err)
		return 0
	}
	return messageID
}

func (m *Manager) editMessage(ctx context.Context, chatID, messageID int64, text string, buttons [][]dispatch.Button) {
	sender := m.getSender()
	if sender == nil {
		return
	}
	if err := sender.Edit(ctx, chatID, messageID, text, buttons); err != nil {
		m.logger.Debug("conversation edit failed", "chat_id", chatID, "error", err)
	}
}
