package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/solwatch/solwatch/internal/dispatch"
)

// call posts one Bot API method and decodes the response envelope into
// result when given.
func (c *Connector) call(ctx context.Context, method string, body map[string]any, result any) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.apiBase, c.token, method)
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	var envelope struct {
		OK          bool            `json:"ok"`
		Description string          `json:"description"`
		Result      json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode %s: %w", method, err)
	}
	if !envelope.OK {
		if envelope.Description != "" {
			return fmt.Errorf("telegram %s failed: %s", method, envelope.Description)
		}
		return fmt.Errorf("telegram %s failed", method)
	}
	if result != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

// chatIDValue turns a destination into the chat_id wire value: numeric
// ids stay numbers, handles go as "@handle" strings.
func chatIDValue(destination string) any {
	destination = strings.TrimSpace(destination)
	if id, err := strconv.ParseInt(destination, 10, 64); err == nil {
		return id
	}
	if !strings.HasPrefix(destination, "@") {
		return "@" + destination
	}
	return destination
}

func keyboard(buttons [][]dispatch.Button) *inlineKeyboardMarkup {
	if len(buttons) == 0 {
		return nil
	}
	markup := &inlineKeyboardMarkup{}
	for _, row := range buttons {
		wireRow := make([]inlineKeyboardButton, 0, len(row))
		for _, button := range row {
			wireRow = append(wireRow, inlineKeyboardButton{Text: button.Label, CallbackData: button.Data})
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, wireRow)
	}
	return markup
}

// Send implements dispatch.Sender.
func (c *Connector) Send(ctx context.Context, destination, text string, buttons [][]dispatch.Button) (int64, error) {
	body := map[string]any{
		"chat_id": chatIDValue(destination),
		"text":    text,
	}
	if markup := keyboard(buttons); markup != nil {
		body["reply_markup"] = markup
	}
	var sent struct {
		MessageID int64 `json:"message_id"`
	}
	if err := c.call(ctx, "sendMessage", body, &sent); err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (c *Connector) Edit(ctx context.Context, chatID, messageID int64, text string, buttons [][]dispatch.Button) error {
	body := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}
	if markup := keyboard(buttons); markup != nil {
		body["reply_markup"] = markup
	}
	return c.call(ctx, "editMessageText", body, nil)
}

func (c *Connector) AnswerCallback(ctx context.Context, callbackID, text string) error {
	body := map[string]any{
		"callback_query_id": callbackID,
	}
	if text != "" {
		body["text"] = text
	}
	return c.call(ctx, "answerCallbackQuery", body, nil)
}

func (c *Connector) Delete(ctx context.Context, chatID, messageID int64) error {
	return c.call(ctx, "deleteMessage", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
	}, nil)
}

func (c *Connector) fetchBotUsername(ctx context.Context) (string, error) {
	var me struct {
		Username string `json:"username"`
	}
	if err := c.call(ctx, "getMe", map[string]any{}, &me); err != nil {
		return "", err
	}
	return strings.TrimSpace(me.Username), nil
}

// botCommands is the private-chat command menu registered on startup.
var botCommands = []struct {
	command     string
	description string
}{
	{"start", "Open the dashboard"},
	{"dashboard", "Open the dashboard"},
	{"status", "Show bot status"},
	{"strategies", "List your strategies"},
	{"new", "Start the strategy wizard"},
	{"enable", "Enable a strategy by #index or name"},
	{"disable", "Disable a strategy by #index or name"},
	{"pause", "Pause group message processing"},
	{"resume", "Resume group message processing"},
	{"reload", "Reload the strategy file"},
	{"whoami", "Show your Telegram ID"},
	{"ping", "Health check"},
	{"help", "List commands"},
}

func (c *Connector) syncCommands(ctx context.Context) error {
	commands := make([]map[string]string, 0, len(botCommands))
	for _, entry := range botCommands {
		commands = append(commands, map[string]string{
			"command":     entry.command,
			"description": entry.description,
		})
	}
	return c.call(ctx, "setMyCommands", map[string]any{"commands": commands}, nil)
}
