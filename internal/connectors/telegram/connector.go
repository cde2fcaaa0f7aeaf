// Package telegram is the Bot API transport: a long-poll update loop
// that routes watched-group messages into the match pipeline and
// private-chat traffic into the conversation layer, plus the outbound
// send capability the dispatcher and conversation UI use.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/solwatch/solwatch/internal/engine"
)

// Engine receives messages from watched source groups.
type Engine interface {
	HandleGroupMessage(ctx context.Context, msg engine.InboundMessage)
}

// Conversation receives private-chat messages and button presses.
type Conversation interface {
	HandlePrivateMessage(ctx context.Context, chatID, senderID, messageID int64, text string)
	HandleCallback(ctx context.Context, chatID, senderID, messageID int64, callbackID, data string)
	SetIdentity(username string)
}

type Connector struct {
	token       string
	apiBase     string
	pollSeconds int
	watch       map[string]string // lowercase group username -> canonical form
	engine      Engine
	convo       Conversation
	httpClient  *http.Client
	logger      *slog.Logger
	botUsername string
	offset      int64
}

func New(token, apiBase string, pollSeconds int, groups []string, eng Engine, convo Conversation, logger *slog.Logger) *Connector {
	if strings.TrimSpace(apiBase) == "" {
		apiBase = "https://api.telegram.org"
	}
	if pollSeconds < 1 {
		pollSeconds = 25
	}
	watch := map[string]string{}
	for _, group := range groups {
		canonical := strings.TrimPrefix(strings.TrimSpace(group), "@")
		if canonical == "" {
			continue
		}
		watch[strings.ToLower(canonical)] = canonical
	}
	return &Connector{
		token:       strings.TrimSpace(token),
		apiBase:     strings.TrimRight(strings.TrimSpace(apiBase), "/"),
		pollSeconds: pollSeconds,
		watch:       watch,
		engine:      eng,
		convo:       convo,
		httpClient: &http.Client{
			Timeout: time.Duration(pollSeconds+10) * time.Second,
		},
		logger: logger,
	}
}

func (c *Connector) Name() string {
	return "telegram"
}

func (c *Connector) Start(ctx context.Context) error {
	if c.token == "" {
		c.logger.Info("connector disabled, token missing")
		<-ctx.Done()
		return nil
	}

	if username, err := c.fetchBotUsername(ctx); err == nil && username != "" {
		c.botUsername = username
		c.convo.SetIdentity("@" + username)
		c.logger.Info("telegram bot identity loaded", "username", username)
	} else if err != nil {
		c.logger.Warn("telegram bot username lookup failed", "error", err)
	}
	if err := c.syncCommands(ctx); err != nil {
		c.logger.Warn("telegram command sync failed", "error", err)
	}
	c.logger.Info("connector started", "api_base", c.apiBase, "groups", len(c.watch))

	for {
		if ctx.Err() != nil {
			c.logger.Info("connector stopped")
			return nil
		}
		if err := c.pollOnce(ctx); err != nil && ctx.Err() == nil {
			c.logger.Error("poll failed", "error", err)
			select {
			case <-ctx.Done():
				c.logger.Info("connector stopped")
				return nil
			case <-time.After(1500 * time.Millisecond):
			}
		}
	}
}

func (c *Connector) pollOnce(ctx context.Context) error {
	url := fmt.Sprintf("%s/bot%s/getUpdates?timeout=%d&offset=%d", c.apiBase, c.token, c.pollSeconds, c.offset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	var payload getUpdatesResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode getUpdates: %w", err)
	}
	if !payload.OK {
		return fmt.Errorf("telegram getUpdates failed")
	}

	for _, update := range payload.Result {
		if update.UpdateID >= c.offset {
			c.offset = update.UpdateID + 1
		}
		c.dispatchUpdate(ctx, update)
	}
	return nil
}

// dispatchUpdate routes one update. The recover here is the single
// centralized guard keeping a defective handler from crashing the loop.
func (c *Connector) dispatchUpdate(ctx context.Context, update telegramUpdate) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("update handler panicked", "update_id", update.UpdateID, "panic", r)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		c.handleCallbackQuery(ctx, *update.CallbackQuery)
	case update.Message != nil:
		c.handleMessage(ctx, *update.Message)
	case update.ChannelPost != nil:
		c.handleMessage(ctx, *update.ChannelPost)
	}
}

func (c *Connector) handleCallbackQuery(ctx context.Context, callback telegramCallbackQuery) {
	if callback.Message == nil || callback.Message.Chat.Type != "private" {
		return
	}
	c.convo.HandleCallback(
		ctx,
		callback.Message.Chat.ID,
		callback.From.ID,
		callback.Message.MessageID,
		callback.ID,
		callback.Data,
	)
}

func (c *Connector) handleMessage(ctx context.Context, message telegramMessage) {
	text := strings.TrimSpace(message.Text)
	if text == "" {
		text = strings.TrimSpace(message.Caption)
	}
	if text == "" {
		return
	}

	if message.Chat.Type == "private" {
		c.convo.HandlePrivateMessage(ctx, message.Chat.ID, message.From.ID, message.MessageID, text)
		return
	}

	canonical, watched := c.watch[strings.ToLower(strings.TrimSpace(message.Chat.Username))]
	if !watched {
		return
	}
	c.engine.HandleGroupMessage(ctx, engine.InboundMessage{
		Text:   text,
		SentAt: time.Unix(message.Date, 0),
		Group:  canonical,
		ChatID: message.Chat.ID,
	})
}
