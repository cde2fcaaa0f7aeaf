// Package dispatch reacts to strategy matches: it renders notifications,
// templated actions and venue order commands, and hands them to the
// transport's send capability. Delivery is best-effort throughout.
package dispatch

import "context"

// Button is one inline action attached to an outbound message.
type Button struct {
	Label string
	Data  string
}

// Sender is the outbound capability of the messaging transport. A
// destination is either a numeric chat id or an "@handle".
type Sender interface {
	Send(ctx context.Context, destination, text string, buttons [][]Button) (messageID int64, err error)
	Edit(ctx context.Context, chatID, messageID int64, text string, buttons [][]Button) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	Delete(ctx context.Context, chatID, messageID int64) error
}

// Row builds a single-row button layout.
func Row(buttons ...Button) [][]Button {
	return [][]Button{buttons}
}
