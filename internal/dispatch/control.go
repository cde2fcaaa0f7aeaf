package dispatch

import "sync"

// Control resolves the single configured control destination. When an
// allow-list is configured its first identity wins; otherwise the chat
// that most recently opened the dashboard is used.
type Control struct {
	allowedFirst int64
	mu           sync.Mutex
	lastChat     int64
}

func NewControl(allowedIDs []int64) *Control {
	control := &Control{}
	if len(allowedIDs) > 0 {
		control.allowedFirst = allowedIDs[0]
	}
	return control
}

func (c *Control) Set(chatID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastChat = chatID
}

func (c *Control) ChatID() int64 {
	if c.allowedFirst != 0 {
		return c.allowedFirst
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastChat
}
