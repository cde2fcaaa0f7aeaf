// Package conversation drives the interactive strategy builder over
// private chats: the inline dashboard, the per-chat builder state
// machine, slash commands and the limit-order flows.
package conversation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/solwatch/solwatch/internal/dispatch"
	"github.com/solwatch/solwatch/internal/engine"
	"github.com/solwatch/solwatch/internal/strategy"
)

// Mode selects which flow a chat's conversation is in.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
	ModeLimit
	ModeLimitAdHoc
	ModeQuickAction
)

// Step is the cursor within the current flow. Free-text input is routed
// by the current step, never by re-deriving intent from message shape.
type Step int

const (
	StepGroup Step = iota
	StepBuilder
	StepEditName
	StepEditTokenAge
	StepEditFirstBuy
	StepEditBalance
	StepEditTx
	StepEditAmount
	StepEditExpiry
	StepEditSlippage
	StepEditTrigger
	StepEditActionTarget
	StepEditActionTemplate
	StepToken
	StepAmount
	StepExpiry
	StepSlippage
	StepTrigger
	StepTarget
	StepTemplate
)

// state is one chat's in-flight conversation. Ephemeral, process
// lifetime only; a new builder session replaces a stale one.
type state struct {
	mode      Mode
	step      Step
	draft     strategy.Strategy
	editIndex int   // owner-view index when mode == ModeEdit
	anchorID  int64 // message holding the in-place UI

	// limit flow scratch values
	token        string
	strategyName string
	amount       float64
	expiry       float64
	slippage     float64

	// quick-action flow
	actionIndex int
}

// Orders dispatches a prepared limit order to the venue.
type Orders interface {
	SendLimitOrder(ctx context.Context, token string, amount, expiryMinutes, slippage, trigger float64) error
}

// CacheSize reports the dedup cache size for status surfaces.
type CacheSize interface {
	Len() int
}

// Manager owns all per-chat conversation state and renders the inline
// UI. One Manager serves every private chat; states are keyed by chat
// id so concurrent chats do not interfere.
type Manager struct {
	store    *strategy.Store
	registry *dispatch.Registry
	control  *dispatch.Control
	pause    *engine.Pause
	orders   Orders
	cache    CacheSize
	logger   *slog.Logger

	groups  []string // choosable source groups for new strategies
	allowed map[int64]bool

	mu       sync.Mutex
	states   map[int64]*state
	sender   dispatch.Sender
	identity string // bot username, shown on the dashboard
}

func NewManager(
	store *strategy.Store,
	registry *dispatch.Registry,
	control *dispatch.Control,
	pause *engine.Pause,
	orders Orders,
	cache CacheSize,
	groups []string,
	allowedIDs []int64,
	logger *slog.Logger,
) *Manager {
	allowed := map[int64]bool{}
	for _, id := range allowedIDs {
		allowed[id] = true
	}
	return &Manager{
		store:    store,
		registry: registry,
		control:  control,
		pause:    pause,
		orders:   orders,
		cache:    cache,
		logger:   logger,
		groups:   groups,
		allowed:  allowed,
		states:   map[int64]*state{},
	}
}

// SetSender attaches the transport once it exists.
func (m *Manager) SetSender(sender dispatch.Sender) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sender = sender
}

// SetIdentity records the bot's username for the dashboard header.
func (m *Manager) SetIdentity(username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identity = username
}

// Authorized reports whether senderID may drive the bot. An empty
// allow-list authorizes every private-chat identity.
func (m *Manager) Authorized(senderID int64) bool {
	if len(m.allowed) == 0 {
		return true
	}
	return m.allowed[senderID]
}

func (m *Manager) getSender() dispatch.Sender {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sender
}

func (m *Manager) getIdentity() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

func (m *Manager) getState(chatID int64) (*state, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[chatID]
	return st, ok
}

func (m *Manager) setState(chatID int64, st *state) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[chatID] = st
}

func (m *Manager) clearState(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, chatID)
}
