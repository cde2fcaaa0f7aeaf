// Package engine runs the inbound message pipeline: pause gate, duplicate
// suppression, field extraction and strategy evaluation, handing matches
// to the dispatcher.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/solwatch/solwatch/internal/dispatch"
	"github.com/solwatch/solwatch/internal/signal"
	"github.com/solwatch/solwatch/internal/strategy"
)

// InboundMessage is one group message from the transport.
type InboundMessage struct {
	Text   string
	SentAt time.Time
	Group  string // source handle, without the leading @
	ChatID int64
}

type StrategySource interface {
	LoadAll() ([]strategy.Strategy, error)
	VenueGroup() string
}

type Deduper interface {
	IsDuplicate(text string) bool
}

type Notifier interface {
	NotifyMatch(ctx context.Context, strat strategy.Strategy, matchCtx dispatch.MatchContext, originChat int64)
	NotifyTrojan(ctx context.Context, strat strategy.Strategy, matchCtx dispatch.MatchContext, originChat int64)
	RunAction(ctx context.Context, strat strategy.Strategy, tmplCtx map[string]string)
}

type Engine struct {
	store    StrategySource
	dedup    Deduper
	notifier Notifier
	pause    *Pause
	logger   *slog.Logger
	now      func() time.Time
}

func New(store StrategySource, dedup Deduper, notifier Notifier, pause *Pause, logger *slog.Logger) *Engine {
	return &Engine{
		store:    store,
		dedup:    dedup,
		notifier: notifier,
		pause:    pause,
		logger:   logger,
		now:      time.Now,
	}
}

// HandleGroupMessage drives the full pipeline for one inbound message.
// Failures inside one strategy's evaluation never block the others.
func (e *Engine) HandleGroupMessage(ctx context.Context, msg InboundMessage) {
	if e.pause.Paused() {
		e.logger.Debug("processing paused, dropping message", "group", msg.Group)
		return
	}
	if e.dedup.IsDuplicate(msg.Text) {
		e.logger.Info("duplicate listing detected, skipping", "group", msg.Group)
		return
	}

	age := e.ageMinutes(msg.SentAt)
	group := "@" + msg.Group
	e.logger.Info("group message", "group", group, "age_minutes", fmt.Sprintf("%.2f", age))

	if group == e.store.VenueGroup() {
		e.processVenueMessage(ctx, msg, group)
		return
	}
	e.processTokenMessage(ctx, msg, group, age)
}

func (e *Engine) processTokenMessage(ctx context.Context, msg InboundMessage, group string, age float64) {
	fields := signal.Parse(msg.Text)
	list, err := e.store.LoadAll()
	if err != nil {
		e.logger.Error("strategy load failed, evaluating nothing", "error", err)
	}

	for index, strat := range list {
		if !strat.Enabled || strat.Group != group {
			continue
		}
		e.evaluateOne(ctx, strat, index+1, msg, fields, age)
	}
}

func (e *Engine) evaluateOne(ctx context.Context, strat strategy.Strategy, index int, msg InboundMessage, fields signal.Fields, age float64) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("strategy evaluation panicked", "strategy", strat.Name, "panic", r)
		}
	}()

	if !Evaluate(strat, fields, age) {
		e.logger.Debug("strategy did not match", "strategy", strat.Name)
		return
	}
	token := signal.ExtractTokenAddress(msg.Text)
	e.logger.Info("strategy matched",
		"strategy", strat.Name,
		"age_minutes", fmt.Sprintf("%.2f", age),
		"token", token,
	)

	e.notifier.NotifyMatch(ctx, strat, dispatch.MatchContext{
		Token:         token,
		Fields:        fields,
		AgeMinutes:    age,
		StrategyIndex: index,
		StrategyName:  strat.Name,
	}, msg.ChatID)

	e.notifier.RunAction(ctx, strat, map[string]string{
		"token":         token,
		"age":           fmt.Sprintf("%.2f", age),
		"first_buy_pct": optFloatString(fields.FirstBuyPct),
		"balance_sol":   optFloatString(fields.BalanceSOL),
		"tx_count":      optIntString(fields.TxCount),
		"label":         fields.Label,
		"name":          strat.Name,
	})
}

// processVenueMessage handles the order-execution venue's own group: no
// field filters apply, the strategy's stored trojan settings drive the
// prepared order instead.
func (e *Engine) processVenueMessage(ctx context.Context, msg InboundMessage, group string) {
	token := signal.ExtractTokenAddress(msg.Text)
	list, err := e.store.LoadAll()
	if err != nil {
		e.logger.Error("strategy load failed, evaluating nothing", "error", err)
	}

	for index, strat := range list {
		if !strat.Enabled || strat.Group != group {
			continue
		}
		if !strat.Trojan.Complete() {
			e.logger.Debug("strategy missing order parameters, skipping", "strategy", strat.Name)
			continue
		}
		e.prepareVenueOrder(ctx, strat, index+1, msg, token)
	}
}

func (e *Engine) prepareVenueOrder(ctx context.Context, strat strategy.Strategy, index int, msg InboundMessage, token string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("venue strategy handling panicked", "strategy", strat.Name, "panic", r)
		}
	}()

	trojan := strat.Trojan
	e.logger.Info("venue limit order prepared",
		"strategy", strat.Name,
		"amount", *trojan.Amount,
		"expiry_minutes", *trojan.ExpiryMinutes,
		"slippage_pct", *trojan.SlippagePct,
		"trigger", *trojan.TriggerPrice,
		"token", token,
	)

	e.notifier.NotifyTrojan(ctx, strat, dispatch.MatchContext{
		Token:         token,
		StrategyIndex: index,
		StrategyName:  strat.Name,
		Trojan:        trojan,
	}, msg.ChatID)

	e.notifier.RunAction(ctx, strat, map[string]string{
		"token":    token,
		"amount":   floatString(*trojan.Amount),
		"expiry":   floatString(*trojan.ExpiryMinutes),
		"slippage": floatString(*trojan.SlippagePct),
		"trigger":  floatString(*trojan.TriggerPrice),
		"name":     strat.Name,
	})
}

// ageMinutes measures how old the message is, clamped at zero.
func (e *Engine) ageMinutes(sentAt time.Time) float64 {
	if sentAt.IsZero() {
		return 0
	}
	age := e.now().UTC().Sub(sentAt.UTC()).Minutes()
	if age < 0 {
		return 0
	}
	return age
}

func floatString(value float64) string {
	return fmt.Sprintf("%v", value)
}

func optFloatString(value *float64) string {
	if value == nil {
		return ""
	}
	return floatString(*value)
}

func optIntString(value *int) string {
	if value == nil {
		return ""
	}
	return fmt.Sprintf("%d", *value)
}
