package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/solwatch/solwatch/internal/signal"
	"github.com/solwatch/solwatch/internal/strategy"
)

// Recorder journals matches and dispatched orders. Failures are logged
// and never block dispatch.
type Recorder interface {
	RecordMatch(ctx context.Context, group, strategyName, token string) error
	RecordOrder(ctx context.Context, token, command string) error
}

// Config carries the dispatcher's static knobs.
type Config struct {
	// MirrorToGroups also posts match notifications into the source group
	// so the order button is available there.
	MirrorToGroups bool
	// VenueTarget is the destination that accepts /limit commands.
	VenueTarget string
}

// Notifier renders and delivers everything a strategy match produces.
type Notifier struct {
	cfg      Config
	registry *Registry
	control  *Control
	recorder Recorder
	logger   *slog.Logger
	sender   Sender
}

func NewNotifier(cfg Config, registry *Registry, control *Control, recorder Recorder, logger *slog.Logger) *Notifier {
	return &Notifier{
		cfg:      cfg,
		registry: registry,
		control:  control,
		recorder: recorder,
		logger:   logger,
	}
}

// SetSender attaches the transport once it exists; the connector and the
// notifier reference each other, so this runs after construction.
func (n *Notifier) SetSender(sender Sender) {
	n.sender = sender
}

// NotifyMatch sends the match notification with its Order LIMIT follow-up
// button to the strategy owner (or the control chat), optionally
// mirroring into the origin group.
func (n *Notifier) NotifyMatch(ctx context.Context, strat strategy.Strategy, matchCtx MatchContext, originChat int64) {
	n.record(ctx, strat, matchCtx.Token)
	if n.sender == nil || matchCtx.Token == "" {
		return
	}
	cid := n.registry.Put(matchCtx)
	text := fmt.Sprintf(
		"🎯 Match: %s\nToken: %s\nAge: %.2fm | FB%%: %s | Bal: %s | Tx: %s | Label: %s\n\n🔗 %s",
		strat.Name,
		matchCtx.Token,
		matchCtx.AgeMinutes,
		formatOptFloat(matchCtx.Fields.FirstBuyPct),
		formatOptFloat(matchCtx.Fields.BalanceSOL),
		formatOptInt(matchCtx.Fields.TxCount),
		orDash(matchCtx.Fields.Label),
		tokenLink(matchCtx.Token),
	)
	n.deliver(ctx, strat, text, cid, originChat)
}

// NotifyTrojan is the venue-group variant: the order summary comes from
// the strategy's stored trojan settings rather than parsed fields.
func (n *Notifier) NotifyTrojan(ctx context.Context, strat strategy.Strategy, matchCtx MatchContext, originChat int64) {
	n.record(ctx, strat, matchCtx.Token)
	if n.sender == nil || matchCtx.Token == "" || !matchCtx.Trojan.Complete() {
		return
	}
	cid := n.registry.Put(matchCtx)
	trojan := matchCtx.Trojan
	text := fmt.Sprintf(
		"🧪 Trojan ready: %s\nToken: %s\nAmt: %s | Slippage: %s%% | Trigger: %s | Exp: %s\n\n🔗 %s",
		strat.Name,
		matchCtx.Token,
		formatOptFloat(trojan.Amount),
		formatOptFloat(trojan.SlippagePct),
		formatOptFloat(trojan.TriggerPrice),
		signal.FormatMinutes(trojan.ExpiryMinutes),
		tokenLink(matchCtx.Token),
	)
	n.deliver(ctx, strat, text, cid, originChat)
}

func (n *Notifier) deliver(ctx context.Context, strat strategy.Strategy, text, cid string, originChat int64) {
	buttons := Row(Button{Label: "📈 Order LIMIT", Data: "limit:" + cid})

	destination := ""
	if strat.OwnerID != nil {
		destination = strconv.FormatInt(*strat.OwnerID, 10)
	} else if chatID := n.control.ChatID(); chatID != 0 {
		destination = strconv.FormatInt(chatID, 10)
	}
	if destination != "" {
		if _, err := n.sender.Send(ctx, destination, text, buttons); err != nil {
			n.logger.Warn("match notification failed", "strategy", strat.Name, "error", err)
		}
	}
	if n.cfg.MirrorToGroups && originChat != 0 {
		if _, err := n.sender.Send(ctx, strconv.FormatInt(originChat, 10), text, buttons); err != nil {
			n.logger.Debug("group notification skipped", "strategy", strat.Name, "error", err)
		}
	}
}

// RunAction renders the strategy's configured template and sends it to
// the action target. Missing placeholders render as empty strings.
func (n *Notifier) RunAction(ctx context.Context, strat strategy.Strategy, tmplCtx map[string]string) {
	if n.sender == nil || strat.Action == nil {
		return
	}
	target := strings.TrimSpace(strat.Action.Target)
	template := strat.Action.Template
	if target == "" || template == "" {
		return
	}
	message := RenderTemplate(template, tmplCtx)
	if _, err := n.sender.Send(ctx, normalizeTarget(target), message, nil); err != nil {
		n.logger.Error("action send failed", "target", target, "error", err)
		return
	}
	n.logger.Info("action sent", "target", target, "message", message)
}

// SendLimitOrder formats the venue's /limit command and dispatches it.
// Expiry travels on the wire as integer seconds.
func (n *Notifier) SendLimitOrder(ctx context.Context, token string, amount, expiryMinutes, slippage, trigger float64) error {
	command := LimitCommand(token, amount, expiryMinutes, slippage, trigger)
	if n.sender == nil {
		return fmt.Errorf("no sender attached")
	}
	if _, err := n.sender.Send(ctx, normalizeTarget(n.cfg.VenueTarget), command, nil); err != nil {
		n.logger.Error("limit order send failed", "target", n.cfg.VenueTarget, "error", err)
		return err
	}
	n.logger.Info("limit order sent", "target", n.cfg.VenueTarget, "command", command)
	if n.recorder != nil {
		if err := n.recorder.RecordOrder(ctx, token, command); err != nil {
			n.logger.Warn("order journal write failed", "error", err)
		}
	}
	return nil
}

// LimitCommand renders the single-line venue command.
func LimitCommand(token string, amount, expiryMinutes, slippage, trigger float64) string {
	return fmt.Sprintf(
		"/limit token=%s amount=%s slippage=%s trigger=%s expiry=%d",
		token,
		formatFloat(amount),
		formatFloat(slippage),
		formatFloat(trigger),
		int64(expiryMinutes*60),
	)
}

func (n *Notifier) record(ctx context.Context, strat strategy.Strategy, token string) {
	if n.recorder == nil {
		return
	}
	if err := n.recorder.RecordMatch(ctx, strat.Group, strat.Name, token); err != nil {
		n.logger.Warn("match journal write failed", "error", err)
	}
}

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// RenderTemplate substitutes {name} placeholders from values. A
// placeholder with no corresponding value becomes the empty string, never
// an error.
func RenderTemplate(template string, values map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := match[1 : len(match)-1]
		return values[key]
	})
}

func normalizeTarget(target string) string {
	target = strings.TrimSpace(target)
	if target == "" {
		return target
	}
	if _, err := strconv.ParseInt(target, 10, 64); err == nil {
		return target
	}
	if !strings.HasPrefix(target, "@") {
		return "@" + target
	}
	return target
}

func tokenLink(token string) string {
	return "https://dexscreener.com/solana/" + token
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func formatOptFloat(value *float64) string {
	if value == nil {
		return "-"
	}
	return formatFloat(*value)
}

func formatOptInt(value *int) string {
	if value == nil {
		return "-"
	}
	return strconv.Itoa(*value)
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

