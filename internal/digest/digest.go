// Package digest delivers periodic activity summaries to the control
// chat on a cron schedule.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/solwatch/solwatch/internal/dispatch"
	"github.com/solwatch/solwatch/internal/journal"
)

var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

type Stats interface {
	StatsSince(ctx context.Context, since time.Time) (journal.Stats, error)
}

type Service struct {
	schedule cron.Schedule
	stats    Stats
	control  *dispatch.Control
	logger   *slog.Logger
	window   time.Duration
	now      func() time.Time
	sender   dispatch.Sender
}

// New parses the cron expression up front so a bad schedule fails at
// startup rather than silently never firing.
func New(cronExpr string, stats Stats, control *dispatch.Control, logger *slog.Logger) (*Service, error) {
	schedule, err := cronParser.Parse(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("parse digest schedule %q: %w", cronExpr, err)
	}
	return &Service{
		schedule: schedule,
		stats:    stats,
		control:  control,
		logger:   logger,
		window:   24 * time.Hour,
		now:      time.Now,
	}, nil
}

func (s *Service) SetSender(sender dispatch.Sender) {
	s.sender = sender
}

func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("digest scheduler started")
	for {
		next := s.schedule.Next(s.now())
		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("digest scheduler stopped")
			return nil
		case <-timer.C:
			s.deliver(ctx)
		}
	}
}

func (s *Service) deliver(ctx context.Context) {
	if s.sender == nil {
		return
	}
	chatID := s.control.ChatID()
	if chatID == 0 {
		s.logger.Debug("digest skipped, no control chat known")
		return
	}
	stats, err := s.stats.StatsSince(ctx, s.now().Add(-s.window))
	if err != nil {
		s.logger.Error("digest stats query failed", "error", err)
		return
	}
	text := fmt.Sprintf(
		"📬 Daily digest\n• Matches: %d\n• Orders sent: %d",
		stats.Matches,
		stats.Orders,
	)
	if _, err := s.sender.Send(ctx, strconv.FormatInt(chatID, 10), text, nil); err != nil {
		s.logger.Error("digest delivery failed", "error", err)
		return
	}
	s.logger.Info("digest delivered", "matches", stats.Matches, "orders", stats.Orders)
}
