// Package app assembles the runtime: storage, the match pipeline, the
// conversation layer, the Telegram transport and the supporting
// services, then runs them as one errgroup.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/solwatch/solwatch/internal/config"
	"github.com/solwatch/solwatch/internal/connectors"
	"github.com/solwatch/solwatch/internal/connectors/telegram"
	"github.com/solwatch/solwatch/internal/conversation"
	"github.com/solwatch/solwatch/internal/dedup"
	"github.com/solwatch/solwatch/internal/digest"
	"github.com/solwatch/solwatch/internal/dispatch"
	"github.com/solwatch/solwatch/internal/engine"
	"github.com/solwatch/solwatch/internal/httpapi"
	"github.com/solwatch/solwatch/internal/journal"
	"github.com/solwatch/solwatch/internal/strategy"
	"github.com/solwatch/solwatch/internal/watcher"
)

type Runtime struct {
	cfg    config.Config
	logger *slog.Logger

	journal    *journal.Journal
	store      *strategy.Store
	cache      *dedup.Cache
	pause      *engine.Pause
	control    *dispatch.Control
	connectors []connectors.Connector
	watcher    *watcher.Service
	digest     *digest.Service

	httpServer *http.Server
}

func New(cfg config.Config, logger *slog.Logger) (*Runtime, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.StrategyPath), 0o755); err != nil {
		return nil, fmt.Errorf("create strategy directory: %w", err)
	}

	journalStore, err := journal.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := journalStore.AutoMigrate(context.Background()); err != nil {
		journalStore.Close()
		return nil, err
	}

	store := strategy.NewStore(cfg.StrategyPath, cfg.VenueGroup, logger.With("component", "strategy"))
	cache := dedup.NewCache(time.Duration(cfg.DedupTTLMinutes) * time.Minute)
	registry := dispatch.NewRegistry(time.Duration(cfg.RegistryTTLMinutes) * time.Minute)
	allowedIDs := cfg.AllowedUserIDs()
	control := dispatch.NewControl(allowedIDs)
	pause := engine.NewPause()

	notifier := dispatch.NewNotifier(dispatch.Config{
		MirrorToGroups: cfg.MirrorToGroups,
		VenueTarget:    cfg.VenueTarget,
	}, registry, control, journalStore, logger.With("component", "dispatch"))

	matchEngine := engine.New(store, cache, notifier, pause, logger.With("component", "engine"))

	manager := conversation.NewManager(
		store,
		registry,
		control,
		pause,
		notifier,
		cache,
		cfg.Groups(),
		allowedIDs,
		logger.With("component", "conversation"),
	)

	// The venue group is watched alongside the signal groups so order
	// confirmations reach the pipeline.
	watchGroups := append(cfg.Groups(), cfg.VenueGroup)
	connector := telegram.New(
		cfg.TelegramToken,
		cfg.TelegramAPI,
		cfg.TelegramPoll,
		watchGroups,
		matchEngine,
		manager,
		logger.With("component", "telegram"),
	)
	notifier.SetSender(connector)
	manager.SetSender(connector)

	runtime := &Runtime{
		cfg:        cfg,
		logger:     logger,
		journal:    journalStore,
		store:      store,
		cache:      cache,
		pause:      pause,
		control:    control,
		connectors: []connectors.Connector{connector},
	}

	if cfg.WatchEnabled {
		fileWatcher, err := watcher.New(cfg.StrategyPath, logger.With("component", "watcher"), func(ctx context.Context) {
			runtime.notifyStrategyFileChanged(ctx, connector)
		})
		if err != nil {
			journalStore.Close()
			return nil, err
		}
		runtime.watcher = fileWatcher
	}

	if cfg.DigestEnabled {
		digestService, err := digest.New(cfg.DigestCron, journalStore, control, logger.With("component", "digest"))
		if err != nil {
			journalStore.Close()
			return nil, err
		}
		digestService.SetSender(connector)
		runtime.digest = digestService
	}

	runtime.httpServer = &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.Dependencies{
			Store:   store,
			Cache:   cache,
			Pause:   pause,
			Journal: journalStore,
			Logger:  logger.With("component", "httpapi"),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return runtime, nil
}

// Strategies are re-read from disk on every evaluation, so an external
// edit needs no reload step; the control chat is told anyway.
func (r *Runtime) notifyStrategyFileChanged(ctx context.Context, sender dispatch.Sender) {
	chatID := r.control.ChatID()
	if chatID == 0 {
		return
	}
	text := "📝 Strategy file changed on disk; new contents are live."
	if _, err := sender.Send(ctx, strconv.FormatInt(chatID, 10), text, nil); err != nil {
		r.logger.Debug("strategy change notice failed", "error", err)
	}
}

func (r *Runtime) Close() error {
	if r.journal == nil {
		return nil
	}
	return r.journal.Close()
}
