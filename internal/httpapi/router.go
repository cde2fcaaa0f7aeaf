// Package httpapi exposes liveness and operational status over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/solwatch/solwatch/internal/dedup"
	"github.com/solwatch/solwatch/internal/engine"
	"github.com/solwatch/solwatch/internal/journal"
	"github.com/solwatch/solwatch/internal/strategy"
)

type Dependencies struct {
	Store   *strategy.Store
	Cache   *dedup.Cache
	Pause   *engine.Pause
	Journal *journal.Journal
	Logger  *slog.Logger
}

type router struct {
	deps Dependencies
}

func NewRouter(deps Dependencies) http.Handler {
	rt := &router{deps: deps}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.handleHealth)
	mux.HandleFunc("/readyz", rt.handleReady)
	mux.HandleFunc("/api/v1/status", rt.handleStatus)
	mux.HandleFunc("/api/v1/matches", rt.handleMatches)
	return mux
}

func (r *router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *router) handleReady(w http.ResponseWriter, req *http.Request) {
	if r.deps.Journal != nil {
		if err := r.deps.Journal.Ping(req.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not-ready", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (r *router) handleStatus(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	enabled, total := r.deps.Store.Counts()
	payload := map[string]any{
		"paused":             r.deps.Pause.Paused(),
		"strategies_enabled": enabled,
		"strategies_total":   total,
		"dedup_entries":      r.deps.Cache.Len(),
	}
	if r.deps.Journal != nil {
		statsCtx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
		defer cancel()
		stats, err := r.deps.Journal.StatsSince(statsCtx, time.Now().Add(-24*time.Hour))
		if err != nil {
			r.deps.Logger.Error("status journal query failed", "error", err)
		} else {
			payload["matches_24h"] = stats.Matches
			payload["orders_24h"] = stats.Orders
		}
	}
	writeJSON(w, http.StatusOK, payload)
}

func (r *router) handleMatches(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if r.deps.Journal == nil {
		writeJSON(w, http.StatusOK, map[string]any{"items": []map[string]any{}, "count": 0})
		return
	}
	limit := 20
	if raw := req.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err == nil && parsed > 0 {
			limit = parsed
		}
	}
	records, err := r.deps.Journal.RecentMatches(req.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	items := make([]map[string]any, 0, len(records))
	for _, record := range records {
		items = append(items, map[string]any{
			"group":           record.Group,
			"strategy_name":   record.StrategyName,
			"token":           record.Token,
			"created_at_unix": record.CreatedAt.Unix(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
