package strategy

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/solwatch/solwatch/internal/boterr"
)

// minFilledFilters is the save gate for non-venue strategies.
const minFilledFilters = 3

// Store owns the durable strategy document. All mutations rewrite the full
// list under one mutex; reads are permissive (a missing or malformed
// document behaves as an empty list).
type Store struct {
	path       string
	venueGroup string
	logger     *slog.Logger
	mu         sync.Mutex
}

func NewStore(path, venueGroup string, logger *slog.Logger) *Store {
	return &Store{
		path:       path,
		venueGroup: venueGroup,
		logger:     logger,
	}
}

// VenueGroup returns the order-execution venue identifier strategies in
// that group are validated against.
func (s *Store) VenueGroup() string {
	return s.venueGroup
}

// LoadAll reads the document. Failures are non-fatal: the empty list is
// returned alongside the error so callers can keep going.
func (s *Store) LoadAll() ([]Strategy, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("failed to load strategies", "path", s.path, "error", err)
		return nil, fmt.Errorf("read strategy document: %w", err)
	}
	var list []Strategy
	if err := json.Unmarshal(data, &list); err != nil {
		s.logger.Error("failed to parse strategies", "path", s.path, "error", err)
		return nil, fmt.Errorf("parse strategy document: %w", err)
	}
	return list, nil
}

// SaveAll atomically replaces the document with the given list.
func (s *Store) SaveAll(list []Strategy) error {
	if list == nil {
		list = []Strategy{}
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("encode strategy document: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			s.logger.Error("failed to save strategies", "path", s.path, "error", err)
			return fmt.Errorf("create strategy directory: %w", err)
		}
	}
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		s.logger.Error("failed to save strategies", "path", s.path, "error", err)
		return fmt.Errorf("write strategy document: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		s.logger.Error("failed to save strategies", "path", s.path, "error", err)
		return fmt.Errorf("replace strategy document: %w", err)
	}
	return nil
}

// OwnedBy filters the list down to what ownerID can see.
func OwnedBy(list []Strategy, ownerID int64) []Strategy {
	owned := []Strategy{}
	for _, item := range list {
		if item.BelongsTo(ownerID) {
			owned = append(owned, item)
		}
	}
	return owned
}

// ownedIndices maps the owner-scoped view back onto positions in the full
// list, so index numbering is always relative to what the owner can see.
func ownedIndices(list []Strategy, ownerID int64) []int {
	indices := []int{}
	for i := range list {
		if list[i].BelongsTo(ownerID) {
			indices = append(indices, i)
		}
	}
	return indices
}

// Validate applies the save gate: non-venue strategies need a group and at
// least minFilledFilters meaningfully set filter options.
func (s *Store) Validate(item Strategy) error {
	if strings.TrimSpace(item.Group) == "" {
		return fmt.Errorf("%w: choose a group first", boterr.ErrValidation)
	}
	if item.Group == s.venueGroup {
		return nil
	}
	if CountFilledFilters(item.Filters) < minFilledFilters {
		return fmt.Errorf("%w: set at least %d filter options before saving", boterr.ErrValidation, minFilledFilters)
	}
	return nil
}

// Create validates the draft, stamps identity and ownership, appends it to
// the document and saves. The stored strategy is returned.
func (s *Store) Create(ownerID int64, draft Strategy) (Strategy, error) {
	if err := s.Validate(draft); err != nil {
		return Strategy{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	list, _ := s.LoadAll()
	draft.ID = uuid.NewString()
	draft.Enabled = true
	draft.OwnerID = &ownerID
	if strings.TrimSpace(draft.Name) == "" {
		draft.Name = "Strategy " + strconv.FormatInt(time.Now().Unix(), 10)
	}
	list = append(list, draft)
	if err := s.SaveAll(list); err != nil {
		return Strategy{}, err
	}
	return draft, nil
}

// GetOwned returns the strategy at the 1-based index of ownerID's view.
func (s *Store) GetOwned(ownerID int64, index int) (Strategy, error) {
	list, _ := s.LoadAll()
	owned := OwnedBy(list, ownerID)
	if index < 1 || index > len(owned) {
		return Strategy{}, boterr.ErrNotFound
	}
	return owned[index-1], nil
}

// UpdateOwned replaces the strategy at the owner-view index with the
// draft, preserving id, ownership and enabled state. The stored name is
// kept when the draft has none.
func (s *Store) UpdateOwned(ownerID int64, index int, draft Strategy) error {
	if err := s.Validate(draft); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	list, _ := s.LoadAll()
	indices := ownedIndices(list, ownerID)
	if index < 1 || index > len(indices) {
		return boterr.ErrNotFound
	}
	target := &list[indices[index-1]]
	if strings.TrimSpace(draft.Name) != "" {
		target.Name = draft.Name
	} else if strings.TrimSpace(target.Name) == "" {
		target.Name = "Strategy " + strconv.FormatInt(time.Now().Unix(), 10)
	}
	target.Group = draft.Group
	target.Filters = draft.Filters
	target.Action = draft.Action
	target.Trojan = draft.Trojan
	return s.SaveAll(list)
}

// UpdateActionOwned replaces just the action of the strategy at the
// owner-view index, bypassing the filter gate. Used by the quick-action
// flow, which edits delivery settings on an already saved strategy.
func (s *Store) UpdateActionOwned(ownerID int64, index int, action *Action) (Strategy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, _ := s.LoadAll()
	indices := ownedIndices(list, ownerID)
	if index < 1 || index > len(indices) {
		return Strategy{}, boterr.ErrNotFound
	}
	target := &list[indices[index-1]]
	target.Action = action
	if err := s.SaveAll(list); err != nil {
		return Strategy{}, err
	}
	return *target, nil
}

// DeleteOwned removes the strategy at the owner-view index.
func (s *Store) DeleteOwned(ownerID int64, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, _ := s.LoadAll()
	indices := ownedIndices(list, ownerID)
	if index < 1 || index > len(indices) {
		return boterr.ErrNotFound
	}
	position := indices[index-1]
	list = append(list[:position], list[position+1:]...)
	return s.SaveAll(list)
}

// ToggleOwned flips the enabled flag at the owner-view index and returns
// the updated strategy.
func (s *Store) ToggleOwned(ownerID int64, index int) (Strategy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, _ := s.LoadAll()
	indices := ownedIndices(list, ownerID)
	if index < 1 || index > len(indices) {
		return Strategy{}, boterr.ErrNotFound
	}
	target := &list[indices[index-1]]
	target.Enabled = !target.Enabled
	if err := s.SaveAll(list); err != nil {
		return Strategy{}, err
	}
	return *target, nil
}

// SetEnabledByRef enables or disables a strategy referenced either by
// "#index" into the owner view or by case-insensitive name.
func (s *Store) SetEnabledByRef(ownerID int64, ref string, enabled bool) (Strategy, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Strategy{}, fmt.Errorf("%w: provide a name or #index", boterr.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	list, _ := s.LoadAll()
	indices := ownedIndices(list, ownerID)

	position := -1
	if strings.HasPrefix(ref, "#") {
		index, err := strconv.Atoi(ref[1:])
		if err != nil || index < 1 || index > len(indices) {
			return Strategy{}, boterr.ErrNotFound
		}
		position = indices[index-1]
	} else {
		for _, i := range indices {
			if strings.EqualFold(list[i].Name, ref) {
				position = i
				break
			}
		}
		if position < 0 {
			return Strategy{}, boterr.ErrNotFound
		}
	}
	list[position].Enabled = enabled
	if err := s.SaveAll(list); err != nil {
		return Strategy{}, err
	}
	return list[position], nil
}

// Counts returns enabled and total strategy counts for status surfaces.
func (s *Store) Counts() (enabled, total int) {
	list, _ := s.LoadAll()
	for _, item := range list {
		if item.Enabled {
			enabled++
		}
	}
	return enabled, len(list)
}
