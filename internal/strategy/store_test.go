package strategy

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/solwatch/solwatch/internal/boterr"
)

const testVenue = "@solana_trojanbot"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "strategies.json")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewStore(path, testVenue, logger)
}

func rangePtr(from, to float64) *Range {
	return &Range{From: from, To: to}
}

func validDraft(group string) Strategy {
	return Strategy{
		Name:  "test",
		Group: group,
		Filters: Filters{
			TokenAge: rangePtr(1, 5),
			Balance:  rangePtr(1, 5),
			Tx:       rangePtr(10, 100),
		},
	}
}

func TestLoadAllMissingDocument(t *testing.T) {
	store := newTestStore(t)
	list, err := store.LoadAll()
	if err != nil {
		t.Fatalf("missing document should not error, got %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %d items", len(list))
	}
}

func TestLoadAllMalformedDocument(t *testing.T) {
	store := newTestStore(t)
	if err := os.WriteFile(store.path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	list, err := store.LoadAll()
	if err == nil {
		t.Fatal("expected parse error to be reported")
	}
	if len(list) != 0 {
		t.Fatalf("malformed document must behave as empty list, got %d items", len(list))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Create(7, validDraft("@G")); err != nil {
		t.Fatalf("create: %v", err)
	}

	first, err := store.LoadAll()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := store.SaveAll(first); err != nil {
		t.Fatalf("save: %v", err)
	}
	second, err := store.LoadAll()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Fatalf("saveAll(loadAll()) changed the document:\n%s\n%s", a, b)
	}
}

func TestValidateMinimumFilters(t *testing.T) {
	store := newTestStore(t)

	draft := Strategy{Name: "thin", Group: "@G", Filters: Filters{TokenAge: rangePtr(1, 5), Label: LabelAny}}
	if _, err := store.Create(1, draft); !errors.Is(err, boterr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, total := store.Counts(); total != 0 {
		t.Fatal("rejected save must leave the store unchanged")
	}

	// A non-wildcard label counts toward the minimum.
	draft.Filters.Balance = rangePtr(0, 3)
	draft.Filters.Label = "Dev Wallet Empty"
	if _, err := store.Create(1, draft); err != nil {
		t.Fatalf("three set filters should pass the gate: %v", err)
	}
}

func TestVenueGroupExemptFromFilterGate(t *testing.T) {
	store := newTestStore(t)
	draft := Strategy{Name: "venue", Group: testVenue}
	if _, err := store.Create(1, draft); err != nil {
		t.Fatalf("venue strategies are exempt from the filter gate: %v", err)
	}
}

func TestOwnerScopedView(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Create(1, validDraft("@A")); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Create(2, validDraft("@B")); err != nil {
		t.Fatal(err)
	}
	// Legacy strategy with no owner is visible to everyone.
	list, _ := store.LoadAll()
	legacy := validDraft("@C")
	legacy.ID = "legacy"
	legacy.Enabled = true
	list = append(list, legacy)
	if err := store.SaveAll(list); err != nil {
		t.Fatal(err)
	}

	owned := OwnedBy(mustLoad(t, store), 1)
	if len(owned) != 2 {
		t.Fatalf("owner 1 should see 2 strategies, got %d", len(owned))
	}
	if owned[0].Group != "@A" || owned[1].Group != "@C" {
		t.Fatalf("unexpected owner view: %+v", owned)
	}
}

func TestOwnedIndexMutationsTargetFullList(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Create(2, validDraft("@other")); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Create(1, validDraft("@mine")); err != nil {
		t.Fatal(err)
	}

	// Owner 1's view has a single entry at index 1, which is physically
	// the second document entry.
	updated := validDraft("@mine")
	updated.Name = "renamed"
	if err := store.UpdateOwned(1, 1, updated); err != nil {
		t.Fatalf("update: %v", err)
	}
	list := mustLoad(t, store)
	if list[0].Name != "test" || list[1].Name != "renamed" {
		t.Fatalf("update hit the wrong entry: %+v", list)
	}

	if err := store.DeleteOwned(1, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list = mustLoad(t, store)
	if len(list) != 1 || list[0].Group != "@other" {
		t.Fatalf("delete removed the wrong entry: %+v", list)
	}

	if err := store.DeleteOwned(1, 1); !errors.Is(err, boterr.ErrNotFound) {
		t.Fatalf("out-of-range delete should report not found, got %v", err)
	}
}

func TestToggleOwned(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Create(1, validDraft("@G")); err != nil {
		t.Fatal(err)
	}
	item, err := store.ToggleOwned(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if item.Enabled {
		t.Fatal("toggle should disable a fresh strategy")
	}
	if enabled, total := store.Counts(); enabled != 0 || total != 1 {
		t.Fatalf("counts = %d/%d, want 0/1", enabled, total)
	}
}

func TestSetEnabledByRef(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Create(1, validDraft("@G")); err != nil {
		t.Fatal(err)
	}

	if _, err := store.SetEnabledByRef(1, "#1", false); err != nil {
		t.Fatalf("by index: %v", err)
	}
	item, err := store.SetEnabledByRef(1, "TEST", true)
	if err != nil {
		t.Fatalf("by name: %v", err)
	}
	if !item.Enabled {
		t.Fatal("expected strategy re-enabled")
	}
	if _, err := store.SetEnabledByRef(1, "#9", true); !errors.Is(err, boterr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := store.SetEnabledByRef(1, "", true); !errors.Is(err, boterr.ErrValidation) {
		t.Fatalf("expected validation error for empty ref, got %v", err)
	}
}

func TestLegacyKeyMigration(t *testing.T) {
	store := newTestStore(t)
	doc := `[{
		"id": 1712345678,
		"name": "legacy",
		"group": "@G",
		"filters": {
			"First Buy (count)": {"from": "5", "to": "1"},
			"Mention": "Dev Wallet Empty"
		}
	}]`
	if err := os.WriteFile(store.path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	list := mustLoad(t, store)
	if len(list) != 1 {
		t.Fatalf("expected 1 strategy, got %d", len(list))
	}
	item := list[0]
	if item.ID != "1712345678" {
		t.Fatalf("numeric id should load as string, got %q", item.ID)
	}
	if !item.Enabled {
		t.Fatal("absent enabled flag defaults to true")
	}
	if item.Filters.FirstBuy == nil || item.Filters.FirstBuy.From != 1 || item.Filters.FirstBuy.To != 5 {
		t.Fatalf("legacy first-buy range not migrated/normalized: %+v", item.Filters.FirstBuy)
	}
	if item.Filters.Label != "Dev Wallet Empty" {
		t.Fatalf("legacy label not migrated: %q", item.Filters.Label)
	}
}

func TestCountFilledFilters(t *testing.T) {
	filters := Filters{TokenAge: rangePtr(1, 2), Label: LabelAny}
	if got := CountFilledFilters(filters); got != 1 {
		t.Fatalf("wildcard label must not count, got %d", got)
	}
	filters.Label = "Dev Wallet Empty"
	filters.Tx = rangePtr(1, 10)
	if got := CountFilledFilters(filters); got != 3 {
		t.Fatalf("count = %d, want 3", got)
	}
}

func mustLoad(t *testing.T, store *Store) []Strategy {
	t.Helper()
	list, err := store.LoadAll()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return list
}
