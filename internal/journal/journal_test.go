package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	if err := j.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("migrate journal: %v", err)
	}
	return j
}

func TestJournalRecordsAndCounts(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	j.now = func() time.Time { return clock }

	if err := j.RecordMatch(ctx, "@SolanaNewPumpfun", "momentum", "7dHbWVJSaqgDNBYmkzMMcbUkpdRpjUvr1BZ6aBqqubJv"); err != nil {
		t.Fatalf("record match: %v", err)
	}
	clock = base.Add(30 * time.Minute)
	if err := j.RecordOrder(ctx, "7dHbWVJSaqgDNBYmkzMMcbUkpdRpjUvr1BZ6aBqqubJv", "/limit buy 1 30m"); err != nil {
		t.Fatalf("record order: %v", err)
	}
	clock = base.Add(2 * time.Hour)
	if err := j.RecordMatch(ctx, "@SolanaNewPumpfun", "momentum", "So11111111111111111111111111111111111111112"); err != nil {
		t.Fatalf("record match: %v", err)
	}

	stats, err := j.StatsSince(ctx, base.Add(-time.Minute))
	if err != nil {
		t.Fatalf("stats since base: %v", err)
	}
	if stats.Matches != 2 || stats.Orders != 1 {
		t.Fatalf("expected 2 matches and 1 order, got %d and %d", stats.Matches, stats.Orders)
	}

	stats, err = j.StatsSince(ctx, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("stats since hour: %v", err)
	}
	if stats.Matches != 1 || stats.Orders != 0 {
		t.Fatalf("expected 1 recent match and no orders, got %d and %d", stats.Matches, stats.Orders)
	}
}

func TestJournalRecentMatchesNewestFirst(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	j.now = func() time.Time { return clock }

	for i, name := range []string{"first", "second", "third"} {
		clock = base.Add(time.Duration(i) * time.Minute)
		if err := j.RecordMatch(ctx, "@SolanaNewPumpfun", name, "token"); err != nil {
			t.Fatalf("record match %s: %v", name, err)
		}
	}

	records, err := j.RecentMatches(ctx, 2)
	if err != nil {
		t.Fatalf("recent matches: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].StrategyName != "third" || records[1].StrategyName != "second" {
		t.Fatalf("unexpected record order: %s, %s", records[0].StrategyName, records[1].StrategyName)
	}
	if !records[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("unexpected created_at: %s", records[0].CreatedAt)
	}
}
