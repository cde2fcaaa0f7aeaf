// Package journal is the durable record of matches and dispatched
// orders, feeding the status surfaces and the daily digest.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type Journal struct {
	db  *sql.DB
	now func() time.Time
}

func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite pragmas: %w", err)
	}
	return &Journal{db: db, now: time.Now}, nil
}

func (j *Journal) AutoMigrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS matches (
			id TEXT PRIMARY KEY,
			group_name TEXT NOT NULL,
			strategy_name TEXT NOT NULL,
			token TEXT,
			created_at_unix INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			token TEXT,
			command TEXT NOT NULL,
			created_at_unix INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_matches_created ON matches(created_at_unix);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_created ON orders(created_at_unix);`,
	}
	for _, query := range queries {
		if _, err := j.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("run migration: %w", err)
		}
	}
	return nil
}

// RecordMatch journals one strategy match.
func (j *Journal) RecordMatch(ctx context.Context, group, strategyName, token string) error {
	_, err := j.db.ExecContext(
		ctx,
		`INSERT INTO matches (id, group_name, strategy_name, token, created_at_unix) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(),
		group,
		strategyName,
		token,
		j.now().UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

// RecordOrder journals one dispatched venue command.
func (j *Journal) RecordOrder(ctx context.Context, token, command string) error {
	_, err := j.db.ExecContext(
		ctx,
		`INSERT INTO orders (id, token, command, created_at_unix) VALUES (?, ?, ?, ?)`,
		uuid.NewString(),
		token,
		command,
		j.now().UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// Stats summarizes journal activity since a point in time.
type Stats struct {
	Matches int
	Orders  int
}

func (j *Journal) StatsSince(ctx context.Context, since time.Time) (Stats, error) {
	var stats Stats
	sinceUnix := since.UTC().Unix()
	if err := j.db.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM matches WHERE created_at_unix >= ?`,
		sinceUnix,
	).Scan(&stats.Matches); err != nil {
		return Stats{}, fmt.Errorf("count matches: %w", err)
	}
	if err := j.db.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM orders WHERE created_at_unix >= ?`,
		sinceUnix,
	).Scan(&stats.Orders); err != nil {
		return Stats{}, fmt.Errorf("count orders: %w", err)
	}
	return stats, nil
}

// RecentMatches returns the newest journaled matches, newest first.
type MatchRecord struct {
	Group        string
	StrategyName string
	Token        string
	CreatedAt    time.Time
}

func (j *Journal) RecentMatches(ctx context.Context, limit int) ([]MatchRecord, error) {
	if limit < 1 {
		limit = 10
	}
	rows, err := j.db.QueryContext(
		ctx,
		`SELECT group_name, strategy_name, token, created_at_unix
		 FROM matches ORDER BY created_at_unix DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	var records []MatchRecord
	for rows.Next() {
		var record MatchRecord
		var createdUnix int64
		if err := rows.Scan(&record.Group, &record.StrategyName, &record.Token, &createdUnix); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		record.CreatedAt = time.Unix(createdUnix, 0).UTC()
		records = append(records, record)
	}
	return records, rows.Err()
}

func (j *Journal) Ping(ctx context.Context) error {
	return j.db.PingContext(ctx)
}

func (j *Journal) Close() error {
	return j.db.Close()
}
