// Package store keeps the results of finished rounds in SQLite.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"

	"github.com/georgysavva/scany/sqlscan"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/janpfeifer/MemoryPairs/internal/game"
	"k8s.io/klog/v2"
	_ "modernc.org/sqlite"
)

// RecentLimit is the number of rounds listed in the scoreboard.
const RecentLimit = 10

//go:embed migrations/*.sql
var migrations embed.FS

// Store records round results.
//
// Queries hold a read lock, so Close waits for them and later calls get ErrClosed.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// Open opens (or creates) the database at path and brings its schema up to date.
// Use ":memory:" for a throw-away database.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %q: %w", path, err)
	}
	if path == ":memory:" {
		// Every connection would get its own empty database otherwise.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database %q: %w", path, err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	klog.Infof("Store: opened %s", path)
	return &Store{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Record stores the result of one round.
func (s *Store) Record(ctx context.Context, r game.Result) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	if err := r.Validate(); err != nil {
		return err
	}
	const query = `
		INSERT INTO results (outcome, seconds, moves, round_number)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, string(r.Outcome), r.Seconds, r.Moves, r.Round); err != nil {
		return fmt.Errorf("failed to record result: %w", err)
	}
	klog.V(1).Infof("Store: recorded %+v", r)
	return nil
}

type totals struct {
	Wins        int `db:"wins"`
	Losses      int `db:"losses"`
	BestSeconds int `db:"best_seconds"`
	BestMoves   int `db:"best_moves"`
}

// Scoreboard aggregates all recorded rounds.
func (s *Store) Scoreboard(ctx context.Context) (game.Scoreboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return game.Scoreboard{}, ErrClosed
	}
	const totalsQuery = `
		SELECT
			COALESCE(SUM(CASE WHEN outcome = 'win' THEN 1 ELSE 0 END), 0) AS wins,
			COALESCE(SUM(CASE WHEN outcome = 'lose' THEN 1 ELSE 0 END), 0) AS losses,
			COALESCE(MIN(CASE WHEN outcome = 'win' THEN seconds END), 0) AS best_seconds,
			COALESCE(MIN(CASE WHEN outcome = 'win' THEN moves END), 0) AS best_moves
		FROM results
	`
	var t totals
	if err := sqlscan.Get(ctx, s.db, &t, totalsQuery); err != nil {
		return game.Scoreboard{}, fmt.Errorf("failed to compute totals: %w", err)
	}

	const recentQuery = `
		SELECT outcome, seconds, moves, round_number AS round
		FROM results
		ORDER BY result_id DESC
		LIMIT ?
	`
	recent := []game.Result{}
	if err := sqlscan.Select(ctx, s.db, &recent, recentQuery, RecentLimit); err != nil {
		return game.Scoreboard{}, fmt.Errorf("failed to list recent results: %w", err)
	}

	return game.Scoreboard{
		Wins:        t.Wins,
		Losses:      t.Losses,
		BestSeconds: t.BestSeconds,
		BestMoves:   t.BestMoves,
		Recent:      recent,
	}, nil
}
