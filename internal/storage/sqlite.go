// Package storage handles database connections, schema migrations, and data
// operations using SQLite. It persists the cooldown timer (sqlite backend)
// and the roster of already-notified players ("all" mode).
package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fragwatch/fragwatch/internal/timer"
	_ "modernc.org/sqlite" // Driver sqlite
)

// Repository manages the SQLite database connection.
type Repository struct {
	db *sql.DB
}

// New initializes a new SQLite connection, sets connection pool parameters, and runs migrations.
func New(dbPath string) (*Repository, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Timer returns a timer.Store view over the row stored under the given key.
func (r *Repository) Timer(key string) timer.Store {
	return &timerStore{repo: r, key: key}
}

// timerStore adapts the timers table to the timer.Store interface.
type timerStore struct {
	repo *Repository
	key  string
}

// Read implements timer.Store.
func (t *timerStore) Read() (int64, error) {
	var ts int64
	err := t.repo.db.QueryRow(`SELECT next_check_at FROM timers WHERE key = ?`, t.key).Scan(&ts)
	if err == sql.ErrNoRows {
		return 0, timer.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("read timer row %q: %w", t.key, err)
	}

	return ts, nil
}

// Write implements timer.Store.
func (t *timerStore) Write(ts int64) error {
	_, err := t.repo.db.Exec(`
		INSERT INTO timers (key, next_check_at) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET next_check_at = excluded.next_check_at
	`, t.key, ts)
	if err != nil {
		return fmt.Errorf("write timer row %q: %w", t.key, err)
	}

	return nil
}

// DeleteTimer removes the timer row stored under the given key.
func (r *Repository) DeleteTimer(key string) error {
	_, err := r.db.Exec(`DELETE FROM timers WHERE key = ?`, key)
	return err
}

// nameKey hashes a player name into the roster primary key.
// xxhash keeps lookups cheap and sidesteps collation surprises in names.
func nameKey(name string) int64 {
	return int64(xxhash.Sum64String(name))
}

// RosterNames returns all player names a notification was already sent for.
func (r *Repository) RosterNames() ([]string, error) {
	rows, err := r.db.Query(`SELECT name FROM roster ORDER BY first_seen`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan roster row: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return names, nil
}

// RosterAdd records that a notification was sent for the given player name.
func (r *Repository) RosterAdd(name string) error {
	_, err := r.db.Exec(`
		INSERT INTO roster (name_hash, name, first_seen) VALUES (?, ?, ?)
		ON CONFLICT(name_hash) DO NOTHING
	`, nameKey(name), name, time.Now())

	return err
}

// RosterRemove forgets a player, re-arming notifications for that name.
func (r *Repository) RosterRemove(name string) error {
	_, err := r.db.Exec(`DELETE FROM roster WHERE name_hash = ?`, nameKey(name))
	return err
}

// RosterClear removes every roster record and returns how many were deleted.
func (r *Repository) RosterClear() (int64, error) {
	res, err := r.db.Exec(`DELETE FROM roster`)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
