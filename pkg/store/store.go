// Package store implements the durable event store: the
// watcher-fed events table, the scanner-populated inbox, and a small
// key-value meta table for the ingestion watermark. Backed by
// modernc.org/sqlite in WAL mode for concurrent read-heavy access.
package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/stealthscan/threshold-wallet/pkg/log"
)

// ErrEventNotFound is returned when a lookup by id finds no row.
var ErrEventNotFound = errors.New("store: event not found")

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	block       INTEGER NOT NULL,
	txhash      TEXT NOT NULL,
	tag         BLOB NOT NULL,
	r           BLOB NOT NULL,
	memo        BLOB NOT NULL,
	commitment  BLOB NOT NULL,
	iv          BLOB,
	scanned     INTEGER NOT NULL DEFAULT 0,
	matched     INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS inbox (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id      TEXT NOT NULL,
	event_id     INTEGER NOT NULL,
	tag          BLOB NOT NULL,
	r            BLOB NOT NULL,
	memo         BLOB NOT NULL,
	commitment   BLOB NOT NULL,
	status       TEXT NOT NULL DEFAULT 'unread',
	detected_at  INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_inbox_event_id ON inbox(event_id);

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Event is one on-chain announcement row, written by the watcher and
// mutated only by the scanner.
type Event struct {
	ID         int64
	Block      uint64
	TxHash     string
	Tag        []byte
	R          []byte
	Memo       []byte
	Commitment []byte
	IV         []byte
	Scanned    bool
	Matched    bool
	CreatedAt  time.Time
}

// InboxEntry is one promoted payment in a user's inbox.
type InboxEntry struct {
	ID         int64
	UserID     string
	EventID    int64
	Tag        []byte
	R          []byte
	Memo       []byte
	Commitment []byte
	Status     string
	DetectedAt time.Time
}

// Store wraps a sqlite-backed *sql.DB with the operations the scanner and
// watcher need.
type Store struct {
	db  *sql.DB
	log *log.Logger
}

// Open opens (creating if necessary) the sqlite database at dsn, enables
// WAL mode, and applies the schema.
func Open(dsn string, logger *log.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON;`); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Store{db: db, log: logger.Module("store")}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// InsertEvent records a freshly observed announcement. Used by the watcher
// (out of core scope) and by tests seeding events.
func (s *Store) InsertEvent(ctx context.Context, e Event) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO events (block, txhash, tag, r, memo, commitment, iv, scanned, matched, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, 0, ?)`,
		e.Block, e.TxHash, e.Tag, e.R, e.Memo, e.Commitment, e.IV, time.Now().Unix(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UnscannedEvents returns up to limit rows with scanned=0, in ascending
// id order. limit <= 0 means unbounded.
func (s *Store) UnscannedEvents(ctx context.Context, limit int) ([]Event, error) {
	query := `SELECT id, block, txhash, tag, r, memo, commitment, iv, scanned, matched, created_at
	          FROM events WHERE scanned = 0 ORDER BY id ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var created int64
		var scanned, matched int
		if err := rows.Scan(&e.ID, &e.Block, &e.TxHash, &e.Tag, &e.R, &e.Memo, &e.Commitment, &e.IV, &scanned, &matched, &created); err != nil {
			return nil, err
		}
		e.Scanned = scanned != 0
		e.Matched = matched != 0
		e.CreatedAt = time.Unix(created, 0).UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}

// MarkScanned sets scanned=1 and matched accordingly for the given event.
func (s *Store) MarkScanned(ctx context.Context, eventID int64, matched bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET scanned = 1, matched = ? WHERE id = ?`, boolToInt(matched), eventID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEventNotFound
	}
	return nil
}

// ResetScanned clears scanned/matched so an operator can re-enqueue an
// event that errored during scanning.
func (s *Store) ResetScanned(ctx context.Context, eventID int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE events SET scanned = 0, matched = 0 WHERE id = ?`, eventID)
	return err
}

// InsertInbox idempotently promotes a matched event into the inbox. The
// unique index on event_id makes repeated calls for the same event a
// no-op (at-most-once promotion).
func (s *Store) InsertInbox(ctx context.Context, entry InboxEntry) error {
	if entry.Status == "" {
		entry.Status = "unread"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO inbox (user_id, event_id, tag, r, memo, commitment, status, detected_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(event_id) DO NOTHING`,
		entry.UserID, entry.EventID, entry.Tag, entry.R, entry.Memo, entry.Commitment, entry.Status, time.Now().Unix(),
	)
	return err
}

// SetWatermark stores the highest ingested block under meta key
// "last_block". The watermark never moves backwards, so a watcher
// restarting from an older block cannot regress it.
func (s *Store) SetWatermark(ctx context.Context, block uint64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES ('last_block', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value
		 WHERE CAST(excluded.value AS INTEGER) > CAST(meta.value AS INTEGER)`,
		strconv.FormatUint(block, 10),
	)
	return err
}

// Watermark returns the last recorded block, or 0 if none has been set.
func (s *Store) Watermark(ctx context.Context) (uint64, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'last_block'`).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(v, 10, 64)
}

// InboxCount returns the number of inbox entries for userID, for tests and
// operator tooling.
func (s *Store) InboxCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM inbox WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
