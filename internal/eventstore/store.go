// Package eventstore keeps a SQLite-backed log of synthesis activity for
// diagnostics: one row per utterance, plus free-form events. It never sits on
// the render path.
package eventstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tgeczy/NVSpeechPlayer/internal/config"
)

// Utterance is one recorded queueIPA call.
type Utterance struct {
	ID         int64
	SessionID  string
	Language   string
	ClauseType string
	Speed      float64
	IPALength  int
	Chunks     int
	CreatedAt  time.Time
}

// Event is a free-form timeline entry attached to a session.
type Event struct {
	ID        int64
	SessionID string
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Store wraps the SQLite handle. In ephemeral mode nothing touches disk and
// every write is a no-op.
type Store struct {
	db    *sql.DB
	cfg   config.EventStoreConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the store according to config.
func Open(ctx context.Context, cfg config.EventStoreConfig, log *slog.Logger) (*Store, error) {
	if cfg.RetentionMode == "ephemeral" {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.VacuumOnStart {
		if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
			log.Warn("event store vacuum failed", slog.String("error", err.Error()))
		}
	}

	if err := s.Prune(ctx); err != nil {
		log.Warn("event store prune on start failed", slog.String("error", err.Error()))
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	ddl := `
CREATE TABLE IF NOT EXISTS utterances (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    language TEXT,
    clause_type TEXT,
    speed REAL,
    ipa_length INTEGER,
    chunks INTEGER,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_utterances_session_created ON utterances(session_id, created_at);
CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    event_type TEXT,
    payload BLOB,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_session_created ON events(session_id, created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// AppendUtterance records one completed queueIPA call.
func (s *Store) AppendUtterance(ctx context.Context, u Utterance) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO utterances (session_id, language, clause_type, speed, ipa_length, chunks, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.SessionID, u.Language, u.ClauseType, u.Speed, u.IPALength, u.Chunks, s.clock().UTC())
	return err
}

// AppendEvent records a free-form event.
func (s *Store) AppendEvent(ctx context.Context, e Event) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (session_id, event_type, payload, created_at) VALUES (?, ?, ?, ?)`,
		e.SessionID, e.Type, e.Payload, s.clock().UTC())
	return err
}

// ListSessionUtterances returns the most recent utterances for a session.
func (s *Store) ListSessionUtterances(ctx context.Context, sessionID string, limit int) ([]Utterance, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, language, clause_type, speed, ipa_length, chunks, created_at
		 FROM utterances WHERE session_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Utterance
	for rows.Next() {
		var u Utterance
		if err := rows.Scan(&u.ID, &u.SessionID, &u.Language, &u.ClauseType, &u.Speed, &u.IPALength, &u.Chunks, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Prune enforces the retention policy: by age when retention_days is set, and
// by total utterance count.
func (s *Store) Prune(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	if s.cfg.RetentionDays > 0 {
		cutoff := s.clock().UTC().AddDate(0, 0, -s.cfg.RetentionDays)
		if _, err := s.db.ExecContext(ctx, `DELETE FROM utterances WHERE created_at < ?`, cutoff); err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE created_at < ?`, cutoff); err != nil {
			return err
		}
	}
	if s.cfg.MaxUtterances > 0 {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM utterances WHERE id NOT IN (
			   SELECT id FROM utterances ORDER BY created_at DESC, id DESC LIMIT ?)`,
			s.cfg.MaxUtterances)
		if err != nil {
			return err
		}
	}
	return nil
}
