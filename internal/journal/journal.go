// Package journal records synthesis turns in SQLite when the operator opts
// in. The default retention mode opens no database at all.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ambiware-labs/pocketvox/internal/config"
	_ "modernc.org/sqlite"
)

// Turn is one synthesis request as served, success or not.
type Turn struct {
	ID             int64
	SessionID      string
	VoiceRequested string
	VoiceUsed      string
	TextChars      int
	Samples        int
	Duration       time.Duration
	Outcome        string
	CreatedAt      time.Time
}

// Outcome values recorded per turn.
const (
	OutcomeOK          = "ok"
	OutcomeUnknown     = "unknown-voice"
	OutcomeLoadFailed  = "load-failed"
	OutcomeGenFailed   = "generate-failed"
	OutcomeWriteFailed = "write-failed"
)

// Store wraps the SQLite-backed turn journal. A nil db means ephemeral
// mode; every method is a no-op then.
type Store struct {
	db    *sql.DB
	cfg   config.JournalConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the journal according to config.
func Open(ctx context.Context, cfg config.JournalConfig, log *slog.Logger) (*Store, error) {
	if cfg.RetentionMode == "ephemeral" {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", cfg.Path)
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
	if err := s.Prune(ctx); err != nil {
		log.Warn("journal prune on start failed", slog.String("error", err.Error()))
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS turns (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    voice_requested TEXT,
    voice_used TEXT,
    text_chars INTEGER,
    samples INTEGER,
    duration_ms INTEGER,
    outcome TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turns_created ON turns(created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append records one turn. Ephemeral mode drops it.
func (s *Store) Append(ctx context.Context, turn Turn) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (session_id, voice_requested, voice_used, text_chars, samples, duration_ms, outcome, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		turn.SessionID, turn.VoiceRequested, turn.VoiceUsed, turn.TextChars,
		turn.Samples, turn.Duration.Milliseconds(), turn.Outcome, s.clock().UTC())
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// ListRecent returns the newest turns, most recent first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Turn, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, voice_requested, voice_used, text_chars, samples, duration_ms, outcome, created_at
		 FROM turns ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var durationMS int64
		if err := rows.Scan(&t.ID, &t.SessionID, &t.VoiceRequested, &t.VoiceUsed,
			&t.TextChars, &t.Samples, &durationMS, &t.Outcome, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Duration = time.Duration(durationMS) * time.Millisecond
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// Prune applies the retention policy: drop turns older than RetentionDays
// and keep at most MaxTurns rows.
func (s *Store) Prune(ctx context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	if s.cfg.RetentionDays > 0 {
		cutoff := s.clock().UTC().AddDate(0, 0, -s.cfg.RetentionDays)
		if _, err := s.db.ExecContext(ctx, `DELETE FROM turns WHERE created_at < ?`, cutoff); err != nil {
			return fmt.Errorf("prune by age: %w", err)
		}
	}
	if s.cfg.MaxTurns > 0 {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM turns WHERE id NOT IN (SELECT id FROM turns ORDER BY id DESC LIMIT ?)`,
			s.cfg.MaxTurns)
		if err != nil {
			return fmt.Errorf("prune by count: %w", err)
		}
	}
	return nil
}
