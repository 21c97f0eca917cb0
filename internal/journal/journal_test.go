package journal

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/ambiware-labs/pocketvox/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestOpenEphemeral(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, config.JournalConfig{RetentionMode: "ephemeral"}, newLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Append(ctx, Turn{SessionID: "s1", Outcome: OutcomeOK}); err != nil {
		t.Fatalf("append: %v", err)
	}
	turns, err := s.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("ephemeral mode must record nothing, got %d turns", len(turns))
	}
}

func TestAppendAndList(t *testing.T) {
	ctx := context.Background()
	cfg := config.JournalConfig{
		Path:          filepath.Join(t.TempDir(), "journal.db"),
		RetentionMode: "persistent",
	}
	s, err := Open(ctx, cfg, newLogger())
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	turn := Turn{
		SessionID:      "session-1",
		VoiceRequested: "valjean",
		VoiceUsed:      "alba",
		TextChars:      5,
		Samples:        4805,
		Duration:       120 * time.Millisecond,
		Outcome:        OutcomeOK,
	}
	if err := s.Append(ctx, turn); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Append(ctx, Turn{SessionID: "session-1", Outcome: OutcomeUnknown}); err != nil {
		t.Fatalf("append: %v", err)
	}

	turns, err := s.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Outcome != OutcomeUnknown {
		t.Fatalf("expected newest first, got %q", turns[0].Outcome)
	}
	got := turns[1]
	if got.VoiceRequested != "valjean" || got.VoiceUsed != "alba" {
		t.Fatalf("voice fields mismatch: %+v", got)
	}
	if got.Duration != 120*time.Millisecond {
		t.Fatalf("duration mismatch: %v", got.Duration)
	}
}

func TestPruneByAgeAndCount(t *testing.T) {
	ctx := context.Background()
	cfg := config.JournalConfig{
		Path:          filepath.Join(t.TempDir(), "journal.db"),
		RetentionMode: "persistent",
		RetentionDays: 1,
		MaxTurns:      1,
	}
	s, err := Open(ctx, cfg, newLogger())
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	s.clock = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	if err := s.Append(ctx, Turn{SessionID: "old", Outcome: OutcomeOK}); err != nil {
		t.Fatalf("append old: %v", err)
	}

	s.clock = func() time.Time { return time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC) }
	if err := s.Append(ctx, Turn{SessionID: "new-1", Outcome: OutcomeOK}); err != nil {
		t.Fatalf("append new-1: %v", err)
	}
	if err := s.Append(ctx, Turn{SessionID: "new-2", Outcome: OutcomeOK}); err != nil {
		t.Fatalf("append new-2: %v", err)
	}

	if err := s.Prune(ctx); err != nil {
		t.Fatalf("prune: %v", err)
	}
	turns, err := s.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("expected 1 turn after prune, got %d", len(turns))
	}
	if turns[0].SessionID != "new-2" {
		t.Fatalf("expected newest turn kept, got %q", turns[0].SessionID)
	}
}
