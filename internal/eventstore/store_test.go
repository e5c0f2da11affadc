package eventstore

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/tgeczy/NVSpeechPlayer/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestOpenEphemeral(t *testing.T) {
	cfg := config.EventStoreConfig{RetentionMode: "ephemeral"}
	es, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = es.Close() })
	// Writes are no-ops but must not fail.
	if err := es.AppendUtterance(context.Background(), Utterance{SessionID: "s"}); err != nil {
		t.Fatalf("append in ephemeral mode: %v", err)
	}
}

func TestAppendAndQuery(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.EventStoreConfig{Path: filepath.Join(tmp, "events.db"), RetentionMode: "session"}
	es, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open event store: %v", err)
	}
	t.Cleanup(func() { _ = es.Close() })

	u := Utterance{
		SessionID:  "session-123",
		Language:   "en-us",
		ClauseType: "?",
		Speed:      1.5,
		IPALength:  12,
		Chunks:     3,
	}
	if err := es.AppendUtterance(context.Background(), u); err != nil {
		t.Fatalf("append utterance: %v", err)
	}
	if err := es.AppendEvent(context.Background(), Event{SessionID: "session-123", Type: "language_change", Payload: []byte("en-us")}); err != nil {
		t.Fatalf("append event: %v", err)
	}

	got, err := es.ListSessionUtterances(context.Background(), "session-123", 10)
	if err != nil {
		t.Fatalf("list utterances: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 utterance, got %d", len(got))
	}
	if got[0].Language != "en-us" || got[0].Chunks != 3 || got[0].ClauseType != "?" {
		t.Fatalf("unexpected utterance: %+v", got[0])
	}
}

func TestPruneByCount(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.EventStoreConfig{
		Path:          filepath.Join(tmp, "events.db"),
		RetentionMode: "persistent",
		MaxUtterances: 2,
	}
	es, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open event store: %v", err)
	}
	t.Cleanup(func() { _ = es.Close() })

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		es.clock = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		if err := es.AppendUtterance(context.Background(), Utterance{SessionID: "s"}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if err := es.Prune(context.Background()); err != nil {
		t.Fatalf("prune: %v", err)
	}
	got, err := es.ListSessionUtterances(context.Background(), "s", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 utterances after prune, got %d", len(got))
	}
}
