package speech

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/tgeczy/NVSpeechPlayer/internal/config"
	"github.com/tgeczy/NVSpeechPlayer/internal/frontend"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestSynthesizer(t *testing.T) *FormantSynthesizer {
	t.Helper()
	front := frontend.Create(filepath.Join("..", "..", "packs"), newLogger())
	if err := front.SetLanguage("en"); err != nil {
		t.Fatalf("set language: %v", err)
	}
	cfg := config.SynthConfig{SampleRate: 22050, MaxQueuedFrames: 256, ChunkDurationMS: 50}
	return NewFormantSynthesizer(cfg, front, newLogger())
}

func drain(t *testing.T, chunks <-chan SynthChunk, errs <-chan error) []SynthChunk {
	t.Helper()
	var out []SynthChunk
	for chunks != nil || errs != nil {
		select {
		case c, ok := <-chunks:
			if !ok {
				chunks = nil
				continue
			}
			out = append(out, c)
		case err, ok := <-errs:
			if ok && err != nil {
				t.Fatalf("synthesis error: %v", err)
			}
			errs = nil
		}
	}
	return out
}

func TestSynthesizeVowelProducesPCM(t *testing.T) {
	s := newTestSynthesizer(t)
	chunks, errs := s.Synthesize(context.Background(), SynthRequest{
		SessionID: "s1", IPA: "a", Speed: 1, BasePitch: 100, Inflection: 0.5,
	})
	out := drain(t, chunks, errs)
	if len(out) == 0 {
		t.Fatal("no chunks produced")
	}
	last := out[len(out)-1]
	if !last.Final {
		t.Fatal("last chunk not flagged final")
	}
	var totalSamples int
	nonzero := false
	for _, c := range out {
		totalSamples += len(c.PCM) / 2
		for i := 0; i+1 < len(c.PCM); i += 2 {
			if c.PCM[i] != 0 || c.PCM[i+1] != 0 {
				nonzero = true
			}
		}
		if c.SampleRate != 22050 || c.Channels != 1 {
			t.Fatalf("chunk format %d Hz %d ch", c.SampleRate, c.Channels)
		}
	}
	// 130 ms vowel + 30 ms tail at 22050 Hz.
	want := int(160.0 * 22050 / 1000)
	if totalSamples != want {
		t.Fatalf("total samples %d, want %d", totalSamples, want)
	}
	if !nonzero {
		t.Fatal("vowel rendered silence only")
	}
	if last.LastIndex != 0 {
		t.Fatalf("final last index %d, want 0", last.LastIndex)
	}
}

func TestSynthesizeEmptyInput(t *testing.T) {
	s := newTestSynthesizer(t)
	chunks, errs := s.Synthesize(context.Background(), SynthRequest{SessionID: "s1", IPA: ""})
	out := drain(t, chunks, errs)
	if len(out) != 1 {
		t.Fatalf("got %d chunks, want a single empty final chunk", len(out))
	}
	if !out[0].Final || len(out[0].PCM) != 0 {
		t.Fatalf("empty input chunk %+v", out[0])
	}
}

func TestSynthesizeSequenceNumbers(t *testing.T) {
	s := newTestSynthesizer(t)
	chunks, errs := s.Synthesize(context.Background(), SynthRequest{
		SessionID: "s1", IPA: "sama", Speed: 1, BasePitch: 100, Inflection: 0.5,
	})
	out := drain(t, chunks, errs)
	if len(out) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(out))
	}
	for i, c := range out {
		if c.Sequence != i {
			t.Fatalf("chunk %d has sequence %d", i, c.Sequence)
		}
		if (i == len(out)-1) != c.Final {
			t.Fatalf("final flag wrong on chunk %d", i)
		}
	}
}

func TestSynthesizeUnknownLanguageFails(t *testing.T) {
	s := newTestSynthesizer(t)
	chunks, errs := s.Synthesize(context.Background(), SynthRequest{
		SessionID: "s1", IPA: "a", Language: "zz-zz",
	})
	var gotErr error
	for chunks != nil || errs != nil {
		select {
		case _, ok := <-chunks:
			if !ok {
				chunks = nil
			}
		case err, ok := <-errs:
			if ok && err != nil {
				gotErr = err
			}
			if !ok {
				errs = nil
			}
		}
	}
	if gotErr == nil {
		t.Fatal("expected error for unknown language")
	}
}
