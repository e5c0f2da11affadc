package frontend

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/tgeczy/NVSpeechPlayer/internal/dsp"
)

type emitted struct {
	frame *dsp.Frame
	durMs float64
	fade  float64
	index int
}

func collect(frames *[]emitted) FrameCallback {
	return func(f *dsp.Frame, durMs, fadeMs float64, userIndex int) {
		var copied *dsp.Frame
		if f != nil {
			c := *f
			copied = &c
		}
		*frames = append(*frames, emitted{frame: copied, durMs: durMs, fade: fadeMs, index: userIndex})
	}
}

func newTestSynth(t *testing.T) *Synth {
	t.Helper()
	s := Create(filepath.Join("..", "..", "packs"), testLogger())
	if err := s.SetLanguage("en"); err != nil {
		t.Fatalf("set language: %v", err)
	}
	return s
}

func TestQueueIPAEmptyInput(t *testing.T) {
	s := newTestSynth(t)
	var frames []emitted
	if err := s.QueueIPA("", 1, 100, 0.5, '.', 0, collect(&frames)); err != nil {
		t.Fatalf("queueIPA: %v", err)
	}
	if len(frames) != 0 {
		t.Fatalf("emitted %d frames for empty input", len(frames))
	}
	if s.LastError() != "" {
		t.Fatalf("last error %q, want empty", s.LastError())
	}
}

func TestQueueIPASingleVowel(t *testing.T) {
	s := newTestSynth(t)
	var frames []emitted
	if err := s.QueueIPA("a", 1, 100, 0.5, '.', 0, collect(&frames)); err != nil {
		t.Fatalf("queueIPA: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("emitted %d frames, want 1", len(frames))
	}
	f := frames[0]
	if f.frame == nil {
		t.Fatal("vowel emitted as silence")
	}
	if math.Abs(f.durMs-130) > 1 {
		t.Fatalf("duration %v, want 130", f.durMs)
	}
	if f.fade > f.durMs {
		t.Fatal("fade exceeds duration")
	}
	if cf1 := f.frame.Field[dsp.FieldCF1]; math.Abs(cf1-700) > 1 {
		t.Fatalf("cf1 %v, want 700", cf1)
	}
	if cf2 := f.frame.Field[dsp.FieldCF2]; math.Abs(cf2-1200) > 1 {
		t.Fatalf("cf2 %v, want 1200", cf2)
	}
	if f.index != 0 {
		t.Fatalf("user index %d, want 0", f.index)
	}
}

func TestQueueIPALengthenedVowel(t *testing.T) {
	s := newTestSynth(t)
	var frames []emitted
	if err := s.QueueIPA("aː", 1, 100, 0.5, '.', 0, collect(&frames)); err != nil {
		t.Fatalf("queueIPA: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("emitted %d frames, want 1", len(frames))
	}
	if math.Abs(frames[0].durMs-130*1.8) > 1 {
		t.Fatalf("duration %v, want %v", frames[0].durMs, 130*1.8)
	}
}

func TestQueueIPAInterSegmentGap(t *testing.T) {
	s := newTestSynth(t)
	var first, second []emitted
	if err := s.QueueIPA("a", 1, 100, 0.5, '.', 0, collect(&first)); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if err := s.QueueIPA("a", 1, 100, 0.5, '.', 10, collect(&second)); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if len(first) != 1 || first[0].frame == nil {
		t.Fatalf("first call emitted %d frames, want the vowel only", len(first))
	}
	if len(second) != 2 {
		t.Fatalf("second call emitted %d frames, want gap + vowel", len(second))
	}
	gap := second[0]
	if gap.frame != nil {
		t.Fatal("inter-segment gap is not silence")
	}
	if math.Abs(gap.durMs-20) > 1 {
		t.Fatalf("gap duration %v, want 20", gap.durMs)
	}
	if gap.index != -1 {
		t.Fatalf("gap user index %d, want -1", gap.index)
	}
	if second[1].index != 10 {
		t.Fatalf("vowel user index %d, want base 10", second[1].index)
	}
}

func TestQueueIPAUserIndexBase(t *testing.T) {
	s := newTestSynth(t)
	var frames []emitted
	if err := s.QueueIPA("sama", 1, 100, 0.5, '.', 100, collect(&frames)); err != nil {
		t.Fatalf("queueIPA: %v", err)
	}
	for i, f := range frames {
		if f.index != 100+i {
			t.Fatalf("frame %d has index %d, want %d", i, f.index, 100+i)
		}
	}
}

func TestQueueIPAQuestionEndsHigherThanStatement(t *testing.T) {
	final := func(clause byte) float64 {
		s := newTestSynth(t)
		var frames []emitted
		if err := s.QueueIPA("ha", 1, 100, 0.5, clause, 0, collect(&frames)); err != nil {
			t.Fatalf("queueIPA: %v", err)
		}
		for i := len(frames) - 1; i >= 0; i-- {
			if frames[i].frame != nil {
				return frames[i].frame.Field[dsp.FieldEndVoicePitch]
			}
		}
		t.Fatal("no voiced frame emitted")
		return 0
	}
	if q, st := final('?'), final('.'); q <= st {
		t.Fatalf("question pitch %v not above statement %v", q, st)
	}
}

func TestQueueIPAUnknownSymbolsCounted(t *testing.T) {
	s := newTestSynth(t)
	var frames []emitted
	if err := s.QueueIPA("¡¡", 1, 100, 0.5, '.', 0, collect(&frames)); err != nil {
		t.Fatalf("queueIPA: %v", err)
	}
	if len(frames) != 0 {
		t.Fatalf("emitted %d frames for unknown-only input", len(frames))
	}
	if s.LastDroppedSymbols() != 2 {
		t.Fatalf("dropped count %d, want 2", s.LastDroppedSymbols())
	}
	if s.LastError() != "" {
		t.Fatalf("unexpected error %q", s.LastError())
	}
}

func TestQueueIPASpeedFallback(t *testing.T) {
	s := newTestSynth(t)
	var frames []emitted
	if err := s.QueueIPA("a", -3, 100, 0.5, '.', 0, collect(&frames)); err != nil {
		t.Fatalf("queueIPA: %v", err)
	}
	if len(frames) != 1 || math.Abs(frames[0].durMs-130) > 1 {
		t.Fatal("non-positive speed was not treated as 1.0")
	}
}

func TestSetLanguageIdempotent(t *testing.T) {
	render := func() []emitted {
		s := Create(filepath.Join("..", "..", "packs"), testLogger())
		if err := s.SetLanguage("en"); err != nil {
			t.Fatalf("set language: %v", err)
		}
		if err := s.SetLanguage("en"); err != nil {
			t.Fatalf("set language again: %v", err)
		}
		var frames []emitted
		if err := s.QueueIPA("sama", 1, 100, 0.5, '.', 0, collect(&frames)); err != nil {
			t.Fatalf("queueIPA: %v", err)
		}
		return frames
	}
	a, b := render(), render()
	if len(a) != len(b) {
		t.Fatalf("frame counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if (a[i].frame == nil) != (b[i].frame == nil) ||
			a[i].durMs != b[i].durMs || a[i].fade != b[i].fade {
			t.Fatalf("frame %d differs between runs", i)
		}
		if a[i].frame != nil && a[i].frame.Field != b[i].frame.Field {
			t.Fatalf("frame %d field vectors differ", i)
		}
	}
}

func TestSetLanguageUnknown(t *testing.T) {
	s := Create(filepath.Join("..", "..", "packs"), testLogger())
	if err := s.SetLanguage("zz-zz"); err == nil {
		t.Fatal("expected error for unknown language")
	}
	if s.LastError() == "" {
		t.Fatal("last error not stashed")
	}
}

func TestQueueIPAAllFieldsFinite(t *testing.T) {
	s := newTestSynth(t)
	var frames []emitted
	if err := s.QueueIPA("ˈsamat͡ʃi kaːl", 1, 100, 0.5, '!', 0, collect(&frames)); err != nil {
		t.Fatalf("queueIPA: %v", err)
	}
	for i, f := range frames {
		if f.frame == nil {
			continue
		}
		if !f.frame.Valid() {
			t.Fatalf("frame %d fails validity: %+v", i, f.frame.Field)
		}
	}
}
