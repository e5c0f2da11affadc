package frontend

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tgeczy/NVSpeechPlayer/internal/pack"
)

var ErrInvalidArgument = errors.New("frontend: invalid argument")

// Synth is the frontend handle. It owns the merged pack and per-call state;
// all producer-side calls serialize on the handle lock. The pack itself is
// immutable and shared.
type Synth struct {
	packDir string
	log     *slog.Logger

	mu         sync.Mutex
	set        *pack.Set
	packLoaded bool
	langTag    string
	lastError  string

	// True once a queueIPA call has emitted frames; used to insert the
	// inter-segment gap between consecutive calls.
	streamHasSpeech bool
	lastDropped     int
}

// Create returns a handle rooted at packDir. The pack loads lazily on the
// first call that needs it.
func Create(packDir string, log *slog.Logger) *Synth {
	if log == nil {
		log = slog.Default()
	}
	return &Synth{
		packDir: packDir,
		log:     log.With(slog.String("component", "frontend")),
	}
}

// SetLanguage merges the pack layers for langTag and installs the result.
// A language change resets the speech stream.
func (s *Synth) SetLanguage(langTag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = ""

	set, err := pack.Load(s.packDir, langTag)
	if err != nil {
		s.lastError = err.Error()
		return err
	}
	s.set = set
	s.packLoaded = true
	s.langTag = set.Tag
	s.streamHasSpeech = false
	return nil
}

// Language returns the active normalized language tag.
func (s *Synth) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.langTag
}

// QueueIPA converts ipa into frames and feeds them to cb in order. speed
// values <= 0 are treated as 1.0; clauseType is one of '.', '?', '!', ','.
// Unknown symbols are dropped, not fatal; their count is available from
// LastDroppedSymbols. Any error is also stashed for LastError.
func (s *Synth) QueueIPA(ipa string, speed, basePitch, inflection float64, clauseType byte, userIndexBase int, cb FrameCallback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = ""
	s.lastDropped = 0

	if !s.packLoaded {
		set, err := pack.Load(s.packDir, "default")
		if err != nil {
			s.lastError = err.Error()
			return err
		}
		s.set = set
		s.packLoaded = true
		s.langTag = set.Tag
	}

	if speed <= 0 {
		speed = 1.0
	}
	if clauseType == 0 {
		clauseType = '.'
	}

	tk := NewTokenizer(s.set, s.log)
	tokens, dropped := tk.Tokenize(ipa)
	s.lastDropped = dropped
	if len(tokens) == 0 {
		return nil
	}

	ctx := &Context{
		Pack:       s.set,
		Speed:      speed,
		BasePitch:  basePitch,
		Inflection: inflection,
		ClauseType: clauseType,
	}
	tokens, err := RunPasses(ctx, tokens)
	if err != nil {
		s.lastError = err.Error()
		return fmt.Errorf("queueIPA: %w", err)
	}

	// Between calls, a configured gap keeps separate chunks from colliding;
	// never before the first speech of the stream.
	if cb != nil && s.streamHasSpeech {
		gap := s.set.Lang.Settings.SegmentBoundaryGapMs
		fade := s.set.Lang.Settings.SegmentBoundaryFadeMs
		if gap > 0 {
			if fade < 0 {
				fade = 0
			}
			cb(nil, gap/speed, fade/speed, -1)
		}
	}

	emitFrames(tokens, userIndexBase, cb)
	s.streamHasSpeech = true
	return nil
}

// LastError returns the message stashed by the most recent failing call, or
// the empty string.
func (s *Synth) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// LastDroppedSymbols reports how many unknown symbols the most recent
// QueueIPA call dropped.
func (s *Synth) LastDroppedSymbols() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastDropped
}

// Close releases the handle.
func (s *Synth) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set = nil
	s.packLoaded = false
}
