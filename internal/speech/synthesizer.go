package speech

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tgeczy/NVSpeechPlayer/internal/config"
	"github.com/tgeczy/NVSpeechPlayer/internal/dsp"
	"github.com/tgeczy/NVSpeechPlayer/internal/frontend"
)

// SynthRequest contains the parameters for one utterance.
type SynthRequest struct {
	SessionID     string
	IPA           string
	Language      string
	Speed         float64
	BasePitch     float64
	Inflection    float64
	ClauseType    byte
	UserIndexBase int
}

// SynthChunk is one rendered span of PCM. LastIndex is the user index of the
// most recently fully rendered frame when the chunk was cut.
type SynthChunk struct {
	SessionID  string
	Sequence   int
	SampleRate int
	Channels   int
	PCM        []byte
	LastIndex  int
	Dropped    int
	Final      bool
}

// Synthesizer is the contract for producing audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthRequest) (<-chan SynthChunk, <-chan error)
}

// trailing silence queued after each utterance so the final phoneme fades out
// instead of cutting off.
const (
	tailSilenceMs   = 30.0
	tailSilenceFade = 10.0
)

// FormantSynthesizer renders utterances with the in-process Klatt engine. The
// frontend handle (and its pack) is shared across requests; each utterance
// gets its own engine so renders never interleave. Utterances serialize on
// the producer lock, matching the engine's single-producer discipline.
type FormantSynthesizer struct {
	cfg   config.SynthConfig
	front *frontend.Synth
	log   *slog.Logger
	mu    sync.Mutex
}

func NewFormantSynthesizer(cfg config.SynthConfig, front *frontend.Synth, log *slog.Logger) *FormantSynthesizer {
	return &FormantSynthesizer{
		cfg:   cfg,
		front: front,
		log:   log.With(slog.String("component", "formant-synth")),
	}
}

type queuedFrame struct {
	frame  *dsp.Frame
	durMs  float64
	fadeMs float64
	index  int
}

func (s *FormantSynthesizer) Synthesize(ctx context.Context, req SynthRequest) (<-chan SynthChunk, <-chan error) {
	chunks := make(chan SynthChunk, 4)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		s.mu.Lock()
		defer s.mu.Unlock()

		if req.Language != "" && s.front.Language() != req.Language {
			if err := s.front.SetLanguage(req.Language); err != nil {
				errs <- fmt.Errorf("set language %q: %w", req.Language, err)
				return
			}
		}

		clause := byte('.')
		if req.ClauseType != 0 {
			clause = req.ClauseType
		}

		var frames []queuedFrame
		var totalMs float64
		err := s.front.QueueIPA(req.IPA, req.Speed, req.BasePitch, req.Inflection, clause, req.UserIndexBase,
			func(f *dsp.Frame, durMs, fadeMs float64, userIndex int) {
				var copied *dsp.Frame
				if f != nil {
					c := *f
					copied = &c
				}
				frames = append(frames, queuedFrame{frame: copied, durMs: durMs, fadeMs: fadeMs, index: userIndex})
				totalMs += durMs
			})
		if err != nil {
			errs <- err
			return
		}
		dropped := s.front.LastDroppedSymbols()

		if len(frames) == 0 {
			sendChunk(ctx, chunks, SynthChunk{
				SessionID:  req.SessionID,
				SampleRate: s.cfg.SampleRate,
				Channels:   1,
				LastIndex:  -1,
				Dropped:    dropped,
				Final:      true,
			})
			return
		}

		capacity := s.cfg.MaxQueuedFrames
		if len(frames)+1 > capacity {
			capacity = len(frames) + 1
		}
		eng, err := dsp.Initialize(s.cfg.SampleRate, capacity)
		if err != nil {
			errs <- err
			return
		}
		for _, qf := range frames {
			eng.QueueFrame(qf.frame, qf.durMs, qf.fadeMs, qf.index)
		}
		lastIndex := frames[len(frames)-1].index
		eng.QueueFrame(nil, tailSilenceMs, tailSilenceFade, lastIndex)
		totalMs += tailSilenceMs

		chunkSamples := s.cfg.SampleRate * s.cfg.ChunkDurationMS / 1000
		if chunkSamples < 1 {
			chunkSamples = 1
		}
		remaining := int(totalMs * float64(s.cfg.SampleRate) / 1000)
		buf := make([]int16, chunkSamples)
		seq := 0
		for remaining > 0 {
			n := chunkSamples
			if n > remaining {
				n = remaining
			}
			eng.Synthesize(buf[:n])
			remaining -= n

			if !sendChunk(ctx, chunks, SynthChunk{
				SessionID:  req.SessionID,
				Sequence:   seq,
				SampleRate: s.cfg.SampleRate,
				Channels:   1,
				PCM:        pcmBytes(buf[:n]),
				LastIndex:  eng.LastIndex(),
				Dropped:    dropped,
				Final:      remaining <= 0,
			}) {
				return
			}
			seq++
		}
	}()

	return chunks, errs
}

func sendChunk(ctx context.Context, out chan<- SynthChunk, c SynthChunk) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

// pcmBytes converts samples to little-endian int16 bytes.
func pcmBytes(samples []int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}
