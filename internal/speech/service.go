package speech

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/tgeczy/NVSpeechPlayer/internal/bus"
	"github.com/tgeczy/NVSpeechPlayer/internal/config"
	"github.com/tgeczy/NVSpeechPlayer/internal/eventstore"
	"github.com/tgeczy/NVSpeechPlayer/internal/protocol"
)

// Service is the bus-facing speech endpoint: it subscribes to speak requests,
// drives the synthesizer, and publishes PCM chunks plus progress.
type Service struct {
	cfg    config.SpeechConfig
	bus    *bus.Client
	synth  Synthesizer
	store  *eventstore.Store
	sub    *nats.Subscription
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *slog.Logger

	tracer          trace.Tracer
	chunksPublished metric.Int64Counter
	samplesRendered metric.Int64Counter
	droppedSymbols  metric.Int64Counter
}

func NewService(parent context.Context, cfg config.SpeechConfig, busClient *bus.Client, synth Synthesizer, store *eventstore.Store, log *slog.Logger) *Service {
	ctx, cancel := context.WithCancel(parent)
	meter := otel.Meter("nvsp/speech")
	chunksPublished, _ := meter.Int64Counter("nvsp_speech_chunks_published_total")
	samplesRendered, _ := meter.Int64Counter("nvsp_speech_samples_rendered_total")
	droppedSymbols, _ := meter.Int64Counter("nvsp_speech_dropped_symbols_total")
	return &Service{
		cfg:             cfg,
		bus:             busClient,
		synth:           synth,
		store:           store,
		ctx:             ctx,
		cancel:          cancel,
		logger:          log.With(slog.String("component", "speech-service")),
		tracer:          otel.Tracer("nvsp/speech"),
		chunksPublished: chunksPublished,
		samplesRendered: samplesRendered,
		droppedSymbols:  droppedSymbols,
	}
}

func (s *Service) Start() error {
	if !s.cfg.Enabled {
		return nil
	}
	sub, err := s.bus.Conn().Subscribe(protocol.SubjectSpeechSay, s.handleRequest)
	if err != nil {
		return err
	}
	s.sub = sub
	return nil
}

func (s *Service) Close() {
	s.cancel()
	if s.sub != nil {
		_ = s.sub.Drain()
	}
	s.wg.Wait()
}

func (s *Service) Healthy() bool { return !s.cfg.Enabled || s.sub != nil }

func (s *Service) handleRequest(msg *nats.Msg) {
	var req protocol.SpeakRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.logger.Warn("failed to decode speak request", slogError(err))
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(s.ctx, 45*time.Second)
		defer cancel()

		ctx, span := s.tracer.Start(ctx, "speech.synthesize",
			trace.WithAttributes(
				attribute.String("session_id", req.SessionID),
				attribute.String("language", req.Language),
			))
		defer span.End()

		clause := byte('.')
		if req.ClauseType != "" {
			clause = req.ClauseType[0]
		}
		chunks, errs := s.synth.Synthesize(ctx, SynthRequest{
			SessionID:     req.SessionID,
			IPA:           req.IPA,
			Language:      req.Language,
			Speed:         req.Speed,
			BasePitch:     req.BasePitch,
			Inflection:    req.Inflection,
			ClauseType:    clause,
			UserIndexBase: req.UserIndexBase,
		})

		chunkCount := 0
		for {
			select {
			case chunk, ok := <-chunks:
				if !ok {
					chunks = nil
					continue
				}
				chunkCount++
				s.publishChunk(req, chunk)
			case err, ok := <-errs:
				if ok && err != nil {
					s.logger.Warn("speech synthesis error", slogError(err))
					span.RecordError(err)
				}
				errs = nil
			case <-ctx.Done():
				s.logger.Warn("speech synthesis cancelled", slogError(ctx.Err()))
				return
			}
			if chunks == nil && errs == nil {
				break
			}
		}

		if s.store != nil && chunkCount > 0 {
			if err := s.store.AppendUtterance(ctx, eventstore.Utterance{
				SessionID:  req.SessionID,
				Language:   req.Language,
				ClauseType: req.ClauseType,
				Speed:      req.Speed,
				IPALength:  len(req.IPA),
				Chunks:     chunkCount,
			}); err != nil {
				s.logger.Warn("failed to record utterance", slogError(err))
			}
		}
	}()
}

func (s *Service) publishChunk(req protocol.SpeakRequest, chunk SynthChunk) {
	packet := protocol.AudioChunk{
		SessionID:  req.SessionID,
		Sequence:   chunk.Sequence,
		SampleRate: chunk.SampleRate,
		Channels:   chunk.Channels,
		PCM:        chunk.PCM,
		Final:      chunk.Final,
	}
	data, err := json.Marshal(packet)
	if err != nil {
		s.logger.Warn("failed to marshal audio chunk", slogError(err))
		return
	}
	if err := s.bus.Conn().Publish(protocol.SubjectSpeechAudio, data); err != nil {
		s.logger.Warn("failed to publish audio chunk", slogError(err))
	}
	s.chunksPublished.Add(s.ctx, 1)
	s.samplesRendered.Add(s.ctx, int64(len(chunk.PCM)/2))

	status := protocol.SpeakStatus{
		SessionID: req.SessionID,
		LastIndex: chunk.LastIndex,
		Dropped:   chunk.Dropped,
		Completed: chunk.Final,
		Timestamp: time.Now().UTC(),
	}
	if data, err := json.Marshal(status); err == nil {
		subject := protocol.SubjectSpeechProgress
		if chunk.Final {
			subject = protocol.SubjectSpeechDone
		}
		_ = s.bus.Conn().Publish(subject, data)
	}
	if chunk.Final && chunk.Dropped > 0 {
		s.droppedSymbols.Add(s.ctx, int64(chunk.Dropped))
	}
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
