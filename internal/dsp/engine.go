package dsp

import (
	"errors"
	"sync/atomic"
)

// ErrInvalidArgument is returned by Initialize for unusable parameters.
var ErrInvalidArgument = errors.New("dsp: invalid argument")

// Engine is the speech-engine handle. One producer thread queues frames; one
// consumer thread renders. Synthesize never blocks, locks, allocates, or
// returns errors: a malformed frame is substituted with silence and rendering
// continues.
type Engine struct {
	sampleRate int
	queue      *FrameQueue
	ren        *KlattRenderer

	lastIndex    atomic.Int64
	pendingIndex int
	hasFrame     bool
	purge        atomic.Bool
}

// Initialize creates an engine rendering at sampleRate with room for
// maxQueuedFrames pending frames.
func Initialize(sampleRate, maxQueuedFrames int) (*Engine, error) {
	if sampleRate <= 0 || maxQueuedFrames <= 0 {
		return nil, ErrInvalidArgument
	}
	e := &Engine{
		sampleRate: sampleRate,
		queue:      NewFrameQueue(maxQueuedFrames),
		ren:        NewKlattRenderer(sampleRate),
	}
	e.lastIndex.Store(-1)
	return e, nil
}

// SampleRate returns the fixed output rate.
func (e *Engine) SampleRate() int { return e.sampleRate }

// QueueFrame enqueues a frame. frame == nil denotes silence. Durations are in
// milliseconds; fade is clamped to the minimum duration. It returns false
// when the queue is full or the durations are unusable.
func (e *Engine) QueueFrame(frame *Frame, minDurationMs, fadeMs float64, userIndex int) bool {
	if minDurationMs < 0 || fadeMs < 0 {
		return false
	}
	if fadeMs > minDurationMs {
		fadeMs = minDurationMs
	}
	qf := QueuedFrame{
		MinSamples:  e.msToSamples(minDurationMs),
		FadeSamples: e.msToSamples(fadeMs),
		UserIndex:   userIndex,
	}
	if frame == nil || !frame.Valid() {
		// Malformed frames render as silence rather than failing the stream.
		qf.Silence = true
	} else {
		qf.Frame = *frame
	}
	return e.queue.Push(qf)
}

// Purge drops every queued frame and fades the current frame to silence. The
// drop happens on the render thread at the next Synthesize call.
func (e *Engine) Purge() {
	e.purge.Store(true)
}

// Synthesize renders len(out) samples into out and returns the count written,
// always len(out). Empty-queue stretches extend the current frame (or
// silence).
func (e *Engine) Synthesize(out []int16) int {
	if e.purge.Swap(false) {
		e.queue.drain()
		e.ren.interp.SetIncoming(nil, e.msToSamples(5))
		e.ren.reset()
		e.hasFrame = false
	}

	var next QueuedFrame
	for i := range out {
		if (!e.hasFrame || e.ren.frameConsumed()) && e.queue.Pop(&next) {
			if e.hasFrame {
				e.lastIndex.Store(int64(e.pendingIndex))
			}
			e.ren.beginFrame(&next)
			e.pendingIndex = next.UserIndex
			e.hasFrame = true
		}
		out[i] = e.ren.Step()
		if e.hasFrame && e.ren.frameConsumed() {
			e.lastIndex.Store(int64(e.pendingIndex))
		}
	}
	return len(out)
}

// LastIndex returns the user index of the most recently fully rendered frame,
// or -1 before any frame completes.
func (e *Engine) LastIndex() int {
	return int(e.lastIndex.Load())
}

// QueueLen reports how many frames are waiting.
func (e *Engine) QueueLen() int { return e.queue.Len() }

// Idle reports whether the queue is empty and the renderer has settled on
// silence.
func (e *Engine) Idle() bool {
	return e.queue.Len() == 0 && e.ren.interp.Silent()
}

// Close releases the handle. The engine holds no OS resources; Close exists
// for parity with the handle contract.
func (e *Engine) Close() {}

func (e *Engine) msToSamples(ms float64) int {
	return int(ms * float64(e.sampleRate) / 1000.0)
}
