package dsp

import "math"

// KlattRenderer wires source generation through the cascade and parallel
// resonator banks, one sample per Step. It owns no goroutines and performs no
// allocation, locking, or I/O; everything it needs is sized at construction.
type KlattRenderer struct {
	sampleRate float64

	interp *FrameInterpolator
	voice  *VoiceGenerator
	asp    *NoiseSource
	fric   *NoiseSource

	cascade   [6]*Resonator
	parallel  [6]*Resonator
	nasalZero *Resonator
	nasalPole *Resonator

	// Current-frame bookkeeping for the pitch slide and consumption clock.
	frameElapsed int
	frameMin     int
}

func NewKlattRenderer(sampleRate int) *KlattRenderer {
	r := &KlattRenderer{
		sampleRate: float64(sampleRate),
		interp:     NewFrameInterpolator(),
		voice:      NewVoiceGenerator(sampleRate),
		asp:        NewNoiseSource(true),
		fric:       NewNoiseSource(false),
		nasalZero:  NewResonator(true),
		nasalPole:  NewResonator(false),
	}
	for i := range r.cascade {
		r.cascade[i] = NewResonator(false)
	}
	for i := range r.parallel {
		r.parallel[i] = NewResonator(false)
	}
	return r
}

// beginFrame installs the next queued frame as the interpolation target.
func (r *KlattRenderer) beginFrame(qf *QueuedFrame) {
	if qf.Silence {
		r.interp.SetIncoming(nil, qf.FadeSamples)
	} else {
		r.interp.SetIncoming(&qf.Frame, qf.FadeSamples)
	}
	r.frameElapsed = 0
	r.frameMin = qf.MinSamples
}

// frameConsumed reports whether the current frame has played for at least its
// minimum duration.
func (r *KlattRenderer) frameConsumed() bool {
	return r.frameElapsed >= r.frameMin
}

// Step renders one output sample.
func (r *KlattRenderer) Step() int16 {
	r.interp.Step()
	r.frameElapsed++

	if r.interp.Silent() {
		return 0
	}
	f := r.interp.Current()

	vAmp := f.Field[FieldVoiceAmplitude]
	aAmp := f.Field[FieldAspirationAmplitude]
	fAmp := f.Field[FieldFricationAmplitude]
	if vAmp <= 0 && aAmp <= 0 && fAmp <= 0 {
		// No active source at all: output is exactly zero, with the sources
		// still advanced so determinism does not depend on frame content.
		r.voice.Step(f.Field[FieldVoicePitch], f.Field[FieldVibratoSpeed],
			f.Field[FieldVibratoPitchOffset], f.Field[FieldGlottalOpenQuotient], 0)
		r.asp.Step()
		r.fric.Step()
		return 0
	}

	// Pitch slides from voicePitch toward endVoicePitch across the frame's
	// minimum duration.
	pitch := f.Field[FieldVoicePitch]
	if end := f.Field[FieldEndVoicePitch]; end > 0 && r.frameMin > 0 {
		t := float64(r.frameElapsed) / float64(r.frameMin)
		if t > 1 {
			t = 1
		}
		pitch += (end - pitch) * t
	}

	r.retune(f)

	v := r.voice.Step(pitch, f.Field[FieldVibratoSpeed],
		f.Field[FieldVibratoPitchOffset], f.Field[FieldGlottalOpenQuotient],
		f.Field[FieldVoiceTurbulenceAmplitude]) * vAmp
	a := r.asp.Step() * aAmp

	// Cascade branch: voiced + aspiration through cf1..cf6, with the nasal
	// zero/pole pair inserted after the first formant.
	s := v + a
	x := r.cascade[0].Step(s)
	if caNP := f.Field[FieldCANP]; caNP > 0 {
		x = r.nasalZero.Step(x)
		x += caNP * (r.nasalPole.Step(x) - x)
	}
	for i := 1; i < len(r.cascade); i++ {
		x = r.cascade[i].Step(x)
	}
	cascadeOut := x

	// Parallel branch: frication through each formant independently.
	fr := r.fric.Step() * fAmp
	var parallelOut float64
	for i, res := range r.parallel {
		parallelOut += res.Step(fr) * f.Field[FieldPA1+FieldID(i)]
	}
	parallelOut += fr * f.Field[FieldParallelBypass]

	out := (cascadeOut + parallelOut) * f.Field[FieldPreFormantGain] * f.Field[FieldOutputGain]
	return clip(out * 16384)
}

// retune pushes the frame's formant targets into the resonators. Each
// resonator skips the trig when its inputs have not changed.
func (r *KlattRenderer) retune(f *Frame) {
	for i := 0; i < 6; i++ {
		r.cascade[i].SetParameters(
			f.Field[FieldCF1+FieldID(i)], f.Field[FieldCB1+FieldID(i)], r.sampleRate)
		r.parallel[i].SetParameters(
			f.Field[FieldPF1+FieldID(i)], f.Field[FieldPB1+FieldID(i)], r.sampleRate)
	}
	r.nasalZero.SetParameters(f.Field[FieldCFN0], f.Field[FieldCBN0], r.sampleRate)
	r.nasalPole.SetParameters(f.Field[FieldCFNP], f.Field[FieldCBNP], r.sampleRate)
}

// reset drops all filter and source state, used after a purge.
func (r *KlattRenderer) reset() {
	for _, res := range r.cascade {
		res.Reset()
	}
	for _, res := range r.parallel {
		res.Reset()
	}
	r.nasalZero.Reset()
	r.nasalPole.Reset()
}

// clip converts to int16 with hard saturation, rounding to nearest with ties
// away from zero.
func clip(s float64) int16 {
	s = math.Round(s)
	if s < -32768 {
		return -32768
	}
	if s > 32767 {
		return 32767
	}
	return int16(s)
}
