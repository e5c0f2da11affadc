package dsp

import "math"

// openPhaseRise is the fraction of the glottal open phase spent on the rising
// slope of the triangular flow pulse. The fall is steeper, so excitation is
// strongest at closure.
const openPhaseRise = 2.0 / 3.0

// VoiceGenerator produces the glottal waveform: a differentiated triangular
// flow pulse whose open phase is set by the glottal open quotient, with
// vibrato on the pitch and turbulence noise gated to the open phase.
type VoiceGenerator struct {
	sampleRate   float64
	cyclePos     float64
	vibratoPhase float64
	turbulence   *NoiseSource
}

func NewVoiceGenerator(sampleRate int) *VoiceGenerator {
	return &VoiceGenerator{
		sampleRate: float64(sampleRate),
		turbulence: NewNoiseSource(false),
	}
}

// Step advances one sample and returns the unscaled glottal output. pitch is
// in Hz; vibratoSpeed in Hz; vibratoOffset is a fractional pitch deviation;
// openQuotient is the open fraction of the cycle; turbulenceAmp scales the
// breathiness noise mixed into the open phase.
func (v *VoiceGenerator) Step(pitch, vibratoSpeed, vibratoOffset, openQuotient, turbulenceAmp float64) float64 {
	if pitch <= 0 {
		return 0
	}

	vib := math.Sin(2 * math.Pi * v.vibratoPhase)
	v.vibratoPhase += vibratoSpeed / v.sampleRate
	if v.vibratoPhase >= 1 {
		v.vibratoPhase -= math.Floor(v.vibratoPhase)
	}

	effPitch := pitch * (1 + vibratoOffset*vib)
	v.cyclePos += effPitch / v.sampleRate
	if v.cyclePos >= 1 {
		v.cyclePos -= math.Floor(v.cyclePos)
	}

	oq := openQuotient
	if oq < 0.05 {
		oq = 0.05
	} else if oq > 0.95 {
		oq = 0.95
	}

	if v.cyclePos >= oq {
		// Glottis closed.
		return 0
	}

	x := v.cyclePos / oq
	var out float64
	if x < openPhaseRise {
		out = 1 / openPhaseRise
	} else {
		out = -1 / (1 - openPhaseRise)
	}
	out *= 0.5

	if turbulenceAmp > 0 {
		out += turbulenceAmp * v.turbulence.Step()
	}
	return out
}

// Reset restarts the cycle and the turbulence source.
func (v *VoiceGenerator) Reset() {
	v.cyclePos = 0
	v.vibratoPhase = 0
	v.turbulence.Reset()
}
