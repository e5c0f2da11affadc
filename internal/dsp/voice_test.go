package dsp

import (
	"math"
	"testing"
)

func TestVoiceOpenPhaseFraction(t *testing.T) {
	const sampleRate = 22050
	v := NewVoiceGenerator(sampleRate)

	nonzero := 0
	for i := 0; i < sampleRate; i++ {
		if v.Step(100, 0, 0, 0.5, 0) != 0 {
			nonzero++
		}
	}
	frac := float64(nonzero) / sampleRate
	if math.Abs(frac-0.5) > 0.05 {
		t.Fatalf("open-phase fraction %v, want ~0.5", frac)
	}
}

func TestVoiceSilentWithoutPitch(t *testing.T) {
	v := NewVoiceGenerator(22050)
	for i := 0; i < 1000; i++ {
		if out := v.Step(0, 0, 0, 0.5, 1.0); out != 0 {
			t.Fatalf("expected silence at zero pitch, got %v", out)
		}
	}
}

func TestVoicePeriodicity(t *testing.T) {
	const (
		sampleRate = 24000
		pitch      = 120.0
	)
	v := NewVoiceGenerator(sampleRate)

	// Count closed->open transitions over one second; should match the pitch.
	prevOpen := false
	cycles := 0
	for i := 0; i < sampleRate; i++ {
		open := v.Step(pitch, 0, 0, 0.4, 0) != 0
		if open && !prevOpen {
			cycles++
		}
		prevOpen = open
	}
	if math.Abs(float64(cycles)-pitch) > 2 {
		t.Fatalf("counted %d cycles in one second, want ~%v", cycles, pitch)
	}
}

func TestVoiceTurbulenceOnlyInOpenPhase(t *testing.T) {
	a := NewVoiceGenerator(22050)
	b := NewVoiceGenerator(22050)
	for i := 0; i < 22050; i++ {
		clean := a.Step(100, 0, 0, 0.5, 0)
		turb := b.Step(100, 0, 0, 0.5, 0.5)
		if clean == 0 && turb != 0 {
			t.Fatalf("turbulence leaked into closed phase at sample %d", i)
		}
	}
}
