package dsp

import (
	"math"
	"testing"
)

func TestNoiseDeterministic(t *testing.T) {
	a := NewNoiseSource(true)
	b := NewNoiseSource(true)
	for i := 0; i < 10000; i++ {
		if va, vb := a.Step(), b.Step(); va != vb {
			t.Fatalf("sequences diverge at sample %d: %v != %v", i, va, vb)
		}
	}
}

func TestNoiseRangeAndMean(t *testing.T) {
	n := NewNoiseSource(false)
	const count = 200000
	var sum float64
	for i := 0; i < count; i++ {
		v := n.Step()
		if v < -1.0 || v >= 1.0 {
			t.Fatalf("sample %d out of range: %v", i, v)
		}
		sum += v
	}
	if mean := sum / count; math.Abs(mean) > 0.02 {
		t.Fatalf("mean %v too far from zero", mean)
	}
}

func TestNoiseResetRestartsSequence(t *testing.T) {
	n := NewNoiseSource(true)
	first := n.Step()
	for i := 0; i < 100; i++ {
		n.Step()
	}
	n.Reset()
	if v := n.Step(); v != first {
		t.Fatalf("after reset got %v, want %v", v, first)
	}
}
