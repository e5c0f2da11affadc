package dsp

import "testing"

func TestInterpolatorCrossfade(t *testing.T) {
	fi := NewFrameInterpolator()

	var a Frame
	a.Field[FieldCF1] = 700
	a.Field[FieldVoiceAmplitude] = 1
	fi.SetIncoming(&a, 0)
	if fi.Silent() {
		t.Fatal("interpolator silent after instant frame install")
	}

	var b Frame
	b.Field[FieldCF1] = 300
	b.Field[FieldVoiceAmplitude] = 1
	fi.SetIncoming(&b, 100)

	fi.Step()
	mid := fi.Current().Field[FieldCF1]
	if mid >= 700 || mid <= 300 {
		t.Fatalf("cf1 %v not between endpoints after one step", mid)
	}
	for i := 0; i < 100; i++ {
		fi.Step()
	}
	if got := fi.Current().Field[FieldCF1]; got != 300 {
		t.Fatalf("cf1 %v after fade, want 300", got)
	}
	if fi.Fading() {
		t.Fatal("still fading after budget elapsed")
	}
}

func TestInterpolatorSilenceFreezesFilterFields(t *testing.T) {
	fi := NewFrameInterpolator()

	var a Frame
	a.Field[FieldCF1] = 700
	a.Field[FieldVoiceAmplitude] = 1
	a.Field[FieldAspirationAmplitude] = 0.5
	fi.SetIncoming(&a, 0)

	fi.SetIncoming(nil, 50)
	for i := 0; i < 25; i++ {
		fi.Step()
	}
	f := fi.Current()
	// Mid-fade: amplitudes head to zero, formants hold.
	if f.Field[FieldVoiceAmplitude] >= 1 || f.Field[FieldVoiceAmplitude] <= 0 {
		t.Fatalf("voice amplitude %v not mid-fade", f.Field[FieldVoiceAmplitude])
	}
	if f.Field[FieldCF1] != 700 {
		t.Fatalf("cf1 %v changed during silence fade", f.Field[FieldCF1])
	}

	for i := 0; i < 30; i++ {
		fi.Step()
	}
	if !fi.Silent() {
		t.Fatal("not silent after silence fade completes")
	}
	if fi.Current().Field[FieldVoiceAmplitude] != 0 {
		t.Fatal("voice amplitude nonzero after silence fade")
	}
}
