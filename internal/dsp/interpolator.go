package dsp

// amplitude fields that fade toward zero when the incoming frame is silence.
var silenceFadeFields = [...]FieldID{
	FieldVoiceAmplitude,
	FieldAspirationAmplitude,
	FieldFricationAmplitude,
}

// FrameInterpolator holds the current frame and an incoming frame with a fade
// budget in samples. During the fade each numeric field is linearly
// interpolated; afterwards the incoming frame becomes current. A silence
// incoming frame only fades the source amplitudes to zero and freezes the
// rest, so formants do not sweep through garbage on the way out.
type FrameInterpolator struct {
	current        Frame
	currentSilence bool

	incoming        Frame
	incomingSilence bool

	fadeTotal int
	fadePos   int
	fading    bool

	eff Frame
}

func NewFrameInterpolator() *FrameInterpolator {
	return &FrameInterpolator{currentSilence: true}
}

// SetIncoming installs the next frame. frame == nil denotes silence.
func (fi *FrameInterpolator) SetIncoming(frame *Frame, fadeSamples int) {
	if frame == nil {
		fi.incomingSilence = true
		fi.incoming = fi.current
		for _, id := range silenceFadeFields {
			fi.incoming.Field[id] = 0
		}
	} else {
		fi.incomingSilence = false
		fi.incoming = *frame
	}

	if fadeSamples <= 0 || (fi.currentSilence && fi.incomingSilence) {
		fi.finishFade()
		return
	}

	if fi.currentSilence && !fi.incomingSilence {
		// Coming out of silence: snap the filter targets, fade only the
		// source amplitudes up from zero.
		base := fi.incoming
		for _, id := range silenceFadeFields {
			base.Field[id] = 0
		}
		fi.current = base
		fi.currentSilence = false
	}

	fi.fadeTotal = fadeSamples
	fi.fadePos = 0
	fi.fading = true
}

// Step advances the fade by one sample.
func (fi *FrameInterpolator) Step() {
	if !fi.fading {
		return
	}
	fi.fadePos++
	if fi.fadePos >= fi.fadeTotal {
		fi.finishFade()
		return
	}
	t := float64(fi.fadePos) / float64(fi.fadeTotal)
	for i := FieldID(0); i < NumFields; i++ {
		a := fi.current.Field[i]
		fi.eff.Field[i] = a + (fi.incoming.Field[i]-a)*t
	}
}

func (fi *FrameInterpolator) finishFade() {
	fi.current = fi.incoming
	fi.currentSilence = fi.incomingSilence
	fi.fading = false
	fi.fadePos = 0
	fi.fadeTotal = 0
}

// Current returns the effective per-sample parameter vector.
func (fi *FrameInterpolator) Current() *Frame {
	if fi.fading {
		return &fi.eff
	}
	return &fi.current
}

// Silent reports whether the interpolator has fully settled on silence.
func (fi *FrameInterpolator) Silent() bool {
	return fi.currentSilence && !fi.fading
}

// Fading reports whether a crossfade is in progress.
func (fi *FrameInterpolator) Fading() bool {
	return fi.fading
}
