package frontend

import (
	"math"

	"github.com/tgeczy/NVSpeechPlayer/internal/dsp"
	"github.com/tgeczy/NVSpeechPlayer/internal/pack"
)

// runIntonation assigns voicePitch/endVoicePitch from the clause-type
// contour, boosts stressed syllables, and overlays per-syllable tone
// contours for tonal languages. The clause contour splits the utterance into
// pre-head, head, nucleus, and tail regions; each region gets a linear pitch
// path through the contour's percentage targets.
func runIntonation(ctx *Context, tokens []*Token) ([]*Token, error) {
	into := &ctx.Pack.Lang.Intonation
	if len(into.Contours) == 0 || len(tokens) == 0 {
		return tokens, nil
	}
	contour, ok := into.Contours[string(rune(ctx.ClauseType))]
	if !ok {
		contour, ok = into.Contours["."]
		if !ok {
			return tokens, nil
		}
	}

	base := ctx.BasePitch
	infl := ctx.Inflection

	// Pre-head: everything before the first primary-stressed syllable. With
	// no stress anywhere, the last syllable becomes the nucleus so clause
	// types still get distinct endings.
	preHeadEnd := len(tokens)
	for i, t := range tokens {
		if t.SyllableStart && t.Stress == StressPrimary {
			preHeadEnd = i
			break
		}
	}
	if preHeadEnd == len(tokens) {
		lastSyllable := -1
		for i, t := range tokens {
			if t.SyllableStart {
				lastSyllable = i
			}
		}
		if lastSyllable >= 0 {
			if lastSyllable > 0 {
				applyPitchPath(tokens, 0, lastSyllable, base, infl, contour.PreHeadStart, contour.PreHeadEnd)
			}
			applyPitchPath(tokens, lastSyllable, len(tokens), base, infl, contour.Nucleus0Start, contour.Nucleus0End)
		}
		applyStressBoosts(into, tokens)
		if ctx.Pack.Lang.Settings.Tonal {
			applyToneOverlay(tokens, base, infl)
		}
		return tokens, nil
	}
	if preHeadEnd > 0 {
		applyPitchPath(tokens, 0, preHeadEnd, base, infl, contour.PreHeadStart, contour.PreHeadEnd)
	}

	// Nucleus: the last primary-stressed syllable; tail: whatever follows it.
	nucleusStart, nucleusEnd := len(tokens), len(tokens)
	tailStart, tailEnd := len(tokens), len(tokens)
	for i := nucleusEnd - 1; i >= preHeadEnd; i-- {
		t := tokens[i]
		if !t.SyllableStart {
			continue
		}
		if t.Stress == StressPrimary {
			nucleusStart = i
			break
		}
		nucleusEnd = i
		tailStart = i
	}
	hasTail := tailEnd > tailStart
	if hasTail {
		applyPitchPath(tokens, tailStart, tailEnd, base, infl, contour.TailStart, contour.TailEnd)
	}
	if nucleusEnd > nucleusStart {
		if hasTail {
			applyPitchPath(tokens, nucleusStart, nucleusEnd, base, infl, contour.NucleusStart, contour.NucleusEnd)
		} else {
			applyPitchPath(tokens, nucleusStart, nucleusEnd, base, infl, contour.Nucleus0Start, contour.Nucleus0End)
		}
	}

	// Head: stressed syllables step down through headSteps, unstressed runs
	// hang off the last stress.
	if preHeadEnd < nucleusStart {
		nextStep := headStepper(contour)
		lastStressStart := -1
		lastUnstressedRunStart := -1
		stressEndPitch := 0.0
		for i := preHeadEnd; i <= nucleusStart && i < len(tokens); i++ {
			t := tokens[i]
			if !t.SyllableStart {
				continue
			}
			if lastStressStart >= 0 {
				stressStartPitch := contour.HeadEnd + ((contour.HeadStart-contour.HeadEnd)/100.0)*nextStep()
				stressEndPitch = stressStartPitch + contour.HeadStressEndDelta
				applyPitchPath(tokens, lastStressStart, i, base, infl, stressStartPitch, stressEndPitch)
				lastStressStart = -1
			}
			if t.Stress == StressPrimary {
				if lastUnstressedRunStart >= 0 {
					applyPitchPath(tokens, lastUnstressedRunStart, i, base, infl,
						stressEndPitch+contour.HeadUnstressedRunStartDelta,
						stressEndPitch+contour.HeadUnstressedRunEndDelta)
					lastUnstressedRunStart = -1
				}
				lastStressStart = i
			} else if lastUnstressedRunStart < 0 {
				lastUnstressedRunStart = i
			}
		}
	}

	applyStressBoosts(into, tokens)

	if ctx.Pack.Lang.Settings.Tonal {
		applyToneOverlay(tokens, base, infl)
	}
	return tokens, nil
}

// headStepper yields the head step percentages: the configured list first,
// then cycling its tail from headExtendFrom.
func headStepper(c pack.Contour) func() float64 {
	steps := c.HeadSteps
	if len(steps) == 0 {
		return func() float64 { return 0 }
	}
	extend := c.HeadExtendFrom
	if extend < 0 || extend >= len(steps) {
		extend = 0
	}
	i := 0
	return func() float64 {
		if i < len(steps) {
			v := steps[i]
			i++
			return v
		}
		cyc := steps[extend:]
		v := cyc[(i-len(steps))%len(cyc)]
		i++
		return v
	}
}

// applyPitchPath sets a linear pitch path over tokens[start:end]. Percentages
// map to Hz via basePitch * 2^(((pct-50)/50) * inflection); the path advances
// with voiced duration so pauses do not consume pitch range.
func applyPitchPath(tokens []*Token, start, end int, basePitch, inflection, startPct, endPct float64) {
	startPitch := pitchFromPercent(basePitch, inflection, startPct)
	endPitch := pitchFromPercent(basePitch, inflection, endPct)

	var voicedDuration float64
	for i := start; i < end; i++ {
		if tokens[i].isVoiced() {
			voicedDuration += tokens[i].DurationMs
		}
	}

	cur := startPitch
	var elapsed float64
	delta := endPitch - startPitch
	for i := start; i < end; i++ {
		t := tokens[i]
		if t.Silence {
			continue
		}
		t.setField(dsp.FieldVoicePitch, cur)
		if t.isVoiced() && voicedDuration > 0 {
			elapsed += t.DurationMs
			cur = startPitch + delta*(elapsed/voicedDuration)
		}
		t.setField(dsp.FieldEndVoicePitch, cur)
	}
}

func pitchFromPercent(basePitch, inflection, pct float64) float64 {
	return basePitch * math.Pow(2, ((pct-50)/50.0)*inflection)
}

// applyStressBoosts lifts pitch and voicing amplitude across each
// primary-stressed syllable.
func applyStressBoosts(into *pack.Intonation, tokens []*Token) {
	if into.StressPitchBoost <= 0 && into.StressAmplitudeBoost <= 0 {
		return
	}
	pitchScale := 1 + into.StressPitchBoost
	ampScale := 1 + into.StressAmplitudeBoost

	inStressed := false
	for _, t := range tokens {
		if t.SyllableStart {
			inStressed = t.Stress == StressPrimary
		}
		if !inStressed || t.Silence || !t.isVoiced() {
			continue
		}
		if t.Fields.Has(dsp.FieldVoicePitch) {
			t.setField(dsp.FieldVoicePitch, t.Fields.Get(dsp.FieldVoicePitch)*pitchScale)
		}
		if t.Fields.Has(dsp.FieldEndVoicePitch) {
			t.setField(dsp.FieldEndVoicePitch, t.Fields.Get(dsp.FieldEndVoicePitch)*pitchScale)
		}
		if ampScale > 1 {
			amp := t.fieldValue(dsp.FieldVoiceAmplitude) * ampScale
			if amp > 1 {
				amp = 1
			}
			t.setField(dsp.FieldVoiceAmplitude, amp)
		}
	}
}

// applyToneOverlay replaces the clause pitch with per-syllable tone contours
// wherever tone letters were attached.
func applyToneOverlay(tokens []*Token, basePitch, inflection float64) {
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if !t.SyllableStart {
			continue
		}
		end := len(tokens)
		for j := i + 1; j < len(tokens); j++ {
			if tokens[j].SyllableStart {
				end = j
				break
			}
		}
		// Tone letters land on the last token of the syllable during
		// tokenization; pick up whichever token carries them.
		toneStart, toneEnd := -1.0, -1.0
		for j := i; j < end; j++ {
			if tokens[j].ToneStart >= 0 {
				toneStart = tokens[j].ToneStart
				toneEnd = tokens[j].ToneEnd
			}
		}
		if toneStart >= 0 {
			if toneEnd < 0 {
				toneEnd = toneStart
			}
			applyPitchPath(tokens, i, end, basePitch, inflection, toneStart, toneEnd)
		}
		i = end - 1
	}
}
