// Package frontend converts IPA text into timed Klatt parameter frames: a
// tokenizer, an ordered pass pipeline, and a frame emitter, all driven by a
// merged language pack.
package frontend

import (
	"github.com/tgeczy/NVSpeechPlayer/internal/dsp"
	"github.com/tgeczy/NVSpeechPlayer/internal/pack"
)

// Stress levels.
const (
	StressNone      = 0
	StressPrimary   = 1
	StressSecondary = 2
)

// Token is one in-pipeline phoneme instance. Tokens are created by the
// tokenizer, mutated by the passes in order, and destroyed after emission;
// they never escape the call.
type Token struct {
	Def     *pack.PhonemeDef
	Silence bool

	WordStart     bool
	SyllableStart bool
	ClauseEnd     bool
	Stress        int
	Lengthened    bool
	TiedTo        bool
	TiedFrom      bool

	// Tone letters attached to this syllable, as pitch percentages. -1 when
	// unset.
	ToneStart float64
	ToneEnd   float64

	DurationMs float64
	FadeMs     float64

	// Sparse per-token field overrides; set bits win over the definition.
	Fields dsp.FieldVector

	// Markers for silences inserted by the timing pass.
	PreStopGap         bool
	ClusterGap         bool
	VowelHiatusGap     bool
	PostStopAspiration bool
}

func (t *Token) isSilenceOrMissing() bool { return t.Silence || t.Def == nil }

func (t *Token) isVowel() bool { return t.Def != nil && t.Def.Is(pack.FlagVowel) }

func (t *Token) isVoiced() bool { return t.Def != nil && t.Def.Is(pack.FlagVoiced) }

func (t *Token) isConsonant() bool {
	return t.Def != nil && !t.Silence && !t.Def.Is(pack.FlagVowel)
}

func (t *Token) isSemivowel() bool { return t.Def != nil && t.Def.Is(pack.FlagSemivowel) }

func (t *Token) isLiquid() bool { return t.Def != nil && t.Def.Is(pack.FlagLiquid) }

func (t *Token) isNasal() bool { return t.Def != nil && t.Def.Is(pack.FlagNasal) }

func (t *Token) isVowelLike() bool { return t.isVowel() || t.isSemivowel() }

func (t *Token) isStopLike() bool {
	if t.Def == nil || t.Silence {
		return false
	}
	// Post-stop aspiration counts as part of the stop release.
	if t.PostStopAspiration {
		return true
	}
	return t.Def.Is(pack.FlagStop) || t.Def.Is(pack.FlagAffricate)
}

// isFricativeLike reports whether the token's effective frication amplitude
// is non-zero.
func (t *Token) isFricativeLike() bool {
	if t.Def == nil || t.Silence {
		return false
	}
	return t.fieldValue(dsp.FieldFricationAmplitude) > 0
}

// fieldValue resolves a field: token override first, then the definition.
func (t *Token) fieldValue(id dsp.FieldID) float64 {
	if t.Fields.Has(id) {
		return t.Fields.Values[id]
	}
	if t.Def != nil && t.Def.Fields.Has(id) {
		return t.Def.Fields.Values[id]
	}
	return 0
}

func (t *Token) setField(id dsp.FieldID, v float64) { t.Fields.Set(id, v) }

func (t *Token) clampFade() {
	if t.DurationMs < 0 {
		t.DurationMs = 0
	}
	if t.FadeMs < 0 {
		t.FadeMs = 0
	}
	if t.FadeMs > t.DurationMs {
		t.FadeMs = t.DurationMs
	}
}

// Place of articulation, derived from the phoneme key.
type place int

const (
	placeUnknown place = iota
	placeLabial
	placeAlveolar
	placeVelar
)

var placeByKey = map[string]place{
	"p": placeLabial, "b": placeLabial, "m": placeLabial,
	"f": placeLabial, "v": placeLabial, "w": placeLabial, "ʍ": placeLabial,
	"t": placeAlveolar, "d": placeAlveolar, "n": placeAlveolar,
	"s": placeAlveolar, "z": placeAlveolar, "l": placeAlveolar,
	"r": placeAlveolar, "ɾ": placeAlveolar, "ɹ": placeAlveolar,
	"ɬ": placeAlveolar, "ɮ": placeAlveolar,
	"k": placeVelar, "g": placeVelar, "ŋ": placeVelar,
	"x": placeVelar, "ɣ": placeVelar,
}

func (t *Token) place() place {
	if t.Def == nil {
		return placeUnknown
	}
	return placeByKey[t.Def.Key]
}
