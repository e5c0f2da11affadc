package frontend

import (
	"github.com/tgeczy/NVSpeechPlayer/internal/dsp"
	"github.com/tgeczy/NVSpeechPlayer/internal/pack"
)

// vowelHit is the nearest vowel-like token on one side of a consonant.
// consonantsAway is 0 when immediately adjacent.
type vowelHit struct {
	tok            *Token
	consonantsAway int
}

func (h vowelHit) weight() float64 {
	if h.tok == nil {
		return 0
	}
	return 1.0 / (float64(h.consonantsAway) + 1.0)
}

// coarticulationTransparent tokens (inserted aspiration) copy their formants
// from a neighbor, so they neither block the vowel search nor count as a
// consonant in between.
func coarticulationTransparent(t *Token) bool {
	return t.PostStopAspiration || (t.Def != nil && t.Def.Is(pack.FlagCopyAdjacent))
}

func findVowelLeft(tokens []*Token, i int, crossWord bool, maxConsonants int) vowelHit {
	if !crossWord && tokens[i].WordStart {
		return vowelHit{}
	}
	cons := 0
	for j := i; j > 0; j-- {
		prev := tokens[j-1]
		if prev.isSilenceOrMissing() {
			break
		}
		if coarticulationTransparent(prev) {
			continue
		}
		if prev.isVowelLike() {
			return vowelHit{tok: prev, consonantsAway: cons}
		}
		cons++
		if cons > maxConsonants {
			break
		}
		if !crossWord && prev.WordStart {
			break
		}
	}
	return vowelHit{}
}

func findVowelRight(tokens []*Token, i int, crossWord bool, maxConsonants int) vowelHit {
	cons := 0
	for j := i + 1; j < len(tokens); j++ {
		next := tokens[j]
		if next.isSilenceOrMissing() {
			break
		}
		if !crossWord && next.WordStart {
			break
		}
		if coarticulationTransparent(next) {
			continue
		}
		if next.isVowelLike() {
			return vowelHit{tok: next, consonantsAway: cons}
		}
		cons++
		if cons > maxConsonants {
			break
		}
	}
	return vowelHit{}
}

// runCoarticulation shifts consonant F2 toward its place-of-articulation
// locus, scaled by how close the nearest vowel-like neighbor is, and applies
// velar pinch before front vowels. Optionally it lengthens the fade into
// consonants for smoother transitions.
func runCoarticulation(ctx *Context, tokens []*Token) ([]*Token, error) {
	lang := &ctx.Pack.Lang.Settings
	if !lang.CoarticulationEnabled {
		return tokens, nil
	}
	strength := clamp01(lang.CoarticulationStrength)
	if strength <= 0 {
		return tokens, nil
	}
	extent := clamp01(lang.CoarticulationTransitionExtent)
	maxCons := lang.CoarticulationMaxConsonants
	if maxCons < 0 {
		maxCons = 0
	} else if maxCons > 6 {
		maxCons = 6
	}

	for i, c := range tokens {
		if c.isSilenceOrMissing() || !c.isConsonant() {
			continue
		}

		var locusF2 float64
		switch c.place() {
		case placeLabial:
			locusF2 = lang.CoarticulationLabialF2Locus
		case placeAlveolar:
			locusF2 = lang.CoarticulationAlveolarF2Locus
		case placeVelar:
			locusF2 = lang.CoarticulationVelarF2Locus
		default:
			continue
		}

		left := findVowelLeft(tokens, i, lang.CoarticulationCrossWord, maxCons)
		right := findVowelRight(tokens, i, lang.CoarticulationCrossWord, maxCons)

		w := 1.0
		if lang.CoarticulationGraduated {
			w = maxf(left.weight(), right.weight())
			if w <= 0 {
				continue
			}
		}
		effStrength := strength * clamp01(w)

		// Nearest vowel wins; ties go right (anticipatory).
		var adjacent *Token
		if right.tok != nil && (left.tok == nil || right.consonantsAway <= left.consonantsAway) {
			adjacent = right.tok
		} else {
			adjacent = left.tok
		}

		if c.place() == placeVelar && lang.CoarticulationVelarPinchEnabled &&
			right.tok != nil && right.consonantsAway == 0 {
			applyVelarPinch(ctx, c, right.tok, effStrength)
		} else {
			applyLocusShift(c, dsp.FieldCF2, locusF2, effStrength, adjacent)
			applyLocusShift(c, dsp.FieldPF2, locusF2, effStrength, adjacent)
		}

		if lang.CoarticulationFadeIntoConsonants && extent > 0 && c.DurationMs > 0 {
			minFade := c.DurationMs * extent
			if lang.CoarticulationGraduated {
				minFade *= clamp01(w)
			}
			if c.WordStart {
				minFade *= lang.CoarticulationWordInitialFadeScale
			}
			if c.FadeMs < minFade {
				c.FadeMs = minFade
			}
			c.clampFade()
		}
	}
	return tokens, nil
}

// applyLocusShift interpolates one formant toward the locus. A consonant with
// no formant value of its own starts from the adjacent vowel's, or from the
// locus itself.
func applyLocusShift(c *Token, id dsp.FieldID, locus, strength float64, adjacent *Token) {
	current := c.fieldValue(id)
	if current <= 0 {
		if adjacent != nil {
			current = adjacent.fieldValue(id)
		}
		if current <= 0 {
			current = locus
		}
	}
	c.setField(id, current+(locus-current)*strength)
}

// applyVelarPinch converges F2 and F3 before a front vowel, which is what
// separates /ki/ from /ku/.
func applyVelarPinch(ctx *Context, c *Token, vowel *Token, strength float64) {
	lang := &ctx.Pack.Lang.Settings
	strength = clamp01(strength)
	if strength <= 0 {
		return
	}

	vowelF2 := vowel.fieldValue(dsp.FieldCF2)
	if vowelF2 <= 0 {
		vowelF2 = vowel.fieldValue(dsp.FieldPF2)
	}
	if vowelF2 < lang.CoarticulationVelarPinchThreshold {
		// Back vowel: no pinch.
		return
	}

	pinchF2 := vowelF2 * lang.CoarticulationVelarPinchF2Scale
	pinchF3 := lang.CoarticulationVelarPinchF3

	blend := func(id dsp.FieldID, target float64) {
		cur := c.fieldValue(id)
		if cur <= 0 {
			cur = target
		}
		c.setField(id, cur+(target-cur)*strength)
	}
	blend(dsp.FieldCF2, pinchF2)
	blend(dsp.FieldPF2, pinchF2)
	if pinchF3 > 0 {
		blend(dsp.FieldCF3, pinchF3)
		blend(dsp.FieldPF3, pinchF3)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
