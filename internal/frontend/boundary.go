package frontend

// runBoundarySmoothing raises the incoming token's fade to category-specific
// minimums at vowel/stop and vowel/fricative boundaries. The fade belongs to
// the incoming token, so the pass looks back for the nearest preceding real
// phoneme, skipping the inserted micro-gaps and short silences but never a
// real pause.
func runBoundarySmoothing(ctx *Context, tokens []*Token) ([]*Token, error) {
	lang := &ctx.Pack.Lang.Settings
	if !lang.BoundarySmoothingEnabled || len(tokens) < 2 {
		return tokens, nil
	}

	sp := ctx.Speed
	v2s := maxf(0, lang.BoundarySmoothingVowelToStopFadeMs) / sp
	s2v := maxf(0, lang.BoundarySmoothingStopToVowelFadeMs) / sp
	v2f := maxf(0, lang.BoundarySmoothingVowelToFricFadeMs) / sp
	maxSkip := lang.BoundarySmoothingMaxSkipSilenceMs

	for i, cur := range tokens {
		if cur.isSilenceOrMissing() {
			continue
		}
		prevIdx := findPrevReal(tokens, i-1, maxSkip)
		if prevIdx < 0 {
			continue
		}
		prev := tokens[prevIdx]

		switch {
		case v2s > 0 && prev.isVowelLike() && cur.isStopLike():
			raiseFade(cur, v2s)
		case s2v > 0 && prev.isStopLike() && cur.isVowelLike():
			raiseFade(cur, s2v)
		case v2f > 0 && prev.isVowelLike() && cur.isFricativeLike():
			raiseFade(cur, v2f)
		}
	}
	return tokens, nil
}

func raiseFade(t *Token, minFade float64) {
	if t.FadeMs < minFade {
		t.FadeMs = minFade
	}
	t.clampFade()
}

// findPrevReal returns the index of the nearest preceding non-silence token,
// or -1 when a real pause intervenes.
func findPrevReal(tokens []*Token, idxBefore int, maxSkipSilenceMs float64) int {
	for j := idxBefore; j >= 0; j-- {
		t := tokens[j]
		if !t.isSilenceOrMissing() {
			return j
		}
		if t.Silence {
			isMicroGap := t.PreStopGap || t.ClusterGap || t.VowelHiatusGap
			if !isMicroGap && t.DurationMs > maxSkipSilenceMs {
				break
			}
		}
	}
	return -1
}
