package frontend

import "github.com/tgeczy/NVSpeechPlayer/internal/pack"

// runTiming assigns durations and fades from the pack's per-class tables,
// scales them by stress and speed, applies the length-mark multiplier, and
// inserts the silence micro-gaps: stop closures, cluster gaps, and vowel
// hiatus gaps. Post-stop aspiration tokens are inserted here too.
func runTiming(ctx *Context, tokens []*Token) ([]*Token, error) {
	s := &ctx.Pack.Lang.Settings

	baseSpeed := ctx.Speed
	speed := baseSpeed
	var last *Token

	for i, tok := range tokens {
		if tok.SyllableStart {
			switch tok.Stress {
			case StressPrimary:
				speed = baseSpeed / divisor(s.StressPrimarySpeedDiv)
			case StressSecondary:
				speed = baseSpeed / divisor(s.StressSecondarySpeedDiv)
			default:
				speed = baseSpeed
			}
		}

		var next *Token
		if i+1 < len(tokens) {
			next = tokens[i+1]
		}

		dur := s.DurationVoicedConsonantMs / speed
		fade := s.DefaultFadeMs / speed

		switch {
		case tok.PostStopAspiration:
			dur = s.DurationPostStopAspirationMs / speed
		case tok.Def.Is(pack.FlagTap):
			dur = minf(s.DurationTapMs/speed, s.DurationTapMs)
			fade = 0.001
		case tok.Def.Is(pack.FlagTrill):
			dur = s.DurationTrillMs / speed
			fade = 0.001
		case tok.Def.Is(pack.FlagStop):
			dur = minf(s.DurationStopMs/speed, s.DurationStopMs)
			fade = 0.001
		case tok.Def.Is(pack.FlagAffricate):
			dur = s.DurationAffricateMs / speed
			fade = 0.001
		case !tok.isVoiced():
			dur = s.DurationFricativeMs / speed
		case tok.isVowel():
			dur = s.DurationVowelMs / speed
			if last != nil && (last.isLiquid() || last.isSemivowel()) {
				fade = s.VowelAfterLiquidFadeMs / speed
			}
			switch {
			case tok.TiedTo:
				dur = s.DurationTiedVowelFirstMs / speed
			case tok.TiedFrom:
				dur = s.DurationTiedVowelSecondMs / speed
			case tok.Stress == StressNone && !tok.SyllableStart && next != nil && !next.WordStart:
				if next.isLiquid() {
					dur = s.DurationVowelBeforeLiquidMs / speed
				} else if next.isNasal() {
					dur = s.DurationVowelBeforeNasalMs / speed
				}
			}
		default:
			// Voiced non-vowel: nasals, liquids, semivowels, voiced fricatives.
			if tok.isLiquid() || tok.isSemivowel() {
				fade = s.LiquidFadeMs / speed
			}
		}

		if tok.Lengthened {
			dur *= s.LengthenedMultiplier
		}
		if tok.isVowel() && dur < s.MinVowelDurationMs {
			dur = s.MinVowelDurationMs
		}

		tok.DurationMs = dur
		tok.FadeMs = fade
		tok.clampFade()
		last = tok
	}

	return insertGaps(ctx, tokens), nil
}

// insertGaps walks the timed tokens and interleaves the silence micro-gaps
// and aspiration tokens.
func insertGaps(ctx *Context, tokens []*Token) []*Token {
	s := &ctx.Pack.Lang.Settings
	speed := ctx.Speed

	out := make([]*Token, 0, len(tokens)+4)
	var prev *Token
	for _, tok := range tokens {
		if prev != nil && !prev.isSilenceOrMissing() && !tok.isSilenceOrMissing() {
			switch {
			case tok.isStopLike() && !tok.PostStopAspiration && s.StopClosureMode == "always":
				out = append(out, silenceToken(s.DurationPreStopGapMs/speed, markPreStop))
			case samePlaceObstruents(prev, tok):
				out = append(out, silenceToken(s.DurationClusterGapMs/speed, markCluster))
			case prev.isVowel() && tok.isVowel() && tok.WordStart:
				out = append(out, silenceToken(s.DurationVowelHiatusGapMs/speed, markHiatus))
			}
		}
		out = append(out, tok)
		prev = tok
	}

	if !s.PostStopAspirationEnabled {
		return out
	}
	return insertAspiration(ctx, out)
}

func insertAspiration(ctx *Context, tokens []*Token) []*Token {
	s := &ctx.Pack.Lang.Settings
	rel := ctx.Pack.Phoneme("h")
	if rel == nil {
		return tokens
	}
	out := make([]*Token, 0, len(tokens)+2)
	for i, tok := range tokens {
		if i > 0 {
			prev := tokens[i-1]
			if prev.Def != nil && prev.Def.Is(pack.FlagStop) && !prev.isVoiced() &&
				tok.Def != nil && tok.isVoiced() &&
				!tok.Def.Is(pack.FlagStop) && !tok.Def.Is(pack.FlagAffricate) {
				asp := &Token{
					Def:                rel,
					PostStopAspiration: true,
					DurationMs:         s.DurationPostStopAspirationMs / ctx.Speed,
					FadeMs:             0.001,
					ToneStart:          -1,
					ToneEnd:            -1,
				}
				out = append(out, asp)
			}
		}
		out = append(out, tok)
	}
	return out
}

type silenceMark int

const (
	markPreStop silenceMark = iota
	markCluster
	markHiatus
)

func silenceToken(durationMs float64, mark silenceMark) *Token {
	t := &Token{
		Silence:    true,
		DurationMs: durationMs,
		FadeMs:     0.001,
		ToneStart:  -1,
		ToneEnd:    -1,
	}
	switch mark {
	case markPreStop:
		t.PreStopGap = true
	case markCluster:
		t.ClusterGap = true
	case markHiatus:
		t.VowelHiatusGap = true
	}
	return t
}

// samePlaceObstruents reports whether two adjacent consonants share a place
// of articulation and both carry an obstruent source.
func samePlaceObstruents(a, b *Token) bool {
	if !a.isConsonant() || !b.isConsonant() {
		return false
	}
	if a.isNasal() || b.isNasal() || a.isLiquid() || b.isLiquid() ||
		a.isSemivowel() || b.isSemivowel() {
		return false
	}
	pa, pb := a.place(), b.place()
	return pa != placeUnknown && pa == pb
}

func divisor(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return v
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
