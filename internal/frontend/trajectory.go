package frontend

import (
	"fmt"

	"github.com/tgeczy/NVSpeechPlayer/internal/dsp"
)

// runTrajectoryLimit caps how fast the selected formants may move between
// consecutive non-silence tokens by raising the incoming token's crossfade:
// a jump of |Δf| Hz needs at least |Δf|/maxSlope ms of fade.
func runTrajectoryLimit(ctx *Context, tokens []*Token) ([]*Token, error) {
	lang := &ctx.Pack.Lang.Settings
	if !lang.TrajectoryLimitEnabled || lang.TrajectoryMaxSlopeHzPerMs <= 0 {
		return tokens, nil
	}

	formants := make([]dsp.FieldID, 0, len(lang.TrajectoryFormants))
	for _, name := range lang.TrajectoryFormants {
		id, ok := dsp.FieldByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown trajectory formant %q", name)
		}
		formants = append(formants, id)
	}
	if len(formants) == 0 {
		return tokens, nil
	}

	var prev *Token
	for _, cur := range tokens {
		if cur.isSilenceOrMissing() {
			prev = nil
			continue
		}
		if prev != nil {
			for _, id := range formants {
				a, b := prev.fieldValue(id), cur.fieldValue(id)
				if a <= 0 || b <= 0 {
					continue
				}
				delta := b - a
				if delta < 0 {
					delta = -delta
				}
				raiseFade(cur, delta/lang.TrajectoryMaxSlopeHzPerMs)
			}
		}
		prev = cur
	}
	return tokens, nil
}
