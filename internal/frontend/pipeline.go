package frontend

import (
	"errors"
	"fmt"

	"github.com/tgeczy/NVSpeechPlayer/internal/pack"
)

// ErrPassFailure wraps any pass error; the failing pass's name is in the
// message.
var ErrPassFailure = errors.New("frontend: pass failed")

// Context carries the per-call parameters shared by every pass. Passes may
// mutate the token slice but share no other state.
type Context struct {
	Pack       *pack.Set
	Speed      float64
	BasePitch  float64
	Inflection float64
	ClauseType byte
}

type passFunc func(ctx *Context, tokens []*Token) ([]*Token, error)

// The pipeline order is fixed: timing decides durations and inserts gaps,
// coarticulation and smoothing shape transitions, trajectory limiting caps
// formant velocity, intonation assigns pitch last.
var passes = []struct {
	name string
	fn   passFunc
}{
	{"timing", runTiming},
	{"coarticulation", runCoarticulation},
	{"boundarySmoothing", runBoundarySmoothing},
	{"trajectoryLimit", runTrajectoryLimit},
	{"intonation", runIntonation},
}

// RunPasses executes every pass in order. The first failure aborts the call.
func RunPasses(ctx *Context, tokens []*Token) ([]*Token, error) {
	if ctx.Speed <= 0 {
		ctx.Speed = 1.0
	}
	var err error
	for _, p := range passes {
		tokens, err = p.fn(ctx, tokens)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrPassFailure, p.name, err)
		}
	}
	return tokens, nil
}
