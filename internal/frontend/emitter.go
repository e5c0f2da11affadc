package frontend

import (
	"github.com/tgeczy/NVSpeechPlayer/internal/dsp"
	"github.com/tgeczy/NVSpeechPlayer/internal/pack"
)

// FrameCallback receives each emitted frame in order. frame == nil denotes
// silence.
type FrameCallback func(frame *dsp.Frame, minDurationMs, fadeMs float64, userIndex int)

// fields an adjacency-copying phoneme (aspiration) inherits from its
// neighbor: the vocal tract shape, never the source amplitudes.
func isTractField(id dsp.FieldID) bool {
	return (id >= dsp.FieldCF1 && id <= dsp.FieldCBNP) ||
		(id >= dsp.FieldPF1 && id <= dsp.FieldPB6)
}

// correctCopyAdjacent fills in formant targets for phonemes flagged
// _copyAdjacent (aspiration), preferring the following phoneme so the /h/ in
// "ha" already sits on the vowel's formants.
func correctCopyAdjacent(tokens []*Token) {
	for i, t := range tokens {
		if t.Def == nil || !t.Def.Is(pack.FlagCopyAdjacent) {
			continue
		}
		var adjacent *Token
		if i+1 < len(tokens) && !tokens[i+1].isSilenceOrMissing() {
			adjacent = tokens[i+1]
		} else if i > 0 && !tokens[i-1].isSilenceOrMissing() {
			adjacent = tokens[i-1]
		}
		if adjacent == nil {
			continue
		}
		for id := dsp.FieldID(0); id < dsp.NumFields; id++ {
			if !isTractField(id) || t.Fields.Has(id) || t.Def.Fields.Has(id) {
				continue
			}
			if v := adjacent.fieldValue(id); v != 0 {
				t.setField(id, v)
			}
		}
	}
}

// buildFrame resolves a token into a dense frame: override bits win, then the
// phoneme definition, then the emitter defaults for the gain stages.
func buildFrame(t *Token) dsp.Frame {
	var f dsp.Frame
	for id := dsp.FieldID(0); id < dsp.NumFields; id++ {
		switch {
		case t.Fields.Has(id):
			f.Field[id] = t.Fields.Values[id]
		case t.Def != nil && t.Def.Fields.Has(id):
			f.Field[id] = t.Def.Fields.Values[id]
		}
	}
	if !t.Fields.Has(dsp.FieldPreFormantGain) && (t.Def == nil || !t.Def.Fields.Has(dsp.FieldPreFormantGain)) {
		f.Field[dsp.FieldPreFormantGain] = 1.0
	}
	if !t.Fields.Has(dsp.FieldOutputGain) && (t.Def == nil || !t.Def.Fields.Has(dsp.FieldOutputGain)) {
		f.Field[dsp.FieldOutputGain] = 2.0
	}
	return f
}

// emitFrames walks the finished token stream and invokes cb once per token,
// tagging each frame with userIndexBase plus the token's position. It returns
// the token count, which is the number of frames emitted when cb is non-nil.
func emitFrames(tokens []*Token, userIndexBase int, cb FrameCallback) int {
	correctCopyAdjacent(tokens)
	if cb == nil {
		return len(tokens)
	}
	for i, t := range tokens {
		idx := userIndexBase + i
		if t.Silence {
			cb(nil, t.DurationMs, t.FadeMs, idx)
			continue
		}
		f := buildFrame(t)
		cb(&f, t.DurationMs, t.FadeMs, idx)
	}
	return len(tokens)
}
