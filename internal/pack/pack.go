// Package pack loads and merges language packs: a phoneme definition table
// plus layered per-language tuning. A merged Set is immutable after load and
// is shared read-only by every synthesis call.
package pack

import (
	"github.com/tgeczy/NVSpeechPlayer/internal/dsp"
)

// Flags classify a phoneme by manner of articulation.
type Flags uint16

const (
	FlagVowel Flags = 1 << iota
	FlagVoiced
	FlagStop
	FlagNasal
	FlagLiquid
	FlagSemivowel
	FlagTap
	FlagTrill
	FlagAffricate
	FlagCopyAdjacent
)

var flagNames = map[string]Flags{
	"_isVowel":      FlagVowel,
	"_isVoiced":     FlagVoiced,
	"_isStop":       FlagStop,
	"_isNasal":      FlagNasal,
	"_isLiquid":     FlagLiquid,
	"_isSemivowel":  FlagSemivowel,
	"_isTap":        FlagTap,
	"_isTrill":      FlagTrill,
	"_isAfricate":   FlagAffricate,
	"_copyAdjacent": FlagCopyAdjacent,
}

// PhonemeDef is one phoneme definition, keyed by its Unicode scalar sequence.
type PhonemeDef struct {
	Key    string
	Flags  Flags
	Fields dsp.FieldVector
}

// Is reports whether all given flags are set.
func (d *PhonemeDef) Is(f Flags) bool { return d.Flags&f == f }

// ReplacementGuard restricts where a normalization replacement applies.
type ReplacementGuard struct {
	BeforeClass string `yaml:"beforeClass"`
	AfterClass  string `yaml:"afterClass"`
	WordInitial bool   `yaml:"wordInitial"`
	WordFinal   bool   `yaml:"wordFinal"`
}

// Replacement is one ordered normalization rule.
type Replacement struct {
	From string            `yaml:"from"`
	To   string            `yaml:"to"`
	When *ReplacementGuard `yaml:"when"`
}

// Normalization holds symbol classes and the ordered replacement list.
// Layers append replacements and merge classes by name.
type Normalization struct {
	Classes      map[string][]string
	Replacements []Replacement
}

// Contour describes one clause-type intonation shape. Values are pitch
// percentages; 50 maps to the base pitch, the spread is shaped by the
// caller's inflection parameter.
type Contour struct {
	PreHeadStart                float64   `yaml:"preHeadStart"`
	PreHeadEnd                  float64   `yaml:"preHeadEnd"`
	HeadExtendFrom              int       `yaml:"headExtendFrom"`
	HeadStart                   float64   `yaml:"headStart"`
	HeadEnd                     float64   `yaml:"headEnd"`
	HeadSteps                   []float64 `yaml:"headSteps"`
	HeadStressEndDelta          float64   `yaml:"headStressEndDelta"`
	HeadUnstressedRunStartDelta float64   `yaml:"headUnstressedRunStartDelta"`
	HeadUnstressedRunEndDelta   float64   `yaml:"headUnstressedRunEndDelta"`
	Nucleus0Start               float64   `yaml:"nucleus0Start"`
	Nucleus0End                 float64   `yaml:"nucleus0End"`
	NucleusStart                float64   `yaml:"nucleusStart"`
	NucleusEnd                  float64   `yaml:"nucleusEnd"`
	TailStart                   float64   `yaml:"tailStart"`
	TailEnd                     float64   `yaml:"tailEnd"`
}

// Intonation groups the clause contours with the stress boosts and, for tonal
// languages, the tone letter pitch levels.
type Intonation struct {
	Contours             map[string]Contour `yaml:"contours"`
	StressPitchBoost     float64            `yaml:"stressPitchBoost"`
	StressAmplitudeBoost float64            `yaml:"stressAmplitudeBoost"`
	ToneLevels           map[string]float64 `yaml:"toneLevels"`
}

// Settings carries every tunable numeric knob a pass reads. All durations are
// milliseconds at speed 1.0.
type Settings struct {
	StopClosureMode           string  `yaml:"stopClosureMode"`
	PostStopAspirationEnabled bool    `yaml:"postStopAspirationEnabled"`
	Tonal                     bool    `yaml:"tonal"`
	SegmentBoundaryGapMs      float64 `yaml:"segmentBoundaryGapMs"`
	SegmentBoundaryFadeMs     float64 `yaml:"segmentBoundaryFadeMs"`

	DurationVowelMs              float64 `yaml:"durationVowelMs"`
	DurationStopMs               float64 `yaml:"durationStopMs"`
	DurationTapMs                float64 `yaml:"durationTapMs"`
	DurationTrillMs              float64 `yaml:"durationTrillMs"`
	DurationAffricateMs          float64 `yaml:"durationAffricateMs"`
	DurationFricativeMs          float64 `yaml:"durationFricativeMs"`
	DurationVoicedConsonantMs    float64 `yaml:"durationVoicedConsonantMs"`
	DurationVowelBeforeLiquidMs  float64 `yaml:"durationVowelBeforeLiquidMs"`
	DurationVowelBeforeNasalMs   float64 `yaml:"durationVowelBeforeNasalMs"`
	DurationTiedVowelFirstMs     float64 `yaml:"durationTiedVowelFirstMs"`
	DurationTiedVowelSecondMs    float64 `yaml:"durationTiedVowelSecondMs"`
	DurationPreStopGapMs         float64 `yaml:"durationPreStopGapMs"`
	DurationPostStopAspirationMs float64 `yaml:"durationPostStopAspirationMs"`
	DurationClusterGapMs         float64 `yaml:"durationClusterGapMs"`
	DurationVowelHiatusGapMs     float64 `yaml:"durationVowelHiatusGapMs"`
	MinVowelDurationMs           float64 `yaml:"minVowelDurationMs"`
	LengthenedMultiplier         float64 `yaml:"lengthenedMultiplier"`

	DefaultFadeMs          float64 `yaml:"defaultFadeMs"`
	LiquidFadeMs           float64 `yaml:"liquidFadeMs"`
	VowelAfterLiquidFadeMs float64 `yaml:"vowelAfterLiquidFadeMs"`

	StressPrimarySpeedDiv   float64 `yaml:"stressPrimarySpeedDiv"`
	StressSecondarySpeedDiv float64 `yaml:"stressSecondarySpeedDiv"`

	BoundarySmoothingEnabled           bool    `yaml:"boundarySmoothingEnabled"`
	BoundarySmoothingVowelToStopFadeMs float64 `yaml:"boundarySmoothingVowelToStopFadeMs"`
	BoundarySmoothingStopToVowelFadeMs float64 `yaml:"boundarySmoothingStopToVowelFadeMs"`
	BoundarySmoothingVowelToFricFadeMs float64 `yaml:"boundarySmoothingVowelToFricFadeMs"`
	BoundarySmoothingMaxSkipSilenceMs  float64 `yaml:"boundarySmoothingMaxSkipSilenceMs"`

	CoarticulationEnabled              bool    `yaml:"coarticulationEnabled"`
	CoarticulationStrength             float64 `yaml:"coarticulationStrength"`
	CoarticulationTransitionExtent     float64 `yaml:"coarticulationTransitionExtent"`
	CoarticulationGraduated            bool    `yaml:"coarticulationGraduated"`
	CoarticulationCrossWord            bool    `yaml:"coarticulationCrossWord"`
	CoarticulationFadeIntoConsonants   bool    `yaml:"coarticulationFadeIntoConsonants"`
	CoarticulationMaxConsonants        int     `yaml:"coarticulationMaxConsonants"`
	CoarticulationLabialF2Locus        float64 `yaml:"coarticulationLabialF2Locus"`
	CoarticulationAlveolarF2Locus      float64 `yaml:"coarticulationAlveolarF2Locus"`
	CoarticulationVelarF2Locus         float64 `yaml:"coarticulationVelarF2Locus"`
	CoarticulationVelarPinchEnabled    bool    `yaml:"coarticulationVelarPinchEnabled"`
	CoarticulationVelarPinchThreshold  float64 `yaml:"coarticulationVelarPinchThreshold"`
	CoarticulationVelarPinchF2Scale    float64 `yaml:"coarticulationVelarPinchF2Scale"`
	CoarticulationVelarPinchF3         float64 `yaml:"coarticulationVelarPinchF3"`
	CoarticulationWordInitialFadeScale float64 `yaml:"coarticulationWordInitialFadeScale"`

	TrajectoryLimitEnabled    bool     `yaml:"trajectoryLimitEnabled"`
	TrajectoryMaxSlopeHzPerMs float64  `yaml:"trajectoryMaxSlopeHzPerMs"`
	TrajectoryFormants        []string `yaml:"trajectoryFormants"`
}

// LanguagePack is the merged per-language tuning record.
type LanguagePack struct {
	Settings      Settings
	Normalization Normalization
	Aliases       map[string]string
	Intonation    Intonation
}

// Set is a merged, immutable pack: the phoneme table plus the language pack.
type Set struct {
	Tag      string
	Phonemes map[string]*PhonemeDef
	Lang     LanguagePack
}

// Phoneme resolves a key, following the alias map first.
func (s *Set) Phoneme(key string) *PhonemeDef {
	if alias, ok := s.Lang.Aliases[key]; ok {
		key = alias
	}
	return s.Phonemes[key]
}
