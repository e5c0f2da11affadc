package pack

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tgeczy/NVSpeechPlayer/internal/dsp"
)

func writePack(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

const miniPhonemes = `
phonemes:
  a:
    _isVowel: true
    _isVoiced: true
    voiceAmplitude: 1.0
    cf1: 700
    cf2: 1200
  t:
    _isStop: true
    fricationAmplitude: 0.6
`

func TestTagChain(t *testing.T) {
	cases := []struct {
		tag  string
		want []string
	}{
		{"", []string{"default"}},
		{"en", []string{"default", "en"}},
		{"en_US", []string{"default", "en", "en-us"}},
		{"en-us-nyc", []string{"default", "en", "en-us", "en-us-nyc"}},
	}
	for _, tc := range cases {
		got := TagChain(tc.tag)
		if len(got) != len(tc.want) {
			t.Fatalf("TagChain(%q) = %v, want %v", tc.tag, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("TagChain(%q) = %v, want %v", tc.tag, got, tc.want)
			}
		}
	}
}

func TestLoadMergeOrder(t *testing.T) {
	dir := writePack(t, map[string]string{
		"phonemes.yaml": miniPhonemes,
		"lang/default.yaml": `
settings:
  durationVowelMs: 130
  segmentBoundaryGapMs: 20
`,
		"lang/en.yaml": `
settings:
  durationVowelMs: 120
aliases:
  r: ɹ
`,
		"lang/en-us.yaml": `
settings:
  segmentBoundaryGapMs: 25
`,
	})

	set, err := Load(dir, "en-US")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if set.Tag != "en-us" {
		t.Fatalf("tag %q, want en-us", set.Tag)
	}
	// en overrides the vowel duration, en-us overrides the gap; both survive.
	if set.Lang.Settings.DurationVowelMs != 120 {
		t.Fatalf("durationVowelMs = %v, want 120 (en layer)", set.Lang.Settings.DurationVowelMs)
	}
	if set.Lang.Settings.SegmentBoundaryGapMs != 25 {
		t.Fatalf("segmentBoundaryGapMs = %v, want 25 (en-us layer)", set.Lang.Settings.SegmentBoundaryGapMs)
	}
	if set.Lang.Aliases["r"] != "ɹ" {
		t.Fatalf("alias r = %q, want ɹ", set.Lang.Aliases["r"])
	}
}

func TestLoadPhonemeOverride(t *testing.T) {
	dir := writePack(t, map[string]string{
		"phonemes.yaml":     miniPhonemes,
		"lang/default.yaml": "settings:\n  durationVowelMs: 130\n",
		"lang/en.yaml": `
phonemes:
  a:
    cf1: 720
`,
	})
	set, err := Load(dir, "en")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	a := set.Phoneme("a")
	if a == nil {
		t.Fatal("phoneme a missing")
	}
	// Override replaces a single field without repeating the definition.
	if got := a.Fields.Get(dsp.FieldCF1); got != 720 {
		t.Fatalf("cf1 = %v, want 720", got)
	}
	if got := a.Fields.Get(dsp.FieldCF2); got != 1200 {
		t.Fatalf("cf2 = %v, want 1200 (inherited)", got)
	}
	if !a.Is(FlagVowel | FlagVoiced) {
		t.Fatal("flags lost in override merge")
	}
}

func TestLoadUnknownLanguage(t *testing.T) {
	dir := writePack(t, map[string]string{
		"phonemes.yaml":     miniPhonemes,
		"lang/default.yaml": "settings:\n  durationVowelMs: 130\n",
	})
	if _, err := Load(dir, "zz"); !errors.Is(err, ErrUnknownLanguage) {
		t.Fatalf("err = %v, want ErrUnknownLanguage", err)
	}
}

func TestLoadMissingPack(t *testing.T) {
	if _, err := Load(t.TempDir(), "en"); !errors.Is(err, ErrPackNotFound) {
		t.Fatalf("err = %v, want ErrPackNotFound", err)
	}
}

func TestLoadParseError(t *testing.T) {
	dir := writePack(t, map[string]string{
		"phonemes.yaml": "phonemes:\n  a:\n    notAField: 1\n",
	})
	if _, err := Load(dir, ""); !errors.Is(err, ErrPackParse) {
		t.Fatalf("err = %v, want ErrPackParse", err)
	}
}

func TestLoadShippedPacks(t *testing.T) {
	set, err := Load(filepath.Join("..", "..", "packs"), "en-US")
	if err != nil {
		t.Fatalf("load shipped packs: %v", err)
	}
	a := set.Phoneme("a")
	if a == nil || !a.Is(FlagVowel) {
		t.Fatal("shipped pack missing vowel a")
	}
	if got := a.Fields.Get(dsp.FieldCF1); got != 700 {
		t.Fatalf("a cf1 = %v, want 700", got)
	}
	if set.Lang.Settings.LengthenedMultiplier != 1.8 {
		t.Fatalf("lengthenedMultiplier = %v, want 1.8", set.Lang.Settings.LengthenedMultiplier)
	}
	if _, ok := set.Lang.Intonation.Contours["?"]; !ok {
		t.Fatal("question contour missing")
	}
	if set.Phoneme("r") == nil {
		t.Fatal("alias r -> ɹ did not resolve")
	}
}
