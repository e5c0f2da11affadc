package pack

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tgeczy/NVSpeechPlayer/internal/dsp"
)

var (
	ErrPackNotFound    = errors.New("pack: pack directory or phoneme table not found")
	ErrPackParse       = errors.New("pack: parse error")
	ErrUnknownLanguage = errors.New("pack: unknown language")
)

// NormalizeLangTag lowers a tag to the hyphenated form pack filenames use
// (en_US -> en-us). An empty tag maps to "default".
func NormalizeLangTag(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "default"
	}
	return strings.ToLower(strings.ReplaceAll(tag, "_", "-"))
}

// TagChain returns the merge chain for a tag, least specific first:
// "en-us-nyc" -> ["default", "en", "en-us", "en-us-nyc"].
func TagChain(tag string) []string {
	tag = NormalizeLangTag(tag)
	chain := []string{"default"}
	if tag == "default" {
		return chain
	}
	parts := strings.Split(tag, "-")
	for i := 1; i <= len(parts); i++ {
		chain = append(chain, strings.Join(parts[:i], "-"))
	}
	return chain
}

type phonemeFile struct {
	Phonemes map[string]map[string]any `yaml:"phonemes"`
}

type langFile struct {
	Settings      yaml.Node `yaml:"settings"`
	Normalization struct {
		Classes      map[string][]string `yaml:"classes"`
		Replacements []Replacement       `yaml:"replacements"`
	} `yaml:"normalization"`
	Aliases    map[string]string         `yaml:"aliases"`
	Intonation yaml.Node                 `yaml:"intonation"`
	Phonemes   map[string]map[string]any `yaml:"phonemes"`
}

// Load reads packDir and merges the layer chain for langTag into an immutable
// Set. Merge order is default -> lang -> lang-region -> lang-region-variant;
// later layers override by key. A non-default tag with no matching layer file
// at all yields ErrUnknownLanguage.
func Load(packDir, langTag string) (*Set, error) {
	tag := NormalizeLangTag(langTag)

	phonemePath := filepath.Join(packDir, "phonemes.yaml")
	data, err := os.ReadFile(phonemePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPackNotFound, phonemePath)
	}
	var pf phonemeFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrPackParse, phonemePath, err)
	}

	set := &Set{
		Tag:      tag,
		Phonemes: make(map[string]*PhonemeDef, len(pf.Phonemes)),
		Lang: LanguagePack{
			Normalization: Normalization{Classes: map[string][]string{}},
			Aliases:       map[string]string{},
			Intonation:    Intonation{Contours: map[string]Contour{}, ToneLevels: map[string]float64{}},
		},
	}
	for key, raw := range pf.Phonemes {
		def, err := buildPhonemeDef(key, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: phoneme %q: %v", ErrPackParse, key, err)
		}
		set.Phonemes[key] = def
	}

	layersFound := 0
	for _, layer := range TagChain(tag) {
		path := filepath.Join(packDir, "lang", layer+".yaml")
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("%w: %s", ErrPackNotFound, path)
		}
		if layer != "default" {
			layersFound++
		}
		if err := mergeLayer(set, path, data); err != nil {
			return nil, err
		}
	}
	if tag != "default" && layersFound == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, tag)
	}
	return set, nil
}

// mergeLayer applies one language YAML on top of the accumulated set.
// Settings and intonation decode into the accumulated structs, so keys the
// layer omits keep their inherited values. Replacements append in layer
// order; classes, aliases, contours and phoneme overrides merge by key.
func mergeLayer(set *Set, path string, data []byte) error {
	var lf langFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPackParse, path, err)
	}
	if lf.Settings.Kind != 0 {
		if err := lf.Settings.Decode(&set.Lang.Settings); err != nil {
			return fmt.Errorf("%w: %s: settings: %v", ErrPackParse, path, err)
		}
	}
	if lf.Intonation.Kind != 0 {
		if err := lf.Intonation.Decode(&set.Lang.Intonation); err != nil {
			return fmt.Errorf("%w: %s: intonation: %v", ErrPackParse, path, err)
		}
	}
	for name, syms := range lf.Normalization.Classes {
		set.Lang.Normalization.Classes[name] = syms
	}
	set.Lang.Normalization.Replacements = append(set.Lang.Normalization.Replacements, lf.Normalization.Replacements...)
	for from, to := range lf.Aliases {
		set.Lang.Aliases[from] = to
	}
	for key, raw := range lf.Phonemes {
		base, ok := set.Phonemes[key]
		var merged PhonemeDef
		if ok {
			merged = *base
		} else {
			merged = PhonemeDef{Key: key}
		}
		override, err := buildPhonemeDef(key, raw)
		if err != nil {
			return fmt.Errorf("%w: %s: phoneme %q: %v", ErrPackParse, path, key, err)
		}
		merged.Flags |= override.Flags
		merged.Fields.Merge(&override.Fields)
		set.Phonemes[key] = &merged
	}
	return nil
}

func buildPhonemeDef(key string, raw map[string]any) (*PhonemeDef, error) {
	def := &PhonemeDef{Key: key}
	for name, value := range raw {
		if flag, ok := flagNames[name]; ok {
			b, ok := value.(bool)
			if !ok {
				return nil, fmt.Errorf("flag %q is not a bool", name)
			}
			if b {
				def.Flags |= flag
			}
			continue
		}
		id, ok := dsp.FieldByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown field %q", name)
		}
		f, err := toFloat(value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %v", name, err)
		}
		def.Fields.Set(id, f)
	}
	return def, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("value %v is not numeric", v)
	}
}
