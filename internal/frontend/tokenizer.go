package frontend

import (
	"log/slog"
	"strings"

	"github.com/tgeczy/NVSpeechPlayer/internal/pack"
)

const (
	runePrimaryStress   = 'ˈ'
	runeSecondaryStress = 'ˌ'
	runeLength          = 'ː'
	runeTie             = '͡'
)

func isClauseRune(r rune) bool {
	return r == '.' || r == ',' || r == '?' || r == '!'
}

// Tokenizer scans a normalized IPA string into the pipeline's token stream.
type Tokenizer struct {
	set *pack.Set
	log *slog.Logger
}

func NewTokenizer(set *pack.Set, log *slog.Logger) *Tokenizer {
	return &Tokenizer{set: set, log: log}
}

// Tokenize normalizes and scans ipa. It returns the token stream and the
// number of unknown symbols that were dropped; unknown symbols never fail the
// call.
func (tk *Tokenizer) Tokenize(ipa string) ([]*Token, int) {
	runes := []rune(normalize(tk.set, ipa))

	var (
		tokens        []*Token
		last          *Token
		syllableStart *Token
		pendingStress = StressNone
		newWord       = true
		dropped       = 0
	)

	appendToken := func(tok *Token) {
		tok.ToneStart = -1
		tok.ToneEnd = -1

		stress := pendingStress
		pendingStress = StressNone

		// A consonant directly before a vowel is that syllable's onset.
		if last != nil && !last.isVowel() && tok.isVowel() {
			last.SyllableStart = true
			syllableStart = last
		} else if stress == StressPrimary && last != nil && last.isVowel() {
			tok.SyllableStart = true
			syllableStart = tok
		}
		if newWord {
			newWord = false
			tok.WordStart = true
			tok.SyllableStart = true
			syllableStart = tok
		}
		if stress != StressNone && syllableStart != nil {
			syllableStart.Stress = stress
		}
		tokens = append(tokens, tok)
		last = tok
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == runePrimaryStress:
			pendingStress = StressPrimary
			continue
		case r == runeSecondaryStress:
			pendingStress = StressSecondary
			continue
		case r == ' ' || r == '\t' || r == '\n':
			newWord = true
			continue
		case isClauseRune(r):
			if last != nil {
				last.ClauseEnd = true
			}
			newWord = true
			continue
		case r == runeLength:
			// A bare length mark lengthens the previous vowel.
			if last != nil && last.isVowel() {
				last.Lengthened = true
			}
			continue
		}

		if level, ok := tk.set.Lang.Intonation.ToneLevels[string(r)]; ok {
			if last != nil {
				if last.ToneStart < 0 {
					last.ToneStart = level
				} else {
					last.ToneEnd = level
				}
			}
			continue
		}

		// Tie bar: look the fused key up as-is; if missing, fall back to the
		// first component plus a stop-release marker.
		if i+2 < len(runes) && runes[i+1] == runeTie {
			key := string(runes[i : i+3])
			if def := tk.set.Phoneme(key); def != nil {
				appendToken(&Token{Def: def, TiedTo: true})
				i += 2
				continue
			}
			if def := tk.set.Phoneme(string(r)); def != nil {
				appendToken(&Token{Def: def})
				if rel := tk.set.Phoneme("h"); rel != nil {
					appendToken(&Token{Def: rel, PostStopAspiration: true})
				}
				i += 2
				continue
			}
			dropped++
			tk.warnUnknown(key)
			i += 2
			continue
		}

		// Prefer a lengthened-vowel key if the pack defines one.
		if i+1 < len(runes) && runes[i+1] == runeLength {
			if def := tk.set.Phoneme(string(runes[i : i+2])); def != nil {
				tok := &Token{Def: def, Lengthened: true}
				appendToken(tok)
				i++
				continue
			}
		}

		def := tk.set.Phoneme(string(r))
		if def == nil {
			dropped++
			tk.warnUnknown(string(r))
			continue
		}
		appendToken(&Token{Def: def})
	}

	return tokens, dropped
}

func (tk *Tokenizer) warnUnknown(sym string) {
	if tk.log != nil {
		tk.log.Warn("dropping unknown phoneme symbol", slog.String("symbol", sym))
	}
}

// normalize applies the pack's ordered replacement rules. Guards restrict a
// rule to word-initial/final positions or to symbol-class context.
func normalize(set *pack.Set, text string) string {
	for _, rule := range set.Lang.Normalization.Replacements {
		if rule.From == "" {
			continue
		}
		text = applyReplacement(set, text, rule)
	}
	return strings.Join(strings.Fields(text), " ")
}

func applyReplacement(set *pack.Set, text string, rule pack.Replacement) string {
	runes := []rune(text)
	from := []rune(rule.From)
	var out []rune

	for i := 0; i < len(runes); {
		if !matchAt(runes, i, from) || !guardOK(set, runes, i, i+len(from), rule.When) {
			out = append(out, runes[i])
			i++
			continue
		}
		out = append(out, []rune(rule.To)...)
		i += len(from)
	}
	return string(out)
}

func matchAt(runes []rune, i int, pat []rune) bool {
	if i+len(pat) > len(runes) {
		return false
	}
	for j, p := range pat {
		if runes[i+j] != p {
			return false
		}
	}
	return true
}

func guardOK(set *pack.Set, runes []rune, start, end int, when *pack.ReplacementGuard) bool {
	if when == nil {
		return true
	}
	atWordStart := start == 0 || runes[start-1] == ' '
	atWordEnd := end >= len(runes) || runes[end] == ' '
	if when.WordInitial && !atWordStart {
		return false
	}
	if when.WordFinal && !atWordEnd {
		return false
	}
	if when.BeforeClass != "" {
		if atWordStart || !inClass(set, when.BeforeClass, runes[start-1]) {
			return false
		}
	}
	if when.AfterClass != "" {
		if atWordEnd || !inClass(set, when.AfterClass, runes[end]) {
			return false
		}
	}
	return true
}

func inClass(set *pack.Set, class string, r rune) bool {
	for _, sym := range set.Lang.Normalization.Classes[class] {
		if sym == string(r) {
			return true
		}
	}
	return false
}
