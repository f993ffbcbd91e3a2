package dictation

import "strings"

const wakeWordFuzzyThreshold = 0.7

const wakeWordPunctuation = ".,!?;:-\"'()[]"

// WakeWordDetector recognizes a configured wake phrase, tolerating
// grammatical suffix variants and minor transcription noise via fuzzy
// matching.
type WakeWordDetector struct {
	word     string
	variants []string
}

// NewWakeWordDetector builds variants of word by stripping each of the given
// suffixes, the same way the original Russian-language daemon strips
// grammatical case endings ("марфуша" / "марфуш" / "марфу" forms) — the
// suffix set is configurable because it is language-specific, not a fixed
// Russian-only rule.
func NewWakeWordDetector(word string, suffixes []string) *WakeWordDetector {
	word = strings.ToLower(strings.TrimSpace(word))
	variants := []string{word}
	for _, suf := range suffixes {
		if strings.HasSuffix(word, suf) && len(word) > len(suf)+2 {
			variants = append(variants, strings.TrimSuffix(word, suf))
		}
	}
	return &WakeWordDetector{word: word, variants: variants}
}

// Contains reports whether the phrase is present in text: either as a
// case-insensitive literal substring of the whole text, or, failing that, as
// a fuzzy match on some individual punctuation-stripped token.
func (d *WakeWordDetector) Contains(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	if strings.Contains(lower, d.word) {
		return true
	}
	for _, tok := range tokenize(lower) {
		tok = strings.Trim(tok, wakeWordPunctuation)
		if tok != "" && d.isFuzzyMatch(tok) {
			return true
		}
	}
	return false
}

// Strip removes the wake phrase from text. It first tries a literal
// case-insensitive substring removal, collapsing the resulting whitespace;
// if no literal occurrence existed, it falls back to dropping every token
// that fuzzy-matches the phrase or one of its variants.
func (d *WakeWordDetector) Strip(text string) string {
	lower := strings.ToLower(text)
	if idx := strings.Index(lower, d.word); idx >= 0 {
		result := text[:idx] + text[idx+len(d.word):]
		result = strings.Join(strings.Fields(result), " ")
		return strings.Trim(result, wakeWordPunctuation+" ")
	}

	tokens := tokenize(text)
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		clean := strings.Trim(strings.ToLower(tok), wakeWordPunctuation)
		if clean != "" && d.isFuzzyMatch(clean) {
			continue
		}
		out = append(out, tok)
	}
	result := strings.Join(out, " ")
	return strings.Trim(result, wakeWordPunctuation+" ")
}

func (d *WakeWordDetector) isFuzzyMatch(token string) bool {
	if ratio(token, d.word) >= wakeWordFuzzyThreshold {
		return true
	}
	for _, v := range d.variants {
		if ratio(token, v) >= wakeWordFuzzyThreshold {
			return true
		}
	}
	return false
}

func tokenize(text string) []string {
	return strings.Fields(text)
}
