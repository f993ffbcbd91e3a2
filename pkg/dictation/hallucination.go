package dictation

import (
	"regexp"
	"strings"
)

// hallucinationPatterns mirrors the known whisper.cpp artifact phrases,
// mostly subtitle credits, subscribe calls-to-action, and boilerplate
// copyright lines that show up when the model is fed near-silence.
var hallucinationPatterns = regexp.MustCompile(`(?i)` + strings.Join([]string{
	`subtitle(s|d)? by`,
	`subtitles by`,
	`amara\.org`,
	`subscribe`,
	`thank(s| you) for watching`,
	`like and subscribe`,
	`please subscribe`,
	`translated by`,
	`редактор субтитров`,
	`корректор`,
	`субтитры делал`,
	`субтитры сделал`,
	`не забудьте подписаться`,
	`ставьте лайк`,
	`спасибо за просмотр`,
	`всем пока`,
	`до новых встреч`,
	`продолжение следует`,
	`copyright`,
	`all rights reserved`,
	`\[?blank_audio\]?`,
	`\(?subtitles\)?`,
}, "|"))

const (
	maxWordsPerSec = 5.0
	maxCharsPerSec = 25.0
)

// IsHallucination reports whether text is a known whisper.cpp artifact,
// either by matching a known boilerplate phrase or by exceeding a plausible
// speech rate for the given segment duration. durationS <= 0 disables the
// speech-rate check (duration unknown).
func IsHallucination(text string, durationS float64) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	if hallucinationPatterns.MatchString(trimmed) {
		return true
	}
	if durationS <= 0 {
		return false
	}

	words := len(strings.Fields(trimmed))
	chars := len([]rune(strings.ReplaceAll(trimmed, " ", "")))

	maxWords := maxWordsPerSec * durationS
	if maxWords < 2 {
		maxWords = 2
	}
	maxChars := maxCharsPerSec * durationS
	if maxChars < 10 {
		maxChars = 10
	}

	if float64(words) > maxWords || float64(chars) > maxChars {
		return true
	}
	return false
}
