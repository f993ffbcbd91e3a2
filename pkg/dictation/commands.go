package dictation

import "strings"

const commandFuzzyThreshold = 0.75

const commandPunctuation = ".,!?;:-\"'()[]"

// backspaceAction is the sentinel action for a command word that pops the
// pending buffer instead of sending a keypress.
const backspaceAction = "backspace"

// DefaultVoiceCommands is the bilingual word-to-action map ported from the
// original daemon's configuration defaults. An action is either a literal
// key name (dispatched via sendKeyFn) or the backspaceAction sentinel.
var DefaultVoiceCommands = map[string]string{
	"enter":     "Return",
	"энтер":     "Return",
	"ввод":      "Return",
	"backspace": backspaceAction,
	"бэкспейс":  backspaceAction,
	"бекспейс":  backspaceAction,
	"назад":     backspaceAction,
	"tab":       "Tab",
	"таб":       "Tab",
	"табуляция": "Tab",
	"escape":    "Escape",
	"эскейп":    "Escape",
	"стоп":      "Escape",
}

// VoiceCommands matches single spoken command words inside a transcript and
// dispatches them as key presses (or a buffer-popping backspace), treating
// everything else as literal text to inject. Matching is per word: exact
// equality first, then the best fuzzy match above the threshold.
type VoiceCommands struct {
	commands map[string]string
}

func NewVoiceCommands(commands map[string]string) *VoiceCommands {
	if commands == nil {
		commands = DefaultVoiceCommands
	}
	return &VoiceCommands{commands: commands}
}

// Process scans text word by word, appending non-command words to a buffer
// that is flushed to injectFn whenever a command interrupts it (and at the
// end). Backspace pops the last buffered word instead of injecting it, or
// sends "ctrl+BackSpace" when the buffer is already empty. Reports whether
// any command word was recognized.
func (vc *VoiceCommands) Process(text string, injectFn func(string), sendKeyFn func(string)) bool {
	words := strings.Fields(text)
	if len(words) == 0 {
		return false
	}

	hadCommands := false
	var buf []string

	flush := func() {
		if len(buf) == 0 {
			return
		}
		if injectFn != nil {
			injectFn(strings.Join(buf, " "))
		}
		buf = buf[:0]
	}

	for _, word := range words {
		clean := strings.ToLower(strings.Trim(word, commandPunctuation))
		action := vc.match(clean)
		if action == "" {
			buf = append(buf, word)
			continue
		}

		hadCommands = true
		if action == backspaceAction {
			if len(buf) > 0 {
				buf = buf[:len(buf)-1]
			} else if sendKeyFn != nil {
				sendKeyFn("ctrl+BackSpace")
			}
			continue
		}

		flush()
		if sendKeyFn != nil {
			sendKeyFn(action)
		}
	}
	flush()
	return hadCommands
}

// match resolves a single cleaned word to a command action, trying an exact
// lookup first and falling back to the best fuzzy match at or above the
// threshold. Returns "" when nothing matches.
func (vc *VoiceCommands) match(word string) string {
	if word == "" {
		return ""
	}
	if action, ok := vc.commands[word]; ok {
		return action
	}

	bestAction := ""
	bestScore := 0.0
	for cmdWord, action := range vc.commands {
		score := ratio(cmdWord, word)
		if score >= commandFuzzyThreshold && score > bestScore {
			bestScore = score
			bestAction = action
		}
	}
	return bestAction
}
