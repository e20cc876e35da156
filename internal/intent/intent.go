// Package intent turns free text into blueprint commands or suggestions.
//
// Classification is a pure function of the input and a Context snapshot:
// the same text and context always produce the same Result.
package intent

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/starford/astra/internal/command"
)

// Mode classifies an utterance.
type Mode string

const (
	ModeDirect  Mode = "direct"
	ModeVague   Mode = "vague"
	ModeUnknown Mode = "unknown"
)

// Messages returned with non-direct results.
const (
	VagueMessage   = "I'm not sure what you'd like to do. Here are some suggestions:"
	UnknownMessage = "I didn't understand that command. Try: 'add page <name>', 'rename page <old> to <new>', or 'delete page <name>'"
)

// minInputLength is the shortest input that is not automatically vague.
const minInputLength = 3

// vagueWords are leading words that, alone or with one more word, carry no
// usable target.
var vagueWords = map[string]struct{}{
	"add": {}, "create": {}, "make": {}, "new": {}, "page": {},
	"rename": {}, "change": {}, "delete": {}, "remove": {},
	"help": {}, "what": {}, "how": {},
}

// Context is the read-only snapshot the analyzer works against.
type Context struct {
	CurrentPages []string `json:"currentPages"`
	AppName      string   `json:"appName,omitempty"`
}

// Suggestion is a literal command the user may try next.
type Suggestion struct {
	Label       string `json:"label"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
}

// Result is the outcome of analyzing one utterance. Commands is non-empty
// only in ModeDirect; Suggestions is set only outside it.
type Result struct {
	Mode        Mode         `json:"mode"`
	Commands    command.List `json:"commands"`
	Message     string       `json:"message,omitempty"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
}

// Command returns the parsed command of a direct result.
func (r Result) Command() (command.Command, bool) {
	if r.Mode != ModeDirect || len(r.Commands) == 0 {
		return nil, false
	}
	return r.Commands[0], true
}

// Analyzer classifies text using an ordered list of command matchers.
type Analyzer struct {
	matchers []matcher
}

// NewAnalyzer returns an analyzer with the add, rename and delete grammars,
// tried in that order.
func NewAnalyzer() *Analyzer {
	return &Analyzer{matchers: defaultMatchers}
}

var defaultAnalyzer = NewAnalyzer()

// Analyze classifies input with the default analyzer.
func Analyze(input string, ctx Context) Result {
	return defaultAnalyzer.Analyze(input, ctx)
}

// Analyze classifies input as direct, vague or unknown.
func (a *Analyzer) Analyze(input string, ctx Context) Result {
	original := strings.TrimSpace(normalizeSpace(input))
	normalized := strings.ToLower(original)

	if IsVague(normalized) {
		return Result{
			Mode:        ModeVague,
			Commands:    command.List{},
			Message:     VagueMessage,
			Suggestions: GenerateSuggestions(ctx),
		}
	}

	if cmd, ok := a.ParseCommand(original); ok {
		return Result{
			Mode:     ModeDirect,
			Commands: command.List{cmd},
		}
	}

	return Result{
		Mode:        ModeUnknown,
		Commands:    command.List{},
		Message:     UnknownMessage,
		Suggestions: GenerateSuggestions(ctx),
	}
}

// ParseCommand runs the matchers in order against the original-case text and
// returns the first command produced.
func (a *Analyzer) ParseCommand(original string) (command.Command, bool) {
	original = normalizeSpace(original)
	for _, m := range a.matchers {
		if cmd, ok := m(original); ok {
			return cmd, true
		}
	}
	return nil, false
}

// IsVague reports whether normalized (trimmed, lower-cased) input is too short
// or too generic to act on.
func IsVague(normalized string) bool {
	if utf8.RuneCountInString(normalized) < minInputLength {
		return true
	}
	words := strings.Fields(normalized)
	if len(words) == 0 {
		return true
	}
	if len(words) > 2 {
		return false
	}
	_, ok := vagueWords[words[0]]
	return ok
}

// normalizeSpace maps every Unicode space rune (NBSP, ideographic space,
// BOM) to an ASCII space. The grammar patterns only match ASCII whitespace.
func normalizeSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '\uFEFF' {
			return ' '
		}
		return r
	}, s)
}
