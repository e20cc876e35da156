package intent

import (
	"regexp"
	"strings"

	"github.com/starford/astra/internal/command"
)

// matcher tries to turn original-case text into a command.
type matcher func(original string) (command.Command, bool)

// Grammar patterns, tried in order within each group. The page name is
// always the last capture group; for renames the old name is the one before it.
var (
	addPagePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(add|create|new|make)\s+page\s+(.+)$`),
		regexp.MustCompile(`(?i)^add\s+(.+)\s+page$`),
		regexp.MustCompile(`(?i)^create\s+(.+)$`),
	}

	renamePagePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(rename|change)\s+page\s+(.+?)\s+to\s+(.+)$`),
		regexp.MustCompile(`(?i)^rename\s+(.+?)\s+to\s+(.+)$`),
		regexp.MustCompile(`(?i)^change\s+(.+?)\s+to\s+(.+)$`),
	}

	deletePagePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(delete|remove)\s+page\s+(.+)$`),
		regexp.MustCompile(`(?i)^delete\s+(.+)$`),
		regexp.MustCompile(`(?i)^remove\s+(.+)$`),
	}
)

var defaultMatchers = []matcher{
	matchAddPage,
	matchRenamePage,
	matchDeletePage,
}

func matchAddPage(original string) (command.Command, bool) {
	name, ok := lastGroup(addPagePatterns, original)
	if !ok {
		return nil, false
	}
	return command.NewAddPage(name), true
}

func matchRenamePage(original string) (command.Command, bool) {
	for _, re := range renamePagePatterns {
		m := re.FindStringSubmatch(original)
		if m == nil {
			continue
		}
		oldName := strings.TrimSpace(m[len(m)-2])
		newName := strings.TrimSpace(m[len(m)-1])
		if oldName != "" && newName != "" {
			return command.NewRenamePage(oldName, newName), true
		}
	}
	return nil, false
}

func matchDeletePage(original string) (command.Command, bool) {
	name, ok := lastGroup(deletePagePatterns, original)
	if !ok {
		return nil, false
	}
	return command.NewDeletePage(name), true
}

// lastGroup returns the trimmed last capture group of the first pattern that
// matches with a non-empty capture.
func lastGroup(patterns []*regexp.Regexp, s string) (string, bool) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		if v := strings.TrimSpace(m[len(m)-1]); v != "" {
			return v, true
		}
	}
	return "", false
}
