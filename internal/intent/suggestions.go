package intent

import (
	"fmt"
	"strings"
)

// MaxSuggestions caps the number of suggestions returned.
const MaxSuggestions = 4

// commonPages are offered as add-page suggestions when missing.
var commonPages = []string{"Settings", "About", "Contact", "Dashboard"}

// GenerateSuggestions proposes commands that make sense for ctx. Add-page
// suggestions come first, so they win when the cap is reached.
func GenerateSuggestions(ctx Context) []Suggestion {
	existing := make(map[string]struct{}, len(ctx.CurrentPages))
	for _, p := range ctx.CurrentPages {
		existing[strings.ToLower(p)] = struct{}{}
	}

	var out []Suggestion
	for _, page := range commonPages {
		if _, ok := existing[strings.ToLower(page)]; ok {
			continue
		}
		out = append(out, Suggestion{
			Label:       fmt.Sprintf("Add %s page", page),
			Command:     "add page " + page,
			Description: fmt.Sprintf("Create a new %s page", page),
		})
	}

	if _, ok := existing["home"]; ok {
		out = append(out, Suggestion{
			Label:       "Rename Home to Dashboard",
			Command:     "rename page Home to Dashboard",
			Description: "Rename the Home page to Dashboard",
		})
	}

	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	return out
}
