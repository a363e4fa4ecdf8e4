// Package suggestions provides the prompt hints offered for each page context.
package suggestions

import (
	"sort"
	"strings"

	"github.com/diogo/chatdrawer/internal/models"
)

// Suggestion is a canned prompt shown as a chip above the prompt input
type Suggestion struct {
	ID     string `json:"id"`
	Icon   string `json:"icon"`
	Label  string `json:"label"`
	Prompt string `json:"prompt"`
}

func chip(id, icon, prompt string) Suggestion {
	return Suggestion{ID: id, Icon: icon, Label: prompt, Prompt: prompt}
}

var sets = map[string][]Suggestion{
	models.ContextDashboard: {
		chip("summary", "📊", "Can you summarize my activity today?"),
		chip("metrics", "📈", "Show me key metrics from this week"),
	},
	models.ContextRecipes: {
		chip("all-recipes", "🍳", "Show me all my recipes"),
		chip("suggest", "🤔", "Suggest a dinner recipe for tonight"),
	},
	models.ContextTodos: {
		chip("recent", "📝", "List my recent todos"),
		chip("urgent", "⚡", "What tasks are urgent?"),
	},
	models.ContextMeetings: {
		chip("notes", "📝", "Show me my meeting notes"),
		chip("recap", "📅", "Write a recap of my meetings this week"),
	},
	models.ContextTeam: {
		chip("org-chart", "👥", "Show me our team's organization"),
		chip("whos-who", "🔍", "Who is Evan Park's manager?"),
	},
	models.ContextDefault: {
		chip("help", "💡", "What can you help me with?"),
		chip("search", "🔍", "Search for..."),
	},
}

// For returns the suggestions for a page context, falling back to the
// default set for unknown labels. The result is a copy.
func For(label string) []Suggestion {
	set, ok := sets[strings.ToLower(strings.TrimSpace(label))]
	if !ok {
		set = sets[models.ContextDefault]
	}
	return append([]Suggestion(nil), set...)
}

// Contexts returns the known page contexts, sorted, without the default
func Contexts() []string {
	contexts := make([]string, 0, len(sets))
	for label := range sets {
		if label != models.ContextDefault {
			contexts = append(contexts, label)
		}
	}
	sort.Strings(contexts)
	return contexts
}

// IsKnown reports whether label has its own suggestion set
func IsKnown(label string) bool {
	label = strings.ToLower(strings.TrimSpace(label))
	_, ok := sets[label]
	return ok && label != models.ContextDefault
}
