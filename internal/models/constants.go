// Package models contains data types and constants for the chat drawer.
package models

// Defaults for the text-generation endpoint
const (
	DefaultEndpoint = "http://localhost:3000/api/chat"
	DefaultModel    = "claude-sonnet-4-5-20250929"
)

// Response headers the endpoint uses to announce its stream framing
const (
	HeaderDataStream = "X-Vercel-Ai-Data-Stream"
	HeaderUIStream   = "X-Vercel-Ai-Ui-Message-Stream"
	ContentTypeSSE   = "text/event-stream"
)

// ErrorMarker is the summary written into an assistant turn whose request failed
const ErrorMarker = "⚠ request failed"

// Page contexts known to the suggestion sets
const (
	ContextDashboard = "dashboard"
	ContextRecipes   = "recipes"
	ContextTodos     = "todos"
	ContextMeetings  = "meetings"
	ContextTeam      = "team"
	ContextDefault   = "default"
)

// DefaultHeaders returns headers sent with every generation request
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
		"Accept":       "text/event-stream, text/plain",
		"User-Agent":   "chatdrawer",
	}
}
