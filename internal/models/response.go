package models

// Delta is one incremental fragment of assistant text
type Delta struct {
	Role Role
	Text string
}

// Finish carries the metadata of a finished generation, when the endpoint reports it
type Finish struct {
	Reason           string
	PromptTokens     int
	CompletionTokens int
}

// Snapshot is an immutable view of a conversation handed to observers
type Snapshot struct {
	ConversationID string
	Turns          []Turn
	IsLoading      bool
	PendingPrompt  string
	PageContext    string
}

// Len returns the number of turns in the snapshot
func (s Snapshot) Len() int {
	return len(s.Turns)
}

// Last returns the last turn, if any
func (s Snapshot) Last() (Turn, bool) {
	if len(s.Turns) == 0 {
		return Turn{}, false
	}
	return s.Turns[len(s.Turns)-1], true
}

// Streaming returns the turn currently receiving deltas, if any
func (s Snapshot) Streaming() (Turn, bool) {
	for i := len(s.Turns) - 1; i >= 0; i-- {
		if s.Turns[i].IsStreaming() {
			return s.Turns[i], true
		}
	}
	return Turn{}, false
}

// LastAssistantContent returns the text of the most recent assistant turn
// that finished successfully
func (s Snapshot) LastAssistantContent() (string, bool) {
	for i := len(s.Turns) - 1; i >= 0; i-- {
		t := s.Turns[i]
		if t.Role == RoleAssistant && t.Status == StatusComplete {
			return t.Content(), true
		}
	}
	return "", false
}
