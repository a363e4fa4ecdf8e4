package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnContent(t *testing.T) {
	tests := []struct {
		name      string
		fragments []string
		want      string
	}{
		{"empty", nil, ""},
		{"single", []string{"hello"}, "hello"},
		{"many", []string{"Evan", " Park's", " manager is Jane Smith."}, "Evan Park's manager is Jane Smith."},
		{"keeps whitespace", []string{"  a", "\n", "b  "}, "  a\nb  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turn := Turn{Fragments: tt.fragments}
			assert.Equal(t, tt.want, turn.Content())
		})
	}
}

func TestNewTurns(t *testing.T) {
	u := NewUserTurn("hi")
	assert.Equal(t, RoleUser, u.Role)
	assert.Equal(t, StatusComplete, u.Status)
	assert.Equal(t, "hi", u.Content())
	assert.NotEmpty(t, u.ID)

	a := NewAssistantTurn()
	assert.Equal(t, RoleAssistant, a.Role)
	assert.True(t, a.IsStreaming())
	assert.Empty(t, a.Content())
	assert.NotEqual(t, u.ID, a.ID)
}

func TestTurnClone(t *testing.T) {
	orig := Turn{Fragments: []string{"a", "b"}}
	c := orig.Clone()
	c.Fragments[0] = "z"
	assert.Equal(t, "ab", orig.Content())
	assert.Equal(t, "zb", c.Content())
}

func TestTurnStatusIsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusStreaming.IsTerminal())
	assert.True(t, StatusComplete.IsTerminal())
	assert.True(t, StatusErrored.IsTerminal())
}

func TestRoleDisplayName(t *testing.T) {
	assert.Equal(t, "You", RoleUser.DisplayName())
	assert.Equal(t, "Assistant", RoleAssistant.DisplayName())
	assert.Equal(t, "tool", Role("tool").DisplayName())
}

func TestSnapshotHelpers(t *testing.T) {
	var empty Snapshot
	_, ok := empty.Last()
	assert.False(t, ok)

	snap := Snapshot{Turns: []Turn{
		NewUserTurn("q1"),
		{Role: RoleAssistant, Status: StatusComplete, Fragments: []string{"a1"}},
		NewUserTurn("q2"),
		{Role: RoleAssistant, Status: StatusErrored, Fragments: []string{ErrorMarker}},
	}}

	last, ok := snap.Last()
	require.True(t, ok)
	assert.Equal(t, StatusErrored, last.Status)

	content, ok := snap.LastAssistantContent()
	require.True(t, ok)
	assert.Equal(t, "a1", content)

	_, ok = snap.Streaming()
	assert.False(t, ok)

	snap.Turns = append(snap.Turns, NewAssistantTurn())
	streaming, ok := snap.Streaming()
	require.True(t, ok)
	assert.Equal(t, RoleAssistant, streaming.Role)
	assert.Equal(t, 5, snap.Len())
}
