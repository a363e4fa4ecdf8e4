package chat

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/diogo/chatdrawer/internal/errors"
	"github.com/diogo/chatdrawer/internal/models"
)

func TestNewStore(t *testing.T) {
	s := NewStore()

	snap := s.Snapshot()
	assert.NotEmpty(t, snap.ConversationID)
	assert.Empty(t, snap.Turns)
	assert.False(t, snap.IsLoading)
	assert.Equal(t, models.ContextDashboard, snap.PageContext)
	assert.Equal(t, s.ID(), snap.ConversationID)
}

func TestAppendUserTurn(t *testing.T) {
	s := NewStore()

	turn, err := s.AppendUserTurn("Who is Evan Park's manager?")
	require.NoError(t, err)

	assert.Equal(t, models.RoleUser, turn.Role)
	assert.Equal(t, models.StatusComplete, turn.Status)
	assert.Equal(t, "Who is Evan Park's manager?", turn.Content())
	assert.True(t, s.IsLoading())
	assert.Equal(t, 1, s.Len())
}

func TestAppendUserTurnRejects(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		busy   bool
		reason error
	}{
		{name: "empty", text: "", reason: apierrors.ErrEmptyPrompt},
		{name: "whitespace", text: " \t\n ", reason: apierrors.ErrEmptyPrompt},
		{name: "busy", text: "second", busy: true, reason: apierrors.ErrBusy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			if tt.busy {
				_, err := s.AppendUserTurn("first")
				require.NoError(t, err)
			}
			before := s.Len()

			_, err := s.AppendUserTurn(tt.text)
			require.Error(t, err)
			assert.True(t, apierrors.IsInvalidState(err))
			assert.ErrorIs(t, err, tt.reason)
			assert.Equal(t, before, s.Len())
		})
	}
}

func TestTurnLifecycle(t *testing.T) {
	s := NewStore()

	_, err := s.AppendUserTurn("Who is Evan Park's manager?")
	require.NoError(t, err)
	assistant, err := s.BeginAssistantTurn()
	require.NoError(t, err)
	assert.Equal(t, models.StatusStreaming, assistant.Status)
	assert.Equal(t, "", assistant.Content())

	for _, d := range []string{"Evan", " Park's", " manager is Jane Smith."} {
		assert.True(t, s.AppendDelta(d))
	}

	streaming, ok := s.Snapshot().Streaming()
	require.True(t, ok)
	assert.Equal(t, assistant.ID, streaming.ID)

	s.CompleteTurn()

	snap := s.Snapshot()
	require.Len(t, snap.Turns, 2)
	last, _ := snap.Last()
	assert.Equal(t, "Evan Park's manager is Jane Smith.", last.Content())
	assert.Equal(t, models.StatusComplete, last.Status)
	assert.False(t, last.FinishedAt.IsZero())
	assert.False(t, snap.IsLoading)

	_, ok = snap.Streaming()
	assert.False(t, ok)
}

func TestDeltaOrdering(t *testing.T) {
	for n := 0; n < 50; n++ {
		s := NewStore()
		_, err := s.AppendUserTurn("q")
		require.NoError(t, err)
		_, err = s.BeginAssistantTurn()
		require.NoError(t, err)

		var want strings.Builder
		for i := 0; i < n; i++ {
			d := fmt.Sprintf("<%d>", i)
			want.WriteString(d)
			s.AppendDelta(d)
		}
		s.CompleteTurn()

		last, _ := s.Snapshot().Last()
		assert.Equal(t, want.String(), last.Content())
		assert.Len(t, last.Fragments, n)
	}
}

func TestAppendDeltaWithoutStreamingTurn(t *testing.T) {
	s := NewStore()
	assert.False(t, s.AppendDelta("stray"))

	_, err := s.AppendUserTurn("q")
	require.NoError(t, err)
	_, err = s.BeginAssistantTurn()
	require.NoError(t, err)
	s.CompleteTurn()

	assert.False(t, s.AppendDelta("late"))
	last, _ := s.Snapshot().Last()
	assert.Equal(t, "", last.Content())
}

func TestBeginAssistantTurnTwice(t *testing.T) {
	s := NewStore()
	_, err := s.BeginAssistantTurn()
	require.NoError(t, err)

	_, err = s.BeginAssistantTurn()
	assert.True(t, apierrors.IsInvalidState(err))
	assert.Equal(t, 1, s.Len())
}

func TestFailTurn(t *testing.T) {
	tests := []struct {
		name    string
		deltas  []string
		err     error
		content string
		summary string
	}{
		{
			name:    "network failure",
			err:     apierrors.NewTransportError("ep", "send chat request", errors.New("refused")),
			content: models.ErrorMarker + " (network error)",
			summary: models.ErrorMarker + " (network error)",
		},
		{
			name:    "decode failure keeps partial content",
			deltas:  []string{"Partial", " answer"},
			err:     apierrors.NewDecodeError(3, 20, "unknown part code", nil),
			content: "Partial answer\n\n" + models.ErrorMarker + " (malformed response stream)",
			summary: models.ErrorMarker + " (malformed response stream)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			_, err := s.AppendUserTurn("q")
			require.NoError(t, err)
			_, err = s.BeginAssistantTurn()
			require.NoError(t, err)
			for _, d := range tt.deltas {
				s.AppendDelta(d)
			}

			s.FailTurn(tt.err)

			snap := s.Snapshot()
			require.Len(t, snap.Turns, 2)
			last, _ := snap.Last()
			assert.Equal(t, models.StatusErrored, last.Status)
			assert.Equal(t, tt.content, last.Content())
			assert.Equal(t, tt.summary, last.Err)
			assert.False(t, snap.IsLoading)

			_, err = s.AppendUserTurn("again")
			assert.NoError(t, err)
		})
	}
}

func TestPendingPromptTakenOnce(t *testing.T) {
	s := NewStore()

	_, ok := s.TakePendingPrompt()
	assert.False(t, ok)

	s.SetPendingPrompt("List my recent todos")
	assert.Equal(t, "List my recent todos", s.Snapshot().PendingPrompt)

	text, ok := s.TakePendingPrompt()
	assert.True(t, ok)
	assert.Equal(t, "List my recent todos", text)

	_, ok = s.TakePendingPrompt()
	assert.False(t, ok)
	assert.Empty(t, s.Snapshot().PendingPrompt)

	s.SetPendingPrompt("   ")
	_, ok = s.TakePendingPrompt()
	assert.False(t, ok)
}

func TestPendingPromptConcurrentTake(t *testing.T) {
	s := NewStore()
	s.SetPendingPrompt("once")

	var wg sync.WaitGroup
	var mu sync.Mutex
	taken := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := s.TakePendingPrompt(); ok {
				mu.Lock()
				taken++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, taken)
}

func TestSetPageContext(t *testing.T) {
	s := NewStore()
	s.SetPageContext(models.ContextTeam)

	assert.Equal(t, models.ContextTeam, s.PageContext())
	assert.Equal(t, models.ContextTeam, s.Snapshot().PageContext)
}

func TestSubscribe(t *testing.T) {
	s := NewStore()

	var got []models.Snapshot
	unsubscribe := s.Subscribe(func(snap models.Snapshot) {
		got = append(got, snap)
	})

	_, err := s.AppendUserTurn("q")
	require.NoError(t, err)
	_, err = s.BeginAssistantTurn()
	require.NoError(t, err)
	s.AppendDelta("a")
	s.AppendDelta("b")
	s.CompleteTurn()

	require.Len(t, got, 5)
	assert.True(t, got[0].IsLoading)
	assert.Len(t, got[0].Turns, 1)
	last2, _ := got[2].Last()
	last3, _ := got[3].Last()
	assert.Equal(t, "a", last2.Content())
	assert.Equal(t, "ab", last3.Content())
	assert.False(t, got[4].IsLoading)

	unsubscribe()
	unsubscribe()
	s.Reset()
	assert.Len(t, got, 5)
}

func TestSubscribeObserverMayReadStore(t *testing.T) {
	s := NewStore()

	var lens []int
	s.Subscribe(func(models.Snapshot) {
		lens = append(lens, s.Len())
	})

	_, err := s.AppendUserTurn("q")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, lens)
}

func TestSnapshotIsolation(t *testing.T) {
	s := NewStore()
	_, err := s.AppendUserTurn("q")
	require.NoError(t, err)
	_, err = s.BeginAssistantTurn()
	require.NoError(t, err)
	s.AppendDelta("a")

	snap := s.Snapshot()
	snap.Turns[1].Fragments[0] = "mutated"
	snap.Turns = append(snap.Turns, models.NewUserTurn("x"))

	s.AppendDelta("b")
	last, _ := s.Snapshot().Last()
	assert.Equal(t, "ab", last.Content())
	assert.Equal(t, 2, s.Len())
}

func TestConcurrentReadersSeeOrderedContent(t *testing.T) {
	s := NewStore()
	_, err := s.AppendUserTurn("q")
	require.NoError(t, err)
	_, err = s.BeginAssistantTurn()
	require.NoError(t, err)

	const n = 200
	var want strings.Builder
	for i := 0; i < n; i++ {
		want.WriteString(fmt.Sprintf("%d,", i))
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			s.AppendDelta(fmt.Sprintf("%d,", i))
		}
		s.CompleteTurn()
	}()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				last, _ := s.Snapshot().Last()
				assert.True(t, strings.HasPrefix(want.String(), last.Content()))
			}
		}()
	}
	wg.Wait()

	last, _ := s.Snapshot().Last()
	assert.Equal(t, want.String(), last.Content())
}

func TestReset(t *testing.T) {
	s := NewStore()
	id := s.ID()
	s.SetPageContext(models.ContextRecipes)
	_, err := s.AppendUserTurn("q")
	require.NoError(t, err)
	_, err = s.BeginAssistantTurn()
	require.NoError(t, err)
	s.SetPendingPrompt("later")

	s.Reset()

	snap := s.Snapshot()
	assert.NotEqual(t, id, snap.ConversationID)
	assert.Empty(t, snap.Turns)
	assert.False(t, snap.IsLoading)
	assert.Empty(t, snap.PendingPrompt)
	assert.Equal(t, models.ContextRecipes, snap.PageContext)
	assert.False(t, s.AppendDelta("x"))
}

func TestTranscript(t *testing.T) {
	s := NewStore()
	_, err := s.AppendUserTurn("Show me all my recipes")
	require.NoError(t, err)
	_, err = s.BeginAssistantTurn()
	require.NoError(t, err)
	s.AppendDelta("You have **3** recipes.")
	s.CompleteTurn()

	assert.Equal(t, "You: Show me all my recipes\n\nAssistant: You have **3** recipes.", Transcript(s.Snapshot()))
	assert.Equal(t, "", Transcript(models.Snapshot{}))
}

func TestLastAssistantContent(t *testing.T) {
	s := NewStore()
	_, ok := s.Snapshot().LastAssistantContent()
	assert.False(t, ok)

	_, err := s.AppendUserTurn("first")
	require.NoError(t, err)
	_, err = s.BeginAssistantTurn()
	require.NoError(t, err)
	s.AppendDelta("answer one")
	s.CompleteTurn()

	_, err = s.AppendUserTurn("second")
	require.NoError(t, err)
	_, err = s.BeginAssistantTurn()
	require.NoError(t, err)
	s.FailTurn(errors.New("boom"))

	content, ok := s.Snapshot().LastAssistantContent()
	assert.True(t, ok)
	assert.Equal(t, "answer one", content)
}
