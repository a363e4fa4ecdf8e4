package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogo/chatdrawer/internal/api"
	"github.com/diogo/chatdrawer/internal/models"
)

func TestOpenWithPromptSendsOnce(t *testing.T) {
	transport := api.NewMockTransport("1. Review PR", "\n2. Book flights")
	d := NewDrawer(transport)

	require.NoError(t, d.OpenWithPrompt(context.Background(), "List my recent todos"))

	s := d.Session()
	require.NotNil(t, s)
	snap := s.Store().Snapshot()
	require.Len(t, snap.Turns, 2)
	assert.Equal(t, models.RoleUser, snap.Turns[0].Role)
	assert.Equal(t, "List my recent todos", snap.Turns[0].Content())
	assert.Empty(t, snap.PendingPrompt)

	require.NoError(t, d.Open(context.Background()))
	assert.Equal(t, 1, transport.CallCount())
	assert.Equal(t, 2, s.Store().Len())

	d.Close()
	require.NoError(t, d.Open(context.Background()))
	assert.Equal(t, 1, transport.CallCount())
	assert.Equal(t, 0, d.Session().Store().Len())
}

func TestDrawerFreshSessionPerOpen(t *testing.T) {
	d := NewDrawer(api.NewMockTransport("hi"))

	first := d.Mount()
	assert.Same(t, first, d.Mount())
	require.NoError(t, first.Submit(context.Background(), "hello"))

	d.Close()
	assert.False(t, d.IsOpen())
	assert.Nil(t, d.Session())
	assert.True(t, first.IsClosed())

	second := d.Mount()
	assert.NotSame(t, first, second)
	assert.NotEqual(t, first.Store().ID(), second.Store().ID())
	assert.Equal(t, 0, second.Store().Len())

	d.Close()
	d.Close()
}

func TestDrawerCloseCancelsRequest(t *testing.T) {
	transport := &api.MockTransport{Hold: true}
	d := NewDrawer(transport)

	s := d.Queue("Show me my meeting notes")
	done := make(chan error, 1)
	go func() { done <- s.AutoSubmit(context.Background()) }()

	require.Eventually(t, func() bool { return s.State() == Streaming }, waitFor, tick)
	d.Close()

	require.NoError(t, waitErr(t, done))
	assert.False(t, s.Store().IsLoading())
	assert.Equal(t, models.StatusComplete, lastTurn(t, s).Status)
}

func TestDrawerContext(t *testing.T) {
	d := NewDrawer(api.NewMockTransport())
	assert.Equal(t, models.ContextDashboard, d.Context())
	assert.Equal(t, "summary", d.Suggestions()[0].ID)

	d.SetContext(models.ContextTeam)
	assert.Equal(t, "org-chart", d.Suggestions()[0].ID)

	s := d.Mount()
	assert.Equal(t, models.ContextTeam, s.Store().PageContext())

	d.SetContext(models.ContextRecipes)
	assert.Equal(t, models.ContextRecipes, s.Store().PageContext())
	assert.Equal(t, "all-recipes", d.Suggestions()[0].ID)
}
