// Package chat holds the conversation state shown by the chat drawer.
package chat

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apierrors "github.com/diogo/chatdrawer/internal/errors"
	"github.com/diogo/chatdrawer/internal/models"
)

// Observer receives a fresh snapshot after every mutation of the store.
// Observers run synchronously on the mutating goroutine, in mutation order,
// and must not mutate the store or block for long.
type Observer func(models.Snapshot)

// Store is the ordered transcript of a conversation together with its
// loading flag and pending prompt. It is safe for concurrent use.
type Store struct {
	mu          sync.Mutex
	notifyMu    sync.Mutex
	id          string
	turns       []models.Turn
	streaming   int
	loading     bool
	pending     string
	hasPending  bool
	pageContext string
	observers   map[int]Observer
	nextID      int
}

// NewStore creates an empty conversation
func NewStore() *Store {
	return &Store{
		id:          uuid.NewString(),
		streaming:   -1,
		pageContext: models.ContextDashboard,
		observers:   make(map[int]Observer),
	}
}

// ID returns the conversation identifier
func (s *Store) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// AppendUserTurn appends a completed user turn and marks the conversation as
// loading. It fails if a request is already in flight or text is blank.
func (s *Store) AppendUserTurn(text string) (models.Turn, error) {
	if strings.TrimSpace(text) == "" {
		return models.Turn{}, apierrors.NewInvalidStateError("append user turn", apierrors.ErrEmptyPrompt)
	}

	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return models.Turn{}, apierrors.NewInvalidStateError("append user turn", apierrors.ErrBusy)
	}

	turn := models.NewUserTurn(text)
	s.turns = append(s.turns, turn)
	s.loading = true
	s.commit()
	return turn.Clone(), nil
}

// BeginAssistantTurn appends an empty assistant turn that receives deltas
func (s *Store) BeginAssistantTurn() (models.Turn, error) {
	s.mu.Lock()
	if s.streaming >= 0 {
		s.mu.Unlock()
		return models.Turn{}, apierrors.NewInvalidStateError("begin assistant turn", apierrors.ErrBusy)
	}

	turn := models.NewAssistantTurn()
	s.turns = append(s.turns, turn)
	s.streaming = len(s.turns) - 1
	s.loading = true
	s.commit()
	return turn.Clone(), nil
}

// AppendDelta appends a fragment to the streaming turn. It reports false and
// changes nothing when no turn is streaming.
func (s *Store) AppendDelta(fragment string) bool {
	s.mu.Lock()
	if s.streaming < 0 {
		s.mu.Unlock()
		return false
	}

	t := &s.turns[s.streaming]
	t.Fragments = append(t.Fragments, fragment)
	s.commit()
	return true
}

// CompleteTurn marks the streaming turn complete and clears the loading flag
func (s *Store) CompleteTurn() {
	s.mu.Lock()
	s.finish(models.StatusComplete, "")
	s.commit()
}

// FailTurn marks the streaming turn errored, appends a short summary of err
// after whatever content already arrived, and clears the loading flag
func (s *Store) FailTurn(err error) {
	summary := apierrors.Summary(models.ErrorMarker, err)

	s.mu.Lock()
	s.finish(models.StatusErrored, summary)
	s.commit()
}

// finish must be called with s.mu held
func (s *Store) finish(status models.TurnStatus, summary string) {
	if s.streaming >= 0 {
		t := &s.turns[s.streaming]
		t.Status = status
		t.FinishedAt = time.Now()
		if status == models.StatusErrored {
			t.Err = summary
			if t.Content() != "" {
				summary = "\n\n" + summary
			}
			t.Fragments = append(t.Fragments, summary)
		}
		s.streaming = -1
	}
	s.loading = false
}

// SetPendingPrompt queues text to be sent automatically as the next user turn
func (s *Store) SetPendingPrompt(text string) {
	s.mu.Lock()
	s.pending = text
	s.hasPending = strings.TrimSpace(text) != ""
	s.commit()
}

// TakePendingPrompt returns the queued prompt and clears it, so that it is
// handed out at most once
func (s *Store) TakePendingPrompt() (string, bool) {
	s.mu.Lock()
	if !s.hasPending {
		s.mu.Unlock()
		return "", false
	}

	text := s.pending
	s.pending = ""
	s.hasPending = false
	s.commit()
	return text, true
}

// SetPageContext records which part of the host application is visible
func (s *Store) SetPageContext(label string) {
	s.mu.Lock()
	s.pageContext = label
	s.commit()
}

// PageContext returns the current page context label
func (s *Store) PageContext() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageContext
}

// Reset discards the transcript and starts a new conversation
func (s *Store) Reset() {
	s.mu.Lock()
	s.id = uuid.NewString()
	s.turns = nil
	s.streaming = -1
	s.loading = false
	s.pending = ""
	s.hasPending = false
	s.commit()
}

// Snapshot returns a deep copy of the current state
func (s *Store) Snapshot() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Len returns the number of turns
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// IsLoading reports whether a request is in flight
func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Subscribe registers an observer and returns a function that removes it
func (s *Store) Subscribe(fn Observer) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) snapshotLocked() models.Snapshot {
	turns := make([]models.Turn, len(s.turns))
	for i, t := range s.turns {
		turns[i] = t.Clone()
	}
	return models.Snapshot{
		ConversationID: s.id,
		Turns:          turns,
		IsLoading:      s.loading,
		PendingPrompt:  s.pending,
		PageContext:    s.pageContext,
	}
}

// commit must be called with s.mu held and releases it. The notify lock is
// taken before s.mu is released so observers see snapshots in mutation order.
func (s *Store) commit() {
	if len(s.observers) == 0 {
		s.mu.Unlock()
		return
	}

	snap := s.snapshotLocked()
	observers := make([]Observer, 0, len(s.observers))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.observers[id]; ok {
			observers = append(observers, fn)
		}
	}

	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}
