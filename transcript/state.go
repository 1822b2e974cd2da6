package transcript

import (
	"sync"

	"github.com/screenbooth/screenbooth/internal/types"
)

// State tracks the transcript for the current recording. Committed text is
// append-only until Reset; pending holds the latest interim fragment and is
// fully replaced on every interim event.
type State struct {
	mu        sync.Mutex
	committed string
	pending   string
}

// NewState creates an empty transcript state.
func NewState() *State {
	return &State{}
}

// Apply folds one recognition event into the transcript. Events must be
// applied in arrival order.
func (s *State) Apply(r types.RecognitionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.IsFinal {
		s.committed = Merge(s.committed, r.Text)
		s.pending = ""
		return
	}
	s.pending = Clean(r.Text)
}

// Hint returns the text to present for upload: the committed transcript with
// the current interim fragment merged on as a suffix candidate.
func (s *State) Hint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Merge(s.committed, s.pending)
}

// Committed returns the finalized portion of the transcript.
func (s *State) Committed() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed
}

// Reset clears all state. Called at the start of every new recording.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = ""
	s.pending = ""
}
