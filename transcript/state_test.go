package transcript

import (
	"testing"

	"github.com/screenbooth/screenbooth/internal/types"
)

func TestState_InterimReplaced(t *testing.T) {
	s := NewState()

	s.Apply(types.RecognitionResult{Text: "hello"})
	s.Apply(types.RecognitionResult{Text: "hello there"})

	if got := s.Hint(); got != "hello there" {
		t.Errorf("Hint() = %q, want %q", got, "hello there")
	}
	if got := s.Committed(); got != "" {
		t.Errorf("Committed() = %q, want empty before any final result", got)
	}
}

func TestState_FinalCommitsAndClearsPending(t *testing.T) {
	s := NewState()

	s.Apply(types.RecognitionResult{Text: "hello there how"})
	s.Apply(types.RecognitionResult{Text: "hello there", IsFinal: true})

	if got := s.Committed(); got != "hello there" {
		t.Errorf("Committed() = %q, want %q", got, "hello there")
	}
	// Pending was cleared by the final result.
	if got := s.Hint(); got != "hello there" {
		t.Errorf("Hint() = %q, want %q", got, "hello there")
	}
}

func TestState_OverlappingFinals(t *testing.T) {
	s := NewState()

	s.Apply(types.RecognitionResult{Text: "the quick brown", IsFinal: true})
	s.Apply(types.RecognitionResult{Text: "brown fox jumps", IsFinal: true})
	s.Apply(types.RecognitionResult{Text: "jumps over the dog"})

	if got := s.Hint(); got != "the quick brown fox jumps over the dog" {
		t.Errorf("Hint() = %q", got)
	}
	if got := s.Committed(); got != "the quick brown fox jumps" {
		t.Errorf("Committed() = %q", got)
	}
}

func TestState_Reset(t *testing.T) {
	s := NewState()

	s.Apply(types.RecognitionResult{Text: "old answer", IsFinal: true})
	s.Apply(types.RecognitionResult{Text: "trailing interim"})
	s.Reset()

	if got := s.Hint(); got != "" {
		t.Errorf("Hint() after Reset = %q, want empty", got)
	}

	s.Apply(types.RecognitionResult{Text: "fresh start", IsFinal: true})
	if got := s.Hint(); got != "fresh start" {
		t.Errorf("Hint() = %q, want %q", got, "fresh start")
	}
}
