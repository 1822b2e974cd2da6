package recognize

import (
	"context"

	"github.com/screenbooth/screenbooth/internal/types"
)

// Noop is the recognizer used when no speech recognition backend is
// configured or supported. Capture proceeds with an empty transcript hint.
type Noop struct{}

// NewNoop creates a no-op recognizer.
func NewNoop() *Noop { return &Noop{} }

func (*Noop) Name() string    { return "noop" }
func (*Noop) Available() bool { return false }

func (*Noop) Start(context.Context, func(types.RecognitionResult)) error { return nil }
func (*Noop) Feed([]byte) error                                          { return nil }
func (*Noop) Stop() error                                                { return nil }
