package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/screenbooth/screenbooth/internal/types"
	"github.com/screenbooth/screenbooth/recognize"
	"github.com/screenbooth/screenbooth/transcript"
)

// SessionConfig holds configuration for a capture session.
type SessionConfig struct {
	// MaxResponseDuration clamps the reported duration of an answer.
	MaxResponseDuration time.Duration
	// Encodings is the recorder preference order. Defaults to DefaultEncodings.
	Encodings []Encoding
}

// DefaultSessionConfig returns the default capture configuration.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxResponseDuration: 2 * time.Minute,
		Encodings:           DefaultEncodings,
	}
}

// Session owns the device stream for one interview and records one answer at
// a time. The stream is acquired once in Start and released once in Close;
// questions reuse it. The live recognizer runs in lockstep with the recorder
// and feeds the transcript hint.
type Session struct {
	device     Device
	recognizer recognize.Provider
	cfg        SessionConfig

	// clock is injectable for testing; defaults to time.Now.
	clock func() time.Time

	mu          sync.Mutex
	stream      MediaStream
	rec         Recorder
	recording   bool
	accepting   bool // chunks still accepted (covers the Stop flush)
	recognizing bool
	questionID  string
	startedAt   time.Time
	buf         bytes.Buffer
	mimeType    string
	captured    map[string]bool
	tstate      *transcript.State
	onFault     func(error)
	closed      bool
}

// NewSession creates a capture session. The recognizer may be the noop
// provider; capture never depends on recognition succeeding.
func NewSession(device Device, recognizer recognize.Provider, cfg SessionConfig) *Session {
	if cfg.MaxResponseDuration == 0 {
		cfg.MaxResponseDuration = 2 * time.Minute
	}
	if len(cfg.Encodings) == 0 {
		cfg.Encodings = DefaultEncodings
	}
	if recognizer == nil {
		recognizer = recognize.NewNoop()
	}

	return &Session{
		device:     device,
		recognizer: recognizer,
		cfg:        cfg,
		clock:      time.Now,
		captured:   make(map[string]bool),
		tstate:     transcript.NewState(),
	}
}

// OnFault registers a callback for recorder runtime failures. The callback
// fires after the failed recording has been discarded.
func (s *Session) OnFault(f func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFault = f
}

// Start acquires the device stream. A denied permission surfaces as a
// DeviceAccessError, which is fatal to the whole interview.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream != nil {
		return nil
	}

	stream, err := s.device.AcquireStream(ctx)
	if err != nil {
		var dae *DeviceAccessError
		if errors.As(err, &dae) {
			return err
		}
		return &DeviceAccessError{Err: err}
	}

	s.stream = stream
	slog.Info("media stream acquired")
	return nil
}

// StartAnswer begins recording the given question. Starting while recording
// or for an already-captured question returns a sentinel the caller treats
// as a no-op.
func (s *Session) StartAnswer(ctx context.Context, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return fmt.Errorf("capture session not started")
	}
	if s.recording {
		return ErrAlreadyRecording
	}
	if s.captured[questionID] {
		return ErrQuestionCompleted
	}

	enc := PickEncoding(s.stream, s.cfg.Encodings)

	s.tstate.Reset()
	s.buf.Reset()
	s.questionID = questionID
	s.mimeType = enc.MimeType
	s.startedAt = s.clock()

	// Recognizer absence or failure degrades to an empty hint, never a
	// failed capture.
	s.recognizing = false
	if err := s.recognizer.Start(ctx, s.tstate.Apply); err != nil {
		slog.Warn("recognizer unavailable, continuing without live transcript",
			"provider", s.recognizer.Name(), "error", err)
	} else {
		s.recognizing = true
	}

	rec, err := s.stream.StartRecording(enc, RecorderHandlers{
		OnChunk: s.handleChunk,
		OnError: s.handleRecorderError,
	})
	if err != nil {
		if s.recognizing {
			_ = s.recognizer.Stop()
			s.recognizing = false
		}
		s.questionID = ""
		return &RecorderFault{QuestionID: questionID, Err: err}
	}

	s.rec = rec
	s.recording = true
	s.accepting = true
	slog.Info("recording started", "question", questionID, "encoding", enc.MimeType)
	return nil
}

// StopAnswer stops the recorder and recognizer and returns the finished
// capture. The reported duration is clamped to the configured maximum so a
// delayed stop event never yields an over-long answer.
func (s *Session) StopAnswer() (types.CaptureResult, error) {
	s.mu.Lock()
	if !s.recording {
		s.mu.Unlock()
		return types.CaptureResult{}, ErrNotRecording
	}
	s.recording = false
	rec := s.rec
	s.rec = nil
	s.mu.Unlock()

	// Stop flushes remaining chunks through handleChunk; the lock must not
	// be held across it, and the recognizer stays live so the flush reaches
	// it before the final result is read.
	if err := rec.Stop(); err != nil {
		slog.Warn("recorder stop", "error", err)
	}

	s.mu.Lock()
	recognizing := s.recognizing
	s.recognizing = false
	s.mu.Unlock()
	if recognizing {
		if err := s.recognizer.Stop(); err != nil {
			slog.Warn("recognizer stop", "error", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accepting = false

	elapsed := s.clock().Sub(s.startedAt)
	if elapsed > s.cfg.MaxResponseDuration {
		elapsed = s.cfg.MaxResponseDuration
	}

	result := types.CaptureResult{
		QuestionID:     s.questionID,
		Blob:           bytes.Clone(s.buf.Bytes()),
		MimeType:       s.mimeType,
		Duration:       elapsed,
		TranscriptHint: transcript.Clean(s.tstate.Hint()),
	}

	s.captured[s.questionID] = true
	s.buf.Reset()
	s.questionID = ""

	slog.Info("recording stopped",
		"question", result.QuestionID,
		"bytes", len(result.Blob),
		"duration", result.Duration)
	return result, nil
}

// Recording reports whether an answer is being recorded.
func (s *Session) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

// Close releases the device stream exactly once and stops any live
// recognition. Safe to call multiple times.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	stream := s.stream
	s.stream = nil
	recognizing := s.recognizing
	s.recognizing = false
	s.recording = false
	s.accepting = false
	s.mu.Unlock()

	if recognizing {
		_ = s.recognizer.Stop()
	}
	if stream == nil {
		return nil
	}

	err := stream.Stop()
	slog.Info("media stream released")
	return err
}

// handleChunk buffers one encoded chunk and forwards it to the recognizer.
func (s *Session) handleChunk(chunk []byte) {
	s.mu.Lock()
	if !s.accepting {
		s.mu.Unlock()
		return
	}
	s.buf.Write(chunk)
	recognizing := s.recognizing
	s.mu.Unlock()

	if recognizing {
		if err := s.recognizer.Feed(chunk); err != nil {
			slog.Debug("recognizer feed", "error", err)
		}
	}
}

// handleRecorderError aborts the current recording: the partial blob is
// discarded and the fault is reported so the question can be retried from
// the beginning.
func (s *Session) handleRecorderError(err error) {
	s.mu.Lock()
	if !s.recording {
		s.mu.Unlock()
		return
	}
	s.recording = false
	s.accepting = false
	rec := s.rec
	s.rec = nil
	recognizing := s.recognizing
	s.recognizing = false
	questionID := s.questionID
	s.questionID = ""
	s.buf.Reset()
	onFault := s.onFault
	s.mu.Unlock()

	if rec != nil {
		_ = rec.Stop()
	}
	if recognizing {
		_ = s.recognizer.Stop()
	}

	fault := &RecorderFault{QuestionID: questionID, Err: err}
	slog.Error("recording aborted", "question", questionID, "error", err)
	if onFault != nil {
		onFault(fault)
	}
}
