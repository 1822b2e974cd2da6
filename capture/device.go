// Package capture owns the device media stream and the per-question recorder
// lifecycle. The platform recording APIs sit behind the Device interface so
// the session logic runs against fakes in tests.
package capture

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnsupported is returned when no capture backend exists on this platform.
var ErrUnsupported = errors.New("no capture backend available on this platform")

// ErrAlreadyRecording is returned when starting an answer while one is being
// recorded. Callers treat it as a no-op.
var ErrAlreadyRecording = errors.New("already recording")

// ErrNotRecording is returned when stopping without an active recording.
var ErrNotRecording = errors.New("not recording")

// ErrQuestionCompleted is returned when starting an answer for a question
// that already produced a capture. Callers treat it as a no-op.
var ErrQuestionCompleted = errors.New("question already captured")

// DeviceAccessError means the platform denied camera/microphone access. It is
// fatal to the capture session: the interview cannot proceed.
type DeviceAccessError struct {
	Err error
}

func (e *DeviceAccessError) Error() string {
	return fmt.Sprintf("device access denied: %v", e.Err)
}

func (e *DeviceAccessError) Unwrap() error { return e.Err }

// RecorderFault is a recoverable runtime failure of the recorder (device
// unplugged, encoder fault). The question returns to a retryable state; no
// partial blob is uploaded.
type RecorderFault struct {
	QuestionID string
	Err        error
}

func (e *RecorderFault) Error() string {
	return fmt.Sprintf("recorder fault on question %s: %v", e.QuestionID, e.Err)
}

func (e *RecorderFault) Unwrap() error { return e.Err }

// Encoding identifies a container+codec combination for the recorder.
type Encoding struct {
	MimeType string
}

// DefaultEncodings is the preference order tried at each question start.
var DefaultEncodings = []Encoding{
	{MimeType: "video/webm;codecs=vp9,opus"},
	{MimeType: "video/webm;codecs=vp8,opus"},
	{MimeType: "video/mp4;codecs=avc1.42E01E,mp4a.40.2"},
}

// GenericEncoding is the fallback container when no preferred combination is
// supported.
var GenericEncoding = Encoding{MimeType: "video/webm"}

// Device opens the combined audio+video stream. Acquisition happens once per
// interview, not per question.
type Device interface {
	AcquireStream(ctx context.Context) (MediaStream, error)
}

// MediaStream is an open device stream that can host one recorder at a time.
type MediaStream interface {
	// Supports reports whether the stream can record with the encoding.
	Supports(enc Encoding) bool

	// StartRecording begins buffering encoded chunks. Chunks and runtime
	// errors are delivered through the handlers until Recorder.Stop returns.
	StartRecording(enc Encoding, h RecorderHandlers) (Recorder, error)

	// Stop releases the device. The stream cannot be reused afterwards.
	Stop() error
}

// RecorderHandlers receives recorder output.
type RecorderHandlers struct {
	OnChunk func(chunk []byte)
	OnError func(err error)
}

// Recorder is an in-progress recording. Stop flushes any buffered chunks
// through OnChunk before returning.
type Recorder interface {
	Stop() error
}

// PickEncoding returns the first supported encoding from prefs, falling back
// to the generic container. Selection happens once per question start.
func PickEncoding(stream MediaStream, prefs []Encoding) Encoding {
	for _, enc := range prefs {
		if stream.Supports(enc) {
			return enc
		}
	}
	return GenericEncoding
}
