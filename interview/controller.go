// Package interview drives the interview flow: one session against the
// server, one question at a time through pending → recording → uploading →
// completed, with the countdown timer bounding each response.
package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/screenbooth/screenbooth/apiclient"
	"github.com/screenbooth/screenbooth/countdown"
	"github.com/screenbooth/screenbooth/internal/types"
	"github.com/screenbooth/screenbooth/spool"
)

// QuestionState is the per-question lifecycle state.
type QuestionState string

const (
	QuestionPending   QuestionState = "pending"
	QuestionRecording QuestionState = "recording"
	QuestionUploading QuestionState = "uploading"
	QuestionCompleted QuestionState = "completed"
)

// SessionState is the whole-interview lifecycle state.
type SessionState string

const (
	SessionNotStarted SessionState = "not_started"
	SessionInProgress SessionState = "in_progress"
	SessionFinished   SessionState = "finished"
)

var (
	ErrNotInProgress   = errors.New("interview not in progress")
	ErrAlreadyStarted  = errors.New("interview already started")
	ErrNotPending      = errors.New("question is not ready to record")
	ErrNotRecording    = errors.New("question is not recording")
	ErrCannotAdvance   = errors.New("current question not completed yet")
	ErrNoMoreQuestions = errors.New("no further questions")
	ErrNothingToRetry  = errors.New("no failed upload to retry")
	ErrAwaitingUpload  = errors.New("answer already recorded, retry its upload")
)

// API is the slice of the server client the controller needs.
type API interface {
	StartInterview(ctx context.Context, req apiclient.StartInterviewRequest) (*types.Session, error)
	SessionProgress(ctx context.Context, sessionID string) (*types.SessionProgress, error)
}

// Capturer owns the device stream and records one answer at a time.
type Capturer interface {
	Start(ctx context.Context) error
	StartAnswer(ctx context.Context, questionID string) error
	StopAnswer() (types.CaptureResult, error)
	OnFault(func(error))
	Close() error
}

// Uploader delivers one answer, retrying transient failures internally.
type Uploader interface {
	Upload(ctx context.Context, sessionID string, res types.CaptureResult) (*types.UploadOutcome, error)
}

// Spool persists answers between recording and upload confirmation.
type Spool interface {
	Put(sessionID string, res types.CaptureResult) (*spool.Record, error)
	Get(sessionID, questionID string) (*spool.Record, error)
	Delete(sessionID, questionID string) error
	Pending(sessionID string) ([]*spool.Record, error)
}

// Events carries the controller's outbound notifications. Any callback may
// be nil.
type Events struct {
	OnStatus   func(msg string)
	OnTick     func(snap countdown.Snapshot)
	OnQuestion func(q types.Question, state QuestionState)
	OnProgress func(p types.Progress)
	OnFinished func()
}

// Controller runs one interview.
type Controller struct {
	api     API
	capture Capturer
	upload  Uploader
	store   Spool
	events  Events
	timer   *countdown.Timer

	mu        sync.Mutex
	session   *types.Session
	state     SessionState
	starting  bool // a Begin is in flight but has not committed yet
	qstates   map[string]QuestionState
	current   int
	completed int
}

// New creates a controller. maxResponseDuration bounds each answer's
// countdown; it does not stop the recording when it expires.
func New(api API, capture Capturer, uploader Uploader, store Spool, maxResponseDuration time.Duration, events Events) *Controller {
	c := &Controller{
		api:     api,
		capture: capture,
		upload:  uploader,
		store:   store,
		events:  events,
		state:   SessionNotStarted,
		qstates: make(map[string]QuestionState),
	}
	c.timer = countdown.New(maxResponseDuration, func(snap countdown.Snapshot) {
		if events.OnTick != nil {
			events.OnTick(snap)
		}
	})
	capture.OnFault(c.handleFault)
	return c
}

// Begin creates the session server-side, acquires the device stream and
// presents the first question. A device access failure is fatal: the
// interview stays not-started.
func (c *Controller) Begin(ctx context.Context, candidateID string) (*types.Session, error) {
	c.mu.Lock()
	if c.starting || c.state != SessionNotStarted {
		c.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	c.starting = true
	c.mu.Unlock()

	session, err := c.api.StartInterview(ctx, apiclient.StartInterviewRequest{CandidateID: candidateID})
	if err != nil {
		c.abortBegin()
		return nil, fmt.Errorf("start interview: %w", err)
	}
	if len(session.Questions) == 0 {
		c.abortBegin()
		return nil, fmt.Errorf("session %s has no questions", session.SessionID)
	}
	sort.Slice(session.Questions, func(i, j int) bool {
		return session.Questions[i].OrderIndex < session.Questions[j].OrderIndex
	})

	if err := c.capture.Start(ctx); err != nil {
		c.abortBegin()
		return nil, err
	}

	c.mu.Lock()
	c.session = session
	c.state = SessionInProgress
	c.starting = false
	c.current = 0
	c.completed = 0
	for _, q := range session.Questions {
		c.qstates[q.QuestionID] = QuestionPending
	}
	first := session.Questions[0]
	total := len(session.Questions)
	c.mu.Unlock()

	slog.Info("interview started",
		"session_id", session.SessionID,
		"candidate_id", session.CandidateID,
		"questions", total)
	c.emitProgress(types.Progress{Completed: 0, Total: total})
	c.emitQuestion(first, QuestionPending)
	return session, nil
}

// abortBegin re-opens the start guard after a failed Begin, so the
// interview can be started again.
func (c *Controller) abortBegin() {
	c.mu.Lock()
	c.starting = false
	c.mu.Unlock()
}

// StartAnswer begins recording the current question and starts the
// countdown. Reaching zero only changes the display; the candidate must
// still stop explicitly.
func (c *Controller) StartAnswer(ctx context.Context) error {
	c.mu.Lock()
	if c.state != SessionInProgress {
		c.mu.Unlock()
		return ErrNotInProgress
	}
	q := c.session.Questions[c.current]
	if c.qstates[q.QuestionID] != QuestionPending {
		c.mu.Unlock()
		return ErrNotPending
	}
	sessionID := c.session.SessionID
	c.mu.Unlock()

	// A spooled answer means recording already happened and only the upload
	// failed; the same blob must be re-sent, never re-recorded.
	if _, err := c.store.Get(sessionID, q.QuestionID); err == nil {
		return ErrAwaitingUpload
	}

	if err := c.capture.StartAnswer(ctx, q.QuestionID); err != nil {
		return err
	}

	c.mu.Lock()
	c.qstates[q.QuestionID] = QuestionRecording
	c.mu.Unlock()

	c.timer.Start()
	c.emitQuestion(q, QuestionRecording)
	return nil
}

// StopAndUpload stops the recording and uploads the answer. On upload
// failure the question returns to pending with the blob spooled for retry.
func (c *Controller) StopAndUpload(ctx context.Context) (*types.UploadOutcome, error) {
	c.mu.Lock()
	if c.state != SessionInProgress {
		c.mu.Unlock()
		return nil, ErrNotInProgress
	}
	q := c.session.Questions[c.current]
	if c.qstates[q.QuestionID] != QuestionRecording {
		c.mu.Unlock()
		return nil, ErrNotRecording
	}
	c.qstates[q.QuestionID] = QuestionUploading
	sessionID := c.session.SessionID
	c.mu.Unlock()

	c.timer.Cancel()
	c.emitQuestion(q, QuestionUploading)

	res, err := c.capture.StopAnswer()
	if err != nil {
		c.setQuestionState(q, QuestionPending)
		return nil, fmt.Errorf("stop recording: %w", err)
	}

	if _, err := c.store.Put(sessionID, res); err != nil {
		// The upload still proceeds; only crash durability is lost.
		slog.Warn("spool answer", "question", q.QuestionID, "error", err)
	}

	return c.uploadAnswer(ctx, q, res)
}

// RetryUpload re-sends the spooled answer for the current question after an
// earlier upload failed.
func (c *Controller) RetryUpload(ctx context.Context) (*types.UploadOutcome, error) {
	c.mu.Lock()
	if c.state != SessionInProgress {
		c.mu.Unlock()
		return nil, ErrNotInProgress
	}
	q := c.session.Questions[c.current]
	if c.qstates[q.QuestionID] != QuestionPending {
		c.mu.Unlock()
		return nil, ErrNotPending
	}
	sessionID := c.session.SessionID
	c.mu.Unlock()

	rec, err := c.store.Get(sessionID, q.QuestionID)
	if err != nil {
		if errors.Is(err, spool.ErrNotFound) {
			return nil, ErrNothingToRetry
		}
		return nil, err
	}

	c.setQuestionState(q, QuestionUploading)
	c.emitQuestion(q, QuestionUploading)
	return c.uploadAnswer(ctx, q, rec.CaptureResult())
}

// uploadAnswer runs the upload and the completion bookkeeping shared by the
// first attempt and retries.
func (c *Controller) uploadAnswer(ctx context.Context, q types.Question, res types.CaptureResult) (*types.UploadOutcome, error) {
	c.emitStatus("Uploading response...")

	c.mu.Lock()
	sessionID := c.session.SessionID
	c.mu.Unlock()

	outcome, err := c.upload.Upload(ctx, sessionID, res)
	if err != nil {
		c.setQuestionState(q, QuestionPending)
		c.emitQuestion(q, QuestionPending)
		c.emitStatus("Upload failed. Please retry.")
		return nil, fmt.Errorf("upload answer %s: %w", q.QuestionID, err)
	}

	if err := c.store.Delete(sessionID, q.QuestionID); err != nil {
		slog.Warn("clear spooled answer", "question", q.QuestionID, "error", err)
	}

	c.mu.Lock()
	c.qstates[q.QuestionID] = QuestionCompleted
	c.completed++
	progress := types.Progress{Completed: c.completed, Total: len(c.session.Questions)}
	done := c.completed == len(c.session.Questions)
	c.mu.Unlock()

	slog.Info("answer uploaded",
		"question", q.QuestionID,
		"response_id", outcome.ResponseID,
		"auto_evaluated", outcome.AutoEvaluated)
	c.emitQuestion(q, QuestionCompleted)
	c.emitProgress(progress)

	if done || outcome.AutoEvaluated {
		c.finish()
	}
	return outcome, nil
}

// NextQuestion advances to the next question. It is gated on the current
// question being completed.
func (c *Controller) NextQuestion() (types.Question, error) {
	c.mu.Lock()
	if c.state != SessionInProgress {
		c.mu.Unlock()
		return types.Question{}, ErrNotInProgress
	}
	q := c.session.Questions[c.current]
	if c.qstates[q.QuestionID] != QuestionCompleted {
		c.mu.Unlock()
		return types.Question{}, ErrCannotAdvance
	}
	if c.current+1 >= len(c.session.Questions) {
		c.mu.Unlock()
		return types.Question{}, ErrNoMoreQuestions
	}
	c.current++
	next := c.session.Questions[c.current]
	c.mu.Unlock()

	c.emitQuestion(next, QuestionPending)
	return next, nil
}

// CanAdvance reports whether the next-question action is currently allowed.
func (c *Controller) CanAdvance() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != SessionInProgress {
		return false
	}
	q := c.session.Questions[c.current]
	return c.qstates[q.QuestionID] == QuestionCompleted && c.current+1 < len(c.session.Questions)
}

// CurrentQuestion returns the question now presented.
func (c *Controller) CurrentQuestion() (types.Question, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return types.Question{}, false
	}
	return c.session.Questions[c.current], true
}

// QuestionState returns the lifecycle state of one question.
func (c *Controller) QuestionState(questionID string) QuestionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.qstates[questionID]; ok {
		return st
	}
	return QuestionPending
}

// State returns the session lifecycle state.
func (c *Controller) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Progress counts confirmed uploads over total questions.
func (c *Controller) Progress() types.Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	if c.session != nil {
		total = len(c.session.Questions)
	}
	return types.Progress{Completed: c.completed, Total: total}
}

// Recover re-sends any answers spooled under the session that never got a
// server confirmation, then returns the server's view of the session.
func (c *Controller) Recover(ctx context.Context, sessionID string) (*types.SessionProgress, error) {
	records, err := c.store.Pending(sessionID)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		outcome, err := c.upload.Upload(ctx, sessionID, rec.CaptureResult())
		if err != nil {
			return nil, fmt.Errorf("recover answer %s: %w", rec.QuestionID, err)
		}
		if err := c.store.Delete(sessionID, rec.QuestionID); err != nil {
			slog.Warn("clear spooled answer", "question", rec.QuestionID, "error", err)
		}
		slog.Info("recovered spooled answer",
			"session_id", sessionID,
			"question", rec.QuestionID,
			"response_id", outcome.ResponseID)
	}
	return c.api.SessionProgress(ctx, sessionID)
}

// finish ends the interview and releases capture resources. The device
// stream is stopped exactly once even if finish races with Close.
func (c *Controller) finish() {
	c.mu.Lock()
	if c.state != SessionInProgress {
		c.mu.Unlock()
		return
	}
	c.state = SessionFinished
	sessionID := c.session.SessionID
	c.mu.Unlock()

	c.timer.Cancel()
	if err := c.capture.Close(); err != nil {
		slog.Warn("close capture session", "error", err)
	}
	slog.Info("interview finished", "session_id", sessionID)
	c.emitStatus("Interview complete. Thank you!")
	if c.events.OnFinished != nil {
		c.events.OnFinished()
	}
}

// Close tears the interview down without completing it, for page-unload
// style shutdown. Safe to call multiple times.
func (c *Controller) Close() error {
	c.timer.Cancel()
	return c.capture.Close()
}

// handleFault handles a recorder runtime failure: the question returns to
// pending and may be re-recorded from the beginning.
func (c *Controller) handleFault(err error) {
	c.mu.Lock()
	if c.state != SessionInProgress {
		c.mu.Unlock()
		return
	}
	q := c.session.Questions[c.current]
	if c.qstates[q.QuestionID] != QuestionRecording {
		c.mu.Unlock()
		return
	}
	c.qstates[q.QuestionID] = QuestionPending
	c.mu.Unlock()

	c.timer.Cancel()
	slog.Error("recording failed", "question", q.QuestionID, "error", err)
	c.emitQuestion(q, QuestionPending)
	c.emitStatus("Recording failed. Please try again.")
}

func (c *Controller) setQuestionState(q types.Question, st QuestionState) {
	c.mu.Lock()
	c.qstates[q.QuestionID] = st
	c.mu.Unlock()
}

func (c *Controller) emitStatus(msg string) {
	if c.events.OnStatus != nil {
		c.events.OnStatus(msg)
	}
}

func (c *Controller) emitQuestion(q types.Question, st QuestionState) {
	if c.events.OnQuestion != nil {
		c.events.OnQuestion(q, st)
	}
}

func (c *Controller) emitProgress(p types.Progress) {
	if c.events.OnProgress != nil {
		c.events.OnProgress(p)
	}
}
