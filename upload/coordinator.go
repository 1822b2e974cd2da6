// Package upload delivers recorded answers to the server with bounded
// retries. Only transport-level failures are retried; before every retry the
// coordinator reconciles against the idempotent upload-status endpoint so a
// request that succeeded server-side but lost its response is never resent.
package upload

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/screenbooth/screenbooth/apiclient"
	"github.com/screenbooth/screenbooth/internal/types"
)

// API is the slice of the server client the coordinator needs.
type API interface {
	UploadResponse(ctx context.Context, sessionID string, res types.CaptureResult) (*types.UploadOutcome, error)
	UploadStatus(ctx context.Context, sessionID, questionID string) (*types.UploadStatus, error)
}

// ExhaustedError reports that every attempt failed and reconciliation never
// confirmed persistence. It carries the last observed error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("upload failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Config tunes the retry schedule.
type Config struct {
	MaxAttempts int           // total attempts including the first
	BackoffStep time.Duration // delay grows linearly in multiples of this
	BackoffCap  time.Duration // upper bound on any single delay
}

// DefaultConfig returns the production retry schedule.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 8,
		BackoffStep: 2 * time.Second,
		BackoffCap:  10 * time.Second,
	}
}

// Coordinator uploads one answer at a time.
type Coordinator struct {
	api      API
	cfg      Config
	onStatus func(string)

	// sleep is replaced in tests to avoid real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a coordinator. onStatus receives user-facing progress messages
// and may be nil.
func New(api API, cfg Config, onStatus func(string)) *Coordinator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.BackoffStep <= 0 {
		cfg.BackoffStep = DefaultConfig().BackoffStep
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = DefaultConfig().BackoffCap
	}
	return &Coordinator{
		api:      api,
		cfg:      cfg,
		onStatus: onStatus,
		sleep:    sleepCtx,
	}
}

// Upload submits the answer, retrying transient failures with linear capped
// backoff. The same blob bytes are sent on every attempt. A server rejection
// is terminal immediately; exhausting all attempts returns ExhaustedError.
func (c *Coordinator) Upload(ctx context.Context, sessionID string, res types.CaptureResult) (*types.UploadOutcome, error) {
	var lastErr error

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		outcome, err := c.api.UploadResponse(ctx, sessionID, res)
		if err == nil {
			return outcome, nil
		}
		if !apiclient.IsTransient(err) {
			// The server received and refused the request. Retrying would
			// send the same payload to the same answer.
			return nil, err
		}
		lastErr = err
		slog.Warn("upload attempt failed",
			"session_id", sessionID,
			"question_id", res.QuestionID,
			"attempt", attempt,
			"error", err)

		// The request may have been processed with its response lost. If the
		// server already holds this answer, resending would duplicate it.
		if outcome := c.reconcile(ctx, sessionID, res.QuestionID); outcome != nil {
			return outcome, nil
		}

		if attempt == c.cfg.MaxAttempts {
			break
		}
		c.emit(fmt.Sprintf("Retrying upload (%d/%d)...", attempt+1, c.cfg.MaxAttempts))
		if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
			return nil, err
		}
	}

	return nil, &ExhaustedError{Attempts: c.cfg.MaxAttempts, Err: lastErr}
}

// reconcile returns a synthesized outcome when the server confirms the
// answer is already persisted, nil otherwise.
func (c *Coordinator) reconcile(ctx context.Context, sessionID, questionID string) *types.UploadOutcome {
	status, err := c.api.UploadStatus(ctx, sessionID, questionID)
	if err != nil {
		slog.Warn("upload-status reconciliation failed",
			"session_id", sessionID,
			"question_id", questionID,
			"error", err)
		return nil
	}
	if !status.Uploaded {
		return nil
	}

	slog.Info("upload confirmed via reconciliation",
		"session_id", sessionID,
		"question_id", questionID,
		"response_id", status.ResponseID)
	outcome := &types.UploadOutcome{
		ResponseID: status.ResponseID,
		QuestionID: questionID,
	}
	if status.UploadedAt != nil {
		outcome.UploadedAt = *status.UploadedAt
	}
	return outcome
}

// backoff returns the delay before the next attempt: linear in the attempt
// number, capped.
func (c *Coordinator) backoff(attempt int) time.Duration {
	d := time.Duration(attempt) * c.cfg.BackoffStep
	if d > c.cfg.BackoffCap {
		d = c.cfg.BackoffCap
	}
	return d
}

func (c *Coordinator) emit(msg string) {
	if c.onStatus != nil {
		c.onStatus(msg)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
