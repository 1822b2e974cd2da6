// Package apiclient talks to the interview server. It classifies failures
// into transient transport errors, which the upload layer may retry, and
// explicit server rejections, which it must not.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/screenbooth/screenbooth/internal/types"
)

// ErrNoSession indicates the session-lookup endpoint found no signed-in user.
var ErrNoSession = errors.New("no signed-in session")

// TransientError wraps a transport-level failure: the request may never have
// reached the server, or the response was lost. Retry is safe only after
// reconciling with the upload-status endpoint.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// RejectedError is a non-2xx response: the server received the request and
// explicitly refused it. The body is treated as a human-readable message.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("server rejected request (%d): %s", e.StatusCode, e.Message)
}

// IsTransient reports whether err may be retried after reconciliation.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// Client is the HTTP client for the interview server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the given server base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// StartInterviewRequest is the body of POST /start-interview.
type StartInterviewRequest struct {
	CandidateID   string `json:"candidate_id"`
	QuestionCount int    `json:"question_count,omitempty"`
}

// StartInterview creates a session and fetches its ordered question list.
func (c *Client) StartInterview(ctx context.Context, req StartInterviewRequest) (*types.Session, error) {
	var session types.Session
	if err := c.postJSON(ctx, "/start-interview", req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// UploadResponse submits one recorded answer as a multipart form. The server
// deduplicates on (session_id, question_id, attempt_no) and returns the
// existing row on a duplicate submission, so attempt_no stays "1" on every
// retry of the same answer.
func (c *Client) UploadResponse(ctx context.Context, sessionID string, res types.CaptureResult) (*types.UploadOutcome, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields := map[string]string{
		"session_id":       sessionID,
		"question_id":      res.QuestionID,
		"attempt_no":       "1",
		"duration_seconds": strconv.FormatFloat(res.Duration.Seconds(), 'f', 3, 64),
		"transcript_hint":  res.TranscriptHint,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("write %s field: %w", name, err)
		}
	}

	part, err := writer.CreateFormFile("media_file", "response.webm")
	if err != nil {
		return nil, fmt.Errorf("create media part: %w", err)
	}
	if _, err := part.Write(res.Blob); err != nil {
		return nil, fmt.Errorf("write media data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload-response", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var outcome types.UploadOutcome
	if err := c.do(req, &outcome); err != nil {
		return nil, err
	}
	return &outcome, nil
}

// UploadStatus asks whether an answer is already persisted server-side.
func (c *Client) UploadStatus(ctx context.Context, sessionID, questionID string) (*types.UploadStatus, error) {
	path := fmt.Sprintf("/upload-status/%s/%s", sessionID, questionID)
	var status types.UploadStatus
	if err := c.getJSON(ctx, path, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// SessionProgress fetches the server-side view of a session, used to resume
// a partially completed interview.
func (c *Client) SessionProgress(ctx context.Context, sessionID string) (*types.SessionProgress, error) {
	var progress types.SessionProgress
	if err := c.getJSON(ctx, "/sessions/"+sessionID, &progress); err != nil {
		return nil, err
	}
	return &progress, nil
}

// Identity resolves the signed-in user. A 401 or 404 means no session, which
// exits the interview flow entirely rather than being retried.
func (c *Client) Identity(ctx context.Context) (*types.Identity, error) {
	var identity types.Identity
	err := c.getJSON(ctx, "/me", &identity)
	if err != nil {
		var re *RejectedError
		if errors.As(err, &re) && (re.StatusCode == http.StatusUnauthorized || re.StatusCode == http.StatusNotFound) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	return &identity, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, out)
}

// do sends the request and decodes a 2xx JSON body into out. Transport
// failures become TransientError; non-2xx responses become RejectedError.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransientError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RejectedError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
