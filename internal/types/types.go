// Package types provides shared type definitions for the application.
package types

import "time"

// Question is a single interview question. Immutable once fetched.
type Question struct {
	QuestionID   string `json:"question_id"`
	QuestionText string `json:"question_text"`
	Topic        string `json:"topic,omitempty"`
	QuestionType string `json:"question_type,omitempty"`
	OrderIndex   int    `json:"order_index"`
}

// Session is the server-issued interview session.
type Session struct {
	SessionID   string     `json:"session_id"`
	CandidateID string     `json:"candidate_id"`
	Status      string     `json:"status"`
	Questions   []Question `json:"questions"`
}

// Identity is the signed-in user returned by the session-lookup endpoint.
type Identity struct {
	Email    string `json:"email"`
	UniqueID string `json:"unique_id,omitempty"`
	Name     string `json:"name,omitempty"`
}

// CaptureResult is a finished recording for one question. It is consumed
// exactly once by the upload layer; retries re-send the same blob, never a
// re-recording.
type CaptureResult struct {
	QuestionID     string
	Blob           []byte
	MimeType       string
	Duration       time.Duration
	TranscriptHint string
}

// UploadOutcome is the server's acknowledgement of a persisted answer.
// AutoEvaluated signals that the server considers scoring-relevant work
// complete, which ends the interview early.
type UploadOutcome struct {
	ResponseID    int64     `json:"response_id"`
	QuestionID    string    `json:"question_id"`
	Transcript    string    `json:"transcript"`
	UploadedAt    time.Time `json:"uploaded_at"`
	AutoEvaluated bool      `json:"auto_evaluated"`
}

// UploadStatus reports whether an answer is already persisted server-side.
// Used only for reconciliation after a transient upload failure.
type UploadStatus struct {
	SessionID  string     `json:"session_id"`
	QuestionID string     `json:"question_id"`
	Uploaded   bool       `json:"uploaded"`
	ResponseID int64      `json:"response_id,omitempty"`
	UploadedAt *time.Time `json:"uploaded_at,omitempty"`
}

// SessionProgress is the server-side view of a session's completion.
type SessionProgress struct {
	SessionID        string     `json:"session_id"`
	CandidateID      string     `json:"candidate_id"`
	Status           string     `json:"status"`
	TotalQuestions   int        `json:"total_questions"`
	CompletedAnswers int        `json:"completed_answers"`
	Questions        []Question `json:"questions"`
}

// RecognitionResult is one speech-recognition event. An interim result is
// fully replaced by the next event; a final result is committed for good.
type RecognitionResult struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"is_final"`
}

// Progress counts confirmed uploads, not navigation position.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}
