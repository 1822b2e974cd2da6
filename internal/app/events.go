// Package app wires the interview components together behind a single
// service surface.
package app

// Event names for frontend communication.
const (
	EventStatus        = "interview-status"
	EventCountdownTick = "countdown-tick"
	EventQuestion      = "question-state"
	EventProgress      = "interview-progress"
	EventFinished      = "interview-finished"
)

// QuestionEvent is the payload of EventQuestion.
type QuestionEvent struct {
	QuestionID   string `json:"question_id"`
	QuestionText string `json:"question_text"`
	OrderIndex   int    `json:"order_index"`
	State        string `json:"state"`
}
