package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/screenbooth/screenbooth/apiclient"
	"github.com/screenbooth/screenbooth/capture"
	"github.com/screenbooth/screenbooth/config"
	"github.com/screenbooth/screenbooth/countdown"
	"github.com/screenbooth/screenbooth/internal/types"
	"github.com/screenbooth/screenbooth/interview"
	"github.com/screenbooth/screenbooth/recognize"
	"github.com/screenbooth/screenbooth/spool"
	"github.com/screenbooth/screenbooth/upload"
)

// EmitFunc publishes one named event to the frontend.
type EmitFunc func(name string, data any)

// Service orchestrates the interview flow. Business logic lives in the
// sub-components; this struct only wires them together.
type Service struct {
	cfg        *config.Config
	api        *apiclient.Client
	store      *spool.Store
	session    *capture.Session
	controller *interview.Controller
	emit       EmitFunc
}

// New builds the full component graph from configuration. device is the
// platform capture backend; nil falls back to capture.DefaultDevice, which
// fails on builds that bundle no backend. emit may be nil.
func New(cfg *config.Config, device capture.Device, emit EmitFunc) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if emit == nil {
		emit = func(string, any) {}
	}

	if device == nil {
		var err error
		device, err = capture.DefaultDevice()
		if err != nil {
			return nil, fmt.Errorf("media device: %w", err)
		}
	}

	s := &Service{cfg: cfg, emit: emit}
	s.api = apiclient.New(cfg.ServerURL)

	store, err := spool.Open(cfg.SpoolDir)
	if err != nil {
		return nil, fmt.Errorf("open answer spool: %w", err)
	}
	s.store = store

	recognizer := s.buildRecognizer()
	s.session = capture.NewSession(device, recognizer, capture.SessionConfig{
		MaxResponseDuration: cfg.MaxResponseDuration(),
	})

	coordinator := upload.New(s.api, upload.Config{
		MaxAttempts: cfg.Upload.MaxAttempts,
		BackoffStep: cfg.BackoffStep(),
		BackoffCap:  cfg.BackoffCap(),
	}, func(msg string) { s.emit(EventStatus, msg) })

	s.controller = interview.New(s.api, s.session, coordinator, store, cfg.MaxResponseDuration(), interview.Events{
		OnStatus: func(msg string) { s.emit(EventStatus, msg) },
		OnTick:   func(snap countdown.Snapshot) { s.emit(EventCountdownTick, snap) },
		OnQuestion: func(q types.Question, st interview.QuestionState) {
			s.emit(EventQuestion, QuestionEvent{
				QuestionID:   q.QuestionID,
				QuestionText: q.QuestionText,
				OrderIndex:   q.OrderIndex,
				State:        string(st),
			})
		},
		OnProgress: func(p types.Progress) { s.emit(EventProgress, p) },
		OnFinished: func() { s.emit(EventFinished, nil) },
	})

	return s, nil
}

// buildRecognizer registers the configured providers and resolves the active
// one, falling back to noop when none is usable.
func (s *Service) buildRecognizer() recognize.Provider {
	registry := recognize.NewRegistry()
	registry.Register(recognize.NewStream(recognize.StreamConfig{
		URL:      s.cfg.Speech.URL,
		APIKey:   s.cfg.Speech.APIKey,
		Model:    s.cfg.Speech.Model,
		Language: s.cfg.Speech.Language,
	}))
	registry.Register(recognize.NewWhisper(recognize.WhisperConfig{
		APIKey:  s.cfg.Speech.APIKey,
		BaseURL: s.cfg.Speech.BaseURL,
		Model:   s.cfg.Speech.Model,
	}))

	provider := registry.Resolve(s.cfg.Speech.Provider)
	slog.Info("speech recognizer selected",
		"requested", s.cfg.Speech.Provider,
		"provider", provider.Name())
	return provider
}

// Identity resolves the signed-in user. ErrNoSession means the caller must
// leave the interview flow.
func (s *Service) Identity(ctx context.Context) (*types.Identity, error) {
	return s.api.Identity(ctx)
}

// StartInterview begins the interview for the configured candidate.
func (s *Service) StartInterview(ctx context.Context) (*types.Session, error) {
	return s.controller.Begin(ctx, s.cfg.CandidateID)
}

// StartAnswer begins recording the current question.
func (s *Service) StartAnswer(ctx context.Context) error {
	return s.controller.StartAnswer(ctx)
}

// StopAndUpload finishes the current recording and uploads it.
func (s *Service) StopAndUpload(ctx context.Context) (*types.UploadOutcome, error) {
	return s.controller.StopAndUpload(ctx)
}

// RetryUpload re-sends a spooled answer whose upload failed.
func (s *Service) RetryUpload(ctx context.Context) (*types.UploadOutcome, error) {
	return s.controller.RetryUpload(ctx)
}

// NextQuestion advances to the next question.
func (s *Service) NextQuestion() (types.Question, error) {
	return s.controller.NextQuestion()
}

// CanAdvance reports whether the next-question action is allowed.
func (s *Service) CanAdvance() bool {
	return s.controller.CanAdvance()
}

// Progress returns confirmed uploads over total questions.
func (s *Service) Progress() types.Progress {
	return s.controller.Progress()
}

// State returns the session lifecycle state.
func (s *Service) State() interview.SessionState {
	return s.controller.State()
}

// Recover re-sends answers spooled by an earlier run of this session.
func (s *Service) Recover(ctx context.Context, sessionID string) (*types.SessionProgress, error) {
	return s.controller.Recover(ctx, sessionID)
}

// Shutdown releases all resources. Safe to call multiple times.
func (s *Service) Shutdown() {
	if err := s.controller.Close(); err != nil {
		slog.Error("close interview", "error", err)
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			slog.Error("close spool", "error", err)
		}
	}
}
