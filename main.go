package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/screenbooth/screenbooth/apiclient"
	"github.com/screenbooth/screenbooth/config"
	"github.com/screenbooth/screenbooth/countdown"
	"github.com/screenbooth/screenbooth/internal/app"
	"github.com/screenbooth/screenbooth/internal/types"
	"github.com/screenbooth/screenbooth/interview"
)

var version = "dev"

func main() {
	// .env is optional; the environment may already carry the settings.
	_ = godotenv.Load()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	svc, err := app.New(cfg, nil, emitToTerminal)
	if err != nil {
		return err
	}
	defer svc.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("screenbooth starting", "version", version, "server", cfg.ServerURL)

	identity, err := svc.Identity(ctx)
	if err != nil {
		if errors.Is(err, apiclient.ErrNoSession) {
			return fmt.Errorf("not signed in, open the portal to sign in first")
		}
		return fmt.Errorf("resolve identity: %w", err)
	}
	fmt.Printf("Signed in as %s\n", identity.Email)

	session, err := svc.StartInterview(ctx)
	if err != nil {
		return fmt.Errorf("start interview: %w", err)
	}
	fmt.Printf("Interview %s: %d questions\n\n", session.SessionID, len(session.Questions))

	return interviewLoop(ctx, svc)
}

// interviewLoop drives the interview from the terminal: Enter starts and
// stops each recording, then advances when the upload is confirmed.
func interviewLoop(ctx context.Context, svc *app.Service) error {
	stdin := bufio.NewScanner(os.Stdin)

	for svc.State() == interview.SessionInProgress {
		fmt.Print("Press Enter to start recording... ")
		if !stdin.Scan() {
			return nil
		}
		if err := svc.StartAnswer(ctx); err != nil {
			if errors.Is(err, interview.ErrAwaitingUpload) {
				if _, err := svc.RetryUpload(ctx); err != nil {
					fmt.Printf("Retry failed: %v\n", err)
				}
				continue
			}
			return fmt.Errorf("start answer: %w", err)
		}

		fmt.Print("Recording. Press Enter to stop... ")
		if !stdin.Scan() {
			return nil
		}
		if _, err := svc.StopAndUpload(ctx); err != nil {
			fmt.Printf("Upload failed: %v\n", err)
			continue
		}

		if svc.CanAdvance() {
			if _, err := svc.NextQuestion(); err != nil {
				return fmt.Errorf("next question: %w", err)
			}
		}
	}
	return nil
}

// emitToTerminal renders frontend events as terminal output.
func emitToTerminal(name string, data any) {
	switch name {
	case app.EventStatus:
		fmt.Printf("%v\n", data)
	case app.EventCountdownTick:
		if snap, ok := data.(countdown.Snapshot); ok && snap.LowTime {
			fmt.Printf("\r%s remaining ", snap.Display)
		}
	case app.EventQuestion:
		if q, ok := data.(app.QuestionEvent); ok && q.State == string(interview.QuestionPending) {
			fmt.Printf("\nQuestion %d: %s\n", q.OrderIndex+1, q.QuestionText)
		}
	case app.EventProgress:
		if p, ok := data.(types.Progress); ok {
			fmt.Printf("Progress: %d/%d\n", p.Completed, p.Total)
		}
	case app.EventFinished:
		fmt.Println("\nInterview finished.")
	}
}
