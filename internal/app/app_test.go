package app

import (
	"context"
	"errors"
	"testing"

	"github.com/screenbooth/screenbooth/capture"
	"github.com/screenbooth/screenbooth/config"
	"github.com/screenbooth/screenbooth/interview"
)

// fakeDevice is an injected capture backend.
type fakeDevice struct{}

func (fakeDevice) AcquireStream(context.Context) (capture.MediaStream, error) {
	return nil, errors.New("not used here")
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		ServerURL:          "https://interviews.example.com",
		MaxResponseSeconds: 120,
		SpoolDir:           t.TempDir(),
		Upload: config.UploadConfig{
			MaxAttempts:        8,
			BackoffStepSeconds: 2,
			BackoffCapSeconds:  10,
		},
	}
}

func TestNewWithInjectedDevice(t *testing.T) {
	svc, err := New(testConfig(t), fakeDevice{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer svc.Shutdown()

	if svc.State() != interview.SessionNotStarted {
		t.Errorf("state = %s, want not_started", svc.State())
	}
	if got := svc.Progress(); got.Total != 0 || got.Completed != 0 {
		t.Errorf("progress = %+v", got)
	}
}

func TestNewWithoutDeviceNeedsPlatformBackend(t *testing.T) {
	// This build bundles no capture backend, so the fallback must surface
	// ErrUnsupported instead of wiring a service that can never record.
	_, err := New(testConfig(t), nil, nil)
	if !errors.Is(err, capture.ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.ServerURL = ""
	if _, err := New(cfg, fakeDevice{}, nil); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	svc, err := New(testConfig(t), fakeDevice{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	svc.Shutdown()
	svc.Shutdown()
}
