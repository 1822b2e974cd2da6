package recognize

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/screenbooth/screenbooth/internal/types"
)

// WhisperConfig holds configuration for the batch transcription recognizer.
type WhisperConfig struct {
	APIKey   string
	BaseURL  string        // optional, defaults to the OpenAI API
	Model    string        // optional, defaults to whisper-1
	MimeType string        // container type of the fed chunks
	Interval time.Duration // how often to transcribe the accumulated prefix
}

// Whisper approximates live recognition with a batch transcription API: it
// accumulates the encoded media prefix and periodically transcribes it,
// emitting each pass as an interim result and the last pass on Stop as final.
type Whisper struct {
	cfg        WhisperConfig
	transcribe func(ctx context.Context, blob []byte) (string, error)

	mu       sync.Mutex
	buf      bytes.Buffer
	onResult func(types.RecognitionResult)
	cancel   context.CancelFunc
	done     chan struct{}
	running  bool
}

// NewWhisper creates a whisper-backed recognizer.
func NewWhisper(cfg WhisperConfig) *Whisper {
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	if cfg.MimeType == "" {
		cfg.MimeType = "video/webm"
	}
	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Second
	}

	w := &Whisper{cfg: cfg}
	w.transcribe = w.transcribeAPI
	return w
}

func (w *Whisper) Name() string { return "whisper" }

func (w *Whisper) Available() bool { return w.cfg.APIKey != "" }

// Start begins accumulating chunks and schedules periodic transcription.
func (w *Whisper) Start(ctx context.Context, onResult func(types.RecognitionResult)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("whisper recognizer already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	w.buf.Reset()
	w.onResult = onResult
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	go w.loop(ctx, w.done)
	return nil
}

func (w *Whisper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.emitPass(ctx, false)
		}
	}
}

// emitPass transcribes the accumulated prefix and emits one result.
func (w *Whisper) emitPass(ctx context.Context, final bool) {
	w.mu.Lock()
	blob := bytes.Clone(w.buf.Bytes())
	onResult := w.onResult
	w.mu.Unlock()

	if len(blob) == 0 || onResult == nil {
		return
	}

	text, err := w.transcribe(ctx, blob)
	if err != nil {
		slog.Warn("whisper pass failed", "final", final, "error", err)
		return
	}
	if text == "" {
		return
	}

	onResult(types.RecognitionResult{Text: text, IsFinal: final})
}

// Feed appends one encoded media chunk to the accumulated prefix.
func (w *Whisper) Feed(chunk []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return fmt.Errorf("whisper recognizer not started")
	}
	w.buf.Write(chunk)
	return nil
}

// Stop cancels the periodic passes and runs one last pass over the full
// recording, emitted as final before Stop returns.
func (w *Whisper) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	cancel()
	<-done

	ctx, ctxCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer ctxCancel()
	w.emitPass(ctx, true)

	w.mu.Lock()
	w.onResult = nil
	w.buf.Reset()
	w.mu.Unlock()
	return nil
}

// transcribeAPI sends the blob to the transcription API.
func (w *Whisper) transcribeAPI(ctx context.Context, blob []byte) (string, error) {
	opts := []option.RequestOption{option.WithAPIKey(w.cfg.APIKey)}
	if w.cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(w.cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	resp, err := client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: openai.AudioModel(w.cfg.Model),
		File:  openai.File(bytes.NewReader(blob), "answer.webm", w.cfg.MimeType),
	})
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return resp.Text, nil
}
