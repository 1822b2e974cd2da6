package recognize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/screenbooth/screenbooth/internal/types"
)

// StreamConfig holds configuration for the websocket streaming recognizer.
type StreamConfig struct {
	URL      string // wss endpoint of the streaming STT service
	APIKey   string
	Model    string
	Language string
}

// Stream is a live recognizer that sends encoded media chunks over a
// websocket and receives partial/final transcript events.
type Stream struct {
	cfg StreamConfig

	mu       sync.Mutex
	conn     *websocket.Conn
	onResult func(types.RecognitionResult)
	done     chan struct{}
}

// streamEvent is the wire format of a transcript event from the service.
type streamEvent struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"is_final"`
	Error   string `json:"error,omitempty"`
}

// NewStream creates a websocket streaming recognizer.
func NewStream(cfg StreamConfig) *Stream {
	return &Stream{cfg: cfg}
}

func (s *Stream) Name() string { return "stream" }

func (s *Stream) Available() bool { return s.cfg.URL != "" }

// Start dials the streaming endpoint and begins the read loop.
func (s *Stream) Start(ctx context.Context, onResult func(types.RecognitionResult)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return fmt.Errorf("stream recognizer already started")
	}

	header := http.Header{}
	if s.cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}
	if s.cfg.Model != "" {
		header.Set("X-Model", s.cfg.Model)
	}
	if s.cfg.Language != "" {
		header.Set("X-Language", s.cfg.Language)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.cfg.URL, header)
	if err != nil {
		return fmt.Errorf("dial stt endpoint: %w", err)
	}

	s.conn = conn
	s.onResult = onResult
	s.done = make(chan struct{})
	go s.readLoop(conn, onResult, s.done)

	return nil
}

// readLoop forwards transcript events until the connection closes.
func (s *Stream) readLoop(conn *websocket.Conn, onResult func(types.RecognitionResult), done chan struct{}) {
	defer close(done)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("stt stream closed unexpectedly", "error", err)
			}
			return
		}

		var ev streamEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			slog.Debug("skip malformed stt event", "error", err)
			continue
		}
		if ev.Error != "" {
			slog.Warn("stt service error", "error", ev.Error)
			continue
		}
		if ev.Text == "" {
			continue
		}

		onResult(types.RecognitionResult{Text: ev.Text, IsFinal: ev.IsFinal})
	}
}

// Feed sends one encoded media chunk to the service.
func (s *Stream) Feed(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return fmt.Errorf("stream recognizer not started")
	}
	if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
		return fmt.Errorf("send audio chunk: %w", err)
	}
	return nil
}

// Stop closes the connection and waits for the read loop to drain, so no
// results arrive after Stop returns.
func (s *Stream) Stop() error {
	s.mu.Lock()
	conn := s.conn
	done := s.done
	s.conn = nil
	s.onResult = nil
	s.done = nil
	if conn != nil {
		// Best-effort close handshake, serialized with Feed's writes; the
		// read loop exits either way.
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}
	s.mu.Unlock()

	if conn == nil {
		return nil
	}

	err := conn.Close()
	if done != nil {
		<-done
	}
	return err
}
