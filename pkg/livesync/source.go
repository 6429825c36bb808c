package livesync

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrezinsky/pitchvote/internal/errors"
	"github.com/abrezinsky/pitchvote/internal/models"
)

// Server paths
const (
	StatePath  = "/api/livestate"
	EventsPath = "/api/livestate/events"
	SocketPath = "/api/livestate/ws"
)

// Source delivers live states until ctx ends or the transport fails. Run
// returns a Transient error when the connection breaks.
type Source interface {
	Name() string
	Run(ctx context.Context, deliver func(models.LiveState)) error
}

// ErrStreamClosed is returned when the server ends a stream
var ErrStreamClosed = errors.Wrap(nil, errors.ErrTransient, "live state stream closed")

// ==================== SSE ====================

// SSESource reads the server-sent event stream
type SSESource struct {
	URL    string
	Client *http.Client
}

// NewSSESource creates a source for the events endpoint under baseURL
func NewSSESource(baseURL string) *SSESource {
	return &SSESource{URL: strings.TrimRight(baseURL, "/") + EventsPath, Client: http.DefaultClient}
}

func (s *SSESource) Name() string { return "sse" }

func (s *SSESource) Run(ctx context.Context, deliver func(models.LiveState)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.Client.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrTransient, "connect event stream")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Wrap(nil, errors.ErrTransient, fmt.Sprintf("event stream returned status %d", resp.StatusCode))
	}

	err = readEvents(resp.Body, func(event, data string) {
		// Unnamed events carry the live state; named ones are rating updates
		if event != "" && event != models.MessageLiveState {
			return
		}
		var state models.LiveState
		if json.Unmarshal([]byte(data), &state) == nil {
			deliver(state)
		}
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrTransient, "read event stream")
	}
	return ErrStreamClosed
}

// readEvents splits an event stream into (event, data) pairs. Comment lines
// (heartbeats) are skipped.
func readEvents(r io.Reader, fn func(event, data string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	var event string
	var data []string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if len(data) > 0 {
				fn(event, strings.Join(data, "\n"))
			}
			event, data = "", nil
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	return scanner.Err()
}

// ==================== WebSocket ====================

// WSSource reads the WebSocket stream
type WSSource struct {
	URL    string
	Dialer *websocket.Dialer
}

// NewWSSource creates a source for the socket endpoint under baseURL.
// http(s) schemes are rewritten to ws(s).
func NewWSSource(baseURL string) (*WSSource, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + SocketPath)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return &WSSource{URL: u.String(), Dialer: websocket.DefaultDialer}, nil
}

func (s *WSSource) Name() string { return "ws" }

func (s *WSSource) Run(ctx context.Context, deliver func(models.LiveState)) error {
	conn, _, err := s.Dialer.DialContext(ctx, s.URL, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrTransient, "connect websocket")
	}
	defer conn.Close()

	// Unblock ReadMessage when ctx ends
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return ErrStreamClosed
			}
			return errors.Wrap(err, errors.ErrTransient, "read websocket")
		}

		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type != models.MessageLiveState {
			continue
		}
		var state models.LiveState
		if json.Unmarshal(msg.Payload, &state) == nil {
			deliver(state)
		}
	}
}

// ==================== Poll ====================

// PollSource fetches the state on a fixed interval. A failed fetch is
// returned as Transient so the caller can back off.
type PollSource struct {
	URL      string
	Interval time.Duration
	Client   *http.Client
}

// NewPollSource creates a source for the state endpoint under baseURL
func NewPollSource(baseURL string, interval time.Duration) *PollSource {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &PollSource{
		URL:      strings.TrimRight(baseURL, "/") + StatePath,
		Interval: interval,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *PollSource) Name() string { return "poll" }

func (s *PollSource) Run(ctx context.Context, deliver func(models.LiveState)) error {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		state, err := s.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		deliver(state)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Fetch reads the current state once
func (s *PollSource) Fetch(ctx context.Context) (models.LiveState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return models.LiveState{}, err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return models.LiveState{}, errors.Wrap(err, errors.ErrTransient, "fetch live state")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.LiveState{}, errors.Wrap(nil, errors.ErrTransient, fmt.Sprintf("live state returned status %d", resp.StatusCode))
	}

	var state models.LiveState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return models.LiveState{}, errors.Wrap(err, errors.ErrTransient, "decode live state")
	}
	return state, nil
}

// IsTransient reports whether err is a retryable transport failure
func IsTransient(err error) bool {
	return errors.IsRetryable(err)
}
