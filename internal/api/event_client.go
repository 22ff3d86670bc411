package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ytqueue/internal/events"
)

// ErrUnauthorized is returned when the daemon rejects the bearer token.
var ErrUnauthorized = errors.New("unauthorized")

// EventsURL builds the websocket URL for the daemon bound at bind. Wildcard
// hosts are replaced by loopback.
func EventsURL(bind string, types ...events.Type) string {
	host, port, err := net.SplitHostPort(bind)
	if err == nil {
		if host == "" || host == "0.0.0.0" || host == "::" {
			host = "127.0.0.1"
		}
		bind = net.JoinHostPort(host, port)
	}
	u := url.URL{Scheme: "ws", Host: bind, Path: "/api/events"}
	if len(types) > 0 {
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = string(t)
		}
		u.RawQuery = url.Values{"types": {strings.Join(names, ",")}}.Encode()
	}
	return u.String()
}

// ParseEventTypes parses a comma separated types query value. Unknown names
// are an error.
func ParseEventTypes(value string) ([]events.Type, error) {
	var out []events.Type
	for _, part := range strings.Split(value, ",") {
		name := events.Type(strings.TrimSpace(part))
		switch name {
		case "":
			continue
		case events.QueueChanged, events.QueueProgress, events.QueueNotify:
			out = append(out, name)
		default:
			return nil, fmt.Errorf("unknown event type %q", name)
		}
	}
	return out, nil
}

// EventStream is a live websocket subscription to daemon events.
type EventStream struct {
	conn *websocket.Conn
	out  chan events.Event
	done chan struct{}

	mu     sync.Mutex
	err    error
	closed bool
}

// DialEvents connects to the daemon event stream at bind. token is sent as a
// bearer token when set.
func DialEvents(ctx context.Context, bind, token string, types ...events.Type) (*EventStream, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, EventsURL(bind, types...), header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("connect event stream: %w", err)
	}
	stream := &EventStream{conn: conn, out: make(chan events.Event, 64), done: make(chan struct{})}
	go stream.read()
	return stream, nil
}

// C delivers events in publish order. It is closed when the connection ends.
func (s *EventStream) C() <-chan events.Event {
	return s.out
}

// Err reports why the stream ended. It is nil after a local Close.
func (s *EventStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close ends the subscription.
func (s *EventStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	close(s.done)
	deadline := time.Now().Add(time.Second)
	_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return s.conn.Close()
}

func (s *EventStream) read() {
	defer close(s.out)
	for {
		var evt events.Event
		if err := s.conn.ReadJSON(&evt); err != nil {
			s.mu.Lock()
			if !s.closed && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.err = err
			}
			s.mu.Unlock()
			return
		}
		select {
		case s.out <- evt:
		case <-s.done:
			return
		}
	}
}
