package chatclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	feedReconnectBase = time.Second
	feedReconnectMax  = 30 * time.Second
)

// changeEvent mirrors the server's realtime broadcast payload.
type changeEvent struct {
	Type   string  `json:"type"`
	Table  string  `json:"table"`
	Record Message `json:"record"`
}

// WebsocketFeed is a Feed over the server's /realtime websocket endpoint.
// It delivers message inserts and silently reconnects with backoff when the
// connection drops.
type WebsocketFeed struct {
	endpoint string
	dialer   *websocket.Dialer
}

// NewWebsocketFeed derives the realtime endpoint from the API base URL and
// token. http(s) schemes are rewritten to ws(s).
func NewWebsocketFeed(baseURL, token string) (*WebsocketFeed, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/realtime"
	query := parsed.Query()
	query.Set("token", token)
	parsed.RawQuery = query.Encode()

	return &WebsocketFeed{
		endpoint: parsed.String(),
		dialer:   websocket.DefaultDialer,
	}, nil
}

// Subscribe dials the endpoint. The initial dial is synchronous so the
// caller learns immediately whether the feed is reachable; afterwards the
// subscription keeps itself connected until closed. ctx bounds the initial
// dial only.
func (f *WebsocketFeed) Subscribe(ctx context.Context, deliver func(Message)) (Subscription, error) {
	conn, _, err := f.dialer.DialContext(ctx, f.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial realtime feed: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	sub := &feedSubscription{
		feed:    f,
		deliver: deliver,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	sub.setConn(conn)
	go sub.run(runCtx, conn)
	return sub, nil
}

type feedSubscription struct {
	feed    *WebsocketFeed
	deliver func(Message)
	cancel  context.CancelFunc
	done    chan struct{}

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func (s *feedSubscription) setConn(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conn = conn
	return true
}

// Close tears the subscription down and waits for its read loop to exit.
// Safe to call more than once.
func (s *feedSubscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	s.cancel()
	if conn != nil {
		_ = conn.Close()
	}
	<-s.done
	return nil
}

func (s *feedSubscription) run(ctx context.Context, conn *websocket.Conn) {
	defer close(s.done)

	backoff := feedReconnectBase
	for {
		s.readLoop(conn)
		_ = conn.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			next, _, err := s.feed.dialer.DialContext(ctx, s.feed.endpoint, nil)
			if err != nil {
				if backoff < feedReconnectMax {
					backoff *= 2
				}
				continue
			}
			if !s.setConn(next) {
				_ = next.Close()
				return
			}
			conn = next
			backoff = feedReconnectBase
			break
		}
	}
}

func (s *feedSubscription) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var event changeEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			continue
		}
		if event.Type != "INSERT" || event.Table != "messages" {
			continue
		}
		s.deliver(event.Record)
	}
}
