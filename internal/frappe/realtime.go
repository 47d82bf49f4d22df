package frappe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mmcdole/shopsync/internal/domain"
)

// Engine.IO v4 packet types (first byte of every frame)
const (
	eioOpen    = '0'
	eioClose   = '1'
	eioPing    = '2'
	eioPong    = '3'
	eioMessage = '4'
)

// Socket.IO v5 packet types (second byte of an Engine.IO message)
const (
	sioConnect      = '0'
	sioDisconnect   = '1'
	sioEvent        = '2'
	sioConnectError = '4'
)

const (
	handshakeTimeout = 10 * time.Second
	eventBuffer      = 64
)

// Realtime implements domain.EventSource over Frappe's socket.io server
type Realtime struct {
	baseURL   string
	namespace string
	apiKey    string
	apiSecret string
	dialer    *websocket.Dialer
	logger    *slog.Logger
}

// NewRealtime creates an event source. namespace is empty for single-site benches.
func NewRealtime(baseURL, namespace, apiKey, apiSecret string, logger *slog.Logger) *Realtime {
	if logger == nil {
		logger = slog.Default()
	}
	return &Realtime{
		baseURL:   strings.TrimRight(baseURL, "/"),
		namespace: strings.Trim(namespace, "/"),
		apiKey:    apiKey,
		apiSecret: apiSecret,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		logger: logger,
	}
}

// socketURL converts the site URL into the engine.io websocket endpoint
func (r *Realtime) socketURL() (string, error) {
	u, err := url.Parse(r.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid realtime url: %w", err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/socket.io/"
	u.RawQuery = url.Values{"EIO": {"4"}, "transport": {"websocket"}}.Encode()
	return u.String(), nil
}

// nsPrefix returns the namespace prefix used in socket.io packets ("" for the root namespace)
func (r *Realtime) nsPrefix() string {
	if r.namespace == "" {
		return ""
	}
	return "/" + r.namespace + ","
}

// Subscribe connects, joins the namespace and streams events named event
func (r *Realtime) Subscribe(ctx context.Context, event string) (domain.Subscription, error) {
	wsURL, err := r.socketURL()
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Origin", r.baseURL)
	header.Set("User-Agent", userAgent)
	if r.apiKey != "" {
		header.Set("Authorization", fmt.Sprintf("token %s:%s", r.apiKey, r.apiSecret))
	}

	conn, resp, err := r.dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, domain.ErrAuthFailed
		}
		r.logger.Error("realtime dial failed", "url", wsURL, "error", err)
		return nil, fmt.Errorf("%w: realtime: %v", domain.ErrServerOffline, err)
	}

	if err := r.handshake(conn); err != nil {
		conn.Close()
		return nil, err
	}

	s := &stream{
		conn:   conn,
		event:  event,
		ns:     r.nsPrefix(),
		events: make(chan domain.ProgressEvent, eventBuffer),
		done:   make(chan struct{}),
		logger: r.logger,
	}
	go s.readLoop()
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()

	r.logger.Info("realtime subscribed", "event", event, "namespace", r.namespace)
	return s, nil
}

// handshake reads the engine.io open packet and connects to the namespace
func (r *Realtime) handshake(conn *websocket.Conn) error {
	conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	defer conn.SetReadDeadline(time.Time{})

	_, data, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("realtime handshake: %w", err)
	}
	if len(data) == 0 || data[0] != eioOpen {
		return fmt.Errorf("realtime handshake: unexpected packet %q", data)
	}

	connect := string([]byte{eioMessage, sioConnect}) + strings.TrimSuffix(r.nsPrefix(), ",")
	if err := conn.WriteMessage(websocket.TextMessage, []byte(connect)); err != nil {
		return fmt.Errorf("realtime connect: %w", err)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("realtime connect: %w", err)
		}
		if len(data) == 1 && data[0] == eioPing {
			if err := conn.WriteMessage(websocket.TextMessage, []byte{eioPong}); err != nil {
				return fmt.Errorf("realtime connect: %w", err)
			}
			continue
		}
		if len(data) < 2 || data[0] != eioMessage {
			continue
		}
		switch data[1] {
		case sioConnect:
			return nil
		case sioConnectError:
			r.logger.Warn("realtime namespace refused", "packet", string(data))
			return fmt.Errorf("%w: realtime connect refused", domain.ErrAuthFailed)
		}
	}
}

// stream is a live subscription; it owns the websocket connection
type stream struct {
	conn   *websocket.Conn
	event  string
	ns     string
	events chan domain.ProgressEvent
	done   chan struct{}
	once   sync.Once
	wmu    sync.Mutex
	logger *slog.Logger
}

func (s *stream) Events() <-chan domain.ProgressEvent {
	return s.events
}

// Close ends the subscription. Safe to call more than once.
func (s *stream) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		s.write(string([]byte{eioMessage, sioDisconnect}) + strings.TrimSuffix(s.ns, ","))
		err = s.conn.Close()
	})
	return err
}

func (s *stream) write(packet string) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, []byte(packet))
}

// readLoop owns the socket once subscribed: any exit releases it
func (s *stream) readLoop() {
	defer close(s.events)
	defer s.Close()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
			default:
				s.logger.Warn("realtime connection lost", "event", s.event, "error", err)
			}
			return
		}
		if len(data) == 0 {
			continue
		}

		switch data[0] {
		case eioPing:
			if err := s.write(string(eioPong)); err != nil {
				s.logger.Warn("realtime pong failed", "error", err)
				return
			}
		case eioClose:
			return
		case eioMessage:
			if len(data) < 2 {
				continue
			}
			switch data[1] {
			case sioDisconnect:
				return
			case sioEvent:
				name, payload, err := decodeEvent(data[2:])
				if err != nil {
					s.logger.Warn("realtime packet dropped", "error", err)
					continue
				}
				if name != s.event {
					continue
				}
				var p ProgressPayload
				if err := json.Unmarshal(payload, &p); err != nil {
					s.logger.Warn("realtime payload dropped", "error", err)
					continue
				}
				ev, err := MapProgress(p)
				if err != nil {
					s.logger.Warn("realtime payload dropped", "error", err)
					continue
				}
				select {
				case s.events <- ev:
				case <-s.done:
					return
				}
			}
		}
	}
}

// decodeEvent parses the body of a socket.io EVENT packet:
// optional "/namespace," then optional ack id, then ["name", payload].
func decodeEvent(body []byte) (string, json.RawMessage, error) {
	if len(body) > 0 && body[0] == '/' {
		i := strings.IndexByte(string(body), ',')
		if i < 0 {
			return "", nil, errors.New("namespace without separator")
		}
		body = body[i+1:]
	}
	for len(body) > 0 && body[0] >= '0' && body[0] <= '9' {
		body = body[1:]
	}

	var args []json.RawMessage
	if err := json.Unmarshal(body, &args); err != nil {
		return "", nil, fmt.Errorf("event body: %w", err)
	}
	if len(args) == 0 {
		return "", nil, errors.New("event without name")
	}

	var name string
	if err := json.Unmarshal(args[0], &name); err != nil {
		return "", nil, fmt.Errorf("event name: %w", err)
	}
	if len(args) < 2 {
		return name, json.RawMessage("{}"), nil
	}
	return name, args[1], nil
}
