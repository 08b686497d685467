// Package wsclient is a venue-agnostic WebSocket session supervisor:
// connect, heartbeat, auto-reconnect with backoff, framed I/O handed to
// an Adapter callback. One Supervisor instance binds one Adapter to one
// outbound socket for the lifetime of a venue bot.
package wsclient

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Adapter is the small per-venue capability the supervisor drives. No
// inheritance — any venue implements this directly.
type Adapter interface {
	// OnConnect is invoked after every successful dial, including
	// reconnects, so it must re-issue subscriptions from scratch.
	OnConnect(conn *Conn) error
	// OnFrame is invoked for every inbound text or binary frame. Parse
	// failures must be logged and swallowed, never kill the connection.
	OnFrame(messageType int, data []byte)
	// OnDisconnect is invoked once the socket has been torn down; any
	// per-connection state not reconstructable from a fresh snapshot
	// must be dropped here.
	OnDisconnect()
}

// Conn is the thin, mutex-guarded write handle handed to an Adapter so
// it can send subscription frames from OnConnect.
type Conn struct {
	ws    *websocket.Conn
	mu    sync.Mutex
}

// NewConn wraps a raw gorilla connection, mainly useful for adapter unit
// tests that want to drive OnConnect against a real local socket.
func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

func (c *Conn) WriteText(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *Conn) WriteBinary(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.BinaryMessage, data)
}

const (
	heartbeatInterval = 30 * time.Second
	inboundTimeout    = 2 * heartbeatInterval
	backoffInitial    = 500 * time.Millisecond
	backoffMultiplier = 1.5
	backoffStepCap    = 30 * time.Second
)

// Supervisor owns the dial/reconnect/heartbeat loop for one endpoint.
type Supervisor struct {
	endpoint string
	adapter  Adapter
	logger   *zerolog.Logger

	dialer *websocket.Dialer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closedMu sync.Mutex
	closed   bool
}

// New builds a Supervisor for endpoint, driving adapter. logger may be
// nil, in which case a disabled logger is used.
func New(endpoint string, adapter Adapter, logger *zerolog.Logger) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	if logger == nil {
		disabled := zerolog.New(nil).Level(zerolog.Disabled)
		logger = &disabled
	}
	return &Supervisor{
		endpoint: endpoint,
		adapter:  adapter,
		logger:   logger,
		dialer:   websocket.DefaultDialer,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start dials the endpoint and launches the read loop in a goroutine.
// Reconnection happens transparently inside the loop.
func (s *Supervisor) Start() error {
	conn, err := s.connect()
	if err != nil {
		return err
	}
	s.wg.Add(1)
	go s.readLoop(conn)
	return nil
}

// Close is idempotent; it stops the supervisor, closes the socket and
// waits for the read loop to exit.
func (s *Supervisor) Close() error {
	s.closedMu.Lock()
	if s.closed {
		s.closedMu.Unlock()
		return nil
	}
	s.closed = true
	s.closedMu.Unlock()

	s.cancel()
	s.wg.Wait()
	return nil
}

func (s *Supervisor) connect() (*websocket.Conn, error) {
	rawConn, _, err := s.dialer.Dial(s.endpoint, nil)
	if err != nil {
		return nil, err
	}

	conn := &Conn{ws: rawConn}
	rawConn.SetPongHandler(func(string) error {
		return rawConn.SetReadDeadline(time.Now().Add(inboundTimeout))
	})
	rawConn.SetPingHandler(func(data string) error {
		_ = rawConn.SetReadDeadline(time.Now().Add(inboundTimeout))
		conn.mu.Lock()
		defer conn.mu.Unlock()
		return rawConn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second))
	})
	_ = rawConn.SetReadDeadline(time.Now().Add(inboundTimeout))

	if err := s.adapter.OnConnect(conn); err != nil {
		_ = rawConn.Close()
		return nil, err
	}
	return rawConn, nil
}

func (s *Supervisor) readLoop(conn *websocket.Conn) {
	defer s.wg.Done()

	stopHeartbeat := make(chan struct{})
	go s.heartbeat(conn, stopHeartbeat)

	for {
		select {
		case <-s.ctx.Done():
			close(stopHeartbeat)
			_ = conn.Close()
			s.adapter.OnDisconnect()
			return
		default:
		}

		messageType, data, err := conn.ReadMessage()
		if err != nil {
			close(stopHeartbeat)
			_ = conn.Close()
			s.adapter.OnDisconnect()
			s.logger.Debug().Err(err).Str("endpoint", s.endpoint).Msg("websocket read error, reconnecting")

			newConn, ok := s.reconnectWithBackoff()
			if !ok {
				return
			}
			conn = newConn
			stopHeartbeat = make(chan struct{})
			go s.heartbeat(conn, stopHeartbeat)
			continue
		}

		_ = conn.SetReadDeadline(time.Now().Add(inboundTimeout))
		s.adapter.OnFrame(messageType, data)
	}
}

// reconnectWithBackoff retries forever, with no cap on total elapsed
// time — only the per-step delay is capped. Returns ok=false only when
// the supervisor has been closed.
func (s *Supervisor) reconnectWithBackoff() (*websocket.Conn, bool) {
	delay := backoffInitial
	for {
		select {
		case <-s.ctx.Done():
			return nil, false
		case <-time.After(jitter(delay)):
		}

		conn, err := s.connect()
		if err == nil {
			return conn, true
		}
		s.logger.Debug().Err(err).Str("endpoint", s.endpoint).Msg("reconnect attempt failed")

		delay = time.Duration(float64(delay) * backoffMultiplier)
		if delay > backoffStepCap {
			delay = backoffStepCap
		}
	}
}

func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	spread := d / 4
	return d - spread/2 + time.Duration(rand.Int63n(int64(spread)+1))
}

func (s *Supervisor) heartbeat(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-s.ctx.Done():
			_ = conn.Close() // unblocks the read loop's pending ReadMessage
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				s.logger.Debug().Err(err).Msg("ping write failed")
				return
			}
		}
	}
}
