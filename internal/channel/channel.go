// Package channel maintains a viewer's realtime subscription to a
// session: a WebSocket event stream with bounded reconnection and full
// resynchronization on every (re)connect.
package channel

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rbergman/wordwall/internal/domain"
	"github.com/rbergman/wordwall/internal/metrics"
)

const (
	maxReconnectAttempts = 5
	initialBackoff       = 1 * time.Second
	maxBackoff           = 30 * time.Second
	// offlineRetryInterval is the periodic health check once the reconnect
	// budget is exhausted.
	offlineRetryInterval = 60 * time.Second

	readDeadline = 90 * time.Second
	eventBuffer  = 256
)

// ResyncFunc fetches and applies the authoritative snapshot. Invoked on
// every connect, including reconnects, so missed events never matter.
type ResyncFunc func(ctx context.Context) error

// Channel is one session subscription. Its lifetime is scoped to the
// viewer's session: leaving tears it down and a new session gets a fresh
// Channel, so no connection state leaks across sessions.
type Channel struct {
	serverURL string
	sessionID uuid.UUID
	clock     clockwork.Clock
	dialer    *websocket.Dialer
	resync    ResyncFunc

	eventsCh chan domain.Event
	statesCh chan domain.ConnState

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a channel for one session. serverURL is the http(s) base
// URL of the server; it is rewritten to the ws(s) scheme.
func New(serverURL string, sessionID uuid.UUID, clock clockwork.Clock, resync ResyncFunc) *Channel {
	return &Channel{
		serverURL: serverURL,
		sessionID: sessionID,
		clock:     clock,
		dialer:    websocket.DefaultDialer,
		resync:    resync,
		eventsCh:  make(chan domain.Event, eventBuffer),
		statesCh:  make(chan domain.ConnState, 8),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Events delivers decoded inbound session events.
func (c *Channel) Events() <-chan domain.Event {
	return c.eventsCh
}

// States delivers connection-state transitions.
func (c *Channel) States() <-chan domain.ConnState {
	return c.statesCh
}

// Join starts the connection loop.
func (c *Channel) Join() {
	go c.run()
}

// Leave tears the subscription down. Blocks until the connection loop has
// exited; afterwards no background work remains for this session.
func (c *Channel) Leave() {
	close(c.stopCh)
	<-c.doneCh
}

func (c *Channel) wsURL() (string, error) {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws/sessions/" + c.sessionID.String()
	return u.String(), nil
}

func (c *Channel) run() {
	defer close(c.doneCh)

	attempts := 0
	backoff := initialBackoff

	for {
		conn, err := c.connect()
		if err == nil {
			attempts = 0
			backoff = initialBackoff
			c.emitState(domain.ConnConnected)

			// Resync before consuming the stream: the snapshot is the only
			// guarantee of consistency across whatever was missed.
			metrics.ChannelResyncsTotal.Inc()
			if err := c.resync(context.Background()); err != nil {
				slog.Warn("Resync failed", "session_id", c.sessionID.String(), "error", err)
			}

			c.readLoop(conn)
			_ = conn.Close()

			select {
			case <-c.stopCh:
				return
			default:
			}
			c.emitState(domain.ConnDisconnected)
			continue
		}

		attempts++
		metrics.ChannelReconnectsTotal.Inc()
		slog.Warn("Connection attempt failed",
			"session_id", c.sessionID.String(),
			"attempt", attempts,
			"error", err,
		)

		wait := backoff
		if attempts >= maxReconnectAttempts {
			c.emitState(domain.ConnOffline)
			wait = offlineRetryInterval
		} else {
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		timer := c.clock.NewTimer(wait)
		select {
		case <-timer.Chan():
		case <-c.stopCh:
			timer.Stop()
			return
		}
	}
}

func (c *Channel) connect() (*websocket.Conn, error) {
	target, err := c.wsURL()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := c.dialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	return conn, nil
}

// readLoop decodes events until the connection drops or Leave is called.
// The socket close on stop unblocks the pending read.
func (c *Channel) readLoop(conn *websocket.Conn) {
	closed := make(chan struct{})
	go func() {
		select {
		case <-c.stopCh:
			_ = conn.Close()
		case <-closed:
		}
	}()
	defer close(closed)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))

		ev, err := domain.DecodeEvent(data)
		if err != nil {
			slog.Warn("Dropping undecodable event", "session_id", c.sessionID.String(), "error", err)
			continue
		}

		select {
		case c.eventsCh <- ev:
		case <-c.stopCh:
			return
		}
	}
}

// emitState never blocks; if the consumer lags, older transitions are
// dropped in favor of the newest.
func (c *Channel) emitState(state domain.ConnState) {
	for {
		select {
		case c.statesCh <- state:
			return
		default:
			select {
			case <-c.statesCh:
			default:
			}
		}
	}
}
