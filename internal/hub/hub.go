// Package hub fans session events out to connected WebSocket viewers.
// A single actor goroutine owns all connection state; handlers talk to it
// through a command channel.
package hub

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rbergman/wordwall/internal/domain"
	"github.com/rbergman/wordwall/internal/metrics"
)

const (
	commandTimeout = 5 * time.Second
	stopTimeout    = 10 * time.Second
)

type sessionClients map[*websocket.Conn]*clientWriter

// --- Command types ---

type hubCmd interface{ hubCmd() }

type registerCmd struct {
	sessionID    uuid.UUID
	connection   *websocket.Conn
	errorChannel chan error
}

func (registerCmd) hubCmd() {}

type unregisterCmd struct {
	sessionID  uuid.UUID
	connection *websocket.Conn
}

func (unregisterCmd) hubCmd() {}

type publishCmd struct {
	sessionID uuid.UUID
	data      []byte
}

func (publishCmd) hubCmd() {}

type clientCountCmd struct {
	sessionID    uuid.UUID
	replyChannel chan int
}

func (clientCountCmd) hubCmd() {}

type stopCmd struct{}

func (stopCmd) hubCmd() {}

// Hub manages per-session WebSocket clients and pushes events to them.
type Hub struct {
	cmdCh                chan hubCmd
	clock                clockwork.Clock
	activeClients        map[uuid.UUID]sessionClients
	done                 chan struct{}
	maxClientsPerSession int
}

// NewHub creates and starts the hub actor. maxClientsPerSession bounds
// connections per session against resource exhaustion.
func NewHub(clock clockwork.Clock, maxClientsPerSession int) *Hub {
	h := &Hub{
		cmdCh:                make(chan hubCmd, 256),
		clock:                clock,
		activeClients:        make(map[uuid.UUID]sessionClients),
		done:                 make(chan struct{}),
		maxClientsPerSession: maxClientsPerSession,
	}
	go h.run()
	return h
}

// Register adds a client connection to a session. Returns an error only
// when the per-session cap is reached.
func (h *Hub) Register(sessionID uuid.UUID, conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	h.cmdCh <- registerCmd{sessionID: sessionID, connection: conn, errorChannel: errCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.Chan():
		return fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// Unregister removes a client from a session.
func (h *Hub) Unregister(sessionID uuid.UUID, conn *websocket.Conn) {
	h.cmdCh <- unregisterCmd{sessionID: sessionID, connection: conn}
}

// Publish sends one event to every client of a session. Implements
// engine.Publisher.
func (h *Hub) Publish(sessionID uuid.UUID, ev domain.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("Failed to marshal event", "session_id", sessionID.String(), "error", err)
		return
	}
	h.cmdCh <- publishCmd{sessionID: sessionID, data: data}
}

// ClientCount returns the number of connected clients for a session, or
// -1 on timeout.
func (h *Hub) ClientCount(sessionID uuid.UUID) int {
	replyCh := make(chan int, 1)
	h.cmdCh <- clientCountCmd{sessionID: sessionID, replyChannel: replyCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("ClientCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop shuts the hub down, closing all client connections. Blocks until
// the actor has exited or the stop timeout passes.
func (h *Hub) Stop() {
	h.cmdCh <- stopCmd{}

	timer := h.clock.NewTimer(stopTimeout)
	defer timer.Stop()

	select {
	case <-h.done:
		slog.Info("Hub stopped gracefully")
	case <-timer.Chan():
		slog.Warn("Hub stop timeout exceeded", "timeout", stopTimeout)
	}
}

func (h *Hub) run() {
	defer close(h.done)

	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case registerCmd:
			h.handleRegister(c)
		case unregisterCmd:
			h.handleUnregister(c)
		case publishCmd:
			h.handlePublish(c)
		case clientCountCmd:
			c.replyChannel <- len(h.activeClients[c.sessionID])
		case stopCmd:
			h.handleStop()
			return
		}
	}
}

func (h *Hub) handleRegister(c registerCmd) {
	clients, exists := h.activeClients[c.sessionID]
	if !exists {
		clients = make(sessionClients)
		h.activeClients[c.sessionID] = clients
	}

	if len(clients) >= h.maxClientsPerSession {
		slog.Warn("Rejecting client: max clients reached",
			"session_id", c.sessionID.String(),
			"max_clients", h.maxClientsPerSession,
		)
		_ = c.connection.Close()
		c.errorChannel <- fmt.Errorf("max clients per session (%d) reached", h.maxClientsPerSession)
		return
	}

	clients[c.connection] = newClientWriter(c.connection, h.clock)

	metrics.HubActiveSessions.Set(float64(len(h.activeClients)))
	metrics.HubConnectedClients.Inc()

	slog.Debug("Client registered", "session_id", c.sessionID.String(), "total_clients", len(clients))
	c.errorChannel <- nil
}

func (h *Hub) handleUnregister(c unregisterCmd) {
	clients, exists := h.activeClients[c.sessionID]
	if !exists {
		return
	}
	cw, exists := clients[c.connection]
	if !exists {
		return
	}

	cw.stop()
	delete(clients, c.connection)
	metrics.HubConnectedClients.Dec()

	if len(clients) == 0 {
		delete(h.activeClients, c.sessionID)
		metrics.HubActiveSessions.Set(float64(len(h.activeClients)))
		slog.Info("Last client disconnected", "session_id", c.sessionID.String())
	}
}

func (h *Hub) handlePublish(c publishCmd) {
	clients := h.activeClients[c.sessionID]
	if len(clients) == 0 {
		return
	}

	start := h.clock.Now()

	var slow []*websocket.Conn
	for conn, writer := range clients {
		select {
		case writer.sendChannel <- c.data:
		default:
			slow = append(slow, conn)
		}
	}

	// A full send buffer means the client cannot keep up with the event
	// rate; evict it rather than stall everyone else.
	for _, conn := range slow {
		slog.Warn("Disconnecting slow client", "session_id", c.sessionID.String())
		metrics.HubSlowClientsEvicted.Inc()
		h.handleUnregister(unregisterCmd{sessionID: c.sessionID, connection: conn})
	}

	metrics.HubPublishDuration.Observe(h.clock.Since(start).Seconds())
}

func (h *Hub) handleStop() {
	totalClients := 0
	for _, clients := range h.activeClients {
		totalClients += len(clients)
	}
	slog.Info("Hub shutting down", "sessions", len(h.activeClients), "total_clients", totalClients)

	for sessionID, clients := range h.activeClients {
		for _, cw := range clients {
			cw.stopGraceful("Server shutting down")
		}
		delete(h.activeClients, sessionID)
	}
	metrics.HubActiveSessions.Set(0)
	metrics.HubConnectedClients.Set(0)
}
