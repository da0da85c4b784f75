// Package viewer wires one viewer's client pipeline for a session:
// channel events into the batching engine, canonical lists into the
// layout engine, and layouts into the render loop.
package viewer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rbergman/wordwall/internal/aggregate"
	"github.com/rbergman/wordwall/internal/channel"
	"github.com/rbergman/wordwall/internal/domain"
	"github.com/rbergman/wordwall/internal/ingest"
	"github.com/rbergman/wordwall/internal/layout"
	"github.com/rbergman/wordwall/internal/metrics"
	"github.com/rbergman/wordwall/internal/render"
)

// Options tune a viewer session. Zero values fall back to defaults.
type Options struct {
	FlushInterval  time.Duration
	FrameInterval  time.Duration
	MaxWords       int
	SubmitCooldown time.Duration
}

// Session is one viewer's live view of a feedback session. Join starts
// the pipeline; Leave cancels every background task synchronously.
type Session struct {
	sessionID uuid.UUID
	clock     clockwork.Clock
	surface   render.Surface

	snapshots domain.SnapshotFetcher
	channel   *channel.Channel
	engine    *aggregate.Engine
	loop      *render.Loop
	submitter *ingest.Submitter

	mu        sync.Mutex
	connState domain.ConnState

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewSession builds an unjoined session.
func NewSession(serverURL string, sessionID uuid.UUID, clientID string, surface render.Surface, clock clockwork.Clock, opts Options) *Session {
	if opts.SubmitCooldown <= 0 {
		opts.SubmitCooldown = 5 * time.Second
	}

	api := NewAPIClient(serverURL, clientID)
	engine := aggregate.NewEngine(clock, opts.FlushInterval, opts.MaxWords)
	loop := render.NewLoop(clock, surface, opts.FrameInterval)
	submitter := ingest.NewSubmitter(api, engine, clock, sessionID, opts.SubmitCooldown)

	s := &Session{
		sessionID: sessionID,
		clock:     clock,
		surface:   surface,
		snapshots: api,
		engine:    engine,
		loop:      loop,
		submitter: submitter,
		connState: domain.ConnDisconnected,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	s.channel = channel.New(serverURL, sessionID, clock, s.resync)
	return s
}

// Join starts the batching engine, render loop, channel, and event pump.
func (s *Session) Join() {
	s.engine.Start()
	s.loop.Start()
	s.channel.Join()
	go s.pump()
	slog.Info("Joined session", "session_id", s.sessionID.String())
}

// Leave stops everything this session started. After it returns, no
// background work remains for the session.
func (s *Session) Leave() {
	close(s.stopCh)
	s.channel.Leave()
	s.engine.Stop()
	s.loop.Stop()
	<-s.doneCh
	slog.Info("Left session", "session_id", s.sessionID.String())
}

// Submit sends viewer feedback through the ingest path.
func (s *Session) Submit(ctx context.Context, text string, method domain.InputMethod) (*domain.SubmitResult, error) {
	return s.submitter.Submit(ctx, text, method)
}

// CooldownRemaining exposes the submit cooldown for UI display.
func (s *Session) CooldownRemaining() time.Duration {
	return s.submitter.CooldownRemaining()
}

// ConnState reports the channel state for the connection indicator.
func (s *Session) ConnState() domain.ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connState
}

// Stats returns the current session stats.
func (s *Session) Stats() domain.SessionStats {
	return s.engine.Stats()
}

// resync replaces the local aggregate with the authoritative snapshot.
// Called by the channel on every connect, including reconnects.
func (s *Session) resync(ctx context.Context) error {
	snap, err := s.snapshots.FetchSnapshot(ctx, s.sessionID)
	if err != nil {
		return err
	}
	s.engine.ApplySnapshot(*snap)
	return nil
}

// pump moves data between pipeline stages. Layout computation happens
// here, off both the flush timer and the frame loop.
func (s *Session) pump() {
	defer close(s.doneCh)

	for {
		select {
		case ev := <-s.channel.Events():
			s.engine.HandleEvent(ev)

		case state := <-s.channel.States():
			s.mu.Lock()
			s.connState = state
			s.mu.Unlock()
			slog.Debug("Connection state changed", "session_id", s.sessionID.String(), "state", string(state))

		case words := <-s.engine.Words():
			start := s.clock.Now()
			w, h := s.surface.Size()
			positions := layout.Compute(words, w, h)
			metrics.LayoutDuration.Observe(s.clock.Since(start).Seconds())
			s.loop.SetLayout(positions)

		case <-s.stopCh:
			return
		}
	}
}
