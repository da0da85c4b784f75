// Package ingest validates and submits viewer feedback, enforcing the
// client-side cooldown between submissions.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rbergman/wordwall/internal/domain"
	"github.com/rbergman/wordwall/internal/lexicon"
)

// SubmitClient performs the outbound submit request.
type SubmitClient interface {
	Submit(ctx context.Context, sessionID uuid.UUID, text string, method domain.InputMethod) (*domain.SubmitResult, error)
}

// Stager receives optimistic word deltas before server confirmation.
type Stager interface {
	Stage(words []domain.ScoredWord)
	RecordAccepted()
}

// TransientError wraps a single failed request. Surfaced to the viewer as
// a passing message; never auto-retried and never starts a cooldown.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("submission failed: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// Submitter is the viewer-side ingest path. The cooldown here is a local
// guess for responsiveness; the server-side cooldown is authoritative and
// overwrites it on rejection.
type Submitter struct {
	client    SubmitClient
	stager    Stager
	clock     clockwork.Clock
	sessionID uuid.UUID
	cooldown  time.Duration

	mu            sync.Mutex
	cooldownUntil time.Time
}

// NewSubmitter creates a submitter for one session. cooldown is the local
// delay started after each accepted submission.
func NewSubmitter(client SubmitClient, stager Stager, clock clockwork.Clock, sessionID uuid.UUID, cooldown time.Duration) *Submitter {
	return &Submitter{
		client:    client,
		stager:    stager,
		clock:     clock,
		sessionID: sessionID,
		cooldown:  cooldown,
	}
}

// CooldownRemaining reports how long submissions stay blocked, counted
// down once per second to zero.
func (s *Submitter) CooldownRemaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	remaining := s.cooldownUntil.Sub(s.clock.Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (s *Submitter) setCooldown(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cooldownUntil = s.clock.Now().Add(d)
}

// Submit validates text, optimistically stages its word deltas, and sends
// the submission. A rate-limit rejection starts the authoritative
// countdown from the server's wait value.
func (s *Submitter) Submit(ctx context.Context, text string, method domain.InputMethod) (*domain.SubmitResult, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, domain.ErrEmptySubmission
	}
	if method != domain.InputText && method != domain.InputVoice {
		return nil, fmt.Errorf("unknown input method %q", method)
	}

	if remaining := s.CooldownRemaining(); remaining > 0 {
		return nil, &domain.RateLimitedError{Wait: remaining}
	}

	// Stage before the request so the local cloud reacts immediately. The
	// staged counts are provisional until confirmed or resynced away.
	s.stager.Stage(lexicon.Classify(trimmed))

	result, err := s.client.Submit(ctx, s.sessionID, trimmed, method)
	if err != nil {
		if rl, ok := domain.AsRateLimited(err); ok {
			// Server value wins over any local guess.
			s.setCooldown(rl.Wait)
			return nil, rl
		}
		return nil, &TransientError{Err: err}
	}

	s.stager.RecordAccepted()
	s.setCooldown(s.cooldown)
	return result, nil
}
