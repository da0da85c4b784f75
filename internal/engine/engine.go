// Package engine runs the server-side submission pipeline: session
// authority check, cooldown, tokenization, aggregate update, and event
// fan-out.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/rbergman/wordwall/internal/domain"
	"github.com/rbergman/wordwall/internal/lexicon"
	"github.com/rbergman/wordwall/internal/metrics"
)

// bulkThreshold switches per-word events to one bulkUpdate when a single
// submission touches many words.
const bulkThreshold = 3

// Publisher fans an event out to a session's connected viewers.
type Publisher interface {
	Publish(sessionID uuid.UUID, ev domain.Event)
}

type Engine struct {
	sessions  domain.SessionRepository
	words     domain.WordStore
	cooldowns domain.CooldownStore
	publisher Publisher
}

func New(sessions domain.SessionRepository, words domain.WordStore, cooldowns domain.CooldownStore, publisher Publisher) *Engine {
	return &Engine{
		sessions:  sessions,
		words:     words,
		cooldowns: cooldowns,
		publisher: publisher,
	}
}

// ProcessSubmission validates and applies one viewer submission, emitting
// the resulting events. Rate-limit rejections return RateLimitedError with
// the authoritative wait.
func (e *Engine) ProcessSubmission(ctx context.Context, sessionID uuid.UUID, clientID, text string, method domain.InputMethod) (*domain.SubmitResult, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, domain.ErrEmptySubmission
	}

	session, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.SessionOpen {
		return nil, domain.ErrSessionClosed
	}

	allowed, wait, err := e.cooldowns.Check(ctx, sessionID, clientID)
	if err != nil {
		return nil, fmt.Errorf("cooldown check failed: %w", err)
	}
	if !allowed {
		metrics.SubmissionsTotal.WithLabelValues("rate_limited").Inc()
		return nil, &domain.RateLimitedError{Wait: wait}
	}

	scored := lexicon.Classify(trimmed)
	entries, err := e.words.ApplyDeltas(ctx, sessionID, scored)
	if err != nil {
		return nil, fmt.Errorf("failed to apply deltas: %w", err)
	}

	var valenceSum float64
	for _, w := range scored {
		valenceSum += w.Valence
	}
	var valence float64
	if len(scored) > 0 {
		valence = valenceSum / float64(len(scored))
	}
	if _, err := e.words.IncrTotalInputs(ctx, sessionID, valence); err != nil {
		slog.Error("Failed to update stats", "session_id", sessionID.String(), "error", err)
	}

	e.publishEntries(sessionID, entries)

	metrics.SubmissionsTotal.WithLabelValues("accepted").Inc()
	metrics.SubmissionWords.Observe(float64(len(entries)))
	slog.Debug("Submission accepted",
		"session_id", sessionID.String(),
		"method", string(method),
		"words", len(entries),
	)

	return &domain.SubmitResult{Accepted: entries}, nil
}

// publishEntries emits newWord for first occurrences and wordUpdate for
// count changes; large submissions collapse into one bulkUpdate.
func (e *Engine) publishEntries(sessionID uuid.UUID, entries []domain.WordEntry) {
	if len(entries) == 0 {
		return
	}
	if len(entries) >= bulkThreshold {
		e.publisher.Publish(sessionID, domain.BulkUpdateEvent(entries))
		return
	}
	for _, entry := range entries {
		if entry.Count == 1 {
			e.publisher.Publish(sessionID, domain.NewWordEvent(entry))
		} else {
			e.publisher.Publish(sessionID, domain.WordUpdateEvent(entry.Word, entry.Count))
		}
	}
}

// CreateSession registers a new session. Sessions start open so the
// organizer can share the join link immediately.
func (e *Engine) CreateSession(ctx context.Context, title string) (*domain.Session, error) {
	session, err := e.sessions.Create(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	slog.Info("Session created", "session_id", session.ID.String(), "title", title)
	return session, nil
}

// ListOpenSessions returns the sessions currently accepting feedback.
func (e *Engine) ListOpenSessions(ctx context.Context) ([]domain.Session, error) {
	return e.sessions.ListOpen(ctx)
}

// Snapshot returns the authoritative state including the session status.
func (e *Engine) Snapshot(ctx context.Context, sessionID uuid.UUID) (*domain.Snapshot, error) {
	session, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	snap, err := e.words.Snapshot(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	snap.Stats.Status = session.Status
	return snap, nil
}

// OpenSession starts a new collection period: resets the aggregate and
// announces started. TotalInputs restarts from zero by design.
func (e *Engine) OpenSession(ctx context.Context, sessionID uuid.UUID) error {
	if err := e.sessions.SetStatus(ctx, sessionID, domain.SessionOpen); err != nil {
		return err
	}
	if err := e.words.Reset(ctx, sessionID); err != nil {
		return err
	}
	e.publisher.Publish(sessionID, domain.StartedEvent())
	slog.Info("Session opened", "session_id", sessionID.String())
	return nil
}

// CloseSession ends collection and announces stopped with final stats.
func (e *Engine) CloseSession(ctx context.Context, sessionID uuid.UUID) error {
	snap, err := e.words.Snapshot(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to read final stats: %w", err)
	}
	if err := e.sessions.SetStatus(ctx, sessionID, domain.SessionClosed); err != nil {
		return err
	}
	e.publisher.Publish(sessionID, domain.StoppedEvent(snap.Stats))
	slog.Info("Session closed",
		"session_id", sessionID.String(),
		"total_inputs", snap.Stats.TotalInputs,
		"unique_words", snap.Stats.UniqueWords,
	)
	return nil
}

// DeleteWord removes a word from the aggregate (moderation) and announces
// the deletion.
func (e *Engine) DeleteWord(ctx context.Context, sessionID uuid.UUID, word string) error {
	if err := e.words.DeleteWord(ctx, sessionID, word); err != nil {
		return err
	}
	e.publisher.Publish(sessionID, domain.WordDeletedEvent(word))
	return nil
}
