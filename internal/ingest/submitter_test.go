package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rbergman/wordwall/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type submitCall struct {
	text   string
	method domain.InputMethod
}

type mockClient struct {
	mu     sync.Mutex
	calls  []submitCall
	result *domain.SubmitResult
	err    error
}

func (m *mockClient) Submit(ctx context.Context, sessionID uuid.UUID, text string, method domain.InputMethod) (*domain.SubmitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, submitCall{text: text, method: method})
	return m.result, m.err
}

func (m *mockClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockStager struct {
	mu       sync.Mutex
	staged   [][]domain.ScoredWord
	accepted int
}

func (m *mockStager) Stage(words []domain.ScoredWord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staged = append(m.staged, words)
}

func (m *mockStager) RecordAccepted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accepted++
}

func (m *mockStager) stagedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.staged)
}

// --- Helpers ---

type testSubmitter struct {
	submitter *Submitter
	client    *mockClient
	stager    *mockStager
	clock     *clockwork.FakeClock
}

func newTestSubmitter() *testSubmitter {
	clock := clockwork.NewFakeClock()
	client := &mockClient{result: &domain.SubmitResult{}}
	stager := &mockStager{}
	return &testSubmitter{
		submitter: NewSubmitter(client, stager, clock, uuid.New(), 5*time.Second),
		client:    client,
		stager:    stager,
		clock:     clock,
	}
}

// --- Tests ---

func TestSubmit_EmptyTextRejected(t *testing.T) {
	ts := newTestSubmitter()

	_, err := ts.submitter.Submit(context.Background(), "   \t ", domain.InputText)
	require.ErrorIs(t, err, domain.ErrEmptySubmission)
	assert.Zero(t, ts.client.callCount())
	assert.Zero(t, ts.stager.stagedCount())
}

func TestSubmit_UnknownMethodRejected(t *testing.T) {
	ts := newTestSubmitter()

	_, err := ts.submitter.Submit(context.Background(), "great set", domain.InputMethod("telepathy"))
	require.Error(t, err)
	assert.Zero(t, ts.client.callCount())
}

func TestSubmit_AcceptedStartsCooldown(t *testing.T) {
	ts := newTestSubmitter()

	_, err := ts.submitter.Submit(context.Background(), "fire", domain.InputText)
	require.NoError(t, err)
	assert.Equal(t, 1, ts.stager.stagedCount())
	assert.Equal(t, 1, ts.stager.accepted)
	assert.Equal(t, 5*time.Second, ts.submitter.CooldownRemaining())

	// Second submission during the cooldown is rejected locally, without a
	// network round trip.
	_, err = ts.submitter.Submit(context.Background(), "more fire", domain.InputText)
	rl, ok := domain.AsRateLimited(err)
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, rl.Wait)
	assert.Equal(t, 1, ts.client.callCount())
}

func TestSubmit_CooldownExpiresExactly(t *testing.T) {
	ts := newTestSubmitter()

	_, err := ts.submitter.Submit(context.Background(), "fire", domain.InputText)
	require.NoError(t, err)

	ts.clock.Advance(4999 * time.Millisecond)
	_, err = ts.submitter.Submit(context.Background(), "again", domain.InputText)
	_, ok := domain.AsRateLimited(err)
	require.True(t, ok)

	ts.clock.Advance(1 * time.Millisecond)
	assert.Zero(t, ts.submitter.CooldownRemaining())
	_, err = ts.submitter.Submit(context.Background(), "again", domain.InputText)
	require.NoError(t, err)
	assert.Equal(t, 2, ts.client.callCount())
}

func TestSubmit_ServerWaitOverridesLocalCooldown(t *testing.T) {
	ts := newTestSubmitter()
	ts.client.err = &domain.RateLimitedError{Wait: 12 * time.Second}

	_, err := ts.submitter.Submit(context.Background(), "fire", domain.InputText)
	rl, ok := domain.AsRateLimited(err)
	require.True(t, ok)
	assert.Equal(t, 12*time.Second, rl.Wait)

	// The authoritative server wait replaces the 5s local default.
	assert.Equal(t, 12*time.Second, ts.submitter.CooldownRemaining())
	assert.Zero(t, ts.stager.accepted)
}

func TestSubmit_TransientErrorNoCooldown(t *testing.T) {
	ts := newTestSubmitter()
	ts.client.err = errors.New("connection refused")

	_, err := ts.submitter.Submit(context.Background(), "fire", domain.InputText)
	var te *TransientError
	require.ErrorAs(t, err, &te)

	// Transient failures never block the next attempt.
	assert.Zero(t, ts.submitter.CooldownRemaining())
	ts.client.err = nil
	_, err = ts.submitter.Submit(context.Background(), "fire", domain.InputText)
	require.NoError(t, err)
}

func TestSubmit_StagesBeforeRequest(t *testing.T) {
	ts := newTestSubmitter()
	ts.client.err = errors.New("boom")

	_, err := ts.submitter.Submit(context.Background(), "amazing bass drop", domain.InputText)
	require.Error(t, err)

	// Optimistic staging happens regardless of the request outcome; a
	// later resync reconciles it.
	require.Equal(t, 1, ts.stager.stagedCount())
	words := ts.stager.staged[0]
	require.Len(t, words, 3)
	assert.Equal(t, "amazing", words[0].Word)
	assert.Equal(t, domain.CategoryPositive, words[0].Category)
}

func TestSubmit_VoiceMethodPassesThrough(t *testing.T) {
	ts := newTestSubmitter()

	_, err := ts.submitter.Submit(context.Background(), "  chill groove  ", domain.InputVoice)
	require.NoError(t, err)
	require.Equal(t, 1, ts.client.callCount())
	assert.Equal(t, "chill groove", ts.client.calls[0].text)
	assert.Equal(t, domain.InputVoice, ts.client.calls[0].method)
}
