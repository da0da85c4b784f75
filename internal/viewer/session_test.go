package viewer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rbergman/wordwall/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type mockFetcher struct {
	mu    sync.Mutex
	snap  *domain.Snapshot
	err   error
	calls int
}

func (m *mockFetcher) FetchSnapshot(_ context.Context, _ uuid.UUID) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.snap, m.err
}

func (m *mockFetcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type nullSurface struct{}

func (nullSurface) Size() (float64, float64)                  { return 800, 600 }
func (nullSurface) Clear()                                    {}
func (nullSurface) DrawWord(_ domain.WordPosition, _ float64) {}

// --- Tests ---

func newTestSession(t *testing.T, fetcher domain.SnapshotFetcher) *Session {
	t.Helper()
	clock := clockwork.NewFakeClock()
	s := NewSession("http://localhost:0", uuid.New(), "client-1", nullSurface{}, clock, Options{})
	s.snapshots = fetcher
	s.engine.Start()
	t.Cleanup(s.engine.Stop)
	return s
}

func TestResync_AppliesFetchedSnapshot(t *testing.T) {
	fetcher := &mockFetcher{snap: &domain.Snapshot{
		Words: []domain.WordEntry{
			{Word: "fire", Count: 4, Category: domain.CategoryPositive},
		},
		Stats: domain.SessionStats{TotalInputs: 12, UniqueWords: 1, Status: domain.SessionOpen},
	}}
	s := newTestSession(t, fetcher)

	require.NoError(t, s.resync(context.Background()))

	assert.Equal(t, 1, fetcher.callCount())
	assert.Equal(t, 12, s.Stats().TotalInputs)
	assert.Equal(t, 1, s.Stats().UniqueWords)
}

func TestResync_PropagatesFetchError(t *testing.T) {
	fetcher := &mockFetcher{err: errors.New("server unreachable")}
	s := newTestSession(t, fetcher)

	err := s.resync(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, s.Stats().TotalInputs)
}
