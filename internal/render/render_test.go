package render

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rbergman/wordwall/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type drawCall struct {
	pos     domain.WordPosition
	opacity float64
}

type mockSurface struct {
	mu     sync.Mutex
	clears int
	draws  []drawCall
}

func (m *mockSurface) Size() (float64, float64) { return 800, 600 }

func (m *mockSurface) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	m.draws = nil
}

func (m *mockSurface) DrawWord(pos domain.WordPosition, opacity float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.draws = append(m.draws, drawCall{pos: pos, opacity: opacity})
}

func (m *mockSurface) lastDraws() []drawCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]drawCall, len(m.draws))
	copy(cp, m.draws)
	return cp
}

// --- Helpers ---

func pos(word string, x, y, size float64) domain.WordPosition {
	return domain.WordPosition{Word: word, X: x, Y: y, FontSize: size, Width: size * 3, Height: size}
}

func newTestLoop() (*Loop, *mockSurface, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	surface := &mockSurface{}
	return NewLoop(clock, surface, DefaultFrameInterval), surface, clock
}

// --- Easing ---

func TestEaseOut_Curve(t *testing.T) {
	assert.Equal(t, 0.0, easeOut(0))
	assert.Equal(t, 1.0, easeOut(1))
	// 1 - (1-0.5)^3 = 0.875
	assert.InDelta(t, 0.875, easeOut(0.5), 0.001)
	// Ease-out decelerates: the first half covers more ground than the
	// second.
	assert.Greater(t, easeOut(0.5), 1-easeOut(0.5))
}

// --- Transition behavior (driven directly, no goroutine) ---

func TestFrame_InterpolatesTowardTarget(t *testing.T) {
	loop, surface, clock := newTestLoop()

	loop.previous["fire"] = pos("fire", 0, 0, 14)
	loop.beginTransition([]domain.WordPosition{pos("fire", 100, 50, 48)})

	clock.Advance(150 * time.Millisecond)
	loop.frame()

	draws := surface.lastDraws()
	require.Len(t, draws, 1)
	eased := easeOut(0.5)
	assert.InDelta(t, 100*eased, draws[0].pos.X, 0.001)
	assert.InDelta(t, 50*eased, draws[0].pos.Y, 0.001)
	assert.InDelta(t, 14+(48-14)*eased, draws[0].pos.FontSize, 0.001)
	assert.Equal(t, 1.0, draws[0].opacity)
}

func TestFrame_NewWordFadesInAtTarget(t *testing.T) {
	loop, surface, clock := newTestLoop()

	loop.beginTransition([]domain.WordPosition{pos("fresh", 200, 100, 30)})

	clock.Advance(150 * time.Millisecond)
	loop.frame()

	draws := surface.lastDraws()
	require.Len(t, draws, 1)
	// A brand-new word does not fly in: it fades in at its final position.
	assert.Equal(t, 200.0, draws[0].pos.X)
	assert.Equal(t, 100.0, draws[0].pos.Y)
	assert.InDelta(t, easeOut(0.5), draws[0].opacity, 0.001)
}

func TestFrame_CompletesAndPromotesPrevious(t *testing.T) {
	loop, surface, clock := newTestLoop()

	target := pos("fire", 100, 50, 48)
	loop.beginTransition([]domain.WordPosition{target})

	clock.Advance(400 * time.Millisecond)
	loop.frame()

	draws := surface.lastDraws()
	require.Len(t, draws, 1)
	assert.Equal(t, 100.0, draws[0].pos.X)
	assert.Equal(t, 1.0, draws[0].opacity)

	assert.False(t, loop.animating)
	assert.Equal(t, target, loop.previous["fire"])
}

func TestFrame_RemovedWordsForgotten(t *testing.T) {
	loop, _, clock := newTestLoop()

	loop.beginTransition([]domain.WordPosition{
		pos("keep", 100, 100, 20),
		pos("drop", 300, 300, 20),
	})
	clock.Advance(transitionDuration)
	loop.frame()
	require.Contains(t, loop.previous, "drop")

	// The next layout no longer contains "drop": it disappears without a
	// fade-out and leaves no baseline entry.
	loop.beginTransition([]domain.WordPosition{pos("keep", 120, 100, 22)})
	clock.Advance(transitionDuration)
	loop.frame()

	assert.Contains(t, loop.previous, "keep")
	assert.NotContains(t, loop.previous, "drop")
}

func TestBeginTransition_MidFlightRetargetsFromCurrent(t *testing.T) {
	loop, surface, clock := newTestLoop()

	loop.previous["fire"] = pos("fire", 0, 0, 14)
	loop.beginTransition([]domain.WordPosition{pos("fire", 100, 0, 14)})

	// Halfway through, a new layout arrives with a different target.
	clock.Advance(150 * time.Millisecond)
	loop.frame()
	midX := surface.lastDraws()[0].pos.X
	require.Greater(t, midX, 0.0)
	require.Less(t, midX, 100.0)

	loop.beginTransition([]domain.WordPosition{pos("fire", 40, 0, 14)})

	// The retargeted animation starts exactly from the interpolated
	// position, not from the old start or the old target.
	require.Len(t, loop.active, 1)
	assert.InDelta(t, midX, loop.active[0].from.X, 0.001)

	clock.Advance(transitionDuration)
	loop.frame()
	assert.Equal(t, 40.0, surface.lastDraws()[0].pos.X)
}

func TestBeginTransition_MidFlightFadePreservesOpacity(t *testing.T) {
	loop, surface, clock := newTestLoop()

	loop.beginTransition([]domain.WordPosition{pos("fresh", 100, 100, 20)})
	clock.Advance(150 * time.Millisecond)
	loop.frame()
	midOpacity := surface.lastDraws()[0].opacity
	require.Greater(t, midOpacity, 0.0)
	require.Less(t, midOpacity, 1.0)

	// Retargeting must not reset the fade to fully transparent.
	loop.beginTransition([]domain.WordPosition{pos("fresh", 120, 100, 20)})
	require.Len(t, loop.active, 1)
	assert.True(t, loop.active[0].fadeIn)
	assert.InDelta(t, midOpacity, loop.active[0].startOpacity, 0.001)
}

func TestFrame_NoAnimationNoDraw(t *testing.T) {
	loop, surface, clock := newTestLoop()

	clock.Advance(time.Second)
	loop.frame()

	assert.Zero(t, surface.clears)
	assert.Empty(t, surface.lastDraws())
}

// --- Actor lifecycle ---

func TestLoop_StartSetLayoutStop(t *testing.T) {
	loop, surface, clock := newTestLoop()
	loop.Start()

	loop.SetLayout([]domain.WordPosition{pos("fire", 100, 50, 48)})

	require.Eventually(t, func() bool {
		clock.Advance(DefaultFrameInterval)
		return len(surface.lastDraws()) == 1
	}, time.Second, 5*time.Millisecond)

	loop.Stop()
	prev := loop.Previous()
	// Transition may or may not have completed by the time Stop lands;
	// either way the table only ever contains known words.
	for word := range prev {
		assert.Equal(t, "fire", word)
	}
}

func TestSetLayout_LatestWins(t *testing.T) {
	loop, _, _ := newTestLoop()

	// Without a running consumer, repeated layouts must not block and the
	// newest one must survive.
	loop.SetLayout([]domain.WordPosition{pos("one", 0, 0, 14)})
	loop.SetLayout([]domain.WordPosition{pos("two", 0, 0, 14)})
	loop.SetLayout([]domain.WordPosition{pos("three", 0, 0, 14)})

	select {
	case positions := <-loop.layoutCh:
		require.Len(t, positions, 1)
		assert.Equal(t, "three", positions[0].Word)
	default:
		t.Fatal("expected a buffered layout")
	}
}
