// Package render interpolates between successive layouts for smooth
// visual transitions, driven by a per-frame ticker independent of the
// batching engine's flush timer.
package render

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rbergman/wordwall/internal/domain"
)

const (
	// DefaultFrameInterval approximates a 60 Hz display cadence.
	DefaultFrameInterval = 16 * time.Millisecond

	// transitionDuration is the fixed animation length for position, font
	// size, and fade-in.
	transitionDuration = 300 * time.Millisecond
)

// Surface is a 2D drawing target with known dimensions. Any environment's
// native graphics API can satisfy it.
type Surface interface {
	Size() (width, height float64)
	Clear()
	DrawWord(pos domain.WordPosition, opacity float64)
}

// renderedWord is the animation state for one word during a transition.
type renderedWord struct {
	from         domain.WordPosition
	to           domain.WordPosition
	fadeIn       bool
	current      domain.WordPosition
	startOpacity float64
	opacity      float64
}

// Loop owns the previous-positions table and drives frame rendering.
// SetLayout and the frame ticker are serialized on the actor goroutine,
// so no locking is needed.
type Loop struct {
	clock         clockwork.Clock
	surface       Surface
	frameInterval time.Duration

	layoutCh chan []domain.WordPosition
	stopCh   chan struct{}
	doneCh   chan struct{}

	// previous holds the last fully rendered layout, the baseline for the
	// next transition.
	previous  map[string]domain.WordPosition
	active    []*renderedWord
	started   time.Time
	animating bool
}

// NewLoop creates a render loop drawing onto surface. Call Start to begin
// frames and Stop on session leave.
func NewLoop(clock clockwork.Clock, surface Surface, frameInterval time.Duration) *Loop {
	if frameInterval <= 0 {
		frameInterval = DefaultFrameInterval
	}
	return &Loop{
		clock:         clock,
		surface:       surface,
		frameInterval: frameInterval,
		layoutCh:      make(chan []domain.WordPosition, 1),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
		previous:      make(map[string]domain.WordPosition),
	}
}

// Start begins the frame loop.
func (l *Loop) Start() {
	go l.run()
}

// SetLayout hands a freshly computed layout to the loop. Only the latest
// undrawn layout is kept; intermediate ones are dropped.
func (l *Loop) SetLayout(positions []domain.WordPosition) {
	select {
	case l.layoutCh <- positions:
	default:
		select {
		case <-l.layoutCh:
		default:
		}
		select {
		case l.layoutCh <- positions:
		default:
		}
	}
}

// Stop halts the frame loop. Blocks until the goroutine has exited.
func (l *Loop) Stop() {
	close(l.stopCh)
	<-l.doneCh
}

// Previous returns a copy of the previous-positions table. The table is
// only mutated on the loop goroutine; call this after Stop has returned.
func (l *Loop) Previous() map[string]domain.WordPosition {
	out := make(map[string]domain.WordPosition, len(l.previous))
	for k, v := range l.previous {
		out[k] = v
	}
	return out
}

func (l *Loop) run() {
	defer close(l.doneCh)

	ticker := l.clock.NewTicker(l.frameInterval)
	defer ticker.Stop()

	for {
		select {
		case positions := <-l.layoutCh:
			l.beginTransition(positions)
		case <-ticker.Chan():
			l.frame()
		case <-l.stopCh:
			return
		}
	}
}

// beginTransition retargets the animation at the new layout. Words already
// mid-flight start from their currently interpolated state, not their
// original start or final target, so there is no visible snap.
func (l *Loop) beginTransition(positions []domain.WordPosition) {
	current := make(map[string]renderedWord, len(l.active))
	for _, rw := range l.active {
		current[rw.to.Word] = *rw
	}

	active := make([]*renderedWord, 0, len(positions))
	for _, target := range positions {
		rw := &renderedWord{to: target}

		if mid, ok := current[target.Word]; ok && l.animating {
			rw.from = mid.current
			rw.fadeIn = mid.fadeIn
			rw.startOpacity = mid.opacity
		} else if prev, ok := l.previous[target.Word]; ok {
			rw.from = prev
			rw.startOpacity = 1
		} else {
			rw.from = target
			rw.fadeIn = true
		}
		rw.current = rw.from
		rw.opacity = rw.startOpacity
		active = append(active, rw)
	}

	l.active = active
	l.started = l.clock.Now()
	l.animating = true
}

// easeOut is the fixed transition curve: progress -> 1 - (1-t)^3.
func easeOut(t float64) float64 {
	u := 1 - t
	return 1 - u*u*u
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func (l *Loop) frame() {
	if !l.animating {
		return
	}

	elapsed := l.clock.Since(l.started)
	t := float64(elapsed) / float64(transitionDuration)
	if t >= 1 {
		t = 1
	}
	eased := easeOut(t)

	l.surface.Clear()
	for _, rw := range l.active {
		rw.current = domain.WordPosition{
			Word:     rw.to.Word,
			X:        lerp(rw.from.X, rw.to.X, eased),
			Y:        lerp(rw.from.Y, rw.to.Y, eased),
			FontSize: lerp(rw.from.FontSize, rw.to.FontSize, eased),
			Width:    lerp(rw.from.Width, rw.to.Width, eased),
			Height:   lerp(rw.from.Height, rw.to.Height, eased),
			Color:    rw.to.Color,
		}

		rw.opacity = 1
		if rw.fadeIn {
			rw.opacity = lerp(rw.startOpacity, 1, eased)
		}
		l.surface.DrawWord(rw.current, rw.opacity)
	}

	if t >= 1 {
		l.finishTransition()
	}
}

// finishTransition promotes the just-rendered layout to the baseline for
// the next transition. Words absent from it are forgotten: removed words
// get no fade-out.
func (l *Loop) finishTransition() {
	l.previous = make(map[string]domain.WordPosition, len(l.active))
	for _, rw := range l.active {
		l.previous[rw.to.Word] = rw.to
	}
	l.animating = false
}
