package aggregate

import (
	"log/slog"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rbergman/wordwall/internal/domain"
	"github.com/rbergman/wordwall/internal/metrics"
)

const (
	// DefaultFlushInterval bounds how often the canonical list (and thus
	// the layout) can change, independent of the inbound event rate.
	DefaultFlushInterval = 100 * time.Millisecond

	// DefaultMaxWords caps the canonical list at the top-N by count.
	// Words beyond the cap are silently omitted.
	DefaultMaxWords = 50
)

// pendingChange is the per-window staged state for one word.
// Last-write-wins within a window; a deletion overrides count writes.
type pendingChange struct {
	count    int
	category domain.Category
	deleted  bool
}

// --- Command types ---

type engineCmd interface{ engineCmd() }

type cmdEvent struct {
	ev domain.Event
}

func (cmdEvent) engineCmd() {}

type cmdStage struct {
	words []domain.ScoredWord
}

func (cmdStage) engineCmd() {}

type cmdSnapshot struct {
	snap domain.Snapshot
}

func (cmdSnapshot) engineCmd() {}

type cmdFlush struct{}

func (cmdFlush) engineCmd() {}

type cmdRecordAccepted struct{}

func (cmdRecordAccepted) engineCmd() {}

type cmdGetStats struct {
	replyCh chan domain.SessionStats
}

func (cmdGetStats) engineCmd() {}

type cmdGetWords struct {
	replyCh chan []domain.WordEntry
}

func (cmdGetWords) engineCmd() {}

type cmdStop struct {
	doneCh chan struct{}
}

func (cmdStop) engineCmd() {}

// --- Engine ---

// Engine is the batching and reconciliation actor. All state mutation
// happens on its goroutine; the flush ticker and event handlers never run
// concurrently with each other.
type Engine struct {
	cmdCh         chan engineCmd
	clock         clockwork.Clock
	flushInterval time.Duration
	maxWords      int

	pending    map[string]pendingChange
	canonical  []domain.WordEntry
	categories map[string]domain.Category
	stats      domain.SessionStats

	wordsCh chan []domain.WordEntry
	stopCh  chan struct{}
}

// NewEngine creates a batching engine. Call Start to begin processing and
// Stop to terminate it on session leave.
func NewEngine(clock clockwork.Clock, flushInterval time.Duration, maxWords int) *Engine {
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}
	return &Engine{
		cmdCh:         make(chan engineCmd, 512),
		clock:         clock,
		flushInterval: flushInterval,
		maxWords:      maxWords,
		pending:       make(map[string]pendingChange),
		categories:    make(map[string]domain.Category),
		stats:         domain.SessionStats{Status: domain.SessionOpen},
		wordsCh:       make(chan []domain.WordEntry, 1),
		stopCh:        make(chan struct{}),
	}
}

// Start begins the actor and its flush ticker.
func (e *Engine) Start() {
	go e.tickerLoop()
	go e.run()
}

// Words delivers each newly published canonical list. The channel holds
// only the latest value; a slow consumer sees the most recent flush, not
// every intermediate one.
func (e *Engine) Words() <-chan []domain.WordEntry {
	return e.wordsCh
}

// HandleEvent stages an inbound channel event into the current window.
func (e *Engine) HandleEvent(ev domain.Event) {
	e.cmdCh <- cmdEvent{ev: ev}
}

// Stage optimistically stages locally submitted words before server
// confirmation, keeping the local view responsive. The counts written here
// are provisional; the next confirmed event or resync overwrites them.
func (e *Engine) Stage(words []domain.ScoredWord) {
	e.cmdCh <- cmdStage{words: words}
}

// ApplySnapshot replaces the canonical state wholesale. Used on initial
// join and on every reconnect resync.
func (e *Engine) ApplySnapshot(snap domain.Snapshot) {
	e.cmdCh <- cmdSnapshot{snap: snap}
}

// RecordAccepted increments totalInputs for a server-confirmed submission.
// Stats bypass the flush window.
func (e *Engine) RecordAccepted() {
	e.cmdCh <- cmdRecordAccepted{}
}

// Stats returns the current session stats.
func (e *Engine) Stats() domain.SessionStats {
	replyCh := make(chan domain.SessionStats, 1)
	e.cmdCh <- cmdGetStats{replyCh: replyCh}
	return <-replyCh
}

// CanonicalWords returns a copy of the current canonical list.
func (e *Engine) CanonicalWords() []domain.WordEntry {
	replyCh := make(chan []domain.WordEntry, 1)
	e.cmdCh <- cmdGetWords{replyCh: replyCh}
	return <-replyCh
}

// Stop terminates the actor. Blocks until the goroutine has exited.
func (e *Engine) Stop() {
	doneCh := make(chan struct{})
	e.cmdCh <- cmdStop{doneCh: doneCh}
	<-doneCh
}

func (e *Engine) tickerLoop() {
	ticker := e.clock.NewTicker(e.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			e.cmdCh <- cmdFlush{}
		case <-e.stopCh:
			return
		}
	}
}

func (e *Engine) run() {
	for cmd := range e.cmdCh {
		switch c := cmd.(type) {
		case cmdEvent:
			e.handleEvent(c.ev)
		case cmdStage:
			e.handleStage(c.words)
		case cmdSnapshot:
			e.handleSnapshot(c.snap)
		case cmdFlush:
			e.flush()
		case cmdRecordAccepted:
			e.stats.TotalInputs++
		case cmdGetStats:
			c.replyCh <- e.stats
		case cmdGetWords:
			c.replyCh <- append([]domain.WordEntry(nil), e.canonical...)
		case cmdStop:
			close(e.stopCh)
			close(c.doneCh)
			return
		}
	}
}

func (e *Engine) handleEvent(ev domain.Event) {
	switch ev.Type {
	case domain.EventStarted:
		e.reset()
	case domain.EventStopped:
		e.stats.TotalInputs = ev.TotalInputs
		e.stats.UniqueWords = ev.UniqueWords
		e.stats.Status = domain.SessionClosed
	case domain.EventNewWord:
		e.stageTracked(ev.Word, ev.Count, ev.Category)
	case domain.EventWordUpdate:
		e.stageCount(ev.Word, ev.NewCount, e.categories[ev.Word])
	case domain.EventBulkUpdate:
		for _, w := range ev.Words {
			e.stageTracked(w.Word, w.Count, w.Category)
		}
	case domain.EventWordDeleted:
		e.pending[ev.Word] = pendingChange{deleted: true}
		if _, known := e.categories[ev.Word]; known {
			delete(e.categories, ev.Word)
			e.stats.UniqueWords--
		}
	}
}

// stageCount writes an absolute count into the window, unless the word was
// already deleted in this window (deletion wins). Reports whether the
// write was staged.
func (e *Engine) stageCount(word string, count int, category domain.Category) bool {
	if existing, ok := e.pending[word]; ok && existing.deleted {
		return false
	}
	if category == "" {
		category = domain.CategoryGeneral
	}
	e.pending[word] = pendingChange{count: count, category: category}
	e.categories[word] = category
	return true
}

// stageTracked stages a count that may introduce a word. The known-word
// set drives uniqueWords, so replayed events and bulk deliveries count
// each word once.
func (e *Engine) stageTracked(word string, count int, category domain.Category) {
	_, known := e.categories[word]
	if e.stageCount(word, count, category) && !known {
		e.stats.UniqueWords++
	}
}

func (e *Engine) handleStage(words []domain.ScoredWord) {
	current := make(map[string]int, len(e.canonical))
	for _, entry := range e.canonical {
		current[entry.Word] = entry.Count
	}
	for _, w := range words {
		count := current[w.Word]
		if p, ok := e.pending[w.Word]; ok && !p.deleted {
			count = p.count
		}
		e.stageTracked(w.Word, count+1, w.Category)
	}
}

func (e *Engine) handleSnapshot(snap domain.Snapshot) {
	e.pending = make(map[string]pendingChange)
	e.canonical = e.canonicalize(snap.Words)
	e.stats = snap.Stats
	// The known-word set covers the whole snapshot, not just the capped
	// canonical list, so follow-up events stay correctly attributed.
	e.categories = make(map[string]domain.Category, len(snap.Words))
	for _, w := range snap.Words {
		e.categories[w.Word] = w.Category
	}
	e.publish()
}

func (e *Engine) flush() {
	if len(e.pending) == 0 {
		return
	}
	start := e.clock.Now()

	merged := make(map[string]domain.WordEntry, len(e.canonical)+len(e.pending))
	order := make([]string, 0, len(e.canonical)+len(e.pending))
	for _, entry := range e.canonical {
		merged[entry.Word] = entry
		order = append(order, entry.Word)
	}
	for word, change := range e.pending {
		if change.deleted || change.count <= 0 {
			delete(merged, word)
			continue
		}
		if _, known := merged[word]; !known {
			order = append(order, word)
		}
		merged[word] = domain.WordEntry{Word: word, Count: change.count, Category: change.category}
	}

	list := make([]domain.WordEntry, 0, len(merged))
	for _, word := range order {
		if entry, ok := merged[word]; ok {
			list = append(list, entry)
		}
	}

	e.canonical = e.canonicalize(list)
	e.pending = make(map[string]pendingChange)
	e.publish()

	metrics.FlushDuration.Observe(e.clock.Since(start).Seconds())
}

// canonicalize sorts descending by count (stable, so equal counts keep
// their existing order) and truncates to the cap.
func (e *Engine) canonicalize(list []domain.WordEntry) []domain.WordEntry {
	sorted := append([]domain.WordEntry(nil), list...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Count > sorted[j].Count
	})
	if len(sorted) > e.maxWords {
		sorted = sorted[:e.maxWords]
	}
	return sorted
}

// publish hands the latest canonical list downstream, replacing any
// undelivered previous value.
func (e *Engine) publish() {
	words := append([]domain.WordEntry(nil), e.canonical...)
	select {
	case e.wordsCh <- words:
	default:
		select {
		case <-e.wordsCh:
		default:
		}
		select {
		case e.wordsCh <- words:
		default:
		}
	}
}

func (e *Engine) reset() {
	slog.Debug("Feedback collection started, resetting aggregate")
	e.pending = make(map[string]pendingChange)
	e.canonical = nil
	e.categories = make(map[string]domain.Category)
	e.stats = domain.SessionStats{Status: domain.SessionOpen}
	e.publish()
}
