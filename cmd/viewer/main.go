// Command viewer joins a feedback session from a terminal: it renders
// the live word cloud as a character grid and submits lines typed on
// stdin as feedback.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rbergman/wordwall/internal/domain"
	"github.com/rbergman/wordwall/internal/logging"
	"github.com/rbergman/wordwall/internal/viewer"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "wordwall server base URL")
	sessionStr := flag.String("session", "", "session id to join")
	clientID := flag.String("client", uuid.NewString(), "client id for cooldown tracking")
	cols := flag.Int("cols", 100, "terminal grid width")
	rows := flag.Int("rows", 30, "terminal grid height")
	flag.Parse()

	logging.Init("warn", "text")

	sessionID, err := uuid.Parse(*sessionStr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "a valid -session id is required")
		os.Exit(1)
	}

	surface := newTermSurface(os.Stdout, *cols, *rows)
	session := viewer.NewSession(*serverURL, sessionID, *clientID, surface, clockwork.NewRealClock(), viewer.Options{})
	session.Join()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go readInput(session)

	<-sigCh
	session.Leave()
	fmt.Println()
}

// readInput submits each stdin line as typed feedback.
func readInput(session *viewer.Session) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		_, err := session.Submit(context.Background(), text, domain.InputText)
		if err != nil {
			if rl, ok := domain.AsRateLimited(err); ok {
				fmt.Fprintf(os.Stderr, "cooldown: wait %ds\n", rl.WaitSeconds())
				continue
			}
			slog.Warn("Submission failed", "error", err)
		}
	}
}

// termSurface renders word positions onto a rune grid and writes it to
// the terminal. The pixel space reported by Size maps cellWidth x
// cellHeight pixels onto one character cell.
type termSurface struct {
	out  *os.File
	cols int
	rows int

	mu   sync.Mutex
	grid [][]rune
}

const (
	cellWidth  = 8
	cellHeight = 16
)

func newTermSurface(out *os.File, cols, rows int) *termSurface {
	s := &termSurface{out: out, cols: cols, rows: rows}
	s.grid = emptyGrid(cols, rows)
	return s
}

func (s *termSurface) Size() (float64, float64) {
	return float64(s.cols * cellWidth), float64(s.rows * cellHeight)
}

// Clear presents the previously drawn frame and resets the grid. The
// render loop calls Clear at the start of every frame, so each frame is
// shown while the next one is being drawn.
func (s *termSurface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	b.WriteString("\x1b[H\x1b[2J")
	for _, row := range s.grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	fmt.Fprint(s.out, b.String())

	s.grid = emptyGrid(s.cols, s.rows)
}

func (s *termSurface) DrawWord(pos domain.WordPosition, opacity float64) {
	if opacity < 0.2 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row := int(pos.Y / cellHeight)
	col := int(pos.X / cellWidth)
	if row < 0 || row >= s.rows {
		return
	}
	word := pos.Word
	if pos.FontSize >= 34 {
		word = strings.ToUpper(word)
	}
	for i, r := range word {
		c := col + i
		if c < 0 || c >= s.cols {
			continue
		}
		s.grid[row][c] = r
	}
}

func emptyGrid(cols, rows int) [][]rune {
	grid := make([][]rune, rows)
	for i := range grid {
		grid[i] = make([]rune, cols)
		for j := range grid[i] {
			grid[i][j] = ' '
		}
	}
	return grid
}
