package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Category groups words for coloring and sentiment scoring.
type Category string

const (
	CategoryPositive  Category = "positive"
	CategoryNegative  Category = "negative"
	CategoryTechnical Category = "technical"
	CategoryMood      Category = "mood"
	CategoryGenre     Category = "genre"
	CategoryElement   Category = "element"
	CategoryGeneral   Category = "general"
)

// ParseCategory converts a string to a Category, defaulting to general.
func ParseCategory(s string) Category {
	switch Category(s) {
	case CategoryPositive, CategoryNegative, CategoryTechnical,
		CategoryMood, CategoryGenre, CategoryElement:
		return Category(s)
	default:
		return CategoryGeneral
	}
}

// WordEntry is one aggregated word in a session. Unique per session by Word.
type WordEntry struct {
	Word     string   `json:"word"`
	Count    int      `json:"count"`
	Category Category `json:"category"`
}

// SessionStatus reflects whether feedback collection is currently open.
type SessionStatus string

const (
	SessionOpen   SessionStatus = "open"
	SessionClosed SessionStatus = "closed"
)

// SessionStats are the per-session aggregate counters. TotalInputs counts
// accepted submissions (not words) and resets when a new collection period
// starts. SentimentScore stays within [-1, 1].
type SessionStats struct {
	TotalInputs    int           `json:"totalInputs"`
	UniqueWords    int           `json:"uniqueWords"`
	SentimentScore float64       `json:"sentimentScore"`
	Status         SessionStatus `json:"status"`
}

// Snapshot is the full authoritative state fetched on join and on every
// reconnect.
type Snapshot struct {
	Words []WordEntry  `json:"words"`
	Stats SessionStats `json:"stats"`
}

// InputMethod distinguishes typed from voice-transcribed submissions.
// Transcription happens upstream; both arrive here as plain text.
type InputMethod string

const (
	InputText  InputMethod = "text"
	InputVoice InputMethod = "voice"
)

// SubmitResult lists the word entries a submission was accepted into.
type SubmitResult struct {
	Accepted []WordEntry `json:"accepted"`
}

// WordPosition is a placed word in a computed layout. Derived, never
// persisted: recomputed every layout pass and handed by value downstream.
type WordPosition struct {
	Word     string
	X        float64
	Y        float64
	FontSize float64
	Width    float64
	Height   float64
	Color    string
}

// Session is a feedback session record, owned by the session authority.
type Session struct {
	ID        uuid.UUID
	Title     string
	Status    SessionStatus
	CreatedAt time.Time
	ClosedAt  *time.Time
}

// SessionRepository is the session existence / open-closed authority.
type SessionRepository interface {
	Create(ctx context.Context, title string) (*Session, error)
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	SetStatus(ctx context.Context, id uuid.UUID, status SessionStatus) error
	ListOpen(ctx context.Context) ([]Session, error)
}

// WordStore holds the authoritative per-session word aggregate.
type WordStore interface {
	ApplyDeltas(ctx context.Context, sessionID uuid.UUID, words []ScoredWord) ([]WordEntry, error)
	DeleteWord(ctx context.Context, sessionID uuid.UUID, word string) error
	Snapshot(ctx context.Context, sessionID uuid.UUID) (*Snapshot, error)
	Reset(ctx context.Context, sessionID uuid.UUID) error
	IncrTotalInputs(ctx context.Context, sessionID uuid.UUID, valence float64) (SessionStats, error)
}

// ScoredWord is a tokenized word with its lexicon classification.
type ScoredWord struct {
	Word     string
	Category Category
	Valence  float64
}

// CooldownStore enforces the per-submitter cooldown between submissions.
// Check returns allowed=true when the submitter may post (consuming the
// slot), or allowed=false with the remaining wait.
type CooldownStore interface {
	Check(ctx context.Context, sessionID uuid.UUID, clientID string) (allowed bool, wait time.Duration, err error)
}

// SnapshotFetcher retrieves the authoritative snapshot for resync.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, sessionID uuid.UUID) (*Snapshot, error)
}
