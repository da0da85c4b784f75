package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/rbergman/wordwall/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// WordStore keeps one hash of word counts and one of word categories per
// session, plus a stats hash. Counts are authoritative; clients only ever
// converge toward them via events and snapshots.
type WordStore struct {
	rdb *goredis.Client
}

func NewWordStore(rdb *goredis.Client) *WordStore {
	return &WordStore{rdb: rdb}
}

func wordsKey(sid uuid.UUID) string { return "words:" + sid.String() }
func catsKey(sid uuid.UUID) string  { return "wordcats:" + sid.String() }
func statsKey(sid uuid.UUID) string { return "stats:" + sid.String() }

// ApplyDeltas increments each word's count by one occurrence and records
// its category on first sight. Returns the resulting entries in input
// order (duplicates collapse onto the final count).
func (s *WordStore) ApplyDeltas(ctx context.Context, sessionID uuid.UUID, words []domain.ScoredWord) ([]domain.WordEntry, error) {
	if len(words) == 0 {
		return nil, nil
	}

	wk, ck := wordsKey(sessionID), catsKey(sessionID)

	pipe := s.rdb.TxPipeline()
	counts := make(map[string]*goredis.IntCmd, len(words))
	for _, w := range words {
		counts[w.Word] = pipe.HIncrBy(ctx, wk, w.Word, 1)
		pipe.HSetNX(ctx, ck, w.Word, string(w.Category))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to apply word deltas: %w", err)
	}

	seen := make(map[string]struct{}, len(words))
	entries := make([]domain.WordEntry, 0, len(words))
	for _, w := range words {
		if _, dup := seen[w.Word]; dup {
			continue
		}
		seen[w.Word] = struct{}{}
		entries = append(entries, domain.WordEntry{
			Word:     w.Word,
			Count:    int(counts[w.Word].Val()),
			Category: w.Category,
		})
	}
	return entries, nil
}

// DeleteWord removes a word entirely (moderation path).
func (s *WordStore) DeleteWord(ctx context.Context, sessionID uuid.UUID, word string) error {
	pipe := s.rdb.TxPipeline()
	pipe.HDel(ctx, wordsKey(sessionID), word)
	pipe.HDel(ctx, catsKey(sessionID), word)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete word: %w", err)
	}
	return nil
}

// Snapshot reads the full aggregate. Stats.Status is filled by the caller
// from the session authority.
func (s *WordStore) Snapshot(ctx context.Context, sessionID uuid.UUID) (*domain.Snapshot, error) {
	counts, err := s.rdb.HGetAll(ctx, wordsKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read word counts: %w", err)
	}
	cats, err := s.rdb.HGetAll(ctx, catsKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read word categories: %w", err)
	}

	words := make([]domain.WordEntry, 0, len(counts))
	for word, raw := range counts {
		count, err := strconv.Atoi(raw)
		if err != nil || count <= 0 {
			continue
		}
		words = append(words, domain.WordEntry{
			Word:     word,
			Count:    count,
			Category: domain.ParseCategory(cats[word]),
		})
	}

	stats, err := s.readStats(ctx, sessionID, len(words))
	if err != nil {
		return nil, err
	}

	return &domain.Snapshot{Words: words, Stats: stats}, nil
}

// IncrTotalInputs counts one accepted submission and folds its mean word
// valence into the running sentiment score.
func (s *WordStore) IncrTotalInputs(ctx context.Context, sessionID uuid.UUID, valence float64) (domain.SessionStats, error) {
	sk := statsKey(sessionID)

	pipe := s.rdb.TxPipeline()
	pipe.HIncrBy(ctx, sk, "total_inputs", 1)
	pipe.HIncrByFloat(ctx, sk, "valence_sum", valence)
	pipe.HIncrBy(ctx, sk, "valence_count", 1)
	uniq := pipe.HLen(ctx, wordsKey(sessionID))
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.SessionStats{}, fmt.Errorf("failed to update stats: %w", err)
	}

	return s.readStats(ctx, sessionID, int(uniq.Val()))
}

// Reset clears all aggregate state for a session. Used when a new
// collection period starts.
func (s *WordStore) Reset(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.rdb.Del(ctx, wordsKey(sessionID), catsKey(sessionID), statsKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to reset session aggregate: %w", err)
	}
	return nil
}

func (s *WordStore) readStats(ctx context.Context, sessionID uuid.UUID, uniqueWords int) (domain.SessionStats, error) {
	vals, err := s.rdb.HMGet(ctx, statsKey(sessionID), "total_inputs", "valence_sum", "valence_count").Result()
	if err != nil {
		return domain.SessionStats{}, fmt.Errorf("failed to read stats: %w", err)
	}

	stats := domain.SessionStats{UniqueWords: uniqueWords}
	if vals[0] != nil {
		stats.TotalInputs, _ = strconv.Atoi(vals[0].(string))
	}

	var sum float64
	var count int64
	if vals[1] != nil {
		sum, _ = strconv.ParseFloat(vals[1].(string), 64)
	}
	if vals[2] != nil {
		count, _ = strconv.ParseInt(vals[2].(string), 10, 64)
	}
	if count > 0 {
		stats.SentimentScore = clamp(sum/float64(count), -1, 1)
	}

	return stats, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
