package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rbergman/wordwall/internal/domain"
)

type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

func (r *SessionRepo) Create(ctx context.Context, title string) (*domain.Session, error) {
	var s domain.Session
	err := r.pool.QueryRow(ctx,
		`INSERT INTO sessions (title) VALUES ($1)
		 RETURNING id, title, status, created_at, closed_at`,
		title,
	).Scan(&s.ID, &s.Title, &s.Status, &s.CreatedAt, &s.ClosedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &s, nil
}

func (r *SessionRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	var s domain.Session
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, status, created_at, closed_at FROM sessions WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.Title, &s.Status, &s.CreatedAt, &s.ClosedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

func (r *SessionRepo) SetStatus(ctx context.Context, id uuid.UUID, status domain.SessionStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions
		 SET status = $2,
		     closed_at = CASE WHEN $2 = 'closed' THEN now() ELSE NULL END
		 WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepo) ListOpen(ctx context.Context) ([]domain.Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, status, created_at, closed_at FROM sessions
		 WHERE status = 'open' ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list open sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(&s.ID, &s.Title, &s.Status, &s.CreatedAt, &s.ClosedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
