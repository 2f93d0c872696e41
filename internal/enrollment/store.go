package enrollment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// ErrNotFound is returned when a request id does not exist.
var ErrNotFound = errors.New("enrollment request not found")

// Filter narrows a listing. Empty fields match everything.
type Filter struct {
	UserID    string
	SubjectID string
	Status    Status
}

func (f Filter) match(r Request) bool {
	return (f.UserID == "" || r.UserID == f.UserID) &&
		(f.SubjectID == "" || r.SubjectID == f.SubjectID) &&
		(f.Status == "" || r.Status == f.Status)
}

// Store persists enrollment requests.
type Store interface {
	// Upsert inserts a request or, when the user already has one for the
	// subject, overwrites its status.
	Upsert(ctx context.Context, r Request) (Request, error)
	Get(ctx context.Context, id string) (Request, error)
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status Status) error
	List(ctx context.Context, f Filter) ([]Request, error)
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu       sync.RWMutex
	requests map[string]Request
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{requests: make(map[string]Request)}
}

func (s *MemoryStore) Upsert(_ context.Context, r Request) (Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.requests {
		if existing.UserID == r.UserID && existing.SubjectID == r.SubjectID {
			existing.Status = r.Status
			s.requests[id] = existing
			return existing, nil
		}
	}
	r.ID = uuid.NewString()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	s.requests[r.ID] = r
	return r, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	return r, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[id]; !ok {
		return ErrNotFound
	}
	delete(s.requests, id)
	return nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[id]
	if !ok {
		return ErrNotFound
	}
	r.Status = status
	s.requests[id] = r
	return nil
}

func (s *MemoryStore) List(_ context.Context, f Filter) ([]Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Request{}
	for _, r := range s.requests {
		if f.match(r) {
			out = append(out, r)
		}
	}
	sortRequests(out)
	return out, nil
}

func sortRequests(rs []Request) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].CreatedAt.Before(rs[j].CreatedAt)
		}
		return rs[i].ID < rs[j].ID
	})
}

// PostgresStore is a PostgreSQL-backed Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const requestColumns = `id::text, user_id, subject_id, status, created_at`

func scanRequest(row pgx.Row) (Request, error) {
	var r Request
	var status string
	if err := row.Scan(&r.ID, &r.UserID, &r.SubjectID, &status, &r.CreatedAt); err != nil {
		return Request{}, err
	}
	r.Status = Status(status)
	return r, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, r Request) (Request, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	out, err := scanRequest(s.pool.QueryRow(ctx,
		`INSERT INTO enrollment_requests (user_id, subject_id, status)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, subject_id) DO UPDATE SET status = EXCLUDED.status
		 RETURNING `+requestColumns,
		r.UserID, r.SubjectID, string(r.Status),
	))
	if err != nil {
		return Request{}, fmt.Errorf("upsert enrollment: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Request, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	r, err := scanRequest(s.pool.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM enrollment_requests WHERE id::text = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, ErrNotFound
	}
	if err != nil {
		return Request{}, fmt.Errorf("get enrollment: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx, `DELETE FROM enrollment_requests WHERE id::text = $1`, id)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status Status) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`UPDATE enrollment_requests SET status = $2 WHERE id::text = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]Request, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+requestColumns+` FROM enrollment_requests
		 WHERE ($1::text = '' OR user_id = $1)
		   AND ($2::text = '' OR subject_id = $2)
		   AND ($3::text = '' OR status = $3)
		 ORDER BY created_at, id`,
		f.UserID, f.SubjectID, string(f.Status),
	)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Request, error) { return scanRequest(row) })
	if err != nil {
		return nil, fmt.Errorf("scan enrollments: %w", err)
	}
	return out, nil
}
