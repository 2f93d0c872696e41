package progress

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

// ErrNotFound is returned when no record exists for a block.
var ErrNotFound = errors.New("progress record not found")

// Store persists progress records.
type Store interface {
	Find(ctx context.Context, userID, unitID, blockID string) (Record, error)
	Insert(ctx context.Context, r Record) (Record, error)
	Update(ctx context.Context, r Record) error
	ListByUser(ctx context.Context, userID string) ([]Record, error)
	ListBySubject(ctx context.Context, subjectID string) ([]Record, error)
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Find(_ context.Context, userID, unitID, blockID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records {
		if r.UserID == userID && r.UnitID == unitID && r.BlockID == blockID {
			return r, nil
		}
	}
	return Record{}, ErrNotFound
}

func (s *MemoryStore) Insert(_ context.Context, r Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.records {
		if existing.UserID == r.UserID && existing.UnitID == r.UnitID && existing.BlockID == r.BlockID {
			return Record{}, fmt.Errorf("progress record for %s/%s/%s already exists", r.UserID, r.UnitID, r.BlockID)
		}
	}
	r.ID = uuid.NewString()
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now()
	}
	s.records[r.ID] = r
	return r, nil
}

func (s *MemoryStore) Update(_ context.Context, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[r.ID]; !ok {
		return ErrNotFound
	}
	s.records[r.ID] = r
	return nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string) ([]Record, error) {
	return s.list(func(r Record) bool { return r.UserID == userID }), nil
}

func (s *MemoryStore) ListBySubject(_ context.Context, subjectID string) ([]Record, error) {
	return s.list(func(r Record) bool { return r.SubjectID == subjectID }), nil
}

func (s *MemoryStore) list(keep func(Record) bool) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Record{}
	for _, r := range s.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.Before(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// PostgresStore is a PostgreSQL-backed Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const recordColumns = `id::text, user_id, subject_id, unit_id, block_id, visited, status, updated_at`

func scanRecord(row pgx.Row) (Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.UserID, &r.SubjectID, &r.UnitID, &r.BlockID, &r.Visited, &r.Status, &r.UpdatedAt)
	return r, err
}

func (s *PostgresStore) Find(ctx context.Context, userID, unitID, blockID string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	r, err := scanRecord(s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM progress WHERE user_id = $1 AND unit_id = $2 AND block_id = $3`,
		userID, unitID, blockID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("find progress: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) Insert(ctx context.Context, r Record) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	updatedAt := r.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	out, err := scanRecord(s.pool.QueryRow(ctx,
		`INSERT INTO progress (user_id, subject_id, unit_id, block_id, visited, status, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+recordColumns,
		r.UserID, r.SubjectID, r.UnitID, r.BlockID, r.Visited, r.Status, updatedAt,
	))
	if err != nil {
		return Record{}, fmt.Errorf("insert progress: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, r Record) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`UPDATE progress SET visited = $2, status = $3, updated_at = $4 WHERE id = $1::uuid`,
		r.ID, r.Visited, r.Status, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	return s.query(ctx, `SELECT `+recordColumns+` FROM progress WHERE user_id = $1 ORDER BY updated_at, id`, userID)
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subjectID string) ([]Record, error) {
	return s.query(ctx, `SELECT `+recordColumns+` FROM progress WHERE subject_id = $1 ORDER BY updated_at, id`, subjectID)
}

func (s *PostgresStore) query(ctx context.Context, sql string, args ...any) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) { return scanRecord(row) })
	if err != nil {
		return nil, fmt.Errorf("scan progress: %w", err)
	}
	return out, nil
}
