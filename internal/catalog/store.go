package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/campus/internal/content"
	"github.com/p-n-ai/campus/internal/platform/database"
)

const dbTimeout = 5 * time.Second

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu       sync.RWMutex
	subjects map[string]Subject
	units    map[string]content.Row
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subjects: make(map[string]Subject),
		units:    make(map[string]content.Row),
	}
}

func (s *MemoryStore) Subjects(_ context.Context) ([]Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Subject, 0, len(s.subjects))
	for _, sub := range s.subjects {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) Subject(_ context.Context, id string) (Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subjects[id]
	if !ok {
		return Subject{}, fmt.Errorf("subject %s: %w", id, ErrNotFound)
	}
	return sub, nil
}

func (s *MemoryStore) UpsertSubject(_ context.Context, sub Subject) error {
	if sub.ID == "" {
		return fmt.Errorf("subject id is required")
	}
	sub.Courses = slices.Clone(sub.Courses)
	if sub.Courses == nil {
		sub.Courses = []string{}
	}
	s.mu.Lock()
	s.subjects[sub.ID] = sub
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) UnitRows(_ context.Context, subjectID string) ([]content.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []content.Row{}
	for _, r := range s.units {
		if subjectID == "" || r.SubjectID == subjectID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Number != out[j].Number {
			return out[i].Number < out[j].Number
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) UnitRow(_ context.Context, id string) (content.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.units[id]
	if !ok {
		return content.Row{}, fmt.Errorf("unit %s: %w", id, ErrNotFound)
	}
	return r, nil
}

func (s *MemoryStore) UpsertUnit(_ context.Context, row content.Row) error {
	if row.ID == "" {
		return fmt.Errorf("unit id is required")
	}
	row.ContentJSON = slices.Clone(row.ContentJSON)
	s.mu.Lock()
	s.units[row.ID] = row
	s.mu.Unlock()
	return nil
}

// PostgresStore is a PostgreSQL-backed Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const subjectColumns = `id, name, units_count, courses, COALESCE(orientation_notes, '')`

func scanSubject(row pgx.Row) (Subject, error) {
	var s Subject
	err := row.Scan(&s.ID, &s.Name, &s.UnitsCount, &s.Courses, &s.OrientationNotes)
	if s.Courses == nil {
		s.Courses = []string{}
	}
	return s, err
}

func (s *PostgresStore) Subjects(ctx context.Context) ([]Subject, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `SELECT `+subjectColumns+` FROM subjects ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Subject, error) { return scanSubject(row) })
	if err != nil {
		return nil, fmt.Errorf("scan subjects: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Subject(ctx context.Context, id string) (Subject, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	sub, err := scanSubject(s.pool.QueryRow(ctx, `SELECT `+subjectColumns+` FROM subjects WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Subject{}, fmt.Errorf("subject %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Subject{}, fmt.Errorf("get subject: %w", err)
	}
	return sub, nil
}

func (s *PostgresStore) UpsertSubject(ctx context.Context, sub Subject) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	courses := sub.Courses
	if courses == nil {
		courses = []string{}
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO subjects (id, name, units_count, courses, orientation_notes)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		 SET name = EXCLUDED.name, units_count = EXCLUDED.units_count,
		     courses = EXCLUDED.courses, orientation_notes = EXCLUDED.orientation_notes`,
		sub.ID, sub.Name, sub.UnitsCount, courses, database.NullIfEmpty(sub.OrientationNotes),
	); err != nil {
		return fmt.Errorf("upsert subject: %w", err)
	}
	return nil
}

const unitColumns = `id, subject_id, number, title, content_json`

func scanUnit(row pgx.Row) (content.Row, error) {
	var r content.Row
	err := row.Scan(&r.ID, &r.SubjectID, &r.Number, &r.Title, &r.ContentJSON)
	return r, err
}

func (s *PostgresStore) UnitRows(ctx context.Context, subjectID string) ([]content.Row, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+unitColumns+` FROM units WHERE ($1::text = '' OR subject_id = $1) ORDER BY number, id`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (content.Row, error) { return scanUnit(row) })
	if err != nil {
		return nil, fmt.Errorf("scan units: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UnitRow(ctx context.Context, id string) (content.Row, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	r, err := scanUnit(s.pool.QueryRow(ctx, `SELECT `+unitColumns+` FROM units WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return content.Row{}, fmt.Errorf("unit %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return content.Row{}, fmt.Errorf("get unit: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) UpsertUnit(ctx context.Context, row content.Row) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx,
		`INSERT INTO units (id, subject_id, number, title, content_json, updated_at)
		 VALUES ($1, $2, $3, $4, $5::jsonb, NOW())
		 ON CONFLICT (id) DO UPDATE
		 SET subject_id = EXCLUDED.subject_id, number = EXCLUDED.number, title = EXCLUDED.title,
		     content_json = EXCLUDED.content_json, updated_at = NOW()`,
		row.ID, row.SubjectID, row.Number, row.Title, database.NullIfEmpty(string(row.ContentJSON)),
	); err != nil {
		return fmt.Errorf("upsert unit: %w", err)
	}
	return nil
}
