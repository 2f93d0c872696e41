package profile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// ErrNotFound is returned when a profile does not exist.
var ErrNotFound = errors.New("profile not found")

// Store persists profiles.
type Store interface {
	Get(ctx context.Context, id string) (Profile, error)
	// EnsureOnFirstLogin creates a blank student profile for id unless one
	// exists, and returns the stored profile.
	EnsureOnFirstLogin(ctx context.Context, id string) (Profile, bool, error)
	Update(ctx context.Context, p Profile) error
	SetRole(ctx context.Context, id string, role Role) error
	List(ctx context.Context, role Role) ([]Profile, error)
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]Profile)}
}

func (s *MemoryStore) Get(_ context.Context, id string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) EnsureOnFirstLogin(_ context.Context, id string) (Profile, bool, error) {
	if id == "" {
		return Profile{}, false, fmt.Errorf("profile id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.profiles[id]; ok {
		return p, false, nil
	}
	p := Profile{ID: id, Role: RoleStudent}
	s.profiles[id] = p
	return p, true, nil
}

func (s *MemoryStore) Update(_ context.Context, p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[p.ID]; !ok {
		return ErrNotFound
	}
	s.profiles[p.ID] = p
	return nil
}

func (s *MemoryStore) SetRole(_ context.Context, id string, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok {
		return ErrNotFound
	}
	p.Role = role
	s.profiles[id] = p
	return nil
}

func (s *MemoryStore) List(_ context.Context, role Role) ([]Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Profile{}
	for _, p := range s.profiles {
		if role == "" || p.Role == role {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PostgresStore is a PostgreSQL-backed Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const profileColumns = `id, role, full_name, first_name, last_name, dni, birth_date, address, city, phone, course_id`

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	var role string
	err := row.Scan(&p.ID, &role, &p.FullName, &p.FirstName, &p.LastName, &p.DNI,
		&p.BirthDate, &p.Address, &p.City, &p.Phone, &p.CourseID)
	p.Role = Role(role)
	return p, err
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	p, err := scanProfile(s.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) EnsureOnFirstLogin(ctx context.Context, id string) (Profile, bool, error) {
	if id == "" {
		return Profile{}, false, fmt.Errorf("profile id is required")
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`INSERT INTO profiles (id, role) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		id, string(RoleStudent),
	)
	if err != nil {
		return Profile{}, false, fmt.Errorf("ensure profile: %w", err)
	}
	p, err := scanProfile(s.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	if err != nil {
		return Profile{}, false, fmt.Errorf("ensure profile: %w", err)
	}
	return p, cmd.RowsAffected() == 1, nil
}

func (s *PostgresStore) Update(ctx context.Context, p Profile) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`UPDATE profiles SET full_name = $2, first_name = $3, last_name = $4, dni = $5, birth_date = $6,
		        address = $7, city = $8, phone = $9, course_id = $10
		 WHERE id = $1`,
		p.ID, p.FullName, p.FirstName, p.LastName, p.DNI, p.BirthDate, p.Address, p.City, p.Phone, p.CourseID,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetRole(ctx context.Context, id string, role Role) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx, `UPDATE profiles SET role = $2 WHERE id = $1`, id, string(role))
	if err != nil {
		return fmt.Errorf("set profile role: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, role Role) ([]Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE ($1::text = '' OR role = $1) ORDER BY id`, string(role))
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Profile, error) { return scanProfile(row) })
	if err != nil {
		return nil, fmt.Errorf("scan profiles: %w", err)
	}
	return out, nil
}
