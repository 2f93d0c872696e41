// Package audit records domain events: unit publishes, block toggles and
// enrollment decisions.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// Event types.
const (
	UnitPublished       = "unit_published"
	BlockToggled        = "block_toggled"
	EnrollmentRequested = "enrollment_requested"
	EnrollmentCancelled = "enrollment_cancelled"
	EnrollmentDecided   = "enrollment_decided"
	ProfileCreated      = "profile_created"
	ProfileUpdated      = "profile_updated"
)

// Event is one entry of the audit log.
type Event struct {
	UserID    string         `json:"user_id"`
	Type      string         `json:"event_type"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
}

// Logger records events.
type Logger interface {
	Log(ctx context.Context, event Event) error
}

// Nop ignores all events.
type Nop struct{}

func (Nop) Log(context.Context, Event) error {
	return nil
}

// Memory keeps events in memory.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func NewMemory() *Memory {
	return &Memory{events: []Event{}}
}

func (l *Memory) Log(_ context.Context, event Event) error {
	if event.Type == "" {
		return fmt.Errorf("event_type is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()

	return nil
}

// Events returns a copy of the recorded events.
func (l *Memory) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events...)
}

// Postgres inserts events into the events table.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (l *Postgres) Log(ctx context.Context, event Event) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("event logger pool is nil")
	}
	if event.Type == "" {
		return fmt.Errorf("event_type is required")
	}

	payload := event.Data
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := l.pool.Exec(ctx,
		`INSERT INTO events (user_id, event_type, data, created_at)
		 VALUES ($1, $2, $3::jsonb, $4)`,
		event.UserID,
		event.Type,
		string(data),
		createdAt,
	); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	slog.Debug("event logged", "type", event.Type, "user_id", event.UserID)
	return nil
}

// Record logs event and only warns on failure. Audit writes never fail the
// action that produced them.
func Record(ctx context.Context, l Logger, event Event) {
	if l == nil {
		return
	}
	if err := l.Log(ctx, event); err != nil {
		slog.Warn("audit event dropped", "type", event.Type, "user_id", event.UserID, "error", err)
	}
}
