package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/p-n-ai/campus/internal/audit"
)

// ErrUntrackable is returned when toggling a block that has no id.
var ErrUntrackable = errors.New("block has no id and cannot be tracked")

// Target names the block being toggled.
type Target struct {
	UserID    string
	SubjectID string
	UnitID    string
	BlockID   string
}

// Tracker flips visited flags. Records are updated in place or inserted,
// never deleted.
type Tracker struct {
	store  Store
	events audit.Logger
	now    func() time.Time
}

func NewTracker(store Store, events audit.Logger) *Tracker {
	return &Tracker{store: store, events: events, now: time.Now}
}

// Toggle flips the visited state of the target block and returns the stored
// record.
func (t *Tracker) Toggle(ctx context.Context, target Target) (Record, error) {
	if target.BlockID == "" {
		return Record{}, ErrUntrackable
	}

	now := t.now().UTC()
	r, err := t.store.Find(ctx, target.UserID, target.UnitID, target.BlockID)
	switch {
	case err == nil:
		r.Visited = !r.Done()
		r.Status = statusFor(r.Visited)
		r.UpdatedAt = now
		if err := t.store.Update(ctx, r); err != nil {
			return Record{}, fmt.Errorf("toggling block %s: %w", target.BlockID, err)
		}
	case errors.Is(err, ErrNotFound):
		r, err = t.store.Insert(ctx, Record{
			UserID:    target.UserID,
			SubjectID: target.SubjectID,
			UnitID:    target.UnitID,
			BlockID:   target.BlockID,
			Visited:   true,
			Status:    StatusVisited,
			UpdatedAt: now,
		})
		if err != nil {
			return Record{}, fmt.Errorf("toggling block %s: %w", target.BlockID, err)
		}
	default:
		return Record{}, fmt.Errorf("toggling block %s: %w", target.BlockID, err)
	}

	audit.Record(ctx, t.events, audit.Event{
		UserID: target.UserID,
		Type:   audit.BlockToggled,
		Data: map[string]any{
			"unit_id":  target.UnitID,
			"block_id": target.BlockID,
			"visited":  r.Visited,
		},
	})
	return r, nil
}

// ForUser lists the learner's records.
func (t *Tracker) ForUser(ctx context.Context, userID string) ([]Record, error) {
	return t.store.ListByUser(ctx, userID)
}

func statusFor(visited bool) string {
	if visited {
		return StatusVisited
	}
	return ""
}
