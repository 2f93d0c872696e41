package enrollment

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/p-n-ai/campus/internal/audit"
	"github.com/p-n-ai/campus/internal/platform/apperr"
)

// Roster is a local view of enrollment requests. Mutations are applied to
// the view first, then written; a failed write rolls the view back. Store
// calls are made without holding the view's lock, so Rows observes the
// optimistic state while a write is in flight.
type Roster struct {
	store  Store
	events audit.Logger
	now    func() time.Time

	mu     sync.Mutex
	filter Filter
	rows   []Request
}

func NewRoster(store Store, events audit.Logger) *Roster {
	return &Roster{store: store, events: events, now: time.Now, rows: []Request{}}
}

// Load replaces the view with the stored requests matching f.
func (r *Roster) Load(ctx context.Context, f Filter) error {
	rows, err := r.store.List(ctx, f)
	if err != nil {
		return apperr.New(apperr.KindNetwork, "loading enrollments", err)
	}
	r.mu.Lock()
	r.filter = f
	r.rows = rows
	r.mu.Unlock()
	return nil
}

// Rows returns a copy of the current view.
func (r *Roster) Rows() []Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.rows)
}

// Request asks for userID's access to subjectID.
func (r *Roster) Request(ctx context.Context, userID, subjectID string) (Request, error) {
	// The view may not cover this pair; the store is authoritative.
	existing, err := r.store.List(ctx, Filter{UserID: userID, SubjectID: subjectID})
	if err != nil {
		return Request{}, apperr.New(apperr.KindNetwork, "requesting enrollment", err)
	}
	if _, err := Next(StatusOf(existing, userID, subjectID), ActionRequest); err != nil {
		return Request{}, err
	}

	r.mu.Lock()
	cur := StatusOf(r.rows, userID, subjectID)
	to, err := Next(cur, ActionRequest)
	if err != nil {
		r.mu.Unlock()
		return Request{}, err
	}
	pending := Request{UserID: userID, SubjectID: subjectID, Status: to, CreatedAt: r.now().UTC()}
	r.rows = append(r.rows, pending)
	r.mu.Unlock()

	stored, err := r.store.Upsert(ctx, pending)
	if err != nil {
		r.rollback(func(rows []Request) []Request {
			return slices.DeleteFunc(rows, func(x Request) bool {
				return x.ID == "" && x.UserID == userID && x.SubjectID == subjectID
			})
		})
		return Request{}, apperr.New(apperr.KindMutation, "requesting enrollment", err)
	}

	audit.Record(ctx, r.events, audit.Event{
		UserID: userID,
		Type:   audit.EnrollmentRequested,
		Data:   map[string]any{"subject_id": subjectID, "request_id": stored.ID},
	})
	r.refresh(ctx)
	return stored, nil
}

// Cancel withdraws a pending request.
func (r *Roster) Cancel(ctx context.Context, id string) error {
	prev, idx, err := r.apply(id, ActionCancel, func(rows []Request, i int, _ Status) []Request {
		return slices.Delete(rows, i, i+1)
	})
	if err != nil {
		return err
	}

	if err := r.store.Delete(ctx, id); err != nil {
		r.rollback(func(rows []Request) []Request {
			return slices.Insert(rows, min(idx, len(rows)), prev)
		})
		return apperr.New(apperr.KindMutation, "cancelling enrollment", err)
	}

	audit.Record(ctx, r.events, audit.Event{
		UserID: prev.UserID,
		Type:   audit.EnrollmentCancelled,
		Data:   map[string]any{"subject_id": prev.SubjectID, "request_id": id},
	})
	r.refresh(ctx)
	return nil
}

// Decide approves or denies a pending request on behalf of deciderID.
func (r *Roster) Decide(ctx context.Context, deciderID, id string, approve bool) error {
	action := ActionDeny
	if approve {
		action = ActionApprove
	}
	var to Status
	prev, _, err := r.apply(id, action, func(rows []Request, i int, next Status) []Request {
		to = next
		rows[i].Status = next
		return rows
	})
	if err != nil {
		return err
	}

	if err := r.store.UpdateStatus(ctx, id, to); err != nil {
		r.rollback(func(rows []Request) []Request {
			for i := range rows {
				if rows[i].ID == id {
					rows[i].Status = prev.Status
				}
			}
			return rows
		})
		return apperr.New(apperr.KindMutation, "deciding enrollment", err)
	}

	audit.Record(ctx, r.events, audit.Event{
		UserID: deciderID,
		Type:   audit.EnrollmentDecided,
		Data:   map[string]any{"request_id": id, "student_id": prev.UserID, "subject_id": prev.SubjectID, "status": string(to)},
	})
	r.refresh(ctx)
	return nil
}

// apply validates action against the row with id and mutates the view.
func (r *Roster) apply(id string, action Action, mutate func(rows []Request, i int, next Status) []Request) (Request, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := slices.IndexFunc(r.rows, func(x Request) bool { return x.ID == id })
	if i < 0 {
		return Request{}, -1, apperr.New(apperr.KindNotFound, string(action)+" enrollment", fmt.Errorf("%w: %s", ErrNotFound, id))
	}
	prev := r.rows[i]
	next, err := Next(prev.Status, action)
	if err != nil {
		return Request{}, -1, err
	}
	r.rows = mutate(r.rows, i, next)
	return prev, i, nil
}

func (r *Roster) rollback(undo func([]Request) []Request) {
	r.mu.Lock()
	r.rows = undo(r.rows)
	r.mu.Unlock()
}

// refresh reconciles the view with the store. A failed refetch keeps the
// optimistic view.
func (r *Roster) refresh(ctx context.Context) {
	r.mu.Lock()
	f := r.filter
	r.mu.Unlock()

	rows, err := r.store.List(ctx, f)
	if err != nil {
		slog.Warn("enrollment refetch failed", "error", err)
		return
	}
	r.mu.Lock()
	r.rows = rows
	r.mu.Unlock()
}
