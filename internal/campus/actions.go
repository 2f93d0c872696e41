package campus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/p-n-ai/campus/internal/catalog"
	"github.com/p-n-ai/campus/internal/content"
	"github.com/p-n-ai/campus/internal/editor"
	"github.com/p-n-ai/campus/internal/enrollment"
	"github.com/p-n-ai/campus/internal/platform/apperr"
	"github.com/p-n-ai/campus/internal/platform/deadline"
	"github.com/p-n-ai/campus/internal/profile"
	"github.com/p-n-ai/campus/internal/progress"
	"github.com/p-n-ai/campus/internal/report"
)

// UnitView is a unit with the caller's progress through it.
type UnitView struct {
	Unit    content.Unit    `json:"unit"`
	Visited map[string]bool `json:"visited"`
	Percent int             `json:"percent"`
}

// Unit loads unitID for s. Students need an approved enrollment in the
// unit's subject. Progress is fetched fail-soft.
func (a *App) Unit(ctx context.Context, s Session, unitID string) (UnitView, error) {
	u, err := a.lookupUnit(ctx, unitID)
	if err != nil {
		return UnitView{}, err
	}
	ok, err := a.CanView(ctx, s, u.SubjectID)
	if err != nil {
		return UnitView{}, err
	}
	if !ok {
		return UnitView{}, apperr.New(apperr.KindForbidden, "opening unit",
			fmt.Errorf("no approved enrollment in %s", u.SubjectID))
	}

	records := deadline.Soft(ctx, a.request, "progress", []progress.Record{}, func(ctx context.Context) ([]progress.Record, error) {
		return a.progress.ListByUser(ctx, s.Profile.ID)
	})
	var scoped []progress.Record
	for _, r := range records {
		if r.UnitID == u.ID {
			scoped = append(scoped, r)
		}
	}
	return UnitView{Unit: u, Visited: progress.Visited(scoped), Percent: progress.UnitPercent(u, scoped)}, nil
}

func (a *App) lookupUnit(ctx context.Context, unitID string) (content.Unit, error) {
	u, err := deadline.Call(ctx, a.request, func(ctx context.Context) (content.Unit, error) {
		return a.catalog.Unit(ctx, unitID)
	})
	if errors.Is(err, catalog.ErrNotFound) {
		return content.Unit{}, apperr.New(apperr.KindNotFound, "loading unit", err)
	}
	if err != nil {
		return content.Unit{}, apperr.New(apperr.KindNetwork, "loading unit", err)
	}
	return u, nil
}

// ToggleBlock flips the visited flag of blockID in unitID for s.
func (a *App) ToggleBlock(ctx context.Context, s Session, unitID, blockID string) (progress.Record, error) {
	view, err := a.Unit(ctx, s, unitID)
	if err != nil {
		return progress.Record{}, err
	}
	if _, ok := view.Unit.Block(blockID); !ok {
		return progress.Record{}, apperr.New(apperr.KindNotFound, "toggling block",
			fmt.Errorf("block %q not in unit %s", blockID, unitID))
	}

	r, err := a.tracker.Toggle(ctx, progress.Target{
		UserID:    s.Profile.ID,
		SubjectID: view.Unit.SubjectID,
		UnitID:    view.Unit.ID,
		BlockID:   blockID,
	})
	if errors.Is(err, progress.ErrUntrackable) {
		return progress.Record{}, apperr.New(apperr.KindValidation, "toggling block", err)
	}
	if err != nil {
		return progress.Record{}, apperr.New(apperr.KindMutation, "toggling block", err)
	}
	return r, nil
}

// RequestEnrollment asks for s's access to subjectID and returns the
// caller's reconciled requests.
func (a *App) RequestEnrollment(ctx context.Context, s Session, subjectID string) ([]enrollment.Request, error) {
	if _, err := a.catalog.Subject(ctx, subjectID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "requesting enrollment", err)
		}
		return nil, apperr.New(apperr.KindNetwork, "requesting enrollment", err)
	}

	roster, err := a.roster(ctx, enrollment.Filter{UserID: s.Profile.ID})
	if err != nil {
		return nil, err
	}
	if _, err := roster.Request(ctx, s.Profile.ID, subjectID); err != nil {
		return roster.Rows(), err
	}
	return roster.Rows(), nil
}

// CancelEnrollment withdraws one of s's pending requests.
func (a *App) CancelEnrollment(ctx context.Context, s Session, requestID string) ([]enrollment.Request, error) {
	roster, err := a.roster(ctx, enrollment.Filter{UserID: s.Profile.ID})
	if err != nil {
		return nil, err
	}
	if err := roster.Cancel(ctx, requestID); err != nil {
		return roster.Rows(), err
	}
	return roster.Rows(), nil
}

// DecideEnrollment approves or denies a pending request and returns the
// remaining queue. Teachers only.
func (a *App) DecideEnrollment(ctx context.Context, s Session, requestID string, approve bool) ([]enrollment.Request, error) {
	if !s.Teacher() {
		return nil, apperr.New(apperr.KindForbidden, "deciding enrollment", ErrTeacherOnly)
	}
	roster, err := a.roster(ctx, enrollment.Filter{Status: enrollment.StatusPending})
	if err != nil {
		return nil, err
	}
	if err := roster.Decide(ctx, s.Profile.ID, requestID, approve); err != nil {
		return roster.Rows(), err
	}
	return roster.Rows(), nil
}

func (a *App) roster(ctx context.Context, f enrollment.Filter) (*enrollment.Roster, error) {
	r := enrollment.NewRoster(a.enrollments, a.events)
	if err := r.Load(ctx, f); err != nil {
		return nil, err
	}
	return r, nil
}

// SaveProfile writes the caller's profile and returns the refetched one.
func (a *App) SaveProfile(ctx context.Context, userID string, p profile.Profile) (Session, error) {
	if _, err := a.Bootstrap(ctx, userID); err != nil {
		return Session{}, err
	}
	p.ID = userID
	stored, err := a.accounts.Update(ctx, p)
	if err != nil {
		return Session{}, err
	}
	missing := profile.Missing(stored)
	return Session{Profile: stored, Complete: len(missing) == 0, Missing: missing}, nil
}

// Draft returns the editor form for an existing unit.
func (a *App) Draft(ctx context.Context, s Session, unitID string) (editor.Form, error) {
	if !s.Teacher() {
		return editor.Form{}, apperr.New(apperr.KindForbidden, "editing unit", ErrTeacherOnly)
	}
	u, err := a.lookupUnit(ctx, unitID)
	if err != nil {
		return editor.Form{}, err
	}
	return editor.Draft(u), nil
}

// PublishUnit replaces unitID with the edited form, or creates a new unit
// when unitID is empty. Teachers only.
func (a *App) PublishUnit(ctx context.Context, s Session, unitID string, f editor.Form) (editor.Result, error) {
	if !s.Teacher() {
		return editor.Result{}, apperr.New(apperr.KindForbidden, "publishing unit", ErrTeacherOnly)
	}
	var original *content.Unit
	if unitID != "" {
		u, err := a.lookupUnit(ctx, unitID)
		if err != nil {
			return editor.Result{}, err
		}
		original = &u
	}
	res, err := a.editor.Submit(ctx, s.Profile.ID, f, original)
	if err != nil {
		return res, err
	}

	stored, err := a.lookupUnit(ctx, res.Unit.ID)
	if err != nil {
		slog.WarnContext(ctx, "refetching published unit failed", "unit_id", res.Unit.ID, "error", err)
		return res, nil
	}
	res.Unit = stored
	return res, nil
}

// Report writes the XLSX progress report of subjectID for its approved
// students. Teachers only.
func (a *App) Report(ctx context.Context, s Session, subjectID string, w io.Writer) error {
	if !s.Teacher() {
		return apperr.New(apperr.KindForbidden, "exporting report", ErrTeacherOnly)
	}
	sub, err := a.catalog.Subject(ctx, subjectID)
	if errors.Is(err, catalog.ErrNotFound) {
		return apperr.New(apperr.KindNotFound, "exporting report", err)
	}
	if err != nil {
		return apperr.New(apperr.KindNetwork, "exporting report", err)
	}

	units, err := a.catalog.Units(ctx, subjectID)
	if err != nil {
		return apperr.New(apperr.KindNetwork, "exporting report", err)
	}
	approved, err := a.enrollments.List(ctx, enrollment.Filter{SubjectID: subjectID, Status: enrollment.StatusApproved})
	if err != nil {
		return apperr.New(apperr.KindNetwork, "exporting report", err)
	}
	records, err := a.progress.ListBySubject(ctx, subjectID)
	if err != nil {
		return apperr.New(apperr.KindNetwork, "exporting report", err)
	}
	all := deadline.Soft(ctx, a.request, "profiles", []profile.Profile{}, func(ctx context.Context) ([]profile.Profile, error) {
		return a.profiles.List(ctx, profile.RoleStudent)
	})

	ids := make([]string, 0, len(approved))
	for _, r := range approved {
		ids = append(ids, r.UserID)
	}
	return report.Write(w, report.Input{
		Subject:  sub,
		Units:    units,
		Students: students(all, ids),
		Records:  records,
	})
}
