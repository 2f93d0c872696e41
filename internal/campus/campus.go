// Package campus is the application shell: it bootstraps the caller's
// session, aggregates dashboard data and orchestrates mutations across the
// domain packages.
package campus

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/p-n-ai/campus/internal/audit"
	"github.com/p-n-ai/campus/internal/catalog"
	"github.com/p-n-ai/campus/internal/editor"
	"github.com/p-n-ai/campus/internal/enrollment"
	"github.com/p-n-ai/campus/internal/platform/apperr"
	"github.com/p-n-ai/campus/internal/platform/config"
	"github.com/p-n-ai/campus/internal/platform/deadline"
	"github.com/p-n-ai/campus/internal/profile"
	"github.com/p-n-ai/campus/internal/progress"
)

// ErrIdentityRequired is returned when a request carries no user id.
var ErrIdentityRequired = errors.New("user identity is required")

// ErrTeacherOnly is returned when a student calls a teacher operation.
var ErrTeacherOnly = errors.New("teacher role required")

// Deps are the stores the shell works against.
type Deps struct {
	Catalog     *catalog.Catalog
	Progress    progress.Store
	Enrollments enrollment.Store
	Profiles    profile.Store
	Events      audit.Logger
}

// Options tune the shell.
type Options struct {
	Timeouts   config.TimeoutConfig
	TeacherIDs []string
}

// App wires the domain packages together.
type App struct {
	catalog     *catalog.Catalog
	progress    progress.Store
	tracker     *progress.Tracker
	enrollments enrollment.Store
	profiles    profile.Store
	accounts    *profile.Service
	editor      *editor.Editor
	events      audit.Logger

	teachers  map[string]bool
	request   time.Duration
	bootstrap time.Duration
}

func New(d Deps, opts Options) *App {
	events := d.Events
	if events == nil {
		events = audit.Nop{}
	}
	request, bootstrap := opts.Timeouts.Request, opts.Timeouts.Bootstrap
	if request <= 0 {
		request = 10 * time.Second
	}
	if bootstrap <= 0 {
		bootstrap = 12 * time.Second
	}
	teachers := make(map[string]bool, len(opts.TeacherIDs))
	for _, id := range opts.TeacherIDs {
		teachers[id] = true
	}

	return &App{
		catalog:     d.Catalog,
		progress:    d.Progress,
		tracker:     progress.NewTracker(d.Progress, events),
		enrollments: d.Enrollments,
		profiles:    d.Profiles,
		accounts:    profile.NewService(d.Profiles, events),
		editor:      editor.New(d.Catalog, events),
		events:      events,
		teachers:    teachers,
		request:     request,
		bootstrap:   bootstrap,
	}
}

// Catalog exposes the unit catalog for read-only callers.
func (a *App) Catalog() *catalog.Catalog {
	return a.catalog
}

// Session is the bootstrapped identity of a caller.
type Session struct {
	Profile  profile.Profile `json:"profile"`
	Complete bool            `json:"complete"`
	Missing  []string        `json:"missing,omitempty"`
}

// Teacher reports whether the session holds the teacher role.
func (s Session) Teacher() bool {
	return s.Profile.Role == profile.RoleTeacher
}

// Gate blocks students with incomplete profiles.
func (s Session) Gate() error {
	if err := profile.Gate(s.Profile); err != nil {
		return apperr.New(apperr.KindForbidden, "opening campus", err)
	}
	return nil
}

// Bootstrap loads or provisions userID's profile under the bootstrap
// deadline. Failures are surfaced to the caller, never degraded.
func (a *App) Bootstrap(ctx context.Context, userID string) (Session, error) {
	if userID == "" {
		return Session{}, apperr.New(apperr.KindForbidden, "bootstrapping session", ErrIdentityRequired)
	}

	p, err := deadline.Call(ctx, a.bootstrap, func(ctx context.Context) (profile.Profile, error) {
		p, err := a.accounts.FirstLogin(ctx, userID)
		if err != nil {
			return p, err
		}
		if a.teachers[userID] {
			return a.accounts.Promote(ctx, p)
		}
		return p, nil
	})
	if err != nil {
		if errors.Is(err, deadline.ErrTimeout) {
			return Session{}, apperr.New(apperr.KindNetwork, "bootstrapping session", err)
		}
		return Session{}, err
	}

	missing := profile.Missing(p)
	return Session{Profile: p, Complete: len(missing) == 0, Missing: missing}, nil
}

// Authorize bootstraps userID and applies the completeness gate.
func (a *App) Authorize(ctx context.Context, userID string) (Session, error) {
	s, err := a.Bootstrap(ctx, userID)
	if err != nil {
		return s, err
	}
	return s, s.Gate()
}

// AuthorizeTeacher is Authorize restricted to teachers.
func (a *App) AuthorizeTeacher(ctx context.Context, userID string) (Session, error) {
	s, err := a.Authorize(ctx, userID)
	if err != nil {
		return s, err
	}
	if !s.Teacher() {
		return s, apperr.New(apperr.KindForbidden, "authorizing", ErrTeacherOnly)
	}
	return s, nil
}

// CanView reports whether the session may read subjectID's units. Teachers
// see everything; students need an approved enrollment.
func (a *App) CanView(ctx context.Context, s Session, subjectID string) (bool, error) {
	if s.Teacher() {
		return true, nil
	}
	rows, err := deadline.Call(ctx, a.request, func(ctx context.Context) ([]enrollment.Request, error) {
		return a.enrollments.List(ctx, enrollment.Filter{UserID: s.Profile.ID, SubjectID: subjectID})
	})
	if err != nil {
		return false, apperr.New(apperr.KindNetwork, "checking enrollment", err)
	}
	return enrollment.StatusOf(rows, s.Profile.ID, subjectID) == enrollment.StatusApproved, nil
}

// students lists the student profiles of ids, keeping unknown ids as bare
// profiles.
func students(all []profile.Profile, ids []string) []profile.Profile {
	out := make([]profile.Profile, 0, len(ids))
	for _, id := range ids {
		i := slices.IndexFunc(all, func(p profile.Profile) bool { return p.ID == id })
		if i < 0 {
			out = append(out, profile.Profile{ID: id, Role: profile.RoleStudent})
			continue
		}
		out = append(out, all[i])
	}
	return out
}
