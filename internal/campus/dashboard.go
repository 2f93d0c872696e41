package campus

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/p-n-ai/campus/internal/catalog"
	"github.com/p-n-ai/campus/internal/content"
	"github.com/p-n-ai/campus/internal/enrollment"
	"github.com/p-n-ai/campus/internal/platform/deadline"
	"github.com/p-n-ai/campus/internal/profile"
	"github.com/p-n-ai/campus/internal/progress"
)

// UnitCard summarizes one unit on the dashboard.
type UnitCard struct {
	ID        string `json:"id"`
	Number    int    `json:"number"`
	Title     string `json:"title"`
	Available bool   `json:"available"`
	Percent   int    `json:"percent"`
}

// SubjectCard is a subject with the caller's standing in it.
type SubjectCard struct {
	catalog.Subject
	Enrollment enrollment.Status `json:"enrollment"`
	RequestID  string            `json:"request_id,omitempty"`
	Percent    int               `json:"percent"`
	Units      []UnitCard        `json:"units"`
}

// Dashboard is the landing page of a session. Students get their subjects
// and own requests; teachers also get the pending queue and the students.
type Dashboard struct {
	Session  Session              `json:"session"`
	Subjects []SubjectCard        `json:"subjects"`
	Requests []enrollment.Request `json:"requests"`
	Students []profile.Profile    `json:"students,omitempty"`
}

// Dashboard bootstraps userID and fans out the independent fetches in
// parallel. A failed or slow fetch degrades its slice to empty without
// failing the others.
func (a *App) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	s, err := a.Authorize(ctx, userID)
	if err != nil {
		return Dashboard{Session: s}, err
	}

	var (
		subjects []catalog.Subject
		units    []content.Unit
		requests []enrollment.Request
		records  []progress.Record
		people   []profile.Profile
	)

	filter := enrollment.Filter{UserID: userID}
	if s.Teacher() {
		filter = enrollment.Filter{Status: enrollment.StatusPending}
	}

	// Fetches never fail the group: deadline.Soft degrades each one to its
	// empty default.
	var g errgroup.Group
	g.Go(func() error {
		subjects = deadline.Soft(ctx, a.request, "subjects", []catalog.Subject{}, a.catalog.Subjects)
		return nil
	})
	g.Go(func() error {
		units = deadline.Soft(ctx, a.request, "units", []content.Unit{}, func(ctx context.Context) ([]content.Unit, error) {
			return a.catalog.Units(ctx, "")
		})
		return nil
	})
	g.Go(func() error {
		requests = deadline.Soft(ctx, a.request, "enrollments", []enrollment.Request{}, func(ctx context.Context) ([]enrollment.Request, error) {
			return a.enrollments.List(ctx, filter)
		})
		return nil
	})
	g.Go(func() error {
		records = deadline.Soft(ctx, a.request, "progress", []progress.Record{}, func(ctx context.Context) ([]progress.Record, error) {
			return a.progress.ListByUser(ctx, userID)
		})
		return nil
	})
	if s.Teacher() {
		g.Go(func() error {
			people = deadline.Soft(ctx, a.request, "profiles", []profile.Profile{}, func(ctx context.Context) ([]profile.Profile, error) {
				return a.profiles.List(ctx, profile.RoleStudent)
			})
			return nil
		})
	}
	_ = g.Wait()

	return Dashboard{
		Session:  s,
		Subjects: cards(s, subjects, units, requests, records),
		Requests: requests,
		Students: people,
	}, nil
}

func cards(s Session, subjects []catalog.Subject, units []content.Unit, requests []enrollment.Request, records []progress.Record) []SubjectCard {
	bySubject := make(map[string][]content.Unit)
	for _, u := range units {
		bySubject[u.SubjectID] = append(bySubject[u.SubjectID], u)
	}
	done := make(map[string]int)
	for _, r := range records {
		if r.Done() {
			done[r.SubjectID]++
		}
	}

	out := make([]SubjectCard, 0, len(subjects))
	for _, sub := range subjects {
		card := SubjectCard{Subject: sub, Enrollment: enrollment.StatusNone, Units: []UnitCard{}}
		for _, r := range requests {
			if r.UserID == s.Profile.ID && r.SubjectID == sub.ID {
				card.Enrollment = r.Status
				card.RequestID = r.ID
			}
		}

		count := len(bySubject[sub.ID])
		if count == 0 {
			count = sub.UnitsCount
		}
		card.Percent = progress.SubjectPercent(done[sub.ID], count)

		if s.Teacher() || card.Enrollment == enrollment.StatusApproved {
			for _, u := range bySubject[sub.ID] {
				card.Units = append(card.Units, UnitCard{
					ID:        u.ID,
					Number:    u.Number,
					Title:     u.Title,
					Available: u.Available,
					Percent:   progress.UnitPercent(u, records),
				})
			}
		}
		out = append(out, card)
	}
	return out
}
