package profile

import (
	"context"
	"errors"

	"github.com/p-n-ai/campus/internal/audit"
	"github.com/p-n-ai/campus/internal/platform/apperr"
)

// Service applies profile writes: first-login provisioning and
// write-then-refetch updates.
type Service struct {
	store  Store
	events audit.Logger
}

func NewService(store Store, events audit.Logger) *Service {
	return &Service{store: store, events: events}
}

// FirstLogin returns id's profile, creating a blank student profile the
// first time the user is seen.
func (s *Service) FirstLogin(ctx context.Context, id string) (Profile, error) {
	p, created, err := s.store.EnsureOnFirstLogin(ctx, id)
	if err != nil {
		return Profile{}, apperr.New(apperr.KindNetwork, "loading profile", err)
	}
	if created {
		audit.Record(ctx, s.events, audit.Event{UserID: id, Type: audit.ProfileCreated})
	}
	return p, nil
}

// Promote grants id the teacher role. It is a no-op for existing teachers.
func (s *Service) Promote(ctx context.Context, p Profile) (Profile, error) {
	if p.Role == RoleTeacher {
		return p, nil
	}
	if err := s.store.SetRole(ctx, p.ID, RoleTeacher); err != nil {
		return p, apperr.New(apperr.KindMutation, "promoting profile", err)
	}
	p.Role = RoleTeacher
	return p, nil
}

// Update saves the editable fields of p and returns the stored profile.
// The stored role is kept; users cannot change their own role.
func (s *Service) Update(ctx context.Context, p Profile) (Profile, error) {
	current, err := s.store.Get(ctx, p.ID)
	if errors.Is(err, ErrNotFound) {
		return Profile{}, apperr.New(apperr.KindNotFound, "updating profile", err)
	}
	if err != nil {
		return Profile{}, apperr.New(apperr.KindNetwork, "updating profile", err)
	}
	p.Role = current.Role

	if err := Check(p); err != nil {
		return Profile{}, err
	}
	if err := s.store.Update(ctx, p); err != nil {
		return Profile{}, apperr.New(apperr.KindMutation, "updating profile", err)
	}

	audit.Record(ctx, s.events, audit.Event{UserID: p.ID, Type: audit.ProfileUpdated})
	stored, err := s.store.Get(ctx, p.ID)
	if err != nil {
		return p, nil
	}
	return stored, nil
}
