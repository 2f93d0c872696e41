package catalog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/p-n-ai/campus/internal/content"
	"github.com/p-n-ai/campus/internal/platform/cache"
)

// CachedStore reads unit rows through Redis. Writes go to the wrapped store
// and invalidate the cached entries. Cache failures fall back to the store.
type CachedStore struct {
	Store
	cache *cache.Cache
	ttl   time.Duration
}

func NewCachedStore(store Store, c *cache.Cache, ttl time.Duration) *CachedStore {
	return &CachedStore{Store: store, cache: c, ttl: ttl}
}

func (s *CachedStore) unitKey(id string) string {
	return s.cache.Key("unit", id)
}

func (s *CachedStore) subjectKey(subjectID string) string {
	if subjectID == "" {
		subjectID = "*"
	}
	return s.cache.Key("units", subjectID)
}

func (s *CachedStore) UnitRow(ctx context.Context, id string) (content.Row, error) {
	var row content.Row
	err := s.cache.GetJSON(ctx, s.unitKey(id), &row)
	if err == nil {
		return row, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		slog.Warn("unit cache read failed", "unit_id", id, "error", err)
	}

	row, err = s.Store.UnitRow(ctx, id)
	if err != nil {
		return content.Row{}, err
	}
	if err := s.cache.SetJSON(ctx, s.unitKey(id), row, s.ttl); err != nil {
		slog.Warn("unit cache write failed", "unit_id", id, "error", err)
	}
	return row, nil
}

func (s *CachedStore) UnitRows(ctx context.Context, subjectID string) ([]content.Row, error) {
	var rows []content.Row
	err := s.cache.GetJSON(ctx, s.subjectKey(subjectID), &rows)
	if err == nil {
		return rows, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		slog.Warn("unit list cache read failed", "subject_id", subjectID, "error", err)
	}

	rows, err = s.Store.UnitRows(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, s.subjectKey(subjectID), rows, s.ttl); err != nil {
		slog.Warn("unit list cache write failed", "subject_id", subjectID, "error", err)
	}
	return rows, nil
}

func (s *CachedStore) UpsertUnit(ctx context.Context, row content.Row) error {
	// A unit can move between subjects, so the previous subject's list is
	// dropped as well.
	keys := []string{s.unitKey(row.ID), s.subjectKey(row.SubjectID), s.subjectKey("")}
	if prev, err := s.Store.UnitRow(ctx, row.ID); err == nil && prev.SubjectID != row.SubjectID {
		keys = append(keys, s.subjectKey(prev.SubjectID))
	}

	if err := s.Store.UpsertUnit(ctx, row); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		slog.Warn("unit cache invalidation failed", "unit_id", row.ID, "error", err)
	}
	return nil
}
