// Package catalog stores subjects and unit rows and hands out normalized
// units.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/p-n-ai/campus/internal/content"
)

// ErrNotFound is returned for unknown subjects and units.
var ErrNotFound = errors.New("not found")

// Subject is a course subject units belong to.
type Subject struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	UnitsCount       int      `json:"units_count"`
	Courses          []string `json:"courses"`
	OrientationNotes string   `json:"orientation_notes,omitempty"`
}

// Store persists subjects and unit rows.
type Store interface {
	Subjects(ctx context.Context) ([]Subject, error)
	Subject(ctx context.Context, id string) (Subject, error)
	UpsertSubject(ctx context.Context, s Subject) error
	// UnitRows lists the unit rows of subjectID, or of every subject when
	// subjectID is empty.
	UnitRows(ctx context.Context, subjectID string) ([]content.Row, error)
	UnitRow(ctx context.Context, id string) (content.Row, error)
	UpsertUnit(ctx context.Context, row content.Row) error
}

// Catalog normalizes stored rows into units.
type Catalog struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Catalog {
	return &Catalog{store: store, now: time.Now}
}

// Store returns the underlying store.
func (c *Catalog) Store() Store {
	return c.store
}

func (c *Catalog) Subjects(ctx context.Context) ([]Subject, error) {
	return c.store.Subjects(ctx)
}

func (c *Catalog) Subject(ctx context.Context, id string) (Subject, error) {
	return c.store.Subject(ctx, id)
}

// Units returns the normalized units of subjectID ordered by number.
func (c *Catalog) Units(ctx context.Context, subjectID string) ([]content.Unit, error) {
	rows, err := c.store.UnitRows(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	now := c.now()
	units := make([]content.Unit, 0, len(rows))
	for _, r := range rows {
		units = append(units, content.FromRow(r, now))
	}
	sort.SliceStable(units, func(i, j int) bool {
		if units[i].SubjectID != units[j].SubjectID {
			return units[i].SubjectID < units[j].SubjectID
		}
		return units[i].Number < units[j].Number
	})
	return units, nil
}

// Unit returns one normalized unit.
func (c *Catalog) Unit(ctx context.Context, id string) (content.Unit, error) {
	row, err := c.store.UnitRow(ctx, id)
	if err != nil {
		return content.Unit{}, err
	}
	return content.FromRow(row, c.now()), nil
}

// ReplaceUnit overwrites the whole stored unit with u.
func (c *Catalog) ReplaceUnit(ctx context.Context, u content.Unit) error {
	if u.ID == "" {
		return fmt.Errorf("unit id is required")
	}
	return c.store.UpsertUnit(ctx, u.Row())
}
