package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/p-n-ai/campus/internal/catalog"
	"github.com/p-n-ai/campus/internal/content"
	"github.com/p-n-ai/campus/internal/platform/cache/redistest"
	"github.com/p-n-ai/campus/internal/platform/database/pgtest"
)

func seed(t *testing.T, store catalog.Store) {
	t.Helper()
	ctx := context.Background()
	if err := store.UpsertSubject(ctx, catalog.Subject{ID: "bio", Name: "Biología", UnitsCount: 2, Courses: []string{"4A"}}); err != nil {
		t.Fatalf("UpsertSubject() error = %v", err)
	}
	rows := []content.Row{
		{ID: "bio-u2", SubjectID: "bio", Number: 2, Title: "Cells", ContentJSON: []byte(`{"blocks": [{"id": "b1", "type": "core"}]}`)},
		{ID: "bio-u1", SubjectID: "bio", Number: 1, Title: "Life"},
	}
	for _, r := range rows {
		if err := store.UpsertUnit(ctx, r); err != nil {
			t.Fatalf("UpsertUnit() error = %v", err)
		}
	}
}

func exerciseStore(t *testing.T, store catalog.Store) {
	ctx := context.Background()
	seed(t, store)
	c := catalog.New(store)

	units, err := c.Units(ctx, "bio")
	if err != nil {
		t.Fatalf("Units() error = %v", err)
	}
	if len(units) != 2 || units[0].ID != "bio-u1" || units[1].ID != "bio-u2" {
		t.Fatalf("Units() = %+v, want ordered by number", units)
	}
	if !units[0].Available || units[0].Meta.Version != content.DefaultVersion || units[0].Blocks == nil {
		t.Errorf("column-only unit not normalized: %+v", units[0])
	}
	if len(units[1].Blocks) != 1 {
		t.Errorf("Blocks = %+v, want one", units[1].Blocks)
	}

	u := units[1]
	u.Title = "Cells and tissues"
	u.Blocks = []content.Block{}
	if err := c.ReplaceUnit(ctx, u); err != nil {
		t.Fatalf("ReplaceUnit() error = %v", err)
	}
	got, err := c.Unit(ctx, "bio-u2")
	if err != nil {
		t.Fatalf("Unit() error = %v", err)
	}
	if got.Title != "Cells and tissues" || len(got.Blocks) != 0 {
		t.Errorf("Unit() = %+v, want replaced title and empty blocks", got)
	}

	if _, err := c.Unit(ctx, "nope"); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Unit(nope) error = %v, want ErrNotFound", err)
	}

	subs, err := c.Subjects(ctx)
	if err != nil || len(subs) != 1 || subs[0].Courses[0] != "4A" {
		t.Errorf("Subjects() = %+v, %v", subs, err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, catalog.NewMemoryStore())
}

func TestPostgresStore(t *testing.T) {
	exerciseStore(t, catalog.NewPostgresStore(pgtest.Pool(t)))
}

func TestCachedStore(t *testing.T) {
	exerciseStore(t, catalog.NewCachedStore(catalog.NewMemoryStore(), redistest.Cache(t), 0))
}

func TestReplaceUnit_RequiresID(t *testing.T) {
	c := catalog.New(catalog.NewMemoryStore())
	if err := c.ReplaceUnit(context.Background(), content.Unit{Title: "x"}); err == nil {
		t.Error("ReplaceUnit() should reject a unit without id")
	}
}
