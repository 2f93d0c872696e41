package curriculum_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/p-n-ai/campus/internal/catalog"
	"github.com/p-n-ai/campus/internal/curriculum"
)

func TestLoader_LoadSubjects(t *testing.T) {
	dir := setupTestCurriculum(t)

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	subjects := loader.Subjects()
	if len(subjects) != 1 {
		t.Fatalf("Subjects() = %d subjects, want 1", len(subjects))
	}
	s := subjects[0]
	if s.ID != "hist" || s.Name != "History" {
		t.Errorf("subject = %s/%s, want hist/History", s.ID, s.Name)
	}
	if s.UnitsCount != 2 {
		t.Errorf("UnitsCount = %d, want 2", s.UnitsCount)
	}
	if len(s.Courses) != 2 || s.Courses[0] != "1A" {
		t.Errorf("Courses = %v, want [1A 1B]", s.Courses)
	}
	if s.OrientationNotes == "" {
		t.Error("OrientationNotes is empty")
	}
}

func TestLoader_LoadUnits(t *testing.T) {
	dir := setupTestCurriculum(t)

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	units := loader.Units()
	if len(units) != 2 {
		t.Fatalf("Units() = %d units, want 2", len(units))
	}
	if units[0].ID != "hist-u1" || units[0].Number != 1 || units[0].Title != "Origins" {
		t.Errorf("units[0] = %+v, want hist-u1 #1 Origins", units[0])
	}
	if units[1].ID != "hist-u2" || units[1].SubjectID != "hist" {
		t.Errorf("units[1] = %+v, want hist-u2 of hist", units[1])
	}
	if len(units[0].ContentJSON) == 0 {
		t.Error("YAML unit has no content document")
	}
}

func TestLoader_SkipsInvalidFiles(t *testing.T) {
	dir := setupTestCurriculum(t)
	unitsDir := filepath.Join(dir, "history", "units")

	os.WriteFile(filepath.Join(unitsDir, "broken.unit.json"), []byte(`{"id": `), 0o644)
	os.WriteFile(filepath.Join(unitsDir, "anonymous.unit.yaml"), []byte("title: No id\n"), 0o644)
	os.WriteFile(filepath.Join(unitsDir, "list.unit.yaml"), []byte("- a\n- b\n"), 0o644)
	os.WriteFile(filepath.Join(unitsDir, "notes.txt"), []byte("ignored"), 0o644)

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	if got := len(loader.Units()); got != 2 {
		t.Errorf("Units() = %d units, want 2 (invalid files should be skipped)", got)
	}
}

func TestLoader_EmptyDir(t *testing.T) {
	loader, err := curriculum.NewLoader(t.TempDir())
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	if len(loader.Subjects()) != 0 || len(loader.Units()) != 0 {
		t.Error("empty dir should load nothing")
	}
}

func TestLoader_NotesWithoutSubject(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "orphan.orientation.md"), []byte("# Orphan notes"), 0o644)

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	if len(loader.Subjects()) != 0 {
		t.Error("orientation notes alone should not create a subject")
	}
}

func TestLoader_Seed(t *testing.T) {
	dir := setupTestCurriculum(t)
	unitsDir := filepath.Join(dir, "history", "units")
	os.WriteFile(filepath.Join(unitsDir, "stray.unit.yaml"), []byte(`
id: geo-u1
subject_id: geo
number: 1
title: Maps
`), 0o644)

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	store := catalog.NewMemoryStore()
	if err := loader.Seed(t.Context(), store); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	cat := catalog.New(store)
	units, err := cat.Units(t.Context(), "hist")
	if err != nil {
		t.Fatalf("Units() error = %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("seeded units = %d, want 2", len(units))
	}
	u := units[0]
	if u.ID != "hist-u1" || len(u.Blocks) != 2 {
		t.Fatalf("unit = %s with %d blocks, want hist-u1 with 2", u.ID, len(u.Blocks))
	}
	if u.Blocks[0].ID != "b1" || u.Blocks[1].ID != "b2" {
		t.Errorf("block ids = %s,%s, want b1,b2", u.Blocks[0].ID, u.Blocks[1].ID)
	}
	if u.Meta.Version != "1.2.0" {
		t.Errorf("Meta.Version = %q, want 1.2.0", u.Meta.Version)
	}

	if _, err := cat.Unit(t.Context(), "geo-u1"); err == nil {
		t.Error("unit of an unknown subject should not be seeded")
	}
}

func TestLoader_SeedKeepsExistingSubjects(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "geo-1.unit.json"), []byte(`{"id":"geo-u1","subject_id":"geo","number":1,"title":"Maps"}`), 0o644)

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	store := catalog.NewMemoryStore()
	if err := store.UpsertSubject(t.Context(), catalog.Subject{ID: "geo", Name: "Geography"}); err != nil {
		t.Fatalf("UpsertSubject() error = %v", err)
	}
	if err := loader.Seed(t.Context(), store); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	if _, err := store.UnitRow(t.Context(), "geo-u1"); err != nil {
		t.Errorf("UnitRow(geo-u1) error = %v, want seeded", err)
	}
}

func setupTestCurriculum(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	subjectDir := filepath.Join(dir, "history")
	unitsDir := filepath.Join(subjectDir, "units")
	os.MkdirAll(unitsDir, 0o755)

	os.WriteFile(filepath.Join(subjectDir, "history.subject.yaml"), []byte(`
id: hist
name: History
courses: ["1A", "1B"]
`), 0o644)

	os.WriteFile(filepath.Join(subjectDir, "history.orientation.md"), []byte(`# History orientation

Read each unit before the weekly seminar and keep a timeline notebook.
`), 0o644)

	os.WriteFile(filepath.Join(unitsDir, "01-origins.unit.yaml"), []byte(`
id: hist-u1
subject_id: hist
number: 1
title: Origins
description: Where it all started
meta:
  version: "1.2.0"
  updated_at: "2026-02-01T10:00:00Z"
blocks:
  - id: b1
    order: 1
    type: threshold
    title: Before we begin
  - id: b2
    order: 2
    type: core
    title: Sources
    activities:
      - id: a1
        kind: match_pairs
        title: Match the dates
        data:
          pairs:
            - {id: p1, left: "3000 BC", right: Writing}
            - {id: p2, left: "776 BC", right: Olympics}
`), 0o644)

	os.WriteFile(filepath.Join(unitsDir, "02-empires.unit.json"), []byte(`{
  "id": "hist-u2",
  "subject_id": "hist",
  "number": 2,
  "title": "Empires",
  "blocks": []
}`), 0o644)

	return dir
}

func TestLoader_MissingRoot(t *testing.T) {
	if _, err := curriculum.NewLoader(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("NewLoader() on a missing dir should fail")
	}
}
