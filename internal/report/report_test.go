package report_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/campus/internal/catalog"
	"github.com/p-n-ai/campus/internal/content"
	"github.com/p-n-ai/campus/internal/profile"
	"github.com/p-n-ai/campus/internal/progress"
	"github.com/p-n-ai/campus/internal/report"
)

func input() report.Input {
	updated := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	unit := func(id string, n int, blocks ...string) content.Unit {
		u := content.Unit{ID: id, SubjectID: "hist", Number: n, Title: "Unit " + id,
			Meta: content.Meta{Version: "1.0.0", UpdatedAt: updated}}
		for i, b := range blocks {
			u.Blocks = append(u.Blocks, content.Block{ID: b, Order: i + 1, Type: "core", CountsForProgress: true})
		}
		return u
	}
	visited := func(user, unitID, block string) progress.Record {
		return progress.Record{UserID: user, SubjectID: "hist", UnitID: unitID, BlockID: block, Visited: true}
	}

	return report.Input{
		Subject: catalog.Subject{ID: "hist", Name: "History"},
		// Out of order on purpose; the report sorts by number.
		Units: []content.Unit{unit("u2", 2, "c"), unit("u1", 1, "a", "b")},
		Students: []profile.Profile{
			{ID: "s2", FirstName: "Zoe", LastName: "Ruiz"},
			{ID: "s1", FullName: "Ana Diaz"},
			{ID: "s3"},
		},
		Records: []progress.Record{
			visited("s1", "u1", "a"),
			visited("s1", "u1", "b"),
			visited("s1", "u2", "c"),
			visited("s2", "u1", "a"),
			{UserID: "s2", SubjectID: "geo", UnitID: "g1", BlockID: "x", Visited: true},
		},
	}
}

func open(t *testing.T, in report.Input) *excelize.File {
	t.Helper()
	var buf bytes.Buffer
	if err := report.Write(&buf, in); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestWrite_ProgressSheet(t *testing.T) {
	f := open(t, input())

	if got, want := f.GetSheetList(), []string{report.ProgressSheet, report.UnitsSheet}; !cmp.Equal(got, want) {
		t.Errorf("sheets = %v, want %v", got, want)
	}

	rows, err := f.GetRows(report.ProgressSheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	want := [][]string{
		{"Student", "User ID", "U1 Unit u1", "U2 Unit u2", "Subject %"},
		{"Ana Diaz", "s1", "100", "100", "30"},
		{"Zoe Ruiz", "s2", "50", "0", "10"},
		{"s3", "s3", "0", "0", "0"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("progress rows mismatch (-want +got):\n%s", diff)
	}
}

func TestWrite_UnitsSheet(t *testing.T) {
	f := open(t, input())

	rows, err := f.GetRows(report.UnitsSheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	want := [][]string{
		{"Number", "Unit ID", "Title", "Counted blocks", "Version", "Updated"},
		{"1", "u1", "Unit u1", "2", "1.0.0", "2026-03-01 09:30"},
		{"2", "u2", "Unit u2", "1", "1.0.0", "2026-03-01 09:30"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("unit rows mismatch (-want +got):\n%s", diff)
	}
}

func TestWrite_Empty(t *testing.T) {
	f := open(t, report.Input{Subject: catalog.Subject{ID: "hist"}})

	rows, err := f.GetRows(report.ProgressSheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 1 || len(rows[0]) != 3 {
		t.Errorf("rows = %v, want only the Student/User ID/Subject %% header", rows)
	}
}
