// Package report exports per-student subject progress as an XLSX workbook.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/campus/internal/catalog"
	"github.com/p-n-ai/campus/internal/content"
	"github.com/p-n-ai/campus/internal/profile"
	"github.com/p-n-ai/campus/internal/progress"
)

// Sheet names.
const (
	ProgressSheet = "Progress"
	UnitsSheet    = "Units"
)

// ContentType is the MIME type of the written workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Input is everything a subject report needs. Records may include rows of
// other subjects; they are ignored.
type Input struct {
	Subject  catalog.Subject
	Units    []content.Unit
	Students []profile.Profile
	Records  []progress.Record
}

// Build lays out the report workbook. The caller owns the returned file and
// must Close it.
func Build(in Input) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", ProgressSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("naming sheet: %w", err)
	}
	if _, err := f.NewSheet(UnitsSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("creating sheet: %w", err)
	}

	units := append([]content.Unit(nil), in.Units...)
	sort.SliceStable(units, func(i, j int) bool { return units[i].Number < units[j].Number })

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating style: %w", err)
	}

	if err := writeProgress(f, in, units, bold); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeUnits(f, units, bold); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// Write builds the report and streams it to w.
func Write(w io.Writer, in Input) error {
	f, err := Build(in)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

func writeProgress(f *excelize.File, in Input, units []content.Unit, headerStyle int) error {
	header := []any{"Student", "User ID"}
	for _, u := range units {
		header = append(header, fmt.Sprintf("U%d %s", u.Number, u.Title))
	}
	header = append(header, "Subject %")
	if err := setRow(f, ProgressSheet, 1, header); err != nil {
		return err
	}

	byUser := make(map[string][]progress.Record)
	for _, r := range in.Records {
		if r.SubjectID == in.Subject.ID {
			byUser[r.UserID] = append(byUser[r.UserID], r)
		}
	}

	students := append([]profile.Profile(nil), in.Students...)
	sort.SliceStable(students, func(i, j int) bool { return label(students[i]) < label(students[j]) })

	for i, s := range students {
		records := byUser[s.ID]
		row := []any{label(s), s.ID}
		for _, u := range units {
			row = append(row, progress.UnitPercent(u, records))
		}
		done := 0
		for _, r := range records {
			if r.Done() {
				done++
			}
		}
		row = append(row, progress.SubjectPercent(done, len(units)))
		if err := setRow(f, ProgressSheet, i+2, row); err != nil {
			return err
		}
	}

	last, _ := excelize.ColumnNumberToName(len(header))
	if err := f.SetCellStyle(ProgressSheet, "A1", last+"1", headerStyle); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}
	if err := f.SetColWidth(ProgressSheet, "A", "B", 24); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}
	return f.SetPanes(ProgressSheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      2,
		YSplit:      1,
		TopLeftCell: "C2",
		ActivePane:  "bottomRight",
	})
}

func writeUnits(f *excelize.File, units []content.Unit, headerStyle int) error {
	if err := setRow(f, UnitsSheet, 1, []any{"Number", "Unit ID", "Title", "Counted blocks", "Version", "Updated"}); err != nil {
		return err
	}
	for i, u := range units {
		counted := 0
		for _, b := range u.Blocks {
			if b.CountsForProgress {
				counted++
			}
		}
		row := []any{u.Number, u.ID, u.Title, counted, u.Meta.Version, u.Meta.UpdatedAt.UTC().Format("2006-01-02 15:04")}
		if err := setRow(f, UnitsSheet, i+2, row); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(UnitsSheet, "A1", "F1", headerStyle); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}
	return f.SetColWidth(UnitsSheet, "C", "C", 40)
}

func label(p profile.Profile) string {
	if name := p.DisplayName(); name != "" {
		return name
	}
	return p.ID
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, row, err)
	}
	return nil
}
