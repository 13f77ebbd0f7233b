package export

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/spigell/resume-screener/internal/candidate"
)

// SheetName is the worksheet holding the candidate rows.
const SheetName = "Candidates"

var header = []string{"Rank", "Name", "Score", "Matches", "Gaps", "Summary", "Resume excerpt", "Outreach email", "Source file", "ID"}

var columnWidths = map[string]float64{
	"A": 6, "B": 24, "C": 8, "D": 36, "E": 36, "F": 60, "G": 60, "H": 60, "I": 24, "J": 38,
}

// DefaultFilename names a report after the day it was produced.
func DefaultFilename(now time.Time) string {
	return fmt.Sprintf("candidate_report_%s.xlsx", now.Format("2006-01-02"))
}

// Workbook renders the records, in the given order, into an xlsx document.
func Workbook(records []*candidate.Record) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	wrapStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return nil, fmt.Errorf("create cell style: %w", err)
	}

	if err := writeRow(f, 1, toRow(header)); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(SheetName, 1, 1, headerStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for i, r := range records {
		row := []any{
			i + 1,
			r.Name,
			r.Score,
			strings.Join(r.Matches, "\n"),
			strings.Join(r.Gaps, "\n"),
			bullets(r.Summary),
			r.ResumeExcerpt,
			r.Outreach,
			r.Source,
			r.ID.String(),
		}
		if err := writeRow(f, i+2, row); err != nil {
			return nil, err
		}
	}

	if len(records) > 0 {
		if err := f.SetRowStyle(SheetName, 2, len(records)+1, wrapStyle); err != nil {
			return nil, fmt.Errorf("style rows: %w", err)
		}
	}

	for col, width := range columnWidths {
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return nil, fmt.Errorf("set width of column %s: %w", col, err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

// ToFile writes the workbook for records to path.
func ToFile(path string, records []*candidate.Record) error {
	buf, err := Workbook(records)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func toRow(values []string) []any {
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}

func bullets(items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "• "+item)
	}
	return strings.Join(lines, "\n")
}
