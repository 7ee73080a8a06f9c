// Package export renders the expiring contract set as an XLSX workbook.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/tphakala/contractwatch/internal/dates"
	"github.com/tphakala/contractwatch/internal/errors"
	"github.com/tphakala/contractwatch/internal/expiry"
)

// SheetName is the worksheet holding the report
const SheetName = "Expiring"

// ContentType is the MIME type of the workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Columns is the header row
var Columns = []string{"Contract ID", "Worker ID", "Worker", "End date", "Days remaining"}

var columnWidths = []float64{16, 14, 32, 14, 16}

// Report is one export of the expiring set as of Day
type Report struct {
	Day      time.Time
	Expiring []expiry.Expiring
	Names    expiry.NameLookup
}

// Filename returns the default file name for a report taken on day
func Filename(day time.Time) string {
	return fmt.Sprintf("expiring-contracts-%s.xlsx", dates.FormatISO(day))
}

// WriteXLSX writes the workbook to w
func WriteXLSX(w io.Writer, r Report) error {
	f, err := build(r)
	if err != nil {
		return exportError(err, "build")
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteTo(w); err != nil {
		return exportError(err, "write")
	}
	return nil
}

// SaveXLSX writes the workbook to path, creating parent directories
func SaveXLSX(path string, r Report) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.New(err).
				Component("export").
				Category(errors.CategoryFileIO).
				Context("path", path).
				Build()
		}
	}

	f, err := build(r)
	if err != nil {
		return exportError(err, "build")
	}
	defer func() { _ = f.Close() }()

	if err := f.SaveAs(path); err != nil {
		return errors.New(err).
			Component("export").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return nil
}

func build(r Report) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		_ = f.Close()
		return nil, err
	}

	if err := writeHeader(f); err != nil {
		_ = f.Close()
		return nil, err
	}

	for i, e := range r.Expiring {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		row := []any{
			e.Contract.ID,
			e.Contract.WorkerID,
			workerName(r.Names, e.Contract.WorkerID),
			e.Contract.EndDateDisplay(),
			e.DaysRemaining,
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   "Expiring contracts " + dates.FormatForDisplay(r.Day),
		Creator: "contractwatch",
	}); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func writeHeader(f *excelize.File) error {
	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#305496"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}

	last, err := excelize.CoordinatesToCellName(len(Columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, style); err != nil {
		return err
	}

	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return err
		}
	}

	return f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func workerName(names expiry.NameLookup, workerID string) string {
	if names == nil {
		return ""
	}
	name, _ := names.Name(workerID)
	return name
}

func exportError(err error, op string) error {
	return errors.New(err).
		Component("export").
		Category(errors.CategorySystem).
		Context("operation", op).
		Build()
}
