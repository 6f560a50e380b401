// Package export renders admin data as an Excel workbook.
package export

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const maxSheetName = 31

var errNoSheet = errors.New("no active sheet")

// Workbook writes sheets row by row.
type Workbook struct {
	file   *excelize.File
	sheet  string
	row    int
	header int
}

func NewWorkbook() (*Workbook, error) {
	f := excelize.NewFile()
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}
	return &Workbook{file: f, header: style}, nil
}

// AddSheet starts a new sheet. The first call renames the default sheet.
func (w *Workbook) AddSheet(name string) error {
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	if w.sheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet: %w", err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	w.sheet = name
	w.row = 1
	return nil
}

// WriteHeader writes a bold header row.
func (w *Workbook) WriteHeader(columns []string) error {
	row := make([]any, len(columns))
	for i, c := range columns {
		row[i] = c
	}
	start := w.row
	if err := w.WriteRow(row); err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(1, start)
	last, _ := excelize.CoordinatesToCellName(max(len(columns), 1), start)
	return w.file.SetCellStyle(w.sheet, first, last, w.header)
}

func (w *Workbook) WriteRow(values []any) error {
	if w.sheet == "" {
		return errNoSheet
	}
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(w.sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", w.row, err)
	}
	w.row++
	return nil
}

func (w *Workbook) WriteTo(out io.Writer) (int64, error) {
	return w.file.WriteTo(out)
}

func (w *Workbook) Close() error {
	return w.file.Close()
}
