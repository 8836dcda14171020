package connector

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"dataclean/internal/dataset"
)

// readExcel loads the first sheet of a workbook. Cells arrive as the
// displayed text, matching the lossless raw-string contract.
func readExcel(path string) (*dataset.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		t, _ := dataset.New()
		return t, nil
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	if len(rows) == 0 {
		t, _ := dataset.New()
		return t, nil
	}

	t, err := dataset.New(rows[0]...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	width := len(rows[0])
	cells := make([]dataset.Value, width)
	for _, row := range rows[1:] {
		// Trailing empty cells are omitted by the reader; pad them back.
		for i := 0; i < width; i++ {
			if i < len(row) {
				cells[i] = dataset.String(row[i])
			} else {
				cells[i] = dataset.String("")
			}
		}
		if err := t.AppendRow(cells); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
		}
	}
	return t, nil
}

// writeExcel writes the table to a single-sheet workbook.
func writeExcel(t *dataset.Table, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	header := make([]interface{}, t.NumCols())
	for i, name := range t.ColumnNames() {
		header[i] = name
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write excel header: %w", err)
	}

	cols := t.Columns()
	row := make([]interface{}, len(cols))
	for i := 0; i < t.NumRows(); i++ {
		for c := range cols {
			row[c] = cols[c].Values[i].Interface()
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("write excel row %d: %w", i, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write excel row %d: %w", i, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save excel: %w", err)
	}
	return nil
}
