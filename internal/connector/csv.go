package connector

import (
	"encoding/csv"
	"fmt"
	"os"

	"dataclean/internal/dataset"
)

// readCSV loads a CSV file. The first record is the header; every cell
// is kept as raw text so an untransformed table writes back identically.
func readCSV(path string) (*dataset.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	if len(records) == 0 {
		t, _ := dataset.New()
		return t, nil
	}

	t, err := dataset.New(records[0]...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	row := make([]dataset.Value, len(records[0]))
	for _, record := range records[1:] {
		for i, cell := range record {
			row[i] = dataset.String(cell)
		}
		if err := t.AppendRow(row); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
		}
	}
	return t, nil
}

// writeCSV writes the table as CSV with a header row. Cells render via
// their canonical text form; raw string cells come back out unchanged.
func writeCSV(t *dataset.Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.ColumnNames()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	cols := t.Columns()
	record := make([]string, len(cols))
	for i := 0; i < t.NumRows(); i++ {
		for c := range cols {
			record[c] = cols[c].Values[i].Format()
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	w.Flush()
	return w.Error()
}
