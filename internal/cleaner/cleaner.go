// Package cleaner applies an ordered pipeline of cleaning steps to a
// table and reports everything it changed.
package cleaner

import (
	"context"
	"errors"

	"dataclean/internal/dataset"
	"dataclean/internal/profiler"
)

// ErrEmptyTable is returned when there are no rows to clean.
var ErrEmptyTable = errors.New("table has no rows")

// Mode selects the cleaning pipeline.
type Mode string

const (
	ModeStandard   Mode = "standard"
	ModeAggressive Mode = "aggressive"
)

// ParseMode validates a mode string. Empty means standard.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeStandard:
		return ModeStandard, nil
	case ModeAggressive:
		return ModeAggressive, nil
	default:
		return "", errors.New("unknown cleaning mode: " + s)
	}
}

// Options toggles individual steps. The zero value disables everything;
// use DefaultOptions for the normal pipeline.
type Options struct {
	RemoveDuplicates   bool `json:"remove_duplicates"`
	StandardizeColumns bool `json:"standardize_columns"`
	FillNulls          bool `json:"fill_nulls"`
	ConvertTypes       bool `json:"convert_types"`
	NormalizeText      bool `json:"normalize_text"`
}

// DefaultOptions enables every step.
func DefaultOptions() Options {
	return Options{
		RemoveDuplicates:   true,
		StandardizeColumns: true,
		FillNulls:          true,
		ConvertTypes:       true,
		NormalizeText:      true,
	}
}

// Report describes the outcome of a cleaning run.
type Report struct {
	RowsBefore          int      `json:"rows_before"`
	RowsAfter           int      `json:"rows_after"`
	RowsRemoved         int      `json:"rows_removed"`
	CellsModified       int      `json:"cells_modified"`
	ColumnsModified     []string `json:"columns_modified"`
	OperationsPerformed []string `json:"operations_performed"`
	QualityScoreBefore  float64  `json:"quality_score_before"`
	QualityScoreAfter   float64  `json:"quality_score_after"`

	modifiedSet map[string]bool
}

func (r *Report) logOp(entry string) {
	r.OperationsPerformed = append(r.OperationsPerformed, entry)
}

func (r *Report) markColumn(name string) {
	if r.modifiedSet == nil {
		r.modifiedSet = make(map[string]bool)
	}
	if !r.modifiedSet[name] {
		r.modifiedSet[name] = true
		r.ColumnsModified = append(r.ColumnsModified, name)
	}
}

// ProgressFunc is called at each step boundary with the step about to
// run and how far the pipeline has advanced.
type ProgressFunc func(step string, completed, total int)

type step struct {
	name string
	run  func(t *dataset.Table, r *Report)
}

// Clean runs the cleaning pipeline for the mode and returns the cleaned
// table with a report. The input table is never modified. Per-cell
// failures degrade to nulls and are counted; the only fatal input is an
// empty table. Cancellation is observed between steps, so a cancelled
// run never returns a half-applied step.
func Clean(ctx context.Context, t *dataset.Table, mode Mode, opts Options, progress ProgressFunc) (*dataset.Table, *Report, error) {
	if t.NumRows() == 0 {
		return nil, nil, ErrEmptyTable
	}

	report := &Report{RowsBefore: t.NumRows()}
	if before, err := profiler.Profile(t, profiler.Options{}); err == nil {
		report.QualityScoreBefore = before.QualityScore
	}

	steps := buildPipeline(mode, opts)
	out := t.Clone()

	for i, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if progress != nil {
			progress(s.name, i, len(steps))
		}
		s.run(out, report)
	}
	if progress != nil && len(steps) > 0 {
		progress("done", len(steps), len(steps))
	}

	report.RowsAfter = out.NumRows()
	report.RowsRemoved = report.RowsBefore - report.RowsAfter
	if after, err := profiler.Profile(out, profiler.Options{}); err == nil {
		report.QualityScoreAfter = after.QualityScore
	}
	return out, report, nil
}

// buildPipeline assembles the ordered step list. Order matters: dedup
// sees raw rows, sparse columns must go before null fill rescues them,
// and null fill runs before coercion so fills are typed.
func buildPipeline(mode Mode, opts Options) []step {
	var steps []step
	if opts.RemoveDuplicates {
		steps = append(steps, step{"remove_duplicates", removeDuplicates})
	}
	if mode == ModeAggressive {
		steps = append(steps, step{"drop_sparse_columns", dropSparseColumns})
	}
	if opts.StandardizeColumns {
		steps = append(steps, step{"standardize_columns", standardizeColumns})
	}
	if opts.FillNulls {
		steps = append(steps, step{"fill_nulls", fillNulls})
	}
	if opts.ConvertTypes {
		steps = append(steps, step{"convert_types", convertTypes})
	}
	if opts.NormalizeText {
		steps = append(steps, step{"normalize_text", normalizeText})
	}
	if mode == ModeAggressive {
		steps = append(steps, step{"cap_outliers", capOutliers})
	}
	return steps
}
