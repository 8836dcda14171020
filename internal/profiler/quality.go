package profiler

import "dataclean/internal/dataset"

// Quality score weights. Completeness dominates because missing data is
// the most common defect callers act on.
const (
	weightCompleteness    = 0.5
	weightUniqueness      = 0.3
	weightTypeConsistency = 0.2
)

// scoreQuality computes the three quality dimensions and the combined
// 0..100 score:
//
//	completeness    = 1 - nulls/cells, over distinct rows
//	uniqueness      = 1 - duplicateRows/rows
//	typeConsistency = mean column type conformance, over distinct rows
//	score           = 100 * (0.5*c + 0.3*u + 0.2*t)
//
// Completeness and consistency are measured on the distinct-row view so
// inserting a duplicate row only moves the uniqueness term: the score
// can never rise when duplicates are added.
func scoreQuality(t *dataset.Table, duplicates int) (completeness, uniqueness, consistency, score float64) {
	rows, cols := t.NumRows(), t.NumCols()
	if rows == 0 || cols == 0 {
		return 0, 0, 0, 0
	}

	seen := make(map[string]struct{}, rows)
	keep := make([]int, 0, rows)
	for i := 0; i < rows; i++ {
		key := t.RowKey(i)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keep = append(keep, i)
	}

	nulls := 0
	confSum := 0.0
	columns := t.Columns()
	for c := range columns {
		kept := dataset.Column{Name: columns[c].Name, Values: make([]dataset.Value, 0, len(keep))}
		for _, i := range keep {
			v := columns[c].Values[i]
			if v.IsMissing() {
				nulls++
			}
			kept.Values = append(kept.Values, v)
		}
		confSum += dataset.InferColumn(&kept).Conformance
	}

	completeness = 1 - float64(nulls)/float64(len(keep)*cols)
	uniqueness = 1 - float64(duplicates)/float64(rows)
	consistency = confSum / float64(cols)
	score = 100 * (weightCompleteness*completeness +
		weightUniqueness*uniqueness +
		weightTypeConsistency*consistency)
	return completeness, uniqueness, consistency, score
}
