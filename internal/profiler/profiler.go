// Package profiler computes column and dataset quality profiles without
// mutating the input table.
package profiler

import (
	"errors"
	"sort"

	"golang.org/x/sync/errgroup"

	"dataclean/internal/dataset"
)

// ErrEmptyDataset is returned when a table has columns but no rows.
var ErrEmptyDataset = errors.New("dataset has no rows")

// Options controls optional profile detail.
type Options struct {
	// IncludeSamples adds up to SampleSize non-missing example values per
	// column.
	IncludeSamples bool
	// Detailed adds numeric distribution stats to numeric columns.
	Detailed bool
	// SampleSize caps IncludeSamples output. Zero means 5.
	SampleSize int
}

// NumericStats describes the distribution of a numeric column, computed
// over non-missing cells that parse as numbers.
type NumericStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Q1     float64 `json:"q1"`
	Q3     float64 `json:"q3"`
}

// ColumnProfile describes one column.
type ColumnProfile struct {
	Name            string        `json:"name"`
	InferredType    string        `json:"inferred_type"`
	NullCount       int           `json:"null_count"`
	NullRatio       float64       `json:"null_ratio"`
	DistinctCount   int           `json:"distinct_count"`
	TypeConformance float64       `json:"type_conformance"`
	OutlierCount    int           `json:"outlier_count"`
	Issues          []string      `json:"issues,omitempty"`
	Samples         []interface{} `json:"samples,omitempty"`
	Stats           *NumericStats `json:"stats,omitempty"`
}

// DatasetProfile describes a whole table.
type DatasetProfile struct {
	RowCount          int             `json:"row_count"`
	ColumnCount       int             `json:"column_count"`
	DuplicateRowCount int             `json:"duplicate_row_count"`
	MemoryBytes       int64           `json:"memory_bytes"`
	Completeness      float64         `json:"completeness"`
	Uniqueness        float64         `json:"uniqueness"`
	TypeConsistency   float64         `json:"type_consistency"`
	QualityScore      float64         `json:"quality_score"`
	Columns           []ColumnProfile `json:"columns"`
	IssuesSummary     map[string]int  `json:"issues_summary"`
}

// Column issue labels.
const (
	IssueHasNulls    = "has_nulls"
	IssueHighNull    = "high_null"
	IssueMixedType   = "mixed_type"
	IssueHasOutliers = "has_outliers"
	IssueAllNull     = "all_null"
	IssueConstant    = "constant"
)

// Profile computes the dataset profile. The input table is not modified.
// Tables with zero columns profile to a zero-score report; tables with
// columns but zero rows return ErrEmptyDataset.
func Profile(t *dataset.Table, opts Options) (*DatasetProfile, error) {
	if t.NumCols() == 0 {
		return &DatasetProfile{Columns: []ColumnProfile{}, IssuesSummary: map[string]int{}}, nil
	}
	if t.NumRows() == 0 {
		return nil, ErrEmptyDataset
	}

	profiles := make([]ColumnProfile, t.NumCols())
	cols := t.Columns()

	// Columns are independent; profile them in parallel. Results land in
	// a pre-sized slice so output order matches column order.
	var g errgroup.Group
	for i := range cols {
		g.Go(func() error {
			profiles[i] = profileColumn(&cols[i], t.NumRows(), opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := make(map[string]int)
	for _, cp := range profiles {
		for _, issue := range cp.Issues {
			summary[issue]++
		}
	}

	dup := countDuplicateRows(t)
	p := &DatasetProfile{
		RowCount:          t.NumRows(),
		ColumnCount:       t.NumCols(),
		DuplicateRowCount: dup,
		MemoryBytes:       t.MemoryEstimate(),
		Columns:           profiles,
		IssuesSummary:     summary,
	}
	p.Completeness, p.Uniqueness, p.TypeConsistency, p.QualityScore = scoreQuality(t, dup)
	return p, nil
}

func profileColumn(c *dataset.Column, rows int, opts Options) ColumnProfile {
	inf := dataset.InferColumn(c)

	nulls := 0
	distinct := make(map[string]struct{})
	for _, v := range c.Values {
		if v.IsMissing() {
			nulls++
			continue
		}
		distinct[v.Kind().String()+":"+v.Format()] = struct{}{}
	}

	p := ColumnProfile{
		Name:            c.Name,
		InferredType:    inf.Kind.String(),
		NullCount:       nulls,
		NullRatio:       float64(nulls) / float64(rows),
		DistinctCount:   len(distinct),
		TypeConformance: inf.Conformance,
	}

	if inf.Kind.IsNumeric() {
		nums := numericValues(c, inf.Kind)
		p.OutlierCount = countOutliers(nums)
		if opts.Detailed && len(nums) > 0 {
			p.Stats = numericStats(nums)
		}
	}

	if opts.IncludeSamples {
		p.Samples = sampleValues(c, opts.SampleSize)
	}

	p.Issues = columnIssues(p, inf)
	return p
}

func columnIssues(p ColumnProfile, inf dataset.Inference) []string {
	var issues []string
	if inf.NonMissing == 0 {
		return append(issues, IssueAllNull)
	}
	if p.NullRatio > 0.5 {
		issues = append(issues, IssueHighNull)
	} else if p.NullCount > 0 {
		issues = append(issues, IssueHasNulls)
	}
	if p.TypeConformance < 1 {
		issues = append(issues, IssueMixedType)
	}
	if p.OutlierCount > 0 {
		issues = append(issues, IssueHasOutliers)
	}
	if p.DistinctCount == 1 {
		issues = append(issues, IssueConstant)
	}
	return issues
}

// numericValues extracts the cells that parse as the column's numeric
// kind, as float64.
func numericValues(c *dataset.Column, kind dataset.Kind) []float64 {
	nums := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if v.IsMissing() {
			continue
		}
		cv, ok := dataset.Coerce(v, kind)
		if !ok || cv.IsNull() {
			continue
		}
		f, _ := cv.AsFloat()
		nums = append(nums, f)
	}
	return nums
}

func sampleValues(c *dataset.Column, size int) []interface{} {
	if size <= 0 {
		size = 5
	}
	samples := make([]interface{}, 0, size)
	for _, v := range c.Values {
		if v.IsMissing() {
			continue
		}
		samples = append(samples, v.Interface())
		if len(samples) == size {
			break
		}
	}
	return samples
}

func countDuplicateRows(t *dataset.Table) int {
	seen := make(map[string]struct{}, t.NumRows())
	dup := 0
	for i := 0; i < t.NumRows(); i++ {
		key := t.RowKey(i)
		if _, ok := seen[key]; ok {
			dup++
			continue
		}
		seen[key] = struct{}{}
	}
	return dup
}

// quantile computes the q-th quantile (0..1) of sorted data using linear
// interpolation between closest ranks.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[lo+1]*frac
}

// OutlierBounds returns the IQR fence [q1 - 1.5*iqr, q3 + 1.5*iqr] for
// the given numeric values.
func OutlierBounds(nums []float64) (lower, upper float64, ok bool) {
	if len(nums) < 4 {
		return 0, 0, false
	}
	sorted := append([]float64(nil), nums...)
	sort.Float64s(sorted)
	q1 := quantile(sorted, 0.25)
	q3 := quantile(sorted, 0.75)
	iqr := q3 - q1
	return q1 - 1.5*iqr, q3 + 1.5*iqr, true
}

func countOutliers(nums []float64) int {
	lower, upper, ok := OutlierBounds(nums)
	if !ok {
		return 0
	}
	n := 0
	for _, f := range nums {
		if f < lower || f > upper {
			n++
		}
	}
	return n
}

func numericStats(nums []float64) *NumericStats {
	sorted := append([]float64(nil), nums...)
	sort.Float64s(sorted)
	sum := 0.0
	for _, f := range sorted {
		sum += f
	}
	return &NumericStats{
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   sum / float64(len(sorted)),
		Median: quantile(sorted, 0.5),
		Q1:     quantile(sorted, 0.25),
		Q3:     quantile(sorted, 0.75),
	}
}
