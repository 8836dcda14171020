package cleaner

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"dataclean/internal/dataset"
	"dataclean/internal/profiler"
)

// removeDuplicates drops exact duplicate rows, keeping the first
// occurrence in original order.
func removeDuplicates(t *dataset.Table, r *Report) {
	seen := make(map[string]struct{}, t.NumRows())
	keep := make([]bool, t.NumRows())
	removed := 0
	for i := 0; i < t.NumRows(); i++ {
		key := t.RowKey(i)
		if _, ok := seen[key]; ok {
			removed++
			continue
		}
		seen[key] = struct{}{}
		keep[i] = true
	}
	if removed == 0 {
		r.logOp("No duplicate rows found")
		return
	}
	t.KeepRows(keep)
	r.logOp(fmt.Sprintf("Removed %d duplicate rows", removed))
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// snakeCase lowercases a column name and collapses separator runs into
// single underscores.
func snakeCase(name string) string {
	s := nonAlnum.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "column"
	}
	return s
}

// standardizeColumns renames every column to snake_case. Names that
// collide after conversion get a numeric suffix.
func standardizeColumns(t *dataset.Table, r *Report) {
	renamed := 0
	taken := make(map[string]bool, t.NumCols())
	for _, name := range t.ColumnNames() {
		taken[name] = true
	}
	for _, name := range t.ColumnNames() {
		target := snakeCase(name)
		if target == name {
			continue
		}
		candidate := target
		for n := 2; taken[candidate]; n++ {
			candidate = fmt.Sprintf("%s_%d", target, n)
		}
		delete(taken, name)
		taken[candidate] = true
		if err := t.RenameColumn(name, candidate); err == nil {
			renamed++
		}
	}
	if renamed == 0 {
		r.logOp("Column names already standardized")
		return
	}
	r.logOp(fmt.Sprintf("Renamed %d columns to snake_case", renamed))
}

// fillNulls replaces missing cells with the column median (numeric) or
// mode (everything else). All-null columns are left alone since there is
// nothing to derive a fill value from.
func fillNulls(t *dataset.Table, r *Report) {
	filledAny := false
	for _, name := range t.ColumnNames() {
		col, _ := t.Column(name)
		inf := dataset.InferColumn(col)
		if inf.NonMissing == 0 {
			continue
		}

		nulls := 0
		for _, v := range col.Values {
			if v.IsMissing() {
				nulls++
			}
		}
		if nulls == 0 {
			continue
		}

		var fill dataset.Value
		var how string
		if inf.Kind.IsNumeric() {
			fill = medianValue(col, inf.Kind)
			how = "median"
		} else {
			fill = modeValue(col)
			how = "mode"
		}
		if fill.IsNull() {
			continue
		}

		for i, v := range col.Values {
			if v.IsMissing() {
				col.Values[i] = fill
			}
		}
		filledAny = true
		r.CellsModified += nulls
		r.markColumn(name)
		r.logOp(fmt.Sprintf("Filled %d nulls in '%s' with %s (%s)", nulls, name, how, fill.Format()))
	}
	if !filledAny {
		r.logOp("No nulls to fill")
	}
}

// medianValue computes the column median over cells that parse as the
// dominant numeric kind. Integer columns with an integral median fill
// with an integer.
func medianValue(col *dataset.Column, kind dataset.Kind) dataset.Value {
	nums := make([]float64, 0, len(col.Values))
	for _, v := range col.Values {
		if v.IsMissing() {
			continue
		}
		if cv, ok := dataset.Coerce(v, kind); ok && !cv.IsNull() {
			f, _ := cv.AsFloat()
			nums = append(nums, f)
		}
	}
	if len(nums) == 0 {
		return dataset.Null()
	}
	sort.Float64s(nums)
	var median float64
	mid := len(nums) / 2
	if len(nums)%2 == 1 {
		median = nums[mid]
	} else {
		median = (nums[mid-1] + nums[mid]) / 2
	}
	if kind == dataset.KindInt && median == math.Trunc(median) {
		return dataset.Int(int64(median))
	}
	return dataset.Float(median)
}

// modeValue returns the most frequent non-missing value; ties go to the
// value seen first.
func modeValue(col *dataset.Column) dataset.Value {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	values := make(map[string]dataset.Value)
	for i, v := range col.Values {
		if v.IsMissing() {
			continue
		}
		key := v.Kind().String() + ":" + v.Format()
		if _, ok := counts[key]; !ok {
			firstSeen[key] = i
			values[key] = v
		}
		counts[key]++
	}
	bestKey := ""
	for key, n := range counts {
		if bestKey == "" || n > counts[bestKey] ||
			(n == counts[bestKey] && firstSeen[key] < firstSeen[bestKey]) {
			bestKey = key
		}
	}
	if bestKey == "" {
		return dataset.Null()
	}
	return values[bestKey]
}

// convertTypes coerces each column to its dominant inferred kind. Cells
// that cannot convert become nulls and are counted as failures rather
// than aborting the run.
func convertTypes(t *dataset.Table, r *Report) {
	convertedAny := false
	for _, name := range t.ColumnNames() {
		col, _ := t.Column(name)
		inf := dataset.InferColumn(col)
		if inf.Kind == dataset.KindString || inf.Kind == dataset.KindNull {
			continue
		}

		changed, failures := 0, 0
		for i, v := range col.Values {
			if v.Kind() == inf.Kind {
				continue
			}
			cv, ok := dataset.Coerce(v, inf.Kind)
			if !ok {
				col.Values[i] = dataset.Null()
				failures++
				continue
			}
			if !cv.Equal(v) {
				col.Values[i] = cv
				changed++
			}
		}
		if changed == 0 && failures == 0 {
			continue
		}
		convertedAny = true
		r.CellsModified += changed + failures
		r.markColumn(name)
		if failures > 0 {
			r.logOp(fmt.Sprintf("Converted '%s' to %s (%d failures nulled)", name, inf.Kind, failures))
		} else {
			r.logOp(fmt.Sprintf("Converted '%s' to %s", name, inf.Kind))
		}
	}
	if !convertedAny {
		r.logOp("No type conversions needed")
	}
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// normalizeText trims text cells, lowercases email and categorical
// columns, and nulls values in email columns that are not addresses.
func normalizeText(t *dataset.Table, r *Report) {
	normalizedAny := false
	for _, name := range t.ColumnNames() {
		col, _ := t.Column(name)
		inf := dataset.InferColumn(col)
		if inf.Kind != dataset.KindString {
			continue
		}

		isEmail := strings.Contains(strings.ToLower(name), "email")
		lower := isEmail || isCategorical(col, inf)

		changed, invalidEmails := 0, 0
		for i, v := range col.Values {
			if v.Kind() != dataset.KindString || v.IsMissing() {
				continue
			}
			s := strings.TrimSpace(v.Str())
			if lower {
				s = strings.ToLower(s)
			}
			if isEmail && !emailPattern.MatchString(s) {
				col.Values[i] = dataset.Null()
				invalidEmails++
				continue
			}
			if s != v.Str() {
				col.Values[i] = dataset.String(s)
				changed++
			}
		}
		if changed == 0 && invalidEmails == 0 {
			continue
		}
		normalizedAny = true
		r.CellsModified += changed + invalidEmails
		r.markColumn(name)
		if changed > 0 {
			r.logOp(fmt.Sprintf("Normalized text in '%s' (%d cells)", name, changed))
		}
		if invalidEmails > 0 {
			r.logOp(fmt.Sprintf("Nulled %d invalid emails in '%s'", invalidEmails, name))
		}
	}
	if !normalizedAny {
		r.logOp("No text normalization needed")
	}
}

// isCategorical treats a text column as categorical when values repeat
// heavily: at most half the non-missing cells are distinct.
func isCategorical(col *dataset.Column, inf dataset.Inference) bool {
	if inf.NonMissing < 4 {
		return false
	}
	distinct := make(map[string]struct{})
	for _, v := range col.Values {
		if v.IsMissing() {
			continue
		}
		distinct[strings.ToLower(strings.TrimSpace(v.Format()))] = struct{}{}
	}
	return float64(len(distinct)) <= 0.5*float64(inf.NonMissing)
}

// dropSparseColumns removes columns that are more than 80% null.
// Aggressive mode only.
func dropSparseColumns(t *dataset.Table, r *Report) {
	dropped := false
	for _, name := range t.ColumnNames() {
		col, _ := t.Column(name)
		nulls := 0
		for _, v := range col.Values {
			if v.IsMissing() {
				nulls++
			}
		}
		ratio := float64(nulls) / float64(t.NumRows())
		if ratio <= 0.8 {
			continue
		}
		if err := t.DropColumn(name); err == nil {
			dropped = true
			r.markColumn(name)
			r.logOp(fmt.Sprintf("Dropped column '%s' (%.0f%% null)", name, ratio*100))
		}
	}
	if !dropped {
		r.logOp("No sparse columns to drop")
	}
}

// capOutliers clamps numeric values to the IQR fence. Aggressive mode
// only.
func capOutliers(t *dataset.Table, r *Report) {
	capped := false
	for _, name := range t.ColumnNames() {
		col, _ := t.Column(name)
		inf := dataset.InferColumn(col)
		if !inf.Kind.IsNumeric() {
			continue
		}

		nums := make([]float64, 0, len(col.Values))
		for _, v := range col.Values {
			if f, ok := v.AsFloat(); ok {
				nums = append(nums, f)
			}
		}
		lower, upper, ok := profiler.OutlierBounds(nums)
		if !ok {
			continue
		}

		n := 0
		for i, v := range col.Values {
			f, isNum := v.AsFloat()
			if !isNum {
				continue
			}
			clamped := math.Min(math.Max(f, lower), upper)
			if clamped == f {
				continue
			}
			if inf.Kind == dataset.KindInt && clamped == math.Trunc(clamped) {
				col.Values[i] = dataset.Int(int64(clamped))
			} else {
				col.Values[i] = dataset.Float(clamped)
			}
			n++
		}
		if n == 0 {
			continue
		}
		capped = true
		r.CellsModified += n
		r.markColumn(name)
		r.logOp(fmt.Sprintf("Capped %d outliers in '%s'", n, name))
	}
	if !capped {
		r.logOp("No outliers to cap")
	}
}
