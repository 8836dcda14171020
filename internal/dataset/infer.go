package dataset

// Inference is the result of a majority vote over a column's non-missing
// cells.
type Inference struct {
	Kind        Kind
	Conformance float64 // fraction of non-missing cells matching Kind
	NonMissing  int
}

// InferColumn votes the dominant scalar kind of a column. Integer cells
// count toward float when float wins, since every integer is a valid
// float. Columns with no non-missing cells infer as null with full
// conformance.
func InferColumn(c *Column) Inference {
	counts := make(map[Kind]int)
	nonMissing := 0
	for _, v := range c.Values {
		if v.IsMissing() {
			continue
		}
		nonMissing++
		counts[v.EffectiveKind()]++
	}
	if nonMissing == 0 {
		return Inference{Kind: KindNull, Conformance: 1}
	}

	best := KindString
	bestCount := -1
	// Deterministic vote order; ties go to the earlier, more specific kind.
	for _, k := range []Kind{KindInt, KindFloat, KindBool, KindTime, KindString} {
		if counts[k] > bestCount {
			best = k
			bestCount = counts[k]
		}
	}

	matching := counts[best]
	if best == KindFloat {
		matching += counts[KindInt]
	}
	// A column of mostly ints with some floats is a float column.
	if best == KindInt && counts[KindFloat] > 0 {
		best = KindFloat
		matching = counts[KindInt] + counts[KindFloat]
	}

	return Inference{
		Kind:        best,
		Conformance: float64(matching) / float64(nonMissing),
		NonMissing:  nonMissing,
	}
}

// IsNumeric reports whether the kind carries a numeric payload.
func (k Kind) IsNumeric() bool { return k == KindInt || k == KindFloat }
