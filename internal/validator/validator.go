// Package validator checks tables against schemas and built-in data
// quality rules. Validation failures are results, never errors: a table
// full of violations still validates successfully.
package validator

import (
	"fmt"
	"regexp"
	"strings"

	"dataclean/internal/dataset"
)

// Violation severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Rule names attached to violations.
const (
	RuleMissingColumn = "missing_column"
	RuleTypeMismatch  = "type_mismatch"
	RuleNotNullable   = "not_nullable"
	RuleMinValue      = "min_value"
	RuleMaxValue      = "max_value"
	RuleMaxLength     = "max_length"
	RuleAllNull       = "all_null"
	RuleConstant      = "constant_column"
	RuleNegative      = "negative_values"
	RuleInvalidEmail  = "invalid_email"
	RuleMixedTypes    = "mixed_types"
)

// Violation is one failed check.
type Violation struct {
	Column   string `json:"column"`
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Result is the outcome of a validation run. Passed is false only when
// at least one error-severity violation exists; warnings alone pass.
type Result struct {
	Passed     bool        `json:"passed"`
	Violations []Violation `json:"violations"`
}

func (r *Result) add(column, rule, severity, message string) {
	r.Violations = append(r.Violations, Violation{
		Column:   column,
		Rule:     rule,
		Severity: severity,
		Message:  message,
	})
}

// Validate checks the table against the schema. A nil schema runs only
// the built-in rules. Schema columns absent from the table are
// violations; table columns absent from the schema are ignored.
func Validate(t *dataset.Table, schema *Schema) Result {
	result := Result{}

	if schema != nil {
		validateSchema(t, schema, &result)
	}
	validateBuiltinRules(t, &result)

	result.Passed = true
	for _, v := range result.Violations {
		if v.Severity == SeverityError {
			result.Passed = false
			break
		}
	}
	return result
}

func validateSchema(t *dataset.Table, schema *Schema, result *Result) {
	for _, name := range schema.ColumnNames() {
		rule := schema.Columns[name]
		col, ok := t.Column(name)
		if !ok {
			result.add(name, RuleMissingColumn, SeverityError,
				fmt.Sprintf("Column '%s' is required by the schema but missing", name))
			continue
		}

		inf := dataset.InferColumn(col)
		validateColumnType(name, rule, inf, result)
		validateNullability(name, rule, col, result)
		validateNumericRange(name, rule, col, result)
		validateMaxLength(name, rule, col, result)
	}
}

func validateColumnType(name string, rule ColumnRule, inf dataset.Inference, result *Result) {
	if rule.Type == "" || inf.NonMissing == 0 {
		return
	}
	want, err := dataset.KindFromString(rule.Type)
	if err != nil {
		result.add(name, RuleTypeMismatch, SeverityError,
			fmt.Sprintf("Schema declares unknown type '%s' for column '%s'", rule.Type, name))
		return
	}
	// Integer content satisfies a float schema.
	if inf.Kind == want || (want == dataset.KindFloat && inf.Kind == dataset.KindInt) {
		return
	}
	result.add(name, RuleTypeMismatch, SeverityError,
		fmt.Sprintf("Column '%s' is %s, schema expects %s", name, inf.Kind, want))
}

func validateNullability(name string, rule ColumnRule, col *dataset.Column, result *Result) {
	if rule.Nullable {
		return
	}
	nulls := 0
	for _, v := range col.Values {
		if v.IsMissing() {
			nulls++
		}
	}
	if nulls > 0 {
		result.add(name, RuleNotNullable, SeverityError,
			fmt.Sprintf("Column '%s' has %d nulls but is not nullable", name, nulls))
	}
}

func validateNumericRange(name string, rule ColumnRule, col *dataset.Column, result *Result) {
	if rule.MinValue == nil && rule.MaxValue == nil {
		return
	}
	below, above := 0, 0
	for _, v := range col.Values {
		f, ok := numericView(v)
		if !ok {
			continue
		}
		if rule.MinValue != nil && f < *rule.MinValue {
			below++
		}
		if rule.MaxValue != nil && f > *rule.MaxValue {
			above++
		}
	}
	if below > 0 {
		result.add(name, RuleMinValue, SeverityError,
			fmt.Sprintf("Column '%s' has %d values below %v", name, below, *rule.MinValue))
	}
	if above > 0 {
		result.add(name, RuleMaxValue, SeverityError,
			fmt.Sprintf("Column '%s' has %d values above %v", name, above, *rule.MaxValue))
	}
}

func validateMaxLength(name string, rule ColumnRule, col *dataset.Column, result *Result) {
	if rule.MaxLength == nil {
		return
	}
	over := 0
	for _, v := range col.Values {
		if v.IsMissing() {
			continue
		}
		if len(v.Format()) > *rule.MaxLength {
			over++
		}
	}
	if over > 0 {
		result.add(name, RuleMaxLength, SeverityError,
			fmt.Sprintf("Column '%s' has %d values longer than %d characters", name, over, *rule.MaxLength))
	}
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// amountLike column names get a negative-value check.
var amountLike = []string{"amount", "quantity", "qty", "price", "total", "cost"}

// validateBuiltinRules applies the checks that need no schema.
func validateBuiltinRules(t *dataset.Table, result *Result) {
	for _, name := range t.ColumnNames() {
		col, _ := t.Column(name)
		inf := dataset.InferColumn(col)

		if inf.NonMissing == 0 && len(col.Values) > 0 {
			result.add(name, RuleAllNull, SeverityError,
				fmt.Sprintf("Column '%s' is entirely null", name))
			continue
		}

		if inf.Conformance < 1 {
			result.add(name, RuleMixedTypes, SeverityWarning,
				fmt.Sprintf("Column '%s' mixes types (%.0f%% %s)", name, inf.Conformance*100, inf.Kind))
		}

		if constantColumn(col) {
			result.add(name, RuleConstant, SeverityWarning,
				fmt.Sprintf("Column '%s' has a single constant value", name))
		}

		if inf.Kind.IsNumeric() && isAmountLike(name) {
			if n := negativeCount(col); n > 0 {
				result.add(name, RuleNegative, SeverityWarning,
					fmt.Sprintf("Column '%s' has %d negative values", name, n))
			}
		}

		if strings.Contains(strings.ToLower(name), "email") {
			if n := invalidEmailCount(col); n > 0 {
				result.add(name, RuleInvalidEmail, SeverityWarning,
					fmt.Sprintf("Column '%s' has %d invalid email addresses", name, n))
			}
		}
	}
}

func numericView(v dataset.Value) (float64, bool) {
	if v.IsMissing() {
		return 0, false
	}
	if f, ok := v.AsFloat(); ok {
		return f, true
	}
	if cv, ok := dataset.Coerce(v, dataset.KindFloat); ok && !cv.IsNull() {
		return cv.Float(), true
	}
	return 0, false
}

func constantColumn(col *dataset.Column) bool {
	distinct := make(map[string]struct{})
	for _, v := range col.Values {
		if v.IsMissing() {
			continue
		}
		distinct[v.Kind().String()+":"+v.Format()] = struct{}{}
		if len(distinct) > 1 {
			return false
		}
	}
	return len(distinct) == 1 && len(col.Values) > 1
}

func negativeCount(col *dataset.Column) int {
	n := 0
	for _, v := range col.Values {
		if f, ok := numericView(v); ok && f < 0 {
			n++
		}
	}
	return n
}

func invalidEmailCount(col *dataset.Column) int {
	n := 0
	for _, v := range col.Values {
		if v.IsMissing() || v.Kind() != dataset.KindString {
			continue
		}
		if !emailPattern.MatchString(strings.TrimSpace(v.Str())) {
			n++
		}
	}
	return n
}

func isAmountLike(name string) bool {
	lower := strings.ToLower(name)
	for _, token := range amountLike {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}
