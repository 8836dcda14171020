package validator

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v2"

	"dataclean/internal/dataset"
)

// ColumnRule constrains one column.
type ColumnRule struct {
	Type      string   `yaml:"type" json:"type"`
	Nullable  bool     `yaml:"nullable" json:"nullable"`
	MinValue  *float64 `yaml:"min_value,omitempty" json:"min_value,omitempty"`
	MaxValue  *float64 `yaml:"max_value,omitempty" json:"max_value,omitempty"`
	MaxLength *int     `yaml:"max_length,omitempty" json:"max_length,omitempty"`
}

// Schema is a set of column rules.
type Schema struct {
	Columns map[string]ColumnRule `yaml:"columns" json:"columns"`
}

// ColumnNames returns the schema's column names sorted for deterministic
// validation output.
func (s *Schema) ColumnNames() []string {
	names := make([]string, 0, len(s.Columns))
	for name := range s.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InferSchema derives a schema from a table: each column's dominant
// type, whether it currently holds nulls, observed numeric bounds, and
// observed max text length.
func InferSchema(t *dataset.Table) *Schema {
	schema := &Schema{Columns: make(map[string]ColumnRule, t.NumCols())}
	for _, name := range t.ColumnNames() {
		col, _ := t.Column(name)
		inf := dataset.InferColumn(col)

		rule := ColumnRule{
			Type:     inf.Kind.String(),
			Nullable: inf.NonMissing < len(col.Values),
		}

		if inf.Kind.IsNumeric() {
			min, max, ok := numericBounds(col)
			if ok {
				rule.MinValue = &min
				rule.MaxValue = &max
			}
		}
		if inf.Kind == dataset.KindString {
			if maxLen := maxTextLength(col); maxLen > 0 {
				rule.MaxLength = &maxLen
			}
		}

		schema.Columns[name] = rule
	}
	return schema
}

func numericBounds(col *dataset.Column) (min, max float64, ok bool) {
	for _, v := range col.Values {
		f, isNum := numericView(v)
		if !isNum {
			continue
		}
		if !ok {
			min, max, ok = f, f, true
			continue
		}
		if f < min {
			min = f
		}
		if f > max {
			max = f
		}
	}
	return min, max, ok
}

func maxTextLength(col *dataset.Column) int {
	maxLen := 0
	for _, v := range col.Values {
		if v.IsMissing() {
			continue
		}
		if n := len(v.Format()); n > maxLen {
			maxLen = n
		}
	}
	return maxLen
}

// SaveSchema writes a schema as YAML.
func SaveSchema(s *Schema, path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write schema: %w", err)
	}
	return nil
}

// LoadSchema reads a YAML schema file.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	if s.Columns == nil {
		return nil, fmt.Errorf("parse schema: no columns defined")
	}
	return &s, nil
}
