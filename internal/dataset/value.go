package dataset

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Kind identifies the scalar type carried by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindBool
	KindTime
	KindString
)

// String returns the kind name used in profiles and schemas.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindBool:
		return "boolean"
	case KindTime:
		return "datetime"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// KindFromString parses a kind name as written in schema files.
func KindFromString(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "integer", "int":
		return KindInt, nil
	case "float", "number", "numeric":
		return KindFloat, nil
	case "boolean", "bool":
		return KindBool, nil
	case "datetime", "date", "timestamp":
		return KindTime, nil
	case "string", "text":
		return KindString, nil
	case "null":
		return KindNull, nil
	default:
		return KindNull, fmt.Errorf("unknown type name %q", s)
	}
}

// Value is a tagged variant over the scalar types a table cell may hold.
// The zero Value is null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	t    time.Time
	s    string
}

// Null returns the null value.
func Null() Value { return Value{} }

// Int wraps an integer cell.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Float wraps a floating-point cell.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// Bool wraps a boolean cell.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Time wraps a datetime cell.
func Time(v time.Time) Value { return Value{kind: KindTime, t: v} }

// String wraps a text cell.
func String(v string) Value { return Value{kind: KindString, s: v} }

// Kind reports the scalar type held by the value.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is the null variant.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsMissing reports whether the value should be treated as missing data:
// either null, or a string holding a recognized null sentinel ("", "NULL",
// "N/A", ...). Connectors preserve sentinel text verbatim; interpretation
// happens here so reads stay lossless.
func (v Value) IsMissing() bool {
	if v.kind == KindNull {
		return true
	}
	return v.kind == KindString && isNullToken(v.s)
}

// Int returns the integer payload. Valid only when Kind() == KindInt.
func (v Value) Int() int64 { return v.i }

// Float returns the float payload. Valid only when Kind() == KindFloat.
func (v Value) Float() float64 { return v.f }

// Bool returns the boolean payload. Valid only when Kind() == KindBool.
func (v Value) Bool() bool { return v.b }

// Time returns the datetime payload. Valid only when Kind() == KindTime.
func (v Value) Time() time.Time { return v.t }

// Str returns the string payload. Valid only when Kind() == KindString.
func (v Value) Str() string { return v.s }

// AsFloat returns the value as a float64 where a lossless numeric view
// exists (int or float kinds).
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Format renders the value as canonical text. Null renders as the empty
// string, datetimes as ISO-8601.
func (v Value) Format() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTime:
		if v.t.Hour() == 0 && v.t.Minute() == 0 && v.t.Second() == 0 && v.t.Nanosecond() == 0 {
			return v.t.Format("2006-01-02")
		}
		return v.t.Format(time.RFC3339)
	case KindString:
		return v.s
	default:
		return ""
	}
}

// Interface returns the payload as a plain Go value for JSON encoding and
// driver interop. Null becomes nil.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindTime:
		return v.Format()
	case KindString:
		return v.s
	default:
		return nil
	}
}

// Equal reports exact equality of kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	case KindTime:
		return v.t.Equal(o.t)
	case KindString:
		return v.s == o.s
	default:
		return false
	}
}

// FromInterface converts a decoded JSON or driver value into a Value.
func FromInterface(raw interface{}) Value {
	switch x := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(x)
	case int:
		return Int(int64(x))
	case int64:
		return Int(x)
	case float64:
		// JSON numbers decode as float64; keep integral ones as integers.
		if x == float64(int64(x)) {
			return Int(int64(x))
		}
		return Float(x)
	case string:
		return String(x)
	case time.Time:
		return Time(x)
	default:
		return String(fmt.Sprintf("%v", x))
	}
}

var nullTokens = map[string]struct{}{
	"":     {},
	"null": {},
	"n/a":  {},
	"na":   {},
	"none": {},
	"nan":  {},
	"nil":  {},
	"-":    {},
}

func isNullToken(s string) bool {
	_, ok := nullTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// timeLayouts are tried in order when detecting or coercing datetimes.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02-Jan-2006",
	"Jan 2, 2006",
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DetectKind classifies a text cell by the scalar kind its content looks
// like. Missing sentinels classify as null.
func DetectKind(s string) Kind {
	trimmed := strings.TrimSpace(s)
	if isNullToken(trimmed) {
		return KindNull
	}
	if _, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return KindInt
	}
	if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return KindFloat
	}
	switch strings.ToLower(trimmed) {
	case "true", "false", "yes", "no":
		return KindBool
	}
	if _, ok := parseTime(trimmed); ok {
		return KindTime
	}
	return KindString
}

// EffectiveKind is the kind used for type inference: typed cells report
// their own kind, text cells report what their content looks like.
func (v Value) EffectiveKind() Kind {
	if v.kind == KindString {
		return DetectKind(v.s)
	}
	return v.kind
}

// Coerce attempts to convert the value to the target kind. Missing values
// coerce to null. The second return is false when the payload cannot
// represent the target kind; callers null the cell in that case rather
// than failing.
func Coerce(v Value, target Kind) (Value, bool) {
	if v.IsMissing() {
		return Null(), true
	}
	if v.kind == target {
		return v, true
	}
	switch target {
	case KindInt:
		// Strip currency and thousands noise the way loose business data
		// tends to need.
		if v.kind == KindString {
			if n, err := strconv.ParseInt(cleanNumericString(v.s), 10, 64); err == nil {
				return Int(n), true
			}
			return Null(), false
		}
		if n, err := cast.ToInt64E(v.Interface()); err == nil {
			return Int(n), true
		}
	case KindFloat:
		if v.kind == KindString {
			if f, err := strconv.ParseFloat(cleanNumericString(v.s), 64); err == nil {
				return Float(f), true
			}
			return Null(), false
		}
		if f, err := cast.ToFloat64E(v.Interface()); err == nil {
			return Float(f), true
		}
	case KindBool:
		// cast rejects yes/no, which DetectKind accepts.
		if v.kind == KindString {
			switch strings.ToLower(strings.TrimSpace(v.s)) {
			case "true", "yes", "y", "1":
				return Bool(true), true
			case "false", "no", "n", "0":
				return Bool(false), true
			}
			return Null(), false
		}
		if b, err := cast.ToBoolE(v.Interface()); err == nil {
			return Bool(b), true
		}
	case KindTime:
		if v.kind == KindString {
			if t, ok := parseTime(v.s); ok {
				return Time(t), true
			}
		}
	case KindString:
		return String(v.Format()), true
	}
	return Null(), false
}

func cleanNumericString(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-', r == '+', r == 'e', r == 'E':
			b.WriteRune(r)
		case r == ',', r == '$', r == ' ':
			// dropped
		default:
			return s // leave unrecognized text alone so parsing fails loudly
		}
	}
	return b.String()
}
