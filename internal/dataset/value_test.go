package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueKinds(t *testing.T) {
	t.Run("zero value is null", func(t *testing.T) {
		var v Value
		assert.True(t, v.IsNull())
		assert.True(t, v.IsMissing())
		assert.Equal(t, "", v.Format())
	})

	t.Run("null sentinels are missing but not null", func(t *testing.T) {
		for _, s := range []string{"", "NULL", "null", "N/A", "na", "None", "NaN", " - "} {
			v := String(s)
			assert.False(t, v.IsNull(), s)
			assert.True(t, v.IsMissing(), s)
		}
		assert.False(t, String("0").IsMissing())
		assert.False(t, String("no").IsMissing())
	})

	t.Run("format round trips canonical text", func(t *testing.T) {
		assert.Equal(t, "42", Int(42).Format())
		assert.Equal(t, "3.5", Float(3.5).Format())
		assert.Equal(t, "true", Bool(true).Format())
		assert.Equal(t, "hello", String("hello").Format())
		day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, "2024-03-01", Time(day).Format())
	})
}

func TestDetectKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"42", KindInt},
		{"-7", KindInt},
		{"3.14", KindFloat},
		{"1e6", KindFloat},
		{"true", KindBool},
		{"No", KindBool},
		{"2024-01-15", KindTime},
		{"2024-01-15 10:30:00", KindTime},
		{"hello world", KindString},
		{"", KindNull},
		{"N/A", KindNull},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, DetectKind(tc.in), "input %q", tc.in)
	}
}

func TestCoerce(t *testing.T) {
	t.Run("digit strings become integers", func(t *testing.T) {
		v, ok := Coerce(String("1001"), KindInt)
		require.True(t, ok)
		assert.Equal(t, Int(1001), v)
	})

	t.Run("currency noise is stripped", func(t *testing.T) {
		v, ok := Coerce(String("$1,250.50"), KindFloat)
		require.True(t, ok)
		assert.Equal(t, Float(1250.50), v)
	})

	t.Run("date-like strings become datetimes", func(t *testing.T) {
		v, ok := Coerce(String("2024-06-30"), KindTime)
		require.True(t, ok)
		assert.Equal(t, KindTime, v.Kind())
		assert.Equal(t, "2024-06-30", v.Format())
	})

	t.Run("failures degrade to null", func(t *testing.T) {
		v, ok := Coerce(String("not a number"), KindInt)
		assert.False(t, ok)
		assert.True(t, v.IsNull())
	})

	t.Run("missing values coerce to null", func(t *testing.T) {
		v, ok := Coerce(String("N/A"), KindFloat)
		assert.True(t, ok)
		assert.True(t, v.IsNull())
	})

	t.Run("int widens to float", func(t *testing.T) {
		v, ok := Coerce(Int(4), KindFloat)
		require.True(t, ok)
		assert.Equal(t, Float(4), v)
	})

	t.Run("yes and no become booleans", func(t *testing.T) {
		v, ok := Coerce(String("Yes"), KindBool)
		require.True(t, ok)
		assert.Equal(t, Bool(true), v)

		v, ok = Coerce(String("no"), KindBool)
		require.True(t, ok)
		assert.Equal(t, Bool(false), v)

		_, ok = Coerce(String("maybe"), KindBool)
		assert.False(t, ok)
	})
}

func TestInferColumn(t *testing.T) {
	t.Run("majority vote", func(t *testing.T) {
		col := &Column{Name: "qty", Values: []Value{String("5"), Null(), String("3"), String("9")}}
		inf := InferColumn(col)
		assert.Equal(t, KindInt, inf.Kind)
		assert.Equal(t, 1.0, inf.Conformance)
		assert.Equal(t, 3, inf.NonMissing)
	})

	t.Run("ints widen under float majority", func(t *testing.T) {
		col := &Column{Name: "price", Values: []Value{String("1.5"), String("2"), String("2.25")}}
		inf := InferColumn(col)
		assert.Equal(t, KindFloat, inf.Kind)
		assert.Equal(t, 1.0, inf.Conformance)
	})

	t.Run("mixed content has partial conformance", func(t *testing.T) {
		col := &Column{Name: "mix", Values: []Value{String("1"), String("2"), String("oops"), String("3")}}
		inf := InferColumn(col)
		assert.Equal(t, KindInt, inf.Kind)
		assert.InDelta(t, 0.75, inf.Conformance, 1e-9)
	})

	t.Run("all missing infers null", func(t *testing.T) {
		col := &Column{Name: "empty", Values: []Value{Null(), String(""), String("N/A")}}
		inf := InferColumn(col)
		assert.Equal(t, KindNull, inf.Kind)
	})
}

func TestTableInvariants(t *testing.T) {
	t.Run("duplicate column names rejected", func(t *testing.T) {
		_, err := New("a", "b", "a")
		require.Error(t, err)
	})

	t.Run("append enforces width", func(t *testing.T) {
		tab, err := New("a", "b")
		require.NoError(t, err)
		assert.Error(t, tab.AppendRow([]Value{Int(1)}))
		assert.NoError(t, tab.AppendRow([]Value{Int(1), String("x")}))
		assert.Equal(t, 1, tab.NumRows())
	})

	t.Run("drop column keeps order and index", func(t *testing.T) {
		tab, err := New("a", "b", "c")
		require.NoError(t, err)
		require.NoError(t, tab.AppendRow([]Value{Int(1), Int(2), Int(3)}))
		require.NoError(t, tab.DropColumn("b"))
		assert.Equal(t, []string{"a", "c"}, tab.ColumnNames())
		col, ok := tab.Column("c")
		require.True(t, ok)
		assert.Equal(t, Int(3), col.Values[0])
	})

	t.Run("rename rejects collisions", func(t *testing.T) {
		tab, err := New("First Name", "first_name")
		require.NoError(t, err)
		assert.Error(t, tab.RenameColumn("First Name", "first_name"))
	})

	t.Run("row keys distinguish kind and payload", func(t *testing.T) {
		tab, err := New("v")
		require.NoError(t, err)
		require.NoError(t, tab.AppendRow([]Value{Int(1)}))
		require.NoError(t, tab.AppendRow([]Value{String("1")}))
		assert.NotEqual(t, tab.RowKey(0), tab.RowKey(1))
	})

	t.Run("clone is deep", func(t *testing.T) {
		tab, err := New("v")
		require.NoError(t, err)
		require.NoError(t, tab.AppendRow([]Value{Int(1)}))
		clone := tab.Clone()
		require.NoError(t, clone.Set("v", 0, Int(99)))
		col, _ := tab.Column("v")
		assert.Equal(t, Int(1), col.Values[0])
	})
}
