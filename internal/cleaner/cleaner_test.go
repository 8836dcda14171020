package cleaner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataclean/internal/dataset"
)

func mustTable(t *testing.T, names []string, rows ...[]string) *dataset.Table {
	t.Helper()
	tab, err := dataset.New(names...)
	require.NoError(t, err)
	cells := make([]dataset.Value, len(names))
	for _, row := range rows {
		for i, s := range row {
			cells[i] = dataset.String(s)
		}
		require.NoError(t, tab.AppendRow(cells))
	}
	return tab
}

func TestCleanStandard(t *testing.T) {
	tab := mustTable(t, []string{"Product ID", "quantity", "Email"},
		[]string{"1", "5", "ALICE@EXAMPLE.COM"},
		[]string{"2", "", "bob@invalid"},
		[]string{"3", "3", "carol@example.com"},
		[]string{"1", "5", "ALICE@EXAMPLE.COM"},
	)

	out, report, err := Clean(context.Background(), tab, ModeStandard, DefaultOptions(), nil)
	require.NoError(t, err)

	t.Run("duplicates removed keeping first occurrence", func(t *testing.T) {
		assert.Equal(t, 4, report.RowsBefore)
		assert.Equal(t, 3, report.RowsAfter)
		assert.Equal(t, 1, report.RowsRemoved)
		assert.Contains(t, report.OperationsPerformed, "Removed 1 duplicate rows")
	})

	t.Run("column names standardized", func(t *testing.T) {
		assert.Equal(t, []string{"product_id", "quantity", "email"}, out.ColumnNames())
		assert.Contains(t, report.OperationsPerformed, "Renamed 2 columns to snake_case")
	})

	t.Run("numeric null filled with median", func(t *testing.T) {
		qty, ok := out.Column("quantity")
		require.True(t, ok)
		assert.Equal(t, dataset.Int(4), qty.Values[1])
		assert.Contains(t, report.OperationsPerformed, "Filled 1 nulls in 'quantity' with median (4)")
	})

	t.Run("types coerced to dominant kind", func(t *testing.T) {
		id, ok := out.Column("product_id")
		require.True(t, ok)
		assert.Equal(t, dataset.Int(1), id.Values[0])
		assert.Equal(t, dataset.Int(3), id.Values[2])
	})

	t.Run("emails lowercased and invalid ones nulled", func(t *testing.T) {
		email, ok := out.Column("email")
		require.True(t, ok)
		assert.Equal(t, dataset.String("alice@example.com"), email.Values[0])
		assert.True(t, email.Values[1].IsNull())
		assert.Equal(t, dataset.String("carol@example.com"), email.Values[2])
		assert.Contains(t, report.OperationsPerformed, "Nulled 1 invalid emails in 'email'")
	})

	t.Run("input table untouched", func(t *testing.T) {
		assert.Equal(t, 4, tab.NumRows())
		assert.Equal(t, []string{"Product ID", "quantity", "Email"}, tab.ColumnNames())
	})
}

func TestCleanImprovesQuality(t *testing.T) {
	tab := mustTable(t, []string{"id", "amount"},
		[]string{"1", "10"},
		[]string{"2", ""},
		[]string{"3", "30"},
		[]string{"1", "10"},
		[]string{"1", "10"},
	)
	_, report, err := Clean(context.Background(), tab, ModeStandard, DefaultOptions(), nil)
	require.NoError(t, err)
	assert.Greater(t, report.QualityScoreAfter, report.QualityScoreBefore)
}

func TestCleanIdempotent(t *testing.T) {
	tab := mustTable(t, []string{"Order ID", "amount", "status"},
		[]string{"1", "10.5", "Shipped"},
		[]string{"2", "", "Pending"},
		[]string{"2", "", "Pending"},
		[]string{"3", "30.25", "shipped"},
		[]string{"4", "12", "shipped"},
	)

	once, firstReport, err := Clean(context.Background(), tab, ModeStandard, DefaultOptions(), nil)
	require.NoError(t, err)
	assert.Greater(t, firstReport.CellsModified, 0)

	twice, report, err := Clean(context.Background(), once, ModeStandard, DefaultOptions(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.CellsModified)
	assert.Equal(t, 0, report.RowsRemoved)
	assert.Empty(t, report.ColumnsModified)

	require.Equal(t, once.NumRows(), twice.NumRows())
	for i := 0; i < once.NumRows(); i++ {
		assert.Equal(t, once.RowKey(i), twice.RowKey(i))
	}
}

func TestCleanAggressive(t *testing.T) {
	tab := mustTable(t, []string{"v", "sparse"},
		[]string{"10", ""},
		[]string{"11", ""},
		[]string{"12", ""},
		[]string{"13", ""},
		[]string{"14", "x"},
		[]string{"15", ""},
		[]string{"500", ""},
	)

	out, report, err := Clean(context.Background(), tab, ModeAggressive, DefaultOptions(), nil)
	require.NoError(t, err)

	t.Run("sparse column dropped", func(t *testing.T) {
		_, ok := out.Column("sparse")
		assert.False(t, ok)
		assert.Contains(t, report.OperationsPerformed, "Dropped column 'sparse' (86% null)")
	})

	t.Run("outliers capped at the IQR fence", func(t *testing.T) {
		v, ok := out.Column("v")
		require.True(t, ok)
		f, isNum := v.Values[6].AsFloat()
		require.True(t, isNum)
		assert.Less(t, f, 500.0)
		assert.Contains(t, report.OperationsPerformed, "Capped 1 outliers in 'v'")
	})
}

func TestCleanEdgeCases(t *testing.T) {
	t.Run("empty table is fatal", func(t *testing.T) {
		tab, err := dataset.New("a")
		require.NoError(t, err)
		_, _, err = Clean(context.Background(), tab, ModeStandard, DefaultOptions(), nil)
		require.ErrorIs(t, err, ErrEmptyTable)
	})

	t.Run("every step logs even when idle", func(t *testing.T) {
		tab := mustTable(t, []string{"a"}, []string{"1"}, []string{"2"})
		_, report, err := Clean(context.Background(), tab, ModeStandard, DefaultOptions(), nil)
		require.NoError(t, err)
		assert.Contains(t, report.OperationsPerformed, "No duplicate rows found")
		assert.Contains(t, report.OperationsPerformed, "Column names already standardized")
		assert.Contains(t, report.OperationsPerformed, "No nulls to fill")
	})

	t.Run("cancellation observed between steps", func(t *testing.T) {
		tab := mustTable(t, []string{"a"}, []string{"1"})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, _, err := Clean(ctx, tab, ModeStandard, DefaultOptions(), nil)
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("progress fires at step boundaries", func(t *testing.T) {
		tab := mustTable(t, []string{"a"}, []string{"1"})
		var names []string
		progress := func(step string, completed, total int) {
			names = append(names, step)
			assert.Equal(t, 5, total)
		}
		_, _, err := Clean(context.Background(), tab, ModeStandard, DefaultOptions(), progress)
		require.NoError(t, err)
		assert.Equal(t, []string{"remove_duplicates", "standardize_columns", "fill_nulls",
			"convert_types", "normalize_text", "done"}, names)
	})

	t.Run("disabled steps are skipped", func(t *testing.T) {
		tab := mustTable(t, []string{"a"},
			[]string{"1"},
			[]string{"1"},
		)
		_, report, err := Clean(context.Background(), tab, ModeStandard, Options{FillNulls: true}, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, report.RowsRemoved)
		assert.Equal(t, []string{"No nulls to fill"}, report.OperationsPerformed)
	})

	t.Run("mode parsing", func(t *testing.T) {
		m, err := ParseMode("")
		require.NoError(t, err)
		assert.Equal(t, ModeStandard, m)
		_, err = ParseMode("extreme")
		require.Error(t, err)
	})
}
