package connector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataclean/internal/dataset"
)

func TestReadCSV(t *testing.T) {
	t.Run("round trips bytes without transforms", func(t *testing.T) {
		dir := t.TempDir()
		in := filepath.Join(dir, "in.csv")
		out := filepath.Join(dir, "out.csv")
		content := "id,name,amount\n1,Alice,10.50\n2,Bob,\n3,N/A,7\n"
		require.NoError(t, os.WriteFile(in, []byte(content), 0o644))

		tab, err := Read(in)
		require.NoError(t, err)
		assert.Equal(t, 3, tab.NumRows())
		assert.Equal(t, []string{"id", "name", "amount"}, tab.ColumnNames())

		require.NoError(t, Write(tab, out))
		got, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, content, string(got))
	})

	t.Run("cells stay verbatim", func(t *testing.T) {
		dir := t.TempDir()
		in := filepath.Join(dir, "in.csv")
		require.NoError(t, os.WriteFile(in, []byte("v\nNULL\n007\n"), 0o644))

		tab, err := Read(in)
		require.NoError(t, err)
		col, ok := tab.Column("v")
		require.True(t, ok)
		assert.Equal(t, dataset.String("NULL"), col.Values[0])
		assert.Equal(t, dataset.String("007"), col.Values[1])
		assert.True(t, col.Values[0].IsMissing())
		assert.False(t, col.Values[1].IsMissing())
	})

	t.Run("ragged rows are corrupt", func(t *testing.T) {
		dir := t.TempDir()
		in := filepath.Join(dir, "bad.csv")
		require.NoError(t, os.WriteFile(in, []byte("a,b\n1,2,3\n"), 0o644))

		_, err := Read(in)
		require.ErrorIs(t, err, ErrCorruptData)
	})

	t.Run("header only yields empty table", func(t *testing.T) {
		dir := t.TempDir()
		in := filepath.Join(dir, "empty.csv")
		require.NoError(t, os.WriteFile(in, []byte("a,b\n"), 0o644))

		tab, err := Read(in)
		require.NoError(t, err)
		assert.Equal(t, 0, tab.NumRows())
		assert.Equal(t, 2, tab.NumCols())
	})
}

func TestReadJSON(t *testing.T) {
	t.Run("records keep key order and union missing keys", func(t *testing.T) {
		dir := t.TempDir()
		in := filepath.Join(dir, "in.json")
		content := `[{"id":1,"name":"Alice"},{"id":2,"name":"Bob","extra":true}]`
		require.NoError(t, os.WriteFile(in, []byte(content), 0o644))

		tab, err := Read(in)
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "name", "extra"}, tab.ColumnNames())

		col, ok := tab.Column("id")
		require.True(t, ok)
		assert.Equal(t, dataset.Int(1), col.Values[0])

		extra, ok := tab.Column("extra")
		require.True(t, ok)
		assert.True(t, extra.Values[0].IsNull())
		assert.Equal(t, dataset.Bool(true), extra.Values[1])
	})

	t.Run("write keeps column order", func(t *testing.T) {
		tab, err := dataset.New("z", "a")
		require.NoError(t, err)
		require.NoError(t, tab.AppendRow([]dataset.Value{dataset.Int(1), dataset.String("x")}))

		dir := t.TempDir()
		out := filepath.Join(dir, "out.json")
		require.NoError(t, Write(tab, out))

		got, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.JSONEq(t, `[{"z":1,"a":"x"}]`, string(got))
		assert.Equal(t, `[{"z":1,"a":"x"}]`, string(got))
	})

	t.Run("non-array payload is corrupt", func(t *testing.T) {
		dir := t.TempDir()
		in := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(in, []byte(`{"not":"records"}`), 0o644))

		_, err := Read(in)
		require.ErrorIs(t, err, ErrCorruptData)
	})
}

func TestReadExcel(t *testing.T) {
	t.Run("round trips through a workbook", func(t *testing.T) {
		tab, err := dataset.New("id", "name")
		require.NoError(t, err)
		require.NoError(t, tab.AppendRow([]dataset.Value{dataset.Int(1), dataset.String("Alice")}))
		require.NoError(t, tab.AppendRow([]dataset.Value{dataset.Int(2), dataset.String("Bob")}))

		dir := t.TempDir()
		path := filepath.Join(dir, "out.xlsx")
		require.NoError(t, Write(tab, path))

		got, err := Read(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "name"}, got.ColumnNames())
		assert.Equal(t, 2, got.NumRows())

		name, ok := got.Column("name")
		require.True(t, ok)
		assert.Equal(t, "Alice", name.Values[0].Str())
	})
}

func TestReadParquet(t *testing.T) {
	t.Run("round trips typed columns and nulls", func(t *testing.T) {
		tab, err := dataset.New("id", "name", "amount")
		require.NoError(t, err)
		require.NoError(t, tab.AppendRow([]dataset.Value{dataset.Int(1), dataset.String("Alice"), dataset.Float(10.5)}))
		require.NoError(t, tab.AppendRow([]dataset.Value{dataset.Int(2), dataset.Null(), dataset.Float(7)}))
		require.NoError(t, tab.AppendRow([]dataset.Value{dataset.Int(3), dataset.String("Bob"), dataset.Null()}))

		dir := t.TempDir()
		path := filepath.Join(dir, "out.parquet")
		require.NoError(t, Write(tab, path))

		got, err := Read(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "name", "amount"}, got.ColumnNames())
		assert.Equal(t, 3, got.NumRows())

		id, ok := got.Column("id")
		require.True(t, ok)
		assert.Equal(t, dataset.Int(2), id.Values[1])

		name, ok := got.Column("name")
		require.True(t, ok)
		assert.Equal(t, dataset.String("Alice"), name.Values[0])
		assert.True(t, name.Values[1].IsNull())

		amount, ok := got.Column("amount")
		require.True(t, ok)
		assert.Equal(t, dataset.Float(10.5), amount.Values[0])
		assert.True(t, amount.Values[2].IsNull())
	})

	t.Run("mixed content falls back to strings", func(t *testing.T) {
		tab, err := dataset.New("v")
		require.NoError(t, err)
		require.NoError(t, tab.AppendRow([]dataset.Value{dataset.String("12")}))
		require.NoError(t, tab.AppendRow([]dataset.Value{dataset.String("twelve")}))

		dir := t.TempDir()
		path := filepath.Join(dir, "mixed.parquet")
		require.NoError(t, Write(tab, path))

		got, err := Read(path)
		require.NoError(t, err)
		col, ok := got.Column("v")
		require.True(t, ok)
		assert.Equal(t, dataset.String("12"), col.Values[0])
		assert.Equal(t, dataset.String("twelve"), col.Values[1])
	})

	t.Run("garbage bytes are corrupt", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "bad.parquet")
		require.NoError(t, os.WriteFile(path, []byte("not parquet"), 0o644))

		_, err := Read(path)
		require.ErrorIs(t, err, ErrCorruptData)
	})
}

func TestUnsupportedFormat(t *testing.T) {
	_, err := Read("report.pdf")
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	err = Write(&dataset.Table{}, "report.txt")
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	assert.True(t, IsSupported("data.PARQUET"))
	assert.False(t, IsSupported("data.tsv"))
}
