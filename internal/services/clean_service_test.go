package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataclean/internal/cleaner"
	"dataclean/internal/connector"
	"dataclean/internal/jobs"
	"dataclean/internal/profiler"
	"dataclean/internal/storage"
)

func newTestService(t *testing.T) (*CleanService, *storage.FileStore) {
	t.Helper()
	root := t.TempDir()
	dirs := []string{root + "/uploads", root + "/outputs", root + "/schemas"}
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(d, 0o755))
	}
	files := storage.NewFileStore(dirs[0], dirs[1], dirs[2])
	return NewCleanService(files, nil), files
}

func uploadCSV(t *testing.T, files *storage.FileStore, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	info, err := files.SaveUpload(name, f)
	require.NoError(t, err)
	return info.ID
}

const ordersCSV = "Order ID,quantity,Email\n" +
	"1,5,ALICE@EXAMPLE.COM\n" +
	"2,,bob@invalid\n" +
	"3,3,carol@example.com\n" +
	"1,5,ALICE@EXAMPLE.COM\n"

func TestProfileFile(t *testing.T) {
	svc, files := newTestService(t)
	fileID := uploadCSV(t, files, "orders.csv", ordersCSV)

	profile, err := svc.ProfileFile(context.Background(), fileID, profiler.Options{Detailed: true})
	require.NoError(t, err)
	assert.Equal(t, 4, profile.RowCount)
	assert.Equal(t, 3, profile.ColumnCount)
	assert.Equal(t, 1, profile.DuplicateRowCount)

	_, err = svc.ProfileFile(context.Background(), "missing", profiler.Options{})
	require.ErrorIs(t, err, storage.ErrFileNotFound)
}

func TestCleanFileSync(t *testing.T) {
	svc, files := newTestService(t)
	fileID := uploadCSV(t, files, "orders.csv", ordersCSV)

	resultID, report, err := svc.CleanFileSync(context.Background(), fileID, cleaner.ModeStandard, cleaner.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, report.RowsRemoved)

	info, err := files.Lookup(resultID)
	require.NoError(t, err)
	assert.Equal(t, "orders_cleaned.csv", info.Name)

	cleaned, err := connector.Read(info.Location)
	require.NoError(t, err)
	assert.Equal(t, 3, cleaned.NumRows())
	assert.Equal(t, []string{"order_id", "quantity", "email"}, cleaned.ColumnNames())
}

func TestExecuteAsJobExecutor(t *testing.T) {
	svc, files := newTestService(t)
	fileID := uploadCSV(t, files, "orders.csv", ordersCSV)

	job := &jobs.Job{ID: "j1", FileID: fileID, Mode: cleaner.ModeStandard, Options: cleaner.DefaultOptions()}
	var steps []string
	err := svc.Execute(context.Background(), job, func(step string, completed, total int) {
		steps = append(steps, step)
	})
	require.NoError(t, err)

	assert.NotEmpty(t, job.ResultFileID)
	require.NotNil(t, job.Report)
	assert.Equal(t, 1, job.Report.RowsRemoved)
	require.NotNil(t, job.Validation)
	assert.NotEmpty(t, steps)

	_, err = files.Lookup(job.ResultFileID)
	require.NoError(t, err)
}

func TestValidateAndInferSchema(t *testing.T) {
	svc, files := newTestService(t)
	fileID := uploadCSV(t, files, "orders.csv", "qty,name\n1,alice\n2,bob\n")

	schemaID, schema, err := svc.InferSchemaFile(context.Background(), fileID)
	require.NoError(t, err)
	assert.Equal(t, "integer", schema.Columns["qty"].Type)

	result, err := svc.ValidateFile(context.Background(), fileID, schemaID)
	require.NoError(t, err)
	assert.True(t, result.Passed)

	t.Run("schema violations are data not errors", func(t *testing.T) {
		otherID := uploadCSV(t, files, "other.csv", "qty\nx\ny\n")
		result, err := svc.ValidateFile(context.Background(), otherID, schemaID)
		require.NoError(t, err)
		assert.False(t, result.Passed)
	})

	t.Run("unknown schema id", func(t *testing.T) {
		_, err := svc.ValidateFile(context.Background(), fileID, "missing")
		require.ErrorIs(t, err, storage.ErrFileNotFound)
	})
}
