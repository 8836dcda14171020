// Package services implements the use cases behind the HTTP handlers:
// profile a stored file, clean it (sync or as a job executor), validate
// it, and infer schemas.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"dataclean/internal/cleaner"
	"dataclean/internal/connector"
	"dataclean/internal/dataset"
	apperrors "dataclean/internal/errors"
	"dataclean/internal/jobs"
	"dataclean/internal/profiler"
	"dataclean/internal/storage"
	"dataclean/internal/validator"
)

// CleanService wires the tabular components to file storage. It also
// implements jobs.Executor so the queue can run cleans asynchronously.
type CleanService struct {
	files  *storage.FileStore
	logger *slog.Logger
}

// NewCleanService creates a CleanService
func NewCleanService(files *storage.FileStore, logger *slog.Logger) *CleanService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanService{
		files:  files,
		logger: logger.With(slog.String("component", "clean_service")),
	}
}

// loadTable resolves a file ID and reads it into a table.
func (s *CleanService) loadTable(fileID string) (*storage.FileInfo, *dataset.Table, error) {
	info, err := s.files.Lookup(fileID)
	if err != nil {
		return nil, nil, err
	}
	t, err := connector.Read(info.Location)
	if err != nil {
		return nil, nil, apperrors.NewConnectorError("read "+info.Name, err).WithContext("file_id", fileID)
	}
	return info, t, nil
}

// StatFile resolves a file ID without reading the file. Used to reject
// clean submissions for unknown files up front.
func (s *CleanService) StatFile(fileID string) (*storage.FileInfo, error) {
	return s.files.Lookup(fileID)
}

// ProfileFile profiles a stored file.
func (s *CleanService) ProfileFile(ctx context.Context, fileID string, opts profiler.Options) (*profiler.DatasetProfile, error) {
	info, tab, err := s.loadTable(fileID)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "profiling file",
		slog.String("file_id", fileID),
		slog.String("name", info.Name),
		slog.Int("rows", tab.NumRows()))
	return profiler.Profile(tab, opts)
}

// CleanFileSync cleans a file inline and returns the result file ID
// with the report. Used by the bounded synchronous endpoint.
func (s *CleanService) CleanFileSync(ctx context.Context, fileID string, mode cleaner.Mode, opts cleaner.Options) (string, *cleaner.Report, error) {
	info, tab, err := s.loadTable(fileID)
	if err != nil {
		return "", nil, err
	}

	cleaned, report, err := cleaner.Clean(ctx, tab, mode, opts, nil)
	if err != nil {
		return "", nil, err
	}

	resultID, path := s.files.AllocateOutput(cleanedName(info.Name))
	if err := connector.Write(cleaned, path); err != nil {
		return "", nil, apperrors.NewStorageError("write cleaned file", err)
	}

	s.logger.InfoContext(ctx, "file cleaned",
		slog.String("file_id", fileID),
		slog.String("result_file_id", resultID),
		slog.Int("rows_removed", report.RowsRemoved),
		slog.Int("cells_modified", report.CellsModified))
	return resultID, report, nil
}

// Execute implements jobs.Executor: it runs a full clean for the job's
// file, validates the result, writes the output, and records everything
// on the job.
func (s *CleanService) Execute(ctx context.Context, job *jobs.Job, progress func(step string, completed, total int)) error {
	info, tab, err := s.loadTable(job.FileID)
	if err != nil {
		return err
	}

	cleaned, report, err := cleaner.Clean(ctx, tab, job.Mode, job.Options, progress)
	if err != nil {
		return err
	}

	// Validation failure is a result, not a job failure.
	result := validator.Validate(cleaned, nil)

	resultID, path := s.files.AllocateOutput(cleanedName(info.Name))
	if err := connector.Write(cleaned, path); err != nil {
		return apperrors.NewStorageError("write cleaned file", err)
	}

	job.ResultFileID = resultID
	job.Report = report
	job.Validation = &result
	return nil
}

// ValidateFile validates a stored file, optionally against a stored
// schema.
func (s *CleanService) ValidateFile(ctx context.Context, fileID, schemaID string) (*validator.Result, error) {
	_, tab, err := s.loadTable(fileID)
	if err != nil {
		return nil, err
	}

	var schema *validator.Schema
	if schemaID != "" {
		path, err := s.files.SchemaPath(schemaID)
		if err != nil {
			return nil, err
		}
		schema, err = validator.LoadSchema(path)
		if err != nil {
			return nil, err
		}
	}

	result := validator.Validate(tab, schema)
	s.logger.InfoContext(ctx, "file validated",
		slog.String("file_id", fileID),
		slog.Bool("passed", result.Passed),
		slog.Int("violations", len(result.Violations)))
	return &result, nil
}

// InferSchemaFile derives a schema from a stored file, persists it as
// YAML, and returns its ID alongside the schema.
func (s *CleanService) InferSchemaFile(ctx context.Context, fileID string) (string, *validator.Schema, error) {
	_, tab, err := s.loadTable(fileID)
	if err != nil {
		return "", nil, err
	}

	schema := validator.InferSchema(tab)
	data, err := yaml.Marshal(schema)
	if err != nil {
		return "", nil, fmt.Errorf("encode schema: %w", err)
	}
	schemaID, err := s.files.SaveSchema(data)
	if err != nil {
		return "", nil, err
	}

	s.logger.InfoContext(ctx, "schema inferred",
		slog.String("file_id", fileID),
		slog.String("schema_id", schemaID),
		slog.Int("columns", len(schema.Columns)))
	return schemaID, schema, nil
}

// cleanedName turns "orders.csv" into "orders_cleaned.csv".
func cleanedName(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "_cleaned" + ext
}
