// Package storage owns the uploaded, output, and schema files on disk.
// Every file is keyed by a generated ID; callers never supply paths.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"dataclean/internal/connector"
)

// ErrFileNotFound is returned for unknown file IDs.
var ErrFileNotFound = errors.New("file not found")

// ErrExtensionNotAllowed is returned for uploads outside the supported
// formats.
var ErrExtensionNotAllowed = errors.New("file extension not allowed")

// FileInfo describes a stored file.
type FileInfo struct {
	ID       string    `json:"file_id"`
	Name     string    `json:"name"`
	Size     int64     `json:"size_bytes"`
	ModTime  time.Time `json:"modified_at"`
	Location string    `json:"-"`
}

// FileStore keeps uploads and outputs in separate directories, both
// named {id}_{original-name} so the ID is recoverable by glob.
type FileStore struct {
	uploadDir string
	outputDir string
	schemaDir string
}

// NewFileStore creates a store over the three directories. They must
// already exist; config creates them at startup.
func NewFileStore(uploadDir, outputDir, schemaDir string) *FileStore {
	return &FileStore{
		uploadDir: uploadDir,
		outputDir: outputDir,
		schemaDir: schemaDir,
	}
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// sanitizeName strips path components and shell-hostile characters from
// an uploaded filename.
func sanitizeName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	base = unsafeChars.ReplaceAllString(base, "_")
	if base == "" || base == "." {
		return "upload"
	}
	return base
}

// SaveUpload persists an uploaded file and returns its generated ID.
// Only supported tabular formats are accepted.
func (s *FileStore) SaveUpload(filename string, r io.Reader) (*FileInfo, error) {
	if !connector.IsSupported(filename) {
		return nil, fmt.Errorf("%w: %s", ErrExtensionNotAllowed, filepath.Ext(filename))
	}

	id := uuid.New().String()
	name := sanitizeName(filename)
	path := filepath.Join(s.uploadDir, id+"_"+name)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create upload: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("write upload: %w", err)
	}

	return &FileInfo{
		ID:       id,
		Name:     name,
		Size:     size,
		ModTime:  time.Now(),
		Location: path,
	}, nil
}

// AllocateOutput reserves a path for a cleaned result file and returns
// its ID. Nothing is written; the connector does that.
func (s *FileStore) AllocateOutput(baseName string) (id, path string) {
	id = uuid.New().String()
	return id, filepath.Join(s.outputDir, id+"_"+sanitizeName(baseName))
}

// Lookup resolves a file ID to its on-disk info, searching uploads and
// outputs. IDs must parse as UUIDs; anything else would reach the glob
// below as a pattern.
func (s *FileStore) Lookup(fileID string) (*FileInfo, error) {
	if _, err := uuid.Parse(fileID); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, fileID)
	}
	for _, dir := range []string{s.uploadDir, s.outputDir} {
		matches, err := filepath.Glob(filepath.Join(dir, fileID+"_*"))
		if err != nil || len(matches) == 0 {
			continue
		}
		return statFile(fileID, matches[0])
	}
	return nil, fmt.Errorf("%w: %s", ErrFileNotFound, fileID)
}

// Delete removes a stored file by ID.
func (s *FileStore) Delete(fileID string) error {
	info, err := s.Lookup(fileID)
	if err != nil {
		return err
	}
	if err := os.Remove(info.Location); err != nil {
		return fmt.Errorf("delete file %s: %w", fileID, err)
	}
	return nil
}

// List enumerates stored uploads and outputs.
func (s *FileStore) List() ([]*FileInfo, error) {
	var files []*FileInfo
	for _, dir := range []string{s.uploadDir, s.outputDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("list files: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			id, _, ok := strings.Cut(entry.Name(), "_")
			if !ok {
				continue
			}
			info, err := statFile(id, filepath.Join(dir, entry.Name()))
			if err != nil {
				continue
			}
			files = append(files, info)
		}
	}
	return files, nil
}

// SaveSchema persists schema YAML and returns its ID.
func (s *FileStore) SaveSchema(data []byte) (string, error) {
	id := uuid.New().String()
	path := filepath.Join(s.schemaDir, id+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write schema: %w", err)
	}
	return id, nil
}

// SchemaPath resolves a schema ID to its file path. Non-UUID IDs are
// rejected before they can name a path outside the schema directory.
func (s *FileStore) SchemaPath(schemaID string) (string, error) {
	if _, err := uuid.Parse(schemaID); err != nil {
		return "", fmt.Errorf("%w: schema %s", ErrFileNotFound, schemaID)
	}
	path := filepath.Join(s.schemaDir, schemaID+".yaml")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: schema %s", ErrFileNotFound, schemaID)
	}
	return path, nil
}

func statFile(id, path string) (*FileInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	name := strings.TrimPrefix(filepath.Base(path), id+"_")
	return &FileInfo{
		ID:       id,
		Name:     name,
		Size:     st.Size(),
		ModTime:  st.ModTime(),
		Location: path,
	}, nil
}
