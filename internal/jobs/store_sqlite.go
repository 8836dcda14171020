package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dataclean/internal/cleaner"
	"dataclean/internal/validator"
)

// jobRecord is the persisted shape of a Job. Structured fields are
// stored as JSON blobs so the schema stays stable as report fields grow.
type jobRecord struct {
	ID           string `gorm:"primaryKey"`
	FileID       string `gorm:"index"`
	Mode         string
	Status       string `gorm:"index"`
	Progress     int
	Step         string
	Message      string
	Error        string
	CreatedAt    time.Time `gorm:"index"`
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ResultFileID string
	OptionsJSON  []byte
	ReportJSON   []byte
	ValidationJSON []byte
}

func (jobRecord) TableName() string { return "jobs" }

// SQLiteStore persists jobs in a SQLite database so job history
// survives restarts.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (or creates) the database and migrates the jobs
// table.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open job database: %w", err)
	}
	if err := db.AutoMigrate(&jobRecord{}); err != nil {
		return nil, fmt.Errorf("migrate job database: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Create creates a new job
func (s *SQLiteStore) Create(job *Job) error {
	rec, err := toRecord(job)
	if err != nil {
		return err
	}
	if err := s.db.Create(rec).Error; err != nil {
		return fmt.Errorf("create job %s: %w", job.ID, err)
	}
	return nil
}

// Get retrieves a job by ID
func (s *SQLiteStore) Get(id string) (*Job, error) {
	var rec jobRecord
	err := s.db.First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return fromRecord(&rec)
}

// Update updates an existing job
func (s *SQLiteStore) Update(job *Job) error {
	rec, err := toRecord(job)
	if err != nil {
		return err
	}
	res := s.db.Model(&jobRecord{}).Where("id = ?", job.ID).Select("*").Updates(rec)
	if res.Error != nil {
		return fmt.Errorf("update job %s: %w", job.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, job.ID)
	}
	return nil
}

// List returns jobs matching the filter, newest first
func (s *SQLiteStore) List(filter Filter) ([]*Job, error) {
	q := s.db.Model(&jobRecord{}).Order("created_at desc")
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.FileID != "" {
		q = q.Where("file_id = ?", filter.FileID)
	}
	if !filter.Since.IsZero() {
		q = q.Where("created_at >= ?", filter.Since)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var recs []jobRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	jobs := make([]*Job, 0, len(recs))
	for i := range recs {
		job, err := fromRecord(&recs[i])
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Delete removes a job
func (s *SQLiteStore) Delete(id string) error {
	res := s.db.Delete(&jobRecord{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete job %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return nil
}

func toRecord(job *Job) (*jobRecord, error) {
	options, err := json.Marshal(job.Options)
	if err != nil {
		return nil, fmt.Errorf("encode job options: %w", err)
	}
	rec := &jobRecord{
		ID:           job.ID,
		FileID:       job.FileID,
		Mode:         string(job.Mode),
		Status:       string(job.Status),
		Progress:     job.Progress,
		Step:         job.Step,
		Message:      job.Message,
		Error:        job.Error,
		CreatedAt:    job.CreatedAt,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
		ResultFileID: job.ResultFileID,
		OptionsJSON:  options,
	}
	if job.Report != nil {
		if rec.ReportJSON, err = json.Marshal(job.Report); err != nil {
			return nil, fmt.Errorf("encode job report: %w", err)
		}
	}
	if job.Validation != nil {
		if rec.ValidationJSON, err = json.Marshal(job.Validation); err != nil {
			return nil, fmt.Errorf("encode job validation: %w", err)
		}
	}
	return rec, nil
}

func fromRecord(rec *jobRecord) (*Job, error) {
	job := &Job{
		ID:           rec.ID,
		FileID:       rec.FileID,
		Mode:         cleaner.Mode(rec.Mode),
		Status:       Status(rec.Status),
		Progress:     rec.Progress,
		Step:         rec.Step,
		Message:      rec.Message,
		Error:        rec.Error,
		CreatedAt:    rec.CreatedAt,
		StartedAt:    rec.StartedAt,
		CompletedAt:  rec.CompletedAt,
		ResultFileID: rec.ResultFileID,
	}
	if len(rec.OptionsJSON) > 0 {
		if err := json.Unmarshal(rec.OptionsJSON, &job.Options); err != nil {
			return nil, fmt.Errorf("decode job options: %w", err)
		}
	}
	if len(rec.ReportJSON) > 0 {
		job.Report = &cleaner.Report{}
		if err := json.Unmarshal(rec.ReportJSON, job.Report); err != nil {
			return nil, fmt.Errorf("decode job report: %w", err)
		}
	}
	if len(rec.ValidationJSON) > 0 {
		job.Validation = &validator.Result{}
		if err := json.Unmarshal(rec.ValidationJSON, job.Validation); err != nil {
			return nil, fmt.Errorf("decode job validation: %w", err)
		}
	}
	return job, nil
}
