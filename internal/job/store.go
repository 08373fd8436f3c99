package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrJobNotFound is returned when no job has the requested ID
var ErrJobNotFound = errors.New("job not found")

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id            UUID PRIMARY KEY,
	video_path    TEXT NOT NULL,
	output_dir    TEXT NOT NULL,
	status        TEXT NOT NULL,
	stage         TEXT,
	progress      INTEGER NOT NULL DEFAULT 0,
	workflow_id   TEXT,
	error_message TEXT,
	palette_hex   TEXT[],
	result        JSONB,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL,
	completed_at  TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS progress_events (
	id         BIGSERIAL PRIMARY KEY,
	job_id     UUID NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
	stage      TEXT NOT NULL,
	progress   INTEGER NOT NULL,
	message    TEXT NOT NULL,
	details    JSONB,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS progress_events_job_id_idx ON progress_events (job_id, created_at);
`

// Connect opens a pgx pool for dsn and verifies it with a ping
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return pool, nil
}

// Store handles database operations for jobs
type Store struct {
	db *pgxpool.Pool
}

// NewStore creates a new job store
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the jobs and progress_events tables if missing
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create job schema: %w", err)
	}
	return nil
}

// CreateJob inserts a pending job with the given ID
func (s *Store) CreateJob(ctx context.Context, jobID uuid.UUID, videoPath, outputDir, workflowID string) (*Job, error) {
	now := time.Now()
	job := &Job{
		ID:         jobID,
		VideoPath:  videoPath,
		OutputDir:  outputDir,
		Status:     StatusPending,
		WorkflowID: workflowID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	query := `
		INSERT INTO jobs (id, video_path, output_dir, status, progress, workflow_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.Exec(ctx, query,
		job.ID, job.VideoPath, job.OutputDir, job.Status,
		job.Progress, job.WorkflowID,
		job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	return job, nil
}

// GetJob retrieves a job by ID
func (s *Store) GetJob(ctx context.Context, jobID uuid.UUID) (*Job, error) {
	query := `
		SELECT id, video_path, output_dir, status, stage, progress, workflow_id,
		       error_message, palette_hex, result, created_at, updated_at, completed_at
		FROM jobs
		WHERE id = $1
	`

	var job Job
	var stage, errorMessage, workflowID *string
	var result []byte

	err := s.db.QueryRow(ctx, query, jobID).Scan(
		&job.ID, &job.VideoPath, &job.OutputDir, &job.Status, &stage, &job.Progress,
		&workflowID, &errorMessage, &job.PaletteHex, &result,
		&job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	if stage != nil {
		job.Stage = JobStage(*stage)
	}
	if errorMessage != nil {
		job.ErrorMessage = *errorMessage
	}
	if workflowID != nil {
		job.WorkflowID = *workflowID
	}
	if result != nil {
		job.Result = result
	}

	return &job, nil
}

// GetJobWithProgress retrieves a job with its latest progress events, oldest first
func (s *Store) GetJobWithProgress(ctx context.Context, jobID uuid.UUID, limit int) (*JobWithProgress, error) {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, job_id, stage, progress, message, details, created_at
		FROM progress_events
		WHERE job_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get progress events: %w", err)
	}
	defer rows.Close()

	var events []ProgressEvent
	for rows.Next() {
		var event ProgressEvent
		var details []byte

		err := rows.Scan(
			&event.ID, &event.JobID, &event.Stage, &event.Progress,
			&event.Message, &details, &event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress event: %w", err)
		}

		if details != nil {
			event.Details = details
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating progress events: %w", err)
	}

	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}

	return &JobWithProgress{
		Job:          *job,
		LatestEvents: events,
	}, nil
}

// UpdateJobStatus updates the job status and stage
func (s *Store) UpdateJobStatus(ctx context.Context, jobID uuid.UUID, status JobStatus, stage JobStage, progress int) error {
	query := `
		UPDATE jobs
		SET status = $2, stage = $3, progress = $4, updated_at = $5
		WHERE id = $1
	`

	_, err := s.db.Exec(ctx, query, jobID, status, stage, progress, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	return nil
}

// UpdateJobError marks the job failed with an error message
func (s *Store) UpdateJobError(ctx context.Context, jobID uuid.UUID, errorMessage string) error {
	query := `
		UPDATE jobs
		SET status = $2, stage = $3, error_message = $4, updated_at = $5, completed_at = $6
		WHERE id = $1
	`

	now := time.Now()
	_, err := s.db.Exec(ctx, query, jobID, StatusFailed, StageFailed, errorMessage, now, now)
	if err != nil {
		return fmt.Errorf("failed to update job error: %w", err)
	}

	return nil
}

// UpdateJobResult stores the palette and final result and completes the job
func (s *Store) UpdateJobResult(ctx context.Context, jobID uuid.UUID, paletteHex []string, result interface{}) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if paletteHex == nil {
		paletteHex = []string{}
	}

	query := `
		UPDATE jobs
		SET status = $2, stage = $3, progress = $4, palette_hex = $5, result = $6,
		    updated_at = $7, completed_at = $8
		WHERE id = $1
	`

	now := time.Now()
	_, err = s.db.Exec(ctx, query,
		jobID, StatusCompleted, StageCompleted, 100, paletteHex, resultJSON, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to update job result: %w", err)
	}

	return nil
}

// AddProgressEvent adds a progress event to the database
func (s *Store) AddProgressEvent(ctx context.Context, jobID uuid.UUID, stage JobStage, progress int, message string, details map[string]interface{}) error {
	var detailsJSON []byte
	var err error

	if details != nil {
		detailsJSON, err = json.Marshal(details)
		if err != nil {
			return fmt.Errorf("failed to marshal details: %w", err)
		}
	}

	query := `
		INSERT INTO progress_events (job_id, stage, progress, message, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = s.db.Exec(ctx, query, jobID, stage, progress, message, detailsJSON, time.Now())
	if err != nil {
		return fmt.Errorf("failed to add progress event: %w", err)
	}

	return nil
}

// CleanupOldJobs deletes jobs older than the specified duration
func (s *Store) CleanupOldJobs(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoffTime := time.Now().Add(-olderThan)

	result, err := s.db.Exec(ctx, `DELETE FROM jobs WHERE created_at < $1`, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old jobs: %w", err)
	}

	return result.RowsAffected(), nil
}
