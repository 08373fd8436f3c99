package job

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the current status of a job
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// JobStage represents the current processing stage
type JobStage string

const (
	StageSampling   JobStage = "sampling"
	StageClustering JobStage = "clustering"
	StageRendering  JobStage = "rendering"
	StagePlugins    JobStage = "plugins"
	StagePublishing JobStage = "publishing"
	StageCompleted  JobStage = "completed"
	StageFailed     JobStage = "failed"
)

// Job is one palette extraction run
type Job struct {
	ID           uuid.UUID       `json:"id"`
	VideoPath    string          `json:"video_path"`
	OutputDir    string          `json:"output_dir"`
	Status       JobStatus       `json:"status"`
	Stage        JobStage        `json:"stage,omitempty"`
	Progress     int             `json:"progress"`
	WorkflowID   string          `json:"workflow_id,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	PaletteHex   []string        `json:"palette_hex,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// ProgressEvent represents a single progress update event
type ProgressEvent struct {
	ID        int64           `json:"id"`
	JobID     uuid.UUID       `json:"job_id"`
	Stage     JobStage        `json:"stage"`
	Progress  int             `json:"progress"`
	Message   string          `json:"message"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// JobWithProgress combines job info with recent progress events
type JobWithProgress struct {
	Job
	LatestEvents []ProgressEvent `json:"latest_events"`
}

// ProgressUpdate is what subscribers receive for every emitted event
type ProgressUpdate struct {
	JobID     uuid.UUID              `json:"job_id"`
	Stage     JobStage               `json:"stage"`
	Progress  int                    `json:"progress"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}
