package job

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Recorder persists job state. *Store implements it.
type Recorder interface {
	CreateJob(ctx context.Context, jobID uuid.UUID, videoPath, outputDir, workflowID string) (*Job, error)
	UpdateJobStatus(ctx context.Context, jobID uuid.UUID, status JobStatus, stage JobStage, progress int) error
	UpdateJobError(ctx context.Context, jobID uuid.UUID, errorMessage string) error
	UpdateJobResult(ctx context.Context, jobID uuid.UUID, paletteHex []string, result interface{}) error
	AddProgressEvent(ctx context.Context, jobID uuid.UUID, stage JobStage, progress int, message string, details map[string]interface{}) error
}

// Manager handles job lifecycle and fans progress out to subscribers.
// With a nil Recorder nothing is persisted and updates are only logged
// and broadcast.
type Manager struct {
	store     Recorder
	logger    *zap.Logger
	clients   map[uuid.UUID][]chan ProgressUpdate
	clientsMu sync.RWMutex
}

// NewManager creates a new job manager
func NewManager(store Recorder, logger *zap.Logger) *Manager {
	return &Manager{
		store:   store,
		logger:  logger,
		clients: make(map[uuid.UUID][]chan ProgressUpdate),
	}
}

// Start records a new job for a run
func (m *Manager) Start(ctx context.Context, jobID uuid.UUID, videoPath, outputDir, workflowID string) error {
	if m.store != nil {
		if _, err := m.store.CreateJob(ctx, jobID, videoPath, outputDir, workflowID); err != nil {
			m.logger.Error("Failed to create job", zap.String("job_id", jobID.String()), zap.Error(err))
			return err
		}
	}

	m.logger.Info("Job created",
		zap.String("job_id", jobID.String()),
		zap.String("video", videoPath),
		zap.String("workflow_id", workflowID),
	)
	return nil
}

// EmitProgress emits a progress update for a job
func (m *Manager) EmitProgress(ctx context.Context, jobID uuid.UUID, stage JobStage, progress int, message string, details map[string]interface{}) error {
	if m.store != nil {
		status := StatusProcessing
		if progress >= 100 {
			status = StatusCompleted
		}

		if err := m.store.UpdateJobStatus(ctx, jobID, status, stage, progress); err != nil {
			m.logger.Error("Failed to update job status",
				zap.String("job_id", jobID.String()),
				zap.Error(err),
			)
			return err
		}

		if err := m.store.AddProgressEvent(ctx, jobID, stage, progress, message, details); err != nil {
			m.logger.Error("Failed to add progress event",
				zap.String("job_id", jobID.String()),
				zap.Error(err),
			)
			return err
		}
	}

	m.broadcastUpdate(jobID, ProgressUpdate{
		JobID:     jobID,
		Stage:     stage,
		Progress:  progress,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	})

	m.logger.Info("Progress emitted",
		zap.String("job_id", jobID.String()),
		zap.String("stage", string(stage)),
		zap.Int("progress", progress),
		zap.String("message", message),
	)

	return nil
}

// EmitError marks a job failed
func (m *Manager) EmitError(ctx context.Context, jobID uuid.UUID, errorMessage string) error {
	if m.store != nil {
		if err := m.store.UpdateJobError(ctx, jobID, errorMessage); err != nil {
			m.logger.Error("Failed to update job error",
				zap.String("job_id", jobID.String()),
				zap.Error(err),
			)
			return err
		}
	}

	m.broadcastUpdate(jobID, ProgressUpdate{
		JobID:     jobID,
		Stage:     StageFailed,
		Message:   errorMessage,
		Timestamp: time.Now(),
	})

	m.logger.Error("Job failed",
		zap.String("job_id", jobID.String()),
		zap.String("error", errorMessage),
	)

	return nil
}

// Complete stores the run result and emits the final progress event
func (m *Manager) Complete(ctx context.Context, jobID uuid.UUID, paletteHex []string, result interface{}) error {
	if m.store != nil {
		if err := m.store.UpdateJobResult(ctx, jobID, paletteHex, result); err != nil {
			m.logger.Error("Failed to complete job",
				zap.String("job_id", jobID.String()),
				zap.Error(err),
			)
			return err
		}
	}

	details := map[string]interface{}{"palette_hex": paletteHex}
	if err := m.EmitProgress(ctx, jobID, StageCompleted, 100, "Palette extraction completed", details); err != nil {
		return err
	}

	m.logger.Info("Job completed", zap.String("job_id", jobID.String()))
	return nil
}

// Subscribe returns a channel receiving every update for jobID
func (m *Manager) Subscribe(jobID uuid.UUID) chan ProgressUpdate {
	m.clientsMu.Lock()
	defer m.clientsMu.Unlock()

	ch := make(chan ProgressUpdate, 16)
	m.clients[jobID] = append(m.clients[jobID], ch)
	return ch
}

// Unsubscribe removes and closes a subscriber channel
func (m *Manager) Unsubscribe(jobID uuid.UUID, ch chan ProgressUpdate) {
	m.clientsMu.Lock()
	defer m.clientsMu.Unlock()

	clients := m.clients[jobID]
	for i, client := range clients {
		if client == ch {
			m.clients[jobID] = append(clients[:i], clients[i+1:]...)
			close(ch)
			break
		}
	}

	if len(m.clients[jobID]) == 0 {
		delete(m.clients, jobID)
	}
}

func (m *Manager) broadcastUpdate(jobID uuid.UUID, update ProgressUpdate) {
	m.clientsMu.RLock()
	defer m.clientsMu.RUnlock()

	for _, ch := range m.clients[jobID] {
		select {
		case ch <- update:
		default:
			m.logger.Warn("Subscriber channel full, skipping update",
				zap.String("job_id", jobID.String()),
			)
		}
	}
}
