package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/Corner-Boxing/corner-backend/internal/model"
	"github.com/Corner-Boxing/corner-backend/internal/planner"
	"github.com/Corner-Boxing/corner-backend/internal/store"
)

const (
	TaskTypeClassRender = "class:render"
	QueueClass          = "class"
)

// ClassService handles class submission and status lookups
type ClassService struct {
	store       store.JobStore
	planner     *planner.Generator
	asynqClient *asynq.Client
}

// NewClassService creates a class service. asynqClient may be nil, in which
// case queued jobs are only picked up by the polling worker.
func NewClassService(jobStore store.JobStore, gen *planner.Generator, asynqClient *asynq.Client) *ClassService {
	return &ClassService{
		store:       jobStore,
		planner:     gen,
		asynqClient: asynqClient,
	}
}

// Preview builds a plan without queuing anything
func (s *ClassService) Preview(params model.ClassParams) *model.ClassPlan {
	return s.planner.BuildClassPlan(params)
}

// Submit builds the plan and queues a render job. It returns as soon as the
// job is stored.
func (s *ClassService) Submit(ctx context.Context, params model.ClassParams) (*model.GenerateResponse, error) {
	plan := s.planner.BuildClassPlan(params)
	now := time.Now().UTC()

	job := &model.Job{
		ID:        uuid.New().String(),
		Status:    model.JobStatusQueued,
		Plan:      plan,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Insert(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	if s.asynqClient != nil {
		if err := s.enqueue(job.ID); err != nil {
			// the poller still finds the job
			log.Printf("Failed to enqueue class task for job %s: %v", job.ID, err)
		}
	}

	return &model.GenerateResponse{
		JobID:     job.ID,
		Status:    job.Status,
		Plan:      plan,
		CreatedAt: now,
	}, nil
}

func (s *ClassService) enqueue(jobID string) error {
	task, err := NewClassRenderTask(jobID)
	if err != nil {
		return err
	}
	_, err = s.asynqClient.Enqueue(task,
		asynq.Queue(QueueClass),
		asynq.MaxRetry(0),
		asynq.Retention(time.Hour),
	)
	return err
}

// GetStatus returns the current state of a class job
func (s *ClassService) GetStatus(ctx context.Context, jobID string) (*model.JobStatusResponse, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return &model.JobStatusResponse{
		JobID:     job.ID,
		Status:    job.Status,
		FileURL:   job.FileURL,
		Error:     job.Error,
		Plan:      job.Plan,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}, nil
}

// ClassTaskPayload is the asynq payload for TaskTypeClassRender
type ClassTaskPayload struct {
	JobID string `json:"jobId"`
}

func NewClassRenderTask(jobID string) (*asynq.Task, error) {
	data, err := json.Marshal(ClassTaskPayload{JobID: jobID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeClassRender, data), nil
}
