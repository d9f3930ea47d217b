package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Corner-Boxing/corner-backend/internal/model"
)

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrNoQueuedJob       = errors.New("no queued job")
	ErrJobNotClaimable   = errors.New("job is not queued")
	ErrInvalidTransition = errors.New("invalid job transition")
)

// JobStore persists class jobs. Claim and ClaimNext move a job from queued
// to processing as one indivisible step, so concurrent workers never own the
// same job. Complete and Fail only apply to processing jobs.
type JobStore interface {
	Insert(ctx context.Context, job *model.Job) error
	// ClaimNext claims one queued job or returns ErrNoQueuedJob.
	ClaimNext(ctx context.Context) (*model.Job, error)
	// Claim claims the given job. It returns ErrJobNotClaimable if the job
	// exists but is no longer queued.
	Claim(ctx context.Context, id string) (*model.Job, error)
	Complete(ctx context.Context, id, fileURL string) error
	Fail(ctx context.Context, id, message string) error
	Get(ctx context.Context, id string) (*model.Job, error)
	// List returns the newest jobs first. An empty status matches all.
	List(ctx context.Context, status model.JobStatus, limit int) ([]*model.Job, error)
	Close() error
}

func checkInsert(job *model.Job) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("store: job without id")
	}
	if job.Status != model.JobStatusQueued {
		return fmt.Errorf("%w: insert with status %q", ErrInvalidTransition, job.Status)
	}
	return nil
}

func checkTerminal(status model.JobStatus, detail string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("%w: %q is not terminal", ErrInvalidTransition, status)
	}
	if strings.TrimSpace(detail) == "" {
		if status == model.JobStatusDone {
			return fmt.Errorf("%w: done without file url", ErrInvalidTransition)
		}
		return fmt.Errorf("%w: error without message", ErrInvalidTransition)
	}
	return nil
}

func cloneJob(j *model.Job) *model.Job {
	c := *j
	if j.FileURL != nil {
		v := *j.FileURL
		c.FileURL = &v
	}
	if j.Error != nil {
		v := *j.Error
		c.Error = &v
	}
	return &c
}
