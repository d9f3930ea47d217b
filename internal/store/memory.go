package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Corner-Boxing/corner-backend/internal/model"
)

// MemoryStore keeps jobs in process. One mutex guards both the job table
// and the queue, so a claim is a single critical section.
type MemoryStore struct {
	mu     sync.Mutex
	jobs   map[string]*model.Job
	queued []string
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]*model.Job),
		now:  time.Now,
	}
}

func (s *MemoryStore) Insert(ctx context.Context, job *model.Job) error {
	if err := checkInsert(job); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("store: duplicate job %s", job.ID)
	}
	s.jobs[job.ID] = cloneJob(job)
	s.queued = append(s.queued, job.ID)
	return nil
}

func (s *MemoryStore) ClaimNext(ctx context.Context) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.queued) > 0 {
		id := s.queued[0]
		s.queued = s.queued[1:]
		job, ok := s.jobs[id]
		if !ok || job.Status != model.JobStatusQueued {
			continue
		}
		s.markProcessing(job)
		return cloneJob(job), nil
	}
	return nil, ErrNoQueuedJob
}

func (s *MemoryStore) Claim(ctx context.Context, id string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	if job.Status != model.JobStatusQueued {
		return nil, ErrJobNotClaimable
	}
	s.markProcessing(job)
	// ClaimNext skips ids that are no longer queued, so the queue entry
	// can stay.
	return cloneJob(job), nil
}

func (s *MemoryStore) markProcessing(job *model.Job) {
	job.Status = model.JobStatusProcessing
	job.UpdatedAt = s.now().UTC()
}

func (s *MemoryStore) Complete(ctx context.Context, id, fileURL string) error {
	return s.finish(id, model.JobStatusDone, fileURL)
}

func (s *MemoryStore) Fail(ctx context.Context, id, message string) error {
	return s.finish(id, model.JobStatusError, message)
}

func (s *MemoryStore) finish(id string, status model.JobStatus, detail string) error {
	if err := checkTerminal(status, detail); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if job.Status != model.JobStatusProcessing {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, status)
	}
	job.Status = status
	if status == model.JobStatusDone {
		job.FileURL = &detail
	} else {
		job.Error = &detail
	}
	job.UpdatedAt = s.now().UTC()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return cloneJob(job), nil
}

func (s *MemoryStore) List(ctx context.Context, status model.JobStatus, limit int) ([]*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if status != "" && job.Status != status {
			continue
		}
		out = append(out, cloneJob(job))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
