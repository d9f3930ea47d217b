package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Corner-Boxing/corner-backend/internal/audio"
	"github.com/Corner-Boxing/corner-backend/internal/model"
	"github.com/Corner-Boxing/corner-backend/internal/service"
	"github.com/Corner-Boxing/corner-backend/internal/store"
	"github.com/Corner-Boxing/corner-backend/internal/websocket"
)

// Renderer turns a plan into audio
type Renderer interface {
	Build(ctx context.Context, plan *model.ClassPlan) (*audio.Track, error)
}

// Exporter persists a rendered track and returns its URL
type Exporter interface {
	ExportAndUpload(ctx context.Context, track *audio.Track, meta model.ExportMeta) (string, error)
}

// Processor claims queued class jobs and renders them
type Processor struct {
	store        store.JobStore
	renderer     Renderer
	exporter     Exporter
	hub          *websocket.Hub
	pollInterval time.Duration
}

// NewProcessor creates a processor. hub may be nil.
func NewProcessor(jobStore store.JobStore, renderer Renderer, exporter Exporter, hub *websocket.Hub, pollInterval time.Duration) *Processor {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Processor{
		store:        jobStore,
		renderer:     renderer,
		exporter:     exporter,
		hub:          hub,
		pollInterval: pollInterval,
	}
}

// Run polls the store until ctx is done. Each iteration claims at most one
// job; when nothing is queued the loop sleeps for the poll interval.
func (p *Processor) Run(ctx context.Context) {
	log.Printf("Class worker started (poll interval %s)", p.pollInterval)
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Class worker stopped")
			return
		case <-timer.C:
		}

		processed, err := p.ProcessNext(ctx)
		if err != nil && ctx.Err() == nil {
			log.Printf("Failed to claim class job: %v", err)
		}
		if processed {
			timer.Reset(0)
		} else {
			timer.Reset(p.pollInterval)
		}
	}
}

// ProcessNext claims and processes one queued job. It reports false when
// the queue was empty.
func (p *Processor) ProcessNext(ctx context.Context) (bool, error) {
	job, err := p.store.ClaimNext(ctx)
	if errors.Is(err, store.ErrNoQueuedJob) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	p.process(ctx, job)
	return true, nil
}

// ProcessTask handles the asynq task enqueued at submission. If the poller
// already owns the job there is nothing to do.
func (p *Processor) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload service.ClassTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	job, err := p.store.Claim(ctx, payload.JobID)
	switch {
	case errors.Is(err, store.ErrJobNotClaimable):
		log.Printf("Class job %s already claimed, skipping task", payload.JobID)
		return nil
	case errors.Is(err, store.ErrJobNotFound):
		log.Printf("Class job %s not found, skipping task", payload.JobID)
		return nil
	case err != nil:
		return fmt.Errorf("failed to claim job %s: %w", payload.JobID, err)
	}

	p.process(ctx, job)
	return nil
}

// process runs a claimed job to a terminal state. Once claimed the job is
// not cancelled, so the caller's cancellation is dropped here.
func (p *Processor) process(ctx context.Context, job *model.Job) {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	log.Printf("Starting class job: %s", job.ID)
	p.hub.BroadcastStatus(job.ID, model.JobStatusProcessing, "Rendering class...")

	url, err := p.render(ctx, job)
	if err != nil {
		p.failJob(ctx, job.ID, err.Error())
		log.Printf("Class job %s failed after %s: %v", job.ID, time.Since(start).Round(time.Millisecond), err)
		return
	}

	if err := p.store.Complete(ctx, job.ID, url); err != nil {
		log.Printf("Failed to mark job %s as done: %v", job.ID, err)
		p.failJob(ctx, job.ID, "failed to record result: "+err.Error())
		return
	}
	p.hub.BroadcastStatus(job.ID, model.JobStatusDone, "")
	p.hub.BroadcastComplete(job.ID, url)
	log.Printf("Class job %s completed in %s", job.ID, time.Since(start).Round(time.Millisecond))
}

func (p *Processor) render(ctx context.Context, job *model.Job) (url string, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic in class job %s: %v\n%s", job.ID, r, debug.Stack())
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	if job.Plan == nil {
		return "", fmt.Errorf("job has no plan")
	}

	track, err := p.renderer.Build(ctx, job.Plan)
	if err != nil {
		return "", fmt.Errorf("render failed: %w", err)
	}
	p.hub.BroadcastStatus(job.ID, model.JobStatusProcessing, "Uploading...")

	url, err = p.exporter.ExportAndUpload(ctx, track, model.ExportMeta{
		Difficulty: job.Plan.Difficulty,
		LengthMin:  job.Plan.LengthMin,
		Pace:       job.Plan.Pace,
		Timestamp:  time.Now(),
	})
	if err != nil {
		return "", err
	}
	if url == "" {
		return "", fmt.Errorf("upload returned an empty url")
	}
	return url, nil
}

func (p *Processor) failJob(ctx context.Context, jobID, errMsg string) {
	if err := p.store.Fail(ctx, jobID, errMsg); err != nil {
		log.Printf("Failed to mark job as failed: %v", err)
	}
	p.hub.BroadcastStatus(jobID, model.JobStatusError, "")
	p.hub.BroadcastError(jobID, "RENDER_FAILED", errMsg)
}
