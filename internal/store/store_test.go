package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Corner-Boxing/corner-backend/internal/config"
	"github.com/Corner-Boxing/corner-backend/internal/model"
)

type factory func(t *testing.T) JobStore

func backends(t *testing.T) map[string]factory {
	t.Helper()
	return map[string]factory{
		"memory": func(t *testing.T) JobStore { return NewMemoryStore() },
		"sqlite": func(t *testing.T) JobStore {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "jobs.db"))
			if err != nil {
				t.Fatalf("NewSQLiteStore: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		},
		"redis": func(t *testing.T) JobStore {
			client := redis.NewClient(&redis.Options{
				Addr: "localhost:6379",
				DB:   15, // use DB 15 for tests to avoid collision
			})
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := client.Ping(ctx).Err(); err != nil {
				client.Close()
				t.Skipf("redis not available: %v", err)
			}
			t.Cleanup(func() { client.Close() })
			return NewRedisStore(client, "test-"+uuid.NewString())
		},
	}
}

func newJob(created time.Time) *model.Job {
	return &model.Job{
		ID:     uuid.New().String(),
		Status: model.JobStatusQueued,
		Plan: &model.ClassPlan{
			Difficulty: model.DifficultyBeginner,
			LengthMin:  60,
			Pace:       model.PaceNormal,
			Music:      "None",
			NumRounds:  14,
			Segments:   []model.Segment{{Type: model.SegmentIntro, File: "intro_outro/intro.mp3"}},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s JobStore)) {
	for name, mk := range backends(t) {
		t.Run(name, func(t *testing.T) {
			fn(t, mk(t))
		})
	}
}

// --- State machine ---

func TestInsertAndGet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s JobStore) {
		ctx := context.Background()
		job := newJob(time.Now().UTC())
		if err := s.Insert(ctx, job); err != nil {
			t.Fatalf("Insert: %v", err)
		}

		got, err := s.Get(ctx, job.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Status != model.JobStatusQueued {
			t.Errorf("Status = %s", got.Status)
		}
		if got.Plan == nil || got.Plan.NumRounds != 14 || len(got.Plan.Segments) != 1 {
			t.Errorf("plan not preserved: %+v", got.Plan)
		}
		if got.FileURL != nil || got.Error != nil {
			t.Error("new job must have neither file url nor error")
		}

		if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrJobNotFound) {
			t.Errorf("Get(missing) err = %v", err)
		}
	})
}

func TestInsertRejectsNonQueued(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s JobStore) {
		job := newJob(time.Now())
		job.Status = model.JobStatusDone
		if err := s.Insert(context.Background(), job); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("err = %v, want ErrInvalidTransition", err)
		}
	})
}

func TestClaimNextLifecycle(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s JobStore) {
		ctx := context.Background()

		if _, err := s.ClaimNext(ctx); !errors.Is(err, ErrNoQueuedJob) {
			t.Fatalf("empty ClaimNext err = %v", err)
		}

		job := newJob(time.Now().UTC())
		if err := s.Insert(ctx, job); err != nil {
			t.Fatal(err)
		}
		claimed, err := s.ClaimNext(ctx)
		if err != nil {
			t.Fatalf("ClaimNext: %v", err)
		}
		if claimed.ID != job.ID || claimed.Status != model.JobStatusProcessing {
			t.Fatalf("claimed = %s/%s", claimed.ID, claimed.Status)
		}
		if _, err := s.ClaimNext(ctx); !errors.Is(err, ErrNoQueuedJob) {
			t.Errorf("second ClaimNext err = %v", err)
		}

		if err := s.Complete(ctx, job.ID, "https://cdn.example.com/generated/a.mp3"); err != nil {
			t.Fatalf("Complete: %v", err)
		}
		got, _ := s.Get(ctx, job.ID)
		if got.Status != model.JobStatusDone || got.FileURL == nil || *got.FileURL == "" {
			t.Fatalf("after Complete: %+v", got)
		}
		if got.Error != nil {
			t.Error("done job carries an error")
		}

		// terminal states are final
		if err := s.Fail(ctx, job.ID, "late failure"); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("Fail after Done err = %v", err)
		}
		if err := s.Complete(ctx, job.ID, "https://other"); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("Complete after Done err = %v", err)
		}
		if _, err := s.Claim(ctx, job.ID); !errors.Is(err, ErrJobNotClaimable) {
			t.Errorf("Claim after Done err = %v", err)
		}
	})
}

func TestFailRecordsMessage(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s JobStore) {
		ctx := context.Background()
		job := newJob(time.Now().UTC())
		if err := s.Insert(ctx, job); err != nil {
			t.Fatal(err)
		}

		// queued jobs cannot jump straight to a terminal state
		if err := s.Fail(ctx, job.ID, "boom"); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("Fail on queued err = %v", err)
		}

		if _, err := s.Claim(ctx, job.ID); err != nil {
			t.Fatalf("Claim: %v", err)
		}
		if err := s.Fail(ctx, job.ID, ""); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("Fail with empty message err = %v", err)
		}
		if err := s.Complete(ctx, job.ID, " "); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("Complete with empty url err = %v", err)
		}
		if err := s.Fail(ctx, job.ID, "resource not found: tips"); err != nil {
			t.Fatalf("Fail: %v", err)
		}

		got, _ := s.Get(ctx, job.ID)
		if got.Status != model.JobStatusError || got.Error == nil || *got.Error != "resource not found: tips" {
			t.Fatalf("after Fail: %+v", got)
		}
		if got.FileURL != nil {
			t.Error("failed job carries a file url")
		}
		if err := s.Complete(ctx, job.ID, "https://x"); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("Complete after Error err = %v", err)
		}
	})
}

func TestTerminalOnUnknownJob(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s JobStore) {
		ctx := context.Background()
		if err := s.Complete(ctx, "nope", "https://x"); !errors.Is(err, ErrJobNotFound) {
			t.Errorf("Complete err = %v", err)
		}
		if _, err := s.Claim(ctx, "nope"); !errors.Is(err, ErrJobNotFound) {
			t.Errorf("Claim err = %v", err)
		}
	})
}

func TestClaimByIDThenClaimNextSkipsIt(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s JobStore) {
		ctx := context.Background()
		base := time.Now().UTC()
		first, second := newJob(base), newJob(base.Add(time.Second))
		for _, j := range []*model.Job{first, second} {
			if err := s.Insert(ctx, j); err != nil {
				t.Fatal(err)
			}
		}

		if _, err := s.Claim(ctx, first.ID); err != nil {
			t.Fatalf("Claim: %v", err)
		}
		next, err := s.ClaimNext(ctx)
		if err != nil {
			t.Fatalf("ClaimNext: %v", err)
		}
		if next.ID != second.ID {
			t.Errorf("ClaimNext = %s, want %s", next.ID, second.ID)
		}
	})
}

func TestList(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s JobStore) {
		ctx := context.Background()
		base := time.Now().UTC().Truncate(time.Millisecond)
		var ids []string
		for i := 0; i < 3; i++ {
			j := newJob(base.Add(time.Duration(i) * time.Second))
			if err := s.Insert(ctx, j); err != nil {
				t.Fatal(err)
			}
			ids = append(ids, j.ID)
		}
		if _, err := s.Claim(ctx, ids[0]); err != nil {
			t.Fatal(err)
		}

		all, err := s.List(ctx, "", 0)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(all) != 3 || all[0].ID != ids[2] || all[2].ID != ids[0] {
			t.Errorf("List order wrong: %d jobs", len(all))
		}

		queued, _ := s.List(ctx, model.JobStatusQueued, 0)
		if len(queued) != 2 {
			t.Errorf("queued = %d, want 2", len(queued))
		}
		limited, _ := s.List(ctx, "", 1)
		if len(limited) != 1 || limited[0].ID != ids[2] {
			t.Errorf("limited = %v", limited)
		}
	})
}

// --- Concurrency ---

func TestConcurrentClaimSameJob(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s JobStore) {
		ctx := context.Background()
		job := newJob(time.Now().UTC())
		if err := s.Insert(ctx, job); err != nil {
			t.Fatal(err)
		}

		const workers = 16
		var (
			wg        sync.WaitGroup
			wins      atomic.Int32
			start     = make(chan struct{})
			unexpected = make(chan error, workers*2)
		)
		for i := 0; i < workers; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				<-start
				_, err := s.Claim(ctx, job.ID)
				switch {
				case err == nil:
					wins.Add(1)
				case !errors.Is(err, ErrJobNotClaimable):
					unexpected <- err
				}
			}()
			go func() {
				defer wg.Done()
				<-start
				_, err := s.ClaimNext(ctx)
				switch {
				case err == nil:
					wins.Add(1)
				case !errors.Is(err, ErrNoQueuedJob):
					unexpected <- err
				}
			}()
		}
		close(start)
		wg.Wait()
		close(unexpected)

		for err := range unexpected {
			t.Errorf("unexpected claim error: %v", err)
		}
		if n := wins.Load(); n != 1 {
			t.Fatalf("%d claims succeeded, want exactly 1", n)
		}
	})
}

func TestConcurrentWorkersDrainQueueOnce(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s JobStore) {
		ctx := context.Background()
		const jobs = 20
		base := time.Now().UTC()
		for i := 0; i < jobs; i++ {
			if err := s.Insert(ctx, newJob(base.Add(time.Duration(i)*time.Millisecond))); err != nil {
				t.Fatal(err)
			}
		}

		var (
			mu   sync.Mutex
			seen = map[string]int{}
			wg   sync.WaitGroup
		)
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				misses := 0
				for misses < 3 {
					job, err := s.ClaimNext(ctx)
					if errors.Is(err, ErrNoQueuedJob) {
						misses++
						continue
					}
					if err != nil {
						t.Error(err)
						return
					}
					mu.Lock()
					seen[job.ID]++
					mu.Unlock()
					if err := s.Complete(ctx, job.ID, fmt.Sprintf("https://cdn/%s.mp3", job.ID)); err != nil {
						t.Error(err)
					}
				}
			}()
		}
		wg.Wait()

		if len(seen) != jobs {
			t.Errorf("claimed %d distinct jobs, want %d", len(seen), jobs)
		}
		for id, n := range seen {
			if n != 1 {
				t.Errorf("job %s claimed %d times", id, n)
			}
		}
	})
}

func TestOpenDrivers(t *testing.T) {
	st, err := Open(config.StoreConfig{Driver: "memory"}, nil)
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := st.(*MemoryStore); !ok {
		t.Errorf("memory driver returned %T", st)
	}

	st, err = Open(config.StoreConfig{Driver: "sqlite3", SQLitePath: filepath.Join(t.TempDir(), "db", "jobs.db")}, nil)
	if err != nil {
		t.Fatalf("sqlite3: %v", err)
	}
	st.Close()

	for _, cfg := range []config.StoreConfig{
		{Driver: "redis"},
		{Driver: "mysql"},
		{Driver: "postgres"},
	} {
		if _, err := Open(cfg, nil); err == nil {
			t.Errorf("Open(%q) should fail", cfg.Driver)
		}
	}
}
