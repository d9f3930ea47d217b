package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Corner-Boxing/corner-backend/internal/model"
)

// Each job is a hash at {prefix}:job:{id}. Queued ids wait in a list and
// every id is indexed by creation time in a sorted set. Status changes run
// as Lua scripts so check and write happen in one step on the server.

// claimNextScript pops ids until it finds one still queued.
// KEYS[1] queue list, ARGV[1] job key prefix, ARGV[2] timestamp
var claimNextScript = redis.NewScript(`
while true do
	local id = redis.call('RPOP', KEYS[1])
	if not id then
		return false
	end
	local key = ARGV[1] .. id
	if redis.call('HGET', key, 'status') == 'queued' then
		redis.call('HSET', key, 'status', 'processing', 'updated_at', ARGV[2])
		return id
	end
end
`)

// claimScript claims one job by id.
// KEYS[1] job key, KEYS[2] queue list, ARGV[1] id, ARGV[2] timestamp
var claimScript = redis.NewScript(`
local status = redis.call('HGET', KEYS[1], 'status')
if not status then
	return -1
end
if status ~= 'queued' then
	return 0
end
redis.call('HSET', KEYS[1], 'status', 'processing', 'updated_at', ARGV[2])
redis.call('LREM', KEYS[2], 0, ARGV[1])
return 1
`)

// finishScript moves a processing job to a terminal status.
// KEYS[1] job key, ARGV[1] status, ARGV[2] field, ARGV[3] value, ARGV[4] timestamp
var finishScript = redis.NewScript(`
local status = redis.call('HGET', KEYS[1], 'status')
if not status then
	return -1
end
if status ~= 'processing' then
	return status
end
redis.call('HSET', KEYS[1], 'status', ARGV[1], ARGV[2], ARGV[3], 'updated_at', ARGV[4])
return 1
`)

// RedisStore keeps jobs in Redis. No TTL is set; retention is handled
// outside the service.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "corner"
	}
	return &RedisStore{client: client, prefix: prefix, now: time.Now}
}

func (s *RedisStore) jobPrefix() string { return s.prefix + ":job:" }
func (s *RedisStore) jobKey(id string) string { return s.jobPrefix() + id }
func (s *RedisStore) queueKey() string { return s.prefix + ":jobs:queued" }
func (s *RedisStore) indexKey() string { return s.prefix + ":jobs:index" }

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func (s *RedisStore) Insert(ctx context.Context, job *model.Job) error {
	if err := checkInsert(job); err != nil {
		return err
	}
	plan, err := json.Marshal(job.Plan)
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}

	key := s.jobKey(job.ID)
	ok, err := s.client.HSetNX(ctx, key, "id", job.ID).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("store: duplicate job %s", job.ID)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"status", string(job.Status),
			"plan", string(plan),
			"created_at", stamp(job.CreatedAt),
			"updated_at", stamp(job.UpdatedAt),
		)
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(job.CreatedAt.UnixMilli()), Member: job.ID})
		pipe.LPush(ctx, s.queueKey(), job.ID)
		return nil
	})
	return err
}

func (s *RedisStore) ClaimNext(ctx context.Context) (*model.Job, error) {
	id, err := claimNextScript.Run(ctx, s.client,
		[]string{s.queueKey()}, s.jobPrefix(), stamp(s.now())).Text()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoQueuedJob
	}
	if err != nil {
		return nil, fmt.Errorf("claim next: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *RedisStore) Claim(ctx context.Context, id string) (*model.Job, error) {
	n, err := claimScript.Run(ctx, s.client,
		[]string{s.jobKey(id), s.queueKey()}, id, stamp(s.now())).Int()
	if err != nil {
		return nil, fmt.Errorf("claim %s: %w", id, err)
	}
	switch n {
	case -1:
		return nil, ErrJobNotFound
	case 0:
		return nil, ErrJobNotClaimable
	}
	return s.Get(ctx, id)
}

func (s *RedisStore) Complete(ctx context.Context, id, fileURL string) error {
	return s.finish(ctx, id, model.JobStatusDone, "file_url", fileURL)
}

func (s *RedisStore) Fail(ctx context.Context, id, message string) error {
	return s.finish(ctx, id, model.JobStatusError, "error", message)
}

func (s *RedisStore) finish(ctx context.Context, id string, status model.JobStatus, field, detail string) error {
	if err := checkTerminal(status, detail); err != nil {
		return err
	}
	res, err := finishScript.Run(ctx, s.client,
		[]string{s.jobKey(id)}, string(status), field, detail, stamp(s.now())).Result()
	if err != nil {
		return fmt.Errorf("finish %s: %w", id, err)
	}
	switch v := res.(type) {
	case int64:
		if v == 1 {
			return nil
		}
		return ErrJobNotFound
	case string:
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, v, status)
	}
	return fmt.Errorf("finish %s: unexpected reply %v", id, res)
}

func (s *RedisStore) Get(ctx context.Context, id string) (*model.Job, error) {
	fields, err := s.client.HGetAll(ctx, s.jobKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 || fields["status"] == "" {
		return nil, ErrJobNotFound
	}
	return decodeJob(fields)
}

func (s *RedisStore) List(ctx context.Context, status model.JobStatus, limit int) ([]*model.Job, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	cmds, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.HGetAll(ctx, s.jobKey(id))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	var out []*model.Job
	for _, cmd := range cmds {
		fields, err := cmd.(*redis.MapStringStringCmd).Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		if status != "" && model.JobStatus(fields["status"]) != status {
			continue
		}
		job, err := decodeJob(fields)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *RedisStore) Close() error { return nil }

func decodeJob(fields map[string]string) (*model.Job, error) {
	j := &model.Job{
		ID:     fields["id"],
		Status: model.JobStatus(fields["status"]),
	}
	if raw := fields["plan"]; raw != "" && raw != "null" {
		j.Plan = &model.ClassPlan{}
		if err := json.Unmarshal([]byte(raw), j.Plan); err != nil {
			return nil, fmt.Errorf("failed to unmarshal plan for %s: %w", j.ID, err)
		}
	}
	if v, ok := fields["file_url"]; ok {
		j.FileURL = &v
	}
	if v, ok := fields["error"]; ok {
		j.Error = &v
	}
	var err error
	if j.CreatedAt, err = time.Parse(time.RFC3339Nano, fields["created_at"]); err != nil {
		return nil, fmt.Errorf("job %s created_at: %w", j.ID, err)
	}
	if j.UpdatedAt, err = time.Parse(time.RFC3339Nano, fields["updated_at"]); err != nil {
		return nil, fmt.Errorf("job %s updated_at: %w", j.ID, err)
	}
	return j, nil
}
