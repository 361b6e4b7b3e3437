package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RunStatus string

const (
	StatusPending    RunStatus = "pending"
	StatusProcessing RunStatus = "processing"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
)

// Run is one queued pipeline execution: two parent photos in, a manifest of
// artifact paths out.
type Run struct {
	ID                string            `json:"id"`
	Parent1Path       string            `json:"parent1_path"`
	Parent2Path       string            `json:"parent2_path"`
	ReferenceBodyPath string            `json:"reference_body_path,omitempty"`
	OutputDir         string            `json:"output_dir"`
	Status            RunStatus         `json:"status"`
	Stage             string            `json:"stage,omitempty"`
	Artifacts         map[string]string `json:"artifacts,omitempty"`
	Error             string            `json:"error,omitempty"`
	CreatedAt         int64             `json:"created_at"`
	StartedAt         int64             `json:"started_at,omitempty"`
	CompletedAt       int64             `json:"completed_at,omitempty"`
}

const runQueueKey = "queue:runs"

type Queue struct {
	redis *redis.Client
}

func NewQueue(redisURL string) (*Queue, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Queue{redis: client}, nil
}

func (q *Queue) Enqueue(ctx context.Context, run *Run) error {
	run.CreatedAt = time.Now().Unix()
	run.Status = StatusPending

	if err := q.save(ctx, run); err != nil {
		return err
	}
	return q.redis.RPush(ctx, runQueueKey, run.ID).Err()
}

func (q *Queue) Dequeue(ctx context.Context) (*Run, error) {
	result, err := q.redis.BLPop(ctx, 5*time.Second, runQueueKey).Result()
	if err == redis.Nil {
		return nil, nil // No runs available
	}
	if err != nil {
		return nil, err
	}

	run, err := q.Get(ctx, result[1])
	if err != nil {
		return nil, err
	}

	run.Status = StatusProcessing
	run.StartedAt = time.Now().Unix()
	if err := q.save(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// SetStage records which stage a processing run has reached.
func (q *Queue) SetStage(ctx context.Context, runID, stage string) error {
	run, err := q.Get(ctx, runID)
	if err != nil {
		return err
	}
	run.Stage = stage
	return q.save(ctx, run)
}

func (q *Queue) Complete(ctx context.Context, runID string, artifacts map[string]string) error {
	run, err := q.Get(ctx, runID)
	if err != nil {
		return err
	}

	run.Status = StatusCompleted
	run.CompletedAt = time.Now().Unix()
	run.Artifacts = artifacts
	return q.save(ctx, run)
}

func (q *Queue) Fail(ctx context.Context, runID, errorMsg string) error {
	run, err := q.Get(ctx, runID)
	if err != nil {
		return err
	}

	run.Status = StatusFailed
	run.CompletedAt = time.Now().Unix()
	run.Error = errorMsg
	return q.save(ctx, run)
}

func (q *Queue) Get(ctx context.Context, runID string) (*Run, error) {
	data, err := q.redis.Get(ctx, runKey(runID)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("run not found")
	}
	if err != nil {
		return nil, err
	}

	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.redis.LLen(ctx, runQueueKey).Result()
}

func (q *Queue) Close() error {
	return q.redis.Close()
}

func (q *Queue) save(ctx context.Context, run *Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	return q.redis.Set(ctx, runKey(run.ID), data, 24*time.Hour).Err()
}

func runKey(runID string) string {
	return fmt.Sprintf("run:%s", runID)
}
