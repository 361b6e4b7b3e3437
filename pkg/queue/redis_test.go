package queue

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func newTestQueue(t *testing.T) *Queue {
	mr := miniredis.RunT(t)
	q, err := NewQueue("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewQueue returned error: %v", err)
	}
	t.Cleanup(func() { q.Close() })
	return q
}

func TestEnqueueDequeue(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	run := &Run{
		ID:          "run-1",
		Parent1Path: "/tmp/mom.jpg",
		Parent2Path: "/tmp/dad.jpg",
		OutputDir:   "/tmp/out",
	}
	if err := q.Enqueue(ctx, run); err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}
	if run.Status != StatusPending || run.CreatedAt == 0 {
		t.Fatalf("enqueue did not initialize the run: %+v", run)
	}

	n, err := q.Len(ctx)
	if err != nil {
		t.Fatalf("Len returned error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 queued run, got %d", n)
	}

	got, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue returned error: %v", err)
	}
	if got == nil || got.ID != "run-1" {
		t.Fatalf("unexpected dequeued run: %+v", got)
	}
	if got.Status != StatusProcessing || got.StartedAt == 0 {
		t.Fatalf("dequeue did not mark the run processing: %+v", got)
	}
	if got.Parent1Path != "/tmp/mom.jpg" {
		t.Fatalf("run payload lost: %+v", got)
	}
}

func TestRunLifecycle(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	run := &Run{ID: "run-2", Parent1Path: "a", Parent2Path: "b", OutputDir: "/tmp/out"}
	if err := q.Enqueue(ctx, run); err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}
	if _, err := q.Dequeue(ctx); err != nil {
		t.Fatalf("Dequeue returned error: %v", err)
	}

	if err := q.SetStage(ctx, "run-2", "face"); err != nil {
		t.Fatalf("SetStage returned error: %v", err)
	}
	got, err := q.Get(ctx, "run-2")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Stage != "face" || got.Status != StatusProcessing {
		t.Fatalf("stage not recorded: %+v", got)
	}

	artifacts := map[string]string{"baby_face": "/tmp/out/baby_face.jpg"}
	if err := q.Complete(ctx, "run-2", artifacts); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	got, err = q.Get(ctx, "run-2")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Status != StatusCompleted || got.CompletedAt == 0 {
		t.Fatalf("run not completed: %+v", got)
	}
	if got.Artifacts["baby_face"] != "/tmp/out/baby_face.jpg" {
		t.Fatalf("artifacts not recorded: %+v", got.Artifacts)
	}
}

func TestFail(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	run := &Run{ID: "run-3", Parent1Path: "a", Parent2Path: "b", OutputDir: "/tmp/out"}
	if err := q.Enqueue(ctx, run); err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}
	if err := q.Fail(ctx, "run-3", "face stage: all 8 candidate(s) failed"); err != nil {
		t.Fatalf("Fail returned error: %v", err)
	}

	got, err := q.Get(ctx, "run-3")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Status != StatusFailed || got.Error == "" {
		t.Fatalf("failure not recorded: %+v", got)
	}
}

func TestGetUnknownRun(t *testing.T) {
	q := newTestQueue(t)
	if _, err := q.Get(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for unknown run")
	}
}
