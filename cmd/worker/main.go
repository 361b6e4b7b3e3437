package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/cyberbaby/generator/pkg/config"
	"github.com/cyberbaby/generator/pkg/mediaref"
	"github.com/cyberbaby/generator/pkg/pipeline"
	"github.com/cyberbaby/generator/pkg/queue"
	"github.com/cyberbaby/generator/pkg/telemetry"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	q, err := queue.NewQueue(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to queue: %v", err)
	}
	defer q.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown := telemetry.InitTracer(ctx, "worker")
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("telemetry shutdown error: %v", err)
		}
	}()

	log.Printf("worker started, waiting for runs")
	for ctx.Err() == nil {
		run, err := q.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Printf("dequeue error: %v", err)
			continue
		}
		if run == nil {
			continue
		}

		log.Printf("processing run %s", run.ID)
		process(ctx, cfg, q, run)
	}
	log.Println("worker stopped")
}

func process(ctx context.Context, cfg config.Config, q *queue.Queue, run *queue.Run) {
	images, converter, resolver := pipeline.Components(cfg)
	gen := pipeline.New(images, converter, resolver, pipeline.Options{
		OnStage: func(stage string) {
			if err := q.SetStage(ctx, run.ID, stage); err != nil {
				log.Printf("run %s: record stage %s: %v", run.ID, stage, err)
			}
		},
	})

	req := pipeline.Request{
		Parent1:   mediaref.FromPath(run.Parent1Path),
		Parent2:   mediaref.FromPath(run.Parent2Path),
		OutputDir: run.OutputDir,
	}
	if run.ReferenceBodyPath != "" {
		body := mediaref.FromPath(run.ReferenceBodyPath)
		req.ReferenceBody = &body
	}

	manifest, err := gen.GenerateComplete(ctx, req)
	if err != nil {
		log.Printf("run %s failed: %v", run.ID, err)
		if ferr := q.Fail(context.WithoutCancel(ctx), run.ID, err.Error()); ferr != nil {
			log.Printf("run %s: record failure: %v", run.ID, ferr)
		}
		return
	}

	artifacts := make(map[string]string, len(manifest))
	for name, artifact := range manifest {
		artifacts[name] = artifact.Path
	}
	if err := q.Complete(ctx, run.ID, artifacts); err != nil {
		log.Printf("run %s: record completion: %v", run.ID, err)
		return
	}
	log.Printf("run %s complete", run.ID)
}
