package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/cyberbaby/generator/pkg/config"
	"github.com/cyberbaby/generator/pkg/mediaref"
	"github.com/cyberbaby/generator/pkg/pipeline"
	"github.com/cyberbaby/generator/pkg/telemetry"
)

func main() {
	_ = godotenv.Load()

	parent1 := flag.String("parent1", "parent1.jpg", "path to the first parent photo")
	parent2 := flag.String("parent2", "parent2.jpg", "path to the second parent photo")
	refBody := flag.String("body", "", "optional reference body image")
	outDir := flag.String("out", "", "output directory (overrides config)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	if *outDir != "" {
		cfg.OutputDir = *outDir
	}

	for _, path := range []string{*parent1, *parent2} {
		if _, err := os.Stat(path); err != nil {
			log.Fatalf("parent photo not found: %s", path)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown := telemetry.InitTracer(ctx, "generator")
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("telemetry shutdown error: %v", err)
		}
	}()

	req := pipeline.Request{
		Parent1:   mediaref.FromPath(*parent1),
		Parent2:   mediaref.FromPath(*parent2),
		OutputDir: cfg.OutputDir,
	}
	if *refBody != "" {
		body := mediaref.FromPath(*refBody)
		req.ReferenceBody = &body
	}

	log.Printf("starting generation: %s + %s -> %s", *parent1, *parent2, cfg.OutputDir)

	manifest, err := pipeline.FromConfig(cfg).GenerateComplete(ctx, req)
	if err != nil {
		log.Fatalf("generation failed: %v", err)
	}

	log.Printf("generation complete:")
	for name, artifact := range manifest {
		log.Printf("  %s: %s", name, artifact.Path)
	}
}
