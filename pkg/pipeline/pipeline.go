// Package pipeline sequences the three generation stages: blend a baby face
// from two parent photos, composite it onto a full body, and convert the
// result to a 3D asset.
package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/cyberbaby/generator/pkg/mediaref"
	"github.com/cyberbaby/generator/pkg/meshy"
	"github.com/cyberbaby/generator/pkg/replicate"
	"github.com/cyberbaby/generator/pkg/uploader"
)

// Manifest keys, one per completed stage.
const (
	ArtifactBabyFace = "baby_face"
	ArtifactFullBaby = "full_baby"
	Artifact3DModel  = "3d_model"
)

// Output file names inside the run's output directory.
const (
	faceFileName  = "baby_face.jpg"
	bodyFileName  = "full_baby.jpg"
	modelFileName = "baby_3d_model.glb"
)

// Artifact is a stage's local output together with the remote reference
// that produced it.
type Artifact struct {
	Path   string
	Source mediaref.Reference
}

// Manifest maps stage artifact names to their outputs. It is append-only
// and only complete on full pipeline success.
type Manifest map[string]Artifact

// Request is one pipeline run.
type Request struct {
	Parent1       mediaref.Reference
	Parent2       mediaref.Reference
	ReferenceBody *mediaref.Reference
	OutputDir     string
}

// StageError identifies which stage a pipeline failure came from.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + " stage: " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

// Options bound the per-stage wait budgets.
type Options struct {
	FaceMaxWait         time.Duration
	BodyMaxWait         time.Duration
	ConvertMaxWait      time.Duration
	PollInterval        time.Duration
	ConvertPollInterval time.Duration
	TransientBackoff    time.Duration
	// OnStage, when set, is called as each stage begins.
	OnStage func(stage string)
}

func (o Options) withDefaults() Options {
	if o.FaceMaxWait <= 0 {
		// Face-fusion models can take 2-3 minutes.
		o.FaceMaxWait = 180 * time.Second
	}
	if o.BodyMaxWait <= 0 {
		// Fail fast when a body candidate's parameters are wrong.
		o.BodyMaxWait = 90 * time.Second
	}
	if o.ConvertMaxWait <= 0 {
		// 3D conversion is the slowest step, typically 3-8 minutes.
		o.ConvertMaxWait = 15 * time.Minute
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 500 * time.Millisecond
	}
	if o.ConvertPollInterval <= 0 {
		o.ConvertPollInterval = 5 * time.Second
	}
	if o.TransientBackoff <= 0 {
		o.TransientBackoff = 10 * time.Second
	}
	return o
}

// Generator drives one pipeline run at a time. It holds no state across
// runs; concurrent runs must use disjoint output directories.
type Generator struct {
	images     *replicate.Client
	converter  *meshy.Client
	resolver   *uploader.Resolver
	httpClient *http.Client
	tracer     trace.Tracer
	opts       Options
}

// New assembles a generator from its provider clients and resolver.
func New(images *replicate.Client, converter *meshy.Client, resolver *uploader.Resolver, opts Options) *Generator {
	return &Generator{
		images:     images,
		converter:  converter,
		resolver:   resolver,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		tracer:     otel.Tracer("github.com/cyberbaby/generator/pkg/pipeline"),
		opts:       opts.withDefaults(),
	}
}

// GenerateComplete runs face generation, body attachment, and 3D conversion
// in order, threading each stage's artifact into the next. It stops at the
// first stage failure; the returned manifest is only complete on success.
func (g *Generator) GenerateComplete(ctx context.Context, req Request) (Manifest, error) {
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	manifest := Manifest{}

	face, err := g.runStage(ctx, "face", func(ctx context.Context) (Artifact, error) {
		return g.GenerateFace(ctx, req.Parent1, req.Parent2, filepath.Join(req.OutputDir, faceFileName))
	})
	if err != nil {
		return nil, err
	}
	manifest[ArtifactBabyFace] = face

	body, err := g.runStage(ctx, "body", func(ctx context.Context) (Artifact, error) {
		return g.AttachBody(ctx, face.Path, req.ReferenceBody, filepath.Join(req.OutputDir, bodyFileName))
	})
	if err != nil {
		return nil, err
	}
	manifest[ArtifactFullBaby] = body

	model, err := g.runStage(ctx, "convert", func(ctx context.Context) (Artifact, error) {
		return g.ConvertTo3D(ctx, body.Path, filepath.Join(req.OutputDir, modelFileName))
	})
	if err != nil {
		return nil, err
	}
	manifest[Artifact3DModel] = model

	return manifest, nil
}

func (g *Generator) runStage(ctx context.Context, stage string, fn func(context.Context) (Artifact, error)) (Artifact, error) {
	ctx, span := g.tracer.Start(ctx, stage+"_stage")
	defer span.End()

	if g.opts.OnStage != nil {
		g.opts.OnStage(stage)
	}

	artifact, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		return Artifact{}, &StageError{Stage: stage, Err: err}
	}
	return artifact, nil
}
