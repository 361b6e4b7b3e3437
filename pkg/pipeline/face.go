package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/cyberbaby/generator/pkg/candidate"
	"github.com/cyberbaby/generator/pkg/catalog"
	"github.com/cyberbaby/generator/pkg/mediaref"
)

// GenerateFace blends the two parent photos into a baby face. The parents
// are uploaded once, then every parameter-naming convention is tried against
// the pinned face-fusion target until one succeeds.
func (g *Generator) GenerateFace(ctx context.Context, parent1, parent2 mediaref.Reference, outputPath string) (Artifact, error) {
	log.Printf("face stage: uploading parent photos")
	p1, err := g.resolver.Resolve(ctx, parent1)
	if err != nil {
		return Artifact{}, fmt.Errorf("resolve parent 1: %w", err)
	}
	p2, err := g.resolver.Resolve(ctx, parent2)
	if err != nil {
		return Artifact{}, fmt.Errorf("resolve parent 2: %w", err)
	}

	candidates := catalog.FaceCandidates(p1.Value(), p2.Value(), 1024, 1024)
	log.Printf("face stage: trying %d parameter variation(s) against %s", len(candidates), catalog.FaceModel)

	url, err := candidate.Run(ctx, candidates, func(ctx context.Context, c candidate.Candidate) (string, error) {
		return g.runCandidate(ctx, c, g.opts.FaceMaxWait)
	})
	if err != nil {
		return Artifact{}, err
	}

	if err := g.download(ctx, url, outputPath); err != nil {
		return Artifact{}, err
	}
	log.Printf("face stage: saved %s", outputPath)
	return Artifact{Path: outputPath, Source: mediaref.FromURL(url)}, nil
}
