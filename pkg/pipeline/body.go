package pipeline

import (
	"context"
	"log"

	"github.com/cyberbaby/generator/pkg/candidate"
	"github.com/cyberbaby/generator/pkg/catalog"
	"github.com/cyberbaby/generator/pkg/mediaref"
)

// AttachBody composites the generated face onto a full baby body. With an
// explicit reference body it walks the face-swap targets; without one it
// walks the general generation targets, skipping a whole model when the
// provider reports it missing.
func (g *Generator) AttachBody(ctx context.Context, facePath string, referenceBody *mediaref.Reference, outputPath string) (Artifact, error) {
	var candidates []candidate.Candidate
	if referenceBody != nil {
		candidates = catalog.SwapCandidates(facePath, referenceBody.Value())
		log.Printf("body stage: swapping face onto reference body, %d candidate(s)", len(candidates))
	} else {
		candidates = catalog.BodyCandidates(facePath)
		log.Printf("body stage: generating body from face reference, %d candidate(s)", len(candidates))
	}

	url, err := candidate.Run(ctx, candidates, func(ctx context.Context, c candidate.Candidate) (string, error) {
		return g.runCandidate(ctx, c, g.opts.BodyMaxWait)
	})
	if err != nil {
		return Artifact{}, err
	}

	if err := g.download(ctx, url, outputPath); err != nil {
		return Artifact{}, err
	}
	log.Printf("body stage: saved %s", outputPath)
	return Artifact{Path: outputPath, Source: mediaref.FromURL(url)}, nil
}
