package pipeline

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/cyberbaby/generator/pkg/candidate"
	"github.com/cyberbaby/generator/pkg/mediaref"
	"github.com/cyberbaby/generator/pkg/remotejob"
	"github.com/cyberbaby/generator/pkg/replicate"
)

// runCandidate submits one candidate to the image provider and waits for a
// terminal outcome. String parameters that point at existing local files are
// uploaded first; URLs and inline data pass through.
func (g *Generator) runCandidate(ctx context.Context, c candidate.Candidate, maxWait time.Duration) (string, error) {
	input, err := g.prepareInput(ctx, c.Params)
	if err != nil {
		return "", err
	}

	version := c.Version
	if version == "" {
		version, err = g.images.LatestVersion(ctx, c.Model)
		if err != nil {
			return "", err
		}
	}

	submit := func(ctx context.Context) (string, error) {
		p, err := g.images.CreatePrediction(ctx, version, input)
		if err != nil {
			return "", err
		}
		return p.ID, nil
	}
	check := func(ctx context.Context, id string) (remotejob.CheckResult, error) {
		p, err := g.images.GetPrediction(ctx, id)
		if err != nil {
			return remotejob.CheckResult{}, err
		}
		res := remotejob.CheckResult{Status: p.Status, Output: p.Output}
		if p.Status == replicate.StatusFailed {
			res.ErrorMessage = p.ErrorMessage()
		}
		return res, nil
	}

	return remotejob.SubmitAndWait(ctx, submit, check, replicate.ClassifyStatus, remotejob.Options{
		MaxWait:          maxWait,
		PollInterval:     g.opts.PollInterval,
		TransientBackoff: g.opts.TransientBackoff,
	})
}

func (g *Generator) prepareInput(ctx context.Context, params map[string]any) (map[string]any, error) {
	input := make(map[string]any, len(params))
	for key, value := range params {
		s, ok := value.(string)
		if !ok || mediaref.IsHTTPURL(s) || strings.HasPrefix(s, "data:") {
			input[key] = value
			continue
		}
		if _, err := os.Stat(s); err != nil {
			input[key] = value
			continue
		}
		ref, err := g.resolver.Resolve(ctx, mediaref.FromPath(s))
		if err != nil {
			return nil, err
		}
		input[key] = ref.Value()
	}
	return input, nil
}
