package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/cyberbaby/generator/pkg/mediaref"
	"github.com/cyberbaby/generator/pkg/meshy"
	"github.com/cyberbaby/generator/pkg/remotejob"
)

// ConvertTo3D submits the composite image to the 3D-conversion provider and
// downloads the resulting GLB. The provider only fetches real URLs, so the
// image is resolved without the inline degrade.
func (g *Generator) ConvertTo3D(ctx context.Context, imagePath, outputPath string) (Artifact, error) {
	log.Printf("convert stage: uploading composite image")
	image, err := g.resolver.ResolvePublic(ctx, mediaref.FromPath(imagePath))
	if err != nil {
		return Artifact{}, fmt.Errorf("resolve composite image: %w", err)
	}

	submit := func(ctx context.Context) (string, error) {
		taskID, err := g.converter.CreateTask(ctx, image.Value())
		if err != nil {
			return "", err
		}
		log.Printf("convert stage: task submitted (ID: %s), 3D generation typically takes 3-8 minutes", taskID)
		return taskID, nil
	}

	var lastStatus string
	check := func(ctx context.Context, taskID string) (remotejob.CheckResult, error) {
		task, err := g.converter.GetTask(ctx, taskID)
		if err != nil {
			if remotejob.IsTransient(err) {
				log.Printf("convert stage: rate limited, backing off")
			}
			return remotejob.CheckResult{}, err
		}
		if task.Status != lastStatus {
			log.Printf("convert stage: status %s, progress %d%%", task.Status, task.Progress)
			lastStatus = task.Status
		}

		res := remotejob.CheckResult{Status: task.Status}
		switch task.Status {
		case meshy.StatusSucceeded:
			if glb := task.GLBURL(); glb != "" {
				res.Output, _ = json.Marshal(glb)
			}
		case meshy.StatusFailed:
			res.ErrorMessage = task.ErrorMessage()
		}
		return res, nil
	}

	url, err := remotejob.SubmitAndWait(ctx, submit, check, meshy.ClassifyStatus, remotejob.Options{
		MaxWait:          g.opts.ConvertMaxWait,
		PollInterval:     g.opts.ConvertPollInterval,
		TransientBackoff: g.opts.TransientBackoff,
	})
	if err != nil {
		return Artifact{}, err
	}

	if err := g.download(ctx, url, outputPath); err != nil {
		return Artifact{}, err
	}
	log.Printf("convert stage: saved %s", outputPath)
	return Artifact{Path: outputPath, Source: mediaref.FromURL(url)}, nil
}
