// Package catalog holds the model targets and parameter-naming conventions
// tried against the image provider. The accepted schema of a given target is
// external and may drift, so these lists are configuration data: earlier
// entries are preferred, and order is part of the contract.
package catalog

import "github.com/cyberbaby/generator/pkg/candidate"

// Face-fusion target, pinned to a known-good version.
const (
	FaceModel        = "codeplugtech/face-swap"
	FaceModelVersion = "278a81e7ebb22db98bcba54de985d22cc1abeead2754eb1f2af717247be69b34"
)

// FacePrompt steers the face blend.
const FacePrompt = "Generate a realistic 4-month-old baby face blending the two parent photos. " +
	"Natural infant proportions, soft lighting, neutral background."

// BodyPrompt steers full-body generation.
const BodyPrompt = "Create a full-body 4-month-old baby with a smooth, simplified, neutral body " +
	"(no clothing textures, no anatomical details). " +
	"Attach the previously generated blended baby face. " +
	"Maintain natural infant body proportions, soft silhouette, photorealistic lighting on the face."

// SwapModels are face-swap-capable targets for compositing onto an explicit
// reference body.
var SwapModels = []string{
	"cdingram/face-swap",
	"codeplugtech/face-swap",
	"easel/advanced-face-swap",
}

// BodyModels are general generation targets for producing a body when no
// reference image is supplied.
var BodyModels = []string{
	"black-forest-labs/flux-schnell",
	"black-forest-labs/flux-dev",
	"stability-ai/sdxl",
	"fofr/face-to-many",
}

// FaceCandidates pairs the two parent references under every known
// parameter-naming convention against the pinned face-fusion target.
func FaceCandidates(parent1, parent2 string, width, height int) []candidate.Candidate {
	variations := []map[string]any{
		{"source_image": parent1, "target_image": parent2, "prompt": FacePrompt, "width": width, "height": height},
		{"source_image": parent2, "target_image": parent1, "prompt": FacePrompt, "width": width, "height": height},
		{"swap_image": parent1, "target_image": parent2, "prompt": FacePrompt},
		{"swap_image": parent2, "target_image": parent1, "prompt": FacePrompt},
		{"input_image": parent1, "reference_image": parent2, "prompt": FacePrompt, "width": width, "height": height},
		{"input_image": parent2, "reference_image": parent1, "prompt": FacePrompt, "width": width, "height": height},
		{"input_image": parent1, "swap_image": parent2, "prompt": FacePrompt},
		{"input_image": parent2, "swap_image": parent1, "prompt": FacePrompt},
	}

	candidates := make([]candidate.Candidate, 0, len(variations))
	for _, params := range variations {
		candidates = append(candidates, candidate.Candidate{
			Model:   FaceModel,
			Version: FaceModelVersion,
			Params:  params,
		})
	}
	return candidates
}

// SwapCandidates builds the face-onto-reference-body list: each swap model
// under two naming variants, stopping at first success.
func SwapCandidates(face, body string) []candidate.Candidate {
	var candidates []candidate.Candidate
	for _, model := range SwapModels {
		candidates = append(candidates,
			candidate.Candidate{Model: model, Params: map[string]any{"source_image": face, "target_image": body}},
			candidate.Candidate{Model: model, Params: map[string]any{"source": face, "target": body}},
		)
	}
	return candidates
}

// BodyCandidates builds the generate-a-body list: each generation model
// under up to three parameter-set variants, from richest to most minimal.
func BodyCandidates(face string) []candidate.Candidate {
	paramSets := []map[string]any{
		{
			"prompt":      BodyPrompt + " Full body, 4-month-old baby, using face as reference.",
			"image":       face,
			"num_outputs": 1,
			"width":       1024,
			"height":      1024,
		},
		{
			"prompt":      BodyPrompt + " Full body, 4-month-old baby.",
			"image":       face,
			"num_outputs": 1,
			"width":       1024,
			"height":      1024,
		},
		{
			"image":  face,
			"prompt": BodyPrompt,
		},
	}

	var candidates []candidate.Candidate
	for _, model := range BodyModels {
		for _, params := range paramSets {
			candidates = append(candidates, candidate.Candidate{Model: model, Params: params})
		}
	}
	return candidates
}
