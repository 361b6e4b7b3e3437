package pipeline

import (
	"github.com/cyberbaby/generator/pkg/config"
	"github.com/cyberbaby/generator/pkg/meshy"
	"github.com/cyberbaby/generator/pkg/replicate"
	"github.com/cyberbaby/generator/pkg/uploader"
)

// Components builds the provider clients and the upload chain, in its fixed
// fallback order, from runtime configuration.
func Components(cfg config.Config) (*replicate.Client, *meshy.Client, *uploader.Resolver) {
	images := replicate.NewClient(cfg.ReplicateBaseURL, cfg.ReplicateToken)
	converter := meshy.NewClient(cfg.MeshyBaseURL, cfg.MeshyToken)
	resolver := uploader.NewResolver(uploader.Config{
		Transports: []uploader.Transport{
			replicate.SlotTransport{Client: images},
			replicate.MultipartTransport{Client: images},
			replicate.JSONTransport{Client: images},
		},
		AnonymousHosts:      uploader.DefaultAnonymousHosts(),
		AllowAnonymousHosts: cfg.AllowAnonymousHosts,
	})
	return images, converter, resolver
}

// FromConfig wires a generator with default stage budgets.
func FromConfig(cfg config.Config) *Generator {
	images, converter, resolver := Components(cfg)
	return New(images, converter, resolver, Options{})
}
