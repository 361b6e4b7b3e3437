// Package uploader normalizes arbitrary local inputs into
// provider-consumable references by walking a tolerant chain of upload
// transports. Each transport failure is non-fatal; only exhaustion of the
// whole chain surfaces an error.
package uploader

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyberbaby/generator/pkg/mediaref"
)

// InlineCap is the hard size limit for the base64 data-URL degrade.
const InlineCap = 10 << 20

// Transport uploads one file's bytes somewhere public and returns its URL.
type Transport interface {
	Name() string
	Upload(ctx context.Context, name string, content []byte, contentType string) (string, error)
}

// ExhaustedError reports that every transport failed and no inline
// fallback was possible.
type ExhaustedError struct {
	Attempts int
	Reason   string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d upload transport(s) failed: %s", e.Attempts, e.Reason)
}

// Config controls resolver behavior.
type Config struct {
	// Transports is the ordered primary chain.
	Transports []Transport
	// AnonymousHosts are unauthenticated public fallbacks, appended to the
	// chain only when AllowAnonymousHosts is set. Uploading user photos to
	// third-party hosts is an explicit opt-in, never a silent default.
	AnonymousHosts      []Transport
	AllowAnonymousHosts bool
	// InlineCap overrides the data-URL size limit; zero means the default.
	InlineCap int64
}

// Resolver turns local files and streams into URLs or inline references.
type Resolver struct {
	cfg Config
}

// NewResolver builds a resolver over the given transport chain.
func NewResolver(cfg Config) *Resolver {
	if cfg.InlineCap <= 0 {
		cfg.InlineCap = InlineCap
	}
	return &Resolver{cfg: cfg}
}

// Resolve normalizes ref into a provider-consumable reference. Already
// resolved references pass through unchanged, so Resolve is idempotent.
// When every transport fails, the content degrades to an inline data URL if
// it fits under the size cap.
func (r *Resolver) Resolve(ctx context.Context, ref mediaref.Reference) (mediaref.Reference, error) {
	return r.resolve(ctx, ref, false)
}

// ResolvePublic is Resolve without the inline degrade, for providers that
// can only fetch real URLs.
func (r *Resolver) ResolvePublic(ctx context.Context, ref mediaref.Reference) (mediaref.Reference, error) {
	return r.resolve(ctx, ref, true)
}

func (r *Resolver) resolve(ctx context.Context, ref mediaref.Reference, requirePublic bool) (mediaref.Reference, error) {
	if ref.Kind == mediaref.KindURL || (!requirePublic && ref.Kind == mediaref.KindInline) {
		return ref, nil
	}
	if ref.Path == "" {
		return mediaref.Reference{}, fmt.Errorf("reference has no local content to upload")
	}

	content, err := os.ReadFile(ref.Path)
	if err != nil {
		return mediaref.Reference{}, fmt.Errorf("read input file: %w", err)
	}
	return r.resolveBytes(ctx, filepath.Base(ref.Path), content, ref.ContentType, requirePublic)
}

// ResolveReader uploads content from an open stream under the given name.
func (r *Resolver) ResolveReader(ctx context.Context, name string, reader io.Reader) (mediaref.Reference, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return mediaref.Reference{}, fmt.Errorf("read input stream: %w", err)
	}
	return r.resolveBytes(ctx, name, content, mediaref.ContentTypeForName(name), false)
}

func (r *Resolver) resolveBytes(ctx context.Context, name string, content []byte, contentType string, requirePublic bool) (mediaref.Reference, error) {
	if contentType == "" {
		contentType = mediaref.ContentTypeForName(name)
	}
	name = strings.ReplaceAll(name, " ", "_")

	chain := r.cfg.Transports
	if r.cfg.AllowAnonymousHosts {
		chain = append(append([]Transport{}, chain...), r.cfg.AnonymousHosts...)
	}

	var lastErr string
	for _, transport := range chain {
		if ctx.Err() != nil {
			return mediaref.Reference{}, ctx.Err()
		}
		url, err := transport.Upload(ctx, name, content, contentType)
		if err != nil {
			lastErr = err.Error()
			log.Printf("upload via %s failed: %s", transport.Name(), truncate(lastErr, 120))
			continue
		}
		if !mediaref.IsHTTPURL(url) {
			lastErr = fmt.Sprintf("transport %s returned non-URL %q", transport.Name(), truncate(url, 60))
			log.Printf("%s", lastErr)
			continue
		}
		log.Printf("upload via %s OK (%.1fKB)", transport.Name(), float64(len(content))/1024)
		return mediaref.FromURL(url), nil
	}

	if lastErr == "" {
		lastErr = "no transports configured"
	}

	if requirePublic {
		return mediaref.Reference{}, &ExhaustedError{Attempts: len(chain), Reason: lastErr}
	}
	if int64(len(content)) > r.cfg.InlineCap {
		reason := fmt.Sprintf("%s; payload %.1fMB exceeds %.0fMB inline cap",
			lastErr, float64(len(content))/(1<<20), float64(r.cfg.InlineCap)/(1<<20))
		return mediaref.Reference{}, &ExhaustedError{Attempts: len(chain), Reason: reason}
	}

	log.Printf("all transports failed, degrading to inline data URL (%.1fKB)", float64(len(content))/1024)
	return mediaref.FromBytes(content, contentType), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
