package replicate

import (
	"context"
	"fmt"
	"time"
)

// SlotTransport is the two-phase upload: reserve a slot, PUT the bytes,
// then poll metadata resolution for a stable downloadable URL within a
// bounded window.
type SlotTransport struct {
	Client       *Client
	PollWindow   time.Duration
	PollInterval time.Duration
}

// Name identifies the transport in resolver logs.
func (t SlotTransport) Name() string { return "slot" }

// Upload reserves a slot, uploads the content, and resolves the public URL.
func (t SlotTransport) Upload(ctx context.Context, name string, content []byte, contentType string) (string, error) {
	window := t.PollWindow
	if window <= 0 {
		window = 30 * time.Second
	}
	interval := t.PollInterval
	if interval <= 0 {
		interval = 1500 * time.Millisecond
	}

	slot, err := t.Client.CreateFileSlot(ctx, name, contentType)
	if err != nil {
		return "", err
	}
	if err := t.Client.UploadToSlot(ctx, slot.UploadURL, content, contentType); err != nil {
		return "", err
	}

	deadline := time.Now().Add(window)
	for {
		url, err := t.Client.ResolveFileURL(ctx, slot.FileID)
		if err != nil {
			return "", err
		}
		if url != "" {
			return url, nil
		}
		if time.Now().After(deadline) {
			break
		}
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	// The delivery URL is derivable from the file ID even when metadata
	// resolution never caught up.
	url := DeliveryURL(slot.FileID, name)
	if url == "" {
		return "", fmt.Errorf("slot upload produced no public URL")
	}
	return url, nil
}

// MultipartTransport is the single-request multipart upload.
type MultipartTransport struct {
	Client *Client
}

// Name identifies the transport in resolver logs.
func (t MultipartTransport) Name() string { return "multipart" }

// Upload sends the file as multipart form data.
func (t MultipartTransport) Upload(ctx context.Context, name string, content []byte, contentType string) (string, error) {
	return t.Client.UploadMultipart(ctx, name, content, contentType)
}

// JSONTransport is the base64 JSON-envelope upload.
type JSONTransport struct {
	Client *Client
}

// Name identifies the transport in resolver logs.
func (t JSONTransport) Name() string { return "json" }

// Upload sends the file base64-encoded in a JSON body.
func (t JSONTransport) Upload(ctx context.Context, name string, content []byte, contentType string) (string, error) {
	return t.Client.UploadJSON(ctx, name, content, contentType)
}
