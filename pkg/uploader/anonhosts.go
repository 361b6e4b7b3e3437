package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

var anonHTTPClient = &http.Client{Timeout: 60 * time.Second}

// PutHost uploads via an unauthenticated PUT to <base>/<name> and reads the
// resulting URL from the plain-text response body.
type PutHost struct {
	Label   string
	BaseURL string
}

// Name identifies the host in resolver logs.
func (h PutHost) Name() string { return h.Label }

// Upload PUTs the raw bytes and returns the URL from the response body.
func (h PutHost) Upload(ctx context.Context, name string, content []byte, contentType string) (string, error) {
	url := strings.TrimSuffix(h.BaseURL, "/") + "/" + name
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := anonHTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s upload: %w", h.Label, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%s upload failed: HTTP %d", h.Label, resp.StatusCode)
	}
	return firstToken(resp.Body)
}

// MultipartHost uploads via an unauthenticated multipart POST. When
// JSONLinkFields is set the response is JSON and the URL is read from the
// first present field; otherwise the plain-text body holds the URL.
type MultipartHost struct {
	Label          string
	URL            string
	JSONLinkFields []string
}

// Name identifies the host in resolver logs.
func (h MultipartHost) Name() string { return h.Label }

// Upload POSTs the file as multipart form data.
func (h MultipartHost) Upload(ctx context.Context, name string, content []byte, contentType string) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("create multipart field: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return "", fmt.Errorf("write multipart content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := anonHTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s upload: %w", h.Label, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%s upload failed: HTTP %d", h.Label, resp.StatusCode)
	}

	if len(h.JSONLinkFields) > 0 {
		var payload map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return "", fmt.Errorf("decode %s response: %w", h.Label, err)
		}
		for _, field := range h.JSONLinkFields {
			if link, ok := payload[field].(string); ok && strings.HasPrefix(link, "http") {
				return link, nil
			}
		}
		return "", fmt.Errorf("%s response contained no link", h.Label)
	}
	return firstToken(resp.Body)
}

// DefaultAnonymousHosts returns the fixed fallback order of public file
// hosts used when the primary transports are exhausted.
func DefaultAnonymousHosts() []Transport {
	return []Transport{
		PutHost{Label: "transfer.sh", BaseURL: "https://transfer.sh"},
		MultipartHost{Label: "0x0.st", URL: "https://0x0.st"},
		MultipartHost{Label: "file.io", URL: "https://file.io/", JSONLinkFields: []string{"link", "url"}},
	}
}

func firstToken(body io.Reader) (string, error) {
	payload, err := io.ReadAll(io.LimitReader(body, 4<<10))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	fields := strings.Fields(strings.TrimSpace(string(payload)))
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "http") {
		return "", fmt.Errorf("response contained no URL")
	}
	return fields[0], nil
}
