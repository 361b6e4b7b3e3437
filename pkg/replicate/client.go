package replicate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/cyberbaby/generator/pkg/auth"
	"github.com/cyberbaby/generator/pkg/candidate"
)

// DefaultBaseURL is the public image-generation API root.
const DefaultBaseURL = "https://api.replicate.com/v1"

// Client talks to the image-generation provider over HTTP.
type Client struct {
	baseURL    string
	cred       auth.Credential
	httpClient *http.Client
}

// NewClient creates a provider client with sane defaults.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		cred:    auth.TokenCredential(token),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Prediction is one submitted generation job.
type Prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output,omitempty"`
	Error  json.RawMessage `json:"error,omitempty"`
}

// ErrorMessage flattens the provider's error payload, which may be a bare
// string or a nested object, into a single message.
func (p Prediction) ErrorMessage() string {
	if len(p.Error) == 0 || string(p.Error) == "null" {
		return "unknown error"
	}
	var msg string
	if err := json.Unmarshal(p.Error, &msg); err == nil && msg != "" {
		return msg
	}
	var detail struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(p.Error, &detail); err == nil {
		if detail.Detail != "" {
			return detail.Detail
		}
		if detail.Message != "" {
			return detail.Message
		}
	}
	return string(p.Error)
}

// CreatePrediction submits a new job against a pinned model version.
func (c *Client) CreatePrediction(ctx context.Context, version string, input map[string]any) (Prediction, error) {
	body, err := json.Marshal(map[string]any{
		"version": version,
		"input":   input,
	})
	if err != nil {
		return Prediction{}, fmt.Errorf("marshal prediction request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+"/predictions", bytes.NewReader(body))
	if err != nil {
		return Prediction{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("create prediction: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Prediction{}, fmt.Errorf("create prediction failed: HTTP %d: %s", resp.StatusCode, errorDetail(resp.Body))
	}

	var out Prediction
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Prediction{}, fmt.Errorf("decode prediction response: %w", err)
	}
	return out, nil
}

// GetPrediction performs one status check.
func (c *Client) GetPrediction(ctx context.Context, id string) (Prediction, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("%s/predictions/%s", c.baseURL, id), nil)
	if err != nil {
		return Prediction{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("get prediction: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Prediction{}, fmt.Errorf("get prediction failed: HTTP %d: %s", resp.StatusCode, errorDetail(resp.Body))
	}

	var out Prediction
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Prediction{}, fmt.Errorf("decode prediction: %w", err)
	}
	return out, nil
}

// LatestVersion resolves the newest published version of a model. A 404
// surfaces as candidate.ErrModelNotFound so whole-model fallback can skip it.
func (c *Client) LatestVersion(ctx context.Context, model string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("%s/models/%s/versions", c.baseURL, model), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("list versions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%w: %s", candidate.ErrModelNotFound, model)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("list versions failed: HTTP %d: %s", resp.StatusCode, errorDetail(resp.Body))
	}

	var versions struct {
		Results []struct {
			ID string `json:"id"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&versions); err != nil {
		return "", fmt.Errorf("decode versions: %w", err)
	}
	if len(versions.Results) == 0 {
		return "", fmt.Errorf("no versions found for model %s", model)
	}
	return versions.Results[0].ID, nil
}

// FileSlot is the reserved upload destination for the two-phase transport.
type FileSlot struct {
	FileID    string
	UploadURL string
}

// CreateFileSlot reserves an upload slot for the given file.
func (c *Client) CreateFileSlot(ctx context.Context, filename, contentType string) (FileSlot, error) {
	body, err := json.Marshal(map[string]string{
		"filename":     filename,
		"content_type": contentType,
	})
	if err != nil {
		return FileSlot{}, fmt.Errorf("marshal slot request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+"/files", bytes.NewReader(body))
	if err != nil {
		return FileSlot{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return FileSlot{}, fmt.Errorf("create file slot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return FileSlot{}, fmt.Errorf("create file slot failed: HTTP %d: %s", resp.StatusCode, errorDetail(resp.Body))
	}

	var slot struct {
		ID        string `json:"id"`
		UploadURL string `json:"upload_url"`
		File      struct {
			ID string `json:"id"`
		} `json:"file"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&slot); err != nil {
		return FileSlot{}, fmt.Errorf("decode slot response: %w", err)
	}

	fileID := slot.File.ID
	if fileID == "" {
		fileID = slot.ID
	}
	if slot.UploadURL == "" || fileID == "" {
		return FileSlot{}, fmt.Errorf("slot response missing upload_url or file id")
	}
	return FileSlot{FileID: fileID, UploadURL: slot.UploadURL}, nil
}

// UploadToSlot PUTs the raw bytes to a reserved slot. The upload URL is
// pre-signed, so no Authorization header is sent.
func (c *Client) UploadToSlot(ctx context.Context, uploadURL string, content []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("create slot upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload to slot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("slot upload failed: HTTP %d", resp.StatusCode)
	}
	return nil
}

// ResolveFileURL tries a sequence of endpoints to turn an uploaded file ID
// into a stable downloadable URL: file metadata, then the download
// endpoint's redirect Location, then the followed redirect's final URL.
// Returns empty when none of them has a URL yet.
func (c *Client) ResolveFileURL(ctx context.Context, fileID string) (string, error) {
	if fileID == "" {
		return "", fmt.Errorf("missing file id")
	}

	if url := c.fileMetadataURL(ctx, fileID); url != "" {
		return url, nil
	}

	downloadEndpoint := fmt.Sprintf("%s/files/%s/download", c.baseURL, fileID)

	if req, err := c.newRequest(ctx, http.MethodGet, downloadEndpoint, nil); err == nil {
		noRedirect := &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
		if resp, err := noRedirect.Do(req); err == nil {
			location := resp.Header.Get("Location")
			resp.Body.Close()
			if strings.HasPrefix(location, "http") {
				return location, nil
			}
		}
	}

	if req, err := c.newRequest(ctx, http.MethodGet, downloadEndpoint, nil); err == nil {
		if resp, err := c.httpClient.Do(req); err == nil {
			final := resp.Request.URL.String()
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK && strings.HasPrefix(final, "http") {
				return final, nil
			}
		}
	}

	return "", nil
}

// DeliveryURL constructs the well-known delivery URL for a file, used as a
// last resort when metadata resolution never produced one.
func DeliveryURL(fileID, filename string) string {
	return fmt.Sprintf("https://replicate.delivery/pb/%s/%s", fileID, filename)
}

func (c *Client) fileMetadataURL(ctx context.Context, fileID string) string {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("%s/files/%s", c.baseURL, fileID), nil)
	if err != nil {
		return ""
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}

	var meta map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return ""
	}
	if url := ExtractURL(meta["urls"]); url != "" {
		return url
	}
	return ExtractURL(meta)
}

// UploadMultipart sends the file as a single multipart POST and returns the
// URL found in the response body.
func (c *Client) UploadMultipart(ctx context.Context, filename string, content []byte, contentType string) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create multipart field: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return "", fmt.Errorf("write multipart content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finish multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+"/files", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("multipart upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("multipart upload failed: HTTP %d", resp.StatusCode)
	}

	return decodeURLResponse(resp.Body)
}

// UploadJSON sends the file base64-encoded inside a JSON envelope.
func (c *Client) UploadJSON(ctx context.Context, filename string, content []byte, contentType string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"name":         filename,
		"content":      base64.StdEncoding.EncodeToString(content),
		"content_type": contentType,
	})
	if err != nil {
		return "", fmt.Errorf("marshal json upload: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+"/files", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("json upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("json upload failed: HTTP %d", resp.StatusCode)
	}

	return decodeURLResponse(resp.Body)
}

func decodeURLResponse(body io.Reader) (string, error) {
	var payload any
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	url := ExtractURL(payload)
	if url == "" {
		return "", fmt.Errorf("upload response contained no URL")
	}
	return url, nil
}

// ExtractURL digs through an arbitrary decoded JSON value for the first
// string that looks like an HTTP URL.
func ExtractURL(v any) string {
	switch value := v.(type) {
	case string:
		if strings.HasPrefix(value, "http") {
			return value
		}
	case map[string]any:
		for _, item := range value {
			if url := ExtractURL(item); url != "" {
				return url
			}
		}
	case []any:
		for _, item := range value {
			if url := ExtractURL(item); url != "" {
				return url
			}
		}
	}
	return ""
}

func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if err := c.cred.Apply(req); err != nil {
		return nil, err
	}
	return req, nil
}

func errorDetail(body io.Reader) string {
	payload, _ := io.ReadAll(io.LimitReader(body, 4<<10))
	var detail struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &detail); err == nil {
		if detail.Detail != "" {
			return detail.Detail
		}
		if detail.Message != "" {
			return detail.Message
		}
	}
	return strings.TrimSpace(string(payload))
}
