package meshy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cyberbaby/generator/pkg/auth"
	"github.com/cyberbaby/generator/pkg/remotejob"
)

// DefaultBaseURL is the public image-to-3D API root.
const DefaultBaseURL = "https://api.meshy.ai"

// Client talks to the 3D-conversion provider over HTTP.
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
		cred:    auth.BearerCredential(token),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// TaskRequest is the image-to-3D submission payload. Quality flags are
// fixed: PBR materials, texturing, and the latest model tier.
type TaskRequest struct {
	ImageURL      string `json:"image_url"`
	EnablePBR     bool   `json:"enable_pbr"`
	ShouldTexture bool   `json:"should_texture"`
	AIModel       string `json:"ai_model"`
}

// Task is the polled state of a conversion job.
type Task struct {
	Status    string            `json:"status"`
	Progress  int               `json:"progress"`
	ModelURLs map[string]string `json:"model_urls"`
	TaskError *TaskError        `json:"task_error,omitempty"`
}

// TaskError is the provider's nested failure detail.
type TaskError struct {
	Message string `json:"message"`
}

// CreateTask submits an image for conversion and returns the task ID found
// in the response's result field. A missing field is a fatal submission
// error.
func (c *Client) CreateTask(ctx context.Context, imageURL string) (string, error) {
	body, err := json.Marshal(TaskRequest{
		ImageURL:      imageURL,
		EnablePBR:     true,
		ShouldTexture: true,
		AIModel:       "latest",
	})
	if err != nil {
		return "", fmt.Errorf("marshal task request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+"/openapi/v1/image-to-3d", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("create task: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("create task failed: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var out struct {
		Result string `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode task response: %w", err)
	}
	if out.Result == "" {
		return "", fmt.Errorf("%w: task response missing task id", remotejob.ErrMalformedResponse)
	}
	return out.Result, nil
}

// GetTask performs one status check. HTTP 429 is returned as a transient
// error so the poll loop re-checks after a cooldown.
func (c *Client) GetTask(ctx context.Context, taskID string) (Task, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("%s/openapi/v1/image-to-3d/%s", c.baseURL, taskID), nil)
	if err != nil {
		return Task{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Task{}, fmt.Errorf("get task: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return Task{}, &remotejob.TransientError{Err: fmt.Errorf("rate limited")}
	}
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return Task{}, fmt.Errorf("get task failed: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var task Task
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		return Task{}, fmt.Errorf("decode task: %w", err)
	}
	return task, nil
}

// ErrorMessage flattens the nested task error to a message string.
func (t Task) ErrorMessage() string {
	if t.TaskError == nil || t.TaskError.Message == "" {
		return "unknown conversion error"
	}
	return t.TaskError.Message
}

// GLBURL returns the binary-geometry download URL of a succeeded task, or
// empty when the provider omitted it.
func (t Task) GLBURL() string {
	return t.ModelURLs["glb"]
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
