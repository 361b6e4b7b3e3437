package meshy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cyberbaby/generator/pkg/remotejob"
)

func TestCreateTask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openapi/v1/image-to-3d" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Fatalf("unexpected auth header %q", got)
		}
		var req TaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.ImageURL != "https://cdn/baby.jpg" {
			t.Fatalf("unexpected image URL %s", req.ImageURL)
		}
		if !req.EnablePBR || !req.ShouldTexture || req.AIModel != "latest" {
			t.Fatalf("quality flags not fixed: %+v", req)
		}
		io.WriteString(w, `{"result":"task-7"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	taskID, err := c.CreateTask(context.Background(), "https://cdn/baby.jpg")
	if err != nil {
		t.Fatalf("CreateTask returned error: %v", err)
	}
	if taskID != "task-7" {
		t.Fatalf("unexpected task ID %s", taskID)
	}
}

func TestCreateTaskMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	_, err := c.CreateTask(context.Background(), "https://cdn/baby.jpg")
	if !errors.Is(err, remotejob.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestGetTask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openapi/v1/image-to-3d/task-7" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		io.WriteString(w, `{"status":"SUCCEEDED","progress":100,"model_urls":{"glb":"https://assets/model.glb","obj":"https://assets/model.obj"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	task, err := c.GetTask(context.Background(), "task-7")
	if err != nil {
		t.Fatalf("GetTask returned error: %v", err)
	}
	if task.Status != StatusSucceeded {
		t.Fatalf("unexpected status %s", task.Status)
	}
	if task.GLBURL() != "https://assets/model.glb" {
		t.Fatalf("unexpected GLB URL %s", task.GLBURL())
	}
}

func TestGetTaskRateLimited(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, `{"status":"PENDING","progress":0}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")

	_, err := c.GetTask(context.Background(), "task-7")
	if !remotejob.IsTransient(err) {
		t.Fatalf("expected transient error for 429, got %v", err)
	}
	_, err = c.GetTask(context.Background(), "task-7")
	if !remotejob.IsTransient(err) {
		t.Fatalf("expected transient error for second 429, got %v", err)
	}
	task, err := c.GetTask(context.Background(), "task-7")
	if err != nil {
		t.Fatalf("GetTask returned error: %v", err)
	}
	if task.Status != StatusPending {
		t.Fatalf("unexpected status %s", task.Status)
	}
}

func TestTaskErrorMessage(t *testing.T) {
	task := Task{TaskError: &TaskError{Message: "mesh generation failed"}}
	if task.ErrorMessage() != "mesh generation failed" {
		t.Fatalf("unexpected message %s", task.ErrorMessage())
	}
	if (Task{}).ErrorMessage() != "unknown conversion error" {
		t.Fatal("missing task error must flatten to a default message")
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := map[string]remotejob.Outcome{
		StatusPending:    remotejob.OutcomeInProgress,
		StatusProcessing: remotejob.OutcomeInProgress,
		StatusInProgress: remotejob.OutcomeInProgress,
		StatusSucceeded:  remotejob.OutcomeSucceeded,
		StatusFailed:     remotejob.OutcomeFailed,
		"EXPIRED":        remotejob.OutcomeUnknown,
	}
	for status, want := range tests {
		if got := ClassifyStatus(status); got != want {
			t.Fatalf("ClassifyStatus(%q) = %v, want %v", status, got, want)
		}
	}
}
