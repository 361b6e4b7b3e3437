package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/cyberbaby/generator/pkg/auth"
	"github.com/cyberbaby/generator/pkg/config"
	"github.com/cyberbaby/generator/pkg/queue"
)

// Per-file cap on uploaded parent photos.
const maxUploadBytes = 20 << 20

type server struct {
	cfg   config.Config
	queue *queue.Queue
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	q, err := queue.NewQueue(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to queue: %v", err)
	}
	defer q.Close()

	srv := &server{cfg: cfg, queue: q}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(timeoutMiddleware(60 * time.Second))

	router.Get("/healthz", srv.handleHealthz)

	router.Group(func(r chi.Router) {
		r.Use(apiKeyMiddleware(cfg.APIKey))
		r.Post("/runs", srv.handleSubmitRun)
		r.Get("/runs/{id}", srv.handleGetRun)
		r.Get("/runs/{id}/artifacts/{name}", srv.handleGetArtifact)
	})

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("gateway shutdown error: %v", err)
		}
	}()

	log.Printf("gateway listening on %s", cfg.ListenAddr)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("gateway listen failed: %v", err)
	}

	<-ctx.Done()
	log.Println("gateway stopped")
}

// apiKeyMiddleware requires a matching Bearer key when one is configured.
func apiKeyMiddleware(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			got, err := auth.ExtractKey(r)
			if err != nil || got != key {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	queued, err := s.queue.Len(r.Context())
	if err != nil {
		http.Error(w, "queue unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "queued": queued})
}

func (s *server) handleSubmitRun(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	runID := uuid.New().String()
	runDir, err := os.MkdirTemp("", "babygen-"+runID)
	if err != nil {
		http.Error(w, "failed to stage uploads", http.StatusInternalServerError)
		return
	}

	run := &queue.Run{
		ID:        runID,
		OutputDir: filepath.Join(runDir, "output"),
	}

	run.Parent1Path, err = s.saveUpload(r, "parent1", runDir)
	if err != nil {
		os.RemoveAll(runDir)
		http.Error(w, fmt.Sprintf("parent1: %v", err), http.StatusBadRequest)
		return
	}
	run.Parent2Path, err = s.saveUpload(r, "parent2", runDir)
	if err != nil {
		os.RemoveAll(runDir)
		http.Error(w, fmt.Sprintf("parent2: %v", err), http.StatusBadRequest)
		return
	}
	if len(r.MultipartForm.File["reference_body"]) > 0 {
		run.ReferenceBodyPath, err = s.saveUpload(r, "reference_body", runDir)
		if err != nil {
			os.RemoveAll(runDir)
			http.Error(w, fmt.Sprintf("reference_body: %v", err), http.StatusBadRequest)
			return
		}
	}

	if err := s.queue.Enqueue(r.Context(), run); err != nil {
		os.RemoveAll(runDir)
		http.Error(w, "failed to enqueue run", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"id":         runID,
		"status_url": "/runs/" + runID,
	})
}

func (s *server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.queue.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	// Artifact paths are local to the worker; rewrite them as download URLs.
	resp := *run
	if len(run.Artifacts) > 0 {
		resp.Artifacts = make(map[string]string, len(run.Artifacts))
		for name := range run.Artifacts {
			resp.Artifacts[name] = fmt.Sprintf("/runs/%s/artifacts/%s", run.ID, name)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	run, err := s.queue.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if run.Status != queue.StatusCompleted {
		http.Error(w, "run not completed", http.StatusConflict)
		return
	}

	path, ok := run.Artifacts[chi.URLParam(r, "name")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}

func (s *server) saveUpload(r *http.Request, field, dir string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", fmt.Errorf("missing file")
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if name == "" || name == "." || strings.ContainsAny(name, "/\\") {
		name = field + ".jpg"
	}
	path := filepath.Join(dir, field+filepath.Ext(name))

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("stage upload: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, io.LimitReader(file, maxUploadBytes)); err != nil {
		return "", fmt.Errorf("stage upload: %w", err)
	}
	return path, nil
}
