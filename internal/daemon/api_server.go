package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"subforge/internal/api"
	"subforge/internal/jobs"
	"subforge/internal/logging"
	"subforge/internal/logs"
	"subforge/internal/services"
)

// maxUploadBytes bounds multipart subtitle uploads. Subtitle files are tiny;
// anything close to this limit is malformed or hostile.
const maxUploadBytes = 10 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(bind string, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(bind),
		logger: logger.With(logging.String(logging.FieldComponent, "api")),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/submit", srv.handleSubmit)
	mux.HandleFunc("/api/submit/upload", srv.handleSubmitUpload)
	mux.HandleFunc("/api/jobs", srv.handleJobs)
	mux.HandleFunc("/api/jobs/", srv.handleJob)
	mux.HandleFunc("/api/logs", srv.handleLogs)
	mux.HandleFunc("/api/health", srv.handleHealth)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// addr reports the bound listen address, for tests that bind port zero.
func (s *apiServer) addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.SubmitRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	job, err := s.daemon.Submit(jobs.Request{
		VideoURL:    req.VideoURL,
		SubtitleURL: req.SubtitleURL,
		Resolutions: req.Resolutions,
		Soft:        req.Soft,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.SubmitResponse{JobID: job.ID})
}

func (s *apiServer) handleSubmitUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("subtitle")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "subtitle file is required")
		return
	}
	defer file.Close()

	if err := ValidateSubtitleExtension(header.Filename); err != nil {
		s.writeServiceError(w, err)
		return
	}
	stagedPath, err := s.stageUpload(file, header.Filename)
	if err != nil {
		s.logger.Error("failed to stage upload", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to store uploaded subtitle")
		return
	}

	job, err := s.daemon.Submit(jobs.Request{
		VideoURL:     r.FormValue("video_url"),
		SubtitlePath: stagedPath,
		Resolutions:  r.Form["resolutions"],
		Soft:         strings.EqualFold(r.FormValue("soft"), "true"),
	})
	if err != nil {
		_ = os.Remove(stagedPath)
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.SubmitResponse{JobID: job.ID})
}

// stageUpload copies the multipart part into the upload area under a unique
// name so concurrent submissions cannot collide.
func (s *apiServer) stageUpload(file io.Reader, filename string) (string, error) {
	uploadDir := filepath.Join(s.daemon.cfg.Paths.DownloadDir, "uploads")
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return "", err
	}
	stagedPath := filepath.Join(uploadDir, uuid.NewString()+strings.ToLower(filepath.Ext(filename)))
	out, err := os.Create(stagedPath)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, io.LimitReader(file, maxUploadBytes)); err != nil {
		out.Close()
		os.Remove(stagedPath)
		return "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(stagedPath)
		return "", err
	}
	return stagedPath, nil
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: s.daemon.Jobs()})
}

// handleJob routes /api/jobs/{id}, /api/jobs/{id}/cancel, and
// /api/jobs/{id}/output/{label}.
func (s *apiServer) handleJob(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		s.handleJobStatus(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "cancel":
		s.handleJobCancel(w, r, parts[0])
	case len(parts) == 3 && parts[1] == "output":
		s.handleJobOutput(w, r, parts[0], parts[2])
	default:
		s.writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *apiServer) handleJobStatus(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	job, err := s.daemon.Job(id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Job: job})
}

func (s *apiServer) handleJobCancel(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.daemon.Cancel(id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.CancelResponse{JobID: id, Cancelled: true})
}

func (s *apiServer) handleJobOutput(w http.ResponseWriter, r *http.Request, id, label string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	path, err := s.daemon.Output(id, label)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

// maxLogWait keeps follow-mode long polls inside the server write timeout.
const maxLogWait = 25 * time.Second

func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	opts := logs.TailOptions{Offset: -1, Limit: 100}
	query := r.URL.Query()
	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		opts.Offset = offset
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		opts.Limit = limit
	}
	if query.Get("follow") == "1" {
		opts.Follow = true
		opts.Wait = 10 * time.Second
		if raw := query.Get("wait_ms"); raw != "" {
			millis, err := strconv.Atoi(raw)
			if err != nil || millis < 0 {
				s.writeError(w, http.StatusBadRequest, "invalid wait_ms")
				return
			}
			opts.Wait = time.Duration(millis) * time.Millisecond
		}
		if opts.Wait > maxLogWait {
			opts.Wait = maxLogWait
		}
	}

	result, err := s.daemon.LogTail(r.Context(), opts)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.LogTailResponse{Lines: result.Lines, Offset: result.Offset})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, api.HealthResponse{
		Status:     "ok",
		ActiveJobs: s.daemon.ActiveJobs(),
	})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("failed to encode api response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

// writeServiceError maps the error taxonomy onto HTTP statuses.
func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}
