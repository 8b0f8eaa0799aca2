// Package daemon hosts the long-running process: single-instance locking,
// job submission, and the HTTP API.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"subforge/internal/config"
	"subforge/internal/encoding"
	"subforge/internal/jobs"
	"subforge/internal/logging"
	"subforge/internal/logs"
	"subforge/internal/media/ffprobe"
	"subforge/internal/pipeline"
	"subforge/internal/preflight"
	"subforge/internal/services"
	"subforge/internal/services/download"
	"subforge/internal/services/ffmpeg"
	"subforge/internal/subtitle"
)

// Extensions accepted for uploaded subtitle files.
var allowedSubtitleExtensions = map[string]struct{}{
	".srt": {},
	".ass": {},
	".vtt": {},
	".sub": {},
	".ssa": {},
}

// Daemon owns the registry and orchestrator and enforces single-instance
// execution through a file lock.
type Daemon struct {
	cfg          *config.Config
	logger       *slog.Logger
	registry     *jobs.Registry
	orchestrator *pipeline.Orchestrator

	lockPath string
	lock     *flock.Flock
	logPath  string

	api *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Option overrides a pipeline collaborator, primarily for tests.
type Option func(*collaborators)

type collaborators struct {
	downloader pipeline.Downloader
	normalizer pipeline.Normalizer
	embedder   pipeline.Embedder
	encoder    pipeline.Encoder
	prober     pipeline.Prober
}

// WithDownloader replaces the HTTP downloader.
func WithDownloader(d pipeline.Downloader) Option {
	return func(c *collaborators) { c.downloader = d }
}

// WithNormalizer replaces the subtitle normalizer.
func WithNormalizer(n pipeline.Normalizer) Option {
	return func(c *collaborators) { c.normalizer = n }
}

// WithEmbedder replaces the subtitle embedder.
func WithEmbedder(e pipeline.Embedder) Option {
	return func(c *collaborators) { c.embedder = e }
}

// WithEncoder replaces the rendition encoder.
func WithEncoder(e pipeline.Encoder) Option {
	return func(c *collaborators) { c.encoder = e }
}

// WithProber replaces the duration prober.
func WithProber(p pipeline.Prober) Option {
	return func(c *collaborators) { c.prober = p }
}

// New wires the full pipeline from config and returns a daemon ready to
// start.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	grace := time.Duration(cfg.Workflow.CancelGracePeriod) * time.Second
	client, err := ffmpeg.New(cfg.FFmpegBinary(), grace)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg client: %w", err)
	}

	registry := jobs.NewRegistry()
	collab := &collaborators{
		downloader: download.New(time.Duration(cfg.Workflow.DownloadTimeout) * time.Second),
		normalizer: subtitle.NewNormalizer(client, cfg.Subtitles, cfg.Paths.FontDir, logger),
		embedder:   client,
		encoder:    encoding.New(client, cfg.FFmpeg, cfg.Encoding, cfg.Paths.OutputDir, logger),
		prober:     ffprobe.Prober{Binary: cfg.FFprobeBinary()},
	}
	for _, opt := range opts {
		opt(collab)
	}

	orchestrator := pipeline.New(registry, collab.downloader, collab.normalizer,
		collab.embedder, collab.encoder, collab.prober, cfg, logger)

	lockPath := filepath.Join(cfg.Paths.LogDir, "subforged.lock")
	d := &Daemon{
		cfg:          cfg,
		logger:       logger.With(logging.String(logging.FieldComponent, "daemon")),
		registry:     registry,
		orchestrator: orchestrator,
		lockPath:     lockPath,
		lock:         flock.New(lockPath),
	}
	d.api = newAPIServer(cfg.Paths.APIBind, d, logger)
	return d, nil
}

// Start acquires the daemon lock, runs preflight, and brings up the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another subforge daemon instance is already running")
	}

	results := preflight.RunAll(d.cfg)
	for _, result := range results {
		if result.Passed {
			d.logger.Info("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail))
		} else {
			d.logger.Error("preflight check failed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail))
		}
	}
	if err := preflight.Summarize(results); err != nil {
		_ = d.lock.Unlock()
		return err
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts down the API, waits for in-flight jobs, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.orchestrator.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Submit validates the request, registers a job, and launches its pipeline.
func (d *Daemon) Submit(req jobs.Request) (*jobs.Job, error) {
	if err := validateRequest(&req, d.cfg); err != nil {
		return nil, err
	}
	job := jobs.NewJob(req)
	if err := d.registry.Create(job); err != nil {
		return nil, err
	}
	ctx := d.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	d.orchestrator.Launch(ctx, job)
	d.logger.Info("job submitted",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("video_url", req.VideoURL),
		logging.Bool("soft", req.Soft))
	return job, nil
}

// Job returns a copy of the job, or a not-found error.
func (d *Daemon) Job(id string) (*jobs.Job, error) {
	return d.registry.Get(id)
}

// Jobs returns every known job, newest first.
func (d *Daemon) Jobs() []*jobs.Job {
	return d.registry.List()
}

// Cancel flags the job for cancellation.
func (d *Daemon) Cancel(id string) error {
	if err := d.registry.RequestCancel(id); err != nil {
		return err
	}
	d.logger.Info("cancellation requested", logging.String(logging.FieldJobID, id))
	return nil
}

// Output resolves the produced file for one rendition of a completed job.
func (d *Daemon) Output(id, label string) (string, error) {
	job, err := d.registry.Get(id)
	if err != nil {
		return "", err
	}
	path, ok := job.Outputs[label]
	if !ok {
		return "", services.Wrap(services.ErrNotFound, "", "get output",
			fmt.Sprintf("job %s has no %s rendition", id, label), nil)
	}
	return path, nil
}

// ActiveJobs reports how many jobs are not yet terminal.
func (d *Daemon) ActiveJobs() int {
	return d.registry.ActiveCount()
}

// SetLogPath points the log tail API at the file the daemon writes to. Must
// be called before Start.
func (d *Daemon) SetLogPath(path string) {
	d.logPath = path
}

// LogTail reads from the daemon log file. Returns a not-found error when no
// log file has been configured.
func (d *Daemon) LogTail(ctx context.Context, opts logs.TailOptions) (logs.TailResult, error) {
	if d.logPath == "" {
		return logs.TailResult{}, services.Wrap(services.ErrNotFound, "", "tail logs",
			"daemon has no log file configured", nil)
	}
	return logs.Tail(ctx, d.logPath, opts)
}

func validateRequest(req *jobs.Request, cfg *config.Config) error {
	req.VideoURL = strings.TrimSpace(req.VideoURL)
	req.SubtitleURL = strings.TrimSpace(req.SubtitleURL)

	if req.VideoURL == "" {
		return services.Wrap(services.ErrValidation, "", "submit", "video_url is required", nil)
	}
	if _, err := url.ParseRequestURI(req.VideoURL); err != nil {
		return services.Wrap(services.ErrValidation, "", "submit",
			fmt.Sprintf("video_url %q is not a valid URL", req.VideoURL), nil)
	}
	if req.SubtitleURL == "" && req.SubtitlePath == "" {
		return services.Wrap(services.ErrValidation, "", "submit",
			"either subtitle_url or an uploaded subtitle file is required", nil)
	}
	if req.SubtitleURL != "" {
		if _, err := url.ParseRequestURI(req.SubtitleURL); err != nil {
			return services.Wrap(services.ErrValidation, "", "submit",
				fmt.Sprintf("subtitle_url %q is not a valid URL", req.SubtitleURL), nil)
		}
	}
	if req.SubtitlePath != "" {
		if err := ValidateSubtitleExtension(req.SubtitlePath); err != nil {
			return err
		}
	}

	if len(req.Resolutions) == 0 {
		req.Resolutions = append([]string(nil), cfg.Encoding.Resolutions...)
	}
	seen := make(map[string]struct{}, len(req.Resolutions))
	for _, label := range req.Resolutions {
		if _, err := encoding.HeightForLabel(label); err != nil {
			return err
		}
		if _, dup := seen[label]; dup {
			return services.Wrap(services.ErrValidation, "", "submit",
				fmt.Sprintf("duplicate resolution %q", label), nil)
		}
		seen[label] = struct{}{}
	}
	return nil
}

// ValidateSubtitleExtension rejects upload filenames outside the subtitle
// format allowlist.
func ValidateSubtitleExtension(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := allowedSubtitleExtensions[ext]; !ok {
		return services.Wrap(services.ErrValidation, "", "submit",
			fmt.Sprintf("subtitle extension %q is not supported", ext), nil)
	}
	return nil
}
