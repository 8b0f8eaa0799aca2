// Package pipeline drives the four-stage processing pipeline for one job:
// download video, acquire subtitle, normalize and embed, encode renditions.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"subforge/internal/config"
	"subforge/internal/fileutil"
	"subforge/internal/jobs"
	"subforge/internal/logging"
	"subforge/internal/services"
	"subforge/internal/services/download"
	"subforge/internal/services/ffmpeg"
)

// Stage names surfaced in job status.
const (
	StageDownloadVideo    = "Download Video"
	StageAcquireSubtitle  = "Acquire Subtitle"
	StageProcessSubtitles = "Process Subtitles"
	StageEncodeVideos     = "Encode Videos"
)

// Downloader fetches a remote asset to destPath, reporting progress.
type Downloader interface {
	Fetch(ctx context.Context, url, destPath string, onProgress download.ProgressFunc) error
}

// Normalizer prepares a subtitle file for embedding and returns the path of
// the styled artifact.
type Normalizer interface {
	Normalize(ctx context.Context, subtitlePath string) (string, error)
}

// Embedder attaches or burns a subtitle into a video.
type Embedder interface {
	EmbedSoft(ctx context.Context, req ffmpeg.EmbedSoftRequest) error
	BurnIn(ctx context.Context, req ffmpeg.BurnInRequest, onLine func(string)) error
}

// Encoder produces one rendition per call.
type Encoder interface {
	Encode(ctx context.Context, inputPath, label string, onLine func(string)) (string, error)
}

// Prober reports the duration of a media file in seconds; zero means unknown.
type Prober interface {
	Duration(ctx context.Context, path string) float64
}

// Orchestrator executes jobs. One goroutine per job; the registry is the only
// shared state and serializes all access internally.
type Orchestrator struct {
	registry   *jobs.Registry
	downloader Downloader
	normalizer Normalizer
	embedder   Embedder
	encoder    Encoder
	prober     Prober
	cfg        *config.Config
	logger     *slog.Logger
	wg         sync.WaitGroup
}

// New assembles an orchestrator from its collaborators.
func New(
	registry *jobs.Registry,
	downloader Downloader,
	normalizer Normalizer,
	embedder Embedder,
	encoder Encoder,
	prober Prober,
	cfg *config.Config,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		registry:   registry,
		downloader: downloader,
		normalizer: normalizer,
		embedder:   embedder,
		encoder:    encoder,
		prober:     prober,
		cfg:        cfg,
		logger:     logger.With(logging.String(logging.FieldComponent, "pipeline")),
	}
}

// Launch starts the pipeline for job on its own goroutine and returns
// immediately.
func (o *Orchestrator) Launch(ctx context.Context, job *jobs.Job) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.Run(ctx, job.ID)
	}()
}

// Wait blocks until every launched job has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Run executes the full pipeline for the job and records its terminal state.
func (o *Orchestrator) Run(ctx context.Context, jobID string) {
	ctx = services.WithJobID(ctx, jobID)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	run := &jobRun{
		orchestrator: o,
		jobID:        jobID,
		cancelRun:    cancel,
		logger:       o.logger.With(logging.String(logging.FieldJobID, jobID)),
	}

	err := run.execute(runCtx)
	switch {
	case err == nil:
		run.finish(jobs.StatusCompleted, "")
		run.logger.InfoContext(ctx, "job completed")
	case services.IsCancellation(err) || o.registry.IsCancelled(jobID):
		run.removePartialOutput()
		run.finish(jobs.StatusCancelled, "cancelled by request")
		run.logger.InfoContext(ctx, "job cancelled")
	default:
		run.removePartialOutput()
		run.finish(jobs.StatusFailed, err.Error())
		run.logger.ErrorContext(ctx, "job failed", logging.Error(err))
	}
}

// jobRun carries per-execution state so Orchestrator itself stays stateless
// across jobs.
type jobRun struct {
	orchestrator *Orchestrator
	jobID        string
	cancelRun    context.CancelFunc
	logger       *slog.Logger

	videoPath    string
	subtitlePath string
	embeddedPath string
	// partialOutput is the file currently being written by an external
	// process. It is cleared once the file is known good.
	partialOutput string
}

func (r *jobRun) execute(ctx context.Context) error {
	job, err := r.orchestrator.registry.Get(r.jobID)
	if err != nil {
		return err
	}
	req := job.Request

	r.update(func(j *jobs.Job) { j.Status = jobs.StatusProcessing })

	if err := r.stageDownloadVideo(ctx, req); err != nil {
		return err
	}
	if err := r.stageAcquireSubtitle(ctx, job, req); err != nil {
		return err
	}
	if err := r.stageProcessSubtitles(ctx, req); err != nil {
		return err
	}
	return r.stageEncodeVideos(ctx, req)
}

// checkpoint observes the cancellation flag. On a positive check it cancels
// the run context so any in-flight process receives its termination signal.
func (r *jobRun) checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return services.Wrap(services.ErrCancelled, services.Stage(ctx), "", "run interrupted", nil)
	}
	if r.orchestrator.registry.IsCancelled(r.jobID) {
		r.cancelRun()
		r.update(func(j *jobs.Job) { j.Status = jobs.StatusCancelling })
		return services.Wrap(services.ErrCancelled, services.Stage(ctx), "", "cancellation requested", nil)
	}
	return nil
}

func (r *jobRun) beginStage(ctx context.Context, stage, task string) (context.Context, error) {
	ctx = services.WithStage(ctx, stage)
	if err := r.checkpoint(ctx); err != nil {
		return ctx, err
	}
	r.update(func(j *jobs.Job) {
		j.Stage = stage
		j.SetTask(task, jobs.TaskInProgress)
		j.Progress = jobs.Progress{}
	})
	r.logger.InfoContext(ctx, "stage started", logging.String(logging.FieldStage, stage))
	return ctx, nil
}

func (r *jobRun) endStage(ctx context.Context, task string, err error) error {
	if err != nil {
		if !services.IsCancellation(err) {
			r.update(func(j *jobs.Job) { j.SetTask(task, jobs.TaskFailed) })
		}
		return err
	}
	r.update(func(j *jobs.Job) { j.SetTask(task, jobs.TaskCompleted) })
	return nil
}

func (r *jobRun) stageDownloadVideo(ctx context.Context, req jobs.Request) error {
	ctx, err := r.beginStage(ctx, StageDownloadVideo, jobs.TaskDownloadVideo)
	if err != nil {
		return err
	}
	dest := filepath.Join(r.orchestrator.cfg.Paths.DownloadDir, r.jobID, "video"+sourceExt(req.VideoURL, ".mp4"))
	err = r.orchestrator.downloader.Fetch(ctx, req.VideoURL, dest, r.downloadProgress(ctx))
	if err == nil {
		r.videoPath = dest
	}
	return r.endStage(ctx, jobs.TaskDownloadVideo, err)
}

func (r *jobRun) stageAcquireSubtitle(ctx context.Context, job *jobs.Job, req jobs.Request) error {
	task := job.SubtitleTaskName()
	ctx, err := r.beginStage(ctx, StageAcquireSubtitle, task)
	if err != nil {
		return err
	}
	err = r.acquireSubtitle(ctx, req)
	return r.endStage(ctx, task, err)
}

func (r *jobRun) acquireSubtitle(ctx context.Context, req jobs.Request) error {
	jobDir := filepath.Join(r.orchestrator.cfg.Paths.DownloadDir, r.jobID)
	if req.SubtitlePath != "" {
		dest := filepath.Join(jobDir, "subtitle"+filepath.Ext(req.SubtitlePath))
		if err := fileutil.CopyFile(req.SubtitlePath, dest); err != nil {
			return fmt.Errorf("stage uploaded subtitle: %w", err)
		}
		r.subtitlePath = dest
		return nil
	}
	dest := filepath.Join(jobDir, "subtitle"+sourceExt(req.SubtitleURL, ".srt"))
	if err := r.orchestrator.downloader.Fetch(ctx, req.SubtitleURL, dest, r.downloadProgress(ctx)); err != nil {
		return err
	}
	r.subtitlePath = dest
	return nil
}

func (r *jobRun) stageProcessSubtitles(ctx context.Context, req jobs.Request) error {
	ctx, err := r.beginStage(ctx, StageProcessSubtitles, jobs.TaskProcessSubtitles)
	if err != nil {
		return err
	}
	err = r.processSubtitles(ctx, req)
	return r.endStage(ctx, jobs.TaskProcessSubtitles, err)
}

func (r *jobRun) processSubtitles(ctx context.Context, req jobs.Request) error {
	cfg := r.orchestrator.cfg

	processingDir := filepath.Join(cfg.Paths.ProcessingDir, r.jobID)
	if err := fileutil.EnsureDir(processingDir); err != nil {
		return fmt.Errorf("ensure processing directory: %w", err)
	}
	embedded := filepath.Join(processingDir, r.jobID+".mp4")

	if req.Soft {
		r.partialOutput = embedded
		err := r.orchestrator.embedder.EmbedSoft(ctx, ffmpeg.EmbedSoftRequest{
			VideoPath:    r.videoPath,
			SubtitlePath: r.subtitlePath,
			OutputPath:   embedded,
			Codec:        cfg.Subtitles.Codec,
			Language:     cfg.Subtitles.Language,
		})
		if err != nil {
			return r.classifyEmbedErr(ctx, err)
		}
		r.partialOutput = ""
		r.embeddedPath = embedded
		return nil
	}

	styled, err := r.orchestrator.normalizer.Normalize(ctx, r.subtitlePath)
	if err != nil {
		return err
	}

	total := r.orchestrator.prober.Duration(ctx, r.videoPath)
	monitor := ffmpeg.NewMonitor(total, r.stageProgress(total))

	r.partialOutput = embedded
	err = r.orchestrator.embedder.BurnIn(ctx, ffmpeg.BurnInRequest{
		VideoPath:    r.videoPath,
		SubtitlePath: styled,
		OutputPath:   embedded,
		FontDir:      cfg.Paths.FontDir,
		VideoCodec:   cfg.FFmpeg.VideoCodec,
		CRF:          cfg.FFmpeg.CRF,
		Preset:       cfg.FFmpeg.Preset,
		Threads:      cfg.FFmpeg.Threads,
		MuxQueueSize: cfg.FFmpeg.MaxMuxingQueueSize,
	}, func(line string) {
		monitor.HandleLine(line)
		// Cancellation is observed per status line during the burn.
		_ = r.checkpoint(ctx)
	})
	if err != nil {
		return r.classifyEmbedErr(ctx, err)
	}
	r.partialOutput = ""
	r.embeddedPath = embedded
	return nil
}

func (r *jobRun) classifyEmbedErr(ctx context.Context, err error) error {
	if services.IsCancellation(err) {
		return err
	}
	return services.Wrap(services.ErrProcess, services.Stage(ctx),
		"embed subtitle", "", ffmpeg.ClassifyExit(err))
}

func (r *jobRun) stageEncodeVideos(ctx context.Context, req jobs.Request) error {
	ctx, err := r.beginStage(ctx, StageEncodeVideos, jobs.TaskEncodeVideos)
	if err != nil {
		return err
	}
	err = r.encodeRenditions(ctx, req)
	return r.endStage(ctx, jobs.TaskEncodeVideos, err)
}

func (r *jobRun) encodeRenditions(ctx context.Context, req jobs.Request) error {
	total := r.orchestrator.prober.Duration(ctx, r.embeddedPath)
	for _, label := range req.Resolutions {
		if err := r.checkpoint(ctx); err != nil {
			return err
		}
		monitor := ffmpeg.NewMonitor(total, r.stageProgress(total))
		outputPath, err := r.orchestrator.encoder.Encode(ctx, r.embeddedPath, label, func(line string) {
			monitor.HandleLine(line)
			_ = r.checkpoint(ctx)
		})
		if err != nil {
			return err
		}
		r.update(func(j *jobs.Job) { j.Outputs[label] = outputPath })
		r.logger.InfoContext(ctx, "rendition ready",
			logging.String("label", label),
			logging.String("path", outputPath))
	}
	return nil
}

// downloadProgress maps transfer progress onto the job entry. Total stays
// zero when the server announces no content length.
func (r *jobRun) downloadProgress(ctx context.Context) download.ProgressFunc {
	return func(percent float64, written, total int64) {
		_ = r.checkpoint(ctx)
		r.update(func(j *jobs.Job) {
			j.Progress.Current = float64(written)
			j.Progress.Total = float64(total)
			if percent >= 0 {
				j.Progress.Percent = percent
			}
		})
	}
}

// stageProgress maps encode progress onto the job entry. A negative percent
// means the total duration is unknown; only elapsed time is recorded then.
func (r *jobRun) stageProgress(total float64) ffmpeg.ProgressFunc {
	return func(percent, elapsed float64) {
		r.update(func(j *jobs.Job) {
			j.Progress.Current = elapsed
			j.Progress.Total = total
			if percent >= 0 {
				j.Progress.Percent = percent
			}
		})
	}
}

func (r *jobRun) update(mutate func(*jobs.Job)) {
	r.orchestrator.registry.Update(r.jobID, mutate)
}

func (r *jobRun) finish(status jobs.Status, message string) {
	r.update(func(j *jobs.Job) {
		j.Status = status
		j.Error = message
		if status == jobs.StatusCompleted {
			j.Stage = ""
			j.Progress.Percent = 100
		}
	})
}

// removePartialOutput deletes the file an interrupted process may have left
// behind. Successfully produced files are never touched.
func (r *jobRun) removePartialOutput() {
	if r.partialOutput == "" {
		return
	}
	if err := os.Remove(r.partialOutput); err != nil && !os.IsNotExist(err) {
		r.logger.Warn("failed to remove partial output",
			logging.String("path", r.partialOutput),
			logging.Error(err))
	}
	r.partialOutput = ""
}

// sourceExt extracts a usable file extension from a source URL, falling back
// when the URL carries none.
func sourceExt(rawURL, fallback string) string {
	if ext := filepath.Ext(filepath.Base(rawURL)); ext != "" && len(ext) <= 5 {
		return ext
	}
	return fallback
}
