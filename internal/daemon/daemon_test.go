package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"subforge/internal/config"
	"subforge/internal/jobs"
	"subforge/internal/services"
	"subforge/internal/services/download"
	"subforge/internal/services/ffmpeg"
	"subforge/internal/testsupport"
)

type stubDownloader struct{}

func (stubDownloader) Fetch(ctx context.Context, url, destPath string, onProgress download.ProgressFunc) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(destPath, []byte("asset"), 0o644)
}

type stubNormalizer struct{}

func (stubNormalizer) Normalize(ctx context.Context, subtitlePath string) (string, error) {
	return subtitlePath, nil
}

type stubEmbedder struct{}

func (stubEmbedder) EmbedSoft(ctx context.Context, req ffmpeg.EmbedSoftRequest) error {
	return os.WriteFile(req.OutputPath, []byte("embedded"), 0o644)
}

func (stubEmbedder) BurnIn(ctx context.Context, req ffmpeg.BurnInRequest, onLine func(string)) error {
	return os.WriteFile(req.OutputPath, []byte("burned"), 0o644)
}

type stubEncoder struct{}

func (stubEncoder) Encode(ctx context.Context, inputPath, label string, onLine func(string)) (string, error) {
	out := inputPath + "." + label + ".mp4"
	return out, os.WriteFile(out, []byte(label), 0o644)
}

type stubProber struct{}

func (stubProber) Duration(ctx context.Context, path string) float64 { return 60 }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
}

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	d, err := New(testConfig(t), nil,
		WithDownloader(stubDownloader{}),
		WithNormalizer(stubNormalizer{}),
		WithEmbedder(stubEmbedder{}),
		WithEncoder(stubEncoder{}),
		WithProber(stubProber{}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func waitForTerminal(t *testing.T, d *Daemon, id string) *jobs.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := d.Job(id)
		if err != nil {
			t.Fatalf("Job: %v", err)
		}
		if job.Status.IsTerminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state")
	return nil
}

func TestSubmitRunsJobToCompletion(t *testing.T) {
	d := newTestDaemon(t)
	job, err := d.Submit(jobs.Request{
		VideoURL:    "http://example.com/video.mp4",
		SubtitleURL: "http://example.com/subs.srt",
		Resolutions: []string{"360p", "720p"},
		Soft:        true,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	got := waitForTerminal(t, d, job.ID)
	if got.Status != jobs.StatusCompleted {
		t.Fatalf("status = %s (error %q), want completed", got.Status, got.Error)
	}
	if len(got.Outputs) != 2 {
		t.Fatalf("outputs = %v, want two renditions", got.Outputs)
	}
}

func TestSubmitDefaultsResolutionsFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithStubbedBinaries(),
		testsupport.WithResolutions("480p"))
	d, err := New(cfg, nil,
		WithDownloader(stubDownloader{}),
		WithNormalizer(stubNormalizer{}),
		WithEmbedder(stubEmbedder{}),
		WithEncoder(stubEncoder{}),
		WithProber(stubProber{}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	job, err := d.Submit(jobs.Request{
		VideoURL:    "http://example.com/video.mp4",
		SubtitleURL: "http://example.com/subs.srt",
		Soft:        true,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(job.Request.Resolutions) != 1 || job.Request.Resolutions[0] != "480p" {
		t.Fatalf("resolutions = %v, want config defaults", job.Request.Resolutions)
	}
}

func TestSubmitValidation(t *testing.T) {
	d := newTestDaemon(t)
	cases := []struct {
		name string
		req  jobs.Request
	}{
		{"missing video url", jobs.Request{SubtitleURL: "http://example.com/s.srt"}},
		{"bad video url", jobs.Request{VideoURL: "not a url", SubtitleURL: "http://example.com/s.srt"}},
		{"missing subtitle", jobs.Request{VideoURL: "http://example.com/v.mp4"}},
		{"bad resolution", jobs.Request{VideoURL: "http://example.com/v.mp4", SubtitleURL: "http://example.com/s.srt", Resolutions: []string{"potato"}}},
		{"duplicate resolution", jobs.Request{VideoURL: "http://example.com/v.mp4", SubtitleURL: "http://example.com/s.srt", Resolutions: []string{"360p", "360p"}}},
		{"bad upload extension", jobs.Request{VideoURL: "http://example.com/v.mp4", SubtitlePath: "/tmp/subs.exe"}},
	}
	for _, tc := range cases {
		if _, err := d.Submit(tc.req); !errors.Is(err, services.ErrValidation) {
			t.Errorf("%s: error = %v, want ErrValidation", tc.name, err)
		}
	}
}

func TestCancelUnknownJob(t *testing.T) {
	d := newTestDaemon(t)
	if err := d.Cancel("missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestOutputLookup(t *testing.T) {
	d := newTestDaemon(t)
	job, err := d.Submit(jobs.Request{
		VideoURL:    "http://example.com/video.mp4",
		SubtitleURL: "http://example.com/subs.srt",
		Resolutions: []string{"360p"},
		Soft:        true,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitForTerminal(t, d, job.ID)

	path, err := d.Output(job.ID, "360p")
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("output file missing: %v", err)
	}
	if _, err := d.Output(job.ID, "1080p"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound for absent rendition", err)
	}
}

func TestStartRejectsSecondInstance(t *testing.T) {
	d := newTestDaemon(t)
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	second, err := New(d.cfg, nil,
		WithDownloader(stubDownloader{}),
		WithNormalizer(stubNormalizer{}),
		WithEmbedder(stubEmbedder{}),
		WithEncoder(stubEncoder{}),
		WithProber(stubProber{}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("second instance acquired the lock")
	}
}

func TestValidateSubtitleExtension(t *testing.T) {
	for _, name := range []string{"a.srt", "b.ASS", "c.vtt", "d.sub", "e.ssa"} {
		if err := ValidateSubtitleExtension(name); err != nil {
			t.Errorf("ValidateSubtitleExtension(%q): %v", name, err)
		}
	}
	for _, name := range []string{"a.exe", "b.txt", "noext"} {
		if err := ValidateSubtitleExtension(name); err == nil {
			t.Errorf("ValidateSubtitleExtension(%q) expected error", name)
		}
	}
}
