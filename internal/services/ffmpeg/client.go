package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps ffmpeg CLI interactions.
type Client struct {
	binary string
	exec   Executor
}

// New constructs an ffmpeg client. gracePeriod bounds how long a cancelled
// process may linger after SIGTERM before it is force-killed.
func New(binary string, gracePeriod time.Duration, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	client := &Client{
		binary: binary,
		exec:   commandExecutor{grace: gracePeriod},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// EmbedSoftRequest describes a stream-copy subtitle embed.
type EmbedSoftRequest struct {
	VideoPath    string
	SubtitlePath string
	OutputPath   string
	Codec        string
	Language     string
}

// EmbedSoft muxes the subtitle as a toggleable track without re-encoding.
func (c *Client) EmbedSoft(ctx context.Context, req EmbedSoftRequest) error {
	if err := validatePaths(req.VideoPath, req.SubtitlePath, req.OutputPath); err != nil {
		return err
	}
	codec := req.Codec
	if codec == "" {
		codec = "mov_text"
	}
	language := req.Language
	if language == "" {
		language = "eng"
	}
	args := []string{
		"-i", req.VideoPath,
		"-i", req.SubtitlePath,
		"-c:v", "copy",
		"-c:a", "copy",
		"-c:s", codec,
		"-metadata:s:s:0", "language=" + language,
		"-disposition:s:0", "default",
		"-y",
		req.OutputPath,
	}
	if err := c.exec.Run(ctx, c.binary, args, nil); err != nil {
		return fmt.Errorf("ffmpeg soft embed: %w", err)
	}
	return nil
}

// BurnInRequest describes a hard subtitle burn requiring a full re-encode.
type BurnInRequest struct {
	VideoPath    string
	SubtitlePath string
	OutputPath   string
	FontDir      string
	VideoCodec   string
	CRF          int
	Preset       string
	Threads      int
	MuxQueueSize int
}

// BurnIn renders the subtitle into the video pixels. Every line of ffmpeg
// status output is forwarded to onLine so the caller can track progress and
// observe cancellation between lines.
func (c *Client) BurnIn(ctx context.Context, req BurnInRequest, onLine func(string)) error {
	if err := validatePaths(req.VideoPath, req.SubtitlePath, req.OutputPath); err != nil {
		return err
	}
	filter := "subtitles='" + FilterPath(req.SubtitlePath) + "'"
	if dir := strings.TrimSpace(req.FontDir); dir != "" {
		filter += ":fontsdir='" + FilterPath(dir) + "'"
	}
	codec := req.VideoCodec
	if codec == "" {
		codec = "libx264"
	}
	preset := req.Preset
	if preset == "" {
		preset = "medium"
	}
	queueSize := req.MuxQueueSize
	if queueSize <= 0 {
		queueSize = 1024
	}
	args := []string{
		"-i", req.VideoPath,
		"-vf", filter,
		"-c:v", codec,
		"-crf", strconv.Itoa(req.CRF),
		"-preset", preset,
		"-threads", strconv.Itoa(req.Threads),
		"-c:a", "copy",
		"-max_muxing_queue_size", strconv.Itoa(queueSize),
		"-y",
		req.OutputPath,
	}
	if err := c.exec.Run(ctx, c.binary, args, onLine); err != nil {
		return fmt.Errorf("ffmpeg burn-in: %w", err)
	}
	return nil
}

// Convert transcodes a subtitle file between formats, e.g. SRT to ASS.
func (c *Client) Convert(ctx context.Context, inputPath, outputPath string) error {
	if err := validatePaths(inputPath, outputPath); err != nil {
		return err
	}
	args := []string{"-i", inputPath, "-y", outputPath}
	if err := c.exec.Run(ctx, c.binary, args, nil); err != nil {
		return fmt.Errorf("ffmpeg convert: %w", err)
	}
	return nil
}

// ScaleRequest describes a single rendition encode.
type ScaleRequest struct {
	InputPath  string
	OutputPath string
	Height     int
	VideoCodec string
	CRF        int
	Preset     string
	Threads    int
	AudioCodec string
	AudioRate  string
}

// Scale re-encodes the input to the requested height, preserving aspect ratio.
func (c *Client) Scale(ctx context.Context, req ScaleRequest, onLine func(string)) error {
	if err := validatePaths(req.InputPath, req.OutputPath); err != nil {
		return err
	}
	if req.Height <= 0 {
		return fmt.Errorf("ffmpeg scale: invalid height %d", req.Height)
	}
	codec := req.VideoCodec
	if codec == "" {
		codec = "libx264"
	}
	audioCodec := req.AudioCodec
	if audioCodec == "" {
		audioCodec = "aac"
	}
	audioRate := req.AudioRate
	if audioRate == "" {
		audioRate = "128k"
	}
	args := []string{
		"-i", req.InputPath,
		"-vf", fmt.Sprintf("scale=-2:%d", req.Height),
		"-c:v", codec,
		"-crf", strconv.Itoa(req.CRF),
		"-preset", req.Preset,
		"-threads", strconv.Itoa(req.Threads),
		"-c:a", audioCodec,
		"-b:a", audioRate,
		"-y",
		req.OutputPath,
	}
	if err := c.exec.Run(ctx, c.binary, args, onLine); err != nil {
		return fmt.Errorf("ffmpeg scale: %w", err)
	}
	return nil
}

func validatePaths(paths ...string) error {
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			return errors.New("ffmpeg: empty path argument")
		}
	}
	return nil
}

type commandExecutor struct {
	grace time.Duration
}

func (e commandExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	// On cancellation ask the process to stop, then force-kill after the
	// grace period so a wedged encode cannot outlive its job.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	if e.grace > 0 {
		cmd.WaitDelay = e.grace
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	// Both streams feed the same callback; serialize so callbacks need no
	// locking of their own.
	var lineMu sync.Mutex
	var wg sync.WaitGroup
	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		scanner.Split(scanStatusLines)
		for scanner.Scan() {
			if onLine != nil {
				lineMu.Lock()
				onLine(scanner.Text())
				lineMu.Unlock()
			}
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// scanStatusLines splits on both newlines and carriage returns so ffmpeg's
// in-place progress updates surface as individual lines.
func scanStatusLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
