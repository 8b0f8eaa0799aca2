// Package encoding produces the rendition ladder for a processed video.
package encoding

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"subforge/internal/config"
	"subforge/internal/fileutil"
	"subforge/internal/logging"
	"subforge/internal/services"
	"subforge/internal/services/ffmpeg"
)

// Encoder scales a source video into resolution renditions, one at a time.
type Encoder struct {
	client    *ffmpeg.Client
	ffmpegCfg config.FFmpeg
	audio     config.Encoding
	outputDir string
	logger    *slog.Logger
}

// New builds a rendition encoder writing into outputDir.
func New(client *ffmpeg.Client, ffmpegCfg config.FFmpeg, audio config.Encoding, outputDir string, logger *slog.Logger) *Encoder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Encoder{
		client:    client,
		ffmpegCfg: ffmpegCfg,
		audio:     audio,
		outputDir: outputDir,
		logger:    logger.With(logging.String(logging.FieldComponent, "encoder")),
	}
}

// HeightForLabel parses a resolution label such as "720p" into a pixel
// height. The label must be a positive integer followed by "p".
func HeightForLabel(label string) (int, error) {
	trimmed := strings.ToLower(strings.TrimSpace(label))
	digits, ok := strings.CutSuffix(trimmed, "p")
	if !ok || digits == "" {
		return 0, services.Wrap(services.ErrValidation, "", "parse resolution",
			fmt.Sprintf("label %q", label), nil)
	}
	height, err := strconv.Atoi(digits)
	if err != nil || height <= 0 {
		return 0, services.Wrap(services.ErrValidation, "", "parse resolution",
			fmt.Sprintf("label %q", label), nil)
	}
	return height, nil
}

// Encode produces one rendition of inputPath at the given resolution label
// and returns its output path. Status lines from the encode are forwarded to
// onLine when non-nil.
func (e *Encoder) Encode(ctx context.Context, inputPath, label string, onLine func(string)) (string, error) {
	height, err := HeightForLabel(label)
	if err != nil {
		return "", err
	}
	if err := fileutil.EnsureDir(e.outputDir); err != nil {
		return "", fmt.Errorf("ensure output directory: %w", err)
	}

	base := filepath.Base(inputPath)
	outputPath := filepath.Join(e.outputDir, fileutil.WithSuffix(base, "-"+label, ".mp4"))

	e.logger.InfoContext(ctx, "encoding rendition",
		logging.String("label", label),
		logging.String("output", outputPath))

	req := ffmpeg.ScaleRequest{
		InputPath:  inputPath,
		OutputPath: outputPath,
		Height:     height,
		VideoCodec: e.ffmpegCfg.VideoCodec,
		CRF:        e.ffmpegCfg.CRF,
		Preset:     e.ffmpegCfg.Preset,
		Threads:    e.ffmpegCfg.Threads,
		AudioCodec: e.audio.AudioCodec,
		AudioRate:  e.audio.AudioRate,
	}
	if err := e.client.Scale(ctx, req, onLine); err != nil {
		// An interrupted encode leaves a truncated file behind.
		if removeErr := os.Remove(outputPath); removeErr != nil && !os.IsNotExist(removeErr) {
			e.logger.Warn("failed to remove partial rendition",
				logging.String("path", outputPath),
				logging.Error(removeErr))
		}
		if services.IsCancellation(err) {
			return "", err
		}
		return "", services.Wrap(services.ErrProcess, services.Stage(ctx),
			"encode rendition", label, ffmpeg.ClassifyExit(err))
	}
	return outputPath, nil
}
