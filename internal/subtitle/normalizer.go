// Package subtitle normalizes subtitle artifacts for embedding and burn-in:
// text encoding repair, conversion to the ASS styled-track format, and
// Default-style rewriting.
package subtitle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"subforge/internal/config"
	"subforge/internal/fileutil"
	"subforge/internal/logging"
	"subforge/internal/services"
)

// Converter turns a line-based subtitle file into the ASS format. The ffmpeg
// client satisfies this.
type Converter interface {
	Convert(ctx context.Context, inputPath, outputPath string) error
}

// Normalizer prepares a subtitle file for burn-in. The original file is never
// modified; every step writes a new artifact beside it.
type Normalizer struct {
	converter Converter
	cfg       config.Subtitles
	fontDir   string
	logger    *slog.Logger
}

// NewNormalizer builds a normalizer writing artifacts with the given
// converter and style configuration.
func NewNormalizer(converter Converter, cfg config.Subtitles, fontDir string, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Normalizer{
		converter: converter,
		cfg:       cfg,
		fontDir:   fontDir,
		logger:    logger.With(logging.String(logging.FieldComponent, "subtitle")),
	}
}

// Normalize runs the full pipeline on subtitlePath and returns the path of a
// styled ASS file ready for the subtitles filter.
func (n *Normalizer) Normalize(ctx context.Context, subtitlePath string) (string, error) {
	utfPath, err := n.normalizeEncoding(ctx, subtitlePath)
	if err != nil {
		return "", err
	}
	assPath, err := n.ensureASS(ctx, utfPath)
	if err != nil {
		return "", err
	}
	if err := n.injectStyle(ctx, assPath); err != nil {
		return "", err
	}
	return assPath, nil
}

// normalizeEncoding rewrites the subtitle as BOM-less UTF-8. Files already in
// that shape are copied byte for byte.
func (n *Normalizer) normalizeEncoding(ctx context.Context, subtitlePath string) (string, error) {
	data, err := os.ReadFile(subtitlePath)
	if err != nil {
		return "", services.Wrap(services.ErrSubtitle, services.Stage(ctx),
			"read subtitle", "", err)
	}
	decoded, sourceEncoding, err := ToUTF8(data)
	if err != nil {
		return "", err
	}
	outPath := fileutil.WithSuffix(subtitlePath, ".utf8", filepath.Ext(subtitlePath))
	if err := os.WriteFile(outPath, decoded, 0o644); err != nil {
		return "", services.Wrap(services.ErrSubtitle, services.Stage(ctx),
			"write normalized subtitle", "", err)
	}
	n.logger.InfoContext(ctx, "subtitle encoding normalized",
		logging.String("source_encoding", sourceEncoding),
		logging.String("path", outPath))
	return outPath, nil
}

// ensureASS converts the subtitle into the ASS format unless it already is.
func (n *Normalizer) ensureASS(ctx context.Context, subtitlePath string) (string, error) {
	if strings.EqualFold(filepath.Ext(trimNormalizedSuffix(subtitlePath)), ".ass") {
		return subtitlePath, nil
	}
	outPath := replaceExt(subtitlePath, ".ass")
	if err := n.converter.Convert(ctx, subtitlePath, outPath); err != nil {
		return "", services.Wrap(services.ErrSubtitle, services.Stage(ctx),
			"convert subtitle", "conversion to ASS failed", err)
	}
	n.logger.InfoContext(ctx, "subtitle converted", logging.String("path", outPath))
	return outPath, nil
}

func (n *Normalizer) injectStyle(ctx context.Context, assPath string) error {
	data, err := os.ReadFile(assPath)
	if err != nil {
		return services.Wrap(services.ErrSubtitle, services.Stage(ctx),
			"read styled subtitle", "", err)
	}
	fontName := ResolveFontName(n.fontDir, n.cfg.ShippedFont, n.cfg.FontCandidates)
	styled, err := InjectDefaultStyle(string(data), fontName, n.cfg.Style)
	if err != nil {
		return err
	}
	if err := os.WriteFile(assPath, []byte(styled), 0o644); err != nil {
		return services.Wrap(services.ErrSubtitle, services.Stage(ctx),
			"write styled subtitle", "", err)
	}
	n.logger.InfoContext(ctx, "default style injected",
		logging.String("font", fontName),
		logging.String("path", assPath))
	return nil
}

// trimNormalizedSuffix strips the .utf8 marker inserted between the base name
// and the extension so format detection sees the original extension.
func trimNormalizedSuffix(path string) string {
	dir, base := filepath.Split(path)
	return dir + strings.Replace(base, ".utf8", "", 1)
}

func replaceExt(path, newExt string) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s%s", strings.TrimSuffix(path, ext), newExt)
}
