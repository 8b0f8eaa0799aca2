package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFFmpeg()
	c.normalizeSubtitles()
	c.normalizeEncoding()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		c.Paths.DownloadDir = defaultDownloadDir
	}
	if c.Paths.DownloadDir, err = expandPath(c.Paths.DownloadDir); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ProcessingDir) == "" {
		c.Paths.ProcessingDir = defaultProcessingDir
	}
	if c.Paths.ProcessingDir, err = expandPath(c.Paths.ProcessingDir); err != nil {
		return fmt.Errorf("paths.processing_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.FontDir) == "" {
		c.Paths.FontDir = defaultFontDir
	}
	if c.Paths.FontDir, err = expandPath(c.Paths.FontDir); err != nil {
		return fmt.Errorf("paths.font_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeFFmpeg() {
	if strings.TrimSpace(c.FFmpeg.VideoCodec) == "" {
		c.FFmpeg.VideoCodec = defaultVideoCodec
	}
	if c.FFmpeg.CRF == 0 {
		c.FFmpeg.CRF = defaultCRF
	}
	if strings.TrimSpace(c.FFmpeg.Preset) == "" {
		c.FFmpeg.Preset = defaultPreset
	}
	if c.FFmpeg.MaxMuxingQueueSize == 0 {
		c.FFmpeg.MaxMuxingQueueSize = defaultMaxMuxingQueueSize
	}
	// Low memory mode trades quality for a bounded footprint on small hosts.
	if c.FFmpeg.LowMemoryMode {
		c.FFmpeg.Preset = "veryfast"
		if c.FFmpeg.CRF < 28 {
			c.FFmpeg.CRF = 28
		}
		if c.FFmpeg.Threads == 0 || c.FFmpeg.Threads > 2 {
			c.FFmpeg.Threads = 2
		}
	}
}

func (c *Config) normalizeSubtitles() {
	if strings.TrimSpace(c.Subtitles.Codec) == "" {
		c.Subtitles.Codec = defaultSubtitleCodec
	}
	if strings.TrimSpace(c.Subtitles.Language) == "" {
		c.Subtitles.Language = defaultSubtitleLanguage
	}
	if len(c.Subtitles.FontCandidates) == 0 {
		c.Subtitles.FontCandidates = defaultFontCandidates()
	}
	if c.Subtitles.Style.FontSize == 0 {
		c.Subtitles.Style.FontSize = defaultFontSize
	}
	if strings.TrimSpace(c.Subtitles.Style.PrimaryColor) == "" {
		c.Subtitles.Style.PrimaryColor = defaultPrimaryColor
	}
	if strings.TrimSpace(c.Subtitles.Style.OutlineColor) == "" {
		c.Subtitles.Style.OutlineColor = defaultOutlineColor
	}
	if c.Subtitles.Style.Alignment == 0 {
		c.Subtitles.Style.Alignment = defaultAlignment
	}
}

func (c *Config) normalizeEncoding() {
	if len(c.Encoding.Resolutions) == 0 {
		c.Encoding.Resolutions = defaultResolutions()
	}
	if strings.TrimSpace(c.Encoding.AudioCodec) == "" {
		c.Encoding.AudioCodec = defaultAudioCodec
	}
	if strings.TrimSpace(c.Encoding.AudioRate) == "" {
		c.Encoding.AudioRate = defaultAudioRate
	}
}

func (c *Config) normalizeLogging() {
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaultLogFormat
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Workflow.CancelGracePeriod <= 0 {
		c.Workflow.CancelGracePeriod = defaultCancelGracePeriod
	}
	if c.Workflow.DownloadTimeout <= 0 {
		c.Workflow.DownloadTimeout = defaultDownloadTimeout
	}
	if c.Workflow.MinFreeSpaceGiB < 0 {
		c.Workflow.MinFreeSpaceGiB = defaultMinFreeSpaceGiB
	}
}
