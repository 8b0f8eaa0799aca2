package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateFFmpeg(); err != nil {
		return err
	}
	if err := c.validateSubtitles(); err != nil {
		return err
	}
	if err := c.validateEncoding(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		return errors.New("paths.work_dir must be set")
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validateFFmpeg() error {
	if c.FFmpeg.CRF < 0 || c.FFmpeg.CRF > 51 {
		return fmt.Errorf("ffmpeg.crf must be between 0 and 51, got %d", c.FFmpeg.CRF)
	}
	if c.FFmpeg.Threads < 0 {
		return errors.New("ffmpeg.threads must not be negative")
	}
	if c.FFmpeg.MaxMuxingQueueSize < 0 {
		return errors.New("ffmpeg.max_muxing_queue_size must not be negative")
	}
	return nil
}

func (c *Config) validateSubtitles() error {
	style := c.Subtitles.Style
	if style.FontSize <= 0 {
		return errors.New("subtitles.style.font_size must be positive")
	}
	if style.Alignment < 1 || style.Alignment > 9 {
		return fmt.Errorf("subtitles.style.alignment must be a numpad position between 1 and 9, got %d", style.Alignment)
	}
	for _, color := range []string{style.PrimaryColor, style.OutlineColor} {
		if !strings.HasPrefix(color, "&H") {
			return fmt.Errorf("subtitle colors must use the &HAABBGGRR form, got %q", color)
		}
	}
	return nil
}

func (c *Config) validateEncoding() error {
	if len(c.Encoding.Resolutions) == 0 {
		return errors.New("encoding.resolutions must not be empty")
	}
	for _, label := range c.Encoding.Resolutions {
		if strings.TrimSpace(label) == "" {
			return errors.New("encoding.resolutions must not contain empty labels")
		}
	}
	return nil
}
