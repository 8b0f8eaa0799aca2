package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	WorkDir       string `toml:"work_dir"`
	DownloadDir   string `toml:"download_dir"`
	ProcessingDir string `toml:"processing_dir"`
	OutputDir     string `toml:"output_dir"`
	FontDir       string `toml:"font_dir"`
	LogDir        string `toml:"log_dir"`
	APIBind       string `toml:"api_bind"`
}

// FFmpeg contains settings passed to the transcode tool.
type FFmpeg struct {
	Binary             string `toml:"binary"`
	FFprobeBinary      string `toml:"ffprobe_binary"`
	VideoCodec         string `toml:"video_codec"`
	CRF                int    `toml:"crf"`
	Preset             string `toml:"preset"`
	Threads            int    `toml:"threads"`
	LowMemoryMode      bool   `toml:"low_memory_mode"`
	MaxMuxingQueueSize int    `toml:"max_muxing_queue_size"`
}

// SubtitleStyle describes the fields injected into the Default ASS style.
type SubtitleStyle struct {
	FontSize     int    `toml:"font_size"`
	PrimaryColor string `toml:"primary_color"`
	OutlineColor string `toml:"outline_color"`
	Bold         bool   `toml:"bold"`
	Alignment    int    `toml:"alignment"`
	MarginLeft   int    `toml:"margin_left"`
	MarginRight  int    `toml:"margin_right"`
	MarginVert   int    `toml:"margin_vertical"`
}

// Subtitles contains subtitle normalization and embedding settings.
type Subtitles struct {
	SoftDefault    bool          `toml:"soft_default"`
	Codec          string        `toml:"codec"`
	Language       string        `toml:"language"`
	ShippedFont    string        `toml:"shipped_font"`
	FontCandidates []string      `toml:"font_candidates"`
	Style          SubtitleStyle `toml:"style"`
}

// Encoding contains rendition ladder settings.
type Encoding struct {
	Resolutions []string `toml:"resolutions"`
	AudioCodec  string   `toml:"audio_codec"`
	AudioRate   string   `toml:"audio_rate"`
}

// Workflow contains job execution timing settings.
type Workflow struct {
	CancelGracePeriod int `toml:"cancel_grace_period"`
	DownloadTimeout   int `toml:"download_timeout"`
	MinFreeSpaceGiB   int `toml:"min_free_space_gib"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for subforge.
type Config struct {
	Paths     Paths     `toml:"paths"`
	FFmpeg    FFmpeg    `toml:"ffmpeg"`
	Subtitles Subtitles `toml:"subtitles"`
	Encoding  Encoding  `toml:"encoding"`
	Workflow  Workflow  `toml:"workflow"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/subforge/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("subforge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the working directories jobs write into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.DownloadDir, c.Paths.ProcessingDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	if b := strings.TrimSpace(c.FFmpeg.Binary); b != "" {
		return b
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	if b := strings.TrimSpace(c.FFmpeg.FFprobeBinary); b != "" {
		return b
	}
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
