package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Duration   string `json:"duration"`
	BitRate    string `json:"bit_rate"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", "--", path)
	output, err := cmd.Output()
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w", err)
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// VideoStream returns the first video stream, or false when none exists.
func (r Result) VideoStream() (Stream, bool) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			return stream, true
		}
	}
	return Stream{}, false
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	duration := parseFloat(r.Format.Duration)
	if math.IsNaN(duration) || duration < 0 {
		return 0
	}
	return duration
}

// FPS returns the frame rate of the first video stream, or 0 when unknown.
func (r Result) FPS() float64 {
	stream, ok := r.VideoStream()
	if !ok {
		return 0
	}
	fps, err := ParseFrameRate(stream.RFrameRate)
	if err != nil {
		return 0
	}
	return fps
}

// ParseFrameRate converts a rational frame rate expression such as "30000/1001"
// into frames per second. A bare integer is accepted. Malformed input and a
// zero denominator are errors.
func ParseFrameRate(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, errors.New("empty frame rate")
	}
	num, den, found := strings.Cut(value, "/")
	numerator, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil {
		return 0, fmt.Errorf("frame rate numerator %q: %w", value, err)
	}
	if !found {
		return float64(numerator), nil
	}
	denominator, err := strconv.Atoi(strings.TrimSpace(den))
	if err != nil {
		return 0, fmt.Errorf("frame rate denominator %q: %w", value, err)
	}
	if denominator == 0 {
		return 0, fmt.Errorf("frame rate %q has zero denominator", value)
	}
	return float64(numerator) / float64(denominator), nil
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}

// Prober answers duration queries for pipeline progress tracking. A probe
// failure reports zero, which callers treat as unknown.
type Prober struct {
	Binary string
}

// Duration returns the media duration in seconds, or zero when unknown.
func (p Prober) Duration(ctx context.Context, path string) float64 {
	result, err := Inspect(ctx, p.Binary, path)
	if err != nil {
		return 0
	}
	return result.DurationSeconds()
}
