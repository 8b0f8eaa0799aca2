package ffmpeg

import (
	"regexp"
	"strconv"
)

// elapsedPattern matches the time= field ffmpeg prints on status lines,
// e.g. "frame= 120 fps= 30 ... time=00:01:23.45 bitrate= ...".
var elapsedPattern = regexp.MustCompile(`time=(\d+):(\d{2}):(\d{2})\.?(\d*)`)

// ParseElapsed extracts the elapsed encode position, in seconds, from a
// status line. The second return is false when the line carries no time field.
func ParseElapsed(line string) (float64, bool) {
	match := elapsedPattern.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}
	hours, _ := strconv.Atoi(match[1])
	minutes, _ := strconv.Atoi(match[2])
	seconds, _ := strconv.Atoi(match[3])
	elapsed := float64(hours*3600 + minutes*60 + seconds)
	if match[4] != "" {
		if frac, err := strconv.ParseFloat("0."+match[4], 64); err == nil {
			elapsed += frac
		}
	}
	return elapsed, true
}

// ProgressFunc receives encode progress updates. Percent is -1 when the total
// duration is unknown; elapsed seconds are always reported.
type ProgressFunc func(percent float64, elapsed float64)

// Monitor derives percent-complete from ffmpeg status lines. Reported percent
// never decreases even when the underlying time field jitters backwards.
type Monitor struct {
	total       float64
	onProgress  ProgressFunc
	lastPercent float64
	lastElapsed float64
}

// NewMonitor builds a monitor for an encode whose source runs total seconds.
// A non-positive total disables percent reporting.
func NewMonitor(total float64, onProgress ProgressFunc) *Monitor {
	return &Monitor{total: total, onProgress: onProgress, lastPercent: -1}
}

// HandleLine inspects one status line and emits a progress update when the
// line advances the encode position.
func (m *Monitor) HandleLine(line string) {
	elapsed, ok := ParseElapsed(line)
	if !ok {
		return
	}
	if elapsed < m.lastElapsed {
		elapsed = m.lastElapsed
	}
	m.lastElapsed = elapsed

	if m.onProgress == nil {
		return
	}
	if m.total <= 0 {
		m.onProgress(-1, elapsed)
		return
	}
	percent := elapsed / m.total * 100
	if percent > 100 {
		percent = 100
	}
	if percent < m.lastPercent {
		percent = m.lastPercent
	}
	m.lastPercent = percent
	m.onProgress(percent, elapsed)
}

// Elapsed reports the furthest encode position observed so far.
func (m *Monitor) Elapsed() float64 {
	return m.lastElapsed
}
