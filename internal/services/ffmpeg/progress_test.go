package ffmpeg

import (
	"errors"
	"math"
	"os/exec"
	"strings"
	"testing"
)

func TestParseElapsed(t *testing.T) {
	cases := []struct {
		line string
		want float64
		ok   bool
	}{
		{"frame= 120 fps=30 time=00:01:23.45 bitrate=1000k", 83.45, true},
		{"time=01:00:00.00", 3600, true},
		{"time=00:00:05", 5, true},
		{"size=  256kB bitrate=1000k", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseElapsed(tc.line)
		if ok != tc.ok {
			t.Errorf("ParseElapsed(%q) ok = %v, want %v", tc.line, ok, tc.ok)
			continue
		}
		if ok && math.Abs(got-tc.want) > 0.001 {
			t.Errorf("ParseElapsed(%q) = %v, want %v", tc.line, got, tc.want)
		}
	}
}

func TestMonitorReportsMonotonicPercent(t *testing.T) {
	var percents []float64
	monitor := NewMonitor(100, func(percent, elapsed float64) {
		percents = append(percents, percent)
	})
	monitor.HandleLine("time=00:00:10.00")
	monitor.HandleLine("time=00:00:30.00")
	monitor.HandleLine("time=00:00:20.00")
	monitor.HandleLine("time=00:00:50.00")

	want := []float64{10, 30, 30, 50}
	if len(percents) != len(want) {
		t.Fatalf("percents = %v, want %v", percents, want)
	}
	for i := range want {
		if math.Abs(percents[i]-want[i]) > 0.001 {
			t.Errorf("percent %d = %v, want %v", i, percents[i], want[i])
		}
	}
}

func TestMonitorClampsAtHundred(t *testing.T) {
	var last float64
	monitor := NewMonitor(10, func(percent, elapsed float64) { last = percent })
	monitor.HandleLine("time=00:00:25.00")
	if last != 100 {
		t.Fatalf("percent = %v, want 100", last)
	}
}

func TestMonitorUnknownTotalSuppressesPercent(t *testing.T) {
	var percents []float64
	monitor := NewMonitor(0, func(percent, elapsed float64) { percents = append(percents, percent) })
	monitor.HandleLine("time=00:00:10.00")
	if len(percents) != 1 || percents[0] != -1 {
		t.Fatalf("percents = %v, want [-1]", percents)
	}
	if monitor.Elapsed() != 10 {
		t.Fatalf("Elapsed = %v, want 10", monitor.Elapsed())
	}
}

func TestMonitorIgnoresLinesWithoutTime(t *testing.T) {
	calls := 0
	monitor := NewMonitor(100, func(percent, elapsed float64) { calls++ })
	monitor.HandleLine("Stream mapping:")
	monitor.HandleLine("Press [q] to stop")
	if calls != 0 {
		t.Fatalf("calls = %d, want 0", calls)
	}
}

func TestFilterPath(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"/work/subs.ass", "/work/subs.ass"},
		{`C:\media\subs.ass`, `C\:/media/subs.ass`},
		{"/work/it's here/subs.ass", `/work/it\'s here/subs.ass`},
		{"/a:b/c.ass", `/a\:b/c.ass`},
	}
	for _, tc := range cases {
		if got := FilterPath(tc.input); got != tc.want {
			t.Errorf("FilterPath(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestClassifyExitNil(t *testing.T) {
	if err := ClassifyExit(nil); err != nil {
		t.Fatalf("ClassifyExit(nil) = %v", err)
	}
}

func TestClassifyExitPassesThroughNonExitErrors(t *testing.T) {
	sentinel := errors.New("boom")
	if got := ClassifyExit(sentinel); !errors.Is(got, sentinel) {
		t.Fatalf("ClassifyExit = %v, want %v", got, sentinel)
	}
}

func TestClassifyExitGenericFailure(t *testing.T) {
	cmd := exec.Command("sh", "-c", "exit 1")
	err := cmd.Run()
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Skip("no exit error produced")
	}
	got := ClassifyExit(err)
	if !strings.Contains(got.Error(), "encode failed") {
		t.Fatalf("ClassifyExit = %v, want encode failed message", got)
	}
}

func TestClassifyExitOOMCode(t *testing.T) {
	cmd := exec.Command("sh", "-c", "exit 137")
	err := cmd.Run()
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Skip("no exit error produced")
	}
	got := ClassifyExit(err)
	if !strings.Contains(got.Error(), "out of memory") {
		t.Fatalf("ClassifyExit = %v, want out-of-memory message", got)
	}
}
