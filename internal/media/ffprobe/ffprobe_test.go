package ffprobe

import "testing"

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "audio", CodecName: "aac"},
			{CodecType: "video", CodecName: "h264", Width: 1920, Height: 1080, RFrameRate: "30000/1001"},
		},
		Format: Format{Duration: "123.45"},
	}
	stream, ok := result.VideoStream()
	if !ok || stream.CodecName != "h264" {
		t.Fatalf("unexpected video stream: %#v ok=%v", stream, ok)
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	fps := result.FPS()
	if fps < 29.9 || fps > 30.0 {
		t.Fatalf("unexpected fps: %v", fps)
	}
}

func TestResultHelpersHandleMissingData(t *testing.T) {
	result := Result{Format: Format{Duration: "bad"}}
	if result.DurationSeconds() != 0 {
		t.Fatalf("expected 0 duration, got %v", result.DurationSeconds())
	}
	if _, ok := result.VideoStream(); ok {
		t.Fatal("expected no video stream")
	}
	if result.FPS() != 0 {
		t.Fatalf("expected 0 fps, got %v", result.FPS())
	}
}

func TestParseFrameRate(t *testing.T) {
	cases := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{"30000/1001", 30000.0 / 1001.0, false},
		{"25/1", 25, false},
		{"24", 24, false},
		{" 50 / 2 ", 25, false},
		{"0/1", 0, false},
		{"30/0", 0, true},
		{"abc/1", 0, true},
		{"1/abc", 0, true},
		{"", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseFrameRate(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseFrameRate(%q): expected error", tc.input)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseFrameRate(%q): %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("ParseFrameRate(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}
