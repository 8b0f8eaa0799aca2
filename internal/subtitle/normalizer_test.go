package subtitle

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"subforge/internal/config"
)

const sampleSRT = `1
00:00:01,000 --> 00:00:02,000
Hello world
`

type fakeConverter struct {
	calls int
	fail  error
}

func (f *fakeConverter) Convert(ctx context.Context, inputPath, outputPath string) error {
	f.calls++
	if f.fail != nil {
		return f.fail
	}
	return os.WriteFile(outputPath, []byte(sampleASS), 0o644)
}

func testSubtitlesConfig() config.Subtitles {
	return config.Subtitles{
		FontCandidates: []string{"Bindumathi"},
		Style:          testStyle(),
	}
}

func TestNormalizeConvertsAndStylesSRT(t *testing.T) {
	dir := t.TempDir()
	srtPath := filepath.Join(dir, "subs.srt")
	if err := os.WriteFile(srtPath, []byte(sampleSRT), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	converter := &fakeConverter{}
	normalizer := NewNormalizer(converter, testSubtitlesConfig(), "", nil)

	assPath, err := normalizer.Normalize(context.Background(), srtPath)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if converter.calls != 1 {
		t.Fatalf("converter calls = %d, want 1", converter.calls)
	}
	if filepath.Ext(assPath) != ".ass" {
		t.Fatalf("output path = %s, want .ass", assPath)
	}

	styled, err := os.ReadFile(assPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(styled), "Bindumathi") {
		t.Fatal("style injection missing from output")
	}

	original, err := os.ReadFile(srtPath)
	if err != nil {
		t.Fatalf("read original: %v", err)
	}
	if string(original) != sampleSRT {
		t.Fatal("original subtitle was modified")
	}
}

func TestNormalizeSkipsConversionForASSInput(t *testing.T) {
	dir := t.TempDir()
	assPath := filepath.Join(dir, "subs.ass")
	if err := os.WriteFile(assPath, []byte(sampleASS), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	converter := &fakeConverter{}
	normalizer := NewNormalizer(converter, testSubtitlesConfig(), "", nil)

	out, err := normalizer.Normalize(context.Background(), assPath)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if converter.calls != 0 {
		t.Fatalf("converter calls = %d, want 0", converter.calls)
	}
	styled, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(styled), "Bindumathi") {
		t.Fatal("style injection missing from output")
	}
}

func TestNormalizeMissingFile(t *testing.T) {
	normalizer := NewNormalizer(&fakeConverter{}, testSubtitlesConfig(), "", nil)
	if _, err := normalizer.Normalize(context.Background(), filepath.Join(t.TempDir(), "nope.srt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestResolveFontName(t *testing.T) {
	dir := t.TempDir()
	fontPath := filepath.Join(dir, "bindumathi.ttf")
	if err := os.WriteFile(fontPath, []byte("font"), 0o644); err != nil {
		t.Fatalf("write font: %v", err)
	}

	if got := ResolveFontName(dir, "bindumathi.ttf", []string{"Noto Sans Sinhala"}); got != "bindumathi" {
		t.Fatalf("shipped font name = %q, want bindumathi", got)
	}
	if got := ResolveFontName(dir, "missing.ttf", []string{"Noto Sans Sinhala"}); got != "Noto Sans Sinhala" {
		t.Fatalf("candidate name = %q, want Noto Sans Sinhala", got)
	}
	if got := ResolveFontName("", "", nil); got != "Arial" {
		t.Fatalf("fallback name = %q, want Arial", got)
	}
}
