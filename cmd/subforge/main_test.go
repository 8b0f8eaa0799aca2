package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRootCommandListsSubcommands(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(nil)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, want := range []string{"serve", "submit", "status", "jobs", "cancel", "logs", "config"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("help output missing %q", want)
		}
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "subforge.toml")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[paths]") {
		t.Fatal("sample config missing paths section")
	}

	// A second init without --overwrite must refuse.
	refuse := newRootCommand()
	refuse.SetOut(&out)
	refuse.SetErr(&out)
	refuse.SetArgs([]string{"config", "init", "--path", target})
	if err := refuse.Execute(); err == nil {
		t.Fatal("expected error for existing config")
	}
}

func TestConfigShowRendersTOML(t *testing.T) {
	target := filepath.Join(t.TempDir(), "subforge.toml")

	seed := newRootCommand()
	var seedOut bytes.Buffer
	seed.SetOut(&seedOut)
	seed.SetErr(&seedOut)
	seed.SetArgs([]string{"config", "init", "--path", target})
	if err := seed.Execute(); err != nil {
		t.Fatalf("init: %v", err)
	}

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"config", "show", "--config-path", target})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	rendered := out.String()
	if !strings.Contains(rendered, "# resolved from") {
		t.Fatalf("missing source comment: %s", rendered)
	}
	if !strings.Contains(rendered, "[paths]") || !strings.Contains(rendered, "[ffmpeg]") {
		t.Fatalf("rendered config missing sections: %s", rendered)
	}
}

func TestSubmitRequiresSubtitleSource(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"submit", "http://example.com/video.mp4"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error without subtitle source")
	}
}
