package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoad_WithTOML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "lspcore.toml", "concurrency = 8\ntrace_file = \"trace.jsonl\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Concurrency != 8 {
		t.Errorf("Concurrency = %d, want 8", cfg.Concurrency)
	}
	if cfg.TraceFile != "trace.jsonl" {
		t.Errorf("TraceFile = %q, want trace.jsonl", cfg.TraceFile)
	}
	if cfg.WatchGlob != "*.md" {
		t.Errorf("WatchGlob = %q, want default *.md", cfg.WatchGlob)
	}
}

func TestLoad_WithYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "lspcore.yaml", "concurrency: 2\nverbose: true\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Concurrency != 2 {
		t.Errorf("Concurrency = %d, want 2", cfg.Concurrency)
	}
	if !cfg.Verbose {
		t.Errorf("Verbose = false, want true")
	}
}

func TestLoad_WithJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "lspcore.json", `{"concurrency": 6}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Concurrency != 6 {
		t.Errorf("Concurrency = %d, want 6", cfg.Concurrency)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	oldwd, _ := os.Getwd()
	defer os.Chdir(oldwd)
	os.Chdir(dir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if *cfg != *want {
		t.Errorf("cfg = %+v, want default %+v", cfg, want)
	}
}

func TestDiscover_PrefersOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lspcore.yaml", "concurrency: 1\n")
	writeFile(t, dir, "lspcore.toml", "concurrency = 2\n")

	oldwd, _ := os.Getwd()
	defer os.Chdir(oldwd)
	os.Chdir(dir)

	path, err := Discover()
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if filepath.Base(path) != "lspcore.toml" {
		t.Errorf("Discover found %q, want lspcore.toml first", path)
	}
}

func TestDiscover_NotFound(t *testing.T) {
	dir := t.TempDir()
	oldwd, _ := os.Getwd()
	defer os.Chdir(oldwd)
	os.Chdir(dir)

	_, err := Discover()
	if err != ErrConfigNotFound {
		t.Errorf("err = %v, want ErrConfigNotFound", err)
	}
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "lspcore.ini", "concurrency=1\n")

	if _, err := Load(path); err == nil {
		t.Error("expected error for unsupported format")
	}
}
