// ABOUTME: Tests for settings loading: defaults, YAML file, env overrides, validation
// ABOUTME: Uses temp directories and t.Setenv, so tests here do not run in parallel

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, base, content string) {
	t.Helper()
	if err := os.WriteFile(ConfigFile(base), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	s, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.DefaultBranch != "main" {
		t.Errorf("DefaultBranch = %q; want main", s.DefaultBranch)
	}
	if s.Git.Binary != "git" || s.Git.Timeout != 10*time.Minute {
		t.Errorf("Git = %+v; want git/10m", s.Git)
	}
	if !s.Build.Sudo || s.Build.Python != "python3" || s.Build.Make != "make" {
		t.Errorf("Build = %+v; want sudo python3 make", s.Build)
	}
	if s.Output.Color != ColorAuto {
		t.Errorf("Color = %q; want auto", s.Output.Color)
	}
	if s.Metrics.Textfile != "" {
		t.Errorf("Textfile = %q; want empty", s.Metrics.Textfile)
	}
	if s.Doctor.Concurrency != 4 {
		t.Errorf("Concurrency = %d; want 4", s.Doctor.Concurrency)
	}
	if s.Source != "" {
		t.Errorf("Source = %q; want empty", s.Source)
	}
}

func TestLoad_File(t *testing.T) {
	base := t.TempDir()
	writeConfig(t, base, `
default_branch: trunk
git:
  timeout: 30s
build:
  sudo: false
  python: /opt/python/bin/python3
output:
  color: never
doctor:
  concurrency: 2
`)

	s, err := Load(base)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.DefaultBranch != "trunk" {
		t.Errorf("DefaultBranch = %q; want trunk", s.DefaultBranch)
	}
	if s.Git.Timeout != 30*time.Second {
		t.Errorf("Timeout = %s; want 30s", s.Git.Timeout)
	}
	if s.Build.Sudo {
		t.Error("Sudo = true; want false")
	}
	if s.Build.Python != "/opt/python/bin/python3" {
		t.Errorf("Python = %q", s.Build.Python)
	}
	if s.Build.Make != "make" {
		t.Errorf("Make = %q; want default make", s.Build.Make)
	}
	if s.Output.Color != ColorNever || s.Doctor.Concurrency != 2 {
		t.Errorf("Output/Doctor = %+v/%+v", s.Output, s.Doctor)
	}
	if s.Source != ConfigFile(base) {
		t.Errorf("Source = %q; want %q", s.Source, ConfigFile(base))
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	base := t.TempDir()
	writeConfig(t, base, "git:\n  timeout: 30s\nbuild:\n  sudo: false\n")
	t.Setenv("GITSTALLER_GIT_TIMEOUT", "1m")
	t.Setenv("GITSTALLER_BUILD_SUDO", "true")
	t.Setenv("GITSTALLER_DEFAULT_BRANCH", "develop")

	s, err := Load(base)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Git.Timeout != time.Minute {
		t.Errorf("Timeout = %s; want 1m", s.Git.Timeout)
	}
	if !s.Build.Sudo {
		t.Error("Sudo = false; want env override true")
	}
	if s.DefaultBranch != "develop" {
		t.Errorf("DefaultBranch = %q; want develop", s.DefaultBranch)
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	base := t.TempDir()
	t.Setenv("GS_TEST_DIR", "/var/lib/node_exporter")
	writeConfig(t, base, "metrics:\n  textfile: ${GS_TEST_DIR}/gitstaller.prom\n")

	s, err := Load(base)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want := "/var/lib/node_exporter/gitstaller.prom"; s.Metrics.Textfile != want {
		t.Errorf("Textfile = %q; want %q", s.Metrics.Textfile, want)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad color", "output:\n  color: rainbow\n"},
		{"zero concurrency", "doctor:\n  concurrency: 0\n"},
		{"negative timeout", "git:\n  timeout: -1s\n"},
		{"malformed yaml", "git: [unterminated\n"},
		{"bad duration", "git:\n  timeout: soon\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := t.TempDir()
			writeConfig(t, base, tt.content)
			if _, err := Load(base); err == nil {
				t.Errorf("Load(%q) succeeded; want error", tt.content)
			}
		})
	}
}

func TestBaseDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	t.Setenv(EnvHome, dir)
	if got := BaseDir(); got != dir {
		t.Errorf("BaseDir = %q; want %q", got, dir)
	}

	t.Setenv(EnvHome, "")
	if got := BaseDir(); !strings.HasSuffix(got, ".gitstaller") {
		t.Errorf("BaseDir = %q; want ~/.gitstaller", got)
	}
}

func TestPaths(t *testing.T) {
	base := "/state"
	if got := PackagesDir(base); got != filepath.Join("/state", "packages") {
		t.Errorf("PackagesDir = %q", got)
	}
	if got := MetadataFile(base); got != filepath.Join("/state", "installed.json") {
		t.Errorf("MetadataFile = %q", got)
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !info.IsDir() || info.Mode().Perm() != 0o700 {
		t.Errorf("mode = %v; want drwx------", info.Mode())
	}
	if err := EnsureDir(dir); err != nil {
		t.Errorf("EnsureDir on an existing directory: %v", err)
	}
}

func TestExplain(t *testing.T) {
	base := t.TempDir()
	s, err := Load(base)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	out := Explain(base, s)
	for _, want := range []string{"=== Paths ===", MetadataFile(base), "not present", "Timeout:       10m0s", "Sudo:          true"} {
		if !strings.Contains(out, want) {
			t.Errorf("Explain output missing %q:\n%s", want, out)
		}
	}
}
