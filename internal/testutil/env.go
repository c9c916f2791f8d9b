// Package testutil provides helpers for testing toolsmith in isolation.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
)

// Env holds the isolated directories created by SetupTestEnv
type Env struct {
	Root        string
	ConfigFile  string
	ResourceDir string
	DataDir     string
}

// SetupTestEnv points every TOOLSMITH_* location at a fresh temp directory
// so tests never see the user's configuration or managed tools.
// Cleanup is handled by t.TempDir.
func SetupTestEnv(t *testing.T) *Env {
	t.Helper()

	tmpDir := t.TempDir()
	env := &Env{
		Root:        tmpDir,
		ConfigFile:  filepath.Join(tmpDir, "config", "toolsmith.lua"),
		ResourceDir: filepath.Join(tmpDir, "resources"),
		DataDir:     filepath.Join(tmpDir, "data"),
	}

	t.Setenv("TOOLSMITH_CONFIG", env.ConfigFile)
	t.Setenv("TOOLSMITH_RESOURCE_DIR", env.ResourceDir)
	t.Setenv("TOOLSMITH_DATA_DIR", env.DataDir)

	for _, dir := range []string{filepath.Dir(env.ConfigFile), env.ResourceDir, env.DataDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}
	return env
}

// FakeTool describes a stand-in executable
type FakeTool struct {
	// Version is printed for --version
	Version string
	// Outputs maps other flags to their stdout
	Outputs map[string]string
	// ExitCode is returned for every invocation
	ExitCode int
}

// WriteFakeTool writes tool as an executable shell script at path,
// creating parent directories. Tests using it are skipped on Windows.
func WriteFakeTool(t *testing.T, path string, tool FakeTool) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tools are shell scripts")
	}

	outputs := map[string]string{"--version": tool.Version + "\n"}
	for flag, out := range tool.Outputs {
		outputs[flag] = out
	}
	flags := make([]string, 0, len(outputs))
	for flag := range outputs {
		flags = append(flags, flag)
	}
	sort.Strings(flags)

	var b strings.Builder
	b.WriteString("#!/bin/sh\ncase \"$1\" in\n")
	for _, flag := range flags {
		fmt.Fprintf(&b, "  %s) printf '%%s' %s; exit %d;;\n", shellQuote(flag), shellQuote(outputs[flag]), tool.ExitCode)
	}
	fmt.Fprintf(&b, "esac\nexit %d\n", tool.ExitCode)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o755); err != nil {
		t.Fatalf("failed to write fake tool %s: %v", path, err)
	}
	return path
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
