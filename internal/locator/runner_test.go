package locator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/ZebulonRouseFrantzich/toolsmith/internal/binary"
	"github.com/ZebulonRouseFrantzich/toolsmith/internal/testutil"
)

func TestExecRunner(t *testing.T) {
	dir := t.TempDir()
	ok := testutil.WriteFakeTool(t, filepath.Join(dir, "ok"), testutil.FakeTool{Version: "pandoc 3.6.4"})
	failing := testutil.WriteFakeTool(t, filepath.Join(dir, "failing"), testutil.FakeTool{Version: "boom", ExitCode: 2})

	runner := ExecRunner{}

	result, err := runner.Run(context.Background(), ok, "--version")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.Success() || result.Stdout != "pandoc 3.6.4\n" {
		t.Errorf("Run() = %+v", result)
	}

	result, err = runner.Run(context.Background(), failing, "--version")
	if err != nil {
		t.Fatalf("non-zero exit must not be an error, got %v", err)
	}
	if result.ExitCode != 2 || result.Success() {
		t.Errorf("ExitCode = %d, want 2", result.ExitCode)
	}
}

func TestExecRunnerMissingBinary(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), filepath.Join(t.TempDir(), "missing"), "--version")
	if !errors.Is(err, binary.ErrExecutionFailed) {
		t.Errorf("expected ErrExecutionFailed, got %v", err)
	}
}

func TestExecRunnerTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script")
	}

	path := filepath.Join(t.TempDir(), "slow")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexec sleep 5\n"), 0755); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	_, err := ExecRunner{Timeout: 100 * time.Millisecond}.Run(context.Background(), path)
	if !errors.Is(err, binary.ErrExecutionFailed) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected timeout error, got %v", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Errorf("timeout not enforced, took %v", time.Since(start))
	}
}
