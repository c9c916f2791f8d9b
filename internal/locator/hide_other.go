//go:build !windows

package locator

import "os/exec"

func hideWindow(cmd *exec.Cmd) {}
