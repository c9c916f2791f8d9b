//go:build windows

package locator

import (
	"os/exec"
	"syscall"
)

// createNoWindow keeps probes from flashing a console window
const createNoWindow = 0x08000000

func hideWindow(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: createNoWindow}
}
