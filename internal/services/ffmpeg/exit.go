package ffmpeg

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"
)

const oomExitCode = 137

// ClassifyExit translates a process exit failure into an operator-facing
// message. SIGKILL deaths and exit code 137 almost always mean the kernel
// OOM killer reaped the encode.
func ClassifyExit(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return err
	}
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		if status.Signal() == syscall.SIGKILL {
			return fmt.Errorf("encode process killed (likely out of memory): %w", err)
		}
		return fmt.Errorf("encode process terminated by signal %s: %w", status.Signal(), err)
	}
	switch exitErr.ExitCode() {
	case oomExitCode:
		return fmt.Errorf("encode process killed (likely out of memory): %w", err)
	case 1:
		return fmt.Errorf("encode failed: %w", err)
	default:
		return fmt.Errorf("encode exited with code %d: %w", exitErr.ExitCode(), err)
	}
}
