package testutil

import (
	"os"
	"os/exec"
	"testing"
)

// ExitedPID returns the pid of a child process that has already exited and
// been reaped, for lock files whose owner is gone.
func ExitedPID(t *testing.T) int {
	t.Helper()

	cmd := exec.Command(os.Args[0], "-test.run=^$")
	if err := cmd.Run(); err != nil {
		t.Fatalf("run child process: %v", err)
	}
	return cmd.ProcessState.Pid()
}
