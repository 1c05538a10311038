package binary

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/skyfe79/provision/internal/platform"
)

// DefaultLinkTimeout bounds the global bin directory lookup.
const DefaultLinkTimeout = 10 * time.Second

// GlobalBinDirLocator finds the directory a package manager puts global
// executables in.
type GlobalBinDirLocator interface {
	GlobalBinDir(ctx context.Context, target platform.OS) (string, error)
}

// CommandRunner runs a command and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// CommandBinDirLocator asks an external command for the global prefix,
// e.g. "npm prefix -g". Executables live in <prefix>/bin, or directly in
// <prefix> on Windows.
type CommandBinDirLocator struct {
	command []string
	run     CommandRunner
}

// NewCommandBinDirLocator creates a locator running command.
func NewCommandBinDirLocator(command []string) *CommandBinDirLocator {
	return &CommandBinDirLocator{
		command: append([]string(nil), command...),
		run:     runCommand,
	}
}

// GlobalBinDir runs the prefix command and derives the bin directory.
func (l *CommandBinDirLocator) GlobalBinDir(ctx context.Context, target platform.OS) (string, error) {
	if len(l.command) == 0 {
		return "", errors.New("no global prefix command configured")
	}

	out, err := l.run(ctx, l.command[0], l.command[1:]...)
	if err != nil {
		return "", fmt.Errorf("%s: %w", strings.Join(l.command, " "), err)
	}

	prefix := firstLine(out)
	if prefix == "" {
		return "", fmt.Errorf("%s printed no prefix", strings.Join(l.command, " "))
	}

	if target == platform.OSWindows {
		return prefix, nil
	}
	return filepath.Join(prefix, "bin"), nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	// Children that inherit stdout must not keep Output waiting after a kill.
	cmd.WaitDelay = time.Second
	return cmd.Output()
}

func firstLine(out []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line
		}
	}
	return ""
}

// sameDir reports whether a and b name the same directory.
func sameDir(a, b string) bool {
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}
