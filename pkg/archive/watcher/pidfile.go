package watcher

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/jamesainslie/stripvault/pkg/archive/logging"
)

// ErrAlreadyWatching is returned when another live process holds the PID file.
var ErrAlreadyWatching = errors.New("archive is already being watched")

// WritePIDFile writes the current process ID to path.
func WritePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// ReadPIDFile reads a PID from path.
func ReadPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file %s: %w", path, err)
	}
	return pid, nil
}

// IsProcessRunning reports whether a process with the given PID exists.
func IsProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

// AcquirePIDFile claims path for this process. A PID file left by a dead
// process is replaced. The returned func removes the file.
func AcquirePIDFile(path string) (func(), error) {
	if pid, err := ReadPIDFile(path); err == nil {
		if pid != os.Getpid() && IsProcessRunning(pid) {
			return nil, fmt.Errorf("%w (pid %d)", ErrAlreadyWatching, pid)
		}
		logging.Get("watcher").Warn("removing stale PID file", "path", path, "stale_pid", pid)
	}

	if err := WritePIDFile(path); err != nil {
		return nil, err
	}
	return func() { _ = os.Remove(path) }, nil
}
