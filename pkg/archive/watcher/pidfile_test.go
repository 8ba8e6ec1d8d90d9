package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestWriteAndReadPID(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "watch.pid")

	if err := WritePIDFile(pidPath); err != nil {
		t.Fatalf("WritePIDFile failed: %v", err)
	}
	pid, err := ReadPIDFile(pidPath)
	if err != nil {
		t.Fatalf("ReadPIDFile failed: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("Expected PID %d, got %d", os.Getpid(), pid)
	}
}

func TestReadPIDFileInvalid(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "watch.pid")
	if err := os.WriteFile(pidPath, []byte("not-a-pid"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadPIDFile(pidPath); err == nil {
		t.Error("Expected error for garbage PID file")
	}
}

func TestAcquirePIDFile(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "watch.pid")

	release, err := AcquirePIDFile(pidPath)
	if err != nil {
		t.Fatalf("AcquirePIDFile failed: %v", err)
	}
	if _, err := os.Stat(pidPath); err != nil {
		t.Fatalf("PID file should exist: %v", err)
	}

	release()
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Error("PID file should have been removed")
	}
}

func TestAcquirePIDFileReplacesStale(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "watch.pid")
	if err := os.WriteFile(pidPath, []byte("999999999"), 0o644); err != nil {
		t.Fatal(err)
	}

	release, err := AcquirePIDFile(pidPath)
	if err != nil {
		t.Fatalf("AcquirePIDFile over stale file failed: %v", err)
	}
	defer release()

	pid, _ := ReadPIDFile(pidPath)
	if pid != os.Getpid() {
		t.Errorf("PID file holds %d, want %d", pid, os.Getpid())
	}
}

func TestAcquirePIDFileHeldByLiveProcess(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "watch.pid")
	parent := []byte(strconv.Itoa(os.Getppid()))
	if err := os.WriteFile(pidPath, parent, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := AcquirePIDFile(pidPath)
	if !errors.Is(err, ErrAlreadyWatching) {
		t.Errorf("AcquirePIDFile error = %v, want ErrAlreadyWatching", err)
	}
}
