package process_test

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	apperrors "github.com/kbukum/mobilekit/errors"
	"github.com/kbukum/mobilekit/process"
)

// fakeAppium writes an executable script standing in for the appium binary.
func fakeAppium(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "appium")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_Version(t *testing.T) {
	bin := fakeAppium(t, `if [ "$1" = "--version" ]; then echo 2.11.0; exit 0; fi
exit 2
`)
	result, err := process.Run(context.Background(), process.Command{Binary: bin, Args: []string{"--version"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.TrimSpace(string(result.Stdout)); got != "2.11.0" {
		t.Errorf("version = %q, want 2.11.0", got)
	}
	if result.ExitCode != 0 || len(result.Stderr) != 0 {
		t.Errorf("unexpected exit %d, stderr %q", result.ExitCode, result.Stderr)
	}
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name     string
		cmd      func(t *testing.T) process.Command
		code     apperrors.ErrorCode
		exitCode int
		stderr   string
	}{
		{
			name: "broken install",
			cmd: func(t *testing.T) process.Command {
				bin := fakeAppium(t, "echo \"Cannot find module 'appium'\" >&2\nexit 1\n")
				return process.Command{Binary: bin, Args: []string{"--version"}}
			},
			code:     apperrors.ErrCodeProcess,
			exitCode: 1,
			stderr:   "Cannot find module 'appium'",
		},
		{
			name: "unknown flag",
			cmd: func(t *testing.T) process.Command {
				bin := fakeAppium(t, "exit 64\n")
				return process.Command{Binary: bin, Args: []string{"--bogus"}}
			},
			code:     apperrors.ErrCodeProcess,
			exitCode: 64,
		},
		{
			name: "missing binary",
			cmd: func(t *testing.T) process.Command {
				return process.Command{Binary: filepath.Join(t.TempDir(), "appium"), Args: []string{"--version"}}
			},
			code:     apperrors.ErrCodeProcess,
			exitCode: -1,
		},
		{
			name: "empty binary",
			cmd: func(*testing.T) process.Command {
				return process.Command{Args: []string{"--version"}}
			},
			code: apperrors.ErrCodeInvalidConfig,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := process.Run(context.Background(), tt.cmd(t))
			if !stderrors.Is(err, apperrors.Code(tt.code)) {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
			if result == nil {
				return
			}
			if result.ExitCode != tt.exitCode {
				t.Errorf("exit code = %d, want %d", result.ExitCode, tt.exitCode)
			}
			if got := strings.TrimSpace(string(result.Stderr)); got != tt.stderr {
				t.Errorf("stderr = %q, want %q", got, tt.stderr)
			}
		})
	}
}

func TestRun_ContextKillsProcessGroup(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "child.pid")
	bin := fakeAppium(t, `sleep 30 &
echo $! > "$1"
wait
`)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	result, err := process.Run(ctx, process.Command{
		Binary:      bin,
		Args:        []string{pidFile},
		GracePeriod: 500 * time.Millisecond,
	})
	if !stderrors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if result.Duration > 5*time.Second {
		t.Fatalf("process group took %v to die", result.Duration)
	}

	raw, err := os.ReadFile(pidFile)
	if err != nil {
		t.Fatalf("child pid not written: %v", err)
	}
	child, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for alive(child) {
		if time.Now().After(deadline) {
			_ = syscall.Kill(child, syscall.SIGKILL)
			t.Fatalf("child %d survived the cancelled run", child)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestRun_EnvAndDir(t *testing.T) {
	dir := t.TempDir()
	bin := fakeAppium(t, `echo "$APPIUM_HOME|$(pwd)"`)

	result, err := process.Run(context.Background(), process.Command{
		Binary: bin,
		Dir:    dir,
		Env:    []string{"APPIUM_HOME=/opt/appium"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := "/opt/appium|" + dir
	if got := strings.TrimSpace(string(result.Stdout)); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestRun_Stdin(t *testing.T) {
	bin := fakeAppium(t, "read line; echo \"got $line\"\n")
	result, err := process.Run(context.Background(), process.Command{
		Binary: bin,
		Stdin:  strings.NewReader("driver list\n"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.TrimSpace(string(result.Stdout)); got != "got driver list" {
		t.Errorf("output = %q", got)
	}
}

// alive reports whether pid is running; reaped and zombie processes are not.
func alive(pid int) bool {
	stat, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/stat")
	if err != nil {
		return syscall.Kill(pid, 0) == nil
	}
	// The state follows the parenthesised command name.
	i := strings.LastIndexByte(string(stat), ')')
	return i < 0 || i+2 >= len(stat) || stat[i+2] != 'Z'
}
