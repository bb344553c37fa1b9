//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

// forkexecBinary is the path to the built forkexec binary, set by TestMain.
var forkexecBinary string

func TestMain(m *testing.M) {
	tmpDir, err := os.MkdirTemp("", "forkexec-e2e-bin-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir: %v\n", err)
		os.Exit(1)
	}

	forkexecBinary = filepath.Join(tmpDir, "forkexec")
	cmd := exec.Command("go", "build", "-o", forkexecBinary, "github.com/kahiteam/forkexec/cmd/forkexec")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to build forkexec binary: %v\n", err)
		os.RemoveAll(tmpDir)
		os.Exit(1)
	}

	// Suite-wide timeout fallback.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	go func() {
		<-ctx.Done()
		if ctx.Err() == context.DeadlineExceeded {
			fmt.Fprintln(os.Stderr, "E2E suite timeout exceeded (5 minutes)")
			os.Exit(2)
		}
	}()

	code := m.Run()
	cancel()
	os.RemoveAll(tmpDir)
	os.Exit(code)
}

// result is one finished forkexec invocation.
type result struct {
	stdout string
	stderr string
	code   int
}

// forkexecCmd prepares a forkexec invocation in dir with no config file
// lookup outside the test.
func forkexecCmd(t *testing.T, dir string, args ...string) *exec.Cmd {
	t.Helper()
	cmd := exec.Command(forkexecBinary, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "FORKEXEC_CONFIG=")
	return cmd
}

// runForkexec runs forkexec to completion and returns its output and exit
// status.
func runForkexec(t *testing.T, dir string, args ...string) result {
	t.Helper()
	cmd := forkexecCmd(t, dir, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	res := result{stdout: stdout.String(), stderr: stderr.String()}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.code = exitErr.ExitCode()
	default:
		t.Fatalf("run forkexec %v: %v", args, err)
	}
	return res
}

// writeConfig writes forkexec.toml into dir with quiet logging prepended.
func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "forkexec.toml")
	full := "[log]\nlevel = \"error\"\nformat = \"text\"\n\n" + body + "\n"
	if err := os.WriteFile(path, []byte(full), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// writeScript writes an executable /bin/sh script into dir.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}
