//go:build e2e

package e2e

import (
	"bufio"
	"bytes"
	"io"
	"errors"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"
)

func TestSignal_InterruptKillsChild(t *testing.T) {
	dir := t.TempDir()
	cmd := forkexecCmd(t, dir, "run", "--", "/bin/sh", "-c", "echo ready; exec sleep 30")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Start(); err != nil {
		t.Fatal(err)
	}

	line, err := bufio.NewReader(stdout).ReadString('\n')
	if err != nil || line != "ready\n" {
		_ = cmd.Process.Kill()
		t.Fatalf("first line = %q, %v", line, err)
	}
	done := make(chan error, 1)
	go func() {
		_, _ = io.Copy(io.Discard, stdout)
		done <- cmd.Wait()
	}()

	if err := cmd.Process.Signal(syscall.SIGINT); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			t.Fatalf("wait: %v", err)
		}
		if code := exitErr.ExitCode(); code != 128+int(syscall.SIGKILL) {
			t.Fatalf("exit = %d, want %d", code, 128+int(syscall.SIGKILL))
		}
		if !strings.Contains(stderr.String(), "interrupted") {
			t.Fatalf("stderr = %q", stderr.String())
		}
	case <-time.After(10 * time.Second):
		_ = cmd.Process.Kill()
		t.Fatal("forkexec did not exit after SIGINT")
	}
}

func TestSignal_KillCommand(t *testing.T) {
	sleeper := exec.Command("/bin/sleep", "30")
	if err := sleeper.Start(); err != nil {
		t.Fatal(err)
	}
	defer sleeper.Process.Kill()

	res := runForkexec(t, t.TempDir(), "kill", strconv.Itoa(sleeper.Process.Pid), "KILL")
	if res.code != 0 {
		t.Fatalf("kill exited %d: %s", res.code, res.stderr)
	}

	err := sleeper.Wait()
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("wait: %v", err)
	}
	ws := exitErr.Sys().(syscall.WaitStatus)
	if !ws.Signaled() || ws.Signal() != syscall.SIGKILL {
		t.Fatalf("status = %v, want killed by SIGKILL", ws)
	}
}
