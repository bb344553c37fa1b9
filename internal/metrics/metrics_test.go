package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/kahiteam/forkexec/internal/logging"
	"github.com/kahiteam/forkexec/internal/process"
	"github.com/kahiteam/forkexec/internal/testutil"
)

func TestNewCollector(t *testing.T) {
	c := New()
	if c == nil {
		t.Fatal("expected non-nil collector")
	}
}

func TestMetricsHandler(t *testing.T) {
	c := New()
	handler := c.Handler()

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	body, _ := io.ReadAll(w.Body)
	if !strings.Contains(string(body), "go_goroutines") {
		t.Fatal("expected go_goroutines metric")
	}
}

func TestSpawnResult(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ResultOK},
		{&process.SpawnError{Op: "pipe", Err: syscall.EMFILE}, "pipe"},
		{&process.SpawnError{Op: "fork", Err: syscall.EAGAIN}, "fork"},
		{&process.ExecError{Path: "/x", Pid: 1, Err: syscall.ENOENT}, ResultExec},
		{syscall.EINVAL, ResultInvalid},
		{errors.New("other"), ResultInvalid},
	}
	for _, tt := range tests {
		if got := SpawnResult(tt.err); got != tt.want {
			t.Errorf("SpawnResult(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestObserveSpawn(t *testing.T) {
	c := New()
	c.ObserveSpawn(nil, time.Millisecond)
	c.ObserveSpawn(nil, time.Millisecond)
	c.ObserveSpawn(&process.SpawnError{Op: "fork", Err: syscall.EAGAIN}, time.Microsecond)

	body := scrape(t, c)
	if !strings.Contains(body, `forkexec_spawn_total{result="ok"} 2`) {
		t.Fatalf("expected ok=2, got:\n%s", body)
	}
	if !strings.Contains(body, `forkexec_spawn_total{result="fork"} 1`) {
		t.Fatalf("expected fork=1, got:\n%s", body)
	}
	if !strings.Contains(body, "forkexec_spawn_barrier_seconds_count 3") {
		t.Fatalf("expected 3 barrier observations, got:\n%s", body)
	}
}

func TestObserveExit(t *testing.T) {
	c := New()
	c.ObserveExit(ExitSuccess, 0, time.Second)
	c.ObserveExit(ExitSignaled, 137, 2*time.Second)

	body := scrape(t, c)
	if !strings.Contains(body, `forkexec_child_exit_total{kind="success"} 1`) {
		t.Fatalf("expected success=1, got:\n%s", body)
	}
	if !strings.Contains(body, `forkexec_child_exit_total{kind="signaled"} 1`) {
		t.Fatalf("expected signaled=1, got:\n%s", body)
	}
	if !strings.Contains(body, "forkexec_child_last_exit_code 137") {
		t.Fatalf("expected last exit 137, got:\n%s", body)
	}
	if !strings.Contains(body, "forkexec_child_run_seconds_count 2") {
		t.Fatalf("expected 2 run observations, got:\n%s", body)
	}
}

func TestAddOutput(t *testing.T) {
	c := New()
	c.AddOutput("stdout", 10)
	c.AddOutput("stdout", 5)

	body := scrape(t, c)
	if !strings.Contains(body, `forkexec_child_output_bytes_total{stream="stdout"} 15`) {
		t.Fatalf("expected stdout=15, got:\n%s", body)
	}
}

func TestBuildInfo(t *testing.T) {
	c := New()
	c.SetBuildInfo("1.0.0", "go1.26.0")

	body := scrape(t, c)
	if !strings.Contains(body, `forkexec_info{go_version="go1.26.0",version="1.0.0"} 1`) {
		t.Fatalf("expected build info metric, got:\n%s", body)
	}
}

func TestWriteTextfile(t *testing.T) {
	c := New()
	c.ObserveExit(ExitFailure, 3, time.Second)

	path := filepath.Join(t.TempDir(), "forkexec.prom")
	if err := c.WriteTextfile(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `forkexec_child_exit_total{kind="failure"} 1`) {
		t.Fatalf("textfile missing exit counter:\n%s", data)
	}
}

func TestServe(t *testing.T) {
	c := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr := testutil.FreeTCPAddr(t)

	done := make(chan error, 1)
	go func() { done <- c.Serve(ctx, addr, logging.Discard()) }()

	var resp *http.Response
	var err error
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err = http.Get("http://" + addr + "/metrics")
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestMetricNamingConventions(t *testing.T) {
	c := New()
	c.ObserveSpawn(nil, time.Millisecond)
	c.ObserveExit(ExitSuccess, 0, time.Second)
	c.AddOutput("stderr", 1)
	c.SetBuildInfo("dev", "go1.26")

	body := scrape(t, c)

	metricNames := []string{
		"forkexec_spawn_total",
		"forkexec_spawn_barrier_seconds",
		"forkexec_child_exit_total",
		"forkexec_child_last_exit_code",
		"forkexec_child_run_seconds",
		"forkexec_child_output_bytes_total",
		"forkexec_info",
	}
	for _, name := range metricNames {
		if !strings.Contains(body, name) {
			t.Errorf("expected metric %s in output", name)
		}
	}
}

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics scrape failed: %d", w.Code)
	}
	body, _ := io.ReadAll(w.Body)
	return string(body)
}
