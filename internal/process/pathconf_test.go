//go:build linux || darwin

package process

import (
	"syscall"
	"testing"
)

func TestPathConfRoot(t *testing.T) {
	for _, name := range []PathConfName{PCLinkMax, PCNameMax, PCPathMax, PCPipeBuf, PCMaxCanon, PCMaxInput} {
		v, err := PathConf("/", name)
		if err != nil {
			t.Fatalf("PathConf(/, %d): %v", name, err)
		}
		if v <= 0 {
			t.Fatalf("PathConf(/, %d) = %d, want > 0", name, v)
		}
	}
}

func TestPathConfUnknownName(t *testing.T) {
	if _, err := PathConf("/", PathConfName(100)); err != syscall.EINVAL {
		t.Fatalf("err = %v, want EINVAL", err)
	}
}

func TestPathConfMissingPath(t *testing.T) {
	if _, err := PathConf("/nonexistent/path", PCNameMax); err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestMaxPath(t *testing.T) {
	if got := MaxPath(); got < 255 {
		t.Fatalf("MaxPath() = %d, want >= 255", got)
	}
}

func TestParsePathConfName(t *testing.T) {
	tests := map[string]PathConfName{
		"NAME_MAX":     PCNameMax,
		"_PC_PATH_MAX": PCPathMax,
		"pipe_buf":     PCPipeBuf,
		"vdisable":     PCVDisable,
	}
	for in, want := range tests {
		got, err := ParsePathConfName(in)
		if err != nil || got != want {
			t.Fatalf("ParsePathConfName(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
	if _, err := ParsePathConfName("nope"); err == nil {
		t.Fatal("expected error")
	}
}

func TestPathConfNamesRoundTrip(t *testing.T) {
	names := PathConfNames()
	if len(names) != len(pathConfNames) {
		t.Fatalf("PathConfNames() has %d entries, want %d", len(names), len(pathConfNames))
	}
	for _, n := range names {
		got, err := ParsePathConfName("_PC_" + n.String())
		if err != nil || got != n {
			t.Fatalf("ParsePathConfName(%q) = %v, %v", n.String(), got, err)
		}
	}
}
