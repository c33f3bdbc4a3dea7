package calibration

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/hdrtray/hdrcal/pkg/vcp"
)

func TestRetryPolicyBackoffFor(t *testing.T) {
	p := DefaultRetryPolicy()
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 150 * time.Millisecond},
		{1, 300 * time.Millisecond},
		{2, 500 * time.Millisecond},
		{3, 500 * time.Millisecond},
		{10, 500 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := p.BackoffFor(tt.attempt); got != tt.want {
			t.Errorf("BackoffFor(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}

	if got := (RetryPolicy{}).BackoffFor(1); got != 0 {
		t.Errorf("empty schedule should not sleep, got %v", got)
	}
}

func TestProfileTargetsOrder(t *testing.T) {
	p := Profile{Brightness: 50, RedGain: 50, GreenGain: 49, BlueGain: 49}
	got := p.Targets()
	want := []vcp.Register{vcp.Brightness, vcp.RedGain, vcp.GreenGain, vcp.BlueGain}
	if len(got) != len(want) {
		t.Fatalf("expected %d targets, got %d", len(want), len(got))
	}
	for i, r := range want {
		if got[i].Register != r {
			t.Fatalf("target %d is %s, want %s", i, got[i].Register, r)
		}
	}
}

func TestSnapshotProfilePath(t *testing.T) {
	dir := t.TempDir()
	s := Snapshot{ProfileDir: dir}
	if got := s.ProfilePath("a.icm"); got != filepath.Join(dir, "a.icm") {
		t.Fatalf("relative profile not joined: %s", got)
	}
	abs := filepath.Join(dir, "x", "b.cal")
	if got := s.ProfilePath(abs); got != abs {
		t.Fatalf("absolute profile changed: %s", got)
	}
	if got := s.ProfilePath(""); got != "" {
		t.Fatalf("empty profile should stay empty, got %q", got)
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode("hdr"); err != nil || m != ModeHDR {
		t.Fatalf("ParseMode(hdr) = %v, %v", m, err)
	}
	if _, err := ParseMode("dolby"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseReapplyReason(t *testing.T) {
	for in, want := range map[string]ReapplyReason{
		"":                 ReasonManual,
		"display-power-on": ReasonDisplayPowerOn,
		"system-resume":    ReasonSystemResume,
	} {
		if got, err := ParseReapplyReason(in); err != nil || got != want {
			t.Errorf("ParseReapplyReason(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseReapplyReason("lunar-eclipse"); err == nil {
		t.Fatalf("expected error")
	}
}
