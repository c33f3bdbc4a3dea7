package runner

import (
	"errors"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestDecode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("legacy code pages depend on the system locale")
	}

	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{
			name: "utf8 passes through",
			in:   []byte("VCP 10 32 64\r\n"),
			want: "VCP 10 32 64\r\n",
		},
		{
			name: "oem code page",
			in:   []byte{'c', 'a', 'f', 0x82},
			want: "café",
		},
		{
			name: "empty",
			in:   nil,
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decode(tt.in); got != tt.want {
				t.Errorf("Decode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeUnknownCodePage(t *testing.T) {
	if _, ok := decodeWith(65001, []byte{0xff}); ok {
		t.Fatalf("expected code page 65001 to be unsupported by the single-byte table")
	}
}

func TestExecExitCodes(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}

	r := Exec{}

	code, out, err := r.RunCapturing(Command{Path: "/bin/sh", Args: []string{"-c", "echo current value = 7; echo oops >&2; exit 3"}})
	if err != nil {
		t.Fatalf("RunCapturing returned error: %v", err)
	}
	if code != 3 {
		t.Fatalf("expected exit code 3, got %d", code)
	}
	if !strings.Contains(out, "current value = 7") || !strings.Contains(out, "oops") {
		t.Fatalf("expected combined output, got %q", out)
	}

	code, err = r.Run(Command{Path: "/bin/sh", Args: []string{"-c", "exit 0"}})
	if err != nil || code != 0 {
		t.Fatalf("expected clean exit, got code=%d err=%v", code, err)
	}
}

func TestExecSpawnFailure(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")

	code, err := Exec{}.Run(Command{Path: missing})
	if !errors.Is(err, ErrSpawn) {
		t.Fatalf("expected ErrSpawn, got %v", err)
	}
	if code != -1 {
		t.Fatalf("expected exit code -1 on spawn failure, got %d", code)
	}

	code, _, err = Exec{}.RunCapturing(Command{Path: missing})
	if !errors.Is(err, ErrSpawn) || code != -1 {
		t.Fatalf("expected ErrSpawn with -1, got code=%d err=%v", code, err)
	}
}

func TestCommandString(t *testing.T) {
	c := Command{Path: `C:\Program Files\bin\dispwin.exe`, Args: []string{"-d", "1", "my profile.icm"}}
	want := `"C:\Program Files\bin\dispwin.exe" -d 1 "my profile.icm"`
	if got := c.String(); got != want {
		t.Fatalf("String() = %s, want %s", got, want)
	}
}
