package tools

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestLocateAndAvailable(t *testing.T) {
	dir := t.TempDir()

	l := Locate(dir)
	if l.Available() {
		t.Fatalf("tools should not be available in an empty dir")
	}

	for _, n := range []string{ProfileLoaderName, VCPToolName} {
		if err := os.WriteFile(filepath.Join(dir, ExeName(n)), []byte("bin"), 0755); err != nil {
			t.Fatal(err)
		}
	}

	l = Locate(dir)
	if !l.Available() {
		t.Fatalf("tools should be available, got %+v", l)
	}
	if l.VCPTool != filepath.Join(dir, ExeName(VCPToolName)) {
		t.Fatalf("unexpected vcp tool path %s", l.VCPTool)
	}

	var nilLocator *Locator
	if nilLocator.Available() {
		t.Fatalf("nil locator must not be available")
	}
}

func TestExtractAndCleanup(t *testing.T) {
	bundle := fstest.MapFS{
		ExeName(ProfileLoaderName): {Data: []byte("dispwin-binary")},
		ExeName(VCPToolName):       {Data: []byte("winddcutil-binary")},
	}
	dest := filepath.Join(t.TempDir(), "hdrcal_tools")

	l, cleanup, err := Extract(bundle, dest)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if !l.Available() {
		t.Fatalf("extracted tools should be available")
	}
	b, err := os.ReadFile(l.VCPTool)
	if err != nil || string(b) != "winddcutil-binary" {
		t.Fatalf("unexpected extracted content %q, %v", b, err)
	}

	cleanup()
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be removed, stat err = %v", dest, err)
	}
}

func TestExtractMissingTool(t *testing.T) {
	bundle := fstest.MapFS{
		ExeName(ProfileLoaderName): {Data: []byte("dispwin-binary")},
	}
	dest := filepath.Join(t.TempDir(), "partial")

	if _, _, err := Extract(bundle, dest); err == nil {
		t.Fatalf("expected error when a tool is missing from the bundle")
	}
	if _, err := os.Stat(filepath.Join(dest, ExeName(ProfileLoaderName))); !os.IsNotExist(err) {
		t.Fatalf("partially extracted tool should be removed")
	}
}
