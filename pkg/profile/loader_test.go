package profile

import (
	"errors"
	"reflect"
	"testing"

	"github.com/hdrtray/hdrcal/pkg/runner"
)

type recordingRunner struct {
	code     int
	commands []runner.Command
}

func (r *recordingRunner) Run(c runner.Command) (int, error) {
	r.commands = append(r.commands, c)
	return r.code, nil
}

func (r *recordingRunner) RunCapturing(c runner.Command) (int, string, error) {
	r.commands = append(r.commands, c)
	return r.code, "", nil
}

func TestLoaderCommand(t *testing.T) {
	tests := []struct {
		file string
		want []string
	}{
		{"sdr.icm", []string{"-d", "1", "-I", "sdr.icm"}},
		{"Panel.ICC", []string{"-d", "1", "-I", "Panel.ICC"}},
		{"hdr_1d.cal", []string{"-d", "1", "hdr_1d.cal"}},
		{"noext", []string{"-d", "1", "noext"}},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			r := &recordingRunner{}
			if err := NewLoader("dispwin", r).Load(1, tt.file); err != nil {
				t.Fatalf("Load returned error: %v", err)
			}
			if len(r.commands) != 1 {
				t.Fatalf("expected one command, got %d", len(r.commands))
			}
			if got := r.commands[0].Args; !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("args = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoaderFailure(t *testing.T) {
	err := NewLoader("dispwin", &recordingRunner{code: 1}).Load(1, "a.cal")
	if !errors.Is(err, ErrLoadFailed) {
		t.Fatalf("expected ErrLoadFailed, got %v", err)
	}
}
