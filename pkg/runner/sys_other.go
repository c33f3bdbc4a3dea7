//go:build !windows

package runner

import "os/exec"

func hideWindow(_ *exec.Cmd) {}

// Tools emitting legacy encodings outside Windows are rare; assume the
// common western defaults.
func oemCodePage() uint32 { return 437 }

func ansiCodePage() uint32 { return 1252 }
