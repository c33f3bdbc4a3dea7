//go:build windows

package runner

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

var (
	kernel32     = windows.NewLazySystemDLL("kernel32.dll")
	procGetOEMCP = kernel32.NewProc("GetOEMCP")
	procGetACP   = kernel32.NewProc("GetACP")
)

func hideWindow(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW,
	}
}

func oemCodePage() uint32 {
	return codePage(procGetOEMCP, 437)
}

func ansiCodePage() uint32 {
	return codePage(procGetACP, 1252)
}

func codePage(proc *windows.LazyProc, fallback uint32) uint32 {
	if err := proc.Find(); err != nil {
		return fallback
	}
	cp, _, _ := proc.Call()
	return uint32(cp)
}
