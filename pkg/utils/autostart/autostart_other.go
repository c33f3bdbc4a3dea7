//go:build !windows

package autostart

func Enable(_ Entry) error { return ErrUnsupported }

func Disable(_ string) error { return ErrUnsupported }

func Lookup(_ string) (string, bool, error) { return "", false, ErrUnsupported }
