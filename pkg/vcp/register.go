// Package vcp reads and writes DDC/CI Virtual Control Panel registers by
// shelling out to a command-line VCP tool and parsing what it prints.
package vcp

import (
	"fmt"
	"strconv"
	"strings"
)

// Display identifies a monitor to the external tool. It comes from
// configuration and is never discovered here.
type Display int

// Register is a VCP feature code.
type Register uint8

// Value is the content of a register.
type Value int

const (
	Brightness  Register = 0x10
	ColorPreset Register = 0x14
	RedGain     Register = 0x16
	GreenGain   Register = 0x18
	BlueGain    Register = 0x1A
)

var registerNames = map[Register]string{
	Brightness:  "brightness",
	ColorPreset: "color-preset",
	RedGain:     "red-gain",
	GreenGain:   "green-gain",
	BlueGain:    "blue-gain",
}

// Hex formats the register as uppercase hex without leading zeros or a
// prefix, e.g. "10" or "1A".
func (r Register) Hex() string {
	return fmt.Sprintf("%X", uint8(r))
}

func (r Register) String() string {
	if n, ok := registerNames[r]; ok {
		return n
	}
	return "0x" + r.Hex()
}

// ParseRegister accepts a known register name, a 0x-prefixed hex code or a
// bare hex code.
func ParseRegister(s string) (Register, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	for r, n := range registerNames {
		if n == s {
			return r, nil
		}
	}

	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid register %q: %w", s, err)
	}
	return Register(v), nil
}
