package vcp

import (
	"fmt"
	"regexp"
	"testing"
)

func TestParserLabelledAndTerseRoundTrip(t *testing.T) {
	p := NewParser()
	for v := 0; v <= 65535; v++ {
		if got, ok := p.Parse("current value = " + fmt.Sprintf("%d", v)); !ok || got != Value(v) {
			t.Fatalf("labelled %d: got %d ok=%v", v, got, ok)
		}
		if got, ok := p.Parse("VCP 10 0x" + fmt.Sprintf("%x", v)); !ok || got != Value(v) {
			t.Fatalf("terse %d: got %d ok=%v", v, got, ok)
		}
	}
}

func TestParserParse(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   Value
		wantOK bool
	}{
		{
			name:   "ddcutil style",
			text:   "VCP code 0x10 (Brightness                    ): current value =    50, max value =   100",
			want:   50,
			wantOK: true,
		},
		{
			name:   "current with colon",
			text:   "Current: 0x0C",
			want:   12,
			wantOK: true,
		},
		{
			name:   "uppercase label",
			text:   "CURRENT VALUE=42\r\n",
			want:   42,
			wantOK: true,
		},
		{
			name:   "winddcutil terse dump with max",
			text:   "VCP 14 12 13\r\n",
			want:   12,
			wantOK: true,
		},
		{
			name:   "prefixed address in dump",
			text:   "vcp 0x1A 49",
			want:   49,
			wantOK: true,
		},
		{
			name:   "generic value label",
			text:   "feature=0x16 val=0x2E",
			want:   46,
			wantOK: true,
		},
		{
			name:   "labelled form wins over terse dump",
			text:   "VCP 10 99 100\ncurrent value = 50",
			want:   50,
			wantOK: true,
		},
		{
			name:   "terse dump wins over generic label",
			text:   "value=7\nVCP 10 8",
			want:   8,
			wantOK: true,
		},
		{
			name:   "zero is a real value",
			text:   "current value = 0",
			want:   0,
			wantOK: true,
		},
		{
			name:   "no numeric token",
			text:   "Error: monitor does not support DDC/CI",
			wantOK: false,
		},
		{
			name:   "label without number",
			text:   "current value = n/a",
			wantOK: false,
		},
		{
			name:   "empty",
			text:   "",
			wantOK: false,
		},
		{
			name:   "overflow stops at first matching rule",
			text:   "current value = 99999999999999999999\nVCP 10 5",
			wantOK: false,
		},
	}
	p := NewParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.Parse(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("Parse(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Fatalf("Parse(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestParserCustomRules(t *testing.T) {
	brightnessRule := RegexpRule{
		RuleName: "monitorcontrol",
		Pattern:  regexp.MustCompile(`(?i)brightness is ([0-9]+)`),
	}
	p := NewParser(append([]Rule{brightnessRule}, DefaultRules()...)...)

	got, ok := p.Parse("Brightness is 73 (max 100)")
	if !ok || got != 73 {
		t.Fatalf("expected custom rule to yield 73, got %d ok=%v", got, ok)
	}

	got, ok = p.Parse("VCP 10 21")
	if !ok || got != 21 {
		t.Fatalf("expected default rules to still apply, got %d ok=%v", got, ok)
	}
}
