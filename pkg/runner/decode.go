package runner

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// codePages maps Windows code page identifiers to decoders. Only single-byte
// pages are listed; anything else falls through to the next candidate.
var codePages = map[uint32]encoding.Encoding{
	437:  charmap.CodePage437,
	850:  charmap.CodePage850,
	852:  charmap.CodePage852,
	855:  charmap.CodePage855,
	858:  charmap.CodePage858,
	860:  charmap.CodePage860,
	862:  charmap.CodePage862,
	863:  charmap.CodePage863,
	865:  charmap.CodePage865,
	866:  charmap.CodePage866,
	874:  charmap.Windows874,
	1250: charmap.Windows1250,
	1251: charmap.Windows1251,
	1252: charmap.Windows1252,
	1253: charmap.Windows1253,
	1254: charmap.Windows1254,
	1255: charmap.Windows1255,
	1256: charmap.Windows1256,
	1257: charmap.Windows1257,
	1258: charmap.Windows1258,
}

// Decode turns raw tool output into text. It never fails: UTF-8 is tried
// first, then the OEM code page, then the ANSI code page, and as a last
// resort invalid sequences are replaced.
func Decode(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}

	for _, cp := range []uint32{oemCodePage(), ansiCodePage()} {
		if s, ok := decodeWith(cp, b); ok {
			return s
		}
	}

	return strings.ToValidUTF8(string(b), "�")
}

func decodeWith(cp uint32, b []byte) (string, bool) {
	enc, ok := codePages[cp]
	if !ok {
		return "", false
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil || !utf8.Valid(out) {
		return "", false
	}
	return string(out), true
}
