package wire

import (
	"fmt"
	"strings"
)

const upperhex = "0123456789ABCDEF"

// isUnreserved reports whether c may appear unescaped in an
// application/x-www-form-urlencoded body.
func isUnreserved(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z':
		return true
	case c >= 'a' && c <= 'z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_' || c == '.' || c == '~':
		return true
	}
	return false
}

// EncodeForm percent-encodes s for use as a form body. Unreserved bytes are
// copied through, everything else becomes %XX with uppercase hex digits. A
// space encodes as %20, not '+'.
func EncodeForm(s string) string {
	var escapes int
	for i := 0; i < len(s); i++ {
		if !isUnreserved(s[i]) {
			escapes++
		}
	}
	if escapes == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*escapes)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0x0f])
	}
	return b.String()
}

// DecodeForm reverses EncodeForm. It also maps '+' to a space, which the
// classic form encoding produces. Malformed or truncated %XX escapes return
// an error.
func DecodeForm(s string) (string, error) {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '%':
			if i+2 >= len(s) {
				return "", fmt.Errorf("wire: truncated percent escape at offset %d", i)
			}
			hi := unhex(s[i+1])
			lo := unhex(s[i+2])
			if hi < 0 || lo < 0 {
				return "", fmt.Errorf("wire: invalid percent escape %q at offset %d", s[i:i+3], i)
			}
			b.WriteByte(byte(hi<<4 | lo))
			i += 2
		case '+':
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

func unhex(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}
