// Package btuin provides sanitization helpers for untrusted strings
// headed for the screen or a log.
package btuin

import "strings"

// StripAnsi removes CSI escape sequences from a string, returning only
// the visible text content.
func StripAnsi(s string) string {
	if !ContainsAnsi(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	i := 0
	for i < len(s) {
		if s[i] == '\x1b' && i+1 < len(s) && s[i+1] == '[' {
			// CSI sequence: skip ESC[ then params until final byte (0x40-0x7E)
			i += 2
			for i < len(s) && !(s[i] >= 0x40 && s[i] <= 0x7e) {
				i++
			}
			if i < len(s) {
				i++ // skip final byte
			}
		} else if s[i] == '\x1b' {
			// Other escape: skip ESC + next byte
			i += 2
		} else {
			b.WriteByte(s[i])
			i++
		}
	}
	return b.String()
}

// StripControl removes control characters that would corrupt the
// display: 0x00-0x08, 0x0B-0x0C, 0x0E-0x1A, 0x1C-0x1F and 0x7F.
// Newlines, tabs and ESC survive.
func StripControl(s string) string {
	needsStrip := false
	for i := 0; i < len(s); i++ {
		if isStrippedControl(s[i]) {
			needsStrip = true
			break
		}
	}
	if !needsStrip {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if !isStrippedControl(s[i]) {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func isStrippedControl(c byte) bool {
	switch {
	case c <= 0x08:
		return true
	case c == 0x0b || c == 0x0c:
		return true
	case c >= 0x0e && c <= 0x1a:
		return true
	case c >= 0x1c && c <= 0x1f:
		return true
	case c == 0x7f:
		return true
	}
	return false
}

// Sanitize strips both escape sequences and control characters.
func Sanitize(s string) string {
	return StripControl(StripAnsi(s))
}
