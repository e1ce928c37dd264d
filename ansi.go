// Package btuin provides ANSI escape code generation for terminal output.
package btuin

import (
	"strconv"
)

const (
	ESC = "\x1b"
	CSI = ESC + "["
)

// Pre-computed ANSI escape sequences
const (
	csiStr   = "\x1b["
	resetStr = "\x1b[0m"

	defaultFgStr = "\x1b[39m"
	defaultBgStr = "\x1b[49m"

	clearScreenStr = "\x1b[2J"
	cursorHomeStr  = "\x1b[H"
	clearLineStr   = "\x1b[2K"

	hideCursorStr = "\x1b[?25l"
	showCursorStr = "\x1b[?25h"

	bracketedPasteOnStr  = "\x1b[?2004h"
	bracketedPasteOffStr = "\x1b[?2004l"

	resetScrollRegionStr = "\x1b[r"
)

// MoveCursor returns the ANSI code to move the cursor to (x, y).
// ANSI uses 1-based coordinates.
func MoveCursor(x, y int) string {
	return csiStr + strconv.Itoa(y+1) + ";" + strconv.Itoa(x+1) + "H"
}

// HideCursor returns the ANSI code to hide the cursor.
func HideCursor() string {
	return hideCursorStr
}

// ShowCursor returns the ANSI code to show the cursor.
func ShowCursor() string {
	return showCursorStr
}

// ClearScreen returns the ANSI code to clear the screen and home the cursor.
func ClearScreen() string {
	return clearScreenStr + cursorHomeStr
}

// ResetStyle returns the SGR reset sequence.
func ResetStyle() string {
	return resetStr
}

// SetScrollRegion returns the DECSTBM sequence for rows [top, bottom],
// both 1-based inclusive.
func SetScrollRegion(top, bottom int) string {
	return csiStr + strconv.Itoa(top) + ";" + strconv.Itoa(bottom) + "r"
}

// ResetScrollRegion returns the DECSTBM reset sequence.
func ResetScrollRegion() string {
	return resetScrollRegionStr
}

// ScrollUp returns the sequence scrolling the active region up by n rows.
func ScrollUp(n int) string {
	return csiStr + strconv.Itoa(n) + "S"
}

// ScrollDown returns the sequence scrolling the active region down by n rows.
func ScrollDown(n int) string {
	return csiStr + strconv.Itoa(n) + "T"
}

// CursorUp returns the sequence moving the cursor up by n rows.
func CursorUp(n int) string {
	return csiStr + strconv.Itoa(n) + "A"
}

// EnableBracketedPaste returns the bracketed paste enable sequence.
func EnableBracketedPaste() string {
	return bracketedPasteOnStr
}

// DisableBracketedPaste returns the bracketed paste disable sequence.
func DisableBracketedPaste() string {
	return bracketedPasteOffStr
}
