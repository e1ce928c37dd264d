// Package btuin provides parsing of SGR-styled text into styled cells,
// so Text content may carry pre-colored escape sequences.
package btuin

import (
	"strconv"
	"strings"
)

// ContainsAnsi returns true if the string contains ANSI escape sequences.
func ContainsAnsi(s string) bool {
	return strings.Contains(s, "\x1b[")
}

// AnsiSegment is a run of text with resolved style tokens.
type AnsiSegment struct {
	Text string
	Fg   string
	Bg   string
}

// ParseAnsiLine parses a line containing SGR escape codes into styled
// segments. baseFg/baseBg are the element's own tokens; a reset returns
// to them. Non-color SGR parameters are dropped, as the cell model
// carries color channels only.
func ParseAnsiLine(line string, baseFg, baseBg string) []AnsiSegment {
	if !ContainsAnsi(line) {
		return []AnsiSegment{{Text: line, Fg: baseFg, Bg: baseBg}}
	}

	var segments []AnsiSegment
	fg, bg := baseFg, baseBg
	var text strings.Builder

	flush := func() {
		if text.Len() > 0 {
			segments = append(segments, AnsiSegment{Text: text.String(), Fg: fg, Bg: bg})
			text.Reset()
		}
	}

	i := 0
	for i < len(line) {
		if line[i] == '\x1b' && i+1 < len(line) && line[i+1] == '[' {
			flush()
			i += 2
			paramStart := i
			for i < len(line) && !(line[i] >= 0x40 && line[i] <= 0x7e) {
				i++
			}
			if i < len(line) {
				if line[i] == 'm' {
					fg, bg = applySGR(line[paramStart:i], fg, bg, baseFg, baseBg)
				}
				i++
			}
		} else if line[i] == '\x1b' {
			// Non-CSI escape: skip ESC + next byte.
			i += 2
		} else {
			text.WriteByte(line[i])
			i++
		}
	}
	flush()
	return segments
}

// applySGR folds SGR parameters into the current token pair.
func applySGR(paramStr string, fg, bg, baseFg, baseBg string) (string, string) {
	if paramStr == "" {
		// ESC[m is equivalent to ESC[0m.
		return baseFg, baseBg
	}
	params := parseSGRParams(paramStr)
	i := 0
	for i < len(params) {
		p := params[i]
		switch {
		case p == 0:
			fg, bg = baseFg, baseBg
		case (p >= 30 && p <= 37) || (p >= 90 && p <= 97):
			fg = csiStr + strconv.Itoa(p) + "m"
		case p == 39:
			fg = baseFg
		case (p >= 40 && p <= 47) || (p >= 100 && p <= 107):
			bg = csiStr + strconv.Itoa(p) + "m"
		case p == 49:
			bg = baseBg
		case p == 38:
			if i+2 < len(params) && params[i+1] == 5 {
				fg = csiStr + "38;5;" + strconv.Itoa(params[i+2]) + "m"
				i += 2
			} else if i+4 < len(params) && params[i+1] == 2 {
				fg = csiStr + "38;2;" + strconv.Itoa(params[i+2]) + ";" +
					strconv.Itoa(params[i+3]) + ";" + strconv.Itoa(params[i+4]) + "m"
				i += 4
			}
		case p == 48:
			if i+2 < len(params) && params[i+1] == 5 {
				bg = csiStr + "48;5;" + strconv.Itoa(params[i+2]) + "m"
				i += 2
			} else if i+4 < len(params) && params[i+1] == 2 {
				bg = csiStr + "48;2;" + strconv.Itoa(params[i+2]) + ";" +
					strconv.Itoa(params[i+3]) + ";" + strconv.Itoa(params[i+4]) + "m"
				i += 4
			}
		}
		i++
	}
	return fg, bg
}

// parseSGRParams splits a semicolon-separated parameter string into integers.
func parseSGRParams(s string) []int {
	var params []int
	n := 0
	hasDigit := false
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			n = n*10 + int(s[i]-'0')
			hasDigit = true
		} else if s[i] == ';' {
			params = append(params, n)
			n = 0
			hasDigit = false
		}
	}
	if hasDigit {
		params = append(params, n)
	}
	return params
}

// drawAnsiLine paints a pre-styled line segment by segment.
func drawAnsiLine(buf *Buffer, x, y int, line string, baseFg, baseBg string, clip Rect) {
	col := x
	for _, seg := range ParseAnsiLine(line, baseFg, baseBg) {
		drawClusters(buf, col, y, seg.Text, seg.Fg, seg.Bg, clip)
		col += MeasureText(seg.Text)
	}
}
