// Package btuin provides the inline renderer: a non-fullscreen output
// strategy that rewrites N lines in place below the shell prompt.
package btuin

import (
	"io"
	"strings"
)

// InlineRenderer repaints a block of lines at the current cursor
// position instead of owning the whole screen.
type InlineRenderer struct {
	out           io.Writer
	prevLineCount int
}

// NewInlineRenderer creates an inline renderer writing to out.
func NewInlineRenderer(out io.Writer) *InlineRenderer {
	return &InlineRenderer{out: out}
}

// Render materializes buf into lines and rewrites the previously
// emitted block in place. The last line carries no trailing newline, so
// repeated renders at the terminal bottom do not drift.
func (r *InlineRenderer) Render(buf *Buffer) {
	lines := bufferToLines(buf)
	r.RenderLines(lines)
}

// RenderLines rewrites the block with the given pre-styled lines.
func (r *InlineRenderer) RenderLines(lines []string) {
	var sb strings.Builder

	if r.prevLineCount > 0 {
		if r.prevLineCount > 1 {
			sb.WriteString(CursorUp(r.prevLineCount - 1))
		}
		sb.WriteString("\r")
	}

	total := len(lines)
	if r.prevLineCount > total {
		total = r.prevLineCount
	}

	for i := 0; i < total; i++ {
		sb.WriteString(clearLineStr)
		sb.WriteString("\r")
		if i < len(lines) {
			sb.WriteString(TrimTrailingSpaces(lines[i]))
		}
		if i < total-1 {
			sb.WriteString("\r\n")
		}
	}
	// When the block shrank, step back from the last cleared line to the
	// last line of the new block so the next render starts at its top.
	if last := max(len(lines)-1, 0); total-1 > last {
		sb.WriteString(CursorUp(total - 1 - last))
	}

	io.WriteString(r.out, sb.String())
	r.prevLineCount = len(lines)
}

// Cleanup clears the currently occupied lines and returns the cursor to
// the block's first column.
func (r *InlineRenderer) Cleanup() {
	if r.prevLineCount == 0 {
		return
	}
	var sb strings.Builder
	if r.prevLineCount > 1 {
		sb.WriteString(CursorUp(r.prevLineCount - 1))
	}
	sb.WriteString("\r")
	for i := 0; i < r.prevLineCount; i++ {
		sb.WriteString(clearLineStr)
		if i < r.prevLineCount-1 {
			sb.WriteString("\r\n")
		}
	}
	if r.prevLineCount > 1 {
		sb.WriteString(CursorUp(r.prevLineCount - 1))
	}
	sb.WriteString("\r")
	io.WriteString(r.out, sb.String())
	r.prevLineCount = 0
}

// bufferToLines renders each buffer row to a string with embedded SGR
// transitions, one string per row.
func bufferToLines(buf *Buffer) []string {
	lines := make([]string, buf.Height())
	for y := 0; y < buf.Height(); y++ {
		var sb strings.Builder
		curFg, curBg := "", ""
		styled := false
		for x := 0; x < buf.Width(); x++ {
			i := buf.index(x, y)
			if buf.widths[i] == 0 {
				continue
			}
			fg := buf.fg[i]
			bg := buf.bg[i]
			if fg != curFg {
				if fg == "" {
					sb.WriteString(defaultFgStr)
				} else {
					sb.WriteString(fg)
				}
				curFg = fg
				styled = true
			}
			if bg != curBg {
				if bg == "" {
					sb.WriteString(defaultBgStr)
				} else {
					sb.WriteString(bg)
				}
				curBg = bg
				styled = true
			}
			sb.WriteString(buf.glyphAt(i))
		}
		if styled {
			sb.WriteString(resetStr)
		}
		lines[y] = sb.String()
	}
	return lines
}

// TrimTrailingSpaces removes plain trailing spaces from a line while
// preserving escape sequences. Spaces separated from the end only by
// SGR escapes are removed too.
func TrimTrailingSpaces(line string) string {
	if line == "" {
		return line
	}

	// Tokenize into escapes and text runs, then drop trailing spaces
	// from the final text runs.
	type token struct {
		text     string
		isEscape bool
	}
	var tokens []token
	i := 0
	for i < len(line) {
		if line[i] == '\x1b' && i+1 < len(line) && line[i+1] == '[' {
			start := i
			i += 2
			for i < len(line) && !(line[i] >= 0x40 && line[i] <= 0x7e) {
				i++
			}
			if i < len(line) {
				i++
			}
			tokens = append(tokens, token{text: line[start:i], isEscape: true})
		} else {
			start := i
			for i < len(line) && line[i] != '\x1b' {
				i++
			}
			tokens = append(tokens, token{text: line[start:i], isEscape: false})
		}
	}

	// Walk backwards: trim text runs until a non-space survives.
	for idx := len(tokens) - 1; idx >= 0; idx-- {
		if tokens[idx].isEscape {
			continue
		}
		trimmed := strings.TrimRight(tokens[idx].text, " ")
		tokens[idx].text = trimmed
		if trimmed != "" {
			break
		}
	}

	var sb strings.Builder
	for _, t := range tokens {
		sb.WriteString(t.text)
	}
	return sb.String()
}
