// Package btuin provides grapheme cluster segmentation and measurement.
// The engine is pure: segmentation comes from uax29 (extended grapheme
// clusters per UAX #29) and column widths from go-runewidth, with an
// explicit control-character rule layered on top.
package btuin

import (
	"strings"

	"github.com/clipperhouse/uax29/v2/graphemes"
	"github.com/mattn/go-runewidth"
)

// Segment splits s into grapheme clusters.
func Segment(s string) []string {
	if s == "" {
		return nil
	}
	clusters := make([]string, 0, len(s))
	g := graphemes.FromString(s)
	for g.Next() {
		clusters = append(clusters, g.Value())
	}
	return clusters
}

// FirstCluster returns the first grapheme cluster of s, or "" if s is empty.
func FirstCluster(s string) string {
	g := graphemes.FromString(s)
	if g.Next() {
		return g.Value()
	}
	return ""
}

// isControl reports whether r is a C0/C1 control code or DEL.
func isControl(r rune) bool {
	return r < 0x20 || (r >= 0x7f && r <= 0x9f)
}

// isCombining reports whether r occupies no column of its own.
func isCombining(r rune) bool {
	return !isControl(r) && runewidth.RuneWidth(r) == 0
}

// Measure returns the display width of one grapheme cluster: 0, 1 or 2.
// A cluster whose first non-combining code point is a control code
// measures 0; East-Asian-Wide bases (CJK, Hangul, kana, fullwidth
// forms, most emoji) measure 2; everything else measures 1.
func Measure(cluster string) int {
	for _, r := range cluster {
		if isCombining(r) {
			continue
		}
		if isControl(r) {
			return 0
		}
		if runewidth.RuneWidth(r) == 2 {
			return 2
		}
		return 1
	}
	// Combining marks only.
	return 0
}

// MeasureText returns the total display width of s, cluster by cluster.
func MeasureText(s string) int {
	if s == "" {
		return 0
	}
	// ASCII strings skip segmentation entirely.
	if isASCIIPrintable(s) {
		return len(s)
	}
	total := 0
	g := graphemes.FromString(s)
	for g.Next() {
		total += Measure(g.Value())
	}
	return total
}

func isASCIIPrintable(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] >= 0x7f {
			return false
		}
	}
	return true
}

// Truncate consumes clusters of s greedily while the accumulated width
// plus the ellipsis width stays within cap. If s fits entirely it is
// returned unchanged. The result is always a visually valid prefix: a
// cluster is never split and no lone continuation is produced.
func Truncate(s string, cap int, ellipsis string) string {
	if cap <= 0 {
		return ""
	}
	if MeasureText(s) <= cap {
		return s
	}
	budget := cap - MeasureText(ellipsis)
	if budget < 0 {
		return ""
	}
	var b strings.Builder
	used := 0
	g := graphemes.FromString(s)
	for g.Next() {
		w := Measure(g.Value())
		if used+w > budget {
			break
		}
		b.WriteString(g.Value())
		used += w
	}
	return b.String() + ellipsis
}

// Wrap splits s on hard newlines, then greedy-word-wraps each logical
// line on whitespace. A single word wider than cap is hard-wrapped by
// grapheme width.
func Wrap(s string, cap int) []string {
	if cap <= 0 {
		return []string{s}
	}

	var out []string
	for _, line := range strings.Split(s, "\n") {
		if MeasureText(line) <= cap {
			out = append(out, line)
			continue
		}

		current := ""
		currentWidth := 0
		for _, word := range strings.Fields(line) {
			wordWidth := MeasureText(word)

			if wordWidth > cap {
				// Flush, then hard-wrap the oversized word.
				if current != "" {
					out = append(out, current)
					current = ""
					currentWidth = 0
				}
				for _, chunk := range hardWrap(word, cap) {
					out = append(out, chunk)
				}
				last := out[len(out)-1]
				out = out[:len(out)-1]
				current = last
				currentWidth = MeasureText(last)
				continue
			}

			if current == "" {
				current = word
				currentWidth = wordWidth
			} else if currentWidth+1+wordWidth <= cap {
				current += " " + word
				currentWidth += 1 + wordWidth
			} else {
				out = append(out, current)
				current = word
				currentWidth = wordWidth
			}
		}
		out = append(out, current)
	}
	return out
}

// hardWrap splits a single word into chunks of at most cap columns,
// never splitting a grapheme cluster.
func hardWrap(word string, cap int) []string {
	var chunks []string
	var b strings.Builder
	used := 0
	g := graphemes.FromString(word)
	for g.Next() {
		w := Measure(g.Value())
		if used+w > cap && b.Len() > 0 {
			chunks = append(chunks, b.String())
			b.Reset()
			used = 0
		}
		b.WriteString(g.Value())
		used += w
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}
