// Package btuin provides the element renderer: painting one view tree
// into one buffer given a computed layout.
package btuin

import "strings"

// BorderChars holds the characters for drawing an outline.
type BorderChars struct {
	TopLeft     rune
	TopRight    rune
	BottomLeft  rune
	BottomRight rune
	Horizontal  rune
	Vertical    rune
}

// Border character sets for the outline styles.
var BorderCharSets = map[OutlineStyle]BorderChars{
	OutlineSingle: {
		TopLeft:     '┌',
		TopRight:    '┐',
		BottomLeft:  '└',
		BottomRight: '┘',
		Horizontal:  '─',
		Vertical:    '│',
	},
	OutlineDouble: {
		TopLeft:     '╔',
		TopRight:    '╗',
		BottomLeft:  '╚',
		BottomRight: '╝',
		Horizontal:  '═',
		Vertical:    '║',
	},
}

// renderMargin extends the out-of-buffer early-out so nodes straddling
// an edge still paint their visible part.
const renderMargin = 2

// RenderElement paints node and its children into buf. Layout rects are
// relative to the parent; parentX/parentY accumulate the absolute
// offset. Everything is clipped to clip; out-of-bounds draws never
// wrap, and a wide glyph that would cross the clip edge is skipped
// entirely.
func RenderElement(node Node, buf *Buffer, layout ComputedLayout, parentX, parentY int, clip Rect) {
	if node == nil {
		return
	}
	rel, ok := layout[node.Key()]
	if !ok {
		return
	}

	x := parentX + rel.X
	y := parentY + rel.Y
	rect := Rect{X: x, Y: y, Width: rel.Width, Height: rel.Height}

	if x >= buf.width+renderMargin || y >= buf.height+renderMargin ||
		x+rect.Width < -renderMargin || y+rect.Height < -renderMargin {
		return
	}

	visible := rect.Intersect(clip)
	if visible.Empty() {
		return
	}

	style := node.Style()

	if style.background != "" {
		fillClipped(buf, rect, visible, style.background)
	}

	if style.outline != OutlineNone {
		drawOutline(buf, rect, visible, style.outline, style.outlineFg, style.background)
	}

	switch v := node.(type) {
	case *Text:
		drawTextLines(buf, x, y, v.content, style.foreground, style.background, visible)
	case *Input:
		drawInput(buf, x, y, rect.Width, v, style, visible)
	case *Block:
		childClip := Rect{
			X:      x + style.padding.Left,
			Y:      y + style.padding.Top,
			Width:  rect.Width - style.padding.Left - style.padding.Right,
			Height: rect.Height - style.padding.Top - style.padding.Bottom,
		}.Intersect(visible)
		if childClip.Empty() {
			return
		}
		for _, child := range v.children {
			RenderElement(child, buf, layout, x, y, childClip)
		}
	}
}

func fillClipped(buf *Buffer, rect, clip Rect, bg string) {
	area := rect.Intersect(clip)
	for row := area.Y; row < area.Y+area.Height; row++ {
		for col := area.X; col < area.X+area.Width; col++ {
			buf.SetRune(col, row, ' ', "", bg)
		}
	}
}

func drawOutline(buf *Buffer, rect, clip Rect, style OutlineStyle, fg, bg string) {
	chars, ok := BorderCharSets[style]
	if !ok {
		return
	}
	left := rect.X
	right := rect.X + rect.Width - 1
	top := rect.Y
	bottom := rect.Y + rect.Height - 1

	inClip := func(x, y int) bool {
		return x >= clip.X && x < clip.X+clip.Width && y >= clip.Y && y < clip.Y+clip.Height
	}

	for col := left + 1; col < right; col++ {
		if inClip(col, top) {
			buf.SetRune(col, top, chars.Horizontal, fg, bg)
		}
		if inClip(col, bottom) {
			buf.SetRune(col, bottom, chars.Horizontal, fg, bg)
		}
	}
	for row := top + 1; row < bottom; row++ {
		if inClip(left, row) {
			buf.SetRune(left, row, chars.Vertical, fg, bg)
		}
		if inClip(right, row) {
			buf.SetRune(right, row, chars.Vertical, fg, bg)
		}
	}

	// Corners go last so they overwrite side-segment ends.
	if inClip(left, top) {
		buf.SetRune(left, top, chars.TopLeft, fg, bg)
	}
	if inClip(right, top) {
		buf.SetRune(right, top, chars.TopRight, fg, bg)
	}
	if inClip(left, bottom) {
		buf.SetRune(left, bottom, chars.BottomLeft, fg, bg)
	}
	if inClip(right, bottom) {
		buf.SetRune(right, bottom, chars.BottomRight, fg, bg)
	}
}

// drawTextLines paints multi-line content at (x, y). Lines containing
// SGR escapes are split into styled segments first.
func drawTextLines(buf *Buffer, x, y int, content string, fg, bg string, clip Rect) {
	for i, line := range strings.Split(content, "\n") {
		lineY := y + i
		if lineY < clip.Y || lineY >= clip.Y+clip.Height {
			continue
		}
		if ContainsAnsi(line) {
			drawAnsiLine(buf, x, lineY, line, fg, bg, clip)
			continue
		}
		drawClusters(buf, x, lineY, line, fg, bg, clip)
	}
}

// drawClusters writes one plain line cluster by cluster, honoring the
// clip on both edges. Wide glyphs that would cross the clip boundary
// are skipped whole.
func drawClusters(buf *Buffer, x, y int, line string, fg, bg string, clip Rect) {
	col := x
	for _, cluster := range Segment(line) {
		w := Measure(cluster)
		if w == 0 {
			continue
		}
		if col >= clip.X && col+w <= clip.X+clip.Width {
			buf.Set(col, y, cluster, fg, bg)
		}
		col += w
	}
}

// drawInput paints the editor value with a cursor cell when focused.
func drawInput(buf *Buffer, x, y, width int, node *Input, style *Style, clip Rect) {
	ed := node.editor
	value := ed.DisplayValue()
	fg := style.foreground
	bg := style.background

	// Keep the cursor visible by scrolling horizontally.
	cursorCol := ed.CursorColumn()
	scrollX := 0
	if cursorCol >= width {
		scrollX = cursorCol - width + 1
	}

	col := x
	visualCol := 0
	for _, cluster := range Segment(value) {
		w := Measure(cluster)
		if w == 0 {
			continue
		}
		if visualCol >= scrollX {
			if col >= clip.X && col+w <= clip.X+clip.Width && y >= clip.Y && y < clip.Y+clip.Height {
				buf.Set(col, y, cluster, fg, bg)
			}
			col += w
		}
		visualCol += w
	}

	if ed.Focused() {
		cx := x + cursorCol - scrollX
		if cx >= clip.X && cx < clip.X+clip.Width && y >= clip.Y && y < clip.Y+clip.Height {
			glyph, _, _ := buf.Get(cx, y)
			if glyph == "" {
				glyph = " "
			}
			// Inverse-video cursor: swap to a white background.
			buf.Set(cx, y, glyph, ResolveFg("black"), ResolveBg("white"))
		}
	}
}

// CountNodes returns the number of nodes in the tree, for frame stats.
func CountNodes(node Node) int {
	if node == nil {
		return 0
	}
	count := 1
	if b, ok := node.(*Block); ok {
		for _, c := range b.children {
			count += CountNodes(c)
		}
	}
	return count
}
