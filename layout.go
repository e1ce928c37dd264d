// Package btuin provides the flexbox layout engine for the view tree.
// The renderer consumes it through one call: ComputeLayout takes the
// root node and a container size and returns per-key rectangles
// relative to each node's parent.
package btuin

import "strings"

// Direction specifies the main axis for flex layout.
type Direction string

const (
	Row    Direction = "row"
	Column Direction = "column"
)

// Justify specifies alignment along the main axis.
type Justify string

const (
	JustifyStart        Justify = "start"
	JustifyCenter       Justify = "center"
	JustifyEnd          Justify = "end"
	JustifySpaceBetween Justify = "space-between"
	JustifySpaceAround  Justify = "space-around"
)

// Align specifies alignment along the cross axis.
type Align string

const (
	AlignStart   Align = "start"
	AlignCenter  Align = "center"
	AlignEnd     Align = "end"
	AlignStretch Align = "stretch"
)

// Spacing represents padding or margin on all sides.
type Spacing struct {
	Top    int
	Right  int
	Bottom int
	Left   int
}

// SpacingAll returns uniform spacing.
func SpacingAll(n int) Spacing {
	return Spacing{Top: n, Right: n, Bottom: n, Left: n}
}

// ComputedLayout maps node keys to rectangles relative to the parent
// rectangle. Nodes absent from the map are not painted.
type ComputedLayout map[string]Rect

// ComputeLayout lays out the tree for a container of the given size.
// Percentage dimensions are resolved against the containing rectangle
// before flex distribution.
func ComputeLayout(root Node, width, height int) ComputedLayout {
	layout := make(ComputedLayout)
	if root == nil {
		return layout
	}
	w, h := resolveSize(root, width, height)
	layout[root.Key()] = Rect{X: 0, Y: 0, Width: w, Height: h}
	layoutChildren(root, w, h, layout)
	return layout
}

// resolveSize determines a node's own size inside an available box:
// explicit columns win, then percentages, then fill (blocks) or
// intrinsic content size (text and input).
func resolveSize(n Node, availW, availH int) (int, int) {
	s := n.Style()

	w := s.width
	if w == Auto && s.widthPct > 0 {
		w = int(float64(availW) * s.widthPct / 100)
	}
	h := s.height
	if h == Auto && s.heightPct > 0 {
		h = int(float64(availH) * s.heightPct / 100)
	}

	mw, mh := measureNode(n)
	if w == Auto {
		if _, ok := n.(*Block); ok {
			w = availW - s.margin.Left - s.margin.Right
			if w < 0 {
				w = mw
			}
		} else {
			w = min(mw, availW)
		}
	}
	if h == Auto {
		if _, ok := n.(*Block); ok {
			h = availH - s.margin.Top - s.margin.Bottom
			if h < 0 {
				h = mh
			}
		} else {
			h = mh
		}
	}
	return w, h
}

// measureNode measures the natural size of a node before flex
// distribution.
func measureNode(n Node) (width, height int) {
	s := n.Style()
	if s.display == "none" {
		return 0, 0
	}

	switch v := n.(type) {
	case *Text:
		lines := strings.Split(v.content, "\n")
		maxWidth := 0
		for _, line := range lines {
			// Embedded SGR escapes take no columns.
			if w := MeasureText(StripAnsi(line)); w > maxWidth {
				maxWidth = w
			}
		}
		return applyExplicit(s, maxWidth, len(lines))
	case *Input:
		return applyExplicit(s, MeasureText(v.editor.DisplayValue())+1, 1)
	case *Block:
		contentW, contentH := 0, 0
		children := relativeChildren(v)
		isRow := s.direction == Row
		for i, c := range children {
			cw, ch := measureNode(c)
			cm := c.Style().margin
			cw += cm.Left + cm.Right
			ch += cm.Top + cm.Bottom
			if s.stack == "z" {
				contentW = max(contentW, cw)
				contentH = max(contentH, ch)
				continue
			}
			if isRow {
				contentW += cw
				if i > 0 {
					contentW += s.gap
				}
				contentH = max(contentH, ch)
			} else {
				contentH += ch
				if i > 0 {
					contentH += s.gap
				}
				contentW = max(contentW, cw)
			}
		}
		return applyExplicit(s,
			contentW+s.padding.Left+s.padding.Right,
			contentH+s.padding.Top+s.padding.Bottom)
	}
	return 0, 0
}

func applyExplicit(s *Style, w, h int) (int, int) {
	if s.width != Auto {
		w = s.width
	}
	if s.height != Auto {
		h = s.height
	}
	return w, h
}

// layoutChildren positions the children of n inside its own rectangle
// of the given size, writing relative rects into layout.
func layoutChildren(n Node, width, height int, layout ComputedLayout) {
	block, ok := n.(*Block)
	if !ok {
		return
	}
	s := block.Style()

	innerX := s.padding.Left
	innerY := s.padding.Top
	innerW := width - s.padding.Left - s.padding.Right
	innerH := height - s.padding.Top - s.padding.Bottom

	// Z-stacks and absolute children are positioned directly.
	for _, c := range absoluteChildren(block) {
		cs := c.Style()
		cw, ch := resolveSize(c, innerW, innerH)
		layout[c.Key()] = Rect{X: cs.x, Y: cs.y, Width: cw, Height: ch}
		layoutChildren(c, cw, ch, layout)
	}

	children := relativeChildren(block)
	if len(children) == 0 {
		return
	}

	if s.stack == "z" {
		for _, c := range children {
			cw, ch := resolveSize(c, innerW, innerH)
			layout[c.Key()] = Rect{X: innerX, Y: innerY, Width: cw, Height: ch}
			layoutChildren(c, cw, ch, layout)
		}
		return
	}

	layoutFlexChildren(children, innerX, innerY, innerW, innerH,
		s.direction, s.justify, s.align, s.gap, layout)
}

type childMeasurement struct {
	node   Node
	width  int
	height int
}

func layoutFlexChildren(children []Node, ctxX, ctxY, ctxW, ctxH int,
	direction Direction, justify Justify, align Align, gap int,
	layout ComputedLayout) {

	isRow := direction == Row

	measured := make([]childMeasurement, len(children))
	for i, c := range children {
		cs := c.Style()
		cw, ch := measureNode(c)
		if cs.width == Auto && cs.widthPct > 0 {
			cw = int(float64(ctxW) * cs.widthPct / 100)
		}
		if cs.height == Auto && cs.heightPct > 0 {
			ch = int(float64(ctxH) * cs.heightPct / 100)
		}
		measured[i] = childMeasurement{node: c, width: cw, height: ch}
	}

	// Total size along the main axis, margins and gaps included.
	totalMainSize := 0
	for i, m := range measured {
		margin := m.node.Style().margin
		if isRow {
			totalMainSize += margin.Left + margin.Right + m.width
		} else {
			totalMainSize += margin.Top + margin.Bottom + m.height
		}
		if i > 0 {
			totalMainSize += gap
		}
	}

	availableMain := ctxW
	availableCross := ctxH
	if !isRow {
		availableMain = ctxH
		availableCross = ctxW
	}

	// Children with an explicit main-axis size don't participate in grow.
	totalGrow := 0
	growValues := make([]int, len(measured))
	for i, m := range measured {
		cs := m.node.Style()
		grow := cs.grow
		if isRow && cs.width != Auto {
			grow = 0
		}
		if !isRow && cs.height != Auto {
			grow = 0
		}
		growValues[i] = grow
		totalGrow += grow
	}

	extraSpace := 0
	if totalGrow > 0 && availableMain > totalMainSize {
		extraSpace = availableMain - totalMainSize
	}

	// Pre-calculate grow shares with remainder distribution so no
	// column is lost to rounding.
	growShares := make([]int, len(measured))
	if totalGrow > 0 && extraSpace > 0 {
		remaining := extraSpace
		for i := range measured {
			if growValues[i] > 0 {
				share := (extraSpace * growValues[i]) / totalGrow
				growShares[i] = share
				remaining -= share
			}
		}
		for i := range measured {
			if remaining <= 0 {
				break
			}
			if growValues[i] > 0 {
				growShares[i]++
				remaining--
			}
		}
	}

	mainPos := 0
	extraGap := 0
	switch justify {
	case JustifyStart:
		mainPos = 0
	case JustifyCenter:
		mainPos = max(0, (availableMain-totalMainSize)/2)
	case JustifyEnd:
		mainPos = max(0, availableMain-totalMainSize)
	case JustifySpaceBetween:
		if len(measured) > 1 {
			extraGap = max(0, (availableMain-totalMainSize+gap*(len(measured)-1))/(len(measured)-1))
		}
	case JustifySpaceAround:
		if len(measured) > 0 {
			totalSpace := availableMain - totalMainSize + gap*(len(measured)-1)
			extraGap = totalSpace / len(measured)
			mainPos = extraGap / 2
		}
	}

	for i, m := range measured {
		margin := m.node.Style().margin
		var childMainSize, childCrossSize int
		var mainMarginBefore, mainMarginAfter int

		if isRow {
			childMainSize = m.width
			childCrossSize = m.height
			mainMarginBefore = margin.Left
			mainMarginAfter = margin.Right
		} else {
			childMainSize = m.height
			childCrossSize = m.width
			mainMarginBefore = margin.Top
			mainMarginAfter = margin.Bottom
		}

		childMainSize += growShares[i]

		cs := m.node.Style()
		explicitCross := (isRow && (cs.height != Auto || cs.heightPct > 0)) ||
			(!isRow && (cs.width != Auto || cs.widthPct > 0))

		crossPos := 0
		actualCrossSize := childCrossSize
		switch align {
		case AlignStart:
			crossPos = 0
		case AlignCenter:
			crossPos = max(0, (availableCross-childCrossSize)/2)
		case AlignEnd:
			crossPos = max(0, availableCross-childCrossSize)
		default:
			// CSS flex default: stretch blocks to fill the cross axis,
			// unless the child fixed its own cross size; leaf nodes
			// keep their intrinsic size.
			if _, isBlock := m.node.(*Block); isBlock && !explicitCross {
				actualCrossSize = availableCross
			}
		}

		var childX, childY, childW, childH int
		if isRow {
			childX = ctxX + mainPos + mainMarginBefore
			childY = ctxY + crossPos + margin.Top
			childW = childMainSize
			childH = actualCrossSize
		} else {
			childX = ctxX + crossPos + margin.Left
			childY = ctxY + mainPos + mainMarginBefore
			childW = actualCrossSize
			childH = childMainSize
		}

		if m.node.Style().display != "none" {
			layout[m.node.Key()] = Rect{X: childX, Y: childY, Width: childW, Height: childH}
			layoutChildren(m.node, childW, childH, layout)
		}

		effectiveGap := gap
		if justify == JustifySpaceBetween || justify == JustifySpaceAround {
			effectiveGap = extraGap
		}
		mainPos += mainMarginBefore + childMainSize + mainMarginAfter + effectiveGap
	}
}

func relativeChildren(b *Block) []Node {
	var out []Node
	for _, c := range b.children {
		cs := c.Style()
		if cs.display == "none" || cs.position == "absolute" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func absoluteChildren(b *Block) []Node {
	var out []Node
	for _, c := range b.children {
		cs := c.Style()
		if cs.display == "none" {
			continue
		}
		if cs.position == "absolute" {
			out = append(out, c)
		}
	}
	return out
}
