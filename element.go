// Package btuin provides the retained view tree: typed Block, Text and
// Input nodes with chainable styling and dirty-version tracking.
package btuin

import "strconv"

// Rect is an integer rectangle in buffer coordinates.
type Rect struct {
	X, Y, Width, Height int
}

func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

func (r Rect) Intersect(other Rect) Rect {
	x1 := max(r.X, other.X)
	y1 := max(r.Y, other.Y)
	x2 := min(r.X+r.Width, other.X+other.Width)
	y2 := min(r.Y+r.Height, other.Y+other.Height)
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// OutlineStyle selects the box-drawing set for a node border.
type OutlineStyle string

const (
	OutlineNone   OutlineStyle = ""
	OutlineSingle OutlineStyle = "single"
	OutlineDouble OutlineStyle = "double"
)

// KeyHook is a per-node keypress handler. Returning true consumes the key.
type KeyHook func(key string) bool

// Auto marks a dimension as content-sized.
const Auto = -1

// Style is the style record carried by every node. All writes go
// through setters: layout-affecting properties bump the process-global
// layout version, render-affecting ones the render version, and writing
// a value already present bumps nothing.
type Style struct {
	// Layout-affecting.
	display   string // "" or "none"
	position  string // "" or "absolute"
	x, y      int    // offsets for absolute positioning
	width     int    // columns, or Auto
	height    int    // rows, or Auto
	widthPct  float64
	heightPct float64
	padding   Spacing
	margin    Spacing
	direction Direction
	grow      int
	gap       int
	justify   Justify
	align     Align
	stack     string // "" or "z"

	// Render-affecting.
	foreground   string // resolved fg token
	background   string // resolved bg token
	outline      OutlineStyle
	outlineFg    string
	scrollRegion bool
}

func defaultStyle() Style {
	return Style{width: Auto, height: Auto, direction: Column, justify: JustifyStart, align: AlignStretch}
}

func (s *Style) layoutWrite(changed bool) {
	if changed {
		Global.bumpLayoutVersion()
	}
}

func (s *Style) renderWrite(changed bool) {
	if changed {
		Global.bumpRenderVersion()
	}
}

// Layout-class setters.

func (s *Style) SetDisplay(v string) { s.layoutWrite(s.display != v); s.display = v }
func (s *Style) SetPosition(v string) {
	s.layoutWrite(s.position != v)
	s.position = v
}
func (s *Style) SetX(v int)              { s.layoutWrite(s.x != v); s.x = v }
func (s *Style) SetY(v int)              { s.layoutWrite(s.y != v); s.y = v }
func (s *Style) SetWidth(v int)          { s.layoutWrite(s.width != v); s.width = v }
func (s *Style) SetHeight(v int)         { s.layoutWrite(s.height != v); s.height = v }
func (s *Style) SetWidthPct(v float64)   { s.layoutWrite(s.widthPct != v); s.widthPct = v }
func (s *Style) SetHeightPct(v float64)  { s.layoutWrite(s.heightPct != v); s.heightPct = v }
func (s *Style) SetPadding(v Spacing)    { s.layoutWrite(s.padding != v); s.padding = v }
func (s *Style) SetMargin(v Spacing)     { s.layoutWrite(s.margin != v); s.margin = v }
func (s *Style) SetDirection(v Direction) {
	s.layoutWrite(s.direction != v)
	s.direction = v
}
func (s *Style) SetGrow(v int)        { s.layoutWrite(s.grow != v); s.grow = v }
func (s *Style) SetGap(v int)         { s.layoutWrite(s.gap != v); s.gap = v }
func (s *Style) SetJustify(v Justify) { s.layoutWrite(s.justify != v); s.justify = v }
func (s *Style) SetAlign(v Align)     { s.layoutWrite(s.align != v); s.align = v }
func (s *Style) SetStack(v string)    { s.layoutWrite(s.stack != v); s.stack = v }

// Render-class setters. Colors are resolved to tokens here, once.

func (s *Style) SetForeground(input any) {
	token := ResolveFg(input)
	s.renderWrite(s.foreground != token)
	s.foreground = token
}

func (s *Style) SetBackground(input any) {
	token := ResolveBg(input)
	s.renderWrite(s.background != token)
	s.background = token
}

func (s *Style) SetOutline(v OutlineStyle) {
	s.renderWrite(s.outline != v)
	s.outline = v
}

func (s *Style) SetOutlineForeground(input any) {
	token := ResolveFg(input)
	s.renderWrite(s.outlineFg != token)
	s.outlineFg = token
}

func (s *Style) SetScrollRegion(v bool) {
	s.renderWrite(s.scrollRegion != v)
	s.scrollRegion = v
}

// Getters.

func (s *Style) Display() string       { return s.display }
func (s *Style) Position() string      { return s.position }
func (s *Style) X() int                { return s.x }
func (s *Style) Y() int                { return s.y }
func (s *Style) Width() int            { return s.width }
func (s *Style) Height() int           { return s.height }
func (s *Style) WidthPct() float64     { return s.widthPct }
func (s *Style) HeightPct() float64    { return s.heightPct }
func (s *Style) Padding() Spacing      { return s.padding }
func (s *Style) Margin() Spacing       { return s.margin }
func (s *Style) Direction() Direction  { return s.direction }
func (s *Style) Grow() int             { return s.grow }
func (s *Style) Gap() int              { return s.gap }
func (s *Style) Justify() Justify      { return s.justify }
func (s *Style) Align() Align          { return s.align }
func (s *Style) Stack() string         { return s.stack }
func (s *Style) Foreground() string    { return s.foreground }
func (s *Style) Background() string    { return s.background }
func (s *Style) Outline() OutlineStyle { return s.outline }
func (s *Style) OutlineFg() string     { return s.outlineFg }
func (s *Style) ScrollRegion() bool    { return s.scrollRegion }

// hasFixedSize reports whether both dimensions are explicitly set, so a
// content change cannot affect layout.
func (s *Style) hasFixedSize() bool {
	return (s.width != Auto || s.widthPct > 0) && (s.height != Auto || s.heightPct > 0)
}

// copyFrom syncs this style from another field by field, bumping the
// appropriate versions only for fields that actually differ.
func (s *Style) copyFrom(other *Style) {
	s.SetDisplay(other.display)
	s.SetPosition(other.position)
	s.SetX(other.x)
	s.SetY(other.y)
	s.SetWidth(other.width)
	s.SetHeight(other.height)
	s.SetWidthPct(other.widthPct)
	s.SetHeightPct(other.heightPct)
	s.SetPadding(other.padding)
	s.SetMargin(other.margin)
	s.SetDirection(other.direction)
	s.SetGrow(other.grow)
	s.SetGap(other.gap)
	s.SetJustify(other.justify)
	s.SetAlign(other.align)
	s.SetStack(other.stack)

	s.renderWrite(s.foreground != other.foreground)
	s.foreground = other.foreground
	s.renderWrite(s.background != other.background)
	s.background = other.background
	s.SetOutline(other.outline)
	s.renderWrite(s.outlineFg != other.outlineFg)
	s.outlineFg = other.outlineFg
	s.SetScrollRegion(other.scrollRegion)
}

// Node is a retained view tree node.
type Node interface {
	Key() string
	SetKey(key string)
	FocusKey() string
	SetFocusKey(key string)
	Style() *Style
	KeyHooks() []KeyHook
	AddKeyHook(hook KeyHook)
	base() *baseNode
}

type baseNode struct {
	key      string
	focusKey string
	style    Style
	keyHooks []KeyHook
}

func (n *baseNode) Key() string     { return n.key }
func (n *baseNode) SetKey(k string) { n.key = k }

func (n *baseNode) FocusKey() string { return n.focusKey }
func (n *baseNode) SetFocusKey(k string) {
	n.focusKey = k
}

func (n *baseNode) Style() *Style      { return &n.style }
func (n *baseNode) KeyHooks() []KeyHook { return n.keyHooks }
func (n *baseNode) AddKeyHook(h KeyHook) {
	n.keyHooks = append(n.keyHooks, h)
}
func (n *baseNode) base() *baseNode { return n }

// Block is a flex container with an ordered child list.
type Block struct {
	baseNode
	children []Node
}

// NewBlock creates a Block node.
func NewBlock(key string) *Block {
	return &Block{baseNode: baseNode{key: key, style: defaultStyle()}}
}

// Children returns the child list.
func (b *Block) Children() []Node { return b.children }

// SetChildren replaces the child list.
func (b *Block) SetChildren(children []Node) {
	b.children = children
	Global.bumpLayoutVersion()
}

// AppendChild adds a child at the end.
func (b *Block) AppendChild(child Node) *Block {
	b.children = append(b.children, child)
	Global.bumpLayoutVersion()
	return b
}

// RemoveChild removes a child by identity.
func (b *Block) RemoveChild(child Node) {
	for i, c := range b.children {
		if c == child {
			b.children = append(b.children[:i], b.children[i+1:]...)
			Global.bumpLayoutVersion()
			return
		}
	}
}

// Text displays a string.
type Text struct {
	baseNode
	content string
}

// NewText creates a Text node.
func NewText(key, content string) *Text {
	return &Text{baseNode: baseNode{key: key, style: defaultStyle()}, content: content}
}

// Content returns the current text.
func (t *Text) Content() string { return t.content }

// SetContent updates the text. A node with fixed width and height only
// repaints; otherwise the intrinsic size changed and layout reruns.
func (t *Text) SetContent(content string) {
	if t.content == content {
		return
	}
	t.content = content
	if t.style.hasFixedSize() {
		Global.bumpRenderVersion()
	} else {
		Global.bumpLayoutVersion()
	}
}

// Input is an editable text field.
type Input struct {
	baseNode
	editor *InputEditor
}

// NewInput creates an Input node with an empty editor.
func NewInput(key string) *Input {
	n := &Input{baseNode: baseNode{key: key, style: defaultStyle()}, editor: NewInputEditor("")}
	n.editor.onChange = func() {
		if n.style.hasFixedSize() {
			Global.bumpRenderVersion()
		} else {
			Global.bumpLayoutVersion()
		}
	}
	return n
}

// Editor returns the node's editing state.
func (n *Input) Editor() *InputEditor { return n.editor }

// Value returns the current input value.
func (n *Input) Value() string { return n.editor.Value() }

// SetValue replaces the input value; same update rules as Text content.
func (n *Input) SetValue(value string) {
	if n.editor.Value() == value {
		return
	}
	n.editor.SetValue(value)
}

// signature captures a node's render-affecting state in a short string,
// used for per-node dirty detection between frames.
func signature(n Node) string {
	s := n.Style()
	sig := s.foreground + "\x00" + s.background + "\x00" + string(s.outline) + "\x00" + s.outlineFg
	if s.scrollRegion {
		sig += "\x00sr"
	}
	switch v := n.(type) {
	case *Text:
		sig += "\x00" + v.content
	case *Input:
		sig += "\x00" + v.editor.DisplayValue() + "\x00" + strconv.Itoa(v.editor.Cursor())
		if v.editor.Focused() {
			sig += "\x00focus"
		}
	}
	return sig
}
