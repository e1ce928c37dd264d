// Package btuin provides the editing state behind Input nodes.
package btuin

import (
	"strings"
	"unicode"
)

// InputEditor holds an editable line of text. The cursor is a cluster
// index; columns are derived from display widths so CJK and emoji move
// the cursor by two columns.
type InputEditor struct {
	value    string
	cursor   int // grapheme cluster index
	focused  bool
	mask     rune
	onChange func()
}

// NewInputEditor creates an editor with an initial value, cursor at end.
func NewInputEditor(initial string) *InputEditor {
	ed := &InputEditor{value: initial}
	ed.cursor = len(Segment(initial))
	return ed
}

// SetMask sets a mask character for password fields (0 disables).
func (e *InputEditor) SetMask(mask rune) { e.mask = mask }

func (e *InputEditor) notify() {
	if e.onChange != nil {
		e.onChange()
	}
}

// Value returns the raw value.
func (e *InputEditor) Value() string { return e.value }

// SetValue replaces the value and clamps the cursor.
func (e *InputEditor) SetValue(value string) {
	e.value = value
	if n := len(Segment(value)); e.cursor > n {
		e.cursor = n
	}
	e.notify()
}

// DisplayValue returns the value as shown, masked if configured.
func (e *InputEditor) DisplayValue() string {
	if e.mask == 0 {
		return e.value
	}
	return strings.Repeat(string(e.mask), len(Segment(e.value)))
}

// Focused reports focus state.
func (e *InputEditor) Focused() bool { return e.focused }

// SetFocused updates focus state.
func (e *InputEditor) SetFocused(focused bool) {
	if e.focused == focused {
		return
	}
	e.focused = focused
	e.notify()
}

// Cursor returns the cursor's cluster index.
func (e *InputEditor) Cursor() int { return e.cursor }

// CursorColumn returns the cursor's display column.
func (e *InputEditor) CursorColumn() int {
	col := 0
	for i, cluster := range Segment(e.DisplayValue()) {
		if i >= e.cursor {
			break
		}
		col += Measure(cluster)
	}
	return col
}

// Insert inserts text at the cursor.
func (e *InputEditor) Insert(text string) {
	clusters := Segment(e.value)
	before := strings.Join(clusters[:e.cursor], "")
	after := strings.Join(clusters[e.cursor:], "")
	e.value = before + text + after
	e.cursor += len(Segment(text))
	e.notify()
}

// DeleteBackward removes the cluster before the cursor.
func (e *InputEditor) DeleteBackward() {
	if e.cursor == 0 {
		return
	}
	clusters := Segment(e.value)
	e.value = strings.Join(clusters[:e.cursor-1], "") + strings.Join(clusters[e.cursor:], "")
	e.cursor--
	e.notify()
}

// DeleteForward removes the cluster at the cursor.
func (e *InputEditor) DeleteForward() {
	clusters := Segment(e.value)
	if e.cursor >= len(clusters) {
		return
	}
	e.value = strings.Join(clusters[:e.cursor], "") + strings.Join(clusters[e.cursor+1:], "")
	e.notify()
}

// MoveLeft moves the cursor one cluster left.
func (e *InputEditor) MoveLeft() {
	if e.cursor > 0 {
		e.cursor--
		e.notify()
	}
}

// MoveRight moves the cursor one cluster right.
func (e *InputEditor) MoveRight() {
	if e.cursor < len(Segment(e.value)) {
		e.cursor++
		e.notify()
	}
}

// MoveHome moves the cursor to the start.
func (e *InputEditor) MoveHome() {
	if e.cursor != 0 {
		e.cursor = 0
		e.notify()
	}
}

// MoveEnd moves the cursor past the last cluster.
func (e *InputEditor) MoveEnd() {
	if n := len(Segment(e.value)); e.cursor != n {
		e.cursor = n
		e.notify()
	}
}

// MoveWordLeft moves to the start of the previous word.
func (e *InputEditor) MoveWordLeft() {
	clusters := Segment(e.value)
	i := e.cursor
	for i > 0 && isSpaceCluster(clusters[i-1]) {
		i--
	}
	for i > 0 && !isSpaceCluster(clusters[i-1]) {
		i--
	}
	if i != e.cursor {
		e.cursor = i
		e.notify()
	}
}

// MoveWordRight moves past the end of the next word.
func (e *InputEditor) MoveWordRight() {
	clusters := Segment(e.value)
	i := e.cursor
	for i < len(clusters) && isSpaceCluster(clusters[i]) {
		i++
	}
	for i < len(clusters) && !isSpaceCluster(clusters[i]) {
		i++
	}
	if i != e.cursor {
		e.cursor = i
		e.notify()
	}
}

// DeleteWordBackward removes the word before the cursor.
func (e *InputEditor) DeleteWordBackward() {
	clusters := Segment(e.value)
	i := e.cursor
	for i > 0 && isSpaceCluster(clusters[i-1]) {
		i--
	}
	for i > 0 && !isSpaceCluster(clusters[i-1]) {
		i--
	}
	if i == e.cursor {
		return
	}
	e.value = strings.Join(clusters[:i], "") + strings.Join(clusters[e.cursor:], "")
	e.cursor = i
	e.notify()
}

func isSpaceCluster(cluster string) bool {
	for _, r := range cluster {
		return unicode.IsSpace(r)
	}
	return false
}

// HandleKey applies a keypress to the editor. Returns true when the key
// was consumed.
func (e *InputEditor) HandleKey(key string) bool {
	switch key {
	case Left:
		e.MoveLeft()
	case Right:
		e.MoveRight()
	case Home, HomeAlt, CtrlA:
		e.MoveHome()
	case End, EndAlt, CtrlE:
		e.MoveEnd()
	case AltLeft, AltLeftCSI:
		e.MoveWordLeft()
	case AltRight, AltRightCSI:
		e.MoveWordRight()
	case Backspace, BackspaceCtrl:
		e.DeleteBackward()
	case AltBackspace, CtrlW:
		e.DeleteWordBackward()
	case Delete:
		e.DeleteForward()
	case CtrlU:
		e.SetValue("")
		e.cursor = 0
	default:
		if isPrintableKey(key) {
			e.Insert(key)
			return true
		}
		return false
	}
	return true
}

// isPrintableKey reports whether key is plain text rather than a
// control or escape sequence.
func isPrintableKey(key string) bool {
	if key == "" || strings.HasPrefix(key, ESC) {
		return false
	}
	for _, r := range key {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}
	return true
}
