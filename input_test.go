package btuin

import "testing"

func TestInputEditor_InsertAndValue(t *testing.T) {
	ed := NewInputEditor("")
	ed.Insert("he")
	ed.Insert("y")
	if ed.Value() != "hey" {
		t.Errorf("expected hey, got %q", ed.Value())
	}
	if ed.Cursor() != 3 {
		t.Errorf("expected cursor 3, got %d", ed.Cursor())
	}
}

func TestInputEditor_InsertAtCursor(t *testing.T) {
	ed := NewInputEditor("ac")
	ed.MoveLeft()
	ed.Insert("b")
	if ed.Value() != "abc" {
		t.Errorf("expected abc, got %q", ed.Value())
	}
}

func TestInputEditor_DeleteBackward(t *testing.T) {
	ed := NewInputEditor("ab")
	ed.DeleteBackward()
	if ed.Value() != "a" || ed.Cursor() != 1 {
		t.Errorf("got %q cursor %d", ed.Value(), ed.Cursor())
	}
	ed.DeleteBackward()
	ed.DeleteBackward() // at start: no-op
	if ed.Value() != "" {
		t.Errorf("got %q", ed.Value())
	}
}

func TestInputEditor_GraphemeAwareDelete(t *testing.T) {
	ed := NewInputEditor("aé") // e + combining acute is two code points
	ed.DeleteBackward()
	if ed.Value() != "a" {
		t.Errorf("combined cluster must delete atomically, got %q", ed.Value())
	}
}

func TestInputEditor_CursorColumnCountsWideGlyphs(t *testing.T) {
	ed := NewInputEditor("餅a")
	ed.MoveHome()
	ed.MoveRight()
	if ed.CursorColumn() != 2 {
		t.Errorf("cursor after a wide glyph sits at column 2, got %d", ed.CursorColumn())
	}
}

func TestInputEditor_WordMovement(t *testing.T) {
	ed := NewInputEditor("one two three")
	ed.MoveWordLeft()
	if ed.Cursor() != 8 {
		t.Errorf("expected cursor at start of three, got %d", ed.Cursor())
	}
	ed.MoveWordLeft()
	if ed.Cursor() != 4 {
		t.Errorf("expected cursor at start of two, got %d", ed.Cursor())
	}
	ed.MoveWordRight()
	if ed.Cursor() != 7 {
		t.Errorf("expected cursor after two, got %d", ed.Cursor())
	}
}

func TestInputEditor_DeleteWordBackward(t *testing.T) {
	ed := NewInputEditor("one two")
	ed.DeleteWordBackward()
	if ed.Value() != "one " {
		t.Errorf("got %q", ed.Value())
	}
}

func TestInputEditor_Mask(t *testing.T) {
	ed := NewInputEditor("secret")
	ed.SetMask('*')
	if ed.DisplayValue() != "******" {
		t.Errorf("got %q", ed.DisplayValue())
	}
	if ed.Value() != "secret" {
		t.Errorf("raw value must survive masking, got %q", ed.Value())
	}
}

func TestInputEditor_HandleKeyEditingKeys(t *testing.T) {
	ed := NewInputEditor("")
	if !ed.HandleKey("h") || !ed.HandleKey("i") {
		t.Fatal("printable keys must be consumed")
	}
	ed.HandleKey(Backspace)
	if ed.Value() != "h" {
		t.Errorf("got %q", ed.Value())
	}
	if ed.HandleKey("\x1b[Z") {
		t.Error("unknown control sequences must bubble")
	}
	ed.HandleKey(CtrlU)
	if ed.Value() != "" {
		t.Errorf("CtrlU must clear, got %q", ed.Value())
	}
}

func TestDispatchKeyHooks_PanicIsolated(t *testing.T) {
	node := NewText("t", "x")
	node.AddKeyHook(func(key string) bool { panic("hook failed") })
	consumed := false
	node.AddKeyHook(func(key string) bool { consumed = true; return true })

	var phase string
	got := DispatchKeyHooks(node, "a", func(p string, err error) { phase = p })
	if !got || !consumed {
		t.Error("dispatch must continue past a panicking hook")
	}
	if phase != "key" {
		t.Errorf("expected key phase, got %q", phase)
	}
}

func TestFocusManager_TabCycles(t *testing.T) {
	Reset()
	root := NewBlock("root")
	first := NewInput("a")
	first.SetFocusKey("first")
	second := NewInput("b")
	second.SetFocusKey("second")
	root.AppendChild(first)
	root.AppendChild(second)

	m := Manager()
	m.SyncTree(root)

	m.HandleKey(Tab)
	if m.Current() != "first" {
		t.Errorf("expected first, got %q", m.Current())
	}
	m.HandleKey(Tab)
	if m.Current() != "second" {
		t.Errorf("expected second, got %q", m.Current())
	}
	m.HandleKey(Tab)
	if m.Current() != "first" {
		t.Errorf("expected wraparound to first, got %q", m.Current())
	}
	m.HandleKey(ShiftTab)
	if m.Current() != "second" {
		t.Errorf("expected second, got %q", m.Current())
	}
}

func TestFocusManager_RoutesKeysToFocusedInput(t *testing.T) {
	Reset()
	root := NewBlock("root")
	field := NewInput("f")
	field.SetFocusKey("field")
	root.AppendChild(field)

	m := Manager()
	m.SyncTree(root)
	m.Focus("field")

	if !field.Editor().Focused() {
		t.Fatal("focused input editor must know")
	}
	m.HandleKey("x")
	if field.Value() != "x" {
		t.Errorf("expected x, got %q", field.Value())
	}
}

func TestFocusManager_VanishedKeyBlurs(t *testing.T) {
	Reset()
	root := NewBlock("root")
	field := NewInput("f")
	field.SetFocusKey("field")
	root.AppendChild(field)

	m := Manager()
	m.SyncTree(root)
	m.Focus("field")

	m.SyncTree(NewBlock("empty"))
	if m.Current() != "" {
		t.Errorf("focus must clear when the key vanishes, got %q", m.Current())
	}
}
