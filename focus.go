// Package btuin provides focus management over the retained view tree.
package btuin

import "sync"

// FocusManager tracks which FocusKey currently receives keyboard input.
// The focus ring is rebuilt from the tree each frame, so reconciled
// trees keep focus by key rather than by node identity.
type FocusManager struct {
	mu               sync.RWMutex
	ring             []Node
	current          string
	globalKeyHandler func(key string) bool
	onError          func(phase string, err error)
}

func newFocusManager() *FocusManager {
	return &FocusManager{}
}

// Manager returns the global focus manager.
func Manager() *FocusManager {
	return Global.FocusManager()
}

// SyncTree rebuilds the focus ring from the tree, in document order.
// Focus is preserved by key; a vanished key blurs.
func (m *FocusManager) SyncTree(root Node) {
	var ring []Node
	collectFocusable(root, &ring)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ring = ring

	if m.current == "" {
		return
	}
	if m.lookupLocked(m.current) == nil {
		m.current = ""
	}
	m.applyFocusLocked()
}

func collectFocusable(node Node, out *[]Node) {
	if node == nil {
		return
	}
	if node.FocusKey() != "" {
		*out = append(*out, node)
	}
	if b, ok := node.(*Block); ok {
		for _, c := range b.children {
			collectFocusable(c, out)
		}
	}
}

func (m *FocusManager) lookupLocked(focusKey string) Node {
	for _, n := range m.ring {
		if n.FocusKey() == focusKey {
			return n
		}
	}
	return nil
}

// applyFocusLocked pushes focus state into Input editors.
func (m *FocusManager) applyFocusLocked() {
	for _, n := range m.ring {
		if input, ok := n.(*Input); ok {
			input.editor.SetFocused(n.FocusKey() == m.current && m.current != "")
		}
	}
}

// Current returns the focused FocusKey, or "".
func (m *FocusManager) Current() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Focus moves focus to a key.
func (m *FocusManager) Focus(focusKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == focusKey {
		return
	}
	m.current = focusKey
	m.applyFocusLocked()
}

// Blur clears focus.
func (m *FocusManager) Blur() {
	m.Focus("")
}

// Next focuses the next focusable in document order.
func (m *FocusManager) Next() {
	m.step(1)
}

// Prev focuses the previous focusable in document order.
func (m *FocusManager) Prev() {
	m.step(-1)
}

func (m *FocusManager) step(delta int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.ring) == 0 {
		return
	}
	idx := -1
	for i, n := range m.ring {
		if n.FocusKey() == m.current {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(m.ring)) % len(m.ring)
	m.current = m.ring[idx].FocusKey()
	m.applyFocusLocked()
}

// SetGlobalKeyHandler sets a handler for app-wide shortcuts, called for
// keys no focused element consumes. Returns a cleanup function.
func (m *FocusManager) SetGlobalKeyHandler(handler func(key string) bool) func() {
	m.mu.Lock()
	m.globalKeyHandler = handler
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		m.globalKeyHandler = nil
		m.mu.Unlock()
	}
}

// SetErrorHandler routes key handler panics.
func (m *FocusManager) SetErrorHandler(onError func(phase string, err error)) {
	m.mu.Lock()
	m.onError = onError
	m.mu.Unlock()
}

// HandleKey routes a keypress: Tab navigation first, then the focused
// node (editor, then hooks), then the global handler. Returns true if
// the key was consumed.
func (m *FocusManager) HandleKey(key string) bool {
	if key == Tab {
		m.Next()
		return true
	}
	if key == ShiftTab {
		m.Prev()
		return true
	}

	m.mu.RLock()
	current := m.lookupLocked(m.current)
	handler := m.globalKeyHandler
	onError := m.onError
	m.mu.RUnlock()

	if current != nil {
		if input, ok := current.(*Input); ok && input.editor.Focused() {
			if input.editor.HandleKey(key) {
				return true
			}
		}
		if DispatchKeyHooks(current, key, onError) {
			return true
		}
	}

	if handler != nil {
		return handler(key)
	}
	return false
}

// HandleKey routes a keypress through the global manager.
func HandleKey(key string) bool {
	return Manager().HandleKey(key)
}
