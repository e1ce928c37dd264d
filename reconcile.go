// Package btuin provides the bridge between immediate-mode gox trees
// and the retained view tree. User code composes gox.VNode values each
// frame; reconciliation folds them into retained nodes so unchanged
// frames keep object identity and the render loop can skip work.
package btuin

import (
	"strconv"

	"github.com/germtb/gox"
)

// VNode is an alias for gox.VNode - no wrapper needed.
type VNode = gox.VNode

// Props is an alias for gox.Props.
type Props = gox.Props

// IsTextNode returns true if this is a text node.
func IsTextNode(v gox.VNode) bool {
	s, ok := v.Type.(string)
	return ok && s == gox.TextNodeType
}

// GetTextContent returns the text content if this is a text node.
func GetTextContent(v gox.VNode) (string, bool) {
	if !IsTextNode(v) {
		return "", false
	}
	if content, ok := v.Props["content"].(string); ok {
		return content, true
	}
	if text, ok := v.Props["text"].(string); ok {
		return text, true
	}
	return "", false
}

// TypeString returns the type as a string (for intrinsic elements).
func TypeString(v gox.VNode) (string, bool) {
	s, ok := v.Type.(string)
	return s, ok
}

// Expand recursively expands functional components into their rendered output.
func Expand(v gox.VNode) gox.VNode {
	if _, ok := TypeString(v); ok {
		if len(v.Children) == 0 {
			return v
		}
		expandedChildren := make([]gox.VNode, len(v.Children))
		for i, child := range v.Children {
			expandedChildren[i] = Expand(child)
		}
		return gox.VNode{
			Type:     v.Type,
			Props:    v.Props,
			Children: expandedChildren,
		}
	}

	if comp, ok := v.Type.(gox.Component); ok {
		props := gox.Props{}
		for k, val := range v.Props {
			props[k] = val
		}
		props["children"] = v.Children
		return Expand(comp(props))
	}

	return v
}

// BuildElementTree lowers a gox tree into fresh retained nodes.
// Unkeyed nodes receive stable path-based keys so the layout map and
// positional reconciliation line up. Version bumps are suspended while
// building: only reconciliation into the retained tree reports changes.
func BuildElementTree(v gox.VNode) Node {
	var node Node
	Global.muteVersions(func() {
		node = buildElement(Expand(v), "root")
	})
	return node
}

func buildElement(v gox.VNode, pathKey string) Node {
	key := pathKey
	if k, ok := v.Props["key"].(string); ok && k != "" {
		key = k
	}

	if IsTextNode(v) {
		content, _ := GetTextContent(v)
		node := NewText(key, content)
		applyProps(node, v.Props)
		return node
	}

	typeStr, ok := TypeString(v)
	if !ok {
		return nil
	}

	switch typeStr {
	case "input":
		node := NewInput(key)
		if value, ok := v.Props["value"].(string); ok {
			node.SetValue(value)
		}
		applyProps(node, v.Props)
		return node
	case "text":
		content := collectText(v)
		node := NewText(key, content)
		applyProps(node, v.Props)
		return node
	default:
		// Everything else is a container.
		node := NewBlock(key)
		applyProps(node, v.Props)
		for i, child := range v.Children {
			childKey := key + "." + strconv.Itoa(i)
			if built := buildElement(child, childKey); built != nil {
				node.AppendChild(built)
			}
		}
		return node
	}
}

func collectText(v gox.VNode) string {
	if content, ok := GetTextContent(v); ok {
		return content
	}
	out := ""
	for _, child := range v.Children {
		out += collectText(child)
	}
	return out
}

// applyProps maps gox props onto a retained node's style record.
func applyProps(node Node, props gox.Props) {
	if props == nil {
		return
	}
	s := node.Style()

	if v, ok := props["focusKey"].(string); ok {
		node.SetFocusKey(v)
	}
	if v, ok := props["onKey"].(func(string) bool); ok {
		node.AddKeyHook(v)
	}

	if v, ok := intProp(props, "width"); ok {
		s.SetWidth(v)
	}
	if v, ok := intProp(props, "height"); ok {
		s.SetHeight(v)
	}
	if v, ok := props["widthPct"].(float64); ok {
		s.SetWidthPct(v)
	}
	if v, ok := props["heightPct"].(float64); ok {
		s.SetHeightPct(v)
	}
	if v, ok := intProp(props, "padding"); ok {
		s.SetPadding(SpacingAll(v))
	}
	if v, ok := props["padding"].(Spacing); ok {
		s.SetPadding(v)
	}
	if v, ok := intProp(props, "margin"); ok {
		s.SetMargin(SpacingAll(v))
	}
	if v, ok := props["margin"].(Spacing); ok {
		s.SetMargin(v)
	}
	if v, ok := props["direction"].(string); ok {
		s.SetDirection(Direction(v))
	}
	if v, ok := props["justify"].(string); ok {
		s.SetJustify(Justify(v))
	}
	if v, ok := props["align"].(string); ok {
		s.SetAlign(Align(v))
	}
	if v, ok := intProp(props, "gap"); ok {
		s.SetGap(v)
	}
	if v, ok := intProp(props, "grow"); ok {
		s.SetGrow(v)
	}
	if v, ok := props["position"].(string); ok {
		s.SetPosition(v)
	}
	if v, ok := intProp(props, "x"); ok {
		s.SetX(v)
	}
	if v, ok := intProp(props, "y"); ok {
		s.SetY(v)
	}
	if v, ok := props["stack"].(string); ok {
		s.SetStack(v)
	}
	if v, ok := props["display"].(string); ok {
		s.SetDisplay(v)
	}
	if v, ok := props["scrollRegion"].(bool); ok {
		s.SetScrollRegion(v)
	}

	if style, ok := props["style"].(map[string]any); ok {
		if v, ok := style["color"]; ok {
			s.SetForeground(v)
		}
		if v, ok := style["background"]; ok {
			s.SetBackground(v)
		}
	}
	if v, ok := props["color"]; ok {
		s.SetForeground(v)
	}
	if v, ok := props["background"]; ok {
		s.SetBackground(v)
	}
	if v, ok := props["outline"].(string); ok {
		s.SetOutline(OutlineStyle(v))
	}
	if v, ok := props["outlineColor"]; ok {
		s.SetOutlineForeground(v)
	}
}

func intProp(props gox.Props, key string) (int, bool) {
	v, ok := props[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}

// Reconcile merges next into prev, preserving node identity wherever
// type and key still match. It returns the retained root: prev when the
// roots matched, next otherwise.
func Reconcile(prev, next Node) Node {
	if prev == nil || next == nil {
		return next
	}
	if !nodesMatch(prev, next) {
		return next
	}
	syncNode(prev, next)
	return prev
}

// nodesMatch reports whether two nodes are the same retained identity:
// same concrete type and same key.
func nodesMatch(a, b Node) bool {
	if a == nil || b == nil {
		return false
	}
	switch a.(type) {
	case *Block:
		_, ok := b.(*Block)
		if !ok {
			return false
		}
	case *Text:
		_, ok := b.(*Text)
		if !ok {
			return false
		}
	case *Input:
		_, ok := b.(*Input)
		if !ok {
			return false
		}
	}
	return a.Key() == b.Key()
}

// syncNode copies next's state into prev, field by field, letting the
// style setters decide which versions to bump.
func syncNode(prev, next Node) {
	prev.SetKey(next.Key())
	prev.SetFocusKey(next.FocusKey())
	prev.Style().copyFrom(next.Style())
	prev.base().keyHooks = next.base().keyHooks

	switch p := prev.(type) {
	case *Text:
		p.SetContent(next.(*Text).content)
	case *Input:
		n := next.(*Input)
		if p.editor.Value() != n.editor.Value() {
			p.SetValue(n.editor.Value())
		}
	case *Block:
		reconcileChildren(p, next.(*Block))
	}
}

// reconcileChildren matches children by key. Unkeyed nodes built by
// BuildElementTree carry positional path keys, so among them a key
// match is a match by index.
func reconcileChildren(prev, next *Block) {
	prevByKey := make(map[string]Node, len(prev.children))
	for _, c := range prev.children {
		prevByKey[c.Key()] = c
	}

	merged := make([]Node, 0, len(next.children))
	changed := len(prev.children) != len(next.children)

	for i, nc := range next.children {
		var pc Node
		if existing, ok := prevByKey[nc.Key()]; ok {
			pc = existing
		}
		if pc != nil && nodesMatch(pc, nc) {
			syncNode(pc, nc)
			merged = append(merged, pc)
			if i >= len(prev.children) || prev.children[i] != pc {
				changed = true
			}
		} else {
			merged = append(merged, nc)
			changed = true
		}
	}

	prev.children = merged
	if changed {
		Global.bumpLayoutVersion()
	}
}
