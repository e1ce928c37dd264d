package btuin

import "testing"

func TestComputeLayout_RootFillsContainer(t *testing.T) {
	root := NewBlock("root")
	layout := ComputeLayout(root, 80, 24)
	r := layout["root"]
	if r != (Rect{X: 0, Y: 0, Width: 80, Height: 24}) {
		t.Errorf("got %+v", r)
	}
}

func TestComputeLayout_TextIntrinsicSize(t *testing.T) {
	root := NewBlock("root")
	text := NewText("t", "hello")
	root.AppendChild(text)

	layout := ComputeLayout(root, 80, 24)
	r := layout["t"]
	if r.Width != 5 || r.Height != 1 {
		t.Errorf("expected 5x1, got %+v", r)
	}
}

func TestComputeLayout_WideTextMeasuredByColumns(t *testing.T) {
	root := NewBlock("root")
	root.AppendChild(NewText("t", "餅餅"))
	layout := ComputeLayout(root, 80, 24)
	if layout["t"].Width != 4 {
		t.Errorf("CJK text must measure 4 columns, got %d", layout["t"].Width)
	}
}

func TestComputeLayout_ColumnStacking(t *testing.T) {
	root := NewBlock("root")
	root.AppendChild(NewText("a", "aa"))
	root.AppendChild(NewText("b", "bb"))

	layout := ComputeLayout(root, 10, 10)
	if layout["a"].Y != 0 || layout["b"].Y != 1 {
		t.Errorf("expected stacked rows, got a=%+v b=%+v", layout["a"], layout["b"])
	}
}

func TestComputeLayout_RowDirectionWithGap(t *testing.T) {
	root := NewBlock("root")
	root.Style().SetDirection(Row)
	root.Style().SetGap(2)
	root.AppendChild(NewText("a", "aa"))
	root.AppendChild(NewText("b", "bb"))

	layout := ComputeLayout(root, 20, 5)
	if layout["a"].X != 0 {
		t.Errorf("a at %+v", layout["a"])
	}
	if layout["b"].X != 4 {
		t.Errorf("expected b at x=4 (2 wide + 2 gap), got %+v", layout["b"])
	}
}

func TestComputeLayout_PaddingOffsetsChildren(t *testing.T) {
	root := NewBlock("root")
	root.Style().SetPadding(SpacingAll(2))
	root.AppendChild(NewText("t", "x"))

	layout := ComputeLayout(root, 10, 10)
	if layout["t"].X != 2 || layout["t"].Y != 2 {
		t.Errorf("expected padded origin (2,2), got %+v", layout["t"])
	}
}

func TestComputeLayout_GrowDistributesRemainder(t *testing.T) {
	root := NewBlock("root")
	root.Style().SetDirection(Row)
	a := NewBlock("a")
	a.Style().SetGrow(1)
	b := NewBlock("b")
	b.Style().SetGrow(1)
	c := NewBlock("c")
	c.Style().SetGrow(1)
	root.AppendChild(a)
	root.AppendChild(b)
	root.AppendChild(c)

	layout := ComputeLayout(root, 10, 3)
	total := layout["a"].Width + layout["b"].Width + layout["c"].Width
	if total != 10 {
		t.Errorf("grow must consume all space, got %d", total)
	}
	// Remainder goes to the earliest growing children.
	if layout["a"].Width != 4 || layout["b"].Width != 3 || layout["c"].Width != 3 {
		t.Errorf("expected 4/3/3, got %d/%d/%d",
			layout["a"].Width, layout["b"].Width, layout["c"].Width)
	}
}

func TestComputeLayout_JustifyCenter(t *testing.T) {
	root := NewBlock("root")
	root.Style().SetDirection(Row)
	root.Style().SetJustify(JustifyCenter)
	text := NewText("t", "xx")
	root.AppendChild(text)

	layout := ComputeLayout(root, 10, 3)
	if layout["t"].X != 4 {
		t.Errorf("expected centered at x=4, got %+v", layout["t"])
	}
}

func TestComputeLayout_AlignCenterCrossAxis(t *testing.T) {
	root := NewBlock("root")
	root.Style().SetDirection(Row)
	root.Style().SetAlign(AlignCenter)
	root.AppendChild(NewText("t", "x"))

	layout := ComputeLayout(root, 10, 5)
	if layout["t"].Y != 2 {
		t.Errorf("expected y=2, got %+v", layout["t"])
	}
}

func TestComputeLayout_AbsolutePositioning(t *testing.T) {
	root := NewBlock("root")
	abs := NewBlock("abs")
	abs.Style().SetPosition("absolute")
	abs.Style().SetX(5)
	abs.Style().SetY(3)
	abs.Style().SetWidth(4)
	abs.Style().SetHeight(2)
	root.AppendChild(abs)
	root.AppendChild(NewText("t", "under"))

	layout := ComputeLayout(root, 20, 10)
	if layout["abs"] != (Rect{X: 5, Y: 3, Width: 4, Height: 2}) {
		t.Errorf("got %+v", layout["abs"])
	}
	// The absolute child does not consume flow space.
	if layout["t"].Y != 0 {
		t.Errorf("flow child displaced: %+v", layout["t"])
	}
}

func TestComputeLayout_ZStackOverlaps(t *testing.T) {
	root := NewBlock("root")
	root.Style().SetStack("z")
	a := NewBlock("a")
	a.Style().SetWidth(5)
	a.Style().SetHeight(2)
	b := NewBlock("b")
	b.Style().SetWidth(3)
	b.Style().SetHeight(1)
	root.AppendChild(a)
	root.AppendChild(b)

	layout := ComputeLayout(root, 20, 10)
	if layout["a"].X != layout["b"].X || layout["a"].Y != layout["b"].Y {
		t.Errorf("z-stack children must overlap: a=%+v b=%+v", layout["a"], layout["b"])
	}
}

func TestComputeLayout_PercentResolvedAgainstContainer(t *testing.T) {
	root := NewBlock("root")
	half := NewBlock("half")
	half.Style().SetWidthPct(50)
	half.Style().SetHeight(2)
	root.AppendChild(half)

	layout := ComputeLayout(root, 40, 10)
	if layout["half"].Width != 20 {
		t.Errorf("expected 20, got %d", layout["half"].Width)
	}
}

func TestComputeLayout_DisplayNoneSkipped(t *testing.T) {
	root := NewBlock("root")
	hidden := NewText("h", "x")
	hidden.Style().SetDisplay("none")
	root.AppendChild(hidden)

	layout := ComputeLayout(root, 10, 10)
	if _, ok := layout["h"]; ok {
		t.Error("display:none node must be absent from the layout map")
	}
}

func TestComputeLayout_ExplicitSizeWins(t *testing.T) {
	root := NewBlock("root")
	sized := NewText("s", "a long piece of text")
	sized.Style().SetWidth(4)
	sized.Style().SetHeight(2)
	root.AppendChild(sized)

	layout := ComputeLayout(root, 40, 10)
	if layout["s"].Width != 4 || layout["s"].Height != 2 {
		t.Errorf("got %+v", layout["s"])
	}
}
