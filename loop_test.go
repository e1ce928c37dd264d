package btuin

import (
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/germtb/gox"
)

func newTestLoop(width, height int, root func() Node) *RenderLoop {
	return NewRenderLoop(LoopOptions{
		Width:  width,
		Height: height,
		Output: io.Discard,
		Root:   root,
	})
}

func TestRenderLoop_StaticOneLineFrame(t *testing.T) {
	root := NewBlock("root")
	root.AppendChild(NewText("hello", "Hello"))
	loop := newTestLoop(80, 24, func() Node { return root })

	out := loop.RenderOnce(false)
	if !strings.Contains(out, "\x1b[1;1H") {
		t.Errorf("expected home cursor move, got %q", out)
	}
	if !strings.Contains(out, "Hello") {
		t.Errorf("expected literal Hello, got %q", out)
	}
	if !strings.HasSuffix(out, "\x1b[0m") {
		t.Errorf("expected trailing reset, got %q", out)
	}

	if second := loop.RenderOnce(false); second != "" {
		t.Errorf("unchanged frame must render to empty, got %q", second)
	}
}

func TestRenderLoop_ContentChangeUpdate(t *testing.T) {
	root := NewBlock("root")
	label := NewText("label", "count: 0")
	label.Style().SetWidth(20)
	label.Style().SetHeight(1)
	root.AppendChild(label)
	loop := newTestLoop(40, 5, func() Node { return root })

	loop.RenderOnce(false)
	label.SetContent("count: 1")

	out := loop.RenderOnce(false)
	if out == "" {
		t.Fatal("content change must produce output")
	}
	if !strings.Contains(out, "1") {
		t.Errorf("expected updated digit, got %q", out)
	}
}

func TestRenderLoop_DirtyRectPathOnRenderOnlyChange(t *testing.T) {
	root := NewBlock("root")
	a := NewText("a", "aaaa")
	a.Style().SetWidth(4)
	a.Style().SetHeight(1)
	b := NewText("b", "bbbb")
	b.Style().SetWidth(4)
	b.Style().SetHeight(1)
	root.AppendChild(a)
	root.AppendChild(b)
	loop := newTestLoop(20, 5, func() Node { return root })

	loop.RenderOnce(false)

	// A render-only change on one node repaints only its rectangle.
	a.Style().SetForeground("red")
	out := loop.RenderOnce(false)
	if out == "" {
		t.Fatal("color change must produce output")
	}
	if strings.Contains(out, "b") {
		t.Errorf("untouched sibling must not be repainted, got %q", out)
	}
}

func TestRenderLoop_ResizeForcesFullRedraw(t *testing.T) {
	size := [2]int{5, 2}
	root := NewBlock("root")
	text := NewText("t", "ab")
	root.AppendChild(text)
	loop := NewRenderLoop(LoopOptions{
		Output:   io.Discard,
		SizeFunc: func() (int, int) { return size[0], size[1] },
		Root:     func() Node { return root },
	})

	loop.RenderOnce(false)

	size = [2]int{5, 3}
	out := loop.RenderOnce(false)
	if out == "" {
		t.Fatal("resize must force a redraw")
	}
	if !strings.Contains(out, "ab") {
		t.Errorf("content must be repainted, got %q", out)
	}
	if !strings.Contains(out, "\x1b[3;1H") {
		t.Errorf("new row must be painted, got %q", out)
	}
	if strings.Contains(out, "\x1b[3;5H") {
		t.Errorf("bottom-right cell must be avoided, got %q", out)
	}
}

// buildScrollTree builds a 24-row layout: 2 header rows, a 20-row
// scroll-region band, 2 footer rows, with keyed items in the band.
func buildScrollTree(first, count int) (*Block, *Block) {
	root := NewBlock("root")
	hdr := NewBlock("hdr")
	hdr.Style().SetHeight(2)
	log := NewBlock("log")
	log.Style().SetHeight(20)
	log.Style().SetScrollRegion(true)
	ftr := NewBlock("ftr")
	ftr.Style().SetHeight(2)

	items := make([]Node, 0, count)
	for i := first; i < first+count; i++ {
		item := NewText("item-"+strconv.Itoa(i), "item number "+strconv.Itoa(i))
		item.Style().SetHeight(1)
		items = append(items, item)
	}
	log.SetChildren(items)

	root.SetChildren([]Node{hdr, log, ftr})
	return root, log
}

func TestRenderLoop_ScrollAcceleration(t *testing.T) {
	root, log := buildScrollTree(0, 10)
	loop := newTestLoop(20, 24, func() Node { return root })
	loop.RenderOnce(false)

	// Drop the first item and append a new one: every surviving item
	// moves up one row.
	items := make([]Node, 0, 10)
	for i := 1; i <= 10; i++ {
		item := NewText("item-"+strconv.Itoa(i), "item number "+strconv.Itoa(i))
		item.Style().SetHeight(1)
		items = append(items, item)
	}
	log.SetChildren(items)

	out := loop.RenderOnce(false)
	prefix := "\x1b[0m" + "\x1b[3;22r" + "\x1b[3;1H" + "\x1b[1S" + "\x1b[r"
	if !strings.HasPrefix(out, prefix) {
		t.Fatalf("expected scroll preamble %q, got %q", prefix, out)
	}
	// The band itself is carried by the scroll; only the new item's row
	// needs cells.
	body := out[len(prefix):]
	if strings.Count(body, "item number") > 1 {
		t.Errorf("scroll path should repaint at most the entering row, got %q", body)
	}
}

func TestRenderLoop_ScrollFastPathDisabledByEnv(t *testing.T) {
	t.Setenv("BTUIN_DISABLE_SCROLL_FASTPATH", "1")
	t.Setenv("BTUIN_DISABLE_DECSTBM", "1")

	root, log := buildScrollTree(0, 10)
	loop := newTestLoop(20, 24, func() Node { return root })
	loop.RenderOnce(false)

	items := make([]Node, 0, 10)
	for i := 1; i <= 10; i++ {
		item := NewText("item-"+strconv.Itoa(i), "item number "+strconv.Itoa(i))
		item.Style().SetHeight(1)
		items = append(items, item)
	}
	log.SetChildren(items)

	out := loop.RenderOnce(false)
	if strings.Contains(out, "\x1b[3;22r") {
		t.Errorf("scroll must be disabled by env, got %q", out)
	}
}

func TestRenderLoop_ErrorInViewKeepsPreviousFrame(t *testing.T) {
	fail := false
	root := NewBlock("root")
	text := NewText("t", "ok")
	root.AppendChild(text)

	var phase string
	loop := NewRenderLoop(LoopOptions{
		Width:  10,
		Height: 3,
		Output: io.Discard,
		Root: func() Node {
			if fail {
				panic("view exploded")
			}
			return root
		},
		OnError: func(p string, err error) { phase = p },
	})

	first := loop.RenderOnce(false)
	if first == "" {
		t.Fatal("expected initial output")
	}

	fail = true
	text.SetContent("changed")
	out := loop.RenderOnce(false)
	if out != "" {
		t.Errorf("failed frame must emit nothing, got %q", out)
	}
	if phase != "render" {
		t.Errorf("expected render phase error, got %q", phase)
	}

	fail = false
	retry := loop.RenderOnce(false)
	if !strings.Contains(retry, "changed") {
		t.Errorf("next frame must retry and paint the change, got %q", retry)
	}
}

func TestRenderLoop_ReactiveCoalescing(t *testing.T) {
	count, setCount := CreateSignal(0)
	evaluations := 0

	loop := NewRenderLoop(LoopOptions{
		Width:  20,
		Height: 3,
		Output: io.Discard,
		View: func() gox.VNode {
			evaluations++
			return gox.Element("box", gox.Props{"key": "app"},
				gox.Element("text", gox.Props{"key": "n"},
					gox.Text("n="+strconv.Itoa(count()))),
			)
		},
	})
	loop.Start()

	if evaluations != 1 {
		t.Fatalf("expected 1 initial evaluation, got %d", evaluations)
	}

	// Three successive writes between frames coalesce into one render.
	setCount(1)
	setCount(2)
	setCount(3)
	loop.Flush()

	if evaluations != 2 {
		t.Errorf("expected exactly one coalesced re-render, got %d evaluations", evaluations)
	}
	loop.Flush()
	if evaluations != 2 {
		t.Errorf("flushing with nothing pending must not render, got %d", evaluations)
	}
}

func TestRenderLoop_DisposeStopsReacting(t *testing.T) {
	count, setCount := CreateSignal(0)
	evaluations := 0

	loop := NewRenderLoop(LoopOptions{
		Width:  10,
		Height: 2,
		Output: io.Discard,
		View: func() gox.VNode {
			evaluations++
			_ = count()
			return gox.Element("box", gox.Props{"key": "app"})
		},
	})
	loop.Start()
	loop.Dispose()

	setCount(1)
	loop.Flush()
	if evaluations != 1 {
		t.Errorf("disposed loop must not re-render, got %d", evaluations)
	}
}

func TestRenderLoop_ProfilerRecordsFrames(t *testing.T) {
	profiler := NewProfiler(ProfilerOptions{CountNodes: true})
	root := NewBlock("root")
	root.AppendChild(NewText("t", "x"))

	loop := NewRenderLoop(LoopOptions{
		Width:    10,
		Height:   3,
		Output:   io.Discard,
		Root:     func() Node { return root },
		Profiler: profiler,
	})
	loop.RenderOnce(false)

	last, ok := profiler.Last()
	if !ok {
		t.Fatal("expected a recorded frame")
	}
	if last.Bytes == 0 {
		t.Error("first frame must write bytes")
	}
	if last.NodeCount != 2 {
		t.Errorf("expected 2 nodes, got %d", last.NodeCount)
	}
}

func TestProfiler_FlushJSONPercentiles(t *testing.T) {
	profiler := NewProfiler(ProfilerOptions{})
	for i := 0; i < 10; i++ {
		f := profiler.StartFrame()
		profiler.FinishFrame(f, &DiffStats{CellsChanged: i}, 0)
	}
	var sb strings.Builder
	if err := profiler.FlushJSON(&sb); err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	for _, field := range []string{"\"frames\": 10", "\"p50\"", "\"p95\"", "\"p99\"", "\"max\"", "\"perFrame\""} {
		if !strings.Contains(out, field) {
			t.Errorf("expected %s in summary, got %s", field, out)
		}
	}
}
