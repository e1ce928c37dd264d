package btuin

import (
	"os"
	"strconv"
	"strings"
	"testing"
)

func TestRenderDiff_IdenticalBuffersEmpty(t *testing.T) {
	b := NewBuffer(10, 4)
	b.WriteString(0, 0, "hello", "", "")
	stats := &DiffStats{}
	if out := RenderDiff(b.Clone(), b, stats, nil); out != "" {
		t.Errorf("expected empty diff, got %q", out)
	}
	if stats.Ops() != 0 {
		t.Errorf("expected zero ops, got %d", stats.Ops())
	}
}

func TestRenderDiff_SingleCellChange(t *testing.T) {
	prev := NewBuffer(10, 4)
	next := prev.Clone()
	next.Set(2, 1, "x", "", "")

	stats := &DiffStats{}
	out := RenderDiff(prev, next, stats, nil)

	if !strings.Contains(out, "\x1b[2;3H") {
		t.Errorf("expected cursor move to row 2 col 3, got %q", out)
	}
	if !strings.Contains(out, "x") {
		t.Errorf("expected glyph, got %q", out)
	}
	if !strings.HasSuffix(out, "\x1b[0m") {
		t.Errorf("expected trailing reset, got %q", out)
	}
	if stats.Ops() == 0 {
		t.Error("non-empty diff must report ops")
	}
}

func TestRenderDiff_ContiguousRunSingleMove(t *testing.T) {
	prev := NewBuffer(80, 24)
	next := prev.Clone()
	next.WriteString(0, 0, "Hello", "", "")

	out := RenderDiff(prev, next, nil, nil)
	if !strings.Contains(out, "\x1b[1;1H") {
		t.Errorf("expected home move, got %q", out)
	}
	if !strings.Contains(out, "Hello") {
		t.Errorf("expected contiguous literal Hello, got %q", out)
	}
}

func TestRenderDiff_ColorChangeTransitions(t *testing.T) {
	prev := NewBuffer(10, 2)
	prev.Set(0, 0, "a", "", "")
	prev.Set(1, 0, "b", "", "")

	next := prev.Clone()
	next.Set(0, 0, "a", "\x1b[31m", "")
	next.Set(1, 0, "b", "\x1b[39m", "")

	out := RenderDiff(prev, next, nil, nil)
	want := "\x1b[1;1H" + "\x1b[31m" + "a" + "\x1b[1;2H" + "\x1b[39m" + "b" + "\x1b[0m"
	if out != want {
		t.Errorf("expected %q, got %q", want, out)
	}
}

func TestRenderDiff_WideGlyphEmitsExactCluster(t *testing.T) {
	prev := NewBuffer(10, 2)
	prev.Set(0, 0, "A", "", "")

	next := NewBuffer(10, 2)
	next.Set(0, 0, "餅", "", "")

	out := RenderDiff(prev, next, nil, nil)
	if !strings.Contains(out, "\x1b[1;1H") {
		t.Errorf("expected cursor move, got %q", out)
	}
	if !strings.Contains(out, "餅") {
		t.Errorf("expected the grapheme, got %q", out)
	}
	if next.WidthAt(0, 0) != 2 || next.WidthAt(1, 0) != 0 {
		t.Error("wide span invariants violated")
	}
}

func TestRenderDiff_BottomRightCellSkipped(t *testing.T) {
	prev := NewBuffer(5, 3)
	next := prev.Clone()
	next.Set(4, 2, "x", "", "")

	if out := RenderDiff(prev, next, nil, nil); out != "" {
		t.Errorf("bottom-right write must not be emitted, got %q", out)
	}
}

func TestRenderDiff_DimensionMismatchForcesFullRedraw(t *testing.T) {
	prev := NewBuffer(5, 2)
	prev.WriteString(0, 0, "ab", "", "")
	next := NewBuffer(5, 3)
	next.WriteString(0, 0, "ab", "", "")

	stats := &DiffStats{}
	out := RenderDiff(prev, next, stats, nil)
	if !stats.FullRedraw {
		t.Error("expected full redraw")
	}
	// Every cell except the bottom-right corner is emitted.
	if stats.CellsChanged != 5*3-1 {
		t.Errorf("expected 14 cells, got %d", stats.CellsChanged)
	}
	if strings.Contains(out, "\x1b[3;5H") {
		t.Errorf("bottom-right cell must be avoided, got %q", out)
	}
}

func TestRenderDiff_ForceFullEmitsEverything(t *testing.T) {
	prev := NewBuffer(4, 2)
	next := prev.Clone()
	stats := &DiffStats{}
	RenderDiff(prev, next, stats, &DiffOptions{ForceFull: true})
	if stats.CellsChanged != 4*2-1 {
		t.Errorf("expected 7 cells, got %d", stats.CellsChanged)
	}
}

// applyAnsi interprets a non-scrolling diff stream onto a buffer acting
// as the terminal, for the idempotence property.
func applyAnsi(t *testing.T, screen *Buffer, ansi string) {
	t.Helper()
	x, y := 0, 0
	fg, bg := "", ""
	i := 0
	for i < len(ansi) {
		if ansi[i] == '\x1b' && i+1 < len(ansi) && ansi[i+1] == '[' {
			start := i
			i += 2
			paramStart := i
			for i < len(ansi) && !(ansi[i] >= 0x40 && ansi[i] <= 0x7e) {
				i++
			}
			if i >= len(ansi) {
				t.Fatalf("truncated escape at %d", start)
			}
			params := ansi[paramStart:i]
			final := ansi[i]
			i++
			switch final {
			case 'H':
				parts := strings.SplitN(params, ";", 2)
				row, _ := strconv.Atoi(parts[0])
				col := 1
				if len(parts) > 1 {
					col, _ = strconv.Atoi(parts[1])
				}
				y, x = row-1, col-1
			case 'm':
				token := ansi[start:i]
				switch {
				case token == "\x1b[0m":
					fg, bg = "", ""
				case token == "\x1b[39m":
					fg = ""
				case token == "\x1b[49m":
					bg = ""
				case strings.HasPrefix(params, "4") || strings.HasPrefix(params, "48;"):
					bg = token
				default:
					fg = token
				}
			default:
				t.Fatalf("unexpected escape %q", ansi[start:i])
			}
			continue
		}
		// A glyph: consume one cluster.
		rest := ansi[i:]
		cluster := FirstCluster(rest)
		screen.Set(x, y, cluster, fg, bg)
		x += Measure(cluster)
		i += len(cluster)
	}
}

func TestRenderDiff_Idempotence(t *testing.T) {
	prev := NewBuffer(8, 4)
	prev.WriteString(0, 0, "hello", "\x1b[32m", "")
	prev.WriteString(0, 2, "old", "", "")

	next := NewBuffer(8, 4)
	next.WriteString(0, 0, "help!", "\x1b[32m", "")
	next.WriteString(1, 1, "餅", "", "\x1b[44m")
	next.WriteString(0, 3, "x", "\x1b[31m", "")

	out := RenderDiff(prev, next, nil, nil)

	screen := prev.Clone()
	applyAnsi(t, screen, out)

	for y := 0; y < next.Height(); y++ {
		for x := 0; x < next.Width(); x++ {
			if y == next.Height()-1 && x == next.Width()-1 {
				continue // bottom-right is never painted
			}
			wantGlyph, wantFg, wantBg := next.Get(x, y)
			gotGlyph, gotFg, gotBg := screen.Get(x, y)
			if wantGlyph != gotGlyph || wantFg != gotFg || wantBg != gotBg {
				t.Errorf("cell (%d,%d): want %q/%q/%q got %q/%q/%q",
					x, y, wantGlyph, wantFg, wantBg, gotGlyph, gotFg, gotBg)
			}
		}
	}
}

func TestRenderDiff_AsciiFastPathMatchesSlowPath(t *testing.T) {
	prev := NewBuffer(10, 3)
	prev.WriteString(0, 0, "aaaa", "", "")
	next := prev.Clone()
	next.WriteString(0, 0, "abca", "", "")
	if !prev.ASCIIOnly() || !next.ASCIIOnly() {
		t.Fatal("expected ascii-only buffers")
	}

	fastOut := RenderDiff(prev, next, nil, nil)

	// Force the slow path by writing a wide glyph far away in copies.
	prev2 := prev.Clone()
	next2 := next.Clone()
	prev2.Set(8, 2, "餅", "", "")
	next2.Set(8, 2, "餅", "", "")
	slowOut := RenderDiff(prev2, next2, nil, nil)

	if fastOut != slowOut {
		t.Errorf("fast %q != slow %q", fastOut, slowOut)
	}
}

func makeScrollBuffers(t *testing.T) (*Buffer, *Buffer) {
	t.Helper()
	prev := NewBuffer(20, 24)
	for i := 0; i < 18; i++ {
		prev.WriteString(0, 2+i, "line "+strconv.Itoa(i), "", "")
	}
	next := NewBuffer(20, 24)
	for i := 1; i < 19; i++ {
		next.WriteString(0, 2+i-1, "line "+strconv.Itoa(i), "", "")
	}
	return prev, next
}

func TestRenderDiff_ScrollFastPath(t *testing.T) {
	prev, next := makeScrollBuffers(t)

	stats := &DiffStats{}
	hint := &ScrollHint{Top: 2, Bottom: 21}
	out := RenderDiff(prev, next, stats, &DiffOptions{ScrollHint: hint})

	if !stats.ScrollApplied {
		t.Fatalf("expected scroll acceleration, got %q", out)
	}
	prefix := "\x1b[0m" + "\x1b[3;22r" + "\x1b[3;1H" + "\x1b[1S" + "\x1b[r"
	if !strings.HasPrefix(out, prefix) {
		t.Errorf("expected DECSTBM preamble %q, got %q", prefix, out)
	}
	// Only the exposed strip needs a repaint, far fewer cells than the band.
	if stats.CellsChanged > 40 {
		t.Errorf("scroll path should emit few cells, emitted %d", stats.CellsChanged)
	}
}

func TestRenderDiff_ScrollDisabledByEnv(t *testing.T) {
	os.Setenv("BTUIN_DISABLE_DECSTBM", "1")
	defer os.Unsetenv("BTUIN_DISABLE_DECSTBM")

	prev, next := makeScrollBuffers(t)
	stats := &DiffStats{}
	RenderDiff(prev, next, stats, &DiffOptions{ScrollHint: &ScrollHint{Top: 2, Bottom: 21}})
	if stats.ScrollApplied {
		t.Error("scroll must be disabled by BTUIN_DISABLE_DECSTBM")
	}
}

func TestRenderDiff_FullScreenScrollRejected(t *testing.T) {
	prev, next := makeScrollBuffers(t)
	stats := &DiffStats{}
	RenderDiff(prev, next, stats, &DiffOptions{ScrollHint: &ScrollHint{Top: 0, Bottom: 23}})
	if stats.ScrollApplied {
		t.Error("full-screen scroll must be rejected")
	}
}

func TestRenderDiff_AutoScrollDetection(t *testing.T) {
	t.Setenv("BTUIN_DECSTBM_AUTO", "1")

	prev, next := makeScrollBuffers(t)
	stats := &DiffStats{}
	out := RenderDiff(prev, next, stats, nil)
	if !stats.ScrollApplied {
		t.Fatalf("auto mode must find the scrolled band, got %q", out)
	}
	if !strings.Contains(out, "\x1b[1S") {
		t.Errorf("expected scroll up by 1, got %q", out)
	}
	if strings.Contains(out, "\x1b[1;24r") {
		t.Error("auto mode must never scroll the whole screen")
	}
}

func TestDetectScroll_SmallBandRejected(t *testing.T) {
	prev := NewBuffer(10, 10)
	next := NewBuffer(10, 10)
	if _, _, _, ok := detectScroll(prev, next, &ScrollHint{Top: 0, Bottom: 5}); ok {
		t.Error("bands under 8 rows must be rejected")
	}
}
