// Package btuin provides the render loop: reactivity, layout, painting
// and diffing composed into one coalesced frame.
package btuin

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/germtb/gox"
)

// LoopOptions configures a RenderLoop.
type LoopOptions struct {
	// Width/Height fix the viewport; zero means read the terminal.
	Width  int
	Height int
	// Output receives the ANSI stream; defaults to os.Stdout.
	Output io.Writer
	// SizeFunc overrides terminal size probing (for tests).
	SizeFunc func() (int, int)

	// View is an immediate-mode view function; it is lowered and
	// reconciled into a retained tree each frame.
	View func() gox.VNode
	// Root supplies the retained tree directly. One of View/Root is
	// required.
	Root func() Node

	Profiler *Profiler
	// OnError receives caught failures with a phase of "render",
	// "layout" or "key". The previous frame stays on screen.
	OnError func(phase string, err error)
}

// RenderLoop owns the buffer pool, the previous frame and the caches
// that make skipped and partial frames cheap.
type RenderLoop struct {
	mu     sync.Mutex
	out    io.Writer
	rootFn func() Node
	sizeFn func() (int, int)

	pool          *BufferPool
	prev          *Buffer
	width, height int

	prevRoot          Node
	prevLayout        ComputedLayout
	prevRects         map[string]Rect
	prevSigs          map[string]string
	prevLayoutVersion uint64
	prevRenderVersion uint64
	havePrevFrame     bool

	profiler *Profiler
	onError  func(phase string, err error)

	dispose       DisposeFunc
	scheduledRun  func()
	scheduled     bool
	wake          chan struct{}
	forceFullNext bool
	retrackNext   bool
}

// NewRenderLoop creates a loop. Call Start for reactive rendering or
// RenderOnce for direct frames.
func NewRenderLoop(opts LoopOptions) *RenderLoop {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	rootFn := opts.Root
	if rootFn == nil && opts.View != nil {
		view := opts.View
		rootFn = func() Node { return BuildElementTree(view()) }
	}

	sizeFn := opts.SizeFunc
	if sizeFn == nil {
		if opts.Width > 0 && opts.Height > 0 {
			w, h := opts.Width, opts.Height
			sizeFn = func() (int, int) { return w, h }
		} else {
			sizeFn = func() (int, int) {
				if w, h, err := TerminalSize(); err == nil {
					return w, h
				}
				return 80, 24
			}
		}
	}

	return &RenderLoop{
		out:      out,
		rootFn:   rootFn,
		sizeFn:   sizeFn,
		profiler: opts.Profiler,
		onError:  opts.OnError,
		wake:     make(chan struct{}, 1),
	}
}

// Wake returns a channel signalled whenever a coalesced render is due.
// The app shell selects on it and calls Flush.
func (l *RenderLoop) Wake() <-chan struct{} { return l.wake }

// Start wraps rendering in a reactive effect: every signal read during
// view evaluation becomes a dependency. Triggers coalesce — repeated
// signal writes between frames schedule exactly one re-render.
func (l *RenderLoop) Start() {
	l.dispose = CreateEffectWithScheduler(func() CleanupFunc {
		l.RenderOnce(false)
		return nil
	}, func(run func()) {
		l.mu.Lock()
		l.scheduledRun = run
		already := l.scheduled
		l.scheduled = true
		l.mu.Unlock()
		if !already {
			select {
			case l.wake <- struct{}{}:
			default:
			}
		}
	})
}

// Flush runs the scheduled coalesced render, if any.
func (l *RenderLoop) Flush() {
	l.mu.Lock()
	run := l.scheduledRun
	pending := l.scheduled
	l.scheduled = false
	l.mu.Unlock()
	if pending && run != nil {
		run()
	}
}

// RequestRender forces the next frame to re-evaluate and re-track even
// if no signal changed (terminal size, external state).
func (l *RenderLoop) RequestRender() {
	l.mu.Lock()
	l.retrackNext = true
	run := l.scheduledRun
	l.mu.Unlock()
	if run != nil {
		l.mu.Lock()
		l.scheduled = true
		l.mu.Unlock()
		select {
		case l.wake <- struct{}{}:
		default:
		}
	} else {
		l.RenderOnce(false)
	}
}

// ForceFullRedraw makes the next frame repaint every cell.
func (l *RenderLoop) ForceFullRedraw() {
	l.mu.Lock()
	l.forceFullNext = true
	l.mu.Unlock()
}

// Dispose stops the loop's effect and releases all subscriptions.
func (l *RenderLoop) Dispose() {
	if l.dispose != nil {
		l.dispose()
		l.dispose = nil
	}
}

// PrevBuffer exposes the last presented frame, for tests and the HUD.
func (l *RenderLoop) PrevBuffer() *Buffer { return l.prev }

// RenderOnce renders one frame and returns the ANSI bytes written.
// An empty string means the frame was skipped or identical.
func (l *RenderLoop) RenderOnce(forceFull bool) string {
	var frame *FrameStats
	if l.profiler != nil {
		frame = l.profiler.StartFrame()
	}

	l.mu.Lock()
	if l.forceFullNext {
		forceFull = true
		l.forceFullNext = false
	}
	retrack := l.retrackNext
	l.retrackNext = false
	l.mu.Unlock()

	// 1. Viewport.
	w, h := l.sizeFn()
	if l.pool == nil || w != l.width || h != l.height {
		l.pool = NewBufferPool(w, h)
		l.width, l.height = w, h
		l.prev = l.pool.Acquire()
		l.prevLayout = nil
		l.havePrevFrame = false
		forceFull = true
	}

	// 2. Evaluate the view.
	root, err := l.evalRoot()
	if err != nil {
		if l.onError != nil {
			l.onError("render", err)
		}
		return ""
	}
	if root == nil {
		return ""
	}
	root = Reconcile(l.prevRoot, root)

	Manager().SyncTree(root)

	layoutVersion := Global.LayoutVersion()
	renderVersion := Global.RenderVersion()

	// 3. Skip check: identical retained root and untouched versions.
	// RequestRender suppresses the skip so externally driven changes
	// reach the signature comparison below.
	if !forceFull && !retrack && l.havePrevFrame && root == l.prevRoot &&
		layoutVersion == l.prevLayoutVersion && renderVersion == l.prevRenderVersion {
		return ""
	}

	// 4. Layout, cached while the tree and versions stand still.
	layoutStart := time.Now()
	var layout ComputedLayout
	if root == l.prevRoot && l.prevLayout != nil && layoutVersion == l.prevLayoutVersion {
		layout = l.prevLayout
	} else {
		layout, err = l.safeLayout(root)
		if err != nil {
			if l.onError != nil {
				l.onError("layout", err)
			}
			return ""
		}
	}
	if frame != nil {
		frame.LayoutMs = float64(time.Since(layoutStart)) / float64(time.Millisecond)
	}

	// 5. Absolute rects, signatures and the scroll-band candidate.
	rects, sigs, band := collectFrameMaps(root, layout)

	paintStart := time.Now()
	var next *Buffer
	var hint *ScrollHint
	painted := false

	// 6. Scroll fast path: a full-width band whose nodes moved by one
	// common dy, verified against the rects map.
	if !forceFull && l.havePrevFrame && band != nil &&
		band.X == 0 && band.Width == l.width &&
		!envTruthy("BTUIN_DISABLE_SCROLL_FASTPATH") {
		if nodeDy, ok := detectNodeScroll(l.prevRects, rects, *band); ok {
			bufferDy := -nodeDy
			next = l.pool.Acquire()
			next.CopyFrom(l.prev)
			top := band.Y
			bottom := band.Y + band.Height - 1
			next.ScrollRowsFrom(l.prev, top, bottom, bufferDy)

			for _, dirty := range l.scrollDirtyRects(rects, sigs, *band, bufferDy) {
				clearRect(next, dirty)
				RenderElement(root, next, layout, 0, 0, dirty)
			}
			hint = &ScrollHint{Top: top, Bottom: bottom}
			painted = true
		}
	}

	// 7. Dirty-rect fast path: layout stood still, repaint only nodes
	// whose signature changed.
	if !painted && !forceFull && l.havePrevFrame && layoutVersion == l.prevLayoutVersion {
		dirty := l.signatureDirtyRects(rects, sigs)
		if len(dirty) == 0 {
			l.storeFrame(root, layout, rects, sigs, layoutVersion, renderVersion)
			return ""
		}
		next = l.pool.Acquire()
		next.CopyFrom(l.prev)
		for _, dr := range dirty {
			clearRect(next, dr)
			RenderElement(root, next, layout, 0, 0, dr)
		}
		painted = true
	}

	// 8. Full-tree paint.
	if !painted {
		next = l.pool.Acquire()
		RenderElement(root, next, layout, 0, 0, Rect{X: 0, Y: 0, Width: l.width, Height: l.height})
	}

	// 9. HUD overlay shows the previous frame's numbers.
	if l.profiler != nil && l.profiler.opts.HUD {
		l.profiler.DrawHUD(next)
	}
	if frame != nil {
		frame.PaintMs = float64(time.Since(paintStart)) / float64(time.Millisecond)
	}

	// 10. Diff.
	diffStart := time.Now()
	stats := &DiffStats{}
	out := RenderDiff(l.prev, next, stats, &DiffOptions{ScrollHint: hint, ForceFull: forceFull})
	if out == "" && !l.havePrevFrame {
		// Safety net: the very first frame for this viewport must
		// produce at least one write.
		out = RenderDiff(NewBuffer(l.width, l.height), next, stats, nil)
	}
	if frame != nil {
		frame.DiffMs = float64(time.Since(diffStart)) / float64(time.Millisecond)
	}

	// 11. Write, swap, store.
	writeStart := time.Now()
	if out != "" {
		io.WriteString(l.out, out)
	}
	if frame != nil {
		frame.WriteMs = float64(time.Since(writeStart)) / float64(time.Millisecond)
		frame.Bytes = len(out)
	}

	l.pool.Release(l.prev)
	l.prev = next
	l.havePrevFrame = true
	l.storeFrame(root, layout, rects, sigs, layoutVersion, renderVersion)

	if frame != nil {
		nodeCount := 0
		if l.profiler.opts.CountNodes {
			nodeCount = CountNodes(root)
		}
		l.profiler.FinishFrame(frame, stats, nodeCount)
	}
	return out
}

func (l *RenderLoop) evalRoot() (node Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			node = nil
			err = recoveredError(r)
		}
	}()
	return l.rootFn(), nil
}

func (l *RenderLoop) safeLayout(root Node) (layout ComputedLayout, err error) {
	defer func() {
		if r := recover(); r != nil {
			layout = nil
			err = recoveredError(r)
		}
	}()
	return ComputeLayout(root, l.width, l.height), nil
}

func (l *RenderLoop) storeFrame(root Node, layout ComputedLayout,
	rects map[string]Rect, sigs map[string]string, lv, rv uint64) {
	l.prevRoot = root
	l.prevLayout = layout
	l.prevRects = rects
	l.prevSigs = sigs
	l.prevLayoutVersion = lv
	l.prevRenderVersion = rv
}

// collectFrameMaps walks the laid-out tree once, producing absolute
// integer rects and render signatures per key, plus the inner rect of
// the first node declaring a scroll region.
func collectFrameMaps(root Node, layout ComputedLayout) (map[string]Rect, map[string]string, *Rect) {
	rects := make(map[string]Rect)
	sigs := make(map[string]string)
	var band *Rect
	collectNode(root, layout, 0, 0, rects, sigs, &band)
	return rects, sigs, band
}

func collectNode(node Node, layout ComputedLayout, parentX, parentY int,
	rects map[string]Rect, sigs map[string]string, band **Rect) {
	rel, ok := layout[node.Key()]
	if !ok {
		return
	}
	abs := Rect{X: parentX + rel.X, Y: parentY + rel.Y, Width: rel.Width, Height: rel.Height}
	rects[node.Key()] = abs
	sigs[node.Key()] = signature(node)

	style := node.Style()
	if style.scrollRegion && *band == nil {
		inner := Rect{
			X:      abs.X + style.padding.Left,
			Y:      abs.Y + style.padding.Top,
			Width:  abs.Width - style.padding.Left - style.padding.Right,
			Height: abs.Height - style.padding.Top - style.padding.Bottom,
		}
		*band = &inner
	}

	if b, ok := node.(*Block); ok {
		for _, c := range b.children {
			collectNode(c, layout, abs.X, abs.Y, rects, sigs, band)
		}
	}
}

// Node-movement thresholds for the loop-level scroll fast path.
const (
	loopScrollMinNodes = 3
	loopScrollMinRatio = 0.6
)

// detectNodeScroll compares this frame's rects against the previous
// frame's. The most common non-zero dy among in-band nodes wins when it
// covers enough of them; the verification pass rejects any frame where
// out-of-band nodes moved or in-band nodes moved by a different dy.
func detectNodeScroll(prevRects, rects map[string]Rect, band Rect) (int, bool) {
	if prevRects == nil {
		return 0, false
	}
	// A rect covering the whole band is the scroll container (or an
	// ancestor); containers are expected to stand still and take no
	// part in the vote.
	isContainer := func(r Rect) bool {
		return r.Y <= band.Y && r.Y+r.Height >= band.Y+band.Height
	}
	inBand := func(r Rect) bool {
		return !isContainer(r) && r.Y >= band.Y && r.Y+r.Height <= band.Y+band.Height
	}

	votes := make(map[int]int)
	compared := 0
	for key, nr := range rects {
		pr, ok := prevRects[key]
		if !ok {
			continue
		}
		if inBand(pr) && inBand(nr) {
			compared++
			if dy := nr.Y - pr.Y; dy != 0 {
				votes[dy]++
			}
		}
	}
	if compared < loopScrollMinNodes {
		return 0, false
	}

	bestDy, bestCount := 0, 0
	for dy, count := range votes {
		if count > bestCount || (count == bestCount && abs(dy) < abs(bestDy)) {
			bestDy, bestCount = dy, count
		}
	}
	if bestDy == 0 {
		return 0, false
	}
	if abs(bestDy) > band.Height-1 {
		return 0, false
	}
	if float64(bestCount) < loopScrollMinRatio*float64(compared) {
		return 0, false
	}

	// Verification: everything outside the band stands still, and every
	// in-band node that survived moved by exactly bestDy, its width and
	// height untouched. A stationary node inside the band would be
	// corrupted by the shift, so it rejects the translation too.
	for key, nr := range rects {
		pr, ok := prevRects[key]
		if !ok {
			continue
		}
		if inBand(pr) && inBand(nr) {
			if nr.Y-pr.Y != bestDy {
				return 0, false
			}
			if nr.X != pr.X || nr.Width != pr.Width || nr.Height != pr.Height {
				return 0, false
			}
		} else if nr != pr {
			return 0, false
		}
	}
	return bestDy, true
}

// scrollDirtyRects returns the exposed strip plus every node whose
// signature changed, clipped to the viewport.
func (l *RenderLoop) scrollDirtyRects(rects map[string]Rect, sigs map[string]string,
	band Rect, bufferDy int) []Rect {
	var dirty []Rect

	// Strip exposed by the shift.
	if bufferDy > 0 {
		dirty = append(dirty, Rect{X: band.X, Y: band.Y + band.Height - bufferDy, Width: band.Width, Height: bufferDy})
	} else {
		dirty = append(dirty, Rect{X: band.X, Y: band.Y, Width: band.Width, Height: -bufferDy})
	}

	screen := Rect{X: 0, Y: 0, Width: l.width, Height: l.height}
	for key, sig := range sigs {
		prevSig, existed := l.prevSigs[key]
		if existed && prevSig == sig {
			continue
		}
		if r, ok := rects[key]; ok {
			if clipped := r.Intersect(screen); !clipped.Empty() {
				dirty = append(dirty, clipped)
			}
		}
	}
	// Nodes that vanished leave stale pixels behind.
	for key := range l.prevSigs {
		if _, still := sigs[key]; still {
			continue
		}
		if r, ok := l.prevRects[key]; ok {
			if clipped := r.Intersect(screen); !clipped.Empty() {
				dirty = append(dirty, clipped)
			}
		}
	}
	return dirty
}

// signatureDirtyRects compares per-node signatures against the previous
// frame and returns the rectangles needing repaint.
func (l *RenderLoop) signatureDirtyRects(rects map[string]Rect, sigs map[string]string) []Rect {
	var dirty []Rect
	screen := Rect{X: 0, Y: 0, Width: l.width, Height: l.height}

	for key, sig := range sigs {
		prevSig, existed := l.prevSigs[key]
		if existed && prevSig == sig {
			continue
		}
		if r, ok := rects[key]; ok {
			if clipped := r.Intersect(screen); !clipped.Empty() {
				dirty = append(dirty, clipped)
			}
		}
	}
	for key := range l.prevSigs {
		if _, still := sigs[key]; still {
			continue
		}
		if r, ok := l.prevRects[key]; ok {
			if clipped := r.Intersect(screen); !clipped.Empty() {
				dirty = append(dirty, clipped)
			}
		}
	}
	return dirty
}

func clearRect(buf *Buffer, r Rect) {
	buf.Fill(r.X, r.Y, r.Width, r.Height, ' ', "", "")
}

func recoveredError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}
