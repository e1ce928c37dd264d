// Package btuin provides per-frame profiling: phase timings, diff stat
// totals and an optional HUD overlay.
package btuin

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"sort"
	"time"
)

// FrameStats records one rendered frame.
type FrameStats struct {
	Begin     time.Time `json:"-"`
	FrameMs   float64   `json:"frameMs"`
	LayoutMs  float64   `json:"layoutMs"`
	PaintMs   float64   `json:"paintMs"`
	DiffMs    float64   `json:"diffMs"`
	WriteMs   float64   `json:"writeMs"`
	Bytes     int       `json:"bytes"`
	NodeCount int       `json:"nodeCount,omitempty"`
	HeapBytes uint64    `json:"heapBytes,omitempty"`

	Cells         int  `json:"cells"`
	CursorMoves   int  `json:"cursorMoves"`
	StyleChanges  int  `json:"styleChanges"`
	Resets        int  `json:"resets"`
	FullRedraw    bool `json:"fullRedraw,omitempty"`
	ScrollApplied bool `json:"scrollApplied,omitempty"`
}

// ProfilerOptions configures a Profiler.
type ProfilerOptions struct {
	// HUD draws the previous frame's numbers into each new frame.
	HUD bool
	// CountNodes walks the tree per frame to record node counts.
	CountNodes bool
	// TrackMemory snapshots heap usage per frame.
	TrackMemory bool
	// MaxFrames bounds the retained per-frame history (0 = 10000).
	MaxFrames int
}

// Profiler accumulates FrameStats. The HUD always displays the
// previous frame so measuring never perturbs the frame on screen.
type Profiler struct {
	opts   ProfilerOptions
	frames []FrameStats
	last   FrameStats
	hasLast bool
}

// NewProfiler creates a profiler.
func NewProfiler(opts ProfilerOptions) *Profiler {
	if opts.MaxFrames <= 0 {
		opts.MaxFrames = 10000
	}
	return &Profiler{opts: opts}
}

// StartFrame begins a frame record.
func (p *Profiler) StartFrame() *FrameStats {
	return &FrameStats{Begin: time.Now()}
}

// FinishFrame completes a frame record and stores it.
func (p *Profiler) FinishFrame(f *FrameStats, stats *DiffStats, nodeCount int) {
	f.FrameMs = float64(time.Since(f.Begin)) / float64(time.Millisecond)
	if stats != nil {
		f.Cells = stats.CellsChanged
		f.CursorMoves = stats.CursorMoves
		f.StyleChanges = stats.StyleChanges
		f.Resets = stats.Resets
		f.FullRedraw = stats.FullRedraw
		f.ScrollApplied = stats.ScrollApplied
	}
	if p.opts.CountNodes {
		f.NodeCount = nodeCount
	}
	if p.opts.TrackMemory {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		f.HeapBytes = m.HeapAlloc
	}

	p.last = *f
	p.hasLast = true
	if len(p.frames) < p.opts.MaxFrames {
		p.frames = append(p.frames, *f)
	}
}

// Last returns the most recent completed frame.
func (p *Profiler) Last() (FrameStats, bool) {
	return p.last, p.hasLast
}

// FrameCount returns the number of recorded frames.
func (p *Profiler) FrameCount() int { return len(p.frames) }

// DrawHUD paints the previous frame's numbers into the top-right corner
// of buf.
func (p *Profiler) DrawHUD(buf *Buffer) {
	if !p.hasLast {
		return
	}
	f := p.last
	lines := []string{
		fmt.Sprintf(" frame %5.2fms ", f.FrameMs),
		fmt.Sprintf(" layout %4.2f paint %4.2f ", f.LayoutMs, f.PaintMs),
		fmt.Sprintf(" diff %4.2f write %4.2f ", f.DiffMs, f.WriteMs),
		fmt.Sprintf(" cells %d bytes %d ", f.Cells, f.Bytes),
	}
	width := 0
	for _, line := range lines {
		if w := MeasureText(line); w > width {
			width = w
		}
	}
	x := buf.Width() - width
	if x < 0 {
		x = 0
	}
	bg := ResolveBg("blue")
	fg := ResolveFg("white")
	for i, line := range lines {
		for pad := MeasureText(line); pad < width; pad++ {
			line += " "
		}
		buf.WriteString(x, i, line, fg, bg)
	}
}

// profileSummary is the JSON document flushed at shutdown.
type profileSummary struct {
	Frames  int          `json:"frames"`
	P50     float64      `json:"p50"`
	P95     float64      `json:"p95"`
	P99     float64      `json:"p99"`
	Max     float64      `json:"max"`
	PerFrame []FrameStats `json:"perFrame"`
}

// FlushJSON writes a summary document with frame-time percentiles and
// the per-frame history.
func (p *Profiler) FlushJSON(w io.Writer) error {
	times := make([]float64, len(p.frames))
	for i, f := range p.frames {
		times[i] = f.FrameMs
	}
	sort.Float64s(times)

	summary := profileSummary{
		Frames:   len(p.frames),
		P50:      percentile(times, 0.50),
		P95:      percentile(times, 0.95),
		P99:      percentile(times, 0.99),
		Max:      percentile(times, 1.0),
		PerFrame: p.frames,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(q*float64(len(sorted))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
