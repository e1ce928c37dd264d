// Package btuin provides the reactive runtime: computations, ownership
// and the process-global dirty version counters the render loop reads.
package btuin

import (
	"sync"
	"sync/atomic"
)

// computation tracks a reactive computation (effect or memo).
type computation struct {
	execute       func()
	subscriptions []subscriber
	mu            sync.Mutex
}

// subscriber interface allows signals to be unsubscribed from.
type subscriber interface {
	unsubscribe(comp *computation)
}

// Runtime holds all global mutable state for the framework.
// Reset() gives tests a clean slate.
type Runtime struct {
	mu sync.Mutex

	currentComputation  *computation
	currentOwner        *Owner
	batchDepth          int
	pendingComputations map[*computation]struct{}

	// Monotonic dirty versions. Any layout-affecting mutation of the
	// view tree bumps layoutVersion, any render-affecting one bumps
	// renderVersion; the render loop only reads them.
	layoutVersion atomic.Uint64
	renderVersion atomic.Uint64

	// muteDepth suspends version bumps while a fresh immediate-mode
	// tree is being built; only reconciliation into the retained tree
	// reports real changes.
	muteDepth atomic.Int64

	focusManager *FocusManager
}

// Global is the package-level runtime instance.
var Global *Runtime

func init() {
	Global = NewRuntime()
}

// NewRuntime creates a new Runtime with initialized state.
func NewRuntime() *Runtime {
	return &Runtime{
		pendingComputations: make(map[*computation]struct{}),
	}
}

// Reset clears and reinitializes the global runtime.
// Call this at the start of tests for clean isolation.
func Reset() {
	Global = NewRuntime()
}

// LayoutVersion returns the current layout dirty version.
func (rt *Runtime) LayoutVersion() uint64 { return rt.layoutVersion.Load() }

// RenderVersion returns the current render dirty version.
func (rt *Runtime) RenderVersion() uint64 { return rt.renderVersion.Load() }

func (rt *Runtime) bumpLayoutVersion() {
	if rt.muteDepth.Load() == 0 {
		rt.layoutVersion.Add(1)
	}
}

func (rt *Runtime) bumpRenderVersion() {
	if rt.muteDepth.Load() == 0 {
		rt.renderVersion.Add(1)
	}
}

// muteVersions runs fn with dirty-version bumps suspended.
func (rt *Runtime) muteVersions(fn func()) {
	rt.muteDepth.Add(1)
	defer rt.muteDepth.Add(-1)
	fn()
}

// getCurrentComputation returns the computation currently tracking.
func (rt *Runtime) getCurrentComputation() *computation {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.currentComputation
}

func (rt *Runtime) setCurrentComputation(comp *computation) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.currentComputation = comp
}

func (rt *Runtime) getCurrentOwner() *Owner {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.currentOwner
}

func (rt *Runtime) setCurrentOwner(owner *Owner) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.currentOwner = owner
}

// withComputation runs fn with the tracking context swapped, restoring
// the previous computation even if fn panics.
func (rt *Runtime) withComputation(comp *computation, fn func()) {
	prev := rt.getCurrentComputation()
	rt.setCurrentComputation(comp)
	defer rt.setCurrentComputation(prev)
	fn()
}

// withOwner runs fn with the ownership scope swapped, restoring the
// previous owner even if fn panics.
func (rt *Runtime) withOwner(owner *Owner, fn func()) {
	prev := rt.getCurrentOwner()
	rt.setCurrentOwner(owner)
	defer rt.setCurrentOwner(prev)
	fn()
}

// runBatched runs fn with effect execution deferred; the outermost
// caller flushes the pending set on the way out.
func (rt *Runtime) runBatched(fn func()) {
	rt.incrementBatchDepth()
	defer func() {
		if rt.decrementBatchDepth() {
			rt.flushPending()
		}
	}()
	fn()
}

func (rt *Runtime) getBatchDepth() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.batchDepth
}

func (rt *Runtime) incrementBatchDepth() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.batchDepth++
}

// decrementBatchDepth decrements the batch depth and returns true when
// the outermost batch finished and pending computations should flush.
func (rt *Runtime) decrementBatchDepth() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.batchDepth--
	return rt.batchDepth == 0
}

func (rt *Runtime) addPendingComputation(comp *computation) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.pendingComputations[comp] = struct{}{}
}

// flushPending runs all pending computations and clears the set.
func (rt *Runtime) flushPending() {
	rt.mu.Lock()
	toRun := make([]*computation, 0, len(rt.pendingComputations))
	for comp := range rt.pendingComputations {
		toRun = append(toRun, comp)
	}
	rt.pendingComputations = make(map[*computation]struct{})
	rt.mu.Unlock()

	for _, comp := range toRun {
		comp.execute()
	}
}

// FocusManager returns the runtime's focus manager, creating it lazily.
func (rt *Runtime) FocusManager() *FocusManager {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.focusManager == nil {
		rt.focusManager = newFocusManager()
	}
	return rt.focusManager
}
