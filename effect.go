package btuin

import "sync"

// CleanupFunc is a function called to clean up an effect.
type CleanupFunc func()

// DisposeFunc is a function that disposes an effect.
type DisposeFunc func()

// CreateEffect creates a reactive effect that runs when its dependencies change.
// Returns a dispose function to stop the effect.
//
// The effect function can optionally return a cleanup function that runs before
// each re-execution and when the effect is disposed.
//
// Example:
//
//	count, setCount := CreateSignal(0)
//
//	dispose := CreateEffect(func() CleanupFunc {
//	    fmt.Println("Count is:", count())
//	    return func() { fmt.Println("Cleaning up") }
//	})
func CreateEffect(fn func() CleanupFunc) DisposeFunc {
	return CreateEffectWithScheduler(fn, nil)
}

// CreateEffectWithScheduler creates an effect whose re-runs go through a
// custom scheduler. When scheduler is non-nil, dependency triggers call
// it with the re-run function instead of running the body; the
// scheduler decides when (or whether) to invoke it. The initial run is
// always direct. The render loop uses this to coalesce triggers into
// one frame.
func CreateEffectWithScheduler(fn func() CleanupFunc, scheduler func(run func())) DisposeFunc {
	var cleanup CleanupFunc
	var disposed bool
	var mu sync.Mutex

	comp := &computation{
		subscriptions: make([]subscriber, 0),
	}

	runBody := func() {
		mu.Lock()
		if disposed {
			mu.Unlock()
			return
		}

		// Cleanup previous run
		if cleanup != nil {
			cleanupFn := cleanup
			cleanup = nil
			mu.Unlock()
			cleanupFn()
			mu.Lock()
		}

		// Unsubscribe from old signals before re-tracking
		comp.mu.Lock()
		for _, sub := range comp.subscriptions {
			sub.unsubscribe(comp)
		}
		comp.subscriptions = comp.subscriptions[:0]
		comp.mu.Unlock()

		mu.Unlock()

		// Run with tracking. Nested effects are legal: the previous
		// computation resumes tracking once this one finishes. A
		// panicking body is logged and the effect stays active.
		prevComputation := Global.getCurrentComputation()
		Global.setCurrentComputation(comp)

		newCleanup := func() (cf CleanupFunc) {
			defer func() {
				if r := recover(); r != nil {
					DebugLog("effect panic: %v", r)
				}
			}()
			return fn()
		}()

		Global.setCurrentComputation(prevComputation)

		mu.Lock()
		cleanup = newCleanup
		mu.Unlock()
	}

	if scheduler != nil {
		comp.execute = func() {
			mu.Lock()
			if disposed {
				mu.Unlock()
				return
			}
			mu.Unlock()
			scheduler(runBody)
		}
	} else {
		comp.execute = runBody
	}

	// Initial run
	runBody()

	dispose := func() {
		mu.Lock()
		if disposed {
			mu.Unlock()
			return
		}
		disposed = true
		cleanupFn := cleanup
		cleanup = nil

		comp.mu.Lock()
		for _, sub := range comp.subscriptions {
			sub.unsubscribe(comp)
		}
		comp.subscriptions = nil
		comp.mu.Unlock()

		mu.Unlock()

		if cleanupFn != nil {
			cleanupFn()
		}
	}

	// Register with current owner for automatic cleanup
	if owner := Global.getCurrentOwner(); owner != nil {
		owner.register(dispose)
	}

	return dispose
}

// CreateEffectSimple creates an effect without cleanup.
func CreateEffectSimple(fn func()) DisposeFunc {
	return CreateEffect(func() CleanupFunc {
		fn()
		return nil
	})
}

// memoState backs a lazily memoized derived value.
type memoState[T any] struct {
	mu      sync.Mutex
	fn      func() T
	equals  func(a, b T) bool
	cached  T
	dirty   bool
	started bool

	// notify is the channel dependents subscribe to; its value is a
	// generation counter bumped when the cached value changes.
	notify *signalValue[uint64]
	gen    uint64

	comp *computation
}

// CreateMemo creates a lazily memoized derived value.
//
// The getter does not run until the memo is first read. A dependency
// trigger marks the memo dirty; while the memo has no dependents the
// recomputation is deferred to the next read. When dependents exist,
// the trigger recomputes immediately so propagation can be gated on
// whether the value actually changed.
//
// Example:
//
//	count, _ := CreateSignal(5)
//	doubled := CreateMemo(func() int {
//	    return count() * 2
//	})
//	fmt.Println(doubled()) // 10
func CreateMemo[T any](fn func() T) Accessor[T] {
	return CreateMemoWithEquals(fn, sameValue[T])
}

// CreateMemoWithEquals is CreateMemo with a custom equality function
// gating downstream notification.
func CreateMemoWithEquals[T any](fn func() T, equals func(a, b T) bool) Accessor[T] {
	m := &memoState[T]{
		fn:     fn,
		equals: equals,
		dirty:  true,
		notify: &signalValue[uint64]{subscribers: make(map[*computation]struct{})},
	}
	m.comp = &computation{subscriptions: make([]subscriber, 0)}
	m.comp.execute = m.onDependencyTrigger

	if owner := Global.getCurrentOwner(); owner != nil {
		owner.register(m.dispose)
	}

	return m.read
}

func (m *memoState[T]) read() T {
	m.notify.track()

	m.mu.Lock()
	needsRun := m.dirty
	m.mu.Unlock()

	if needsRun {
		m.evaluate()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cached
}

// evaluate runs the getter under the memo's own tracking scope, so the
// memo's inner dependencies never leak into an outer effect. Returns
// whether the cached value changed.
func (m *memoState[T]) evaluate() bool {
	m.comp.mu.Lock()
	for _, sub := range m.comp.subscriptions {
		sub.unsubscribe(m.comp)
	}
	m.comp.subscriptions = m.comp.subscriptions[:0]
	m.comp.mu.Unlock()

	prev := Global.getCurrentComputation()
	Global.setCurrentComputation(m.comp)
	value := m.fn()
	Global.setCurrentComputation(prev)

	m.mu.Lock()
	changed := !m.started || m.equals == nil || !m.equals(m.cached, value)
	m.cached = value
	m.dirty = false
	m.started = true
	m.mu.Unlock()
	return changed
}

// onDependencyTrigger marks the memo dirty. If anything is subscribed
// to the memo, recompute now and notify only when the value differs.
func (m *memoState[T]) onDependencyTrigger() {
	m.mu.Lock()
	m.dirty = true
	m.mu.Unlock()

	if !m.notify.hasSubscribers() {
		return
	}
	if m.evaluate() {
		m.gen++
		m.notify.set(m.gen)
	}
}

func (m *memoState[T]) dispose() {
	m.comp.mu.Lock()
	for _, sub := range m.comp.subscriptions {
		sub.unsubscribe(m.comp)
	}
	m.comp.subscriptions = nil
	m.comp.mu.Unlock()
}
