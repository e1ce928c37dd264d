// Package btuin provides fine-grained reactive primitives.
//
// Key principles:
// - Components run ONCE (setup phase)
// - Signals created inside components are local to that instance
// - Fine-grained reactivity: only re-run what depends on changed signals
// - No rules of hooks - signals are just values
package btuin

import (
	"reflect"
	"sync"
)

// Accessor is a function that reads a signal value.
type Accessor[T any] func() T

// Setter is a function that updates a signal value.
type Setter[T any] func(T)

// SetterFunc updates based on previous value.
type SetterFunc[T any] func(prev T) T

// signalValue is the internal signal implementation.
type signalValue[T any] struct {
	value       T
	subscribers map[*computation]struct{}
	mu          sync.RWMutex
}

// unsubscribe removes a computation from this signal's subscribers.
func (s *signalValue[T]) unsubscribe(comp *computation) {
	s.mu.Lock()
	delete(s.subscribers, comp)
	s.mu.Unlock()
}

// track subscribes the currently running computation, if any.
func (s *signalValue[T]) track() {
	comp := Global.getCurrentComputation()
	if comp == nil {
		return
	}
	s.mu.Lock()
	s.subscribers[comp] = struct{}{}
	s.mu.Unlock()

	comp.mu.Lock()
	comp.subscriptions = append(comp.subscriptions, s)
	comp.mu.Unlock()
}

func (s *signalValue[T]) hasSubscribers() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers) > 0
}

// set stores a value and notifies all subscribers unconditionally.
func (s *signalValue[T]) set(v T) {
	s.mu.Lock()
	s.value = v
	subs := make([]*computation, 0, len(s.subscribers))
	for comp := range s.subscribers {
		subs = append(subs, comp)
	}
	s.mu.Unlock()

	if Global.getBatchDepth() > 0 {
		for _, comp := range subs {
			Global.addPendingComputation(comp)
		}
	} else {
		for _, comp := range subs {
			comp.execute()
		}
	}
}

// sameValue reports identity equality for comparable values, mirroring
// the write skip: assigning a value identical to the current one must
// not notify. Non-comparable values (slices, maps, funcs) never count
// as identical.
func sameValue[T any](a, b T) bool {
	ai, bi := any(a), any(b)
	if ai == nil || bi == nil {
		return ai == nil && bi == nil
	}
	ta := reflect.TypeOf(ai)
	if ta != reflect.TypeOf(bi) || !ta.Comparable() {
		return false
	}
	return ai == bi
}

// CreateSignal creates a reactive signal. Writes of a value identical
// to the current one are no-ops.
//
// Example:
//
//	count, setCount := CreateSignal(0)
//	fmt.Println(count()) // 0
//	setCount(1)
//	fmt.Println(count()) // 1
func CreateSignal[T any](initialValue T) (Accessor[T], Setter[T]) {
	return CreateSignalWithEquals(initialValue, sameValue[T])
}

// CreateSignalWithEquals creates a signal with a custom equality
// function. If the new value equals the old one, subscribers are not
// notified.
func CreateSignalWithEquals[T any](initialValue T, equals func(a, b T) bool) (Accessor[T], Setter[T]) {
	s := &signalValue[T]{
		value:       initialValue,
		subscribers: make(map[*computation]struct{}),
	}

	read := func() T {
		s.mu.RLock()
		val := s.value
		s.mu.RUnlock()

		// Track this signal as a dependency of the current computation.
		comp := Global.getCurrentComputation()
		if comp != nil {
			s.mu.Lock()
			s.subscribers[comp] = struct{}{}
			s.mu.Unlock()

			comp.mu.Lock()
			comp.subscriptions = append(comp.subscriptions, s)
			comp.mu.Unlock()
		}

		return val
	}

	write := func(newValue T) {
		s.mu.Lock()
		if equals != nil && equals(s.value, newValue) {
			s.mu.Unlock()
			return
		}
		s.value = newValue

		subs := make([]*computation, 0, len(s.subscribers))
		for comp := range s.subscribers {
			subs = append(subs, comp)
		}
		s.mu.Unlock()

		if Global.getBatchDepth() > 0 {
			for _, comp := range subs {
				Global.addPendingComputation(comp)
			}
		} else {
			for _, comp := range subs {
				comp.execute()
			}
		}
	}

	return read, write
}

// SetWith updates a signal using a function that receives the previous value.
func SetWith[T any](setter Setter[T], fn SetterFunc[T], getter Accessor[T]) {
	setter(fn(getter()))
}
