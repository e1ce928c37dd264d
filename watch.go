// Package btuin provides watch primitives layered on effects.
package btuin

import "reflect"

// RegisterCleanup registers a callback to run before the next execution
// of the watcher and once when the watcher stops.
type RegisterCleanup func(func())

// WatchOptions configures Watch.
type WatchOptions struct {
	// Immediate runs the callback once on creation, with the zero value
	// as the old value.
	Immediate bool
	// Deep snapshots the watched value by deep copy and compares with
	// reflect.DeepEqual, so in-place mutation of nested data is seen.
	Deep bool
}

// WatchEffect runs fn immediately and again whenever any signal it
// reads changes. fn receives a cleanup registrar; registered callbacks
// run before each re-execution and once on stop.
func WatchEffect(fn func(onCleanup RegisterCleanup)) DisposeFunc {
	return CreateEffect(func() CleanupFunc {
		var cleanups []func()
		fn(func(cb func()) {
			cleanups = append(cleanups, cb)
		})
		if len(cleanups) == 0 {
			return nil
		}
		return func() {
			for _, cb := range cleanups {
				cb()
			}
		}
	})
}

// Watch evaluates source under tracking and invokes cb with the new and
// previous values whenever the result changes. An Accessor is a valid
// source. Comparison is identity (or DeepEqual with Deep); flush is
// synchronous.
func Watch[T any](source func() T, cb func(newValue, oldValue T, onCleanup RegisterCleanup), opts WatchOptions) DisposeFunc {
	var old T
	started := false

	equals := sameValue[T]
	if opts.Deep {
		equals = func(a, b T) bool { return reflect.DeepEqual(a, b) }
	}

	return CreateEffect(func() CleanupFunc {
		value := source()
		if opts.Deep {
			value = deepCopy(value)
		}

		if !started {
			started = true
			prev := old
			old = value
			if !opts.Immediate {
				return nil
			}
			return runWatchCallback(cb, value, prev)
		}

		if equals(old, value) {
			return nil
		}
		prev := old
		old = value
		return runWatchCallback(cb, value, prev)
	})
}

// WatchMany watches several sources at once; cb receives the values in
// source order.
func WatchMany(sources []func() any, cb func(newValues, oldValues []any, onCleanup RegisterCleanup), opts WatchOptions) DisposeFunc {
	return Watch(func() []any {
		values := make([]any, len(sources))
		for i, s := range sources {
			values[i] = s()
		}
		return values
	}, cb, WatchOptions{Immediate: opts.Immediate, Deep: true})
}

// runWatchCallback invokes cb outside the tracking scope, collecting
// its cleanups into the effect's cleanup slot.
func runWatchCallback[T any](cb func(newValue, oldValue T, onCleanup RegisterCleanup), newValue, oldValue T) CleanupFunc {
	var cleanups []func()
	Untrack(func() struct{} {
		cb(newValue, oldValue, func(c func()) {
			cleanups = append(cleanups, c)
		})
		return struct{}{}
	})
	if len(cleanups) == 0 {
		return nil
	}
	return func() {
		for _, c := range cleanups {
			c()
		}
	}
}

// deepCopy copies exported structure (pointers, slices, maps, structs)
// so a Deep watch can compare against the pre-mutation state.
func deepCopy[T any](v T) T {
	copied := deepCopyValue(reflect.ValueOf(&v).Elem())
	return copied.Interface().(T)
}

func deepCopyValue(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(deepCopyValue(v.Elem()))
		return out
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(deepCopyValue(v.Index(i)))
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), deepCopyValue(iter.Value()))
		}
		return out
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			if out.Field(i).CanSet() {
				out.Field(i).Set(deepCopyValue(v.Field(i)))
			}
		}
		return out
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(deepCopyValue(v.Elem()))
		return out
	default:
		return v
	}
}
