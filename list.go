package alpm

import (
	"iter"
	"runtime"
	"strconv"
	"sync"

	"github.com/git-pkgs/alpm/engine"
)

// Seq is implemented by List and OwnedList.
type Seq[T any] interface {
	All() iter.Seq2[T, error]
}

// projector turns the payload of a list node into a value. It runs inside
// the list's view.
type projector[T any] func(v view, data uintptr) (T, error)

// chain walks an engine list. Each step enters the view on its own, so no
// lock is held while the caller's loop body runs.
type chain[T any] struct {
	v    view
	head engine.List
	// gen, when set, must still equal at for the nodes to be readable.
	gen  *uint64
	at   uint64
	proj projector[T]
}

// all walks the chain. hold, when set, guards the nodes of an owned list.
func (c chain[T]) all(hold func() (func(), error)) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		if c.v.h == nil {
			return
		}
		node := c.head
		first := true
		for first || node != engine.Null {
			item, next, ok, err := c.step(node, hold)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if ok && !yield(item, nil) {
				return
			}
			first = false
			node = next
		}
	}
}

// step reads one node. On an empty list it only checks that the list may
// be read, so traversing a released empty list still reports the error.
func (c chain[T]) step(node engine.List, hold func() (func(), error)) (item T, next engine.List, ok bool, err error) {
	if hold != nil {
		var release func()
		if release, err = hold(); err != nil {
			return
		}
		defer release()
	}
	if err = c.v.enter(); err != nil {
		return
	}
	defer c.v.exit()
	if c.gen != nil && *c.gen != c.at {
		err = ErrStale
		return
	}
	if node == engine.Null {
		return
	}
	eng := c.v.h.eng
	item, err = c.proj(c.v, eng.ListData(node))
	return item, eng.ListNext(node), err == nil, err
}

// List is a sequence borrowed from the engine. It never frees anything and
// may be traversed any number of times.
type List[T any] struct {
	c chain[T]
}

// All returns an iterator over the elements. Iteration stops at the first
// error, which is yielded with the zero value.
func (l List[T]) All() iter.Seq2[T, error] {
	return l.c.all(nil)
}

// Len counts the elements by walking the list.
func (l List[T]) Len() (int, error) { return Len[T](l) }

// At walks to the i-th element.
func (l List[T]) At(i int) (T, error) { return At[T](l, i) }

// Collect copies the elements into a slice.
func (l List[T]) Collect() ([]T, error) { return Collect[T](l) }

// OwnedList is a sequence allocated for the caller. Close frees it; a list
// that is dropped without Close is freed when it is garbage collected.
type OwnedList[T any] struct {
	c chain[T]
	r *ownedNodes
}

type ownedNodes struct {
	mu     sync.RWMutex
	closed bool
	eng    engine.Engine
	head   engine.List
	inner  bool
}

func (o *ownedNodes) free() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	if o.head == engine.Null {
		return
	}
	if o.inner {
		o.eng.ListFreeInner(o.head)
	}
	o.eng.ListFree(o.head)
}

func (o *ownedNodes) hold() (func(), error) {
	o.mu.RLock()
	if o.closed {
		o.mu.RUnlock()
		return nil, ErrReleased
	}
	return o.mu.RUnlock, nil
}

// newOwned takes ownership of c.head. inner marks lists whose payloads were
// allocated along with the nodes.
func newOwned[T any](c chain[T], inner bool) *OwnedList[T] {
	l := &OwnedList[T]{
		c: c,
		r: &ownedNodes{eng: c.v.h.eng, head: c.head, inner: inner},
	}
	runtime.AddCleanup(l, (*ownedNodes).free, l.r)
	return l
}

// All returns an iterator over the elements. After Close it yields
// ErrReleased.
func (l *OwnedList[T]) All() iter.Seq2[T, error] {
	seq := l.c.all(l.r.hold)
	return func(yield func(T, error) bool) {
		seq(yield)
		runtime.KeepAlive(l)
	}
}

// Len counts the elements by walking the list.
func (l *OwnedList[T]) Len() (int, error) { return Len[T](l) }

// At walks to the i-th element.
func (l *OwnedList[T]) At(i int) (T, error) { return At[T](l, i) }

// Collect copies the elements into a slice.
func (l *OwnedList[T]) Collect() ([]T, error) { return Collect[T](l) }

// Close frees the list. Calling it again does nothing.
func (l *OwnedList[T]) Close() error {
	l.r.free()
	return nil
}

// Len counts the elements of s.
func Len[T any](s Seq[T]) (int, error) {
	n := 0
	for _, err := range s.All() {
		if err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

// At returns the i-th element of s.
func At[T any](s Seq[T], i int) (T, error) {
	var zero T
	if i >= 0 {
		n := 0
		for item, err := range s.All() {
			if err != nil {
				return zero, err
			}
			if n == i {
				return item, nil
			}
			n++
		}
	}
	return zero, &NotFoundError{Kind: "index", Name: strconv.Itoa(i)}
}

// Collect copies the elements of s into a slice. An empty sequence gives a
// nil slice.
func Collect[T any](s Seq[T]) ([]T, error) {
	var out []T
	for item, err := range s.All() {
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// Equal reports whether a and b hold equal elements in the same order.
func Equal[T comparable](a, b Seq[T]) (bool, error) {
	return EqualFunc(a, b, func(x, y T) bool { return x == y })
}

// EqualFunc is Equal with a custom comparison.
func EqualFunc[T any](a, b Seq[T], eq func(T, T) bool) (bool, error) {
	next, stop := iter.Pull2(b.All())
	defer stop()
	for x, err := range a.All() {
		if err != nil {
			return false, err
		}
		y, err, ok := next()
		if !ok {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if !eq(x, y) {
			return false, nil
		}
	}
	_, err, ok := next()
	if ok && err != nil {
		return false, err
	}
	return !ok, nil
}

func projectString(v view, data uintptr) (string, error) {
	return v.text(v.h.eng.String(data))
}
