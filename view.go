package alpm

import (
	"strings"
	"unicode/utf8"
)

// view is what every value handed out by this package carries. It decides
// whether the engine memory behind the value may still be read.
type view struct {
	h  *Handle
	tx *Tx
	st *dbState

	lossy bool
}

// enter makes the view usable until exit. Shared views hold the handle's
// read lock in between; views bound to a Tx rely on the write lock Update
// already holds.
func (v view) enter() error {
	if v.h == nil {
		return ErrReleased
	}
	if v.tx == nil {
		v.h.mu.RLock()
		if v.h.released {
			v.h.mu.RUnlock()
			return ErrReleased
		}
	} else if v.tx.done {
		return ErrTxDone
	}
	if v.st != nil && v.st.dead {
		v.exit()
		return ErrUnregistered
	}
	return nil
}

func (v view) exit() {
	if v.tx == nil {
		v.h.mu.RUnlock()
	}
}

// do runs fn inside the view.
func do[T any](v view, fn func() (T, error)) (T, error) {
	if err := v.enter(); err != nil {
		var zero T
		return zero, err
	}
	defer v.exit()
	return fn()
}

// must runs fn inside the view and panics if the view is no longer usable.
// Accessors without an error result use it.
func must[T any](v view, fn func() T) T {
	if err := v.enter(); err != nil {
		panic(err)
	}
	defer v.exit()
	return fn()
}

// text validates b. Lossy views substitute U+FFFD instead of failing.
func (v view) text(b []byte) (string, error) {
	if utf8.Valid(b) {
		return string(b), nil
	}
	if v.lossy {
		return strings.ToValidUTF8(string(b), "\uFFFD"), nil
	}
	return "", &TextError{Offset: invalidOffset(b)}
}

// optText is text for fields the engine may leave null.
func (v view) optText(b []byte) (string, bool, error) {
	if b == nil {
		return "", false, nil
	}
	s, err := v.text(b)
	return s, err == nil, err
}
