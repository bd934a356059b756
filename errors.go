package alpm

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/git-pkgs/alpm/engine"
)

var (
	// ErrNotFound is returned when a database, package or group does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNull is returned when the engine hands back nothing without saying why.
	ErrNull = errors.New("engine returned null")

	// ErrDuplicate is returned when registering a database name twice.
	ErrDuplicate = errors.New("already registered")

	// ErrInvalidText is returned when the engine returns text that is not UTF-8.
	ErrInvalidText = errors.New("invalid utf-8 text")

	// ErrIO is returned when reading a changelog or file tree fails.
	ErrIO = errors.New("stream i/o")

	ErrReleased     = errors.New("released")
	ErrTxDone       = errors.New("transaction finished")
	ErrUnregistered = errors.New("database unregistered")

	// ErrStale is returned when traversing a list whose backing memory was
	// replaced by a later mutation.
	ErrStale = errors.New("list changed since it was obtained")
)

// EngineError is a failure reported by the engine.
type EngineError struct {
	Code    engine.Code
	Message string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("alpm: %s (code %d)", e.Message, int(e.Code))
}

// NotFoundError wraps ErrNotFound with what was looked up.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Name)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// TextError reports the byte offset of the first invalid UTF-8 sequence.
type TextError struct {
	Offset int
}

func (e *TextError) Error() string {
	return fmt.Sprintf("invalid utf-8 at byte %d", e.Offset)
}

func (e *TextError) Unwrap() error {
	return ErrInvalidText
}

// StreamError is a failure while reading a changelog or file tree.
type StreamError struct {
	Op  string
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StreamError) Unwrap() []error {
	return []error{ErrIO, e.Err}
}

func invalidOffset(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(b)
}

// checkNull turns a null handle into an error. fn runs with the errno lock
// held so the code read afterwards belongs to this call.
func (h *Handle) checkNull(kind, name string, fn func() uintptr) (uintptr, error) {
	h.errMu.Lock()
	defer h.errMu.Unlock()
	if p := fn(); p != engine.Null {
		return p, nil
	}
	code := h.eng.Errno()
	switch {
	case code.IsNotFound():
		return 0, &NotFoundError{Kind: kind, Name: name}
	case code == engine.ErrDBNotNull:
		return 0, fmt.Errorf("%s %s: %w", kind, name, ErrDuplicate)
	case code == engine.OK:
		return 0, ErrNull
	}
	return 0, h.engineError(code)
}

// checkLookup is checkNull for lookups that report a missing entity as a
// null handle with no code.
func (h *Handle) checkLookup(kind, name string, fn func() uintptr) (uintptr, error) {
	p, err := h.checkNull(kind, name, fn)
	if errors.Is(err, ErrNull) {
		return 0, &NotFoundError{Kind: kind, Name: name}
	}
	return p, err
}

// checkRet turns a non-zero return into an EngineError.
func (h *Handle) checkRet(fn func() int) error {
	h.errMu.Lock()
	defer h.errMu.Unlock()
	if fn() == 0 {
		return nil
	}
	return h.engineError(h.eng.Errno())
}

// checkFound is checkRet for calls whose failure may mean the entity does
// not exist.
func (h *Handle) checkFound(kind, name string, fn func() int) error {
	h.errMu.Lock()
	defer h.errMu.Unlock()
	if fn() == 0 {
		return nil
	}
	code := h.eng.Errno()
	if code.IsNotFound() {
		return &NotFoundError{Kind: kind, Name: name}
	}
	return h.engineError(code)
}

func (h *Handle) engineError(code engine.Code) *EngineError {
	return &EngineError{Code: code, Message: h.eng.StrError(code)}
}
