//go:build libalpm

package libalpm

/*
#include <stdint.h>
*/
import "C"

import (
	"runtime/cgo"
	"strings"

	"github.com/git-pkgs/alpm/engine"
)

//export goLog
func goLog(ctx C.uintptr_t, level C.int, msg *C.char) {
	e, ok := cgo.Handle(ctx).Value().(*Engine)
	if !ok {
		return
	}
	e.logMu.Lock()
	fn := e.logf
	e.logMu.Unlock()
	if fn != nil {
		fn(engine.LogLevel(level), strings.TrimRight(C.GoString(msg), "\n"))
	}
}
