//go:build libalpm

package libalpm

/*
#include <alpm.h>
*/
import "C"

import "github.com/git-pkgs/alpm/engine"

// unmapped offsets library codes that have no engine.Code so they stay
// distinct and report Known() == false.
const unmapped = 1000

var codes = map[C.alpm_errno_t]engine.Code{
	C.ALPM_ERR_OK:                            engine.OK,
	C.ALPM_ERR_MEMORY:                        engine.ErrMemory,
	C.ALPM_ERR_SYSTEM:                        engine.ErrSystem,
	C.ALPM_ERR_BADPERMS:                      engine.ErrBadPerms,
	C.ALPM_ERR_NOT_A_FILE:                    engine.ErrNotAFile,
	C.ALPM_ERR_NOT_A_DIR:                     engine.ErrNotADir,
	C.ALPM_ERR_WRONG_ARGS:                    engine.ErrWrongArgs,
	C.ALPM_ERR_DISK_SPACE:                    engine.ErrDiskSpace,
	C.ALPM_ERR_HANDLE_NULL:                   engine.ErrHandleNull,
	C.ALPM_ERR_HANDLE_NOT_NULL:               engine.ErrHandleNotNull,
	C.ALPM_ERR_HANDLE_LOCK:                   engine.ErrHandleLock,
	C.ALPM_ERR_DB_OPEN:                       engine.ErrDBOpen,
	C.ALPM_ERR_DB_CREATE:                     engine.ErrDBCreate,
	C.ALPM_ERR_DB_NULL:                       engine.ErrDBNull,
	C.ALPM_ERR_DB_NOT_NULL:                   engine.ErrDBNotNull,
	C.ALPM_ERR_DB_NOT_FOUND:                  engine.ErrDBNotFound,
	C.ALPM_ERR_DB_INVALID:                    engine.ErrDBInvalid,
	C.ALPM_ERR_DB_INVALID_SIG:                engine.ErrDBInvalidSig,
	C.ALPM_ERR_DB_VERSION:                    engine.ErrDBVersion,
	C.ALPM_ERR_DB_WRITE:                      engine.ErrDBWrite,
	C.ALPM_ERR_DB_REMOVE:                     engine.ErrDBRemove,
	C.ALPM_ERR_SERVER_BAD_URL:                engine.ErrServerBadURL,
	C.ALPM_ERR_SERVER_NONE:                   engine.ErrServerNone,
	C.ALPM_ERR_TRANS_NOT_NULL:                engine.ErrTransNotNull,
	C.ALPM_ERR_TRANS_NULL:                    engine.ErrTransNull,
	C.ALPM_ERR_PKG_NOT_FOUND:                 engine.ErrPkgNotFound,
	C.ALPM_ERR_PKG_IGNORED:                   engine.ErrPkgIgnored,
	C.ALPM_ERR_PKG_INVALID:                   engine.ErrPkgInvalid,
	C.ALPM_ERR_PKG_INVALID_CHECKSUM:          engine.ErrPkgInvalidChecksum,
	C.ALPM_ERR_PKG_INVALID_SIG:               engine.ErrPkgInvalidSig,
	C.ALPM_ERR_PKG_MISSING_SIG:               engine.ErrPkgMissingSig,
	C.ALPM_ERR_PKG_OPEN:                      engine.ErrPkgOpen,
	C.ALPM_ERR_PKG_INVALID_NAME:              engine.ErrPkgInvalidName,
	C.ALPM_ERR_PKG_INVALID_ARCH:              engine.ErrPkgInvalidArch,
	C.ALPM_ERR_SIG_MISSING:                   engine.ErrSigMissing,
	C.ALPM_ERR_SIG_INVALID:                   engine.ErrSigInvalid,
	C.ALPM_ERR_UNSATISFIED_DEPS:              engine.ErrUnsatisfiedDeps,
	C.ALPM_ERR_CONFLICTING_DEPS:              engine.ErrConflictingDeps,
	C.ALPM_ERR_FILE_CONFLICTS:                engine.ErrFileConflicts,
	C.ALPM_ERR_RETRIEVE:                      engine.ErrRetrieve,
	C.ALPM_ERR_INVALID_REGEX:                 engine.ErrInvalidRegex,
	C.ALPM_ERR_LIBARCHIVE:                    engine.ErrLibarchive,
	C.ALPM_ERR_LIBCURL:                       engine.ErrLibcurl,
	C.ALPM_ERR_GPGME:                         engine.ErrGpgme,
	C.ALPM_ERR_MISSING_CAPABILITY_SIGNATURES: engine.ErrMissingCapabilitySignatures,
}

var reverse = func() map[engine.Code]C.alpm_errno_t {
	m := make(map[engine.Code]C.alpm_errno_t, len(codes))
	for c, code := range codes {
		m[code] = c
	}
	return m
}()

func toCode(c C.alpm_errno_t) engine.Code {
	if code, ok := codes[c]; ok {
		return code
	}
	return engine.Code(unmapped + int(c))
}

func fromCode(code engine.Code) C.alpm_errno_t {
	if c, ok := reverse[code]; ok {
		return c
	}
	return C.alpm_errno_t(int(code) - unmapped)
}
