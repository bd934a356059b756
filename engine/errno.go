package engine

import "fmt"

// Code is an engine error number. Zero means no error.
type Code int

const (
	OK Code = iota
	ErrMemory
	ErrSystem
	ErrBadPerms
	ErrNotAFile
	ErrNotADir
	ErrWrongArgs
	ErrDiskSpace
	ErrHandleNull
	ErrHandleNotNull
	ErrHandleLock
	ErrDBOpen
	ErrDBCreate
	ErrDBNull
	ErrDBNotNull
	ErrDBNotFound
	ErrDBInvalid
	ErrDBInvalidSig
	ErrDBVersion
	ErrDBWrite
	ErrDBRemove
	ErrServerBadURL
	ErrServerNone
	ErrTransNotNull
	ErrTransNull
	ErrPkgNotFound
	ErrPkgIgnored
	ErrPkgInvalid
	ErrPkgInvalidChecksum
	ErrPkgInvalidSig
	ErrPkgMissingSig
	ErrPkgOpen
	ErrPkgInvalidName
	ErrPkgInvalidArch
	ErrSigMissing
	ErrSigInvalid
	ErrUnsatisfiedDeps
	ErrConflictingDeps
	ErrFileConflicts
	ErrRetrieve
	ErrInvalidRegex
	ErrLibarchive
	ErrLibcurl
	ErrGpgme
	ErrMissingCapabilitySignatures
)

var codeNames = map[Code]string{
	OK:                             "ok",
	ErrMemory:                      "memory",
	ErrSystem:                      "system",
	ErrBadPerms:                    "bad permissions",
	ErrNotAFile:                    "not a file",
	ErrNotADir:                     "not a directory",
	ErrWrongArgs:                   "wrong arguments",
	ErrDiskSpace:                   "disk space",
	ErrHandleNull:                  "handle null",
	ErrHandleNotNull:               "handle not null",
	ErrHandleLock:                  "handle lock",
	ErrDBOpen:                      "db open",
	ErrDBCreate:                    "db create",
	ErrDBNull:                      "db null",
	ErrDBNotNull:                   "db not null",
	ErrDBNotFound:                  "db not found",
	ErrDBInvalid:                   "db invalid",
	ErrDBInvalidSig:                "db invalid signature",
	ErrDBVersion:                   "db version",
	ErrDBWrite:                     "db write",
	ErrDBRemove:                    "db remove",
	ErrServerBadURL:                "server bad url",
	ErrServerNone:                  "server none",
	ErrTransNotNull:                "transaction not null",
	ErrTransNull:                   "transaction null",
	ErrPkgNotFound:                 "package not found",
	ErrPkgIgnored:                  "package ignored",
	ErrPkgInvalid:                  "package invalid",
	ErrPkgInvalidChecksum:          "package invalid checksum",
	ErrPkgInvalidSig:               "package invalid signature",
	ErrPkgMissingSig:               "package missing signature",
	ErrPkgOpen:                     "package open",
	ErrPkgInvalidName:              "package invalid name",
	ErrPkgInvalidArch:              "package invalid arch",
	ErrSigMissing:                  "signature missing",
	ErrSigInvalid:                  "signature invalid",
	ErrUnsatisfiedDeps:             "unsatisfied dependencies",
	ErrConflictingDeps:             "conflicting dependencies",
	ErrFileConflicts:               "file conflicts",
	ErrRetrieve:                    "retrieve",
	ErrInvalidRegex:                "invalid regex",
	ErrLibarchive:                  "libarchive",
	ErrLibcurl:                     "libcurl",
	ErrGpgme:                       "gpgme",
	ErrMissingCapabilitySignatures: "missing capability signatures",
}

// Known reports whether c is one of the codes declared above.
func (c Code) Known() bool {
	_, ok := codeNames[c]
	return ok
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(c))
}

// IsNotFound reports whether c means the requested entity does not exist.
func (c Code) IsNotFound() bool {
	switch c {
	case ErrPkgNotFound, ErrDBNotFound, ErrNotAFile, ErrSigMissing, ErrPkgMissingSig:
		return true
	}
	return false
}
