// Package engine defines the boundary to a package-management engine.
//
// The boundary mirrors a C library: entities are opaque handles that may be
// Null, linked sequences are chains of List nodes, and failures are signalled
// by a Null handle or a non-zero return together with an error code read
// from Errno. Nothing in this package validates or owns anything; the alpm
// package layers ownership and lifetime rules on top.
package engine

// Opaque handles. The zero value of every handle is Null.
type (
	DB     uintptr
	Pkg    uintptr
	Group  uintptr
	Dep    uintptr
	Backup uintptr
	List   uintptr
	Stream uintptr
)

// Null is the zero handle.
const Null = 0

// PkgText selects a string field of a package.
type PkgText int

const (
	PkgName PkgText = iota
	PkgFilename
	PkgBase
	PkgVersion
	PkgDesc
	PkgURL
	PkgPackager
	PkgMD5Sum
	PkgSHA256Sum
	PkgArch
	PkgBase64Sig
)

// PkgInt selects an integer field of a package.
type PkgInt int

const (
	PkgBuildDate PkgInt = iota
	PkgInstallDate
	PkgSize
	PkgInstalledSize
	PkgOrigin
	PkgReason
	PkgValidation
	PkgHasScriptlet
)

// PkgList selects a list field of a package. All of them are owned by the
// engine.
type PkgList int

const (
	PkgLicenses PkgList = iota // strings
	PkgGroups                  // strings
	PkgDepends                 // Dep
	PkgOptDepends              // Dep
	PkgCheckDepends            // Dep
	PkgMakeDepends             // Dep
	PkgConflicts               // Dep
	PkgProvides                // Dep
	PkgReplaces                // Dep
	PkgBackup                  // Backup
)

// File is one entry of a package file list or mtree stream. Mode holds the
// permission bits only.
type File struct {
	Name []byte
	Size int64
	Mode uint32
}

// DepFields is the decoded content of a Dep handle. Nil slices are null
// pointers.
type DepFields struct {
	Name    []byte
	Version []byte
	Desc    []byte
	Mod     int
}

// Stream status codes returned by MtreeNext.
const (
	StreamOK  = 0
	StreamEOF = 1
)

// Engine is the full surface the safe layer calls into. Byte slices returned
// by the engine are copies; a nil slice stands for a null string.
type Engine interface {
	Release() int
	Errno() Code
	StrError(code Code) string
	SetLogFunc(fn LogFunc)

	LocalDB() DB
	SyncDBs() List
	RegisterSyncDB(name string, level int) DB
	UnregisterAllSyncDBs() int

	ListNext(l List) List
	ListData(l List) uintptr
	// ListFree releases the nodes of a list the caller owns.
	ListFree(l List)
	// ListFreeInner releases the string payloads of a list the caller owns.
	ListFreeInner(l List)
	String(p uintptr) []byte

	DBUnregister(db DB) int
	DBName(db DB) []byte
	DBSigLevel(db DB) int
	DBValid(db DB) int
	DBServers(db DB) List
	DBSetServers(db DB, servers []string) int
	DBAddServer(db DB, url string) int
	DBRemoveServer(db DB, url string) int
	DBPkg(db DB, name string) Pkg
	DBPkgCache(db DB) List
	DBGroup(db DB, name string) Group
	DBGroupCache(db DB) List
	// DBSearch stores an owned list of Pkg in ret. The packages themselves
	// stay owned by the engine.
	DBSearch(db DB, needles []string, ret *List) int
	DBUsage(db DB, usage *int) int
	DBSetUsage(db DB, usage int) int

	GroupName(g Group) []byte
	GroupPackages(g Group) List

	DepFields(d Dep) DepFields
	BackupFields(b Backup) (name, hash []byte)

	PkgText(p Pkg, f PkgText) []byte
	PkgInt(p Pkg, f PkgInt) int64
	PkgList(p Pkg, f PkgList) List
	PkgFileCount(p Pkg) int
	PkgFile(p Pkg, i int) File
	PkgFileContains(p Pkg, path string) (File, bool)
	PkgDB(p Pkg) DB
	PkgSig(p Pkg) ([]byte, int)
	PkgCheckMD5Sum(p Pkg) int
	PkgShouldIgnore(p Pkg) bool
	// PkgComputeRequiredBy and PkgComputeOptionalFor return lists the
	// caller owns, nodes and string payloads both.
	PkgComputeRequiredBy(p Pkg) List
	PkgComputeOptionalFor(p Pkg) List

	ChangelogOpen(p Pkg) Stream
	ChangelogRead(p Pkg, s Stream, buf []byte) int
	ChangelogClose(p Pkg, s Stream) int
	MtreeOpen(p Pkg) Stream
	MtreeNext(p Pkg, s Stream) (File, int)
	MtreeClose(p Pkg, s Stream) int

	VerCmp(a, b string) int
}

// Opener constructs an engine rooted at root with its databases under
// dbpath. On failure it returns a nil Engine and the error code.
type Opener func(root, dbpath string) (Engine, Code)

// LogLevel is the severity of an engine log message.
type LogLevel int

const (
	LogError LogLevel = 1 << iota
	LogWarning
	LogDebug
	LogFunction
)

// LogFunc receives engine log messages.
type LogFunc func(level LogLevel, msg string)
