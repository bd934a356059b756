//go:build libalpm

// Package libalpm implements engine.Engine on top of the system libalpm
// through cgo. It needs libalpm 14 or later and the libarchive headers.
//
// Handles are the library's own pointers. libalpm allocates them with
// malloc, so they never move and may be stored as uintptr.
//
// The library fills caches lazily and keeps one errno per handle, so the
// Engine runs one call at a time. Errno reports the code left by the last
// call that can fail, captured before the next call starts.
package libalpm

/*
#cgo pkg-config: libalpm libarchive
#include <stdlib.h>
#include <stdint.h>
#include <string.h>
#include <alpm.h>
#include <alpm_list.h>
#include <archive.h>
#include <archive_entry.h>

int setLogCallback(alpm_handle_t *handle, uintptr_t ctx);
void freeListInner(alpm_list_t *list);
*/
import "C"

import (
	"runtime/cgo"
	"sync"
	"unsafe"

	"github.com/git-pkgs/alpm/engine"
)

// Engine is a libalpm handle.
type Engine struct {
	h   *C.alpm_handle_t
	ref cgo.Handle

	// mu is held for every call into the library.
	mu    sync.Mutex
	errno engine.Code

	// logMu is separate from mu because the library logs from inside
	// calls that hold mu.
	logMu sync.Mutex
	logf  engine.LogFunc
}

var _ engine.Engine = (*Engine)(nil)

// New initializes libalpm for root and dbpath.
func New(root, dbpath string) (*Engine, engine.Code) {
	croot := C.CString(root)
	defer C.free(unsafe.Pointer(croot))
	cdbpath := C.CString(dbpath)
	defer C.free(unsafe.Pointer(cdbpath))

	var errno C.alpm_errno_t
	h := C.alpm_initialize(croot, cdbpath, &errno)
	if h == nil {
		return nil, toCode(errno)
	}
	e := &Engine{h: h}
	e.ref = cgo.NewHandle(e)
	C.setLogCallback(h, C.uintptr_t(e.ref))
	return e, engine.OK
}

// Open is an engine.Opener for New.
func Open(root, dbpath string) (engine.Engine, engine.Code) {
	e, code := New(root, dbpath)
	if e == nil {
		return nil, code
	}
	return e, engine.OK
}

// VerCmp compares two versions with the library's rules.
func VerCmp(a, b string) int {
	ca, cb := C.CString(a), C.CString(b)
	defer C.free(unsafe.Pointer(ca))
	defer C.free(unsafe.Pointer(cb))
	return int(C.alpm_pkg_vercmp(ca, cb))
}

func ptr[T any](h uintptr) *T {
	return (*T)(unsafe.Pointer(h))
}

func addr[T any](p *T) uintptr {
	return uintptr(unsafe.Pointer(p))
}

func goBytes(s *C.char) []byte {
	if s == nil {
		return nil
	}
	return C.GoBytes(unsafe.Pointer(s), C.int(C.strlen(s)))
}

func cList(ss []string) *C.alpm_list_t {
	var l *C.alpm_list_t
	for _, s := range ss {
		l = C.alpm_list_add(l, unsafe.Pointer(C.CString(s)))
	}
	return l
}

// keepErrno records the library's errno for the next Errno call. Callers
// defer it after the unlock so that it runs with mu still held.
func (e *Engine) keepErrno() {
	e.errno = toCode(C.alpm_errno(e.h))
}

func (e *Engine) Release() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	ret := int(C.alpm_release(e.h))
	e.ref.Delete()
	e.h = nil
	return ret
}

func (e *Engine) Errno() engine.Code {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errno
}

func (e *Engine) StrError(code engine.Code) string {
	return C.GoString(C.alpm_strerror(fromCode(code)))
}

func (e *Engine) SetLogFunc(fn engine.LogFunc) {
	e.logMu.Lock()
	defer e.logMu.Unlock()
	e.logf = fn
}

func (e *Engine) LocalDB() engine.DB {
	e.mu.Lock()
	defer e.mu.Unlock()
	return engine.DB(addr(C.alpm_get_localdb(e.h)))
}

func (e *Engine) SyncDBs() engine.List {
	e.mu.Lock()
	defer e.mu.Unlock()
	return engine.List(addr(C.alpm_get_syncdbs(e.h)))
}

func (e *Engine) RegisterSyncDB(name string, level int) engine.DB {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.keepErrno()
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return engine.DB(addr(C.alpm_register_syncdb(e.h, cname, C.int(level))))
}

func (e *Engine) UnregisterAllSyncDBs() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.keepErrno()
	return int(C.alpm_unregister_all_syncdbs(e.h))
}

func (e *Engine) ListNext(l engine.List) engine.List {
	e.mu.Lock()
	defer e.mu.Unlock()
	return engine.List(addr(C.alpm_list_next(ptr[C.alpm_list_t](uintptr(l)))))
}

func (e *Engine) ListData(l engine.List) uintptr {
	e.mu.Lock()
	defer e.mu.Unlock()
	return uintptr(ptr[C.alpm_list_t](uintptr(l)).data)
}

func (e *Engine) ListFree(l engine.List) {
	e.mu.Lock()
	defer e.mu.Unlock()
	C.alpm_list_free(ptr[C.alpm_list_t](uintptr(l)))
}

func (e *Engine) ListFreeInner(l engine.List) {
	e.mu.Lock()
	defer e.mu.Unlock()
	C.freeListInner(ptr[C.alpm_list_t](uintptr(l)))
}

func (e *Engine) String(p uintptr) []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return goBytes(ptr[C.char](p))
}

func db(h engine.DB) *C.alpm_db_t { return ptr[C.alpm_db_t](uintptr(h)) }

func (e *Engine) DBUnregister(h engine.DB) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.keepErrno()
	return int(C.alpm_db_unregister(db(h)))
}

func (e *Engine) DBName(h engine.DB) []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return goBytes(C.alpm_db_get_name(db(h)))
}

func (e *Engine) DBSigLevel(h engine.DB) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int(C.alpm_db_get_siglevel(db(h)))
}

func (e *Engine) DBValid(h engine.DB) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.keepErrno()
	return int(C.alpm_db_get_valid(db(h)))
}

func (e *Engine) DBServers(h engine.DB) engine.List {
	e.mu.Lock()
	defer e.mu.Unlock()
	return engine.List(addr(C.alpm_db_get_servers(db(h))))
}

// DBSetServers hands the new list, strings included, to the library.
func (e *Engine) DBSetServers(h engine.DB, servers []string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.keepErrno()
	return int(C.alpm_db_set_servers(db(h), cList(servers)))
}

func (e *Engine) DBAddServer(h engine.DB, url string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.keepErrno()
	curl := C.CString(url)
	defer C.free(unsafe.Pointer(curl))
	return int(C.alpm_db_add_server(db(h), curl))
}

func (e *Engine) DBRemoveServer(h engine.DB, url string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.keepErrno()
	curl := C.CString(url)
	defer C.free(unsafe.Pointer(curl))
	return int(C.alpm_db_remove_server(db(h), curl))
}

func (e *Engine) DBPkg(h engine.DB, name string) engine.Pkg {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.keepErrno()
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return engine.Pkg(addr(C.alpm_db_get_pkg(db(h), cname)))
}

func (e *Engine) DBPkgCache(h engine.DB) engine.List {
	e.mu.Lock()
	defer e.mu.Unlock()
	return engine.List(addr(C.alpm_db_get_pkgcache(db(h))))
}

func (e *Engine) DBGroup(h engine.DB, name string) engine.Group {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.keepErrno()
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return engine.Group(addr(C.alpm_db_get_group(db(h), cname)))
}

func (e *Engine) DBGroupCache(h engine.DB) engine.List {
	e.mu.Lock()
	defer e.mu.Unlock()
	return engine.List(addr(C.alpm_db_get_groupcache(db(h))))
}

func (e *Engine) DBSearch(h engine.DB, needles []string, ret *engine.List) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.keepErrno()
	cneedles := cList(needles)
	defer func() {
		C.freeListInner(cneedles)
		C.alpm_list_free(cneedles)
	}()
	var out *C.alpm_list_t
	rc := int(C.alpm_db_search(db(h), cneedles, &out))
	*ret = engine.List(addr(out))
	return rc
}

func (e *Engine) DBUsage(h engine.DB, usage *int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.keepErrno()
	var u C.int
	rc := int(C.alpm_db_get_usage(db(h), &u))
	*usage = int(u)
	return rc
}

func (e *Engine) DBSetUsage(h engine.DB, usage int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.keepErrno()
	return int(C.alpm_db_set_usage(db(h), C.int(usage)))
}

func (e *Engine) GroupName(g engine.Group) []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return goBytes(ptr[C.alpm_group_t](uintptr(g)).name)
}

func (e *Engine) GroupPackages(g engine.Group) engine.List {
	e.mu.Lock()
	defer e.mu.Unlock()
	return engine.List(addr(ptr[C.alpm_group_t](uintptr(g)).packages))
}

func (e *Engine) DepFields(d engine.Dep) engine.DepFields {
	e.mu.Lock()
	defer e.mu.Unlock()
	dep := ptr[C.alpm_depend_t](uintptr(d))
	return engine.DepFields{
		Name:    goBytes(dep.name),
		Version: goBytes(dep.version),
		Desc:    goBytes(dep.desc),
		Mod:     int(dep.mod),
	}
}

func (e *Engine) BackupFields(b engine.Backup) (name, hash []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	bk := ptr[C.alpm_backup_t](uintptr(b))
	return goBytes(bk.name), goBytes(bk.hash)
}

func pkg(p engine.Pkg) *C.alpm_pkg_t { return ptr[C.alpm_pkg_t](uintptr(p)) }

func (e *Engine) PkgText(p engine.Pkg, f engine.PkgText) []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	h := pkg(p)
	var s *C.char
	switch f {
	case engine.PkgName:
		s = C.alpm_pkg_get_name(h)
	case engine.PkgFilename:
		s = C.alpm_pkg_get_filename(h)
	case engine.PkgBase:
		s = C.alpm_pkg_get_base(h)
	case engine.PkgVersion:
		s = C.alpm_pkg_get_version(h)
	case engine.PkgDesc:
		s = C.alpm_pkg_get_desc(h)
	case engine.PkgURL:
		s = C.alpm_pkg_get_url(h)
	case engine.PkgPackager:
		s = C.alpm_pkg_get_packager(h)
	case engine.PkgMD5Sum:
		s = C.alpm_pkg_get_md5sum(h)
	case engine.PkgSHA256Sum:
		s = C.alpm_pkg_get_sha256sum(h)
	case engine.PkgArch:
		s = C.alpm_pkg_get_arch(h)
	case engine.PkgBase64Sig:
		s = C.alpm_pkg_get_base64_sig(h)
	}
	return goBytes(s)
}

func (e *Engine) PkgInt(p engine.Pkg, f engine.PkgInt) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	h := pkg(p)
	switch f {
	case engine.PkgBuildDate:
		return int64(C.alpm_pkg_get_builddate(h))
	case engine.PkgInstallDate:
		return int64(C.alpm_pkg_get_installdate(h))
	case engine.PkgSize:
		return int64(C.alpm_pkg_get_size(h))
	case engine.PkgInstalledSize:
		return int64(C.alpm_pkg_get_isize(h))
	case engine.PkgOrigin:
		return int64(C.alpm_pkg_get_origin(h))
	case engine.PkgReason:
		return int64(C.alpm_pkg_get_reason(h))
	case engine.PkgValidation:
		return int64(C.alpm_pkg_get_validation(h))
	case engine.PkgHasScriptlet:
		return int64(C.alpm_pkg_has_scriptlet(h))
	}
	return 0
}

func (e *Engine) PkgList(p engine.Pkg, f engine.PkgList) engine.List {
	e.mu.Lock()
	defer e.mu.Unlock()
	h := pkg(p)
	var l *C.alpm_list_t
	switch f {
	case engine.PkgLicenses:
		l = C.alpm_pkg_get_licenses(h)
	case engine.PkgGroups:
		l = C.alpm_pkg_get_groups(h)
	case engine.PkgDepends:
		l = C.alpm_pkg_get_depends(h)
	case engine.PkgOptDepends:
		l = C.alpm_pkg_get_optdepends(h)
	case engine.PkgCheckDepends:
		l = C.alpm_pkg_get_checkdepends(h)
	case engine.PkgMakeDepends:
		l = C.alpm_pkg_get_makedepends(h)
	case engine.PkgConflicts:
		l = C.alpm_pkg_get_conflicts(h)
	case engine.PkgProvides:
		l = C.alpm_pkg_get_provides(h)
	case engine.PkgReplaces:
		l = C.alpm_pkg_get_replaces(h)
	case engine.PkgBackup:
		l = C.alpm_pkg_get_backup(h)
	}
	return engine.List(addr(l))
}

func file(f *C.alpm_file_t) engine.File {
	return engine.File{Name: goBytes(f.name), Size: int64(f.size), Mode: uint32(f.mode) & 0o777}
}

func (e *Engine) PkgFileCount(p engine.Pkg) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	fl := C.alpm_pkg_get_files(pkg(p))
	if fl == nil {
		return 0
	}
	return int(fl.count)
}

func (e *Engine) PkgFile(p engine.Pkg, i int) engine.File {
	e.mu.Lock()
	defer e.mu.Unlock()
	fl := C.alpm_pkg_get_files(pkg(p))
	files := unsafe.Slice(fl.files, int(fl.count))
	return file(&files[i])
}

func (e *Engine) PkgFileContains(p engine.Pkg, path string) (engine.File, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	f := C.alpm_filelist_contains(C.alpm_pkg_get_files(pkg(p)), cpath)
	if f == nil {
		return engine.File{}, false
	}
	return file(f), true
}

func (e *Engine) PkgDB(p engine.Pkg) engine.DB {
	e.mu.Lock()
	defer e.mu.Unlock()
	return engine.DB(addr(C.alpm_pkg_get_db(pkg(p))))
}

func (e *Engine) PkgSig(p engine.Pkg) ([]byte, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.keepErrno()
	var sig *C.uchar
	var n C.size_t
	if rc := C.alpm_pkg_get_sig(pkg(p), &sig, &n); rc != 0 {
		return nil, int(rc)
	}
	defer C.free(unsafe.Pointer(sig))
	return C.GoBytes(unsafe.Pointer(sig), C.int(n)), 0
}

func (e *Engine) PkgCheckMD5Sum(p engine.Pkg) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.keepErrno()
	return int(C.alpm_pkg_checkmd5sum(pkg(p)))
}

func (e *Engine) PkgShouldIgnore(p engine.Pkg) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return C.alpm_pkg_should_ignore(e.h, pkg(p)) != 0
}

func (e *Engine) PkgComputeRequiredBy(p engine.Pkg) engine.List {
	e.mu.Lock()
	defer e.mu.Unlock()
	return engine.List(addr(C.alpm_pkg_compute_requiredby(pkg(p))))
}

func (e *Engine) PkgComputeOptionalFor(p engine.Pkg) engine.List {
	e.mu.Lock()
	defer e.mu.Unlock()
	return engine.List(addr(C.alpm_pkg_compute_optionalfor(pkg(p))))
}

func (e *Engine) ChangelogOpen(p engine.Pkg) engine.Stream {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.keepErrno()
	return engine.Stream(uintptr(C.alpm_pkg_changelog_open(pkg(p))))
}

func (e *Engine) ChangelogRead(p engine.Pkg, s engine.Stream, buf []byte) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(buf) == 0 {
		return 0
	}
	return int(C.alpm_pkg_changelog_read(unsafe.Pointer(&buf[0]), C.size_t(len(buf)), pkg(p), unsafe.Pointer(uintptr(s))))
}

func (e *Engine) ChangelogClose(p engine.Pkg, s engine.Stream) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.keepErrno()
	return int(C.alpm_pkg_changelog_close(pkg(p), unsafe.Pointer(uintptr(s))))
}

func (e *Engine) MtreeOpen(p engine.Pkg) engine.Stream {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.keepErrno()
	return engine.Stream(addr(C.alpm_pkg_mtree_open(pkg(p))))
}

func (e *Engine) MtreeNext(p engine.Pkg, s engine.Stream) (engine.File, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var entry *C.struct_archive_entry
	status := int(C.alpm_pkg_mtree_next(pkg(p), ptr[C.struct_archive](uintptr(s)), &entry))
	switch status {
	case C.ARCHIVE_OK:
		return engine.File{
			Name: goBytes(C.archive_entry_pathname(entry)),
			Size: int64(C.archive_entry_size(entry)),
			Mode: uint32(C.archive_entry_mode(entry)) & 0o777,
		}, engine.StreamOK
	case C.ARCHIVE_EOF:
		return engine.File{}, engine.StreamEOF
	}
	e.errno = engine.ErrLibarchive
	return engine.File{}, status
}

func (e *Engine) MtreeClose(p engine.Pkg, s engine.Stream) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.keepErrno()
	return int(C.alpm_pkg_mtree_close(pkg(p), ptr[C.struct_archive](uintptr(s))))
}

func (e *Engine) VerCmp(a, b string) int {
	return VerCmp(a, b)
}
