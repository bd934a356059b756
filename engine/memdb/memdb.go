// Package memdb is an engine that keeps package databases in memory.
//
// Databases are read lazily from YAML files: the local database from
// <dbpath>/local.yaml and a sync database named N from <dbpath>/sync/N.yaml.
// Every handle the engine hands out is an entry in an allocation table, so a
// handle that outlives the memory it refers to, or a list released twice, is
// caught with a panic instead of going unnoticed. Outstanding reports how
// many caller-owned allocations have not been released yet.
package memdb

import (
	"bytes"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/git-pkgs/alpm/engine"
	"github.com/git-pkgs/alpm/internal/depstring"
)

// Signature levels and usage bits as the engine numbers them.
const (
	sigPackage          = 1 << 0
	sigPackageOptional  = 1 << 1
	sigDatabase         = 1 << 10
	sigDatabaseOptional = 1 << 11
	sigUseDefault       = 1 << 30

	defaultSigLevel = sigPackage | sigPackageOptional | sigDatabase | sigDatabaseOptional

	usageSearch = 1 << 1
	usageAll    = 1<<4 - 1

	originLocalDB = 2
	originSyncDB  = 3
)

type node struct {
	data uintptr
	next engine.List
}

type depObj struct {
	fields engine.DepFields
	spec   depstring.Spec
}

type backupObj struct {
	name, hash []byte
}

type groupObj struct {
	name []byte
	pkgs engine.List
}

type changelogStream struct {
	r *bytes.Reader
}

type mtreeStream struct {
	entries []mtreeFixture
	pos     int
}

type pkgObj struct {
	id    uintptr
	db    *database
	f     pkgFixture
	lists map[engine.PkgList]engine.List
	deps  map[engine.PkgList][]depstring.Spec
}

type database struct {
	id      uintptr
	name    string
	local   bool
	path    string
	level   int
	usage   int
	servers []string

	// serverList and its strings are rebuilt whenever servers change.
	serverList   engine.List
	serverAllocs []uintptr

	loaded    bool
	loadErr   engine.Code
	invalid   bool
	pkgs      []*pkgObj
	byName    map[string]*pkgObj
	pkgList   engine.List
	groups    map[string]uintptr
	groupList engine.List
	allocs    []uintptr
}

// Engine implements engine.Engine.
type Engine struct {
	mu     sync.Mutex
	root   string
	dbpath string

	seq   uintptr
	objs  map[uintptr]any
	owned map[uintptr]bool

	errno    engine.Code
	logf     engine.LogFunc
	released bool

	local     *database
	syncs     []*database
	syncList  engine.List
	syncNodes []uintptr
}

var _ engine.Engine = (*Engine)(nil)

// Open satisfies engine.Opener.
func Open(root, dbpath string) (engine.Engine, engine.Code) {
	e, code := New(root, dbpath)
	if e == nil {
		return nil, code
	}
	return e, engine.OK
}

// New opens an engine. dbpath must be an existing directory.
func New(root, dbpath string) (*Engine, engine.Code) {
	st, err := os.Stat(dbpath)
	if err != nil {
		return nil, engine.ErrDBOpen
	}
	if !st.IsDir() {
		return nil, engine.ErrNotADir
	}
	e := &Engine{
		root:   root,
		dbpath: dbpath,
		objs:   make(map[uintptr]any),
		owned:  make(map[uintptr]bool),
	}
	e.local = e.newDB("local", true, filepath.Join(dbpath, "local.yaml"), 0)
	return e, engine.OK
}

// Outstanding returns the number of caller-owned allocations that have not
// been released.
func (e *Engine) Outstanding() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.owned)
}

// Live reports whether a handle still refers to allocated memory.
func (e *Engine) Live(h uintptr) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.objs[h]
	return ok
}

func (e *Engine) alloc(v any) uintptr {
	e.seq++
	e.objs[e.seq] = v
	return e.seq
}

func (e *Engine) allocOwned(v any) uintptr {
	id := e.alloc(v)
	e.owned[id] = true
	return id
}

func (e *Engine) get(id uintptr) any {
	v, ok := e.objs[id]
	if !ok {
		panic(fmt.Sprintf("memdb: use of freed or invalid handle %#x", id))
	}
	return v
}

func (e *Engine) free(id uintptr) {
	if _, ok := e.objs[id]; !ok {
		panic(fmt.Sprintf("memdb: double free of %#x", id))
	}
	delete(e.objs, id)
	delete(e.owned, id)
}

// buildList links items into a list. Engine-owned nodes are appended to
// track; caller-owned nodes are registered in the owned table.
func (e *Engine) buildList(items []uintptr, track *[]uintptr, owned bool) engine.List {
	var head engine.List
	for i := len(items) - 1; i >= 0; i-- {
		n := &node{data: items[i], next: head}
		var id uintptr
		if owned {
			id = e.allocOwned(n)
		} else {
			id = e.alloc(n)
			*track = append(*track, id)
		}
		head = engine.List(id)
	}
	return head
}

func (e *Engine) buildStrings(items []string, track *[]uintptr) engine.List {
	ids := make([]uintptr, len(items))
	for i, s := range items {
		ids[i] = e.alloc([]byte(s))
		*track = append(*track, ids[i])
	}
	return e.buildList(ids, track, false)
}

func (e *Engine) setErr(code engine.Code) {
	e.errno = code
}

func (e *Engine) log(level engine.LogLevel, format string, args ...any) {
	if e.logf != nil {
		e.logf(level, fmt.Sprintf(format, args...))
	}
}

func (e *Engine) checkOpen() {
	if e.released {
		panic("memdb: use of released engine")
	}
}

func (e *Engine) Release() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.checkOpen()
	for _, db := range e.syncs {
		e.freeDB(db)
	}
	e.freeDB(e.local)
	e.syncs = nil
	e.freeSyncList()
	e.released = true
	return 0
}

func (e *Engine) Errno() engine.Code {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errno
}

func (e *Engine) StrError(code engine.Code) string {
	if !code.Known() {
		return "unexpected error"
	}
	return code.String()
}

func (e *Engine) SetLogFunc(fn engine.LogFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logf = fn
}

func (e *Engine) newDB(name string, local bool, path string, level int) *database {
	db := &database{
		name:  name,
		local: local,
		path:  path,
		level: level,
		usage: usageAll,
	}
	db.id = e.alloc(db)
	return db
}

func (e *Engine) freeDB(db *database) {
	for _, id := range db.allocs {
		e.free(id)
	}
	for _, id := range db.serverAllocs {
		e.free(id)
	}
	db.allocs, db.serverAllocs = nil, nil
	e.free(db.id)
}

func (e *Engine) freeSyncList() {
	for _, id := range e.syncNodes {
		e.free(id)
	}
	e.syncNodes = nil
	e.syncList = engine.Null
}

func (e *Engine) rebuildSyncList() {
	e.freeSyncList()
	ids := make([]uintptr, len(e.syncs))
	for i, db := range e.syncs {
		ids[i] = db.id
	}
	e.syncList = e.buildList(ids, &e.syncNodes, false)
}

func (e *Engine) LocalDB() engine.DB {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.checkOpen()
	return engine.DB(e.local.id)
}

func (e *Engine) SyncDBs() engine.List {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.checkOpen()
	return e.syncList
}

func (e *Engine) RegisterSyncDB(name string, level int) engine.DB {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.checkOpen()

	if name == "" || strings.ContainsRune(name, '/') {
		e.setErr(engine.ErrWrongArgs)
		return engine.Null
	}
	if name == "local" {
		e.setErr(engine.ErrDBNotNull)
		return engine.Null
	}
	for _, db := range e.syncs {
		if db.name == name {
			e.setErr(engine.ErrDBNotNull)
			return engine.Null
		}
	}
	if level&sigUseDefault != 0 {
		level = defaultSigLevel
	}
	db := e.newDB(name, false, filepath.Join(e.dbpath, "sync", name+".yaml"), level)
	e.syncs = append(e.syncs, db)
	e.rebuildSyncList()
	e.log(engine.LogDebug, "registering sync database '%s'", name)
	return engine.DB(db.id)
}

func (e *Engine) UnregisterAllSyncDBs() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.checkOpen()
	for _, db := range e.syncs {
		e.log(engine.LogDebug, "unregistering database '%s'", db.name)
		e.freeDB(db)
	}
	e.syncs = nil
	e.rebuildSyncList()
	return 0
}

func (e *Engine) ListNext(l engine.List) engine.List {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.get(uintptr(l)).(*node).next
}

func (e *Engine) ListData(l engine.List) uintptr {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.get(uintptr(l)).(*node).data
}

func (e *Engine) ListFree(l engine.List) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for l != engine.Null {
		id := uintptr(l)
		if !e.owned[id] {
			panic(fmt.Sprintf("memdb: free of engine-owned list node %#x", id))
		}
		next := e.get(id).(*node).next
		e.free(id)
		l = next
	}
}

func (e *Engine) ListFreeInner(l engine.List) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for ; l != engine.Null; l = e.get(uintptr(l)).(*node).next {
		data := e.get(uintptr(l)).(*node).data
		if !e.owned[data] {
			panic(fmt.Sprintf("memdb: free of engine-owned payload %#x", data))
		}
		e.free(data)
	}
}

func (e *Engine) String(p uintptr) []byte {
	if p == engine.Null {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return bytes.Clone(e.get(p).([]byte))
}

func (e *Engine) db(h engine.DB) *database {
	e.checkOpen()
	return e.get(uintptr(h)).(*database)
}

func (e *Engine) pkg(h engine.Pkg) *pkgObj {
	e.checkOpen()
	return e.get(uintptr(h)).(*pkgObj)
}

func (e *Engine) DBUnregister(h engine.DB) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	db := e.db(h)
	for i, s := range e.syncs {
		if s == db {
			e.syncs = append(e.syncs[:i], e.syncs[i+1:]...)
			e.log(engine.LogDebug, "unregistering database '%s'", db.name)
			e.freeDB(db)
			e.rebuildSyncList()
			return 0
		}
	}
	e.setErr(engine.ErrDBNotFound)
	return -1
}

func (e *Engine) DBName(h engine.DB) []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return []byte(e.db(h).name)
}

func (e *Engine) DBSigLevel(h engine.DB) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.db(h).level
}

func (e *Engine) DBValid(h engine.DB) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	db := e.db(h)
	e.load(db)
	switch {
	case db.loadErr != engine.OK:
		e.setErr(db.loadErr)
		return -1
	case db.invalid:
		e.setErr(engine.ErrDBInvalidSig)
		return -1
	}
	return 0
}

func (e *Engine) DBServers(h engine.DB) engine.List {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.db(h).serverList
}

func sanitizeURL(url string) string {
	return strings.TrimSuffix(url, "/")
}

func (e *Engine) setServers(db *database, servers []string) {
	for _, id := range db.serverAllocs {
		e.free(id)
	}
	db.serverAllocs = nil
	db.servers = servers
	db.serverList = e.buildStrings(servers, &db.serverAllocs)
}

func (e *Engine) DBSetServers(h engine.DB, servers []string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	db := e.db(h)
	clean := make([]string, len(servers))
	for i, s := range servers {
		clean[i] = sanitizeURL(s)
	}
	e.setServers(db, clean)
	return 0
}

func (e *Engine) DBAddServer(h engine.DB, url string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	db := e.db(h)
	url = sanitizeURL(url)
	if url == "" {
		e.setErr(engine.ErrWrongArgs)
		return -1
	}
	e.setServers(db, append(append([]string(nil), db.servers...), url))
	e.log(engine.LogDebug, "adding new server URL to database '%s': %s", db.name, url)
	return 0
}

// DBRemoveServer returns 1 without setting an error when url is not a
// server of the database.
func (e *Engine) DBRemoveServer(h engine.DB, url string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	db := e.db(h)
	url = sanitizeURL(url)
	for i, s := range db.servers {
		if s == url {
			next := append(append([]string(nil), db.servers[:i]...), db.servers[i+1:]...)
			e.setServers(db, next)
			e.log(engine.LogDebug, "removed server URL from database '%s': %s", db.name, url)
			return 0
		}
	}
	return 1
}

// load reads the fixture of db once.
func (e *Engine) load(db *database) {
	if db.loaded {
		return
	}
	db.loaded = true
	db.byName = make(map[string]*pkgObj)
	db.groups = make(map[string]uintptr)

	fx, err := loadFixture(db.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if !db.local {
			db.loadErr = engine.ErrDBNotFound
		}
		e.log(engine.LogDebug, "database path for tree %s does not exist", db.name)
		return
	case err != nil:
		db.loadErr = engine.ErrDBInvalid
		e.log(engine.LogError, "could not load database %s: %v", db.name, err)
		return
	}
	db.invalid = fx.InvalidSignature

	pkgIDs := make([]uintptr, 0, len(fx.Packages))
	groupMembers := make(map[string][]uintptr)
	var groupOrder []string
	for _, f := range fx.Packages {
		p := &pkgObj{db: db, f: f}
		sort.Strings(p.f.Files)
		p.id = e.alloc(p)
		db.allocs = append(db.allocs, p.id)
		e.buildPkgLists(p)
		db.pkgs = append(db.pkgs, p)
		db.byName[f.Name] = p
		pkgIDs = append(pkgIDs, p.id)
		for _, g := range f.Groups {
			if _, seen := groupMembers[g]; !seen {
				groupOrder = append(groupOrder, g)
			}
			groupMembers[g] = append(groupMembers[g], p.id)
		}
	}
	db.pkgList = e.buildList(pkgIDs, &db.allocs, false)

	groupIDs := make([]uintptr, 0, len(groupOrder))
	for _, name := range groupOrder {
		g := &groupObj{name: []byte(name)}
		g.pkgs = e.buildList(groupMembers[name], &db.allocs, false)
		id := e.alloc(g)
		db.allocs = append(db.allocs, id)
		db.groups[name] = id
		groupIDs = append(groupIDs, id)
	}
	db.groupList = e.buildList(groupIDs, &db.allocs, false)
	e.log(engine.LogDebug, "loaded %d packages from database %s", len(db.pkgs), db.name)
}

func (e *Engine) buildPkgLists(p *pkgObj) {
	db := p.db
	p.lists = make(map[engine.PkgList]engine.List)
	p.deps = make(map[engine.PkgList][]depstring.Spec)
	p.lists[engine.PkgLicenses] = e.buildStrings(p.f.Licenses, &db.allocs)
	p.lists[engine.PkgGroups] = e.buildStrings(p.f.Groups, &db.allocs)

	depLists := map[engine.PkgList][]string{
		engine.PkgDepends:      p.f.Depends,
		engine.PkgOptDepends:   p.f.OptDepends,
		engine.PkgCheckDepends: p.f.CheckDepends,
		engine.PkgMakeDepends:  p.f.MakeDepends,
		engine.PkgConflicts:    p.f.Conflicts,
		engine.PkgProvides:     p.f.Provides,
		engine.PkgReplaces:     p.f.Replaces,
	}
	for kind, raw := range depLists {
		ids := make([]uintptr, len(raw))
		specs := make([]depstring.Spec, len(raw))
		for i, s := range raw {
			spec := depstring.Parse(s)
			specs[i] = spec
			d := &depObj{spec: spec, fields: engine.DepFields{Name: []byte(spec.Name), Mod: spec.Mod}}
			if spec.Mod != depstring.ModAny {
				d.fields.Version = []byte(spec.Version)
			}
			if spec.HasDesc {
				d.fields.Desc = []byte(spec.Desc)
			}
			ids[i] = e.alloc(d)
			db.allocs = append(db.allocs, ids[i])
		}
		p.deps[kind] = specs
		p.lists[kind] = e.buildList(ids, &db.allocs, false)
	}

	ids := make([]uintptr, len(p.f.Backup))
	for i, b := range p.f.Backup {
		ids[i] = e.alloc(&backupObj{name: []byte(b.Path), hash: []byte(b.Hash)})
		db.allocs = append(db.allocs, ids[i])
	}
	p.lists[engine.PkgBackup] = e.buildList(ids, &db.allocs, false)
}

func (e *Engine) DBPkg(h engine.DB, name string) engine.Pkg {
	e.mu.Lock()
	defer e.mu.Unlock()
	db := e.db(h)
	e.load(db)
	if p, ok := db.byName[name]; ok {
		return engine.Pkg(p.id)
	}
	e.setErr(engine.ErrPkgNotFound)
	return engine.Null
}

func (e *Engine) DBPkgCache(h engine.DB) engine.List {
	e.mu.Lock()
	defer e.mu.Unlock()
	db := e.db(h)
	e.load(db)
	return db.pkgList
}

func (e *Engine) DBGroup(h engine.DB, name string) engine.Group {
	e.mu.Lock()
	defer e.mu.Unlock()
	db := e.db(h)
	e.load(db)
	// A missing group is a null handle with errno cleared, as in libalpm.
	e.setErr(engine.OK)
	if id, ok := db.groups[name]; ok {
		return engine.Group(id)
	}
	return engine.Null
}

func (e *Engine) DBGroupCache(h engine.DB) engine.List {
	e.mu.Lock()
	defer e.mu.Unlock()
	db := e.db(h)
	e.load(db)
	return db.groupList
}

func (e *Engine) DBUsage(h engine.DB, usage *int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	*usage = e.db(h).usage
	return 0
}

func (e *Engine) DBSetUsage(h engine.DB, usage int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.db(h).usage = usage
	return 0
}

func (e *Engine) GroupName(g engine.Group) []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.checkOpen()
	return bytes.Clone(e.get(uintptr(g)).(*groupObj).name)
}

func (e *Engine) GroupPackages(g engine.Group) engine.List {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.checkOpen()
	return e.get(uintptr(g)).(*groupObj).pkgs
}

func (e *Engine) DepFields(d engine.Dep) engine.DepFields {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.checkOpen()
	f := e.get(uintptr(d)).(*depObj).fields
	return engine.DepFields{
		Name:    bytes.Clone(f.Name),
		Version: bytes.Clone(f.Version),
		Desc:    bytes.Clone(f.Desc),
		Mod:     f.Mod,
	}
}

func (e *Engine) BackupFields(b engine.Backup) (name, hash []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.checkOpen()
	o := e.get(uintptr(b)).(*backupObj)
	return bytes.Clone(o.name), bytes.Clone(o.hash)
}

func optional(s *string) []byte {
	if s == nil {
		return nil
	}
	return []byte(*s)
}

func (e *Engine) PkgText(h engine.Pkg, f engine.PkgText) []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.pkg(h)
	switch f {
	case engine.PkgName:
		return []byte(p.f.Name)
	case engine.PkgVersion:
		return []byte(p.f.Version)
	case engine.PkgFilename:
		return optional(p.f.Filename)
	case engine.PkgBase:
		return optional(p.f.Base)
	case engine.PkgDesc:
		return optional(p.f.Desc)
	case engine.PkgURL:
		return optional(p.f.URL)
	case engine.PkgPackager:
		return optional(p.f.Packager)
	case engine.PkgMD5Sum:
		return optional(p.f.MD5Sum)
	case engine.PkgSHA256Sum:
		return optional(p.f.SHA256Sum)
	case engine.PkgArch:
		return optional(p.f.Arch)
	case engine.PkgBase64Sig:
		return optional(p.f.PGPSig)
	}
	return nil
}

func (e *Engine) PkgInt(h engine.Pkg, f engine.PkgInt) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.pkg(h)
	switch f {
	case engine.PkgBuildDate:
		return p.f.BuildDate
	case engine.PkgInstallDate:
		return p.f.InstallDate
	case engine.PkgSize:
		return p.f.Size
	case engine.PkgInstalledSize:
		return p.f.InstalledSize
	case engine.PkgOrigin:
		if p.db.local {
			return originLocalDB
		}
		return originSyncDB
	case engine.PkgReason:
		return p.f.Reason
	case engine.PkgValidation:
		return p.f.Validation
	case engine.PkgHasScriptlet:
		if p.f.Scriptlet {
			return 1
		}
	}
	return 0
}

func (e *Engine) PkgList(h engine.Pkg, f engine.PkgList) engine.List {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pkg(h).lists[f]
}

func (e *Engine) PkgFileCount(h engine.Pkg) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pkg(h).f.Files)
}

func (e *Engine) PkgFile(h engine.Pkg, i int) engine.File {
	e.mu.Lock()
	defer e.mu.Unlock()
	return engine.File{Name: []byte(e.pkg(h).f.Files[i])}
}

func (e *Engine) PkgFileContains(h engine.Pkg, path string) (engine.File, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	files := e.pkg(h).f.Files
	i := sort.SearchStrings(files, path)
	if i < len(files) && files[i] == path {
		return engine.File{Name: []byte(path)}, true
	}
	return engine.File{}, false
}

func (e *Engine) PkgDB(h engine.Pkg) engine.DB {
	e.mu.Lock()
	defer e.mu.Unlock()
	return engine.DB(e.pkg(h).db.id)
}

func (e *Engine) PkgSig(h engine.Pkg) ([]byte, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.pkg(h)
	if p.f.PGPSig == nil {
		e.setErr(engine.ErrSigMissing)
		return nil, -1
	}
	sig, err := base64.StdEncoding.DecodeString(*p.f.PGPSig)
	if err != nil {
		e.setErr(engine.ErrSigInvalid)
		return nil, -1
	}
	return sig, 0
}

// PkgCheckMD5Sum hashes the cached package file under
// <root>/var/cache/pacman/pkg.
func (e *Engine) PkgCheckMD5Sum(h engine.Pkg) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.pkg(h)
	if p.db.local || p.f.Filename == nil || p.f.MD5Sum == nil {
		e.setErr(engine.ErrWrongArgs)
		return -1
	}
	data, err := os.ReadFile(filepath.Join(e.root, "var", "cache", "pacman", "pkg", *p.f.Filename))
	if err != nil {
		e.setErr(engine.ErrPkgNotFound)
		return -1
	}
	sum := md5.Sum(data)
	if hex.EncodeToString(sum[:]) != *p.f.MD5Sum {
		e.setErr(engine.ErrPkgInvalidChecksum)
		return -1
	}
	return 0
}

func (e *Engine) PkgShouldIgnore(h engine.Pkg) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pkg(h)
	return false
}

func (e *Engine) PkgComputeRequiredBy(h engine.Pkg) engine.List {
	return e.computeReverse(h, engine.PkgDepends)
}

func (e *Engine) PkgComputeOptionalFor(h engine.Pkg) engine.List {
	return e.computeReverse(h, engine.PkgOptDepends)
}

func (e *Engine) ChangelogOpen(h engine.Pkg) engine.Stream {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.pkg(h)
	if !p.db.local || p.f.Changelog == nil {
		e.setErr(engine.ErrNotAFile)
		return engine.Null
	}
	return engine.Stream(e.allocOwned(&changelogStream{r: bytes.NewReader([]byte(*p.f.Changelog))}))
}

func (e *Engine) ChangelogRead(h engine.Pkg, s engine.Stream, buf []byte) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pkg(h)
	n, _ := e.get(uintptr(s)).(*changelogStream).r.Read(buf)
	return n
}

func (e *Engine) ChangelogClose(h engine.Pkg, s engine.Stream) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pkg(h)
	e.get(uintptr(s))
	e.free(uintptr(s))
	return 0
}

func (e *Engine) MtreeOpen(h engine.Pkg) engine.Stream {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.pkg(h)
	if !p.db.local || p.f.Mtree == nil {
		e.setErr(engine.ErrNotAFile)
		return engine.Null
	}
	return engine.Stream(e.allocOwned(&mtreeStream{entries: p.f.Mtree}))
}

func (e *Engine) MtreeNext(h engine.Pkg, s engine.Stream) (engine.File, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pkg(h)
	m := e.get(uintptr(s)).(*mtreeStream)
	if m.pos >= len(m.entries) {
		return engine.File{}, engine.StreamEOF
	}
	ent := m.entries[m.pos]
	m.pos++
	return engine.File{Name: []byte(ent.Path), Size: ent.Size, Mode: ent.Mode}, engine.StreamOK
}

func (e *Engine) MtreeClose(h engine.Pkg, s engine.Stream) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pkg(h)
	e.get(uintptr(s))
	e.free(uintptr(s))
	return 0
}

func (e *Engine) VerCmp(a, b string) int {
	return VerCmp(a, b)
}
