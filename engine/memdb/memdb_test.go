package memdb

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/git-pkgs/alpm/engine"
)

const testDBPath = "../../testdata/db"

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, code := New(t.TempDir(), testDBPath)
	if e == nil {
		t.Fatalf("New failed: %v", code)
	}
	t.Cleanup(func() { e.Release() })
	return e
}

func register(t *testing.T, e *Engine, name string) engine.DB {
	t.Helper()
	db := e.RegisterSyncDB(name, 0)
	if db == engine.Null {
		t.Fatalf("RegisterSyncDB(%q) failed: %v", name, e.Errno())
	}
	return db
}

func walk(e *Engine, l engine.List) []uintptr {
	var out []uintptr
	for ; l != engine.Null; l = e.ListNext(l) {
		out = append(out, e.ListData(l))
	}
	return out
}

func strs(e *Engine, l engine.List) []string {
	var out []string
	for _, p := range walk(e, l) {
		out = append(out, string(e.String(p)))
	}
	return out
}

func depNames(e *Engine, l engine.List) []string {
	var out []string
	for _, d := range walk(e, l) {
		out = append(out, string(e.DepFields(engine.Dep(d)).Name))
	}
	return out
}

func TestNew(t *testing.T) {
	if _, code := New("/", filepath.Join(t.TempDir(), "missing")); code != engine.ErrDBOpen {
		t.Errorf("missing dbpath code = %v, want %v", code, engine.ErrDBOpen)
	}

	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, code := New("/", file); code != engine.ErrNotADir {
		t.Errorf("file dbpath code = %v, want %v", code, engine.ErrNotADir)
	}

	if eng, code := Open("/", file); eng != nil || code != engine.ErrNotADir {
		t.Errorf("Open = %v, %v; want nil, %v", eng, code, engine.ErrNotADir)
	}
}

func TestRegisterSyncDB(t *testing.T) {
	e := newTestEngine(t)
	register(t, e, "core")

	tests := []struct {
		name string
		want engine.Code
	}{
		{"core", engine.ErrDBNotNull},
		{"local", engine.ErrDBNotNull},
		{"", engine.ErrWrongArgs},
		{"a/b", engine.ErrWrongArgs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if db := e.RegisterSyncDB(tt.name, 0); db != engine.Null {
				t.Fatalf("RegisterSyncDB(%q) succeeded", tt.name)
			}
			if got := e.Errno(); got != tt.want {
				t.Errorf("Errno() = %v, want %v", got, tt.want)
			}
		})
	}

	register(t, e, "extra")
	var names []string
	for _, db := range walk(e, e.SyncDBs()) {
		names = append(names, string(e.DBName(engine.DB(db))))
	}
	if !slices.Equal(names, []string{"core", "extra"}) {
		t.Errorf("sync dbs = %v", names)
	}
}

func TestUseDefaultSigLevel(t *testing.T) {
	e := newTestEngine(t)
	db := e.RegisterSyncDB("core", sigUseDefault)
	if got := e.DBSigLevel(db); got != defaultSigLevel {
		t.Errorf("DBSigLevel() = %#x, want %#x", got, defaultSigLevel)
	}
}

func TestPackageFields(t *testing.T) {
	e := newTestEngine(t)
	core := register(t, e, "core")

	pkg := e.DBPkg(core, "linux")
	if pkg == engine.Null {
		t.Fatalf("DBPkg(linux) failed: %v", e.Errno())
	}
	if got := string(e.PkgText(pkg, engine.PkgVersion)); got != "5.1.8.arch1-1" {
		t.Errorf("version = %q, want %q", got, "5.1.8.arch1-1")
	}
	want := []string{"coreutils", "linux-firmware", "kmod", "mkinitcpio"}
	if got := depNames(e, e.PkgList(pkg, engine.PkgDepends)); !slices.Equal(got, want) {
		t.Errorf("depends = %v, want %v", got, want)
	}
	if got := e.PkgInt(pkg, engine.PkgOrigin); got != originSyncDB {
		t.Errorf("origin = %d, want %d", got, originSyncDB)
	}
	if got := e.PkgInt(pkg, engine.PkgInstallDate); got != 0 {
		t.Errorf("install date = %d, want 0", got)
	}
	if got := e.PkgDB(pkg); got != core {
		t.Errorf("PkgDB() = %v, want %v", got, core)
	}

	opt := e.PkgList(pkg, engine.PkgOptDepends)
	f := e.DepFields(engine.Dep(walk(e, opt)[0]))
	if string(f.Name) != "crda" || f.Version != nil || string(f.Desc) != "to set the correct wireless channels of your country" {
		t.Errorf("optdepend = %+v", f)
	}

	sig, ret := e.PkgSig(pkg)
	if ret != 0 || string(sig) != "signature" {
		t.Errorf("PkgSig() = %q, %d", sig, ret)
	}

	if e.DBPkg(core, "nope") != engine.Null {
		t.Error("DBPkg(nope) should be null")
	}
	if got := e.Errno(); got != engine.ErrPkgNotFound {
		t.Errorf("Errno() = %v, want %v", got, engine.ErrPkgNotFound)
	}
}

func TestLocalPackage(t *testing.T) {
	e := newTestEngine(t)
	local := e.LocalDB()

	pkg := e.DBPkg(local, "pacman")
	if e.PkgText(pkg, engine.PkgFilename) != nil {
		t.Error("local package should have no filename")
	}
	if got := e.PkgInt(pkg, engine.PkgOrigin); got != originLocalDB {
		t.Errorf("origin = %d, want %d", got, originLocalDB)
	}
	if _, ok := e.PkgFileContains(pkg, "etc/pacman.conf"); !ok {
		t.Error("file list should contain etc/pacman.conf")
	}
	if _, ok := e.PkgFileContains(pkg, "etc/nope"); ok {
		t.Error("file list should not contain etc/nope")
	}
	if _, ret := e.PkgSig(pkg); ret != -1 || e.Errno() != engine.ErrSigMissing {
		t.Errorf("PkgSig() ret = %d, errno %v", ret, e.Errno())
	}

	s := e.ChangelogOpen(pkg)
	if s == engine.Null {
		t.Fatalf("ChangelogOpen failed: %v", e.Errno())
	}
	buf := make([]byte, 10)
	var log []byte
	for {
		n := e.ChangelogRead(pkg, s, buf)
		if n == 0 {
			break
		}
		log = append(log, buf[:n]...)
	}
	e.ChangelogClose(pkg, s)
	if len(log) == 0 || log[0] != '2' {
		t.Errorf("changelog = %q", log)
	}

	m := e.MtreeOpen(pkg)
	var paths []string
	for {
		f, st := e.MtreeNext(pkg, m)
		if st == engine.StreamEOF {
			break
		}
		paths = append(paths, string(f.Name))
	}
	e.MtreeClose(pkg, m)
	if len(paths) != 3 || paths[2] != "./usr/bin/pacman" {
		t.Errorf("mtree = %v", paths)
	}

	if got := e.Outstanding(); got != 0 {
		t.Errorf("Outstanding() = %d after closing streams", got)
	}

	glibc := e.DBPkg(local, "glibc")
	if e.ChangelogOpen(glibc) != engine.Null || e.Errno() != engine.ErrNotAFile {
		t.Errorf("ChangelogOpen(glibc) errno = %v, want %v", e.Errno(), engine.ErrNotAFile)
	}
}

func TestServers(t *testing.T) {
	e := newTestEngine(t)
	db := register(t, e, "core")

	servers := []string{"https://a.example/$repo/os/$arch/", "https://b.example/$repo/os/$arch"}
	e.DBSetServers(db, servers)
	want := []string{"https://a.example/$repo/os/$arch", "https://b.example/$repo/os/$arch"}
	if got := strs(e, e.DBServers(db)); !slices.Equal(got, want) {
		t.Errorf("servers = %v, want %v", got, want)
	}

	old := e.DBServers(db)
	if e.DBAddServer(db, "https://c.example") != 0 {
		t.Fatal("DBAddServer failed")
	}
	if e.Live(uintptr(old)) {
		t.Error("old server list should be freed after mutation")
	}

	if got := e.DBRemoveServer(db, "https://nope.example"); got != 1 {
		t.Errorf("DBRemoveServer(missing) = %d, want 1", got)
	}
	if got := e.DBRemoveServer(db, "https://a.example/$repo/os/$arch/"); got != 0 {
		t.Errorf("DBRemoveServer = %d, want 0", got)
	}
	want = []string{"https://b.example/$repo/os/$arch", "https://c.example"}
	if got := strs(e, e.DBServers(db)); !slices.Equal(got, want) {
		t.Errorf("servers = %v, want %v", got, want)
	}
}

func TestSearch(t *testing.T) {
	e := newTestEngine(t)
	core := register(t, e, "core")

	tests := []struct {
		needles []string
		want    []string
	}{
		{[]string{"linux"}, []string{"linux", "kmod", "linux-firmware"}},
		{[]string{"linux", "firmware"}, []string{"linux-firmware"}},
		{[]string{"^mkinit"}, []string{"mkinitcpio", "mkinitcpio-nfs-utils"}},
		{[]string{"module-init-tools"}, []string{"kmod"}},
		{[]string{"nothing-matches-this"}, nil},
		{nil, nil},
	}
	for _, tt := range tests {
		t.Run(filepath.Join(tt.needles...), func(t *testing.T) {
			var ret engine.List
			if e.DBSearch(core, tt.needles, &ret) != 0 {
				t.Fatalf("DBSearch failed: %v", e.Errno())
			}
			var got []string
			for _, p := range walk(e, ret) {
				got = append(got, string(e.PkgText(engine.Pkg(p), engine.PkgName)))
			}
			e.ListFree(ret)
			if !slices.Equal(got, tt.want) {
				t.Errorf("DBSearch(%v) = %v, want %v", tt.needles, got, tt.want)
			}
			if n := e.Outstanding(); n != 0 {
				t.Errorf("Outstanding() = %d after ListFree", n)
			}
		})
	}

	var ret engine.List
	if e.DBSearch(core, []string{"["}, &ret) != -1 || e.Errno() != engine.ErrInvalidRegex {
		t.Errorf("bad regex errno = %v, want %v", e.Errno(), engine.ErrInvalidRegex)
	}
}

func TestSearchWithoutUsage(t *testing.T) {
	e := newTestEngine(t)
	core := register(t, e, "core")
	e.DBSetUsage(core, usageAll&^usageSearch)

	var ret engine.List
	if e.DBSearch(core, []string{"linux"}, &ret) != 0 || ret != engine.Null {
		t.Error("search on a db without search usage should return nothing")
	}
}

func TestComputeRequiredBy(t *testing.T) {
	e := newTestEngine(t)
	register(t, e, "core")
	extra := register(t, e, "extra")

	tests := []struct {
		db       engine.DB
		pkg      string
		optional bool
		want     []string
	}{
		{extra, "ostree", false, []string{"flatpak"}},
		{extra, "flatpak", false, nil},
		{extra, "flatpak", true, []string{"gnome-software"}},
		{e.LocalDB(), "pacman", false, []string{"yay"}},
		{e.LocalDB(), "pacman", true, []string{"pacman-contrib"}},
	}
	for _, tt := range tests {
		t.Run(tt.pkg, func(t *testing.T) {
			pkg := e.DBPkg(tt.db, tt.pkg)
			var l engine.List
			if tt.optional {
				l = e.PkgComputeOptionalFor(pkg)
			} else {
				l = e.PkgComputeRequiredBy(pkg)
			}
			got := strs(e, l)
			if e.Outstanding() != 2*len(tt.want) {
				t.Errorf("Outstanding() = %d, want %d", e.Outstanding(), 2*len(tt.want))
			}
			e.ListFreeInner(l)
			e.ListFree(l)
			if !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
			if n := e.Outstanding(); n != 0 {
				t.Errorf("Outstanding() = %d after free", n)
			}
		})
	}

	glibc := e.DBPkg(e.LocalDB(), "glibc")
	l := e.PkgComputeRequiredBy(glibc)
	got := strs(e, l)
	e.ListFreeInner(l)
	e.ListFree(l)
	if !slices.Equal(got, []string{"coreutils", "pacman"}) {
		t.Errorf("glibc required by %v", got)
	}
}

func TestGroups(t *testing.T) {
	e := newTestEngine(t)
	core := register(t, e, "core")

	g := e.DBGroup(core, "base")
	if g == engine.Null {
		t.Fatal("DBGroup(base) is null")
	}
	var names []string
	for _, p := range walk(e, e.GroupPackages(g)) {
		names = append(names, string(e.PkgText(engine.Pkg(p), engine.PkgName)))
	}
	want := []string{"linux", "coreutils", "linux-firmware", "mkinitcpio", "glibc", "pacman"}
	if !slices.Equal(names, want) {
		t.Errorf("base = %v, want %v", names, want)
	}
	if n := len(walk(e, e.DBGroupCache(core))); n != 2 {
		t.Errorf("group count = %d, want 2", n)
	}

	e.DBPkg(core, "missing")
	if g := e.DBGroup(core, "xorg"); g != engine.Null {
		t.Errorf("DBGroup(xorg) = %v, want null", g)
	}
	if code := e.Errno(); code != engine.OK {
		t.Errorf("Errno() after missing group = %v, want ok", code)
	}
}

func TestUnregisterFreesPackages(t *testing.T) {
	e := newTestEngine(t)
	core := register(t, e, "core")
	pkg := e.DBPkg(core, "linux")
	deps := e.PkgList(pkg, engine.PkgDepends)

	if e.DBUnregister(core) != 0 {
		t.Fatal("DBUnregister failed")
	}
	for _, h := range []uintptr{uintptr(core), uintptr(pkg), uintptr(deps)} {
		if e.Live(h) {
			t.Errorf("handle %#x still live after unregister", h)
		}
	}
	if e.SyncDBs() != engine.Null {
		t.Error("sync db list should be empty")
	}

	defer func() {
		if recover() == nil {
			t.Error("use of unregistered package should panic")
		}
	}()
	e.PkgText(pkg, engine.PkgName)
}

func TestFreeEngineOwnedPanics(t *testing.T) {
	e := newTestEngine(t)
	core := register(t, e, "core")
	cache := e.DBPkgCache(core)

	defer func() {
		if recover() == nil {
			t.Error("freeing an engine-owned list should panic")
		}
	}()
	e.ListFree(cache)
}

func TestDoubleFreePanics(t *testing.T) {
	e := newTestEngine(t)
	extra := register(t, e, "extra")
	l := e.PkgComputeRequiredBy(e.DBPkg(extra, "ostree"))
	e.ListFreeInner(l)
	e.ListFree(l)

	defer func() {
		if recover() == nil {
			t.Error("double free should panic")
		}
	}()
	e.ListFree(l)
}

func TestDBValid(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name string
		want engine.Code
	}{
		{"core", engine.OK},
		{"broken", engine.ErrDBInvalid},
		{"tampered", engine.ErrDBInvalidSig},
		{"missing", engine.ErrDBNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := register(t, e, tt.name)
			ret := e.DBValid(db)
			if tt.want == engine.OK {
				if ret != 0 {
					t.Errorf("DBValid() = %d, errno %v", ret, e.Errno())
				}
				return
			}
			if ret != -1 || e.Errno() != tt.want {
				t.Errorf("DBValid() = %d, errno %v; want -1, %v", ret, e.Errno(), tt.want)
			}
		})
	}
}

func TestCheckMD5Sum(t *testing.T) {
	root := t.TempDir()
	e, _ := New(root, testDBPath)
	defer e.Release()
	core := register(t, e, "core")
	pkg := e.DBPkg(core, "linux")

	if e.PkgCheckMD5Sum(pkg) != -1 || e.Errno() != engine.ErrPkgNotFound {
		t.Errorf("missing cache file errno = %v", e.Errno())
	}

	cache := filepath.Join(root, "var", "cache", "pacman", "pkg")
	if err := os.MkdirAll(cache, 0o755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(cache, "linux-5.1.8.arch1-1-x86_64.pkg.tar.xz")
	if err := os.WriteFile(file, []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := e.PkgCheckMD5Sum(pkg); got != 0 {
		t.Errorf("PkgCheckMD5Sum() = %d, errno %v", got, e.Errno())
	}

	if err := os.WriteFile(file, []byte("tampered\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if e.PkgCheckMD5Sum(pkg) != -1 || e.Errno() != engine.ErrPkgInvalidChecksum {
		t.Errorf("tampered file errno = %v", e.Errno())
	}

	if e.PkgCheckMD5Sum(e.DBPkg(e.LocalDB(), "pacman")) != -1 || e.Errno() != engine.ErrWrongArgs {
		t.Errorf("local package errno = %v", e.Errno())
	}
}

func TestLogFunc(t *testing.T) {
	e := newTestEngine(t)
	var msgs []string
	e.SetLogFunc(func(level engine.LogLevel, msg string) {
		if level == engine.LogDebug {
			msgs = append(msgs, msg)
		}
	})
	register(t, e, "core")
	if len(msgs) == 0 || msgs[0] != "registering sync database 'core'" {
		t.Errorf("log messages = %v", msgs)
	}
}
