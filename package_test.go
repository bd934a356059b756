package alpm

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/git-pkgs/alpm/engine"
	"github.com/git-pkgs/alpm/engine/memdb"
)

func TestLinuxFromCore(t *testing.T) {
	h, _ := openTest(t)
	core := registerTest(t, h, "core")
	linux := lookupTest(t, core, "linux")

	v, err := linux.Version()
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "5.1.8.arch1-1" {
		t.Errorf("Version() = %q, want %q", v, "5.1.8.arch1-1")
	}
	want := []string{"coreutils", "linux-firmware", "kmod", "mkinitcpio"}
	if got := depNames(t, linux.Depends()); !slices.Equal(got, want) {
		t.Errorf("Depends() = %v, want %v", got, want)
	}
}

func TestOstreeRequiredBy(t *testing.T) {
	h, _ := openTest(t)
	extra := registerTest(t, h, "extra")
	rb := lookupTest(t, extra, "ostree").RequiredBy()
	defer rb.Close()

	if got := collectTest[string](t, rb); !slices.Equal(got, []string{"flatpak"}) {
		t.Errorf("RequiredBy() = %v, want [flatpak]", got)
	}
}

func TestReverseDependencies(t *testing.T) {
	h, _ := openTest(t)
	extra := registerTest(t, h, "extra")

	tests := []struct {
		name     string
		optional bool
		want     []string
	}{
		{"ostree", false, []string{"flatpak"}},
		{"flatpak", false, nil},
		{"flatpak", true, []string{"gnome-software"}},
		{"gnome-software", true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg := lookupTest(t, extra, tt.name)
			l := pkg.RequiredBy()
			if tt.optional {
				l.Close()
				l = pkg.OptionalFor()
			}
			defer l.Close()
			if got := collectTest[string](t, l); !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPackageLookupNotFound(t *testing.T) {
	h, _ := openTest(t)
	core := registerTest(t, h, "core")

	_, err := core.Pkg("does-not-exist")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Pkg() error = %v, want *NotFoundError", err)
	}
	if nf.Kind != "package" || nf.Name != "does-not-exist" {
		t.Errorf("NotFoundError = %+v", nf)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("error should match ErrNotFound")
	}
}

func TestSyncPackageFields(t *testing.T) {
	h, _ := openTest(t)
	core := registerTest(t, h, "core")
	linux := lookupTest(t, core, "linux")

	text := []struct {
		name string
		get  func() (string, bool, error)
		want string
	}{
		{"Filename", linux.Filename, "linux-5.1.8.arch1-1-x86_64.pkg.tar.xz"},
		{"Base", linux.Base, "linux"},
		{"Description", linux.Description, "The Linux kernel and modules"},
		{"Packager", linux.Packager, "Jan Alexander Steffens (heftig) <jan.steffens@gmail.com>"},
		{"MD5Sum", linux.MD5Sum, "b1946ac92492d2347c6235b4d2611184"},
		{"Arch", linux.Arch, "x86_64"},
		{"Base64Sig", linux.Base64Sig, "c2lnbmF0dXJl"},
	}
	for _, tt := range text {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := tt.get()
			if err != nil || !ok || got != tt.want {
				t.Errorf("%s() = %q, %v, %v; want %q", tt.name, got, ok, err, tt.want)
			}
		})
	}

	if got := linux.Origin(); got != OriginSyncDB {
		t.Errorf("Origin() = %v, want %v", got, OriginSyncDB)
	}
	if _, ok := linux.InstallDate(); ok {
		t.Error("sync package should not have an install date")
	}
	built, ok := linux.BuildDate()
	if !ok || built.Unix() != 1559921366 {
		t.Errorf("BuildDate() = %v, %v", built, ok)
	}
	if got := linux.Size(); got != 70787000 {
		t.Errorf("Size() = %d", got)
	}
	if got := linux.InstalledSize(); got != 78487552 {
		t.Errorf("InstalledSize() = %d", got)
	}

	db, ok := linux.DB()
	if !ok || db.Name() != "core" {
		t.Errorf("DB() = %v, %v", db, ok)
	}

	opt, err := linux.OptDepends().At(0)
	if err != nil {
		t.Fatal(err)
	}
	if opt.Name != "crda" || opt.Mod != DepModAny || !opt.Version.IsZero() ||
		opt.Description != "to set the correct wireless channels of your country" {
		t.Errorf("OptDepends()[0] = %+v", opt)
	}

	conflict, err := linux.Conflicts().At(0)
	if err != nil {
		t.Fatal(err)
	}
	if conflict.String() != "linux-lts<4.19" || conflict.Mod != DepModLt {
		t.Errorf("Conflicts()[0] = %v", conflict)
	}
	if got := depNames(t, linux.Provides()); !slices.Equal(got, []string{"linux-kernel"}) {
		t.Errorf("Provides() = %v", got)
	}
	if got := depNames(t, linux.Replaces()); !slices.Equal(got, []string{"kernel26"}) {
		t.Errorf("Replaces() = %v", got)
	}
	if got := collectTest[string](t, linux.Licenses()); !slices.Equal(got, []string{"GPL2"}) {
		t.Errorf("Licenses() = %v", got)
	}

	sig, err := linux.Sig()
	if err != nil || string(sig) != "signature" {
		t.Errorf("Sig() = %q, %v", sig, err)
	}
	if linux.ShouldIgnore() {
		t.Error("ShouldIgnore() = true")
	}
}

func TestLocalPackageFields(t *testing.T) {
	h, _ := openTest(t)
	pacman := lookupTest(t, h.LocalDB(), "pacman")

	if _, ok, err := pacman.Filename(); ok || err != nil {
		t.Errorf("Filename() ok = %v, err = %v; want absent", ok, err)
	}
	if got := pacman.Origin(); got != OriginLocalDB {
		t.Errorf("Origin() = %v", got)
	}
	installed, ok := pacman.InstallDate()
	if !ok || installed.Unix() != 1560000100 {
		t.Errorf("InstallDate() = %v, %v", installed, ok)
	}
	if got := pacman.Reason(); got != ReasonExplicit {
		t.Errorf("Reason() = %v", got)
	}
	if got := pacman.Validation(); got != ValidationSignature {
		t.Errorf("Validation() = %v", got)
	}
	if pacman.HasScriptlet() {
		t.Error("HasScriptlet() = true")
	}
	db, ok := pacman.DB()
	if !ok || !db.IsLocal() {
		t.Errorf("DB() = %v, %v; want local", db.Name(), ok)
	}

	backup := collectTest[Backup](t, pacman.Backup())
	if len(backup) != 2 || backup[0] != (Backup{Name: "etc/pacman.conf", Hash: "2f6e2d3fd8cf1a4ca8e4e2bb0e1cbd16"}) {
		t.Errorf("Backup() = %+v", backup)
	}

	files, err := pacman.Files().Files()
	if err != nil || len(files) != 4 {
		t.Fatalf("Files() = %v, %v", files, err)
	}
	if f, ok, err := pacman.Files().Contains("etc/pacman.conf"); !ok || err != nil || f.Name != "etc/pacman.conf" {
		t.Errorf("Contains(etc/pacman.conf) = %v, %v, %v", f, ok, err)
	}
	if _, ok, _ := pacman.Files().Contains("etc/shadow"); ok {
		t.Error("Contains(etc/shadow) = true")
	}

	if _, err := pacman.Sig(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Sig() error = %v, want ErrNotFound", err)
	}

	rb := pacman.RequiredBy()
	defer rb.Close()
	if got := collectTest[string](t, rb); !slices.Equal(got, []string{"yay"}) {
		t.Errorf("RequiredBy() = %v, want [yay]", got)
	}
}

func TestChangelog(t *testing.T) {
	h, mem := openTest(t)
	pacman := lookupTest(t, h.LocalDB(), "pacman")

	cl, err := pacman.Changelog()
	if err != nil {
		t.Fatalf("Changelog() error = %v", err)
	}
	data, err := io.ReadAll(cl)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	want := "2019-03-01 Allan McRae\n  * 5.1.3-1 :\n  bugfix release\n"
	if string(data) != want {
		t.Errorf("changelog = %q, want %q", data, want)
	}
	if err := cl.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := cl.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := cl.Read(make([]byte, 1)); !errors.Is(err, ErrIO) || !errors.Is(err, ErrReleased) {
		t.Errorf("Read() after Close error = %v", err)
	}
	if n := mem.Outstanding(); n != 0 {
		t.Errorf("Outstanding() = %d", n)
	}

	glibc := lookupTest(t, h.LocalDB(), "glibc")
	if _, err := glibc.Changelog(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Changelog() without changelog error = %v, want ErrNotFound", err)
	}
}

func TestFileTree(t *testing.T) {
	h, mem := openTest(t)
	pacman := lookupTest(t, h.LocalDB(), "pacman")

	tree, err := pacman.FileTree()
	if err != nil {
		t.Fatalf("FileTree() error = %v", err)
	}
	defer tree.Close()

	var files []File
	for {
		f, err := tree.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		files = append(files, f)
	}
	if len(files) != 3 {
		t.Fatalf("got %d entries, want 3", len(files))
	}
	if files[2].Name != "./usr/bin/pacman" || files[2].Size != 201912 || files[2].Mode != 0o755 {
		t.Errorf("last entry = %+v", files[2])
	}

	tree.Close()
	if n := mem.Outstanding(); n != 0 {
		t.Errorf("Outstanding() = %d", n)
	}

	glibc := lookupTest(t, h.LocalDB(), "glibc")
	if _, err := glibc.FileTree(); !errors.Is(err, ErrNotFound) {
		t.Errorf("FileTree() without mtree error = %v, want ErrNotFound", err)
	}
}

func TestZeroPackage(t *testing.T) {
	var p Package
	if _, err := p.Changelog(); !errors.Is(err, ErrReleased) {
		t.Errorf("Changelog() error = %v, want ErrReleased", err)
	}
	if _, err := p.FileTree(); !errors.Is(err, ErrReleased) {
		t.Errorf("FileTree() error = %v, want ErrReleased", err)
	}

	tests := []struct {
		name string
		call func() *OwnedList[string]
	}{
		{"RequiredBy", p.RequiredBy},
		{"OptionalFor", p.OptionalFor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				err, _ := recover().(error)
				if !errors.Is(err, ErrReleased) {
					t.Errorf("recovered %v, want ErrReleased", err)
				}
			}()
			tt.call()
		})
	}
}

func TestChangelogInsideUpdate(t *testing.T) {
	h, _ := openTest(t)
	err := h.Update(func(tx *Tx) error {
		local := tx.LocalDB()
		pacman, err := local.Pkg("pacman")
		if err != nil {
			return err
		}
		cl, err := pacman.Changelog()
		if err != nil {
			return err
		}
		return cl.Close()
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestCheckMD5Sum(t *testing.T) {
	h, _ := openTest(t)
	core := registerTest(t, h, "core")
	linux := lookupTest(t, core, "linux")

	var ee *EngineError
	if err := linux.CheckMD5Sum(); !errors.As(err, &ee) {
		t.Errorf("CheckMD5Sum() without cached file error = %v", err)
	}

	dir := filepath.Join(h.Root(), "var", "cache", "pacman", "pkg")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := []byte("hello\n")
	sum := md5.Sum(content)
	if hex.EncodeToString(sum[:]) != "b1946ac92492d2347c6235b4d2611184" {
		t.Fatal("fixture checksum does not match content")
	}
	if err := os.WriteFile(filepath.Join(dir, "linux-5.1.8.arch1-1-x86_64.pkg.tar.xz"), content, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := linux.CheckMD5Sum(); err != nil {
		t.Errorf("CheckMD5Sum() error = %v", err)
	}
}

func TestDBValid(t *testing.T) {
	h, _ := openTest(t)

	tests := []struct {
		name string
		code engine.Code
	}{
		{"core", engine.OK},
		{"broken", engine.ErrDBInvalid},
		{"tampered", engine.ErrDBInvalidSig},
		{"missing", engine.ErrDBNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := registerTest(t, h, tt.name).Valid()
			if tt.code == engine.OK {
				if err != nil {
					t.Errorf("Valid() error = %v", err)
				}
				return
			}
			var ee *EngineError
			if !errors.As(err, &ee) || ee.Code != tt.code {
				t.Errorf("Valid() error = %v, want code %v", err, tt.code)
			}
			if ee != nil && ee.Message != tt.code.String() {
				t.Errorf("Message = %q, want %q", ee.Message, tt.code.String())
			}
		})
	}
}

func TestDBAccessors(t *testing.T) {
	h, _ := openTest(t)
	core := registerTest(t, h, "core")

	if got := core.SigLevel(); got != SigPackage|SigPackageOptional|SigDatabase|SigDatabaseOptional {
		t.Errorf("SigLevel() = %v", got)
	}
	if u, err := core.Usage(); err != nil || u != UsageAll {
		t.Errorf("Usage() = %v, %v", u, err)
	}

	err := h.Update(func(tx *Tx) error {
		db, err := tx.Upgrade(core)
		if err != nil {
			return err
		}
		return db.SetUsage(UsageSync | UsageInstall)
	})
	if err != nil {
		t.Fatal(err)
	}
	if u, _ := core.Usage(); u != UsageSync|UsageInstall {
		t.Errorf("Usage() after SetUsage = %v", u)
	}
	found, err := core.Search("linux")
	if err != nil {
		t.Fatal(err)
	}
	defer found.Close()
	if n, _ := found.Len(); n != 0 {
		t.Errorf("search without search usage found %d packages", n)
	}

	if n, err := core.Pkgs().Len(); err != nil || n != 8 {
		t.Errorf("Pkgs().Len() = %d, %v", n, err)
	}
}

func TestGroups(t *testing.T) {
	h, _ := openTest(t)
	core := registerTest(t, h, "core")

	base, err := core.Group("base")
	if err != nil {
		t.Fatal(err)
	}
	if name, _ := base.Name(); name != "base" {
		t.Errorf("Name() = %q", name)
	}
	var names []string
	for _, pkg := range collectTest[Package](t, base.Packages()) {
		n, _ := pkg.Name()
		names = append(names, n)
	}
	want := []string{"linux", "coreutils", "linux-firmware", "mkinitcpio", "glibc", "pacman"}
	if !slices.Equal(names, want) {
		t.Errorf("Packages() = %v, want %v", names, want)
	}

	if n, err := core.Groups().Len(); err != nil || n != 2 {
		t.Errorf("Groups().Len() = %d, %v", n, err)
	}
	_, err = core.Group("xorg")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Group(xorg) error = %v, want ErrNotFound", err)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Kind != "group" {
		t.Errorf("Group(xorg) error = %#v, want a group NotFoundError", err)
	}
}

// garbled returns descriptions and database names that are not valid UTF-8.
type garbled struct {
	*memdb.Engine
}

func (g garbled) PkgText(p engine.Pkg, f engine.PkgText) []byte {
	if f == engine.PkgDesc {
		return []byte("caf\xe9 au lait")
	}
	return g.Engine.PkgText(p, f)
}

func (g garbled) DBName(db engine.DB) []byte {
	return append(g.Engine.DBName(db), 0xff)
}

func TestInvalidText(t *testing.T) {
	open := func(root, dbpath string) (engine.Engine, engine.Code) {
		e, code := memdb.New(root, dbpath)
		if e == nil {
			return nil, code
		}
		return garbled{e}, engine.OK
	}
	h, err := New(t.TempDir(), testDBPath, WithEngine(open))
	if err != nil {
		t.Fatal(err)
	}
	defer h.Release()
	core := registerTest(t, h, "core")
	linux := lookupTest(t, core, "linux")

	_, _, err = linux.Description()
	var te *TextError
	if !errors.As(err, &te) || te.Offset != 3 {
		t.Errorf("Description() error = %v, want TextError at 3", err)
	}
	if !errors.Is(err, ErrInvalidText) {
		t.Error("error should match ErrInvalidText")
	}

	desc, ok, err := linux.WithLossyText().Description()
	if err != nil || !ok || desc != "caf\uFFFD au lait" {
		t.Errorf("lossy Description() = %q, %v, %v", desc, ok, err)
	}

	lossy := lookupTest(t, core.WithLossyText(), "kmod")
	if desc, _, err := lossy.Description(); err != nil || desc != "caf\uFFFD au lait" {
		t.Errorf("Description() through lossy db = %q, %v", desc, err)
	}

	if name, err := linux.Name(); err != nil || name != "linux" {
		t.Errorf("Name() = %q, %v", name, err)
	}
	if got := core.Name(); got != "core\uFFFD" {
		t.Errorf("DB.Name() = %q, want %q", got, "core\uFFFD")
	}
}

func TestPURL(t *testing.T) {
	h, _ := openTest(t)
	core := registerTest(t, h, "core")
	registerTest(t, h, "extra")

	got, err := lookupTest(t, core, "linux").PURL()
	if err != nil {
		t.Fatal(err)
	}
	if want := "pkg:alpm/arch/linux@5.1.8.arch1-1?arch=x86_64"; got != want {
		t.Errorf("PURL() = %q, want %q", got, want)
	}

	tests := []struct {
		purl    string
		want    string
		wantErr error
	}{
		{"pkg:alpm/arch/ostree", "ostree", nil},
		{"pkg:alpm/arch/linux@5.1.8.arch1-1", "linux", nil},
		{"pkg:alpm/arch/linux@5.2.0.arch1-1", "", ErrNotFound},
		{"pkg:alpm/arch/nope", "", ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.purl, func(t *testing.T) {
			pkg, err := h.LookupPURL(tt.purl)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("LookupPURL() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if name, _ := pkg.Name(); name != tt.want {
				t.Errorf("LookupPURL() = %q, want %q", name, tt.want)
			}
		})
	}

	if _, err := h.LookupPURL("pkg:npm/lodash"); err == nil {
		t.Error("LookupPURL(npm) should fail")
	}

	p, err := ParsePURL("pkg:alpm/arch/linux@5.1.8.arch1-1")
	if err != nil || p == nil {
		t.Errorf("ParsePURL() = %v, %v", p, err)
	}
}

func TestLicenseExpression(t *testing.T) {
	h, _ := openTest(t)
	extra := registerTest(t, h, "extra")

	tests := []struct {
		pkg     string
		expr    string
		invalid []string
	}{
		{"ostree", "LGPL-2.0-or-later", nil},
		{"gnome-software", "", []string{"GPL2"}},
		{"mesa", "MIT AND (Apache-2.0 OR BSD-3-Clause)", []string{"custom"}},
	}
	for _, tt := range tests {
		t.Run(tt.pkg, func(t *testing.T) {
			expr, invalid, err := lookupTest(t, extra, tt.pkg).LicenseExpression()
			if err != nil {
				t.Fatal(err)
			}
			if expr != tt.expr || !slices.Equal(invalid, tt.invalid) {
				t.Errorf("LicenseExpression() = %q, %v; want %q, %v", expr, invalid, tt.expr, tt.invalid)
			}
		})
	}
}
