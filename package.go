package alpm

import (
	"time"

	"github.com/git-pkgs/alpm/engine"
)

// Package is a read-only view of one package. Nothing is cached: every
// accessor asks the engine again.
type Package struct {
	v view
	p engine.Pkg
}

func projectPackage(v view, data uintptr) (Package, error) {
	return Package{v: v, p: engine.Pkg(data)}, nil
}

// WithLossyText returns a copy of p whose text accessors replace invalid
// UTF-8 with U+FFFD instead of failing.
func (p Package) WithLossyText() Package {
	p.v.lossy = true
	return p
}

// required reads a text field the engine always sets.
func (p Package) required(f engine.PkgText) (string, error) {
	return do(p.v, func() (string, error) {
		b := p.v.h.eng.PkgText(p.p, f)
		if b == nil {
			panic("alpm: engine returned a package without name or version")
		}
		return p.v.text(b)
	})
}

type optString struct {
	s  string
	ok bool
}

// optional reads a text field that may be absent.
func (p Package) optional(f engine.PkgText) (string, bool, error) {
	o, err := do(p.v, func() (optString, error) {
		s, ok, err := p.v.optText(p.v.h.eng.PkgText(p.p, f))
		return optString{s, ok}, err
	})
	return o.s, o.ok, err
}

func (p Package) integer(f engine.PkgInt) int64 {
	return must(p.v, func() int64 { return p.v.h.eng.PkgInt(p.p, f) })
}

func (p Package) Name() (string, error) { return p.required(engine.PkgName) }

// Version returns the full version, epoch and release included.
func (p Package) Version() (Version, error) {
	s, err := p.required(engine.PkgVersion)
	if err != nil {
		return Version{}, err
	}
	return p.v.h.version(s), nil
}

// Filename is the name of the package file. Installed packages have none.
func (p Package) Filename() (string, bool, error) { return p.optional(engine.PkgFilename) }

func (p Package) Base() (string, bool, error)        { return p.optional(engine.PkgBase) }
func (p Package) Description() (string, bool, error) { return p.optional(engine.PkgDesc) }
func (p Package) URL() (string, bool, error)         { return p.optional(engine.PkgURL) }
func (p Package) Packager() (string, bool, error)    { return p.optional(engine.PkgPackager) }
func (p Package) MD5Sum() (string, bool, error)      { return p.optional(engine.PkgMD5Sum) }
func (p Package) SHA256Sum() (string, bool, error)   { return p.optional(engine.PkgSHA256Sum) }
func (p Package) Arch() (string, bool, error)        { return p.optional(engine.PkgArch) }

// Base64Sig returns the detached signature as stored in the database.
func (p Package) Base64Sig() (string, bool, error) { return p.optional(engine.PkgBase64Sig) }

func (p Package) Origin() Origin { return Origin(p.integer(engine.PkgOrigin)) }

// BuildDate reports false when the package carries no build date.
func (p Package) BuildDate() (time.Time, bool) {
	return timestamp(p.integer(engine.PkgBuildDate))
}

// InstallDate reports false when the package is not installed.
func (p Package) InstallDate() (time.Time, bool) {
	return timestamp(p.integer(engine.PkgInstallDate))
}

func timestamp(sec int64) (time.Time, bool) {
	if sec == 0 {
		return time.Time{}, false
	}
	return time.Unix(sec, 0), true
}

// Size is the size of the package file.
func (p Package) Size() int64 { return p.integer(engine.PkgSize) }

func (p Package) InstalledSize() int64 { return p.integer(engine.PkgInstalledSize) }

func (p Package) Reason() Reason { return Reason(p.integer(engine.PkgReason)) }

func (p Package) Validation() Validation { return Validation(p.integer(engine.PkgValidation)) }

func (p Package) HasScriptlet() bool { return p.integer(engine.PkgHasScriptlet) != 0 }

func borrowed[T any](p Package, f engine.PkgList, proj projector[T]) List[T] {
	return must(p.v, func() List[T] {
		return List[T]{c: chain[T]{v: p.v, head: p.v.h.eng.PkgList(p.p, f), proj: proj}}
	})
}

func (p Package) Licenses() List[string] { return borrowed(p, engine.PkgLicenses, projectString) }
func (p Package) Groups() List[string]   { return borrowed(p, engine.PkgGroups, projectString) }
func (p Package) Depends() List[Dep]     { return borrowed(p, engine.PkgDepends, projectDep) }
func (p Package) OptDepends() List[Dep]  { return borrowed(p, engine.PkgOptDepends, projectDep) }

func (p Package) CheckDepends() List[Dep] { return borrowed(p, engine.PkgCheckDepends, projectDep) }
func (p Package) MakeDepends() List[Dep]  { return borrowed(p, engine.PkgMakeDepends, projectDep) }
func (p Package) Conflicts() List[Dep]    { return borrowed(p, engine.PkgConflicts, projectDep) }
func (p Package) Provides() List[Dep]     { return borrowed(p, engine.PkgProvides, projectDep) }
func (p Package) Replaces() List[Dep]     { return borrowed(p, engine.PkgReplaces, projectDep) }

// Backup returns the configuration files the package asks to preserve.
func (p Package) Backup() List[Backup] { return borrowed(p, engine.PkgBackup, projectBackup) }

// DB returns the database the package belongs to. Packages loaded from a
// file belong to none.
func (p Package) DB() (DB, bool) {
	db := must(p.v, func() DB {
		st, ok := p.v.h.states[p.v.h.eng.PkgDB(p.p)]
		if !ok {
			return DB{}
		}
		return DB{v: view{h: p.v.h, tx: p.v.tx, st: st, lossy: p.v.lossy}}
	})
	return db, db.v.h != nil
}

// Files returns the file list recorded for the package.
func (p Package) Files() FileList {
	return FileList{p: p}
}

// Sig decodes the detached signature.
func (p Package) Sig() ([]byte, error) {
	return do(p.v, func() ([]byte, error) {
		h := p.v.h
		name, _, _ := p.v.optText(h.eng.PkgText(p.p, engine.PkgName))
		var sig []byte
		err := h.checkFound("signature", name, func() int {
			var ret int
			sig, ret = h.eng.PkgSig(p.p)
			return ret
		})
		return sig, err
	})
}

// CheckMD5Sum verifies the cached package file against the recorded
// checksum.
func (p Package) CheckMD5Sum() error {
	_, err := do(p.v, func() (struct{}, error) {
		return struct{}{}, p.v.h.checkRet(func() int { return p.v.h.eng.PkgCheckMD5Sum(p.p) })
	})
	return err
}

// ShouldIgnore reports whether the configuration ignores the package.
func (p Package) ShouldIgnore() bool {
	return must(p.v, func() bool { return p.v.h.eng.PkgShouldIgnore(p.p) })
}

// RequiredBy computes the names of the packages depending on p. Every call
// scans the whole package set; callers needing the result repeatedly should
// keep it. Close the list when done.
func (p Package) RequiredBy() *OwnedList[string] {
	return p.reverse(engine.Engine.PkgComputeRequiredBy)
}

// OptionalFor computes the names of the packages optionally depending on p.
// Like RequiredBy it scans every package on each call.
func (p Package) OptionalFor() *OwnedList[string] {
	return p.reverse(engine.Engine.PkgComputeOptionalFor)
}

func (p Package) reverse(compute func(engine.Engine, engine.Pkg) engine.List) *OwnedList[string] {
	return must(p.v, func() *OwnedList[string] {
		return newOwned(chain[string]{v: p.v, head: compute(p.v.h.eng, p.p), proj: projectString}, true)
	})
}
