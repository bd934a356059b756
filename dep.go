package alpm

import (
	"github.com/git-pkgs/alpm/engine"
	"github.com/git-pkgs/alpm/internal/depstring"
)

// Dep is one entry of a dependency list, copied out of the engine.
type Dep struct {
	Name string
	// Version is zero when Mod is DepModAny.
	Version     Version
	Description string
	Mod         DepMod
}

// ParseDep splits a dependency string such as "glibc>=2.28" or
// "crda: wireless regulatory domain".
func ParseDep(s string) Dep {
	spec := depstring.Parse(s)
	d := Dep{Name: spec.Name, Description: spec.Desc, Mod: DepMod(spec.Mod)}
	if spec.Mod != depstring.ModAny {
		d.Version = NewVersion(spec.Version)
	}
	return d
}

// String formats d the way dependency strings are written in package
// metadata.
func (d Dep) String() string {
	return depstring.Format(depstring.Spec{
		Name:    d.Name,
		Version: d.Version.String(),
		Desc:    d.Description,
		HasDesc: d.Description != "",
		Mod:     int(d.Mod),
	})
}

// SatisfiedBy reports whether a package called name at version v meets d.
func (d Dep) SatisfiedBy(name string, v Version) bool {
	if name != d.Name {
		return false
	}
	c := v.Compare(d.Version)
	switch d.Mod {
	case DepModAny:
		return true
	case DepModEq:
		return c == 0
	case DepModGe:
		return c >= 0
	case DepModLe:
		return c <= 0
	case DepModGt:
		return c > 0
	case DepModLt:
		return c < 0
	}
	return false
}

func projectDep(v view, data uintptr) (Dep, error) {
	f := v.h.eng.DepFields(engine.Dep(data))
	name, err := v.text(f.Name)
	if err != nil {
		return Dep{}, err
	}
	d := Dep{Name: name, Mod: DepMod(f.Mod)}
	ver, ok, err := v.optText(f.Version)
	if err != nil {
		return Dep{}, err
	}
	if ok {
		d.Version = v.h.version(ver)
	}
	if d.Description, _, err = v.optText(f.Desc); err != nil {
		return Dep{}, err
	}
	return d, nil
}

// Backup is a file preserved across upgrades together with the hash it had
// when installed.
type Backup struct {
	Name string
	Hash string
}

func projectBackup(v view, data uintptr) (Backup, error) {
	name, hash := v.h.eng.BackupFields(engine.Backup(data))
	var b Backup
	var err error
	if b.Name, err = v.text(name); err != nil {
		return Backup{}, err
	}
	if b.Hash, _, err = v.optText(hash); err != nil {
		return Backup{}, err
	}
	return b, nil
}
