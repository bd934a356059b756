package alpm

import (
	"errors"
	"fmt"

	"github.com/git-pkgs/purl"
	packageurl "github.com/package-url/packageurl-go"
)

// PURLType is the Package URL type of packages managed by this engine.
const PURLType = "alpm"

// PURLNamespace is the distribution namespace used in generated Package URLs.
const PURLNamespace = "arch"

// PURL represents a parsed Package URL.
type PURL = purl.PURL

// ParsePURL parses a Package URL string into its components.
func ParsePURL(purlStr string) (*PURL, error) {
	return purl.Parse(purlStr)
}

// PURL returns the Package URL of p, for example
// pkg:alpm/arch/linux@5.1.8.arch1-1?arch=x86_64.
func (p Package) PURL() (string, error) {
	name, err := p.Name()
	if err != nil {
		return "", err
	}
	version, err := p.Version()
	if err != nil {
		return "", err
	}
	arch, ok, err := p.Arch()
	if err != nil {
		return "", err
	}
	qualifiers := map[string]string{}
	if ok {
		qualifiers["arch"] = arch
	}
	u := packageurl.NewPackageURL(PURLType, PURLNamespace, name, version.String(),
		packageurl.QualifiersFromMap(qualifiers), "")
	return u.ToString(), nil
}

// LookupPURL finds the package a Package URL names in the sync databases,
// searched in registration order. When the URL carries a version the
// package must be at exactly that version.
func (h *Handle) LookupPURL(s string) (Package, error) {
	u, err := packageurl.FromString(s)
	if err != nil {
		return Package{}, err
	}
	if u.Type != PURLType {
		return Package{}, fmt.Errorf("purl %s: type %q is not %q", s, u.Type, PURLType)
	}

	dbs, err := do(view{h: h}, func() (List[DB], error) { return h.syncDBs(), nil })
	if err != nil {
		return Package{}, err
	}
	for db, err := range dbs.All() {
		if err != nil {
			return Package{}, err
		}
		pkg, err := db.Pkg(u.Name)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return Package{}, err
		}
		if u.Version == "" {
			return pkg, nil
		}
		v, err := pkg.Version()
		if err != nil {
			return Package{}, err
		}
		if v.Equal(h.version(u.Version)) {
			return pkg, nil
		}
	}
	name := u.Name
	if u.Version != "" {
		name += "@" + u.Version
	}
	return Package{}, &NotFoundError{Kind: "package", Name: name}
}
