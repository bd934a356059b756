package aur

import (
	"net/url"

	"github.com/git-pkgs/alpm"
	packageurl "github.com/package-url/packageurl-go"
)

// PURLNamespace marks Package URLs of AUR packages, which are not part of
// any sync database.
const PURLNamespace = "aur"

// URLs builds links into the AUR web interface.
type URLs struct {
	baseURL string
}

// Registry is the package's page.
func (u *URLs) Registry(name string) string {
	return u.baseURL + "/packages/" + url.PathEscape(name)
}

// Snapshot is the tarball of the package's build files.
func (u *URLs) Snapshot(p Package) string {
	if p.URLPath == "" {
		return ""
	}
	return u.baseURL + p.URLPath
}

// Git is the clone URL of a package base.
func (u *URLs) Git(pkgbase string) string {
	return u.baseURL + "/" + url.PathEscape(pkgbase) + ".git"
}

func (u *URLs) PURL(name, version string) string {
	var q packageurl.Qualifiers
	if u.baseURL != DefaultURL {
		q = packageurl.QualifiersFromMap(map[string]string{"repository_url": u.baseURL})
	}
	return packageurl.NewPackageURL(alpm.PURLType, PURLNamespace, name, version, q, "").ToString()
}
