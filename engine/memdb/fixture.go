package memdb

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// dbFixture is the on-disk description of one database.
//
//	packages:
//	  - name: linux
//	    version: 5.1.8.arch1-1
//	    depends: [coreutils, kmod]
type dbFixture struct {
	InvalidSignature bool         `yaml:"invalid_signature"`
	Packages         []pkgFixture `yaml:"packages"`
}

type pkgFixture struct {
	Name      string  `yaml:"name"`
	Version   string  `yaml:"version"`
	Filename  *string `yaml:"filename"`
	Base      *string `yaml:"base"`
	Desc      *string `yaml:"desc"`
	URL       *string `yaml:"url"`
	Packager  *string `yaml:"packager"`
	MD5Sum    *string `yaml:"md5sum"`
	SHA256Sum *string `yaml:"sha256sum"`
	Arch      *string `yaml:"arch"`
	PGPSig    *string `yaml:"pgpsig"`
	Changelog *string `yaml:"changelog"`

	BuildDate     int64 `yaml:"builddate"`
	InstallDate   int64 `yaml:"installdate"`
	Size          int64 `yaml:"csize"`
	InstalledSize int64 `yaml:"isize"`
	Reason        int64 `yaml:"reason"`
	Validation    int64 `yaml:"validation"`
	Scriptlet     bool  `yaml:"scriptlet"`

	Licenses     []string `yaml:"license"`
	Groups       []string `yaml:"groups"`
	Depends      []string `yaml:"depends"`
	OptDepends   []string `yaml:"optdepends"`
	CheckDepends []string `yaml:"checkdepends"`
	MakeDepends  []string `yaml:"makedepends"`
	Conflicts    []string `yaml:"conflicts"`
	Provides     []string `yaml:"provides"`
	Replaces     []string `yaml:"replaces"`

	Backup []backupFixture `yaml:"backup"`
	Files  []string        `yaml:"files"`
	Mtree  []mtreeFixture  `yaml:"mtree"`
}

type backupFixture struct {
	Path string `yaml:"path"`
	Hash string `yaml:"hash"`
}

type mtreeFixture struct {
	Path string `yaml:"path"`
	Size int64  `yaml:"size"`
	Mode uint32 `yaml:"mode"`
}

// loadFixture reads a database description. A missing file is reported
// with os.ErrNotExist so callers can tell it apart from a malformed one.
func loadFixture(path string) (*dbFixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fx dbFixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for i, p := range fx.Packages {
		if p.Name == "" || p.Version == "" {
			return nil, fmt.Errorf("parsing %s: package %d has no name or version", path, i)
		}
	}
	return &fx, nil
}
