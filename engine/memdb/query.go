package memdb

import (
	"regexp"
	"sort"
	"strings"

	"github.com/git-pkgs/alpm/engine"
	"github.com/git-pkgs/alpm/internal/depstring"
)

// DBSearch keeps the packages matching every needle. A needle matches a
// package when it matches, case-insensitively, its name, its description or
// the name of something it provides.
func (e *Engine) DBSearch(h engine.DB, needles []string, ret *engine.List) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	db := e.db(h)
	*ret = engine.Null
	if db.usage&usageSearch == 0 || len(needles) == 0 {
		return 0
	}
	e.load(db)

	res := make([]*regexp.Regexp, len(needles))
	for i, n := range needles {
		re, err := regexp.Compile("(?i)" + n)
		if err != nil {
			e.log(engine.LogError, "invalid regular expression '%s'", n)
			e.setErr(engine.ErrInvalidRegex)
			return -1
		}
		res[i] = re
	}

	var hits []uintptr
	for _, p := range db.pkgs {
		if matchesAll(p, needles, res) {
			hits = append(hits, p.id)
		}
	}
	*ret = e.buildList(hits, nil, true)
	return 0
}

func matchesAll(p *pkgObj, needles []string, res []*regexp.Regexp) bool {
	for i, re := range res {
		if !matches(p, needles[i], re) {
			return false
		}
	}
	return true
}

func matches(p *pkgObj, needle string, re *regexp.Regexp) bool {
	if re.MatchString(p.f.Name) || strings.Contains(p.f.Name, needle) {
		return true
	}
	if p.f.Desc != nil && re.MatchString(*p.f.Desc) {
		return true
	}
	for _, prov := range p.deps[engine.PkgProvides] {
		if re.MatchString(prov.Name) {
			return true
		}
	}
	return false
}

// computeReverse lists the names of packages whose kind dependencies are
// satisfied by h. Local packages are checked against the local database,
// sync packages against every sync database.
func (e *Engine) computeReverse(h engine.Pkg, kind engine.PkgList) engine.List {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.pkg(h)

	dbs := e.syncs
	if p.db.local {
		dbs = []*database{e.local}
	}

	seen := make(map[string]bool)
	var names []string
	for _, db := range dbs {
		e.load(db)
		for _, q := range db.pkgs {
			if seen[q.f.Name] {
				continue
			}
			for _, dep := range q.deps[kind] {
				if satisfies(p, dep) {
					seen[q.f.Name] = true
					names = append(names, q.f.Name)
					break
				}
			}
		}
	}
	sort.Strings(names)

	ids := make([]uintptr, len(names))
	for i, n := range names {
		ids[i] = e.allocOwned([]byte(n))
	}
	return e.buildList(ids, nil, true)
}

// satisfies reports whether p, by name or by one of its provisions, meets
// dep.
func satisfies(p *pkgObj, dep depstring.Spec) bool {
	if p.f.Name == dep.Name && versionMeets(p.f.Version, dep) {
		return true
	}
	for _, prov := range p.deps[engine.PkgProvides] {
		if prov.Name != dep.Name {
			continue
		}
		if dep.Mod == depstring.ModAny {
			return true
		}
		if prov.Mod == depstring.ModEq && versionMeets(prov.Version, dep) {
			return true
		}
	}
	return false
}

func versionMeets(version string, dep depstring.Spec) bool {
	if dep.Mod == depstring.ModAny {
		return true
	}
	c := VerCmp(version, dep.Version)
	switch dep.Mod {
	case depstring.ModEq:
		return c == 0
	case depstring.ModGe:
		return c >= 0
	case depstring.ModLe:
		return c <= 0
	case depstring.ModGt:
		return c > 0
	case depstring.ModLt:
		return c < 0
	}
	return false
}
