package alpm

import "github.com/git-pkgs/alpm/engine"

// Group is a named set of packages within one database.
type Group struct {
	v view
	g engine.Group
}

func projectGroup(v view, data uintptr) (Group, error) {
	return Group{v: v, g: engine.Group(data)}, nil
}

func (g Group) Name() (string, error) {
	return do(g.v, func() (string, error) {
		return g.v.text(g.v.h.eng.GroupName(g.g))
	})
}

// Packages returns the members of the group.
func (g Group) Packages() List[Package] {
	return must(g.v, func() List[Package] {
		return List[Package]{c: chain[Package]{v: g.v, head: g.v.h.eng.GroupPackages(g.g), proj: projectPackage}}
	})
}
