package alpm

import (
	"github.com/git-pkgs/alpm/engine"
)

// DB is a read-only view of a registered database.
type DB struct {
	v view
}

// WithLossyText returns a copy of db whose text accessors, and those of
// every package, group and list obtained from it, replace invalid UTF-8
// with U+FFFD instead of failing.
func (db DB) WithLossyText() DB {
	db.v.lossy = true
	return db
}

// Name returns the name the engine reports for the database, which is the
// one it was registered under. Invalid UTF-8 is replaced with U+FFFD.
func (db DB) Name() string {
	return must(db.v, func() string {
		v := db.v
		v.lossy = true
		name, _ := v.text(v.h.eng.DBName(v.st.db))
		return name
	})
}

// IsLocal reports whether db is the database of installed packages.
func (db DB) IsLocal() bool {
	return db.v.st != nil && db.v.st.local
}

// SigLevel returns the signature requirements of the database.
func (db DB) SigLevel() SigLevel {
	return must(db.v, func() SigLevel {
		return SigLevel(db.v.h.eng.DBSigLevel(db.v.st.db))
	})
}

// Usage returns the operations the database is used for.
func (db DB) Usage() (Usage, error) {
	return do(db.v, func() (Usage, error) {
		var u int
		err := db.v.h.checkRet(func() int { return db.v.h.eng.DBUsage(db.v.st.db, &u) })
		return Usage(u), err
	})
}

// Valid checks the integrity of the database, returning the engine's
// complaint if there is one.
func (db DB) Valid() error {
	_, err := do(db.v, func() (struct{}, error) {
		return struct{}{}, db.v.h.checkRet(func() int { return db.v.h.eng.DBValid(db.v.st.db) })
	})
	return err
}

// Servers returns the mirror URLs of the database. Traversing the list
// after the servers are changed reports ErrStale.
func (db DB) Servers() List[string] {
	return must(db.v, func() List[string] {
		st := db.v.st
		return List[string]{c: chain[string]{
			v:    db.v,
			head: db.v.h.eng.DBServers(st.db),
			gen:  &st.epoch,
			at:   st.epoch,
			proj: projectString,
		}}
	})
}

// Pkg looks a package up by exact name.
func (db DB) Pkg(name string) (Package, error) {
	return do(db.v, func() (Package, error) {
		p, err := db.v.h.checkNull("package", name, func() uintptr {
			return uintptr(db.v.h.eng.DBPkg(db.v.st.db, name))
		})
		if err != nil {
			return Package{}, err
		}
		return Package{v: db.v, p: engine.Pkg(p)}, nil
	})
}

// Pkgs returns every package in the database.
func (db DB) Pkgs() List[Package] {
	return must(db.v, func() List[Package] {
		return List[Package]{c: chain[Package]{
			v:    db.v,
			head: db.v.h.eng.DBPkgCache(db.v.st.db),
			proj: projectPackage,
		}}
	})
}

// Group looks a group up by name.
func (db DB) Group(name string) (Group, error) {
	return do(db.v, func() (Group, error) {
		g, err := db.v.h.checkLookup("group", name, func() uintptr {
			return uintptr(db.v.h.eng.DBGroup(db.v.st.db, name))
		})
		if err != nil {
			return Group{}, err
		}
		return Group{v: db.v, g: engine.Group(g)}, nil
	})
}

// Groups returns every group in the database.
func (db DB) Groups() List[Group] {
	return must(db.v, func() List[Group] {
		return List[Group]{c: chain[Group]{
			v:    db.v,
			head: db.v.h.eng.DBGroupCache(db.v.st.db),
			proj: projectGroup,
		}}
	})
}

// Search returns the packages matching every needle. Needles are regular
// expressions matched against names, descriptions and provisions. No
// needles, or no match, gives an empty list.
func (db DB) Search(needles ...string) (*OwnedList[Package], error) {
	return do(db.v, func() (*OwnedList[Package], error) {
		var ret engine.List
		err := db.v.h.checkRet(func() int {
			return db.v.h.eng.DBSearch(db.v.st.db, needles, &ret)
		})
		if err != nil {
			return nil, err
		}
		return newOwned(chain[Package]{v: db.v, head: ret, proj: projectPackage}, false), nil
	})
}

// DBMut is a database that may be changed. It is only handed out by a Tx
// and only valid until the Update call ends.
type DBMut struct {
	DB
}

// AddServer appends a mirror URL.
func (db *DBMut) AddServer(url string) error {
	err := db.mutateServers(func() (int, bool) {
		return db.v.h.eng.DBAddServer(db.v.st.db, url), true
	})
	if err == nil {
		db.v.h.logger.Debug("added server", "db", db.v.st.name, "url", url)
	}
	return err
}

// SetServers replaces the mirror list.
func (db *DBMut) SetServers(urls []string) error {
	err := db.mutateServers(func() (int, bool) {
		return db.v.h.eng.DBSetServers(db.v.st.db, urls), true
	})
	if err == nil {
		db.v.h.logger.Debug("set servers", "db", db.v.st.name, "count", len(urls))
	}
	return err
}

// RemoveServer removes a mirror URL. A URL that is not in the list gives a
// NotFoundError.
func (db *DBMut) RemoveServer(url string) error {
	missing := false
	err := db.mutateServers(func() (int, bool) {
		ret := db.v.h.eng.DBRemoveServer(db.v.st.db, url)
		if ret == 1 {
			missing = true
			return 0, false
		}
		return ret, true
	})
	switch {
	case err != nil:
		return err
	case missing:
		return &NotFoundError{Kind: "server", Name: url}
	}
	db.v.h.logger.Debug("removed server", "db", db.v.st.name, "url", url)
	return nil
}

// mutateServers runs fn, which reports whether it touched the list.
func (db *DBMut) mutateServers(fn func() (ret int, changed bool)) error {
	_, err := do(db.v, func() (struct{}, error) {
		changed := true
		err := db.v.h.checkRet(func() int {
			var ret int
			ret, changed = fn()
			return ret
		})
		// Borrowed server lists point at memory the engine may have freed.
		if changed {
			db.v.st.epoch++
		}
		return struct{}{}, err
	})
	return err
}

// SetUsage changes the operations the database is used for.
func (db *DBMut) SetUsage(u Usage) error {
	_, err := do(db.v, func() (struct{}, error) {
		return struct{}{}, db.v.h.checkRet(func() int { return db.v.h.eng.DBSetUsage(db.v.st.db, int(u)) })
	})
	return err
}

// Unregister removes the database from the engine. Every view of it fails
// with ErrUnregistered afterwards, including db itself.
func (db *DBMut) Unregister() error {
	_, err := do(db.v, func() (struct{}, error) {
		if err := db.v.h.checkRet(func() int { return db.v.h.eng.DBUnregister(db.v.st.db) }); err != nil {
			return struct{}{}, err
		}
		db.v.h.forget(db.v.st)
		return struct{}{}, nil
	})
	return err
}
