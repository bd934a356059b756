// Package alpm provides safe access to the package databases managed by
// libalpm, the library behind pacman.
//
// A Handle owns the engine for the lifetime of the program. Databases,
// packages, groups and lists are views into memory the engine owns; each of
// them checks on every call that the memory it refers to is still alive, so a
// view used after Release, after its database was unregistered or after the
// Update call it came from returned reports an error instead of reading
// freed memory.
//
// Basic usage:
//
//	h, err := alpm.New("/", "/var/lib/pacman")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer h.Release()
//
//	core, err := h.RegisterSyncDB("core", alpm.SigUseDefault)
//	if err != nil {
//		log.Fatal(err)
//	}
//	pkg, err := core.Pkg("linux")
//	if err != nil {
//		log.Fatal(err)
//	}
//	v, _ := pkg.Version()
//	fmt.Println(v)
//
// Mutations that free engine memory, such as changing a server list or
// unregistering a database, run inside Update and use the DBMut views it
// hands out:
//
//	err = h.Update(func(tx *alpm.Tx) error {
//		db, err := tx.Upgrade(core)
//		if err != nil {
//			return err
//		}
//		return db.SetServers([]string{"https://mirror.example/$repo/os/$arch"})
//	})
package alpm

import (
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/git-pkgs/alpm/engine"
)

// Handle owns an engine instance. It is safe for concurrent use.
type Handle struct {
	mu    sync.RWMutex
	errMu sync.Mutex

	eng    engine.Engine
	logger *log.Logger
	root   string
	dbpath string

	released bool
	local    *dbState
	states   map[engine.DB]*dbState

	// syncGen changes whenever the set of sync databases does.
	syncGen uint64
}

// dbState is shared by every view of one registered database.
type dbState struct {
	db    engine.DB
	name  string
	local bool
	dead  bool
	// epoch changes whenever the server list is replaced.
	epoch uint64
}

// Option configures a Handle.
type Option func(*options)

type options struct {
	logger *log.Logger
	open   engine.Opener
}

// WithLogger sets the logger receiving handle and engine messages.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithEngine replaces the engine the handle is built on.
func WithEngine(open engine.Opener) Option {
	return func(o *options) {
		o.open = open
	}
}

// New opens the engine for the system rooted at root, with its databases
// stored under dbpath.
func New(root, dbpath string, opts ...Option) (*Handle, error) {
	o := options{
		logger: log.New(io.Discard),
		open:   defaultOpener,
	}
	for _, opt := range opts {
		opt(&o)
	}

	eng, code := o.open(root, dbpath)
	if eng == nil {
		return nil, &EngineError{Code: code, Message: code.String()}
	}

	h := &Handle{
		eng:    eng,
		logger: o.logger,
		root:   root,
		dbpath: dbpath,
	}
	h.local = &dbState{db: eng.LocalDB(), name: "local", local: true}
	h.states = map[engine.DB]*dbState{h.local.db: h.local}
	eng.SetLogFunc(h.engineLog)
	h.logger.Debug("opened engine", "root", root, "dbpath", dbpath)
	return h, nil
}

func (h *Handle) engineLog(level engine.LogLevel, msg string) {
	msg = strings.TrimRight(msg, "\n")
	switch level {
	case engine.LogError:
		h.logger.Error(msg, "source", "engine")
	case engine.LogWarning:
		h.logger.Warn(msg, "source", "engine")
	default:
		h.logger.Debug(msg, "source", "engine")
	}
}

// Root returns the root directory the handle was opened with.
func (h *Handle) Root() string { return h.root }

// DBPath returns the database directory the handle was opened with.
func (h *Handle) DBPath() string { return h.dbpath }

// Release shuts the engine down. Every view obtained from h fails with
// ErrReleased afterwards. A second call returns ErrReleased.
func (h *Handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return ErrReleased
	}
	h.released = true
	h.logger.Debug("releasing engine")
	return h.checkRet(h.eng.Release)
}

// VerCmp compares two version strings the way the engine does.
func (h *Handle) VerCmp(a, b string) int {
	return h.eng.VerCmp(a, b)
}

// LocalDB returns the database of installed packages.
func (h *Handle) LocalDB() DB {
	return DB{v: view{h: h, st: h.local}}
}

// SyncDBs returns the registered sync databases in registration order.
// Traversing the list after a database is registered or unregistered
// reports ErrStale.
func (h *Handle) SyncDBs() List[DB] {
	return must(view{h: h}, h.syncDBs)
}

// syncDBs builds the SyncDBs list. The caller must be inside a view.
func (h *Handle) syncDBs() List[DB] {
	return List[DB]{c: chain[DB]{
		v:    view{h: h},
		head: h.eng.SyncDBs(),
		gen:  &h.syncGen,
		at:   h.syncGen,
		proj: projectDB,
	}}
}

// SyncDB returns the registered sync database called name.
func (h *Handle) SyncDB(name string) (DB, error) {
	v := view{h: h}
	return do(v, func() (DB, error) {
		for _, st := range h.states {
			if !st.local && st.name == name {
				return DB{v: view{h: h, st: st}}, nil
			}
		}
		return DB{}, &NotFoundError{Kind: "database", Name: name}
	})
}

// RegisterSyncDB registers a sync database. Registering a name twice fails
// with ErrDuplicate.
func (h *Handle) RegisterSyncDB(name string, level SigLevel) (DB, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return DB{}, ErrReleased
	}
	st, err := h.register(name, level)
	if err != nil {
		return DB{}, err
	}
	return DB{v: view{h: h, st: st}}, nil
}

// register requires the write lock.
func (h *Handle) register(name string, level SigLevel) (*dbState, error) {
	p, err := h.checkNull("database", name, func() uintptr {
		return uintptr(h.eng.RegisterSyncDB(name, int(level)))
	})
	if err != nil {
		h.logger.Debug("could not register sync database", "name", name, "err", err)
		return nil, err
	}
	st := &dbState{db: engine.DB(p), name: name}
	h.states[st.db] = st
	h.syncGen++
	h.logger.Debug("registered sync database", "name", name, "siglevel", level)
	return st, nil
}

// forget requires the write lock.
func (h *Handle) forget(st *dbState) {
	st.dead = true
	delete(h.states, st.db)
	h.syncGen++
	h.logger.Debug("unregistered sync database", "name", st.name)
}

func (h *Handle) state(db engine.DB) *dbState {
	st, ok := h.states[db]
	if !ok {
		panic("alpm: engine returned a database that was never registered")
	}
	return st
}

func projectDB(v view, data uintptr) (DB, error) {
	st := v.h.state(engine.DB(data))
	return DB{v: view{h: v.h, tx: v.tx, st: st, lossy: v.lossy}}, nil
}

// Update runs fn with exclusive access to the handle. Views obtained through
// tx are valid only until fn returns. Views obtained outside fn block until
// it returns, so they must not be used inside it.
func (h *Handle) Update(fn func(tx *Tx) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return ErrReleased
	}
	tx := &Tx{h: h}
	defer func() { tx.done = true }()
	return fn(tx)
}

// Tx is exclusive access to a Handle, valid for the duration of an Update
// call.
type Tx struct {
	h    *Handle
	done bool
}

func (tx *Tx) check() error {
	if tx.done {
		return ErrTxDone
	}
	return nil
}

// RegisterSyncDB registers a sync database and returns it in its mutable
// form.
func (tx *Tx) RegisterSyncDB(name string, level SigLevel) (*DBMut, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	st, err := tx.h.register(name, level)
	if err != nil {
		return nil, err
	}
	return tx.mut(st), nil
}

// Upgrade returns the mutable form of db.
func (tx *Tx) Upgrade(db DB) (*DBMut, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	st := db.v.st
	switch {
	case db.v.h != tx.h:
		panic("alpm: database does not belong to this handle")
	case st.dead:
		return nil, ErrUnregistered
	case st.local:
		return nil, &EngineError{Code: engine.ErrWrongArgs, Message: "the local database cannot be modified"}
	}
	return tx.mut(st), nil
}

// SyncDBs returns every registered sync database in its mutable form.
func (tx *Tx) SyncDBs() ([]*DBMut, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	var dbs []*DBMut
	for l := tx.h.eng.SyncDBs(); l != engine.Null; l = tx.h.eng.ListNext(l) {
		dbs = append(dbs, tx.mut(tx.h.state(engine.DB(tx.h.eng.ListData(l)))))
	}
	return dbs, nil
}

// UnregisterAllSyncDBs unregisters every sync database.
func (tx *Tx) UnregisterAllSyncDBs() error {
	if err := tx.check(); err != nil {
		return err
	}
	if err := tx.h.checkRet(tx.h.eng.UnregisterAllSyncDBs); err != nil {
		return err
	}
	for _, st := range tx.h.states {
		if !st.local {
			tx.h.forget(st)
		}
	}
	return nil
}

// LocalDB returns the local database bound to tx.
func (tx *Tx) LocalDB() DB {
	return DB{v: view{h: tx.h, tx: tx, st: tx.h.local}}
}

func (tx *Tx) mut(st *dbState) *DBMut {
	return &DBMut{DB: DB{v: view{h: tx.h, tx: tx, st: st}}}
}
