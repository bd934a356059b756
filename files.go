package alpm

import (
	"io"
	"io/fs"
	"sync"

	"github.com/git-pkgs/alpm/engine"
)

// File is an entry of a package's file list or mtree.
type File struct {
	Name string
	Size int64
	Mode fs.FileMode
}

func (v view) file(f engine.File) (File, error) {
	name, err := v.text(f.Name)
	if err != nil {
		return File{}, err
	}
	return File{Name: name, Size: f.Size, Mode: fs.FileMode(f.Mode)}, nil
}

// FileList is the list of files a package installs.
type FileList struct {
	p Package
}

// Files copies the entries out of the engine.
func (fl FileList) Files() ([]File, error) {
	p := fl.p
	return do(p.v, func() ([]File, error) {
		n := p.v.h.eng.PkgFileCount(p.p)
		files := make([]File, 0, n)
		for i := range n {
			f, err := p.v.file(p.v.h.eng.PkgFile(p.p, i))
			if err != nil {
				return nil, err
			}
			files = append(files, f)
		}
		return files, nil
	})
}

// Contains looks up the entry for path, given relative to the root without
// a leading slash.
func (fl FileList) Contains(path string) (File, bool, error) {
	p := fl.p
	type found struct {
		f  File
		ok bool
	}
	r, err := do(p.v, func() (found, error) {
		f, ok := p.v.h.eng.PkgFileContains(p.p, path)
		if !ok {
			return found{}, nil
		}
		file, err := p.v.file(f)
		return found{file, err == nil}, err
	})
	return r.f, r.ok, err
}

// stream holds what Changelog and FileTree share: the package they read
// from and the engine stream, which is closed exactly once.
type stream struct {
	mu     sync.Mutex
	p      Package
	s      engine.Stream
	closed bool
}

// use runs fn on the open stream inside the package's view.
func (st *stream) use(op string, fn func() error) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return &StreamError{Op: op, Err: ErrReleased}
	}
	_, err := do(st.p.v, func() (struct{}, error) { return struct{}{}, fn() })
	if err != nil {
		if _, ok := err.(*StreamError); !ok && err != io.EOF {
			err = &StreamError{Op: op, Err: err}
		}
	}
	return err
}

// close releases the engine stream. When the package is no longer readable
// the engine has already dropped it and only the lifetime error is
// reported.
func (st *stream) close(op string, fn func() int) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return nil
	}
	st.closed = true
	_, err := do(st.p.v, func() (struct{}, error) {
		return struct{}{}, st.p.v.h.checkRet(fn)
	})
	if err != nil {
		return &StreamError{Op: op, Err: err}
	}
	return nil
}

// Changelog reads the changelog of an installed package. It must be
// closed.
type Changelog struct {
	st stream
}

// Changelog opens the changelog. A package without one gives a
// NotFoundError.
func (p Package) Changelog() (*Changelog, error) {
	s, err := p.openStream("changelog", engine.Engine.ChangelogOpen)
	if err != nil {
		return nil, err
	}
	return &Changelog{st: stream{p: p, s: s}}, nil
}

func (p Package) openStream(kind string, open func(engine.Engine, engine.Pkg) engine.Stream) (engine.Stream, error) {
	return do(p.v, func() (engine.Stream, error) {
		h := p.v.h
		name, _, _ := p.v.optText(h.eng.PkgText(p.p, engine.PkgName))
		s, err := h.checkLookup(kind, name, func() uintptr { return uintptr(open(h.eng, p.p)) })
		return engine.Stream(s), err
	})
}

func (c *Changelog) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	var n int
	err := c.st.use("read changelog", func() error {
		n = c.st.p.v.h.eng.ChangelogRead(c.st.p.p, c.st.s, b)
		if n == 0 {
			return io.EOF
		}
		return nil
	})
	return n, err
}

func (c *Changelog) Close() error {
	return c.st.close("close changelog", func() int {
		return c.st.p.v.h.eng.ChangelogClose(c.st.p.p, c.st.s)
	})
}

// FileTree walks the mtree of an installed package, which records every
// file with its size and mode. It must be closed.
type FileTree struct {
	st stream
}

// FileTree opens the mtree. A package without one gives a NotFoundError.
func (p Package) FileTree() (*FileTree, error) {
	s, err := p.openStream("mtree", engine.Engine.MtreeOpen)
	if err != nil {
		return nil, err
	}
	return &FileTree{st: stream{p: p, s: s}}, nil
}

// Next returns the next entry, or io.EOF after the last one.
func (t *FileTree) Next() (File, error) {
	var f File
	err := t.st.use("read mtree", func() error {
		h := t.st.p.v.h
		var raw engine.File
		var status int
		h.errMu.Lock()
		raw, status = h.eng.MtreeNext(t.st.p.p, t.st.s)
		var code engine.Code
		if status != engine.StreamOK && status != engine.StreamEOF {
			code = h.eng.Errno()
		}
		h.errMu.Unlock()

		switch status {
		case engine.StreamOK:
			var err error
			f, err = t.st.p.v.file(raw)
			return err
		case engine.StreamEOF:
			return io.EOF
		}
		return h.engineError(code)
	})
	return f, err
}

func (t *FileTree) Close() error {
	return t.st.close("close mtree", func() int {
		return t.st.p.v.h.eng.MtreeClose(t.st.p.p, t.st.s)
	})
}
