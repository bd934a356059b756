package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/git-pkgs/alpm"
)

var (
	ErrNotSyncPackage = errors.New("package does not come from a sync database")
	ErrNoMirror       = errors.New("database has no servers")
)

// Expand substitutes $repo and $arch in a server entry as written in
// pacman.conf or a mirrorlist.
func Expand(server, repo, arch string) string {
	return strings.NewReplacer("$repo", repo, "$arch", arch).Replace(server)
}

// Artifact is a package file and the mirrors it can be downloaded from, in
// the order the database lists its servers.
type Artifact struct {
	Filename  string
	URLs      []string
	MD5Sum    string
	SHA256Sum string
}

// Resolver finds and downloads the files of sync packages.
type Resolver struct {
	getter Getter
	logger *log.Logger
}

func NewResolver(g Getter, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Resolver{getter: g, logger: logger}
}

// Resolve lists the download URLs of pkg.
func (r *Resolver) Resolve(pkg alpm.Package) (*Artifact, error) {
	db, ok := pkg.DB()
	if !ok || db.IsLocal() {
		return nil, ErrNotSyncPackage
	}
	filename, ok, err := pkg.Filename()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotSyncPackage
	}
	servers, err := db.Servers().Collect()
	if err != nil {
		return nil, err
	}
	if len(servers) == 0 {
		return nil, fmt.Errorf("%s: %w", db.Name(), ErrNoMirror)
	}

	a := &Artifact{Filename: filename}
	for _, s := range servers {
		a.URLs = append(a.URLs, strings.TrimSuffix(s, "/")+"/"+filename)
	}
	if a.MD5Sum, _, err = pkg.MD5Sum(); err != nil {
		return nil, err
	}
	if a.SHA256Sum, _, err = pkg.SHA256Sum(); err != nil {
		return nil, err
	}
	return a, nil
}

// Download fetches the artifact from the first mirror that serves it. The
// caller must close the returned Body.
func (r *Resolver) Download(ctx context.Context, a *Artifact) (*Response, error) {
	var errs []error
	for _, u := range a.URLs {
		resp, err := r.getter.Get(ctx, u)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Debug("mirror failed", "url", u, "err", err)
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, ErrNoMirror
	}
	return nil, fmt.Errorf("downloading %s: %w", a.Filename, errors.Join(errs...))
}
