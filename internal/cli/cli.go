// Package cli implements alpmq, a query tool for pacman databases and the
// AUR.
//
// Sync databases, their servers and the AUR endpoint come from alpmq.toml:
//
//	root = "/"
//	dbpath = "/var/lib/pacman"
//	arch = "x86_64"
//
//	[[repo]]
//	name = "core"
//	servers = ["https://geo.mirror.pkgbuild.com/$repo/os/$arch"]
//
//	[aur]
//	url = "https://aur.archlinux.org"
//
// Every command accepts --verbose for debug logging, which includes the
// messages of the package engine.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
	"github.com/git-pkgs/alpm"
	"github.com/git-pkgs/alpm/aur"
	"github.com/git-pkgs/alpm/fetch"
	"github.com/spf13/cobra"
)

var version = "dev"

// SetVersion sets what --version prints.
func SetVersion(v string) {
	version = v
}

type app struct {
	cfgPath string
	verbose bool
	lossy   bool

	out    io.Writer
	errOut io.Writer
	cfg    *Config
}

// Execute runs alpmq with the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx)
}

// NewRootCommand builds the command tree writing results to out and logs
// to errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "alpmq",
		Short:         "Query pacman databases and the AUR",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := charmlog.InfoLevel
			if a.verbose {
				level = charmlog.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(a.errOut, level)))

			cfg, err := loadConfig(a.cfgPath, cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/alpmq/alpmq.toml)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose logging")
	pf.BoolVar(&a.lossy, "lossy", false, "replace invalid UTF-8 in package metadata instead of failing")
	pf.String("root", "/", "installation root")
	pf.String("dbpath", "/var/lib/pacman", "database directory")
	pf.String("arch", "x86_64", "architecture substituted for $arch in servers")

	root.AddCommand(
		a.infoCommand(),
		a.searchCommand(),
		a.requiredByCommand(),
		a.serversCommand(),
		a.urlsCommand(),
		a.downloadCommand(),
		a.aurCommand(),
		a.outdatedCommand(),
	)
	return root
}

// open creates a handle and registers the configured repositories with
// their servers.
func (a *app) open(ctx context.Context) (*alpm.Handle, error) {
	logger := loggerFromContext(ctx)
	h, err := alpm.New(a.cfg.Root, a.cfg.DBPath, alpm.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	err = h.Update(func(tx *alpm.Tx) error {
		for _, r := range a.cfg.Repos {
			level, err := parseSigLevel(r.SigLevel)
			if err != nil {
				return err
			}
			db, err := tx.RegisterSyncDB(r.Name, level)
			if err != nil {
				return fmt.Errorf("registering %s: %w", r.Name, err)
			}
			servers := make([]string, len(r.Servers))
			for i, s := range r.Servers {
				servers[i] = fetch.Expand(s, r.Name, a.cfg.Arch)
			}
			if err := db.SetServers(servers); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = h.Release()
		return nil, err
	}
	return h, nil
}

func (a *app) view(db alpm.DB) alpm.DB {
	if a.lossy {
		return db.WithLossyText()
	}
	return db
}

// find looks name up in the local database and then in every sync
// database. "repo/name" restricts the search to one sync database.
func (a *app) find(h *alpm.Handle, name string) (alpm.Package, error) {
	if repo, pkg, ok := strings.Cut(name, "/"); ok {
		db, err := h.SyncDB(repo)
		if err != nil {
			return alpm.Package{}, err
		}
		return a.view(db).Pkg(pkg)
	}

	if p, err := a.view(h.LocalDB()).Pkg(name); !errors.Is(err, alpm.ErrNotFound) {
		return p, err
	}
	for db, err := range h.SyncDBs().All() {
		if err != nil {
			return alpm.Package{}, err
		}
		if p, err := a.view(db).Pkg(name); !errors.Is(err, alpm.ErrNotFound) {
			return p, err
		}
	}
	return alpm.Package{}, &alpm.NotFoundError{Kind: "package", Name: name}
}

func (a *app) aurClient(ctx context.Context) *aur.Client {
	return aur.New(a.cfg.AUR.URL, aur.WithLogger(loggerFromContext(ctx)))
}
