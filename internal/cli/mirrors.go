package cli

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/git-pkgs/alpm/fetch"
	"github.com/spf13/cobra"
)

func (a *app) serversCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "servers [repo]...",
		Short: "List the servers of each sync database",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = h.Release() }()

			dbs, err := h.SyncDBs().Collect()
			if err != nil {
				return err
			}
			for _, db := range dbs {
				if len(args) > 0 && !slices.Contains(args, db.Name()) {
					continue
				}
				servers, err := db.Servers().Collect()
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, styleTitle.Render(db.Name()))
				if len(servers) == 0 {
					fmt.Fprintln(a.out, "  "+styleWarning.Render("no servers"))
				}
				for _, s := range servers {
					fmt.Fprintln(a.out, "  "+styleLink.Render(s))
				}
			}
			return nil
		},
	}
}

func (a *app) getter(cmd *cobra.Command) *fetch.CircuitBreakerFetcher {
	return fetch.NewCircuitBreakerFetcher(fetch.NewFetcher(fetch.WithLogger(loggerFromContext(cmd.Context()))))
}

func (a *app) urlsCommand() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "urls <repo/package>...",
		Short: "Print the mirror URLs a sync package downloads from",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = h.Release() }()

			g := a.getter(cmd)
			r := fetch.NewResolver(g, loggerFromContext(cmd.Context()))
			for _, name := range args {
				p, err := a.find(h, name)
				if err != nil {
					return err
				}
				art, err := r.Resolve(p)
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				fmt.Fprintln(a.out, styleTitle.Render(art.Filename))
				for _, u := range art.URLs {
					if !check {
						fmt.Fprintln(a.out, "  "+u)
						continue
					}
					status := styleNew.Render("ok")
					if _, err := g.Head(cmd.Context(), u); err != nil {
						status = styleWarning.Render(err.Error())
					}
					fmt.Fprintf(a.out, "  %s %s\n", u, status)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "send a HEAD request to each mirror")
	return cmd
}

func (a *app) downloadCommand() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "download <repo/package>",
		Short: "Download a sync package from the first mirror that has it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = h.Release() }()

			p, err := a.find(h, args[0])
			if err != nil {
				return err
			}
			r := fetch.NewResolver(a.getter(cmd), loggerFromContext(cmd.Context()))
			art, err := r.Resolve(p)
			if err != nil {
				return err
			}
			resp, err := r.Download(cmd.Context(), art)
			if err != nil {
				return err
			}
			defer func() { _ = resp.Body.Close() }()

			path := filepath.Join(dir, art.Filename)
			if err := writeVerified(path, resp.Body, art.SHA256Sum); err != nil {
				return err
			}
			fmt.Fprintln(a.out, path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "output", "o", ".", "directory to write the package to")
	return cmd
}

// writeVerified copies r to path, removing the file again when its
// SHA-256 does not match want. An empty want skips the check.
func writeVerified(path string, r io.Reader, want string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	sum := sha256.New()
	_, err = io.Copy(io.MultiWriter(f, sum), r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && want != "" {
		if got := hex.EncodeToString(sum.Sum(nil)); got != want {
			err = fmt.Errorf("%s: sha256 %s, want %s", filepath.Base(path), got, want)
		}
	}
	if err != nil {
		_ = os.Remove(path)
	}
	return err
}
