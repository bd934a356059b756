package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/docker/go-units"
	"github.com/git-pkgs/alpm"
	"github.com/spf13/cobra"
)

func (a *app) infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <package>...",
		Short: "Show package details",
		Long: `Show package details from the local database, falling back to the sync
databases in configuration order. Use repo/name to read a sync database
directly.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = h.Release() }()

			for i, name := range args {
				p, err := a.find(h, name)
				if err != nil {
					return err
				}
				if i > 0 {
					fmt.Fprintln(a.out)
				}
				if err := printPackage(a.out, p); err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
			}
			return nil
		},
	}
}

func printPackage(w io.Writer, p alpm.Package) error {
	name, err := p.Name()
	if err != nil {
		return err
	}
	version, err := p.Version()
	if err != nil {
		return err
	}
	desc, _, err := p.Description()
	if err != nil {
		return err
	}
	arch, _, err := p.Arch()
	if err != nil {
		return err
	}
	url, _, err := p.URL()
	if err != nil {
		return err
	}
	packager, _, err := p.Packager()
	if err != nil {
		return err
	}
	licenses, err := p.Licenses().Collect()
	if err != nil {
		return err
	}
	groups, err := p.Groups().Collect()
	if err != nil {
		return err
	}

	lists := make(map[string][]string)
	for _, l := range []struct {
		key  string
		deps alpm.List[alpm.Dep]
	}{
		{"Provides", p.Provides()},
		{"Depends On", p.Depends()},
		{"Optional Deps", p.OptDepends()},
		{"Conflicts With", p.Conflicts()},
		{"Replaces", p.Replaces()},
	} {
		if lists[l.key], err = depStrings(l.deps); err != nil {
			return err
		}
	}

	requiredBy, err := ownedStrings(p.RequiredBy())
	if err != nil {
		return err
	}
	optionalFor, err := ownedStrings(p.OptionalFor())
	if err != nil {
		return err
	}

	repo := ""
	if db, ok := p.DB(); ok {
		repo = db.Name()
	}
	purl, err := p.PURL()
	if err != nil {
		return err
	}
	spdx, _, err := p.LicenseExpression()
	if err != nil {
		return err
	}

	fmt.Fprintln(w, styleTitle.Render(name+" "+version.String()))
	field(w, "Repository", repo)
	field(w, "Description", desc)
	field(w, "Architecture", arch)
	linkField(w, "URL", url)
	listField(w, "Licenses", licenses)
	field(w, "SPDX", spdx)
	listField(w, "Groups", groups)
	for _, key := range []string{"Provides", "Depends On", "Optional Deps"} {
		listField(w, key, lists[key])
	}
	listField(w, "Required By", requiredBy)
	listField(w, "Optional For", optionalFor)
	listField(w, "Conflicts With", lists["Conflicts With"])
	listField(w, "Replaces", lists["Replaces"])
	field(w, "Installed Size", formatSize(p.InstalledSize()))
	field(w, "Packager", packager)
	field(w, "Build Date", formatTime(p.BuildDate()))
	if p.Origin() == alpm.OriginLocalDB {
		field(w, "Install Date", formatTime(p.InstallDate()))
		field(w, "Install Reason", p.Reason().String())
		field(w, "Validated By", p.Validation().String())
	} else {
		field(w, "Download Size", formatSize(p.Size()))
	}
	field(w, "PURL", purl)
	return nil
}

func depStrings(l alpm.List[alpm.Dep]) ([]string, error) {
	var out []string
	for d, err := range l.All() {
		if err != nil {
			return nil, err
		}
		out = append(out, d.String())
	}
	return out, nil
}

func ownedStrings(l *alpm.OwnedList[string]) ([]string, error) {
	defer func() { _ = l.Close() }()
	return l.Collect()
}

func formatTime(t time.Time, ok bool) string {
	if !ok {
		return ""
	}
	return t.UTC().Format(time.RFC1123)
}

func formatSize(n int64) string {
	return units.BytesSize(float64(n))
}

func (a *app) searchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search <regex>...",
		Short: "Search the sync databases by name and description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = h.Release() }()

			local := h.LocalDB()
			for db, err := range h.SyncDBs().All() {
				if err != nil {
					return err
				}
				if err := a.searchDB(a.view(db), local, args); err != nil {
					return fmt.Errorf("searching %s: %w", db.Name(), err)
				}
			}
			return nil
		},
	}
}

func (a *app) searchDB(db, local alpm.DB, needles []string) error {
	results, err := db.Search(needles...)
	if err != nil {
		return err
	}
	defer func() { _ = results.Close() }()

	for p, err := range results.All() {
		if err != nil {
			return err
		}
		name, err := p.Name()
		if err != nil {
			return err
		}
		version, err := p.Version()
		if err != nil {
			return err
		}
		desc, _, err := p.Description()
		if err != nil {
			return err
		}

		line := styleTitle.Render(db.Name()+"/"+name) + " " + styleNew.Render(version.String())
		if _, err := local.Pkg(name); err == nil {
			line += " " + styleDim.Render("[installed]")
		} else if !errors.Is(err, alpm.ErrNotFound) {
			return err
		}
		fmt.Fprintln(a.out, line)
		fmt.Fprintln(a.out, "    "+desc)
	}
	return nil
}

func (a *app) requiredByCommand() *cobra.Command {
	var optional bool
	cmd := &cobra.Command{
		Use:   "required-by <package>",
		Short: "List installed packages that depend on a package",
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
			reverse := p.RequiredBy
			if optional {
				reverse = p.OptionalFor
			}
			names, err := ownedStrings(reverse())
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(a.out, n)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&optional, "optional", false, "list packages that optionally depend on it instead")
	return cmd
}
