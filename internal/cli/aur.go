package cli

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/git-pkgs/alpm"
	"github.com/git-pkgs/alpm/aur"
	"github.com/spf13/cobra"
)

func (a *app) aurCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aur",
		Short: "Query the Arch User Repository",
	}
	cmd.AddCommand(a.aurInfoCommand(), a.aurSearchCommand())
	return cmd
}

func (a *app) aurInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <package>...",
		Short: "Show AUR package details",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.aurClient(cmd.Context())
			pkgs, err := c.Info(cmd.Context(), args)
			if err != nil {
				return err
			}
			if len(pkgs) == 0 {
				return &alpm.NotFoundError{Kind: "aur package", Name: args[0]}
			}
			urls := c.URLs()
			for i, p := range pkgs {
				if i > 0 {
					fmt.Fprintln(a.out)
				}
				printAURPackage(a.out, urls, p)
			}
			return nil
		},
	}
}

func printAURPackage(w io.Writer, urls *aur.URLs, p aur.Package) {
	fmt.Fprintln(w, styleTitle.Render(p.Name+" "+p.Version))
	field(w, "Package Base", p.PackageBase)
	field(w, "Description", p.Description)
	linkField(w, "URL", p.URL)
	linkField(w, "AUR URL", urls.Registry(p.Name))
	linkField(w, "Git Clone", urls.Git(p.PackageBase))
	listField(w, "Licenses", p.License)
	listField(w, "Groups", p.Groups)
	listField(w, "Provides", p.Provides)
	listField(w, "Depends On", p.Depends)
	listField(w, "Make Deps", p.MakeDepends)
	listField(w, "Check Deps", p.CheckDepends)
	listField(w, "Optional Deps", p.OptDepends)
	listField(w, "Conflicts With", p.Conflicts)
	listField(w, "Replaces", p.Replaces)
	listField(w, "Keywords", p.Keywords)
	maintainer := p.Maintainer
	if p.Orphaned() {
		maintainer = styleWarning.Render("orphaned")
	}
	field(w, "Maintainer", maintainer)
	field(w, "Votes", fmt.Sprint(p.NumVotes))
	field(w, "Popularity", fmt.Sprintf("%.2f", p.Popularity))
	field(w, "First Submitted", formatTime(unix(p.FirstSubmitted)))
	field(w, "Last Modified", formatTime(unix(p.LastModified)))
	flagged := ""
	if at, ok := p.FlaggedOutOfDate(); ok {
		flagged = styleWarning.Render(formatTime(at, true))
	}
	field(w, "Out Of Date", flagged)
	field(w, "PURL", urls.PURL(p.Name, p.Version))
}

func unix(sec int64) (time.Time, bool) {
	if sec == 0 {
		return time.Time{}, false
	}
	return time.Unix(sec, 0), true
}

func (a *app) aurSearchCommand() *cobra.Command {
	var by string
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the AUR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			searchBy := aur.SearchBy(by)
			if !slices.Contains(searchFields, searchBy) {
				return fmt.Errorf("unknown search field %q", by)
			}
			pkgs, err := a.aurClient(cmd.Context()).SearchBy(cmd.Context(), args[0], searchBy)
			if err != nil {
				return err
			}
			slices.SortFunc(pkgs, func(x, y aur.Package) int {
				return cmp.Compare(y.Popularity, x.Popularity)
			})
			for _, p := range pkgs {
				line := styleTitle.Render("aur/"+p.Name) + " " + styleNew.Render(p.Version) +
					styleDim.Render(fmt.Sprintf(" (+%d %.2f)", p.NumVotes, p.Popularity))
				if _, ok := p.FlaggedOutOfDate(); ok {
					line += " " + styleWarning.Render("(Out-of-date)")
				}
				if p.Orphaned() {
					line += " " + styleWarning.Render("(Orphaned)")
				}
				fmt.Fprintln(a.out, line)
				fmt.Fprintln(a.out, "    "+p.Description)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&by, "by", string(aur.ByNameDesc), "field to search: name, name-desc, maintainer, depends, makedepends, optdepends, checkdepends")
	return cmd
}

var searchFields = []aur.SearchBy{
	aur.ByName, aur.ByNameDesc, aur.ByMaintainer,
	aur.ByDepends, aur.ByMakeDepends, aur.ByOptDepends, aur.ByCheckDepends,
}

func (a *app) outdatedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "outdated",
		Short: "List foreign packages with a newer version in the AUR",
		Long: `List installed packages that no sync database provides and whose AUR
version is newer than the installed one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = h.Release() }()

			installed, err := a.foreign(h)
			if err != nil {
				return err
			}
			if len(installed) == 0 {
				return nil
			}
			names := make([]string, 0, len(installed))
			for name := range installed {
				names = append(names, name)
			}
			slices.Sort(names)

			remote, err := a.aurClient(cmd.Context()).Info(cmd.Context(), names)
			if err != nil {
				return err
			}
			slices.SortFunc(remote, func(x, y aur.Package) int {
				return strings.Compare(x.Name, y.Name)
			})
			for _, p := range remote {
				local := installed[p.Name]
				if h.VerCmp(p.Version, local.String()) <= 0 {
					continue
				}
				fmt.Fprintf(a.out, "%s %s -> %s\n", styleTitle.Render(p.Name), local, styleNew.Render(p.Version))
			}
			return nil
		},
	}
}

// foreign returns the installed packages that are in no sync database,
// keyed by name.
func (a *app) foreign(h *alpm.Handle) (map[string]alpm.Version, error) {
	syncs, err := h.SyncDBs().Collect()
	if err != nil {
		return nil, err
	}
	out := make(map[string]alpm.Version)
	for p, err := range a.view(h.LocalDB()).Pkgs().All() {
		if err != nil {
			return nil, err
		}
		name, err := p.Name()
		if err != nil {
			return nil, err
		}
		found := false
		for _, db := range syncs {
			if _, err := db.Pkg(name); err == nil {
				found = true
				break
			} else if !errors.Is(err, alpm.ErrNotFound) {
				return nil, err
			}
		}
		if found {
			continue
		}
		if out[name], err = p.Version(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
