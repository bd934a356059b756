// Package aur is a client for version 5 of the AUR RPC interface.
package aur

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/git-pkgs/alpm/fetch"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultURL = "https://aur.archlinux.org"

	// InfoChunk is the most names sent in a single info request.
	InfoChunk = 100
)

// Package is a package as the AUR describes it. Search results leave the
// dependency, license and group lists empty.
type Package struct {
	ID             int      `json:"ID"`
	Name           string   `json:"Name"`
	PackageBaseID  int      `json:"PackageBaseID"`
	PackageBase    string   `json:"PackageBase"`
	Version        string   `json:"Version"`
	Description    string   `json:"Description"`
	URL            string   `json:"URL"`
	NumVotes       int      `json:"NumVotes"`
	Popularity     float64  `json:"Popularity"`
	OutOfDate      int64    `json:"OutOfDate"`
	Maintainer     string   `json:"Maintainer"`
	FirstSubmitted int64    `json:"FirstSubmitted"`
	LastModified   int64    `json:"LastModified"`
	URLPath        string   `json:"URLPath"`
	Groups         []string `json:"Groups"`
	Depends        []string `json:"Depends"`
	MakeDepends    []string `json:"MakeDepends"`
	OptDepends     []string `json:"OptDepends"`
	CheckDepends   []string `json:"CheckDepends"`
	Conflicts      []string `json:"Conflicts"`
	Replaces       []string `json:"Replaces"`
	Provides       []string `json:"Provides"`
	License        []string `json:"License"`
	Keywords       []string `json:"Keywords"`
}

// Orphaned reports whether the package has no maintainer.
func (p Package) Orphaned() bool {
	return p.Maintainer == ""
}

// FlaggedOutOfDate returns when the package was flagged out of date.
func (p Package) FlaggedOutOfDate() (time.Time, bool) {
	if p.OutOfDate == 0 {
		return time.Time{}, false
	}
	return time.Unix(p.OutOfDate, 0), true
}

// SearchBy selects the field a search matches against. Name and NameDesc
// match substrings; the others match exactly.
type SearchBy string

const (
	ByName         SearchBy = "name"
	ByNameDesc     SearchBy = "name-desc"
	ByMaintainer   SearchBy = "maintainer"
	ByDepends      SearchBy = "depends"
	ByMakeDepends  SearchBy = "makedepends"
	ByOptDepends   SearchBy = "optdepends"
	ByCheckDepends SearchBy = "checkdepends"
)

// RPCError is an error answer from the RPC interface.
type RPCError struct {
	Message string
}

func (e *RPCError) Error() string {
	return "aur: " + e.Message
}

type response struct {
	Type    string    `json:"type"`
	Error   string    `json:"error"`
	Results []Package `json:"results"`
}

// Client queries the AUR.
type Client struct {
	baseURL string
	getter  fetch.Getter
	logger  *log.Logger
	urls    *URLs
}

type Option func(*Client)

// WithGetter replaces the circuit breaking fetcher requests go through.
func WithGetter(g fetch.Getter) Option {
	return func(c *Client) {
		c.getter = g
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a client for the AUR at baseURL, or DefaultURL when empty.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.getter == nil {
		c.getter = fetch.NewCircuitBreakerFetcher(fetch.NewFetcher(fetch.WithLogger(c.logger)))
	}
	c.urls = &URLs{baseURL: c.baseURL}
	return c
}

func (c *Client) URLs() *URLs {
	return c.urls
}

func (c *Client) request(ctx context.Context, params url.Values) ([]Package, error) {
	params.Set("v", "5")
	u := c.baseURL + "/rpc/?" + params.Encode()
	c.logger.Debug("aur request", "type", params.Get("type"), "url", u)

	resp, err := c.getter.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decoding aur response: %w", err)
	}
	if r.Type == "error" {
		if r.Error == "" {
			r.Error = "no error message provided"
		}
		return nil, &RPCError{Message: r.Error}
	}
	return r.Results, nil
}

// RawInfo sends a single info request. Names that do not exist are left
// out of the result, which has no particular order.
func (c *Client) RawInfo(ctx context.Context, names []string) ([]Package, error) {
	params := url.Values{"type": {"info"}}
	for _, n := range names {
		params.Add("arg[]", n)
	}
	return c.request(ctx, params)
}

// Info is RawInfo for any number of names. It splits them into requests of
// InfoChunk names and sends up to four at a time.
func (c *Client) Info(ctx context.Context, names []string) ([]Package, error) {
	if len(names) <= InfoChunk {
		return c.RawInfo(ctx, names)
	}

	chunks := make([][]Package, (len(names)+InfoChunk-1)/InfoChunk)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range chunks {
		chunk := names[i*InfoChunk : min((i+1)*InfoChunk, len(names))]
		g.Go(func() error {
			pkgs, err := c.RawInfo(ctx, chunk)
			chunks[i] = pkgs
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Package
	for _, pkgs := range chunks {
		all = append(all, pkgs...)
	}
	return all, nil
}

// CacheInfo is Info that only asks for names missing from cache and stores
// what it receives. The result holds every package found, cached or not.
func (c *Client) CacheInfo(ctx context.Context, cache *Cache, names []string) ([]Package, error) {
	var found []Package
	var missing []string
	for _, n := range names {
		if p, ok := cache.Get(n); ok {
			found = append(found, p)
		} else {
			missing = append(missing, n)
		}
	}
	if len(missing) == 0 {
		return found, nil
	}

	pkgs, err := c.Info(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, p := range pkgs {
		cache.Insert(p)
	}
	return append(found, pkgs...), nil
}

// SearchBy searches the field by for query.
func (c *Client) SearchBy(ctx context.Context, query string, by SearchBy) ([]Package, error) {
	return c.request(ctx, url.Values{
		"type": {"search"},
		"by":   {string(by)},
		"arg":  {query},
	})
}

// Search matches query against names and descriptions.
func (c *Client) Search(ctx context.Context, query string) ([]Package, error) {
	return c.SearchBy(ctx, query, ByNameDesc)
}

// Orphans lists every package without a maintainer.
func (c *Client) Orphans(ctx context.Context) ([]Package, error) {
	return c.SearchBy(ctx, "", ByMaintainer)
}
