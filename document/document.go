// Package document implements the DjVu document model: container parsing,
// lazy page and dependency loading, bounded-memory eviction, and rewriting of
// page ranges into new containers.
package document

import (
	"strconv"
	"strings"

	"github.com/wudi/djvukit/codec"
	"github.com/wudi/djvukit/observability"
	"github.com/wudi/djvukit/page"
	"github.com/wudi/djvukit/recovery"
	"github.com/wudi/djvukit/transport"
)

// DefaultCacheBudget bounds resident component bytes when the config leaves
// the budget unset.
const DefaultCacheBudget = 50 << 20

// Config carries the collaborators and limits a Document is built with.
type Config struct {
	// BaseURL is the location remote component files of an indirect
	// document are resolved against. Empty for purely bundled documents.
	BaseURL string

	// CacheBudget is the resident-byte bound enforced after each load.
	// Zero selects DefaultCacheBudget.
	CacheBudget int

	Fetcher transport.Fetcher

	// Logger receives records from concurrent dependency fetches and must
	// be safe for concurrent use.
	Logger observability.Logger

	Recovery recovery.Strategy
}

func (c Config) withDefaults() Config {
	if c.CacheBudget == 0 {
		c.CacheBudget = DefaultCacheBudget
	}
	if c.Fetcher == nil {
		c.Fetcher = transport.NewHTTPFetcher()
	}
	if c.Logger == nil {
		c.Logger = observability.NopLogger{}
	}
	if c.Recovery == nil {
		c.Recovery = recovery.NewLenientStrategy()
	}
	return c
}

// pageSlot distinguishes "not yet loaded" from "loaded": on an indirect
// document an unloaded slot is fetchable, on a bundled one it cannot exist.
type pageSlot struct {
	loaded bool
	page   *page.Page
}

// Document owns one container buffer and the component graph built over it.
// Methods are not safe for concurrent use; callers serialize access.
type Document struct {
	buf      []byte
	dir      *codec.Directory
	contents *codec.Contents

	// contentsSpan is the raw NAVM payload, kept for verbatim copying
	// into sliced containers.
	contentsSpan []byte

	slots     []pageSlot
	resources map[string]*codec.SharedShape
	thumbs    []*codec.Thumbnail

	residentBytes int
	budget        int

	// loadOrder records page numbers in the order their slots were
	// populated; eviction walks it oldest-first.
	loadOrder []int

	// evictedPages counts pages dropped by the governor over the
	// document's lifetime.
	evictedPages int

	// active is the one page currently allowed to hold decode state.
	active *page.Page

	// depsResolved flags the one-shot dependency resolution of a
	// single-page document.
	depsResolved bool

	cfg Config
}

// PageCount returns the number of page slots, loaded or not.
func (d *Document) PageCount() int { return len(d.slots) }

// IsBundled reports whether every component is stored inline. A bare single
// page is bundled by definition.
func (d *Document) IsBundled() bool {
	if d.dir == nil {
		return true
	}
	return d.dir.Bundled
}

// Directory returns the decoded DIRM chunk, or nil for a bare single page.
func (d *Document) Directory() *codec.Directory { return d.dir }

// Contents returns the decoded NAVM outline, or nil when absent.
func (d *Document) Contents() *codec.Contents { return d.contents }

// Buffer returns the container bytes the document was parsed from.
func (d *Document) Buffer() []byte { return d.buf }

// ResidentBytes returns the current resident-byte accounting.
func (d *Document) ResidentBytes() int { return d.residentBytes }

// CacheBudget returns the configured resident-byte bound.
func (d *Document) CacheBudget() int { return d.budget }

// SetCacheBudget adjusts the bound and evicts immediately if the new bound is
// already exceeded.
func (d *Document) SetCacheBudget(n int) {
	d.budget = n
	d.govern(nil)
}

// PageUnsafe returns the resident page for a 1-based number without loading.
// The second result is false while the slot is empty.
func (d *Document) PageUnsafe(n int) (*page.Page, bool) {
	if n < 1 || n > len(d.slots) {
		return nil, false
	}
	s := d.slots[n-1]
	return s.page, s.loaded
}

// Resource returns the resident shared component with the given id.
func (d *Document) Resource(id string) (*codec.SharedShape, bool) {
	r, ok := d.resources[id]
	return r, ok
}

// ResourceIDs returns the ids of all resident shared components.
func (d *Document) ResourceIDs() []string {
	ids := make([]string, 0, len(d.resources))
	for id := range d.resources {
		ids = append(ids, id)
	}
	return ids
}

// Thumbnails returns the thumbnail components of a bundled document.
func (d *Document) Thumbnails() []*codec.Thumbnail { return d.thumbs }

// PageByURL resolves a page reference of the form "#id" or "#NNN" to a
// 1-based page number: first through the directory's identifier map, then by
// bounded numeric parsing.
func (d *Document) PageByURL(ref string) (int, error) {
	frag := strings.TrimPrefix(ref, "#")
	if d.dir != nil {
		if n, ok := d.dir.PageNumberForID(frag); ok {
			return n, nil
		}
	}
	n, err := strconv.Atoi(frag)
	if err != nil || n < 1 || n > d.PageCount() {
		return 0, ErrNoSuchPage
	}
	return n, nil
}
