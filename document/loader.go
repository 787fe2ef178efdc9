package document

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wudi/djvukit/chunk"
	"github.com/wudi/djvukit/codec"
	"github.com/wudi/djvukit/observability"
	"github.com/wudi/djvukit/page"
	"github.com/wudi/djvukit/transport"
)

// GetPage returns the 1-based page n, fetching it and any missing shared
// components of an indirect document first. At most one page holds decode
// state at a time; requesting a different page releases the previous one's.
func (d *Document) GetPage(ctx context.Context, n int) (*page.Page, error) {
	if n < 1 || n > len(d.slots) {
		return nil, fmt.Errorf("page %d of %d: %w", n, len(d.slots), ErrNoSuchPage)
	}
	s := &d.slots[n-1]
	if s.loaded {
		// A bare single page resolves its includes once, on first
		// access, even though the slot was populated at parse time.
		if d.dir == nil && !d.depsResolved {
			deps, err := s.page.Dependencies()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrCorruptedContainer, err)
			}
			if err := d.loadDependencies(ctx, deps, n); err != nil {
				return nil, err
			}
			d.depsResolved = true
			d.govern(idSet(deps))
		}
		d.holdDecodeState(s.page)
		return s.page, nil
	}

	if d.IsBundled() {
		// On a bundled document an empty slot cannot mean "not yet
		// fetched".
		return nil, fmt.Errorf("page %d: empty slot in bundled document: %w", n, ErrNoSuchPage)
	}
	if d.cfg.BaseURL == "" {
		return nil, fmt.Errorf("page %d: %w", n, ErrNoBaseURL)
	}

	name, ok := d.dir.PageFilename(n)
	if !ok {
		return nil, fmt.Errorf("page %d has no directory record: %w", n, ErrNoSuchPage)
	}
	data, err := d.fetchComponent(ctx, name, n, "")
	if err != nil {
		return nil, err
	}
	span, err := stripMagic(data)
	if err != nil {
		return nil, fmt.Errorf("page %d (%s): %w", n, name, err)
	}
	pg, err := page.New(span)
	if err != nil {
		return nil, fmt.Errorf("page %d (%s): %w: %v", n, name, ErrCorruptedContainer, err)
	}

	d.residentBytes += pg.ByteLength()
	deps, err := pg.Dependencies()
	if err != nil {
		d.residentBytes -= pg.ByteLength()
		return nil, fmt.Errorf("page %d: %w: %v", n, ErrCorruptedContainer, err)
	}
	if err := d.loadDependencies(ctx, deps, n); err != nil {
		d.residentBytes -= pg.ByteLength()
		return nil, err
	}

	// The freshly attached page's components must survive the sweep.
	d.govern(idSet(deps))

	s.page = pg
	s.loaded = true
	d.loadOrder = append(d.loadOrder, n)
	d.holdDecodeState(pg)
	d.cfg.Logger.Debug("page loaded",
		observability.Int("page", n),
		observability.Int(observability.MetricResidentBytes, d.residentBytes))
	return pg, nil
}

// loadDependencies fetches the listed shared components that are not yet
// resident, all concurrently. The batch is all-or-nothing: the first failure
// cancels the wait and none of the batch is installed.
func (d *Document) loadDependencies(ctx context.Context, ids []string, pageNum int) error {
	var missing []string
	for _, id := range ids {
		if _, ok := d.resources[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if d.cfg.BaseURL == "" {
		return fmt.Errorf("page %d dependencies: %w", pageNum, ErrNoBaseURL)
	}

	results := make([]*codec.SharedShape, len(missing))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range missing {
		i, id := i, id
		g.Go(func() error {
			name := id
			if d.dir != nil {
				if stored, ok := d.dir.FilenameForID(id); ok {
					name = stored
				}
			}
			data, err := d.fetchComponent(gctx, name, pageNum, id)
			if err != nil {
				return err
			}
			span, err := stripMagic(data)
			if err != nil {
				return fmt.Errorf("component %q: %w", id, err)
			}
			res, err := codec.DecodeSharedShape(span, id)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrCorruptedContainer, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, res := range results {
		d.resources[res.ID] = res
		d.residentBytes += res.ByteLength()
	}
	return nil
}

// fetchComponent resolves a stored name against the base location and maps
// transport failures onto the document error taxonomy.
func (d *Document) fetchComponent(ctx context.Context, name string, pageNum int, componentID string) ([]byte, error) {
	url := strings.TrimSuffix(d.cfg.BaseURL, "/") + "/" + name
	start := time.Now()
	data, err := d.cfg.Fetcher.Fetch(ctx, url)
	if err != nil {
		var status *transport.StatusError
		if errors.As(err, &status) {
			return nil, &UnsuccessfulRequestError{
				URL:         url,
				Page:        pageNum,
				ComponentID: componentID,
				StatusCode:  status.StatusCode,
				Status:      status.Status,
			}
		}
		return nil, &NetworkError{URL: url, Page: pageNum, ComponentID: componentID, Err: err}
	}
	d.cfg.Logger.Debug("component fetched",
		observability.String("url", url),
		observability.Int(observability.MetricFetchMillis, int(time.Since(start).Milliseconds())))
	return data, nil
}

// stripMagic validates a fetched file's signature and returns the span after
// it.
func stripMagic(data []byte) ([]byte, error) {
	if len(data) < 4 || string(data[:4]) != chunk.Magic {
		return nil, fmt.Errorf("bad signature: %w", ErrCorruptedContainer)
	}
	return data[4:], nil
}

// holdDecodeState makes pg the single page allowed to retain decode state.
func (d *Document) holdDecodeState(pg *page.Page) {
	if d.active != nil && d.active != pg {
		d.active.Release()
	}
	d.active = pg
}

func idSet(ids []string) map[string]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
