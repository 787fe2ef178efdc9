package document

import (
	"github.com/wudi/djvukit/codec"
	"github.com/wudi/djvukit/observability"
)

// govern enforces the cache budget after components have been added. Pages go
// first, oldest load first: they are independently re-fetchable and usually
// the largest residents. Shared components go last because several pages may
// depend on them; ids in preserve are needed by the load in progress and are
// never dropped.
func (d *Document) govern(preserve map[string]bool) {
	if d.residentBytes <= d.budget {
		return
	}

	for len(d.loadOrder) > 0 && d.residentBytes > d.budget {
		n := d.loadOrder[0]
		d.loadOrder = d.loadOrder[1:]
		s := &d.slots[n-1]
		if !s.loaded {
			continue
		}
		d.residentBytes -= s.page.ByteLength()
		s.page = nil
		s.loaded = false
		d.evictedPages++
		d.cfg.Logger.Debug("evicted page",
			observability.Int("page", n),
			observability.Int(observability.MetricEvictedPages, d.evictedPages),
			observability.Int(observability.MetricResidentBytes, d.residentBytes))
	}
	if d.residentBytes <= d.budget {
		return
	}

	// No loaded pages remain. Drop the held decode state, then sweep
	// shared components that the in-flight load does not need. A component
	// is dropped whole or kept whole.
	if d.active != nil {
		d.active.Release()
		d.active = nil
	}
	kept := make(map[string]*codec.SharedShape, len(preserve))
	for id, res := range d.resources {
		if preserve[id] {
			kept[id] = res
			continue
		}
		d.residentBytes -= res.ByteLength()
		d.cfg.Logger.Debug("evicted shared component",
			observability.String("id", id),
			observability.Int(observability.MetricResidentBytes, d.residentBytes))
	}
	d.resources = kept
}
