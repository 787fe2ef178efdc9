package document

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/wudi/djvukit/chunk"
	"github.com/wudi/djvukit/codec"
	"github.com/wudi/djvukit/page"
	"github.com/wudi/djvukit/writer"
)

// Slice rewrites the inclusive 1-based page range [from, to] into a new
// container holding exactly those pages and the shared components they need.
// Zero bounds default to the whole document. The source must be a bundled
// multi-page document; thumbnails are not carried into the output.
func (d *Document) Slice(from, to int) (*Document, error) {
	if d.dir == nil || !d.dir.Bundled {
		return nil, errors.New("document: slice requires a bundled multi-page source")
	}
	if from == 0 {
		from = 1
	}
	if to == 0 {
		to = d.PageCount()
	}
	if from < 1 || to > d.PageCount() || from > to {
		return nil, fmt.Errorf("slice [%d, %d] of %d pages: %w", from, to, d.PageCount(), ErrNoSuchPage)
	}

	// Pass 1: decode the in-range pages straight from their spans (without
	// installing anything) and collect the ids they depend on.
	pending := make(map[string]bool)
	pagePos := 0
	for _, rec := range d.dir.Files {
		if !rec.IsPage() {
			continue
		}
		pagePos++
		if pagePos < from || pagePos > to {
			continue
		}
		span, err := d.componentSpan(rec)
		if err != nil {
			return nil, err
		}
		pg, err := page.New(span)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w: %v", pagePos, ErrCorruptedContainer, err)
		}
		deps, err := pg.Dependencies()
		if err != nil {
			return nil, fmt.Errorf("page %d: %w: %v", pagePos, ErrCorruptedContainer, err)
		}
		for _, id := range deps {
			pending[id] = true
		}
	}

	// Pass 2: copy metadata and raw spans for the selected pages and their
	// dependencies, keeping original container order.
	out := &codec.Directory{Bundled: true, Version: d.dir.Version}
	var spans [][]byte
	pagePos = 0
	for _, rec := range d.dir.Files {
		include := false
		if rec.IsPage() {
			pagePos++
			// An out-of-range page still rides along when an in-range
			// page includes it by id.
			include = (pagePos >= from && pagePos <= to) || pending[rec.ID]
		} else if rec.Type() != codec.FileThumbnails {
			include = pending[rec.ID]
		}
		if !include {
			continue
		}
		span, err := d.componentSpan(rec)
		if err != nil {
			return nil, err
		}
		out.Files = append(out.Files, rec)
		spans = append(spans, span)
	}

	w := writer.New()
	w.StartMultiPageContainer()
	w.WriteDirectoryChunk(out)
	if d.contentsSpan != nil {
		w.WriteChunk(chunk.TagContents, d.contentsSpan)
	}
	for _, span := range spans {
		w.WriteRawFormSpan(span)
	}
	buf, err := w.Buffer()
	if err != nil {
		return nil, fmt.Errorf("document: serialize slice: %w", err)
	}
	return Parse(buf, d.cfg)
}

// Concat builds one bundled multi-page document holding every component of a
// followed by every component of b. Directory identifiers are suffixed with a
// numeric counter where needed to stay unique in the merged output.
func Concat(a, b *Document, cfg Config) (*Document, error) {
	out := &codec.Directory{Bundled: true, Version: maxVersion(a, b)}
	var spans [][]byte
	used := make(map[string]bool)

	for _, d := range []*Document{a, b} {
		recs, docSpans, err := d.componentList()
		if err != nil {
			return nil, err
		}
		for i, rec := range recs {
			rec.ID = uniqueID(rec.ID, used)
			used[rec.ID] = true
			out.Files = append(out.Files, rec)
			spans = append(spans, docSpans[i])
		}
	}

	w := writer.New()
	w.StartMultiPageContainer()
	w.WriteDirectoryChunk(out)
	for _, span := range spans {
		w.WriteRawFormSpan(span)
	}
	buf, err := w.Buffer()
	if err != nil {
		return nil, fmt.Errorf("document: serialize concat: %w", err)
	}
	return Parse(buf, cfg)
}

// componentList returns the directory records and raw spans of a document in
// container order, synthesizing a one-entry directory for a bare single page.
func (d *Document) componentList() ([]codec.FileRecord, [][]byte, error) {
	if d.dir == nil {
		pg, ok := d.PageUnsafe(1)
		if !ok {
			return nil, nil, errors.New("document: single page missing")
		}
		span := pg.Span()
		rec := codec.NewFileRecord(codec.FilePage, "page0001", "", "", len(span))
		return []codec.FileRecord{rec}, [][]byte{span}, nil
	}
	if !d.dir.Bundled {
		return nil, nil, errors.New("document: concat requires bundled sources")
	}
	recs := make([]codec.FileRecord, 0, len(d.dir.Files))
	spans := make([][]byte, 0, len(d.dir.Files))
	for _, rec := range d.dir.Files {
		span, err := d.componentSpan(rec)
		if err != nil {
			return nil, nil, err
		}
		recs = append(recs, rec)
		spans = append(spans, span)
	}
	return recs, spans, nil
}

// componentSpan reads the raw padded FORM span a directory record points at.
func (d *Document) componentSpan(rec codec.FileRecord) ([]byte, error) {
	c := chunk.NewCursor(d.buf)
	if err := c.Seek(int64(rec.Offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("component %q: %w: %v", rec.ID, ErrCorruptedContainer, err)
	}
	h, err := c.ReadHeader()
	if err != nil {
		return nil, fmt.Errorf("component %q: %w: %v", rec.ID, ErrCorruptedContainer, err)
	}
	return c.Slice(rec.Offset, h.PayloadPos+chunk.PaddedLen(h.Length))
}

func uniqueID(id string, used map[string]bool) string {
	if !used[id] {
		return id
	}
	for i := 1; ; i++ {
		cand := id + strconv.Itoa(i)
		if !used[cand] {
			return cand
		}
	}
}

func maxVersion(a, b *Document) byte {
	var v byte
	if a.dir != nil {
		v = a.dir.Version
	}
	if b.dir != nil && b.dir.Version > v {
		v = b.dir.Version
	}
	return v
}
