package document

import (
	"fmt"
	"io"

	"github.com/wudi/djvukit/chunk"
	"github.com/wudi/djvukit/codec"
	"github.com/wudi/djvukit/observability"
	"github.com/wudi/djvukit/page"
	"github.com/wudi/djvukit/recovery"
)

// Parse builds a Document from a container buffer. The buffer is retained;
// pages and components alias it rather than copying.
func Parse(buf []byte, cfg Config) (*Document, error) {
	cfg = cfg.withDefaults()
	d := &Document{
		buf:       buf,
		budget:    cfg.CacheBudget,
		resources: make(map[string]*codec.SharedShape),
		cfg:       cfg,
	}

	c := chunk.NewCursor(buf)
	magic, err := c.ReadTag()
	if err != nil || string(magic) != chunk.Magic {
		return nil, fmt.Errorf("signature %q: %w", magic, ErrIncorrectFormat)
	}
	formStart := c.Pos()
	h, err := c.ReadHeader()
	if err != nil {
		return nil, fmt.Errorf("top-level chunk: %w: %v", ErrCorruptedContainer, err)
	}
	if h.Tag != chunk.TagForm {
		return nil, fmt.Errorf("top-level tag %q, want FORM: %w", h.Tag, ErrCorruptedContainer)
	}
	sec, err := c.ReadTag()
	if err != nil {
		return nil, fmt.Errorf("form type: %w: %v", ErrCorruptedContainer, err)
	}

	switch sec {
	case chunk.FormPage:
		span := buf[formStart : h.PayloadPos+chunk.PaddedLen(h.Length)]
		pg, err := page.New(span)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptedContainer, err)
		}
		d.slots = []pageSlot{{loaded: true, page: pg}}
		d.residentBytes = pg.ByteLength()
		return d, nil

	case chunk.FormMultiPage:
		if err := d.parseMultiPage(c, h); err != nil {
			return nil, err
		}
		return d, nil

	default:
		return nil, fmt.Errorf("form type %q: %w", sec, ErrCorruptedContainer)
	}
}

func (d *Document) parseMultiPage(c *chunk.Cursor, form chunk.Header) error {
	dh, err := c.ReadHeader()
	if err != nil {
		return fmt.Errorf("directory chunk: %w: %v", ErrCorruptedContainer, err)
	}
	if dh.Tag != chunk.TagDirectory {
		return fmt.Errorf("first container chunk is %q, want DIRM: %w", dh.Tag, ErrCorruptedContainer)
	}
	sub, err := c.Fork(int(dh.Length))
	if err != nil {
		return fmt.Errorf("directory payload: %w: %v", ErrCorruptedContainer, err)
	}
	dir, err := codec.DecodeDirectory(sub)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptedContainer, err)
	}
	d.dir = dir
	if err := c.SkipPayload(dh); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptedContainer, err)
	}

	formEnd := form.PayloadPos + int(form.Length)
	if c.Pos() < formEnd && !c.Exhausted() {
		mark := c.Pos()
		if nh, err := c.ReadHeader(); err == nil && nh.Tag == chunk.TagContents {
			span, err := c.Slice(nh.PayloadPos, nh.PayloadPos+int(nh.Length))
			if err != nil {
				return fmt.Errorf("contents payload: %w: %v", ErrCorruptedContainer, err)
			}
			toc, err := codec.DecodeContents(chunk.NewCursor(span))
			if err != nil {
				return fmt.Errorf("%w: %v", ErrCorruptedContainer, err)
			}
			d.contents = toc
			d.contentsSpan = span
		} else {
			c.Seek(int64(mark), io.SeekStart)
		}
	}

	if !dir.Bundled {
		// Indirect container: slots stay empty until fetched. Only the
		// header buffer counts as resident for now.
		d.slots = make([]pageSlot, dir.PageCount())
		d.residentBytes = len(d.buf)
		return nil
	}
	return d.walkBundled(c)
}

// walkBundled materializes every directory offset of a bundled container.
// Unrecognized component types are skipped, not fatal; the chunk tree is
// forward-compatible.
func (d *Document) walkBundled(c *chunk.Cursor) error {
	pageNum := 0
	for i, rec := range d.dir.Files {
		if err := c.Seek(int64(rec.Offset), io.SeekStart); err != nil {
			return fmt.Errorf("component %q offset %d: %w: %v", rec.ID, rec.Offset, ErrCorruptedContainer, err)
		}
		fh, err := c.ReadHeader()
		if err != nil {
			return fmt.Errorf("component %q: %w: %v", rec.ID, ErrCorruptedContainer, err)
		}
		span, err := c.Slice(rec.Offset, fh.PayloadPos+chunk.PaddedLen(fh.Length))
		if err != nil {
			return fmt.Errorf("component %q: %w: %v", rec.ID, ErrCorruptedContainer, err)
		}

		var sec chunk.Tag
		if fh.Tag == chunk.TagForm {
			if sec, err = c.ReadTag(); err != nil {
				return fmt.Errorf("component %q: %w: %v", rec.ID, ErrCorruptedContainer, err)
			}
		}

		switch sec {
		case chunk.FormPage:
			pg, err := page.New(span)
			if err != nil {
				return fmt.Errorf("page %q: %w: %v", rec.ID, ErrCorruptedContainer, err)
			}
			pageNum++
			d.slots = append(d.slots, pageSlot{loaded: true, page: pg})
			d.loadOrder = append(d.loadOrder, pageNum)
			d.residentBytes += pg.ByteLength()

		case chunk.FormShared:
			res, err := codec.DecodeSharedShape(span, rec.ID)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrCorruptedContainer, err)
			}
			d.resources[rec.ID] = res
			d.residentBytes += res.ByteLength()

		case chunk.FormThumbs:
			th, err := codec.DecodeThumbnail(span)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrCorruptedContainer, err)
			}
			d.thumbs = append(d.thumbs, th)

		default:
			tag := fh.Tag
			if sec != "" {
				tag = sec
			}
			loc := recovery.Location{
				ByteOffset: int64(rec.Offset),
				FileIndex:  i,
				FileID:     rec.ID,
				Component:  "builder",
			}
			err := fmt.Errorf("unrecognized component type %q", tag)
			if d.cfg.Recovery.OnError(err, loc) == recovery.ActionFail {
				return fmt.Errorf("component %q: %w: %v", rec.ID, ErrCorruptedContainer, err)
			}
			d.cfg.Logger.Warn("skipping unrecognized component",
				observability.String("tag", string(tag)),
				observability.String("id", rec.ID),
				observability.Int("offset", rec.Offset))
		}
	}
	return nil
}
