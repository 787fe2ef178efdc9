// Package page decodes a single FORM:DJVU component lazily: geometry from the
// INFO chunk and shared-shape dependency ids from INCL chunks. The image
// coding chunks themselves stay opaque.
package page

import (
	"fmt"

	"github.com/wudi/djvukit/chunk"
)

// Info is the decoded INFO chunk of a page.
type Info struct {
	Width    int
	Height   int
	Minor    int
	Major    int
	DPI      int
	Gamma    float64
	Rotation int
}

// Page wraps one page's raw FORM:DJVU span. Decode state (INFO fields and the
// INCL dependency list) is built on first use and can be released again while
// the span stays valid.
type Page struct {
	span    []byte
	decoded bool
	deps    []string
	info    *Info
}

// New validates the FORM:DJVU framing of span and wraps it without decoding.
// The span aliases its source buffer.
func New(span []byte) (*Page, error) {
	c := chunk.NewCursor(span)
	h, err := c.ReadHeader()
	if err != nil {
		return nil, fmt.Errorf("page: %w", err)
	}
	if h.Tag != chunk.TagForm {
		return nil, fmt.Errorf("page: unexpected tag %q, want FORM", h.Tag)
	}
	sec, err := c.ReadTag()
	if err != nil {
		return nil, fmt.Errorf("page: %w", err)
	}
	if sec != chunk.FormPage {
		return nil, fmt.Errorf("page: unexpected form type %q, want DJVU", sec)
	}
	end := h.PayloadPos + chunk.PaddedLen(h.Length)
	if end > len(span) {
		end = len(span)
	}
	return &Page{span: span[:end]}, nil
}

// ByteLength is the serialized size of the page, pad byte included.
func (p *Page) ByteLength() int { return len(p.span) }

// Span returns the raw FORM:DJVU bytes.
func (p *Page) Span() []byte { return p.span }

// Dependencies returns the shared-shape ids this page includes, decoding the
// sub-chunk tree on first call.
func (p *Page) Dependencies() ([]string, error) {
	if err := p.decode(); err != nil {
		return nil, err
	}
	return p.deps, nil
}

// Info returns the decoded INFO chunk, or nil if the page carries none.
func (p *Page) Info() (*Info, error) {
	if err := p.decode(); err != nil {
		return nil, err
	}
	return p.info, nil
}

// Decoded reports whether decode state is currently held.
func (p *Page) Decoded() bool { return p.decoded }

// Release drops the cached decode state. The page remains usable; the next
// Dependencies or Info call decodes again from the span.
func (p *Page) Release() {
	p.decoded = false
	p.deps = nil
	p.info = nil
}

func (p *Page) decode() error {
	if p.decoded {
		return nil
	}
	c := chunk.NewCursor(p.span)
	h, err := c.ReadHeader()
	if err != nil {
		return fmt.Errorf("page: %w", err)
	}
	if _, err := c.ReadTag(); err != nil {
		return fmt.Errorf("page: %w", err)
	}
	end := h.PayloadPos + int(h.Length)
	var deps []string
	var info *Info
	for c.Pos() < end && !c.Exhausted() {
		sub, err := c.ReadHeader()
		if err != nil {
			return fmt.Errorf("page sub-chunk: %w", err)
		}
		switch sub.Tag {
		case chunk.TagInclude:
			b, err := c.Bytes(int(sub.Length))
			if err != nil {
				return fmt.Errorf("page INCL: %w", err)
			}
			deps = append(deps, trimNUL(string(b)))
		case chunk.TagInfo:
			sc, err := c.Fork(int(sub.Length))
			if err != nil {
				return fmt.Errorf("page INFO: %w", err)
			}
			if info, err = decodeInfo(sc); err != nil {
				return err
			}
		}
		if err := c.SkipPayload(sub); err != nil {
			return fmt.Errorf("page sub-chunk %q: %w", sub.Tag, err)
		}
	}
	p.deps = deps
	p.info = info
	p.decoded = true
	return nil
}

func decodeInfo(c *chunk.Cursor) (*Info, error) {
	width, err := c.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("page INFO width: %w", err)
	}
	height, err := c.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("page INFO height: %w", err)
	}
	info := &Info{Width: int(width), Height: int(height), DPI: 300, Gamma: 2.2}
	// Remaining fields were added across format versions; a short INFO
	// keeps its defaults.
	if c.Remaining() >= 2 {
		minor, _ := c.ReadByte()
		major, _ := c.ReadByte()
		info.Minor, info.Major = int(minor), int(major)
	}
	if c.Remaining() >= 2 {
		dpi, _ := c.ReadUint16()
		info.DPI = int(dpi)
	}
	if c.Remaining() >= 1 {
		gamma, _ := c.ReadByte()
		info.Gamma = float64(gamma) / 10
	}
	if c.Remaining() >= 1 {
		flags, _ := c.ReadByte()
		info.Rotation = int(flags & 0x07)
	}
	return info, nil
}

func trimNUL(s string) string {
	for len(s) > 0 && s[len(s)-1] == 0 {
		s = s[:len(s)-1]
	}
	return s
}
