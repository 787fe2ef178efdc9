package codec

import (
	"fmt"

	"github.com/wudi/djvukit/chunk"
)

// SharedShape holds one FORM:DJVI component: a shape dictionary one or more
// pages include by id. The payload stays opaque; only the framing is checked.
type SharedShape struct {
	ID   string
	span []byte
}

// DecodeSharedShape validates that span is a FORM:DJVI chunk and wraps it.
// The span aliases the document buffer (or a fetched file) and is not copied.
func DecodeSharedShape(span []byte, id string) (*SharedShape, error) {
	trimmed, err := formSpan(span, chunk.FormShared)
	if err != nil {
		return nil, fmt.Errorf("shared shape %q: %w", id, err)
	}
	return &SharedShape{ID: id, span: trimmed}, nil
}

// ByteLength is the serialized size of the component, pad byte included.
func (s *SharedShape) ByteLength() int { return len(s.span) }

// Span returns the raw FORM:DJVI bytes.
func (s *SharedShape) Span() []byte { return s.span }

// Thumbnail holds one FORM:THUM component. Payload decoding is out of scope;
// the holder exists for directory accounting and container rewriting.
type Thumbnail struct {
	span []byte
}

// DecodeThumbnail validates that span is a FORM:THUM chunk and wraps it.
func DecodeThumbnail(span []byte) (*Thumbnail, error) {
	trimmed, err := formSpan(span, chunk.FormThumbs)
	if err != nil {
		return nil, fmt.Errorf("thumbnail: %w", err)
	}
	return &Thumbnail{span: trimmed}, nil
}

func (t *Thumbnail) ByteLength() int { return len(t.span) }
func (t *Thumbnail) Span() []byte    { return t.span }

// formSpan checks a FORM header with the expected secondary tag and returns
// the span trimmed to the chunk's padded extent.
func formSpan(span []byte, want chunk.Tag) ([]byte, error) {
	c := chunk.NewCursor(span)
	h, err := c.ReadHeader()
	if err != nil {
		return nil, err
	}
	if h.Tag != chunk.TagForm {
		return nil, fmt.Errorf("unexpected tag %q, want FORM", h.Tag)
	}
	sec, err := c.ReadTag()
	if err != nil {
		return nil, err
	}
	if sec != want {
		return nil, fmt.Errorf("unexpected form type %q, want %q", sec, want)
	}
	end := h.PayloadPos + chunk.PaddedLen(h.Length)
	if end > len(span) {
		end = len(span)
	}
	return span[:end], nil
}
