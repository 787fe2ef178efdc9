// Package chunk implements the IFF85 primitives the DjVu container is built
// from: 4-byte tags, big-endian 32-bit lengths, even-byte padding, and a
// zero-copy cursor over a shared buffer.
package chunk

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Tag is a 4-byte chunk identifier.
type Tag string

const (
	// Magic is the 4-byte signature preceding the top-level FORM chunk.
	Magic = "AT&T"

	TagForm      Tag = "FORM"
	TagDirectory Tag = "DIRM"
	TagContents  Tag = "NAVM"
	TagInfo      Tag = "INFO"
	TagInclude   Tag = "INCL"
)

// Secondary tags carried in the first 4 payload bytes of a FORM chunk.
const (
	FormMultiPage Tag = "DJVM"
	FormPage      Tag = "DJVU"
	FormShared    Tag = "DJVI"
	FormThumbs    Tag = "THUM"
)

var ErrTruncated = errors.New("chunk: truncated data")

// PaddedLen returns the stored length of a payload: one pad byte is appended
// when the payload length is odd so the next chunk starts on an even offset.
func PaddedLen(n uint32) int {
	if n%2 == 1 {
		return int(n) + 1
	}
	return int(n)
}

// Cursor reads a bounded window of a shared byte buffer. Forked cursors share
// the backing storage; positions and seeks are absolute within the buffer so
// directory offsets can be used directly.
type Cursor struct {
	data []byte
	base int
	end  int
	pos  int
}

// NewCursor returns a cursor over the whole buffer.
func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data, end: len(data)}
}

// Fork returns a new cursor over [current, current+length) sharing the same
// storage. The parent's position is unchanged.
func (c *Cursor) Fork(length int) (*Cursor, error) {
	if length < 0 || c.pos+length > c.end {
		return nil, fmt.Errorf("fork %d bytes at offset %d: %w", length, c.pos, ErrTruncated)
	}
	return &Cursor{data: c.data, base: c.pos, end: c.pos + length, pos: c.pos}, nil
}

// Seek repositions the cursor. Whence follows the io package: SeekStart is
// relative to the underlying buffer (not the window), SeekCurrent to the
// current position, SeekEnd to the window end.
func (c *Cursor) Seek(offset int64, whence int) error {
	var abs int
	switch whence {
	case io.SeekStart:
		abs = int(offset)
	case io.SeekCurrent:
		abs = c.pos + int(offset)
	case io.SeekEnd:
		abs = c.end + int(offset)
	default:
		return fmt.Errorf("chunk: invalid seek whence %d", whence)
	}
	if abs < 0 || abs > c.end {
		return fmt.Errorf("seek to %d (window end %d): %w", abs, c.end, ErrTruncated)
	}
	c.pos = abs
	return nil
}

// Pos returns the absolute position within the underlying buffer.
func (c *Cursor) Pos() int { return c.pos }

// Remaining returns the byte count left in the window.
func (c *Cursor) Remaining() int { return c.end - c.pos }

// Exhausted reports whether fewer than a chunk header's worth of bytes remain.
// A single trailing pad byte does not count as more data.
func (c *Cursor) Exhausted() bool { return c.Remaining() <= 1 }

// Bytes returns the next n bytes as a sub-slice of the backing buffer,
// advancing the cursor. The slice aliases the document buffer; callers must
// not mutate it.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	if n < 0 || c.pos+n > c.end {
		return nil, fmt.Errorf("read %d bytes at offset %d: %w", n, c.pos, ErrTruncated)
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// Slice returns the backing bytes in [from, to) without moving the cursor.
// Bounds are absolute buffer offsets, clamped to the cursor's window.
func (c *Cursor) Slice(from, to int) ([]byte, error) {
	if from < 0 || to > c.end || from > to {
		return nil, fmt.Errorf("slice [%d, %d) of window ending %d: %w", from, to, c.end, ErrTruncated)
	}
	return c.data[from:to], nil
}

// ReadTag reads a 4-byte tag.
func (c *Cursor) ReadTag() (Tag, error) {
	b, err := c.Bytes(4)
	if err != nil {
		return "", err
	}
	return Tag(b), nil
}

// ReadUint32 reads a big-endian 32-bit value (the chunk length encoding).
func (c *Cursor) ReadUint32() (uint32, error) {
	b, err := c.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// ReadUint24 reads a big-endian 24-bit value.
func (c *Cursor) ReadUint24() (uint32, error) {
	b, err := c.Bytes(3)
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]), nil
}

// ReadUint16 reads a big-endian 16-bit value.
func (c *Cursor) ReadUint16() (uint16, error) {
	b, err := c.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// ReadByte reads a single byte.
func (c *Cursor) ReadByte() (byte, error) {
	b, err := c.Bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadCString reads bytes up to and including a NUL terminator and returns
// the string without it.
func (c *Cursor) ReadCString() (string, error) {
	start := c.pos
	for i := c.pos; i < c.end; i++ {
		if c.data[i] == 0 {
			s := string(c.data[start:i])
			c.pos = i + 1
			return s, nil
		}
	}
	return "", fmt.Errorf("unterminated string at offset %d: %w", start, ErrTruncated)
}

// Header is one chunk's tag and payload length, with the absolute offset of
// the payload's first byte.
type Header struct {
	Tag        Tag
	Length     uint32
	PayloadPos int
}

// ReadHeader reads a tag + length pair and leaves the cursor at the payload.
func (c *Cursor) ReadHeader() (Header, error) {
	tag, err := c.ReadTag()
	if err != nil {
		return Header{}, err
	}
	length, err := c.ReadUint32()
	if err != nil {
		return Header{}, fmt.Errorf("chunk %q: %w", tag, err)
	}
	if c.pos+int(length) > c.end {
		return Header{}, fmt.Errorf("chunk %q length %d exceeds window: %w", tag, length, ErrTruncated)
	}
	return Header{Tag: tag, Length: length, PayloadPos: c.pos}, nil
}

// SkipPayload advances past a header's payload including its pad byte.
func (c *Cursor) SkipPayload(h Header) error {
	target := h.PayloadPos + PaddedLen(h.Length)
	if target > c.end {
		target = c.end
	}
	return c.Seek(int64(target), io.SeekStart)
}
