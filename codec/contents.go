package codec

import (
	"fmt"

	"github.com/wudi/djvukit/chunk"
)

// Bookmark is one NAVM outline node. URL is usually a page reference of the
// form "#id" or "#NNN".
type Bookmark struct {
	Title    string
	URL      string
	Children []Bookmark
}

// Contents is the decoded NAVM chunk. It is parsed once at document
// construction and immutable afterwards.
type Contents struct {
	Bookmarks []Bookmark
}

// DecodeContents consumes a forked cursor over a NAVM payload.
func DecodeContents(c *chunk.Cursor) (*Contents, error) {
	total, err := c.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("contents count: %w", err)
	}
	remaining := int(total)
	var top []Bookmark
	for remaining > 0 {
		bm, used, err := decodeBookmark(c, remaining)
		if err != nil {
			return nil, err
		}
		top = append(top, bm)
		remaining -= used
	}
	return &Contents{Bookmarks: top}, nil
}

func decodeBookmark(c *chunk.Cursor, budget int) (Bookmark, int, error) {
	nChildren, err := c.ReadByte()
	if err != nil {
		return Bookmark{}, 0, fmt.Errorf("bookmark child count: %w", err)
	}
	title, err := readSizedString(c)
	if err != nil {
		return Bookmark{}, 0, fmt.Errorf("bookmark title: %w", err)
	}
	url, err := readSizedString(c)
	if err != nil {
		return Bookmark{}, 0, fmt.Errorf("bookmark url: %w", err)
	}
	bm := Bookmark{Title: title, URL: url}
	used := 1
	for i := 0; i < int(nChildren); i++ {
		if used >= budget {
			return Bookmark{}, 0, fmt.Errorf("bookmark %q: child count exceeds total", title)
		}
		child, childUsed, err := decodeBookmark(c, budget-used)
		if err != nil {
			return Bookmark{}, 0, err
		}
		bm.Children = append(bm.Children, child)
		used += childUsed
	}
	return bm, used, nil
}

func readSizedString(c *chunk.Cursor) (string, error) {
	n, err := c.ReadUint24()
	if err != nil {
		return "", err
	}
	b, err := c.Bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Count returns the total number of bookmarks including nested ones.
func (t *Contents) Count() int {
	var walk func([]Bookmark) int
	walk = func(bms []Bookmark) int {
		n := len(bms)
		for _, bm := range bms {
			n += walk(bm.Children)
		}
		return n
	}
	return walk(t.Bookmarks)
}
