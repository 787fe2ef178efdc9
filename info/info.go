// Package info renders a human-readable description of a container's
// directory and chunk tree, and converts NAVM outlines to HTML.
package info

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"golang.org/x/net/html"

	"github.com/wudi/djvukit/chunk"
	"github.com/wudi/djvukit/codec"
)

// Dump walks the full chunk tree of a container buffer and returns one line
// per chunk, indented by depth.
func Dump(buf []byte) (string, error) {
	c := chunk.NewCursor(buf)
	magic, err := c.ReadTag()
	if err != nil || string(magic) != chunk.Magic {
		return "", fmt.Errorf("info: bad signature %q", magic)
	}
	b := &strings.Builder{}
	if err := dumpChunk(c, b, 1); err != nil {
		return "", err
	}
	return b.String(), nil
}

// DumpHTML returns Dump output with each line HTML-escaped, wrapped in a
// <pre> block.
func DumpHTML(buf []byte) (string, error) {
	text, err := Dump(buf)
	if err != nil {
		return "", err
	}
	b := &strings.Builder{}
	b.WriteString("<pre>\n")
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		b.WriteString(html.EscapeString(line))
		b.WriteByte('\n')
	}
	b.WriteString("</pre>\n")
	return b.String(), nil
}

func dumpChunk(c *chunk.Cursor, b *strings.Builder, depth int) error {
	h, err := c.ReadHeader()
	if err != nil {
		return fmt.Errorf("info: %w", err)
	}
	indent := strings.Repeat("  ", depth)

	if h.Tag == chunk.TagForm {
		sec, err := c.ReadTag()
		if err != nil {
			return fmt.Errorf("info: %w", err)
		}
		fmt.Fprintf(b, "%sFORM:%s [%d]\n", indent, sec, h.Length)
		end := h.PayloadPos + int(h.Length)
		for c.Pos() < end && c.Remaining() > 1 {
			if err := dumpChunk(c, b, depth+1); err != nil {
				return err
			}
		}
		return c.SkipPayload(h)
	}

	fmt.Fprintf(b, "%s%s [%d]%s\n", indent, h.Tag, h.Length, describe(c, h))
	return c.SkipPayload(h)
}

// describe decodes the payloads worth summarizing. Decode failures degrade to
// a bare tag line; the dump never fails on a payload it cannot read.
func describe(c *chunk.Cursor, h chunk.Header) string {
	sub, err := c.Fork(int(h.Length))
	if err != nil {
		return ""
	}
	switch h.Tag {
	case chunk.TagDirectory:
		dir, err := codec.DecodeDirectory(sub)
		if err != nil {
			return ""
		}
		kind := "indirect"
		if dir.Bundled {
			kind = "bundled"
		}
		var b strings.Builder
		fmt.Fprintf(&b, "  Document directory (%s, %d files, %d pages)", kind, dir.FileCount(), dir.PageCount())
		for _, f := range dir.Files {
			fmt.Fprintf(&b, "\n    %-10s %8d  %q", f.Type(), f.Size, f.ID)
			if title := f.DisplayTitle(); title != f.ID {
				fmt.Fprintf(&b, " (%s)", title)
			}
		}
		return b.String()
	case chunk.TagContents:
		toc, err := codec.DecodeContents(sub)
		if err != nil {
			return ""
		}
		return fmt.Sprintf("  Table of contents (%d bookmarks)", toc.Count())
	case chunk.TagInclude:
		id, err := sub.Bytes(sub.Remaining())
		if err != nil {
			return ""
		}
		return fmt.Sprintf("  Shared component %q", strings.TrimRight(string(id), "\x00"))
	case chunk.TagInfo:
		w, err1 := sub.ReadUint16()
		hh, err2 := sub.ReadUint16()
		if err1 != nil || err2 != nil {
			return ""
		}
		return fmt.Sprintf("  %dx%d", w, hh)
	default:
		return ""
	}
}

// OutlineMarkdown renders a NAVM outline as a nested markdown list.
func OutlineMarkdown(toc *codec.Contents) string {
	b := &strings.Builder{}
	var walk func(bms []codec.Bookmark, depth int)
	walk = func(bms []codec.Bookmark, depth int) {
		for _, bm := range bms {
			fmt.Fprintf(b, "%s- [%s](%s)\n", strings.Repeat("  ", depth), bm.Title, bm.URL)
			walk(bm.Children, depth+1)
		}
	}
	walk(toc.Bookmarks, 0)
	return b.String()
}

// OutlineHTML converts the outline's markdown rendering to HTML.
func OutlineHTML(toc *codec.Contents) (string, error) {
	b := &strings.Builder{}
	if err := goldmark.Convert([]byte(OutlineMarkdown(toc)), b); err != nil {
		return "", fmt.Errorf("info: render outline: %w", err)
	}
	return b.String(), nil
}
