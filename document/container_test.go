package document

// Synthetic container builders shared by the package tests.

import (
	"bytes"
	"encoding/binary"

	"github.com/wudi/djvukit/codec"
	"github.com/wudi/djvukit/writer"
)

func writeChunkTo(buf *bytes.Buffer, tag string, payload []byte) {
	buf.WriteString(tag)
	binary.Write(buf, binary.BigEndian, uint32(len(payload)))
	buf.Write(payload)
	if len(payload)%2 == 1 {
		buf.WriteByte(0)
	}
}

func buildForm(sec string, chunks []byte) []byte {
	body := &bytes.Buffer{}
	body.WriteString(sec)
	body.Write(chunks)
	out := &bytes.Buffer{}
	writeChunkTo(out, "FORM", body.Bytes())
	return out.Bytes()
}

// buildPageForm builds a FORM:DJVU span with an INFO chunk, one INCL per
// include id, and filler image data to reach a controllable size.
func buildPageForm(includes []string, filler int) []byte {
	chunks := &bytes.Buffer{}
	writeChunkTo(chunks, "INFO", []byte{0x0c, 0x6c, 0x10, 0x90, 0, 24, 0x01, 0x2c, 22, 0})
	for _, id := range includes {
		writeChunkTo(chunks, "INCL", []byte(id))
	}
	if filler > 0 {
		writeChunkTo(chunks, "Sjbz", make([]byte, filler))
	}
	return buildForm("DJVU", chunks.Bytes())
}

func buildSharedForm(filler int) []byte {
	chunks := &bytes.Buffer{}
	writeChunkTo(chunks, "Djbz", make([]byte, filler))
	return buildForm("DJVI", chunks.Bytes())
}

func buildThumbForm(filler int) []byte {
	chunks := &bytes.Buffer{}
	writeChunkTo(chunks, "TH44", make([]byte, filler))
	return buildForm("THUM", chunks.Bytes())
}

func buildNAVM(bookmarks ...codec.Bookmark) []byte {
	count := 0
	var countAll func([]codec.Bookmark)
	countAll = func(bms []codec.Bookmark) {
		count += len(bms)
		for _, bm := range bms {
			countAll(bm.Children)
		}
	}
	countAll(bookmarks)

	buf := &bytes.Buffer{}
	binary.Write(buf, binary.BigEndian, uint16(count))
	var enc func(codec.Bookmark)
	enc = func(bm codec.Bookmark) {
		buf.WriteByte(byte(len(bm.Children)))
		for _, s := range []string{bm.Title, bm.URL} {
			buf.Write([]byte{byte(len(s) >> 16), byte(len(s) >> 8), byte(len(s))})
			buf.WriteString(s)
		}
		for _, c := range bm.Children {
			enc(c)
		}
	}
	for _, bm := range bookmarks {
		enc(bm)
	}
	return buf.Bytes()
}

type component struct {
	typ   codec.FileType
	id    string
	name  string
	title string
	span  []byte
}

// buildBundled serializes components into a bundled container through the
// production writer.
func buildBundled(comps []component, navm []byte) []byte {
	dir := &codec.Directory{Bundled: true}
	w := writer.New()
	w.StartMultiPageContainer()
	for _, c := range comps {
		dir.Files = append(dir.Files, codec.NewFileRecord(c.typ, c.id, c.name, c.title, len(c.span)))
		w.WriteRawFormSpan(c.span)
	}
	w.WriteDirectoryChunk(dir)
	if navm != nil {
		w.WriteChunk("NAVM", navm)
	}
	buf, err := w.Buffer()
	if err != nil {
		panic(err)
	}
	return buf
}

// buildIndirect serializes a header-only container whose components live in
// remote files.
func buildIndirect(comps []component, navm []byte) []byte {
	dir := &codec.Directory{Bundled: false}
	for _, c := range comps {
		dir.Files = append(dir.Files, codec.NewFileRecord(c.typ, c.id, c.name, c.title, len(c.span)))
	}
	inner := &bytes.Buffer{}
	inner.WriteString("DJVM")
	writeChunkTo(inner, "DIRM", dir.Encode())
	if navm != nil {
		writeChunkTo(inner, "NAVM", navm)
	}
	out := &bytes.Buffer{}
	out.WriteString("AT&T")
	writeChunkTo(out, "FORM", inner.Bytes())
	return out.Bytes()
}

// remoteFiles maps stored names to fetchable file bytes (magic + span).
func remoteFiles(base string, comps []component) map[string][]byte {
	files := make(map[string][]byte)
	for _, c := range comps {
		name := c.name
		if name == "" {
			name = c.id
		}
		files[base+"/"+name] = append([]byte("AT&T"), c.span...)
	}
	return files
}

func buildSinglePage(includes []string, filler int) []byte {
	return append([]byte("AT&T"), buildPageForm(includes, filler)...)
}
