// Package writer serializes a directory description and a sequence of raw
// component spans into a new, self-consistent DjVu container. Offsets and
// sizes in the emitted directory are derived from the spans actually written,
// never copied from a source document.
package writer

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/wudi/djvukit/chunk"
	"github.com/wudi/djvukit/codec"
)

type rawChunk struct {
	tag     chunk.Tag
	payload []byte
}

// ContainerWriter accumulates the parts of a multi-page container and
// serializes them on Buffer. The zero value is not usable; call New.
type ContainerWriter struct {
	multiPage bool
	dir       *codec.Directory
	chunks    []rawChunk
	spans     [][]byte
}

func New() *ContainerWriter {
	return &ContainerWriter{}
}

// StartMultiPageContainer marks the output as a FORM:DJVM container.
func (w *ContainerWriter) StartMultiPageContainer() {
	w.multiPage = true
}

// WriteDirectoryChunk records the directory description. One component span
// must be written per directory record before Buffer is called; record
// offsets and sizes are overwritten during serialization.
func (w *ContainerWriter) WriteDirectoryChunk(dir *codec.Directory) {
	w.dir = dir
}

// WriteChunk appends a verbatim chunk (typically NAVM) between the directory
// and the component spans.
func (w *ContainerWriter) WriteChunk(tag chunk.Tag, payload []byte) {
	w.chunks = append(w.chunks, rawChunk{tag: tag, payload: payload})
}

// WriteRawFormSpan appends one component's raw FORM bytes. Spans must arrive
// in directory-record order.
func (w *ContainerWriter) WriteRawFormSpan(span []byte) {
	w.spans = append(w.spans, span)
}

// Buffer serializes the container and returns the new buffer.
func (w *ContainerWriter) Buffer() ([]byte, error) {
	if !w.multiPage {
		return nil, errors.New("writer: container not started")
	}
	if w.dir == nil {
		return nil, errors.New("writer: no directory chunk written")
	}
	if len(w.spans) != len(w.dir.Files) {
		return nil, fmt.Errorf("writer: %d spans for %d directory records", len(w.spans), len(w.dir.Files))
	}

	// The emitted container is always bundled: every span it describes is
	// stored inline.
	w.dir.Bundled = true

	// The DIRM payload size does not depend on the offset values, so
	// record offsets can be assigned before the final encode.
	dirLen := len(w.dir.Encode())
	pos := len(chunk.Magic) + 8 + 4 // magic, FORM header, DJVM
	pos += 8 + chunk.PaddedLen(uint32(dirLen))
	for _, rc := range w.chunks {
		pos += 8 + chunk.PaddedLen(uint32(len(rc.payload)))
	}
	for i, span := range w.spans {
		if len(span)%2 != 0 {
			return nil, fmt.Errorf("writer: span %d has odd length %d", i, len(span))
		}
		w.dir.Files[i].Offset = pos
		w.dir.Files[i].Size = len(span)
		pos += len(span)
	}

	buf := &bytes.Buffer{}
	buf.WriteString(chunk.Magic)
	buf.WriteString(string(chunk.TagForm))
	binary.Write(buf, binary.BigEndian, uint32(pos-len(chunk.Magic)-8))
	buf.WriteString(string(chunk.FormMultiPage))

	writeChunk(buf, chunk.TagDirectory, w.dir.Encode())
	for _, rc := range w.chunks {
		writeChunk(buf, rc.tag, rc.payload)
	}
	for _, span := range w.spans {
		buf.Write(span)
	}
	return buf.Bytes(), nil
}

func writeChunk(buf *bytes.Buffer, tag chunk.Tag, payload []byte) {
	buf.WriteString(string(tag))
	binary.Write(buf, binary.BigEndian, uint32(len(payload)))
	buf.Write(payload)
	if len(payload)%2 == 1 {
		buf.WriteByte(0)
	}
}
