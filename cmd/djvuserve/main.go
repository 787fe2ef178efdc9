// Command djvuserve exposes a bundled document's components as individual
// files over HTTP, turning it into an origin for indirect consumption: the
// header at /index.djvu, every component by its stored name, and a browsable
// dump at /.
package main

import (
	"bytes"
	"encoding/binary"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wudi/djvukit/chunk"
	"github.com/wudi/djvukit/codec"
	"github.com/wudi/djvukit/document"
	"github.com/wudi/djvukit/info"
)

func main() {
	addr := flag.String("addr", ":8080", "Listen address")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: djvuserve [flags] <file>\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(flag.Arg(0), *addr, log); err != nil {
		log.Error("djvuserve failed", "error", err)
		os.Exit(1)
	}
}

func run(path, addr string, log *slog.Logger) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	doc, err := document.Parse(buf, document.Config{})
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	dir := doc.Directory()
	if dir == nil || !dir.Bundled {
		return fmt.Errorf("%s is not a bundled multi-page document", path)
	}

	srv := &server{doc: doc, log: log}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", srv.handleIndex)
	r.Get("/index.djvu", srv.handleHeader)
	r.Get("/{name}", srv.handleComponent)

	log.Info("serving document", "path", path, "pages", doc.PageCount(), "addr", addr)
	return http.ListenAndServe(addr, r)
}

type server struct {
	doc *document.Document
	log *slog.Logger
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	dump, err := s.doc.DumpHTML()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, dump)
	if toc := s.doc.Contents(); toc != nil {
		if outline, err := info.OutlineHTML(toc); err == nil {
			fmt.Fprint(w, outline)
		}
	}
}

// handleHeader rewrites the bundled directory as an indirect one so clients
// can fetch components on demand through this server.
func (s *server) handleHeader(w http.ResponseWriter, r *http.Request) {
	src := s.doc.Directory()
	indirect := &codec.Directory{Version: src.Version, Files: make([]codec.FileRecord, len(src.Files))}
	copy(indirect.Files, src.Files)
	for i := range indirect.Files {
		indirect.Files[i].Offset = 0
	}

	inner := &bytes.Buffer{}
	inner.WriteString(string(chunk.FormMultiPage))
	writeChunk(inner, chunk.TagDirectory, indirect.Encode())

	out := &bytes.Buffer{}
	out.WriteString(chunk.Magic)
	writeChunk(out, chunk.TagForm, inner.Bytes())

	w.Header().Set("Content-Type", "image/vnd.djvu")
	w.Write(out.Bytes())
}

func (s *server) handleComponent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	for _, rec := range s.doc.Directory().Files {
		if rec.StoredName() != name {
			continue
		}
		span := s.doc.Buffer()[rec.Offset : rec.Offset+rec.Size]
		w.Header().Set("Content-Type", "image/vnd.djvu")
		w.Write([]byte(chunk.Magic))
		w.Write(span)
		return
	}
	s.log.Warn("component not found", "name", name)
	http.NotFound(w, r)
}

func writeChunk(buf *bytes.Buffer, tag chunk.Tag, payload []byte) {
	buf.WriteString(string(tag))
	binary.Write(buf, binary.BigEndian, uint32(len(payload)))
	buf.Write(payload)
	if len(payload)%2 == 1 {
		buf.WriteByte(0)
	}
}
