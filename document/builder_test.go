package document

import (
	"bytes"
	"errors"
	"testing"

	"github.com/wudi/djvukit/codec"
	"github.com/wudi/djvukit/recovery"
)

func bundledFixture() []component {
	return []component{
		{typ: codec.FileShared, id: "dict0001", span: buildSharedForm(64)},
		{typ: codec.FilePage, id: "p0001", name: "p0001.djvu", title: "Cover", span: buildPageForm([]string{"dict0001"}, 200)},
		{typ: codec.FilePage, id: "p0002", span: buildPageForm([]string{"dict0001"}, 300)},
		{typ: codec.FileThumbnails, id: "thumbs", span: buildThumbForm(40)},
	}
}

func TestParseBundled(t *testing.T) {
	buf := buildBundled(bundledFixture(), nil)
	d, err := Parse(buf, Config{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.PageCount() != 2 {
		t.Fatalf("page count = %d, want 2", d.PageCount())
	}
	if d.PageCount() != d.Directory().PageCount() {
		t.Errorf("page count %d != directory page count %d", d.PageCount(), d.Directory().PageCount())
	}
	if !d.IsBundled() {
		t.Error("bundled document reported as indirect")
	}
	for n := 1; n <= d.PageCount(); n++ {
		if _, ok := d.PageUnsafe(n); !ok {
			t.Errorf("slot %d empty after bundled parse", n)
		}
	}
	if _, ok := d.Resource("dict0001"); !ok {
		t.Error("shared component not installed")
	}
	if len(d.Thumbnails()) != 1 {
		t.Errorf("thumbnails = %d, want 1", len(d.Thumbnails()))
	}

	want := 0
	for n := 1; n <= d.PageCount(); n++ {
		pg, _ := d.PageUnsafe(n)
		want += pg.ByteLength()
	}
	res, _ := d.Resource("dict0001")
	want += res.ByteLength()
	if d.ResidentBytes() != want {
		t.Errorf("resident = %d, want %d", d.ResidentBytes(), want)
	}
}

func TestParseSinglePage(t *testing.T) {
	d, err := Parse(buildSinglePage(nil, 100), Config{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.PageCount() != 1 || !d.IsBundled() {
		t.Errorf("count=%d bundled=%v", d.PageCount(), d.IsBundled())
	}
	if d.Directory() != nil {
		t.Error("single page has a directory")
	}
	pg, ok := d.PageUnsafe(1)
	if !ok {
		t.Fatal("single page slot empty")
	}
	if d.ResidentBytes() != pg.ByteLength() {
		t.Errorf("resident = %d, want %d", d.ResidentBytes(), pg.ByteLength())
	}
}

func TestParseIncorrectFormat(t *testing.T) {
	buf := buildSinglePage(nil, 10)
	copy(buf, "JUNK")
	if _, err := Parse(buf, Config{}); !errors.Is(err, ErrIncorrectFormat) {
		t.Fatalf("err = %v, want ErrIncorrectFormat", err)
	}
	if _, err := Parse([]byte("AT"), Config{}); !errors.Is(err, ErrIncorrectFormat) {
		t.Fatalf("short buffer err = %v, want ErrIncorrectFormat", err)
	}
}

func TestParseMultiPageWithoutDirectory(t *testing.T) {
	inner := &bytes.Buffer{}
	inner.WriteString("DJVM")
	writeChunkTo(inner, "NAVM", buildNAVM())
	out := &bytes.Buffer{}
	out.WriteString("AT&T")
	writeChunkTo(out, "FORM", inner.Bytes())

	if _, err := Parse(out.Bytes(), Config{}); !errors.Is(err, ErrCorruptedContainer) {
		t.Fatalf("err = %v, want ErrCorruptedContainer", err)
	}
}

func TestParseUnexpectedTopLevelForm(t *testing.T) {
	buf := append([]byte("AT&T"), buildSharedForm(8)...)
	if _, err := Parse(buf, Config{}); !errors.Is(err, ErrCorruptedContainer) {
		t.Fatalf("err = %v, want ErrCorruptedContainer", err)
	}
}

func TestParseContents(t *testing.T) {
	navm := buildNAVM(
		codec.Bookmark{Title: "Cover", URL: "#p0001"},
		codec.Bookmark{Title: "Body", URL: "#2", Children: []codec.Bookmark{{Title: "Intro", URL: "#2"}}},
	)
	d, err := Parse(buildBundled(bundledFixture(), navm), Config{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Contents() == nil {
		t.Fatal("contents missing")
	}
	if d.Contents().Count() != 3 {
		t.Errorf("bookmark count = %d, want 3", d.Contents().Count())
	}
}

func TestParseIndirect(t *testing.T) {
	buf := buildIndirect(bundledFixture(), nil)
	d, err := Parse(buf, Config{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.IsBundled() {
		t.Error("indirect document reported as bundled")
	}
	if d.PageCount() != 2 {
		t.Fatalf("page count = %d, want 2", d.PageCount())
	}
	for n := 1; n <= d.PageCount(); n++ {
		if _, ok := d.PageUnsafe(n); ok {
			t.Errorf("slot %d populated before any load", n)
		}
	}
	if d.ResidentBytes() != len(buf) {
		t.Errorf("resident = %d, want header size %d", d.ResidentBytes(), len(buf))
	}
}

func TestParseSkipsUnknownComponentType(t *testing.T) {
	comps := bundledFixture()
	unknown := buildForm("BLOB", []byte{1, 2, 3, 4})
	comps = append(comps, component{typ: codec.FileShared, id: "blob", span: unknown})

	lenient := recovery.NewLenientStrategy()
	d, err := Parse(buildBundled(comps, nil), Config{Recovery: lenient})
	if err != nil {
		t.Fatalf("parse with lenient recovery: %v", err)
	}
	if d.PageCount() != 2 {
		t.Errorf("page count = %d, want 2", d.PageCount())
	}
	if _, ok := d.Resource("blob"); ok {
		t.Error("unknown component installed as shared shape")
	}
	if len(lenient.Errors) == 0 {
		t.Error("recovery strategy not consulted for unknown component")
	}

	if _, err := Parse(buildBundled(comps, nil), Config{Recovery: recovery.NewStrictStrategy()}); !errors.Is(err, ErrCorruptedContainer) {
		t.Errorf("strict recovery err = %v, want ErrCorruptedContainer", err)
	}
}

func TestParseTruncatedDirectory(t *testing.T) {
	inner := &bytes.Buffer{}
	inner.WriteString("DJVM")
	writeChunkTo(inner, "DIRM", []byte{0x80}) // flags only, count missing
	out := &bytes.Buffer{}
	out.WriteString("AT&T")
	writeChunkTo(out, "FORM", inner.Bytes())

	if _, err := Parse(out.Bytes(), Config{}); !errors.Is(err, ErrCorruptedContainer) {
		t.Fatalf("err = %v, want ErrCorruptedContainer", err)
	}
}
