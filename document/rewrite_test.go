package document

import (
	"context"
	"errors"
	"testing"

	"github.com/wudi/djvukit/codec"
)

func sliceFixture() []component {
	return []component{
		{typ: codec.FileShared, id: "dict0001", span: buildSharedForm(64)},
		{typ: codec.FileShared, id: "dict0002", span: buildSharedForm(48)},
		{typ: codec.FilePage, id: "p0001", title: "Cover", span: buildPageForm([]string{"dict0001"}, 200)},
		{typ: codec.FilePage, id: "p0002", span: buildPageForm([]string{"dict0002"}, 300)},
		{typ: codec.FilePage, id: "p0003", span: buildPageForm([]string{"dict0001", "dict0002"}, 400)},
		{typ: codec.FileThumbnails, id: "thumbs", span: buildThumbForm(40)},
	}
}

func TestSliceFullRangeRoundTrip(t *testing.T) {
	src, err := Parse(buildBundled(sliceFixture(), buildNAVM(codec.Bookmark{Title: "Cover", URL: "#p0001"})), Config{})
	if err != nil {
		t.Fatal(err)
	}
	out, err := src.Slice(0, 0)
	if err != nil {
		t.Fatalf("slice: %v", err)
	}
	if out.PageCount() != src.PageCount() {
		t.Fatalf("page count = %d, want %d", out.PageCount(), src.PageCount())
	}
	if !out.IsBundled() {
		t.Error("sliced output not bundled")
	}
	if out.Contents() == nil {
		t.Error("table of contents not carried over")
	}
	// Every page's dependencies must resolve inside the new container.
	for n := 1; n <= out.PageCount(); n++ {
		pg, err := out.GetPage(context.Background(), n)
		if err != nil {
			t.Fatalf("page %d of sliced output: %v", n, err)
		}
		deps, err := pg.Dependencies()
		if err != nil {
			t.Fatal(err)
		}
		for _, id := range deps {
			if _, ok := out.Resource(id); !ok {
				t.Errorf("page %d dependency %q missing from sliced output", n, id)
			}
		}
	}
	// Thumbnails are never copied into sliced output.
	if len(out.Thumbnails()) != 0 {
		t.Errorf("thumbnails = %d, want 0", len(out.Thumbnails()))
	}
}

func TestSliceSubrangeKeepsOnlyNeededComponents(t *testing.T) {
	src, err := Parse(buildBundled(sliceFixture(), nil), Config{})
	if err != nil {
		t.Fatal(err)
	}
	out, err := src.Slice(2, 2)
	if err != nil {
		t.Fatalf("slice: %v", err)
	}
	if out.PageCount() != 1 {
		t.Fatalf("page count = %d, want 1", out.PageCount())
	}
	if _, ok := out.Resource("dict0002"); !ok {
		t.Error("needed component dict0002 missing")
	}
	if _, ok := out.Resource("dict0001"); ok {
		t.Error("unneeded component dict0001 copied")
	}
	// Metadata is copied; offsets and sizes are re-derived.
	rec, ok := out.Directory().PageRecord(1)
	if !ok {
		t.Fatal("page record missing")
	}
	if rec.ID != "p0002" {
		t.Errorf("page id = %q, want p0002", rec.ID)
	}
	pg, _ := out.PageUnsafe(1)
	if rec.Size != pg.ByteLength() {
		t.Errorf("directory size %d != span length %d", rec.Size, pg.ByteLength())
	}
}

func TestSliceKeepsPageIncludedByAnotherPage(t *testing.T) {
	src, err := Parse(buildBundled([]component{
		{typ: codec.FilePage, id: "p0001", span: buildPageForm([]string{"p0002"}, 100)},
		{typ: codec.FilePage, id: "p0002", span: buildPageForm(nil, 100)},
		{typ: codec.FilePage, id: "p0003", span: buildPageForm(nil, 100)},
	}, nil), Config{})
	if err != nil {
		t.Fatal(err)
	}
	// p0002 is outside the range but named by an in-range include, so it
	// must ride along; p0003 must not.
	out, err := src.Slice(1, 1)
	if err != nil {
		t.Fatalf("slice: %v", err)
	}
	ids := make(map[string]bool)
	for _, f := range out.Directory().Files {
		ids[f.ID] = true
	}
	if !ids["p0001"] || !ids["p0002"] {
		t.Errorf("files = %v, want p0001 and p0002", ids)
	}
	if ids["p0003"] {
		t.Error("unreferenced out-of-range page copied")
	}
	if out.PageCount() != 2 {
		t.Errorf("page count = %d, want 2", out.PageCount())
	}
}

func TestSlicePreservesContainerOrderAndTitles(t *testing.T) {
	src, err := Parse(buildBundled(sliceFixture(), nil), Config{})
	if err != nil {
		t.Fatal(err)
	}
	out, err := src.Slice(1, 2)
	if err != nil {
		t.Fatal(err)
	}
	files := out.Directory().Files
	wantIDs := []string{"dict0001", "dict0002", "p0001", "p0002"}
	if len(files) != len(wantIDs) {
		t.Fatalf("files = %d, want %d", len(files), len(wantIDs))
	}
	for i, want := range wantIDs {
		if files[i].ID != want {
			t.Errorf("file %d = %q, want %q", i, files[i].ID, want)
		}
	}
	if files[2].Title != "Cover" {
		t.Errorf("title = %q, want Cover", files[2].Title)
	}
}

func TestSliceRangeValidation(t *testing.T) {
	src, err := Parse(buildBundled(sliceFixture(), nil), Config{})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range [][2]int{{4, 4}, {2, 1}, {-1, 2}} {
		if _, err := src.Slice(r[0], r[1]); err == nil {
			t.Errorf("slice [%d, %d] accepted", r[0], r[1])
		}
	}
}

func TestSliceRequiresDirectory(t *testing.T) {
	single, err := Parse(buildSinglePage(nil, 50), Config{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := single.Slice(1, 1); err == nil {
		t.Fatal("slice of a bare single page accepted")
	}

	indirect, err := Parse(buildIndirect(sliceFixture(), nil), Config{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := indirect.Slice(1, 1); err == nil {
		t.Fatal("slice of an indirect document accepted")
	}
}

func TestConcatKeepsAllPagesInOrder(t *testing.T) {
	a, err := Parse(buildBundled(sliceFixture(), nil), Config{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Parse(buildBundled([]component{
		{typ: codec.FilePage, id: "q0001", span: buildPageForm(nil, 100)},
	}, nil), Config{})
	if err != nil {
		t.Fatal(err)
	}
	merged, err := Concat(a, b, Config{})
	if err != nil {
		t.Fatalf("concat: %v", err)
	}
	if merged.PageCount() != a.PageCount()+b.PageCount() {
		t.Fatalf("page count = %d, want %d", merged.PageCount(), a.PageCount()+b.PageCount())
	}
	if !merged.IsBundled() {
		t.Error("merged output not bundled")
	}
	last, ok := merged.Directory().PageRecord(merged.PageCount())
	if !ok || last.ID != "q0001" {
		t.Errorf("last page = %+v, want q0001", last)
	}
}

func TestConcatUniquifiesIdentifiers(t *testing.T) {
	build := func() *Document {
		d, err := Parse(buildBundled([]component{
			{typ: codec.FileShared, id: "dict0001", span: buildSharedForm(32)},
			{typ: codec.FilePage, id: "p0001", span: buildPageForm([]string{"dict0001"}, 100)},
		}, nil), Config{})
		if err != nil {
			t.Fatal(err)
		}
		return d
	}
	merged, err := Concat(build(), build(), Config{})
	if err != nil {
		t.Fatalf("concat: %v", err)
	}
	seen := make(map[string]bool)
	for _, f := range merged.Directory().Files {
		if seen[f.ID] {
			t.Errorf("duplicate identifier %q in merged directory", f.ID)
		}
		seen[f.ID] = true
	}
	if !seen["p0001"] || !seen["p00011"] {
		t.Errorf("expected p0001 and p00011, got %v", seen)
	}
}

func TestConcatWithBareSinglePages(t *testing.T) {
	single := func() *Document {
		d, err := Parse(buildSinglePage(nil, 80), Config{})
		if err != nil {
			t.Fatal(err)
		}
		return d
	}
	merged, err := Concat(single(), single(), Config{})
	if err != nil {
		t.Fatalf("concat: %v", err)
	}
	if merged.PageCount() != 2 {
		t.Fatalf("page count = %d, want 2", merged.PageCount())
	}
	ids := make(map[string]bool)
	for _, f := range merged.Directory().Files {
		if ids[f.ID] {
			t.Errorf("duplicate generated identifier %q", f.ID)
		}
		ids[f.ID] = true
	}
}

func TestConcatRejectsIndirectInput(t *testing.T) {
	a, err := Parse(buildBundled(sliceFixture(), nil), Config{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Parse(buildIndirect(sliceFixture(), nil), Config{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Concat(a, b, Config{}); err == nil {
		t.Fatal("concat with an indirect source accepted")
	}
}

func TestPageByURL(t *testing.T) {
	d, err := Parse(buildBundled(sliceFixture(), nil), Config{})
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		ref  string
		want int
	}{
		{"#p0001", 1},
		{"#p0003", 3},
		{"#2", 2},
		{"3", 3},
	}
	for _, tc := range cases {
		n, err := d.PageByURL(tc.ref)
		if err != nil {
			t.Errorf("PageByURL(%q): %v", tc.ref, err)
			continue
		}
		if n != tc.want {
			t.Errorf("PageByURL(%q) = %d, want %d", tc.ref, n, tc.want)
		}
	}
	for _, bad := range []string{"#dict0001", "#0", "#4", "#nope", ""} {
		if _, err := d.PageByURL(bad); !errors.Is(err, ErrNoSuchPage) {
			t.Errorf("PageByURL(%q) err = %v, want ErrNoSuchPage", bad, err)
		}
	}
}
