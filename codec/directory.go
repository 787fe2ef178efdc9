// Package codec holds the typed decoders for the payloads a DjVu container
// carries: the DIRM file directory, the NAVM outline, and the opaque shared
// shape and thumbnail components.
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/wudi/djvukit/chunk"
)

// FileType classifies a directory record.
type FileType byte

const (
	FileShared FileType = iota
	FilePage
	FileThumbnails
)

func (t FileType) String() string {
	switch t {
	case FileShared:
		return "shared"
	case FilePage:
		return "page"
	case FileThumbnails:
		return "thumbnails"
	default:
		return fmt.Sprintf("unknown(%d)", byte(t))
	}
}

const (
	flagHasName  = 0x80
	flagHasTitle = 0x40
	flagTypeMask = 0x3f

	dirBundled = 0x80
)

// FileRecord is one directory entry: flags, byte size, stable identifier and
// optional stored name/title. Offset is absolute within the container buffer
// and zero for indirect documents.
type FileRecord struct {
	Offset int
	Size   int
	Flags  byte
	ID     string
	Name   string
	Title  string
}

func (r FileRecord) Type() FileType { return FileType(r.Flags & flagTypeMask) }
func (r FileRecord) IsPage() bool   { return r.Type() == FilePage }

// StoredName is the file name a remote fetch uses; it defaults to the id.
func (r FileRecord) StoredName() string {
	if r.Flags&flagHasName != 0 && r.Name != "" {
		return r.Name
	}
	return r.ID
}

// DisplayTitle defaults to the stored name when no title was recorded.
func (r FileRecord) DisplayTitle() string {
	if r.Flags&flagHasTitle != 0 && r.Title != "" {
		return r.Title
	}
	return r.StoredName()
}

// Directory is the decoded DIRM chunk: one record per container file, in
// container order.
type Directory struct {
	Bundled bool
	Version byte
	Files   []FileRecord
}

// DecodeDirectory consumes a forked cursor over a DIRM payload.
func DecodeDirectory(c *chunk.Cursor) (*Directory, error) {
	flags, err := c.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("directory flags: %w", err)
	}
	count, err := c.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("directory file count: %w", err)
	}
	d := &Directory{
		Bundled: flags&dirBundled != 0,
		Version: flags &^ dirBundled,
		Files:   make([]FileRecord, count),
	}
	if d.Bundled {
		for i := range d.Files {
			off, err := c.ReadUint32()
			if err != nil {
				return nil, fmt.Errorf("directory offset %d: %w", i, err)
			}
			d.Files[i].Offset = int(off)
		}
	}
	for i := range d.Files {
		size, err := c.ReadUint24()
		if err != nil {
			return nil, fmt.Errorf("directory size %d: %w", i, err)
		}
		d.Files[i].Size = int(size)
	}
	for i := range d.Files {
		fl, err := c.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("directory flags %d: %w", i, err)
		}
		d.Files[i].Flags = fl
	}
	for i := range d.Files {
		rec := &d.Files[i]
		if rec.ID, err = c.ReadCString(); err != nil {
			return nil, fmt.Errorf("directory id %d: %w", i, err)
		}
		if rec.Flags&flagHasName != 0 {
			if rec.Name, err = c.ReadCString(); err != nil {
				return nil, fmt.Errorf("directory name %d: %w", i, err)
			}
		}
		if rec.Flags&flagHasTitle != 0 {
			if rec.Title, err = c.ReadCString(); err != nil {
				return nil, fmt.Errorf("directory title %d: %w", i, err)
			}
		}
	}
	return d, nil
}

// Encode serializes the directory back into a DIRM payload. The layout
// round-trips through DecodeDirectory.
func (d *Directory) Encode() []byte {
	buf := &bytes.Buffer{}
	flags := d.Version &^ dirBundled
	if d.Bundled {
		flags |= dirBundled
	}
	buf.WriteByte(flags)
	binary.Write(buf, binary.BigEndian, uint16(len(d.Files)))
	if d.Bundled {
		for _, f := range d.Files {
			binary.Write(buf, binary.BigEndian, uint32(f.Offset))
		}
	}
	for _, f := range d.Files {
		buf.Write([]byte{byte(f.Size >> 16), byte(f.Size >> 8), byte(f.Size)})
	}
	for _, f := range d.Files {
		buf.WriteByte(f.Flags)
	}
	for _, f := range d.Files {
		buf.WriteString(f.ID)
		buf.WriteByte(0)
		if f.Flags&flagHasName != 0 {
			buf.WriteString(f.Name)
			buf.WriteByte(0)
		}
		if f.Flags&flagHasTitle != 0 {
			buf.WriteString(f.Title)
			buf.WriteByte(0)
		}
	}
	return buf.Bytes()
}

// FileCount returns the number of directory records.
func (d *Directory) FileCount() int { return len(d.Files) }

// PageCount returns the number of records flagged as pages.
func (d *Directory) PageCount() int {
	n := 0
	for _, f := range d.Files {
		if f.IsPage() {
			n++
		}
	}
	return n
}

// PageRecord returns the directory record for a 1-based page number.
func (d *Directory) PageRecord(page int) (FileRecord, bool) {
	n := 0
	for _, f := range d.Files {
		if !f.IsPage() {
			continue
		}
		n++
		if n == page {
			return f, true
		}
	}
	return FileRecord{}, false
}

// PageFilename resolves a 1-based page number to its stored file name.
func (d *Directory) PageFilename(page int) (string, bool) {
	rec, ok := d.PageRecord(page)
	if !ok {
		return "", false
	}
	return rec.StoredName(), true
}

// FilenameForID resolves a component identifier to its stored file name.
func (d *Directory) FilenameForID(id string) (string, bool) {
	for _, f := range d.Files {
		if f.ID == id {
			return f.StoredName(), true
		}
	}
	return "", false
}

// PageNumberForID returns the 1-based page number of the record with the
// given id, if that record is a page.
func (d *Directory) PageNumberForID(id string) (int, bool) {
	n := 0
	for _, f := range d.Files {
		if f.IsPage() {
			n++
			if f.ID == id {
				return n, true
			}
		}
	}
	return 0, false
}

// NewFileRecord builds a record with the name/title presence flags derived
// from the given values.
func NewFileRecord(typ FileType, id, name, title string, size int) FileRecord {
	rec := FileRecord{ID: id, Name: name, Title: title, Size: size, Flags: byte(typ)}
	if name != "" {
		rec.Flags |= flagHasName
	}
	if title != "" {
		rec.Flags |= flagHasTitle
	}
	return rec
}
