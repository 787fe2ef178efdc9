package document

import "github.com/wudi/djvukit/info"

// DumpText returns a human-readable description of the full directory and
// chunk tree.
func (d *Document) DumpText() (string, error) {
	return info.Dump(d.buf)
}

// DumpHTML returns the same description HTML-escaped.
func (d *Document) DumpHTML() (string, error) {
	return info.DumpHTML(d.buf)
}
