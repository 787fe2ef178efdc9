// Command djvuinfo prints the directory and chunk tree of a DjVu container.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/wudi/djvukit/document"
	"github.com/wudi/djvukit/info"
)

type options struct {
	path    string
	html    bool
	outline bool
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "djvuinfo: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "djvuinfo: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: djvuinfo [flags] <file>\n")
		flag.PrintDefaults()
	}
	html := flag.Bool("html", false, "Emit HTML-escaped output")
	outline := flag.Bool("outline", false, "Print the document outline instead of the chunk tree")
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		return opts, fmt.Errorf("expected exactly one file argument")
	}
	opts.path = flag.Arg(0)
	opts.html = *html
	opts.outline = *outline
	return opts, nil
}

func run(opts options) error {
	buf, err := os.ReadFile(opts.path)
	if err != nil {
		return err
	}
	doc, err := document.Parse(buf, document.Config{})
	if err != nil {
		return fmt.Errorf("parse %s: %w", opts.path, err)
	}

	if opts.outline {
		toc := doc.Contents()
		if toc == nil {
			return fmt.Errorf("%s has no outline", opts.path)
		}
		if opts.html {
			out, err := info.OutlineHTML(toc)
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		}
		fmt.Print(info.OutlineMarkdown(toc))
		return nil
	}

	var out string
	if opts.html {
		out, err = doc.DumpHTML()
	} else {
		out, err = doc.DumpText()
	}
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}
