// Package page turns archived sighting pages from HTML into the
// section-delimited plain text the pipeline extracts candidates from.
//
// The archive spans two layouts. Older pages put each day's sightings in a
// table row with the date in its own cell; newer pages run sightings as
// paragraphs under a date heading. Both reduce to the same representation:
// every text node becomes a '|'-separated section, and table rows close with
// a record stop so a row reads like a sentence.
package page

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/k3a/html2text"
	"golang.org/x/net/html"

	"github.com/marshbird/sightings-etl/internal/pipeline"
)

// archiveYearRe finds the year in the "Archived Sightings - 2008" banner.
var archiveYearRe = regexp.MustCompile(`(?i)archived[^.]*?([1-3][0-9]{3})`)

// Parse reads one archive page and reduces it to pipeline input. The page ID
// is caller-supplied provenance, usually the source filename.
func Parse(id string, r io.Reader) (pipeline.PageText, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return pipeline.PageText{}, fmt.Errorf("read page %s: %w", id, err)
	}

	doc, err := html.Parse(strings.NewReader(string(raw)))
	if err != nil {
		return pipeline.PageText{}, fmt.Errorf("parse page %s: %w", id, err)
	}

	var b strings.Builder
	flatten(doc, &b)

	return pipeline.PageText{
		ID:   id,
		Year: archiveYear(string(raw)),
		Text: b.String(),
	}, nil
}

// ParseFile parses one page from disk, deriving the page ID from the
// filename without its extension.
func ParseFile(path string) (pipeline.PageText, error) {
	f, err := os.Open(path)
	if err != nil {
		return pipeline.PageText{}, fmt.Errorf("open page: %w", err)
	}
	defer f.Close()

	base := filepath.Base(path)
	id := strings.TrimSuffix(base, filepath.Ext(base))
	return Parse(id, f)
}

// LoadDir parses every .htm and .html file in dir, sorted by filename so
// pipeline input order is reproducible.
func LoadDir(dir string) ([]pipeline.PageText, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read pages dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".htm", ".html":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	pages := make([]pipeline.PageText, 0, len(paths))
	for _, path := range paths {
		page, err := ParseFile(path)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// archiveYear pulls the archive year out of the page banner. Zero means the
// page carries no year; date parsing then leaves partial dates unresolved.
func archiveYear(src string) int {
	text := html2text.HTML2Text(src)
	m := archiveYearRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return year
}

// blockEnds are the elements whose close marks a record boundary. Table
// cells are NOT here: a row's cells stay joined as '|' sections so a date
// or location cell rides with its sightings.
var blockEnds = map[string]bool{
	"p": true, "br": true, "li": true, "tr": true, "table": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// flatten walks the DOM appending each text node as a '|'-separated section.
// Script, style, and head subtrees carry no sightings and are skipped.
// Block-element boundaries append a record stop, so a heading, paragraph, or
// table row reads like a sentence.
func flatten(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "head":
			return
		}
	}

	if n.Type == html.TextNode {
		if text := strings.TrimSpace(n.Data); text != "" {
			if b.Len() > 0 {
				b.WriteByte('|')
			}
			b.WriteString(text)
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		flatten(c, b)
	}

	if n.Type == html.ElementNode && blockEnds[n.Data] && b.Len() > 0 {
		b.WriteByte('.')
	}
}
