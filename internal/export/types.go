// Package export renders a page's component tree to HTML, PDF or PNG.
package export

import (
	"errors"
	"fmt"
	"html/template"
	"strings"

	"pagebuilder/api/internal/layout"
)

// Format represents the export output format
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
	FormatPNG  Format = "png"
)

var (
	// ErrUnsupportedFormat is returned for an unknown format name.
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrRendererUnavailable indicates headless Chromium could not be found or started.
	ErrRendererUnavailable = errors.New("export renderer unavailable")
)

// ParseFormat accepts a format name, defaulting to HTML when empty.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case "", FormatHTML:
		return FormatHTML, nil
	case FormatPDF:
		return FormatPDF, nil
	case FormatPNG:
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, value)
	}
}

func (f Format) MimeType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatPNG:
		return "image/png"
	default:
		return "text/html; charset=utf-8"
	}
}

// Node is one component in the rendered tree with its derived style.
type Node struct {
	CompID   string
	Root     bool
	Style    layout.Style
	Children []*Node
}

// CSS returns the node's inline style declarations.
func (n *Node) CSS() template.CSS {
	return declarations(n.Style, n.Root)
}

// Page is a renderable page: its title and top level components.
type Page struct {
	ID    int64
	Title string
	Roots []*Node
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}
