// Package richtext renders a snapshot of a rendered rich-text reply back
// into Markdown.
//
// The walker works on golang.org/x/net/html nodes, so the same code serves
// live snapshots (outerHTML fetched from the browser) and static fixtures.
// Rendering is deterministic: walking the same tree twice yields the same
// Markdown.
package richtext

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DefaultMaxDepth bounds recursion into untrusted, browser-rendered trees.
const DefaultMaxDepth = 200

// Options tunes how code blocks are recognised and how deep the walker goes.
type Options struct {
	// CodeBlockMarkers are tag names or class names that mark a code
	// container in addition to <pre>.
	CodeBlockMarkers []string
	// CodeLabelSelector finds the decoration label carrying the language
	// name inside a code container.
	CodeLabelSelector string
	// MaxDepth caps element nesting; deeper subtrees are flattened to text.
	MaxDepth int
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		CodeBlockMarkers:  []string{"code-block"},
		CodeLabelSelector: ".code-block__label, [data-code-label]",
		MaxDepth:          DefaultMaxDepth,
	}
}

// Walker converts rich-text node trees into Markdown.
type Walker struct {
	opts Options
}

// New creates a Walker. Zero-valued options fall back to defaults.
func New(opts Options) *Walker {
	defaults := DefaultOptions()
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = defaults.MaxDepth
	}
	if opts.CodeBlockMarkers == nil {
		opts.CodeBlockMarkers = defaults.CodeBlockMarkers
	}
	if strings.TrimSpace(opts.CodeLabelSelector) == "" {
		opts.CodeLabelSelector = defaults.CodeLabelSelector
	}
	return &Walker{opts: opts}
}

// Walk renders root and its descendants as Markdown, trimmed of
// surrounding whitespace.
func (w *Walker) Walk(root *html.Node) string {
	if root == nil {
		return ""
	}
	s := &state{w: w}
	s.walk(root, 0)
	return strings.TrimSpace(s.buf.String())
}

// WalkHTML parses an HTML snapshot and walks its body.
func (w *Walker) WalkHTML(src string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return "", err
	}
	if body := doc.Find("body"); body.Length() > 0 {
		return w.Walk(body.Get(0)), nil
	}
	return w.Walk(doc.Get(0)), nil
}

type listContext struct {
	ordered bool
	next    int
}

// state is the mutable output of one walk. Quotes, headings, table cells
// and inline wrappers render into their own state and are spliced back.
type state struct {
	w       *Walker
	buf     strings.Builder
	lists   []listContext
	indent  string
	fresh   bool
	pending bool
	inline  bool
}

func (s *state) walk(n *html.Node, depth int) {
	if depth > s.w.opts.MaxDepth {
		s.text(textContent(n))
		return
	}
	switch n.Type {
	case html.TextNode:
		s.text(n.Data)
	case html.ElementNode:
		s.element(n, depth)
	case html.DocumentNode:
		s.children(n, depth)
	}
}

func (s *state) children(n *html.Node, depth int) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		s.walk(c, depth+1)
	}
}

func (s *state) element(n *html.Node, depth int) {
	tag := strings.ToLower(n.Data)
	if skipElement(tag) {
		return
	}
	if s.w.isCodeBlock(n) {
		s.codeBlock(n)
		return
	}

	switch tag {
	case "table":
		s.table(n, depth)
	case "h1", "h2", "h3", "h4", "h5", "h6":
		s.heading(n, depth, int(tag[1]-'0'))
	case "p":
		s.boundary(1)
		s.children(n, depth)
		s.boundary(1)
	case "ul", "ol":
		s.list(n, depth, tag == "ol")
	case "li":
		s.listItem(n, depth)
	case "blockquote":
		s.quote(n, depth)
	case "hr":
		s.rule()
	case "br":
		s.lineBreak()
	case "strong", "b":
		s.emitInline(n, depth, wrapWith("**"))
	case "em", "i":
		s.emitInline(n, depth, wrapWith("_"))
	case "del", "s", "strike":
		s.emitInline(n, depth, wrapWith("~~"))
	case "code":
		s.inlineCode(textContent(n))
	case "a":
		s.emitInline(n, depth, linkTo(attr(n, "href")))
	default:
		s.children(n, depth)
	}
}

func skipElement(tag string) bool {
	switch tag {
	case "script", "style", "noscript", "template", "svg", "button", "input", "textarea", "select":
		return true
	}
	return false
}

func (w *Walker) isCodeBlock(n *html.Node) bool {
	tag := strings.ToLower(n.Data)
	if tag == "pre" {
		return true
	}
	for _, marker := range w.opts.CodeBlockMarkers {
		if marker == "" {
			continue
		}
		if tag == marker || hasClass(n, marker) {
			return true
		}
	}
	return false
}
