package markdown

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// gfm parses tables, strikethrough and task lists. Linkify is left out so
// bare URLs in plain prose stay plain text.
var gfm = goldmark.New(goldmark.WithExtensions(
	extension.Table,
	extension.Strikethrough,
	extension.TaskList,
))

func parse(source string) ast.Node {
	return gfm.Parser().Parse(text.NewReader([]byte(source)))
}

// LooksLikeMarkdown reports whether md carries structural Markdown:
// fenced code, headings, lists, tables or links. Emphasis alone does not
// count; a copy payload with only bold text is indistinguishable from a
// plain-text copy.
func LooksLikeMarkdown(md string) bool {
	if strings.TrimSpace(md) == "" {
		return false
	}

	found := false
	_ = ast.Walk(parse(md), func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node.(type) {
		case *ast.FencedCodeBlock, *ast.Heading, *ast.List, *ast.Link, *ast.AutoLink, *extast.Table:
			found = true
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if found {
		return true
	}

	// goldmark rejects tables whose delimiter row disagrees with the header
	// width; a separator row still marks the text as Markdown.
	for _, line := range strings.Split(md, "\n") {
		if IsTableSeparator(line) {
			return true
		}
	}
	return false
}
