// Package render turns draft markdown into preview HTML and plain text.
package render

import (
	"fmt"
	"io"
	"sync"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	md_html "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/inkwell-cms/inkwell/internal/cache"
)

func newParser() *parser.Parser {
	return parser.NewWithExtensions(
		parser.Tables | parser.FencedCode | parser.Autolink | parser.Strikethrough | parser.SpaceHeadings |
			parser.HeadingIDs | parser.BackslashLineBreak | parser.SuperSubscript | parser.DefinitionLists |
			parser.AutoHeadingIDs | parser.Footnotes | parser.OrderedListStart | parser.Attributes |
			parser.NonBlockingSpace,
	)
}

// RenderPreview renders draft markdown to the HTML shown in the preview
// pane. Code blocks are syntax highlighted.
func RenderPreview(md []byte) []byte {
	opts := md_html.RendererOptions{
		Flags:    md_html.CommonFlags | md_html.HrefTargetBlank | md_html.FootnoteReturnLinks,
		Comments: [][]byte{[]byte("//"), []byte("#")},
		RenderNodeHook: func(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
			if code, ok := node.(*ast.CodeBlock); ok && entering {
				var lang string
				if info := code.Info; info != nil {
					lang = string(info)
				}
				highlighted := HighlightCode(string(code.Literal), lang)
				fmt.Fprintf(w, "<div class=\"highlight\">%s</div>", highlighted)
				return ast.GoToNext, true
			}

			return ast.GoToNext, false
		},
	}

	doc := newParser().Parse(markdown.NormalizeNewlines(md))
	return markdown.Render(doc, md_html.NewRenderer(opts))
}

// Mutex to protect the check-render-set operation in RenderPreviewCached
var renderCacheMutex sync.Mutex

func RenderPreviewCached(md []byte, contentHash string) []byte {
	if contentHash == "" {
		renderLogger.Warn().Msg("Content hash is empty, skipping cache check")
		return RenderPreview(md)
	}

	if cached, found := cache.GetRenderedPreview(contentHash); found {
		renderLogger.Debug().Str("contentHash", contentHash).Msg("Cache hit for rendered preview")
		return cached
	}

	renderLogger.Debug().Str("contentHash", contentHash).Msg("Cache miss for rendered preview")
	renderCacheMutex.Lock()
	defer renderCacheMutex.Unlock()

	html := RenderPreview(md)
	cache.SetRenderedPreview(contentHash, html)

	return html
}

// PlainText strips markdown structure and returns the document's visible
// text. Word counts for reading time are computed on this output.
func PlainText(md []byte) string {
	doc := newParser().Parse(markdown.NormalizeNewlines(md))

	var buf []byte
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		if leaf := node.AsLeaf(); leaf != nil && len(leaf.Literal) > 0 {
			if _, ok := node.(*ast.HTMLBlock); ok {
				return ast.GoToNext
			}
			if _, ok := node.(*ast.HTMLSpan); ok {
				return ast.GoToNext
			}
			buf = append(buf, leaf.Literal...)
			buf = append(buf, ' ')
		}
		return ast.GoToNext
	})

	return string(buf)
}
