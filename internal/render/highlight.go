package render

import (
	"html"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chroma_html "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/rs/zerolog"
)

// HighlightStyle is the chroma style used for preview code blocks.
const HighlightStyle = "gruvbox"

var renderLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	renderLogger = l
}

func getFormatter() *chroma_html.Formatter {
	return chroma_html.New(
		chroma_html.WithClasses(true),
		chroma_html.WithLineNumbers(false),
		chroma_html.PreventSurroundingPre(false),
	)
}

func HighlightCode(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	style := styles.Get(HighlightStyle)
	if style == nil {
		style = styles.Fallback
	}

	var buf strings.Builder
	if err := getFormatter().Format(&buf, style, iterator); err != nil {
		return code
	}

	return html.UnescapeString(buf.String())
}
