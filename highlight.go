// Package btuin provides syntax highlighting into styled spans using Chroma.
package btuin

import (
	"strings"

	"github.com/alecthomas/chroma"
	"github.com/alecthomas/chroma/lexers"
)

// Span is a run of text with resolved style tokens, ready to join into
// SGR-styled Text content.
type Span struct {
	Text string
	Fg   string
}

// Highlight tokenizes code with Chroma and maps token categories onto
// terminal colors. Unknown languages fall back to the plain lexer.
func Highlight(code, lang string) []Span {
	var lexer chroma.Lexer
	if lang != "" {
		lexer = lexers.Get(lang)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return []Span{{Text: code}}
	}

	var spans []Span
	for _, token := range iterator.Tokens() {
		fg := ""
		// Token categories map directly onto ANSI colors; terminal
		// palettes render these better than approximated RGB.
		switch token.Type.Category() {
		case chroma.Keyword:
			fg = ResolveFg("magenta")
		case chroma.LiteralString:
			fg = ResolveFg("green")
		case chroma.LiteralNumber:
			fg = ResolveFg("cyan")
		case chroma.Comment:
			fg = ResolveFg("\x1b[90m")
		case chroma.Operator, chroma.Punctuation, chroma.Name:
			fg = ResolveFg("white")
		}
		spans = append(spans, Span{Text: token.Value, Fg: fg})
	}
	return spans
}

// HighlightToAnsi joins highlighted spans into a single SGR-styled
// string suitable for Text content.
func HighlightToAnsi(code, lang string) string {
	var sb strings.Builder
	for _, span := range Highlight(code, lang) {
		if span.Fg != "" {
			sb.WriteString(span.Fg)
			sb.WriteString(span.Text)
			sb.WriteString(defaultFgStr)
		} else {
			sb.WriteString(span.Text)
		}
	}
	return sb.String()
}
