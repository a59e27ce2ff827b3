// Package preview renders file contents for display: Markdown through Goldmark,
// source code through Chroma, and everything else as escaped text.
package preview

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// ErrBinary is returned for content that looks binary.
var ErrBinary = errors.New("binary content")

// Kind says how a preview was rendered.
type Kind string

// Preview kinds.
const (
	KindMarkdown Kind = "markdown"
	KindCode     Kind = "code"
	KindText     Kind = "text"
)

const styleName = "monokai"

// TOCItem is a heading in a Markdown document.
type TOCItem struct {
	Level  int    `json:"level"`
	Title  string `json:"title"`
	Anchor string `json:"anchor"`
}

// Preview is a rendered file.
type Preview struct {
	Kind     Kind      `json:"kind"`
	Language string    `json:"language,omitempty"`
	Title    string    `json:"title,omitempty"`
	HTML     string    `json:"html"`
	TOC      []TOCItem `json:"toc,omitempty"`
}

// Renderer turns file contents into HTML previews.
type Renderer struct {
	md         goldmark.Markdown
	formatter  *chromahtml.Formatter
	style      *chroma.Style
	isMarkdown func(name string) bool
}

// NewRenderer creates a renderer. isMarkdown decides which names go through
// Goldmark.
func NewRenderer(isMarkdown func(name string) bool) *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
			highlighting.NewHighlighting(
				highlighting.WithStyle(styleName),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			gmhtml.WithHardWraps(),
			gmhtml.WithXHTML(),
		),
	)

	return &Renderer{
		md:         md,
		formatter:  chromahtml.New(chromahtml.WithClasses(true), chromahtml.WithLineNumbers(true)),
		style:      styles.Get(styleName),
		isMarkdown: isMarkdown,
	}
}

// Render picks a rendering for name and converts src.
func (r *Renderer) Render(name string, src []byte) (*Preview, error) {
	if looksBinary(src) {
		return nil, fmt.Errorf("preview %s: %w", name, ErrBinary)
	}
	if r.isMarkdown != nil && r.isMarkdown(name) {
		return r.markdown(src)
	}
	if lexer := lexers.Match(name); lexer != nil {
		return r.code(lexer, src)
	}
	return &Preview{
		Kind: KindText,
		HTML: "<pre>" + html.EscapeString(string(src)) + "</pre>",
	}, nil
}

func (r *Renderer) markdown(src []byte) (*Preview, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("convert markdown: %w", err)
	}

	toc := r.extractTOC(src)
	title := ""
	if len(toc) > 0 {
		title = toc[0].Title
	}
	return &Preview{
		Kind:  KindMarkdown,
		Title: title,
		HTML:  buf.String(),
		TOC:   toc,
	}, nil
}

func (r *Renderer) code(lexer chroma.Lexer, src []byte) (*Preview, error) {
	lexer = chroma.Coalesce(lexer)
	it, err := lexer.Tokenise(nil, string(src))
	if err != nil {
		return nil, fmt.Errorf("tokenise: %w", err)
	}
	var buf bytes.Buffer
	if err := r.formatter.Format(&buf, r.style, it); err != nil {
		return nil, fmt.Errorf("highlight: %w", err)
	}
	return &Preview{
		Kind:     KindCode,
		Language: lexer.Config().Name,
		HTML:     buf.String(),
	}, nil
}

func (r *Renderer) extractTOC(source []byte) []TOCItem {
	doc := r.md.Parser().Parse(text.NewReader(source))

	var toc []TOCItem
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if heading, ok := n.(*ast.Heading); ok {
			title := headingText(heading, source)
			toc = append(toc, TOCItem{
				Level:  heading.Level,
				Title:  title,
				Anchor: generateAnchor(title),
			})
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return toc
}

func headingText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		if t, ok := child.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
		}
	}
	return buf.String()
}

var (
	anchorStrip  = regexp.MustCompile(`[^a-z0-9\-\p{Han}\p{Hiragana}\p{Katakana}]`)
	anchorHyphen = regexp.MustCompile(`-+`)
)

func generateAnchor(title string) string {
	anchor := strings.ReplaceAll(strings.ToLower(title), " ", "-")
	anchor = anchorStrip.ReplaceAllString(anchor, "")
	anchor = anchorHyphen.ReplaceAllString(anchor, "-")
	return strings.Trim(anchor, "-")
}

// looksBinary applies git's heuristic: a NUL byte in the first 8000 bytes.
func looksBinary(src []byte) bool {
	if len(src) > 8000 {
		src = src[:8000]
	}
	return bytes.IndexByte(src, 0) >= 0
}
