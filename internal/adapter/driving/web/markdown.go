package web

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	mdRenderer    goldmark.Markdown
	htmlSanitizer *bluemonday.Policy
	textStripper  *bluemonday.Policy
)

func init() {
	mdRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)

	htmlSanitizer = bluemonday.UGCPolicy()
	textStripper = bluemonday.StrictPolicy()
}

// RenderMarkdown converts a markdown string to sanitized HTML.
// Returns empty string for empty input.
func RenderMarkdown(src string) string {
	if src == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return htmlSanitizer.Sanitize(src)
	}

	return htmlSanitizer.Sanitize(buf.String())
}

// Excerpt renders markdown to plain text, collapses whitespace and cuts the
// result to at most maxRunes runes, appending "…" when it was cut.
func Excerpt(src string, maxRunes int) string {
	if src == "" || maxRunes <= 0 {
		return ""
	}

	var buf bytes.Buffer
	text := src
	if err := mdRenderer.Convert([]byte(src), &buf); err == nil {
		text = buf.String()
	}
	text = textStripper.Sanitize(text)
	text = strings.Join(strings.Fields(text), " ")

	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:maxRunes])) + "…"
}
