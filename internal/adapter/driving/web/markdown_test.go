package web

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderMarkdown_EmptyInput(t *testing.T) {
	assert.Equal(t, "", RenderMarkdown(""))
}

func TestRenderMarkdown_PlainText(t *testing.T) {
	result := RenderMarkdown("hello world")
	assert.Contains(t, result, "hello world")
}

func TestRenderMarkdown_Bold(t *testing.T) {
	result := RenderMarkdown("**bold text**")
	assert.Contains(t, result, "<strong>bold text</strong>")
}

func TestRenderMarkdown_InlineCode(t *testing.T) {
	result := RenderMarkdown("use `fmt.Println`")
	assert.Contains(t, result, "<code>fmt.Println</code>")
}

func TestRenderMarkdown_CodeBlock(t *testing.T) {
	input := "```go\nfmt.Println(\"hello\")\n```"
	result := RenderMarkdown(input)
	assert.Contains(t, result, "<code")
	assert.Contains(t, result, "fmt.Println")
}

func TestRenderMarkdown_Link(t *testing.T) {
	result := RenderMarkdown("[click](https://example.com)")
	assert.Contains(t, result, `<a href="https://example.com"`)
	assert.Contains(t, result, "click</a>")
}

func TestRenderMarkdown_SanitizesScript(t *testing.T) {
	result := RenderMarkdown(`<script>alert("xss")</script>`)
	assert.NotContains(t, result, "<script>")
}

func TestRenderMarkdown_GFMStrikethrough(t *testing.T) {
	result := RenderMarkdown("~~deleted~~")
	assert.Contains(t, result, "<del>deleted</del>")
}

func TestRenderMarkdown_GFMTaskList(t *testing.T) {
	result := RenderMarkdown("- [x] done\n- [ ] todo")
	assert.Contains(t, result, "<li>")
	assert.Contains(t, result, "done")
	assert.Contains(t, result, "todo")
}

func TestExcerpt_EmptyInput(t *testing.T) {
	assert.Equal(t, "", Excerpt("", 10))
	assert.Equal(t, "", Excerpt("text", 0))
}

func TestExcerpt_StripsMarkup(t *testing.T) {
	result := Excerpt("# Title\n\nSome **bold** and `code`", 100)
	assert.Equal(t, "Title Some bold and code", result)
}

func TestExcerpt_Truncates(t *testing.T) {
	result := Excerpt("one two three four", 7)
	assert.Equal(t, "one two…", result)
	assert.True(t, strings.HasSuffix(result, "…"))
}

func TestExcerpt_DropsScript(t *testing.T) {
	result := Excerpt(`hi <script>alert("xss")</script>`, 100)
	assert.NotContains(t, result, "<script>")
}
