package web

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// notesMarkdown renders API-sourced item notes and tour step bodies.
// The extension set is deliberately narrow: links, strikethrough, task
// lists and emoji, but no tables. Notes render inside narrow detail
// panels and tour popovers where table layout falls apart. Raw HTML
// passthrough stays off (no html.WithUnsafe), so fetched notes cannot
// inject markup into the page.
var notesMarkdown = goldmark.New(
	goldmark.WithExtensions(
		extension.Linkify,
		extension.Strikethrough,
		extension.TaskList,
		emoji.Emoji,
	),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
	),
)

func renderMarkdownHTML(src string) template.HTML {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	var b bytes.Buffer
	if err := notesMarkdown.Convert([]byte(src), &b); err != nil {
		// A convert failure still shows the notes, just unstyled.
		return template.HTML("<pre>" + template.HTMLEscapeString(src) + "</pre>")
	}
	return template.HTML(b.String())
}
