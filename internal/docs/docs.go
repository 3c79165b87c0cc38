// Package docs serves the embedded help topics shown by `timetracker
// docs`, optionally rendered for the terminal.
package docs

import (
	"embed"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
)

//go:embed content/*.md
var contentFS embed.FS

func Topics() []string {
	entries, err := fs.Glob(contentFS, "content/*.md")
	if err != nil {
		return []string{}
	}
	var topics []string
	for _, path := range entries {
		base := filepath.Base(path)
		topic := strings.TrimSuffix(base, filepath.Ext(base))
		if topic != "" {
			topics = append(topics, topic)
		}
	}
	sort.Strings(topics)
	return topics
}

func Get(topic string) (string, bool) {
	topic = strings.TrimSpace(strings.ToLower(topic))
	if topic == "" {
		return "", false
	}
	b, err := contentFS.ReadFile(filepath.Join("content", topic+".md"))
	if err != nil {
		return "", false
	}
	return string(b), true
}

// Render styles a topic's markdown for the terminal. Width 0 takes the
// renderer's default.
func Render(topic string, width int) (string, bool, error) {
	body, ok := Get(topic)
	if !ok {
		return "", false, nil
	}
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", true, err
	}
	out, err := r.Render(body)
	if err != nil {
		return "", true, err
	}
	return out, true, nil
}
