package fortune

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

//go:embed prompts/head.md
var defaultHead string

//go:embed prompts/tail.md
var defaultTail string

// Template wraps the profile block into the full question the agents debate.
type Template struct {
	Head string
	Tail string
}

// DefaultTemplate returns the embedded template.
func DefaultTemplate() Template {
	return Template{Head: defaultHead, Tail: defaultTail}
}

// LoadTemplate returns the embedded template with the head and tail replaced
// by the contents of headFile and tailFile when they are set.
func LoadTemplate(headFile, tailFile string) (Template, error) {
	t := DefaultTemplate()
	if headFile != "" {
		data, err := os.ReadFile(headFile)
		if err != nil {
			return Template{}, fmt.Errorf("failed to read prompt head: %w", err)
		}
		t.Head = string(data)
	}
	if tailFile != "" {
		data, err := os.ReadFile(tailFile)
		if err != nil {
			return Template{}, fmt.Errorf("failed to read prompt tail: %w", err)
		}
		t.Tail = string(data)
	}
	return t, nil
}

// Render returns head + profile + tail.
func (t Template) Render(profile string) string {
	var sb strings.Builder
	sb.WriteString(t.Head)
	sb.WriteString(strings.TrimRight(profile, "\n"))
	sb.WriteString(t.Tail)
	return sb.String()
}
