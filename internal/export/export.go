// Package export renders a conversation for download in the formats the
// client offers: raw JSON, plain text, markdown and a standalone HTML page.
package export

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/voiced-app/voiced/internal/domain"
)

// Format selects an export rendering
type Format string

const (
	FormatJSON     Format = "json"
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

const timeLayout = "Jan 2, 2006 3:04 PM"

// ParseFormat validates a user-supplied format name. Empty defaults to JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s", s)
	}
}

// ContentType returns the MIME type for the rendered body
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Extension returns the file extension used in download filenames
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatMarkdown:
		return "md"
	case FormatHTML:
		return "html"
	default:
		return "txt"
	}
}

// label maps a turn role to the reader-facing speaker name
func label(role domain.TurnRole) string {
	if role == domain.RoleUser {
		return "You"
	}
	return "Assistant"
}

// Render produces the export body for one conversation
func Render(c *domain.Conversation, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return json.MarshalIndent(c, "", "  ")
	case FormatText:
		return []byte(renderText(c)), nil
	case FormatMarkdown:
		return []byte(renderMarkdown(c)), nil
	case FormatHTML:
		return []byte(renderHTML(c)), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", f)
	}
}

func renderText(c *domain.Conversation) string {
	var b strings.Builder
	b.WriteString(c.Title + "\n")
	b.WriteString("Created: " + c.CreatedAt.Format(timeLayout) + "\n")
	b.WriteString("Updated: " + c.UpdatedAt.Format(timeLayout) + "\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")

	for _, t := range c.Messages {
		b.WriteString(fmt.Sprintf("%s: %s\n\n", label(t.Role), t.Content))
	}

	if s := c.EndScreen; s != nil {
		b.WriteString(strings.Repeat("=", 50) + "\n")
		b.WriteString("Reflection\n\n")
		b.WriteString(s.Validation + "\n\n")
		b.WriteString(s.Reflection + "\n\n")
		if len(s.Themes) > 0 {
			b.WriteString("Themes: " + strings.Join(s.Themes, ", ") + "\n\n")
		}
		b.WriteString(s.Encouragement + "\n")
	}
	return b.String()
}

func renderMarkdown(c *domain.Conversation) string {
	var b strings.Builder
	b.WriteString("# " + c.Title + "\n\n")
	b.WriteString("**Created:** " + c.CreatedAt.Format(timeLayout) + "  \n")
	b.WriteString("**Updated:** " + c.UpdatedAt.Format(timeLayout) + "\n\n")
	b.WriteString("---\n\n")

	for _, t := range c.Messages {
		b.WriteString(fmt.Sprintf("**%s:** %s\n\n", label(t.Role), t.Content))
	}

	if s := c.EndScreen; s != nil {
		b.WriteString("---\n\n## Reflection\n\n")
		b.WriteString(s.Validation + "\n\n")
		b.WriteString(s.Reflection + "\n\n")
		if len(s.Themes) > 0 {
			b.WriteString("**Themes:** " + strings.Join(s.Themes, ", ") + "\n\n")
		}
		b.WriteString(s.Encouragement + "\n")
	}
	return b.String()
}

func renderHTML(c *domain.Conversation) string {
	var b strings.Builder
	title := html.EscapeString(c.Title)

	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n")
	b.WriteString("<title>" + title + "</title>\n")
	b.WriteString("</head>\n<body>\n")
	b.WriteString("<h1>" + title + "</h1>\n")
	b.WriteString("<p>Created: " + c.CreatedAt.Format(timeLayout) + "<br>\n")
	b.WriteString("Updated: " + c.UpdatedAt.Format(timeLayout) + "</p>\n<hr>\n")

	for _, t := range c.Messages {
		b.WriteString(fmt.Sprintf("<p><strong>%s:</strong> %s</p>\n",
			label(t.Role), html.EscapeString(t.Content)))
	}

	if s := c.EndScreen; s != nil {
		b.WriteString("<hr>\n<h2>Reflection</h2>\n")
		b.WriteString("<p>" + html.EscapeString(s.Validation) + "</p>\n")
		b.WriteString("<p>" + html.EscapeString(s.Reflection) + "</p>\n")
		if len(s.Themes) > 0 {
			b.WriteString("<p>Themes: " + html.EscapeString(strings.Join(s.Themes, ", ")) + "</p>\n")
		}
		b.WriteString("<p>" + html.EscapeString(s.Encouragement) + "</p>\n")
	}

	b.WriteString("</body>\n</html>\n")
	return b.String()
}
