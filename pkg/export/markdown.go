package export

import (
	"fmt"
	"os"
	"strings"
	"unicode"
)

// sanitizeID ensures an ID is valid for Mermaid node and SVG element IDs.
func sanitizeID(id string) string {
	var sb strings.Builder
	for _, r := range id {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			sb.WriteRune(r)
		}
	}
	result := sb.String()
	if result == "" {
		return "node"
	}
	return result
}

// sanitizeMermaidText prepares text for use in Mermaid node labels.
func sanitizeMermaidText(text string) string {
	replacer := strings.NewReplacer(
		"\"", "'",
		"[", "(",
		"]", ")",
		"{", "(",
		"}", ")",
		"<", "&lt;",
		">", "&gt;",
		"|", "/",
		"`", "'",
		"\n", " ",
		"\r", "",
	)
	result := replacer.Replace(text)

	result = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, result)

	result = strings.TrimSpace(result)

	runes := []rune(result)
	if len(runes) > 40 {
		result = string(runes[:37]) + "..."
	}
	return result
}

// GenerateMarkdown renders the layout as a nested outline per region,
// followed by a Mermaid diagram of the section forest.
func GenerateMarkdown(l Layout) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", l.Title))
	sb.WriteString(fmt.Sprintf("*%s*\n\n", summaryLine(l)))

	for _, col := range l.Columns {
		heading := col.Title
		if col.Unknown {
			heading += " ⚠"
		}
		sb.WriteString(fmt.Sprintf("## %s\n\n", heading))
		if len(col.Rows) == 0 {
			sb.WriteString("_No rows._\n\n")
			continue
		}
		for _, lr := range col.Rows {
			sb.WriteString(strings.Repeat("  ", lr.Indent))
			sb.WriteString("- ")
			caption := rowCaption(lr)
			if lr.Row.MarkedForDeletion {
				caption = "~~" + caption + "~~"
			}
			sb.WriteString(caption)
			sb.WriteString(fmt.Sprintf(" `%s` (%s, %s)", lr.Row.ID, lr.Title, lr.Row.Ordering.String()))
			if lr.Row.HasError {
				sb.WriteString(" ❗")
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if l.SectionCount > 0 {
		sb.WriteString("## Sections\n\n```mermaid\ngraph TD\n")
		for _, col := range l.Columns {
			var stack []LayoutRow
			for _, lr := range col.Rows {
				for len(stack) > 0 && stack[len(stack)-1].Indent >= lr.Indent {
					stack = stack[:len(stack)-1]
				}
				if len(stack) > 0 {
					parent := stack[len(stack)-1]
					sb.WriteString(fmt.Sprintf("    %s[\"%s\"] --> %s[\"%s\"]\n",
						sanitizeID(parent.Row.ID), sanitizeMermaidText(rowCaption(parent)),
						sanitizeID(lr.Row.ID), sanitizeMermaidText(rowCaption(lr))))
				}
				if lr.Opener {
					stack = append(stack, lr)
				}
			}
		}
		sb.WriteString("```\n")
	}
	return sb.String()
}

// SaveMarkdown writes the Markdown outline of l to path.
func SaveMarkdown(path string, l Layout) error {
	if err := os.WriteFile(path, []byte(GenerateMarkdown(l)), 0o644); err != nil {
		return fmt.Errorf("write markdown: %w", err)
	}
	return nil
}
