package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// helpOverlay caches the glamour rendering of the key reference per width.
type helpOverlay struct {
	width    int
	rendered string
}

func (h *helpOverlay) render(keys keyMap, width int) string {
	if width <= 0 {
		width = 60
	}
	if h.rendered != "" && h.width == width {
		return h.rendered
	}
	md := keys.markdown()
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(GlamourStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		h.width, h.rendered = width, md
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		out = md
	}
	h.width, h.rendered = width, strings.TrimRight(out, "\n")
	return h.rendered
}
