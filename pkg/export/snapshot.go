package export

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/ordermachine/pkg/model"
	"github.com/vanderheijden86/ordermachine/pkg/ordering"
	"github.com/vanderheijden86/ordermachine/pkg/plugins"
	"github.com/vanderheijden86/ordermachine/pkg/regions"
	"github.com/vanderheijden86/ordermachine/pkg/sections"
)

// SnapshotOptions controls layout snapshot export.
type SnapshotOptions struct {
	Path   string // Output path; format inferred from extension when Format empty
	Format string // "svg", "png" or "md" (case-insensitive). If empty, inferred from Path.
	Title  string // Optional title rendered in the summary block
	Preset string // Layout preset: "compact" (default) or "roomy"

	Rows    []*model.Row
	Regions *regions.Registry
	Plugins *plugins.Registry
	// Region limits the snapshot to one region; "" renders every region.
	Region string
}

// SaveSnapshot renders the rows of each region as one column, nested by
// section, with a box around every section.
func SaveSnapshot(opts SnapshotOptions) error {
	if opts.Regions == nil || opts.Plugins == nil {
		return fmt.Errorf("regions and plugins are required for snapshot export")
	}
	if len(model.ManagedRows(opts.Rows)) == 0 {
		return fmt.Errorf("no rows to export")
	}
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}

	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".png":
			format = "png"
		case ".md", ".markdown":
			format = "md"
		default:
			format = "svg"
			if filepath.Ext(opts.Path) == "" {
				opts.Path += ".svg"
			}
		}
	}
	if format != "svg" && format != "png" && format != "md" {
		return fmt.Errorf("unsupported format %q (want svg, png or md)", format)
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	layout := BuildLayout(opts)
	switch format {
	case "png":
		return renderPNG(opts.Path, layout)
	case "md":
		return SaveMarkdown(opts.Path, layout)
	}
	file, err := os.Create(opts.Path)
	if err != nil {
		return err
	}
	if err := renderSVGToWriter(file, layout); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// --- layout computation ----------------------------------------------------

// LayoutRow is one placed row.
type LayoutRow struct {
	Row    *model.Row
	Title  string // plugin title
	Color  color.RGBA
	Indent int
	Opener bool
	X, Y   float64
	W, H   float64
}

// LayoutBox is the frame drawn around one section.
type LayoutBox struct {
	Opener string
	Level  int
	X, Y   float64
	W, H   float64
}

// LayoutColumn is one region.
type LayoutColumn struct {
	Key     string
	Title   string
	Unknown bool
	X       float64
	Rows    []LayoutRow
	Boxes   []LayoutBox
}

// Layout is the placed snapshot, shared by every renderer.
type Layout struct {
	Title   string
	Columns []LayoutColumn
	Width   int
	Height  int
	Header  float64

	RowCount     int
	SectionCount int
}

// BuildLayout places rows without rendering them.
func BuildLayout(opts SnapshotOptions) Layout {
	const (
		colWCompact  = 260.0
		rowHCompact  = 34.0
		colWRoomy    = 320.0
		rowHRoomy    = 44.0
		colGap       = 40.0
		rowGap       = 8.0
		indentW      = 18.0
		boxPad       = 4.0
		padding      = 24.0
		headerHeight = 80.0
	)

	colW, rowH := colWCompact, rowHCompact
	if strings.EqualFold(opts.Preset, "roomy") {
		colW, rowH = colWRoomy, rowHRoomy
	}

	title := opts.Title
	if strings.TrimSpace(title) == "" {
		title = "Content layout"
	}
	l := Layout{Title: title, Header: headerHeight}

	maxRows := 0
	for _, reg := range opts.Regions.All() {
		if opts.Region != "" && reg.Key != opts.Region {
			continue
		}
		rows := ordering.InRegion(model.ManagedRows(opts.Rows), reg.Key)
		if opts.Region == "" && len(rows) == 0 && reg.Unknown {
			continue
		}
		col := LayoutColumn{
			Key:     reg.Key,
			Title:   reg.Title,
			Unknown: reg.Unknown,
			X:       padding + float64(len(l.Columns))*(colW+colGap),
		}
		tree := sections.Build(rows, opts.Plugins.SectionDelta)
		placed := make(map[*model.Row]int, len(rows))
		for i, r := range rows {
			indent := tree.Indent(r)
			title, hex := r.Type(), ""
			if p, ok := opts.Plugins.Get(r.Type()); ok {
				title, hex = p.Title, p.Color
			}
			lr := LayoutRow{
				Row:    r,
				Title:  title,
				Color:  rowColor(r, hex, indent),
				Indent: indent,
				Opener: tree.IsOpener(r),
				X:      col.X + float64(indent)*indentW,
				Y:      padding + headerHeight + float64(i)*(rowH+rowGap),
				W:      colW - float64(indent)*indentW,
				H:      rowH,
			}
			placed[r] = len(col.Rows)
			col.Rows = append(col.Rows, lr)
		}
		for _, s := range tree.Spans {
			first := col.Rows[placed[s.Opener]]
			last := col.Rows[len(col.Rows)-1]
			if s.Closer != nil {
				last = col.Rows[placed[s.Closer]]
			}
			inset := float64(s.Level-1) * indentW
			col.Boxes = append(col.Boxes, LayoutBox{
				Opener: s.Opener.ID,
				Level:  s.Level,
				X:      col.X + inset - boxPad,
				Y:      first.Y - boxPad,
				W:      colW - inset + 2*boxPad,
				H:      last.Y + last.H - first.Y + 2*boxPad,
			})
		}
		if len(rows) > maxRows {
			maxRows = len(rows)
		}
		l.RowCount += len(rows)
		l.SectionCount += len(tree.Spans)
		l.Columns = append(l.Columns, col)
	}

	l.Width = int(padding*2 + float64(len(l.Columns))*(colW+colGap))
	if l.Width < 480 {
		l.Width = 480
	}
	l.Height = int(padding*2 + headerHeight + float64(maxRows)*(rowH+rowGap))
	if l.Height < 240 {
		l.Height = 240
	}
	return l
}

// --- rendering -------------------------------------------------------------

var (
	colorStroke   = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorText     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorBackdrop = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorDeleted  = color.RGBA{0xcf, 0xd8, 0xdc, 0xff}
	colorError    = color.RGBA{0xe5, 0x39, 0x35, 0xff}
	colorUnknown  = color.RGBA{0xb0, 0x68, 0x00, 0xff}

	levelColors = []color.RGBA{
		{0xe3, 0xf2, 0xfd, 0xff},
		{0xed, 0xe7, 0xf6, 0xff},
		{0xe8, 0xf5, 0xe9, 0xff},
		{0xff, 0xf3, 0xe0, 0xff},
	}
	boxColors = []color.RGBA{
		{0x6b, 0x47, 0xd9, 0xff},
		{0x00, 0x60, 0x80, 0xff},
		{0x36, 0xb3, 0x7e, 0xff},
		{0xb0, 0x68, 0x00, 0xff},
	}
)

func rowColor(r *model.Row, hex string, indent int) color.RGBA {
	if r.MarkedForDeletion {
		return colorDeleted
	}
	if c, ok := parseHex(hex); ok {
		return c
	}
	return levelColors[indent%len(levelColors)]
}

func boxColor(level int) color.RGBA {
	return boxColors[(level-1)%len(boxColors)]
}

// parseHex reads "#rrggbb" or "#rgb".
func parseHex(s string) (color.RGBA, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.RGBA{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 0xff}, true
}

func rowCaption(lr LayoutRow) string {
	marker := ""
	switch {
	case lr.Row.Collapsed:
		marker = "[+] "
	case lr.Opener:
		marker = "[-] "
	}
	label := lr.Row.Label
	if label == "" {
		label = lr.Row.ID
	}
	return marker + label
}

func rowDetail(lr LayoutRow) string {
	parts := []string{lr.Title, lr.Row.ID, "#" + lr.Row.Ordering.String()}
	if lr.Row.MarkedForDeletion {
		parts = append(parts, "deleted")
	}
	if lr.Row.HasError {
		parts = append(parts, "error")
	}
	return strings.Join(parts, " · ")
}

func summaryLine(l Layout) string {
	return fmt.Sprintf("regions: %d  rows: %d  sections: %d", len(l.Columns), l.RowCount, l.SectionCount)
}

func renderPNG(path string, l Layout) error {
	dc := gg.NewContext(l.Width, l.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(12, 12, float64(l.Width)-24, l.Header-16, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)
	dc.SetColor(colorText)
	dc.DrawStringAnchored(l.Title, 28, 36, 0, 0.5)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(summaryLine(l), 28, 56, 0, 0.5)

	for _, col := range l.Columns {
		dc.SetColor(colorText)
		if col.Unknown {
			dc.SetColor(colorUnknown)
		}
		dc.DrawStringAnchored(col.Title, col.X, l.Header+8, 0, 0.5)

		for _, b := range col.Boxes {
			dc.SetColor(boxColor(b.Level))
			dc.SetLineWidth(1.5)
			dc.DrawRoundedRectangle(b.X, b.Y, b.W, b.H, 6)
			dc.Stroke()
		}
		for _, lr := range col.Rows {
			drawRow(dc, lr)
		}
	}
	return dc.SavePNG(path)
}

func drawRow(dc *gg.Context, lr LayoutRow) {
	dc.SetColor(lr.Color)
	dc.DrawRoundedRectangle(lr.X, lr.Y, lr.W, lr.H, 5)
	dc.Fill()
	dc.SetColor(colorStroke)
	if lr.Row.HasError {
		dc.SetColor(colorError)
	}
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(lr.X, lr.Y, lr.W, lr.H, 5)
	dc.Stroke()

	chars := int(lr.W/7) - 2
	dc.SetColor(colorText)
	dc.DrawStringAnchored(truncate(rowCaption(lr), chars), lr.X+8, lr.Y+lr.H*0.33, 0, 0.5)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(truncate(rowDetail(lr), chars), lr.X+8, lr.Y+lr.H*0.72, 0, 0.5)
}

func renderSVGToWriter(w io.Writer, l Layout) error {
	canvas := svg.New(w)
	canvas.Start(l.Width, l.Height)
	canvas.Rect(0, 0, l.Width, l.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(12, 12, l.Width-24, int(l.Header-16), 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))
	canvas.Text(28, 40, l.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	canvas.Text(28, 60, summaryLine(l), fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))

	for _, col := range l.Columns {
		fill := colorText
		if col.Unknown {
			fill = colorUnknown
		}
		canvas.Group(fmt.Sprintf(`id="region-%s"`, sanitizeID(col.Key)))
		canvas.Text(int(col.X), int(l.Header+12), col.Title,
			fmt.Sprintf("fill:%s;font-size:14px;font-family:monospace;font-weight:bold", css(fill)))
		for _, b := range col.Boxes {
			canvas.Roundrect(int(b.X), int(b.Y), int(b.W), int(b.H), 6, 6,
				fmt.Sprintf("fill:none;stroke:%s;stroke-width:1.5", css(boxColor(b.Level))))
		}
		for _, lr := range col.Rows {
			stroke := colorStroke
			if lr.Row.HasError {
				stroke = colorError
			}
			x, y := int(lr.X), int(lr.Y)
			chars := int(lr.W/7.5) - 2
			canvas.Roundrect(x, y, int(lr.W), int(lr.H), 5, 5,
				fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(lr.Color), css(stroke)))
			canvas.Text(x+8, y+int(lr.H*0.42), truncate(rowCaption(lr), chars),
				fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorText)))
			canvas.Text(x+8, y+int(lr.H*0.82), truncate(rowDetail(lr), chars),
				fmt.Sprintf("fill:%s;font-size:10px;font-family:monospace", css(colorSubtle)))
		}
		canvas.Gend()
	}

	canvas.End()
	return nil
}

// --- helpers ---------------------------------------------------------------

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
