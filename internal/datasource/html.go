package datasource

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/vanderheijden86/ordermachine/pkg/model"
)

// ParseHTML reads a rendered admin page: the context data island and one
// row per .inline-related element.
func ParseHTML(r io.Reader) (*model.Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	island := find(root, func(n *html.Node) bool { return attr(n, "id") == ContextID })
	if island == nil {
		return nil, ErrNoContext
	}
	doc := &model.Document{}
	if err := json.Unmarshal([]byte(text(island)), &doc.Context); err != nil {
		return nil, fmt.Errorf("decode context: %w", err)
	}

	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && hasClass(n, "inline-related") && attr(n, "id") != "" {
			doc.Rows = append(doc.Rows, parseRow(n))
			return false
		}
		return true
	})
	return doc, nil
}

func parseRow(n *html.Node) *model.Row {
	id := attr(n, "id")
	row := &model.Row{
		ID:         id,
		Prefix:     model.PrefixFromID(id),
		Collapsed:  hasClass(n, "collapsed"),
		IsTemplate: hasClass(n, "empty-form") || strings.Contains(id, "__prefix__"),
	}
	if row.Prefix == "" && row.IsTemplate {
		row.Prefix = strings.TrimSuffix(id, "-empty")
	}

	if in := find(n, func(c *html.Node) bool { return hasClass(c, "order-machine-ordering") }); in != nil {
		row.Ordering = model.ParseOrdering(attr(in, "value"))
	}
	row.Region = regionValue(n)
	row.HasError = find(n, func(c *html.Node) bool { return hasClass(c, "errorlist") }) != nil

	if h3 := find(n, func(c *html.Node) bool { return c.DataAtom == atom.H3 }); h3 != nil {
		label := find(h3, func(c *html.Node) bool { return hasClass(c, "inline_label") })
		if label == nil {
			label = h3
		}
		row.Label = strings.Join(strings.Fields(text(label)), " ")
	}

	prefix := id + "-"
	walk(n, func(c *html.Node) bool {
		if c.Type != html.ElementNode {
			return true
		}
		name := attr(c, "name")
		if !strings.HasPrefix(name, prefix) {
			return true
		}
		field := strings.TrimPrefix(name, prefix)
		switch {
		case field == "DELETE":
			row.MarkedForDeletion = hasAttr(c, "checked")
		case field == "ordering" || field == "region":
		case c.DataAtom == atom.Textarea:
			setField(row, field, text(c))
		case c.DataAtom == atom.Select:
			setField(row, field, selectedOption(c))
		case c.DataAtom == atom.Input:
			t := attr(c, "type")
			if (t == "checkbox" || t == "radio") && !hasAttr(c, "checked") {
				return true
			}
			setField(row, field, attr(c, "value"))
		}
		return true
	})
	return row
}

func setField(row *model.Row, name, value string) {
	if row.Fields == nil {
		row.Fields = make(map[string]string)
	}
	row.Fields[name] = value
}

// regionValue reads the region input, falling back to the read-only
// presentation.
func regionValue(n *html.Node) string {
	in := find(n, func(c *html.Node) bool { return hasClass(c, "order-machine-region") })
	if in != nil {
		var v string
		if in.DataAtom == atom.Select {
			v = selectedOption(in)
		} else {
			v = attr(in, "value")
		}
		if v != "" {
			return v
		}
	}
	field := find(n, func(c *html.Node) bool { return hasClass(c, "field-region") })
	if field == nil {
		return ""
	}
	if ro := find(field, func(c *html.Node) bool { return hasClass(c, "readonly") }); ro != nil {
		return strings.TrimSpace(text(ro))
	}
	return ""
}

func selectedOption(sel *html.Node) string {
	var first, chosen *html.Node
	walk(sel, func(c *html.Node) bool {
		if c.DataAtom == atom.Option {
			if first == nil {
				first = c
			}
			if chosen == nil && hasAttr(c, "selected") {
				chosen = c
			}
		}
		return true
	})
	if chosen == nil {
		chosen = first
	}
	if chosen == nil {
		return ""
	}
	if hasAttr(chosen, "value") {
		return attr(chosen, "value")
	}
	return strings.TrimSpace(text(chosen))
}

// walk visits n and its descendants in document order. fn returns false
// to skip a node's children.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(n, func(c *html.Node) bool {
		if found != nil {
			return false
		}
		if c.Type == html.ElementNode && match(c) {
			found = c
			return false
		}
		return true
	})
	return found
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func text(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return b.String()
}
