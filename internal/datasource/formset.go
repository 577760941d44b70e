package datasource

import (
	"fmt"
	"maps"

	"github.com/vanderheijden86/ordermachine/pkg/model"
)

// Formset creates rows for a loaded document from its template rows, the
// way the host page clones its empty forms. New IDs continue the
// document's numbering so they never collide with existing rows.
type Formset struct {
	doc  *model.Document
	next int
}

// NewFormset returns a formset numbering new rows after the existing ones.
func NewFormset(doc *model.Document) *Formset {
	return &Formset{doc: doc, next: len(model.ManagedRows(doc.Rows))}
}

// AddRow instantiates a row of the plugin type prefix. The template of that
// prefix supplies the initial fields; prefixes without a template get an
// empty row. The caller is responsible for adding the row to the document.
func (f *Formset) AddRow(prefix string) (*model.Row, error) {
	if prefix == "" {
		return nil, fmt.Errorf("formset: empty prefix")
	}
	row := &model.Row{Prefix: prefix}
	for _, t := range f.doc.Rows {
		if t.IsTemplate && t.Prefix == prefix {
			row.Fields = maps.Clone(t.Fields)
			break
		}
	}
	for {
		id := fmt.Sprintf("%s-%d", prefix, f.next)
		f.next++
		if !f.exists(id) {
			row.ID = id
			return row, nil
		}
	}
}

func (f *Formset) exists(id string) bool {
	for _, r := range f.doc.Rows {
		if r.ID == id {
			return true
		}
	}
	return false
}
