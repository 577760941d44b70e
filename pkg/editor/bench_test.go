package editor

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/vanderheijden86/ordermachine/internal/datasource"
	"github.com/vanderheijden86/ordermachine/pkg/model"
	"github.com/vanderheijden86/ordermachine/pkg/testutil"
)

// benchDocument loads tests/testdata/benchmark/<name>.json when generated
// (go run scripts/generate_testdata.go) and falls back to n random rows.
func benchDocument(b *testing.B, name string, n int) *model.Document {
	b.Helper()
	path := filepath.Join("..", "..", "tests", "testdata", "benchmark", name+".json")
	if _, err := os.Stat(path); err == nil {
		doc, err := datasource.Load(path)
		if err != nil {
			b.Fatalf("load %s: %v", path, err)
		}
		return doc
	}
	return &model.Document{
		Context: model.Context{Regions: testutil.Regions(), Plugins: testutil.Plugins(), AllowChange: true},
		Rows:    testutil.New(testutil.GeneratorConfig{Seed: int64(n), Regions: []string{"main", "sidebar"}}).Rows(n),
	}
}

func cloneRows(rows []*model.Row) []*model.Row {
	out := make([]*model.Row, len(rows))
	for i, r := range rows {
		c := *r
		out[i] = &c
	}
	return out
}

func BenchmarkStart(b *testing.B) {
	for _, ds := range []struct {
		name string
		size int
	}{{"small", 100}, {"medium", 1000}, {"large", 5000}} {
		b.Run(fmt.Sprintf("rows=%d", ds.size), func(b *testing.B) {
			src := benchDocument(b, ds.name, ds.size)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				doc := &model.Document{Context: src.Context, Rows: cloneRows(src.Rows)}
				e := New(doc, datasource.NewFormset(doc), Options{})
				e.Start("https://example.com/page/")
				e.Close()
			}
		})
	}
}

func BenchmarkMoveDown(b *testing.B) {
	src := benchDocument(b, "medium", 1000)
	doc := &model.Document{Context: src.Context, Rows: cloneRows(src.Rows)}
	e := New(doc, datasource.NewFormset(doc), Options{})
	e.Start("https://example.com/page/")
	defer e.Close()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		vis := e.Visible()
		if len(vis) < 2 {
			b.Skip("not enough visible rows")
		}
		e.MoveDown(vis[0])
	}
}
