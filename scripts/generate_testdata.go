//go:build ignore

// generate_testdata.go creates page documents for benchmarking.
// Usage: go run scripts/generate_testdata.go
//
// Creates:
//
//	tests/testdata/benchmark/small.json   (100 rows)
//	tests/testdata/benchmark/medium.json  (1000 rows)
//	tests/testdata/benchmark/large.json   (5000 rows)
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vanderheijden86/ordermachine/internal/datasource"
	"github.com/vanderheijden86/ordermachine/pkg/model"
	"github.com/vanderheijden86/ordermachine/pkg/testutil"
)

type datasetSpec struct {
	name string
	size int
}

var datasets = []datasetSpec{
	{"small", 100},
	{"medium", 1000},
	{"large", 5000},
}

func main() {
	outputDir := filepath.Join("tests", "testdata", "benchmark")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for _, ds := range datasets {
		fmt.Printf("Generating %s dataset (%d rows)...\n", ds.name, ds.size)

		gen := testutil.New(testutil.GeneratorConfig{
			Seed:    int64(ds.size), // reproducible per size
			Regions: []string{"main", "main", "main", "sidebar"},
		})
		rows := gen.Rows(ds.size)
		addSections(rows)
		addLabels(rows)

		doc := &model.Document{
			Context: model.Context{
				Regions:     testutil.Regions(),
				Plugins:     testutil.Plugins(),
				AllowChange: true,
			},
			Rows: append(rows, &model.Row{ID: "text-empty", Prefix: "text", IsTemplate: true}),
		}

		outputPath := filepath.Join(outputDir, ds.name+".json")
		if err := datasource.SaveJSON(outputPath, doc); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", outputPath, err)
			os.Exit(1)
		}
		info, _ := os.Stat(outputPath)
		fmt.Printf("  Written %s (%d bytes)\n", outputPath, info.Size())
	}

	fmt.Println("\nDone! Test documents created in", outputDir)
}

// addSections turns every 10th row into a section opener and the row five
// after it into its closer, so the benchmark documents carry a section tree.
func addSections(rows []*model.Row) {
	for i := 0; i+5 < len(rows); i += 10 {
		rows[i].ID = fmt.Sprintf("open-%d", i)
		rows[i].Prefix = "open"
		rows[i+5].ID = fmt.Sprintf("close-%d", i+5)
		rows[i+5].Prefix = "close"
		rows[i+5].Region = rows[i].Region
	}
}

func addLabels(rows []*model.Row) {
	labels := []string{
		"Intro paragraph",
		"Hero image",
		"Call to action",
		"Quote block",
		"Related links",
		"Newsletter signup",
	}
	for i, r := range rows {
		r.Label = fmt.Sprintf("%s #%d", labels[i%len(labels)], i)
	}
}
