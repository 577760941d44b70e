package datasource

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/ordermachine/pkg/debug"
	"github.com/vanderheijden86/ordermachine/pkg/metrics"
	"github.com/vanderheijden86/ordermachine/pkg/model"
)

// Loader reads page documents from disk.
type Loader struct {
	logger *log.Logger
}

// NewLoader creates a loader that logs nothing.
func NewLoader() *Loader {
	return &Loader{
		// Silence by default. Callers can opt-in via SetLogger.
		logger: log.New(io.Discard, "", 0),
	}
}

// SetLogger sets a custom logger for load diagnostics
func (l *Loader) SetLogger(logger *log.Logger) {
	l.logger = logger
}

// Load reads the document at path in whichever format it is stored.
func (l *Loader) Load(path string) (*model.Document, Source, error) {
	src, err := Stat(path)
	if err != nil {
		return nil, Source{}, err
	}

	timer := metrics.TimerWithCallback(metrics.DocumentLoad, func(d time.Duration) {
		debug.LogTiming("datasource: load "+path, d)
	})
	defer timer()

	f, err := os.Open(path)
	if err != nil {
		return nil, src, err
	}
	defer f.Close()

	var doc *model.Document
	switch src.Format {
	case FormatHTML:
		doc, err = ParseHTML(f)
	case FormatJSON:
		doc, err = DecodeJSON(f)
	default:
		err = ErrUnsupportedFormat
	}
	if err != nil {
		l.logger.Printf("WARNING: failed to load %s: %v", path, err)
		return nil, src, fmt.Errorf("load %s: %w", path, err)
	}
	doc.Path = path

	templates := 0
	for _, r := range doc.Rows {
		if r.IsTemplate {
			templates++
		}
	}
	l.logger.Printf("loaded %s: %d rows (%d templates), %d regions, %d plugins",
		src, len(doc.Rows), templates, len(doc.Context.Regions), len(doc.Context.Plugins))
	return doc, src, nil
}

// Load reads a document with a silent loader.
func Load(path string) (*model.Document, error) {
	doc, _, err := NewLoader().Load(path)
	return doc, err
}

// DecodeJSON reads a document in its JSON form.
func DecodeJSON(r io.Reader) (*model.Document, error) {
	timer := metrics.Timer(metrics.JSONParsing)
	defer timer()

	// Documents written by hand may omit the context object entirely.
	doc := model.Document{Context: model.Context{AllowChange: true}}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}

// SaveJSON writes doc to path as indented JSON.
// The write is atomic (temp file + rename) to be safe with editors and watchers.
func SaveJSON(path string, doc *model.Document) error {
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".html" || ext == ".htm" {
		return fmt.Errorf("save %s: %w", path, ErrUnsupportedFormat)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	out := *doc
	out.Path = ""
	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&out); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// StatePersister stores the captured editor state for the next load.
type StatePersister interface {
	Persist(state model.EditorState)
}

// Commit is the submit step: it writes the document and persists the
// editor state concurrently. Either may be nil.
type Commit struct {
	Path  string
	Doc   *model.Document
	State *model.EditorState
	Store StatePersister
}

// Run performs the commit, returning the first error encountered.
func (c Commit) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if c.Doc != nil && c.Path != "" {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return SaveJSON(c.Path, c.Doc)
		})
	}
	if c.State != nil && c.Store != nil {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c.Store.Persist(*c.State)
			return nil
		})
	}
	return g.Wait()
}
