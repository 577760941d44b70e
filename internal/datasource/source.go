// Package datasource reads and writes host page documents: the rendered
// admin page (HTML with an embedded context data island) or its JSON form.
package datasource

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Format identifies how a document is encoded.
type Format string

const (
	FormatHTML Format = "html"
	FormatJSON Format = "json"
)

var (
	// ErrNoContext is returned when an HTML page has no context data island.
	ErrNoContext = errors.New("datasource: no #content-editor-context data island")
	// ErrUnsupportedFormat is returned for files that are neither HTML nor JSON.
	ErrUnsupportedFormat = errors.New("datasource: unsupported document format")
)

// ContextID is the element id of the initialization payload.
const ContextID = "content-editor-context"

// Source describes a document file on disk.
type Source struct {
	Path    string    `json:"path"`
	Format  Format    `json:"format"`
	ModTime time.Time `json:"mod_time"`
	Size    int64     `json:"size"`
}

// String returns a human-readable description of the source.
func (s Source) String() string {
	return fmt.Sprintf("%s (%s, %d bytes, mod=%s)", s.Path, s.Format, s.Size, s.ModTime.Format(time.RFC3339))
}

// Stat inspects path and detects its format.
func Stat(path string) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Source{}, err
	}
	if info.IsDir() {
		return Source{}, fmt.Errorf("%s is a directory", path)
	}
	format, err := DetectFormat(path)
	if err != nil {
		return Source{}, err
	}
	return Source{Path: path, Format: format, ModTime: info.ModTime(), Size: info.Size()}, nil
}

// DetectFormat decides by extension, then by sniffing the first bytes.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return FormatHTML, nil
	case ".json":
		return FormatJSON, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	head := make([]byte, 512)
	n, _ := f.Read(head)
	return sniff(head[:n])
}

func sniff(head []byte) (Format, error) {
	head = bytes.TrimSpace(bytes.TrimPrefix(head, []byte("\xef\xbb\xbf")))
	switch {
	case len(head) == 0:
		return "", ErrUnsupportedFormat
	case head[0] == '{':
		return FormatJSON, nil
	case head[0] == '<':
		return FormatHTML, nil
	}
	return "", ErrUnsupportedFormat
}
