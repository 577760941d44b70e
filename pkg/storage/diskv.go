package storage

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"

	"github.com/peterbourgon/diskv/v3"
)

// Diskv is a Store backed by one file per key under a base directory.
type Diskv struct {
	d *diskv.Diskv
}

// OpenDiskv creates a store rooted at dir.
func OpenDiskv(dir string) *Diskv {
	return &Diskv{d: diskv.New(diskv.Options{
		BasePath:          dir,
		AdvancedTransform: keyToPathTransform,
		InverseTransform:  pathToKeyTransform,
		CacheSizeMax:      64 * 1024,
	})}
}

func (s *Diskv) Get(key string) ([]byte, error) {
	v, err := s.d.Read(key)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return v, nil
}

func (s *Diskv) Set(key string, value []byte) error {
	if err := s.d.Write(key, value); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *Diskv) Delete(key string) error {
	if !s.d.Has(key) {
		return nil
	}
	if err := s.d.Erase(key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Keys returns every stored key.
func (s *Diskv) Keys() []string {
	var out []string
	for k := range s.d.Keys(nil) {
		out = append(out, k)
	}
	return out
}

// Keys contain ':' and '/', so file names are the base64 form of the key.
func keyToPathTransform(key string) *diskv.PathKey {
	return &diskv.PathKey{FileName: base64.RawURLEncoding.EncodeToString([]byte(key))}
}

func pathToKeyTransform(pk *diskv.PathKey) string {
	b, err := base64.RawURLEncoding.DecodeString(pk.FileName)
	if err != nil {
		return pk.FileName
	}
	return string(b)
}
