package storage

import (
	"context"
	"errors"
	"os"
	"sort"

	"github.com/peterbourgon/diskv/v3"
)

// Disk is a Storage backed by diskv. Every key is one file under the base
// directory.
type Disk struct {
	d *diskv.Diskv
}

// OpenDisk creates (if needed) and opens a diskv store rooted at basePath.
func OpenDisk(basePath string) (*Disk, error) {
	if basePath == "" {
		return nil, errors.New("storage: disk path is empty")
	}
	if err := os.MkdirAll(basePath, 0o700); err != nil {
		return nil, err
	}
	return &Disk{d: diskv.New(diskv.Options{
		BasePath:     basePath,
		Transform:    flatTransform,
		// No read cache: another process (the CLI) may write the same files.
		CacheSizeMax: 0,
		FilePerm:     0o600,
		PathPerm:     0o700,
	})}, nil
}

// flatTransform keeps every key directly under BasePath; there are only a
// handful of keys.
func flatTransform(string) []string { return []string{} }

func (s *Disk) Get(key string) (string, bool, error) {
	if !s.d.Has(key) {
		return "", false, nil
	}
	val, err := s.d.Read(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(val), true, nil
}

func (s *Disk) Set(key, value string) error {
	return s.d.Write(key, []byte(value))
}

func (s *Disk) Remove(key string) error {
	if !s.d.Has(key) {
		return nil
	}
	return s.d.Erase(key)
}

func (s *Disk) Keys() ([]string, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make([]string, 0)
	for k := range s.d.Keys(ctx.Done()) {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Disk) Close() error { return nil }
