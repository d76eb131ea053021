package fetcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/runnerr0/geoword/internal/etymology"
)

// File serves recorded responses from a directory, one <word>.json per
// word. It is used offline and in tests.
type File struct {
	dir string
}

// NewFile creates a File fetcher rooted at dir.
func NewFile(dir string) *File {
	return &File{dir: dir}
}

// Name implements Named.
func (f *File) Name() string { return "file" }

// ErrFixtureName is returned for words that cannot name a file inside the
// fixtures directory.
var ErrFixtureName = errors.New("word is not a valid fixture name")

// Path returns the fixture file consulted for word. Words containing path
// separators are rejected so lookups stay inside the directory.
func (f *File) Path(word string) (string, error) {
	name := strings.ReplaceAll(etymology.NormalizeWord(word), " ", "_")
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("file: %q: %w", word, ErrFixtureName)
	}
	path := filepath.Join(f.dir, name+".json")
	if filepath.Dir(path) != filepath.Clean(f.dir) {
		return "", fmt.Errorf("file: %q: %w", word, ErrFixtureName)
	}
	return path, nil
}

// FetchWordEvolution implements Fetcher.
func (f *File) FetchWordEvolution(ctx context.Context, word string) (*etymology.WordEvolution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := f.Path(word)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("file: %w", err)
	}
	evo, err := decodeText(string(data))
	if err != nil {
		return nil, fmt.Errorf("file: %s: %w", path, err)
	}
	return evo, nil
}
