package dataset

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Options controls how a dataset file is read.
type Options struct {
	// Delimiter for delimited text. If 0, chosen from the file extension.
	Delimiter rune
	// IndexColumn drops a leading row-index column, as written by Save.
	IndexColumn bool
	// MaxRows limits rows read; 0 means unlimited.
	MaxRows int
	// XLSX sheet selection. SheetName wins over SheetIndex (0-based).
	SheetName  string
	SheetIndex int
}

// Loader reads one on-disk format into a Dataset.
type Loader interface {
	CanLoad(filename string) bool
	Load(path string, opt Options) (*Dataset, error)
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

// LoadFile selects a loader based on filename. Files no loader claims are
// read as delimited text.
func LoadFile(path string, opt Options) (*Dataset, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	for _, l := range registry {
		if l.CanLoad(path) {
			return l.Load(path, opt)
		}
	}
	return delimitedLoader{}.Load(path, opt)
}

func baseName(path string) string { return filepath.Base(path) }

func init() {
	Register(delimitedLoader{})
	Register(xlsxLoader{})
}
