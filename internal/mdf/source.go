// Package mdf parses Oklahoma Mesonet MDF and MTS data files into
// column-oriented observation tables.
package mdf

import (
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	// ErrInvalidSource marks an empty or unusable input source.
	ErrInvalidSource = errors.New("invalid source")

	// ErrMalformedHeader marks a file whose two header lines cannot be parsed.
	ErrMalformedHeader = errors.New("malformed header")
)

// Source is a tagged union over the two ways a data file can arrive: a path
// on disk or an already-open stream. Compression is detected from the path
// suffix (.gz, .bz2); streams are consumed as-is, so a caller holding
// compressed bytes decompresses before wrapping.
type Source struct {
	path   string
	reader io.Reader
}

// FromPath builds a Source reading from a file on disk.
func FromPath(path string) Source {
	return Source{path: path}
}

// FromReader builds a Source reading from an open stream.
func FromReader(r io.Reader) Source {
	return Source{reader: r}
}

// open resolves the source to a plain-text stream, decompressing by suffix
// for path sources.
func (s Source) open() (io.ReadCloser, error) {
	if s.reader != nil {
		return io.NopCloser(s.reader), nil
	}
	if s.path == "" {
		return nil, fmt.Errorf("%w: no path or stream given", ErrInvalidSource)
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}

	switch {
	case strings.HasSuffix(s.path, ".gz"):
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open %s: gzip: %w", s.path, err)
		}
		return &decompressed{Reader: zr, file: f}, nil
	case strings.HasSuffix(s.path, ".bz2"):
		return &decompressed{Reader: bzip2.NewReader(f), file: f}, nil
	default:
		return f, nil
	}
}

// decompressed couples a decompressing reader with the file it wraps so that
// closing releases the descriptor.
type decompressed struct {
	io.Reader
	file *os.File
}

func (d *decompressed) Close() error {
	if c, ok := d.Reader.(io.Closer); ok {
		c.Close()
	}
	return d.file.Close()
}
