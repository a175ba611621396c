// Package sink persists exported content outside the pipeline.
package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/HMasataka/chatwork-log-exporter/internal/ports"
)

// DirSink writes delivered files into a single directory. Filenames are
// plain names; anything containing a path separator is rejected rather
// than silently rewritten, since attachment names come from the remote
// service.
type DirSink struct {
	dir string
}

var _ ports.Sink = (*DirSink)(nil)

// NewDirSink creates the target directory if needed and returns a sink
// writing into it.
func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return &DirSink{dir: dir}, nil
}

// Deliver writes content under filename inside the sink directory.
func (s *DirSink) Deliver(filename string, content []byte) error {
	if err := validateFilename(filename); err != nil {
		return err
	}
	path := filepath.Join(s.dir, filename)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return nil
}

func validateFilename(filename string) error {
	if filename == "" {
		return fmt.Errorf("empty filename")
	}
	if strings.ContainsAny(filename, `/\`) || filename == "." || filename == ".." {
		return fmt.Errorf("filename %q must not contain path separators", filename)
	}
	return nil
}
