// Package emit writes completed files to an output directory, the final
// stage of the reassembly pipeline.
package emit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sat-broadcast/satrecv/internal/logging"
)

// Sink writes reconstructed files under a fixed output directory.
type Sink struct {
	dir string
}

// NewSink creates a Sink rooted at dir, creating it if necessary.
func NewSink(dir string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("emit: create output dir: %w", err)
	}
	return &Sink{dir: dir}, nil
}

// Emit writes data under name, stripping any directory components from
// name so a malicious or buggy announcement cannot write outside dir, and
// appending a numeric suffix if the target already exists.
func (s *Sink) Emit(name string, data []byte) error {
	base := sanitize(name)
	path, f, err := s.createUnique(base)
	if err != nil {
		return fmt.Errorf("emit: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("emit: write %s: %w", path, err)
	}
	logging.L().Info("file written", "path", path, "bytes", len(data))
	return nil
}

// sanitize reduces name to a bare file name with no path separators or
// parent-directory references.
func sanitize(name string) string {
	base := filepath.Base(filepath.FromSlash(name))
	if base == "" || base == "." || base == ".." || base == string(filepath.Separator) {
		base = "unnamed"
	}
	return base
}

func (s *Sink) createUnique(base string) (string, *os.File, error) {
	path := filepath.Join(s.dir, base)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err == nil {
		return path, f, nil
	}
	if !os.IsExist(err) {
		return "", nil, err
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for n := 1; n < 10000; n++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, n, ext)
		path = filepath.Join(s.dir, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return path, f, nil
		}
		if !os.IsExist(err) {
			return "", nil, err
		}
	}
	return "", nil, fmt.Errorf("too many collisions for %s", base)
}
