// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emomap/engine/pkg/core"
)

// exportVersion is bumped when PlaceExport changes shape.
const exportVersion = 1

// PlaceExport is the root JSON structure of the place file
type PlaceExport struct {
	Version    int          `json:"version"`
	ExportedAt time.Time    `json:"exportedAt"`
	Places     []core.Place `json:"places"`
}

// compressed reports whether the file is written gzipped.
func (b *Backend) compressed() bool {
	return b.cfg.Compress || strings.HasSuffix(b.cfg.Path, ".gz")
}

// persist writes the place set next to the target and renames it into place.
func (b *Backend) persist() error {
	return writeExport(b.cfg.Path, PlaceExport{
		Version:    exportVersion,
		ExportedAt: b.now().UTC(),
		Places:     b.sortedLocked(),
	}, b.compressed())
}

// WriteExport writes places as a place file at path, gzipped when path ends in .gz.
func WriteExport(path string, places []core.Place, now time.Time) error {
	return writeExport(path, PlaceExport{
		Version:    exportVersion,
		ExportedAt: now.UTC(),
		Places:     places,
	}, strings.HasSuffix(path, ".gz"))
}

func writeExport(path string, export PlaceExport, compress bool) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp := path + ".tmp"
	var err error
	if compress {
		err = writeGzipJSON(tmp, export)
	} else {
		err = writeJSON(tmp, export)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace place file: %w", err)
	}
	return nil
}

// load reads the place file. A missing file is an empty store.
func (b *Backend) load() ([]core.Place, error) {
	if b.cfg.Path == "" {
		return nil, nil
	}
	f, err := os.Open(b.cfg.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open place file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if b.compressed() {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var export PlaceExport
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("failed to decode place file: %w", err)
	}
	if export.Version > exportVersion {
		return nil, fmt.Errorf("place file version %d is newer than supported %d", export.Version, exportVersion)
	}
	return export.Places, nil
}

func writeJSON(path string, data PlaceExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data PlaceExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		_ = gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}
