package worker

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/emomap/engine/internal/api"
	"github.com/emomap/engine/internal/dispatcher"
	"github.com/emomap/engine/internal/storage/memory"
	"github.com/emomap/engine/internal/util"
)

const uploadTimeout = 30 * time.Second

// ExportReply is returned by :PLACES:EXPORT:.
type ExportReply struct {
	Path     string `json:"path"`
	Count    int    `json:"count"`
	Uploaded bool   `json:"uploaded"`
}

// handlePlacesExport writes the working set to a gzipped place file and
// uploads it when an archive is configured. args: [optional path]
func (m *Manager) handlePlacesExport(e dispatcher.Event) (any, error) {
	now := time.Now()
	path := filepath.Join(m.deps.ExportDir, fmt.Sprintf("places_%s.json.gz", now.Format("20060102_150405")))
	if len(e.Args) > 0 && util.TrimQuotes(e.Args[0]) != "" {
		path = util.TrimQuotes(e.Args[0])
	}

	list := m.deps.Index.All()
	if err := memory.WriteExport(path, list, now); err != nil {
		return nil, fmt.Errorf("failed to export places: %w", err)
	}
	reply := ExportReply{Path: path, Count: len(list)}
	m.deps.Logger.Info("Exported places", "path", path, "count", len(list))

	if m.deps.Archive == nil {
		return reply, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()
	err := m.deps.Archive.UploadPlaces(ctx, path, api.UploadMetadata{
		SessionID:  m.deps.SessionID,
		PlaceCount: len(list),
		ExportedAt: now,
	})
	if err != nil {
		return reply, fmt.Errorf("exported to %s but upload failed: %w", path, err)
	}
	reply.Uploaded = true
	return reply, nil
}
