// Package backup snapshots a plugin directory before it is modified in place
// and restores it when the modification fails.
package backup

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Snapshot is a full copy of a directory taken at a point in time.
type Snapshot struct {
	ID string
	// Source is the directory that was copied.
	Source string
	// Location is where the copy lives. Its base name matches Source.
	Location  string
	CreatedAt time.Time
	Files     int
	Bytes     int64

	root string
}

// newSnapshot creates a snapshot record with a generated ID.
func newSnapshot(source, baseDir string, createdAt time.Time) Snapshot {
	id := uuid.New().String()
	root := filepath.Join(baseDir, id)
	return Snapshot{
		ID:        id,
		Source:    source,
		Location:  filepath.Join(root, filepath.Base(source)),
		CreatedAt: createdAt,
		root:      root,
	}
}
