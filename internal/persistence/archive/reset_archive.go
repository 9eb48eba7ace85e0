package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/AaroAskala/Suomidle-sub000/internal/persistence/snapshot"
)

type ResetArchiveMeta struct {
	Reset       int    `json:"reset"`
	Namespace   string `json:"namespace"`
	Slot        string `json:"slot"`
	HighestTier int    `json:"highest_tier"`
	Award       string `json:"award"`
	Snapshot    string `json:"snapshot"`
	CreatedAt   string `json:"created_at"`
}

// ArchiveReset stores the pre-reset save of a Maailma burn under
// `dataDir/archives/reset_<NNN>/` next to a meta.json. reset is the reset
// count the burn produces.
func ArchiveReset(dataDir string, meta ResetArchiveMeta, h snapshot.Header, doc []byte) (string, error) {
	if meta.Reset <= 0 {
		return "", fmt.Errorf("archive: bad reset number %d", meta.Reset)
	}
	dir := filepath.Join(dataDir, "archives", fmt.Sprintf("reset_%03d", meta.Reset))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(dir, h.Slot+".save.zst")
	if err := snapshot.WriteFile(dst, h, doc); err != nil {
		return "", err
	}

	meta.Namespace = h.Namespace
	meta.Slot = h.Slot
	meta.Snapshot = filepath.Base(dst)
	if meta.CreatedAt == "" {
		meta.CreatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(dir, "meta.json"), b, 0o644)
	}
	return dst, nil
}

// ListResets reads every archived reset's meta.json, oldest first.
func ListResets(dataDir string) ([]ResetArchiveMeta, error) {
	matches, err := filepath.Glob(filepath.Join(dataDir, "archives", "reset_*", "meta.json"))
	if err != nil {
		return nil, err
	}
	var out []ResetArchiveMeta
	for _, m := range matches {
		b, err := os.ReadFile(m)
		if err != nil {
			return nil, err
		}
		var meta ResetArchiveMeta
		if err := json.Unmarshal(b, &meta); err != nil {
			return nil, fmt.Errorf("%s: %w", m, err)
		}
		out = append(out, meta)
	}
	return out, nil
}
