package archive

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaroAskala/Suomidle-sub000/internal/persistence/snapshot"
)

func TestArchiveReset(t *testing.T) {
	dir := t.TempDir()
	doc := []byte(`{"version":6,"state":{"tierLevel":13}}`)
	h := snapshot.NewHeader(6, "local", "main", 1234)

	path, err := ArchiveReset(dir, ResetArchiveMeta{Reset: 2, HighestTier: 13, Award: "27"}, h, doc)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "archives", "reset_002", "main.save.zst"), path)

	_, got, err := snapshot.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, doc, got)

	_, err = ArchiveReset(dir, ResetArchiveMeta{Reset: 1, Award: "3"}, h, doc)
	require.NoError(t, err)

	metas, err := ListResets(dir)
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, 1, metas[0].Reset)
	assert.Equal(t, "27", metas[1].Award)
	assert.Equal(t, "main", metas[1].Slot)
	assert.Equal(t, 13, metas[1].HighestTier)

	_, err = ArchiveReset(dir, ResetArchiveMeta{}, h, doc)
	assert.Error(t, err)
}
