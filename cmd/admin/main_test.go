package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaroAskala/Suomidle-sub000/internal/persistence/save"
	"github.com/AaroAskala/Suomidle-sub000/internal/persistence/slots"
	"github.com/AaroAskala/Suomidle-sub000/internal/persistence/snapshot"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/model"
)

func testDefaults(t *testing.T) defaults {
	return defaults{Namespace: "test", DataDir: t.TempDir(), ConfigDir: "../../configs", Slot: "main"}
}

func runAdmin(t *testing.T, def defaults, cmd string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), def, cmd, args, &out)
	return out.String(), err
}

func TestLint_ShippedContent(t *testing.T) {
	out, err := runAdmin(t, testDefaults(t), "lint", "-schemas", "../../schemas")
	require.NoError(t, err)
	assert.Contains(t, out, "ok")
}

func TestImportExportRoundTrip(t *testing.T) {
	def := testDefaults(t)
	legacy := filepath.Join(t.TempDir(), "legacy.save.zst")
	// v1 documents carry no version and name the tier "tier".
	require.NoError(t, snapshot.WriteFile(legacy, snapshot.NewHeader(1, "old", "main", 1000),
		[]byte(`{"population":12,"tier":3,"eraMult":2}`)))

	out, err := runAdmin(t, def, "import", "-file", legacy)
	require.NoError(t, err)
	assert.Contains(t, out, "v1 -> v6")

	out, err = runAdmin(t, def, "slots")
	require.NoError(t, err)
	assert.Contains(t, out, save.StorageKey("test", "main"))

	out, err = runAdmin(t, def, "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "v6")

	exported := filepath.Join(t.TempDir(), "out.save.zst")
	_, err = runAdmin(t, def, "export", "-file", exported)
	require.NoError(t, err)
	h, doc, err := snapshot.ReadFile(exported)
	require.NoError(t, err)
	assert.Equal(t, save.CurrentVersion, h.Version)
	assert.Equal(t, "test", h.Namespace)
	s, _, err := save.Decode(doc)
	require.NoError(t, err)
	assert.Equal(t, 2.0, s.EraMult, "era multiplier survives the v6 rebalance")
	assert.Equal(t, 1, s.TierLevel)
}

func TestImport_FutureVersionRefused(t *testing.T) {
	def := testDefaults(t)
	future := filepath.Join(t.TempDir(), "future.save.zst")
	require.NoError(t, snapshot.WriteFile(future, snapshot.NewHeader(99, "x", "main", 1), []byte(`{"version":99,"state":{}}`)))

	_, err := runAdmin(t, def, "import", "-file", future)
	require.ErrorIs(t, err, save.ErrUnknownVersion)

	db, err := slots.Open(filepath.Join(def.DataDir, "saves.sqlite"), def.Namespace)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Get(context.Background(), "main")
	assert.ErrorIs(t, err, slots.ErrNotFound)
}

func TestDeleteAndResets(t *testing.T) {
	def := testDefaults(t)
	doc, err := save.Encode(model.NewGameState())
	require.NoError(t, err)
	db, err := slots.Open(filepath.Join(def.DataDir, "saves.sqlite"), def.Namespace)
	require.NoError(t, err)
	require.NoError(t, db.Put(context.Background(), "main", save.CurrentVersion, doc, 1))
	require.NoError(t, db.Close())

	_, err = runAdmin(t, def, "delete")
	require.NoError(t, err)
	_, err = runAdmin(t, def, "inspect")
	assert.ErrorIs(t, err, slots.ErrNotFound)

	out, err := runAdmin(t, def, "resets")
	require.NoError(t, err)
	assert.Contains(t, out, "RESET")
}

func TestUnknownCommand(t *testing.T) {
	_, err := runAdmin(t, testDefaults(t), "frobnicate")
	assert.ErrorContains(t, err, "unknown command")
}
