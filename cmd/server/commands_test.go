package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaroAskala/Suomidle-sub000/internal/persistence/slots"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/catalogs"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/store"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/tuning"
)

var t0 = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	cats, err := catalogs.Load("../../configs")
	require.NoError(t, err)
	db, err := slots.Open(filepath.Join(t.TempDir(), "saves.sqlite"), "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	st, err := store.New(store.Config{Catalogs: cats, Tuning: tuning.Defaults(), Backend: db, Namespace: "test"})
	require.NoError(t, err)
	return st
}

func run(t *testing.T, st *store.Store, line string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := runCommand(context.Background(), st, line, t0, &out)
	return out.String(), err
}

func TestRunCommand_ClickAndBuy(t *testing.T) {
	st := newTestStore(t)

	_, err := run(t, st, "buy kylakauppa")
	require.Error(t, err)

	out, err := run(t, st, "click 15")
	require.NoError(t, err)
	assert.Contains(t, out, "löyly: 15")

	out, err = run(t, st, "buy kylakauppa")
	require.NoError(t, err)
	assert.Contains(t, out, "owned 1")
}

func TestRunCommand_Errors(t *testing.T) {
	st := newTestStore(t)

	_, err := run(t, st, "click zero")
	assert.Error(t, err)
	_, err = run(t, st, "buy nope")
	assert.ErrorContains(t, err, "unknown building")
	_, err = run(t, st, "prestige")
	assert.ErrorContains(t, err, "1,000")
	_, err = run(t, st, "burn")
	assert.Error(t, err)
	_, err = run(t, st, "dance")
	assert.ErrorContains(t, err, "unknown command")
	_, err = run(t, st, "quit")
	assert.ErrorIs(t, err, errQuit)

	out, err := run(t, st, "   ")
	assert.NoError(t, err)
	assert.Empty(t, out)
}

func TestRunCommand_TasksAndShop(t *testing.T) {
	st := newTestStore(t)
	st.Tick(t0)

	out, err := run(t, st, "tasks")
	require.NoError(t, err)
	assert.Contains(t, out, "TASK")
	for _, id := range st.State().DailyTasks.TaskOrder {
		assert.Contains(t, out, id)
	}

	out, err = run(t, st, "shop")
	require.NoError(t, err)
	assert.Contains(t, out, "tuhka: 0")
}

func TestRunCommand_Save(t *testing.T) {
	st := newTestStore(t)
	out, err := run(t, st, "save")
	require.NoError(t, err)
	assert.Contains(t, out, "saved")
	assert.Equal(t, t0.UnixMilli(), st.State().LastSave)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1,234.5", formatAmount(1234.5))
	assert.Equal(t, "0", formatAmount(0))
	assert.Equal(t, "2.5 M", formatAmount(2.5e6))
}

func TestLoadLine(t *testing.T) {
	assert.Contains(t, loadLine(store.LoadReport{Fresh: true}), "new game")
	assert.Equal(t, "loaded v6 save; away 1m30s, earned 90 löyly",
		loadLine(store.LoadReport{Version: 6, OfflineSeconds: 90, OfflineGain: 90}))
}
