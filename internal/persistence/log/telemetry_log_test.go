package log

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaroAskala/Suomidle-sub000/internal/sim/telemetry"
)

func hourFile(dir, hour string) string {
	return filepath.Join(dir, "telemetry", "telemetry-"+hour+".jsonl.zst")
}

func TestTelemetryLog_RotatesHourlyOnWallClock(t *testing.T) {
	dir := t.TempDir()
	l := NewTelemetryLog(dir)
	clock := time.Date(2026, 10, 15, 9, 59, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }

	require.NoError(t, l.Emit("daily_task_roll", map[string]any{"date_key": "2026-10-15"}))
	require.NoError(t, l.Emit("daily_task_claim", nil))
	clock = clock.Add(2 * time.Minute)
	require.NoError(t, l.Emit("polta_maailma", map[string]any{"award": "27"}))
	require.NoError(t, l.Close())

	first, err := ReadEntries(hourFile(dir, "2026-10-15-09"))
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "daily_task_roll", first[0].Event)
	assert.Equal(t, "2026-10-15", first[0].Payload["date_key"])
	assert.NotEqual(t, first[0].ID, first[1].ID)

	second, err := ReadEntries(hourFile(dir, "2026-10-15-10"))
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "27", second[0].Payload["award"])
}

func TestTelemetryLog_FilesByEventStamp(t *testing.T) {
	dir := t.TempDir()
	l := NewTelemetryLog(dir)
	l.now = func() time.Time { return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC) }

	expired := time.Date(2026, 10, 15, 7, 30, 0, 0, time.UTC).UnixMilli()
	require.NoError(t, l.Emit("daily_task_complete", map[string]any{telemetry.PayloadAt: int64(expired + 1)}))
	require.NoError(t, l.Emit("daily_task_buff_end", map[string]any{telemetry.PayloadAt: expired}))
	require.NoError(t, l.Emit("maailma_purchase", map[string]any{telemetry.PayloadAt: int64(9007199254740991)}))
	// back to 07 after a detour through 12: a second frame in the same file
	require.NoError(t, l.Emit("daily_task_claim", map[string]any{telemetry.PayloadAt: expired + 2}))
	require.NoError(t, l.Close())

	early, err := ReadEntries(hourFile(dir, "2026-10-15-07"))
	require.NoError(t, err)
	require.Len(t, early, 3)
	assert.Equal(t, "daily_task_buff_end", early[1].Event)
	assert.Equal(t, "2026-10-15T07:30:00Z", early[1].At)
	assert.Equal(t, "daily_task_claim", early[2].Event)

	late, err := ReadEntries(hourFile(dir, "2026-10-15-12"))
	require.NoError(t, err)
	require.Len(t, late, 1, "never-ending stamps fall back to the wall clock")

	assert.Equal(t, map[string]int{
		"daily_task_complete": 1,
		"daily_task_buff_end": 1,
		"maailma_purchase":    1,
		"daily_task_claim":    1,
	}, l.Counts())
}
