package telemetry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHooks_NilAndZeroAreSafe(t *testing.T) {
	var h *Hooks
	h.Emit(EventPoltaMaailma, nil)
	h.Notify(Notification{Type: TaskCompleted})

	(&Hooks{}).Emit(EventPoltaMaailma, nil)
}

func TestHooks_SwallowsSinkFailures(t *testing.T) {
	calls := 0
	h := &Hooks{Sink: Multi{
		SinkFunc(func(string, map[string]any) error { calls++; return errors.New("disk full") }),
		SinkFunc(func(string, map[string]any) error { calls++; panic("boom") }),
	}}
	require.NotPanics(t, func() { h.Emit(EventMaailmaPurchase, map[string]any{"level": 1}) })
	assert.Equal(t, 2, calls)
}

func TestBus_OnOff(t *testing.T) {
	bus := NewBus()
	h := &Hooks{Bus: bus}

	var got []string
	id := bus.On(TaskCompleted, func(n Notification) { got = append(got, "a:"+n.TaskID) })
	bus.On(TaskCompleted, func(n Notification) { panic("bad subscriber") })
	bus.On(TaskCompleted, func(n Notification) { got = append(got, "c:"+n.TaskID) })
	bus.On(BuffExpired, func(n Notification) { got = append(got, "expired") })

	h.Notify(Notification{Type: TaskCompleted, TaskID: "t1"})
	assert.Equal(t, []string{"a:t1", "c:t1"}, got)

	bus.Off(TaskCompleted, id)
	got = nil
	h.Notify(Notification{Type: TaskCompleted, TaskID: "t2"})
	assert.Equal(t, []string{"c:t2"}, got)
}

func TestRecorder_Named(t *testing.T) {
	r := &Recorder{}
	h := &Hooks{Sink: r}
	h.Emit(EventDailyTaskRoll, map[string]any{"n": 1})
	h.Emit(EventDailyTaskClaim, nil)
	h.Emit(EventDailyTaskRoll, map[string]any{"n": 2})

	rolls := r.Named(EventDailyTaskRoll)
	require.Len(t, rolls, 2)
	assert.Equal(t, 2, rolls[1].Payload["n"])
}
