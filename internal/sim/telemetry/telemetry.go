// Package telemetry carries the outward side effects of the simulation:
// named telemetry events for analytics sinks and typed notifications for UI
// subscribers. Neither may influence simulation state; failures are logged
// and dropped.
package telemetry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/AaroAskala/Suomidle-sub000/internal/sim/model"
)

const (
	EventDailyTaskRoll      = "daily_task_roll"
	EventDailyTaskComplete  = "daily_task_complete"
	EventDailyTaskClaim     = "daily_task_claim"
	EventDailyTaskBuffStart = "daily_task_buff_start"
	EventDailyTaskBuffEnd   = "daily_task_buff_end"
	EventPoltaMaailma       = "polta_maailma"
	EventMaailmaPurchase    = "maailma_purchase"
)

// PayloadAt is the payload key holding an event's game-clock time in unix
// milliseconds. Sinks that file events by time prefer it over the wall clock.
const PayloadAt = "at"

type Sink interface {
	Emit(event string, payload map[string]any) error
}

type SinkFunc func(event string, payload map[string]any) error

func (f SinkFunc) Emit(event string, payload map[string]any) error { return f(event, payload) }

// Multi fans out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Emit(event string, payload map[string]any) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Emit(event, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type NotificationType string

const (
	TaskCompleted NotificationType = "task_completed"
	RewardClaimed NotificationType = "reward_claimed"
	BuffStarted   NotificationType = "buff_started"
	BuffExpired   NotificationType = "buff_expired"
)

type Notification struct {
	Type     NotificationType
	TaskID   string
	RewardID string
	Buff     *model.DailyTaskBuff
	At       int64
}

type Handler func(Notification)

// Bus is a synchronous notification fan-out. Handlers run in subscription order.
type Bus struct {
	mu       sync.Mutex
	next     int
	handlers map[NotificationType]map[int]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: map[NotificationType]map[int]Handler{}}
}

// On subscribes h to t and returns the id to pass to Off.
func (b *Bus) On(t NotificationType, h Handler) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	if b.handlers[t] == nil {
		b.handlers[t] = map[int]Handler{}
	}
	b.handlers[t][b.next] = h
	return b.next
}

func (b *Bus) Off(t NotificationType, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers[t], id)
}

func (b *Bus) snapshot(t NotificationType) []Handler {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]int, 0, len(b.handlers[t]))
	for id := range b.handlers[t] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Handler, 0, len(ids))
	for _, id := range ids {
		out = append(out, b.handlers[t][id])
	}
	return out
}

// Hooks bundles the collaborators a reducer may report to. The zero value and
// a nil *Hooks are both valid and discard everything.
type Hooks struct {
	Sink   Sink
	Bus    *Bus
	Logger *slog.Logger
}

func (h *Hooks) logger() *slog.Logger {
	if h == nil || h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// Emit forwards a telemetry event. Sink errors and panics are swallowed.
func (h *Hooks) Emit(event string, payload map[string]any) {
	if h == nil || h.Sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			h.logger().Warn("telemetry sink panicked", "event", event, "panic", fmt.Sprint(r))
		}
	}()
	if err := h.Sink.Emit(event, payload); err != nil {
		h.logger().Warn("telemetry emit failed", "event", event, "err", err)
	}
}

// Notify publishes n to bus subscribers, isolating each handler's panics.
func (h *Hooks) Notify(n Notification) {
	if h == nil || h.Bus == nil {
		return
	}
	for _, fn := range h.Bus.snapshot(n.Type) {
		func() {
			defer func() {
				if r := recover(); r != nil {
					h.logger().Warn("notification handler panicked", "type", string(n.Type), "panic", fmt.Sprint(r))
				}
			}()
			fn(n)
		}()
	}
}

type Record struct {
	Event   string
	Payload map[string]any
}

// Recorder is an in-memory Sink, handy for tests and debugging.
type Recorder struct {
	mu      sync.Mutex
	Records []Record
}

func (r *Recorder) Emit(event string, payload map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Records = append(r.Records, Record{Event: event, Payload: payload})
	return nil
}

// Named returns the recorded events with the given name, in order.
func (r *Recorder) Named(event string) []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Record
	for _, rec := range r.Records {
		if rec.Event == event {
			out = append(out, rec)
		}
	}
	return out
}
