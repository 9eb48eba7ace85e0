// Package condition evaluates daily task conditions. Every evaluator is pure:
// it takes the previous condition state and returns a fresh one.
package condition

import (
	"math"

	"github.com/AaroAskala/Suomidle-sub000/internal/sim/bignum"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/catalogs"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/model"
)

// Event is one discrete game event. Key discriminates per-key counters
// (the building id for buy_building).
type Event struct {
	Type string
	Key  string
	At   int64 // unix millis
}

type Result struct {
	Progress float64
	Reached  bool
	State    *model.ConditionState
}

// SafeNumber clamps NaN, ±Inf and negatives to 0.
func SafeNumber(v float64) float64 { return bignum.SafeFloat(v) }

func result(c catalogs.Condition, progress float64, st *model.ConditionState) Result {
	progress = SafeNumber(progress)
	return Result{Progress: progress, Reached: progress >= c.Goal(), State: st}
}

// Initial returns the zero runtime state for c, nil for snapshot-driven types.
func Initial(c catalogs.Condition) *model.ConditionState {
	switch c.Type {
	case model.CondCounter:
		st := &model.ConditionState{Type: c.Type}
		if c.PerKey {
			st.Buckets = map[string]float64{}
		}
		return st
	case model.CondStreak:
		return &model.ConditionState{Type: c.Type, Events: []int64{}}
	case model.CondStreakRate, model.CondSequence:
		return &model.ConditionState{Type: c.Type}
	}
	return nil
}

func stateFor(c catalogs.Condition, st *model.ConditionState) *model.ConditionState {
	if st == nil || st.Type != c.Type {
		if st = Initial(c); st == nil {
			return &model.ConditionState{Type: c.Type}
		}
		return st
	}
	return st.Clone()
}

// EvaluateEvent dispatches ev to the evaluator for c. ok is false when c does
// not consume events of ev's type.
func EvaluateEvent(c catalogs.Condition, st *model.ConditionState, ev Event) (Result, bool) {
	if !c.Matches(ev.Type) {
		return Result{}, false
	}
	switch c.Type {
	case model.CondCounter:
		return EvaluateCounter(c, st, ev), true
	case model.CondStreak:
		return EvaluateStreak(c, st, ev.At), true
	case model.CondStreakRate:
		return EvaluateStreakRate(c, st, ev.At), true
	case model.CondSequence:
		return EvaluateSequence(c, st, ev), true
	}
	return Result{}, false
}

// EvaluateCounter adds one to the counter. Per-key counters report the
// largest single bucket, so "5 of the same building" needs 5 of one id.
func EvaluateCounter(c catalogs.Condition, st *model.ConditionState, ev Event) Result {
	next := stateFor(c, st)
	if !c.PerKey {
		next.Count++
		return result(c, next.Count, next)
	}
	if next.Buckets == nil {
		next.Buckets = map[string]float64{}
	}
	key := ev.Key
	if key == "" {
		key = "_"
	}
	next.Buckets[key]++
	best := 0.0
	for _, n := range next.Buckets {
		best = math.Max(best, n)
	}
	next.Count = best
	return result(c, best, next)
}

func EvaluateThreshold(c catalogs.Condition, value float64) Result {
	return result(c, value, nil)
}

// EvaluateDeltaThreshold measures growth since the rotation baseline,
// floored at 0.
func EvaluateDeltaThreshold(c catalogs.Condition, value, baseline float64) Result {
	return result(c, math.Max(0, SafeNumber(value)-SafeNumber(baseline)), nil)
}

// EvaluateStreak keeps event timestamps inside window_s. A gap longer than
// max_gap_s restarts the streak at the new event. Progress is the streak's
// span in seconds.
func EvaluateStreak(c catalogs.Condition, st *model.ConditionState, at int64) Result {
	next := stateFor(c, st)
	maxGap := int64(c.MaxGapS.Float() * 1000)
	window := int64(c.WindowS.Float() * 1000)

	if n := len(next.Events); n > 0 {
		last := next.Events[n-1]
		if at < last {
			at = last
		}
		if maxGap > 0 && at-last > maxGap {
			next.Events = next.Events[:0]
		}
	}
	if len(next.Events) == 0 {
		next.StreakStartAt = at
	}
	next.Events = append(next.Events, at)

	cut := 0
	for cut < len(next.Events)-1 && at-next.Events[cut] > window {
		cut++
	}
	next.Events = append([]int64{}, next.Events[cut:]...)

	return result(c, float64(at-next.StreakStartAt)/1000, next)
}

// EvaluateStreakRate counts matching events; a gap longer than
// max_interval_s starts over at 1.
func EvaluateStreakRate(c catalogs.Condition, st *model.ConditionState, at int64) Result {
	next := stateFor(c, st)
	maxInterval := int64(c.MaxIntervalS.Float() * 1000)
	if next.Count > 0 && maxInterval > 0 && at-next.LastEventAt > maxInterval {
		next.Count = 1
	} else {
		next.Count++
	}
	next.LastEventAt = at
	return result(c, next.Count, next)
}

// EvaluateSequence advances on the next expected event, restarts at 1 when
// the first step recurs out of order and drops back to 0 once window_s has
// passed since the first step. A finished sequence stays finished.
func EvaluateSequence(c catalogs.Condition, st *model.ConditionState, ev Event) Result {
	next := stateFor(c, st)
	steps := len(c.Events)
	if next.Index >= steps {
		next.Index = steps
		return result(c, float64(steps), next)
	}
	window := int64(c.WindowS.Float() * 1000)
	if next.Index > 0 && window > 0 && ev.At-next.StartedAt > window {
		next.Index = 0
		next.StartedAt = 0
	}
	switch {
	case c.Events[next.Index] == ev.Type:
		if next.Index == 0 {
			next.StartedAt = ev.At
		}
		next.Index++
	case c.Events[0] == ev.Type:
		next.Index = 1
		next.StartedAt = ev.At
	}
	return result(c, float64(next.Index), next)
}

func EvaluateUptime(c catalogs.Condition, seconds float64) Result {
	return result(c, seconds, nil)
}
