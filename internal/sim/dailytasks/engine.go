// Package dailytasks runs the daily task rotation: seeded selection, progress
// tracking from events and metric snapshots, reward claims and buffs.
//
// Every function treats its *model.DailyTasksState argument as immutable and
// returns either the same pointer (nothing changed) or a fresh copy.
package dailytasks

import (
	"math"

	"github.com/AaroAskala/Suomidle-sub000/internal/sim/catalogs"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/dailytasks/condition"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/model"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/telemetry"
)

const (
	MetricPopulation      = "population"
	MetricTotalPopulation = "total_population"
	MetricPrestigeMult    = "prestige_mult"
	MetricTierLevel       = "tier_level"

	// uptimeBaseline is the baselines key holding uptime seconds at roll time.
	uptimeBaseline = "uptime"
)

// Context is the slice of player state the engine reads.
type Context struct {
	Tier            int
	PrestigeMult    float64
	Population      float64
	TotalPopulation float64
	Features        map[string]bool
	// Foreground is true while the session is active; only then does uptime accrue.
	Foreground bool
}

func (c Context) metrics() map[string]float64 {
	return map[string]float64{
		MetricPopulation:      condition.SafeNumber(c.Population),
		MetricTotalPopulation: condition.SafeNumber(c.TotalPopulation),
		MetricPrestigeMult:    condition.SafeNumber(c.PrestigeMult),
		MetricTierLevel:       float64(c.Tier),
	}
}

type Engine struct {
	Catalog catalogs.DailyTaskCatalog
	Hooks   *telemetry.Hooks
}

func New(cat catalogs.DailyTaskCatalog, hooks *telemetry.Hooks) *Engine {
	return &Engine{Catalog: cat, Hooks: hooks}
}

// EnsureForToday rolls a new rotation when the calendar day in the reset
// timezone differs from the rolled one. Active buffs carry over.
func (e *Engine) EnsureForToday(st *model.DailyTasksState, ctx Context, now int64) *model.DailyTasksState {
	key := DateKey(now, e.Catalog.Location)
	if st != nil && st.RolledDate == key {
		return st
	}
	next := st.Clone()
	next.RerollsUsed = 0
	next.SelectionCounts = map[string]int{}
	next.Metrics.UptimeSeconds = 0
	e.roll(next, ctx, now, key, 0)
	return next
}

// Reroll replaces today's tasks with a fresh draw. Past the daily reroll
// limit it returns st unchanged and false.
func (e *Engine) Reroll(st *model.DailyTasksState, ctx Context, now int64) (*model.DailyTasksState, bool) {
	st = e.EnsureForToday(st, ctx, now)
	if st.RerollsUsed >= e.Catalog.Rotation.RerollLimit {
		return st, false
	}
	next := st.Clone()
	next.RerollsUsed++
	e.roll(next, ctx, now, next.RolledDate, next.RerollsUsed)
	return next, true
}

func (e *Engine) roll(next *model.DailyTasksState, ctx Context, now int64, key string, reroll int) {
	seed := SeedFor(key, reroll, ctx.Tier, ctx.PrestigeMult)
	picked := SelectTasks(e.Catalog, NewRNG(seed), ctx, next.SelectionCounts)

	if next.SelectionCounts == nil {
		next.SelectionCounts = map[string]int{}
	}
	next.RolledDate = key
	next.TaskOrder = make([]string, 0, len(picked))
	next.Tasks = make(map[string]model.DailyTaskInstance, len(picked))
	ids := make([]string, 0, len(picked))
	for _, t := range picked {
		next.TaskOrder = append(next.TaskOrder, t.ID)
		next.Tasks[t.ID] = model.DailyTaskInstance{
			ID:             t.ID,
			RolledAt:       key,
			ConditionState: condition.Initial(t.Condition),
		}
		next.SelectionCounts[t.ID]++
		ids = append(ids, t.ID)
	}

	snap := ctx.metrics()
	next.Metrics.Current = snap
	next.Metrics.Baselines = model.CloneFloatMap(snap)
	next.Metrics.Baselines[uptimeBaseline] = next.Metrics.UptimeSeconds
	next.NextResetAt = NextResetAt(now, e.Catalog.Location)

	e.Hooks.Emit(telemetry.EventDailyTaskRoll, map[string]any{
		"date_key": key,
		"reroll":   reroll,
		"seed":     seed,
		"task_ids": ids,
		"tier":     ctx.Tier,

		telemetry.PayloadAt: now,
	})
}

// HandleEvent feeds ev to every pending task whose condition listens for it.
// With no active tasks it returns st untouched.
func (e *Engine) HandleEvent(st *model.DailyTasksState, ev condition.Event, now int64) *model.DailyTasksState {
	if st == nil || len(st.TaskOrder) == 0 {
		return st
	}
	if ev.At == 0 {
		ev.At = now
	}
	var next *model.DailyTasksState
	for _, id := range st.TaskOrder {
		inst, ok := st.Tasks[id]
		if !ok || inst.Completed() {
			continue
		}
		def, ok := e.Catalog.ByID[id]
		if !ok {
			continue
		}
		res, ok := condition.EvaluateEvent(def.Condition, inst.ConditionState, ev)
		if !ok {
			continue
		}
		if next == nil {
			next = st.Clone()
		}
		inst.Progress = res.Progress
		inst.ConditionState = res.State
		if res.Reached {
			inst.CompletedAt = now
			e.completed(next, def, now)
		}
		next.Tasks[id] = inst
	}
	if next == nil {
		return st
	}
	return next
}

// UpdateMetrics re-evaluates threshold, delta_threshold and uptime tasks
// against the current snapshot. It runs every tick, after event handling.
func (e *Engine) UpdateMetrics(st *model.DailyTasksState, ctx Context, now int64) *model.DailyTasksState {
	if st == nil {
		return st
	}
	next := st.Clone()
	m := &next.Metrics
	if ctx.Foreground && m.LastUptimeUpdate > 0 && now > m.LastUptimeUpdate {
		step := float64(now-m.LastUptimeUpdate) / 1000
		m.UptimeSeconds += math.Min(step, e.Catalog.Rotation.UptimeMaxStepS)
	}
	m.LastUptimeUpdate = now
	m.Current = ctx.metrics()

	for _, id := range next.TaskOrder {
		inst, ok := next.Tasks[id]
		if !ok || inst.Completed() {
			continue
		}
		def, ok := e.Catalog.ByID[id]
		if !ok {
			continue
		}
		c := def.Condition
		var res condition.Result
		switch c.Type {
		case model.CondThreshold:
			res = condition.EvaluateThreshold(c, m.Current[c.Metric])
		case model.CondDeltaThreshold:
			res = condition.EvaluateDeltaThreshold(c, m.Current[c.Metric], m.Baselines[c.Metric])
		case model.CondUptime:
			res = condition.EvaluateUptime(c, m.UptimeSeconds-m.Baselines[uptimeBaseline])
		default:
			continue
		}
		inst.Progress = res.Progress
		if res.Reached {
			inst.CompletedAt = now
			e.completed(next, def, now)
		}
		next.Tasks[id] = inst
	}
	return next
}

func (e *Engine) completed(st *model.DailyTasksState, def catalogs.TaskDef, now int64) {
	e.Hooks.Emit(telemetry.EventDailyTaskComplete, map[string]any{
		"task_id":  def.ID,
		"category": def.Category,
		"date_key": st.RolledDate,

		telemetry.PayloadAt: now,
	})
	e.Hooks.Notify(telemetry.Notification{Type: telemetry.TaskCompleted, TaskID: def.ID, At: now})
}

// Claim stamps claimedAt on a completed, unclaimed task and starts its reward
// buff, replacing any earlier buff from the same task. When the
// preconditions fail it returns st itself, nil and false.
func (e *Engine) Claim(st *model.DailyTasksState, taskID string, now int64) (*model.DailyTasksState, *model.DailyTaskBuff, bool) {
	if st == nil {
		return st, nil, false
	}
	inst, ok := st.Tasks[taskID]
	if !ok || !inst.Completed() || inst.Claimed() {
		return st, nil, false
	}
	next := st.Clone()
	inst.ClaimedAt = now
	next.Tasks[taskID] = inst

	def := e.Catalog.ByID[taskID]
	reward, hasReward := e.Catalog.Rewards[def.Reward]
	e.Hooks.Emit(telemetry.EventDailyTaskClaim, map[string]any{
		"task_id":   taskID,
		"reward_id": reward.ID,
		"date_key":  next.RolledDate,

		telemetry.PayloadAt: now,
	})
	e.Hooks.Notify(telemetry.Notification{Type: telemetry.RewardClaimed, TaskID: taskID, RewardID: reward.ID, At: now})

	if !hasReward || reward.Type != model.BuffTempGainMult || reward.Value <= 0 || reward.DurationS <= 0 {
		return next, nil, true
	}
	buff := model.DailyTaskBuff{
		TaskID:   taskID,
		RewardID: reward.ID,
		Type:     reward.Type,
		Value:    reward.Value,
		EndsAt:   now + int64(reward.DurationS*1000),
	}
	next.ActiveBuffs = upsert(next.ActiveBuffs, buff)
	e.Hooks.Emit(telemetry.EventDailyTaskBuffStart, map[string]any{
		"task_id":   taskID,
		"reward_id": reward.ID,
		"value":     buff.Value,
		"ends_at":   buff.EndsAt,

		telemetry.PayloadAt: now,
	})
	e.Hooks.Notify(telemetry.Notification{Type: telemetry.BuffStarted, TaskID: taskID, RewardID: reward.ID, Buff: &buff, At: now})
	return next, &buff, true
}

// InstallBuff adds buff, replacing any active buff with the same task id.
func InstallBuff(st *model.DailyTasksState, buff model.DailyTaskBuff) *model.DailyTasksState {
	next := st.Clone()
	next.ActiveBuffs = upsert(next.ActiveBuffs, buff)
	return next
}

func upsert(buffs []model.DailyTaskBuff, buff model.DailyTaskBuff) []model.DailyTaskBuff {
	out := make([]model.DailyTaskBuff, 0, len(buffs)+1)
	for _, b := range buffs {
		if b.TaskID != buff.TaskID {
			out = append(out, b)
		}
	}
	return append(out, buff)
}

// PruneExpiredBuffs drops buffs whose endsAt <= now.
func (e *Engine) PruneExpiredBuffs(st *model.DailyTasksState, now int64) *model.DailyTasksState {
	if st == nil {
		return st
	}
	expired := false
	for _, b := range st.ActiveBuffs {
		if b.EndsAt <= now {
			expired = true
			break
		}
	}
	if !expired {
		return st
	}
	next := st.Clone()
	kept := next.ActiveBuffs[:0]
	for _, b := range next.ActiveBuffs {
		if b.EndsAt > now {
			kept = append(kept, b)
			continue
		}
		e.Hooks.Emit(telemetry.EventDailyTaskBuffEnd, map[string]any{
			"task_id":   b.TaskID,
			"reward_id": b.RewardID,
			"ended_at":  b.EndsAt,

			telemetry.PayloadAt: b.EndsAt,
		})
		e.Hooks.Notify(telemetry.Notification{Type: telemetry.BuffExpired, TaskID: b.TaskID, RewardID: b.RewardID, Buff: &b, At: now})
	}
	next.ActiveBuffs = kept
	return next
}

// GainMultiplier is the product of (1+value) over unexpired gain buffs.
func GainMultiplier(st *model.DailyTasksState, now int64) float64 {
	if st == nil {
		return 1
	}
	mult := 1.0
	for _, b := range st.ActiveBuffs {
		if b.EndsAt <= now || b.Type != model.BuffTempGainMult {
			continue
		}
		mult *= 1 + condition.SafeNumber(b.Value)
	}
	return mult
}
