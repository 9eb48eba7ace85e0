package model

type ConditionType string

const (
	CondCounter        ConditionType = "counter"
	CondThreshold      ConditionType = "threshold"
	CondDeltaThreshold ConditionType = "delta_threshold"
	CondStreak         ConditionType = "streak"
	CondStreakRate     ConditionType = "streak_rate"
	CondSequence       ConditionType = "sequence"
	CondUptime         ConditionType = "uptime"
)

// ConditionState is the tagged runtime state of one task condition. Only the
// fields belonging to Type are meaningful.
type ConditionState struct {
	Type ConditionType `json:"type"`

	// counter
	Count   float64            `json:"count,omitempty"`
	Buckets map[string]float64 `json:"buckets,omitempty"`

	// streak
	Events        []int64 `json:"events,omitempty"`
	StreakStartAt int64   `json:"streakStartAt,omitempty"`

	// streak_rate
	LastEventAt int64 `json:"lastEventAt,omitempty"`

	// sequence
	Index     int   `json:"index,omitempty"`
	StartedAt int64 `json:"startedAt,omitempty"`
}

func (c *ConditionState) Clone() *ConditionState {
	if c == nil {
		return nil
	}
	out := *c
	if c.Buckets != nil {
		out.Buckets = CloneFloatMap(c.Buckets)
	}
	if c.Events != nil {
		out.Events = append([]int64(nil), c.Events...)
	}
	return &out
}

// DailyTaskInstance is one task of the active rotation. Timestamps are unix
// millis; 0 means unset. pending -> completed -> claimed, never backwards.
type DailyTaskInstance struct {
	ID             string          `json:"id"`
	RolledAt       string          `json:"rolledAt"`
	Progress       float64         `json:"progress"`
	CompletedAt    int64           `json:"completedAt"`
	ClaimedAt      int64           `json:"claimedAt"`
	ConditionState *ConditionState `json:"conditionState,omitempty"`
}

func (t DailyTaskInstance) Completed() bool { return t.CompletedAt != 0 }
func (t DailyTaskInstance) Claimed() bool   { return t.ClaimedAt != 0 }

const BuffTempGainMult = "temp_gain_mult"

type DailyTaskBuff struct {
	TaskID   string  `json:"taskId"`
	RewardID string  `json:"rewardId"`
	Type     string  `json:"type"`
	Value    float64 `json:"value"`
	EndsAt   int64   `json:"endsAt"`
}

type DailyTaskMetrics struct {
	Baselines        map[string]float64 `json:"baselines"`
	Current          map[string]float64 `json:"current"`
	UptimeSeconds    float64            `json:"uptimeSeconds"`
	LastUptimeUpdate int64              `json:"lastUptimeUpdate"`
}

type DailyTasksState struct {
	// RolledDate is the YYYY-MM-DD key of the active rotation, "" before the first roll.
	RolledDate  string                       `json:"rolledDate"`
	TaskOrder   []string                     `json:"taskOrder"`
	Tasks       map[string]DailyTaskInstance `json:"tasks"`
	ActiveBuffs []DailyTaskBuff              `json:"activeBuffs"`
	Metrics     DailyTaskMetrics             `json:"metrics"`
	NextResetAt int64                        `json:"nextResetAt"`
	RerollsUsed int                          `json:"rerollsUsed"`

	// SelectionCounts counts how often each task was rolled on RolledDate.
	SelectionCounts map[string]int `json:"selectionCounts,omitempty"`
}

func NewDailyTasksState() *DailyTasksState {
	return &DailyTasksState{
		TaskOrder:   []string{},
		Tasks:       map[string]DailyTaskInstance{},
		ActiveBuffs: []DailyTaskBuff{},
		Metrics: DailyTaskMetrics{
			Baselines: map[string]float64{},
			Current:   map[string]float64{},
		},
	}
}

// Clone is a shallow copy: slices and maps are copied one level deep so the
// result can be edited without touching d.
func (d *DailyTasksState) Clone() *DailyTasksState {
	if d == nil {
		return NewDailyTasksState()
	}
	out := *d
	out.TaskOrder = append([]string{}, d.TaskOrder...)
	out.Tasks = make(map[string]DailyTaskInstance, len(d.Tasks))
	for id, t := range d.Tasks {
		out.Tasks[id] = t
	}
	out.ActiveBuffs = append([]DailyTaskBuff{}, d.ActiveBuffs...)
	out.Metrics.Baselines = CloneFloatMap(d.Metrics.Baselines)
	out.Metrics.Current = CloneFloatMap(d.Metrics.Current)
	if d.SelectionCounts != nil {
		out.SelectionCounts = CloneIntMap(d.SelectionCounts)
	}
	return &out
}

func (d *DailyTasksState) normalize() {
	if d.TaskOrder == nil {
		d.TaskOrder = []string{}
	}
	if d.Tasks == nil {
		d.Tasks = map[string]DailyTaskInstance{}
	}
	if d.ActiveBuffs == nil {
		d.ActiveBuffs = []DailyTaskBuff{}
	}
	if d.Metrics.Baselines == nil {
		d.Metrics.Baselines = map[string]float64{}
	}
	if d.Metrics.Current == nil {
		d.Metrics.Current = map[string]float64{}
	}
	d.Metrics.UptimeSeconds = finiteNonNeg(d.Metrics.UptimeSeconds)
	if d.RerollsUsed < 0 {
		d.RerollsUsed = 0
	}
	order := d.TaskOrder[:0]
	for _, id := range d.TaskOrder {
		if _, ok := d.Tasks[id]; ok {
			order = append(order, id)
		}
	}
	d.TaskOrder = order
}
