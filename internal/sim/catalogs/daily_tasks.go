package catalogs

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/AaroAskala/Suomidle-sub000/internal/sim/bignum"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/model"
)

// DefaultResetTimezone anchors the daily boundary when the catalog names none
// (or an unknown zone). It is deliberately not the player's local zone.
const DefaultResetTimezone = "Europe/Helsinki"

const (
	defaultTasksPerDay    = 3
	defaultUptimeMaxStepS = 10
)

type Condition struct {
	Type         model.ConditionType `json:"type"`
	Event        string              `json:"event,omitempty"`
	Metric       string              `json:"metric,omitempty"`
	Target       bignum.Number       `json:"target,omitempty"`
	PerKey       bool                `json:"per_key,omitempty"`
	WindowS      bignum.Number       `json:"window_s,omitempty"`
	MaxGapS      bignum.Number       `json:"max_gap_s,omitempty"`
	Count        bignum.Number       `json:"count,omitempty"`
	MaxIntervalS bignum.Number       `json:"max_interval_s,omitempty"`
	Events       []string            `json:"events,omitempty"`
	TargetS      bignum.Number       `json:"target_s,omitempty"`
}

// Goal is the progress value at which the condition counts as reached.
func (c Condition) Goal() float64 {
	switch c.Type {
	case model.CondCounter, model.CondThreshold, model.CondDeltaThreshold:
		return c.Target.Float()
	case model.CondStreak:
		return c.WindowS.Float()
	case model.CondStreakRate:
		return c.Count.Float()
	case model.CondSequence:
		return float64(len(c.Events))
	case model.CondUptime:
		return c.TargetS.Float()
	}
	return 0
}

// EventDriven reports whether the condition advances on discrete game events
// rather than metric snapshots.
func (c Condition) EventDriven() bool {
	switch c.Type {
	case model.CondCounter, model.CondStreak, model.CondStreakRate, model.CondSequence:
		return true
	}
	return false
}

// Matches reports whether an event of the given type feeds this condition.
func (c Condition) Matches(eventType string) bool {
	switch c.Type {
	case model.CondCounter, model.CondStreak, model.CondStreakRate:
		return c.Event == eventType
	case model.CondSequence:
		for _, e := range c.Events {
			if e == eventType {
				return true
			}
		}
	}
	return false
}

func (c Condition) valid() bool {
	switch c.Type {
	case model.CondCounter:
		return c.Event != ""
	case model.CondThreshold, model.CondDeltaThreshold:
		return c.Metric != ""
	case model.CondStreak:
		return c.Event != "" && c.WindowS > 0
	case model.CondStreakRate:
		return c.Event != "" && c.Count > 0
	case model.CondSequence:
		return len(c.Events) > 0
	case model.CondUptime:
		return true
	}
	return false
}

type TaskDef struct {
	ID              string
	Title           string
	Description     string
	Category        string
	Condition       Condition
	Reward          string
	Weight          float64
	MinTier         int
	MaxPerDay       int // 0 = unlimited
	RequiresFeature string
}

type RewardDef struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Value     float64 `json:"value"`
	DurationS float64 `json:"duration_s"`
}

type CategoryDef struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type RotationConfig struct {
	TasksPerDay        int
	Weighted           bool
	CategoryCaps       map[string]int
	DefaultCategoryCap int // 0 = uncapped
	RerollLimit        int
	UptimeMaxStepS     float64
}

// CategoryCap returns the per-rotation maximum for category, 0 meaning no cap.
func (r RotationConfig) CategoryCap(category string) int {
	if n, ok := r.CategoryCaps[category]; ok {
		return n
	}
	return r.DefaultCategoryCap
}

type DailyTaskCatalog struct {
	ResetTimezone string
	Location      *time.Location
	Rotation      RotationConfig
	Tasks         []TaskDef // catalog order
	ByID          map[string]TaskDef
	Rewards       map[string]RewardDef
	Categories    map[string]CategoryDef
	Digest        string
}

type rawDailyTasksDoc struct {
	ResetTimezone string                     `json:"reset_timezone"`
	Rotation      json.RawMessage            `json:"rotation"`
	Rewards       []json.RawMessage          `json:"rewards"`
	Categories    map[string]json.RawMessage `json:"categories"`
	Tasks         []json.RawMessage          `json:"tasks"`
}

type rawRotation struct {
	TasksPerDay        *bignum.Number           `json:"tasks_per_day"`
	Weighted           *bool                    `json:"weighted"`
	CategoryCaps       map[string]bignum.Number `json:"category_caps"`
	DefaultCategoryCap bignum.Number            `json:"default_category_cap"`
	RerollLimit        bignum.Number            `json:"reroll_limit"`
	UptimeMaxStepS     *bignum.Number           `json:"uptime_max_step_s"`
}

type rawTask struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Category        string          `json:"category"`
	Condition       Condition       `json:"condition"`
	Reward          string          `json:"reward"`
	Weight          json.RawMessage `json:"weight"`
	MinTier         bignum.Number   `json:"min_tier"`
	MaxPerDay       bignum.Number   `json:"max_per_day"`
	RequiresFeature string          `json:"requires_feature"`
}

type rawReward struct {
	ID        string        `json:"id"`
	Type      string        `json:"type"`
	Value     bignum.Number `json:"value"`
	DurationS bignum.Number `json:"duration_s"`
}

// ParseDailyTasks decodes the daily task document. Entries that cannot be
// decoded or that describe an unusable condition are skipped.
func ParseDailyTasks(raw []byte) (DailyTaskCatalog, error) {
	var doc rawDailyTasksDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return DailyTaskCatalog{}, err
	}

	var rr rawRotation
	if len(doc.Rotation) > 0 {
		_ = json.Unmarshal(doc.Rotation, &rr)
	}
	rot := RotationConfig{
		TasksPerDay:        defaultTasksPerDay,
		Weighted:           true,
		CategoryCaps:       map[string]int{},
		DefaultCategoryCap: int(rr.DefaultCategoryCap),
		RerollLimit:        int(rr.RerollLimit),
		UptimeMaxStepS:     defaultUptimeMaxStepS,
	}
	if rr.TasksPerDay != nil {
		rot.TasksPerDay = int(*rr.TasksPerDay)
	}
	if rr.Weighted != nil {
		rot.Weighted = *rr.Weighted
	}
	for cat, n := range rr.CategoryCaps {
		rot.CategoryCaps[cat] = int(n)
	}
	if rr.UptimeMaxStepS != nil && *rr.UptimeMaxStepS > 0 {
		rot.UptimeMaxStepS = rr.UptimeMaxStepS.Float()
	}

	var tasks []TaskDef
	for _, tr := range doc.Tasks {
		var t rawTask
		if err := json.Unmarshal(tr, &t); err != nil {
			continue
		}
		// missing or invalid weights draw like 1, negative ones never draw
		weight := 1.0
		if v, ok := bignum.ParseSigned(t.Weight); ok {
			weight = math.Max(v, 0)
		}
		tasks = append(tasks, TaskDef{
			ID:              strings.TrimSpace(t.ID),
			Title:           t.Title,
			Description:     t.Description,
			Category:        t.Category,
			Condition:       t.Condition,
			Reward:          t.Reward,
			Weight:          weight,
			MinTier:         int(t.MinTier),
			MaxPerDay:       int(t.MaxPerDay),
			RequiresFeature: t.RequiresFeature,
		})
	}

	var rewards []RewardDef
	for _, rr := range doc.Rewards {
		var r rawReward
		if err := json.Unmarshal(rr, &r); err != nil {
			continue
		}
		rewards = append(rewards, RewardDef{
			ID:        strings.TrimSpace(r.ID),
			Type:      r.Type,
			Value:     r.Value.Float(),
			DurationS: r.DurationS.Float(),
		})
	}

	c := NewDailyTaskCatalog(doc.ResetTimezone, rot, tasks, rewards)
	for id, cr := range doc.Categories {
		var cd CategoryDef
		if err := json.Unmarshal(cr, &cd); err != nil {
			continue
		}
		c.Categories[id] = cd
	}
	c.Digest = sha256Hex(raw)
	return c, nil
}

// NewDailyTaskCatalog normalizes and indexes task content. Unknown time zones
// fall back to DefaultResetTimezone.
func NewDailyTaskCatalog(tz string, rot RotationConfig, tasks []TaskDef, rewards []RewardDef) DailyTaskCatalog {
	c := DailyTaskCatalog{
		ByID:       map[string]TaskDef{},
		Rewards:    map[string]RewardDef{},
		Categories: map[string]CategoryDef{},
	}

	tz = strings.TrimSpace(tz)
	if tz == "" {
		tz = DefaultResetTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		tz = DefaultResetTimezone
		if loc, err = time.LoadLocation(tz); err != nil {
			loc = time.UTC
			tz = "UTC"
		}
	}
	c.ResetTimezone = tz
	c.Location = loc

	if rot.TasksPerDay < 0 {
		rot.TasksPerDay = 0
	}
	if rot.RerollLimit < 0 {
		rot.RerollLimit = 0
	}
	if rot.DefaultCategoryCap < 0 {
		rot.DefaultCategoryCap = 0
	}
	if rot.UptimeMaxStepS <= 0 {
		rot.UptimeMaxStepS = defaultUptimeMaxStepS
	}
	caps := map[string]int{}
	for cat, n := range rot.CategoryCaps {
		if n < 0 {
			n = 0
		}
		caps[cat] = n
	}
	rot.CategoryCaps = caps
	c.Rotation = rot

	for _, t := range tasks {
		if t.ID == "" || !t.Condition.valid() {
			continue
		}
		if _, dup := c.ByID[t.ID]; dup {
			continue
		}
		switch {
		case math.IsNaN(t.Weight) || math.IsInf(t.Weight, 0):
			t.Weight = 1
		case t.Weight < 0:
			t.Weight = 0
		}
		if t.MinTier < 1 {
			t.MinTier = 1
		}
		if t.MaxPerDay < 0 {
			t.MaxPerDay = 0
		}
		if t.Category == "" {
			t.Category = "general"
		}
		c.ByID[t.ID] = t
		c.Tasks = append(c.Tasks, t)
	}

	for _, r := range rewards {
		if r.ID == "" {
			continue
		}
		if _, dup := c.Rewards[r.ID]; dup {
			continue
		}
		r.Value = bignum.SafeFloat(r.Value)
		r.DurationS = bignum.SafeFloat(r.DurationS)
		c.Rewards[r.ID] = r
	}
	return c
}

func (c DailyTaskCatalog) String() string {
	return fmt.Sprintf("daily_tasks(tz=%s tasks=%d rewards=%d)", c.ResetTimezone, len(c.Tasks), len(c.Rewards))
}
