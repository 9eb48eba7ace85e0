package tuning

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz         int `yaml:"tick_rate_hz"`
	MajorVersion       int `yaml:"major_version"`
	AutosaveEveryTicks int `yaml:"autosave_every_ticks"`

	Offline  Offline  `yaml:"offline"`
	Tiers    Tiers    `yaml:"tiers"`
	Prestige Prestige `yaml:"prestige"`
	Maailma  Maailma  `yaml:"maailma"`
}

type Offline struct {
	// MaxSeconds caps a single catch-up; 0 = uncapped.
	MaxSeconds float64 `yaml:"max_seconds"`
}

type Tiers struct {
	Thresholds          []float64 `yaml:"thresholds"`
	PrestigeFeatureTier int       `yaml:"prestige_feature_tier"`
}

type Prestige struct {
	PointsPerTier int     `yaml:"points_per_tier"`
	MultPerPoint  float64 `yaml:"mult_per_point"`
}

type Maailma struct {
	AwardDivisor float64 `yaml:"award_divisor"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:         10,
		MajorVersion:       1,
		AutosaveEveryTicks: 300,
		Tiers: Tiers{
			Thresholds:          []float64{1e3, 5e4, 2.5e6, 1.5e8, 1e10, 8e11, 7e13, 6e15, 5e17, 5e19, 5e21, 5e23},
			PrestigeFeatureTier: 3,
		},
		Prestige: Prestige{PointsPerTier: 1, MultPerPoint: 0.5},
		Maailma:  Maailma{AwardDivisor: 3.5},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	return t, nil
}

// Normalize replaces out-of-range values with defaults.
func (t *Tuning) Normalize() {
	d := Defaults()
	if t.TickRateHz <= 0 {
		t.TickRateHz = d.TickRateHz
	}
	if t.MajorVersion < 1 {
		t.MajorVersion = d.MajorVersion
	}
	if t.AutosaveEveryTicks <= 0 {
		t.AutosaveEveryTicks = d.AutosaveEveryTicks
	}
	if t.Offline.MaxSeconds < 0 || math.IsNaN(t.Offline.MaxSeconds) {
		t.Offline.MaxSeconds = 0
	}
	if len(t.Tiers.Thresholds) == 0 {
		t.Tiers.Thresholds = d.Tiers.Thresholds
	}
	if t.Tiers.PrestigeFeatureTier < 1 {
		t.Tiers.PrestigeFeatureTier = d.Tiers.PrestigeFeatureTier
	}
	if t.Prestige.PointsPerTier < 0 {
		t.Prestige.PointsPerTier = 0
	}
	if t.Prestige.MultPerPoint < 0 || math.IsNaN(t.Prestige.MultPerPoint) {
		t.Prestige.MultPerPoint = d.Prestige.MultPerPoint
	}
	if !(t.Maailma.AwardDivisor > 0) || math.IsInf(t.Maailma.AwardDivisor, 0) {
		t.Maailma.AwardDivisor = d.Maailma.AwardDivisor
	}
}

// TickDuration is the wall-clock length of one simulation tick.
func (t Tuning) TickDuration() float64 {
	return 1 / float64(t.TickRateHz)
}

// TierThreshold is the population needed to leave tier. A positive offset
// shifts every unlock earlier by that many tiers; tiers past the table grow
// by 100x per step.
func (t Tuning) TierThreshold(tier, offset int) float64 {
	idx := tier - 1 - offset
	if idx < 0 {
		idx = 0
	}
	th := t.Tiers.Thresholds
	if idx < len(th) {
		return th[idx]
	}
	last := th[len(th)-1]
	return last * math.Pow(100, float64(idx-len(th)+1))
}

// Features reports which feature flags are unlocked at tier.
func (t Tuning) Features(tier int) map[string]bool {
	return map[string]bool{
		"prestige": tier >= t.Tiers.PrestigeFeatureTier,
	}
}
