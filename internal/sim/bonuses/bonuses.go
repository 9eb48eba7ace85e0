// Package bonuses folds Maailma shop purchases into the permanent bonus
// record consumed by production and prestige.
package bonuses

import (
	"maps"
	"math"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/AaroAskala/Suomidle-sub000/internal/sim/catalogs"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/model"
)

// minCostFactor keeps building prices positive whatever the shop content says.
const minCostFactor = 0.01

type CostMultiplier struct {
	Delta float64  `json:"delta"`
	Floor *float64 `json:"floor"`
}

// PermanentBonuses is derived, never persisted. Apply builds a new value on
// every call.
type PermanentBonuses struct {
	TechMultiplierBonusAdd         float64         `json:"techMultiplierBonusAdd"`
	BaseProdMult                   float64         `json:"baseProdMult"`
	OfflineProdMult                float64         `json:"offlineProdMult"`
	LampotilaRateMult              float64         `json:"lampotilaRateMult"`
	TierUnlockOffset               int             `json:"tierUnlockOffset"`
	BuildingCostMultiplier         CostMultiplier  `json:"buildingCostMultiplier"`
	SaunaPrestigeBaseMultiplierMin float64         `json:"saunaPrestigeBaseMultiplierMin"`
	KeepTechOnSaunaReset           bool            `json:"keepTechOnSaunaReset"`
	PerTierGlobalCpsAdd            map[int]float64 `json:"perTierGlobalCpsAdd"`
	GlobalCpsAddPerTuhkaSpent      float64         `json:"globalCpsAddPerTuhkaSpent"`
	TotalTuhkaSpent                decimal.Decimal `json:"totalTuhkaSpent"`
	GlobalCpsAddFromTuhkaSpent     float64         `json:"globalCpsAddFromTuhkaSpent"`
}

// Identity is the bonus record of a player with no purchases.
func Identity() PermanentBonuses {
	return PermanentBonuses{
		BaseProdMult:                   1,
		OfflineProdMult:                1,
		LampotilaRateMult:              1,
		SaunaPrestigeBaseMultiplierMin: 1,
		PerTierGlobalCpsAdd:            map[int]float64{},
		TotalTuhkaSpent:                decimal.Zero,
	}
}

// Apply folds purchases over the shop catalog in catalog order. Levels are
// clamped to each item's max level; one-shot and unknown effects are skipped.
func Apply(shop catalogs.ShopCatalog, buildings catalogs.BuildingCatalog, purchases map[string]model.MaailmaPurchase) PermanentBonuses {
	b := Identity()
	tierOffset := 0.0
	var costFloor *float64

	for _, it := range shop.Items {
		level := it.ClampLevel(purchases[it.ID].Level)
		if level <= 0 {
			continue
		}
		e := it.Effect
		switch e.Type {
		case catalogs.EffectTechMultiplierBonusAdd:
			b.TechMultiplierBonusAdd = foldAdd(b.TechMultiplierBonusAdd, e, e.ValuePerLevel, level)
		case catalogs.EffectBaseProdMult:
			b.BaseProdMult = fold(b.BaseProdMult, e, e.ValuePerLevel, level)
		case catalogs.EffectOfflineProdMult:
			b.OfflineProdMult = fold(b.OfflineProdMult, e, e.ValuePerLevel, level)
		case catalogs.EffectLampotilaRateMult:
			b.LampotilaRateMult = fold(b.LampotilaRateMult, e, e.ValuePerLevel, level)
		case catalogs.EffectTierUnlockOffset:
			tierOffset = clampCap(tierOffset+e.ValuePerLevel*float64(level), e.Cap, e.ValuePerLevel >= 0)
		case catalogs.EffectBuildingCostMultDelta:
			b.BuildingCostMultiplier.Delta = fold(b.BuildingCostMultiplier.Delta, e, e.ValuePerLevel, level)
			if e.Floor != nil && (costFloor == nil || *e.Floor > *costFloor) {
				f := *e.Floor
				costFloor = &f
			}
		case catalogs.EffectSaunaPrestigeBaseMultMin:
			b.SaunaPrestigeBaseMultiplierMin = fold(b.SaunaPrestigeBaseMultiplierMin, e, e.ValuePerLevel, level)
		case catalogs.EffectKeepTechOnSaunaReset:
			b.KeepTechOnSaunaReset = true
		case catalogs.EffectPerTierGlobalCpsAdd:
			v := e.ValuePerTierPerLevel
			if v == 0 {
				v = e.ValuePerLevel
			}
			from := e.FromTierInclusive
			b.PerTierGlobalCpsAdd[from] = foldAdd(b.PerTierGlobalCpsAdd[from], e, v, level)
		case catalogs.EffectGlobalCpsAddPerTuhkaSpent:
			v := e.ValuePerTuhka
			if v == 0 {
				v = e.ValuePerLevel
			}
			b.GlobalCpsAddPerTuhkaSpent = foldAdd(b.GlobalCpsAddPerTuhkaSpent, e, v, level)
		}
	}

	b.TierUnlockOffset = int(math.Trunc(tierOffset))
	b.BaseProdMult = identityIfBad(b.BaseProdMult)
	b.OfflineProdMult = identityIfBad(b.OfflineProdMult)
	b.LampotilaRateMult = identityIfBad(b.LampotilaRateMult)
	b.SaunaPrestigeBaseMultiplierMin = identityIfBad(b.SaunaPrestigeBaseMultiplierMin)
	b.TechMultiplierBonusAdd = finiteOr(b.TechMultiplierBonusAdd, 0)
	b.GlobalCpsAddPerTuhkaSpent = finiteOr(b.GlobalCpsAddPerTuhkaSpent, 0)

	delta := finiteOr(b.BuildingCostMultiplier.Delta, 0)
	if costFloor != nil {
		delta = math.Max(delta, *costFloor-buildings.MinBaseCostMult())
		b.BuildingCostMultiplier.Floor = costFloor
	}
	b.BuildingCostMultiplier.Delta = delta

	b.TotalTuhkaSpent = TotalTuhkaSpent(shop, purchases)
	b.GlobalCpsAddFromTuhkaSpent = finiteOr(b.GlobalCpsAddPerTuhkaSpent*b.TotalTuhkaSpent.InexactFloat64(), 0)
	return b
}

// TotalTuhkaSpent sums the first level entries of each purchased item's cost
// table. It is recomputed from the table so a reloaded ledger agrees with a
// live one.
func TotalTuhkaSpent(shop catalogs.ShopCatalog, purchases map[string]model.MaailmaPurchase) decimal.Decimal {
	total := decimal.Zero
	for _, it := range shop.Items {
		level := it.ClampLevel(purchases[it.ID].Level)
		for i := 0; i < level; i++ {
			total = total.Add(it.Costs[i])
		}
	}
	return total.Floor()
}

// fold applies level steps of e to acc by the effect's stack mode, then
// clamps the running total to the cap.
func fold(acc float64, e catalogs.Effect, v float64, level int) float64 {
	grows := v >= 0
	if e.StackMode == catalogs.StackMultiplicative {
		acc *= math.Pow(v, float64(level))
		grows = v >= 1
	} else {
		acc += v * float64(level)
	}
	return clampCap(acc, e.Cap, grows)
}

// foldAdd is fold for additive bonuses: in multiplicative mode the bonus
// itself compounds, (1+acc)*v^level - 1.
func foldAdd(acc float64, e catalogs.Effect, v float64, level int) float64 {
	if e.StackMode != catalogs.StackMultiplicative {
		return fold(acc, e, v, level)
	}
	acc = (1+acc)*math.Pow(v, float64(level)) - 1
	return clampCap(acc, e.Cap, v >= 1)
}

func clampCap(v float64, limit *float64, grows bool) float64 {
	if limit == nil {
		return v
	}
	if grows {
		return math.Min(v, *limit)
	}
	return math.Max(v, *limit)
}

func identityIfBad(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 1
	}
	return v
}

func finiteOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

// GlobalCpsAdd is the additive global production bonus at tier: every
// per-tier entry whose threshold has been reached contributes once per tier
// at or above it, plus the tuhka-spent bonus.
func (b PermanentBonuses) GlobalCpsAdd(tier int) float64 {
	total := b.GlobalCpsAddFromTuhkaSpent
	for _, from := range slices.Sorted(maps.Keys(b.PerTierGlobalCpsAdd)) {
		if tier >= from {
			total += b.PerTierGlobalCpsAdd[from] * float64(tier-from+1)
		}
	}
	return total
}

// CostFactor is the multiplier applied to a building whose catalog base cost
// multiplier is base.
func (b PermanentBonuses) CostFactor(base float64) float64 {
	f := base + b.BuildingCostMultiplier.Delta
	if b.BuildingCostMultiplier.Floor != nil && f < *b.BuildingCostMultiplier.Floor {
		f = *b.BuildingCostMultiplier.Floor
	}
	return math.Max(f, minCostFactor)
}
