// Package maailma implements the meta-prestige layer: burning the world for
// tuhka and spending tuhka on permanent upgrades.
package maailma

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/AaroAskala/Suomidle-sub000/internal/sim/bignum"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/bonuses"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/catalogs"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/model"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/production"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/telemetry"
)

// BuffPrefix marks buffs installed by shop purchases rather than daily tasks.
const BuffPrefix = "maailma:"

type Engine struct {
	Shop      catalogs.ShopCatalog
	Buildings catalogs.BuildingCatalog
	// AwardDivisor scales the award curve down; values <= 0 mean 1.
	AwardDivisor float64
	Hooks        *telemetry.Hooks
}

// AwardPreview is floor(tier * sqrt(ln(prestigeMult+1)) / divisor), or 0
// whenever any input is degenerate.
func AwardPreview(s *model.GameState, divisor float64) decimal.Decimal {
	if s == nil || s.TierLevel <= 0 || !(s.PrestigeMult > 0) {
		return decimal.Zero
	}
	lnTerm := math.Log(s.PrestigeMult + 1)
	if math.IsNaN(lnTerm) || math.IsInf(lnTerm, 0) || lnTerm <= 0 {
		return decimal.Zero
	}
	if !(divisor > 0) || math.IsInf(divisor, 0) {
		divisor = 1
	}
	award := float64(s.TierLevel) * math.Sqrt(lnTerm) / divisor
	return bignum.FromFloat(award)
}

func (e *Engine) AwardPreview(s *model.GameState) decimal.Decimal {
	return AwardPreview(s, e.AwardDivisor)
}

// Bonuses derives the permanent bonuses of m's purchases.
func (e *Engine) Bonuses(m *model.MaailmaState) bonuses.PermanentBonuses {
	var purchases map[string]model.MaailmaPurchase
	if m != nil {
		purchases = m.Purchases
	}
	return bonuses.Apply(e.Shop, e.Buildings, purchases)
}

// Confirm burns the world: the run resets to zero (prestige layer included),
// purchases stay, bonuses are reapplied and the award is banked. With no
// award it returns s unchanged.
func (e *Engine) Confirm(s *model.GameState) *model.GameState {
	award := e.AwardPreview(s)
	if award.IsZero() {
		return s
	}
	highestTier := s.TierLevel

	next := s.Clone()
	model.ResetRun(next)
	next.EraMult = 1

	m := s.Maailma.Clone()
	m.Tuhka = bignum.AddFloor(m.Tuhka, award)
	m.TotalTuhkaEarned = bignum.AddFloor(m.TotalTuhkaEarned, award)
	m.TotalResets++
	next.Maailma = m

	next = production.Recompute(next, e.Bonuses(m), e.Buildings)

	e.Hooks.Emit(telemetry.EventPoltaMaailma, map[string]any{
		"highest_tier":  highestTier,
		"prestige_mult": next.PrestigeMult,
		"award":         award.String(),
		"purchases":     m.PurchaseLevels(),
		"total_resets":  m.TotalResets,
		"tuhka":         m.Tuhka.String(),
		"total_earned":  m.TotalTuhkaEarned.String(),
	})
	return next
}

// NextCost is the price of the next level of itemID; false when the item is
// unknown or maxed.
func NextCost(shop catalogs.ShopCatalog, m *model.MaailmaState, itemID string) (decimal.Decimal, bool) {
	it, ok := shop.ByID[itemID]
	if !ok {
		return decimal.Zero, false
	}
	return it.CostAt(it.ClampLevel(m.Level(itemID)))
}

func CanPurchase(shop catalogs.ShopCatalog, m *model.MaailmaState, itemID string) bool {
	cost, ok := NextCost(shop, m, itemID)
	return ok && m != nil && m.Tuhka.GreaterThanOrEqual(cost)
}

// Purchase buys exactly one level of itemID. When it cannot, m itself is
// returned with false.
func (e *Engine) Purchase(m *model.MaailmaState, itemID string) (*model.MaailmaState, bool) {
	if !CanPurchase(e.Shop, m, itemID) {
		return m, false
	}
	cost, _ := NextCost(e.Shop, m, itemID)
	it := e.Shop.ByID[itemID]

	next := m.Clone()
	next.Tuhka = bignum.SubFloor(next.Tuhka, cost)
	level := it.ClampLevel(m.Level(itemID)) + 1
	next.Purchases[itemID] = model.MaailmaPurchase{ID: itemID, Level: level}

	e.Hooks.Emit(telemetry.EventMaailmaPurchase, map[string]any{
		"item_id":         itemID,
		"level":           level,
		"cost":            cost.String(),
		"tuhka_remaining": next.Tuhka.String(),
	})
	return next, true
}

// Buy runs Purchase against the game state, applies the item's one-shot
// effect and recomputes production with the new bonuses.
func (e *Engine) Buy(s *model.GameState, itemID string) (*model.GameState, bool) {
	m, ok := e.Purchase(s.Maailma, itemID)
	if !ok {
		return s, false
	}
	next := s.Clone()
	next.Maailma = m

	it := e.Shop.ByID[itemID]
	switch it.Effect.Type {
	case catalogs.EffectTemperatureMultInstant:
		if v := it.Effect.ValuePerLevel; v > 0 && !math.IsInf(v, 0) {
			gained := next.Population*v - next.Population
			next.Population *= v
			if gained > 0 {
				next.TotalPopulation += gained
			}
		}
	}
	return production.Recompute(e.SyncBuffs(next), e.Bonuses(m), e.Buildings), true
}

// PermanentBuffs lists the never-ending gain buffs granted by m's
// infinite_gain_buff purchases, in catalog order.
func (e *Engine) PermanentBuffs(m *model.MaailmaState) []model.DailyTaskBuff {
	if m == nil {
		return nil
	}
	var out []model.DailyTaskBuff
	for _, it := range e.Shop.Items {
		if it.Effect.Type != catalogs.EffectInfiniteGainBuff {
			continue
		}
		level := it.ClampLevel(m.Level(it.ID))
		v := it.Effect.ValuePerLevel * float64(level)
		if level <= 0 || !(v > 0) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, model.DailyTaskBuff{
			TaskID:   BuffPrefix + it.ID,
			RewardID: it.ID,
			Type:     model.BuffTempGainMult,
			Value:    v,
			EndsAt:   model.MaxSafeInteger,
		})
	}
	return out
}

// SyncBuffs makes s's active buffs carry exactly the permanent buffs its
// purchases grant, so they survive anything that rebuilds the daily state.
// It returns s itself when nothing changes.
func (e *Engine) SyncBuffs(s *model.GameState) *model.GameState {
	want := map[string]model.DailyTaskBuff{}
	for _, b := range e.PermanentBuffs(s.Maailma) {
		want[b.TaskID] = b
	}
	var have []model.DailyTaskBuff
	if s.DailyTasks != nil {
		have = s.DailyTasks.ActiveBuffs
	}
	changed := false
	seen := map[string]bool{}
	for _, b := range have {
		if !strings.HasPrefix(b.TaskID, BuffPrefix) {
			continue
		}
		seen[b.TaskID] = true
		if w, ok := want[b.TaskID]; !ok || w != b {
			changed = true
		}
	}
	for id := range want {
		if !seen[id] {
			changed = true
		}
	}
	if !changed {
		return s
	}

	d := s.DailyTasks.Clone()
	kept := make([]model.DailyTaskBuff, 0, len(d.ActiveBuffs)+len(want))
	for _, b := range d.ActiveBuffs {
		if !strings.HasPrefix(b.TaskID, BuffPrefix) {
			kept = append(kept, b)
		}
	}
	d.ActiveBuffs = append(kept, e.PermanentBuffs(s.Maailma)...)

	next := s.Clone()
	next.DailyTasks = d
	return next
}
