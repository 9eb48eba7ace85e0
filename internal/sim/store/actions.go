package store

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AaroAskala/Suomidle-sub000/internal/sim/dailytasks/condition"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/maailma"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/model"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/production"
)

// Click credits one click of löyly.
func (s *Store) Click(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gain := s.state.ClickPower * s.bonuses.LampotilaRateMult
	next := s.state.Clone()
	next.Population += gain
	next.TotalPopulation += gain
	s.state = next
	s.dispatchLocked(condition.Event{Type: EventClick, At: now.UnixMilli()})
}

// BuildingCost is the current price of the next copy of id.
func (s *Store) BuildingCost(id string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	def, ok := s.cfg.Catalogs.Buildings.ByID[id]
	if !ok {
		return 0, false
	}
	return production.BuildingCost(def, s.state.Buildings[id], s.bonuses), true
}

// BuyBuilding buys one copy of id when it is unlocked and affordable.
func (s *Store) BuyBuilding(id string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, ok := s.cfg.Catalogs.Buildings.ByID[id]
	if !ok || def.Tier > s.state.TierLevel {
		return false
	}
	cost := production.BuildingCost(def, s.state.Buildings[id], s.bonuses)
	if cost > s.state.Population {
		return false
	}
	next := s.state.Clone()
	next.Population -= cost
	next.Buildings[id]++
	s.state = production.Recompute(next, s.bonuses, s.cfg.Catalogs.Buildings)
	s.dispatchLocked(condition.Event{Type: EventBuyBuilding, Key: id, At: now.UnixMilli()})
	return true
}

func (s *Store) BuyTech(id string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, ok := s.cfg.Catalogs.Buildings.TechByID[id]
	if !ok || def.Tier > s.state.TierLevel {
		return false
	}
	cost := production.TechCost(def, s.state.TechCounts[id])
	if cost > s.state.Population {
		return false
	}
	next := s.state.Clone()
	next.Population -= cost
	next.TechCounts[id]++
	s.state = production.Recompute(next, s.bonuses, s.cfg.Catalogs.Buildings)
	s.dispatchLocked(condition.Event{Type: EventBuyTech, Key: id, At: now.UnixMilli()})
	return true
}

// NextTierAt is the population needed to prestige out of the current tier.
func (s *Store) NextTierAt() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Tuning.TierThreshold(s.state.TierLevel, s.bonuses.TierUnlockOffset)
}

// Prestige is the sauna reset: the tier goes up, run currency and buildings
// reset, lifetime population stays and techs stay when the shop says so.
func (s *Store) Prestige(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state
	if cur.Population < s.cfg.Tuning.TierThreshold(cur.TierLevel, s.bonuses.TierUnlockOffset) {
		return false
	}
	next := cur.Clone()
	next.TierLevel++
	next.Population = 0
	next.Buildings = map[string]int{}
	if !s.bonuses.KeepTechOnSaunaReset {
		next.TechCounts = map[string]int{}
	}
	next.PrestigePoints += s.cfg.Tuning.Prestige.PointsPerTier
	next.PrestigeMult = math.Max(
		s.bonuses.SaunaPrestigeBaseMultiplierMin,
		1+float64(next.PrestigePoints)*s.cfg.Tuning.Prestige.MultPerPoint,
	)
	s.state = production.Recompute(next, s.bonuses, s.cfg.Catalogs.Buildings)
	s.dispatchLocked(condition.Event{Type: EventPrestige, At: now.UnixMilli()})
	return true
}

func (s *Store) ClaimDailyTask(taskID string, now time.Time) (*model.DailyTaskBuff, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms := now.UnixMilli()
	s.ensureToday(ms)
	d, buff, ok := s.daily.Claim(s.state.DailyTasks, taskID, ms)
	s.withDaily(d)
	return buff, ok
}

func (s *Store) RerollDailyTasks(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.daily.Reroll(s.state.DailyTasks, s.context(), now.UnixMilli())
	s.withDaily(d)
	return ok
}

// TuhkaPreview is what burning the world would award right now.
func (s *Store) TuhkaPreview() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta.AwardPreview(s.state)
}

// PoltaMaailma burns the world. The pre-reset save is archived first when
// a data dir is configured.
func (s *Store) PoltaMaailma(now time.Time) (decimal.Decimal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	award := s.meta.AwardPreview(s.state)
	if award.IsZero() {
		return award, false
	}
	ms := now.UnixMilli()
	s.archiveLocked(ms, award)
	s.adopt(s.meta.Confirm(s.state))
	s.ensureToday(ms)
	return award, true
}

func (s *Store) PurchaseMaailma(itemID string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := s.meta.Buy(s.state, itemID)
	if !ok {
		return false
	}
	s.adopt(next)
	s.ensureToday(now.UnixMilli())
	return true
}

// NextMaailmaCost is the price of itemID's next level, false when maxed or
// unknown.
func (s *Store) NextMaailmaCost(itemID string) (decimal.Decimal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maailma.NextCost(s.cfg.Catalogs.Shop, s.state.Maailma, itemID)
}
