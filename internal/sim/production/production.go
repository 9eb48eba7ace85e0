// Package production holds the per-second production formula shared by the
// live tick and offline catch-up, plus building and tech prices.
package production

import (
	"maps"
	"math"
	"slices"

	"github.com/AaroAskala/Suomidle-sub000/internal/sim/bonuses"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/catalogs"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/model"
)

// techCostGrowth scales a tech's price with every copy already owned.
const techCostGrowth = 5.0

// Recompute derives multipliers.population_cps, cps and clickPower from
// ownership and bonuses, and lifts prestigeMult to the sauna floor. s is not
// modified.
func Recompute(s *model.GameState, b bonuses.PermanentBonuses, cat catalogs.BuildingCatalog) *model.GameState {
	next := s.Clone()

	popCPS := b.BaseProdMult
	for _, id := range slices.Sorted(maps.Keys(next.TechCounts)) {
		n := next.TechCounts[id]
		t, ok := cat.TechByID[id]
		if !ok || n <= 0 {
			continue
		}
		popCPS *= math.Pow(1+(t.Mult-1)*(1+b.TechMultiplierBonusAdd), float64(n))
	}
	next.Multipliers.PopulationCPS = identityIfBad(popCPS)
	next.PrestigeMult = math.Max(identityIfBad(next.PrestigeMult), b.SaunaPrestigeBaseMultiplierMin)

	base := 0.0
	for _, def := range cat.Buildings {
		if n := next.Buildings[def.ID]; n > 0 {
			base += float64(n) * def.BaseCPS
		}
	}
	cps := base * next.Multipliers.PopulationCPS * next.PrestigeMult * identityIfBad(next.EraMult) * (1 + b.GlobalCpsAdd(next.TierLevel))
	next.CPS = safe(cps)
	next.ClickPower = identityIfBad(next.Multipliers.PopulationCPS * identityIfBad(next.EraMult))
	return next
}

// LivePerSecond is the foreground gain rate: cps scaled by the löyly rate
// bonus and the active temporary buffs.
func LivePerSecond(s *model.GameState, b bonuses.PermanentBonuses, buffMult float64) float64 {
	return safe(s.CPS * b.LampotilaRateMult * identityIfBad(buffMult))
}

// OfflinePerSecond is the catch-up gain rate: the live rate without
// temporary buffs, scaled by the offline bonus.
func OfflinePerSecond(s *model.GameState, b bonuses.PermanentBonuses) float64 {
	return safe(LivePerSecond(s, b, 1) * b.OfflineProdMult)
}

// BuildingCost prices the next copy of def when owned are already held.
func BuildingCost(def catalogs.BuildingDef, owned int, b bonuses.PermanentBonuses) float64 {
	return safe(def.BaseCost * math.Pow(def.CostGrowth, float64(owned)) * b.CostFactor(def.BaseCostMult))
}

func TechCost(def catalogs.TechDef, owned int) float64 {
	return safe(def.Cost * math.Pow(techCostGrowth, float64(owned)))
}

func safe(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func identityIfBad(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 1
	}
	return v
}
