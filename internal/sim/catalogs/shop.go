package catalogs

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/AaroAskala/Suomidle-sub000/internal/sim/bignum"
)

const (
	EffectTechMultiplierBonusAdd    = "tech_multiplier_bonus_add"
	EffectBaseProdMult              = "base_prod_mult"
	EffectOfflineProdMult           = "offline_prod_mult"
	EffectLampotilaRateMult         = "lampotila_rate_mult"
	EffectTierUnlockOffset          = "tier_unlock_offset"
	EffectBuildingCostMultDelta     = "building_cost_mult_delta"
	EffectSaunaPrestigeBaseMultMin  = "sauna_prestige_base_multiplier_min"
	EffectKeepTechOnSaunaReset      = "keep_tech_on_sauna_reset"
	EffectPerTierGlobalCpsAdd       = "per_tier_global_cps_add"
	EffectGlobalCpsAddPerTuhkaSpent = "global_cps_add_per_tuhka_spent"
	EffectTemperatureMultInstant    = "temperature_mult_instant"
	EffectInfiniteGainBuff          = "infinite_gain_buff"
)

const (
	StackAdditive       = "additive"
	StackMultiplicative = "multiplicative"
)

type Effect struct {
	Type                 string
	ValuePerLevel        float64
	StackMode            string
	Cap                  *float64
	Floor                *float64
	FromTierInclusive    int
	ValuePerTierPerLevel float64
	ValuePerTuhka        float64
}

type ShopItem struct {
	ID       string
	Title    string
	MaxLevel int
	Costs    []decimal.Decimal // cost of level i+1 at index i
	Effect   Effect
}

// CostAt returns the price of going from level to level+1.
func (it ShopItem) CostAt(level int) (decimal.Decimal, bool) {
	if level < 0 || level >= it.MaxLevel || level >= len(it.Costs) {
		return decimal.Zero, false
	}
	return it.Costs[level], true
}

// ClampLevel bounds level to [0, MaxLevel].
func (it ShopItem) ClampLevel(level int) int {
	if level < 0 {
		return 0
	}
	if level > it.MaxLevel {
		return it.MaxLevel
	}
	return level
}

type ShopCatalog struct {
	Items  []ShopItem
	ByID   map[string]ShopItem
	Digest string
}

type rawShopDoc struct {
	Items []json.RawMessage `json:"items"`
}

type rawShopItem struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	MaxLevel bignum.Number   `json:"max_level"`
	Costs    []bignum.Amount `json:"costs"`
	Effect   rawEffect       `json:"effect"`
}

type rawEffect struct {
	Type                 string         `json:"type"`
	ValuePerLevel        bignum.Signed  `json:"value_per_level"`
	StackMode            string         `json:"stack_mode"`
	Cap                  *bignum.Signed `json:"cap"`
	Floor                *bignum.Signed `json:"floor"`
	FromTierInclusive    bignum.Number  `json:"from_tier_inclusive"`
	ValuePerTierPerLevel bignum.Signed  `json:"value_per_tier_per_level"`
	ValuePerTuhka        bignum.Signed  `json:"value_per_tuhka"`
}

func ParseShop(raw []byte) (ShopCatalog, error) {
	var doc rawShopDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ShopCatalog{}, err
	}
	var items []ShopItem
	for _, ir := range doc.Items {
		var it rawShopItem
		if err := json.Unmarshal(ir, &it); err != nil {
			continue
		}
		costs := make([]decimal.Decimal, 0, len(it.Costs))
		for _, c := range it.Costs {
			costs = append(costs, c.Decimal)
		}
		e := Effect{
			Type:                 strings.TrimSpace(it.Effect.Type),
			ValuePerLevel:        it.Effect.ValuePerLevel.Float(),
			StackMode:            it.Effect.StackMode,
			FromTierInclusive:    int(it.Effect.FromTierInclusive),
			ValuePerTierPerLevel: it.Effect.ValuePerTierPerLevel.Float(),
			ValuePerTuhka:        it.Effect.ValuePerTuhka.Float(),
		}
		if it.Effect.Cap != nil {
			v := it.Effect.Cap.Float()
			e.Cap = &v
		}
		if it.Effect.Floor != nil {
			v := it.Effect.Floor.Float()
			e.Floor = &v
		}
		items = append(items, ShopItem{
			ID:       strings.TrimSpace(it.ID),
			Title:    it.Title,
			MaxLevel: int(it.MaxLevel),
			Costs:    costs,
			Effect:   e,
		})
	}
	c := NewShopCatalog(items)
	c.Digest = sha256Hex(raw)
	return c, nil
}

// NewShopCatalog normalizes shop items: max level is bounded by the cost
// table, unknown stack modes become additive.
func NewShopCatalog(items []ShopItem) ShopCatalog {
	c := ShopCatalog{ByID: map[string]ShopItem{}}
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		if _, dup := c.ByID[it.ID]; dup {
			continue
		}
		if it.MaxLevel < 0 {
			it.MaxLevel = 0
		}
		if it.MaxLevel > len(it.Costs) {
			it.MaxLevel = len(it.Costs)
		}
		costs := make([]decimal.Decimal, it.MaxLevel)
		for i := range costs {
			cost := it.Costs[i].Floor()
			if cost.IsNegative() {
				cost = decimal.Zero
			}
			costs[i] = cost
		}
		it.Costs = costs
		if it.Effect.StackMode != StackMultiplicative {
			it.Effect.StackMode = StackAdditive
		}
		if it.Effect.FromTierInclusive < 1 {
			it.Effect.FromTierInclusive = 1
		}
		c.ByID[it.ID] = it
		c.Items = append(c.Items, it)
	}
	return c
}
