package bonuses

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaroAskala/Suomidle-sub000/internal/sim/catalogs"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/model"
)

func ptr(v float64) *float64 { return &v }

func costs(vals ...int64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vals))
	for i, v := range vals {
		out[i] = decimal.NewFromInt(v)
	}
	return out
}

func item(id string, maxLevel int, e catalogs.Effect) catalogs.ShopItem {
	cs := make([]int64, maxLevel)
	for i := range cs {
		cs[i] = int64(i + 1)
	}
	return catalogs.ShopItem{ID: id, MaxLevel: maxLevel, Costs: costs(cs...), Effect: e}
}

func buy(levels map[string]int) map[string]model.MaailmaPurchase {
	out := map[string]model.MaailmaPurchase{}
	for id, l := range levels {
		out[id] = model.MaailmaPurchase{ID: id, Level: l}
	}
	return out
}

var buildings = catalogs.NewBuildingCatalog([]catalogs.BuildingDef{
	{ID: "a", BaseCPS: 1, BaseCost: 10, BaseCostMult: 1},
	{ID: "b", BaseCPS: 2, BaseCost: 20, BaseCostMult: 0.95},
}, nil)

func TestApply_Empty(t *testing.T) {
	shop := catalogs.NewShopCatalog([]catalogs.ShopItem{
		item("x", 3, catalogs.Effect{Type: catalogs.EffectBaseProdMult, ValuePerLevel: 2, StackMode: catalogs.StackMultiplicative}),
	})
	b := Apply(shop, buildings, nil)
	assert.Equal(t, Identity(), b)
	assert.Equal(t, 1.0, b.CostFactor(1))
}

func TestApply_StackModesAndCaps(t *testing.T) {
	shop := catalogs.NewShopCatalog([]catalogs.ShopItem{
		item("mult", 5, catalogs.Effect{Type: catalogs.EffectBaseProdMult, ValuePerLevel: 1.25, StackMode: catalogs.StackMultiplicative, Cap: ptr(4)}),
		item("mult_big", 5, catalogs.Effect{Type: catalogs.EffectBaseProdMult, ValuePerLevel: 2, StackMode: catalogs.StackMultiplicative, Cap: ptr(4)}),
		item("offline", 4, catalogs.Effect{Type: catalogs.EffectOfflineProdMult, ValuePerLevel: 0.25, Cap: ptr(2)}),
		item("lampo", 3, catalogs.Effect{Type: catalogs.EffectLampotilaRateMult, ValuePerLevel: 0.1}),
		item("tech", 3, catalogs.Effect{Type: catalogs.EffectTechMultiplierBonusAdd, ValuePerLevel: 1.1, StackMode: catalogs.StackMultiplicative}),
		item("tech_add", 3, catalogs.Effect{Type: catalogs.EffectTechMultiplierBonusAdd, ValuePerLevel: 0.5}),
		item("sauna", 3, catalogs.Effect{Type: catalogs.EffectSaunaPrestigeBaseMultMin, ValuePerLevel: 0.5}),
	})

	b := Apply(shop, buildings, buy(map[string]int{"mult": 2, "offline": 3, "lampo": 2, "tech": 2, "sauna": 3}))
	assert.InDelta(t, 1.5625, b.BaseProdMult, 1e-12)
	assert.InDelta(t, 1.75, b.OfflineProdMult, 1e-12)
	assert.InDelta(t, 1.2, b.LampotilaRateMult, 1e-12)
	assert.InDelta(t, 0.21, b.TechMultiplierBonusAdd, 1e-12)
	assert.InDelta(t, 2.5, b.SaunaPrestigeBaseMultiplierMin, 1e-12)

	capped := Apply(shop, buildings, buy(map[string]int{"mult": 2, "mult_big": 3, "offline": 4, "tech": 1, "tech_add": 2}))
	assert.Equal(t, 4.0, capped.BaseProdMult, "cap applies to the accumulated value")
	assert.Equal(t, 2.0, capped.OfflineProdMult)
	assert.InDelta(t, 1.1, capped.TechMultiplierBonusAdd, 1e-12)
}

func TestApply_TierOffsetCapsBySign(t *testing.T) {
	shop := catalogs.NewShopCatalog([]catalogs.ShopItem{
		item("up", 3, catalogs.Effect{Type: catalogs.EffectTierUnlockOffset, ValuePerLevel: 1, Cap: ptr(2)}),
		item("down", 3, catalogs.Effect{Type: catalogs.EffectTierUnlockOffset, ValuePerLevel: -1, Cap: ptr(-2)}),
	})
	assert.Equal(t, 2, Apply(shop, buildings, buy(map[string]int{"up": 3})).TierUnlockOffset)
	assert.Equal(t, -2, Apply(shop, buildings, buy(map[string]int{"down": 3})).TierUnlockOffset)
	assert.Equal(t, 0, Apply(shop, buildings, buy(map[string]int{"up": 1, "down": 1})).TierUnlockOffset)
}

func TestApply_BuildingCostFloor(t *testing.T) {
	shop := catalogs.NewShopCatalog([]catalogs.ShopItem{
		item("cheap", 5, catalogs.Effect{Type: catalogs.EffectBuildingCostMultDelta, ValuePerLevel: -0.02, Floor: ptr(0.85)}),
		item("cheaper", 5, catalogs.Effect{Type: catalogs.EffectBuildingCostMultDelta, ValuePerLevel: -0.02, Floor: ptr(0.9)}),
	})

	b := Apply(shop, buildings, buy(map[string]int{"cheap": 1}))
	assert.InDelta(t, -0.02, b.BuildingCostMultiplier.Delta, 1e-12)
	require.NotNil(t, b.BuildingCostMultiplier.Floor)
	assert.Equal(t, 0.85, *b.BuildingCostMultiplier.Floor)

	b = Apply(shop, buildings, buy(map[string]int{"cheap": 5, "cheaper": 5}))
	assert.Equal(t, 0.9, *b.BuildingCostMultiplier.Floor, "highest floor wins")
	assert.InDelta(t, -0.05, b.BuildingCostMultiplier.Delta, 1e-12)
	assert.InDelta(t, 0.9, b.CostFactor(0.95), 1e-12)
	assert.InDelta(t, 0.95, b.CostFactor(1), 1e-12)
}

func TestApply_GlobalCpsAdds(t *testing.T) {
	shop := catalogs.NewShopCatalog([]catalogs.ShopItem{
		{ID: "kiuas", MaxLevel: 3, Costs: costs(4, 12, 36), Effect: catalogs.Effect{Type: catalogs.EffectPerTierGlobalCpsAdd, FromTierInclusive: 3, ValuePerTierPerLevel: 0.05}},
		{ID: "veri", MaxLevel: 2, Costs: costs(6, 30), Effect: catalogs.Effect{Type: catalogs.EffectGlobalCpsAddPerTuhkaSpent, ValuePerTuhka: 0.001}},
	})
	b := Apply(shop, buildings, buy(map[string]int{"kiuas": 2, "veri": 2}))

	assert.InDelta(t, 0.1, b.PerTierGlobalCpsAdd[3], 1e-12)
	assert.True(t, decimal.NewFromInt(4+12+6+30).Equal(b.TotalTuhkaSpent))
	assert.InDelta(t, 0.002, b.GlobalCpsAddPerTuhkaSpent, 1e-12)
	assert.InDelta(t, 0.104, b.GlobalCpsAddFromTuhkaSpent, 1e-12)

	assert.InDelta(t, 0.104, b.GlobalCpsAdd(2), 1e-12)
	assert.InDelta(t, 0.104+0.1*3, b.GlobalCpsAdd(5), 1e-12)
}

func TestApply_SkipsOneShotAndUnknownEffects(t *testing.T) {
	shop := catalogs.NewShopCatalog([]catalogs.ShopItem{
		item("spark", 3, catalogs.Effect{Type: catalogs.EffectTemperatureMultInstant, ValuePerLevel: 2}),
		item("forever", 2, catalogs.Effect{Type: catalogs.EffectInfiniteGainBuff, ValuePerLevel: 0.05}),
		item("future", 2, catalogs.Effect{Type: "quantum_sauna", ValuePerLevel: 9}),
		item("keep", 1, catalogs.Effect{Type: catalogs.EffectKeepTechOnSaunaReset, ValuePerLevel: 1}),
	})
	b := Apply(shop, buildings, buy(map[string]int{"spark": 3, "forever": 2, "future": 2, "keep": 1, "not_in_catalog": 4}))

	assert.True(t, decimal.NewFromInt(1+2+3+1+2+1+2+1).Equal(b.TotalTuhkaSpent))

	want := Identity()
	want.KeepTechOnSaunaReset = true
	want.TotalTuhkaSpent = b.TotalTuhkaSpent
	assert.Equal(t, want, b)
}

func TestApply_ClampsLevelToMax(t *testing.T) {
	shop := catalogs.NewShopCatalog([]catalogs.ShopItem{
		{ID: "x", MaxLevel: 2, Costs: costs(5, 7), Effect: catalogs.Effect{Type: catalogs.EffectLampotilaRateMult, ValuePerLevel: 0.5}},
	})
	b := Apply(shop, buildings, buy(map[string]int{"x": 99}))
	assert.InDelta(t, 2.0, b.LampotilaRateMult, 1e-12)
	assert.True(t, decimal.NewFromInt(12).Equal(b.TotalTuhkaSpent))
}

func TestApply_ReproducibleAcrossJSONReload(t *testing.T) {
	cats, err := catalogs.Load(filepath.Join("..", "..", "..", "configs"))
	require.NoError(t, err)

	s := model.NewGameState()
	s.Maailma.Tuhka = decimal.NewFromInt(17)
	s.Maailma.TotalTuhkaEarned = decimal.NewFromInt(300)
	s.Maailma.TotalResets = 4
	for _, it := range cats.Shop.Items {
		s.Maailma.Purchases[it.ID] = model.MaailmaPurchase{ID: it.ID, Level: it.MaxLevel}
	}
	fresh := Apply(cats.Shop, cats.Buildings, s.Maailma.Purchases)
	assert.Equal(t, fresh, Apply(cats.Shop, cats.Buildings, s.Maailma.Purchases), "idempotent")

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	var back model.GameState
	require.NoError(t, json.Unmarshal(raw, &back))
	back.Normalize()

	reloaded := Apply(cats.Shop, cats.Buildings, back.Maailma.Purchases)
	assert.InDelta(t, fresh.BaseProdMult, reloaded.BaseProdMult, 1e-12)
	assert.InDelta(t, fresh.TechMultiplierBonusAdd, reloaded.TechMultiplierBonusAdd, 1e-12)
	assert.InDelta(t, fresh.GlobalCpsAddFromTuhkaSpent, reloaded.GlobalCpsAddFromTuhkaSpent, 1e-12)
	assert.InDelta(t, fresh.BuildingCostMultiplier.Delta, reloaded.BuildingCostMultiplier.Delta, 1e-12)
	assert.Equal(t, fresh.TierUnlockOffset, reloaded.TierUnlockOffset)
	assert.Equal(t, fresh.PerTierGlobalCpsAdd, reloaded.PerTierGlobalCpsAdd)
	assert.True(t, fresh.TotalTuhkaSpent.Equal(reloaded.TotalTuhkaSpent))
	assert.True(t, back.Maailma.Tuhka.Equal(decimal.NewFromInt(17)))
}
