package catalogs

import (
	"encoding/json"
	"strings"

	"github.com/AaroAskala/Suomidle-sub000/internal/sim/bignum"
)

type BuildingDef struct {
	ID           string
	Title        string
	Tier         int
	BaseCPS      float64
	BaseCost     float64
	CostGrowth   float64
	BaseCostMult float64
}

type TechDef struct {
	ID    string
	Title string
	Tier  int
	Cost  float64
	Mult  float64
}

type BuildingCatalog struct {
	Buildings []BuildingDef
	ByID      map[string]BuildingDef
	Techs     []TechDef
	TechByID  map[string]TechDef
	Digest    string
}

// MinBaseCostMult is the smallest base cost multiplier across all buildings,
// 1 for an empty catalog.
func (c BuildingCatalog) MinBaseCostMult() float64 {
	if len(c.Buildings) == 0 {
		return 1
	}
	m := c.Buildings[0].BaseCostMult
	for _, b := range c.Buildings[1:] {
		if b.BaseCostMult < m {
			m = b.BaseCostMult
		}
	}
	return m
}

type rawBuildingsDoc struct {
	Buildings []json.RawMessage `json:"buildings"`
	Techs     []json.RawMessage `json:"techs"`
}

type rawBuilding struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Tier         bignum.Number  `json:"tier"`
	BaseCPS      bignum.Number  `json:"base_cps"`
	BaseCost     bignum.Number  `json:"base_cost"`
	CostGrowth   *bignum.Number `json:"cost_growth"`
	BaseCostMult *bignum.Number `json:"base_cost_mult"`
}

type rawTech struct {
	ID    string        `json:"id"`
	Title string        `json:"title"`
	Tier  bignum.Number `json:"tier"`
	Cost  bignum.Number `json:"cost"`
	Mult  bignum.Number `json:"mult"`
}

func ParseBuildings(raw []byte) (BuildingCatalog, error) {
	var doc rawBuildingsDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return BuildingCatalog{}, err
	}
	var bs []BuildingDef
	for _, br := range doc.Buildings {
		var b rawBuilding
		if err := json.Unmarshal(br, &b); err != nil {
			continue
		}
		def := BuildingDef{
			ID:           strings.TrimSpace(b.ID),
			Title:        b.Title,
			Tier:         int(b.Tier),
			BaseCPS:      b.BaseCPS.Float(),
			BaseCost:     b.BaseCost.Float(),
			CostGrowth:   1.15,
			BaseCostMult: 1,
		}
		if b.CostGrowth != nil {
			def.CostGrowth = b.CostGrowth.Float()
		}
		if b.BaseCostMult != nil {
			def.BaseCostMult = b.BaseCostMult.Float()
		}
		bs = append(bs, def)
	}
	var ts []TechDef
	for _, tr := range doc.Techs {
		var t rawTech
		if err := json.Unmarshal(tr, &t); err != nil {
			continue
		}
		ts = append(ts, TechDef{
			ID:    strings.TrimSpace(t.ID),
			Title: t.Title,
			Tier:  int(t.Tier),
			Cost:  t.Cost.Float(),
			Mult:  t.Mult.Float(),
		})
	}
	c := NewBuildingCatalog(bs, ts)
	c.Digest = sha256Hex(raw)
	return c, nil
}

func NewBuildingCatalog(buildings []BuildingDef, techs []TechDef) BuildingCatalog {
	c := BuildingCatalog{ByID: map[string]BuildingDef{}, TechByID: map[string]TechDef{}}
	for _, b := range buildings {
		if b.ID == "" {
			continue
		}
		if _, dup := c.ByID[b.ID]; dup {
			continue
		}
		if b.Tier < 1 {
			b.Tier = 1
		}
		if b.CostGrowth < 1 {
			b.CostGrowth = 1
		}
		if b.BaseCostMult <= 0 {
			b.BaseCostMult = 1
		}
		c.ByID[b.ID] = b
		c.Buildings = append(c.Buildings, b)
	}
	for _, t := range techs {
		if t.ID == "" {
			continue
		}
		if _, dup := c.TechByID[t.ID]; dup {
			continue
		}
		if t.Tier < 1 {
			t.Tier = 1
		}
		if t.Mult <= 0 {
			t.Mult = 1
		}
		c.TechByID[t.ID] = t
		c.Techs = append(c.Techs, t)
	}
	return c
}
