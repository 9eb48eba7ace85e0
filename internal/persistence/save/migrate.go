package save

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/AaroAskala/Suomidle-sub000/internal/sim/bignum"
)

type step func(map[string]any) (map[string]any, error)

// steps[i] migrates version i+1 to i+2.
var steps = []step{
	v1ToV2,
	v2ToV3,
	v3ToV4,
	v4ToV5,
	v5ToV6,
}

// Migrate walks state from version up to CurrentVersion one step at a time.
// The input map is not modified.
func Migrate(version int, state map[string]any) (map[string]any, error) {
	if version > CurrentVersion {
		return nil, fmt.Errorf("%w: %d (current %d)", ErrUnknownVersion, version, CurrentVersion)
	}
	if version < 1 {
		version = 1
	}
	out := copyMap(state)
	for v := version; v < CurrentVersion; v++ {
		var err error
		if out, err = steps[v-1](out); err != nil {
			return nil, fmt.Errorf("migrate v%d->v%d: %w", v, v+1, err)
		}
	}
	return out, nil
}

// v1 stored the tier as "tier".
func v1ToV2(s map[string]any) (map[string]any, error) {
	if t, ok := s["tier"]; ok {
		if _, has := s["tierLevel"]; !has {
			s["tierLevel"] = t
		}
		delete(s, "tier")
	}
	return s, nil
}

// v2 kept techs as a list of owned ids. A repeated id cannot be told apart
// from a double-logged purchase, so the whole save is dropped.
func v2ToV3(s map[string]any) (map[string]any, error) {
	raw, ok := s["techOwned"]
	delete(s, "techOwned")
	if !ok {
		return s, nil
	}
	list, _ := raw.([]any)
	counts := map[string]any{}
	for _, v := range list {
		id, ok := v.(string)
		if !ok || id == "" {
			continue
		}
		if _, dup := counts[id]; dup {
			return nil, fmt.Errorf("%w: tech %q owned twice", ErrCorruptSave, id)
		}
		counts[id] = 1
	}
	if _, has := s["techCounts"]; !has {
		s["techCounts"] = counts
	}
	return s, nil
}

// v4 introduced the Maailma sub-state with decimal-string balances and a
// purchase map.
func v3ToV4(s map[string]any) (map[string]any, error) {
	m, _ := s["maailma"].(map[string]any)
	if m == nil {
		m = map[string]any{}
	}
	tuhka := decimalString(m["tuhka"])
	earned := decimalString(m["totalTuhkaEarned"])
	if bignum.ParseDecimal(earned).LessThan(bignum.ParseDecimal(tuhka)) {
		earned = tuhka
	}
	purchases := map[string]any{}
	switch p := m["purchases"].(type) {
	case []any:
		for _, e := range p {
			rec, _ := e.(map[string]any)
			id, _ := rec["id"].(string)
			if id == "" {
				continue
			}
			purchases[id] = map[string]any{"id": id, "level": nonNegInt(rec["level"])}
		}
	case map[string]any:
		for id, e := range p {
			rec, _ := e.(map[string]any)
			purchases[id] = map[string]any{"id": id, "level": nonNegInt(rec["level"])}
		}
	}
	s["maailma"] = map[string]any{
		"tuhka":            tuhka,
		"totalTuhkaEarned": earned,
		"purchases":        purchases,
		"totalResets":      nonNegInt(m["totalResets"]),
	}
	return s, nil
}

// v5 introduced daily tasks. Early builds kept a single activeBuff and a
// task list.
func v4ToV5(s map[string]any) (map[string]any, error) {
	d, _ := s["dailyTasks"].(map[string]any)
	if d == nil {
		return s, nil
	}
	d = copyMap(d)
	if b, ok := d["activeBuff"].(map[string]any); ok {
		if _, has := d["activeBuffs"]; !has {
			d["activeBuffs"] = []any{b}
		}
	}
	delete(d, "activeBuff")

	if list, ok := d["tasks"].([]any); ok {
		tasks := map[string]any{}
		var order []any
		for _, e := range list {
			rec, _ := e.(map[string]any)
			id, _ := rec["id"].(string)
			if id == "" {
				continue
			}
			tasks[id] = rec
			order = append(order, id)
		}
		d["tasks"] = tasks
		if _, has := d["taskOrder"]; !has {
			d["taskOrder"] = order
		}
	}
	s["dailyTasks"] = d
	return s, nil
}

// v6 rebalanced the economy: run progress restarts, the era multiplier and
// the meta layers carry over.
func v5ToV6(s map[string]any) (map[string]any, error) {
	s["population"] = 0
	s["totalPopulation"] = 0
	s["tierLevel"] = 1
	s["buildings"] = map[string]any{}
	s["techCounts"] = map[string]any{}
	s["multipliers"] = map[string]any{"population_cps": 1}
	s["cps"] = 0
	s["clickPower"] = 1
	s["prestigePoints"] = 0
	s["prestigeMult"] = 1
	if _, ok := number(s["eraMult"]); !ok {
		s["eraMult"] = 1
	}
	return s, nil
}

func copyMap(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case int:
		return float64(n), true
	case string:
		f := bignum.ParseFloat(n)
		return f, strings.TrimSpace(n) != ""
	}
	return 0, false
}

func nonNegInt(v any) int {
	f, ok := number(v)
	if !ok || f < 0 {
		return 0
	}
	return int(f)
}

func decimalString(v any) string {
	switch n := v.(type) {
	case string:
		return bignum.ParseDecimal(n).String()
	case json.Number:
		return bignum.ParseDecimal(n.String()).String()
	}
	f, _ := number(v)
	return bignum.FromFloat(f).String()
}
