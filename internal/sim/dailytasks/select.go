package dailytasks

import "github.com/AaroAskala/Suomidle-sub000/internal/sim/catalogs"

// Eligible filters the catalog to tasks the player can be given: tier and
// feature gates met, max_per_day not yet used up, and a drawable weight when
// the rotation is weighted. Catalog order is preserved.
func Eligible(cat catalogs.DailyTaskCatalog, ctx Context, rolledToday map[string]int) []catalogs.TaskDef {
	var out []catalogs.TaskDef
	for _, t := range cat.Tasks {
		if t.MinTier > ctx.Tier {
			continue
		}
		if t.RequiresFeature != "" && !ctx.Features[t.RequiresFeature] {
			continue
		}
		if t.MaxPerDay > 0 && rolledToday[t.ID] >= t.MaxPerDay {
			continue
		}
		if cat.Rotation.Weighted && t.Weight <= 0 {
			continue
		}
		out = append(out, t)
	}
	return out
}

// SelectTasks draws up to tasks_per_day tasks without replacement. Once a
// category reaches its cap the rest of that category leaves the pool.
func SelectTasks(cat catalogs.DailyTaskCatalog, rng *RNG, ctx Context, rolledToday map[string]int) []catalogs.TaskDef {
	pool := Eligible(cat, ctx, rolledToday)
	rot := cat.Rotation
	perCategory := map[string]int{}
	var picked []catalogs.TaskDef

	for len(picked) < rot.TasksPerDay && len(pool) > 0 {
		i := draw(pool, rng, rot.Weighted)
		t := pool[i]
		picked = append(picked, t)
		pool = append(pool[:i:i], pool[i+1:]...)

		perCategory[t.Category]++
		if limit := rot.CategoryCap(t.Category); limit > 0 && perCategory[t.Category] >= limit {
			kept := pool[:0:0]
			for _, p := range pool {
				if p.Category != t.Category {
					kept = append(kept, p)
				}
			}
			pool = kept
		}
	}
	return picked
}

func draw(pool []catalogs.TaskDef, rng *RNG, weighted bool) int {
	if !weighted {
		return rng.Intn(len(pool))
	}
	total := 0.0
	for _, t := range pool {
		total += t.Weight
	}
	r := rng.Float64() * total
	acc := 0.0
	for i, t := range pool {
		acc += t.Weight
		if r < acc {
			return i
		}
	}
	return len(pool) - 1
}
