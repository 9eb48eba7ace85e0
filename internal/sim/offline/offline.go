// Package offline back-fills production for the time a save sat on disk.
package offline

import (
	"math"

	"github.com/AaroAskala/Suomidle-sub000/internal/sim/bonuses"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/model"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/production"
)

type Result struct {
	State          *model.GameState
	ElapsedSeconds float64
	Gained         float64
}

// CatchUp credits the production earned between s.LastSave and now at the
// offline rate and stamps LastSave = now. maxSeconds > 0 caps the credited
// time. A save with no LastSave is only stamped; a second call with the
// same now grants nothing and returns s itself.
func CatchUp(s *model.GameState, b bonuses.PermanentBonuses, now int64, maxSeconds float64) Result {
	if s.LastSave > 0 && now <= s.LastSave {
		return Result{State: s}
	}
	next := s.Clone()
	next.LastSave = now
	if s.LastSave <= 0 {
		return Result{State: next}
	}

	elapsed := float64(now-s.LastSave) / 1000
	if maxSeconds > 0 {
		elapsed = math.Min(elapsed, maxSeconds)
	}
	gain := elapsed * production.OfflinePerSecond(s, b)
	if math.IsNaN(gain) || math.IsInf(gain, 0) || gain < 0 {
		gain = 0
	}
	next.Population += gain
	next.TotalPopulation += gain
	return Result{State: next, ElapsedSeconds: elapsed, Gained: gain}
}
