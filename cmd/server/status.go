package main

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/AaroAskala/Suomidle-sub000/internal/sim/dailytasks"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/store"
)

func formatAmount(v float64) string {
	if math.Abs(v) < 1e6 {
		return humanize.CommafWithDigits(v, 1)
	}
	return humanize.SIWithDigits(v, 2, "")
}

func statusLine(st *store.Store, now time.Time) string {
	s := st.State()
	buff := dailytasks.GainMultiplier(s.DailyTasks, now.UnixMilli())
	saved := "never"
	if s.LastSave > 0 {
		saved = humanize.RelTime(time.UnixMilli(s.LastSave), now, "ago", "from now")
	}
	return fmt.Sprintf("tier %d | löyly %s (%s/s, x%.2f buffs) | total %s | prestige x%.2f | tuhka %s | saved %s",
		s.TierLevel,
		formatAmount(s.Population),
		formatAmount(s.CPS),
		buff,
		formatAmount(s.TotalPopulation),
		s.PrestigeMult,
		s.Maailma.Tuhka.String(),
		saved,
	)
}

func loadLine(rep store.LoadReport) string {
	switch {
	case rep.Fresh:
		return "no save found; starting a new game"
	case rep.Corrupt:
		return "save could not be read; starting a new game"
	case rep.OfflineSeconds > 0:
		d := time.Duration(rep.OfflineSeconds * float64(time.Second))
		return fmt.Sprintf("loaded v%d save; away %s, earned %s löyly", rep.Version, d.Round(time.Second), formatAmount(rep.OfflineGain))
	}
	return fmt.Sprintf("loaded v%d save", rep.Version)
}
