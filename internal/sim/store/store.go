// Package store owns the single live GameState and funnels every change
// through one mutex: ticks, player actions, load and save.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AaroAskala/Suomidle-sub000/internal/persistence/archive"
	"github.com/AaroAskala/Suomidle-sub000/internal/persistence/save"
	"github.com/AaroAskala/Suomidle-sub000/internal/persistence/slots"
	"github.com/AaroAskala/Suomidle-sub000/internal/persistence/snapshot"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/bonuses"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/catalogs"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/dailytasks"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/dailytasks/condition"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/maailma"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/model"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/offline"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/production"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/telemetry"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/tuning"
)

// Game events consumed by daily task conditions.
const (
	EventClick       = "click"
	EventBuyBuilding = "buy_building"
	EventBuyTech     = "buy_tech"
	EventPrestige    = "prestige"
)

// maxTickStep bounds the production credited by a single live tick; longer
// gaps are the offline path's job.
const maxTickStep = time.Second

// Backend persists encoded save documents. *slots.Store implements it.
type Backend interface {
	Put(ctx context.Context, slot string, version int, doc []byte, savedAt int64) error
	Get(ctx context.Context, slot string) (slots.Record, error)
}

type Config struct {
	Catalogs *catalogs.Catalogs
	Tuning   tuning.Tuning
	Hooks    *telemetry.Hooks
	Logger   *slog.Logger

	Backend   Backend
	Namespace string
	Slot      string
	// DataDir receives reset archives; empty disables archiving.
	DataDir string

	EraGate save.EraGate
}

type Store struct {
	mu sync.Mutex

	cfg     Config
	log     *slog.Logger
	daily   *dailytasks.Engine
	meta    *maailma.Engine
	state   *model.GameState
	bonuses bonuses.PermanentBonuses

	lastTick   int64
	ticks      uint64
	foreground bool
}

// New starts a fresh game; call Load to resume a saved one.
func New(cfg Config) (*Store, error) {
	if cfg.Catalogs == nil {
		return nil, errors.New("store: nil catalogs")
	}
	cfg.Tuning.Normalize()
	if cfg.Slot == "" {
		cfg.Slot = "main"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Hooks == nil {
		cfg.Hooks = &telemetry.Hooks{Logger: logger}
	}
	s := &Store{
		cfg:        cfg,
		log:        logger,
		daily:      dailytasks.New(cfg.Catalogs.DailyTasks, cfg.Hooks),
		foreground: true,
		meta: &maailma.Engine{
			Shop:         cfg.Catalogs.Shop,
			Buildings:    cfg.Catalogs.Buildings,
			AwardDivisor: cfg.Tuning.Maailma.AwardDivisor,
			Hooks:        cfg.Hooks,
		},
	}
	s.adopt(s.freshState())
	return s, nil
}

func (s *Store) freshState() *model.GameState {
	st := model.NewGameState()
	st.LastMajorVersion = s.cfg.Tuning.MajorVersion
	return st
}

// adopt installs st as the live state with bonuses, permanent buffs and
// derived rates rebuilt from its Maailma ledger. Caller holds mu (or owns s
// exclusively).
func (s *Store) adopt(st *model.GameState) {
	s.bonuses = s.meta.Bonuses(st.Maailma)
	s.state = production.Recompute(s.meta.SyncBuffs(st), s.bonuses, s.cfg.Catalogs.Buildings)
}

// State returns the current snapshot. It must be treated as read-only.
func (s *Store) State() *model.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Catalogs is the content the store was built with. It must not be mutated.
func (s *Store) Catalogs() *catalogs.Catalogs { return s.cfg.Catalogs }

func (s *Store) Bonuses() bonuses.PermanentBonuses {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bonuses
}

// SetForeground toggles uptime accrual.
func (s *Store) SetForeground(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.foreground = on
}

func (s *Store) context() dailytasks.Context {
	st := s.state
	return dailytasks.Context{
		Tier:            st.TierLevel,
		PrestigeMult:    st.PrestigeMult,
		Population:      st.Population,
		TotalPopulation: st.TotalPopulation,
		Features:        s.cfg.Tuning.Features(st.TierLevel),
		Foreground:      s.foreground,
	}
}

func (s *Store) withDaily(d *model.DailyTasksState) {
	if d == s.state.DailyTasks {
		return
	}
	next := s.state.Clone()
	next.DailyTasks = d
	s.state = next
}

func (s *Store) ensureToday(now int64) {
	s.withDaily(s.daily.EnsureForToday(s.state.DailyTasks, s.context(), now))
}

type LoadReport struct {
	Fresh          bool
	Version        int
	Corrupt        bool
	OfflineSeconds float64
	OfflineGain    float64
}

// Load reads the configured slot, migrates it, passes it through the era
// gate, credits offline production and re-syncs daily tasks. A missing slot
// starts a fresh game and so does an unreadable one. Saves from a newer
// build are refused.
func (s *Store) Load(ctx context.Context, now time.Time) (LoadReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rep LoadReport
	st := s.freshState()
	if s.cfg.Backend == nil {
		rep.Fresh = true
	} else {
		rec, err := s.cfg.Backend.Get(ctx, s.cfg.Slot)
		switch {
		case errors.Is(err, slots.ErrNotFound):
			rep.Fresh = true
		case err != nil:
			return rep, fmt.Errorf("load %s: %w", save.StorageKey(s.cfg.Namespace, s.cfg.Slot), err)
		default:
			decoded, version, err := save.Decode(rec.Document)
			rep.Version = version
			switch {
			case errors.Is(err, save.ErrUnknownVersion):
				return rep, fmt.Errorf("decode %s: %w", save.StorageKey(s.cfg.Namespace, s.cfg.Slot), err)
			case err != nil:
				rep.Corrupt = true
				s.log.Warn("discarding unreadable save", "slot", s.cfg.Slot, "version", version, "err", err)
			default:
				st = decoded
			}
		}
	}
	if rep.Fresh || rep.Corrupt {
		st.LastMajorVersion = s.cfg.Tuning.MajorVersion
	}

	st = st.Clone()
	st.EraPromptAcknowledged = false
	st = s.cfg.EraGate.Apply(st)

	s.adopt(st)
	caught := offline.CatchUp(s.state, s.bonuses, now.UnixMilli(), s.cfg.Tuning.Offline.MaxSeconds)
	s.state = caught.State
	rep.OfflineSeconds = caught.ElapsedSeconds
	rep.OfflineGain = caught.Gained

	ms := now.UnixMilli()
	s.ensureToday(ms)
	bg := s.context()
	bg.Foreground = false
	s.withDaily(s.daily.UpdateMetrics(s.state.DailyTasks, bg, ms))
	s.withDaily(s.daily.PruneExpiredBuffs(s.state.DailyTasks, ms))
	s.lastTick = ms

	s.log.Info("game loaded",
		"slot", s.cfg.Slot,
		"fresh", rep.Fresh,
		"version", rep.Version,
		"offline_s", rep.OfflineSeconds,
		"offline_gain", rep.OfflineGain,
	)
	return rep, nil
}

// Tick advances one simulation step: the daily rotation is checked first,
// then buffs are pruned, production is credited and metric-driven tasks
// are re-evaluated last.
func (s *Store) Tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms := now.UnixMilli()
	s.ensureToday(ms)
	s.withDaily(s.daily.PruneExpiredBuffs(s.state.DailyTasks, ms))

	if s.lastTick > 0 && ms > s.lastTick {
		dt := math.Min(float64(ms-s.lastTick)/1000, maxTickStep.Seconds())
		rate := production.LivePerSecond(s.state, s.bonuses, dailytasks.GainMultiplier(s.state.DailyTasks, ms))
		if gain := rate * dt; gain > 0 {
			next := s.state.Clone()
			next.Population += gain
			next.TotalPopulation += gain
			s.state = next
		}
	}
	s.lastTick = ms
	s.ticks++

	s.withDaily(s.daily.UpdateMetrics(s.state.DailyTasks, s.context(), ms))
}

// Ticks is the number of Tick calls so far.
func (s *Store) Ticks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// Dispatch feeds a game event to the daily tasks after making sure today's
// rotation is in place. An event without a timestamp happens at now.
func (s *Store) Dispatch(ev condition.Event, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.At == 0 {
		ev.At = now.UnixMilli()
	}
	s.dispatchLocked(ev)
}

func (s *Store) dispatchLocked(ev condition.Event) {
	s.ensureToday(ev.At)
	s.withDaily(s.daily.HandleEvent(s.state.DailyTasks, ev, ev.At))
}

// Save stamps lastSave and writes the state to the backend.
func (s *Store) Save(ctx context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.Backend == nil {
		return errors.New("store: no save backend")
	}
	next := s.state.Clone()
	next.LastSave = now.UnixMilli()
	doc, err := save.Encode(next)
	if err != nil {
		return err
	}
	if err := s.cfg.Backend.Put(ctx, s.cfg.Slot, save.CurrentVersion, doc, next.LastSave); err != nil {
		return err
	}
	s.state = next
	return nil
}

// archiveLocked copies the current state into the reset archive before a
// Maailma burn. Failures are logged; the burn goes ahead regardless.
func (s *Store) archiveLocked(now int64, award decimal.Decimal) {
	if s.cfg.DataDir == "" {
		return
	}
	doc, err := save.Encode(s.state)
	if err != nil {
		s.log.Warn("reset archive: encode", "err", err)
		return
	}
	h := snapshot.NewHeader(save.CurrentVersion, s.cfg.Namespace, s.cfg.Slot, now)
	meta := archive.ResetArchiveMeta{
		Reset:       s.state.Maailma.TotalResets + 1,
		HighestTier: s.state.TierLevel,
		Award:       award.String(),
	}
	if _, err := archive.ArchiveReset(s.cfg.DataDir, meta, h, doc); err != nil {
		s.log.Warn("reset archive: write", "err", err)
	}
}
