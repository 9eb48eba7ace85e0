package model

import "github.com/shopspring/decimal"

// MaxSafeInteger is the endsAt stamp used for buffs that never expire.
const MaxSafeInteger int64 = 9007199254740991

type Multipliers struct {
	PopulationCPS float64 `json:"population_cps"`
}

// GameState is the root save-able record. Sub-states are held by pointer and
// replaced wholesale by reducers; a reducer that changes nothing returns the
// pointer it was given.
type GameState struct {
	Population      float64        `json:"population"`
	TotalPopulation float64        `json:"totalPopulation"`
	TierLevel       int            `json:"tierLevel"`
	Buildings       map[string]int `json:"buildings"`
	TechCounts      map[string]int `json:"techCounts"`
	Multipliers     Multipliers    `json:"multipliers"`
	CPS             float64        `json:"cps"`
	ClickPower      float64        `json:"clickPower"`

	PrestigePoints int     `json:"prestigePoints"`
	PrestigeMult   float64 `json:"prestigeMult"`

	EraMult               float64 `json:"eraMult"`
	LastMajorVersion      int     `json:"lastMajorVersion"`
	EraPromptAcknowledged bool    `json:"eraPromptAcknowledged"`

	// LastSave is unix millis of the last persisted snapshot, 0 when never saved.
	LastSave int64 `json:"lastSave"`

	Maailma    *MaailmaState    `json:"maailma"`
	DailyTasks *DailyTasksState `json:"dailyTasks"`
}

type MaailmaPurchase struct {
	ID    string `json:"id"`
	Level int    `json:"level"`
}

// MaailmaState holds the meta-prestige currency. Tuhka amounts are always
// whole numbers; TotalTuhkaEarned >= Tuhka.
type MaailmaState struct {
	Tuhka            decimal.Decimal            `json:"tuhka"`
	TotalTuhkaEarned decimal.Decimal            `json:"totalTuhkaEarned"`
	Purchases        map[string]MaailmaPurchase `json:"purchases"`
	TotalResets      int                        `json:"totalResets"`
}

// NewGameState returns the zero run: tier 1, identity multipliers, empty
// ledgers and fresh sub-states.
func NewGameState() *GameState {
	s := &GameState{}
	ResetRun(s)
	s.EraMult = 1
	s.Maailma = NewMaailmaState()
	s.DailyTasks = NewDailyTasksState()
	return s
}

func NewMaailmaState() *MaailmaState {
	return &MaailmaState{
		Tuhka:            decimal.Zero,
		TotalTuhkaEarned: decimal.Zero,
		Purchases:        map[string]MaailmaPurchase{},
	}
}

// ResetRun zeroes the active-run fields in place. Callers own s (it must be a
// fresh copy, never a snapshot shared with anyone else).
func ResetRun(s *GameState) {
	s.Population = 0
	s.TotalPopulation = 0
	s.TierLevel = 1
	s.Buildings = map[string]int{}
	s.TechCounts = map[string]int{}
	s.Multipliers = Multipliers{PopulationCPS: 1}
	s.CPS = 0
	s.ClickPower = 1
	s.PrestigePoints = 0
	s.PrestigeMult = 1
}

// Clone copies the top-level record and its maps. Sub-state pointers are
// shared; replace them instead of mutating through the clone.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	out := *s
	out.Buildings = CloneIntMap(s.Buildings)
	out.TechCounts = CloneIntMap(s.TechCounts)
	return &out
}

func (m *MaailmaState) Clone() *MaailmaState {
	if m == nil {
		return NewMaailmaState()
	}
	out := *m
	out.Purchases = make(map[string]MaailmaPurchase, len(m.Purchases))
	for id, p := range m.Purchases {
		out.Purchases[id] = p
	}
	return &out
}

// Level returns the purchased level of itemID, 0 when never bought.
func (m *MaailmaState) Level(itemID string) int {
	if m == nil {
		return 0
	}
	return m.Purchases[itemID].Level
}

// PurchaseLevels snapshots itemID -> level for telemetry payloads.
func (m *MaailmaState) PurchaseLevels() map[string]int {
	out := map[string]int{}
	if m == nil {
		return out
	}
	for id, p := range m.Purchases {
		out[id] = p.Level
	}
	return out
}

// Normalize fills nil maps and sub-states left behind by older or partial
// documents and clamps fields to their valid ranges.
func (s *GameState) Normalize() {
	if s.Buildings == nil {
		s.Buildings = map[string]int{}
	}
	if s.TechCounts == nil {
		s.TechCounts = map[string]int{}
	}
	if s.TierLevel < 1 {
		s.TierLevel = 1
	}
	s.Population = finiteNonNeg(s.Population)
	s.TotalPopulation = finiteNonNeg(s.TotalPopulation)
	if s.TotalPopulation < s.Population {
		s.TotalPopulation = s.Population
	}
	s.CPS = finiteNonNeg(s.CPS)
	s.Multipliers.PopulationCPS = identityIfBad(s.Multipliers.PopulationCPS)
	s.ClickPower = identityIfBad(s.ClickPower)
	s.PrestigeMult = identityIfBad(s.PrestigeMult)
	s.EraMult = identityIfBad(s.EraMult)
	if s.PrestigePoints < 0 {
		s.PrestigePoints = 0
	}
	if s.LastSave < 0 {
		s.LastSave = 0
	}
	if s.Maailma == nil {
		s.Maailma = NewMaailmaState()
	} else {
		s.Maailma.normalize()
	}
	if s.DailyTasks == nil {
		s.DailyTasks = NewDailyTasksState()
	} else {
		s.DailyTasks.normalize()
	}
}

func (m *MaailmaState) normalize() {
	if m.Purchases == nil {
		m.Purchases = map[string]MaailmaPurchase{}
	}
	for id, p := range m.Purchases {
		if id == "" {
			delete(m.Purchases, id)
			continue
		}
		if p.ID == "" {
			p.ID = id
		}
		if p.Level < 0 {
			p.Level = 0
		}
		m.Purchases[id] = p
	}
	if m.Tuhka.IsNegative() {
		m.Tuhka = decimal.Zero
	}
	m.Tuhka = m.Tuhka.Floor()
	m.TotalTuhkaEarned = m.TotalTuhkaEarned.Floor()
	if m.TotalTuhkaEarned.LessThan(m.Tuhka) {
		m.TotalTuhkaEarned = m.Tuhka
	}
	if m.TotalResets < 0 {
		m.TotalResets = 0
	}
}

func CloneIntMap(src map[string]int) map[string]int {
	out := make(map[string]int, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func CloneFloatMap(src map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
