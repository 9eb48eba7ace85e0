package save

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaroAskala/Suomidle-sub000/internal/sim/model"
)

func TestDecode_DuplicateLegacyTechDiscardsSave(t *testing.T) {
	raw := []byte(`{"version":2,"state":{
		"population":12345,"totalPopulation":99999,"tierLevel":4,
		"buildings":{"kylakauppa":7},
		"techOwned":["vihta","kiulu","vihta"]}}`)

	s, version, err := Decode(raw)
	require.ErrorIs(t, err, ErrCorruptSave)
	require.NotNil(t, s)
	assert.Equal(t, 2, version)
	assert.Equal(t, 0.0, s.Population)
	assert.Equal(t, 1, s.TierLevel)
	assert.Empty(t, s.Buildings)
	assert.Empty(t, s.TechCounts)
}

func TestDecode_V1ThroughV6(t *testing.T) {
	raw := []byte(`{"version":1,"state":{
		"population":500,"tier":3,"eraMult":2.5,"lastSave":1760000000000,
		"techOwned":["vihta","kiulu"],
		"maailma":{"tuhka":12.9,"totalTuhkaEarned":4,"purchases":[{"id":"oikotie","level":2},{"level":1},{"id":"halpa_puu","level":-3}],"totalResets":2},
		"dailyTasks":{"rolledDate":"2026-10-14","activeBuff":{"taskId":"t1","rewardId":"r","type":"temp_gain_mult","value":0.1,"endsAt":1760000100000},
			"tasks":[{"id":"t1","progress":3},{"progress":9}]}}}`)

	s, version, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, 1, version)

	// v6 restarts run progress but keeps the era multiplier.
	assert.Equal(t, 0.0, s.Population)
	assert.Equal(t, 1, s.TierLevel)
	assert.Empty(t, s.TechCounts)
	assert.Equal(t, 2.5, s.EraMult)
	assert.Equal(t, int64(1760000000000), s.LastSave)

	assert.Equal(t, "12", s.Maailma.Tuhka.String())
	assert.Equal(t, "12", s.Maailma.TotalTuhkaEarned.String(), "earned never below balance")
	assert.Equal(t, 2, s.Maailma.Level("oikotie"))
	assert.Equal(t, 0, s.Maailma.Level("halpa_puu"))
	assert.Len(t, s.Maailma.Purchases, 2)
	assert.Equal(t, 2, s.Maailma.TotalResets)

	require.Len(t, s.DailyTasks.ActiveBuffs, 1)
	assert.Equal(t, "t1", s.DailyTasks.ActiveBuffs[0].TaskID)
	assert.Equal(t, []string{"t1"}, s.DailyTasks.TaskOrder)
	assert.Equal(t, 3.0, s.DailyTasks.Tasks["t1"].Progress)
}

func TestMigrate_V2ToV3Counts(t *testing.T) {
	out, err := Migrate(2, map[string]any{"techOwned": []any{"vihta", "kiulu"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"vihta": 1, "kiulu": 1}, out["techCounts"])
	assert.NotContains(t, out, "techOwned")
}

func TestMigrate_DoesNotTouchInput(t *testing.T) {
	in := map[string]any{"tier": 3}
	_, err := Migrate(1, in)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"tier": 3}, in)
}

func TestDecode_FutureVersionRefused(t *testing.T) {
	_, version, err := Decode([]byte(`{"version":7,"state":{}}`))
	assert.True(t, errors.Is(err, ErrUnknownVersion))
	assert.Equal(t, 7, version)
}

func TestDecode_Garbage(t *testing.T) {
	_, _, err := Decode([]byte(`not json`))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCorruptSave))
}

func TestEncodeDecode_Current(t *testing.T) {
	s := model.NewGameState()
	s.Population = 1.5e20
	s.TierLevel = 6
	s.Buildings["puusauna"] = 3
	s.TechCounts["vihta"] = 1
	s.EraMult = 2
	s.Maailma.Tuhka = decimal.RequireFromString("123456789012345678901234567890")
	s.Maailma.TotalTuhkaEarned = s.Maailma.Tuhka
	s.Maailma.Purchases["oikotie"] = model.MaailmaPurchase{ID: "oikotie", Level: 1}
	s.DailyTasks.RolledDate = "2026-10-15"
	s.DailyTasks.TaskOrder = []string{"click_100"}
	s.DailyTasks.Tasks["click_100"] = model.DailyTaskInstance{ID: "click_100", RolledAt: "2026-10-15", Progress: 40,
		ConditionState: &model.ConditionState{Type: model.CondCounter, Count: 40}}

	raw, err := Encode(s)
	require.NoError(t, err)
	got, version, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, version)

	assert.Equal(t, 1.5e20, got.Population)
	assert.Equal(t, 6, got.TierLevel)
	assert.Equal(t, s.Buildings, got.Buildings)
	assert.True(t, s.Maailma.Tuhka.Equal(got.Maailma.Tuhka))
	assert.Equal(t, 40.0, got.DailyTasks.Tasks["click_100"].ConditionState.Count)
}

func TestStorageKey_Isolated(t *testing.T) {
	assert.Equal(t, "suomidle:local:save:main", StorageKey("", ""))
	assert.Equal(t, "suomidle:preview-42:save:main", StorageKey(" preview-42 ", "main"))
	assert.NotEqual(t, StorageKey("prod", "main"), StorageKey("preview", "main"))
}

func TestEraGate(t *testing.T) {
	s := model.NewGameState()
	s.LastMajorVersion = 1
	s.EraMult = 2
	s.Population = 1000
	s.Maailma.Purchases["oikotie"] = model.MaailmaPurchase{ID: "oikotie", Level: 1}

	assert.Same(t, s, EraGate{CurrentMajor: 2}.Apply(s), "headless never prompts")

	asked := 0
	decline := EraGate{CurrentMajor: 2, Prompter: PrompterFunc(func(from, to int) bool {
		asked++
		assert.Equal(t, 1, from)
		assert.Equal(t, 2, to)
		return false
	})}
	declined := decline.Apply(s)
	assert.True(t, declined.EraPromptAcknowledged)
	assert.Equal(t, 1000.0, declined.Population)
	assert.Same(t, declined, decline.Apply(declined), "no second prompt")
	assert.Equal(t, 1, asked)

	accepted := EraGate{CurrentMajor: 2, Prompter: PrompterFunc(func(int, int) bool { return true })}.Apply(s)
	assert.Equal(t, 3.0, accepted.EraMult)
	assert.Equal(t, 0.0, accepted.Population)
	assert.Equal(t, 2, accepted.LastMajorVersion)
	assert.Equal(t, 1, accepted.Maailma.Level("oikotie"))

	current := s.Clone()
	current.LastMajorVersion = 2
	assert.Same(t, current, EraGate{CurrentMajor: 2, Prompter: PrompterFunc(func(int, int) bool { return true })}.Apply(current))
}
