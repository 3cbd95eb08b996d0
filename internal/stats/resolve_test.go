package stats

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/tuimeter/internal/model"
	"github.com/verte-zerg/tuimeter/internal/synergy"
)

func buffEffect(id int) *model.StatusEffect {
	return &model.StatusEffect{
		ID:     id,
		Kind:   model.KindBuff,
		Source: model.StatusEffectSource{Icon: "buff.png", Skill: &model.SourceSkill{Icon: "skill.png"}},
	}
}

func group(key string, effects ...*model.StatusEffect) synergy.Group {
	g := synergy.Group{Key: key}
	for _, e := range effects {
		g.Members = append(g.Members, synergy.Member{ID: e.ID, Effect: e})
	}
	return g
}

func scenarioPlayer() *model.Entity {
	return &model.Entity{
		Name:       "Alice",
		EntityType: model.EntityPlayer,
		Skills: map[int]*model.Skill{
			1: {ID: 1, TotalDamage: 200, Special: true},
			2: {ID: 2, TotalDamage: 800},
		},
		DamageStats: model.DamageStats{
			DamageDealt:          1000,
			HyperAwakeningDamage: 100,
			BuffedBy:             map[int]int64{10: 350},
		},
	}
}

func TestResolveForPlayerDenominator(t *testing.T) {
	r := NewResolver(synergy.DefaultTables())
	grouped := synergy.Grouped{group("a", buffEffect(10))}

	details := r.ResolveForPlayer(grouped, scenarioPlayer(), []string{"a"})

	require.Len(t, details, 1)
	assert.Equal(t, "a", details[0].ID)
	assert.Equal(t, "50.0", details[0].Percentage)
	require.Len(t, details[0].Buffs, 1)
	assert.Equal(t, model.Buff{Icon: "buff.png", Percentage: "50.0", SourceSkillIcon: "skill.png"}, details[0].Buffs[0])
}

func TestResolveForPlayerHyperTechniqueKeepsHyperDamage(t *testing.T) {
	r := NewResolver(synergy.DefaultTables())
	technique := buffEffect(362600)
	player := scenarioPlayer()
	player.DamageStats.BuffedBy = map[int]int64{10: 350, 362600: 400}
	grouped := synergy.Grouped{
		group("a", buffEffect(10)),
		group("b", technique),
	}

	details := r.ResolveForPlayer(grouped, player, []string{"a", "b"})

	require.Len(t, details, 2)
	assert.Equal(t, "50.0", details[0].Percentage, "denominator 700")
	assert.Equal(t, "50.0", details[1].Percentage, "denominator 800")
}

func TestResolveForPlayerExactDenominatorIsHundred(t *testing.T) {
	r := NewResolver(nil)
	player := &model.Entity{DamageStats: model.DamageStats{
		DamageDealt: 400,
		BuffedBy:    map[int]int64{10: 400},
	}}
	details := r.ResolveForPlayer(synergy.Grouped{group("a", buffEffect(10))}, player, []string{"a"})
	require.Len(t, details, 1)
	assert.Equal(t, "100", details[0].Percentage)
	assert.Equal(t, "100", details[0].Buffs[0].Percentage)
}

func TestResolveForPlayerUnsetVersusZero(t *testing.T) {
	r := NewResolver(nil)
	player := &model.Entity{DamageStats: model.DamageStats{
		DamageDealt: 10000,
		BuffedBy:    map[int]int64{10: 0, 11: 4},
	}}
	grouped := synergy.Grouped{
		group("none", buffEffect(10)),
		group("tiny", buffEffect(11)),
	}

	details := r.ResolveForPlayer(grouped, player, []string{"none", "tiny"})

	require.Len(t, details, 2)
	assert.False(t, details[0].HasPercentage())
	require.Len(t, details[0].Buffs, 1)
	assert.Equal(t, "0.0", details[0].Buffs[0].Percentage)
	assert.True(t, details[1].HasPercentage())
	assert.Equal(t, "0.0", details[1].Percentage)
}

func TestResolveForPlayerZeroDenominator(t *testing.T) {
	r := NewResolver(nil)
	player := &model.Entity{DamageStats: model.DamageStats{BuffedBy: map[int]int64{10: 50}}}

	details := r.ResolveForPlayer(synergy.Grouped{group("a", buffEffect(10))}, player, []string{"a"})

	require.Len(t, details, 1)
	assert.False(t, details[0].HasPercentage())
	assert.Equal(t, "0.0", details[0].Buffs[0].Percentage)
}

func TestResolveForPlayerSumWithinTolerance(t *testing.T) {
	r := NewResolver(nil)
	player := &model.Entity{DamageStats: model.DamageStats{
		DamageDealt: 3000,
		BuffedBy:    map[int]int64{10: 1001, 11: 1001, 12: 1},
	}}
	grouped := synergy.Grouped{group("a", buffEffect(10), buffEffect(11), buffEffect(12))}

	details := r.ResolveForPlayer(grouped, player, []string{"a"})

	require.Len(t, details, 1)
	groupPct, err := strconv.ParseFloat(details[0].Percentage, 64)
	require.NoError(t, err)
	var sum float64
	for _, b := range details[0].Buffs {
		v, err := strconv.ParseFloat(b.Percentage, 64)
		require.NoError(t, err)
		sum += v
	}
	assert.InDelta(t, groupPct, sum, 0.05*float64(len(details[0].Buffs)))
}

func TestResolveForPlayerDebuffs(t *testing.T) {
	r := NewResolver(nil)
	debuff := &model.StatusEffect{ID: 20, Kind: model.KindDebuff}
	player := &model.Entity{DamageStats: model.DamageStats{
		DamageDealt: 1000,
		// A buffedBy entry for a debuff id is not counted.
		BuffedBy:   map[int]int64{20: 900},
		DebuffedBy: map[int]int64{20: 250},
	}}

	details := r.ResolveForPlayer(synergy.Grouped{group("d", debuff)}, player, []string{"d"})

	require.Len(t, details, 1)
	assert.Equal(t, "25.0", details[0].Percentage)
}

func TestResolveForPlayerSkipsMissingKeys(t *testing.T) {
	r := NewResolver(nil)
	details := r.ResolveForPlayer(synergy.Grouped{group("a", buffEffect(10))}, scenarioPlayer(), []string{"missing", "a"})
	require.Len(t, details, 1)
	assert.Equal(t, "a", details[0].ID)
	assert.Nil(t, r.ResolveForPlayer(nil, nil, []string{"a"}))
}

func TestResolveForSkill(t *testing.T) {
	r := NewResolver(nil)
	skill := &model.Skill{TotalDamage: 200, BuffedBy: map[int]int64{10: 50}}
	grouped := synergy.Grouped{group("a", buffEffect(10)), group("b", buffEffect(11))}

	details := r.ResolveForSkill(grouped, skill)

	require.Len(t, details, 2)
	assert.Equal(t, "25.0", details[0].Percentage)
	assert.False(t, details[1].HasPercentage())
	assert.Empty(t, details[1].Buffs)
}

func TestResolveShields(t *testing.T) {
	r := NewResolver(nil)
	player := &model.Entity{DamageStats: model.DamageStats{
		ShieldsGiven:     400,
		ShieldsGivenBy:   map[int]int64{30: 100},
		DamageAbsorbed:   50,
		DamageAbsorbedBy: map[int]int64{30: 50},
	}}
	grouped := synergy.Grouped{group("s", buffEffect(30))}

	given := r.ResolveShields(grouped, player, model.ShieldGiven, []string{"s"})
	require.Len(t, given, 1)
	assert.Equal(t, "25.0", given[0].Percentage)

	absorbed := r.ResolveShields(grouped, player, model.ShieldAbsorbed, []string{"s"})
	require.Len(t, absorbed, 1)
	assert.Equal(t, "100", absorbed[0].Percentage)

	received := r.ResolveShields(grouped, player, model.ShieldReceived, []string{"s"})
	require.Len(t, received, 1)
	assert.False(t, received[0].HasPercentage())
}

func TestResolveBonusAnnotation(t *testing.T) {
	r := NewResolver(synergy.DefaultTables())
	e := buffEffect(211400)
	e.Source.Desc = "Increases damage dealt by 15%."
	player := &model.Entity{DamageStats: model.DamageStats{
		DamageDealt: 100,
		BuffedBy:    map[int]int64{211400: 10},
	}}

	details := r.ResolveForPlayer(synergy.Grouped{group("__Bard_2_211400", e)}, player, []string{"__Bard_2_211400"})

	require.Len(t, details, 1)
	assert.Equal(t, 15, details[0].Buffs[0].Bonus)
}

func TestScopeAndMergeKeys(t *testing.T) {
	grouped := synergy.Grouped{
		group("a", buffEffect(1)),
		group("b", buffEffect(2), buffEffect(3)),
		group("c", buffEffect(4)),
	}
	assert.Equal(t, []string{"b"}, ScopeKeys(grouped, map[int]int64{3: 1}, nil))
	assert.Equal(t, []string{"a", "c"}, ScopeKeys(grouped, map[int]int64{1: 1}, map[int]int64{4: 1}))
	assert.Empty(t, ScopeKeys(grouped, nil, nil))
	assert.Equal(t, []string{"a", "b", "c"}, MergeKeys(grouped, []string{"c", "a"}, []string{"b", "zz"}))
}
