package stats

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/tuimeter/internal/model"
	"github.com/verte-zerg/tuimeter/internal/synergy"
)

func TestRenderHeader(t *testing.T) {
	var buf bytes.Buffer
	enc := &model.Encounter{
		CurrentBossName:      "Valtan",
		Duration:             125_000,
		Cleared:              true,
		EncounterDamageStats: model.EncounterDamageStats{TotalDamageDealt: 250_000_000},
	}
	require.NoError(t, RenderHeader(&buf, enc))
	assert.Equal(t, "Valtan  2:05  Total 250.00m  DPS 2.00m  cleared\n", buf.String())

	buf.Reset()
	require.NoError(t, RenderHeader(&buf, nil))
	assert.Equal(t, "No encounter.\n", buf.String())
}

func TestRenderDamageTable(t *testing.T) {
	ps := players(map[string]int64{"A": 50_000, "B": 30_000, "C": 80_000, "D": 10_000})
	ps[0].Skills = map[int]*model.Skill{1: {Hits: 4, Crits: 1}}
	parties := Partition(ps, [][]string{{"A", "B"}, {"C", "D"}}, DamageMetric)

	var buf bytes.Buffer
	require.NoError(t, RenderDamageTable(&buf, parties, 10_000))
	out := buf.String()

	assert.Contains(t, out, "Party 1\n")
	assert.Contains(t, out, "Party 2\n")
	assert.Less(t, strings.Index(out, "Party 1"), strings.Index(out, "Party 2"))
	assert.Contains(t, out, "62.5")
	assert.Contains(t, out, "80.0k")
	assert.Contains(t, out, "8.0k")

	buf.Reset()
	require.NoError(t, RenderDamageTable(&buf, []Party{{}}, 0))
	assert.Equal(t, "No players found.\n", buf.String())
}

func TestRenderBuffTable(t *testing.T) {
	e := buffEffect(211400)
	e.Source.Skill.Name = "Serenade of Courage"
	grouped := synergy.Grouped{group("__Bard_2_211400", e)}
	ps := players(map[string]int64{"Alice": 100, "Bob": 50})
	parties := Partition(ps, nil, DamageMetric)

	var buf bytes.Buffer
	require.NoError(t, RenderBuffTable(&buf, BuffTable{
		Title:   "Party Buffs",
		Grouped: grouped,
		Parties: parties,
		Keys:    [][]string{{"__Bard_2_211400"}},
		Details: map[string][]model.BuffDetails{
			"Alice": {{ID: "__Bard_2_211400", Percentage: "42.0", Buffs: []model.Buff{{Percentage: "42.0", Bonus: 15}}}},
		},
	}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Party Buffs", lines[0])
	assert.Equal(t, "Name   Serenade of Courage", lines[1])
	assert.Equal(t, "Alice           42.0 (+15)", lines[2])
	assert.Equal(t, "Bob", lines[3])
}

func TestRenderBuffTableWithoutKeys(t *testing.T) {
	var buf bytes.Buffer
	parties := Partition(players(map[string]int64{"Alice": 1}), nil, DamageMetric)
	require.NoError(t, RenderBuffTable(&buf, BuffTable{Parties: parties}))
	assert.Equal(t, "Party 1: no synergies.\n\n", buf.String())
}

func TestRenderSkillBuffs(t *testing.T) {
	grouped := synergy.Grouped{group("a", buffEffect(10))}
	skills := []*model.Skill{{ID: 7, Name: "Slash", TotalDamage: 2000}}

	var buf bytes.Buffer
	require.NoError(t, RenderSkillBuffs(&buf, grouped, skills, []string{"a"}, map[int][]model.BuffDetails{
		7: {{ID: "a", Percentage: "25.0"}},
	}))

	out := buf.String()
	assert.Contains(t, out, "Slash")
	assert.Contains(t, out, "2.0k")
	assert.Contains(t, out, "25.0")
}

func TestRenderEncounterList(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderEncounterList(&buf, nil))
	assert.Equal(t, "No encounters found.\n", buf.String())

	buf.Reset()
	require.NoError(t, RenderEncounterList(&buf, []model.EncounterPreview{
		{ID: 3, Boss: "Valtan", DurationMs: 61_000, Cleared: true, LocalPlayer: "Alice"},
	}))
	assert.Contains(t, buf.String(), "Valtan")
	assert.Contains(t, buf.String(), "1:01")
	assert.Contains(t, buf.String(), "yes")
}

func TestGroupLabel(t *testing.T) {
	withSkill := buffEffect(1)
	withSkill.Source.Skill.Name = "Sound Shock"
	noSkill := &model.StatusEffect{ID: 2, Source: model.StatusEffectSource{Name: "Whirlwind"}}

	assert.Equal(t, "Sound Shock", GroupLabel(group("Bard_Sound Shock", withSkill)))
	assert.Equal(t, "Whirlwind", GroupLabel(group("etc_Whirlwind", noSkill)))
	assert.Equal(t, "Salvation", GroupLabel(synergy.Group{Key: "_set_Salvation"}))
	assert.Equal(t, "cook", GroupLabel(synergy.Group{Key: "cook"}))
}

func TestCritRate(t *testing.T) {
	e := &model.Entity{Skills: map[int]*model.Skill{
		1: {Hits: 3, Crits: 1},
		2: {Hits: 1, Crits: 1},
	}}
	assert.Equal(t, 50.0, CritRate(e))
	assert.Equal(t, 0.0, CritRate(&model.Entity{}))
}
