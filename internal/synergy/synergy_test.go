package synergy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/tuimeter/internal/model"
)

const (
	classBard      = 204
	classBerserker = 102
	classDeadeye   = 503
)

func effect(id int, cat model.Category, target model.Target, mods ...func(*model.StatusEffect)) *model.StatusEffect {
	e := &model.StatusEffect{
		ID:       id,
		Kind:     model.KindBuff,
		Category: cat,
		Target:   target,
		BuffType: model.BuffTypeDamage,
		Source:   model.StatusEffectSource{Name: "src", Icon: "icon.png"},
	}
	for _, mod := range mods {
		mod(e)
	}
	return e
}

func withSkill(id int, name string, classID int) func(*model.StatusEffect) {
	return func(e *model.StatusEffect) {
		e.Source.Skill = &model.SourceSkill{ID: id, Name: name, ClassID: classID, Icon: "skill.png"}
	}
}

func withGroup(group int) func(*model.StatusEffect) {
	return func(e *model.StatusEffect) { e.UniqueGroup = group }
}

func withBuffType(bt model.BuffType) func(*model.StatusEffect) {
	return func(e *model.StatusEffect) { e.BuffType = bt }
}

func TestClassifyFirstMatchWins(t *testing.T) {
	tests := []struct {
		name   string
		effect *model.StatusEffect
		want   Class
	}{
		{"party class skill", effect(1, model.CategoryClassSkill, model.TargetParty), ClassPartySynergy},
		{"party identity", effect(2, model.CategoryIdentity, model.TargetParty), ClassPartySynergy},
		{"self class skill", effect(3, model.CategoryClassSkill, model.TargetSelf), ClassSelfSkillSynergy},
		{"ability other target", effect(4, model.CategoryAbility, model.TargetOther), ClassSelfSkillSynergy},
		{"pet", effect(5, model.CategoryPet, model.TargetParty), ClassSelfItemSynergy},
		{"elixir", effect(6, model.CategoryElixir, model.TargetSelf), ClassSelfItemSynergy},
		{"set", effect(7, model.CategorySet, model.TargetSelf), ClassSetSynergy},
		{"etc", effect(8, model.CategoryEtc, model.TargetSelf), ClassOtherSynergy},
		{"unknown", effect(9, model.Category("stance"), model.TargetSelf), ClassNone},
		{"nil", nil, ClassNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.effect))
		})
	}
}

func TestIsSupportBuff(t *testing.T) {
	tables := DefaultTables()
	assert.True(t, tables.IsSupportBuff(effect(1, model.CategoryClassSkill, model.TargetParty, withSkill(10, "Heavenly Tune", classBard))))
	assert.False(t, tables.IsSupportBuff(effect(2, model.CategoryClassSkill, model.TargetParty, withSkill(10, "Hell Blade", classBerserker))))
	assert.False(t, tables.IsSupportBuff(effect(3, model.CategoryClassSkill, model.TargetParty)))
}

func TestDeriveKeyPartySynergy(t *testing.T) {
	sound := effect(100, model.CategoryClassSkill, model.TargetParty, withSkill(21020, "Sound Shock", classBard))

	nonSupport := DefaultTables()
	nonSupport.SupportClassIDs = []int{105, 602}
	key, ok := nonSupport.DeriveKey(sound, ClassPartySynergy, Context{Tab: model.TabPartyBuffs})
	require.True(t, ok)
	assert.Equal(t, "Bard_Sound Shock", key)

	key, ok = DefaultTables().DeriveKey(sound, ClassPartySynergy, Context{Tab: model.TabPartyBuffs})
	require.True(t, ok)
	assert.Equal(t, "__Bard_3_Sound Shock", key)

	grouped := effect(101, model.CategoryClassSkill, model.TargetParty, withSkill(1, "Hell Blade", classBerserker), withGroup(160))
	key, ok = DefaultTables().DeriveKey(grouped, ClassPartySynergy, Context{Tab: model.TabPartyBuffs})
	require.True(t, ok)
	assert.Equal(t, "Berserker_160", key)
}

func TestSupportBuffKeyTiers(t *testing.T) {
	tables := DefaultTables()
	tables.MarkingGroups = []int{1}
	tables.AttackPowerGroups = []int{1, 2}
	tables.IdentityIDs = []int{3, 9000}

	tests := []struct {
		name   string
		effect *model.StatusEffect
		want   string
	}{
		{"marking beats attack power", effect(1, model.CategoryClassSkill, model.TargetParty, withSkill(5, "Mark", classBard), withGroup(1)), "__Bard_1_1"},
		{"attack power", effect(2, model.CategoryClassSkill, model.TargetParty, withSkill(5, "Atk", classBard), withGroup(2)), "__Bard_0_2"},
		{"identity by group", effect(3, model.CategoryIdentity, model.TargetParty, withSkill(5, "Id", classBard), withGroup(3)), "__Bard_2_3"},
		{"identity by skill id", effect(4, model.CategoryIdentity, model.TargetParty, withSkill(9000, "Serenade", classBard)), "__Bard_2_Serenade"},
		{"other", effect(5, model.CategoryClassSkill, model.TargetParty, withSkill(5, "Rhapsody", classBard), withGroup(77)), "__Bard_3_77"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tables.SupportBuffKey(tt.effect))
		})
	}
}

func TestDeriveKeySelfItemSetOther(t *testing.T) {
	tables := DefaultTables()
	ctx := Context{Tab: model.TabSelfBuffs}

	key, _ := tables.DeriveKey(effect(1, model.CategoryBracelet, model.TargetSelf, withGroup(42)), ClassSelfItemSynergy, ctx)
	assert.Equal(t, "zzbracelet_42", key)
	key, _ = tables.DeriveKey(effect(2, model.CategoryElixir, model.TargetSelf, withGroup(7)), ClassSelfItemSynergy, ctx)
	assert.Equal(t, "elixir_7", key)
	key, _ = tables.DeriveKey(effect(3, model.CategoryCook, model.TargetSelf), ClassSelfItemSynergy, ctx)
	assert.Equal(t, "cook", key)

	set := effect(4, model.CategorySet, model.TargetSelf)
	set.Source.SetName = "Salvation"
	key, _ = tables.DeriveKey(set, ClassSetSynergy, ctx)
	assert.Equal(t, "_set_Salvation", key)

	etc := effect(5, model.CategoryEtc, model.TargetSelf)
	etc.Source.Name = "Mokoko"
	key, _ = tables.DeriveKey(etc, ClassOtherSynergy, ctx)
	assert.Equal(t, "etc_Mokoko", key)
}

func TestDeriveKeySelfSkillRequiresFocusedClass(t *testing.T) {
	tables := DefaultTables()
	berserker := &model.Entity{Name: "A", ClassID: classBerserker}
	bard := &model.Entity{Name: "B", ClassID: classBard}
	skill := effect(1, model.CategoryClassSkill, model.TargetSelf, withSkill(7, "Mayhem", classBerserker))

	_, ok := tables.DeriveKey(skill, ClassSelfSkillSynergy, Context{Tab: model.TabSelfBuffs})
	assert.False(t, ok, "no focused player")
	_, ok = tables.DeriveKey(skill, ClassSelfSkillSynergy, Context{Tab: model.TabSelfBuffs, Focused: bard})
	assert.False(t, ok, "class mismatch")

	key, ok := tables.DeriveKey(skill, ClassSelfSkillSynergy, Context{Tab: model.TabSelfBuffs, Focused: berserker})
	require.True(t, ok)
	assert.Equal(t, "_Berserker_Mayhem", key)

	key, ok = tables.DeriveKey(skill, ClassSelfSkillSynergy, Context{ShieldMode: true})
	require.True(t, ok, "shield mode skips the class check")
	assert.Equal(t, "_Berserker_Mayhem", key)

	ability := effect(55, model.CategoryAbility, model.TargetSelf, withSkill(0, "", classBerserker))
	key, ok = tables.DeriveKey(ability, ClassSelfSkillSynergy, Context{Tab: model.TabSelfBuffs, Focused: berserker})
	require.True(t, ok)
	assert.Equal(t, "55", key)
	ability.UniqueGroup = 900
	key, _ = tables.DeriveKey(ability, ClassSelfSkillSynergy, Context{Tab: model.TabSelfBuffs, Focused: berserker})
	assert.Equal(t, "900", key)

	missingSkill := effect(56, model.CategoryClassSkill, model.TargetSelf)
	_, ok = tables.DeriveKey(missingSkill, ClassSelfSkillSynergy, Context{Tab: model.TabSelfBuffs, Focused: berserker})
	assert.False(t, ok, "absent source skill never matches")
}

func TestVisible(t *testing.T) {
	focused := &model.Entity{Name: "A"}
	tests := []struct {
		name  string
		class Class
		ctx   Context
		want  bool
	}{
		{"party on party tab", ClassPartySynergy, Context{Tab: model.TabPartyBuffs}, true},
		{"party on self tab", ClassPartySynergy, Context{Tab: model.TabSelfBuffs}, false},
		{"item on self tab", ClassSelfItemSynergy, Context{Tab: model.TabSelfBuffs}, true},
		{"set unfocused", ClassSetSynergy, Context{Tab: model.TabSelfBuffs}, true},
		{"set focused", ClassSetSynergy, Context{Tab: model.TabSelfBuffs, Focused: focused}, false},
		{"self skill unfocused", ClassSelfSkillSynergy, Context{Tab: model.TabSelfBuffs}, false},
		{"self skill focused", ClassSelfSkillSynergy, Context{Tab: model.TabSelfBuffs, Focused: focused}, true},
		{"other focused", ClassOtherSynergy, Context{Tab: model.TabSelfBuffs, Focused: focused}, true},
		{"shield mode", ClassSetSynergy, Context{Tab: model.TabTank, ShieldMode: true, Focused: focused}, true},
		{"none", ClassNone, Context{ShieldMode: true}, false},
		{"damage tab", ClassPartySynergy, Context{Tab: model.TabDamage}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Visible(tt.class, tt.ctx))
		})
	}
}

func partyCatalog() map[int]*model.StatusEffect {
	return map[int]*model.StatusEffect{
		300: effect(300, model.CategoryClassSkill, model.TargetParty, withSkill(1, "Hell Blade", classBerserker), withGroup(160)),
		301: effect(301, model.CategoryClassSkill, model.TargetParty, withSkill(2, "Sound Shock", classBard), withGroup(210230)),
		302: effect(302, model.CategoryIdentity, model.TargetParty, withSkill(3, "Serenade", classBard), withGroup(211400)),
		303: effect(303, model.CategoryClassSkill, model.TargetParty, withSkill(4, "Bash", classBerserker), withGroup(160)),
		304: effect(304, model.CategoryClassSkill, model.TargetParty, withSkill(5, "Heal", classBard), withBuffType(model.BuffTypeHP)),
		305: effect(305, model.CategoryPet, model.TargetSelf),
	}
}

func TestAggregatePartyBuffs(t *testing.T) {
	tables := DefaultTables()
	grouped := tables.Aggregate(Context{Tab: model.TabPartyBuffs}, partyCatalog())

	want := []string{"Berserker_160", "__Bard_1_210230", "__Bard_2_211400"}
	if diff := cmp.Diff(want, grouped.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	group, ok := grouped.Lookup("Berserker_160")
	require.True(t, ok)
	require.Len(t, group.Members, 2)
	assert.Equal(t, 300, group.Members[0].ID)
	assert.Equal(t, 303, group.Members[1].ID)
	assert.True(t, group.Contains(303))
	assert.False(t, group.Contains(304))

	_, ok = grouped.Lookup("missing")
	assert.False(t, ok)
}

func TestAggregateFilterExemption(t *testing.T) {
	tables := DefaultTables()
	catalog := map[int]*model.StatusEffect{
		1: effect(1, model.CategoryClassSkill, model.TargetSelf, withSkill(9, "Special Ammo", classDeadeye), withBuffType(model.BuffTypeResource)),
	}
	deadeye := &model.Entity{Name: "D", ClassID: classDeadeye}
	grouped := tables.Aggregate(Context{Tab: model.TabSelfBuffs, Focused: deadeye}, catalog)
	assert.Equal(t, []string{"_Deadeye_Special Ammo"}, grouped.Keys())

	tables.FilterExemptClassID = 0
	grouped = tables.Aggregate(Context{Tab: model.TabSelfBuffs, Focused: deadeye}, catalog)
	assert.Empty(t, grouped)
}

func TestAggregateShieldModeSkipsFilter(t *testing.T) {
	tables := DefaultTables()
	catalog := map[int]*model.StatusEffect{
		7: effect(7, model.CategoryClassSkill, model.TargetParty, withSkill(1, "Shield", 105), withGroup(5), withBuffType(model.BuffTypeShield)),
	}
	grouped := tables.Aggregate(Context{Tab: model.TabTank, ShieldMode: true}, catalog)
	assert.Equal(t, []string{"__Paladin_3_5"}, grouped.Keys())
}

func TestAggregateIsIdempotent(t *testing.T) {
	tables := DefaultTables()
	ctx := Context{Tab: model.TabPartyBuffs}
	first := tables.Aggregate(ctx, partyCatalog())
	for i := 0; i < 20; i++ {
		again := tables.Aggregate(ctx, partyCatalog())
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("aggregate not idempotent (-first +again):\n%s", diff)
		}
	}
}

func TestAggregateFirstCatalogWins(t *testing.T) {
	tables := DefaultTables()
	buffs := map[int]*model.StatusEffect{
		10: effect(10, model.CategoryCook, model.TargetSelf),
	}
	debuffs := map[int]*model.StatusEffect{
		10: effect(10, model.CategoryCook, model.TargetSelf, func(e *model.StatusEffect) { e.Kind = model.KindDebuff }),
	}
	grouped := tables.Aggregate(Context{Tab: model.TabSelfBuffs}, buffs, debuffs)
	group, ok := grouped.Lookup("cook")
	require.True(t, ok)
	require.Len(t, group.Members, 1)
	assert.Equal(t, model.KindBuff, group.Members[0].Effect.Kind)
}

func TestBonusFor(t *testing.T) {
	tables := DefaultTables()
	serenade := effect(1, model.CategoryIdentity, model.TargetParty)
	serenade.Source.Desc = "Increases damage by 15%."
	assert.Equal(t, 15, tables.BonusFor("__Bard_2_211400", serenade))
	assert.Equal(t, 0, tables.BonusFor("__Bard_0_101105", serenade))
	serenade.Source.Desc = "no numbers"
	assert.Equal(t, 0, tables.BonusFor("__Bard_2_211400", serenade))
}

func TestLoadTablesOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tables.yaml")
	require.NoError(t, os.WriteFile(path, []byte("support_class_ids: [999]\nclasses:\n  999: Tester\n"), 0o644))

	tables, err := LoadTables(path)
	require.NoError(t, err)
	assert.Equal(t, []int{999}, tables.SupportClassIDs)
	assert.Equal(t, "Tester", tables.ClassName(999))
	assert.Equal(t, "Bard", tables.ClassName(classBard), "defaults are merged")
	assert.Equal(t, "Unknown", tables.ClassName(123456))

	_, err = LoadTables(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	defaults, err := LoadTables("")
	require.NoError(t, err)
	assert.Equal(t, []int{105, 204, 602}, defaults.SupportClassIDs)
}
