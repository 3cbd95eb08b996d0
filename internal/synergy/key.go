package synergy

import (
	"fmt"
	"strconv"

	"github.com/verte-zerg/tuimeter/internal/model"
)

// Context carries the UI state that affects grouping.
type Context struct {
	// Focused is nil when no player is focused.
	Focused    *model.Entity
	Tab        model.Tab
	ShieldMode bool
}

// Visible reports whether a class is shown for the context's tab.
func Visible(class Class, ctx Context) bool {
	if class == ClassNone {
		return false
	}
	if ctx.ShieldMode {
		return true
	}
	focused := ctx.Focused != nil
	switch class {
	case ClassPartySynergy:
		return ctx.Tab == model.TabPartyBuffs
	case ClassSelfItemSynergy:
		return ctx.Tab == model.TabSelfBuffs
	case ClassSetSynergy:
		return ctx.Tab == model.TabSelfBuffs && !focused
	case ClassSelfSkillSynergy, ClassOtherSynergy:
		return ctx.Tab == model.TabSelfBuffs && focused
	}
	return false
}

// DeriveKey returns the grouping key for an effect of the given class.
// ok is false when the effect is suppressed for this context.
func (t *Tables) DeriveKey(effect *model.StatusEffect, class Class, ctx Context) (string, bool) {
	if effect == nil {
		return "", false
	}
	switch class {
	case ClassPartySynergy:
		if t.IsSupportBuff(effect) {
			return t.SupportBuffKey(effect), true
		}
		return fmt.Sprintf("%s_%s", t.sourceClass(effect), groupOrSkillName(effect)), true
	case ClassSelfItemSynergy:
		switch effect.Category {
		case model.CategoryBracelet:
			return fmt.Sprintf("zzbracelet_%d", effect.UniqueGroup), true
		case model.CategoryElixir:
			return fmt.Sprintf("elixir_%d", effect.UniqueGroup), true
		default:
			return string(effect.Category), true
		}
	case ClassSetSynergy:
		return "_set_" + effect.Source.SetName, true
	case ClassSelfSkillSynergy:
		if !ctx.ShieldMode && !focusedClassMatches(effect, ctx.Focused) {
			return "", false
		}
		if effect.Category == model.CategoryAbility {
			if effect.UniqueGroup != 0 {
				return strconv.Itoa(effect.UniqueGroup), true
			}
			return strconv.Itoa(effect.ID), true
		}
		return fmt.Sprintf("_%s_%s", t.sourceClass(effect), groupOrSkillName(effect)), true
	case ClassOtherSynergy:
		return "etc_" + effect.Source.Name, true
	}
	return "", false
}

// SupportBuffKey builds the key of a support class buff. The tier orders
// marking, attack power and identity buffs ahead of the rest.
func (t *Tables) SupportBuffKey(effect *model.StatusEffect) string {
	return fmt.Sprintf("__%s_%d_%s", t.sourceClass(effect), t.supportTier(effect), groupOrSkillName(effect))
}

func (t *Tables) supportTier(effect *model.StatusEffect) int {
	skillID := 0
	if effect.Source.Skill != nil {
		skillID = effect.Source.Skill.ID
	}
	switch {
	case containsInt(t.MarkingGroups, effect.UniqueGroup):
		return 1
	case containsInt(t.AttackPowerGroups, effect.UniqueGroup):
		return 0
	case containsInt(t.IdentityIDs, effect.UniqueGroup) || (skillID != 0 && containsInt(t.IdentityIDs, skillID)):
		return 2
	default:
		return 3
	}
}

func (t *Tables) sourceClass(effect *model.StatusEffect) string {
	if effect.Source.Skill == nil {
		return t.ClassName(0)
	}
	return t.ClassName(effect.Source.Skill.ClassID)
}

func groupOrSkillName(effect *model.StatusEffect) string {
	if effect.UniqueGroup != 0 {
		return strconv.Itoa(effect.UniqueGroup)
	}
	if effect.Source.Skill != nil {
		return effect.Source.Skill.Name
	}
	return ""
}

func focusedClassMatches(effect *model.StatusEffect, focused *model.Entity) bool {
	if focused == nil || effect.Source.Skill == nil {
		return false
	}
	return focused.ClassID == effect.Source.Skill.ClassID
}
