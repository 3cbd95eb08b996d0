package synergy

import "github.com/verte-zerg/tuimeter/internal/model"

// Class is the synergy class a status effect belongs to.
type Class int

// Synergy classes.
const (
	ClassNone Class = iota
	ClassPartySynergy
	ClassSelfItemSynergy
	ClassSetSynergy
	ClassSelfSkillSynergy
	ClassOtherSynergy
)

func (c Class) String() string {
	switch c {
	case ClassPartySynergy:
		return "party"
	case ClassSelfItemSynergy:
		return "self-item"
	case ClassSetSynergy:
		return "set"
	case ClassSelfSkillSynergy:
		return "self-skill"
	case ClassOtherSynergy:
		return "other"
	default:
		return "none"
	}
}

// Classify returns the class of an effect. The checks overlap and the first
// match wins: a PARTY-targeted class skill is a party synergy even though it
// also satisfies the self-skill predicate.
func Classify(effect *model.StatusEffect) Class {
	if effect == nil {
		return ClassNone
	}
	switch {
	case isSkillCategory(effect.Category) && effect.Target == model.TargetParty:
		return ClassPartySynergy
	case isItemCategory(effect.Category):
		return ClassSelfItemSynergy
	case effect.Category == model.CategorySet:
		return ClassSetSynergy
	case isSkillCategory(effect.Category):
		return ClassSelfSkillSynergy
	case effect.Category == model.CategoryEtc:
		return ClassOtherSynergy
	default:
		return ClassNone
	}
}

func isSkillCategory(c model.Category) bool {
	switch c {
	case model.CategoryClassSkill, model.CategoryIdentity, model.CategoryAbility:
		return true
	}
	return false
}

func isItemCategory(c model.Category) bool {
	switch c {
	case model.CategoryPet, model.CategoryCook, model.CategoryBattleItem,
		model.CategoryDropsOfEther, model.CategoryBracelet, model.CategoryElixir:
		return true
	}
	return false
}

// DefaultBuffFilter reports whether a buff type affects damage output.
func DefaultBuffFilter(buffType model.BuffType) bool {
	return buffType.Has(model.BuffTypeDamage | model.BuffTypeCrit | model.BuffTypeAtkSpeed |
		model.BuffTypeMoveSpeed | model.BuffTypeCooldown)
}
