package stats

import (
	"github.com/verte-zerg/tuimeter/internal/model"
	"github.com/verte-zerg/tuimeter/internal/synergy"
)

// Resolver computes per-group contribution percentages.
type Resolver struct {
	Tables *synergy.Tables
}

// NewResolver returns a Resolver using the given lookup tables.
func NewResolver(tables *synergy.Tables) Resolver {
	return Resolver{Tables: tables}
}

// ScopeKeys returns, in grouped order, the keys of groups with at least one
// member present in either contribution map.
func ScopeKeys(grouped synergy.Grouped, buffedBy, debuffedBy map[int]int64) []string {
	var keys []string
	for _, group := range grouped {
		for _, m := range group.Members {
			if _, ok := buffedBy[m.ID]; ok {
				keys = append(keys, group.Key)
				break
			}
			if _, ok := debuffedBy[m.ID]; ok {
				keys = append(keys, group.Key)
				break
			}
		}
	}
	return keys
}

// MergeKeys returns the keys of grouped that appear in any of the key lists,
// preserving grouped order.
func MergeKeys(grouped synergy.Grouped, lists ...[]string) []string {
	seen := map[string]struct{}{}
	for _, list := range lists {
		for _, key := range list {
			seen[key] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for _, group := range grouped {
		if _, ok := seen[group.Key]; ok {
			keys = append(keys, group.Key)
		}
	}
	return keys
}

// SpecialDamage sums the damage of skills flagged special.
func SpecialDamage(player *model.Entity) int64 {
	var total int64
	for _, skill := range player.Skills {
		if skill != nil && skill.Special {
			total += skill.TotalDamage
		}
	}
	return total
}

// ResolveForPlayer computes buff details of a player for the given group keys.
// Keys missing from grouped are skipped.
func (r Resolver) ResolveForPlayer(grouped synergy.Grouped, player *model.Entity, scopeKeys []string) []model.BuffDetails {
	if player == nil {
		return nil
	}
	ds := player.DamageStats
	base := ds.DamageDealt - SpecialDamage(player)
	withoutHyper := base - ds.HyperAwakeningDamage

	out := make([]model.BuffDetails, 0, len(scopeKeys))
	for _, key := range scopeKeys {
		group, ok := grouped.Lookup(key)
		if !ok {
			continue
		}
		denominator := withoutHyper
		if r.hasHyperTechnique(group) {
			denominator = base
		}
		out = append(out, r.resolveGroup(group, ds.BuffedBy, ds.DebuffedBy, float64(denominator)))
	}
	return out
}

// ResolveForSkill computes buff details of a skill over every group.
func (r Resolver) ResolveForSkill(grouped synergy.Grouped, skill *model.Skill) []model.BuffDetails {
	if skill == nil {
		return nil
	}
	out := make([]model.BuffDetails, 0, len(grouped))
	for _, group := range grouped {
		out = append(out, r.resolveGroup(group, skill.BuffedBy, skill.DebuffedBy, float64(skill.TotalDamage)))
	}
	return out
}

// ResolveShields computes shield details of a player for the given group keys
// using the shield tab's per-effect map and total.
func (r Resolver) ResolveShields(grouped synergy.Grouped, player *model.Entity, tab model.ShieldTab, scopeKeys []string) []model.BuffDetails {
	if player == nil {
		return nil
	}
	by := tab.By(player.DamageStats)
	total := float64(tab.Total(player.DamageStats))
	out := make([]model.BuffDetails, 0, len(scopeKeys))
	for _, key := range scopeKeys {
		group, ok := grouped.Lookup(key)
		if !ok {
			continue
		}
		details := model.BuffDetails{ID: key}
		var groupTotal int64
		for _, m := range group.Members {
			v, ok := by[m.ID]
			if !ok {
				continue
			}
			details.Buffs = append(details.Buffs, r.buff(key, m.Effect, v, total))
			groupTotal += v
		}
		if groupTotal > 0 && total > 0 {
			details.Percentage = FormatPercent(Ratio(float64(groupTotal), total))
		}
		out = append(out, details)
	}
	return out
}

func (r Resolver) resolveGroup(group synergy.Group, buffedBy, debuffedBy map[int]int64, denominator float64) model.BuffDetails {
	details := model.BuffDetails{ID: group.Key}
	var groupTotal int64
	for _, m := range group.Members {
		var (
			v     int64
			found bool
		)
		if m.Effect != nil && m.Effect.Kind == model.KindBuff {
			v, found = buffedBy[m.ID]
		}
		if !found {
			v, found = debuffedBy[m.ID]
		}
		if !found {
			continue
		}
		details.Buffs = append(details.Buffs, r.buff(group.Key, m.Effect, v, denominator))
		groupTotal += v
	}
	if groupTotal > 0 && denominator > 0 {
		details.Percentage = FormatPercent(Ratio(float64(groupTotal), denominator))
	}
	return details
}

func (r Resolver) buff(key string, effect *model.StatusEffect, contribution int64, denominator float64) model.Buff {
	b := model.Buff{Percentage: FormatPercent(Ratio(float64(contribution), denominator))}
	if effect == nil {
		return b
	}
	b.Icon = effect.Source.Icon
	if effect.Source.Skill != nil {
		b.SourceSkillIcon = effect.Source.Skill.Icon
	}
	if r.Tables != nil {
		b.Bonus = r.Tables.BonusFor(key, effect)
	}
	return b
}

func (r Resolver) hasHyperTechnique(group synergy.Group) bool {
	if r.Tables == nil {
		return false
	}
	for _, id := range r.Tables.HyperAwakeningTechniqueIDs {
		if group.Contains(id) {
			return true
		}
	}
	return false
}
