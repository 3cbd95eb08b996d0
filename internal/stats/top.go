// Package stats contains contribution math, party ranking and text reporting.
package stats

import (
	"sort"

	"github.com/verte-zerg/tuimeter/internal/model"
)

// TopSkillsByDamage returns up to n skills of an entity by total damage.
// n <= 0 returns every skill.
func TopSkillsByDamage(e *model.Entity, n int) []*model.Skill {
	if e == nil || len(e.Skills) == 0 {
		return nil
	}
	skills := make([]*model.Skill, 0, len(e.Skills))
	for _, s := range e.Skills {
		if s == nil {
			continue
		}
		skills = append(skills, s)
	}
	sort.Slice(skills, func(i, j int) bool {
		if skills[i].TotalDamage == skills[j].TotalDamage {
			if skills[i].Name == skills[j].Name {
				return skills[i].ID < skills[j].ID
			}
			return skills[i].Name < skills[j].Name
		}
		return skills[i].TotalDamage > skills[j].TotalDamage
	})
	if n > 0 && n < len(skills) {
		skills = skills[:n]
	}
	return skills
}

// Players returns player entities for which metric is positive, sorted by name.
func Players(enc *model.Encounter, metric Metric) []*model.Entity {
	if enc == nil {
		return nil
	}
	out := make([]*model.Entity, 0, len(enc.Entities))
	for _, e := range enc.Entities {
		if e == nil || e.EntityType != model.EntityPlayer {
			continue
		}
		if metric(e) <= 0 {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
