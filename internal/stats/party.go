package stats

import (
	"sort"

	"github.com/verte-zerg/tuimeter/internal/model"
)

// Metric extracts the value players are ranked by.
type Metric func(*model.Entity) float64

// DamageMetric ranks players by damage dealt.
func DamageMetric(e *model.Entity) float64 {
	return float64(e.DamageStats.DamageDealt)
}

// ShieldMetric ranks players by the shield tab's total.
func ShieldMetric(tab model.ShieldTab) Metric {
	return func(e *model.Entity) float64 {
		return float64(tab.Total(e.DamageStats))
	}
}

// PartyMember is a ranked player with its share of the top value.
type PartyMember struct {
	Entity     *model.Entity
	Value      float64
	Percentage float64
}

// Party is an ordered list of ranked players.
type Party struct {
	Members []PartyMember
}

// Partition splits players into the declared parties and ranks each one by
// metric. Percentages are relative to the highest value across all players.
// Fewer than two non-empty parties yield a single party of every player.
func Partition(players []*model.Entity, membership [][]string, metric Metric) []Party {
	maxValue := 0.0
	for _, p := range players {
		if v := metric(p); v > maxValue {
			maxValue = v
		}
	}

	declared := nonEmptyParties(membership)
	if len(declared) < 2 {
		return []Party{rankParty(players, metric, maxValue)}
	}

	byName := make(map[string]*model.Entity, len(players))
	for _, p := range players {
		byName[p.Name] = p
	}
	parties := make([]Party, 0, len(declared))
	for _, names := range declared {
		members := make([]*model.Entity, 0, len(names))
		for _, name := range names {
			if p, ok := byName[name]; ok {
				members = append(members, p)
			}
		}
		parties = append(parties, rankParty(members, metric, maxValue))
	}
	return parties
}

func nonEmptyParties(membership [][]string) [][]string {
	out := make([][]string, 0, len(membership))
	for _, names := range membership {
		if len(names) > 0 {
			out = append(out, names)
		}
	}
	return out
}

func rankParty(players []*model.Entity, metric Metric, maxValue float64) Party {
	members := make([]PartyMember, 0, len(players))
	for _, p := range players {
		v := metric(p)
		members = append(members, PartyMember{
			Entity:     p,
			Value:      v,
			Percentage: Ratio(v, maxValue),
		})
	}
	sort.SliceStable(members, func(i, j int) bool {
		if members[i].Value == members[j].Value {
			return members[i].Entity.Name < members[j].Entity.Name
		}
		return members[i].Value > members[j].Value
	})
	return Party{Members: members}
}
