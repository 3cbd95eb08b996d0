package synergy

import (
	"sort"

	"github.com/verte-zerg/tuimeter/internal/model"
)

// Member is a status effect placed in a synergy group.
type Member struct {
	ID     int
	Effect *model.StatusEffect
}

// Group is one synergy bucket. Members are ordered by id.
type Group struct {
	Key     string
	Members []Member
}

// Contains reports whether the group holds the effect id.
func (g Group) Contains(id int) bool {
	i := sort.Search(len(g.Members), func(i int) bool { return g.Members[i].ID >= id })
	return i < len(g.Members) && g.Members[i].ID == id
}

// Grouped is an ordered synergy mapping with keys in ascending order.
type Grouped []Group

// Keys returns the group keys in order.
func (g Grouped) Keys() []string {
	keys := make([]string, len(g))
	for i, group := range g {
		keys[i] = group.Key
	}
	return keys
}

// Lookup returns the group for a key. The key may be absent.
func (g Grouped) Lookup(key string) (Group, bool) {
	i := sort.Search(len(g), func(i int) bool { return g[i].Key >= key })
	if i < len(g) && g[i].Key == key {
		return g[i], true
	}
	return Group{}, false
}

// Aggregate folds status effect catalogs into synergy groups for a context.
// When the same id appears in more than one catalog under the same key, the
// earlier catalog wins. The result does not depend on map iteration order.
func (t *Tables) Aggregate(ctx Context, catalogs ...map[int]*model.StatusEffect) Grouped {
	buckets := map[string]map[int]*model.StatusEffect{}
	for _, catalog := range catalogs {
		for _, id := range sortedIDs(catalog) {
			effect := catalog[id]
			class := Classify(effect)
			if !Visible(class, ctx) {
				continue
			}
			key, ok := t.DeriveKey(effect, class, ctx)
			if !ok {
				continue
			}
			if !ctx.ShieldMode && !t.passesFilter(effect, ctx) {
				continue
			}
			bucket, ok := buckets[key]
			if !ok {
				bucket = map[int]*model.StatusEffect{}
				buckets[key] = bucket
			}
			if _, exists := bucket[id]; exists {
				continue
			}
			bucket[id] = effect
		}
	}

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make(Grouped, 0, len(keys))
	for _, key := range keys {
		bucket := buckets[key]
		members := make([]Member, 0, len(bucket))
		for _, id := range sortedIDs(bucket) {
			members = append(members, Member{ID: id, Effect: bucket[id]})
		}
		out = append(out, Group{Key: key, Members: members})
	}
	return out
}

func (t *Tables) passesFilter(effect *model.StatusEffect, ctx Context) bool {
	if DefaultBuffFilter(effect.BuffType) {
		return true
	}
	return t.FilterExemptClassID != 0 && ctx.Focused != nil && ctx.Focused.ClassID == t.FilterExemptClassID
}

func sortedIDs(catalog map[int]*model.StatusEffect) []int {
	ids := make([]int, 0, len(catalog))
	for id, effect := range catalog {
		if effect == nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
