package stats

import (
	"testing"

	"github.com/verte-zerg/tuimeter/internal/model"
)

func TestTopSkillsByDamage(t *testing.T) {
	e := &model.Entity{Skills: map[int]*model.Skill{
		1: {ID: 1, Name: "Slash", TotalDamage: 100},
		2: {ID: 2, Name: "Burst", TotalDamage: 300},
		3: {ID: 3, Name: "Axe", TotalDamage: 100},
		4: nil,
	}}
	top := TopSkillsByDamage(e, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 skills, got %d", len(top))
	}
	if top[0].Name != "Burst" || top[1].Name != "Axe" {
		t.Fatalf("unexpected order: %s, %s", top[0].Name, top[1].Name)
	}
	if all := TopSkillsByDamage(e, 0); len(all) != 3 {
		t.Fatalf("expected every skill, got %d", len(all))
	}
	if TopSkillsByDamage(nil, 1) != nil {
		t.Fatalf("expected nil for missing entity")
	}
}

func TestPlayersFiltersByMetric(t *testing.T) {
	enc := &model.Encounter{Entities: map[string]*model.Entity{
		"Zed":   {Name: "Zed", EntityType: model.EntityPlayer, DamageStats: model.DamageStats{DamageDealt: 5}},
		"Amy":   {Name: "Amy", EntityType: model.EntityPlayer, DamageStats: model.DamageStats{DamageDealt: 1}},
		"Idle":  {Name: "Idle", EntityType: model.EntityPlayer},
		"Boss":  {Name: "Boss", EntityType: model.EntityBoss, DamageStats: model.DamageStats{DamageDealt: 9}},
		"Ghost": nil,
	}}
	players := Players(enc, DamageMetric)
	if len(players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(players))
	}
	if players[0].Name != "Amy" || players[1].Name != "Zed" {
		t.Fatalf("unexpected order: %s, %s", players[0].Name, players[1].Name)
	}
}
