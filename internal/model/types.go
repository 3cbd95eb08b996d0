// Package model defines shared data structures.
package model

import (
	"sort"
	"strconv"
	"strings"
)

// Config defines meter settings after flags and the config file are merged.
type Config struct {
	BackendURL  string
	Tab         Tab
	ShieldTab   ShieldTab
	Focus       string
	TablesPath  string
	ChartHeight int
}

// HistoryFilter defines filters for listing stored encounters.
type HistoryFilter struct {
	Boss string
	// Player keeps encounters whose roster has this exact name.
	Player string
	Since  int64
	Last   int
}

// EncounterPreview summarizes a stored encounter.
type EncounterPreview struct {
	ID          int64
	FightStart  int64
	Boss        string
	DurationMs  int64
	Cleared     bool
	LocalPlayer string
}

// Encounter is a full snapshot pushed by the backend.
type Encounter struct {
	LastCombatPacket     int64                `json:"lastCombatPacket"`
	FightStart           int64                `json:"fightStart"`
	LocalPlayer          string               `json:"localPlayer"`
	Entities             map[string]*Entity   `json:"entities"`
	CurrentBossName      string               `json:"currentBossName"`
	EncounterDamageStats EncounterDamageStats `json:"encounterDamageStats"`
	Duration             int64                `json:"duration"`
	Difficulty           string               `json:"difficulty,omitempty"`
	Cleared              bool                 `json:"cleared"`
	BossOnlyDamage       bool                 `json:"bossOnlyDamage"`
}

// EncounterDamageStats holds encounter-wide totals and the status effect catalogs.
type EncounterDamageStats struct {
	TotalDamageDealt   int64                 `json:"totalDamageDealt"`
	TopDamageDealt     int64                 `json:"topDamageDealt"`
	TotalDamageTaken   int64                 `json:"totalDamageTaken"`
	TopDamageTaken     int64                 `json:"topDamageTaken"`
	DPS                int64                 `json:"dps"`
	TotalShieldsGiven  int64                 `json:"totalShieldsGiven"`
	Buffs              map[int]*StatusEffect `json:"buffs"`
	Debuffs            map[int]*StatusEffect `json:"debuffs"`
	AppliedShieldBuffs map[int]*StatusEffect `json:"appliedShieldBuffs"`
	Misc               *EncounterMisc        `json:"misc,omitempty"`
}

// EncounterMisc carries optional encounter metadata.
type EncounterMisc struct {
	PartyInfo map[string][]string `json:"partyInfo,omitempty"`
}

// Entity is a participant of an encounter.
type Entity struct {
	ID          uint64         `json:"id"`
	NpcID       uint32         `json:"npcId"`
	Name        string         `json:"name"`
	EntityType  EntityType     `json:"entityType"`
	ClassID     int            `json:"classId"`
	Class       string         `json:"class"`
	GearScore   float64        `json:"gearScore"`
	CurrentHP   int64          `json:"currentHp"`
	MaxHP       int64          `json:"maxHp"`
	IsDead      bool           `json:"isDead"`
	Skills      map[int]*Skill `json:"skills"`
	DamageStats DamageStats    `json:"damageStats"`
}

// DamageStats aggregates an entity's damage, synergy and shield figures.
type DamageStats struct {
	DamageDealt              int64         `json:"damageDealt"`
	HyperAwakeningDamage     int64         `json:"hyperAwakeningDamage"`
	DamageTaken              int64         `json:"damageTaken"`
	BuffedBy                 map[int]int64 `json:"buffedBy"`
	DebuffedBy               map[int]int64 `json:"debuffedBy"`
	Deaths                   int           `json:"deaths"`
	DPS                      int64         `json:"dps"`
	DPSRolling10sAvg         []float64     `json:"dpsRolling10sAvg,omitempty"`
	ShieldsGiven             int64         `json:"shieldsGiven"`
	ShieldsReceived          int64         `json:"shieldsReceived"`
	DamageAbsorbed           int64         `json:"damageAbsorbed"`
	DamageAbsorbedOnOthers   int64         `json:"damageAbsorbedOnOthers"`
	ShieldsGivenBy           map[int]int64 `json:"shieldsGivenBy"`
	ShieldsReceivedBy        map[int]int64 `json:"shieldsReceivedBy"`
	DamageAbsorbedBy         map[int]int64 `json:"damageAbsorbedBy"`
	DamageAbsorbedOnOthersBy map[int]int64 `json:"damageAbsorbedOnOthersBy"`
}

// Skill holds per-skill damage and synergy figures.
type Skill struct {
	ID               int           `json:"id"`
	Name             string        `json:"name"`
	Icon             string        `json:"icon"`
	TotalDamage      int64         `json:"totalDamage"`
	MaxDamage        int64         `json:"maxDamage"`
	Casts            int64         `json:"casts"`
	Hits             int64         `json:"hits"`
	Crits            int64         `json:"crits"`
	Special          bool          `json:"special,omitempty"`
	IsHyperAwakening bool          `json:"isHyperAwakening,omitempty"`
	BuffedBy         map[int]int64 `json:"buffedBy"`
	DebuffedBy       map[int]int64 `json:"debuffedBy"`
}

// StatusEffect describes a buff or debuff from the encounter catalog.
type StatusEffect struct {
	ID          int                `json:"id"`
	Kind        EffectKind         `json:"category"`
	Category    Category           `json:"buffCategory"`
	Target      Target             `json:"target"`
	BuffType    BuffType           `json:"buffType"`
	UniqueGroup int                `json:"uniqueGroup"`
	Source      StatusEffectSource `json:"source"`
}

// StatusEffectSource describes where a status effect comes from.
type StatusEffectSource struct {
	Name    string       `json:"name"`
	Desc    string       `json:"desc"`
	Icon    string       `json:"icon"`
	Skill   *SourceSkill `json:"skill,omitempty"`
	SetName string       `json:"setName,omitempty"`
}

// SourceSkill is the skill that applies a status effect.
type SourceSkill struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Icon    string `json:"icon"`
	ClassID int    `json:"classId"`
}

// Buff is a single effect's share of a group's contribution.
type Buff struct {
	Icon            string
	Percentage      string
	SourceSkillIcon string
	// Bonus is 0 when no bonus annotation applies.
	Bonus int
}

// BuffDetails is the contribution of one synergy group to a player or skill.
type BuffDetails struct {
	ID    string
	Buffs []Buff
	// Percentage is empty when the group contributed nothing.
	Percentage string
}

// HasPercentage reports whether the group total was strictly positive.
func (d BuffDetails) HasPercentage() bool {
	return d.Percentage != ""
}

// EffectKind separates buffs from debuffs.
type EffectKind string

// Effect kinds.
const (
	KindBuff   EffectKind = "buff"
	KindDebuff EffectKind = "debuff"
)

// Category is the buff category used for synergy classification.
type Category string

// Buff categories.
const (
	CategoryClassSkill   Category = "classskill"
	CategoryIdentity     Category = "identity"
	CategoryAbility      Category = "ability"
	CategoryPet          Category = "pet"
	CategoryCook         Category = "cook"
	CategoryBattleItem   Category = "battleitem"
	CategoryDropsOfEther Category = "dropsofether"
	CategoryBracelet     Category = "bracelet"
	CategoryElixir       Category = "elixir"
	CategorySet          Category = "set"
	CategoryEtc          Category = "etc"
)

// Target is the scope a status effect applies to.
type Target string

// Targets.
const (
	TargetSelf  Target = "SELF"
	TargetParty Target = "PARTY"
	TargetOther Target = "OTHER"
)

// BuffType is a bitmask of what a status effect modifies.
type BuffType uint32

// Buff type flags.
const (
	BuffTypeNone      BuffType = 0
	BuffTypeDamage    BuffType = 1
	BuffTypeCrit      BuffType = 1 << 1
	BuffTypeAtkSpeed  BuffType = 1 << 2
	BuffTypeMoveSpeed BuffType = 1 << 3
	BuffTypeHP        BuffType = 1 << 4
	BuffTypeDefense   BuffType = 1 << 5
	BuffTypeResource  BuffType = 1 << 6
	BuffTypeCooldown  BuffType = 1 << 7
	BuffTypeStagger   BuffType = 1 << 8
	BuffTypeShield    BuffType = 1 << 9
	BuffTypeAny       BuffType = 1 << 20
)

// Has reports whether any of the given flags are set.
func (b BuffType) Has(flags BuffType) bool {
	return b&flags != 0
}

// EntityType classifies encounter entities.
type EntityType string

// Entity types.
const (
	EntityPlayer  EntityType = "PLAYER"
	EntityEsther  EntityType = "ESTHER"
	EntityBoss    EntityType = "BOSS"
	EntityNPC     EntityType = "NPC"
	EntityUnknown EntityType = "UNKNOWN"
)

// Tab is the active meter view.
type Tab int

// Meter tabs.
const (
	TabDamage Tab = iota
	TabPartyBuffs
	TabSelfBuffs
	TabTank
)

var tabNames = []string{"damage", "party-buffs", "self-buffs", "tank"}

func (t Tab) String() string {
	if t < 0 || int(t) >= len(tabNames) {
		return "tab(" + strconv.Itoa(int(t)) + ")"
	}
	return tabNames[t]
}

// ParseTab parses a tab name as printed by String.
func ParseTab(s string) (Tab, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range tabNames {
		if name == s {
			return Tab(i), true
		}
	}
	return TabDamage, false
}

// ShieldTab selects which shield metric pair is displayed.
type ShieldTab int

// Shield tabs.
const (
	ShieldGiven ShieldTab = iota
	ShieldReceived
	ShieldAbsorbedOnOthers
	ShieldAbsorbed
)

var shieldTabNames = []string{"given", "received", "absorbed-on-others", "absorbed"}

func (t ShieldTab) String() string {
	if t < 0 || int(t) >= len(shieldTabNames) {
		return "shield(" + strconv.Itoa(int(t)) + ")"
	}
	return shieldTabNames[t]
}

// ParseShieldTab parses a shield tab name as printed by String.
func ParseShieldTab(s string) (ShieldTab, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range shieldTabNames {
		if name == s {
			return ShieldTab(i), true
		}
	}
	return ShieldGiven, false
}

// Total returns the shield metric selected by the tab.
func (t ShieldTab) Total(ds DamageStats) int64 {
	switch t {
	case ShieldReceived:
		return ds.ShieldsReceived
	case ShieldAbsorbedOnOthers:
		return ds.DamageAbsorbedOnOthers
	case ShieldAbsorbed:
		return ds.DamageAbsorbed
	default:
		return ds.ShieldsGiven
	}
}

// By returns the per-effect map paired with the tab's metric. It may be nil.
func (t ShieldTab) By(ds DamageStats) map[int]int64 {
	switch t {
	case ShieldReceived:
		return ds.ShieldsReceivedBy
	case ShieldAbsorbedOnOthers:
		return ds.DamageAbsorbedOnOthersBy
	case ShieldAbsorbed:
		return ds.DamageAbsorbedBy
	default:
		return ds.ShieldsGivenBy
	}
}

// PartyMembership returns party member names ordered by numeric party key.
func (e *Encounter) PartyMembership() [][]string {
	if e == nil || e.EncounterDamageStats.Misc == nil || len(e.EncounterDamageStats.Misc.PartyInfo) == 0 {
		return nil
	}
	info := e.EncounterDamageStats.Misc.PartyInfo
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sortPartyKeys(keys)
	out := make([][]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, append([]string(nil), info[k]...))
	}
	return out
}

func sortPartyKeys(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		ai, aerr := strconv.Atoi(keys[i])
		bi, berr := strconv.Atoi(keys[j])
		switch {
		case aerr == nil && berr == nil:
			return ai < bi
		case aerr == nil:
			return true
		case berr == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
}
