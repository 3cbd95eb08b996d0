// Package meter holds the view state of the damage meter: the current
// encounter snapshot, the UI context and the views derived from both.
package meter

import (
	"encoding/json"
	"fmt"

	"github.com/verte-zerg/tuimeter/internal/backend"
	"github.com/verte-zerg/tuimeter/internal/model"
	"github.com/verte-zerg/tuimeter/internal/stats"
	"github.com/verte-zerg/tuimeter/internal/synergy"
)

// View is everything the renderers need for one frame.
type View struct {
	Encounter *model.Encounter
	Tab       model.Tab
	ShieldTab model.ShieldTab
	// Focused is nil when no player is focused or the focused name is absent.
	Focused *model.Entity

	Players []*model.Entity
	Parties []stats.Party

	Grouped synergy.Grouped
	// PartyKeys holds the synergy columns of each party, parallel to Parties.
	PartyKeys [][]string
	// Details holds resolved synergy or shield groups by player name.
	Details map[string][]model.BuffDetails

	// Skills of the focused player, by damage.
	Skills       []*model.Skill
	SkillKeys    []string
	SkillDetails map[int][]model.BuffDetails
}

// ShieldMode reports whether the view shows shields instead of damage buffs.
func (v *View) ShieldMode() bool {
	return v.Tab == model.TabTank
}

// Meter holds a snapshot and UI context and memoizes the derived View.
// It is not safe for concurrent use.
type Meter struct {
	tables   *synergy.Tables
	resolver stats.Resolver

	enc       *model.Encounter
	raw       json.RawMessage
	tab       model.Tab
	shieldTab model.ShieldTab
	focus     string
	paused    bool
	notice    string

	view *View
}

// New returns a Meter using the given lookup tables.
func New(tables *synergy.Tables) *Meter {
	if tables == nil {
		tables = synergy.DefaultTables()
	}
	return &Meter{tables: tables, resolver: stats.NewResolver(tables)}
}

// Replace swaps the snapshot. The raw backend JSON is forgotten.
func (m *Meter) Replace(enc *model.Encounter) {
	m.enc = enc
	m.raw = nil
	m.invalidate()
}

// Raw returns the backend JSON the current snapshot was decoded from, or nil
// when the snapshot did not come from an encounter-update event.
func (m *Meter) Raw() json.RawMessage {
	return m.raw
}

// Clear drops the snapshot.
func (m *Meter) Clear() {
	m.Replace(nil)
}

// Encounter returns the current snapshot, which may be nil.
func (m *Meter) Encounter() *model.Encounter {
	return m.enc
}

// Tab returns the active tab.
func (m *Meter) Tab() model.Tab {
	return m.tab
}

// SetTab switches the active tab.
func (m *Meter) SetTab(tab model.Tab) {
	if m.tab == tab {
		return
	}
	m.tab = tab
	m.invalidate()
}

// ShieldTab returns the selected shield metric.
func (m *Meter) ShieldTab() model.ShieldTab {
	return m.shieldTab
}

// SetShieldTab selects the shield metric shown on the tank tab.
func (m *Meter) SetShieldTab(tab model.ShieldTab) {
	if m.shieldTab == tab {
		return
	}
	m.shieldTab = tab
	m.invalidate()
}

// CycleShieldTab advances to the next shield metric.
func (m *Meter) CycleShieldTab() {
	m.SetShieldTab((m.shieldTab + 1) % (model.ShieldAbsorbed + 1))
}

// Focus selects a player by name.
func (m *Meter) Focus(name string) {
	if m.focus == name {
		return
	}
	m.focus = name
	m.invalidate()
}

// Unfocus clears the focused player.
func (m *Meter) Unfocus() {
	m.Focus("")
}

// FocusName returns the focused player's name, or "".
func (m *Meter) FocusName() string {
	return m.focus
}

// Paused reports whether encounter updates are being ignored.
func (m *Meter) Paused() bool {
	return m.paused
}

// Notice returns the last backend notice.
func (m *Meter) Notice() string {
	return m.notice
}

// Handle applies a backend push event. It returns an error only for an
// encounter-update whose payload cannot be decoded.
func (m *Meter) Handle(ev backend.Event) error {
	switch ev.Name {
	case backend.EventEncounterUpdate:
		if m.paused {
			return nil
		}
		enc, err := ev.Encounter()
		if err != nil {
			return err
		}
		m.Replace(enc)
		m.raw = append(json.RawMessage(nil), ev.Payload...)
	case backend.EventRaidStart:
		m.paused = false
		m.Clear()
		m.notice = "Raid started"
	case backend.EventResetEncounter:
		m.Clear()
		m.notice = "Encounter reset"
	case backend.EventPauseEncounter:
		m.paused = !m.paused
		if m.paused {
			m.notice = "Paused"
		} else {
			m.notice = "Resumed"
		}
	case backend.EventPhaseTransition:
		m.notice = phaseNotice(ev.Text())
	case backend.EventZoneChange:
		m.notice = "Zone changed"
	case backend.EventSaveEncounter:
		m.notice = "Encounter saved"
	case backend.EventAdmin:
		if text := ev.Text(); text != "" {
			m.notice = text
		} else {
			m.notice = "Admin notice"
		}
	}
	return nil
}

func phaseNotice(code string) string {
	switch code {
	case "0":
		return "Phase transition: boss dead"
	case "1":
		return "Phase transition: wipe"
	case "":
		return "Phase transition"
	}
	return fmt.Sprintf("Phase transition %s", code)
}

func (m *Meter) invalidate() {
	m.view = nil
}

// View returns the derived view, recomputing it only after a change.
func (m *Meter) View() *View {
	if m.view == nil {
		m.view = m.compute()
	}
	return m.view
}

func (m *Meter) compute() *View {
	v := &View{
		Encounter: m.enc,
		Tab:       m.tab,
		ShieldTab: m.shieldTab,
	}
	if m.enc == nil {
		return v
	}

	metric := stats.DamageMetric
	if v.ShieldMode() {
		metric = stats.ShieldMetric(m.shieldTab)
	}
	v.Players = stats.Players(m.enc, metric)
	v.Parties = stats.Partition(v.Players, m.enc.PartyMembership(), metric)

	if e, ok := m.enc.Entities[m.focus]; ok && e != nil && e.EntityType == model.EntityPlayer {
		v.Focused = e
	}

	if m.tab == model.TabDamage {
		return v
	}

	ctx := synergy.Context{Focused: v.Focused, Tab: m.tab, ShieldMode: v.ShieldMode()}
	ds := m.enc.EncounterDamageStats
	if v.ShieldMode() {
		v.Grouped = m.tables.Aggregate(ctx, ds.AppliedShieldBuffs)
	} else {
		v.Grouped = m.tables.Aggregate(ctx, ds.Buffs, ds.Debuffs)
	}

	v.Details = make(map[string][]model.BuffDetails, len(v.Players))
	v.PartyKeys = make([][]string, len(v.Parties))
	for i, party := range v.Parties {
		scopes := make([][]string, 0, len(party.Members))
		for _, member := range party.Members {
			scopes = append(scopes, m.scopeKeys(v, member.Entity))
		}
		keys := stats.MergeKeys(v.Grouped, scopes...)
		v.PartyKeys[i] = keys
		for _, member := range party.Members {
			if v.ShieldMode() {
				v.Details[member.Entity.Name] = m.resolver.ResolveShields(v.Grouped, member.Entity, m.shieldTab, keys)
				continue
			}
			v.Details[member.Entity.Name] = m.resolver.ResolveForPlayer(v.Grouped, member.Entity, keys)
		}
	}

	if v.Focused != nil && !v.ShieldMode() {
		m.computeSkills(v)
	}
	return v
}

func (m *Meter) scopeKeys(v *View, e *model.Entity) []string {
	if v.ShieldMode() {
		return stats.ScopeKeys(v.Grouped, m.shieldTab.By(e.DamageStats), nil)
	}
	return stats.ScopeKeys(v.Grouped, e.DamageStats.BuffedBy, e.DamageStats.DebuffedBy)
}

func (m *Meter) computeSkills(v *View) {
	v.Skills = stats.TopSkillsByDamage(v.Focused, 0)
	v.SkillDetails = make(map[int][]model.BuffDetails, len(v.Skills))
	scopes := make([][]string, 0, len(v.Skills))
	for _, skill := range v.Skills {
		scopes = append(scopes, stats.ScopeKeys(v.Grouped, skill.BuffedBy, skill.DebuffedBy))
		v.SkillDetails[skill.ID] = m.resolver.ResolveForSkill(v.Grouped, skill)
	}
	v.SkillKeys = stats.MergeKeys(v.Grouped, scopes...)
}

// BuffTable returns the renderer input for the view's synergy columns.
func (v *View) BuffTable(title string) stats.BuffTable {
	return stats.BuffTable{
		Title:   title,
		Grouped: v.Grouped,
		Parties: v.Parties,
		Keys:    v.PartyKeys,
		Details: v.Details,
	}
}
