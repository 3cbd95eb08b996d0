package stats

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/verte-zerg/tuimeter/internal/model"
	"github.com/verte-zerg/tuimeter/internal/synergy"
)

// BuffTable is the input for rendering a buff or shield breakdown.
type BuffTable struct {
	Title   string
	Grouped synergy.Grouped
	Parties []Party
	// Keys holds the column keys of each party, parallel to Parties.
	Keys [][]string
	// Details holds resolved groups by player name.
	Details map[string][]model.BuffDetails
}

// RenderHeader prints the encounter summary line.
func RenderHeader(w io.Writer, enc *model.Encounter) error {
	if enc == nil {
		_, err := fmt.Fprintln(w, "No encounter.")
		return err
	}
	boss := enc.CurrentBossName
	if boss == "" {
		boss = "No boss"
	}
	ds := enc.EncounterDamageStats
	state := ""
	if enc.Cleared {
		state = "  cleared"
	}
	_, err := fmt.Fprintf(w, "%s  %s  Total %s  DPS %s%s\n",
		boss,
		FormatDuration(enc.Duration),
		Abbreviate(float64(ds.TotalDamageDealt)),
		Abbreviate(DPS(ds.TotalDamageDealt, enc.Duration)),
		state,
	)
	return err
}

// RenderDamageTable prints ranked players of each party.
func RenderDamageTable(w io.Writer, parties []Party, durationMs int64) error {
	if partiesEmpty(parties) {
		_, err := fmt.Fprintln(w, "No players found.")
		return err
	}
	headers := []string{"Name", "Class", "Damage", "DPS", "%", "Crit", "Deaths", "Trend"}
	rightAlign := map[int]bool{2: true, 3: true, 4: true, 5: true, 6: true}
	for i, party := range parties {
		if len(parties) > 1 {
			if _, err := fmt.Fprintf(w, "Party %d\n", i+1); err != nil {
				return err
			}
		}
		rows := make([][]string, 0, len(party.Members))
		for _, m := range party.Members {
			ds := m.Entity.DamageStats
			rows = append(rows, []string{
				m.Entity.Name,
				m.Entity.Class,
				Abbreviate(float64(ds.DamageDealt)),
				Abbreviate(DPS(ds.DamageDealt, durationMs)),
				FormatPercent(m.Percentage),
				FormatPercent(CritRate(m.Entity)) + "%",
				fmt.Sprintf("%d", ds.Deaths),
				Sparkline(ds.DPSRolling10sAvg),
			})
		}
		if err := writeLines(w, formatTable(headers, rows, rightAlign)); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, ""); err != nil {
			return err
		}
	}
	return nil
}

// RenderBuffTable prints one column per synergy group for each party.
func RenderBuffTable(w io.Writer, t BuffTable) error {
	if t.Title != "" {
		if _, err := fmt.Fprintln(w, t.Title); err != nil {
			return err
		}
	}
	if partiesEmpty(t.Parties) {
		_, err := fmt.Fprintln(w, "No players found.")
		return err
	}
	for i, party := range t.Parties {
		var keys []string
		if i < len(t.Keys) {
			keys = t.Keys[i]
		}
		if len(keys) == 0 {
			if _, err := fmt.Fprintf(w, "Party %d: no synergies.\n\n", i+1); err != nil {
				return err
			}
			continue
		}
		headers := append([]string{"Name"}, groupLabels(t.Grouped, keys)...)
		rightAlign := map[int]bool{}
		for c := 1; c < len(headers); c++ {
			rightAlign[c] = true
		}
		rows := make([][]string, 0, len(party.Members))
		for _, m := range party.Members {
			row := []string{m.Entity.Name}
			byKey := detailsByKey(t.Details[m.Entity.Name])
			for _, key := range keys {
				row = append(row, detailCell(byKey[key]))
			}
			rows = append(rows, row)
		}
		if len(t.Parties) > 1 {
			if _, err := fmt.Fprintf(w, "Party %d\n", i+1); err != nil {
				return err
			}
		}
		if err := writeLines(w, formatTable(headers, rows, rightAlign)); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, ""); err != nil {
			return err
		}
	}
	return nil
}

// RenderSkillBuffs prints a focused player's skills against synergy groups.
func RenderSkillBuffs(w io.Writer, grouped synergy.Grouped, skills []*model.Skill, keys []string, details map[int][]model.BuffDetails) error {
	if len(skills) == 0 {
		_, err := fmt.Fprintln(w, "No skills found.")
		return err
	}
	headers := append([]string{"Skill", "Damage"}, groupLabels(grouped, keys)...)
	rightAlign := map[int]bool{}
	for c := 1; c < len(headers); c++ {
		rightAlign[c] = true
	}
	rows := make([][]string, 0, len(skills))
	for _, s := range skills {
		row := []string{s.Name, Abbreviate(float64(s.TotalDamage))}
		byKey := detailsByKey(details[s.ID])
		for _, key := range keys {
			row = append(row, detailCell(byKey[key]))
		}
		rows = append(rows, row)
	}
	if err := writeLines(w, formatTable(headers, rows, rightAlign)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderDPSChart plots the rolling DPS of players.
func RenderDPSChart(w io.Writer, players []*model.Entity, totalWidth, height int, useColor bool) error {
	series := make([]Series, 0, len(players))
	for _, p := range players {
		if len(p.DamageStats.DPSRolling10sAvg) == 0 {
			continue
		}
		series = append(series, Series{Name: p.Name, Values: p.DamageStats.DPSRolling10sAvg})
	}
	if len(series) == 0 {
		_, err := fmt.Fprintln(w, "No DPS samples.")
		return err
	}
	return PlotChart(w, "DPS (10s rolling)", series, ChartWidthFor(totalWidth), height, useColor)
}

// RenderEncounterList prints stored encounter previews.
func RenderEncounterList(w io.Writer, previews []model.EncounterPreview) error {
	if len(previews) == 0 {
		_, err := fmt.Fprintln(w, "No encounters found.")
		return err
	}
	headers := []string{"ID", "Started", "Boss", "Duration", "Cleared", "Local"}
	rows := make([][]string, 0, len(previews))
	for _, p := range previews {
		cleared := ""
		if p.Cleared {
			cleared = "yes"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", p.ID),
			time.UnixMilli(p.FightStart).Format("2006-01-02 15:04"),
			p.Boss,
			FormatDuration(p.DurationMs),
			cleared,
			p.LocalPlayer,
		})
	}
	return writeLines(w, formatTable(headers, rows, map[int]bool{0: true, 3: true}))
}

// CritRate returns the crit percentage across an entity's skills.
func CritRate(e *model.Entity) float64 {
	var hits, crits int64
	for _, s := range e.Skills {
		if s == nil {
			continue
		}
		hits += s.Hits
		crits += s.Crits
	}
	return Ratio(float64(crits), float64(hits))
}

// GroupLabel returns a short column title for a synergy group.
func GroupLabel(g synergy.Group) string {
	if name, ok := strings.CutPrefix(g.Key, "_set_"); ok {
		return name
	}
	if len(g.Members) == 0 || g.Members[0].Effect == nil {
		return g.Key
	}
	src := g.Members[0].Effect.Source
	if src.Skill != nil && src.Skill.Name != "" {
		return src.Skill.Name
	}
	if src.Name != "" {
		return src.Name
	}
	return g.Key
}

func groupLabels(grouped synergy.Grouped, keys []string) []string {
	labels := make([]string, 0, len(keys))
	for _, key := range keys {
		if g, ok := grouped.Lookup(key); ok {
			labels = append(labels, GroupLabel(g))
			continue
		}
		labels = append(labels, key)
	}
	return labels
}

func detailsByKey(details []model.BuffDetails) map[string]model.BuffDetails {
	out := make(map[string]model.BuffDetails, len(details))
	for _, d := range details {
		out[d.ID] = d
	}
	return out
}

func detailCell(d model.BuffDetails) string {
	if !d.HasPercentage() {
		return ""
	}
	bonus := 0
	for _, b := range d.Buffs {
		if b.Bonus > bonus {
			bonus = b.Bonus
		}
	}
	if bonus > 0 {
		return fmt.Sprintf("%s (+%d)", d.Percentage, bonus)
	}
	return d.Percentage
}

func partiesEmpty(parties []Party) bool {
	for _, p := range parties {
		if len(p.Members) > 0 {
			return false
		}
	}
	return true
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
