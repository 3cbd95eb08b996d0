// Package synergy classifies status effects and groups them into synergy buckets.
package synergy

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/tuimeter/internal/model"
)

//go:embed tables.yaml
var defaultTablesYAML []byte

// Tables holds game-specific lookup data used by key derivation and resolution.
type Tables struct {
	Classes                    map[int]string `yaml:"classes"`
	SupportClassIDs            []int          `yaml:"support_class_ids"`
	MarkingGroups              []int          `yaml:"marking_groups"`
	AttackPowerGroups          []int          `yaml:"attack_power_groups"`
	IdentityIDs                []int          `yaml:"identity_ids"`
	FilterExemptClassID        int            `yaml:"filter_exempt_class_id"`
	HyperAwakeningTechniqueIDs []int          `yaml:"hyper_awakening_technique_ids"`
	Bonuses                    []BonusRule    `yaml:"bonuses"`
}

// BonusRule annotates buffs of one group key by matching their description.
type BonusRule struct {
	Key    string       `yaml:"key"`
	Levels []BonusLevel `yaml:"levels"`
}

// BonusLevel maps a description substring to a bonus value.
type BonusLevel struct {
	Match string `yaml:"match"`
	Bonus int    `yaml:"bonus"`
}

// DefaultTables returns the embedded lookup tables.
func DefaultTables() *Tables {
	t, err := parseTables(defaultTablesYAML, &Tables{})
	if err != nil {
		panic(fmt.Sprintf("embedded tables are invalid: %v", err))
	}
	return t
}

// LoadTables reads a YAML override on top of the embedded tables.
// Lists present in the file replace the defaults; class names are merged.
// An empty path returns the defaults.
func LoadTables(path string) (*Tables, error) {
	base := DefaultTables()
	if strings.TrimSpace(path) == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tables: %w", err)
	}
	t, err := parseTables(data, base)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func parseTables(data []byte, into *Tables) (*Tables, error) {
	if err := yaml.Unmarshal(data, into); err != nil {
		return nil, fmt.Errorf("failed to decode tables: %w", err)
	}
	if into.Classes == nil {
		into.Classes = map[int]string{}
	}
	return into, nil
}

// ClassName returns the class name for an id, or "Unknown".
func (t *Tables) ClassName(classID int) string {
	if name, ok := t.Classes[classID]; ok && name != "" {
		return name
	}
	return "Unknown"
}

// IsSupportBuff reports whether the effect is applied by a support class skill.
func (t *Tables) IsSupportBuff(effect *model.StatusEffect) bool {
	if effect == nil || effect.Source.Skill == nil {
		return false
	}
	return containsInt(t.SupportClassIDs, effect.Source.Skill.ClassID)
}

// BonusFor returns the bonus annotation for an effect in the given group, or 0.
func (t *Tables) BonusFor(key string, effect *model.StatusEffect) int {
	if effect == nil {
		return 0
	}
	for _, rule := range t.Bonuses {
		if rule.Key != key {
			continue
		}
		for _, level := range rule.Levels {
			if level.Match != "" && strings.Contains(effect.Source.Desc, level.Match) {
				return level.Bonus
			}
		}
		return 0
	}
	return 0
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
