package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/tuimeter/internal/model"
)

func players(damage map[string]int64) []*model.Entity {
	out := make([]*model.Entity, 0, len(damage))
	for name, d := range damage {
		out = append(out, &model.Entity{
			Name:        name,
			EntityType:  model.EntityPlayer,
			DamageStats: model.DamageStats{DamageDealt: d, ShieldsGiven: d / 10},
		})
	}
	return out
}

func names(p Party) []string {
	out := make([]string, 0, len(p.Members))
	for _, m := range p.Members {
		out = append(out, m.Entity.Name)
	}
	return out
}

func percentages(p Party) []float64 {
	out := make([]float64, 0, len(p.Members))
	for _, m := range p.Members {
		out = append(out, m.Percentage)
	}
	return out
}

func TestPartitionDeclaredParties(t *testing.T) {
	ps := players(map[string]int64{"A": 50, "B": 30, "C": 80, "D": 10})

	parties := Partition(ps, [][]string{{"A", "B"}, {"C", "D"}}, DamageMetric)

	require.Len(t, parties, 2)
	assert.Equal(t, []string{"A", "B"}, names(parties[0]))
	assert.Equal(t, []string{"C", "D"}, names(parties[1]))
	assert.InDeltaSlice(t, []float64{62.5, 37.5}, percentages(parties[0]), 1e-9)
	assert.InDeltaSlice(t, []float64{100, 12.5}, percentages(parties[1]), 1e-9)
}

func TestPartitionCollapsesBelowTwoParties(t *testing.T) {
	ps := players(map[string]int64{"A": 50, "B": 30, "C": 80})
	tests := []struct {
		name       string
		membership [][]string
	}{
		{"none", nil},
		{"one", [][]string{{"A", "B", "C"}}},
		{"one non-empty", [][]string{{"A"}, {}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parties := Partition(ps, tt.membership, DamageMetric)
			require.Len(t, parties, 1)
			assert.Equal(t, []string{"C", "A", "B"}, names(parties[0]))
		})
	}
}

func TestPartitionDropsUnknownNames(t *testing.T) {
	ps := players(map[string]int64{"A": 50, "B": 30})
	parties := Partition(ps, [][]string{{"A", "Ghost"}, {"B"}}, DamageMetric)
	require.Len(t, parties, 2)
	assert.Equal(t, []string{"A"}, names(parties[0]))
	assert.Equal(t, []string{"B"}, names(parties[1]))
}

func TestPartitionTiesAndZeroMax(t *testing.T) {
	ps := players(map[string]int64{"Bea": 0, "Abe": 0})
	parties := Partition(ps, nil, DamageMetric)
	require.Len(t, parties, 1)
	assert.Equal(t, []string{"Abe", "Bea"}, names(parties[0]))
	assert.Equal(t, []float64{0, 0}, percentages(parties[0]))
}

func TestPartitionShieldMetric(t *testing.T) {
	ps := players(map[string]int64{"A": 1000, "B": 500})
	parties := Partition(ps, nil, ShieldMetric(model.ShieldGiven))
	require.Len(t, parties, 1)
	assert.Equal(t, []float64{100, 50}, percentages(parties[0]))
	assert.Equal(t, 100.0, parties[0].Members[0].Value)
}
