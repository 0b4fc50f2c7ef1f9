package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSpecies(t *testing.T) {
	cases := map[string]Species{
		"dog":        SpeciesDog,
		"Puppy":      SpeciesDog,
		" KITTEN ":   SpeciesCat,
		"bunny":      SpeciesRabbit,
		"guinea pig": SpeciesGuineaPig,
		"parrot":     SpeciesBird,
		"pet":        SpeciesUnknown,
		"dragon":     SpeciesUnknown,
		"":           SpeciesUnknown,
	}
	for raw, want := range cases {
		assert.Equal(t, want, NormalizeSpecies(raw), "input %q", raw)
	}
}

func TestSpeciesKnown(t *testing.T) {
	assert.True(t, SpeciesDog.Known())
	assert.False(t, SpeciesUnknown.Known())
	assert.False(t, Species("").Known())
}

func TestAllSpeciesExcludesUnknown(t *testing.T) {
	for _, s := range AllSpecies() {
		assert.True(t, s.Known())
	}
	assert.Len(t, AllSpecies(), 7)
}
