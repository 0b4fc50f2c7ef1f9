package types

import "strings"

// Species is the closed set of animal species the assistant knows how to
// triage. Free-form user input is mapped onto this set with NormalizeSpecies;
// everything unrecognized collapses to SpeciesUnknown.
type Species string

const (
	SpeciesBird      Species = "bird"
	SpeciesCat       Species = "cat"
	SpeciesDog       Species = "dog"
	SpeciesFerret    Species = "ferret"
	SpeciesGuineaPig Species = "guinea_pig"
	SpeciesHamster   Species = "hamster"
	SpeciesRabbit    Species = "rabbit"
	SpeciesUnknown   Species = "unknown"
)

// AllSpecies lists every concrete species (excluding SpeciesUnknown), in the
// order used for prompt vocabularies.
func AllSpecies() []Species {
	return []Species{
		SpeciesBird, SpeciesCat, SpeciesDog, SpeciesFerret,
		SpeciesGuineaPig, SpeciesHamster, SpeciesRabbit,
	}
}

// speciesAliases maps lowercased free-form species mentions to the enum.
// Colloquial forms ("puppy", "bunny") are part of the contract: the extractor
// model is told to infer species from them, and corpus records carry them too.
var speciesAliases = map[string]Species{
	"bird": SpeciesBird, "parrot": SpeciesBird, "cockatiel": SpeciesBird,
	"budgie": SpeciesBird, "finch": SpeciesBird, "canary": SpeciesBird,
	"avian": SpeciesBird,

	"cat": SpeciesCat, "kitten": SpeciesCat,

	"dog": SpeciesDog, "puppy": SpeciesDog,

	"ferret": SpeciesFerret,
	"guinea pig": SpeciesGuineaPig, "guinea_pig": SpeciesGuineaPig,
	"hamster": SpeciesHamster,
	"rabbit": SpeciesRabbit, "bunny": SpeciesRabbit,

	"unknown": SpeciesUnknown, "pet": SpeciesUnknown,
	"other": SpeciesUnknown, "none": SpeciesUnknown, "n/a": SpeciesUnknown,
}

// NormalizeSpecies maps free-form input to the Species enum.
// Unrecognized values return SpeciesUnknown, never an error.
func NormalizeSpecies(raw string) Species {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	if s, ok := speciesAliases[cleaned]; ok {
		return s
	}
	return SpeciesUnknown
}

// Known reports whether s carries actual information. The empty string and
// SpeciesUnknown both count as absent for profile-completeness checks.
func (s Species) Known() bool {
	return s != "" && s != SpeciesUnknown
}

func (s Species) String() string {
	if s == "" {
		return string(SpeciesUnknown)
	}
	return string(s)
}
