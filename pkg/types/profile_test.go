package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCollapsesAbsentMarkers(t *testing.T) {
	p := PatientProfile{
		Name:     "N/A",
		Species:  "Puppy",
		Breed:    " unknown ",
		Age:      "3 years",
		Sex:      "null",
		Weight:   "not provided",
		Symptoms: []string{" vomiting ", "", "none", "lethargy"},
	}.Normalize()

	assert.Empty(t, p.Name)
	assert.Equal(t, SpeciesDog, p.Species)
	assert.Empty(t, p.Breed)
	assert.Equal(t, "3 years", p.Age)
	assert.Empty(t, p.Sex)
	assert.Empty(t, p.Weight)
	assert.Equal(t, []string{"vomiting", "lethargy"}, p.Symptoms)
}

func TestMergeOverwritesScalarsKeepsAbsent(t *testing.T) {
	base := PatientProfile{Name: "Rex", Species: SpeciesDog, Age: "2 years"}
	merged := base.Merge(PatientProfile{Name: "unknown", Breed: "beagle", Age: "3 years"})

	assert.Equal(t, "Rex", merged.Name)
	assert.Equal(t, SpeciesDog, merged.Species)
	assert.Equal(t, "beagle", merged.Breed)
	assert.Equal(t, "3 years", merged.Age)
}

func TestMergeSymptomsAppendOnlyUnion(t *testing.T) {
	base := PatientProfile{Symptoms: []string{"Vomiting", "diarrhea"}}
	merged := base.Merge(PatientProfile{Symptoms: []string{" vomiting ", "lethargy", "Diarrhea"}})

	assert.Equal(t, []string{"Vomiting", "diarrhea", "lethargy"}, merged.Symptoms)
}

func TestMergeIdempotent(t *testing.T) {
	base := PatientProfile{
		Name:     "Rex",
		Species:  SpeciesDog,
		Symptoms: []string{"vomiting"},
	}
	delta := PatientProfile{
		Name:     "Max",
		Breed:    "beagle",
		Age:      "3 years",
		Symptoms: []string{"Lethargy", "vomiting"},
	}

	once := base.Merge(delta)
	twice := once.Merge(delta)
	assert.Equal(t, once, twice)
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	base := PatientProfile{Symptoms: []string{"vomiting"}}
	delta := PatientProfile{Symptoms: []string{"lethargy"}, Breed: "poodle"}

	_ = base.Merge(delta)

	assert.Equal(t, []string{"vomiting"}, base.Symptoms)
	assert.Empty(t, base.Breed)
	assert.Equal(t, []string{"lethargy"}, delta.Symptoms)
}

func TestMergeUnknownSpeciesDoesNotOverwrite(t *testing.T) {
	base := PatientProfile{Species: SpeciesCat}
	merged := base.Merge(PatientProfile{Species: "some lizard"})
	assert.Equal(t, SpeciesCat, merged.Species)
}

func TestMissingMandatoryPriorityOrder(t *testing.T) {
	assert.Equal(t,
		[]string{FieldSymptoms, FieldSpecies, FieldName, FieldBreed},
		PatientProfile{}.MissingMandatory())

	p := PatientProfile{
		Name:     "Momo",
		Species:  SpeciesCat,
		Breed:    "siamese",
		Symptoms: []string{"sneezing"},
	}
	assert.Empty(t, p.MissingMandatory())
	assert.True(t, p.Complete())
	assert.Equal(t, []string{FieldAge, FieldSex, FieldWeight}, p.MissingOptional())
}

func TestLanguageOrDefault(t *testing.T) {
	assert.Equal(t, "English", PatientProfile{}.LanguageOrDefault())
	assert.Equal(t, "Spanish", PatientProfile{Language: "Spanish"}.LanguageOrDefault())
}

func TestSummaryPlaceholders(t *testing.T) {
	s := PatientProfile{Name: "Rex", Species: SpeciesDog, Symptoms: []string{"vomiting"}}.Summary()
	assert.Contains(t, s, "Name:     Rex")
	assert.Contains(t, s, "Species:  dog")
	assert.Contains(t, s, "Breed:    Unknown")
	assert.Contains(t, s, "Age:      N/A")
	assert.Contains(t, s, "Symptoms: vomiting")

	empty := PatientProfile{}.Summary()
	assert.Contains(t, empty, "Symptoms: None reported")
	assert.Contains(t, empty, "Species:  unknown")
}
