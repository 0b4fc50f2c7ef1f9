package types

import (
	"fmt"
	"strings"
)

// Profile field names used for missing-field reporting and question targeting.
const (
	FieldName     = "name"
	FieldSpecies  = "species"
	FieldBreed    = "breed"
	FieldSymptoms = "symptoms"
	FieldAge      = "age"
	FieldSex      = "sex"
	FieldWeight   = "weight"
)

// absentMarkers are scalar values the extractor model emits when it has
// nothing to say about a field. They are normalized to the empty string so
// that "absent" has exactly one representation in a PatientProfile.
var absentMarkers = map[string]bool{
	"": true, "none": true, "null": true, "n/a": true,
	"unknown": true, "not provided": true,
}

// PatientProfile is the structured patient record accumulated over the
// inquiry loop. Every scalar field is either a meaningful value or the empty
// string; Species additionally treats SpeciesUnknown as absent.
//
// Profiles are only ever mutated by Merge, which returns a new value and
// leaves both inputs untouched.
type PatientProfile struct {
	Name     string   `json:"name,omitempty"`
	Species  Species  `json:"species,omitempty"`
	Breed    string   `json:"breed,omitempty"`
	Symptoms []string `json:"symptoms,omitempty"`
	Age      string   `json:"age,omitempty"`
	Sex      string   `json:"sex,omitempty"`
	Weight   string   `json:"weight,omitempty"`
	Language string   `json:"language,omitempty"`
}

// normalizeScalar collapses the various "nothing here" spellings to "".
func normalizeScalar(v string) string {
	trimmed := strings.TrimSpace(v)
	if absentMarkers[strings.ToLower(trimmed)] {
		return ""
	}
	return trimmed
}

// Normalize returns a copy of p with every scalar field reduced to canonical
// form and the symptom list cleaned (trimmed, non-empty, absent markers
// dropped). It is applied at construction time: every profile that enters the
// system passes through here exactly once.
func (p PatientProfile) Normalize() PatientProfile {
	out := PatientProfile{
		Name:     strings.TrimSpace(p.Name),
		Breed:    normalizeScalar(p.Breed),
		Age:      normalizeScalar(p.Age),
		Sex:      normalizeScalar(p.Sex),
		Weight:   normalizeScalar(p.Weight),
		Language: normalizeScalar(p.Language),
	}
	// The name keeps its original language and casing; only pure absent
	// markers are stripped.
	if absentMarkers[strings.ToLower(out.Name)] {
		out.Name = ""
	}
	if p.Species != "" {
		out.Species = NormalizeSpecies(string(p.Species))
	}
	for _, s := range p.Symptoms {
		cleaned := strings.TrimSpace(s)
		if cleaned == "" || absentMarkers[strings.ToLower(cleaned)] {
			continue
		}
		out.Symptoms = append(out.Symptoms, cleaned)
	}
	return out
}

// Merge folds a delta profile into p and returns the result. Semantics:
//   - Symptoms: append-only union. Delta items are trimmed and added only if
//     not already present (exact match after trim); first-seen order is kept.
//   - Every other field: a present (non-absent) delta value overwrites the
//     current value; absent delta fields leave the current value untouched.
//
// Neither p nor delta is mutated.
func (p PatientProfile) Merge(delta PatientProfile) PatientProfile {
	out := p
	out.Symptoms = append([]string(nil), p.Symptoms...)

	d := delta.Normalize()

	if d.Name != "" {
		out.Name = d.Name
	}
	if d.Species.Known() {
		out.Species = d.Species
	}
	if d.Breed != "" {
		out.Breed = d.Breed
	}
	if d.Age != "" {
		out.Age = d.Age
	}
	if d.Sex != "" {
		out.Sex = d.Sex
	}
	if d.Weight != "" {
		out.Weight = d.Weight
	}
	if d.Language != "" {
		out.Language = d.Language
	}

	for _, sym := range d.Symptoms {
		if !containsFold(out.Symptoms, sym) {
			out.Symptoms = append(out.Symptoms, sym)
		}
	}
	return out
}

// containsFold reports whether list already holds item, comparing
// case-insensitively after whitespace normalization so "Vomiting" and
// " vomiting " count as duplicates.
func containsFold(list []string, item string) bool {
	needle := strings.ToLower(strings.Join(strings.Fields(item), " "))
	for _, existing := range list {
		if strings.ToLower(strings.Join(strings.Fields(existing), " ")) == needle {
			return true
		}
	}
	return false
}

// MissingMandatory returns the mandatory fields still absent, in question
// priority order (Symptoms > Species > Name > Breed).
func (p PatientProfile) MissingMandatory() []string {
	var missing []string
	if len(p.Symptoms) == 0 {
		missing = append(missing, FieldSymptoms)
	}
	if !p.Species.Known() {
		missing = append(missing, FieldSpecies)
	}
	if p.Name == "" {
		missing = append(missing, FieldName)
	}
	if p.Breed == "" {
		missing = append(missing, FieldBreed)
	}
	return missing
}

// MissingOptional returns the optional fields still absent.
func (p PatientProfile) MissingOptional() []string {
	var missing []string
	if p.Age == "" {
		missing = append(missing, FieldAge)
	}
	if p.Sex == "" {
		missing = append(missing, FieldSex)
	}
	if p.Weight == "" {
		missing = append(missing, FieldWeight)
	}
	return missing
}

// Complete reports whether every mandatory field is filled.
func (p PatientProfile) Complete() bool {
	return len(p.MissingMandatory()) == 0
}

// LanguageOrDefault returns the user's detected language, defaulting to
// English when none was recorded.
func (p PatientProfile) LanguageOrDefault() string {
	if p.Language == "" {
		return "English"
	}
	return p.Language
}

// Summary renders the profile for inclusion in conversation messages and
// prompts.
func (p PatientProfile) Summary() string {
	orUnknown := func(v string) string {
		if v == "" {
			return "Unknown"
		}
		return v
	}
	orNA := func(v string) string {
		if v == "" {
			return "N/A"
		}
		return v
	}
	symptoms := "None reported"
	if len(p.Symptoms) > 0 {
		symptoms = strings.Join(p.Symptoms, ". ")
	}
	return fmt.Sprintf(
		"Pet Profile Summary:\n"+
			"-----------------------\n"+
			"Name:     %s\n"+
			"Species:  %s\n"+
			"Breed:    %s\n"+
			"Age:      %s\n"+
			"Sex:      %s\n"+
			"Weight:   %s\n"+
			"Symptoms: %s\n",
		orUnknown(p.Name), p.Species.String(), orUnknown(p.Breed),
		orNA(p.Age), orNA(p.Sex), orNA(p.Weight), symptoms,
	)
}
