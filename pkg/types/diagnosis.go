package types

// SearchQueries is the planner output: two complementary views of the same
// patient, one aimed at the dense space and one at the sparse space.
type SearchQueries struct {
	// SimulatedObservation is a first-person colloquial complaint in
	// English, reconstructed from the profile for semantic matching against
	// owner observations.
	SimulatedObservation string `json:"simulated_observation"`

	// MedicalExpansion substitutes lay symptom phrases with standard
	// clinical terminology for keyword matching against professional
	// descriptions.
	MedicalExpansion string `json:"medical_expansion"`
}

// List returns the non-empty queries in planner order.
func (q SearchQueries) List() []string {
	var out []string
	if q.SimulatedObservation != "" {
		out = append(out, q.SimulatedObservation)
	}
	if q.MedicalExpansion != "" {
		out = append(out, q.MedicalExpansion)
	}
	return out
}

// DiagnosisDraft is the actor's proposal: exactly one most-likely condition
// with its supporting analysis. It is consumed once by the critic and then
// discarded.
type DiagnosisDraft struct {
	KeySymptomsAnalysis string   `json:"key_symptoms_analysis"`
	MatchedDocIDs       []string `json:"matched_doc_ids"`
	MostLikelyCondition string   `json:"most_likely_condition"`
	Reasoning           string   `json:"reasoning"`
	AdviceForOwner      string   `json:"advice_for_owner"`
}

// ReviewVerdict is the critic's decision on a draft, including the exact
// message shown to the user.
type ReviewVerdict struct {
	Approved      bool   `json:"is_approved"`
	Critique      string `json:"critique"`
	FinalResponse string `json:"final_response_to_user"`
}

// Intent classifies what the user wants from the assistant. Only diagnosis
// has a full workflow; treatment and knowledge are acknowledged stubs.
type Intent string

const (
	IntentDiagnosis  Intent = "intent_diagnosis"
	IntentTreatment  Intent = "intent_treatment"
	IntentKnowledge  Intent = "intent_knowledge"
	IntentChitChat   Intent = "chit_chat"
	IntentOutOfScope Intent = "out_of_scope"
)
