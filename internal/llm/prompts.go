package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pawsense/vetagent/pkg/types"
)

// DefaultOpeningQuestion is what the extractor resolves answers against when
// the assistant has not asked anything yet.
const DefaultOpeningQuestion = "Please describe your pet's health issue or situation."

// speciesVocabulary renders the closed species set for prompt use.
func speciesVocabulary() string {
	names := make([]string, 0, len(types.AllSpecies())+1)
	for _, s := range types.AllSpecies() {
		names = append(names, fmt.Sprintf("%q", string(s)))
	}
	names = append(names, fmt.Sprintf("%q", string(types.SpeciesUnknown)))
	return "[" + strings.Join(names, ", ") + "]"
}

// profileJSON renders the profile snapshot embedded in prompts. Marshalling
// a PatientProfile cannot fail; the fallback is belt and braces.
func profileJSON(p types.PatientProfile) string {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// ExtractionPrompt builds the delta-extraction prompt. The contract: only
// information asserted in the latest input may populate the delta; the last
// question and profile snapshot exist solely to resolve elliptical answers.
func ExtractionPrompt(lastQuestion string, profile types.PatientProfile, userInput string) string {
	if lastQuestion == "" {
		lastQuestion = DefaultOpeningQuestion
	}
	return fmt.Sprintf(`### Role & Objective
You are a Veterinary Data Extractor.

### Language Protocol
1. Translate ALL extracted values (species, breed, symptoms, age, sex, weight) into ENGLISH, whatever language the user writes in.
2. EXCEPTION: the pet's name stays in its ORIGINAL language.
3. Record the language of the user's latest input in the "language" field (e.g. "English", "Chinese", "Spanish").

### Input
<context_state>
  <last_agent_question>%s</last_agent_question>
  <current_profile_snapshot>
%s
  </current_profile_snapshot>
</context_state>

<user_latest_input>
"%s"
</user_latest_input>

### Extraction Rules
1. The Delta Rule: extract EXCLUSIVELY from <user_latest_input>. Use <context_state> ONLY to resolve ambiguity (coreference). If the input is "Yes" and the last question was "Is he vomiting?", extract "vomiting". If the input is "No", extract nothing. NEVER re-emit data that exists only in the snapshot.
2. Names: only extract a proper name (e.g. "Charlie"). "My dog" is not a name; leave it null.
3. Species: allowed values are %s. Infer from implication ("my puppy" means "dog"). Do not change an already-known species unless the user explicitly corrects it.
4. Breed: if a breed is named, extract it. If the user explicitly says they don't know, or the pet is a stray / mixed / "just a normal cat", set breed to the species value itself so the question is not asked again. If breed is simply not mentioned, leave it null.
5. Symptoms: extract the user's own description of what is happening, translated to English.

### Output
Return a strictly valid JSON object with keys: name, species, breed, symptoms (array of strings), age, sex, weight, language. Use null for anything not asserted in the latest input.`,
		lastQuestion, profileJSON(profile), userInput, speciesVocabulary())
}

// InquiryQuestionPrompt builds the clarifying-question prompt for the given
// missing fields. history is the formatted recent transcript; targets are
// profile field names in priority order.
func InquiryQuestionPrompt(history string, profile types.PatientProfile, targets []string) string {
	if history == "" {
		history = "(No conversation history)"
	}
	return fmt.Sprintf(`### Role
You are an empathetic and professional veterinary triage assistant collecting the missing pieces of a pet health profile.

### Context
<conversation_history>
%s
</conversation_history>

<current_profile_snapshot>
%s
</current_profile_snapshot>

<task_objective>
The user has NOT provided the following required fields: [%s]
</task_objective>

### Instructions
1. Ask for the information in <task_objective>. When several fields are missing, prioritize Symptoms > Species > Name > Breed. Combine questions naturally but never ask for more than 2 things at once.
2. Symptoms must be specific. Treat vague phrases like "my dog is sick", "not feeling well" or "something is wrong" as signals to ask follow-up questions (what exactly is happening? changes in eating, drinking, urination, behavior?), NOT as symptoms to record.
3. Anti-looping: if the history shows the user already said they do not know the answer to a missing field, do NOT ask for it again; move on to the next field or acknowledge.
4. Be concise and warm. If symptoms were described, briefly acknowledge them before asking.

### Critical Language Rule
Respond in the exact same language as the user's last message in <conversation_history>.

### Output
Return a JSON object: {"question": "<your question to the user>"}`,
		history, profileJSON(profile), strings.Join(targets, ", "))
}

// IntentPrompt builds the routing prompt classifying the user's first
// message into the intent taxonomy.
func IntentPrompt(userInput string) string {
	return fmt.Sprintf(`### Role
You are the routing layer of an online pet health assistant. Analyze the user's input and classify it. Do NOT answer the question itself.

### Categories
- "intent_diagnosis": the user describes symptoms, behavior changes or abnormal conditions and wants to know what is wrong (e.g. vomiting, limping, not eating, hair loss). If symptoms AND treatment are mentioned together, diagnosis wins.
- "intent_treatment": the user asks about medication, dosage, post-op care or managing an already-diagnosed condition.
- "intent_knowledge": general education about breeds, diet, habits or raising pets; no medical crisis implied.
- "chit_chat": greetings and small talk.
- "out_of_scope": anything unrelated to pets or veterinary medicine.

### User Input
"%s"

### Output
Return a JSON object: {"intent": "<category>", "confidence": <0.0-1.0>}`, userInput)
}

// QueryPlanPrompt builds the dual-view search query prompt from a finalized
// profile.
func QueryPlanPrompt(profile types.PatientProfile) string {
	return fmt.Sprintf(`### Role
You are a search query specialist for a veterinary retrieval system.

### Pet Profile
- Species: %s
- Breed: %s
- Age: %s
- Symptoms: %s

### Task
Generate exactly 2 search queries.

1. simulated_observation: reconstruct a likely first-person owner complaint ("My cat keeps throwing up...") including the symptoms naturally. This targets semantic matching against casual owner observations. English only; translate if the profile came from another language.
2. medical_expansion: convert the casual symptoms into standard veterinary terminology and synonyms ("throwing up" -> "emesis, vomiting"; "no energy" -> "lethargy"). Keep the species constraint (e.g. feline, canine). Keep the breed unless it is unknown, in which case drop it. English only.

### Output
Return a JSON object: {"simulated_observation": "...", "medical_expansion": "..."}`,
		profile.Species, profile.Breed, profile.Age, strings.Join(profile.Symptoms, ", "))
}

// TestQueriesPrompt builds the evaluation-query generation prompt: three
// user-style queries of increasing difficulty for one corpus record.
func TestQueriesPrompt(record types.PetRecord) string {
	return fmt.Sprintf(`### Role
You are generating realistic user queries to evaluate a veterinary retrieval system.

### Source Record
- Species: %s
- Breed: %s
- Symptom keywords: %s
- Observation: %s

### Task
Write 3 search queries a pet owner might type, each of which SHOULD retrieve this record:
1. easy: restates the observation almost directly, same vocabulary.
2. medium: paraphrases the symptoms in different words, keeps the species.
3. hard: vague or partial description, colloquial tone, may omit the species.

All queries in English, first person, no diagnosis names.

### Output
Return a JSON object: {"easy": "...", "medium": "...", "hard": "..."}`,
		record.Species, record.SpecificBreed, strings.Join(record.SymptomKeywords, ", "), record.Text)
}

// ActorPrompt builds the diagnosis proposal prompt.
func ActorPrompt(profile types.PatientProfile, evidenceBlock string) string {
	return fmt.Sprintf(`### Role
You are a senior veterinary diagnostician. Identify the SINGLE most likely medical condition based strictly on the provided evidence.

### Patient Profile
- Species: %s
- Breed: %s
- Age: %s
- Reported Symptoms: %s

### Evidence (Retrieved Medical Records)
%s

### Task
1. Analyze the patient's symptoms against the evidence.
2. Identify the ONE condition that best matches the symptom pattern. Even if several are possible, pick the one with the strongest evidence overlap.
3. Formulate professional advice for the owner.

### Constraints
- If a piece of evidence contradicts the patient's species (e.g. a cat record for a dog patient), ignore that evidence.
- If the evidence is insufficient to make a match, say so explicitly in the reasoning instead of inventing one.

### Output Requirements
- advice_for_owner MUST be written in %s.
- reasoning may be in English or %s, whichever is more precise.
Return a JSON object with keys: key_symptoms_analysis, matched_doc_ids (array), most_likely_condition, reasoning, advice_for_owner.`,
		profile.Species, profile.Breed, profile.Age, strings.Join(profile.Symptoms, ", "),
		evidenceBlock, profile.LanguageOrDefault(), profile.LanguageOrDefault())
}

// CriticPrompt builds the validation prompt reviewing an actor draft.
func CriticPrompt(profile types.PatientProfile, evidenceBlock string, draft types.DiagnosisDraft) string {
	return fmt.Sprintf(`### Role
You are a veterinary clinical supervisor validating a junior doctor's diagnosis.

### Context
- Patient Symptoms: %s (Species: %s; Breed: %s)
- Retrieved Evidence:
%s

### Proposed Diagnosis
- Condition: %s
- Reasoning: %s
- Proposed Advice: %s

### Validation Criteria
1. Hallucination check: does the condition actually appear in, or follow strongly from, the retrieved evidence? If the evidence is irrelevant, REJECT.
2. Symptom match: is the diagnosis logically consistent with the reported symptoms?
3. Safety: does the advice include the necessary disclaimer to consult a veterinarian?

### Task
- If APPROVED: rewrite the advice into a warm, professional response for the user in %s, including the condition name and the reasoning.
- If REJECTED: write a polite message in %s stating that the cause cannot be determined from the available data and recommending a professional veterinary consultation.

### Output
Return a JSON object: {"is_approved": <bool>, "critique": "...", "final_response_to_user": "..."}`,
		strings.Join(profile.Symptoms, ", "), profile.Species, profile.Breed,
		evidenceBlock,
		draft.MostLikelyCondition, draft.Reasoning, draft.AdviceForOwner,
		profile.LanguageOrDefault(), profile.LanguageOrDefault())
}
