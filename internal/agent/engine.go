// Package agent orchestrates a conversation turn: routing, profile
// accumulation, the inquiry loop, and the retrieval plus actor/critic
// diagnosis, with the session checkpointed after every turn.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/pawsense/vetagent/internal/dialogue"
	"github.com/pawsense/vetagent/internal/observability"
	"github.com/pawsense/vetagent/pkg/types"
)

// ErrEmptyMessage is returned when a turn carries no user text.
var ErrEmptyMessage = errors.New("empty user message")

// Canned responses for the branches that never reach retrieval.
const (
	greetingResponse = "Hello! I'm a pet health assistant. Please describe your pet's health issue or situation."

	outOfScopeResponse = "I can only help with pet health questions. Is there anything going on with your pet I can help with?"

	treatmentResponse = "Treatment guidance isn't available yet. For medication, dosage or post-op care questions, please contact your veterinarian directly."

	knowledgeResponse = "General pet care guidance isn't available yet. If your pet is showing any symptoms, describe them and I can help figure out what might be wrong."

	sessionClosedResponse = "This consultation has ended. Please start a new session for another question."

	inquiryAbortedResponse = "I wasn't able to gather enough information about your pet to continue. Please consult a licensed veterinarian, and feel free to start a new session when you can share more details."
)

// Extractor produces a profile delta from one user message.
type Extractor interface {
	Extract(ctx context.Context, lastQuestion string, profile types.PatientProfile, userInput string) (types.PatientProfile, error)
}

// Classifier routes the opening message to a workflow branch.
type Classifier interface {
	Classify(ctx context.Context, userInput string) (types.Intent, float64)
}

// Inquirer decides and generates clarifying questions.
type Inquirer interface {
	Assess(state *types.ConversationState) dialogue.Phase
	Ask(ctx context.Context, state *types.ConversationState, phase dialogue.Phase) string
}

// Planner rewrites a profile into search queries.
type Planner interface {
	Plan(ctx context.Context, profile types.PatientProfile) types.SearchQueries
}

// Retriever runs the hybrid retrieval pipeline.
type Retriever interface {
	Retrieve(ctx context.Context, queries []string, species types.Species) []types.SearchEvidence
}

// Diagnoser runs the actor/critic diagnosis pass.
type Diagnoser interface {
	Diagnose(ctx context.Context, profile types.PatientProfile, evidence []types.SearchEvidence) (*types.DiagnosisDraft, types.ReviewVerdict)
}

// TurnResult is what one processed message produces.
type TurnResult struct {
	SessionID string               `json:"session_id"`
	Response  string               `json:"response"`
	Status    types.AgentStatus    `json:"status"`
	Profile   types.PatientProfile `json:"profile"`
}

// Engine ties the conversational components together. One Engine serves all
// sessions; turns within a session are serialized, sessions run in parallel.
type Engine struct {
	extractor Extractor
	intents   Classifier
	inquiry   Inquirer
	planner   Planner
	retriever Retriever
	diagnoser Diagnoser
	sessions  SessionStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine wires an engine from its collaborators.
func NewEngine(extractor Extractor, intents Classifier, inquiry Inquirer, planner Planner, retriever Retriever, diagnoser Diagnoser, sessions SessionStore) *Engine {
	return &Engine{
		extractor: extractor,
		intents:   intents,
		inquiry:   inquiry,
		planner:   planner,
		retriever: retriever,
		diagnoser: diagnoser,
		sessions:  sessions,
		locks:     make(map[string]*sync.Mutex),
	}
}

// sessionLock returns the mutex serializing turns for one session.
func (e *Engine) sessionLock(sessionID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[sessionID] = lock
	}
	return lock
}

// loadOrCreate fetches the session, creating a fresh one when the ID is
// empty or unknown.
func (e *Engine) loadOrCreate(ctx context.Context, sessionID string) (*types.ConversationState, error) {
	if sessionID == "" {
		return types.NewConversationState(uuid.NewString()), nil
	}
	state, err := e.sessions.Load(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return types.NewConversationState(sessionID), nil
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

// HandleMessage processes one user message and returns the assistant's
// reply. An empty sessionID starts a new session; the returned result
// carries the ID to use for the rest of the conversation.
func (e *Engine) HandleMessage(ctx context.Context, sessionID, userInput string) (*TurnResult, error) {
	userInput = strings.TrimSpace(userInput)
	if userInput == "" {
		return nil, ErrEmptyMessage
	}

	state, err := e.loadOrCreate(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("agent: load session: %w", err)
	}

	lock := e.sessionLock(state.SessionID)
	lock.Lock()
	defer lock.Unlock()

	state.Append(types.RoleUser, userInput)
	response := e.route(ctx, state, userInput)
	state.Append(types.RoleAssistant, response)

	if err := e.sessions.Save(ctx, state); err != nil {
		// The reply is already computed; a failed checkpoint costs resume
		// ability, not this turn.
		log.Printf("agent: checkpoint failed for session %s: %v", state.SessionID, err)
	}

	return &TurnResult{
		SessionID: state.SessionID,
		Response:  response,
		Status:    state.Status,
		Profile:   state.Profile,
	}, nil
}

// route dispatches on session status and returns the reply text. All state
// mutation happens here and below; the caller owns history and persistence.
func (e *Engine) route(ctx context.Context, state *types.ConversationState, userInput string) string {
	switch state.Status {
	case types.StatusInitialized:
		return e.handleOpening(ctx, state, userInput)
	case types.StatusInquiry:
		e.absorb(ctx, state, userInput)
		return e.inquiryStep(ctx, state)
	default:
		return sessionClosedResponse
	}
}

// handleOpening classifies the first substantive message and branches.
func (e *Engine) handleOpening(ctx context.Context, state *types.ConversationState, userInput string) string {
	intent, confidence := e.intents.Classify(ctx, userInput)
	log.Printf("agent: session %s routed to %s (confidence %.2f)", state.SessionID, intent, confidence)

	switch intent {
	case types.IntentChitChat:
		return greetingResponse
	case types.IntentOutOfScope:
		return outOfScopeResponse
	case types.IntentTreatment:
		state.Status = types.StatusTreatment
		return treatmentResponse
	case types.IntentKnowledge:
		state.Status = types.StatusKnowledge
		return knowledgeResponse
	default:
		state.Status = types.StatusInquiry
		e.absorb(ctx, state, userInput)
		return e.inquiryStep(ctx, state)
	}
}

// absorb extracts the delta from userInput and merges it into the profile.
// Extraction failure is a no-op merge: the turn still proceeds.
func (e *Engine) absorb(ctx context.Context, state *types.ConversationState, userInput string) {
	lastQuestion := state.LastAssistantMessage()
	delta, err := e.extractor.Extract(ctx, lastQuestion, state.Profile, userInput)
	if err != nil {
		log.Printf("agent: extraction failed for session %s, keeping profile unchanged: %v", state.SessionID, err)
		return
	}
	state.Profile = state.Profile.Merge(delta)
}

// inquiryStep either asks the next clarifying question or runs diagnosis.
func (e *Engine) inquiryStep(ctx context.Context, state *types.ConversationState) string {
	phase := e.inquiry.Assess(state)
	switch phase {
	case dialogue.PhaseCollectingMandatory, dialogue.PhaseCollectingOptional:
		question := e.inquiry.Ask(ctx, state, phase)
		state.InquiryTurns++
		if phase == dialogue.PhaseCollectingOptional {
			state.AdditionalInquiryTurns++
		}
		return question
	case dialogue.PhaseAborted:
		// Budget exhausted with mandatory fields still missing: the
		// conversation ends without a diagnosis.
		log.Printf("agent: session %s hit the inquiry turn budget with an incomplete profile, ending", state.SessionID)
		state.Status = types.StatusEnd
		return inquiryAbortedResponse
	default:
		return e.diagnose(ctx, state)
	}
}

// diagnose runs planning, retrieval and the actor/critic pass, then closes
// the session.
func (e *Engine) diagnose(ctx context.Context, state *types.ConversationState) string {
	state.Status = types.StatusDiagnosis

	queries := e.planner.Plan(ctx, state.Profile).List()
	evidence := e.retriever.Retrieve(ctx, queries, state.Profile.Species)
	if len(evidence) > 0 {
		observability.Retrievals.WithLabelValues("hit").Inc()
	} else {
		observability.Retrievals.WithLabelValues("empty").Inc()
	}

	draft, verdict := e.diagnoser.Diagnose(ctx, state.Profile, evidence)
	outcome := "rejected"
	if verdict.Approved {
		outcome = "approved"
	} else if draft == nil {
		outcome = "fallback"
	}
	observability.Diagnoses.WithLabelValues(outcome).Inc()

	state.LastEvidence = evidence
	state.LastDraft = draft
	state.Status = types.StatusEnd

	log.Printf("agent: session %s diagnosed (approved=%t, evidence=%d)", state.SessionID, verdict.Approved, len(evidence))
	return verdict.FinalResponse
}
