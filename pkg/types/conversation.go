package types

import "time"

// AgentStatus names the phase a conversation is in. Transitions are
// one-directional: Initialized -> Inquiry -> Diagnosis -> End, with
// Treatment and Knowledge as terminal acknowledgment branches.
type AgentStatus string

const (
	StatusInitialized AgentStatus = "initialized"
	StatusInquiry     AgentStatus = "inquiry"
	StatusDiagnosis   AgentStatus = "diagnosis"
	StatusTreatment   AgentStatus = "treatment"
	StatusKnowledge   AgentStatus = "knowledge"
	StatusEnd         AgentStatus = "end"
)

// Message roles in the conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of the conversation transcript.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationState is the per-session aggregate persisted between turns.
// Exactly one AgentStatus is active at a time; the dialogue engine is the
// only writer. Sessions are independent: the session ID is the partition key
// for checkpoints and no state is shared across sessions.
type ConversationState struct {
	SessionID string         `json:"session_id"`
	Status    AgentStatus    `json:"status"`
	Profile   PatientProfile `json:"profile"`
	Messages  []Message      `json:"messages"`

	InquiryTurns           int `json:"inquiry_turns"`
	AdditionalInquiryTurns int `json:"additional_inquiry_turns"`

	// LastEvidence and LastDraft are kept for inspection/debugging only;
	// retrieval output is never reused across turns.
	LastEvidence []SearchEvidence `json:"last_evidence,omitempty"`
	LastDraft    *DiagnosisDraft  `json:"last_draft,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewConversationState creates an empty session.
func NewConversationState(sessionID string) *ConversationState {
	now := time.Now().UTC()
	return &ConversationState{
		SessionID: sessionID,
		Status:    StatusInitialized,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds a message to the history and bumps the update time.
func (c *ConversationState) Append(role, content string) {
	c.Messages = append(c.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
	c.UpdatedAt = time.Now().UTC()
}

// LastAssistantMessage returns the most recent assistant message, or the
// empty string when the assistant has not spoken yet.
func (c *ConversationState) LastAssistantMessage() string {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleAssistant {
			return c.Messages[i].Content
		}
	}
	return ""
}

// RecentHistory returns up to n of the most recent messages.
func (c *ConversationState) RecentHistory(n int) []Message {
	if len(c.Messages) <= n {
		return c.Messages
	}
	return c.Messages[len(c.Messages)-n:]
}
