package conversation

// Domain models for a refinement thread. A thread is replayed from the
// platform's own history on every reply; nothing here is persisted.

// Role tags a transcript message by who produced it.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role
	Content string
}

// Transcript is a chronologically ordered list of turns.
type Transcript []Message

// Mode is the kind of conversation a thread carries.
type Mode string

const (
	ModeContentHint Mode = "content_hint"
	ModeEngage      Mode = "engage"
	ModeTalk        Mode = "talk"
)

// EngagePhase tracks how far an engage thread has progressed.
type EngagePhase string

const (
	// PhaseAwaitingFirstAngle means only setup messages exist; the next user
	// reply is the angle for the first draft.
	PhaseAwaitingFirstAngle EngagePhase = "awaiting_first_angle"
	// PhaseDrafted means a reply has been drafted and further turns refine it.
	PhaseDrafted EngagePhase = "drafted"
)

// RoleOf derives a message role from its author relative to the bot.
func RoleOf(authorID, botID string) Role {
	if authorID != "" && authorID == botID {
		return RoleAssistant
	}
	return RoleUser
}
