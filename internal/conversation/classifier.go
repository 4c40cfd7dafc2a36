package conversation

import (
	"strings"

	"github.com/hintbot/internal/chat"
)

// Classify derives a thread's mode from its name prefix, falling back to
// the starter message template when the prefix is absent. It reads only
// signals fixed at thread creation, so repeated calls agree.
func Classify(thread chat.Thread, starter *chat.Message) Mode {
	switch {
	case strings.HasPrefix(thread.Name, EngageThreadPrefix):
		return ModeEngage
	case strings.HasPrefix(thread.Name, TalkThreadPrefix):
		return ModeTalk
	}
	if starter != nil && strings.HasPrefix(starter.Content, StatementLabel) {
		return ModeEngage
	}
	return ModeContentHint
}

// IsOwnThread reports whether the bot created the thread: either it owns
// the thread or it authored the starter message.
func IsOwnThread(thread chat.Thread, starter *chat.Message, botID string) bool {
	if botID == "" {
		return false
	}
	if thread.OwnerID == botID {
		return true
	}
	return starter != nil && starter.Author.ID == botID
}

// EngageState resolves the engage state machine over a message window:
// any bot message other than the fixed setup messages means a reply has
// been drafted.
func EngageState(messages []chat.Message, botID string) EngagePhase {
	for _, m := range messages {
		if m.Author.ID != botID {
			continue
		}
		if !isSetupMessage(m.Content) {
			return PhaseDrafted
		}
	}
	return PhaseAwaitingFirstAngle
}

// EngageStatement recovers the statement an engage thread responds to. It
// scans for the marked setup message and strips its label; when that message
// is no longer in the window the thread name (without prefix) is used.
func EngageStatement(messages []chat.Message, botID string, thread chat.Thread) string {
	for _, m := range SortChronological(messages) {
		if m.Author.ID != botID || !strings.HasPrefix(m.Content, StatementLabel) {
			continue
		}
		statement := strings.TrimPrefix(m.Content, StatementLabel)
		return strings.TrimSpace(strings.TrimPrefix(statement, "\n"))
	}
	return strings.TrimSpace(strings.TrimPrefix(thread.Name, EngageThreadPrefix))
}
