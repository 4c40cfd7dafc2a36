package conversation

import "github.com/hintbot/internal/chat"

// ReplyKind selects which prompt a thread reply is answered with.
type ReplyKind string

const (
	ReplyRefineContent ReplyKind = "refine_content"
	ReplyContinueTalk  ReplyKind = "continue_talk"
	ReplyFirstEngage   ReplyKind = "first_engage"
	ReplyRefineEngage  ReplyKind = "refine_engage"
)

// ReplyInput is everything known about a thread at the moment a user reply
// arrives.
type ReplyInput struct {
	Thread   chat.Thread
	Starter  *chat.Message
	Messages []chat.Message
	Trigger  chat.Message
	BotID    string
}

// Plan is the resolved action for one thread reply.
type Plan struct {
	Mode       Mode
	Kind       ReplyKind
	Transcript Transcript
	// Statement and Angle are set for ReplyFirstEngage only.
	Statement string
	Angle     string
}

// PlanReply classifies the thread, rebuilds its history and picks the prompt
// path. It returns false when the rebuilt transcript is empty, in which case
// nothing should be generated or sent.
func PlanReply(in ReplyInput) (Plan, bool) {
	messages := withTrigger(in.Messages, in.Trigger)

	transcript := BuildHistory(messages, HistoryOptions{
		BotID:       in.BotID,
		RequesterID: in.Trigger.Author.ID,
	})
	if len(transcript) == 0 {
		return Plan{}, false
	}

	plan := Plan{
		Mode:       Classify(in.Thread, in.Starter),
		Transcript: transcript,
	}

	switch plan.Mode {
	case ModeEngage:
		if EngageState(messages, in.BotID) == PhaseAwaitingFirstAngle {
			plan.Kind = ReplyFirstEngage
			plan.Statement = EngageStatement(messages, in.BotID, in.Thread)
			plan.Angle = in.Trigger.Content
		} else {
			plan.Kind = ReplyRefineEngage
		}
	case ModeTalk:
		plan.Kind = ReplyContinueTalk
	default:
		plan.Kind = ReplyRefineContent
	}
	return plan, true
}

// withTrigger makes sure the triggering message is part of the window even
// if the history fetch raced its delivery.
func withTrigger(messages []chat.Message, trigger chat.Message) []chat.Message {
	if trigger.ID == "" {
		return messages
	}
	for _, m := range messages {
		if m.ID == trigger.ID {
			return messages
		}
	}
	out := make([]chat.Message, 0, len(messages)+1)
	out = append(out, messages...)
	return append(out, trigger)
}
