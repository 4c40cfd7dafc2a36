package conversation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hintbot/internal/chat"
)

// HistoryWindow is how many recent thread messages are replayed.
const HistoryWindow = 50

// HistoryOptions identifies the participants whose messages are replayed.
type HistoryOptions struct {
	BotID string
	// RequesterID, when set, restricts user turns to that author. Messages
	// from other humans are dropped along with those from other bots.
	RequesterID string
}

// SortChronological returns a copy of messages ordered by creation time.
// Ties are broken by message ID so the order is total.
func SortChronological(messages []chat.Message) []chat.Message {
	sorted := make([]chat.Message, len(messages))
	copy(sorted, messages)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return snowflakeLess(a.ID, b.ID)
	})
	return sorted
}

// BuildHistory replays thread messages as a role-tagged transcript in
// chronological order. Messages by other bots and messages that end up
// with no content are dropped; the bot's embeds are flattened to text so
// earlier structured generations survive into the next prompt.
func BuildHistory(messages []chat.Message, opts HistoryOptions) Transcript {
	transcript := make(Transcript, 0, len(messages))
	for _, m := range SortChronological(messages) {
		role := RoleOf(m.Author.ID, opts.BotID)
		if role == RoleUser {
			if m.Author.Bot {
				continue
			}
			if opts.RequesterID != "" && m.Author.ID != opts.RequesterID {
				continue
			}
		}

		content := m.Content
		if role == RoleAssistant && len(m.Embeds) > 0 {
			embedText := FlattenEmbeds(m.Embeds)
			if content != "" {
				content = content + "\n\n" + embedText
			} else {
				content = embedText
			}
		}
		if len(content) == 0 {
			continue
		}

		transcript = append(transcript, Message{Role: role, Content: content})
	}
	return transcript
}

// FlattenEmbeds renders embeds as "[title]: description" blocks separated by
// a blank line.
func FlattenEmbeds(embeds []chat.Embed) string {
	parts := make([]string, 0, len(embeds))
	for _, e := range embeds {
		parts = append(parts, fmt.Sprintf("[%s]: %s", e.Title, e.Description))
	}
	return strings.Join(parts, "\n\n")
}

// snowflakeLess compares numeric IDs without parsing them.
func snowflakeLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
