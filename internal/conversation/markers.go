package conversation

import (
	"strings"
	"unicode/utf8"
)

// Thread name prefixes. They are fixed at thread creation and identify the
// thread's mode for its whole lifetime.
const (
	EngageThreadPrefix = "[engage] "
	TalkThreadPrefix   = "[talk] "
)

// MaxThreadNameLength is the platform limit on thread names, in characters.
const MaxThreadNameLength = 100

// Fixed texts the bot posts. Engage detection depends on the first three
// being recognisable when read back from the thread.
const (
	StatementLabel   = "**Statement to respond to:**"
	AnglePrompt      = "What's your take on this? Tell me your angle and I'll draft a reply."
	ReplyApology     = "Sorry, I couldn't process that. Try rephrasing your feedback."
	ContentHeader    = "**Content generated for:**"
	UpdatedHeader    = "**Updated content:**"
	RefineHint       = "Reply in this thread to refine the content. I'll adjust based on your feedback."
	anglePromptStart = "What's your take"
)

// ThreadName joins a prefix and subject without exceeding
// MaxThreadNameLength characters.
func ThreadName(prefix, subject string) string {
	subject = strings.Join(strings.Fields(subject), " ")
	room := MaxThreadNameLength - utf8.RuneCountInString(prefix)
	if room <= 0 {
		return truncateRunes(prefix, MaxThreadNameLength)
	}
	return prefix + truncateRunes(subject, room)
}

// StatementMessage renders the setup message that carries an engage statement.
func StatementMessage(statement string) string {
	return StatementLabel + "\n" + statement
}

func isSetupMessage(content string) bool {
	return strings.HasPrefix(content, StatementLabel) ||
		strings.HasPrefix(content, anglePromptStart) ||
		strings.HasPrefix(content, ReplyApology)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
