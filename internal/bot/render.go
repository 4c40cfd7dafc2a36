package bot

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hintbot/internal/chat"
	"github.com/hintbot/internal/conversation"
	"github.com/hintbot/internal/llm"
)

// Embed titles and colours for a generated post pair.
const (
	LinkedInTitle = "LinkedIn Post"
	LinkedInColor = 0x0a66c2
	XTitle        = "X (Twitter) Post"
	XColor        = 0x000000
)

// MaxMessageLength is the platform's per-message character limit.
const MaxMessageLength = 2000

// BuildEmbeds renders one post pair as two embeds.
func BuildEmbeds(content llm.GeneratedContent) []chat.Embed {
	return []chat.Embed{
		{Title: LinkedInTitle, Description: content.LinkedIn, Color: LinkedInColor},
		{Title: XTitle, Description: content.X, Color: XColor},
	}
}

// ContentMessages renders generated variants for topic, one message per
// variant. The first carries the topic header.
func ContentMessages(topic string, contents []llm.GeneratedContent) []chat.Outgoing {
	header := conversation.ContentHeader + " " + topic
	if len(contents) == 1 {
		return []chat.Outgoing{{Content: header, Embeds: BuildEmbeds(contents[0])}}
	}

	out := make([]chat.Outgoing, 0, len(contents))
	for i, c := range contents {
		label := fmt.Sprintf("**Option %d of %d**", i+1, len(contents))
		if i == 0 {
			label = header + "\n\n" + label
		}
		out = append(out, chat.Outgoing{Content: label, Embeds: BuildEmbeds(c)})
	}
	return out
}

// UpdatedMessage renders a refined post pair.
func UpdatedMessage(content llm.GeneratedContent) chat.Outgoing {
	return chat.Outgoing{Content: conversation.UpdatedHeader, Embeds: BuildEmbeds(content)}
}

// SplitMessage breaks text into chunks of at most MaxMessageLength
// characters, preferring paragraph, then line, then word boundaries.
func SplitMessage(text string) []string {
	var chunks []string
	for utf8.RuneCountInString(text) > MaxMessageLength {
		runes := []rune(text)
		window := string(runes[:MaxMessageLength])

		cut := -1
		for _, sep := range []string{"\n\n", "\n", " "} {
			if i := strings.LastIndex(window, sep); i > 0 {
				cut = i
				break
			}
		}
		if cut < 0 {
			cut = len(window)
		}

		chunks = append(chunks, strings.TrimRight(text[:cut], " \n"))
		text = strings.TrimLeft(text[cut:], " \n")
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
