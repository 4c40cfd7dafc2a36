package prompts

import (
	"fmt"
	"strings"

	"github.com/hintbot/internal/conversation"
)

// Tone is the voice requested for generated posts.
type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneCasual       Tone = "casual"
	ToneProvocative  Tone = "provocative"
	ToneEducational  Tone = "educational"
	ToneHumorous     Tone = "humorous"
)

// Length selects a row of the length guide table.
type Length string

const (
	LengthShort  Length = "short"
	LengthMedium Length = "medium"
	LengthLong   Length = "long"
)

// Variant count bounds for a single generation request.
const (
	MinVariants = 1
	MaxVariants = 3
)

// Tones lists the accepted tones in display order.
var Tones = []Tone{ToneProfessional, ToneCasual, ToneProvocative, ToneEducational, ToneHumorous}

// Lengths lists the accepted lengths in display order.
var Lengths = []Length{LengthShort, LengthMedium, LengthLong}

var toneGuides = map[Tone]string{
	ToneProfessional: "professional, thought-leadership style",
	ToneCasual:       "casual and conversational, like talking to a peer",
	ToneProvocative:  "bold and provocative, challenging conventional wisdom",
	ToneEducational:  "educational, explaining concepts clearly with a concrete takeaway",
	ToneHumorous:     "light and humorous while still making a real point",
}

type lengthGuide struct {
	LinkedIn string
	X        string
}

var lengthGuides = map[Length]lengthGuide{
	LengthShort: {
		LinkedIn: "1 short paragraph, 300-600 characters",
		X:        "one punchy line, max 140 characters",
	},
	LengthMedium: {
		LinkedIn: "1-3 paragraphs, 800-1300 characters",
		X:        "concise, max 280 characters",
	},
	LengthLong: {
		LinkedIn: "3-5 paragraphs, 1500-2500 characters",
		X:        "use the full limit, max 280 characters",
	},
}

// Options are the user-tunable knobs of a generation request.
type Options struct {
	Tone     Tone
	Length   Length
	Variants int
}

// Normalize replaces unknown values with defaults and clamps the variant
// count to [MinVariants, MaxVariants].
func (o Options) Normalize() Options {
	if _, ok := toneGuides[o.Tone]; !ok {
		o.Tone = ToneProfessional
	}
	if _, ok := lengthGuides[o.Length]; !ok {
		o.Length = LengthMedium
	}
	switch {
	case o.Variants < MinVariants:
		o.Variants = MinVariants
	case o.Variants > MaxVariants:
		o.Variants = MaxVariants
	}
	return o
}

const persona = "You are a social media content creator for a personal brand focused on AI and agentic coding."

const singleObjectFormat = `Return ONLY valid JSON in this exact format, no other text:
{"linkedin": "your linkedin post here", "x": "your tweet here"}`

// BuildGenerationPrompt builds the prompt for a fresh /hint request.
func BuildGenerationPrompt(topic string, opts Options) string {
	opts = opts.Normalize()
	length := lengthGuides[opts.Length]

	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\n")
	b.WriteString("Research the following topic and generate social media posts:\n\n")
	fmt.Fprintf(&b, "Topic: %q\n", topic)
	fmt.Fprintf(&b, "Tone: %s (%s)\n\n", opts.Tone, toneGuides[opts.Tone])

	if opts.Variants > 1 {
		fmt.Fprintf(&b, "Generate %d distinct variants, each taking a different angle. Each variant contains:\n", opts.Variants)
	} else {
		b.WriteString("Generate:\n")
	}
	fmt.Fprintf(&b, "1. A LinkedIn post (%s)\n", length.LinkedIn)
	fmt.Fprintf(&b, "2. An X/Twitter post (%s)\n\n", length.X)

	if opts.Variants > 1 {
		fmt.Fprintf(&b, "Return ONLY valid JSON, no other text: a JSON array of exactly %d objects in this format:\n", opts.Variants)
		b.WriteString(`[{"linkedin": "your linkedin post here", "x": "your tweet here"}, ...]`)
	} else {
		b.WriteString(singleObjectFormat)
	}
	return b.String()
}

// BuildRefinementPrompt asks for an updated post pair given the thread so far.
func BuildRefinementPrompt(transcript conversation.Transcript) string {
	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\n")
	b.WriteString("Below is a conversation about social media content you generated. ")
	b.WriteString("Revise the LinkedIn and X posts based on the user's latest feedback, keeping what they did not ask to change.\n\n")
	b.WriteString("Conversation:\n")
	b.WriteString(FormatTranscript(transcript))
	b.WriteString("\n\n")
	b.WriteString("Produce the updated content. ")
	b.WriteString(singleObjectFormat)
	return b.String()
}

const talkPersona = "You are a thoughtful, knowledgeable conversation partner with deep experience in software, AI and agentic coding."

const talkRules = "Respond directly and concisely in plain natural language. Skip preambles and do not restate the question."

// BuildFreeformPrompt opens a /talk conversation.
func BuildFreeformPrompt(message string) string {
	var b strings.Builder
	b.WriteString(talkPersona)
	b.WriteString("\n\n")
	b.WriteString(talkRules)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "USER: %s", message)
	return b.String()
}

// BuildContinueFreeformPrompt continues a /talk thread.
func BuildContinueFreeformPrompt(transcript conversation.Transcript) string {
	var b strings.Builder
	b.WriteString(talkPersona)
	b.WriteString("\n\n")
	b.WriteString("Continue the conversation below by replying to the user's latest message. ")
	b.WriteString(talkRules)
	b.WriteString("\n\n")
	b.WriteString("Conversation:\n")
	b.WriteString(FormatTranscript(transcript))
	return b.String()
}

const engageRules = `Write the reply so that it:
- sounds like a real person, matching the energy and register of the original post
- carries the user's angle in their own voice
- has no corporate filler ("Great post!", "Couldn't agree more", "This is so insightful")
- adds no hashtags or emojis unless the original post uses them
- stays short: one to three sentences unless the angle needs more

Output only the reply text in plain text. No preamble, no quotes around it, no explanation.`

// BuildEngagePrompt drafts the first reply to a statement from the user's angle.
func BuildEngagePrompt(statement, userAngle string) string {
	var b strings.Builder
	b.WriteString("You help the user reply to social media posts in their own voice.\n\n")
	b.WriteString("Original post:\n")
	b.WriteString(quoteBlock(statement))
	b.WriteString("\n\nThe user's take:\n")
	b.WriteString(quoteBlock(userAngle))
	b.WriteString("\n\n")
	b.WriteString(engageRules)
	return b.String()
}

// BuildRefineEngagePrompt revises a drafted reply from the thread so far.
func BuildRefineEngagePrompt(transcript conversation.Transcript) string {
	var b strings.Builder
	b.WriteString("You help the user reply to social media posts in their own voice.\n\n")
	b.WriteString("Below is a conversation in which you drafted a reply and the user has given feedback. ")
	b.WriteString("Rewrite the reply based on the user's latest feedback.\n\n")
	b.WriteString("Conversation:\n")
	b.WriteString(FormatTranscript(transcript))
	b.WriteString("\n\n")
	b.WriteString(engageRules)
	return b.String()
}

// FormatTranscript renders turns as USER:/ASSISTANT: lines in order.
func FormatTranscript(transcript conversation.Transcript) string {
	lines := make([]string, 0, len(transcript))
	for _, m := range transcript {
		label := "USER"
		if m.Role == conversation.RoleAssistant {
			label = "ASSISTANT"
		}
		lines = append(lines, label+": "+m.Content)
	}
	return strings.Join(lines, "\n\n")
}

func quoteBlock(text string) string {
	return `"""` + "\n" + strings.TrimSpace(text) + "\n" + `"""`
}
