package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hintbot/internal/conversation"
)

func TestOptionsNormalize(t *testing.T) {
	got := Options{}.Normalize()
	assert.Equal(t, Options{Tone: ToneProfessional, Length: LengthMedium, Variants: 1}, got)

	got = Options{Tone: "sarcastic", Length: "epic", Variants: 9}.Normalize()
	assert.Equal(t, Options{Tone: ToneProfessional, Length: LengthMedium, Variants: 3}, got)

	got = Options{Tone: ToneHumorous, Length: LengthShort, Variants: 2}.Normalize()
	assert.Equal(t, Options{Tone: ToneHumorous, Length: LengthShort, Variants: 2}, got)
}

func TestBuildGenerationPrompt_SingleVariant(t *testing.T) {
	p := BuildGenerationPrompt("edge computing", Options{Tone: ToneProfessional, Length: LengthMedium, Variants: 1})

	assert.Contains(t, p, `Topic: "edge computing"`)
	assert.Contains(t, p, "Tone: professional")
	assert.Contains(t, p, lengthGuides[LengthMedium].LinkedIn)
	assert.Contains(t, p, lengthGuides[LengthMedium].X)
	assert.Contains(t, p, "ONLY valid JSON")
	assert.Contains(t, p, "no other text")
	assert.Contains(t, p, `{"linkedin": "your linkedin post here", "x": "your tweet here"}`)
	assert.NotContains(t, p, "JSON array")
}

func TestBuildGenerationPrompt_MultipleVariants(t *testing.T) {
	for _, n := range []int{2, 3} {
		p := BuildGenerationPrompt("agents", Options{Variants: n, Length: LengthLong, Tone: ToneCasual})
		assert.Contains(t, p, "ONLY valid JSON")
		assert.Contains(t, p, "JSON array of exactly")
		assert.Contains(t, p, "exactly "+string(rune('0'+n))+" objects")
		assert.Contains(t, p, lengthGuides[LengthLong].LinkedIn)
		assert.Contains(t, p, "Tone: casual")
	}

	clamped := BuildGenerationPrompt("agents", Options{Variants: 7})
	assert.Contains(t, clamped, "exactly 3 objects")
}

func TestBuildGenerationPrompt_Deterministic(t *testing.T) {
	opts := Options{Tone: ToneEducational, Length: LengthShort, Variants: 2}
	assert.Equal(t, BuildGenerationPrompt("x", opts), BuildGenerationPrompt("x", opts))
}

func sampleTranscript() conversation.Transcript {
	return conversation.Transcript{
		{Role: conversation.RoleAssistant, Content: "[LinkedIn Post]: first"},
		{Role: conversation.RoleUser, Content: "shorter please"},
		{Role: conversation.RoleAssistant, Content: "[LinkedIn Post]: second"},
		{Role: conversation.RoleUser, Content: "add a question"},
	}
}

func TestFormatTranscript(t *testing.T) {
	got := FormatTranscript(sampleTranscript())
	want := "ASSISTANT: [LinkedIn Post]: first\n\nUSER: shorter please\n\nASSISTANT: [LinkedIn Post]: second\n\nUSER: add a question"
	assert.Equal(t, want, got)
}

func TestBuildRefinementPrompt(t *testing.T) {
	p := BuildRefinementPrompt(sampleTranscript())
	assert.Contains(t, p, FormatTranscript(sampleTranscript()))
	assert.Contains(t, p, "ONLY valid JSON")
	assert.True(t, strings.Index(p, "shorter please") < strings.Index(p, "add a question"))
}

func TestFreeformPromptsHaveNoJSONContract(t *testing.T) {
	for _, p := range []string{
		BuildFreeformPrompt("future of AI"),
		BuildContinueFreeformPrompt(sampleTranscript()),
		BuildEngagePrompt("AI will replace devs", "it amplifies them"),
		BuildRefineEngagePrompt(sampleTranscript()),
	} {
		assert.NotContains(t, p, "JSON")
		assert.Contains(t, strings.ToLower(p), "plain")
	}
}

func TestBuildEngagePrompt(t *testing.T) {
	p := BuildEngagePrompt("  AI will replace devs  ", "it amplifies them")
	assert.Contains(t, p, "\"\"\"\nAI will replace devs\n\"\"\"")
	assert.Contains(t, p, "it amplifies them")
	assert.Contains(t, p, "no hashtags or emojis")
	assert.Contains(t, p, "no corporate filler")
}
