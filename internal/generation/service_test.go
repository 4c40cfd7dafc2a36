package generation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hintbot/internal/conversation"
	"github.com/hintbot/internal/llm"
	"github.com/hintbot/internal/prompts"
	"github.com/hintbot/internal/runner"
)

type fakeInvoker struct {
	mu      sync.Mutex
	prompts []string
	output  string
	err     error
}

func (f *fakeInvoker) Invoke(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.output, f.err
}

func newService(inv *fakeInvoker) *Service {
	return NewService(inv, llm.NewDecoder(zerolog.Nop()), zerolog.Nop())
}

func TestHint(t *testing.T) {
	inv := &fakeInvoker{output: `{"type":"result","result":"{\"linkedin\":\"L\",\"x\":\"X\"}"}`}

	got, err := newService(inv).Hint(context.Background(), "edge computing", prompts.Options{})

	require.NoError(t, err)
	assert.Equal(t, []llm.GeneratedContent{{LinkedIn: "L", X: "X"}}, got)
	require.Len(t, inv.prompts, 1)
	assert.Contains(t, inv.prompts[0], `Topic: "edge computing"`)
	assert.Contains(t, inv.prompts[0], "Tone: professional")
}

func TestHint_Variants(t *testing.T) {
	inv := &fakeInvoker{output: `[{"linkedin":"a","x":"b"},{"linkedin":"c","x":"d"}]`}

	got, err := newService(inv).Hint(context.Background(), "agents", prompts.Options{Variants: 2})

	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Contains(t, inv.prompts[0], "exactly 2 objects")
}

func TestHint_RunnerErrorPropagates(t *testing.T) {
	inv := &fakeInvoker{err: &runner.RunError{Kind: runner.KindNonZeroExit, ExitCode: 1, Stderr: "rate limited"}}

	got, err := newService(inv).Hint(context.Background(), "edge computing", prompts.Options{})

	assert.Nil(t, got)
	assert.True(t, errors.Is(err, runner.ErrNonZeroExit))
	assert.Contains(t, err.Error(), "hint:")
}

func TestHint_DecodeErrorPropagates(t *testing.T) {
	inv := &fakeInvoker{output: `{"linkedin":"only"}`}

	_, err := newService(inv).Hint(context.Background(), "edge computing", prompts.Options{})

	assert.True(t, errors.Is(err, llm.ErrDecode))
}

func TestTextOperations(t *testing.T) {
	inv := &fakeInvoker{output: `{"result":"  a plain answer \n"}`}
	svc := newService(inv)
	transcript := conversation.Transcript{{Role: conversation.RoleUser, Content: "hello"}}

	for name, call := range map[string]func() (string, error){
		"talk":          func() (string, error) { return svc.Talk(context.Background(), "hello") },
		"continue_talk": func() (string, error) { return svc.ContinueTalk(context.Background(), transcript) },
		"engage":        func() (string, error) { return svc.Engage(context.Background(), "statement", "angle") },
		"refine_engage": func() (string, error) { return svc.RefineEngage(context.Background(), transcript) },
	} {
		got, err := call()
		require.NoError(t, err, name)
		assert.Equal(t, "a plain answer", got, name)
	}
	assert.Len(t, inv.prompts, 4)
}

func TestReplyDispatch(t *testing.T) {
	transcript := conversation.Transcript{
		{Role: conversation.RoleAssistant, Content: "[LinkedIn Post]: old"},
		{Role: conversation.RoleUser, Content: "shorter"},
	}

	inv := &fakeInvoker{output: `{"linkedin":"new","x":"tweet"}`}
	reply, err := newService(inv).Reply(context.Background(), conversation.Plan{
		Kind:       conversation.ReplyRefineContent,
		Transcript: transcript,
	})
	require.NoError(t, err)
	assert.Equal(t, []llm.GeneratedContent{{LinkedIn: "new", X: "tweet"}}, reply.Contents)
	assert.Contains(t, inv.prompts[0], "USER: shorter")

	inv = &fakeInvoker{output: "Draft reply."}
	reply, err = newService(inv).Reply(context.Background(), conversation.Plan{
		Kind:      conversation.ReplyFirstEngage,
		Statement: "AI will replace developers",
		Angle:     "it amplifies them",
	})
	require.NoError(t, err)
	assert.Equal(t, "Draft reply.", reply.Text)
	assert.Contains(t, inv.prompts[0], "AI will replace developers")
	assert.Contains(t, inv.prompts[0], "it amplifies them")

	_, err = newService(&fakeInvoker{}).Reply(context.Background(), conversation.Plan{Kind: "bogus"})
	assert.Error(t, err)
}
