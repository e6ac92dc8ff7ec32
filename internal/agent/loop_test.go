package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"support-agent/internal/tools"
)

// echoTool records how often it was called and echoes its arguments.
type echoTool struct {
	calls []string
}

func (t *echoTool) Name() string { return "echo" }

func (t *echoTool) Definition() llms.Tool {
	return llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        t.Name(),
			Description: "Echoes its input",
			Parameters:  map[string]any{"type": "object"},
		},
	}
}

func (t *echoTool) Call(ctx context.Context, args string) string {
	t.calls = append(t.calls, args)
	return "echo: " + args
}

// scriptedModel returns one canned choice per round-trip and counts them.
type scriptedModel struct {
	roundTrips int
	script     func(roundTrip int) *llms.ContentChoice
}

func (m *scriptedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, toolDefs []llms.Tool) (*llms.ContentResponse, error) {
	m.roundTrips++
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{m.script(m.roundTrips)},
	}, nil
}

func toolCall(id, name, args string) llms.ToolCall {
	return llms.ToolCall{
		ID:   id,
		Type: "function",
		FunctionCall: &llms.FunctionCall{
			Name:      name,
			Arguments: args,
		},
	}
}

func startHistory() []llms.MessageContent {
	return []llms.MessageContent{
		{Role: llms.ChatMessageTypeSystem, Parts: []llms.ContentPart{llms.TextContent{Text: "persona"}}},
		{Role: llms.ChatMessageTypeHuman, Parts: []llms.ContentPart{llms.TextContent{Text: "help"}}},
	}
}

func TestLoopExhaustsAfterFiveRoundTrips(t *testing.T) {
	echo := &echoTool{}
	model := &scriptedModel{script: func(n int) *llms.ContentChoice {
		return &llms.ContentChoice{
			ToolCalls: []llms.ToolCall{toolCall(fmt.Sprintf("call-%d", n), "echo", `{"n":1}`)},
		}
	}}
	loop := NewLoop(model, tools.NewRegistry(echo))

	_, reply, err := loop.Run(context.Background(), startHistory())
	require.NoError(t, err)
	assert.Equal(t, ExhaustedReply, reply)
	assert.Equal(t, 5, model.roundTrips, "must stop at exactly 5 round-trips")
	assert.Len(t, echo.calls, 5)
}

func TestLoopAnswersWithoutToolsInOneRoundTrip(t *testing.T) {
	echo := &echoTool{}
	model := &scriptedModel{script: func(n int) *llms.ContentChoice {
		return &llms.ContentChoice{Content: "All set!"}
	}}
	loop := NewLoop(model, tools.NewRegistry(echo))

	history, reply, err := loop.Run(context.Background(), startHistory())
	require.NoError(t, err)
	assert.Equal(t, "All set!", reply)
	assert.Equal(t, 1, model.roundTrips)
	assert.Empty(t, echo.calls)
	assert.Len(t, history, 3) // system, user, assistant
}

func TestLoopDispatchesResultsInRequestOrder(t *testing.T) {
	echo := &echoTool{}
	model := &scriptedModel{script: func(n int) *llms.ContentChoice {
		if n == 1 {
			return &llms.ContentChoice{
				ToolCalls: []llms.ToolCall{
					toolCall("call-a", "echo", `{"order":1}`),
					toolCall("call-b", "echo", `{"order":2}`),
				},
			}
		}
		return &llms.ContentChoice{Content: "done"}
	}}
	loop := NewLoop(model, tools.NewRegistry(echo))

	history, reply, err := loop.Run(context.Background(), startHistory())
	require.NoError(t, err)
	assert.Equal(t, "done", reply)
	require.Equal(t, []string{`{"order":1}`, `{"order":2}`}, echo.calls)

	// One tool-result turn per call, tagged with the originating call id,
	// in request order.
	var ids []string
	for _, msg := range history {
		if msg.Role != llms.ChatMessageTypeTool {
			continue
		}
		require.Len(t, msg.Parts, 1)
		resp, ok := msg.Parts[0].(llms.ToolCallResponse)
		require.True(t, ok)
		ids = append(ids, resp.ToolCallID)
	}
	assert.Equal(t, []string{"call-a", "call-b"}, ids)
}

func TestLoopSynthesizesNotFoundForUnknownTool(t *testing.T) {
	model := &scriptedModel{script: func(n int) *llms.ContentChoice {
		if n == 1 {
			return &llms.ContentChoice{
				ToolCalls: []llms.ToolCall{toolCall("call-1", "format_disk", `{}`)},
			}
		}
		return &llms.ContentChoice{Content: "sorry"}
	}}
	loop := NewLoop(model, tools.NewRegistry())

	history, _, err := loop.Run(context.Background(), startHistory())
	require.NoError(t, err)

	var found bool
	for _, msg := range history {
		if msg.Role != llms.ChatMessageTypeTool {
			continue
		}
		resp := msg.Parts[0].(llms.ToolCallResponse)
		assert.Equal(t, "Tool format_disk not found", resp.Content)
		found = true
	}
	assert.True(t, found)
}

func TestLoopPropagatesModelErrors(t *testing.T) {
	loop := NewLoop(&failingModel{}, tools.NewRegistry())

	_, _, err := loop.Run(context.Background(), startHistory())
	assert.ErrorContains(t, err, "upstream unavailable")
}

type failingModel struct{}

func (m *failingModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, toolDefs []llms.Tool) (*llms.ContentResponse, error) {
	return nil, fmt.Errorf("upstream unavailable")
}
