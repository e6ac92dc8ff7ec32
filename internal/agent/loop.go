package agent

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"support-agent/internal/tools"
)

// maxIterations caps how many model round-trips a single user message may
// trigger. It is the only safeguard against a model that never stops
// requesting tools.
const maxIterations = 5

// ExhaustedReply is returned when the iteration budget runs out without a
// tool-call-free answer.
const ExhaustedReply = "I apologize, but I couldn't resolve this automatically. I will escalate this to Tier-2 support."

// ContentGenerator is the slice of the hosted model the loop depends on.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, tools []llms.Tool) (*llms.ContentResponse, error)
}

// Loop drives the bounded tool-calling cycle: ask the model, dispatch any
// requested tools, fold the results back into the history, repeat.
type Loop struct {
	model    ContentGenerator
	registry *tools.Registry
}

func NewLoop(model ContentGenerator, registry *tools.Registry) *Loop {
	return &Loop{model: model, registry: registry}
}

// Run executes the loop over the given history until the model answers
// without tool calls or the iteration budget is exhausted. It returns the
// extended history and the final answer text. Only model/transport failures
// propagate as errors; everything a tool does wrong becomes renderable text
// inside the history.
func (l *Loop) Run(ctx context.Context, history []llms.MessageContent) ([]llms.MessageContent, string, error) {
	for iteration := 1; iteration <= maxIterations; iteration++ {
		resp, err := l.model.GenerateContent(ctx, history, l.registry.Definitions())
		if err != nil {
			return history, "", err
		}
		if len(resp.Choices) == 0 {
			return history, "", fmt.Errorf("model returned no choices")
		}
		choice := resp.Choices[0]

		assistant := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		if choice.Content != "" {
			assistant.Parts = append(assistant.Parts, llms.TextContent{Text: choice.Content})
		}
		for _, call := range choice.ToolCalls {
			assistant.Parts = append(assistant.Parts, call)
		}
		history = append(history, assistant)

		if len(choice.ToolCalls) == 0 {
			return history, choice.Content, nil
		}

		// Dispatch strictly sequentially, result turns in request order.
		for _, call := range choice.ToolCalls {
			history = append(history, llms.MessageContent{
				Role:  llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{l.dispatch(ctx, call, iteration)},
			})
		}
	}

	log.Warn().Int("iterations", maxIterations).Msg("Iteration budget exhausted")
	return history, ExhaustedReply, nil
}

func (l *Loop) dispatch(ctx context.Context, call llms.ToolCall, iteration int) llms.ToolCallResponse {
	if call.FunctionCall == nil {
		return llms.ToolCallResponse{
			ToolCallID: call.ID,
			Content:    "Error: tool call carried no function",
		}
	}

	log.Debug().
		Int("iteration", iteration).
		Str("tool", call.FunctionCall.Name).
		Msg("Model requested tool")

	result := l.registry.Dispatch(ctx, call.FunctionCall.Name, call.FunctionCall.Arguments)
	return llms.ToolCallResponse{
		ToolCallID: call.ID,
		Name:       call.FunctionCall.Name,
		Content:    result,
	}
}
