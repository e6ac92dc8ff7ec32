package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"support-agent/internal/knowledge"
	"support-agent/internal/tickets"
)

// Tool is one callable operation exposed to the model. Call never lets an
// error escape its boundary: failures come back as strings beginning
// "Error:" so the loop always has renderable text to feed the model.
type Tool interface {
	Name() string
	Definition() llms.Tool
	Call(ctx context.Context, args string) string
}

// Registry maps tool names to tools for O(1) dispatch.
type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry(toolSet ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(toolSet))}
	for _, t := range toolSet {
		r.tools[t.Name()] = t
		r.order = append(r.order, t.Name())
	}
	return r
}

// Definitions returns the tool schemas in registration order, ready to hand
// to the model.
func (r *Registry) Definitions() []llms.Tool {
	defs := make([]llms.Tool, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Dispatch resolves a tool by exact name and executes it. An unknown name
// yields a synthesized result rather than an error.
func (r *Registry) Dispatch(ctx context.Context, name, args string) string {
	t, ok := r.tools[name]
	if !ok {
		log.Warn().Str("tool", name).Msg("Model requested unknown tool")
		return fmt.Sprintf("Tool %s not found", name)
	}
	log.Debug().Str("tool", name).RawJSON("args", normalizeArgs(args)).Msg("Dispatching tool")
	return t.Call(ctx, args)
}

func normalizeArgs(args string) []byte {
	if json.Valid([]byte(args)) {
		return []byte(args)
	}
	b, _ := json.Marshal(args)
	return b
}

// ---------------------------------------------------------------------------
// search_documentation

type SearchTool struct {
	Store *knowledge.Store
}

type searchInput struct {
	Query string `json:"query"`
}

func (t *SearchTool) Name() string { return "search_documentation" }

func (t *SearchTool) Definition() llms.Tool {
	return llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name: t.Name(),
			Description: "Searches the NebulaSoft technical documentation for information about " +
				"error codes, setup instructions, features, and troubleshooting. " +
				"Use this tool to answer technical support questions. " +
				"Always cite the source document in your response.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "The search query to find relevant documentation",
					},
				},
				"required": []string{"query"},
			},
		},
	}
}

func (t *SearchTool) Call(ctx context.Context, args string) string {
	var input searchInput
	if err := json.Unmarshal([]byte(args), &input); err != nil {
		return fmt.Sprintf("Error: invalid arguments for %s: %v", t.Name(), err)
	}
	if strings.TrimSpace(input.Query) == "" {
		return "Error: query must not be empty"
	}
	result, err := t.Store.Search(ctx, input.Query)
	if err != nil {
		return fmt.Sprintf("Error: documentation search failed: %v", err)
	}
	return result
}

// ---------------------------------------------------------------------------
// calculate_pricing

var planRates = map[string]int{
	"basic":      10,
	"pro":        20,
	"enterprise": 40,
}

type PricingTool struct{}

type pricingInput struct {
	NumberOfUsers int    `json:"number_of_users"`
	PlanType      string `json:"plan_type"`
}

func (t *PricingTool) Name() string { return "calculate_pricing" }

func (t *PricingTool) Definition() llms.Tool {
	return llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name: t.Name(),
			Description: "Calculates the monthly subscription cost for NebulaSoft based on the number " +
				"of users and plan type. Plan types are: 'basic' ($10/user), 'pro' ($20/user), " +
				"or 'enterprise' ($40/user). Use this when customers ask about pricing or costs.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"number_of_users": map[string]any{
						"type":        "integer",
						"description": "Number of users for the subscription",
					},
					"plan_type": map[string]any{
						"type":        "string",
						"description": "Type of plan: 'basic', 'pro', or 'enterprise'",
						"enum":        []string{"basic", "pro", "enterprise"},
					},
				},
				"required": []string{"number_of_users", "plan_type"},
			},
		},
	}
}

func (t *PricingTool) Call(ctx context.Context, args string) string {
	var input pricingInput
	if err := json.Unmarshal([]byte(args), &input); err != nil {
		return fmt.Sprintf("Error: invalid arguments for %s: %v", t.Name(), err)
	}
	if input.NumberOfUsers <= 0 {
		return "Error: number_of_users must be a positive integer"
	}

	plan := strings.ToLower(input.PlanType)
	rate, ok := planRates[plan]
	if !ok {
		return fmt.Sprintf("Error: Invalid plan type '%s'. Valid options are: basic, pro, enterprise", input.PlanType)
	}

	total := input.NumberOfUsers * rate
	return fmt.Sprintf(
		"Pricing Calculation:\n"+
			"Plan: %s\n"+
			"Number of Users: %d\n"+
			"Price per User: $%d/month\n"+
			"Total Monthly Cost: $%d/month",
		capitalize(plan), input.NumberOfUsers, rate, total,
	)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ---------------------------------------------------------------------------
// escalate_ticket

type EscalateTool struct {
	Log *tickets.Log
}

type escalateInput struct {
	Summary  string `json:"summary"`
	Severity string `json:"severity"`
}

func (t *EscalateTool) Name() string { return "escalate_ticket" }

func (t *EscalateTool) Definition() llms.Tool {
	return llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name: t.Name(),
			Description: "Files a support ticket for escalation to Tier-2 support. " +
				"Use this tool ONLY when the documentation search cannot answer the user's question " +
				"or when the issue requires human intervention. " +
				"Severity levels: 'low', 'medium', 'high'.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"summary": map[string]any{
						"type":        "string",
						"description": "Brief summary of the issue",
					},
					"severity": map[string]any{
						"type":        "string",
						"description": "Severity level: 'low', 'medium', 'high'",
						"enum":        []string{"low", "medium", "high"},
					},
				},
				"required": []string{"summary", "severity"},
			},
		},
	}
}

func (t *EscalateTool) Call(ctx context.Context, args string) string {
	var input escalateInput
	if err := json.Unmarshal([]byte(args), &input); err != nil {
		return fmt.Sprintf("Error: invalid arguments for %s: %v", t.Name(), err)
	}

	severity := strings.ToLower(input.Severity)
	switch severity {
	case "low", "medium", "high":
	default:
		return fmt.Sprintf("Error: Invalid severity level '%s'. Valid options are: low, medium, high", input.Severity)
	}

	rec, err := t.Log.File(input.Summary, severity)
	if err != nil {
		return fmt.Sprintf("Error: filing ticket failed: %v", err)
	}

	return fmt.Sprintf(
		"Ticket Escalated Successfully!\n"+
			"Ticket ID: %s\n"+
			"Severity: %s\n"+
			"Summary: %s\n"+
			"Status: Open\n"+
			"A Tier-2 support representative will contact you shortly.",
		rec.ID, strings.ToUpper(severity), input.Summary,
	)
}

// ---------------------------------------------------------------------------
// lookup_ticket

type LookupTool struct {
	Log *tickets.Log
}

type lookupInput struct {
	TicketID string `json:"ticket_id"`
}

func (t *LookupTool) Name() string { return "lookup_ticket" }

func (t *LookupTool) Definition() llms.Tool {
	return llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name: t.Name(),
			Description: "Looks up a previously filed support ticket by its id (for example " +
				"TKT-20250101120000-a3f2). Use this when the customer mentions an existing ticket.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"ticket_id": map[string]any{
						"type":        "string",
						"description": "The ticket id to look up",
					},
				},
				"required": []string{"ticket_id"},
			},
		},
	}
}

func (t *LookupTool) Call(ctx context.Context, args string) string {
	var input lookupInput
	if err := json.Unmarshal([]byte(args), &input); err != nil {
		return fmt.Sprintf("Error: invalid arguments for %s: %v", t.Name(), err)
	}

	rec, err := t.Log.Lookup(strings.TrimSpace(input.TicketID))
	switch {
	case errors.Is(err, tickets.ErrLogMissing):
		return "No tickets have been filed yet."
	case errors.Is(err, tickets.ErrNotFound):
		return fmt.Sprintf("No ticket found with ID '%s'.", input.TicketID)
	case err != nil:
		return fmt.Sprintf("Error: ticket lookup failed: %v", err)
	}

	return fmt.Sprintf(
		"Ticket %s\n"+
			"Filed: %s\n"+
			"Severity: %s\n"+
			"Status: %s\n"+
			"Summary: %s",
		rec.ID, rec.Timestamp, rec.Severity, rec.Status, rec.Summary,
	)
}
