package tools

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"support-agent/internal/knowledge"
	"support-agent/internal/tickets"
)

func TestPricingValidPlans(t *testing.T) {
	tool := &PricingTool{}

	cases := []struct {
		args string
		want string
	}{
		{`{"number_of_users":10,"plan_type":"pro"}`, "Total Monthly Cost: $200/month"},
		{`{"number_of_users":3,"plan_type":"basic"}`, "Total Monthly Cost: $30/month"},
		{`{"number_of_users":2,"plan_type":"enterprise"}`, "Total Monthly Cost: $80/month"},
		{`{"number_of_users":5,"plan_type":"PRO"}`, "Total Monthly Cost: $100/month"},
	}
	for _, tc := range cases {
		result := tool.Call(context.Background(), tc.args)
		assert.Contains(t, result, tc.want)
		assert.Contains(t, result, "Pricing Calculation:")
	}
}

func TestPricingInvalidPlan(t *testing.T) {
	tool := &PricingTool{}

	result := tool.Call(context.Background(), `{"number_of_users":10,"plan_type":"gold"}`)
	assert.Equal(t, "Error: Invalid plan type 'gold'. Valid options are: basic, pro, enterprise", result)
}

func TestPricingNonPositiveUsers(t *testing.T) {
	tool := &PricingTool{}

	result := tool.Call(context.Background(), `{"number_of_users":0,"plan_type":"pro"}`)
	assert.Contains(t, result, "Error:")
	result = tool.Call(context.Background(), `{"number_of_users":-4,"plan_type":"pro"}`)
	assert.Contains(t, result, "Error:")
}

func TestEscalateThenLookupRoundtrip(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "tickets.log")
	ticketLog := tickets.NewLog(logPath)
	escalate := &EscalateTool{Log: ticketLog}
	lookup := &LookupTool{Log: ticketLog}

	confirmation := escalate.Call(context.Background(), `{"summary":"db down","severity":"high"}`)
	require.Contains(t, confirmation, "Ticket Escalated Successfully!")
	require.Contains(t, confirmation, "Severity: HIGH")

	id := regexp.MustCompile(`TKT-\d{14}-[0-9a-f]{4}`).FindString(confirmation)
	require.NotEmpty(t, id, "confirmation should carry a ticket id")

	record := lookup.Call(context.Background(), `{"ticket_id":"`+id+`"}`)
	assert.Contains(t, record, "db down")
	assert.Contains(t, record, "high")
	assert.Contains(t, record, "open")
}

func TestEscalateInvalidSeverity(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "tickets.log")
	escalate := &EscalateTool{Log: tickets.NewLog(logPath)}

	result := escalate.Call(context.Background(), `{"summary":"x","severity":"urgent"}`)
	assert.Contains(t, result, "Error: Invalid severity level 'urgent'")

	_, err := os.Stat(logPath)
	assert.True(t, os.IsNotExist(err), "invalid input must not touch the log")
}

func TestLookupNonexistentAppendsNothing(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "tickets.log")
	ticketLog := tickets.NewLog(logPath)
	_, err := ticketLog.File("seed", "low")
	require.NoError(t, err)
	before, err := os.ReadFile(logPath)
	require.NoError(t, err)

	lookup := &LookupTool{Log: ticketLog}
	result := lookup.Call(context.Background(), `{"ticket_id":"TKT-19990101000000-ffff"}`)
	assert.Contains(t, result, "No ticket found with ID")

	after, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestLookupMissingLog(t *testing.T) {
	lookup := &LookupTool{Log: tickets.NewLog(filepath.Join(t.TempDir(), "none.log"))}

	result := lookup.Call(context.Background(), `{"ticket_id":"TKT-19990101000000-ffff"}`)
	assert.Equal(t, "No tickets have been filed yet.", result)
}

func TestSearchEmptyQuery(t *testing.T) {
	tool := &SearchTool{Store: knowledge.NewStore(nil, nil)}

	result := tool.Call(context.Background(), `{"query":"  "}`)
	assert.Equal(t, "Error: query must not be empty", result)
}

func TestSearchWithoutAnyIndexReturnsSentinel(t *testing.T) {
	tool := &SearchTool{Store: knowledge.NewStore(nil, nil)}

	result := tool.Call(context.Background(), `{"query":"error 500"}`)
	assert.Equal(t, knowledge.NoResultsSentinel, result)
	assert.NotEmpty(t, result)
}

func TestRegistryDispatchUnknownTool(t *testing.T) {
	registry := NewRegistry(&PricingTool{})

	result := registry.Dispatch(context.Background(), "delete_everything", `{}`)
	assert.Equal(t, "Tool delete_everything not found", result)
}

func TestRegistryDefinitionsOrder(t *testing.T) {
	registry := NewRegistry(
		&SearchTool{Store: knowledge.NewStore(nil, nil)},
		&PricingTool{},
		&EscalateTool{Log: tickets.NewLog("tickets.log")},
		&LookupTool{Log: tickets.NewLog("tickets.log")},
	)

	defs := registry.Definitions()
	require.Len(t, defs, 4)
	assert.Equal(t, "search_documentation", defs[0].Function.Name)
	assert.Equal(t, "calculate_pricing", defs[1].Function.Name)
	assert.Equal(t, "escalate_ticket", defs[2].Function.Name)
	assert.Equal(t, "lookup_ticket", defs[3].Function.Name)
}
