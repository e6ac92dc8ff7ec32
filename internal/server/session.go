package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"support-agent/internal/agent"
	"support-agent/internal/config"
	"support-agent/internal/knowledge"
	"support-agent/internal/parser"
	"support-agent/internal/tools"
)

// Session is the explicit per-session context: its own history, its own
// upload index, its own tool registry bound to that index. Nothing is shared
// across sessions except the base knowledge index and the ticket log.
// The mutex serializes requests within the session: one message drives one
// full loop run to completion before the next is accepted.
type Session struct {
	ID string

	mu       sync.Mutex
	history  []llms.MessageContent
	store    *knowledge.Store
	loop     *agent.Loop
	prompts  *agent.PromptBuilder
	uploaded map[string]bool
}

// Chat appends the user turn, runs the loop and folds the result back into
// the history. The system turn is chosen once, from the tone of the first
// chat message, even when uploads happened earlier in the session.
func (s *Session) Chat(ctx context.Context, message string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.history) == 0 {
		tone := agent.DetectTone(message)
		log.Debug().Str("session", s.ID).Str("tone", string(tone)).Msg("Session tone selected")
		s.history = append(s.history, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextContent{Text: s.prompts.SystemPrompt(tone)}},
		})
	}

	s.history = append(s.history, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextContent{Text: message}},
	})

	history, reply, err := s.loop.Run(ctx, s.history)
	if err != nil {
		return "", err
	}
	s.history = history
	return reply, nil
}

// Ingest parses an uploaded file into the session index. A source already
// ingested in this session is skipped and reports zero chunks.
func (s *Session) Ingest(ctx context.Context, path, source string, cfg *config.RAGConfig) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.uploaded[source] {
		return 0, nil
	}

	chunks, err := parser.ParseFile(path, source, cfg)
	if err != nil {
		return 0, fmt.Errorf("ingestion failed: %w", err)
	}
	if err := s.store.Upload(ctx, chunks); err != nil {
		return 0, err
	}
	s.uploaded[source] = true
	return len(chunks), nil
}

// Snapshot returns a copy of the history safe to read outside the lock.
func (s *Session) Snapshot() []llms.MessageContent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llms.MessageContent(nil), s.history...)
}

type sessionManager struct {
	mu       sync.Mutex
	deps     Dependencies
	prompts  *agent.PromptBuilder
	sessions map[string]*Session
}

func newSessionManager(deps Dependencies, prompts *agent.PromptBuilder) *sessionManager {
	return &sessionManager{deps: deps, prompts: prompts, sessions: make(map[string]*Session)}
}

func (m *sessionManager) get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// getOrCreate returns the existing session or builds a new one. The system
// turn is not built here: it waits for the first chat message so its tone
// reflects what the customer actually said.
func (m *sessionManager) getOrCreate(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		return s
	}

	if id == "" {
		id = uuid.NewString()
	}

	store := knowledge.NewStore(m.deps.Base, m.deps.SessionFactory)
	registry := tools.NewRegistry(
		&tools.SearchTool{Store: store},
		&tools.PricingTool{},
		&tools.EscalateTool{Log: m.deps.TicketLog},
		&tools.LookupTool{Log: m.deps.TicketLog},
	)

	session := &Session{
		ID:       id,
		store:    store,
		loop:     agent.NewLoop(m.deps.Model, registry),
		prompts:  m.prompts,
		uploaded: make(map[string]bool),
	}
	m.sessions[id] = session

	log.Info().Str("session", id).Msg("Session created")
	return session
}
