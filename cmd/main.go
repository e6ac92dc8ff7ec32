package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"support-agent/internal/agent"
	"support-agent/internal/chromemdb"
	"support-agent/internal/config"
	"support-agent/internal/db"
	"support-agent/internal/embedding"
	"support-agent/internal/helper"
	"support-agent/internal/knowledge"
	"support-agent/internal/llmservice"
	"support-agent/internal/models"
	"support-agent/internal/parser"
	"support-agent/internal/server"
	"support-agent/internal/tickets"
	"support-agent/internal/tools"
)

const sessionCollection = "session_uploads"

// apologyReply mirrors the web shell's fallback: model/transport failures are
// logged and replaced with a generic escalation line.
const apologyReply = "I apologize, but I encountered an error. Let me escalate this to Tier-2 support."

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", "./configs/config.yaml", "Path to the config file")
	ingestPath := flag.String("ingest", "", "Path to a knowledge base document to ingest")
	reset := flag.Bool("reset", false, "Drop the existing base index before ingesting")
	dryRun := flag.Bool("dry-run", false, "Parse the ingest document and print chunks without indexing")
	serve := flag.Bool("serve", false, "Start the web chat instead of the terminal REPL")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	ctx := context.Background()

	if *ingestPath != "" {
		ingestKnowledgeBase(ctx, cfg, *ingestPath, *reset, *dryRun)
		return
	}

	if *serve {
		runServer(ctx, cfg)
		return
	}

	runREPL(ctx, cfg)
}

// ingestKnowledgeBase chunks a reference document and indexes it into the
// configured base backend. Run offline, before any chat session. With reset
// set the existing index is dropped first, so stale chunks from earlier
// revisions of the document do not linger.
func ingestKnowledgeBase(ctx context.Context, cfg *config.Config, filePath string, reset, dryRun bool) {
	sourceName := filepath.Base(filePath)
	chunks, err := parser.ParseFile(filePath, sourceName, &cfg.RAG)
	if err != nil {
		log.Fatal().Err(err).Msg("Error parsing document")
	}
	for i := range chunks {
		chunks[i].Origin = models.OriginBase
	}
	log.Info().Str("source", sourceName).Int("chunks", len(chunks)).Msg("Parsed document")

	if dryRun {
		helper.PrettyPrint(chunks)
		return
	}

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	if reset {
		if err := resetBaseIndex(ctx, cfg); err != nil {
			log.Fatal().Err(err).Msg("Error resetting base index")
		}
		log.Info().Str("backend", cfg.RAG.Backend).Msg("Base index dropped")
	}

	base, err := openBaseIndex(ctx, cfg, embedder, true)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening base index")
	}

	if err := base.Index(ctx, chunks); err != nil {
		log.Fatal().Err(err).Msg("Error indexing document")
	}
	log.Info().Int("chunks", len(chunks)).Msg("Knowledge base updated")
}

type embedClient interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// resetBaseIndex drops the stored base knowledge: the documents table on
// postgres, the on-disk store directory on chromem.
func resetBaseIndex(ctx context.Context, cfg *config.Config) error {
	switch cfg.RAG.Backend {
	case "postgres":
		sqldb, err := db.ConnectDB(cfg.RAG.Database.DSN, cfg.RAG.Database.Key)
		if err != nil {
			return err
		}
		defer sqldb.Close()
		return db.DropDocuments(ctx, db.NewDB(sqldb, cfg.RAG.Database.Debug))
	default:
		return os.RemoveAll(cfg.RAG.DBPath)
	}
}

// openBaseIndex returns the base knowledge retriever for the configured
// backend. With init set it also creates what is missing (folders, tables).
func openBaseIndex(ctx context.Context, cfg *config.Config, embedder embedClient, init bool) (knowledge.Retriever, error) {
	switch cfg.RAG.Backend {
	case "postgres":
		sqldb, err := db.ConnectDB(cfg.RAG.Database.DSN, cfg.RAG.Database.Key)
		if err != nil {
			return nil, err
		}
		bundb := db.NewDB(sqldb, cfg.RAG.Database.Debug)
		if init {
			if err := db.InitDB(ctx, bundb); err != nil {
				return nil, err
			}
		}
		return db.NewIndex(bundb, embedder), nil
	default:
		if init {
			if err := helper.CreateFolder(cfg.RAG.DBPath); err != nil {
				return nil, err
			}
		}
		manager, err := chromemdb.NewPersistentManager(cfg.RAG.DBPath, embedder)
		if err != nil {
			return nil, err
		}
		idx, err := manager.GetOrCreateIndex(cfg.RAG.Collection)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("collection", cfg.RAG.Collection).Int("chunks", idx.Count()).Msg("Opened base index")
		return idx, nil
	}
}

func sessionFactory(embedder embedClient) knowledge.SessionFactory {
	return func() (knowledge.Retriever, error) {
		return chromemdb.NewMemoryManager(embedder).GetOrCreateIndex(sessionCollection)
	}
}

func buildDependencies(ctx context.Context, cfg *config.Config) (server.Dependencies, error) {
	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		return server.Dependencies{}, err
	}

	base, err := openBaseIndex(ctx, cfg, embedder, false)
	if err != nil {
		// Queries fall back to session uploads and the sentinel.
		log.Warn().Err(err).Msg("Base knowledge index unavailable")
		base = nil
	}

	model, err := llmservice.NewClient(&cfg.LLM)
	if err != nil {
		return server.Dependencies{}, err
	}

	return server.Dependencies{
		Config:         cfg,
		Model:          model,
		Base:           base,
		SessionFactory: sessionFactory(embedder),
		TicketLog:      tickets.NewLog(cfg.Tickets.LogPath),
	}, nil
}

func runServer(ctx context.Context, cfg *config.Config) {
	deps, err := buildDependencies(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error building dependencies")
	}
	if err := server.New(deps).Listen(cfg.Server.Addr); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

// runREPL is the terminal shell: one user message drives one full loop run
// to completion before the next input is accepted.
func runREPL(ctx context.Context, cfg *config.Config) {
	deps, err := buildDependencies(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error building dependencies")
	}

	store := knowledge.NewStore(deps.Base, deps.SessionFactory)
	registry := tools.NewRegistry(
		&tools.SearchTool{Store: store},
		&tools.PricingTool{},
		&tools.EscalateTool{Log: deps.TicketLog},
		&tools.LookupTool{Log: deps.TicketLog},
	)
	loop := agent.NewLoop(deps.Model, registry)
	prompts := agent.NewPromptBuilder(nil)

	banner := strings.Repeat("~", 110)
	fmt.Println(banner)
	fmt.Println("NebulaSoft AI Support Agent")
	fmt.Println(banner)
	fmt.Println("Hi! I'm Mynko from NebulaSoft support. How can I help you today?")
	fmt.Println("(Type 'quit' or 'exit' to end the conversation)")
	fmt.Println(banner)
	fmt.Println()

	var history []llms.MessageContent
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		switch strings.ToLower(input) {
		case "quit", "exit", "bye":
			fmt.Println("\nMynko: Thank you for contacting NebulaSoft support. See you next time!")
			return
		}

		// The system turn is built once, from the first message's tone,
		// and never regenerated mid-session.
		if len(history) == 0 {
			tone := agent.DetectTone(input)
			log.Debug().Str("tone", string(tone)).Msg("Session tone selected")
			history = append(history, llms.MessageContent{
				Role:  llms.ChatMessageTypeSystem,
				Parts: []llms.ContentPart{llms.TextContent{Text: prompts.SystemPrompt(tone)}},
			})
		}

		history = append(history, llms.MessageContent{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: input}},
		})

		updated, reply, err := loop.Run(ctx, history)
		if err != nil {
			log.Error().Err(err).Msg("Model call failed")
			fmt.Printf("\nMynko: %s\n\n", apologyReply)
			continue
		}
		history = updated

		fmt.Printf("\nMynko: %s\n\n", reply)
	}
}
