package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM      LLMConfig    `yaml:"llm"`
	EmbedLLM LLMConfig    `yaml:"embedding"`
	RAG      RAGConfig    `yaml:"rag"`
	Tickets  TicketConfig `yaml:"tickets"`
	Server   ServerConfig `yaml:"server"`
}

type LLMConfig struct {
	Provider string `yaml:"provider"` // "openai" (default) or "ollama"
	Model    string `yaml:"model"`
	Key      string `yaml:"key"`
	BaseURL  string `yaml:"base_url"`
	// Temperature is a pointer so an explicit 0 in the file is
	// distinguishable from the key being absent.
	Temperature *float64 `yaml:"temperature"`
}

// TemperatureOrDefault returns the configured sampling temperature, falling
// back to the default only when the key was not set at all.
func (c *LLMConfig) TemperatureOrDefault() float64 {
	if c.Temperature == nil {
		return defaultTemperature
	}
	return *c.Temperature
}

type RAGConfig struct {
	Backend      string         `yaml:"backend"` // "chromem" or "postgres"
	DBPath       string         `yaml:"db_path"`
	Collection   string         `yaml:"collection"`
	ChunkSize    int            `yaml:"chunk_size"`
	ChunkOverlap int            `yaml:"chunk_overlap"`
	Database     DatabaseConfig `yaml:"database"`
}

type DatabaseConfig struct {
	DSN   string `yaml:"dsn"`
	Key   string `yaml:"key"`
	Debug bool   `yaml:"debug"`
}

type TicketConfig struct {
	LogPath string `yaml:"log_path"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

const (
	defaultChunkSize    = 500
	defaultChunkOverlap = 100
	defaultTemperature  = 0.7
	defaultBackend      = "chromem"
	defaultDBPath       = "./chromemdb"
	defaultCollection   = "nebula_docs"
	defaultTicketLog    = "tickets.log"
	defaultServerAddr   = ":8080"
)

// LoadConfig reads the YAML config at path. Environment variables referenced
// as ${VAR} in the file are expanded after a best-effort .env load, so API
// keys stay out of the config file itself.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.EmbedLLM.Key == "" {
		c.EmbedLLM.Key = c.LLM.Key
	}
	if c.EmbedLLM.BaseURL == "" {
		c.EmbedLLM.BaseURL = c.LLM.BaseURL
	}
	if c.RAG.Backend == "" {
		c.RAG.Backend = defaultBackend
	}
	if c.RAG.DBPath == "" {
		c.RAG.DBPath = defaultDBPath
	}
	if c.RAG.Collection == "" {
		c.RAG.Collection = defaultCollection
	}
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = defaultChunkSize
	}
	if c.RAG.ChunkOverlap == 0 {
		c.RAG.ChunkOverlap = defaultChunkOverlap
	}
	if c.Tickets.LogPath == "" {
		c.Tickets.LogPath = defaultTicketLog
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaultServerAddr
	}
}

// validate fails fast on anything the hosted model needs; a missing key or
// model must surface at startup, not as a silent fallback mid-session.
func (c *Config) validate() error {
	var missing []string
	if c.LLM.Model == "" {
		missing = append(missing, "llm.model")
	}
	if c.LLM.Key == "" {
		missing = append(missing, "llm.key")
	}
	if c.LLM.BaseURL == "" {
		missing = append(missing, "llm.base_url")
	}
	if c.EmbedLLM.Model == "" {
		missing = append(missing, "embedding.model")
	}
	if c.RAG.Backend != "chromem" && c.RAG.Backend != "postgres" {
		return fmt.Errorf("unknown rag backend %q (expected chromem or postgres)", c.RAG.Backend)
	}
	if c.RAG.Backend == "postgres" && c.RAG.Database.DSN == "" {
		missing = append(missing, "rag.database.dsn")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	return nil
}
