package config

import (
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	Server    ServerConfig
	GenAI     GenAIConfig
	Agent     AgentConfig
	Storage   StorageConfig
	Retrieval RetrievalConfig
	Ingest    IngestConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port       int
	MCPPort    int
	AdminToken string
}

// GenAIConfig points at the text-generation / embedding collaborator.
type GenAIConfig struct {
	BaseURL    string
	APIKey     string
	Model      string // grounded-search generation
	LiteModel  string // direct and RAG generation
	EmbedModel string
}

// AgentConfig points at the full-reasoning-agent collaborator.
type AgentConfig struct {
	BaseURL string
}

type StorageConfig struct {
	DataDir string
}

type RetrievalConfig struct {
	TopK             int
	CandidateLimit   int
	VectorThreshold  float64
	LexicalThreshold float64
}

type IngestConfig struct {
	MaxChunkSize int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:    4600,
			MCPPort: 4601,
		},
		GenAI: GenAIConfig{
			BaseURL:    "https://generativelanguage.googleapis.com",
			Model:      "gemini-2.5-flash",
			LiteModel:  "gemini-2.5-flash-lite",
			EmbedModel: "text-embedding-004",
		},
		Agent: AgentConfig{
			BaseURL: "http://localhost:4700",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Retrieval: RetrievalConfig{
			TopK:             3,
			CandidateLimit:   50,
			VectorThreshold:  0.5,
			LexicalThreshold: 0.1,
		},
		Ingest: IngestConfig{
			MaxChunkSize: 1000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "plaza-data"
		}
	}
	return filepath.Join(dir, "plaza")
}

// Load reads configuration from the JSON config file at
// $XDG_CONFIG_HOME/plaza/config.json, then applies PLAZA_* environment
// variable overrides. The GenAI API key is required and must come from
// either source.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.GenAI.APIKey == "" {
		return Config{}, fmt.Errorf("missing required config: GenAI API key. " +
			"Set it via environment variable PLAZA_GENAI_API_KEY or `plaza config set genai.api_key`")
	}

	return cfg, nil
}
