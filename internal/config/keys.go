package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "PLAZA_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.mcp_port", typ: kInt, env: "PLAZA_SERVER_MCP_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.MCPPort = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.MCPPort },
	},
	{
		key: "server.admin_token", typ: kString, env: "PLAZA_SERVER_ADMIN_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.AdminToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.AdminToken },
	},
	{
		key: "genai.base_url", typ: kString, env: "PLAZA_GENAI_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.GenAI.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.GenAI.BaseURL },
	},
	{
		key: "genai.api_key", typ: kString, env: "PLAZA_GENAI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.GenAI.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.GenAI.APIKey },
	},
	{
		key: "genai.model", typ: kString, env: "PLAZA_GENAI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.GenAI.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.GenAI.Model },
	},
	{
		key: "genai.lite_model", typ: kString, env: "PLAZA_GENAI_LITE_MODEL",
		apply:   func(cfg *Config, v any) { cfg.GenAI.LiteModel = v.(string) },
		extract: func(cfg Config) any { return cfg.GenAI.LiteModel },
	},
	{
		key: "genai.embed_model", typ: kString, env: "PLAZA_GENAI_EMBED_MODEL",
		apply:   func(cfg *Config, v any) { cfg.GenAI.EmbedModel = v.(string) },
		extract: func(cfg Config) any { return cfg.GenAI.EmbedModel },
	},
	{
		key: "agent.base_url", typ: kString, env: "PLAZA_AGENT_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Agent.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Agent.BaseURL },
	},
	{
		key: "storage.data_dir", typ: kString, env: "PLAZA_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "retrieval.top_k", typ: kInt, env: "PLAZA_RETRIEVAL_TOP_K",
		apply:   func(cfg *Config, v any) { cfg.Retrieval.TopK = v.(int) },
		extract: func(cfg Config) any { return cfg.Retrieval.TopK },
	},
	{
		key: "retrieval.candidate_limit", typ: kInt, env: "PLAZA_RETRIEVAL_CANDIDATE_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.Retrieval.CandidateLimit = v.(int) },
		extract: func(cfg Config) any { return cfg.Retrieval.CandidateLimit },
	},
	{
		key: "retrieval.vector_threshold", typ: kFloat, env: "PLAZA_RETRIEVAL_VECTOR_THRESHOLD",
		apply:   func(cfg *Config, v any) { cfg.Retrieval.VectorThreshold = v.(float64) },
		extract: func(cfg Config) any { return cfg.Retrieval.VectorThreshold },
	},
	{
		key: "retrieval.lexical_threshold", typ: kFloat, env: "PLAZA_RETRIEVAL_LEXICAL_THRESHOLD",
		apply:   func(cfg *Config, v any) { cfg.Retrieval.LexicalThreshold = v.(float64) },
		extract: func(cfg Config) any { return cfg.Retrieval.LexicalThreshold },
	},
	{
		key: "ingest.max_chunk_size", typ: kInt, env: "PLAZA_INGEST_MAX_CHUNK_SIZE",
		apply:   func(cfg *Config, v any) { cfg.Ingest.MaxChunkSize = v.(int) },
		extract: func(cfg Config) any { return cfg.Ingest.MaxChunkSize },
	},
	{
		key: "log.level", typ: kString, env: "PLAZA_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse float from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
