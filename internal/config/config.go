// Package config loads the single Config struct the CLI and pipeline share:
// a project YAML file overlaid with environment variables, in the
// precedence order hardcoded defaults -> project file -> environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete runtime configuration for one project.
type Config struct {
	Paths      PathsConfig      `yaml:"paths" json:"paths"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	LLM        LLMConfig        `yaml:"llm" json:"llm"`
	Rerank     RerankConfig     `yaml:"rerank" json:"rerank"`
	Store      StoreConfig      `yaml:"store" json:"store"`
	Graph      GraphConfig      `yaml:"graph" json:"graph"`
}

// PathsConfig locates the ignore file and the root the scanner walks.
type PathsConfig struct {
	SafeRoot   string `yaml:"safe_root" json:"safe_root"`
	IgnoreFile string `yaml:"ignore_file" json:"ignore_file"`
}

// SearchConfig tunes HybridRetriever's fusion and shortlist sizing.
type SearchConfig struct {
	RRFConstant         int     `yaml:"rrf_constant" json:"rrf_constant"`
	BM25WeightBase      float64 `yaml:"bm25_weight_base" json:"bm25_weight_base"`
	BM25WeightRu        float64 `yaml:"bm25_weight_ru" json:"bm25_weight_ru"`
	BM25WeightEn        float64 `yaml:"bm25_weight_en" json:"bm25_weight_en"`
	ShortlistMultiplier int     `yaml:"shortlist_multiplier" json:"shortlist_multiplier"`
}

// EmbeddingsConfig addresses the remote embedding service.
type EmbeddingsConfig struct {
	Endpoint   string `yaml:"endpoint" json:"endpoint"`
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`
}

// LLMConfig addresses the tool-calling BlockSplitter client.
type LLMConfig struct {
	Model     string        `yaml:"model" json:"model"`
	APIKeyEnv string        `yaml:"api_key_env" json:"api_key_env"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
}

// RerankConfig addresses the optional cross-encoder reranker.
type RerankConfig struct {
	Enabled  bool          `yaml:"enabled" json:"enabled"`
	Endpoint string        `yaml:"endpoint" json:"endpoint"`
	Model    string        `yaml:"model" json:"model"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
}

// StoreConfig locates the three persisted index surfaces.
type StoreConfig struct {
	Dir               string `yaml:"dir" json:"dir"`
	BM25IndexName     string `yaml:"bm25_index_name" json:"bm25_index_name"`
	ManifestIndexName string `yaml:"manifest_index_name" json:"manifest_index_name"`
}

// GraphConfig tunes GraphLinker's similarity pass.
type GraphConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold" json:"similarity_threshold"`
	MaxLinksPerChunk    int     `yaml:"max_links_per_chunk" json:"max_links_per_chunk"`
}

// Default returns the hardcoded baseline every project file and
// environment variable layer is applied on top of.
func Default() Config {
	return Config{
		Paths: PathsConfig{
			SafeRoot:   ".",
			IgnoreFile: ".codeindexignore",
		},
		Search: SearchConfig{
			RRFConstant:         60,
			BM25WeightBase:      1.0,
			BM25WeightRu:        1.3,
			BM25WeightEn:        1.2,
			ShortlistMultiplier: 6,
		},
		Embeddings: EmbeddingsConfig{
			Endpoint:   "http://localhost:8081",
			Model:      "BAAI/bge-m3",
			Dimensions: 1024,
			BatchSize:  32,
		},
		LLM: LLMConfig{
			Model:     "claude-sonnet-4-5",
			APIKeyEnv: "ANTHROPIC_API_KEY",
			Timeout:   60 * time.Second,
		},
		Rerank: RerankConfig{
			Enabled:  false,
			Endpoint: "http://localhost:8082",
			Model:    "BAAI/bge-reranker-large",
			Timeout:  30 * time.Second,
		},
		Store: StoreConfig{
			Dir:               ".codeindex",
			BM25IndexName:     "bm25.bleve",
			ManifestIndexName: "manifest.db",
		},
		Graph: GraphConfig{
			SimilarityThreshold: 0.7,
			MaxLinksPerChunk:    5,
		},
	}
}

// Load reads a project config file (if it exists) over the hardcoded
// defaults, then applies environment variable overrides from spec §6.
// A missing path is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// no project file; defaults + env stand
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv overlays the environment variables named in spec §6 onto cfg.
// Every variable is optional; an unset one leaves the existing value
// (default or project-file) untouched.
func applyEnv(cfg *Config) {
	if v := os.Getenv("REPOS_SAFE_ROOT"); v != "" {
		cfg.Paths.SafeRoot = v
	}
	if v := os.Getenv("EMBED_MODEL"); v != "" {
		cfg.Embeddings.Model = v
	}
	if v := os.Getenv("RERANK_MODEL"); v != "" {
		cfg.Rerank.Model = v
	}
	if v := os.Getenv("CLAUDE_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("ES_HOST"); v != "" {
		port := os.Getenv("ES_PORT")
		if port == "" {
			port = "9200"
		}
		cfg.Store.Dir = fmt.Sprintf("%s:%s", v, port)
	}
	if v := os.Getenv("ES_INDEX_CHUNKS"); v != "" {
		cfg.Store.BM25IndexName = v
	}
	if v := os.Getenv("ES_INDEX_FILE_MANIFEST"); v != "" {
		cfg.Store.ManifestIndexName = v
	}
}

// AnthropicAPIKey reads the key named by LLM.APIKeyEnv.
func (c Config) AnthropicAPIKey() string {
	return os.Getenv(c.LLM.APIKeyEnv)
}

// Validate checks the config is usable before a build or graph-link run.
// Callers surface a non-nil return as a ConfigError (exit code 1).
func (c Config) Validate() error {
	if c.Paths.SafeRoot == "" {
		return fmt.Errorf("paths.safe_root must not be empty")
	}
	if c.Embeddings.Dimensions <= 0 {
		return fmt.Errorf("embeddings.dimensions must be positive, got %d", c.Embeddings.Dimensions)
	}
	if c.AnthropicAPIKey() == "" {
		return fmt.Errorf("%s is not set", c.LLM.APIKeyEnv)
	}
	if c.Graph.SimilarityThreshold <= 0 || c.Graph.SimilarityThreshold > 1 {
		return fmt.Errorf("graph.similarity_threshold must be in (0,1], got %v", c.Graph.SimilarityThreshold)
	}
	return nil
}

// EnvInt reads an integer environment variable, falling back to def when
// unset or unparsable.
func EnvInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
