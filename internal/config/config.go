package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides (NOOR_BACKEND_URL -> backend_url).
const EnvPrefix = "NOOR_"

// Config holds all application configuration
type Config struct {
	// Chat backend settings
	BackendURL     string        `koanf:"backend_url" yaml:"backend_url"`
	RequestTimeout time.Duration `koanf:"request_timeout" yaml:"request_timeout"`
	Greeting       string        `koanf:"greeting" yaml:"greeting"`

	// Local state
	PrefsPath      string `koanf:"prefs_path" yaml:"prefs_path"`
	HistoryPath    string `koanf:"history_path" yaml:"history_path"`
	MaxHistorySize int    `koanf:"max_history_size" yaml:"max_history_size"`
	LogPath        string `koanf:"log_path" yaml:"log_path"`

	// Development server settings
	ServeAddr     string `koanf:"serve_addr" yaml:"serve_addr"`
	OpenAIBaseURL string `koanf:"openai_base_url" yaml:"openai_base_url"`
	OpenAIModel   string `koanf:"openai_model" yaml:"openai_model"`
	SystemPrompt  string `koanf:"system_prompt" yaml:"system_prompt"`
	KnowledgePath string `koanf:"knowledge_path" yaml:"knowledge_path"`

	// SearXNG settings (dev server web search)
	SearXNGURL    string        `koanf:"searxng_url" yaml:"searxng_url"`
	SearchTimeout time.Duration `koanf:"search_timeout" yaml:"search_timeout"`
	MaxResults    int           `koanf:"max_results" yaml:"max_results"`

	// Crawler settings
	CrawlTimeout   time.Duration `koanf:"crawl_timeout" yaml:"crawl_timeout"`
	MaxCrawlers    int           `koanf:"max_crawlers" yaml:"max_crawlers"`
	MaxContentSize int64         `koanf:"max_content_size" yaml:"max_content_size"`
	UserAgent      string        `koanf:"user_agent" yaml:"user_agent"`

	Verbose bool `koanf:"verbose" yaml:"verbose"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		BackendURL:     "http://localhost:5010",
		RequestTimeout: 120 * time.Second,
		Greeting:       "Hello, I'm Noor. How can I help you today?",

		PrefsPath:      expandHome("~/.noor/prefs.json"),
		HistoryPath:    expandHome("~/.noor/history.json"),
		MaxHistorySize: 10,
		LogPath:        expandHome("~/.noor/noor.log"),

		ServeAddr:     ":5010",
		OpenAIBaseURL: "https://api.openai.com/v1",
		OpenAIModel:   "gpt-4o-mini",
		SystemPrompt:  "You are a helpful assistant named Noor. Answer accurately and in a friendly tone.",
		KnowledgePath: expandHome("~/.noor/knowledge.json"),

		SearXNGURL:    "",
		SearchTimeout: 10 * time.Second,
		MaxResults:    5,

		CrawlTimeout:   15 * time.Second,
		MaxCrawlers:    5,
		MaxContentSize: 5 * 1024 * 1024, // 5 MB
		UserAgent:      "noor-chat/1.0",
	}
}

// DefaultPath is where the config file lives unless --config says otherwise.
func DefaultPath() string {
	return expandHome("~/.noor/config.yml")
}

// Load reads configuration from the given YAML file on top of the defaults,
// then overlays NOOR_* environment variables. A missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := NewConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.PrefsPath = expandHome(cfg.PrefsPath)
	cfg.HistoryPath = expandHome(cfg.HistoryPath)
	cfg.LogPath = expandHome(cfg.LogPath)
	cfg.KnowledgePath = expandHome(cfg.KnowledgePath)

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("backend URL cannot be empty")
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend URL %q must be an absolute http(s) URL", c.BackendURL)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request timeout must be non-negative")
	}
	if c.PrefsPath == "" {
		return fmt.Errorf("prefs path cannot be empty")
	}
	if c.MaxHistorySize < 1 {
		return fmt.Errorf("max history size must be at least 1")
	}
	if c.MaxResults < 1 || c.MaxResults > 10 {
		return fmt.Errorf("max results must be between 1 and 10")
	}
	if c.MaxCrawlers < 1 {
		return fmt.Errorf("max crawlers must be at least 1")
	}
	return nil
}

// expandHome expands the ~ in file paths to the user's home directory
func expandHome(path string) string {
	if len(path) > 0 && path[0] == '~' {
		return getHomeDir() + path[1:]
	}
	return path
}

// getHomeDir returns the user's home directory
func getHomeDir() string {
	if home := GetEnv("HOME"); home != "" {
		return home
	}
	// Fallback for Windows
	if home := GetEnv("USERPROFILE"); home != "" {
		return home
	}
	return "."
}

// GetEnv is a wrapper around os.Getenv for easier testing
var GetEnv = os.Getenv
