package inlet

import (
	"encoding/json"
	"os"
	"path/filepath"

	defaults "github.com/Paranoid-AF/inlet/default"
)

// Config represents the user's inlet configuration.
type Config struct {
	Version      int              `json:"version"`
	Completion   CompletionConfig `json:"completion"`
	Autocomplete Options          `json:"autocomplete"`
	Embedding    EmbeddingConfig  `json:"embedding"`
}

// CompletionConfig holds settings for the completion API.
type CompletionConfig struct {
	BaseURL     string  `json:"base_url"`
	APIKey      string  `json:"api_key"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	// FIM selects the suffix-aware /completions call instead of a rendered prompt.
	FIM *bool `json:"fim,omitempty"`
}

// EmbeddingConfig holds settings for the embedding API used by the workspace index.
type EmbeddingConfig struct {
	BaseURL    string `json:"base_url"`
	APIKey     string `json:"api_key"`
	Model      string `json:"model"`
	TTLMinutes int    `json:"ttl_minutes,omitempty"`
	MaxFiles   int    `json:"max_files,omitempty"`
}

// ConfigDir returns the config directory path.
// Resolution order: $INLET_CONFIG_DIR > $XDG_CONFIG_HOME/inlet > ~/.config/inlet
func ConfigDir() string {
	if dir := os.Getenv("INLET_CONFIG_DIR"); dir != "" {
		return dir
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "inlet")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp", "inlet-config")
	}
	return filepath.Join(home, ".config", "inlet")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// TemplatesPath returns the template overrides file path.
func TemplatesPath() string {
	return filepath.Join(ConfigDir(), "templates.toml")
}

// IndexCachePath returns the workspace index cache file path.
func IndexCachePath() string {
	return filepath.Join(ConfigDir(), "index-cache.json")
}

// DefaultConfig returns the default configuration from the embedded default_config.json.
func DefaultConfig() *Config {
	var cfg Config
	if err := json.Unmarshal(defaults.DefaultConfigJSON, &cfg); err != nil {
		panic("inlet: invalid embedded default_config.json: " + err.Error())
	}
	return &cfg
}

// LoadConfig loads config from disk or returns defaults if not found.
func LoadConfig() (*Config, error) {
	path := ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	defaults := DefaultConfig()

	// Autocomplete options are mostly booleans, so absent keys must keep
	// their default rather than decode to false.
	cfg := Config{Autocomplete: defaults.Autocomplete}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Apply defaults for missing fields
	if cfg.Completion.BaseURL == "" {
		cfg.Completion.BaseURL = defaults.Completion.BaseURL
	}
	if cfg.Completion.Model == "" {
		cfg.Completion.Model = defaults.Completion.Model
	}
	if cfg.Completion.MaxTokens == 0 {
		cfg.Completion.MaxTokens = defaults.Completion.MaxTokens
	}
	if cfg.Completion.Temperature == 0 {
		cfg.Completion.Temperature = defaults.Completion.Temperature
	}
	if cfg.Completion.FIM == nil {
		cfg.Completion.FIM = defaults.Completion.FIM
	}
	cfg.Autocomplete = cfg.Autocomplete.WithDefaults(defaults.Autocomplete)
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = defaults.Embedding.Model
	}
	if cfg.Embedding.TTLMinutes == 0 {
		cfg.Embedding.TTLMinutes = defaults.Embedding.TTLMinutes
	}
	if cfg.Embedding.MaxFiles == 0 {
		cfg.Embedding.MaxFiles = defaults.Embedding.MaxFiles
	}

	return &cfg, nil
}

// ValidateConfig checks configuration for potential issues and returns warnings.
func ValidateConfig(cfg *Config) []string {
	var warnings []string
	if cfg == nil {
		return warnings
	}
	if ResolveCompletionModel(cfg) == "" {
		warnings = append(warnings, "completion model is not configured; no completions will be generated")
	}
	opts := cfg.Autocomplete
	if opts.PrefixPercentage+opts.MaxSuffixPercentage > 1 {
		warnings = append(warnings, "prefix_percentage + max_suffix_percentage exceeds 1; the caret window will leave no room for snippets")
	}
	if opts.UseRootPath && !EmbeddingEnabled(cfg) {
		warnings = append(warnings, "use_root_path is enabled but embedding is not configured; root path snippets fall back to symbol matching")
	}
	if opts.MaxPromptTokens <= 0 {
		warnings = append(warnings, "max_prompt_tokens must be positive")
	}
	return warnings
}

// ResolveCompletionBaseURL returns the completion API base URL.
// Priority: $INLET_COMPLETION_API_BASE_URL env > config value.
func ResolveCompletionBaseURL(cfg *Config) string {
	if url := os.Getenv("INLET_COMPLETION_API_BASE_URL"); url != "" {
		return url
	}
	if cfg != nil {
		return cfg.Completion.BaseURL
	}
	return ""
}

// ResolveCompletionAPIKey returns the completion API key.
// Priority: $INLET_COMPLETION_API_KEY env > config value.
func ResolveCompletionAPIKey(cfg *Config) string {
	if key := os.Getenv("INLET_COMPLETION_API_KEY"); key != "" {
		return key
	}
	if cfg != nil {
		return cfg.Completion.APIKey
	}
	return ""
}

// ResolveCompletionModel returns the completion model name.
// Priority: $INLET_COMPLETION_MODEL env > config value.
func ResolveCompletionModel(cfg *Config) string {
	if model := os.Getenv("INLET_COMPLETION_MODEL"); model != "" {
		return model
	}
	if cfg != nil {
		return cfg.Completion.Model
	}
	return ""
}

// ResolveEmbeddingBaseURL returns the embedding API base URL.
// Priority: $INLET_EMBEDDING_API_BASE_URL env > config value.
func ResolveEmbeddingBaseURL(cfg *Config) string {
	if url := os.Getenv("INLET_EMBEDDING_API_BASE_URL"); url != "" {
		return url
	}
	if cfg != nil {
		return cfg.Embedding.BaseURL
	}
	return ""
}

// ResolveEmbeddingAPIKey returns the embedding API key.
// Priority: $INLET_EMBEDDING_API_KEY env > config value.
func ResolveEmbeddingAPIKey(cfg *Config) string {
	if key := os.Getenv("INLET_EMBEDDING_API_KEY"); key != "" {
		return key
	}
	if cfg != nil {
		return cfg.Embedding.APIKey
	}
	return ""
}

// ResolveEmbeddingModel returns the embedding model name.
// Priority: $INLET_EMBEDDING_MODEL env > config value.
func ResolveEmbeddingModel(cfg *Config) string {
	if model := os.Getenv("INLET_EMBEDDING_MODEL"); model != "" {
		return model
	}
	if cfg != nil {
		return cfg.Embedding.Model
	}
	return ""
}

// EmbeddingEnabled returns true when both base_url and api_key are configured for embedding.
func EmbeddingEnabled(cfg *Config) bool {
	if cfg == nil {
		return false
	}
	return ResolveEmbeddingBaseURL(cfg) != "" && ResolveEmbeddingAPIKey(cfg) != ""
}

// FIMEnabled reports whether the completion endpoint should be called in fill-in-middle mode.
func FIMEnabled(cfg *Config) bool {
	if cfg == nil || cfg.Completion.FIM == nil {
		return false
	}
	return *cfg.Completion.FIM
}
