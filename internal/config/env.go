package config

import "os"

// applyEnvOverrides applies environment variable overrides on top of the
// loaded file. Provider-specific API keys also select the provider, checked
// in priority order so the most specific key wins.
func applyEnvOverrides(c *Config) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if c.LLM.Provider == "" {
			c.LLM.Provider = "openai"
		}
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "gemini"
	}
	if key := os.Getenv("CONSERVATORY_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}

	if provider := os.Getenv("CONSERVATORY_PROVIDER"); provider != "" {
		c.LLM.Provider = provider
	}
	if model := os.Getenv("CONSERVATORY_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if url := os.Getenv("CONSERVATORY_BASE_URL"); url != "" {
		c.LLM.BaseURL = url
	}

	if dir := os.Getenv("CONSERVATORY_DATA_DIR"); dir != "" {
		c.DataDir = dir
	}
	if path := os.Getenv("CONSERVATORY_DATASET"); path != "" {
		c.Library.DatasetPath = path
	}
	if os.Getenv("CONSERVATORY_DEBUG") == "1" {
		c.Logging.Debug = true
	}
}
