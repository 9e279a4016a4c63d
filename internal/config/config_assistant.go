package config

// GetAssistantConfig returns the assistant configuration, optionally
// overriding the API key with a caller-supplied one. Clients may bring
// their own OpenAI key per request; everything else comes from config.
func (c *Config) GetAssistantConfig(apiKeyOverride string) AssistantConfig {
	cfg := c.Assistant
	if apiKeyOverride != "" {
		cfg.APIKey = apiKeyOverride
	}
	return cfg
}

// ResolvedInstructions returns the effective assistant instructions:
// the file-loaded or inline override when present, empty otherwise
// (callers fall back to their built-in instructions).
func (c *Config) ResolvedInstructions() string {
	return c.Assistant.Instructions
}
