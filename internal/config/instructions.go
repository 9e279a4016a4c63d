package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// validateInstructionsFile checks that a configured instructions file
// exists before we attempt to load it
func (c *Config) validateInstructionsFile() error {
	if c.Assistant.InstructionsFile == "" {
		return nil
	}

	absPath, err := filepath.Abs(c.Assistant.InstructionsFile)
	if err != nil {
		return fmt.Errorf("invalid path for assistant instructions file '%s': %w", c.Assistant.InstructionsFile, err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return fmt.Errorf("assistant instructions file not found: %s", absPath)
	}

	return nil
}

// loadInstructionsFromFile loads custom assistant instructions from an
// external file if a file path is specified. Inline instructions set
// directly in config take precedence over the file.
func (c *Config) loadInstructionsFromFile() error {
	if c.Assistant.InstructionsFile == "" {
		return nil
	}
	if c.Assistant.Instructions != "" {
		log.Println("[CONFIG] Inline assistant instructions set, ignoring instructionsFile")
		return nil
	}

	absPath, err := filepath.Abs(c.Assistant.InstructionsFile)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path for instructions file '%s': %w", c.Assistant.InstructionsFile, err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return fmt.Errorf("failed to read assistant instructions file '%s': %w", absPath, err)
	}

	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return fmt.Errorf("assistant instructions file '%s' is empty", absPath)
	}

	c.Assistant.Instructions = trimmed
	log.Printf("[CONFIG] Successfully loaded assistant instructions from file: %s (%d characters)", absPath, len(trimmed))

	return nil
}
