package assistant

import (
	"context"
	"fmt"

	"cvcraft/internal/config"
	"cvcraft/internal/errors"
)

// Service handles assistant operations for CV building
type Service struct {
	Gateway Gateway // Exported for access from server package
	config  *config.AssistantConfig
	logger  *errors.Logger
}

// NewService creates a new assistant service instance
func NewService(cfg *config.AssistantConfig, logger *errors.Logger) (*Service, error) {
	var gateway Gateway
	var err error

	logger.Debug("Initializing assistant service",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"timeout", cfg.Timeout,
		"max_retries", cfg.MaxRetries,
		"poll_interval", cfg.PollInterval,
		"max_turn_duration", cfg.MaxTurnDuration)

	switch cfg.Provider {
	case "openai":
		gateway, err = NewOpenAIGateway(cfg, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported assistant provider: %s", cfg.Provider), nil)
	}

	if err != nil {
		return nil, errors.NewAssistantError(errors.ErrCodeAssistantServiceFailed,
			"Failed to create assistant gateway", err)
	}

	return &Service{
		Gateway: gateway,
		config:  cfg,
		logger:  logger,
	}, nil
}

// GetModelInfo returns information about the assistant model for health checks
func (s *Service) GetModelInfo(ctx context.Context) any {
	return s.Gateway.GetModelInfo(ctx)
}
