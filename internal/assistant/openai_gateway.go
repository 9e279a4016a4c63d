package assistant

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"

	"cvcraft/internal/config"
	cvcraftErrors "cvcraft/internal/errors"
	"cvcraft/internal/types"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// OpenAIGateway implements Gateway on top of the OpenAI Assistants API
type OpenAIGateway struct {
	client       *openai.Client
	config       *config.AssistantConfig
	turnBreaker  *TurnCircuitBreaker
	modelBreaker *ModelCircuitBreaker
	logger       *cvcraftErrors.Logger
}

// Ensure OpenAIGateway implements Gateway
var _ Gateway = (*OpenAIGateway)(nil)

// NewOpenAIGateway creates a gateway instance bound to one API key
func NewOpenAIGateway(cfg *config.AssistantConfig, logger *cvcraftErrors.Logger) (*OpenAIGateway, error) {
	if cfg.APIKey == "" {
		return nil, cvcraftErrors.NewConfigError(cvcraftErrors.ErrCodeMissingAPIKey,
			"OpenAI API key is required", nil)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIGateway{
		client:       openai.NewClientWithConfig(clientCfg),
		config:       cfg,
		turnBreaker:  NewTurnCircuitBreaker(cfg, logger),
		modelBreaker: NewModelCircuitBreaker(cfg, logger),
		logger:       logger,
	}, nil
}

// CreateAssistant registers a CV-building assistant with the generate_cv tool
func (g *OpenAIGateway) CreateAssistant(ctx context.Context) (string, error) {
	name := AssistantName
	instructions := resolveInstructions(g.config.Instructions)

	assistant, err := withRetry(ctx, g, "create_assistant", func() (openai.Assistant, error) {
		return g.client.CreateAssistant(ctx, openai.AssistantRequest{
			Model:        g.config.Model,
			Name:         &name,
			Instructions: &instructions,
			Tools:        []openai.AssistantTool{generateCVTool()},
		})
	})
	if err != nil {
		return "", cvcraftErrors.NewAssistantError(cvcraftErrors.ErrCodeAssistantServiceFailed,
			"Failed to create assistant", err)
	}

	g.logger.Debug("Assistant created",
		"assistant_id", assistant.ID,
		"model", g.config.Model)

	return assistant.ID, nil
}

// CreateThread opens a fresh conversation thread
func (g *OpenAIGateway) CreateThread(ctx context.Context) (string, error) {
	thread, err := withRetry(ctx, g, "create_thread", func() (openai.Thread, error) {
		return g.client.CreateThread(ctx, openai.ThreadRequest{})
	})
	if err != nil {
		return "", cvcraftErrors.NewAssistantError(cvcraftErrors.ErrCodeAssistantServiceFailed,
			"Failed to create thread", err)
	}

	g.logger.Debug("Thread created", "thread_id", thread.ID)

	return thread.ID, nil
}

// RunTurn posts the user message, runs the assistant, and polls until the
// run reaches a terminal state. A generate_cv tool call short-circuits
// the turn: the structured CV data is returned instead of a reply.
func (g *OpenAIGateway) RunTurn(ctx context.Context, assistantID, threadID, userMessage string) (*TurnResult, error) {
	return g.turnBreaker.Execute(func() (*TurnResult, error) {
		return g.runTurn(ctx, assistantID, threadID, userMessage)
	})
}

func (g *OpenAIGateway) runTurn(ctx context.Context, assistantID, threadID, userMessage string) (*TurnResult, error) {
	tracer := otel.Tracer("cvcraft.assistant.openai")
	ctx, span := tracer.Start(ctx, "openai.run_turn")
	defer span.End()

	span.SetAttributes(
		attribute.String("assistant.provider", "openai"),
		attribute.String("assistant.model", g.config.Model),
		attribute.Int("input.message_length", len(userMessage)),
	)

	// Bound the whole turn. Individual API calls have their own timeout.
	turnCtx, cancel := context.WithTimeout(ctx, g.config.MaxTurnDuration)
	defer cancel()

	// Message creation is not retried: a retry after an ambiguous
	// failure could post the user message twice.
	if _, err := g.client.CreateMessage(turnCtx, threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: userMessage,
	}); err != nil {
		span.RecordError(err)
		return nil, cvcraftErrors.NewAssistantError(cvcraftErrors.ErrCodeAssistantServiceFailed,
			"Failed to post user message", err)
	}

	run, err := g.client.CreateRun(turnCtx, threadID, openai.RunRequest{
		AssistantID: assistantID,
	})
	if err != nil {
		span.RecordError(err)
		return nil, cvcraftErrors.NewAssistantError(cvcraftErrors.ErrCodeAssistantServiceFailed,
			"Failed to start assistant run", err)
	}

	result, err := g.pollRun(turnCtx, threadID, run.ID)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		if turnCtx.Err() != nil && ctx.Err() == nil {
			return nil, cvcraftErrors.NewAssistantError(cvcraftErrors.ErrCodeTurnTimeout,
				fmt.Sprintf("Turn did not complete within %s", g.config.MaxTurnDuration), err)
		}
		return nil, err
	}

	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.Bool("turn.completed", result.Completed),
		attribute.Int("output.message_length", len(result.Message)),
	)
	if result.Usage != nil {
		span.SetAttributes(
			attribute.Int64("assistant.tokens.input", result.Usage.InputTokens),
			attribute.Int64("assistant.tokens.output", result.Usage.OutputTokens),
			attribute.Int64("assistant.tokens.total", result.Usage.TotalTokens),
		)
	}

	return result, nil
}

// pollRun drives the run state machine until it terminates
func (g *OpenAIGateway) pollRun(ctx context.Context, threadID, runID string) (*TurnResult, error) {
	for {
		run, err := withRetry(ctx, g, "retrieve_run", func() (openai.Run, error) {
			return g.client.RetrieveRun(ctx, threadID, runID)
		})
		if err != nil {
			return nil, cvcraftErrors.NewAssistantError(cvcraftErrors.ErrCodeAssistantServiceFailed,
				"Failed to retrieve run status", err)
		}

		switch run.Status {
		case openai.RunStatusQueued, openai.RunStatusInProgress, openai.RunStatusCancelling:
			select {
			case <-time.After(g.config.PollInterval):
			case <-ctx.Done():
				return nil, ctx.Err()
			}

		case openai.RunStatusRequiresAction:
			result, handled, err := g.handleToolCalls(ctx, &run)
			if err != nil {
				return nil, err
			}
			if handled {
				return result, nil
			}
			// No recognized tool call: wait and re-check
			select {
			case <-time.After(g.config.PollInterval):
			case <-ctx.Done():
				return nil, ctx.Err()
			}

		case openai.RunStatusCompleted:
			message, err := g.latestAssistantMessage(ctx, threadID)
			if err != nil {
				return nil, err
			}
			return &TurnResult{
				Message:   message,
				Completed: false,
				Usage:     extractTokenUsage(&run),
			}, nil

		default:
			// failed, cancelled, expired, incomplete
			detail := string(run.Status)
			if run.LastError != nil && run.LastError.Message != "" {
				detail = fmt.Sprintf("%s: %s", run.Status, run.LastError.Message)
			}
			return nil, cvcraftErrors.NewAssistantError(cvcraftErrors.ErrCodeAssistantRunFailed,
				"Assistant run ended without a response ("+detail+")", nil)
		}
	}
}

// cvGeneratedMessage closes the conversation when the assistant invokes
// generate_cv: the run ends through the tool call, so there is no thread
// message to fetch and the client still needs a final reply.
const cvGeneratedMessage = "I've collected all the information and generated your CV. You can now download it as a PDF."

// handleToolCalls processes a requires_action run. Returns handled=true
// with the short-circuit result when the generate_cv call was found.
func (g *OpenAIGateway) handleToolCalls(ctx context.Context, run *openai.Run) (*TurnResult, bool, error) {
	if run.RequiredAction == nil || run.RequiredAction.SubmitToolOutputs == nil {
		return nil, false, nil
	}

	for _, call := range run.RequiredAction.SubmitToolOutputs.ToolCalls {
		if call.Function.Name != GenerateCVToolName {
			continue
		}

		// The tool schema requires personalInfo.fullName; the payload is
		// accepted as-is and every field is optional downstream.
		var cvData types.CVData
		if err := json.Unmarshal([]byte(call.Function.Arguments), &cvData); err != nil {
			return nil, false, cvcraftErrors.NewAssistantError(cvcraftErrors.ErrCodeAssistantRunFailed,
				"Assistant returned malformed CV data", err)
		}

		// Acknowledge the tool call so the run can finish server-side.
		// The turn result does not depend on this, so a failure here is
		// logged but not surfaced.
		if _, err := g.client.SubmitToolOutputs(ctx, run.ThreadID, run.ID, openai.SubmitToolOutputsRequest{
			ToolOutputs: []openai.ToolOutput{
				{ToolCallID: call.ID, Output: `{"success": true}`},
			},
		}); err != nil {
			g.logger.Warn("Failed to acknowledge generate_cv tool call",
				"run_id", run.ID,
				"error", err.Error())
		}

		g.logger.Info("CV generation tool call received",
			"run_id", run.ID,
			"sections", len(cvData.Sections))

		return &TurnResult{
			Message:   cvGeneratedMessage,
			CVData:    &cvData,
			Completed: true,
			Usage:     extractTokenUsage(run),
		}, true, nil
	}

	return nil, false, nil
}

// latestAssistantMessage fetches the newest non-empty assistant reply
func (g *OpenAIGateway) latestAssistantMessage(ctx context.Context, threadID string) (string, error) {
	limit := 100
	order := "asc"

	list, err := withRetry(ctx, g, "list_messages", func() (openai.MessagesList, error) {
		return g.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	})
	if err != nil {
		return "", cvcraftErrors.NewAssistantError(cvcraftErrors.ErrCodeAssistantServiceFailed,
			"Failed to list thread messages", err)
	}

	reply := ""
	for _, msg := range list.Messages {
		if msg.Role != openai.ChatMessageRoleAssistant {
			continue
		}
		if text := messageText(msg); text != "" {
			reply = text
		}
	}

	if reply == "" {
		return "", cvcraftErrors.NewAssistantError(cvcraftErrors.ErrCodeAssistantRunFailed,
			"Assistant run completed without a reply", nil)
	}

	return reply, nil
}

// messageText joins the text blocks of a message, skipping blanks
func messageText(msg openai.Message) string {
	text := ""
	for _, content := range msg.Content {
		if content.Text == nil || content.Text.Value == "" {
			continue
		}
		if text != "" {
			text += "\n"
		}
		text += content.Text.Value
	}
	return text
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *OpenAIGateway) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{
		Name:      g.config.Model,
		Available: false,
	}

	checkCtx, cancel := context.WithTimeout(ctx, getModelCheckTimeout())
	defer cancel()

	model, err := g.modelBreaker.ExecuteModel(func() (openai.Model, error) {
		return g.client.GetModel(checkCtx, g.config.Model)
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)

		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"provider", g.config.Provider,
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	modelInfo.OwnedBy = model.OwnedBy

	g.logger.Debug("Model availability check successful",
		"model", g.config.Model,
		"provider", g.config.Provider,
		"owned_by", modelInfo.OwnedBy)

	return modelInfo
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (g *OpenAIGateway) GetCircuitBreakerStats() map[string]any {
	stats := map[string]any{
		"turn_operations":  g.turnBreaker.GetStats(),
		"model_operations": g.modelBreaker.GetModelStats(),
	}

	// Overall health - both breakers must be healthy
	turnHealthy := g.turnBreaker.IsHealthy()
	modelHealthy := g.modelBreaker.IsModelHealthy()
	stats["overall_healthy"] = turnHealthy && modelHealthy

	return stats
}

// Close implements Gateway
func (g *OpenAIGateway) Close() error {
	// The OpenAI client holds no persistent connections to release
	return nil
}

// withRetry executes an idempotent API call with retry logic and
// exponential backoff. Non-idempotent calls (posting messages,
// starting runs) must not go through here.
func withRetry[T any](ctx context.Context, g *OpenAIGateway, operation string, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= g.config.MaxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("Retrying assistant operation",
				"operation", operation,
				"attempt", attempt,
				"max_retries", g.config.MaxRetries,
				"error", lastErr.Error())

			// Exponential backoff with jitter to prevent thundering herd
			baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			jitterMax := big.NewInt(int64(float64(baseDelay) * 0.1))
			jitterBig, _ := rand.Int(rand.Reader, jitterMax)
			jitter := time.Duration(jitterBig.Int64())
			// Cap maximum backoff at 30 seconds
			backoff := min(baseDelay+jitter, 30*time.Second)

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.logger.Info("Assistant operation succeeded after retry",
					"operation", operation,
					"successful_attempt", attempt+1)
			}
			return result, nil
		}

		lastErr = err

		// Don't retry on certain errors (auth, invalid input, etc.)
		if !isRetryableError(err) {
			g.logger.Debug("Error is not retryable, stopping retry attempts",
				"operation", operation,
				"error", err.Error())
			break
		}
	}

	g.logger.LogError(lastErr, "Assistant operation failed after all retry attempts",
		"operation", operation,
		"total_attempts", g.config.MaxRetries+1)

	return zero, fmt.Errorf("operation '%s' failed after %d retries: %w", operation, g.config.MaxRetries, lastErr)
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Check for network errors (timeouts, connection issues)
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true // Retry on timeouts
		}
		// Consider other network errors retryable (e.g., connection refused)
		return true
	}

	// Check for OpenAI API errors (HTTP status codes)
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	// Transport-level request errors never reached the API
	var reqErr *openai.RequestError
	return errors.As(err, &reqErr)
}

// extractTokenUsage extracts token usage information from a finished run
func extractTokenUsage(run *openai.Run) *TokenUsage {
	if run == nil || run.Usage.TotalTokens == 0 {
		return nil
	}

	return &TokenUsage{
		InputTokens:  int64(run.Usage.PromptTokens),
		OutputTokens: int64(run.Usage.CompletionTokens),
		TotalTokens:  int64(run.Usage.TotalTokens),
	}
}

// getModelCheckTimeout returns the model availability check timeout
func getModelCheckTimeout() time.Duration {
	if config.GlobalConfig != nil {
		if t := config.GlobalConfig.Observability.HealthCheck.AssistantCheckTimeout; t > 0 {
			return t
		}
	}
	return 10 * time.Second
}
