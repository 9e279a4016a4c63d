package assistant

import (
	"fmt"
	"testing"
	"time"

	"cvcraft/internal/config"
)

func breakerConfig(enabled bool) *config.AssistantConfig {
	return &config.AssistantConfig{
		Provider: "openai",
		Model:    "gpt-4o",
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled:          enabled,
			MaxRequests:      3,
			Interval:         60 * time.Second,
			Timeout:          60 * time.Second,
			MinRequests:      3,
			FailureThreshold: 0.6,
		},
	}
}

func TestTurnCircuitBreakerInitialState(t *testing.T) {
	cb := NewTurnCircuitBreaker(breakerConfig(true), nil)

	stats := cb.GetStats()

	name, ok := stats["name"].(string)
	if !ok {
		t.Fatal("Circuit breaker name not found")
	}
	if name != "Assistant-Turn" {
		t.Errorf("Expected circuit breaker name 'Assistant-Turn', got '%s'", name)
	}

	state, ok := stats["state"].(string)
	if !ok {
		t.Fatal("Circuit breaker state not found")
	}
	if state != "closed" {
		t.Errorf("Expected initial state 'closed', got '%s'", state)
	}

	if !cb.IsHealthy() {
		t.Error("Circuit breaker should be healthy initially")
	}
}

func TestDisabledCircuitBreakerIsNil(t *testing.T) {
	cb := NewTurnCircuitBreaker(breakerConfig(false), nil)
	if cb != nil {
		t.Error("Expected nil circuit breaker when disabled")
	}

	// Nil breakers execute directly and report healthy
	result, err := cb.Execute(func() (*TurnResult, error) {
		return &TurnResult{Message: "hello"}, nil
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Message != "hello" {
		t.Errorf("Expected passthrough result, got %q", result.Message)
	}

	if !cb.IsHealthy() {
		t.Error("Nil circuit breaker should report healthy")
	}

	stats := cb.GetStats()
	if enabled, _ := stats["enabled"].(bool); enabled {
		t.Error("Nil circuit breaker stats should report enabled=false")
	}
}

func TestTurnCircuitBreakerOpensAfterFailures(t *testing.T) {
	cfg := breakerConfig(true)
	cfg.CircuitBreaker.MinRequests = 3
	cfg.CircuitBreaker.FailureThreshold = 0.6

	cb := NewTurnCircuitBreaker(cfg, nil)

	failing := func() (*TurnResult, error) {
		return nil, fmt.Errorf("backend unavailable")
	}

	for i := 0; i < 3; i++ {
		if _, err := cb.Execute(failing); err == nil {
			t.Fatal("Expected failure from execute")
		}
	}

	if cb.IsHealthy() {
		t.Error("Circuit breaker should be open after consecutive failures")
	}

	stats := cb.GetStats()
	if state, _ := stats["state"].(string); state != "open" {
		t.Errorf("Expected state 'open', got '%s'", state)
	}
}

func TestModelCircuitBreakerName(t *testing.T) {
	cb := NewModelCircuitBreaker(breakerConfig(true), nil)

	stats := cb.GetModelStats()
	if name, _ := stats["name"].(string); name != "Assistant-Model" {
		t.Errorf("Expected circuit breaker name 'Assistant-Model', got '%s'", name)
	}
	if !cb.IsModelHealthy() {
		t.Error("Model circuit breaker should be healthy initially")
	}
}
