package server

import (
	"time"

	"cvcraft/internal/assistant"
	"cvcraft/internal/classifier"
	"cvcraft/internal/config"
	"cvcraft/internal/conversation"
	apperrors "cvcraft/internal/errors"
	"cvcraft/internal/render"
	"cvcraft/internal/session"
	"cvcraft/internal/types"
)

// StartConversationRequest represents the request body for the conversation start endpoint
type StartConversationRequest struct {
	SessionID string `json:"sessionId"`
	APIKey    string `json:"apiKey,omitempty"`
}

// MessageRequest represents the request body for the conversation message endpoint
type MessageRequest struct {
	SessionID string `json:"sessionId"`
	APIKey    string `json:"apiKey,omitempty"`
	Message   string `json:"message"`
}

// GeneratePDFRequest represents the request body for the PDF generation endpoint
type GeneratePDFRequest struct {
	SessionID string `json:"sessionId"`
}

// CreateSessionResponse is returned by the session create endpoint
type CreateSessionResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
}

// StartConversationResponse is returned by the conversation start endpoint
type StartConversationResponse struct {
	Success     bool              `json:"success"`
	AssistantID string            `json:"assistantId"`
	ThreadID    string            `json:"threadId"`
	Status      types.StageStatus `json:"status"`
}

// GeneratePDFResponse is returned by the PDF generation endpoint in stored mode
type GeneratePDFResponse struct {
	Success bool   `json:"success"`
	PDFURL  string `json:"pdfUrl"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// TLS Configuration
	TLSConfig config.TLSConfig

	// Certificate management
	CertificateManager *CertificateManager

	// API Authentication
	APIKeys map[string]bool

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	// Conversation state and rendering
	Sessions      session.Store
	Conversations *conversation.Service
	Renderer      *render.PDFRenderer

	// Logger
	Logger *apperrors.Logger
}

// ServerConfig holds configuration for creating a Server instance
// (Refactored to reduce long parameter list in NewServer)
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.TLSConfig
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, logger *apperrors.Logger) *Server {
	// Convert API keys slice to map for O(1) lookup
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.Window,
			cfg.RateLimit.BurstCapacity,
			logger,
		)
	}

	// Gateways are created per request because the assistant API key
	// may be supplied by the client rather than server configuration.
	gateways := func(apiKey string) (assistant.Gateway, error) {
		assistantCfg := appCfg.GetAssistantConfig(apiKey)
		svc, err := assistant.NewService(&assistantCfg, logger)
		if err != nil {
			return nil, err
		}
		return svc.Gateway, nil
	}

	store := session.NewMemoryStore()

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		TLSConfig:      cfg.TLSConfig,
		APIKeys:        apiKeyMap,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Sessions:       store,
		Conversations:  conversation.NewService(store, gateways, classifier.NewRegexClassifier(), logger),
		Renderer:       render.NewPDFRenderer(logger),
		Logger:         logger,
	}
}

// resolveAssistantKey picks the client-supplied API key when present,
// otherwise the server-configured one. Empty when neither is set.
func (s *Server) resolveAssistantKey(requestKey string) string {
	if requestKey != "" {
		return requestKey
	}
	return s.AppConfig.Assistant.APIKey
}
