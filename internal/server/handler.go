package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cvcraft/internal/conversation"
	apperrors "cvcraft/internal/errors"
	"cvcraft/internal/observability"
	"cvcraft/internal/types"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// createSessionHandler wraps the session create handler with observability
func (s *Server) createSessionHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("cvcraft.api")
		ctx, span := tracer.Start(ctx, "api.session.create")
		defer span.End()

		metrics := om.GetMetrics()

		sess, err := s.Conversations.CreateSession(ctx)
		if err != nil {
			span.RecordError(err)
			metrics.RecordBusinessMetric(ctx, "session_created", false)
			writeErrorResponse(w, "Failed to create session", err.Error(), http.StatusInternalServerError)
			return
		}

		metrics.RecordBusinessMetric(ctx, "session_created", true)
		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.String("session.id", sess.SessionID),
		)

		writeJSONResponse(w, span, CreateSessionResponse{Success: true, SessionID: sess.SessionID})
	}
}

// getSessionHandler wraps the session fetch handler with observability
func (s *Server) getSessionHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("cvcraft.api")
		ctx, span := tracer.Start(ctx, "api.session.get")
		defer span.End()

		sessionID := r.URL.Query().Get("sessionId")
		if sessionID == "" {
			err := fmt.Errorf("missing session id")
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Session ID is required", "sessionId query parameter is required", http.StatusBadRequest)
			return
		}
		span.SetAttributes(attribute.String("session.id", sessionID))

		sess, err := s.Conversations.GetSession(ctx, sessionID)
		if err != nil {
			span.RecordError(err)
			writeErrorResponse(w, "Session not found", err.Error(), statusForError(err))
			return
		}

		writeJSONResponse(w, span, sess)
	}
}

// startConversationHandler wraps the conversation start handler with observability
func (s *Server) startConversationHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("cvcraft.api")
		ctx, span := tracer.Start(ctx, "api.conversation.start")
		defer span.End()

		var req StartConversationRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		if strings.TrimSpace(req.SessionID) == "" {
			err := fmt.Errorf("missing session id")
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Session ID is required", "sessionId field is required", http.StatusBadRequest)
			return
		}

		apiKey := s.resolveAssistantKey(req.APIKey)
		if apiKey == "" {
			err := fmt.Errorf("missing assistant API key")
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "API key is required", "provide apiKey in the request or configure one on the server", http.StatusBadRequest)
			return
		}

		span.SetAttributes(attribute.String("session.id", req.SessionID))

		sess, err := s.Conversations.StartConversation(ctx, req.SessionID, apiKey)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "assistant_setup"))
			writeErrorResponse(w, "Failed to start conversation", err.Error(), statusForError(err))
			return
		}

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.String("session.status", string(sess.Status)),
		)

		writeJSONResponse(w, span, StartConversationResponse{
			Success:     true,
			AssistantID: sess.AssistantID,
			ThreadID:    sess.ThreadID,
			Status:      sess.Status,
		})
	}
}

// messagesHandler wraps the transcript handler with observability
func (s *Server) messagesHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("cvcraft.api")
		ctx, span := tracer.Start(ctx, "api.conversation.messages")
		defer span.End()

		sessionID := r.URL.Query().Get("sessionId")
		if sessionID == "" {
			err := fmt.Errorf("missing session id")
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Session ID is required", "sessionId query parameter is required", http.StatusBadRequest)
			return
		}
		span.SetAttributes(attribute.String("session.id", sessionID))

		messages, err := s.Conversations.Transcript(ctx, sessionID)
		if err != nil {
			span.RecordError(err)
			writeErrorResponse(w, "Failed to fetch messages", err.Error(), statusForError(err))
			return
		}

		span.SetAttributes(attribute.Int("response.message_count", len(messages)))
		writeJSONResponse(w, span, map[string]any{"messages": messages})
	}
}

// sendMessageHandler wraps the conversation message handler with observability
func (s *Server) sendMessageHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("cvcraft.api")
		ctx, span := tracer.Start(ctx, "api.conversation.message")
		defer span.End()

		var req MessageRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		if strings.TrimSpace(req.SessionID) == "" {
			err := fmt.Errorf("missing session id")
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Session ID is required", "sessionId field is required", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			err := fmt.Errorf("missing message")
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Message is required", "message field is required", http.StatusBadRequest)
			return
		}
		if s.MaxRequestSize > 0 && len(req.Message) > int(s.MaxRequestSize/2) {
			err := fmt.Errorf("message too large: %d chars", len(req.Message))
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Message too large", fmt.Sprintf("message exceeds recommended size limit of %d characters", s.MaxRequestSize/2), http.StatusBadRequest)
			return
		}

		apiKey := s.resolveAssistantKey(req.APIKey)
		if apiKey == "" {
			err := fmt.Errorf("missing assistant API key")
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "API key is required", "provide apiKey in the request or configure one on the server", http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.String("session.id", req.SessionID),
			attribute.Int("request.message_length", len(req.Message)),
			attribute.String("operation", "message"),
		)

		// Track the assistant turn with observability and token usage
		metrics := om.GetMetrics()
		var result *conversation.MessageResult
		err := metrics.TrackAssistantTurn(ctx, "message", func(ctx context.Context) *observability.TurnOutcome {
			turnResult, turnErr := s.Conversations.SendMessage(ctx, req.SessionID, apiKey, req.Message)
			result = turnResult

			outcome := &observability.TurnOutcome{Error: turnErr}
			if turnResult != nil && turnResult.Usage != nil {
				outcome.TokenUsage = &observability.TokenUsage{
					InputTokens:  turnResult.Usage.InputTokens,
					OutputTokens: turnResult.Usage.OutputTokens,
					TotalTokens:  turnResult.Usage.TotalTokens,
				}
			}
			return outcome
		}, om)

		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "assistant_turn"))
			writeErrorResponse(w, "Failed to process message", err.Error(), statusForError(err))
			return
		}

		// CVData is only set on the turn that completed the conversation;
		// follow-up messages after completion carry Completed with no CV.
		if result.CVData != nil {
			metrics.RecordBusinessMetric(ctx, "conversation_completed", true,
				attribute.Int("cv.sections", len(result.CVData.Sections)))
		}

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Bool("conversation.completed", result.Completed),
			attribute.Int("response.message_count", len(result.Messages)),
		)

		writeJSONResponse(w, span, result)
	}
}

// generatePDFHandler wraps the PDF generation handler with observability.
// With an output directory configured the PDF is written to disk and a
// download URL is returned; otherwise the document streams back inline.
func (s *Server) generatePDFHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("cvcraft.api")
		ctx, span := tracer.Start(ctx, "api.cv.generate_pdf")
		defer span.End()

		var req GeneratePDFRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		if strings.TrimSpace(req.SessionID) == "" {
			err := fmt.Errorf("missing session id")
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Session ID is required", "sessionId field is required", http.StatusBadRequest)
			return
		}
		span.SetAttributes(attribute.String("session.id", req.SessionID))

		metrics := om.GetMetrics()

		sess, err := s.Conversations.GetSession(ctx, req.SessionID)
		if err != nil {
			span.RecordError(err)
			writeErrorResponse(w, "Session not found", err.Error(), statusForError(err))
			return
		}

		if sess.CVData == nil {
			err := apperrors.NewValidationError(apperrors.ErrCodeCVDataMissing,
				"CV data not found", nil)
			span.RecordError(err)
			metrics.RecordBusinessMetric(ctx, "pdf_generated", false)
			writeErrorResponse(w, "CV data not found", "complete the conversation before generating a PDF", http.StatusBadRequest)
			return
		}

		outputDir := s.AppConfig.Server.PDF.OutputDir
		if outputDir == "" {
			s.streamPDF(ctx, w, span, om, sess)
			return
		}

		fileName := fmt.Sprintf("cv_%s_%d.pdf", sess.SessionID, time.Now().UnixMilli())
		filePath := filepath.Join(outputDir, fileName)

		if err := s.writePDFFile(sess, filePath); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "render"))
			metrics.RecordBusinessMetric(ctx, "pdf_generated", false)
			writeErrorResponse(w, "Failed to generate PDF", err.Error(), http.StatusInternalServerError)
			return
		}

		metrics.RecordBusinessMetric(ctx, "pdf_generated", true,
			attribute.String("delivery", "stored"))
		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.String("pdf.file", fileName),
		)

		s.Logger.Info("PDF generated",
			"session_id", sess.SessionID,
			"path", filePath)

		writeJSONResponse(w, span, GeneratePDFResponse{
			Success: true,
			PDFURL:  s.pdfDownloadPath() + "/" + fileName,
		})
	}
}

// streamPDF renders the CV straight into the response body
func (s *Server) streamPDF(ctx context.Context, w http.ResponseWriter, span oteltrace.Span, om *observability.ObservabilityManager, sess *types.Session) {
	metrics := om.GetMetrics()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "cv_"+sess.SessionID+".pdf"))

	if err := s.Renderer.Render(sess.CVData, w); err != nil {
		// Headers are already out; all we can do is log and record.
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "render"))
		metrics.RecordBusinessMetric(ctx, "pdf_generated", false)
		s.Logger.LogError(err, "Failed to stream PDF", "session_id", sess.SessionID)
		return
	}

	metrics.RecordBusinessMetric(ctx, "pdf_generated", true,
		attribute.String("delivery", "inline"))
	span.SetAttributes(attribute.Bool("success", true))
}

// writePDFFile renders the session's CV into a file under the output directory
func (s *Server) writePDFFile(sess *types.Session, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return apperrors.NewIOError(apperrors.ErrCodeRenderFailed,
			"Failed to create PDF output directory", err)
	}

	f, err := os.Create(filePath)
	if err != nil {
		return apperrors.NewIOError(apperrors.ErrCodeRenderFailed,
			"Failed to create PDF file", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			s.Logger.Warn("Failed to close PDF file", "path", filePath, "error", cerr)
		}
	}()

	return s.Renderer.Render(sess.CVData, f)
}

// downloadPDFHandler serves previously generated PDFs from the output directory
func (s *Server) downloadPDFHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tracer := om.Tracer("cvcraft.api")
		_, span := tracer.Start(r.Context(), "api.cv.download")
		defer span.End()

		fileName := r.PathValue("filename")

		// Prevent directory traversal
		if strings.Contains(fileName, "..") || strings.ContainsAny(fileName, `/\`) {
			err := fmt.Errorf("invalid filename: %q", fileName)
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid filename", "filename must not contain path separators", http.StatusBadRequest)
			return
		}

		outputDir := s.AppConfig.Server.PDF.OutputDir
		if outputDir == "" {
			writeErrorResponse(w, "File not found", "PDF storage is not enabled on this server", http.StatusNotFound)
			return
		}

		filePath := filepath.Join(outputDir, fileName)
		f, err := os.Open(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				span.SetAttributes(attribute.String("error.type", "not_found"))
				writeErrorResponse(w, "File not found", "", http.StatusNotFound)
				return
			}
			span.RecordError(err)
			writeErrorResponse(w, "Failed to serve PDF", err.Error(), http.StatusInternalServerError)
			return
		}
		defer func() {
			if cerr := f.Close(); cerr != nil {
				s.Logger.Warn("Failed to close PDF file", "path", filePath, "error", cerr)
			}
		}()

		span.SetAttributes(attribute.String("pdf.file", fileName))

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
		http.ServeContent(w, r, fileName, time.Time{}, f)
	}
}

// statusForError maps application error codes to HTTP status codes
func statusForError(err error) int {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}

	switch appErr.Code {
	case apperrors.ErrCodeSessionNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeSessionNotInitialized, apperrors.ErrCodeInvalidRequest,
		apperrors.ErrCodeCVDataMissing, apperrors.ErrCodeMissingAPIKey:
		return http.StatusBadRequest
	case apperrors.ErrCodeTurnInFlight:
		return http.StatusConflict
	case apperrors.ErrCodeTurnTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// createRateLimitMiddleware adds observability to rate limiting
func (s *Server) createRateLimitMiddleware(om *observability.ObservabilityManager) func(http.HandlerFunc) http.HandlerFunc {
	originalMiddleware := s.rateLimitMiddleware()

	return func(next http.HandlerFunc) http.HandlerFunc {
		return originalMiddleware(func(w http.ResponseWriter, r *http.Request) {
			// Check if this request was rate limited by examining the response
			// We'll wrap the ResponseWriter to detect rate limit responses
			wrapper := &responseWrapper{ResponseWriter: w, statusCode: 200}

			next(wrapper, r)

			// If rate limited, record metric
			if wrapper.statusCode == http.StatusTooManyRequests {
				metrics := om.GetMetrics()
				metrics.RecordBusinessMetric(r.Context(), "rate_limit_hit", true,
					attribute.String("endpoint", r.URL.Path),
					attribute.String("method", r.Method))
			}
		})
	}
}

// responseWrapper wraps http.ResponseWriter to capture status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
