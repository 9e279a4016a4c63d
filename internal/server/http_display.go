package server

import "fmt"

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayEndpoints()
	s.displayAuthInfo()
	s.displayPDFInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

// displayEndpoints shows available API endpoints
func (s *Server) displayEndpoints() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET  /health                              - Health check")
	fmt.Println("  GET  /stats                               - Server statistics")
	fmt.Println("  POST /api/session/create                  - Create a CV session (requires API key)")
	fmt.Println("  GET  /api/session                         - Fetch session state (requires API key)")
	fmt.Println("  POST /api/conversation/start              - Start the assistant conversation (requires API key)")
	fmt.Println("  GET  /api/conversation/messages           - Fetch the conversation transcript (requires API key)")
	fmt.Println("  POST /api/conversation/message            - Send a message to the assistant (requires API key)")
	fmt.Println("  POST /api/cv/generate-pdf                 - Render the completed CV as PDF (requires API key)")
	fmt.Printf("  GET  %s/{filename} - Download a generated PDF\n", s.pdfDownloadPath())
}

// displayAuthInfo shows authentication configuration
func (s *Server) displayAuthInfo() {
	if len(s.APIKeys) > 0 {
		fmt.Printf("API authentication: ENABLED (%d keys configured)\n", len(s.APIKeys))
		fmt.Println("Include 'X-API-Key: <your-key>' header in requests to /api endpoints")
	} else {
		fmt.Println("API authentication: DISABLED (no API keys configured)")
		fmt.Println("WARNING: API endpoints are publicly accessible!")
	}
}

// displayPDFInfo shows how generated PDFs are delivered
func (s *Server) displayPDFInfo() {
	if dir := s.AppConfig.Server.PDF.OutputDir; dir != "" {
		fmt.Printf("PDF delivery: stored in %s, served from %s\n", dir, s.pdfDownloadPath())
	} else {
		fmt.Println("PDF delivery: streamed inline (no output directory configured)")
	}
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Println("Request size limit: DISABLED")
		fmt.Println("WARNING: No request size limits configured!")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.ByAPIKey {
			fmt.Println("  - Per API key rate limiting enabled")
		}
		if s.RateLimit.ByIP {
			fmt.Println("  - Per IP address rate limiting enabled")
		}
	} else {
		fmt.Println("Rate limiting: DISABLED")
		fmt.Println("WARNING: No rate limiting configured!")
	}
}
