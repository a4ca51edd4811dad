package api

// TranslateRequest represents the request payload for one-shot translation
type TranslateRequest struct {
	Text    string `json:"text" validate:"required"`
	VoiceID string `json:"voice_id"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
