package dto

// ChatRequest is one user turn. SessionID is optional; a fresh session is
// started when it is empty.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message" binding:"required"`
}

// ChatResponse carries the assistant reply and the session to continue with.
type ChatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}
