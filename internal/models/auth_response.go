package models

// AuthResponse represents the response after signup or login
type AuthResponse struct {
	Token  string `json:"token"` // JWT token
	UserID string `json:"userId"`
}

// MessageResponse carries a plain confirmation message
type MessageResponse struct {
	Message string `json:"message"`
}
