// Package dto defines the JSON request and response bodies of the HTTP API.
package dto

// CredentialsRequest is the body of POST /register and POST /login.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProcessURLRequest is the body of POST /process_url.
type ProcessURLRequest struct {
	URL string `json:"url"`
}

// ProcessURLResponse is returned once a website has been turned into a context.
type ProcessURLResponse struct {
	Message         string `json:"message"`
	APIKey          string `json:"api_key"`
	IntegrationCode string `json:"integration_code"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Input  string `json:"input"`
	APIKey string `json:"api_key"`
}

// ChatResponse carries the assistant's reply.
type ChatResponse struct {
	Response string `json:"response"`
}

// APIKeysResponse lists a user's keys in issue order.
type APIKeysResponse struct {
	APIKeys []string `json:"api_keys"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
