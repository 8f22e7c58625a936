package model

// Response shapes mirror the public wire contract: every auth endpoint
// answers {success, message} plus endpoint-specific fields.

type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type TokenResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
}

type ValidateResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	User    *ValidateUser `json:"user,omitempty"`
}

// ValidateUser is the trimmed principal returned by POST /login/validate.
type ValidateUser struct {
	Login string `json:"login"`
	Name  string `json:"name"`
}

// SessionResponse reports the current principal and how long the presented
// token remains valid.
type SessionResponse struct {
	Success       bool     `json:"success"`
	User          AuthUser `json:"user"`
	ExpiresInDays int64    `json:"expiresInDays"`
}

type PingResponse struct {
	Message string `json:"message"`
}

type RootResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
