package model

// AuthUser is the authenticated principal attached to the request context.
type AuthUser struct {
	ID    int64    `json:"id"`
	Login string   `json:"login"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type ValidateRequest struct {
	Token string `json:"token"`
}
