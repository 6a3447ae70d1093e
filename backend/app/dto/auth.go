package dto

type LoginRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	IsAdmin     bool   `json:"is_admin"`
	ExpiresIn   int    `json:"expires_in,omitempty"`
}

type SessionLogsResponse struct {
	UserID string   `json:"user_id"`
	Logs   []string `json:"logs"`
}
