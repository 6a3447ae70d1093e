package dto

type CreateUserRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UserListResponse struct {
	Users []string `json:"users"`
}
