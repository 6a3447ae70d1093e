package controllers

import (
	"net/http"

	"fota-manager/backend/app/dto"
	"fota-manager/backend/app/services"
)

type AdminController struct{ Users *services.UserService }

func NewAdminController(users *services.UserService) *AdminController {
	return &AdminController{Users: users}
}

func (c *AdminController) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := c.Users.AddUser(req.UserID, req.Password); err != nil {
		writeError(w, r, err)
		return
	}
	logf(r, "added user %s", req.UserID)
	writeJSON(w, http.StatusCreated, map[string]string{"user_id": req.UserID})
}

func (c *AdminController) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := c.Users.ListUsers()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.UserListResponse{Users: users})
}
