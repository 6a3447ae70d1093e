package controllers

import (
	"net/http"

	"fota-manager/backend/app/dto"
	jwtutil "fota-manager/backend/app/jwt"
	"fota-manager/backend/app/middleware"
	"fota-manager/backend/app/services"
	"fota-manager/backend/global"
)

type AuthController struct {
	Users    *services.UserService
	Sessions *services.SessionService
	Signer   *jwtutil.Signer
}

func NewAuthController(users *services.UserService, sessions *services.SessionService, signer *jwtutil.Signer) *AuthController {
	return &AuthController{Users: users, Sessions: sessions, Signer: signer}
}

func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	isAdmin, err := c.Users.Verify(req.UserID, req.Password)
	if err != nil {
		global.Logger.Warn().Str("user", req.UserID).Msg("login rejected")
		writeError(w, r, err)
		return
	}
	sess := c.Sessions.Create(r.Context(), req.UserID, isAdmin)
	token, err := c.Signer.Sign(sess.ID, sess.UserID, sess.IsAdmin)
	if err != nil {
		c.Sessions.Destroy(r.Context(), sess.ID)
		writeJSONError(w, http.StatusInternalServerError, "token error")
		return
	}
	global.Logger.Info().Str("user", req.UserID).Bool("admin", isAdmin).Msg("login")
	writeJSON(w, http.StatusOK, dto.TokenResponse{AccessToken: token, IsAdmin: isAdmin, ExpiresIn: c.Signer.ExpMin * 60})
}

func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())
	if sess == nil {
		writeJSONError(w, http.StatusUnauthorized, "no session")
		return
	}
	c.Sessions.Destroy(r.Context(), sess.ID)
	global.Logger.Info().Str("user", sess.UserID).Msg("logout")
	w.WriteHeader(http.StatusNoContent)
}

func (c *AuthController) Logs(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())
	if sess == nil {
		writeJSONError(w, http.StatusUnauthorized, "no session")
		return
	}
	writeJSON(w, http.StatusOK, dto.SessionLogsResponse{UserID: sess.UserID, Logs: sess.Logs()})
}
