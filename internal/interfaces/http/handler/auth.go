package handler

import (
	"github.com/distribuidora/backend/internal/application/identity"
	domain "github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

type loginBody struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,max=72"`
}

type refreshBody struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type passwordBody struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}

// AuthHandler serves /auth: login and refresh are public, the rest need an
// access token
type AuthHandler struct {
	BaseHandler
	auth *identity.AuthService
}

func NewAuthHandler(auth *identity.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login godoc
// @ID           login
// @Summary      Sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body loginBody true "Credentials"
// @Success      200 {object} dto.Response{data=identity.LoginResult}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      429 {object} dto.Response
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginBody
	if !h.bindJSON(c, &body) {
		return
	}
	h.reply(c)(h.auth.Login(c.Request.Context(), identity.LoginInput{
		Username: body.Username,
		Password: body.Password,
		IP:       c.ClientIP(),
	}))
}

// RefreshToken godoc
// @ID           refreshToken
// @Summary      Rotate the token pair
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body refreshBody true "Refresh token"
// @Success      200 {object} dto.Response{data=identity.RefreshTokenResult}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Router       /auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var body refreshBody
	if !h.bindJSON(c, &body) {
		return
	}
	h.reply(c)(h.auth.RefreshToken(c.Request.Context(), identity.RefreshTokenInput{RefreshToken: body.RefreshToken}))
}

// Logout revokes the access token that authenticated this request.
// @ID           logout
// @Summary      Revoke the current access token
// @Tags         auth
// @Produce      json
// @Success      204
// @Failure      401 {object} dto.Response
// @Security     BearerAuth
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	h.done(c, h.auth.Logout(c.Request.Context(), identity.LogoutInput{Claims: claims}))
}

// GetCurrentUser godoc
// @ID           getCurrentUser
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Success      200 {object} dto.Response{data=identity.UserInfo}
// @Failure      401 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /auth/me [get]
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	if actor, ok := h.actor(c); ok {
		h.reply(c)(h.auth.GetCurrentUser(c.Request.Context(), actor.UserID))
	}
}

// ChangePassword godoc
// @ID           changePassword
// @Summary      Change own password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body passwordBody true "Old and new password"
// @Success      204
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Security     BearerAuth
// @Router       /auth/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var body passwordBody
	if !h.bindJSON(c, &body) {
		return
	}
	h.done(c, h.auth.ChangePassword(c.Request.Context(), identity.ChangePasswordInput{
		UserID:      actor.UserID,
		OldPassword: body.OldPassword,
		NewPassword: body.NewPassword,
	}))
}

func (h *AuthHandler) actor(c *gin.Context) (domain.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
	}
	return actor, ok
}
