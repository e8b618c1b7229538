package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/huddle-app/huddle/backend/internal/auth"
	"github.com/huddle-app/huddle/backend/internal/users"
	"go.uber.org/zap"
)

type registerRequestPayload struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type userResponsePayload struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type loginRequestPayload struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponsePayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type refreshRequestPayload struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *httpHandler) handleRegister(c *gin.Context) {
	var request registerRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	user, err := h.users.Register(c.Request.Context(), users.RegistrationInput{
		Username: request.Username,
		Email:    request.Email,
		Password: request.Password,
	})
	if err != nil {
		if errors.Is(err, users.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "username_or_email_taken"})
			return
		}
		h.logger.Error("registration failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration_failed"})
		return
	}

	c.JSON(http.StatusOK, userResponsePayload{ID: user.ID, Username: user.Username, Email: user.Email})
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request loginRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), request.Username, request.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login_failed"})
		return
	}

	pair, err := h.tokens.IssueTokens(strconv.FormatUint(uint64(user.ID), 10))
	if err != nil {
		h.logger.Error("failed to issue tokens", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	c.JSON(http.StatusOK, tokenResponsePayload{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    pair.ExpiresIn,
	})
}

func (h *httpHandler) handleRefresh(c *gin.Context) {
	var request refreshRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	validated, err := h.tokens.ValidateRefreshToken(request.RefreshToken)
	if err != nil {
		h.logger.Warn("refresh token validation failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_refresh_token"})
		return
	}

	revoked, err := h.denylist.IsRevoked(c.Request.Context(), validated.ID)
	if err != nil {
		h.logger.Error("denylist lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "denylist_unavailable"})
		return
	}
	if revoked {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token_revoked"})
		return
	}

	access, expiresIn, err := h.tokens.IssueAccessToken(validated.Subject)
	if err != nil {
		h.logger.Error("failed to issue access token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	c.JSON(http.StatusOK, tokenResponsePayload{
		AccessToken: access,
		TokenType:   "bearer",
		ExpiresIn:   expiresIn,
	})
}

func (h *httpHandler) handleLogout(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}

	validated, err := h.tokens.ValidateAccessToken(token)
	if err != nil {
		h.logger.Warn("logout token validation failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	err = h.denylist.Revoke(c.Request.Context(), validated.ID, validated.Subject, validated.ExpiresAt)
	if errors.Is(err, auth.ErrTokenRevoked) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "already_logged_out"})
		return
	}
	if err != nil {
		h.logger.Error("token revocation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
