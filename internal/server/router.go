package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/huddle-app/huddle/backend/internal/auth"
	"github.com/huddle-app/huddle/backend/internal/events"
	"github.com/huddle-app/huddle/backend/internal/users"
	"go.uber.org/zap"
)

const userIDContextKey = "huddle_user_id"

var (
	errMissingTokenIssuer   = errors.New("token issuer dependency required")
	errMissingDenylist      = errors.New("token denylist dependency required")
	errMissingUsersService  = errors.New("users service dependency required")
	errMissingEventsService = errors.New("events service dependency required")
	errInvalidAuthorization = errors.New("authorization header missing or invalid")
)

// Dependencies wires the HTTP layer to the underlying services.
type Dependencies struct {
	TokenIssuer   *auth.TokenIssuer
	Denylist      *auth.Denylist
	UsersService  *users.Service
	EventsService *events.Service
	Logger        *zap.Logger
}

// NewHTTPHandler builds the gin router for the API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TokenIssuer == nil {
		return nil, errMissingTokenIssuer
	}
	if deps.Denylist == nil {
		return nil, errMissingDenylist
	}
	if deps.UsersService == nil {
		return nil, errMissingUsersService
	}
	if deps.EventsService == nil {
		return nil, errMissingEventsService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		tokens:   deps.TokenIssuer,
		denylist: deps.Denylist,
		users:    deps.UsersService,
		events:   deps.EventsService,
		logger:   logger,
	}

	router.GET("/", handler.handleRoot)

	authGroup := router.Group("/api/auth")
	authGroup.POST("/register", handler.handleRegister)
	authGroup.POST("/login", handler.handleLogin)
	authGroup.POST("/refresh", handler.handleRefresh)
	authGroup.POST("/logout", handler.handleLogout)

	protected := router.Group("/api/events")
	protected.Use(handler.authorizeRequest)
	protected.POST("", handler.handleCreateEvent)
	protected.GET("", handler.handleListEvents)
	protected.POST("/batch", handler.handleBatchCreate)
	protected.GET("/:id", handler.handleGetEvent)
	protected.PUT("/:id", handler.handleUpdateEvent)
	protected.DELETE("/:id", handler.handleDeleteEvent)
	protected.POST("/:id/share", handler.handleShareEvent)
	protected.GET("/:id/permissions", handler.handleListPermissions)
	protected.PUT("/:id/permissions/:userId", handler.handleUpdatePermission)
	protected.DELETE("/:id/permissions/:userId", handler.handleRemovePermission)
	protected.GET("/:id/changelog", handler.handleChangelog)
	protected.GET("/:id/history/:versionId", handler.handleGetVersion)
	protected.POST("/:id/rollback/:versionId", handler.handleRollback)
	protected.GET("/:id/diff/:v1/:v2", handler.handleDiff)
	protected.GET("/:id/occurrences", handler.handleOccurrences)

	return router, nil
}

type httpHandler struct {
	tokens   *auth.TokenIssuer
	denylist *auth.Denylist
	users    *users.Service
	events   *events.Service
	logger   *zap.Logger
}

func (h *httpHandler) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Huddle event management API"})
}

// authorizeRequest validates the bearer token, rejects revoked tokens
// and resolves the caller's user id into the request context.
func (h *httpHandler) authorizeRequest(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}

	validated, err := h.tokens.ValidateAccessToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	revoked, err := h.denylist.IsRevoked(c.Request.Context(), validated.ID)
	if err != nil {
		h.logger.Error("denylist lookup failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "denylist_unavailable"})
		return
	}
	if revoked {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token_revoked"})
		return
	}

	userID, err := strconv.ParseUint(validated.Subject, 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	c.Set(userIDContextKey, uint(userID))
	c.Next()
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func currentUserID(c *gin.Context) (uint, bool) {
	value, exists := c.Get(userIDContextKey)
	if !exists {
		return 0, false
	}
	userID, ok := value.(uint)
	return userID, ok
}

// respondServiceError translates service failure kinds onto HTTP
// status codes, carrying the dotted service error code through.
func (h *httpHandler) respondServiceError(c *gin.Context, err error) {
	payload := gin.H{"error": "internal_error"}
	var serviceErr *events.ServiceError
	if errors.As(err, &serviceErr) {
		payload["code"] = serviceErr.Code()
	}

	switch {
	case errors.Is(err, events.ErrAccessDenied):
		payload["error"] = "access_denied"
		c.JSON(http.StatusForbidden, payload)
	case errors.Is(err, events.ErrNotFound):
		payload["error"] = "not_found"
		c.JSON(http.StatusNotFound, payload)
	case errors.Is(err, events.ErrInvalidInput):
		payload["error"] = "invalid_request"
		c.JSON(http.StatusBadRequest, payload)
	default:
		h.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, payload)
	}
}

func pathID(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(value), true
}
