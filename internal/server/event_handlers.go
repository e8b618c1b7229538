package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huddle-app/huddle/backend/internal/events"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

type eventRequestPayload struct {
	Title             string    `json:"title" binding:"required"`
	Description       string    `json:"description"`
	StartTime         time.Time `json:"start_time" binding:"required"`
	EndTime           time.Time `json:"end_time" binding:"required"`
	Location          string    `json:"location"`
	IsRecurring       bool      `json:"is_recurring"`
	RecurrencePattern string    `json:"recurrence_pattern"`
}

type eventResponsePayload struct {
	ID                uint      `json:"id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	Location          string    `json:"location"`
	IsRecurring       bool      `json:"is_recurring"`
	RecurrencePattern string    `json:"recurrence_pattern"`
	CreatedAt         time.Time `json:"created_at"`
	CreatorID         uint      `json:"creator_id"`
}

type shareEntryPayload struct {
	UserID uint   `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

type permissionResponsePayload struct {
	UserID  uint   `json:"user_id"`
	EventID uint   `json:"event_id"`
	Role    string `json:"role"`
}

func (p eventRequestPayload) fields() events.EventFields {
	return events.EventFields{
		Title:             p.Title,
		Description:       p.Description,
		StartTime:         p.StartTime,
		EndTime:           p.EndTime,
		Location:          p.Location,
		IsRecurring:       p.IsRecurring,
		RecurrencePattern: p.RecurrencePattern,
	}
}

func eventResponse(event events.Event) eventResponsePayload {
	return eventResponsePayload{
		ID:                event.ID,
		Title:             event.Title,
		Description:       event.Description,
		StartTime:         event.StartTime,
		EndTime:           event.EndTime,
		Location:          event.Location,
		IsRecurring:       event.IsRecurring,
		RecurrencePattern: event.RecurrencePattern,
		CreatedAt:         event.CreatedAt,
		CreatorID:         event.CreatorID,
	}
}

func permissionResponse(permission events.Permission) permissionResponsePayload {
	return permissionResponsePayload{
		UserID:  permission.UserID,
		EventID: permission.EventID,
		Role:    permission.Role.String(),
	}
}

func (h *httpHandler) handleCreateEvent(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var request eventRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	event, err := h.events.Create(c.Request.Context(), actorID, request.fields())
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, eventResponse(event))
}

func (h *httpHandler) handleListEvents(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageLimit)))
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > maxPageLimit {
		limit = defaultPageLimit
	}

	listed, err := h.events.List(c.Request.Context(), actorID, skip, limit)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	response := make([]eventResponsePayload, 0, len(listed))
	for _, event := range listed {
		response = append(response, eventResponse(event))
	}
	c.JSON(http.StatusOK, response)
}

func (h *httpHandler) handleGetEvent(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_event_id"})
		return
	}

	event, err := h.events.Get(c.Request.Context(), actorID, eventID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, eventResponse(event))
}

func (h *httpHandler) handleUpdateEvent(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_event_id"})
		return
	}

	var request eventRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	event, err := h.events.Update(c.Request.Context(), actorID, eventID, request.fields())
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, eventResponse(event))
}

func (h *httpHandler) handleDeleteEvent(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_event_id"})
		return
	}

	if err := h.events.Delete(c.Request.Context(), actorID, eventID); err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleBatchCreate(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var request []eventRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || len(request) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	items := make([]events.EventFields, 0, len(request))
	for _, payload := range request {
		items = append(items, payload.fields())
	}

	created, err := h.events.BatchCreate(c.Request.Context(), actorID, items)
	if err != nil {
		// Earlier items are already committed; the response reflects
		// the documented partial-success contract.
		h.respondServiceError(c, err)
		return
	}

	response := make([]eventResponsePayload, 0, len(created))
	for _, event := range created {
		response = append(response, eventResponse(event))
	}
	c.JSON(http.StatusOK, response)
}

func (h *httpHandler) handleShareEvent(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_event_id"})
		return
	}

	var request []shareEntryPayload
	if err := c.ShouldBindJSON(&request); err != nil || len(request) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	entries := make([]events.ShareEntry, 0, len(request))
	for _, payload := range request {
		role, err := events.ParseRole(payload.Role)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_role"})
			return
		}
		entries = append(entries, events.ShareEntry{UserID: payload.UserID, Role: role})
	}

	granted, err := h.events.Share(c.Request.Context(), actorID, eventID, entries)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	response := make([]permissionResponsePayload, 0, len(granted))
	for _, permission := range granted {
		response = append(response, permissionResponse(permission))
	}
	c.JSON(http.StatusOK, response)
}

func (h *httpHandler) handleListPermissions(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_event_id"})
		return
	}

	listed, err := h.events.ListPermissions(c.Request.Context(), actorID, eventID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	response := make([]permissionResponsePayload, 0, len(listed))
	for _, permission := range listed {
		response = append(response, permissionResponse(permission))
	}
	c.JSON(http.StatusOK, response)
}

func (h *httpHandler) handleUpdatePermission(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_event_id"})
		return
	}
	targetUserID, ok := pathID(c, "userId")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_user_id"})
		return
	}

	var request struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	role, err := events.ParseRole(request.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_role"})
		return
	}

	permission, err := h.events.UpdatePermission(c.Request.Context(), actorID, eventID, targetUserID, role)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, permissionResponse(permission))
}

func (h *httpHandler) handleRemovePermission(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_event_id"})
		return
	}
	targetUserID, ok := pathID(c, "userId")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_user_id"})
		return
	}

	if err := h.events.RemovePermission(c.Request.Context(), actorID, eventID, targetUserID); err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
