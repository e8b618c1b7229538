package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huddle-app/huddle/backend/internal/events"
)

type historyResponsePayload struct {
	ID                uint      `json:"id"`
	EventID           uint      `json:"event_id"`
	Timestamp         time.Time `json:"timestamp"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	Location          string    `json:"location"`
	RecurrencePattern string    `json:"recurrence_pattern"`
	ChangedBy         uint      `json:"changed_by"`
}

func historyResponse(version events.EventHistory) historyResponsePayload {
	return historyResponsePayload{
		ID:                version.ID,
		EventID:           version.EventID,
		Timestamp:         version.Timestamp,
		Title:             version.Title,
		Description:       version.Description,
		StartTime:         version.StartTime,
		EndTime:           version.EndTime,
		Location:          version.Location,
		RecurrencePattern: version.RecurrencePattern,
		ChangedBy:         version.ChangedBy,
	}
}

func (h *httpHandler) handleChangelog(c *gin.Context) {
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

	changelog, err := h.events.Changelog(c.Request.Context(), actorID, eventID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	response := make([]historyResponsePayload, 0, len(changelog))
	for _, version := range changelog {
		response = append(response, historyResponse(version))
	}
	c.JSON(http.StatusOK, response)
}

func (h *httpHandler) handleGetVersion(c *gin.Context) {
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
	versionID, ok := pathID(c, "versionId")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_version_id"})
		return
	}

	version, err := h.events.Version(c.Request.Context(), actorID, eventID, versionID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, historyResponse(version))
}

func (h *httpHandler) handleRollback(c *gin.Context) {
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
	versionID, ok := pathID(c, "versionId")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_version_id"})
		return
	}

	event, err := h.events.Rollback(c.Request.Context(), actorID, eventID, versionID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, eventResponse(event))
}

func (h *httpHandler) handleDiff(c *gin.Context) {
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
	versionA, ok := pathID(c, "v1")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_version_id"})
		return
	}
	versionB, ok := pathID(c, "v2")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_version_id"})
		return
	}

	diff, err := h.events.Diff(c.Request.Context(), actorID, eventID, versionA, versionB)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, diff)
}

func (h *httpHandler) handleOccurrences(c *gin.Context) {
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

	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_from"})
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_to"})
		return
	}
	if to.Before(from) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_range"})
		return
	}

	occurrences, err := h.events.Occurrences(c.Request.Context(), actorID, eventID, from, to)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"event_id": eventID, "occurrences": occurrences})
}
