package events

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const (
	aliceID uint = 1
	bobID   uint = 2
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:huddle_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Event{}, &Permission{}, &EventHistory{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	clock := func() time.Time { return time.Unix(1700000600, 0).UTC() }
	service, err := NewService(ServiceConfig{Database: db, Clock: clock})
	if err != nil {
		t.Fatalf("failed to construct events service: %v", err)
	}

	return service, db
}

func standupFields() EventFields {
	return EventFields{
		Title:     "Standup",
		StartTime: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
	}
}

func mustCreate(t *testing.T, service *Service, creatorID uint, fields EventFields) Event {
	t.Helper()
	event, err := service.Create(context.Background(), creatorID, fields)
	if err != nil {
		t.Fatalf("failed to create event: %v", err)
	}
	return event
}

func mustGrant(t *testing.T, service *Service, ownerID, eventID, userID uint, role Role) {
	t.Helper()
	if _, err := service.Share(context.Background(), ownerID, eventID, []ShareEntry{{UserID: userID, Role: role}}); err != nil {
		t.Fatalf("failed to share event: %v", err)
	}
}

func TestCreateAssignsOwnerPermission(t *testing.T) {
	service, db := newTestService(t)

	event := mustCreate(t, service, aliceID, standupFields())
	if event.CreatorID != aliceID {
		t.Fatalf("expected creator id %d, got %d", aliceID, event.CreatorID)
	}

	role, err := service.roleOf(context.Background(), aliceID, event.ID)
	if err != nil {
		t.Fatalf("failed to resolve role: %v", err)
	}
	if role != RoleOwner {
		t.Fatalf("expected creator to be Owner, got %q", role)
	}

	var count int64
	if err := db.Model(&Permission{}).Where("event_id = ?", event.ID).Count(&count).Error; err != nil {
		t.Fatalf("failed to count permissions: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one permission row, got %d", count)
	}
}

func TestGetDeniesBeforeRevealingExistence(t *testing.T) {
	service, _ := newTestService(t)
	event := mustCreate(t, service, aliceID, standupFields())

	// Bob holds no permission; the event exists, yet he must see an
	// access denial rather than learn anything about the event.
	_, err := service.Get(context.Background(), bobID, event.ID)
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected access denied, got %v", err)
	}

	// Same denial for an event id that does not exist at all.
	_, err = service.Get(context.Background(), bobID, event.ID+100)
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected access denied for unknown event, got %v", err)
	}
}

func TestGetReportsMissingEventForPermittedActor(t *testing.T) {
	service, db := newTestService(t)

	// A permission row pointing at a vanished event surfaces not found.
	orphan := Permission{UserID: aliceID, EventID: 999, Role: RoleViewer}
	if err := db.Create(&orphan).Error; err != nil {
		t.Fatalf("failed to seed permission: %v", err)
	}

	_, err := service.Get(context.Background(), aliceID, 999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateSnapshotsPreImage(t *testing.T) {
	service, db := newTestService(t)
	event := mustCreate(t, service, aliceID, standupFields())

	updated := standupFields()
	updated.Title = "Standup v2"
	result, err := service.Update(context.Background(), aliceID, event.ID, updated)
	if err != nil {
		t.Fatalf("failed to update event: %v", err)
	}
	if result.Title != "Standup v2" {
		t.Fatalf("expected updated title, got %q", result.Title)
	}

	var history []EventHistory
	if err := db.Where("event_id = ?", event.ID).Find(&history).Error; err != nil {
		t.Fatalf("failed to load history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected one history row, got %d", len(history))
	}
	if history[0].Title != "Standup" {
		t.Fatalf("history must capture the pre-image title, got %q", history[0].Title)
	}
	if history[0].ChangedBy != aliceID {
		t.Fatalf("expected changed_by %d, got %d", aliceID, history[0].ChangedBy)
	}
}

func TestUpdateReplacesEveryField(t *testing.T) {
	service, _ := newTestService(t)
	fields := standupFields()
	fields.Description = "daily sync"
	fields.Location = "room 1"
	fields.IsRecurring = true
	fields.RecurrencePattern = "FREQ=DAILY"
	event := mustCreate(t, service, aliceID, fields)

	replacement := EventFields{
		Title:     "Planning",
		StartTime: time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 2, 1, 11, 0, 0, 0, time.UTC),
	}
	result, err := service.Update(context.Background(), aliceID, event.ID, replacement)
	if err != nil {
		t.Fatalf("failed to update event: %v", err)
	}

	if result.Description != "" || result.Location != "" || result.IsRecurring || result.RecurrencePattern != "" {
		t.Fatalf("update must replace all fields, got %#v", result)
	}
	if result.CreatorID != aliceID {
		t.Fatalf("creator must survive updates, got %d", result.CreatorID)
	}
}

func TestUpdateDeniedForViewer(t *testing.T) {
	service, db := newTestService(t)
	event := mustCreate(t, service, aliceID, standupFields())
	mustGrant(t, service, aliceID, event.ID, bobID, RoleViewer)

	_, err := service.Update(context.Background(), bobID, event.ID, standupFields())
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected access denied for viewer, got %v", err)
	}

	var count int64
	if err := db.Model(&EventHistory{}).Where("event_id = ?", event.ID).Count(&count).Error; err != nil {
		t.Fatalf("failed to count history: %v", err)
	}
	if count != 0 {
		t.Fatalf("denied update must not write history, got %d rows", count)
	}
}

func TestUpdateAllowedForEditor(t *testing.T) {
	service, _ := newTestService(t)
	event := mustCreate(t, service, aliceID, standupFields())
	mustGrant(t, service, aliceID, event.ID, bobID, RoleEditor)

	fields := standupFields()
	fields.Title = "Edited by Bob"
	result, err := service.Update(context.Background(), bobID, event.ID, fields)
	if err != nil {
		t.Fatalf("editor update failed: %v", err)
	}
	if result.Title != "Edited by Bob" {
		t.Fatalf("unexpected title %q", result.Title)
	}
}

func TestDeleteCascades(t *testing.T) {
	service, db := newTestService(t)
	event := mustCreate(t, service, aliceID, standupFields())
	mustGrant(t, service, aliceID, event.ID, bobID, RoleEditor)

	fields := standupFields()
	fields.Title = "v2"
	if _, err := service.Update(context.Background(), aliceID, event.ID, fields); err != nil {
		t.Fatalf("failed to update event: %v", err)
	}

	// Editors cannot delete.
	if err := service.Delete(context.Background(), bobID, event.ID); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected access denied for editor delete, got %v", err)
	}

	if err := service.Delete(context.Background(), aliceID, event.ID); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}

	for _, model := range []interface{}{&Event{}, &Permission{}, &EventHistory{}} {
		var count int64
		if err := db.Model(model).Count(&count).Error; err != nil {
			t.Fatalf("failed to count rows: %v", err)
		}
		if count != 0 {
			t.Fatalf("expected no rows after cascade for %T, got %d", model, count)
		}
	}
}

func TestBatchCreateAssignsOwnership(t *testing.T) {
	service, _ := newTestService(t)

	first := standupFields()
	second := standupFields()
	second.Title = "Retro"

	created, err := service.BatchCreate(context.Background(), aliceID, []EventFields{first, second})
	if err != nil {
		t.Fatalf("batch create failed: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected two events, got %d", len(created))
	}

	for _, event := range created {
		role, err := service.roleOf(context.Background(), aliceID, event.ID)
		if err != nil {
			t.Fatalf("failed to resolve role: %v", err)
		}
		if role != RoleOwner {
			t.Fatalf("expected Owner on event %d, got %q", event.ID, role)
		}
	}
}

func TestListReturnsOnlyAccessibleEvents(t *testing.T) {
	service, _ := newTestService(t)

	mine := mustCreate(t, service, aliceID, standupFields())
	theirs := mustCreate(t, service, bobID, standupFields())
	shared := mustCreate(t, service, bobID, standupFields())
	mustGrant(t, service, bobID, shared.ID, aliceID, RoleViewer)

	listed, err := service.List(context.Background(), aliceID, 0, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected two accessible events, got %d", len(listed))
	}
	seen := map[uint]bool{}
	for _, event := range listed {
		seen[event.ID] = true
	}
	if seen[theirs.ID] {
		t.Fatalf("event %d must not be visible to alice", theirs.ID)
	}
	if !seen[mine.ID] || !seen[shared.ID] {
		t.Fatalf("expected events %d and %d, got %v", mine.ID, shared.ID, seen)
	}
}

func TestListPaginates(t *testing.T) {
	service, _ := newTestService(t)

	for i := 0; i < 5; i++ {
		fields := standupFields()
		fields.Title = fmt.Sprintf("Event %d", i)
		mustCreate(t, service, aliceID, fields)
	}

	page, err := service.List(context.Background(), aliceID, 2, 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected page of 2, got %d", len(page))
	}
}
