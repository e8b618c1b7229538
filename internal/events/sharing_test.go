package events

import (
	"context"
	"errors"
	"testing"
)

const carolID uint = 3

func TestShareGrantsAndUpgradesRoles(t *testing.T) {
	service, _ := newTestService(t)
	event := mustCreate(t, service, aliceID, standupFields())

	granted, err := service.Share(context.Background(), aliceID, event.ID, []ShareEntry{
		{UserID: bobID, Role: RoleViewer},
		{UserID: carolID, Role: RoleEditor},
	})
	if err != nil {
		t.Fatalf("share failed: %v", err)
	}
	if len(granted) != 2 {
		t.Fatalf("expected two permissions, got %d", len(granted))
	}
	if granted[0].UserID != bobID || granted[0].Role != RoleViewer {
		t.Fatalf("results must follow input order, got %#v", granted[0])
	}
	if granted[1].UserID != carolID || granted[1].Role != RoleEditor {
		t.Fatalf("results must follow input order, got %#v", granted[1])
	}

	// Sharing again with a different role overwrites instead of duplicating.
	regraded, err := service.Share(context.Background(), aliceID, event.ID, []ShareEntry{
		{UserID: bobID, Role: RoleEditor},
	})
	if err != nil {
		t.Fatalf("re-share failed: %v", err)
	}
	if regraded[0].Role != RoleEditor {
		t.Fatalf("expected role upgrade to Editor, got %q", regraded[0].Role)
	}

	listed, err := service.ListPermissions(context.Background(), aliceID, event.ID)
	if err != nil {
		t.Fatalf("list permissions failed: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected owner plus two grants, got %d rows", len(listed))
	}
}

func TestShareRequiresOwner(t *testing.T) {
	service, _ := newTestService(t)
	event := mustCreate(t, service, aliceID, standupFields())
	mustGrant(t, service, aliceID, event.ID, bobID, RoleEditor)

	_, err := service.Share(context.Background(), bobID, event.ID, []ShareEntry{
		{UserID: carolID, Role: RoleViewer},
	})
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected access denied for editor share, got %v", err)
	}
}

func TestListPermissionsRequiresAnyRole(t *testing.T) {
	service, _ := newTestService(t)
	event := mustCreate(t, service, aliceID, standupFields())

	_, err := service.ListPermissions(context.Background(), bobID, event.ID)
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected access denied, got %v", err)
	}

	mustGrant(t, service, aliceID, event.ID, bobID, RoleViewer)
	if _, err := service.ListPermissions(context.Background(), bobID, event.ID); err != nil {
		t.Fatalf("viewer must be able to list permissions: %v", err)
	}
}

func TestUpdatePermission(t *testing.T) {
	service, _ := newTestService(t)
	event := mustCreate(t, service, aliceID, standupFields())
	mustGrant(t, service, aliceID, event.ID, bobID, RoleViewer)

	permission, err := service.UpdatePermission(context.Background(), aliceID, event.ID, bobID, RoleEditor)
	if err != nil {
		t.Fatalf("update permission failed: %v", err)
	}
	if permission.Role != RoleEditor {
		t.Fatalf("expected Editor, got %q", permission.Role)
	}

	// Non-owner cannot manage permissions even as Editor.
	_, err = service.UpdatePermission(context.Background(), bobID, event.ID, bobID, RoleOwner)
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected access denied, got %v", err)
	}

	// Missing target pair reads as not found.
	_, err = service.UpdatePermission(context.Background(), aliceID, event.ID, carolID, RoleViewer)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRemovePermissionRevokesAccess(t *testing.T) {
	service, _ := newTestService(t)
	event := mustCreate(t, service, aliceID, standupFields())
	mustGrant(t, service, aliceID, event.ID, bobID, RoleEditor)

	if err := service.RemovePermission(context.Background(), aliceID, event.ID, bobID); err != nil {
		t.Fatalf("remove permission failed: %v", err)
	}

	// Every authorized operation now denies bob.
	if _, err := service.Get(context.Background(), bobID, event.ID); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected access denied after revocation, got %v", err)
	}

	// Removing again reads as not found.
	if err := service.RemovePermission(context.Background(), aliceID, event.ID, bobID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on double revoke, got %v", err)
	}
}
