package events

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Role enumerates the privilege levels a user can hold on an event,
// in descending order of access.
type Role string

const (
	RoleOwner  Role = "Owner"
	RoleEditor Role = "Editor"
	RoleViewer Role = "Viewer"
)

// ErrInvalidRole indicates a role value outside the known set.
var ErrInvalidRole = errors.New("events: invalid role")

// ParseRole validates raw input and returns the canonical Role.
func ParseRole(rawInput string) (Role, error) {
	switch strings.TrimSpace(rawInput) {
	case string(RoleOwner):
		return RoleOwner, nil
	case string(RoleEditor):
		return RoleEditor, nil
	case string(RoleViewer):
		return RoleViewer, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, rawInput)
	}
}

// String returns the canonical role name.
func (r Role) String() string {
	return string(r)
}

// Operation enumerates the actions gated by the access policy.
type Operation string

const (
	OperationRead              Operation = "read"
	OperationUpdate            Operation = "update"
	OperationDelete            Operation = "delete"
	OperationShare             Operation = "share"
	OperationManagePermissions Operation = "manage_permissions"
)

// Event is the canonical mutable calendar record.
type Event struct {
	ID                uint      `gorm:"column:id;primaryKey"`
	Title             string    `gorm:"column:title;not null"`
	Description       string    `gorm:"column:description;type:text"`
	StartTime         time.Time `gorm:"column:start_time;not null"`
	EndTime           time.Time `gorm:"column:end_time;not null"`
	Location          string    `gorm:"column:location"`
	IsRecurring       bool      `gorm:"column:is_recurring;not null;default:false"`
	RecurrencePattern string    `gorm:"column:recurrence_pattern"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	CreatorID         uint      `gorm:"column:creator_id;not null;index"`
}

// TableName provides the explicit table binding for GORM.
func (Event) TableName() string {
	return "events"
}

// Permission assigns a single role to a user on an event. At most one
// row exists per (user, event) pair.
type Permission struct {
	ID      uint `gorm:"column:id;primaryKey"`
	UserID  uint `gorm:"column:user_id;not null;uniqueIndex:idx_permissions_user_event,priority:1"`
	EventID uint `gorm:"column:event_id;not null;uniqueIndex:idx_permissions_user_event,priority:2;index"`
	Role    Role `gorm:"column:role;size:16;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Permission) TableName() string {
	return "permissions"
}

// EventHistory is an immutable snapshot of an event's editable fields
// taken immediately before a mutation (the pre-image). Rows are
// append-only per event and never rewritten.
type EventHistory struct {
	ID                uint      `gorm:"column:id;primaryKey"`
	EventID           uint      `gorm:"column:event_id;not null;index:idx_histories_event_time,priority:1"`
	Timestamp         time.Time `gorm:"column:timestamp;not null;index:idx_histories_event_time,priority:2"`
	Title             string    `gorm:"column:title"`
	Description       string    `gorm:"column:description;type:text"`
	StartTime         time.Time `gorm:"column:start_time"`
	EndTime           time.Time `gorm:"column:end_time"`
	Location          string    `gorm:"column:location"`
	RecurrencePattern string    `gorm:"column:recurrence_pattern"`
	ChangedBy         uint      `gorm:"column:changed_by;not null"`
}

// TableName provides the explicit table binding for GORM.
func (EventHistory) TableName() string {
	return "event_histories"
}

// EventFields carries the caller-supplied event attributes for create
// and update operations. Updates replace every field unconditionally.
type EventFields struct {
	Title             string
	Description       string
	StartTime         time.Time
	EndTime           time.Time
	Location          string
	IsRecurring       bool
	RecurrencePattern string
}

// ShareEntry pairs a target user with the role being granted.
type ShareEntry struct {
	UserID uint
	Role   Role
}

// FieldDiff reports one field whose stringified values differ between
// two snapshots. OldValue always comes from the first version supplied
// by the caller, NewValue from the second; no chronological reordering
// is applied.
type FieldDiff struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}
