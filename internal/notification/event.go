// Package notification defines notification events, persisted notifications
// and the message templates used to render them.
package notification

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	id "siwarga/pkg/domain"
	dErrors "siwarga/pkg/domain-errors"
)

type Priority string

const (
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
)

type Type string

const (
	TypeDocument             Type = "DOCUMENT"
	TypeResidentVerification Type = "RESIDENT_VERIFICATION"
	TypeSocialAssistance     Type = "SOCIAL_ASSISTANCE"
	TypeComplaint            Type = "COMPLAINT"
	TypeAnnouncement         Type = "ANNOUNCEMENT"
)

// Source points back at the record that produced the notification.
type Source struct {
	Kind string    `json:"kind" validate:"required"`
	ID   uuid.UUID `json:"id"`
}

// Payload is structured context carried with a notification. It is stored
// as JSON and never parsed for routing.
type Payload struct {
	Status       string       `json:"status,omitempty"`
	Reason       string       `json:"reason,omitempty"`
	Response     string       `json:"response,omitempty"`
	DocumentType string       `json:"document_type,omitempty"`
	Program      string       `json:"program,omitempty"`
	Locality     *id.Locality `json:"locality,omitempty"`
	TargetRTs    []string     `json:"target_rts,omitempty"`
	Actor        string       `json:"actor,omitempty"`
}

type TargetKind int

const (
	TargetUser TargetKind = iota + 1
	TargetUsers
	TargetLocalityRTs
	TargetBroadcast
)

// Target is the abstract audience of an event; fan-out resolves it into users.
type Target struct {
	Kind      TargetKind
	UserIDs   []id.UserID
	RTNumbers []string
	// RWNumber narrows a locality target to one RW; empty matches every RW.
	RWNumber string
	Roles    []id.Role
	Exclude  *id.UserID
}

// ExplicitUser targets one user.
func ExplicitUser(userID id.UserID) Target {
	return Target{Kind: TargetUser, UserIDs: []id.UserID{userID}}
}

// ExplicitUsers targets a fixed set of users.
func ExplicitUsers(userIDs []id.UserID) Target {
	return Target{Kind: TargetUsers, UserIDs: userIDs}
}

// LocalityRTs targets users living in the given RT numbers, optionally only
// those holding one of roles.
func LocalityRTs(rtNumbers []string, roles ...id.Role) Target {
	return Target{Kind: TargetLocalityRTs, RTNumbers: rtNumbers, Roles: roles}
}

// InRW restricts a locality target to RT numbers of one RW.
func (t Target) InRW(rwNumber string) Target {
	t.RWNumber = rwNumber
	return t
}

// Broadcast targets every user except exclude.
func Broadcast(exclude *id.UserID) Target {
	return Target{Kind: TargetBroadcast, Exclude: exclude}
}

func (t Target) String() string {
	switch t.Kind {
	case TargetUser, TargetUsers:
		return fmt.Sprintf("users(%d)", len(t.UserIDs))
	case TargetLocalityRTs:
		if t.RWNumber != "" {
			return fmt.Sprintf("rt%v/rw%s%v", t.RTNumbers, t.RWNumber, t.Roles)
		}
		return fmt.Sprintf("rt%v%v", t.RTNumbers, t.Roles)
	case TargetBroadcast:
		return "broadcast"
	default:
		return "unknown"
	}
}

// Event is a transient notification request produced by the workflow.
type Event struct {
	Target       Target     `validate:"-"`
	Type         Type       `validate:"required"`
	Title        string     `validate:"required,max=200"`
	Message      string     `validate:"required,max=2000"`
	Priority     Priority   `validate:"omitempty,oneof=NORMAL HIGH"`
	Source       Source     `validate:"required"`
	Payload      Payload    `validate:"-"`
	ScheduledFor *time.Time `validate:"-"`
	ExpiresAt    *time.Time `validate:"-"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the event fields and the target shape.
func (e Event) Validate() error {
	if err := validate.Struct(e); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid notification event")
	}
	switch e.Target.Kind {
	case TargetUser, TargetUsers:
		if len(e.Target.UserIDs) == 0 {
			return dErrors.New(dErrors.CodeValidation, "explicit target needs at least one user")
		}
	case TargetLocalityRTs:
		if len(e.Target.RTNumbers) == 0 {
			return dErrors.New(dErrors.CodeValidation, "locality target needs at least one rt number")
		}
	case TargetBroadcast:
	default:
		return dErrors.New(dErrors.CodeValidation, "unknown notification target")
	}
	if e.ScheduledFor != nil && e.ExpiresAt != nil && !e.ExpiresAt.After(*e.ScheduledFor) {
		return dErrors.New(dErrors.CodeValidation, "expiry must be after the scheduled time")
	}
	return nil
}

// Notification is one persisted row for one recipient.
type Notification struct {
	ID           id.NotificationID `json:"id"`
	UserID       id.UserID         `json:"user_id"`
	Type         Type              `json:"type"`
	Title        string            `json:"title"`
	Message      string            `json:"message"`
	IsRead       bool              `json:"is_read"`
	ReadAt       *time.Time        `json:"read_at,omitempty"`
	Priority     Priority          `json:"priority"`
	Source       Source            `json:"source"`
	Payload      Payload           `json:"payload"`
	CreatedAt    time.Time         `json:"created_at"`
	ScheduledFor *time.Time        `json:"scheduled_for,omitempty"`
	ExpiresAt    *time.Time        `json:"expires_at,omitempty"`
	// Age is the relative age computed at read time; never stored.
	Age string `json:"age"`
}

// ForRecipient builds the row for one recipient. Priority defaults to NORMAL.
func (e Event) ForRecipient(userID id.UserID, now time.Time) *Notification {
	priority := e.Priority
	if priority == "" {
		priority = PriorityNormal
	}
	return &Notification{
		ID:           id.NotificationID(uuid.New()),
		UserID:       userID,
		Type:         e.Type,
		Title:        e.Title,
		Message:      e.Message,
		Priority:     priority,
		Source:       e.Source,
		Payload:      e.Payload,
		CreatedAt:    now,
		ScheduledFor: e.ScheduledFor,
		ExpiresAt:    e.ExpiresAt,
	}
}

// VisibleAt reports whether the row is listed at now: scheduled rows wait
// until their time, expired rows are hidden unless includeExpired.
func (n *Notification) VisibleAt(now time.Time, includeExpired bool) bool {
	if n.ScheduledFor != nil && n.ScheduledFor.After(now) {
		return false
	}
	if !includeExpired && n.ExpiresAt != nil && !n.ExpiresAt.After(now) {
		return false
	}
	return true
}

// MarkRead sets the read flag once; repeated calls keep the first ReadAt.
func (n *Notification) MarkRead(now time.Time) {
	if n.IsRead {
		return
	}
	n.IsRead = true
	n.ReadAt = &now
}
