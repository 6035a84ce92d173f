package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "siwarga/pkg/domain-errors"
)

// Typed identifiers keep entity references from being swapped by accident.
// Construct them with the Parse functions at trust boundaries.
type (
	UserID         uuid.UUID
	ResidentID     uuid.UUID
	FamilyID       uuid.UUID
	RTID           uuid.UUID
	DocumentID     uuid.UUID
	ComplaintID    uuid.UUID
	RecipientID    uuid.UUID
	NotificationID uuid.UUID
)

func parseUUID(s, label string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

func ParseResidentID(s string) (ResidentID, error) {
	u, err := parseUUID(s, "resident id")
	return ResidentID(u), err
}

func ParseFamilyID(s string) (FamilyID, error) {
	u, err := parseUUID(s, "family id")
	return FamilyID(u), err
}

func ParseRTID(s string) (RTID, error) {
	u, err := parseUUID(s, "rt id")
	return RTID(u), err
}

func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID(s, "document id")
	return DocumentID(u), err
}

func ParseComplaintID(s string) (ComplaintID, error) {
	u, err := parseUUID(s, "complaint id")
	return ComplaintID(u), err
}

func ParseRecipientID(s string) (RecipientID, error) {
	u, err := parseUUID(s, "recipient id")
	return RecipientID(u), err
}

func ParseNotificationID(s string) (NotificationID, error) {
	u, err := parseUUID(s, "notification id")
	return NotificationID(u), err
}

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id ResidentID) String() string     { return uuid.UUID(id).String() }
func (id FamilyID) String() string       { return uuid.UUID(id).String() }
func (id RTID) String() string           { return uuid.UUID(id).String() }
func (id DocumentID) String() string     { return uuid.UUID(id).String() }
func (id ComplaintID) String() string    { return uuid.UUID(id).String() }
func (id RecipientID) String() string    { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id ResidentID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id FamilyID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id RTID) IsNil() bool           { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ComplaintID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id RecipientID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id NotificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// Text marshaling lets typed IDs appear as plain UUID strings in JSON.

func (id UserID) MarshalText() ([]byte, error)         { return uuid.UUID(id).MarshalText() }
func (id ResidentID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id FamilyID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id RTID) MarshalText() ([]byte, error)           { return uuid.UUID(id).MarshalText() }
func (id DocumentID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id ComplaintID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id RecipientID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id NotificationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error         { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ResidentID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *FamilyID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *RTID) UnmarshalText(b []byte) error           { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *DocumentID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ComplaintID) UnmarshalText(b []byte) error    { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *RecipientID) UnmarshalText(b []byte) error    { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *NotificationID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
