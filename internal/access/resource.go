package access

import (
	"context"

	"github.com/google/uuid"

	id "siwarga/pkg/domain"
)

// ResourceKind names a locatable aggregate.
type ResourceKind string

const (
	KindResident  ResourceKind = "resident"
	KindDocument  ResourceKind = "document"
	KindComplaint ResourceKind = "complaint"
	KindRecipient ResourceKind = "recipient"
	// KindLocality is a bare RT/RW area, used for creation and announcements.
	KindLocality ResourceKind = "locality"
)

// ResourceRef identifies a resource without loading it.
type ResourceRef struct {
	Kind ResourceKind
	ID   uuid.UUID
}

// Resource is the authorization view of a record: who owns it and where it lives.
// OwnerID is the resident the record belongs to (the profile itself for residents).
type Resource struct {
	Kind     ResourceKind
	ID       uuid.UUID
	OwnerID  *id.ResidentID
	FamilyID *id.FamilyID
	Locality id.Locality
}

// LocalityResource describes a bare area.
func LocalityResource(loc id.Locality) Resource {
	return Resource{Kind: KindLocality, Locality: loc}
}

// Locator loads the authorization view of one resource kind.
// Implementations return an error carrying CodeNotFound when the id is unknown.
type Locator interface {
	Locate(ctx context.Context, resourceID uuid.UUID) (*Resource, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context, resourceID uuid.UUID) (*Resource, error)

func (f LocatorFunc) Locate(ctx context.Context, resourceID uuid.UUID) (*Resource, error) {
	return f(ctx, resourceID)
}
