package access

import (
	"siwarga/internal/directory/models"
	id "siwarga/pkg/domain"
)

// Scope is the listing filter derived from an actor. Exactly one of Global,
// Locality or the own/family pair applies.
type Scope struct {
	Global     bool
	Locality   *id.Locality
	ResidentID *id.ResidentID
	FamilyID   *id.FamilyID
}

// ScopeFor derives the listing scope for an actor. An unknown role gets a
// scope that matches nothing.
func ScopeFor(actor *models.ActorContext) Scope {
	if actor == nil {
		return Scope{}
	}
	switch actor.Role {
	case id.RoleAdmin, id.RoleRW:
		return Scope{Global: true}
	case id.RoleRT:
		loc := actor.Locality
		return Scope{Locality: &loc}
	case id.RoleWarga:
		return Scope{ResidentID: actor.ResidentID, FamilyID: actor.FamilyID}
	default:
		return Scope{}
	}
}

// Allows reports whether a resource falls inside the scope. In-memory stores
// filter with it; SQL stores translate the same fields into a WHERE clause.
func (s Scope) Allows(r Resource) bool {
	switch {
	case s.Global:
		return true
	case s.Locality != nil:
		return s.Locality.Equal(r.Locality)
	default:
		if s.ResidentID != nil && r.OwnerID != nil && *s.ResidentID == *r.OwnerID {
			return true
		}
		return s.FamilyID != nil && r.FamilyID != nil && *s.FamilyID == *r.FamilyID
	}
}
