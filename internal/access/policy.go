// Package access decides who may see or act on a record based on role rank,
// RT/RW locality and family membership.
package access

import (
	"context"
	"log/slog"

	"siwarga/internal/directory/models"
	id "siwarga/pkg/domain"
	dErrors "siwarga/pkg/domain-errors"
)

// ActorResolver turns an authenticated user id into an actor context.
type ActorResolver interface {
	Resolve(ctx context.Context, userID id.UserID) (*models.ActorContext, error)
}

// Policy evaluates access against resolved actors and located resources.
type Policy struct {
	actors   ActorResolver
	locators map[ResourceKind]Locator
	logger   *slog.Logger
}

type Option func(*Policy)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Policy) {
		p.logger = logger
	}
}

// WithLocator registers the locator for a resource kind.
func WithLocator(kind ResourceKind, locator Locator) Option {
	return func(p *Policy) {
		p.locators[kind] = locator
	}
}

// New constructs a Policy.
func New(actors ActorResolver, opts ...Option) *Policy {
	p := &Policy{actors: actors, locators: make(map[ResourceKind]Locator)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Register adds or replaces the locator for a resource kind.
func (p *Policy) Register(kind ResourceKind, locator Locator) {
	p.locators[kind] = locator
}

// Rank returns the role's position in ADMIN > RW > RT > WARGA.
func Rank(role id.Role) int {
	return role.Rank()
}

// HasRank reports whether role is at least min.
func HasRank(role id.Role, min id.Role) bool {
	return role.AtLeast(min)
}

// CanAccess reports whether the actor may see the resource.
// ADMIN and RW see everything; RT sees its own RT/RW; WARGA sees records it
// owns or that belong to its family.
func CanAccess(actor *models.ActorContext, resource Resource) bool {
	if actor == nil {
		return false
	}
	switch actor.Role {
	case id.RoleAdmin, id.RoleRW:
		return true
	case id.RoleRT:
		return !actor.Locality.IsZero() && actor.Locality.Equal(resource.Locality)
	case id.RoleWarga:
		if resource.OwnerID != nil && actor.ResidentID != nil && *resource.OwnerID == *actor.ResidentID {
			return true
		}
		return resource.FamilyID != nil && actor.FamilyID != nil && *resource.FamilyID == *actor.FamilyID
	default:
		return false
	}
}

// CanMutate reports whether the actor may perform action on the resource:
// the resource must be visible and the actor must meet the action's role floor.
// Self-update is limited to the actor's own profile.
func CanMutate(actor *models.ActorContext, resource Resource, action Action) bool {
	floor, ok := action.Floor()
	if !ok || actor == nil || !HasRank(actor.Role, floor) {
		return false
	}
	if action == ActionSelfUpdate {
		return resource.Kind == KindResident && resource.OwnerID != nil &&
			actor.ResidentID != nil && *resource.OwnerID == *actor.ResidentID
	}
	return CanAccess(actor, resource)
}

// Check is the in-process form of Authorize for an already resolved actor
// and resource.
func Check(actor *models.ActorContext, resource Resource, action Action) error {
	if action == ActionView {
		if !CanAccess(actor, resource) {
			return dErrors.New(dErrors.CodeForbidden, "access denied")
		}
		return nil
	}
	if !CanMutate(actor, resource, action) {
		return dErrors.New(dErrors.CodeForbidden, "action not permitted: "+action.String())
	}
	return nil
}

// Authorize resolves the actor and the referenced resource and checks action.
// Returns NotFound when either cannot be resolved and Forbidden when denied.
func (p *Policy) Authorize(ctx context.Context, actorID id.UserID, ref ResourceRef, action Action) error {
	_, _, err := p.Decide(ctx, actorID, ref, action)
	return err
}

// Decide is Authorize returning the resolved actor and resource for callers
// that need them afterwards.
func (p *Policy) Decide(ctx context.Context, actorID id.UserID, ref ResourceRef, action Action) (*models.ActorContext, *Resource, error) {
	actor, err := p.actors.Resolve(ctx, actorID)
	if err != nil {
		return nil, nil, err
	}
	resource, err := p.Locate(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	if err := p.Enforce(ctx, actor, *resource, ref, action); err != nil {
		return nil, nil, err
	}
	return actor, resource, nil
}

// Enforce is Check for callers that resolved the actor and resource
// themselves. Denials are logged.
func (p *Policy) Enforce(ctx context.Context, actor *models.ActorContext, resource Resource, ref ResourceRef, action Action) error {
	if err := Check(actor, resource, action); err != nil {
		p.logDenied(ctx, actor, ref, action)
		return err
	}
	return nil
}

// Locate loads a resource through its registered locator.
func (p *Policy) Locate(ctx context.Context, ref ResourceRef) (*Resource, error) {
	locator, ok := p.locators[ref.Kind]
	if !ok {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown resource kind: "+string(ref.Kind))
	}
	resource, err := locator.Locate(ctx, ref.ID)
	if err != nil {
		return nil, err
	}
	if resource == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, string(ref.Kind)+" not found")
	}
	return resource, nil
}

func (p *Policy) logDenied(ctx context.Context, actor *models.ActorContext, ref ResourceRef, action Action) {
	if p.logger == nil {
		return
	}
	p.logger.InfoContext(ctx, "access denied",
		"user_id", actor.UserID.String(),
		"role", actor.Role.String(),
		"kind", string(ref.Kind),
		"resource_id", ref.ID.String(),
		"action", action.String(),
	)
}
