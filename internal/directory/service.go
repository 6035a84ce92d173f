// Package directory resolves users into locality-bound actors and answers
// audience queries for notification fan-out.
package directory

import (
	"context"
	"errors"
	"log/slog"

	"siwarga/internal/directory/models"
	id "siwarga/pkg/domain"
	dErrors "siwarga/pkg/domain-errors"
	"siwarga/pkg/platform/sentinel"
	platformstrings "siwarga/pkg/platform/strings"
)

// Store is the persistence contract for users, RT assignments and profiles.
type Store interface {
	FindUser(ctx context.Context, userID id.UserID) (*models.User, error)
	ListUserIDs(ctx context.Context) ([]id.UserID, error)
	UserIDsByRole(ctx context.Context, role id.Role, locality *id.Locality) ([]id.UserID, error)
	UserIDsByRTNumbers(ctx context.Context, rwNumber string, rtNumbers []string, roles []id.Role) ([]id.UserID, error)
	FindRTAssignment(ctx context.Context, rtID id.RTID) (*models.RTAssignment, error)
	FindProfile(ctx context.Context, residentID id.ResidentID) (*models.ResidentProfile, error)
	FindProfileByUser(ctx context.Context, userID id.UserID) (*models.ResidentProfile, error)
}

// Service is the Directory component.
type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New constructs a directory Service.
func New(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve builds the actor context for a user.
//
// An ADMIN without a profile resolves to a global context. Any other role
// without a profile is NotFound. RT actors have their locality cross-checked
// against their RT assignment; a divergence is an integrity error.
func (s *Service) Resolve(ctx context.Context, userID id.UserID) (*models.ActorContext, error) {
	user, err := s.store.FindUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	profile, err := s.store.FindProfileByUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load resident profile")
		}
		if user.Role == id.RoleAdmin {
			return &models.ActorContext{UserID: user.ID, Role: user.Role, DisplayName: user.Name}, nil
		}
		return nil, dErrors.New(dErrors.CodeNotFound, "resident profile not found")
	}

	actor := &models.ActorContext{
		UserID:      user.ID,
		Role:        user.Role,
		DisplayName: displayName(user, profile),
		ResidentID:  &profile.ID,
		Locality:    profile.Locality,
		FamilyID:    profile.FamilyID,
		RTID:        profile.RTID,
	}

	if user.Role == id.RoleRT {
		assignment, err := s.resolveAssignment(ctx, user, profile)
		if err != nil {
			return nil, err
		}
		actor.RTID = &assignment.ID
	}
	return actor, nil
}

// resolveAssignment reconciles the two RT links: the user's direct
// assignment and the profile's RT. Both must agree with the profile locality.
func (s *Service) resolveAssignment(ctx context.Context, user *models.User, profile *models.ResidentProfile) (*models.RTAssignment, error) {
	var rtID id.RTID
	switch {
	case user.RTAssignmentID != nil && profile.RTID != nil && *user.RTAssignmentID != *profile.RTID:
		s.logIntegrity(ctx, user.ID, "rt assignment differs between user and profile")
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "rt assignment differs between user and resident profile")
	case user.RTAssignmentID != nil:
		rtID = *user.RTAssignmentID
	case profile.RTID != nil:
		rtID = *profile.RTID
	default:
		return nil, dErrors.New(dErrors.CodeForbidden, "rt account has no rt assignment")
	}

	assignment, err := s.store.FindRTAssignment(ctx, rtID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.logIntegrity(ctx, user.ID, "rt assignment missing")
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "rt assignment not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load rt assignment")
	}
	if !assignment.IsActive {
		return nil, dErrors.New(dErrors.CodeForbidden, "rt assignment is inactive")
	}
	if !assignment.Locality().Equal(profile.Locality) {
		s.logIntegrity(ctx, user.ID, "rt assignment locality differs from profile locality")
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "rt assignment does not match resident locality")
	}
	return assignment, nil
}

// UsersInLocalities returns the users owning profiles in any of the given RT
// numbers, optionally narrowed to one RW and to the given roles. An empty
// rwNumber matches every RW. Unlinked profiles are skipped. Duplicates are
// removed keeping first-seen order.
func (s *Service) UsersInLocalities(ctx context.Context, rwNumber string, rtNumbers []string, roles ...id.Role) ([]id.UserID, error) {
	rtNumbers = platformstrings.DedupeAndNormalize(rtNumbers, id.NormalizeAreaNumber)
	if len(rtNumbers) == 0 {
		return nil, nil
	}
	if rwNumber != "" {
		normalized, err := id.NormalizeAreaNumber(rwNumber)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid rw number")
		}
		rwNumber = normalized
	}
	users, err := s.store.UserIDsByRTNumbers(ctx, rwNumber, rtNumbers, roles)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users in localities")
	}
	return platformstrings.Dedupe(users), nil
}

// UsersWithRole returns users holding role, optionally within one locality.
func (s *Service) UsersWithRole(ctx context.Context, role id.Role, locality *id.Locality) ([]id.UserID, error) {
	users, err := s.store.UserIDsByRole(ctx, role, locality)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users by role")
	}
	return platformstrings.Dedupe(users), nil
}

// UsersExcept returns every user id except exclude (when set).
func (s *Service) UsersExcept(ctx context.Context, exclude *id.UserID) ([]id.UserID, error) {
	users, err := s.store.ListUserIDs(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	out := make([]id.UserID, 0, len(users))
	for _, u := range platformstrings.Dedupe(users) {
		if exclude != nil && u == *exclude {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (s *Service) Profile(ctx context.Context, residentID id.ResidentID) (*models.ResidentProfile, error) {
	p, err := s.store.FindProfile(ctx, residentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "resident profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load resident profile")
	}
	return p, nil
}

func (s *Service) ProfileByUser(ctx context.Context, userID id.UserID) (*models.ResidentProfile, error) {
	p, err := s.store.FindProfileByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "resident profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load resident profile")
	}
	return p, nil
}

func (s *Service) logIntegrity(ctx context.Context, userID id.UserID, msg string) {
	if s.logger == nil {
		return
	}
	s.logger.ErrorContext(ctx, msg, "user_id", userID.String())
}

func displayName(user *models.User, profile *models.ResidentProfile) string {
	if user.Name != "" {
		return user.Name
	}
	return profile.FullName
}
