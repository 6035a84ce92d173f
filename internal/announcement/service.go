// Package announcement composes locality announcements into notification
// events.
package announcement

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"siwarga/internal/access"
	dirmodels "siwarga/internal/directory/models"
	"siwarga/internal/notification"
	id "siwarga/pkg/domain"
	dErrors "siwarga/pkg/domain-errors"
	platformstrings "siwarga/pkg/platform/strings"
	"siwarga/pkg/requestcontext"
)

type ActorResolver interface {
	Resolve(ctx context.Context, userID id.UserID) (*dirmodels.ActorContext, error)
}

// Dispatcher delivers composed events. fanout.Service implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, events []notification.Event) (int, []error)
}

// Draft is an announcement as written by its author.
type Draft struct {
	Title        string     `json:"title" validate:"required,max=200"`
	Content      string     `json:"content" validate:"required,max=2000"`
	IsPinned     bool       `json:"is_pinned"`
	TargetRTs    []string   `json:"target_rts" validate:"max=50"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// Announcement is a composed announcement and the event delivering it.
type Announcement struct {
	ID        uuid.UUID          `json:"id"`
	AuthorID  id.UserID          `json:"author_id"`
	Event     notification.Event `json:"-"`
	Delivered int                `json:"delivered"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

type Service struct {
	actors     ActorResolver
	dispatcher Dispatcher
	logger     *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithDispatcher delivers each composed announcement synchronously.
func WithDispatcher(d Dispatcher) Option {
	return func(s *Service) {
		s.dispatcher = d
	}
}

func New(actors ActorResolver, opts ...Option) *Service {
	s := &Service{
		actors: actors,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compose builds the notification event for an announcement.
//
// RT heads announce to their own RT only. RW and ADMIN announce to everyone
// but themselves, or to the listed RTs. Announcements by RW or ADMIN, and
// pinned ones, are HIGH priority.
func (s *Service) Compose(ctx context.Context, actorID id.UserID, draft Draft) (*Announcement, error) {
	draft.Title = strings.TrimSpace(draft.Title)
	draft.Content = strings.TrimSpace(draft.Content)
	if err := validate.Struct(draft); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid announcement")
	}
	now := requestcontext.Now(ctx)
	if err := checkWindow(draft, now); err != nil {
		return nil, err
	}
	targetRTs, err := normalizeRTs(draft.TargetRTs)
	if err != nil {
		return nil, err
	}

	actor, err := s.actors.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := access.Check(actor, access.LocalityResource(actor.Locality), access.ActionAnnounce); err != nil {
		s.logger.InfoContext(ctx, "announcement denied",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", actorID.String(),
			"role", actor.Role.String(),
		)
		return nil, err
	}

	target, err := audience(actor, targetRTs)
	if err != nil {
		return nil, err
	}
	priority := notification.PriorityNormal
	if draft.IsPinned || actor.Role.AtLeast(id.RoleRW) {
		priority = notification.PriorityHigh
	}

	a := &Announcement{ID: uuid.New(), AuthorID: actorID}
	a.Event = notification.Event{
		Target:       target,
		Type:         notification.TypeAnnouncement,
		Title:        draft.Title,
		Message:      draft.Content,
		Priority:     priority,
		Source:       notification.Source{Kind: "announcement", ID: a.ID},
		Payload:      notification.Payload{TargetRTs: targetRTs, Actor: actor.DisplayName},
		ScheduledFor: draft.ScheduledFor,
		ExpiresAt:    draft.ExpiresAt,
	}
	if err := a.Event.Validate(); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "announcement composed",
		"request_id", requestcontext.RequestID(ctx),
		"announcement_id", a.ID.String(),
		"user_id", actorID.String(),
		"target", target.String(),
		"priority", string(priority),
	)
	if s.dispatcher != nil {
		delivered, errs := s.dispatcher.Dispatch(ctx, []notification.Event{a.Event})
		a.Delivered = delivered
		if len(errs) > 0 {
			s.logger.WarnContext(ctx, "announcement delivery incomplete",
				"request_id", requestcontext.RequestID(ctx),
				"announcement_id", a.ID.String(),
				"delivered", delivered,
				"failed", len(errs),
			)
		}
	}
	return a, nil
}

func audience(actor *dirmodels.ActorContext, targetRTs []string) (notification.Target, error) {
	if actor.Role == id.RoleRT {
		own := actor.Locality.RTNumber
		for _, rt := range targetRTs {
			if rt != own {
				return notification.Target{}, dErrors.New(dErrors.CodeForbidden, "RT can only announce to its own RT")
			}
		}
		return notification.LocalityRTs([]string{own}).InRW(actor.Locality.RWNumber), nil
	}
	if len(targetRTs) > 0 {
		target := notification.LocalityRTs(targetRTs)
		if actor.Role == id.RoleRW {
			target = target.InRW(actor.Locality.RWNumber)
		}
		return target, nil
	}
	author := actor.UserID
	return notification.Broadcast(&author), nil
}

// checkWindow requires expiry to be in the future and after the scheduled time.
func checkWindow(d Draft, now time.Time) error {
	if d.ExpiresAt == nil {
		return nil
	}
	if !d.ExpiresAt.After(now) {
		return dErrors.New(dErrors.CodeValidation, "expires_at must be in the future")
	}
	if d.ScheduledFor != nil && !d.ExpiresAt.After(*d.ScheduledFor) {
		return dErrors.New(dErrors.CodeValidation, "expires_at must be after scheduled_for")
	}
	return nil
}

func normalizeRTs(values []string) ([]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		rt, err := id.NormalizeAreaNumber(v)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid target rt")
		}
		out = append(out, rt)
	}
	return platformstrings.Dedupe(out), nil
}
