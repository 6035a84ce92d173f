package workflow

import (
	"context"

	"github.com/google/uuid"

	"siwarga/internal/access"
	dirmodels "siwarga/internal/directory/models"
	"siwarga/internal/notification"
	id "siwarga/pkg/domain"
	"siwarga/pkg/requestcontext"
)

// Event construction runs after commit. Failures here are logged and drop the
// affected event; they never fail the operation.

type eventSpec struct {
	target  notification.Target
	typ     notification.Type
	key     string
	data    notification.TemplateData
	source  notification.Source
	payload notification.Payload
}

func source(kind access.ResourceKind, recordID uuid.UUID) notification.Source {
	return notification.Source{Kind: string(kind), ID: recordID}
}

func (e *Engine) build(ctx context.Context, spec eventSpec) (notification.Event, bool) {
	title, message, err := e.templates.Render(spec.key, spec.data)
	if err != nil {
		e.logger.ErrorContext(ctx, "render notification template",
			"request_id", requestcontext.RequestID(ctx),
			"key", spec.key,
			"error", err,
		)
		return notification.Event{}, false
	}
	return notification.Event{
		Target:   spec.target,
		Type:     spec.typ,
		Title:    title,
		Message:  message,
		Priority: notification.PriorityNormal,
		Source:   spec.source,
		Payload:  spec.payload,
	}, true
}

// toOwner builds one event for the profile's user. Profiles without a user
// produce nothing.
func (e *Engine) toOwner(ctx context.Context, profile *dirmodels.ResidentProfile, spec eventSpec) []notification.Event {
	if profile == nil || profile.UserID == nil {
		return nil
	}
	spec.target = notification.ExplicitUser(*profile.UserID)
	if event, ok := e.build(ctx, spec); ok {
		return []notification.Event{event}
	}
	return nil
}

// toRole builds one event per user holding role, within locality when set.
func (e *Engine) toRole(ctx context.Context, role id.Role, locality *id.Locality, spec eventSpec) []notification.Event {
	users, err := e.directory.UsersWithRole(ctx, role, locality)
	if err != nil {
		e.logger.WarnContext(ctx, "resolve notification audience",
			"request_id", requestcontext.RequestID(ctx),
			"role", role.String(),
			"error", err,
		)
		return nil
	}
	events := make([]notification.Event, 0, len(users))
	for _, userID := range users {
		spec.target = notification.ExplicitUser(userID)
		if event, ok := e.build(ctx, spec); ok {
			events = append(events, event)
		}
	}
	return events
}

// toLocalityRTs builds a single event addressed to the RT heads of the
// profile's RT.
func (e *Engine) toLocalityRTs(ctx context.Context, locality id.Locality, spec eventSpec) []notification.Event {
	spec.target = notification.LocalityRTs([]string{locality.RTNumber}, id.RoleRT).InRW(locality.RWNumber)
	if event, ok := e.build(ctx, spec); ok {
		return []notification.Event{event}
	}
	return nil
}

// ownerProfile loads the profile a record belongs to for event addressing.
func (e *Engine) ownerProfile(ctx context.Context, residentID id.ResidentID) *dirmodels.ResidentProfile {
	p, err := e.directory.Profile(ctx, residentID)
	if err != nil {
		e.logger.WarnContext(ctx, "load record owner for notification",
			"request_id", requestcontext.RequestID(ctx),
			"resident_id", residentID.String(),
			"error", err,
		)
		return nil
	}
	return p
}

// verificationNeeded is the "Verifikasi Warga Baru" event for a profile's RT.
func (e *Engine) verificationNeeded(ctx context.Context, p *dirmodels.ResidentProfile) []notification.Event {
	locality := p.Locality
	return e.toLocalityRTs(ctx, locality, eventSpec{
		typ:     notification.TypeResidentVerification,
		key:     notification.KeyResidentVerificationNeeded,
		data:    notification.TemplateData{ResidentName: p.FullName, Locality: locality.String()},
		source:  source(access.KindResident, uuid.UUID(p.ID)),
		payload: notification.Payload{Locality: &locality},
	})
}
