package workflow

import (
	"context"

	"github.com/google/uuid"

	"siwarga/internal/access"
	dirmodels "siwarga/internal/directory/models"
	"siwarga/internal/notification"
	"siwarga/internal/workflow/models"
	id "siwarga/pkg/domain"
	dErrors "siwarga/pkg/domain-errors"
	"siwarga/pkg/requestcontext"
)

// FileComplaint records a complaint from the actor's own profile. Every RT
// head of the creator's locality and every RW head is notified.
func (e *Engine) FileComplaint(ctx context.Context, actorID id.UserID, req models.ComplaintRequest) (complaint *models.Complaint, events []notification.Event, err error) {
	ctx, finish := e.begin(ctx, access.KindComplaint, access.ActionFile)
	defer func() { finish(events, err) }()

	actor, err := e.directory.Resolve(ctx, actorID)
	if err != nil {
		return nil, nil, err
	}
	if actor.ResidentID == nil {
		return nil, nil, dErrors.New(dErrors.CodeForbidden, "complaints are filed from a resident profile")
	}
	if _, _, err := e.policy.Decide(ctx, actorID, access.ResourceRef{Kind: access.KindResident, ID: uuid.UUID(*actor.ResidentID)}, access.ActionFile); err != nil {
		return nil, nil, err
	}

	complaint, err = models.NewComplaint(id.ComplaintID(uuid.New()), *actor.ResidentID, req, requestcontext.Now(ctx))
	if err != nil {
		return nil, nil, err
	}
	if err := e.stores.Complaints.CreateComplaint(ctx, complaint); err != nil {
		return nil, nil, storeError(err, "complaint")
	}

	spec := eventSpec{
		typ: notification.TypeComplaint,
		key: notification.KeyComplaintFiled,
		data: notification.TemplateData{
			ResidentName: actor.DisplayName,
			Title:        complaint.Title,
			Locality:     actor.Locality.String(),
		},
		source:  source(access.KindComplaint, uuid.UUID(complaint.ID)),
		payload: notification.Payload{Status: string(complaint.Status), Locality: &actor.Locality},
	}
	locality := actor.Locality
	events = e.toRole(ctx, id.RoleRT, &locality, spec)
	events = append(events, e.toRole(ctx, id.RoleRW, nil, spec)...)

	e.dispatch(ctx, events)
	return complaint, events, nil
}

// transitionComplaint closes a complaint with a response and notifies its
// creator.
func (e *Engine) transitionComplaint(ctx context.Context, actor *dirmodels.ActorContext, complaintID id.ComplaintID, payload Payload) (*models.Complaint, []notification.Event, error) {
	now := requestcontext.Now(ctx)
	complaint, err := e.stores.Complaints.ExecuteComplaint(ctx, complaintID,
		func(c *models.Complaint) error { return c.CanRespond(payload.Status, payload.Response) },
		func(c *models.Complaint) { c.ApplyResponse(payload.Status, payload.Response, actor.DisplayName, now) },
	)
	if err != nil {
		return nil, nil, storeError(err, "complaint")
	}
	e.logger.InfoContext(ctx, "complaint responded",
		"request_id", requestcontext.RequestID(ctx),
		"complaint_id", complaint.ID.String(),
		"status", string(complaint.Status),
		"user_id", actor.UserID.String(),
	)

	events := e.toOwner(ctx, e.ownerProfile(ctx, complaint.CreatorID), eventSpec{
		typ: notification.TypeComplaint,
		key: notification.KeyComplaintRespond,
		data: notification.TemplateData{
			Title:    complaint.Title,
			Status:   string(complaint.Status),
			Response: complaint.Response,
			Actor:    actor.DisplayName,
		},
		source: source(access.KindComplaint, uuid.UUID(complaint.ID)),
		payload: notification.Payload{
			Status:   string(complaint.Status),
			Response: complaint.Response,
			Actor:    actor.DisplayName,
		},
	})
	return complaint, events, nil
}

// ListComplaints returns the complaints the actor may see, newest first.
func (e *Engine) ListComplaints(ctx context.Context, actorID id.UserID) ([]*models.Complaint, error) {
	actor, err := e.directory.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}
	complaints, err := e.stores.Complaints.ListComplaints(ctx, access.ScopeFor(actor))
	if err != nil {
		return nil, storeError(err, "complaints")
	}
	return complaints, nil
}
