package workflow

import (
	"context"

	"github.com/google/uuid"

	"siwarga/internal/access"
	dirmodels "siwarga/internal/directory/models"
	"siwarga/internal/notification"
	"siwarga/internal/workflow/models"
	id "siwarga/pkg/domain"
	"siwarga/pkg/requestcontext"
)

// EnrollRecipient enrolls a resident in an assistance program. The resident
// and the RT heads of their RT are notified. A resident can be enrolled in a
// program once.
func (e *Engine) EnrollRecipient(ctx context.Context, actorID id.UserID, req models.RecipientRequest) (recipient *models.Recipient, events []notification.Event, err error) {
	ctx, finish := e.begin(ctx, access.KindRecipient, access.ActionEnroll)
	defer func() { finish(events, err) }()

	if _, _, err := e.policy.Decide(ctx, actorID, access.ResourceRef{Kind: access.KindResident, ID: uuid.UUID(req.ResidentID)}, access.ActionEnroll); err != nil {
		return nil, nil, err
	}
	recipient, err = models.NewRecipient(id.RecipientID(uuid.New()), req, requestcontext.Now(ctx))
	if err != nil {
		return nil, nil, err
	}
	if err := e.stores.Recipients.CreateRecipient(ctx, recipient); err != nil {
		return nil, nil, storeError(err, "enrollment in "+recipient.Program)
	}

	profile := e.ownerProfile(ctx, recipient.ResidentID)
	if profile != nil {
		spec := eventSpec{
			typ:     notification.TypeSocialAssistance,
			data:    notification.TemplateData{ResidentName: profile.FullName, Program: recipient.Program},
			source:  source(access.KindRecipient, uuid.UUID(recipient.ID)),
			payload: notification.Payload{Program: recipient.Program},
		}
		residentSpec := spec
		residentSpec.key = notification.KeyRecipientEnrolledResident
		events = e.toOwner(ctx, profile, residentSpec)

		rtSpec := spec
		rtSpec.key = notification.KeyRecipientEnrolledRT
		events = append(events, e.toLocalityRTs(ctx, profile.Locality, rtSpec)...)
	}
	e.dispatch(ctx, events)
	return recipient, events, nil
}

// transitionRecipient verifies an enrollment. Verification notifies nobody.
func (e *Engine) transitionRecipient(ctx context.Context, actor *dirmodels.ActorContext, recipientID id.RecipientID) (*models.Recipient, []notification.Event, error) {
	now := requestcontext.Now(ctx)
	recipient, err := e.stores.Recipients.ExecuteRecipient(ctx, recipientID,
		func(r *models.Recipient) error { return r.CanVerify() },
		func(r *models.Recipient) { r.ApplyVerification(actor.DisplayName, now) },
	)
	if err != nil {
		return nil, nil, storeError(err, "recipient")
	}
	e.logger.InfoContext(ctx, "recipient verified",
		"request_id", requestcontext.RequestID(ctx),
		"recipient_id", recipient.ID.String(),
		"user_id", actor.UserID.String(),
	)
	return recipient, nil, nil
}
