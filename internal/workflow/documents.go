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

// SubmitDocument files a document request for req.RequesterID, or for the
// actor's own profile when unset. The requester is notified, as is every RT
// head of the requester's locality.
func (e *Engine) SubmitDocument(ctx context.Context, actorID id.UserID, req models.DocumentRequest) (doc *models.Document, events []notification.Event, err error) {
	ctx, finish := e.begin(ctx, access.KindDocument, access.ActionSubmit)
	defer func() { finish(events, err) }()

	requester := req.RequesterID
	if requester == nil {
		actor, err := e.directory.Resolve(ctx, actorID)
		if err != nil {
			return nil, nil, err
		}
		if actor.ResidentID == nil {
			return nil, nil, dErrors.New(dErrors.CodeBadRequest, "requester_id is required for accounts without a resident profile")
		}
		requester = actor.ResidentID
	}
	if _, _, err := e.policy.Decide(ctx, actorID, access.ResourceRef{Kind: access.KindResident, ID: uuid.UUID(*requester)}, access.ActionSubmit); err != nil {
		return nil, nil, err
	}

	doc, err = models.NewDocument(id.DocumentID(uuid.New()), *requester, req, requestcontext.Now(ctx))
	if err != nil {
		return nil, nil, err
	}
	if err := e.stores.Documents.CreateDocument(ctx, doc); err != nil {
		return nil, nil, storeError(err, "document")
	}

	events = e.documentSubmittedEvents(ctx, doc)
	e.dispatch(ctx, events)
	return doc, events, nil
}

func (e *Engine) documentSubmittedEvents(ctx context.Context, doc *models.Document) []notification.Event {
	profile := e.ownerProfile(ctx, doc.RequesterID)
	if profile == nil {
		return nil
	}
	spec := eventSpec{
		typ: notification.TypeDocument,
		data: notification.TemplateData{
			ResidentName: profile.FullName,
			DocumentType: doc.Type,
			Purpose:      doc.Purpose,
			Status:       string(doc.Status),
		},
		source:  source(access.KindDocument, uuid.UUID(doc.ID)),
		payload: notification.Payload{Status: string(doc.Status), DocumentType: doc.Type},
	}

	requesterSpec := spec
	requesterSpec.key = notification.KeyDocumentSubmittedRequester
	events := e.toOwner(ctx, profile, requesterSpec)

	rtSpec := spec
	rtSpec.key = notification.KeyDocumentSubmittedRT
	locality := profile.Locality
	return append(events, e.toRole(ctx, id.RoleRT, &locality, rtSpec)...)
}

// transitionDocument applies one lifecycle step and notifies the requester.
func (e *Engine) transitionDocument(ctx context.Context, actor *dirmodels.ActorContext, documentID id.DocumentID, action access.Action, payload Payload) (*models.Document, []notification.Event, error) {
	now := requestcontext.Now(ctx)
	step := models.DocumentAction(action)
	doc, err := e.stores.Documents.ExecuteDocument(ctx, documentID,
		func(d *models.Document) error { return d.CanApply(step, payload.Reason) },
		func(d *models.Document) { d.Apply(step, actor.DisplayName, payload.Reason, now) },
	)
	if err != nil {
		return nil, nil, storeError(err, "document")
	}

	e.logger.InfoContext(ctx, "document transitioned",
		"request_id", requestcontext.RequestID(ctx),
		"document_id", doc.ID.String(),
		"action", action.String(),
		"status", string(doc.Status),
		"user_id", actor.UserID.String(),
	)

	events := e.toOwner(ctx, e.ownerProfile(ctx, doc.RequesterID), eventSpec{
		typ: notification.TypeDocument,
		key: notification.DocumentKey(string(step)),
		data: notification.TemplateData{
			DocumentType: doc.Type,
			Purpose:      doc.Purpose,
			Reason:       doc.RejectionReason,
			Status:       string(doc.Status),
			Actor:        actor.DisplayName,
		},
		source: source(access.KindDocument, uuid.UUID(doc.ID)),
		payload: notification.Payload{
			Status:       string(doc.Status),
			Reason:       doc.RejectionReason,
			DocumentType: doc.Type,
			Actor:        actor.DisplayName,
		},
	})
	return doc, events, nil
}

// ListDocuments returns the documents the actor may see, newest first.
func (e *Engine) ListDocuments(ctx context.Context, actorID id.UserID) ([]*models.Document, error) {
	actor, err := e.directory.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}
	docs, err := e.stores.Documents.ListDocuments(ctx, access.ScopeFor(actor))
	if err != nil {
		return nil, storeError(err, "documents")
	}
	return docs, nil
}
