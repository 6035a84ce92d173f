package workflow

import (
	"context"

	"github.com/google/uuid"

	"siwarga/internal/access"
	id "siwarga/pkg/domain"
)

// registerLocators teaches the policy where each workflow record lives: the
// locality and family of the resident it belongs to.
func (e *Engine) registerLocators() {
	e.policy.Register(access.KindResident, access.LocatorFunc(e.locateResident))
	e.policy.Register(access.KindDocument, access.LocatorFunc(func(ctx context.Context, recordID uuid.UUID) (*access.Resource, error) {
		d, err := e.stores.Documents.FindDocument(ctx, id.DocumentID(recordID))
		if err != nil {
			return nil, storeError(err, "document")
		}
		return e.ownedBy(ctx, access.KindDocument, recordID, d.RequesterID)
	}))
	e.policy.Register(access.KindComplaint, access.LocatorFunc(func(ctx context.Context, recordID uuid.UUID) (*access.Resource, error) {
		c, err := e.stores.Complaints.FindComplaint(ctx, id.ComplaintID(recordID))
		if err != nil {
			return nil, storeError(err, "complaint")
		}
		return e.ownedBy(ctx, access.KindComplaint, recordID, c.CreatorID)
	}))
	e.policy.Register(access.KindRecipient, access.LocatorFunc(func(ctx context.Context, recordID uuid.UUID) (*access.Resource, error) {
		r, err := e.stores.Recipients.FindRecipient(ctx, id.RecipientID(recordID))
		if err != nil {
			return nil, storeError(err, "recipient")
		}
		return e.ownedBy(ctx, access.KindRecipient, recordID, r.ResidentID)
	}))
}

func (e *Engine) locateResident(ctx context.Context, recordID uuid.UUID) (*access.Resource, error) {
	return e.ownedBy(ctx, access.KindResident, recordID, id.ResidentID(recordID))
}

// ownedBy places a record at its owner's locality and family. A record whose
// owner profile is gone cannot be located.
func (e *Engine) ownedBy(ctx context.Context, kind access.ResourceKind, recordID uuid.UUID, owner id.ResidentID) (*access.Resource, error) {
	p, err := e.directory.Profile(ctx, owner)
	if err != nil {
		return nil, err
	}
	return &access.Resource{
		Kind:     kind,
		ID:       recordID,
		OwnerID:  &p.ID,
		FamilyID: p.FamilyID,
		Locality: p.Locality,
	}, nil
}
