package workflow

import (
	"context"

	"github.com/google/uuid"

	"siwarga/internal/access"
	dirmodels "siwarga/internal/directory/models"
	"siwarga/internal/notification"
	id "siwarga/pkg/domain"
	dErrors "siwarga/pkg/domain-errors"
	"siwarga/pkg/requestcontext"
)

// RegisterResident creates an unverified profile and asks the locality's RT
// heads to verify it.
//
// A user without a profile may register one for themselves. Everyone else
// needs create rights on the target locality.
func (e *Engine) RegisterResident(ctx context.Context, actorID id.UserID, in dirmodels.NewProfile) (profile *dirmodels.ResidentProfile, events []notification.Event, err error) {
	ctx, finish := e.begin(ctx, access.KindResident, access.ActionCreate)
	defer func() { finish(events, err) }()

	locality, err := id.NewLocality(in.Locality.RTNumber, in.Locality.RWNumber)
	if err != nil {
		return nil, nil, err
	}
	in.Locality = locality

	actor, err := e.directory.Resolve(ctx, actorID)
	switch {
	case err == nil:
		area, ref := access.LocalityResource(locality), access.ResourceRef{Kind: access.KindLocality}
		if err := e.policy.Enforce(ctx, actor, area, ref, access.ActionCreate); err != nil {
			return nil, nil, err
		}
		if in.FamilyID != nil {
			if err := e.policy.Enforce(ctx, actor, area, ref, access.ActionReassignFamily); err != nil {
				return nil, nil, err
			}
		}
	case dErrors.HasCode(err, dErrors.CodeNotFound) && in.UserID != nil && *in.UserID == actorID:
		if in.FamilyID != nil {
			return nil, nil, dErrors.New(dErrors.CodeForbidden, "family can only be assigned by RW or ADMIN")
		}
	default:
		return nil, nil, err
	}

	profile, err = dirmodels.NewResidentProfile(id.ResidentID(uuid.New()), in, requestcontext.Now(ctx))
	if err != nil {
		return nil, nil, err
	}
	if err := e.stores.Residents.CreateProfile(ctx, profile); err != nil {
		return nil, nil, storeError(err, "resident with this nik or account")
	}

	e.logger.InfoContext(ctx, "resident registered",
		"request_id", requestcontext.RequestID(ctx),
		"resident_id", profile.ID.String(),
		"locality", locality.String(),
		"user_id", actorID.String(),
	)
	events = e.verificationNeeded(ctx, profile)
	e.dispatch(ctx, events)
	return profile, events, nil
}

// UpdateResident applies a partial edit.
//
// Moving a profile to another locality needs correct-locality rights and
// linking it to another family needs reassign-family rights, both RW and
// above. Owners edit their own profile through self-update; RT heads edit
// profiles in their locality. Changing an identity field of a verified
// profile resets verification and asks the RT heads to verify again.
func (e *Engine) UpdateResident(ctx context.Context, actorID id.UserID, residentID id.ResidentID, edit dirmodels.ProfileEdit) (profile *dirmodels.ResidentProfile, events []notification.Event, err error) {
	ctx, finish := e.begin(ctx, access.KindResident, access.ActionUpdate)
	defer func() { finish(events, err) }()

	if edit.IsEmpty() {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "nothing to update")
	}
	if edit.Locality != nil {
		locality, err := id.NewLocality(edit.Locality.RTNumber, edit.Locality.RWNumber)
		if err != nil {
			return nil, nil, err
		}
		edit.Locality = &locality
	}

	actor, err := e.directory.Resolve(ctx, actorID)
	if err != nil {
		return nil, nil, err
	}
	ref := access.ResourceRef{Kind: access.KindResident, ID: uuid.UUID(residentID)}
	resource, err := e.policy.Locate(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	action := editAction(actor, resource, edit)
	if err := e.policy.Enforce(ctx, actor, *resource, ref, action); err != nil {
		return nil, nil, err
	}
	if action == access.ActionCorrectLocality && edit.ChangesFamily(resource.FamilyID) {
		if err := e.policy.Enforce(ctx, actor, *resource, ref, access.ActionReassignFamily); err != nil {
			return nil, nil, err
		}
	}
	elevated := access.HasRank(actor.Role, id.RoleRW)

	var reset bool
	profile, err = e.stores.Residents.ExecuteProfile(ctx, residentID,
		func(p *dirmodels.ResidentProfile) error {
			if edit.ChangesLocality(p.Locality) && action != access.ActionCorrectLocality {
				return dErrors.New(dErrors.CodeForbidden, "locality can only be corrected by RW or ADMIN")
			}
			if edit.ChangesFamily(p.FamilyID) && !elevated {
				return dErrors.New(dErrors.CodeForbidden, "family can only be assigned by RW or ADMIN")
			}
			return p.CanApplyEdit(edit)
		},
		func(p *dirmodels.ResidentProfile) {
			reset = p.ApplyEdit(edit, requestcontext.Now(ctx))
		},
	)
	if err != nil {
		return nil, nil, storeError(err, "resident with this nik")
	}

	e.logger.InfoContext(ctx, "resident updated",
		"request_id", requestcontext.RequestID(ctx),
		"resident_id", profile.ID.String(),
		"action", action.String(),
		"verification_reset", reset,
		"user_id", actorID.String(),
	)
	if reset {
		events = e.verificationNeeded(ctx, profile)
	}
	e.dispatch(ctx, events)
	return profile, events, nil
}

func editAction(actor *dirmodels.ActorContext, resource *access.Resource, edit dirmodels.ProfileEdit) access.Action {
	switch {
	case edit.ChangesLocality(resource.Locality):
		return access.ActionCorrectLocality
	case edit.ChangesFamily(resource.FamilyID):
		return access.ActionReassignFamily
	case resource.OwnerID != nil && actor.ResidentID != nil && *resource.OwnerID == *actor.ResidentID:
		return access.ActionSelfUpdate
	default:
		return access.ActionUpdate
	}
}

// DeleteResident removes a profile that owns no documents, complaints or
// assistance enrollments. A record created between the check and the delete
// surfaces as a conflict from the store.
func (e *Engine) DeleteResident(ctx context.Context, actorID id.UserID, residentID id.ResidentID) (err error) {
	ctx, finish := e.begin(ctx, access.KindResident, access.ActionDelete)
	defer func() { finish(nil, err) }()

	if _, _, err := e.policy.Decide(ctx, actorID, access.ResourceRef{Kind: access.KindResident, ID: uuid.UUID(residentID)}, access.ActionDelete); err != nil {
		return err
	}

	counts := []func(context.Context, id.ResidentID) (int, error){
		e.stores.Documents.CountDocumentsByRequester,
		e.stores.Complaints.CountComplaintsByCreator,
		e.stores.Recipients.CountRecipientsByResident,
	}
	for _, count := range counts {
		n, err := count(ctx, residentID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check resident records")
		}
		if n > 0 {
			return dErrors.New(dErrors.CodeConflict, "resident still owns documents, complaints or assistance records")
		}
	}

	if err := e.stores.Residents.DeleteProfile(ctx, residentID); err != nil {
		return storeError(err, "resident")
	}
	e.logger.InfoContext(ctx, "resident deleted",
		"request_id", requestcontext.RequestID(ctx),
		"resident_id", residentID.String(),
		"user_id", actorID.String(),
	)
	return nil
}

// transitionResident verifies a profile, or records a rejection. A rejection
// is logged only: there is no rejected state and nobody is notified.
func (e *Engine) transitionResident(ctx context.Context, actor *dirmodels.ActorContext, residentID id.ResidentID, action access.Action, payload Payload) (*dirmodels.ResidentProfile, []notification.Event, error) {
	if action == access.ActionReject {
		if payload.Reason == "" {
			return nil, nil, dErrors.New(dErrors.CodeValidation, "reason is required to reject a resident")
		}
		profile, err := e.directory.Profile(ctx, residentID)
		if err != nil {
			return nil, nil, err
		}
		e.logger.InfoContext(ctx, "resident verification rejected",
			"request_id", requestcontext.RequestID(ctx),
			"resident_id", residentID.String(),
			"reason", payload.Reason,
			"user_id", actor.UserID.String(),
		)
		return profile, nil, nil
	}

	now := requestcontext.Now(ctx)
	profile, err := e.stores.Residents.ExecuteProfile(ctx, residentID,
		func(p *dirmodels.ResidentProfile) error { return p.CanVerify() },
		func(p *dirmodels.ResidentProfile) { p.ApplyVerification(actor.DisplayName, now) },
	)
	if err != nil {
		return nil, nil, storeError(err, "resident")
	}
	e.logger.InfoContext(ctx, "resident verified",
		"request_id", requestcontext.RequestID(ctx),
		"resident_id", residentID.String(),
		"user_id", actor.UserID.String(),
	)
	return profile, nil, nil
}
