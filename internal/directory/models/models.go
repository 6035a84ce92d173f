package models

import (
	"regexp"
	"strings"
	"time"

	id "siwarga/pkg/domain"
	dErrors "siwarga/pkg/domain-errors"
)

var sixteenDigits = regexp.MustCompile(`^[0-9]{16}$`)

// User is an authenticated account. RT accounts may carry a direct link to
// their RT assignment.
type User struct {
	ID             id.UserID `json:"id"`
	Name           string    `json:"name"`
	Role           id.Role   `json:"role"`
	RTAssignmentID *id.RTID  `json:"rt_assignment_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// RTAssignment is an administrative RT block within an RW.
type RTAssignment struct {
	ID       id.RTID `json:"id"`
	Number   string  `json:"number"`
	RWNumber string  `json:"rw_number"`
	IsActive bool    `json:"is_active"`
}

func (a *RTAssignment) Locality() id.Locality {
	return id.Locality{RTNumber: a.Number, RWNumber: a.RWNumber}
}

// ResidentProfile is a resident record.
//
// Invariants:
//   - NIK and NoKK are 16 digits; NIK is unique across profiles
//   - at most one profile per user
//   - Locality changes only through a correct-locality edit
//   - editing an identity field of a verified profile resets verification
type ResidentProfile struct {
	ID         id.ResidentID `json:"id"`
	UserID     *id.UserID    `json:"user_id,omitempty"`
	NIK        string        `json:"nik"`
	NoKK       string        `json:"no_kk"`
	FullName   string        `json:"full_name"`
	BirthDate  time.Time     `json:"birth_date"`
	Address    string        `json:"address"`
	FamilyRole string        `json:"family_role"`
	Locality   id.Locality   `json:"locality"`
	FamilyID   *id.FamilyID  `json:"family_id,omitempty"`
	RTID       *id.RTID      `json:"rt_id,omitempty"`
	IsVerified bool          `json:"is_verified"`
	VerifiedBy string        `json:"verified_by,omitempty"`
	VerifiedAt *time.Time    `json:"verified_at,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// NewProfile holds the fields needed to register a resident.
type NewProfile struct {
	UserID     *id.UserID
	NIK        string
	NoKK       string
	FullName   string
	BirthDate  time.Time
	Address    string
	FamilyRole string
	Locality   id.Locality
	FamilyID   *id.FamilyID
	RTID       *id.RTID
}

// NewResidentProfile builds an unverified profile.
func NewResidentProfile(residentID id.ResidentID, in NewProfile, now time.Time) (*ResidentProfile, error) {
	p := &ResidentProfile{
		ID:         residentID,
		UserID:     in.UserID,
		NIK:        strings.TrimSpace(in.NIK),
		NoKK:       strings.TrimSpace(in.NoKK),
		FullName:   strings.TrimSpace(in.FullName),
		BirthDate:  in.BirthDate,
		Address:    strings.TrimSpace(in.Address),
		FamilyRole: strings.TrimSpace(in.FamilyRole),
		Locality:   in.Locality,
		FamilyID:   in.FamilyID,
		RTID:       in.RTID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := p.validateIdentity(); err != nil {
		return nil, err
	}
	if p.Locality.RTNumber == "" || p.Locality.RWNumber == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "locality is required")
	}
	return p, nil
}

func (p *ResidentProfile) validateIdentity() error {
	if !sixteenDigits.MatchString(p.NIK) {
		return dErrors.New(dErrors.CodeInvariantViolation, "nik must be 16 digits")
	}
	if !sixteenDigits.MatchString(p.NoKK) {
		return dErrors.New(dErrors.CodeInvariantViolation, "no_kk must be 16 digits")
	}
	if p.FullName == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "full name cannot be empty")
	}
	return nil
}

// IsOwnedBy reports whether the profile belongs to the given user.
func (p *ResidentProfile) IsOwnedBy(userID id.UserID) bool {
	return p.UserID != nil && *p.UserID == userID
}

// CanVerify checks the UNVERIFIED -> VERIFIED transition.
func (p *ResidentProfile) CanVerify() error {
	if p.IsVerified {
		return dErrors.New(dErrors.CodeInvalidTransition, "resident is already verified")
	}
	return nil
}

// ApplyVerification records who verified the profile and when.
// Call CanVerify first.
func (p *ResidentProfile) ApplyVerification(verifiedBy string, now time.Time) {
	p.IsVerified = true
	p.VerifiedBy = verifiedBy
	p.VerifiedAt = &now
	p.UpdatedAt = now
}

// ProfileEdit is a partial update. Nil fields are left unchanged.
type ProfileEdit struct {
	NIK        *string
	NoKK       *string
	FullName   *string
	BirthDate  *time.Time
	Address    *string
	FamilyRole *string
	Locality   *id.Locality
	FamilyID   *id.FamilyID
}

// IsEmpty reports whether the edit changes nothing.
func (e ProfileEdit) IsEmpty() bool {
	return e.NIK == nil && e.NoKK == nil && e.FullName == nil && e.BirthDate == nil &&
		e.Address == nil && e.FamilyRole == nil && e.Locality == nil && e.FamilyID == nil
}

// ChangesLocality reports whether the edit moves the profile to another locality.
func (e ProfileEdit) ChangesLocality(current id.Locality) bool {
	return e.Locality != nil && !e.Locality.Equal(current)
}

// ChangesFamily reports whether the edit links the profile to another family.
func (e ProfileEdit) ChangesFamily(current *id.FamilyID) bool {
	return e.FamilyID != nil && (current == nil || *current != *e.FamilyID)
}

// ChangesIdentity reports whether any identity field differs from p.
func (e ProfileEdit) ChangesIdentity(p *ResidentProfile) bool {
	return (e.NIK != nil && strings.TrimSpace(*e.NIK) != p.NIK) ||
		(e.NoKK != nil && strings.TrimSpace(*e.NoKK) != p.NoKK) ||
		(e.FullName != nil && strings.TrimSpace(*e.FullName) != p.FullName) ||
		(e.BirthDate != nil && !e.BirthDate.Equal(p.BirthDate)) ||
		(e.Address != nil && strings.TrimSpace(*e.Address) != p.Address) ||
		(e.FamilyRole != nil && strings.TrimSpace(*e.FamilyRole) != p.FamilyRole)
}

// CanApplyEdit validates the profile as it would look after the edit.
func (p *ResidentProfile) CanApplyEdit(e ProfileEdit) error {
	next := *p
	next.applyFields(e)
	return next.validateIdentity()
}

// ApplyEdit applies the edit and resets verification when an identity field
// of a verified profile changed. Returns true when verification was reset.
func (p *ResidentProfile) ApplyEdit(e ProfileEdit, now time.Time) bool {
	reset := p.IsVerified && e.ChangesIdentity(p)
	p.applyFields(e)
	if reset {
		p.IsVerified = false
		p.VerifiedBy = ""
		p.VerifiedAt = nil
	}
	p.UpdatedAt = now
	return reset
}

func (p *ResidentProfile) applyFields(e ProfileEdit) {
	if e.NIK != nil {
		p.NIK = strings.TrimSpace(*e.NIK)
	}
	if e.NoKK != nil {
		p.NoKK = strings.TrimSpace(*e.NoKK)
	}
	if e.FullName != nil {
		p.FullName = strings.TrimSpace(*e.FullName)
	}
	if e.BirthDate != nil {
		p.BirthDate = *e.BirthDate
	}
	if e.Address != nil {
		p.Address = strings.TrimSpace(*e.Address)
	}
	if e.FamilyRole != nil {
		p.FamilyRole = strings.TrimSpace(*e.FamilyRole)
	}
	if e.Locality != nil {
		p.Locality = *e.Locality
	}
	if e.FamilyID != nil {
		familyID := *e.FamilyID
		p.FamilyID = &familyID
	}
}

// ActorContext is the resolved identity used by authorization decisions.
// An ADMIN without a resident profile resolves to a global context with no
// ResidentID and a zero Locality.
type ActorContext struct {
	UserID      id.UserID
	Role        id.Role
	DisplayName string
	ResidentID  *id.ResidentID
	Locality    id.Locality
	FamilyID    *id.FamilyID
	RTID        *id.RTID
}

// IsGlobal reports whether the actor has no locality binding.
func (a *ActorContext) IsGlobal() bool {
	return a.ResidentID == nil
}
