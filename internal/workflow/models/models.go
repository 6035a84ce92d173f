// Package models holds the workflow records and their state machines.
package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	id "siwarga/pkg/domain"
	dErrors "siwarga/pkg/domain-errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func validateStruct(v any, msg string) error {
	if err := validate.Struct(v); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, msg)
	}
	return nil
}

// DocumentStatus is the lifecycle state of a document request.
type DocumentStatus string

const (
	DocumentSubmitted  DocumentStatus = "DIAJUKAN"
	DocumentProcessing DocumentStatus = "DIPROSES"
	DocumentApproved   DocumentStatus = "DISETUJUI"
	DocumentSigned     DocumentStatus = "DITANDATANGANI"
	DocumentCompleted  DocumentStatus = "SELESAI"
	DocumentRejected   DocumentStatus = "DITOLAK"
)

func (s DocumentStatus) IsTerminal() bool {
	return s == DocumentCompleted || s == DocumentRejected
}

// DocumentAction is a document lifecycle step.
type DocumentAction string

const (
	DocumentProcess  DocumentAction = "process"
	DocumentApprove  DocumentAction = "approve"
	DocumentSign     DocumentAction = "sign"
	DocumentComplete DocumentAction = "complete"
	DocumentReject   DocumentAction = "reject"
)

type documentStep struct {
	from []DocumentStatus
	to   DocumentStatus
}

// Reject is handled separately: it is reachable from every non-terminal state.
var documentSteps = map[DocumentAction]documentStep{
	DocumentProcess:  {from: []DocumentStatus{DocumentSubmitted}, to: DocumentProcessing},
	DocumentApprove:  {from: []DocumentStatus{DocumentSubmitted, DocumentProcessing}, to: DocumentApproved},
	DocumentSign:     {from: []DocumentStatus{DocumentApproved}, to: DocumentSigned},
	DocumentComplete: {from: []DocumentStatus{DocumentSigned}, to: DocumentCompleted},
}

// Document is a letter request (surat pengantar, domisili, ...) by a resident.
type Document struct {
	ID              id.DocumentID  `json:"id"`
	RequesterID     id.ResidentID  `json:"requester_id"`
	Type            string         `json:"type"`
	Purpose         string         `json:"purpose"`
	Status          DocumentStatus `json:"status"`
	ApprovedBy      string         `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time     `json:"approved_at,omitempty"`
	SignedBy        string         `json:"signed_by,omitempty"`
	SignedAt        *time.Time     `json:"signed_at,omitempty"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// DocumentRequest is the input for submitting a document.
type DocumentRequest struct {
	RequesterID *id.ResidentID `json:"requester_id,omitempty"`
	Type        string         `json:"type" validate:"required,max=100"`
	Purpose     string         `json:"purpose" validate:"required,max=500"`
}

// NewDocument builds a submitted document.
func NewDocument(documentID id.DocumentID, requester id.ResidentID, req DocumentRequest, now time.Time) (*Document, error) {
	req.Type = strings.TrimSpace(req.Type)
	req.Purpose = strings.TrimSpace(req.Purpose)
	if err := validateStruct(req, "invalid document request"); err != nil {
		return nil, err
	}
	return &Document{
		ID:          documentID,
		RequesterID: requester,
		Type:        req.Type,
		Purpose:     req.Purpose,
		Status:      DocumentSubmitted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// CanApply checks that action is reachable from the current status.
func (d *Document) CanApply(action DocumentAction, reason string) error {
	if action == DocumentReject {
		if d.Status.IsTerminal() {
			return dErrors.New(dErrors.CodeInvalidTransition, "cannot reject a document in status "+string(d.Status))
		}
		if strings.TrimSpace(reason) == "" {
			return dErrors.New(dErrors.CodeValidation, "reason is required to reject a document")
		}
		return nil
	}
	step, ok := documentSteps[action]
	if !ok {
		return dErrors.New(dErrors.CodeBadRequest, "unsupported document action: "+string(action))
	}
	for _, from := range step.from {
		if d.Status == from {
			return nil
		}
	}
	return dErrors.New(dErrors.CodeInvalidTransition,
		"cannot "+string(action)+" a document in status "+string(d.Status))
}

// Apply moves the document and records the step's audit fields.
// Call CanApply first.
func (d *Document) Apply(action DocumentAction, actor, reason string, now time.Time) {
	switch action {
	case DocumentReject:
		d.Status = DocumentRejected
		d.RejectionReason = strings.TrimSpace(reason)
	case DocumentApprove:
		d.ApprovedBy = actor
		d.ApprovedAt = &now
	case DocumentSign:
		d.SignedBy = actor
		d.SignedAt = &now
	case DocumentComplete:
		d.CompletedAt = &now
	}
	if step, ok := documentSteps[action]; ok {
		d.Status = step.to
	}
	d.UpdatedAt = now
}

// ComplaintStatus is the lifecycle state of a complaint. Every status but
// DITERIMA is terminal.
type ComplaintStatus string

const (
	ComplaintReceived   ComplaintStatus = "DITERIMA"
	ComplaintFollowedUp ComplaintStatus = "DITINDAKLANJUTI"
	ComplaintResolved   ComplaintStatus = "SELESAI"
	ComplaintRejected   ComplaintStatus = "DITOLAK"
)

func (s ComplaintStatus) IsTerminal() bool {
	return s != ComplaintReceived
}

// Complaint is a resident's report to the RT/RW.
type Complaint struct {
	ID          id.ComplaintID  `json:"id"`
	CreatorID   id.ResidentID   `json:"creator_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Status      ComplaintStatus `json:"status"`
	Response    string          `json:"response,omitempty"`
	RespondedBy string          `json:"responded_by,omitempty"`
	RespondedAt *time.Time      `json:"responded_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ComplaintRequest is the input for filing a complaint.
type ComplaintRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=5000"`
	Category    string `json:"category" validate:"max=100"`
}

func NewComplaint(complaintID id.ComplaintID, creator id.ResidentID, req ComplaintRequest, now time.Time) (*Complaint, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Category = strings.TrimSpace(req.Category)
	if err := validateStruct(req, "invalid complaint"); err != nil {
		return nil, err
	}
	return &Complaint{
		ID:          complaintID,
		CreatorID:   creator,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Status:      ComplaintReceived,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// CanRespond checks a response moving the complaint to status.
func (c *Complaint) CanRespond(status ComplaintStatus, response string) error {
	if c.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeInvalidTransition, "complaint already closed with status "+string(c.Status))
	}
	if !status.IsTerminal() || !isComplaintStatus(status) {
		return dErrors.New(dErrors.CodeValidation, "invalid response status: "+string(status))
	}
	if strings.TrimSpace(response) == "" {
		return dErrors.New(dErrors.CodeValidation, "response is required")
	}
	return nil
}

// ApplyResponse closes the complaint. Call CanRespond first.
func (c *Complaint) ApplyResponse(status ComplaintStatus, response, by string, now time.Time) {
	c.Status = status
	c.Response = strings.TrimSpace(response)
	c.RespondedBy = by
	c.RespondedAt = &now
	c.UpdatedAt = now
}

func isComplaintStatus(s ComplaintStatus) bool {
	switch s {
	case ComplaintReceived, ComplaintFollowedUp, ComplaintResolved, ComplaintRejected:
		return true
	}
	return false
}

// Recipient is a resident enrolled in a social-assistance program.
type Recipient struct {
	ID             id.RecipientID `json:"id"`
	ResidentID     id.ResidentID  `json:"resident_id"`
	Program        string         `json:"program"`
	AssistanceType string         `json:"assistance_type"`
	IsVerified     bool           `json:"is_verified"`
	VerifiedBy     string         `json:"verified_by,omitempty"`
	VerifiedAt     *time.Time     `json:"verified_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// RecipientRequest is the input for enrolling a resident.
type RecipientRequest struct {
	ResidentID     id.ResidentID `json:"resident_id"`
	Program        string        `json:"program" validate:"required,max=100"`
	AssistanceType string        `json:"assistance_type" validate:"max=100"`
}

func NewRecipient(recipientID id.RecipientID, req RecipientRequest, now time.Time) (*Recipient, error) {
	req.Program = strings.TrimSpace(req.Program)
	req.AssistanceType = strings.TrimSpace(req.AssistanceType)
	if err := validateStruct(req, "invalid recipient"); err != nil {
		return nil, err
	}
	return &Recipient{
		ID:             recipientID,
		ResidentID:     req.ResidentID,
		Program:        req.Program,
		AssistanceType: req.AssistanceType,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (r *Recipient) CanVerify() error {
	if r.IsVerified {
		return dErrors.New(dErrors.CodeInvalidTransition, "recipient is already verified")
	}
	return nil
}

// ApplyVerification records who verified the recipient. Call CanVerify first.
func (r *Recipient) ApplyVerification(verifiedBy string, now time.Time) {
	r.IsVerified = true
	r.VerifiedBy = verifiedBy
	r.VerifiedAt = &now
	r.UpdatedAt = now
}
