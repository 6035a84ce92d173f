// Package handler exposes the workflow engine over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"siwarga/internal/access"
	dirmodels "siwarga/internal/directory/models"
	"siwarga/internal/notification"
	"siwarga/internal/workflow"
	"siwarga/internal/workflow/models"
	id "siwarga/pkg/domain"
	dErrors "siwarga/pkg/domain-errors"
	"siwarga/pkg/platform/httputil"
	"siwarga/pkg/requestcontext"
)

// Engine defines the workflow operations the handler needs.
type Engine interface {
	Transition(ctx context.Context, kind access.ResourceKind, entityID uuid.UUID, action access.Action, actorID id.UserID, payload workflow.Payload) (workflow.Entity, []notification.Event, error)
	SubmitDocument(ctx context.Context, actorID id.UserID, req models.DocumentRequest) (*models.Document, []notification.Event, error)
	ListDocuments(ctx context.Context, actorID id.UserID) ([]*models.Document, error)
	FileComplaint(ctx context.Context, actorID id.UserID, req models.ComplaintRequest) (*models.Complaint, []notification.Event, error)
	ListComplaints(ctx context.Context, actorID id.UserID) ([]*models.Complaint, error)
	EnrollRecipient(ctx context.Context, actorID id.UserID, req models.RecipientRequest) (*models.Recipient, []notification.Event, error)
	RegisterResident(ctx context.Context, actorID id.UserID, in dirmodels.NewProfile) (*dirmodels.ResidentProfile, []notification.Event, error)
	UpdateResident(ctx context.Context, actorID id.UserID, residentID id.ResidentID, edit dirmodels.ProfileEdit) (*dirmodels.ResidentProfile, []notification.Event, error)
	DeleteResident(ctx context.Context, actorID id.UserID, residentID id.ResidentID) error
}

type Handler struct {
	engine Engine
	logger *slog.Logger
}

func New(engine Engine, logger *slog.Logger) *Handler {
	return &Handler{engine: engine, logger: logger}
}

// Register mounts the workflow routes. Callers install the auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Route("/workflow", func(r chi.Router) {
		r.Get("/documents", h.handleListDocuments)
		r.Post("/documents", h.handleSubmitDocument)
		r.Get("/complaints", h.handleListComplaints)
		r.Post("/complaints", h.handleFileComplaint)
		r.Post("/recipients", h.handleEnrollRecipient)
		r.Post("/residents", h.handleRegisterResident)
		r.Patch("/residents/{id}", h.handleUpdateResident)
		r.Delete("/residents/{id}", h.handleDeleteResident)
		r.Post("/{kind}/{id}/transitions", h.handleTransition)
	})
}

// TransitionRequest is the body of POST /workflow/{kind}/{id}/transitions.
type TransitionRequest struct {
	Action string `json:"action"`
	workflow.Payload
}

// ResidentRequest is the body for registering a resident.
type ResidentRequest struct {
	UserID     *id.UserID   `json:"user_id,omitempty"`
	NIK        string       `json:"nik"`
	NoKK       string       `json:"no_kk"`
	FullName   string       `json:"full_name"`
	BirthDate  time.Time    `json:"birth_date"`
	Address    string       `json:"address"`
	FamilyRole string       `json:"family_role"`
	Locality   id.Locality  `json:"locality"`
	FamilyID   *id.FamilyID `json:"family_id,omitempty"`
}

// ResidentEditRequest is a partial update; omitted fields are left unchanged.
type ResidentEditRequest struct {
	NIK        *string      `json:"nik,omitempty"`
	NoKK       *string      `json:"no_kk,omitempty"`
	FullName   *string      `json:"full_name,omitempty"`
	BirthDate  *time.Time   `json:"birth_date,omitempty"`
	Address    *string      `json:"address,omitempty"`
	FamilyRole *string      `json:"family_role,omitempty"`
	Locality   *id.Locality `json:"locality,omitempty"`
	FamilyID   *id.FamilyID `json:"family_id,omitempty"`
}

// Result wraps the record an operation produced and how many notification
// events it emitted.
type Result struct {
	Data          any `json:"data"`
	Notifications int `json:"notifications"`
}

var kinds = map[string]access.ResourceKind{
	"documents":  access.KindDocument,
	"complaints": access.KindComplaint,
	"recipients": access.KindRecipient,
	"residents":  access.KindResident,
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kind, ok := kinds[chi.URLParam(r, "kind")]
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown workflow kind"))
		return
	}
	entityID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid "+string(kind)+" id"))
		return
	}
	var req TransitionRequest
	if !h.decode(w, r, &req) {
		return
	}
	action, err := access.ParseAction(req.Action)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entity, events, err := h.engine.Transition(ctx, kind, entityID, action, requestcontext.UserID(ctx), req.Payload)
	if err != nil {
		h.fail(ctx, w, "transition "+string(kind), err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, Result{Data: entity, Notifications: len(events)})
}

func (h *Handler) handleSubmitDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.DocumentRequest
	if !h.decode(w, r, &req) {
		return
	}
	doc, events, err := h.engine.SubmitDocument(ctx, requestcontext.UserID(ctx), req)
	if err != nil {
		h.fail(ctx, w, "submit document", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, Result{Data: doc, Notifications: len(events)})
}

func (h *Handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docs, err := h.engine.ListDocuments(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(ctx, w, "list documents", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"items": docs})
}

func (h *Handler) handleFileComplaint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.ComplaintRequest
	if !h.decode(w, r, &req) {
		return
	}
	complaint, events, err := h.engine.FileComplaint(ctx, requestcontext.UserID(ctx), req)
	if err != nil {
		h.fail(ctx, w, "file complaint", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, Result{Data: complaint, Notifications: len(events)})
}

func (h *Handler) handleListComplaints(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	complaints, err := h.engine.ListComplaints(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(ctx, w, "list complaints", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"items": complaints})
}

func (h *Handler) handleEnrollRecipient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.RecipientRequest
	if !h.decode(w, r, &req) {
		return
	}
	recipient, events, err := h.engine.EnrollRecipient(ctx, requestcontext.UserID(ctx), req)
	if err != nil {
		h.fail(ctx, w, "enroll recipient", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, Result{Data: recipient, Notifications: len(events)})
}

func (h *Handler) handleRegisterResident(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req ResidentRequest
	if !h.decode(w, r, &req) {
		return
	}
	profile, events, err := h.engine.RegisterResident(ctx, requestcontext.UserID(ctx), dirmodels.NewProfile{
		UserID:     req.UserID,
		NIK:        req.NIK,
		NoKK:       req.NoKK,
		FullName:   req.FullName,
		BirthDate:  req.BirthDate,
		Address:    req.Address,
		FamilyRole: req.FamilyRole,
		Locality:   req.Locality,
		FamilyID:   req.FamilyID,
	})
	if err != nil {
		h.fail(ctx, w, "register resident", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, Result{Data: profile, Notifications: len(events)})
}

func (h *Handler) handleUpdateResident(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	residentID, err := id.ParseResidentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req ResidentEditRequest
	if !h.decode(w, r, &req) {
		return
	}
	profile, events, err := h.engine.UpdateResident(ctx, requestcontext.UserID(ctx), residentID, dirmodels.ProfileEdit{
		NIK:        req.NIK,
		NoKK:       req.NoKK,
		FullName:   req.FullName,
		BirthDate:  req.BirthDate,
		Address:    req.Address,
		FamilyRole: req.FamilyRole,
		Locality:   req.Locality,
		FamilyID:   req.FamilyID,
	})
	if err != nil {
		h.fail(ctx, w, "update resident", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, Result{Data: profile, Notifications: len(events)})
}

func (h *Handler) handleDeleteResident(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	residentID, err := id.ParseResidentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.engine.DeleteResident(ctx, requestcontext.UserID(ctx), residentID); err != nil {
		h.fail(ctx, w, "delete resident", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.WarnContext(r.Context(), "invalid workflow request body",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if httputil.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, op+" failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
