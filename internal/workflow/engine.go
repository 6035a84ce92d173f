// Package workflow drives resident, document, complaint and social-assistance
// lifecycles. Every step is authorized before the write, committed atomically
// through the stores, and returns the notification events it produced.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"siwarga/internal/access"
	dirmodels "siwarga/internal/directory/models"
	"siwarga/internal/notification"
	"siwarga/internal/workflow/metrics"
	"siwarga/internal/workflow/models"
	id "siwarga/pkg/domain"
	dErrors "siwarga/pkg/domain-errors"
	"siwarga/pkg/platform/sentinel"
	"siwarga/pkg/requestcontext"
)

// Entity is the record a transition returns: *dirmodels.ResidentProfile,
// *models.Document, *models.Complaint or *models.Recipient.
type Entity any

// Directory resolves actors, audiences and profiles.
type Directory interface {
	Resolve(ctx context.Context, userID id.UserID) (*dirmodels.ActorContext, error)
	UsersWithRole(ctx context.Context, role id.Role, locality *id.Locality) ([]id.UserID, error)
	Profile(ctx context.Context, residentID id.ResidentID) (*dirmodels.ResidentProfile, error)
}

type ResidentStore interface {
	CreateProfile(ctx context.Context, p *dirmodels.ResidentProfile) error
	ExecuteProfile(ctx context.Context, residentID id.ResidentID, validate func(*dirmodels.ResidentProfile) error, mutate func(*dirmodels.ResidentProfile)) (*dirmodels.ResidentProfile, error)
	DeleteProfile(ctx context.Context, residentID id.ResidentID) error
}

type DocumentStore interface {
	CreateDocument(ctx context.Context, d *models.Document) error
	FindDocument(ctx context.Context, documentID id.DocumentID) (*models.Document, error)
	ExecuteDocument(ctx context.Context, documentID id.DocumentID, validate func(*models.Document) error, mutate func(*models.Document)) (*models.Document, error)
	ListDocuments(ctx context.Context, scope access.Scope) ([]*models.Document, error)
	CountDocumentsByRequester(ctx context.Context, residentID id.ResidentID) (int, error)
}

type ComplaintStore interface {
	CreateComplaint(ctx context.Context, c *models.Complaint) error
	FindComplaint(ctx context.Context, complaintID id.ComplaintID) (*models.Complaint, error)
	ExecuteComplaint(ctx context.Context, complaintID id.ComplaintID, validate func(*models.Complaint) error, mutate func(*models.Complaint)) (*models.Complaint, error)
	ListComplaints(ctx context.Context, scope access.Scope) ([]*models.Complaint, error)
	CountComplaintsByCreator(ctx context.Context, residentID id.ResidentID) (int, error)
}

type RecipientStore interface {
	CreateRecipient(ctx context.Context, r *models.Recipient) error
	FindRecipient(ctx context.Context, recipientID id.RecipientID) (*models.Recipient, error)
	ExecuteRecipient(ctx context.Context, recipientID id.RecipientID, validate func(*models.Recipient) error, mutate func(*models.Recipient)) (*models.Recipient, error)
	CountRecipientsByResident(ctx context.Context, residentID id.ResidentID) (int, error)
}

// Stores groups the persistence the engine writes through.
type Stores struct {
	Residents  ResidentStore
	Documents  DocumentStore
	Complaints ComplaintStore
	Recipients RecipientStore
}

// Dispatcher delivers events after commit. fanout.Service implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, events []notification.Event) (int, []error)
}

// Payload carries the action-specific input of a transition.
type Payload struct {
	Reason   string                 `json:"reason,omitempty" validate:"max=1000"`
	Response string                 `json:"response,omitempty" validate:"max=2000"`
	Status   models.ComplaintStatus `json:"status,omitempty" validate:"omitempty,oneof=DITINDAKLANJUTI SELESAI DITOLAK"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (p Payload) Validate() error {
	if err := validate.Struct(p); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid transition payload")
	}
	return nil
}

// supported lists the transitions each kind accepts.
var supported = map[access.ResourceKind][]access.Action{
	access.KindDocument: {
		access.ActionProcess, access.ActionApprove, access.ActionSign, access.ActionComplete, access.ActionReject,
	},
	access.KindResident:  {access.ActionVerify, access.ActionReject},
	access.KindRecipient: {access.ActionVerify},
	access.KindComplaint: {access.ActionRespond},
}

// Engine is the workflow engine.
type Engine struct {
	policy     *access.Policy
	directory  Directory
	stores     Stores
	dispatcher Dispatcher
	templates  *notification.Templates
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	inflight   sync.WaitGroup
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithDispatcher hands committed events to d on a detached goroutine.
// Without one, callers dispatch the returned events themselves.
func WithDispatcher(d Dispatcher) Option {
	return func(e *Engine) {
		e.dispatcher = d
	}
}

func WithTemplates(t *notification.Templates) Option {
	return func(e *Engine) {
		e.templates = t
	}
}

// New constructs an Engine and registers its resource locators on policy.
func New(policy *access.Policy, directory Directory, stores Stores, opts ...Option) (*Engine, error) {
	if policy == nil || directory == nil {
		return nil, errors.New("workflow engine needs a policy and a directory")
	}
	if stores.Residents == nil || stores.Documents == nil || stores.Complaints == nil || stores.Recipients == nil {
		return nil, errors.New("workflow engine needs resident, document, complaint and recipient stores")
	}
	e := &Engine{
		policy:    policy,
		directory: directory,
		stores:    stores,
		logger:    slog.Default(),
		tracer:    otel.Tracer("siwarga/workflow"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.templates == nil {
		e.templates = notification.DefaultTemplates()
	}
	e.registerLocators()
	return e, nil
}

// Transition applies action to an existing record of kind.
func (e *Engine) Transition(ctx context.Context, kind access.ResourceKind, entityID uuid.UUID, action access.Action, actorID id.UserID, payload Payload) (entity Entity, events []notification.Event, err error) {
	ctx, finish := e.begin(ctx, kind, action)
	defer func() { finish(events, err) }()

	if err := payload.Validate(); err != nil {
		return nil, nil, err
	}
	if !supports(kind, action) {
		return nil, nil, dErrors.New(dErrors.CodeBadRequest, "action "+action.String()+" is not supported for "+string(kind))
	}
	actor, _, err := e.policy.Decide(ctx, actorID, access.ResourceRef{Kind: kind, ID: entityID}, action)
	if err != nil {
		return nil, nil, err
	}

	switch kind {
	case access.KindDocument:
		entity, events, err = e.transitionDocument(ctx, actor, id.DocumentID(entityID), action, payload)
	case access.KindResident:
		entity, events, err = e.transitionResident(ctx, actor, id.ResidentID(entityID), action, payload)
	case access.KindRecipient:
		entity, events, err = e.transitionRecipient(ctx, actor, id.RecipientID(entityID))
	case access.KindComplaint:
		entity, events, err = e.transitionComplaint(ctx, actor, id.ComplaintID(entityID), payload)
	}
	if err != nil {
		return nil, nil, err
	}
	e.dispatch(ctx, events)
	return entity, events, nil
}

// Wait blocks until every detached dispatch has returned.
func (e *Engine) Wait() {
	e.inflight.Wait()
}

func supports(kind access.ResourceKind, action access.Action) bool {
	for _, a := range supported[kind] {
		if a == action {
			return true
		}
	}
	return false
}

// begin opens the span for one operation and returns the function recording
// its outcome.
func (e *Engine) begin(ctx context.Context, kind access.ResourceKind, action access.Action) (context.Context, func([]notification.Event, error)) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "workflow."+string(kind)+"."+action.String(),
		trace.WithAttributes(
			attribute.String("kind", string(kind)),
			attribute.String("action", action.String()),
		))
	return ctx, func(events []notification.Event, err error) {
		defer span.End()
		outcome := "ok"
		if err != nil {
			outcome = string(dErrors.CodeOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.SetAttributes(attribute.Int("events", len(events)))
		e.metrics.ObserveTransition(string(kind), action.String(), outcome, start)
		e.metrics.AddEvents(string(kind), len(events))
		if err != nil && outcome == string(dErrors.CodeInternal) {
			e.logger.ErrorContext(ctx, "workflow operation failed",
				"request_id", requestcontext.RequestID(ctx),
				"kind", string(kind),
				"action", action.String(),
				"error", err,
			)
		}
	}
}

// dispatch hands events to the dispatcher without blocking the caller. The
// request context's values survive but its cancellation does not.
func (e *Engine) dispatch(ctx context.Context, events []notification.Event) {
	if e.dispatcher == nil || len(events) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	e.inflight.Go(func() {
		persisted, errs := e.dispatcher.Dispatch(ctx, events)
		if len(errs) > 0 {
			e.logger.WarnContext(ctx, "notification dispatch incomplete",
				"request_id", requestcontext.RequestID(ctx),
				"events", len(events),
				"persisted", persisted,
				"failed", len(errs),
			)
		}
	})
}

// storeError translates store sentinels. Domain errors from Execute
// callbacks pass through.
func storeError(err error, what string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, what+" not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.Wrap(err, dErrors.CodeConflict, what+" already exists")
	case errors.Is(err, sentinel.ErrReferenced):
		return dErrors.Wrap(err, dErrors.CodeConflict, what+" still owns documents, complaints or assistance records")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store "+what)
	}
}
