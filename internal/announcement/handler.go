package announcement

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	id "siwarga/pkg/domain"
	dErrors "siwarga/pkg/domain-errors"
	"siwarga/pkg/platform/httputil"
	"siwarga/pkg/requestcontext"
)

// Composer is the operation the announcement handler needs.
type Composer interface {
	Compose(ctx context.Context, actorID id.UserID, draft Draft) (*Announcement, error)
}

type Handler struct {
	composer Composer
	logger   *slog.Logger
}

func NewHandler(composer Composer, logger *slog.Logger) *Handler {
	return &Handler{composer: composer, logger: logger}
}

// Register mounts POST /announcements. Callers install the auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/announcements", h.handleCompose)
}

type composeResponse struct {
	ID        string `json:"id"`
	Priority  string `json:"priority"`
	Target    string `json:"target"`
	Delivered int    `json:"delivered"`
}

func (h *Handler) handleCompose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var draft Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		h.logger.WarnContext(ctx, "invalid announcement body",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	a, err := h.composer.Compose(ctx, requestcontext.UserID(ctx), draft)
	if err != nil {
		if httputil.StatusFor(err) >= http.StatusInternalServerError {
			h.logger.ErrorContext(ctx, "compose announcement failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, composeResponse{
		ID:        a.ID.String(),
		Priority:  string(a.Event.Priority),
		Target:    a.Event.Target.String(),
		Delivered: a.Delivered,
	})
}
