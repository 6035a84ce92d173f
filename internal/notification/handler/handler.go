// Package handler exposes the signed-in user's notifications over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"siwarga/internal/notification"
	"siwarga/internal/notification/service"
	id "siwarga/pkg/domain"
	dErrors "siwarga/pkg/domain-errors"
	"siwarga/pkg/platform/httputil"
	"siwarga/pkg/requestcontext"
)

// Service defines the notification operations the handler needs.
type Service interface {
	List(ctx context.Context, userID id.UserID, filter service.Filter, page service.PageRequest) (*service.Page, error)
	UnreadCount(ctx context.Context, userID id.UserID) (int, error)
	MarkRead(ctx context.Context, userID id.UserID, notificationID id.NotificationID) error
	MarkAllRead(ctx context.Context, userID id.UserID) (int, error)
	Delete(ctx context.Context, userID id.UserID, notificationID id.NotificationID) error
	DeleteAllRead(ctx context.Context, userID id.UserID) (int, error)
}

type Handler struct {
	notifications Service
	logger        *slog.Logger
}

func New(notifications Service, logger *slog.Logger) *Handler {
	return &Handler{notifications: notifications, logger: logger}
}

// Register mounts the routes under /notifications. Callers install the auth
// middleware.
func (h *Handler) Register(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/unread-count", h.handleUnreadCount)
		r.Post("/read-all", h.handleMarkAllRead)
		r.Delete("/read", h.handleDeleteAllRead)
		r.Post("/{id}/read", h.handleMarkRead)
		r.Delete("/{id}", h.handleDelete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, page, err := parseListQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.notifications.List(ctx, requestcontext.UserID(ctx), filter, page)
	if err != nil {
		h.fail(ctx, w, "list notifications", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n, err := h.notifications.UnreadCount(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(ctx, w, "count unread notifications", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"unread": n})
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	notificationID, err := id.ParseNotificationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.notifications.MarkRead(ctx, requestcontext.UserID(ctx), notificationID); err != nil {
		h.fail(ctx, w, "mark notification read", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n, err := h.notifications.MarkAllRead(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(ctx, w, "mark all notifications read", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	notificationID, err := id.ParseNotificationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.notifications.Delete(ctx, requestcontext.UserID(ctx), notificationID); err != nil {
		h.fail(ctx, w, "delete notification", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteAllRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n, err := h.notifications.DeleteAllRead(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(ctx, w, "delete read notifications", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"deleted": n})
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

var knownTypes = map[notification.Type]bool{
	notification.TypeDocument:             true,
	notification.TypeResidentVerification: true,
	notification.TypeSocialAssistance:     true,
	notification.TypeComplaint:            true,
	notification.TypeAnnouncement:         true,
}

// parseListQuery reads page, per_page, type, is_read and include_expired.
func parseListQuery(r *http.Request) (service.Filter, service.PageRequest, error) {
	q := r.URL.Query()
	var (
		filter service.Filter
		page   service.PageRequest
		err    error
	)
	if page.Page, err = intParam(q.Get("page")); err != nil {
		return filter, page, err
	}
	if page.PerPage, err = intParam(q.Get("per_page")); err != nil {
		return filter, page, err
	}
	if raw := q.Get("type"); raw != "" {
		t := notification.Type(raw)
		if !knownTypes[t] {
			return filter, page, dErrors.New(dErrors.CodeBadRequest, "unknown notification type: "+raw)
		}
		filter.Type = &t
	}
	if raw := q.Get("is_read"); raw != "" {
		isRead, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, page, dErrors.New(dErrors.CodeBadRequest, "is_read must be true or false")
		}
		filter.IsRead = &isRead
	}
	if raw := q.Get("include_expired"); raw != "" {
		if filter.IncludeExpired, err = strconv.ParseBool(raw); err != nil {
			return filter, page, dErrors.New(dErrors.CodeBadRequest, "include_expired must be true or false")
		}
	}
	return filter, page, nil
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "page parameters must be integers")
	}
	return n, nil
}
