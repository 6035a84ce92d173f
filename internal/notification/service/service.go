// Package service is the read and housekeeping surface over a user's notifications.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"siwarga/internal/notification"
	"siwarga/internal/notification/metrics"
	"siwarga/internal/notification/store"
	id "siwarga/pkg/domain"
	dErrors "siwarga/pkg/domain-errors"
	"siwarga/pkg/platform/sentinel"
	"siwarga/pkg/requestcontext"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
	MaxPage        = 100_000
)

type Store interface {
	Create(ctx context.Context, n *notification.Notification) error
	List(ctx context.Context, userID id.UserID, q store.Query) ([]*notification.Notification, int, error)
	CountUnread(ctx context.Context, userID id.UserID, now time.Time) (int, error)
	MarkRead(ctx context.Context, userID id.UserID, notificationID id.NotificationID, now time.Time) error
	MarkAllRead(ctx context.Context, userID id.UserID, now time.Time) (int, error)
	Delete(ctx context.Context, userID id.UserID, notificationID id.NotificationID) error
	DeleteAllRead(ctx context.Context, userID id.UserID) (int, error)
}

type UnreadCache interface {
	Get(ctx context.Context, userID id.UserID) (int, bool, error)
	Set(ctx context.Context, userID id.UserID, count int) error
	Invalidate(ctx context.Context, userIDs ...id.UserID) error
}

// Filter narrows a listing. Nil fields do not filter.
type Filter struct {
	IsRead         *bool
	Type           *notification.Type
	IncludeExpired bool
}

// PageRequest is a 1-based page request.
type PageRequest struct {
	Page    int
	PerPage int
}

// Normalize applies defaults (page 1, 20 per page) and caps PerPage at 100
// and Page at MaxPage, so the row offset always fits an int.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

// Page is one page of a user's notifications plus the unread total.
type Page struct {
	Items   []*notification.Notification `json:"items"`
	Total   int                          `json:"total"`
	Page    int                          `json:"page"`
	PerPage int                          `json:"per_page"`
	Unread  int                          `json:"unread"`
}

// Service serves notification reads and owner-scoped mutations.
type Service struct {
	store   Store
	cache   UnreadCache
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithUnreadCache serves UnreadCount from cache, falling back to the store.
func WithUnreadCache(cache UnreadCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create persists one notification row and invalidates the owner's unread count.
func (s *Service) Create(ctx context.Context, n *notification.Notification) error {
	if err := s.store.Create(ctx, n); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store notification")
	}
	s.invalidate(ctx, n.UserID)
	return nil
}

// List returns one page of the user's notifications, newest first, each with
// its relative age.
func (s *Service) List(ctx context.Context, userID id.UserID, filter Filter, page PageRequest) (*Page, error) {
	page = page.Normalize()
	now := requestcontext.Now(ctx)

	items, total, err := s.store.List(ctx, userID, store.Query{
		IsRead:         filter.IsRead,
		Type:           filter.Type,
		IncludeExpired: filter.IncludeExpired,
		Now:            now,
		Offset:         (page.Page - 1) * page.PerPage,
		Limit:          page.PerPage,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifications")
	}
	for _, n := range items {
		n.Age = notification.RelativeAge(n.CreatedAt, now)
	}

	unread, err := s.UnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*notification.Notification{}
	}
	return &Page{Items: items, Total: total, Page: page.Page, PerPage: page.PerPage, Unread: unread}, nil
}

// UnreadCount returns the number of unread visible notifications.
func (s *Service) UnreadCount(ctx context.Context, userID id.UserID) (int, error) {
	if s.cache != nil {
		n, ok, err := s.cache.Get(ctx, userID)
		switch {
		case err != nil:
			s.metrics.IncrementUnreadCache("error")
			s.logger.WarnContext(ctx, "unread cache lookup failed", "user_id", userID.String(), "error", err)
		case ok:
			s.metrics.IncrementUnreadCache("hit")
			return n, nil
		default:
			s.metrics.IncrementUnreadCache("miss")
		}
	}

	n, err := s.store.CountUnread(ctx, userID, requestcontext.Now(ctx))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count unread notifications")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, userID, n); err != nil {
			s.logger.WarnContext(ctx, "unread cache write failed", "user_id", userID.String(), "error", err)
		}
	}
	return n, nil
}

// MarkRead marks one of the user's notifications read. Another user's id is NotFound.
func (s *Service) MarkRead(ctx context.Context, userID id.UserID, notificationID id.NotificationID) error {
	if err := s.store.MarkRead(ctx, userID, notificationID, requestcontext.Now(ctx)); err != nil {
		return translate(err, "failed to mark notification read")
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID id.UserID) (int, error) {
	n, err := s.store.MarkAllRead(ctx, userID, requestcontext.Now(ctx))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notifications read")
	}
	s.invalidate(ctx, userID)
	return n, nil
}

// Delete removes one of the user's notifications. Another user's id is NotFound.
func (s *Service) Delete(ctx context.Context, userID id.UserID, notificationID id.NotificationID) error {
	if err := s.store.Delete(ctx, userID, notificationID); err != nil {
		return translate(err, "failed to delete notification")
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *Service) DeleteAllRead(ctx context.Context, userID id.UserID) (int, error) {
	n, err := s.store.DeleteAllRead(ctx, userID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete read notifications")
	}
	s.invalidate(ctx, userID)
	return n, nil
}

func (s *Service) invalidate(ctx context.Context, userID id.UserID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "unread cache invalidation failed", "user_id", userID.String(), "error", err)
	}
}

func translate(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "notification not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
