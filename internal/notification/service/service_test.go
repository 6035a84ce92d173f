package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,UnreadCache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"siwarga/internal/notification"
	"siwarga/internal/notification/service/mocks"
	"siwarga/internal/notification/store"
	"siwarga/internal/notification/store/unreadcache"
	id "siwarga/pkg/domain"
	dErrors "siwarga/pkg/domain-errors"
	"siwarga/pkg/requestcontext"
)

// =============================================================================
// Notification Service Test Suite
// =============================================================================
// Justification: the read surface owns visibility (expiry, schedule), paging,
// owner scoping and unread-count caching. The in-memory store exercises the
// real filtering; mocks cover cache behavior and error translation.

type ServiceSuite struct {
	suite.Suite
	store   *store.InMemoryStore
	service *Service
	now     time.Time
	ctx     context.Context
	user    id.UserID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.service = New(s.store, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.now = time.Date(2026, 4, 10, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.user = id.UserID(uuid.New())
}

func (s *ServiceSuite) add(userID id.UserID, createdAgo time.Duration, mutate func(*notification.Notification)) *notification.Notification {
	e := notification.Event{
		Type:    notification.TypeDocument,
		Title:   "Surat Disetujui",
		Message: "pesan",
		Source:  notification.Source{Kind: "document", ID: uuid.New()},
	}
	n := e.ForRecipient(userID, s.now.Add(-createdAgo))
	if mutate != nil {
		mutate(n)
	}
	s.Require().NoError(s.service.Create(s.ctx, n))
	return n
}

func (s *ServiceSuite) TestListExpiryFiltering() {
	expiredAt := s.now.Add(-time.Second)
	expired := s.add(s.user, time.Hour, func(n *notification.Notification) { n.ExpiresAt = &expiredAt })
	permanent := s.add(s.user, 2*time.Hour, nil)

	s.Run("expired rows hidden by default", func() {
		page, err := s.service.List(s.ctx, s.user, Filter{}, PageRequest{})
		s.Require().NoError(err)
		s.Require().Len(page.Items, 1)
		s.Equal(permanent.ID, page.Items[0].ID)
		s.Equal(1, page.Total)
	})

	s.Run("include expired", func() {
		page, err := s.service.List(s.ctx, s.user, Filter{IncludeExpired: true}, PageRequest{})
		s.Require().NoError(err)
		s.Require().Len(page.Items, 2)
		s.Equal(expired.ID, page.Items[0].ID, "newest first")
	})
}

func (s *ServiceSuite) TestListHidesScheduledRows() {
	later := s.now.Add(time.Hour)
	s.add(s.user, 0, func(n *notification.Notification) { n.ScheduledFor = &later })
	earlier := s.now.Add(-time.Hour)
	due := s.add(s.user, 2*time.Hour, func(n *notification.Notification) { n.ScheduledFor = &earlier })

	page, err := s.service.List(s.ctx, s.user, Filter{IncludeExpired: true}, PageRequest{})
	s.Require().NoError(err)
	s.Require().Len(page.Items, 1)
	s.Equal(due.ID, page.Items[0].ID)
}

func (s *ServiceSuite) TestListFiltersPagingAndAge() {
	for i := range 25 {
		s.add(s.user, time.Duration(i+1)*time.Minute, nil)
	}
	s.add(id.UserID(uuid.New()), time.Minute, nil)

	page, err := s.service.List(s.ctx, s.user, Filter{}, PageRequest{Page: 2})
	s.Require().NoError(err)
	s.Equal(25, page.Total)
	s.Equal(2, page.Page)
	s.Equal(DefaultPerPage, page.PerPage)
	s.Len(page.Items, 5)
	s.Equal("21 menit yang lalu", page.Items[0].Age)
	s.Equal(25, page.Unread)

	unread := false
	kind := notification.TypeComplaint
	page, err = s.service.List(s.ctx, s.user, Filter{IsRead: &unread, Type: &kind}, PageRequest{PerPage: 500})
	s.Require().NoError(err)
	s.Equal(MaxPerPage, page.PerPage)
	s.Empty(page.Items)
	s.NotNil(page.Items)

	page, err = s.service.List(s.ctx, s.user, Filter{}, PageRequest{Page: math.MaxInt64 / 10, PerPage: 100})
	s.Require().NoError(err)
	s.Equal(MaxPage, page.Page)
	s.Equal(25, page.Total)
	s.Empty(page.Items)
}

func (s *ServiceSuite) TestOwnerScopedMutations() {
	mine := s.add(s.user, time.Minute, nil)
	other := id.UserID(uuid.New())
	theirs := s.add(other, time.Minute, nil)

	s.Run("foreign ids are not found", func() {
		err := s.service.MarkRead(s.ctx, s.user, theirs.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		err = s.service.Delete(s.ctx, s.user, theirs.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("mark read and delete read", func() {
		s.Require().NoError(s.service.MarkRead(s.ctx, s.user, mine.ID))
		count, err := s.service.UnreadCount(s.ctx, s.user)
		s.Require().NoError(err)
		s.Equal(0, count)

		deleted, err := s.service.DeleteAllRead(s.ctx, s.user)
		s.Require().NoError(err)
		s.Equal(1, deleted)

		theirCount, err := s.service.UnreadCount(s.ctx, other)
		s.Require().NoError(err)
		s.Equal(1, theirCount, "other user's rows untouched")
	})

	s.Run("mark all read", func() {
		s.add(s.user, time.Minute, nil)
		s.add(s.user, time.Minute, nil)
		n, err := s.service.MarkAllRead(s.ctx, s.user)
		s.Require().NoError(err)
		s.Equal(2, n)
	})
}

func (s *ServiceSuite) TestUnreadCountWithRedisCache() {
	mr := miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s.T().Cleanup(func() { _ = client.Close() })
	s.service = New(s.store, WithUnreadCache(unreadcache.New(client, time.Minute)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	s.add(s.user, time.Minute, nil)
	count, err := s.service.UnreadCount(s.ctx, s.user)
	s.Require().NoError(err)
	s.Equal(1, count)
	s.True(mr.Exists("siwarga:notifications:unread:" + s.user.String()))

	s.add(s.user, time.Minute, nil)
	s.False(mr.Exists("siwarga:notifications:unread:"+s.user.String()), "writes invalidate the cached count")

	count, err = s.service.UnreadCount(s.ctx, s.user)
	s.Require().NoError(err)
	s.Equal(2, count)
}

// =============================================================================
// Mocked collaborators
// =============================================================================

func TestUnreadCountCacheBehavior(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	cache := mocks.NewMockUnreadCache(ctrl)
	svc := New(st, WithUnreadCache(cache), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	userID := id.UserID(uuid.New())
	ctx := context.Background()

	t.Run("hit skips the store", func(t *testing.T) {
		cache.EXPECT().Get(gomock.Any(), userID).Return(4, true, nil)
		n, err := svc.UnreadCount(ctx, userID)
		if err != nil || n != 4 {
			t.Fatalf("expected 4 from cache, got %d, %v", n, err)
		}
	})

	t.Run("cache error falls back to store", func(t *testing.T) {
		cache.EXPECT().Get(gomock.Any(), userID).Return(0, false, errors.New("redis down"))
		st.EXPECT().CountUnread(gomock.Any(), userID, gomock.Any()).Return(2, nil)
		cache.EXPECT().Set(gomock.Any(), userID, 2).Return(errors.New("redis down"))
		n, err := svc.UnreadCount(ctx, userID)
		if err != nil || n != 2 {
			t.Fatalf("expected 2 from store, got %d, %v", n, err)
		}
	})

	t.Run("store failure is internal", func(t *testing.T) {
		cache.EXPECT().Get(gomock.Any(), userID).Return(0, false, nil)
		st.EXPECT().CountUnread(gomock.Any(), userID, gomock.Any()).Return(0, errors.New("db down"))
		_, err := svc.UnreadCount(ctx, userID)
		if !dErrors.HasCode(err, dErrors.CodeInternal) {
			t.Fatalf("expected internal error, got %v", err)
		}
	})

	t.Run("failed mutation does not invalidate", func(t *testing.T) {
		nid := id.NotificationID(uuid.New())
		st.EXPECT().Delete(gomock.Any(), userID, nid).Return(errors.New("db down"))
		err := svc.Delete(ctx, userID, nid)
		if !dErrors.HasCode(err, dErrors.CodeInternal) {
			t.Fatalf("expected internal error, got %v", err)
		}
	})

	t.Run("successful mutation invalidates", func(t *testing.T) {
		st.EXPECT().MarkAllRead(gomock.Any(), userID, gomock.Any()).Return(3, nil)
		cache.EXPECT().Invalidate(gomock.Any(), userID).Return(nil)
		n, err := svc.MarkAllRead(ctx, userID)
		if err != nil || n != 3 {
			t.Fatalf("expected 3, got %d, %v", n, err)
		}
	})
}

func TestPageRequestNormalize(t *testing.T) {
	cases := []struct {
		in, want PageRequest
	}{
		{PageRequest{}, PageRequest{Page: 1, PerPage: 20}},
		{PageRequest{Page: -3, PerPage: 0}, PageRequest{Page: 1, PerPage: 20}},
		{PageRequest{Page: 4, PerPage: 101}, PageRequest{Page: 4, PerPage: 100}},
		{PageRequest{Page: 2, PerPage: 50}, PageRequest{Page: 2, PerPage: 50}},
		{PageRequest{Page: math.MaxInt64 / 10, PerPage: 100}, PageRequest{Page: MaxPage, PerPage: 100}},
		{PageRequest{Page: math.MaxInt, PerPage: math.MaxInt}, PageRequest{Page: MaxPage, PerPage: 100}},
	}
	for _, tc := range cases {
		if got := tc.in.Normalize(); got != tc.want {
			t.Errorf("Normalize(%+v) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}
