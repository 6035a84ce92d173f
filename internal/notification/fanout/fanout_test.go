package fanout

//go:generate mockgen -source=fanout.go -destination=mocks/mocks.go -package=mocks Resolver,Writer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"siwarga/internal/directory"
	"siwarga/internal/directory/dirtest"
	"siwarga/internal/notification"
	"siwarga/internal/notification/fanout/mocks"
	"siwarga/internal/notification/metrics"
	"siwarga/internal/notification/service"
	"siwarga/internal/notification/store"
	id "siwarga/pkg/domain"
	"siwarga/pkg/requestcontext"
)

var fixedNow = time.Date(2026, 4, 10, 10, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func event(target notification.Target) notification.Event {
	return notification.Event{
		Target:  target,
		Type:    notification.TypeComplaint,
		Title:   "Pengaduan Baru",
		Message: "Ada pengaduan baru di wilayah Anda",
		Source:  notification.Source{Kind: "complaint", ID: uuid.New()},
	}
}

// recordingWriter collects rows and fails for one chosen user.
type recordingWriter struct {
	mu     sync.Mutex
	rows   []*notification.Notification
	failOn id.UserID
}

func (w *recordingWriter) Create(_ context.Context, n *notification.Notification) error {
	if n.UserID == w.failOn {
		return errors.New("insert failed")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows = append(w.rows, n)
	return nil
}

// =============================================================================
// Partial failure
// =============================================================================
// Justification: one bad target or row must never stop the rest of the
// fan-out; the caller only sees an aggregated error list.

func TestDispatchResolutionFailureAmongFiveTargets(t *testing.T) {
	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockResolver(ctrl)
	writer := &recordingWriter{}
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegisterer(reg)
	svc := New(resolver, writer, WithLogger(quietLogger()), WithMetrics(m), WithConcurrency(2))

	rts := []string{"001", "002", "003", "004", "005"}
	var events []notification.Event
	for _, rt := range rts {
		events = append(events, event(notification.LocalityRTs([]string{rt}, id.RoleRT)))
		if rt == "003" {
			resolver.EXPECT().UsersInLocalities(gomock.Any(), "", []string{rt}, id.RoleRT).
				Return(nil, errors.New("directory unavailable"))
			continue
		}
		resolver.EXPECT().UsersInLocalities(gomock.Any(), "", []string{rt}, id.RoleRT).
			Return([]id.UserID{id.UserID(uuid.New())}, nil)
	}

	persisted, errs := svc.Dispatch(requestcontext.WithTime(context.Background(), fixedNow), events)

	assert.Equal(t, 4, persisted)
	require.Len(t, errs, 1)
	assert.ErrorContains(t, errs[0], "directory unavailable")
	assert.Len(t, writer.rows, 4)
	assert.Equal(t, float64(4), testutil.ToFloat64(m.Persisted))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Failed.WithLabelValues("resolve")))
}

func TestDispatchPersistFailureDoesNotStopOthers(t *testing.T) {
	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockResolver(ctrl)
	failing := id.UserID(uuid.New())
	writer := &recordingWriter{failOn: failing}
	svc := New(resolver, writer, WithLogger(quietLogger()))

	users := []id.UserID{id.UserID(uuid.New()), failing, id.UserID(uuid.New()), id.UserID(uuid.New()), id.UserID(uuid.New())}
	persisted, errs := svc.Dispatch(context.Background(), []notification.Event{event(notification.ExplicitUsers(users))})

	assert.Equal(t, 4, persisted)
	require.Len(t, errs, 1)
	assert.ErrorContains(t, errs[0], failing.String())
}

func TestDispatchInvalidEventIsReported(t *testing.T) {
	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockResolver(ctrl)
	writer := mocks.NewMockWriter(ctrl)
	svc := New(resolver, writer, WithLogger(quietLogger()))

	bad := event(notification.ExplicitUsers(nil))
	good := event(notification.ExplicitUser(id.UserID(uuid.New())))
	writer.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	persisted, errs := svc.Dispatch(context.Background(), []notification.Event{bad, good})
	assert.Equal(t, 1, persisted)
	assert.Len(t, errs, 1)
}

// =============================================================================
// Target resolution
// =============================================================================

func TestDispatchTargets(t *testing.T) {
	author := id.UserID(uuid.New())
	others := []id.UserID{id.UserID(uuid.New()), id.UserID(uuid.New())}

	t.Run("broadcast excludes author via directory", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		resolver := mocks.NewMockResolver(ctrl)
		writer := &recordingWriter{}
		resolver.EXPECT().UsersExcept(gomock.Any(), &author).Return(others, nil)

		persisted, errs := New(resolver, writer, WithLogger(quietLogger())).
			Dispatch(context.Background(), []notification.Event{event(notification.Broadcast(&author))})
		assert.Empty(t, errs)
		assert.Equal(t, 2, persisted)
	})

	t.Run("explicit users are deduplicated within one event", func(t *testing.T) {
		writer := &recordingWriter{}
		svc := New(mocks.NewMockResolver(gomock.NewController(t)), writer, WithLogger(quietLogger()))
		persisted, errs := svc.Dispatch(context.Background(), []notification.Event{
			event(notification.ExplicitUsers([]id.UserID{others[0], others[0], others[1]})),
		})
		assert.Empty(t, errs)
		assert.Equal(t, 2, persisted)
	})

	t.Run("repeated events are not deduplicated", func(t *testing.T) {
		writer := &recordingWriter{}
		svc := New(mocks.NewMockResolver(gomock.NewController(t)), writer, WithLogger(quietLogger()))
		e := event(notification.ExplicitUser(others[0]))
		persisted, _ := svc.Dispatch(context.Background(), []notification.Event{e, e})
		assert.Equal(t, 2, persisted)
	})

	t.Run("empty resolution persists nothing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		resolver := mocks.NewMockResolver(ctrl)
		resolver.EXPECT().UsersInLocalities(gomock.Any(), "", []string{"009"}).Return(nil, nil)
		persisted, errs := New(resolver, mocks.NewMockWriter(ctrl), WithLogger(quietLogger())).
			Dispatch(context.Background(), []notification.Event{event(notification.LocalityRTs([]string{"009"}))})
		assert.Zero(t, persisted)
		assert.Empty(t, errs)
	})
}

func TestDispatchRowShape(t *testing.T) {
	writer := &recordingWriter{}
	svc := New(mocks.NewMockResolver(gomock.NewController(t)), writer, WithLogger(quietLogger()))
	user := id.UserID(uuid.New())
	e := event(notification.ExplicitUser(user))
	expires := fixedNow.Add(24 * time.Hour)
	e.ExpiresAt = &expires

	_, errs := svc.Dispatch(requestcontext.WithTime(context.Background(), fixedNow), []notification.Event{e})
	require.Empty(t, errs)
	require.Len(t, writer.rows, 1)

	row := writer.rows[0]
	assert.Equal(t, user, row.UserID)
	assert.Equal(t, notification.PriorityNormal, row.Priority)
	assert.Equal(t, fixedNow, row.CreatedAt)
	assert.Equal(t, e.Source, row.Source)
	assert.Equal(t, &expires, row.ExpiresAt)
	assert.False(t, row.IsRead)
}

// =============================================================================
// Directory-backed fan-out
// =============================================================================
// Justification: the complaint audience (RT users of a locality plus every RW
// user) is resolved by the real directory and persisted to the real store.

func TestDispatchWithDirectory(t *testing.T) {
	world := dirtest.NewWorld(t)
	loc := dirtest.Locality("005", "002")
	rt1 := world.Add(id.RoleRT, loc)
	rt2 := world.Add(id.RoleRT, loc)
	rw := world.Add(id.RoleRW, dirtest.Locality("001", "002"))
	world.Add(id.RoleWarga, loc)
	world.Add(id.RoleRT, dirtest.Locality("006", "002"))
	foreign := world.Add(id.RoleRT, dirtest.Locality("005", "009"))

	dir := directory.New(world.Store, directory.WithLogger(quietLogger()))
	notifStore := store.NewInMemoryStore()
	notifications := service.New(notifStore, service.WithLogger(quietLogger()))
	svc := New(dir, notifications, WithLogger(quietLogger()))

	ctx := requestcontext.WithTime(context.Background(), world.Now)
	persisted, errs := svc.Dispatch(ctx, []notification.Event{
		event(notification.LocalityRTs([]string{loc.RTNumber}, id.RoleRT).InRW(loc.RWNumber)),
		event(notification.LocalityRTs([]string{rw.Profile.Locality.RTNumber}, id.RoleRW).InRW(loc.RWNumber)),
	})
	require.Empty(t, errs)
	assert.Equal(t, 3, persisted)

	for _, m := range []dirtest.Member{rt1, rt2, rw} {
		n, err := notifications.UnreadCount(ctx, m.UserID())
		require.NoError(t, err)
		assert.Equal(t, 1, n, "one row for %s", m.User.Name)
	}

	n, err := notifications.UnreadCount(ctx, foreign.UserID())
	require.NoError(t, err)
	assert.Zero(t, n, "same RT number in another RW is not addressed")
}
