//go:build integration

package workflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siwarga/internal/access"
	"siwarga/internal/directory"
	dirmodels "siwarga/internal/directory/models"
	dirstore "siwarga/internal/directory/store"
	"siwarga/internal/notification"
	"siwarga/internal/notification/fanout"
	notifservice "siwarga/internal/notification/service"
	notifstore "siwarga/internal/notification/store"
	"siwarga/internal/workflow"
	"siwarga/internal/workflow/models"
	wfstore "siwarga/internal/workflow/store"
	id "siwarga/pkg/domain"
	"siwarga/pkg/testutil"
	"siwarga/pkg/testutil/containers"
)

type stack struct {
	dirs          *dirstore.PostgresStore
	engine        *workflow.Engine
	notifications *notifservice.Service
}

func newStack(t *testing.T, pg *containers.PostgresContainer) *stack {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dirs := dirstore.NewPostgres(pg.DB)
	dir := directory.New(dirs, directory.WithLogger(logger))
	notifications := notifservice.New(notifstore.NewPostgres(pg.DB), notifservice.WithLogger(logger))
	records := wfstore.NewPostgres(pg.DB)
	engine, err := workflow.New(access.New(dir, access.WithLogger(logger)), dir, workflow.Stores{
		Residents: dirs, Documents: records, Complaints: records, Recipients: records,
	}, workflow.WithLogger(logger), workflow.WithDispatcher(fanout.New(dir, notifications, fanout.WithLogger(logger))))
	require.NoError(t, err)
	return &stack{dirs: dirs, engine: engine, notifications: notifications}
}

var nikSeq int

func (s *stack) member(t *testing.T, role id.Role, loc id.Locality, name string) (*dirmodels.User, *dirmodels.ResidentProfile) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	user := &dirmodels.User{ID: id.UserID(uuid.New()), Name: name, Role: role, CreatedAt: now}
	var rtID *id.RTID
	if role == id.RoleRT {
		assigned := id.RTID(uuid.New())
		require.NoError(t, s.dirs.CreateRTAssignment(ctx, &dirmodels.RTAssignment{
			ID: assigned, Number: loc.RTNumber, RWNumber: loc.RWNumber, IsActive: true,
		}))
		rtID = &assigned
		user.RTAssignmentID = &assigned
	}
	require.NoError(t, s.dirs.CreateUser(ctx, user))

	nikSeq++
	profile, err := dirmodels.NewResidentProfile(id.ResidentID(uuid.New()), dirmodels.NewProfile{
		NIK:        fmt.Sprintf("3201020300%06d", nikSeq),
		NoKK:       "3201020300009999",
		FullName:   name,
		BirthDate:  time.Date(1988, 5, 17, 0, 0, 0, 0, time.UTC),
		Address:    "Jl. Melati 4",
		FamilyRole: "KEPALA_KELUARGA",
		Locality:   loc,
	}, now)
	require.NoError(t, err)
	profile.UserID = &user.ID
	profile.RTID = rtID
	require.NoError(t, s.dirs.CreateProfile(ctx, profile))
	return user, profile
}

func TestDocumentLifecycleOnPostgres(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	ctx := context.Background()

	testutil.Given(t, "a resident and the RT of RT 005/RW 002", func(t *testing.T) {
		require.NoError(t, pg.Truncate(ctx))
		s := newStack(t, pg)
		loc, err := id.NewLocality("5", "2")
		require.NoError(t, err)
		rt, _ := s.member(t, id.RoleRT, loc, "Pak RT Lima")
		warga, _ := s.member(t, id.RoleWarga, loc, "Siti")

		var doc *models.Document
		testutil.When(t, "the resident submits a letter request", func(t *testing.T) {
			doc, _, err = s.engine.SubmitDocument(ctx, warga.ID, models.DocumentRequest{Type: "Surat Domisili", Purpose: "Bank"})
			require.NoError(t, err)
			s.engine.Wait()

			testutil.Then(t, "the RT is notified and the row is persisted", func(t *testing.T) {
				count, err := s.notifications.UnreadCount(ctx, rt.ID)
				require.NoError(t, err)
				assert.Equal(t, 1, count)

				docs, err := s.engine.ListDocuments(ctx, rt.ID)
				require.NoError(t, err)
				require.Len(t, docs, 1)
				assert.Equal(t, doc.ID, docs[0].ID)
			})
		})

		testutil.When(t, "the RT approves the request", func(t *testing.T) {
			require.NotNil(t, doc)
			entity, _, err := s.engine.Transition(ctx, access.KindDocument, uuid.UUID(doc.ID), access.ActionApprove, rt.ID, workflow.Payload{})
			require.NoError(t, err)
			s.engine.Wait()

			testutil.Then(t, "the status is stored and the resident has the submission and approval notices", func(t *testing.T) {
				approved, ok := entity.(*models.Document)
				require.True(t, ok)
				assert.Equal(t, models.DocumentApproved, approved.Status)

				page, err := s.notifications.List(ctx, warga.ID, notifservice.Filter{}, notifservice.PageRequest{})
				require.NoError(t, err)
				require.Len(t, page.Items, 2)
				for _, item := range page.Items {
					assert.Equal(t, notification.TypeDocument, item.Type)
					assert.Equal(t, uuid.UUID(doc.ID), item.Source.ID)
				}
				assert.Equal(t, 2, page.Unread)
			})

			testutil.And(t, "the RT's inbox is unchanged", func(t *testing.T) {
				count, err := s.notifications.UnreadCount(ctx, rt.ID)
				require.NoError(t, err)
				assert.Equal(t, 1, count)
			})
		})

		testutil.When(t, "the RT approves the same request again", func(t *testing.T) {
			require.NotNil(t, doc)
			_, _, err := s.engine.Transition(ctx, access.KindDocument, uuid.UUID(doc.ID), access.ActionApprove, rt.ID, workflow.Payload{})

			testutil.Then(t, "the transition is rejected", func(t *testing.T) {
				assert.Error(t, err)
			})
		})
	})
}

func TestConcurrentVerificationOnPostgres(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	ctx := context.Background()

	testutil.Given(t, "an unverified resident and two RT officials", func(t *testing.T) {
		require.NoError(t, pg.Truncate(ctx))
		s := newStack(t, pg)
		loc, err := id.NewLocality("7", "3")
		require.NoError(t, err)
		rt, _ := s.member(t, id.RoleRT, loc, "Pak RT Tujuh")
		wakil, _ := s.member(t, id.RoleRT, loc, "Wakil RT Tujuh")
		_, profile := s.member(t, id.RoleWarga, loc, "Budi")

		testutil.When(t, "both verify at the same time", func(t *testing.T) {
			errs := make(chan error, 2)
			for _, actor := range []id.UserID{rt.ID, wakil.ID} {
				go func() {
					_, _, err := s.engine.Transition(ctx, access.KindResident, uuid.UUID(profile.ID), access.ActionVerify, actor, workflow.Payload{})
					errs <- err
				}()
			}
			first, second := <-errs, <-errs
			s.engine.Wait()

			testutil.Then(t, "exactly one verification wins", func(t *testing.T) {
				assert.True(t, (first == nil) != (second == nil), "first=%v second=%v", first, second)
				stored, err := s.dirs.FindProfile(ctx, profile.ID)
				require.NoError(t, err)
				assert.True(t, stored.IsVerified)
			})
		})
	})
}
