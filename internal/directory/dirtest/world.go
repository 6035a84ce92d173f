// Package dirtest seeds an in-memory directory for tests.
package dirtest

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"siwarga/internal/directory/models"
	"siwarga/internal/directory/store"
	id "siwarga/pkg/domain"
)

// World is a seeded directory: users, RT assignments and profiles.
type World struct {
	t       testing.TB
	Store   *store.InMemoryStore
	Now     time.Time
	nikSeq  atomic.Int64
	rtIndex map[id.Locality]id.RTID
}

func NewWorld(t testing.TB) *World {
	return &World{
		t:       t,
		Store:   store.NewInMemoryStore(),
		Now:     time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		rtIndex: make(map[id.Locality]id.RTID),
	}
}

// Locality is a shorthand for a normalized locality.
func Locality(rt, rw string) id.Locality {
	l, err := id.NewLocality(rt, rw)
	if err != nil {
		panic(err)
	}
	return l
}

// Assignment returns the active RT assignment for a locality, creating it once.
func (w *World) Assignment(loc id.Locality) id.RTID {
	if rtID, ok := w.rtIndex[loc]; ok {
		return rtID
	}
	rtID := id.RTID(uuid.New())
	require.NoError(w.t, w.Store.CreateRTAssignment(context.Background(), &models.RTAssignment{
		ID: rtID, Number: loc.RTNumber, RWNumber: loc.RWNumber, IsActive: true,
	}))
	w.rtIndex[loc] = rtID
	return rtID
}

// Member is a seeded user together with its profile (nil for profile-less admins).
type Member struct {
	User    *models.User
	Profile *models.ResidentProfile
}

func (m Member) UserID() id.UserID { return m.User.ID }

func (m Member) ResidentID() id.ResidentID { return m.Profile.ID }

type memberOptions struct {
	familyID *id.FamilyID
	noUser   bool
	name     string
}

type MemberOption func(*memberOptions)

func InFamily(familyID id.FamilyID) MemberOption {
	return func(o *memberOptions) { o.familyID = &familyID }
}

func Named(name string) MemberOption {
	return func(o *memberOptions) { o.name = name }
}

// Add creates a user with a profile in loc. RT users are linked to the
// locality's assignment on both the user and the profile.
func (w *World) Add(role id.Role, loc id.Locality, opts ...MemberOption) Member {
	o := &memberOptions{}
	for _, opt := range opts {
		opt(o)
	}
	ctx := context.Background()
	user := &models.User{ID: id.UserID(uuid.New()), Name: o.name, Role: role, CreatedAt: w.Now}
	if user.Name == "" {
		user.Name = fmt.Sprintf("%s %s", role, loc)
	}
	var rtID *id.RTID
	if role == id.RoleRT {
		assigned := w.Assignment(loc)
		rtID = &assigned
		user.RTAssignmentID = &assigned
	}
	require.NoError(w.t, w.Store.CreateUser(ctx, user))

	profile := w.newProfile(loc, o)
	profile.UserID = &user.ID
	profile.RTID = rtID
	require.NoError(w.t, w.Store.CreateProfile(ctx, profile))
	return Member{User: user, Profile: profile}
}

// AddAdmin creates an ADMIN user without a resident profile.
func (w *World) AddAdmin() Member {
	user := &models.User{ID: id.UserID(uuid.New()), Name: "Admin", Role: id.RoleAdmin, CreatedAt: w.Now}
	require.NoError(w.t, w.Store.CreateUser(context.Background(), user))
	return Member{User: user}
}

// AddUnlinkedResident creates a profile with no user account.
func (w *World) AddUnlinkedResident(loc id.Locality, opts ...MemberOption) *models.ResidentProfile {
	o := &memberOptions{noUser: true}
	for _, opt := range opts {
		opt(o)
	}
	profile := w.newProfile(loc, o)
	require.NoError(w.t, w.Store.CreateProfile(context.Background(), profile))
	return profile
}

// NextNIK returns a unique 16-digit number.
func (w *World) NextNIK() string {
	return fmt.Sprintf("32010101%08d", w.nikSeq.Add(1))
}

func (w *World) newProfile(loc id.Locality, o *memberOptions) *models.ResidentProfile {
	name := o.name
	if name == "" {
		name = "Warga " + loc.String()
	}
	p, err := models.NewResidentProfile(id.ResidentID(uuid.New()), models.NewProfile{
		NIK:        w.NextNIK(),
		NoKK:       "3201010101019999",
		FullName:   name,
		BirthDate:  time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		Address:    "Jl. Kenanga",
		FamilyRole: "KEPALA_KELUARGA",
		Locality:   loc,
		FamilyID:   o.familyID,
	}, w.Now)
	require.NoError(w.t, err)
	return p
}
