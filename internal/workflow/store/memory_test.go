package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"siwarga/internal/access"
	"siwarga/internal/directory/dirtest"
	dirmodels "siwarga/internal/directory/models"
	"siwarga/internal/workflow/models"
	id "siwarga/pkg/domain"
	dErrors "siwarga/pkg/domain-errors"
	"siwarga/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	world *dirtest.World
	store *InMemoryStore
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.world = dirtest.NewWorld(s.T())
	s.store = NewInMemoryStore(s.world.Store)
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) document(requester id.ResidentID, age time.Duration) *models.Document {
	d, err := models.NewDocument(id.DocumentID(uuid.New()), requester, models.DocumentRequest{
		Type: "Surat Domisili", Purpose: "Bank",
	}, s.world.Now.Add(-age))
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateDocument(s.ctx, d))
	return d
}

func (s *InMemoryStoreSuite) TestExecuteDocument() {
	requester := s.world.Add(id.RoleWarga, dirtest.Locality("001", "001"))
	d := s.document(requester.ResidentID(), 0)

	s.Run("validation failure leaves the record untouched", func() {
		_, err := s.store.ExecuteDocument(s.ctx, d.ID,
			func(*models.Document) error { return dErrors.New(dErrors.CodeInvalidTransition, "nope") },
			func(doc *models.Document) { doc.Status = models.DocumentCompleted })
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))

		stored, err := s.store.FindDocument(s.ctx, d.ID)
		s.Require().NoError(err)
		s.Equal(models.DocumentSubmitted, stored.Status)
	})

	s.Run("mutation is stored", func() {
		updated, err := s.store.ExecuteDocument(s.ctx, d.ID,
			func(doc *models.Document) error { return doc.CanApply(models.DocumentApprove, "") },
			func(doc *models.Document) { doc.Apply(models.DocumentApprove, "Pak RT", "", s.world.Now) })
		s.Require().NoError(err)
		s.Equal(models.DocumentApproved, updated.Status)

		stored, err := s.store.FindDocument(s.ctx, d.ID)
		s.Require().NoError(err)
		s.Equal(models.DocumentApproved, stored.Status)
	})

	s.Run("unknown id", func() {
		_, err := s.store.ExecuteDocument(s.ctx, id.DocumentID(uuid.New()),
			func(*models.Document) error { return nil }, func(*models.Document) {})
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryStoreSuite) TestScopedListing() {
	here := dirtest.Locality("005", "002")
	there := dirtest.Locality("006", "002")
	family := id.FamilyID(uuid.New())
	parent := s.world.Add(id.RoleWarga, here, dirtest.InFamily(family))
	child := s.world.Add(id.RoleWarga, here, dirtest.InFamily(family))
	neighbour := s.world.Add(id.RoleWarga, here)
	stranger := s.world.Add(id.RoleWarga, there)

	own := s.document(parent.ResidentID(), 4*time.Hour)
	childs := s.document(child.ResidentID(), 3*time.Hour)
	neighbours := s.document(neighbour.ResidentID(), 2*time.Hour)
	strangers := s.document(stranger.ResidentID(), time.Hour)

	ids := func(docs []*models.Document) []id.DocumentID {
		out := make([]id.DocumentID, 0, len(docs))
		for _, d := range docs {
			out = append(out, d.ID)
		}
		return out
	}

	s.Run("global sees everything newest first", func() {
		docs, err := s.store.ListDocuments(s.ctx, access.Scope{Global: true})
		s.Require().NoError(err)
		s.Equal([]id.DocumentID{strangers.ID, neighbours.ID, childs.ID, own.ID}, ids(docs))
	})

	s.Run("locality", func() {
		docs, err := s.store.ListDocuments(s.ctx, access.Scope{Locality: &here})
		s.Require().NoError(err)
		s.Equal([]id.DocumentID{neighbours.ID, childs.ID, own.ID}, ids(docs))
	})

	s.Run("own and family", func() {
		residentID := parent.ResidentID()
		docs, err := s.store.ListDocuments(s.ctx, access.Scope{ResidentID: &residentID, FamilyID: &family})
		s.Require().NoError(err)
		s.Equal([]id.DocumentID{childs.ID, own.ID}, ids(docs))
	})

	s.Run("empty scope matches nothing", func() {
		docs, err := s.store.ListDocuments(s.ctx, access.Scope{})
		s.Require().NoError(err)
		s.Empty(docs)
	})
}

func (s *InMemoryStoreSuite) TestComplaints() {
	creator := s.world.Add(id.RoleWarga, dirtest.Locality("001", "001"))
	c, err := models.NewComplaint(id.ComplaintID(uuid.New()), creator.ResidentID(), models.ComplaintRequest{
		Title: "Sampah", Description: "Belum diangkut",
	}, s.world.Now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateComplaint(s.ctx, c))

	n, err := s.store.CountComplaintsByCreator(s.ctx, creator.ResidentID())
	s.Require().NoError(err)
	s.Equal(1, n)

	updated, err := s.store.ExecuteComplaint(s.ctx, c.ID,
		func(c *models.Complaint) error { return c.CanRespond(models.ComplaintResolved, "sudah") },
		func(c *models.Complaint) { c.ApplyResponse(models.ComplaintResolved, "sudah", "Pak RT", s.world.Now) })
	s.Require().NoError(err)
	s.Equal(models.ComplaintResolved, updated.Status)

	loc := dirtest.Locality("001", "001")
	list, err := s.store.ListComplaints(s.ctx, access.Scope{Locality: &loc})
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *InMemoryStoreSuite) TestRecipientUniqueness() {
	resident := s.world.Add(id.RoleWarga, dirtest.Locality("001", "001"))
	enroll := func(program string) error {
		r, err := models.NewRecipient(id.RecipientID(uuid.New()), models.RecipientRequest{
			ResidentID: resident.ResidentID(), Program: program,
		}, s.world.Now)
		s.Require().NoError(err)
		return s.store.CreateRecipient(s.ctx, r)
	}

	s.Require().NoError(enroll("PKH"))
	s.ErrorIs(enroll("PKH"), sentinel.ErrAlreadyUsed)
	s.NoError(enroll("BPNT"))

	n, err := s.store.CountRecipientsByResident(s.ctx, resident.ResidentID())
	s.Require().NoError(err)
	s.Equal(2, n)
}

type failingProfiles struct{}

func (failingProfiles) FindProfile(context.Context, id.ResidentID) (*dirmodels.ResidentProfile, error) {
	return nil, errors.New("db down")
}

func (s *InMemoryStoreSuite) TestScopedListingPropagatesProfileErrors() {
	store := NewInMemoryStore(failingProfiles{})
	d, err := models.NewDocument(id.DocumentID(uuid.New()), id.ResidentID(uuid.New()), models.DocumentRequest{
		Type: "Surat Domisili", Purpose: "Bank",
	}, s.world.Now)
	s.Require().NoError(err)
	s.Require().NoError(store.CreateDocument(s.ctx, d))

	loc := dirtest.Locality("001", "001")
	_, err = store.ListDocuments(s.ctx, access.Scope{Locality: &loc})
	s.Error(err)

	docs, err := store.ListDocuments(s.ctx, access.Scope{Global: true})
	s.Require().NoError(err)
	s.Len(docs, 1)
}
