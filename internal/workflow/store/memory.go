// Package store persists documents, complaints and social-assistance
// recipients.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"siwarga/internal/access"
	dirmodels "siwarga/internal/directory/models"
	"siwarga/internal/workflow/models"
	id "siwarga/pkg/domain"
	"siwarga/pkg/platform/sentinel"
)

// Error Contract:
// - ErrNotFound when the requested record does not exist
// - ErrAlreadyUsed when a unique key (id, resident+program) is taken
// - errors returned by Execute callbacks are passed through unchanged

// ProfileFinder loads the resident profile a record belongs to. Scoped
// listings use it to place records in a locality and family.
type ProfileFinder interface {
	FindProfile(ctx context.Context, residentID id.ResidentID) (*dirmodels.ResidentProfile, error)
}

// InMemoryStore keeps workflow records in memory for tests and local runs.
type InMemoryStore struct {
	mu         sync.RWMutex
	profiles   ProfileFinder
	documents  map[id.DocumentID]*models.Document
	complaints map[id.ComplaintID]*models.Complaint
	recipients map[id.RecipientID]*models.Recipient
}

func NewInMemoryStore(profiles ProfileFinder) *InMemoryStore {
	return &InMemoryStore{
		profiles:   profiles,
		documents:  make(map[id.DocumentID]*models.Document),
		complaints: make(map[id.ComplaintID]*models.Complaint),
		recipients: make(map[id.RecipientID]*models.Recipient),
	}
}

func (s *InMemoryStore) CreateDocument(_ context.Context, d *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[d.ID]; ok {
		return fmt.Errorf("document %s exists: %w", d.ID, sentinel.ErrAlreadyUsed)
	}
	copied := *d
	s.documents[d.ID] = &copied
	return nil
}

func (s *InMemoryStore) FindDocument(_ context.Context, documentID id.DocumentID) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.documents[documentID]
	if !ok {
		return nil, fmt.Errorf("find document: %w", sentinel.ErrNotFound)
	}
	copied := *d
	return &copied, nil
}

// ExecuteDocument runs validate then mutate on a copy under the write lock and
// stores the result only when validate succeeds.
func (s *InMemoryStore) ExecuteDocument(_ context.Context, documentID id.DocumentID, validate func(*models.Document) error, mutate func(*models.Document)) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.documents[documentID]
	if !ok {
		return nil, fmt.Errorf("execute document: %w", sentinel.ErrNotFound)
	}
	working := *current
	if err := validate(&working); err != nil {
		return nil, err
	}
	mutate(&working)
	s.documents[documentID] = &working
	result := working
	return &result, nil
}

// ListDocuments returns documents inside scope, newest first.
func (s *InMemoryStore) ListDocuments(ctx context.Context, scope access.Scope) ([]*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Document
	for _, d := range s.documents {
		ok, err := s.inScope(ctx, scope, access.KindDocument, d.RequesterID)
		if err != nil {
			return nil, err
		}
		if ok {
			copied := *d
			out = append(out, &copied)
		}
	}
	slices.SortFunc(out, func(a, b *models.Document) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) CountDocumentsByRequester(_ context.Context, residentID id.ResidentID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, d := range s.documents {
		if d.RequesterID == residentID {
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) CreateComplaint(_ context.Context, c *models.Complaint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.complaints[c.ID]; ok {
		return fmt.Errorf("complaint %s exists: %w", c.ID, sentinel.ErrAlreadyUsed)
	}
	copied := *c
	s.complaints[c.ID] = &copied
	return nil
}

func (s *InMemoryStore) FindComplaint(_ context.Context, complaintID id.ComplaintID) (*models.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.complaints[complaintID]
	if !ok {
		return nil, fmt.Errorf("find complaint: %w", sentinel.ErrNotFound)
	}
	copied := *c
	return &copied, nil
}

func (s *InMemoryStore) ExecuteComplaint(_ context.Context, complaintID id.ComplaintID, validate func(*models.Complaint) error, mutate func(*models.Complaint)) (*models.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.complaints[complaintID]
	if !ok {
		return nil, fmt.Errorf("execute complaint: %w", sentinel.ErrNotFound)
	}
	working := *current
	if err := validate(&working); err != nil {
		return nil, err
	}
	mutate(&working)
	s.complaints[complaintID] = &working
	result := working
	return &result, nil
}

// ListComplaints returns complaints inside scope, newest first.
func (s *InMemoryStore) ListComplaints(ctx context.Context, scope access.Scope) ([]*models.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Complaint
	for _, c := range s.complaints {
		ok, err := s.inScope(ctx, scope, access.KindComplaint, c.CreatorID)
		if err != nil {
			return nil, err
		}
		if ok {
			copied := *c
			out = append(out, &copied)
		}
	}
	slices.SortFunc(out, func(a, b *models.Complaint) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) CountComplaintsByCreator(_ context.Context, residentID id.ResidentID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.complaints {
		if c.CreatorID == residentID {
			n++
		}
	}
	return n, nil
}

// CreateRecipient enforces one enrollment per resident and program.
func (s *InMemoryStore) CreateRecipient(_ context.Context, r *models.Recipient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.recipients {
		if existing.ID == r.ID || (existing.ResidentID == r.ResidentID && existing.Program == r.Program) {
			return fmt.Errorf("resident already enrolled in %s: %w", r.Program, sentinel.ErrAlreadyUsed)
		}
	}
	copied := *r
	s.recipients[r.ID] = &copied
	return nil
}

func (s *InMemoryStore) FindRecipient(_ context.Context, recipientID id.RecipientID) (*models.Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recipients[recipientID]
	if !ok {
		return nil, fmt.Errorf("find recipient: %w", sentinel.ErrNotFound)
	}
	copied := *r
	return &copied, nil
}

func (s *InMemoryStore) ExecuteRecipient(_ context.Context, recipientID id.RecipientID, validate func(*models.Recipient) error, mutate func(*models.Recipient)) (*models.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.recipients[recipientID]
	if !ok {
		return nil, fmt.Errorf("execute recipient: %w", sentinel.ErrNotFound)
	}
	working := *current
	if err := validate(&working); err != nil {
		return nil, err
	}
	mutate(&working)
	s.recipients[recipientID] = &working
	result := working
	return &result, nil
}

func (s *InMemoryStore) CountRecipientsByResident(_ context.Context, residentID id.ResidentID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.recipients {
		if r.ResidentID == residentID {
			n++
		}
	}
	return n, nil
}

// inScope places a record through its owning profile. Records whose profile
// is gone are outside every non-global scope.
func (s *InMemoryStore) inScope(ctx context.Context, scope access.Scope, kind access.ResourceKind, owner id.ResidentID) (bool, error) {
	if scope.Global {
		return true, nil
	}
	p, err := s.profiles.FindProfile(ctx, owner)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("locate record owner: %w", err)
	}
	return scope.Allows(access.Resource{
		Kind:     kind,
		OwnerID:  &p.ID,
		FamilyID: p.FamilyID,
		Locality: p.Locality,
	}), nil
}
