package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"siwarga/internal/directory/models"
	id "siwarga/pkg/domain"
	"siwarga/pkg/platform/sentinel"
)

// Error Contract:
// - ErrNotFound when the requested record does not exist
// - ErrAlreadyUsed when a unique key (NIK, user link, id) is taken
// - errors returned by Execute callbacks are passed through unchanged

// InMemoryStore keeps users, RT assignments and resident profiles in memory
// for tests and local development. Listing order is insertion order.
type InMemoryStore struct {
	mu           sync.RWMutex
	users        map[id.UserID]*models.User
	userOrder    []id.UserID
	assignments  map[id.RTID]*models.RTAssignment
	profiles     map[id.ResidentID]*models.ResidentProfile
	profileOrder []id.ResidentID
}

// NewInMemoryStore constructs an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:       make(map[id.UserID]*models.User),
		assignments: make(map[id.RTID]*models.RTAssignment),
		profiles:    make(map[id.ResidentID]*models.ResidentProfile),
	}
}

func (s *InMemoryStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("user %s exists: %w", user.ID, sentinel.ErrAlreadyUsed)
	}
	u := *user
	s.users[user.ID] = &u
	s.userOrder = append(s.userOrder, user.ID)
	return nil
}

func (s *InMemoryStore) FindUser(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("find user: %w", sentinel.ErrNotFound)
	}
	found := *u
	return &found, nil
}

func (s *InMemoryStore) ListUserIDs(_ context.Context) ([]id.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.userOrder), nil
}

// UserIDsByRole lists users holding role. When locality is set only users
// whose resident profile lives there are returned.
func (s *InMemoryStore) UserIDsByRole(_ context.Context, role id.Role, locality *id.Locality) ([]id.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []id.UserID
	for _, userID := range s.userOrder {
		if s.users[userID].Role != role {
			continue
		}
		if locality != nil {
			p := s.profileForUserLocked(userID)
			if p == nil || !p.Locality.Equal(*locality) {
				continue
			}
		}
		out = append(out, userID)
	}
	return out, nil
}

// UserIDsByRTNumbers lists owners of profiles whose RT number is in rtNumbers,
// skipping profiles with no linked user. An empty rwNumber matches every RW
// and an empty roles list matches any role.
func (s *InMemoryStore) UserIDsByRTNumbers(_ context.Context, rwNumber string, rtNumbers []string, roles []id.Role) ([]id.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []id.UserID
	for _, residentID := range s.profileOrder {
		p := s.profiles[residentID]
		if p.UserID == nil || !slices.Contains(rtNumbers, p.Locality.RTNumber) {
			continue
		}
		if rwNumber != "" && p.Locality.RWNumber != rwNumber {
			continue
		}
		if len(roles) > 0 {
			u, ok := s.users[*p.UserID]
			if !ok || !slices.Contains(roles, u.Role) {
				continue
			}
		}
		out = append(out, *p.UserID)
	}
	return out, nil
}

func (s *InMemoryStore) CreateRTAssignment(_ context.Context, a *models.RTAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assignments[a.ID]; ok {
		return fmt.Errorf("rt assignment %s exists: %w", a.ID, sentinel.ErrAlreadyUsed)
	}
	copied := *a
	s.assignments[a.ID] = &copied
	return nil
}

func (s *InMemoryStore) FindRTAssignment(_ context.Context, rtID id.RTID) (*models.RTAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[rtID]
	if !ok {
		return nil, fmt.Errorf("find rt assignment: %w", sentinel.ErrNotFound)
	}
	found := *a
	return &found, nil
}

func (s *InMemoryStore) CreateProfile(_ context.Context, p *models.ResidentProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.ID]; ok {
		return fmt.Errorf("profile %s exists: %w", p.ID, sentinel.ErrAlreadyUsed)
	}
	if err := s.checkUniqueLocked(p); err != nil {
		return err
	}
	s.profiles[p.ID] = cloneProfile(p)
	s.profileOrder = append(s.profileOrder, p.ID)
	return nil
}

func (s *InMemoryStore) FindProfile(_ context.Context, residentID id.ResidentID) (*models.ResidentProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[residentID]
	if !ok {
		return nil, fmt.Errorf("find resident profile: %w", sentinel.ErrNotFound)
	}
	return cloneProfile(p), nil
}

func (s *InMemoryStore) FindProfileByUser(_ context.Context, userID id.UserID) (*models.ResidentProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.profileForUserLocked(userID)
	if p == nil {
		return nil, fmt.Errorf("find resident profile by user: %w", sentinel.ErrNotFound)
	}
	return cloneProfile(p), nil
}

// ExecuteProfile runs validate then mutate on a copy under the write lock and
// stores the result only when both succeed.
func (s *InMemoryStore) ExecuteProfile(_ context.Context, residentID id.ResidentID, validate func(*models.ResidentProfile) error, mutate func(*models.ResidentProfile)) (*models.ResidentProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.profiles[residentID]
	if !ok {
		return nil, fmt.Errorf("execute resident profile: %w", sentinel.ErrNotFound)
	}
	working := cloneProfile(current)
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	if err := s.checkUniqueLocked(working); err != nil {
		return nil, err
	}
	s.profiles[residentID] = working
	return cloneProfile(working), nil
}

func (s *InMemoryStore) DeleteProfile(_ context.Context, residentID id.ResidentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[residentID]; !ok {
		return fmt.Errorf("delete resident profile: %w", sentinel.ErrNotFound)
	}
	delete(s.profiles, residentID)
	s.profileOrder = slices.DeleteFunc(s.profileOrder, func(r id.ResidentID) bool { return r == residentID })
	return nil
}

func (s *InMemoryStore) profileForUserLocked(userID id.UserID) *models.ResidentProfile {
	for _, residentID := range s.profileOrder {
		if p := s.profiles[residentID]; p.IsOwnedBy(userID) {
			return p
		}
	}
	return nil
}

func (s *InMemoryStore) checkUniqueLocked(p *models.ResidentProfile) error {
	for otherID, other := range s.profiles {
		if otherID == p.ID {
			continue
		}
		if other.NIK == p.NIK {
			return fmt.Errorf("nik already registered: %w", sentinel.ErrAlreadyUsed)
		}
		if p.UserID != nil && other.IsOwnedBy(*p.UserID) {
			return fmt.Errorf("user already has a resident profile: %w", sentinel.ErrAlreadyUsed)
		}
	}
	return nil
}

func cloneProfile(p *models.ResidentProfile) *models.ResidentProfile {
	c := *p
	if p.UserID != nil {
		v := *p.UserID
		c.UserID = &v
	}
	if p.FamilyID != nil {
		v := *p.FamilyID
		c.FamilyID = &v
	}
	if p.RTID != nil {
		v := *p.RTID
		c.RTID = &v
	}
	if p.VerifiedAt != nil {
		v := *p.VerifiedAt
		c.VerifiedAt = &v
	}
	return &c
}
