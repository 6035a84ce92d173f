package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"siwarga/internal/notification"
	id "siwarga/pkg/domain"
	"siwarga/pkg/platform/sentinel"
)

// InMemoryStore keeps notifications in memory for tests and local runs.
type InMemoryStore struct {
	mu   sync.RWMutex
	rows map[id.NotificationID]*notification.Notification
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{rows: make(map[id.NotificationID]*notification.Notification)}
}

func (s *InMemoryStore) Create(_ context.Context, n *notification.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[n.ID]; ok {
		return fmt.Errorf("notification %s exists: %w", n.ID, sentinel.ErrAlreadyUsed)
	}
	copied := *n
	s.rows[n.ID] = &copied
	return nil
}

// List returns the page of matching rows, newest first, and the total match count.
func (s *InMemoryStore) List(_ context.Context, userID id.UserID, q Query) ([]*notification.Notification, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*notification.Notification
	for _, n := range s.rows {
		if n.UserID != userID || !n.VisibleAt(q.Now, q.IncludeExpired) {
			continue
		}
		if q.IsRead != nil && n.IsRead != *q.IsRead {
			continue
		}
		if q.Type != nil && n.Type != *q.Type {
			continue
		}
		copied := *n
		matched = append(matched, &copied)
	}
	slices.SortFunc(matched, func(a, b *notification.Notification) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID.String(), a.ID.String())
	})

	total := len(matched)
	start := max(0, min(q.Offset, total))
	end := total
	if q.Limit > 0 {
		end = min(start+q.Limit, total)
	}
	return matched[start:end], total, nil
}

// CountUnread counts unread rows visible at now.
func (s *InMemoryStore) CountUnread(_ context.Context, userID id.UserID, now time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.rows {
		if n.UserID == userID && !n.IsRead && n.VisibleAt(now, false) {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) MarkRead(_ context.Context, userID id.UserID, notificationID id.NotificationID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.rows[notificationID]
	if !ok || n.UserID != userID {
		return fmt.Errorf("mark notification read: %w", sentinel.ErrNotFound)
	}
	n.MarkRead(now)
	return nil
}

func (s *InMemoryStore) MarkAllRead(_ context.Context, userID id.UserID, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	updated := 0
	for _, n := range s.rows {
		if n.UserID == userID && !n.IsRead {
			n.MarkRead(now)
			updated++
		}
	}
	return updated, nil
}

func (s *InMemoryStore) Delete(_ context.Context, userID id.UserID, notificationID id.NotificationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.rows[notificationID]
	if !ok || n.UserID != userID {
		return fmt.Errorf("delete notification: %w", sentinel.ErrNotFound)
	}
	delete(s.rows, notificationID)
	return nil
}

func (s *InMemoryStore) DeleteAllRead(_ context.Context, userID id.UserID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for key, n := range s.rows {
		if n.UserID == userID && n.IsRead {
			delete(s.rows, key)
			deleted++
		}
	}
	return deleted, nil
}
