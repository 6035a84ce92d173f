// Package store persists notification rows.
package store

import (
	"time"

	"siwarga/internal/notification"
)

// Query selects one user's rows. Rows scheduled after Now are never
// returned; rows expired at Now are returned only with IncludeExpired.
type Query struct {
	IsRead         *bool
	Type           *notification.Type
	IncludeExpired bool
	Now            time.Time
	Offset         int
	Limit          int
}
