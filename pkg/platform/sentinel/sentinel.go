package sentinel

import "errors"

// Sentinel errors for persistence facts. Stores return these (wrapped with
// fmt.Errorf) and services translate them into domain errors:
//   - ErrNotFound: row does not exist, or is not owned by the caller
//   - ErrAlreadyUsed: a unique key (NIK, resident+program) is taken
//   - ErrInvalidState: a conditional update found the row in the wrong state
//   - ErrUnavailable: backing service temporarily unreachable
//   - ErrReferenced: other rows still point at the row being deleted
var (
	ErrNotFound     = errors.New("not found")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
	ErrReferenced   = errors.New("still referenced")
)
