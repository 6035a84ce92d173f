package domain

import (
	"strings"

	dErrors "siwarga/pkg/domain-errors"
)

// Role is the closed set of actor roles. Administrative reach grows with rank:
// a WARGA sees their own household, an RT their block, an RW and ADMIN everything.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleRW    Role = "RW"
	RoleRT    Role = "RT"
	RoleWarga Role = "WARGA"
)

var roleRanks = map[Role]int{
	RoleWarga: 0,
	RoleRT:    1,
	RoleRW:    2,
	RoleAdmin: 3,
}

// ParseRole constructs a Role from external input, case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if r == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role")
	}
	return r, nil
}

func (r Role) IsValid() bool {
	_, ok := roleRanks[r]
	return ok
}

// Rank returns the role's position in the hierarchy; unknown roles rank below WARGA.
func (r Role) Rank() int {
	if rank, ok := roleRanks[r]; ok {
		return rank
	}
	return -1
}

// AtLeast reports whether r ranks at or above min.
func (r Role) AtLeast(min Role) bool {
	return r.Rank() >= min.Rank()
}

func (r Role) String() string {
	return string(r)
}
