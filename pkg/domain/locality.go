package domain

import (
	"fmt"
	"strconv"
	"strings"

	dErrors "siwarga/pkg/domain-errors"
)

// Locality is the (RT, RW) pair identifying a resident's neighborhood.
// Numbers are kept as three-digit strings ("005").
type Locality struct {
	RTNumber string `json:"rt_number"`
	RWNumber string `json:"rw_number"`
}

// NewLocality normalizes and validates both parts.
func NewLocality(rt, rw string) (Locality, error) {
	rtNum, err := NormalizeAreaNumber(rt)
	if err != nil {
		return Locality{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid rt number")
	}
	rwNum, err := NormalizeAreaNumber(rw)
	if err != nil {
		return Locality{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid rw number")
	}
	return Locality{RTNumber: rtNum, RWNumber: rwNum}, nil
}

// NormalizeAreaNumber turns "5", "05" or "005" into "005".
func NormalizeAreaNumber(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("area number is empty")
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > 999 {
		return "", fmt.Errorf("area number %q out of range", s)
	}
	return fmt.Sprintf("%03d", n), nil
}

func (l Locality) IsZero() bool {
	return l.RTNumber == "" && l.RWNumber == ""
}

// Equal compares both RT and RW numbers.
func (l Locality) Equal(other Locality) bool {
	return l.RTNumber == other.RTNumber && l.RWNumber == other.RWNumber
}

func (l Locality) String() string {
	return fmt.Sprintf("RT %s/RW %s", l.RTNumber, l.RWNumber)
}
