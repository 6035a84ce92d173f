package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseUserID checks that parsing never panics and that accepted input
// round-trips through String.
func FuzzParseUserID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add("'; DROP TABLE residents;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseUserID(input)
		if err == nil {
			roundTrip, err2 := ParseUserID(id.String())
			if err2 != nil {
				t.Errorf("valid ID failed round-trip: %v", err2)
			}
			if roundTrip != id {
				t.Error("round-trip changed ID value")
			}
		}
		if !utf8.ValidString(input) && err == nil {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

// FuzzNormalizeAreaNumber checks that accepted numbers are always three digits.
func FuzzNormalizeAreaNumber(f *testing.F) {
	f.Add("5")
	f.Add("005")
	f.Add("-1")
	f.Add("1000")
	f.Add("abc")

	f.Fuzz(func(t *testing.T, input string) {
		out, err := NormalizeAreaNumber(input)
		if err == nil && len(out) != 3 {
			t.Errorf("normalized %q to %q", input, out)
		}
	})
}
