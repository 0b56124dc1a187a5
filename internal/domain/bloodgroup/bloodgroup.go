// Package bloodgroup models the eight ABO/Rh blood groups and the fixed
// donor/recipient compatibility table between them.
package bloodgroup

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

// ErrUnknownBloodGroup is returned when a label is not one of the eight
// canonical blood groups.
var ErrUnknownBloodGroup = errors.New("unknown blood group")

// Group is one of the eight canonical ABO/Rh blood groups. The zero value
// means "no group" and is never a valid lookup key.
type Group uint8

const (
	APos Group = iota + 1
	ANeg
	BPos
	BNeg
	ABPos
	ABNeg
	OPos
	ONeg
)

const count = 8

var labels = [count + 1]string{
	"",
	"A+", "A-",
	"B+", "B-",
	"AB+", "AB-",
	"O+", "O-",
}

// All returns the eight groups in canonical order.
func All() []Group {
	return []Group{APos, ANeg, BPos, BNeg, ABPos, ABNeg, OPos, ONeg}
}

// Parse converts a canonical label ("A+", "O-", ...) into a Group. The match
// is exact: no case folding and no whitespace trimming.
func Parse(label string) (Group, error) {
	for i := 1; i <= count; i++ {
		if labels[i] == label {
			return Group(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownBloodGroup, label)
}

// MustParse is Parse for labels known at compile time.
func MustParse(label string) Group {
	g, err := Parse(label)
	if err != nil {
		panic(err)
	}
	return g
}

// Valid reports whether g is one of the eight canonical groups.
func (g Group) Valid() bool {
	return g >= APos && g <= ONeg
}

func (g Group) String() string {
	if !g.Valid() {
		return ""
	}
	return labels[g]
}

// MarshalText renders the zero group as an empty string, the form
// UnmarshalText accepts for it.
func (g Group) MarshalText() ([]byte, error) {
	if g == 0 {
		return []byte{}, nil
	}
	if !g.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBloodGroup, uint8(g))
	}
	return []byte(labels[g]), nil
}

func (g *Group) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*g = 0
		return nil
	}
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// Value stores the label, or NULL for the zero group.
func (g Group) Value() (driver.Value, error) {
	if !g.Valid() {
		return nil, nil
	}
	return labels[g], nil
}

// Scan reads a label column. NULL scans to the zero group.
func (g *Group) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*g = 0
		return nil
	case string:
		return g.UnmarshalText([]byte(v))
	case []byte:
		return g.UnmarshalText(v)
	default:
		return fmt.Errorf("bloodgroup: cannot scan %T", src)
	}
}
