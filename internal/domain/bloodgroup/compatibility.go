package bloodgroup

import "encoding/json"

// Set is an immutable set of blood groups stored as a bitmask.
type Set uint8

// Universal is the set of all eight groups.
const Universal Set = 1<<count - 1

// NewSet builds a set from the given groups. Invalid groups are ignored.
func NewSet(groups ...Group) Set {
	var s Set
	for _, g := range groups {
		if g.Valid() {
			s |= 1 << (g - 1)
		}
	}
	return s
}

func (s Set) Contains(g Group) bool {
	return g.Valid() && s&(1<<(g-1)) != 0
}

func (s Set) Len() int {
	n := 0
	for v := s; v != 0; v &= v - 1 {
		n++
	}
	return n
}

// Groups returns the members in canonical order.
func (s Set) Groups() []Group {
	out := make([]Group, 0, s.Len())
	for _, g := range All() {
		if s.Contains(g) {
			out = append(out, g)
		}
	}
	return out
}

func (s Set) Strings() []string {
	groups := s.Groups()
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.String()
	}
	return out
}

func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// Compatibility lists which groups a blood group can receive from and
// donate to.
type Compatibility struct {
	Group          Group `json:"blood_group"`
	CanReceiveFrom Set   `json:"can_receive_from"`
	CanDonateTo    Set   `json:"can_donate_to"`
}

// table is indexed by Group-1. It is an array so every read hands out a copy.
var table = [count]Compatibility{
	{APos, NewSet(APos, ANeg, OPos, ONeg), NewSet(APos, ABPos)},
	{ANeg, NewSet(ANeg, ONeg), NewSet(APos, ANeg, ABPos, ABNeg)},
	{BPos, NewSet(BPos, BNeg, OPos, ONeg), NewSet(BPos, ABPos)},
	{BNeg, NewSet(BNeg, ONeg), NewSet(BPos, BNeg, ABPos, ABNeg)},
	{ABPos, Universal, NewSet(ABPos)},
	{ABNeg, NewSet(ANeg, BNeg, ABNeg, ONeg), NewSet(ABPos, ABNeg)},
	{OPos, NewSet(OPos, ONeg), NewSet(APos, BPos, ABPos, OPos)},
	{ONeg, NewSet(ONeg), Universal},
}

// Compatibility returns the table entry for g. An invalid group yields the
// zero Compatibility with empty sets.
func (g Group) Compatibility() Compatibility {
	if !g.Valid() {
		return Compatibility{}
	}
	return table[g-1]
}

// Lookup returns the compatibility entry for a canonical label. ok is false
// when the label is not one of the eight groups.
func Lookup(label string) (c Compatibility, ok bool) {
	g, err := Parse(label)
	if err != nil {
		return Compatibility{}, false
	}
	return table[g-1], true
}

// Table returns every entry in canonical order.
func Table() []Compatibility {
	out := make([]Compatibility, count)
	copy(out, table[:])
	return out
}

// CanDonate reports whether blood from donor may be given to recipient.
func CanDonate(donor, recipient Group) bool {
	return recipient.Compatibility().CanReceiveFrom.Contains(donor)
}
