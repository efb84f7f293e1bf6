package models

// Premium is an option premium that may be absent. A zero premium from a
// real quote and a missing quote are different states; downstream yield and
// win-probability math is only valid for present values.
type Premium struct {
	value float64
	ok    bool
}

// SomePremium returns a present premium.
func SomePremium(v float64) Premium {
	return Premium{value: v, ok: true}
}

// NoPremium returns an absent premium.
func NoPremium() Premium {
	return Premium{}
}

// Value returns the premium and whether it is present.
func (p Premium) Value() (float64, bool) {
	return p.value, p.ok
}

// Present reports whether the premium carries a value.
func (p Premium) Present() bool {
	return p.ok
}
