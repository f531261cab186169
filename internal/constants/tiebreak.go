package constants

// TieBreak selects which of two equally desired decisions wins.
type TieBreak string

const (
	// TieBreakFirst keeps the earlier candidate on ties
	TieBreakFirst TieBreak = "first"

	// TieBreakLast takes the later candidate on ties
	TieBreakLast TieBreak = "last"
)

// Valid returns true if the tie-break is a recognized value.
func (t TieBreak) Valid() bool {
	switch t {
	case TieBreakFirst, TieBreakLast:
		return true
	}
	return false
}

// String returns the string representation of the tie-break.
func (t TieBreak) String() string {
	return string(t)
}
