// Package stamp tracks the evidential base of events so that no piece of
// evidence is counted twice in one inference.
package stamp

import (
	"sync/atomic"
)

// Size is the maximum number of evidence ids a stamp carries.
const Size = 10

// Stamp is a fixed-size evidence base. Unused slots are zero.
// Being an array, a Stamp is copied by value.
type Stamp struct {
	IDs [Size]uint64 `json:"ids"`
}

// Source hands out fresh evidence ids for input events.
type Source struct {
	next atomic.Uint64
}

// New returns a stamp holding one fresh evidence id.
func (s *Source) New() Stamp {
	var st Stamp
	st.IDs[0] = s.next.Add(1)
	return st
}

// Make zips two stamps together, alternating ids and dropping duplicates,
// truncated to Size.
func Make(a, b Stamp) Stamp {
	var out Stamp
	n := 0
	add := func(id uint64) {
		if id == 0 || n >= Size {
			return
		}
		for i := 0; i < n; i++ {
			if out.IDs[i] == id {
				return
			}
		}
		out.IDs[n] = id
		n++
	}
	for i := 0; i < Size; i++ {
		add(a.IDs[i])
		add(b.IDs[i])
	}
	return out
}

// Overlap reports whether the two stamps share any evidence id.
func Overlap(a, b Stamp) bool {
	for _, x := range a.IDs {
		if x == 0 {
			continue
		}
		for _, y := range b.IDs {
			if x == y {
				return true
			}
		}
	}
	return false
}

// Empty reports whether the stamp carries no evidence.
func (s Stamp) Empty() bool {
	return s.IDs[0] == 0
}
