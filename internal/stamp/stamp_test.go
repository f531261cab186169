package stamp

import "testing"

func TestSource_New(t *testing.T) {
	var src Source
	a := src.New()
	b := src.New()
	if a.IDs[0] == 0 || b.IDs[0] == 0 {
		t.Fatal("fresh stamps must carry a non-zero id")
	}
	if Overlap(a, b) {
		t.Error("fresh stamps must not overlap")
	}
	if !Overlap(a, a) {
		t.Error("a stamp overlaps itself")
	}
}

func TestMake(t *testing.T) {
	var src Source
	a := src.New()
	b := src.New()
	m := Make(a, b)
	if !Overlap(m, a) || !Overlap(m, b) {
		t.Error("merged stamp must overlap both parents")
	}
	if m.IDs[0] != a.IDs[0] || m.IDs[1] != b.IDs[0] {
		t.Errorf("merged ids = %v, want zipped order", m.IDs[:2])
	}

	dup := Make(m, a)
	count := 0
	for _, id := range dup.IDs {
		if id == a.IDs[0] {
			count++
		}
	}
	if count != 1 {
		t.Errorf("duplicate id appears %d times", count)
	}
}

func TestMake_Truncates(t *testing.T) {
	var src Source
	acc := src.New()
	for i := 0; i < 2*Size; i++ {
		acc = Make(src.New(), acc)
	}
	n := 0
	for _, id := range acc.IDs {
		if id != 0 {
			n++
		}
	}
	if n != Size {
		t.Errorf("stamp holds %d ids, want %d", n, Size)
	}
}

func TestOverlap_IgnoresEmptySlots(t *testing.T) {
	if Overlap(Stamp{}, Stamp{}) {
		t.Error("empty stamps must not overlap")
	}
	if !(Stamp{}).Empty() {
		t.Error("zero stamp must be empty")
	}
}
