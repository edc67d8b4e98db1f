package window

import "testing"

func TestNearestValidMembersUnchanged(t *testing.T) {
	for _, s := range Ladder {
		if got := NearestValid(s); got != s {
			t.Errorf("NearestValid(%d) = %d, want unchanged", s, got)
		}
	}
}

func TestNearestValidSnapping(t *testing.T) {
	cases := []struct {
		requested int
		want      int
	}{
		{0, 4096},
		{-100, 4096},
		{1, 4096},
		{5000, 4096},
		{6144, 4096}, // equidistant between 4096 and 8192, ties go low
		{6145, 8192},
		{7000, 8192},
		{10000, 8192},
		{30000, 32768},
		{200000, 262144},
		{1 << 30, 262144},
	}
	for _, c := range cases {
		if got := NearestValid(c.requested); got != c.want {
			t.Errorf("NearestValid(%d) = %d, want %d", c.requested, got, c.want)
		}
	}
}

func TestNearestValidAlwaysInLadder(t *testing.T) {
	for n := -1000; n < 300000; n += 777 {
		if !Valid(NearestValid(n)) {
			t.Fatalf("NearestValid(%d) = %d not in ladder", n, NearestValid(n))
		}
	}
}

func TestNextUpDown(t *testing.T) {
	if got := NextUp(4096); got != 8192 {
		t.Errorf("NextUp(4096) = %d, want 8192", got)
	}
	if got := NextUp(262144); got != 0 {
		t.Errorf("NextUp(262144) = %d, want 0", got)
	}
	if got := NextDown(8192); got != 4096 {
		t.Errorf("NextDown(8192) = %d, want 4096", got)
	}
	if got := NextDown(4096); got != 0 {
		t.Errorf("NextDown(4096) = %d, want 0", got)
	}
}
