package sizing

import "testing"

func TestNormalize_RoundsUpToStep(t *testing.T) {
	tests := []struct {
		w, h         int
		wantW, wantH int
	}{
		{1000, 1000, 1024, 1024},
		{1024, 1024, 1024, 1024},
		{1, 1, 64, 64},
		{65, 63, 128, 64},
		{1536, 1536, 1536, 1536},
	}
	for _, tt := range tests {
		gotW, gotH := Normalize(tt.w, tt.h)
		if gotW != tt.wantW || gotH != tt.wantH {
			t.Errorf("Normalize(%d, %d) = (%d, %d), want (%d, %d)",
				tt.w, tt.h, gotW, gotH, tt.wantW, tt.wantH)
		}
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	w1, h1 := Normalize(1000, 1000)
	w2, h2 := Normalize(1000, 1000)
	if w1 != w2 || h1 != h2 {
		t.Fatalf("normalization is not deterministic: (%d,%d) vs (%d,%d)", w1, h1, w2, h2)
	}
}

func TestNormalize_CollapsesNearbySizes(t *testing.T) {
	w1, h1 := Normalize(1000, 1000)
	w2, h2 := Normalize(1020, 1010)
	if w1 != w2 || h1 != h2 {
		t.Fatalf("expected 1000x1000 and 1020x1010 to normalize identically, got (%d,%d) and (%d,%d)", w1, h1, w2, h2)
	}
}

func TestNormalize_ClampsToMaxEdge(t *testing.T) {
	w, h := Normalize(3000, 1500)
	if w > MaxEdge || h > MaxEdge {
		t.Fatalf("Normalize(3000, 1500) = (%d, %d), exceeds MaxEdge %d", w, h, MaxEdge)
	}
	if w%Step != 0 || h%Step != 0 {
		t.Fatalf("clamped dimensions (%d, %d) are not multiples of %d", w, h, Step)
	}

	// Aspect ratio 2:1 should survive within one rounding step.
	ratio := float64(w) / float64(h)
	if ratio < 1.8 || ratio > 2.2 {
		t.Fatalf("aspect ratio not preserved: got %.2f, want ~2.0", ratio)
	}
}

func TestNormalize_NeverZero(t *testing.T) {
	for _, dims := range [][2]int{{1, 1}, {1, 10000}, {10000, 1}, {7, 9000}} {
		w, h := Normalize(dims[0], dims[1])
		if w <= 0 || h <= 0 {
			t.Fatalf("Normalize(%d, %d) = (%d, %d): non-positive output", dims[0], dims[1], w, h)
		}
	}
}

func TestNormalize_MultiplesOfStepWithinEnvelope(t *testing.T) {
	for w := 1; w <= MaxEdge; w += 97 {
		for h := 1; h <= MaxEdge; h += 131 {
			gw, gh := Normalize(w, h)
			if gw%Step != 0 || gh%Step != 0 {
				t.Fatalf("Normalize(%d, %d) = (%d, %d): not multiples of %d", w, h, gw, gh, Step)
			}
		}
	}
}
