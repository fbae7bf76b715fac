package bloom

import "testing"

func TestAddedKeyIsNeverAFalseNegative(t *testing.T) {
	f := New(1<<12, 7)
	keys := []string{"a", "b", "c", "namespace\x00field"}
	for _, k := range keys {
		f.Add(k)
	}
	for _, k := range keys {
		if !f.MayContain(k) {
			t.Errorf("MayContain(%q) = false after Add, want true", k)
		}
	}
}

func TestUnaddedKeyIsUsuallyRejected(t *testing.T) {
	f := New(1<<16, 7)
	for i := 0; i < 100; i++ {
		f.Add(string(rune('a' + i%26)))
	}
	if f.MayContain("definitely-never-added-xyz") {
		// A false positive here is possible but astronomically unlikely
		// at this fill ratio; it would point to a hashing bug, not noise.
		t.Errorf("MayContain reported true for a key that was never added")
	}
}

func TestClearResetsMembership(t *testing.T) {
	f := New(1<<12, 7)
	f.Add("k")
	f.Clear()
	if f.MayContain("k") {
		t.Errorf("expected MayContain(k) = false after Clear")
	}
	if f.Count() != 0 {
		t.Errorf("expected Count() = 0 after Clear, got %d", f.Count())
	}
}

func TestFillRatioIncreasesWithAdds(t *testing.T) {
	f := New(1<<12, 7)
	before := f.FillRatio()
	for i := 0; i < 50; i++ {
		f.Add(string(rune('a' + i%26)))
	}
	after := f.FillRatio()
	if after <= before {
		t.Errorf("expected FillRatio to increase, before=%v after=%v", before, after)
	}
}
