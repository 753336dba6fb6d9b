package quack

import (
	"sort"
	"testing"
)

func buildRIBLT(m int, mode DecodeMode, hashes []uint32) *RIBLT {
	r := NewRIBLT(m, mode)
	for _, h := range hashes {
		r.Insert(h)
	}
	return r
}

func sortedU32(vs []uint32) []uint32 {
	out := append([]uint32{}, vs...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func TestRIBLTDecodesSingleRemoteDrop(t *testing.T) {
	all := []uint32{1, 2, 3, 4, 5}
	received := []uint32{1, 2, 4, 5}

	logSketch := buildRIBLT(64, ModeSubsetOnly, all)
	receivedSketch := buildRIBLT(64, ModeSubsetOnly, received)

	if err := logSketch.SubAssign(receivedSketch); err != nil {
		t.Fatalf("SubAssign: %v", err)
	}
	remote, local, ok := logSketch.Decode()
	if !ok {
		t.Fatalf("expected successful decode")
	}
	if len(local) != 0 {
		t.Fatalf("expected no local-only elements, got %v", local)
	}
	got := sortedU32(remote)
	want := []uint32{3}
	if len(got) != len(want) || got[0] != want[0] {
		t.Fatalf("expected remote-only {3}, got %v", got)
	}
}

func TestRIBLTDecodesMultipleDrops(t *testing.T) {
	all := make([]uint32, 0, 50)
	for i := uint32(1); i <= 50; i++ {
		all = append(all, i*97+11)
	}
	dropped := map[uint32]bool{}
	received := make([]uint32, 0, 45)
	for i, h := range all {
		if i%10 == 0 {
			dropped[h] = true
			continue
		}
		received = append(received, h)
	}

	logSketch := buildRIBLT(256, ModeSubsetOnly, all)
	receivedSketch := buildRIBLT(256, ModeSubsetOnly, received)
	if err := logSketch.SubAssign(receivedSketch); err != nil {
		t.Fatalf("SubAssign: %v", err)
	}

	remote, _, ok := logSketch.Decode()
	if !ok {
		t.Fatalf("expected successful decode with room to spare")
	}
	if len(remote) != len(dropped) {
		t.Fatalf("expected %d remote-only elements, got %d", len(dropped), len(remote))
	}
	for _, h := range remote {
		if !dropped[h] {
			t.Fatalf("decoded element %d was not actually dropped", h)
		}
	}
}

func TestRIBLTTwoWayDecodesBothSides(t *testing.T) {
	logSketch := buildRIBLT(64, ModeTwoWay, []uint32{1, 2, 3})
	otherSketch := buildRIBLT(64, ModeTwoWay, []uint32{2, 3, 9})

	if err := logSketch.SubAssign(otherSketch); err != nil {
		t.Fatalf("SubAssign: %v", err)
	}
	remote, local, ok := logSketch.Decode()
	if !ok {
		t.Fatalf("expected successful decode")
	}
	if len(remote) != 1 || remote[0] != 1 {
		t.Fatalf("expected remote-only {1}, got %v", remote)
	}
	if len(local) != 1 || local[0] != 9 {
		t.Fatalf("expected local-only {9}, got %v", local)
	}
}

func TestRIBLTSubsetOnlyRejectsNegativeCount(t *testing.T) {
	logSketch := buildRIBLT(64, ModeSubsetOnly, []uint32{1, 2, 3})
	otherSketch := buildRIBLT(64, ModeSubsetOnly, []uint32{1, 2, 3, 9})

	if err := logSketch.SubAssign(otherSketch); err != nil {
		t.Fatalf("SubAssign: %v", err)
	}
	_, _, ok := logSketch.Decode()
	if ok {
		t.Fatalf("expected decode failure: a Count == -1 cell appeared under ModeSubsetOnly")
	}
}

func TestRIBLTLastValueTracksMostRecentInsert(t *testing.T) {
	r := NewRIBLT(64, ModeSubsetOnly)
	r.Insert(10)
	r.Insert(20)
	if !r.HasLastValue || r.LastValue != 20 {
		t.Fatalf("expected last_value=20, got HasLastValue=%v LastValue=%d", r.HasLastValue, r.LastValue)
	}
	r.Remove(10)
	if !r.HasLastValue || r.LastValue != 20 {
		t.Fatalf("expected last_value to survive removing a non-last element, got HasLastValue=%v LastValue=%d", r.HasLastValue, r.LastValue)
	}
	r.Remove(20)
	if r.HasLastValue {
		t.Fatalf("expected last_value to be cleared after removing the element it named")
	}
}

func TestRIBLTSubAssignClearsLastValue(t *testing.T) {
	a := buildRIBLT(64, ModeSubsetOnly, []uint32{1, 2})
	b := buildRIBLT(64, ModeSubsetOnly, []uint32{1})
	if err := a.SubAssign(b); err != nil {
		t.Fatalf("SubAssign: %v", err)
	}
	if a.HasLastValue {
		t.Fatalf("expected SubAssign to unconditionally clear last_value")
	}
}

func TestRIBLTToBytesFromBytesRoundTripsLastValue(t *testing.T) {
	r := buildRIBLT(32, ModeSubsetOnly, []uint32{10, 20, 30})
	data := r.ToBytes()

	parsed, err := RIBLTFromBytes(data, ModeSubsetOnly)
	if err != nil {
		t.Fatalf("RIBLTFromBytes: %v", err)
	}
	if !parsed.HasLastValue || parsed.LastValue != r.LastValue {
		t.Fatalf("expected last_value=%d to round-trip, got HasLastValue=%v LastValue=%d", r.LastValue, parsed.HasLastValue, parsed.LastValue)
	}
}

func TestRIBLTToBytesFromBytesRoundTrip(t *testing.T) {
	r := buildRIBLT(32, ModeSubsetOnly, []uint32{10, 20, 30})
	data := r.ToBytes()

	parsed, err := RIBLTFromBytes(data, ModeSubsetOnly)
	if err != nil {
		t.Fatalf("RIBLTFromBytes: %v", err)
	}
	if parsed.Count != r.Count {
		t.Fatalf("count mismatch: got %d want %d", parsed.Count, r.Count)
	}
	if len(parsed.Sketch) != len(r.Sketch) {
		t.Fatalf("cell count mismatch: got %d want %d", len(parsed.Sketch), len(r.Sketch))
	}
	for i := range r.Sketch {
		if parsed.Sketch[i] != r.Sketch[i] {
			t.Fatalf("cell %d mismatch: got %+v want %+v", i, parsed.Sketch[i], r.Sketch[i])
		}
	}
}

func TestRIBLTHintIsAPrefixOfTheFullSketch(t *testing.T) {
	logSketch := buildRIBLT(512, ModeSubsetOnly, []uint32{1, 2, 3, 4, 5, 6, 7, 8})

	hint := logSketch.ToBytesHint(2) // min(512, 4*2) = 8 cells
	truncated, err := RIBLTFromBytes(hint, ModeSubsetOnly)
	if err != nil {
		t.Fatalf("RIBLTFromBytes(hint): %v", err)
	}
	if len(truncated.Sketch) != 8 {
		t.Fatalf("expected an 8-cell hint, got %d cells", len(truncated.Sketch))
	}
	for i, c := range truncated.Sketch {
		if c != logSketch.Sketch[i] {
			t.Fatalf("hint cell %d diverges from the full sketch: got %+v want %+v", i, c, logSketch.Sketch[i])
		}
	}
}

func TestRIBLTHintClampsToSketchSize(t *testing.T) {
	logSketch := buildRIBLT(16, ModeSubsetOnly, []uint32{1, 2, 3})
	hint := logSketch.ToBytesHint(1000) // 4*1000 far exceeds the 16-cell sketch
	truncated, err := RIBLTFromBytes(hint, ModeSubsetOnly)
	if err != nil {
		t.Fatalf("RIBLTFromBytes(hint): %v", err)
	}
	if len(truncated.Sketch) != 16 {
		t.Fatalf("expected the hint to clamp to the full 16-cell sketch, got %d", len(truncated.Sketch))
	}
}
