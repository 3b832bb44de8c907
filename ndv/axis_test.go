package ndv

import (
	"encoding/json"
	"testing"
)

func TestAxisKeyJSON(t *testing.T) {
	tests := []struct {
		key  AxisKey
		want string
	}{
		{Axis(0), "0"},
		{Axis(-2), "-2"},
		{NamedAxis("time"), `"time"`},
	}
	for _, tc := range tests {
		b, err := json.Marshal(tc.key)
		if err != nil {
			t.Fatalf("marshal %s: %v", tc.key, err)
		}
		if string(b) != tc.want {
			t.Errorf("marshal %s: got %s, want %s", tc.key, b, tc.want)
		}
		var back AxisKey
		if err := json.Unmarshal(b, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", b, err)
		}
		if back != tc.key {
			t.Errorf("round trip %s: got %v, want %v", b, back, tc.key)
		}
	}

	var k AxisKey
	if err := json.Unmarshal([]byte(`{"bad": 1}`), &k); err == nil {
		t.Errorf("expected error unmarshaling object into AxisKey")
	}
}

func TestSliceResolve(t *testing.T) {
	tests := []struct {
		s      Slice
		size   int
		lo, hi int
	}{
		{FullSlice(), 10, 0, 10},
		{Slice{2, 5}, 10, 2, 5},
		{Slice{2, SliceEnd}, 10, 2, 10},
		{Slice{2, 50}, 10, 2, 10},
		{Slice{8, 4}, 10, 8, 8},
		{Slice{-3, 4}, 10, 0, 4},
	}
	for _, tc := range tests {
		lo, hi := tc.s.Resolve(tc.size)
		if lo != tc.lo || hi != tc.hi {
			t.Errorf("%s.Resolve(%d): got [%d, %d), want [%d, %d)",
				tc.s, tc.size, lo, hi, tc.lo, tc.hi)
		}
	}
}

func TestIndexJSON(t *testing.T) {
	pt := At(7)
	b, _ := json.Marshal(pt)
	if string(b) != "7" {
		t.Errorf("point index marshal: got %s, want 7", b)
	}
	var back Index
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal point: %v", err)
	}
	if back.IsSlice() || back.Point() != 7 {
		t.Errorf("point round trip: got %v", back)
	}

	sp := Span(Slice{10, 20})
	b, _ = json.Marshal(sp)
	if string(b) != "[10,20]" {
		t.Errorf("span marshal: got %s, want [10,20]", b)
	}
	if err := json.Unmarshal([]byte("[3,null]"), &back); err != nil {
		t.Fatalf("unmarshal open span: %v", err)
	}
	if !back.IsSlice() || back.Slice() != (Slice{3, SliceEnd}) {
		t.Errorf("open span: got %v", back)
	}
}

func TestIndexAsSlice(t *testing.T) {
	if got := At(4).AsSlice(); got != (Slice{4, 5}) {
		t.Errorf("At(4).AsSlice(): got %v, want [4:5]", got)
	}
	if got := Span(Slice{1, 9}).AsSlice(); got != (Slice{1, 9}) {
		t.Errorf("Span.AsSlice(): got %v", got)
	}
}
