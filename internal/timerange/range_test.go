package timerange

import (
	"reflect"
	"testing"
)

func TestParseList(t *testing.T) {
	got, err := ParseList("10-20, 35.5-40")
	if err != nil {
		t.Fatalf("ParseList: %v", err)
	}
	want := []Range{{Start: 10, End: 20}, {Start: 35.5, End: 40}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseList = %v, want %v", got, want)
	}
}

func TestParseListRejectsBadInput(t *testing.T) {
	for _, text := range []string{"", "10", "20-10", "5-5", "-3-7", "a-b"} {
		if _, err := ParseList(text); err == nil {
			t.Errorf("ParseList(%q) accepted invalid input", text)
		}
	}
}

func TestMergeCoalescesOverlaps(t *testing.T) {
	got := Merge([]Range{{Start: 10, End: 20}, {Start: 15, End: 30}})
	want := []Range{{Start: 10, End: 30}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Merge = %v, want %v", got, want)
	}

	// merging is idempotent
	again := Merge(got)
	if !reflect.DeepEqual(again, want) {
		t.Fatalf("Merge(Merge(x)) = %v, want %v", again, want)
	}
}

func TestMergeKeepsDisjoint(t *testing.T) {
	got := Merge([]Range{{Start: 40, End: 50}, {Start: 10, End: 20}})
	want := []Range{{Start: 10, End: 20}, {Start: 40, End: 50}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Merge = %v, want %v", got, want)
	}
}

func TestComplement(t *testing.T) {
	got := Complement([]Range{{Start: 10, End: 20}, {Start: 15, End: 30}}, 100)
	want := []Range{{Start: 0, End: 10}, {Start: 30, End: 100}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Complement = %v, want %v", got, want)
	}
}

func TestComplementEdges(t *testing.T) {
	// range from zero: no leading segment
	got := Complement([]Range{{Start: 0, End: 10}}, 100)
	if !reflect.DeepEqual(got, []Range{{Start: 10, End: 100}}) {
		t.Fatalf("leading cut: %v", got)
	}

	// range past the end removes nothing
	got = Complement([]Range{{Start: 200, End: 300}}, 100)
	if !reflect.DeepEqual(got, []Range{{Start: 0, End: 100}}) {
		t.Fatalf("out-of-bounds cut: %v", got)
	}

	// full coverage leaves nothing
	if got := Complement([]Range{{Start: 0, End: 100}}, 100); got != nil {
		t.Fatalf("full cut: %v", got)
	}
}

func TestClampedTotal(t *testing.T) {
	total := ClampedTotal([]Range{{Start: 10, End: 20}, {Start: 90, End: 150}}, 100)
	if total != 20 {
		t.Fatalf("ClampedTotal = %v, want 20", total)
	}
}
