package storage

import (
	"reflect"
	"testing"
)

func TestLinkSetBasics(t *testing.T) {
	s := NewLinkSet("b", "a", "", "a")
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	if !s.Add("c") || s.Add("c") || s.Add("") {
		t.Fatalf("Add should report only new, non-empty links")
	}
	if got := s.Sorted(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("Sorted = %v", got)
	}

	c := s.Clone()
	c.Add("d")
	if s.Has("d") {
		t.Fatalf("Clone must not share storage")
	}
	if n := s.Merge(c); n != 1 || !s.Has("d") {
		t.Fatalf("Merge added %d", n)
	}
}

func TestEmptyLinkSetSortedIsNotNil(t *testing.T) {
	var s LinkSet
	if got := s.Sorted(); got == nil || len(got) != 0 {
		t.Fatalf("Sorted on nil set = %#v", got)
	}
	if c := s.Clone(); c == nil {
		t.Fatalf("Clone of nil set should be usable")
	}
}
