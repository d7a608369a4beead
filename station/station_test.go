package station

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	s, err := New("Central", "1 Main St", "MTL", 45.5, -73.5, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.IsActive() {
		t.Errorf("expected new station to be active")
	}
	if s.HasBikes() {
		t.Errorf("expected new station to be empty")
	}
	if s.Lat() != 45.5 || s.Lng() != -73.5 {
		t.Errorf("expected location (45.5, -73.5), got (%v, %v)", s.Lat(), s.Lng())
	}

	if _, err := New("Broken", "", "", 0, 0, 0); !errors.Is(err, ErrInvalidCapacity) {
		t.Errorf("expected ErrInvalidCapacity, got %v", err)
	}
}

func TestIsFull(t *testing.T) {
	s := Station{Capacity: 2, CurrentBikeCount: 1}
	if s.IsFull() {
		t.Errorf("expected station with free dock not to be full")
	}
	s.CurrentBikeCount = 2
	if !s.IsFull() {
		t.Errorf("expected station at capacity to be full")
	}
}

func TestParseStatus(t *testing.T) {
	if st, err := ParseStatus("OUT_OF_SERVICE"); err != nil || st != OutOfService {
		t.Errorf("expected OUT_OF_SERVICE, got %v (%v)", st, err)
	}
	if _, err := ParseStatus("closed"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
}
