package domainerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMatchesKindAndIdentity(t *testing.T) {
	errFull := Conflict("STATION_FULL", "station is full")
	errOther := Conflict("STATION_FULL", "station is full")

	wrapped := fmt.Errorf("return bike: %w", errFull)

	if !errors.Is(wrapped, errFull) {
		t.Errorf("expected wrapped error to match its sentinel")
	}
	if !errors.Is(wrapped, ErrConflict) {
		t.Errorf("expected wrapped error to match its kind")
	}
	if errors.Is(wrapped, ErrValidation) {
		t.Errorf("expected conflict not to match validation kind")
	}
	if errors.Is(wrapped, errOther) {
		t.Errorf("expected distinct sentinels with equal fields not to match")
	}
	if got := CodeOf(wrapped); got != "STATION_FULL" {
		t.Errorf("expected code STATION_FULL, got %s", got)
	}
	if got := CodeOf(errors.New("plain")); got != "" {
		t.Errorf("expected empty code for plain error, got %s", got)
	}
}
