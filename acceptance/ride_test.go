package acceptance

import (
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
)

func (ts *TestServer) rides(t *testing.T, path, userID string) []rideBody {
	t.Helper()
	w := ts.GET(path, as(userID))
	expectStatus(t, w, http.StatusOK)
	var rides []rideBody
	decode(t, w, &rides)
	return rides
}

func TestRides_HistoryFiltersAndStats(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.PublishTestPlan(t)
	a := ts.CreateTestStation(t, "Atwater", 4)
	b := ts.CreateTestStation(t, "Berri", 4)
	bikeID := ts.CreateTestBike(t, "E_BIKE", "E-1", a)
	ts.trip(t, "rider-1", a, b, bikeID, 10)
	ts.trip(t, "rider-1", b, a, bikeID, 20)
	riderID := ts.CustomerID(t, "rider-1")

	if got := ts.rides(t, "/rides", "rider-1"); len(got) != 2 {
		t.Fatalf("expected 2 rides, got %d", len(got))
	}
	if got := ts.rides(t, "/rides?stationId="+a, "rider-1"); len(got) != 2 {
		t.Errorf("expected both rides to touch %s, got %d", a, len(got))
	}
	got := ts.rides(t, "/rides?startStationOnly=true&stationId="+b, "rider-1")
	if len(got) != 1 || got[0].EndStationID != a {
		t.Errorf("expected only the ride from %s, got %+v", b, got)
	}
	first := ts.rides(t, "/rides?size=1", "rider-1")
	second := ts.rides(t, "/rides?size=1&page=1", "rider-1")
	if len(first) != 1 || len(second) != 1 || first[0].ID == second[0].ID {
		t.Errorf("expected two distinct pages, got %+v and %+v", first, second)
	}
	if first[0].EndStationID != a {
		t.Errorf("expected newest ride first, got %+v", first[0])
	}
	if got := ts.rides(t, "/rides?bikeType=STANDARD", "rider-1"); len(got) != 0 {
		t.Errorf("expected no standard bike rides, got %d", len(got))
	}

	for _, q := range []string{"size=0", "size=101", "page=-1", "status=LOST", "from=yesterday", "stationId=nope"} {
		w := ts.GET("/rides?"+q, as("rider-1"))
		expectCode(t, w, http.StatusBadRequest, "INVALID_FILTER")
	}

	// Other riders see nothing, and cannot widen the search to someone else.
	if got := ts.rides(t, "/rides?riderId="+riderID.String(), "rider-2"); len(got) != 0 {
		t.Errorf("expected rider-2 to see no rides, got %d", len(got))
	}

	w := ts.GET("/rides/stats", as("rider-1"))
	expectStatus(t, w, http.StatusOK)
	var stats struct {
		TotalRides             int             `json:"totalRides"`
		TotalDistanceKm        float64         `json:"totalDistanceKm"`
		TotalCost              decimal.Decimal `json:"totalCost"`
		AverageDurationMinutes float64         `json:"averageDurationMinutes"`
		FavoriteBikeType       string          `json:"favoriteBikeType"`
	}
	decode(t, w, &stats)
	if stats.TotalRides != 2 || stats.AverageDurationMinutes != 15 || stats.FavoriteBikeType != "E_BIKE" {
		t.Errorf("unexpected stats %+v", stats)
	}
	// (1.50 + 10 x 0.25 + 0.80) + (1.50 + 20 x 0.25 + 0.80)
	if !stats.TotalCost.Equal(decimal.RequireFromString("12.10")) {
		t.Errorf("expected total cost 12.10, got %s", stats.TotalCost)
	}

	w = ts.GET("/rides/all", as("rider-1"))
	expectCode(t, w, http.StatusForbidden, "FORBIDDEN")
	if got := ts.rides(t, "/rides/all?riderId="+riderID.String(), operatorID); len(got) != 2 {
		t.Errorf("expected operator to see 2 rides, got %d", len(got))
	}
	if got := ts.rides(t, "/rides/all?bikeId="+bikeID+"&status=COMPLETED", operatorID); len(got) != 2 {
		t.Errorf("expected 2 completed rides on %s, got %d", bikeID, len(got))
	}
}
