package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/semanticallynull/bikeshare-backend/bike"
	"github.com/semanticallynull/bikeshare-backend/fleet"
	"github.com/semanticallynull/bikeshare-backend/internal/middleware"
	"github.com/semanticallynull/bikeshare-backend/ride"
)

func (a *API) bikesHandler(c *gin.Context) {
	bikes, err := a.fleet.Bikes(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, toBikeResponses(bikes))
}

func (a *API) bikeHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	b, err := a.fleet.Bike(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, toBikeResponse(b))
}

type reserveRequest struct {
	StationID  uuid.UUID `json:"stationId" binding:"required"`
	TTLMinutes int       `json:"ttlMinutes"`
}

func (a *API) reserveHandler(c *gin.Context) {
	var req reserveRequest
	if !bind(c, &req) {
		return
	}

	b, err := a.fleet.Reserve(c.Request.Context(), req.StationID, rider(c).ID, req.TTLMinutes)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBikeResponse(b))
}

func (a *API) checkoutHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	b, err := a.fleet.Checkout(c.Request.Context(), id, rider(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toBikeResponse(b))
}

type returnRequest struct {
	StationID       uuid.UUID `json:"stationId" binding:"required"`
	DurationMinutes float64   `json:"durationMinutes"`
	DistanceKm      float64   `json:"distanceKm"`
}

// returnHandler docks the bike and answers with the ride the return
// completed, including its cost.
func (a *API) returnHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req returnRequest
	if !bind(c, &req) {
		return
	}

	ctx := c.Request.Context()
	riderID := rider(c).ID
	// Looked up before the return completes it.
	current, _ := a.rides.Current(ctx, riderID)

	b, err := a.fleet.Return(ctx, id, req.StationID, riderID, req.DurationMinutes, req.DistanceKm)
	if err != nil {
		fail(c, err)
		return
	}

	resp := returnResponse{Bike: toBikeResponse(b)}
	if current.ID != uuid.Nil {
		resp.Ride = a.completedRide(c, current.ID)
	}
	c.JSON(http.StatusOK, resp)
}

func (a *API) completedRide(c *gin.Context, rideID uuid.UUID) *ride.Ride {
	r, err := a.rides.Get(c.Request.Context(), rideID)
	if err != nil {
		middleware.GetLogger(c).WarnContext(c.Request.Context(), "failed to load completed ride", "error", err)
		return nil
	}
	return &r
}

type createBikeRequest struct {
	Type      string    `json:"type" binding:"required"`
	Label     string    `json:"label" binding:"required"`
	StationID uuid.UUID `json:"stationId" binding:"required"`
}

func (a *API) createBikeHandler(c *gin.Context) {
	var req createBikeRequest
	if !bind(c, &req) {
		return
	}

	b, err := a.fleet.CreateBike(c.Request.Context(), bike.Type(req.Type), req.Label, req.StationID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBikeResponse(b))
}

type moveRequest struct {
	StationID uuid.UUID `json:"stationId" binding:"required"`
}

func (a *API) moveHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req moveRequest
	if !bind(c, &req) {
		return
	}

	b, err := a.fleet.Move(c.Request.Context(), id, req.StationID, rider(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toBikeResponse(b))
}

func (a *API) maintenanceHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	b, err := a.fleet.SendToMaintenance(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toBikeResponse(b))
}

func (a *API) completeMaintenanceHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	b, err := a.fleet.CompleteMaintenance(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toBikeResponse(b))
}

type telemetryRequest struct {
	Lat          *float64 `json:"latitude"`
	Lng          *float64 `json:"longitude"`
	BatteryLevel *int     `json:"batteryLevel"`
}

func (a *API) telemetryHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req telemetryRequest
	if !bind(c, &req) {
		return
	}

	b, err := a.fleet.UpdateTelemetry(c.Request.Context(), id, fleet.Telemetry{
		Lat:          req.Lat,
		Lng:          req.Lng,
		BatteryLevel: req.BatteryLevel,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toBikeResponse(b))
}

func (a *API) expireHandler(c *gin.Context) {
	n, err := a.fleet.ProcessExpiredReservations(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expired": n})
}

type bikeResponse struct {
	ID                   uuid.UUID   `json:"id"`
	Label                string      `json:"label"`
	Type                 bike.Type   `json:"type"`
	Status               bike.Status `json:"status"`
	StationID            *uuid.UUID  `json:"stationId,omitempty"`
	BatteryLevel         *int        `json:"batteryLevel,omitempty"`
	ReservationExpiresAt *time.Time  `json:"reservationExpiresAt,omitempty"`
	LastMaintenance      *time.Time  `json:"lastMaintenance,omitempty"`
}

type returnResponse struct {
	Bike bikeResponse `json:"bike"`
	Ride *ride.Ride     `json:"ride,omitempty"`
}

func toBikeResponse(b bike.Bike) bikeResponse {
	br := bikeResponse{
		ID:                   b.ID,
		Label:                b.Label,
		Type:                 b.Type,
		Status:               b.Status,
		StationID:            b.StationID,
		ReservationExpiresAt: b.ReservationExpiresAt,
		LastMaintenance:      b.LastMaintenance,
	}
	if b.IsEBike() {
		level := b.BatteryLevel
		br.BatteryLevel = &level
	}
	return br
}

func toBikeResponses(bikes []bike.Bike) []bikeResponse {
	out := make([]bikeResponse, 0, len(bikes))
	for _, b := range bikes {
		out = append(out, toBikeResponse(b))
	}
	return out
}
