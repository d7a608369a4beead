package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/semanticallynull/bikeshare-backend/bike"
	"github.com/semanticallynull/bikeshare-backend/ride"
)

func (a *API) currentRideHandler(c *gin.Context) {
	r, err := a.rides.Current(c.Request.Context(), rider(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

type ridesQuery struct {
	From             string `form:"from"`
	To               string `form:"to"`
	StationID        string `form:"stationId"`
	StartStationOnly bool   `form:"startStationOnly"`
	Status           string `form:"status"`
	BikeType         string `form:"bikeType"`
	BikeID           string `form:"bikeId"`
	RiderID          string `form:"riderId"`
	Page             int    `form:"page"`
	Size             *int   `form:"size"`
}

// filter turns the query string into a ride filter. riderId is only read for
// operators; riders always see their own rides.
func (q ridesQuery) filter(withRider bool) (ride.Filter, error) {
	f := ride.Filter{
		StartStationOnly: q.StartStationOnly,
		Status:           ride.Status(q.Status),
		BikeType:         bike.Type(q.BikeType),
		Page:             q.Page,
		Size:             ride.DefaultPageSize,
	}
	if q.Size != nil {
		if *q.Size < 1 {
			return f, ride.ErrInvalidFilter
		}
		f.Size = *q.Size
	}
	var err error
	if f.From, err = parseTime(q.From); err != nil {
		return f, ride.ErrInvalidFilter
	}
	if f.To, err = parseTime(q.To); err != nil {
		return f, ride.ErrInvalidFilter
	}
	if f.StationID, err = parseOptionalID(q.StationID); err != nil {
		return f, ride.ErrInvalidFilter
	}
	if f.BikeID, err = parseOptionalID(q.BikeID); err != nil {
		return f, ride.ErrInvalidFilter
	}
	if withRider {
		if f.RiderID, err = parseOptionalID(q.RiderID); err != nil {
			return f, ride.ErrInvalidFilter
		}
	}
	return f, f.Validate()
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

func parseOptionalID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// ridesHandler pages through the rider's rides, newest first.
func (a *API) ridesHandler(c *gin.Context) {
	var q ridesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		fail(c, ride.ErrInvalidFilter)
		return
	}
	f, err := q.filter(false)
	if err != nil {
		fail(c, err)
		return
	}
	id := rider(c).ID
	f.RiderID = &id
	a.listRides(c, f)
}

// allRidesHandler lets operators search every rider's rides.
func (a *API) allRidesHandler(c *gin.Context) {
	var q ridesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		fail(c, ride.ErrInvalidFilter)
		return
	}
	f, err := q.filter(true)
	if err != nil {
		fail(c, err)
		return
	}
	a.listRides(c, f)
}

func (a *API) listRides(c *gin.Context, f ride.Filter) {
	rides, err := a.rides.History(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rides)
}

type rideStatsQuery struct {
	From string `form:"from"`
	To   string `form:"to"`
}

// rideStatsHandler summarizes the rider's completed rides, optionally within
// [from, to).
func (a *API) rideStatsHandler(c *gin.Context) {
	var q rideStatsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		fail(c, ride.ErrInvalidFilter)
		return
	}
	id := rider(c).ID
	f := ride.Filter{RiderID: &id, Status: ride.StatusCompleted}
	var err error
	if f.From, err = parseTime(q.From); err != nil {
		fail(c, ride.ErrInvalidFilter)
		return
	}
	if f.To, err = parseTime(q.To); err != nil {
		fail(c, ride.ErrInvalidFilter)
		return
	}
	if err := f.Validate(); err != nil {
		fail(c, err)
		return
	}

	rides, err := a.rides.History(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ride.Summarize(rides))
}
