package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/semanticallynull/bikeshare-backend/fleet"
	"github.com/semanticallynull/bikeshare-backend/station"
)

func (a *API) stationsHandler(c *gin.Context) {
	stations, err := a.fleet.Stations(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	stationResponses := make([]stationResponse, 0, len(stations))
	for _, s := range stations {
		stationResponses = append(stationResponses, toStationResponse(s))
	}
	c.JSON(http.StatusOK, stationResponses)
}

func (a *API) stationHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	s, err := a.fleet.Station(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, toStationResponse(s))
}

func (a *API) stationBikesHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if _, err := a.fleet.Station(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}

	bikes, err := a.fleet.BikesAtStation(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toBikeResponses(bikes))
}

type createStationRequest struct {
	Name     string  `json:"name" binding:"required"`
	Address  string  `json:"address"`
	CityID   string  `json:"cityId"`
	Lat      float64 `json:"latitude"`
	Lng      float64 `json:"longitude"`
	Capacity int     `json:"capacity"`
}

func (a *API) createStationHandler(c *gin.Context) {
	var req createStationRequest
	if !bind(c, &req) {
		return
	}

	s, err := a.fleet.CreateStation(c.Request.Context(), fleet.NewStation{
		Name:     req.Name,
		Address:  req.Address,
		CityID:   req.CityID,
		Lat:      req.Lat,
		Lng:      req.Lng,
		Capacity: req.Capacity,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toStationResponse(s))
}

type stationStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (a *API) stationStatusHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req stationStatusRequest
	if !bind(c, &req) {
		return
	}
	status, err := station.ParseStatus(req.Status)
	if err != nil {
		fail(c, err)
		return
	}

	s, err := a.fleet.SetStationStatus(c.Request.Context(), id, status)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toStationResponse(s))
}

type stationResponse struct {
	ID               uuid.UUID      `json:"id"`
	Name             string         `json:"name"`
	Address          string         `json:"address"`
	CityID           string         `json:"cityId"`
	Lat              float64        `json:"latitude"`
	Lng              float64        `json:"longitude"`
	Capacity         int            `json:"capacity"`
	CurrentBikeCount int            `json:"currentBikeCount"`
	Status           station.Status `json:"status"`
}

func toStationResponse(s station.Station) stationResponse {
	return stationResponse{
		ID:               s.ID,
		Name:             s.Name,
		Address:          s.Address,
		CityID:           s.CityID,
		Lat:              s.Lat(),
		Lng:              s.Lng(),
		Capacity:         s.Capacity,
		CurrentBikeCount: s.CurrentBikeCount,
		Status:           s.Status,
	}
}
