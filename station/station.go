package station

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/semanticallynull/bikeshare-backend/internal/domainerr"
)

type Status string

const (
	Active       Status = "ACTIVE"
	OutOfService Status = "OUT_OF_SERVICE"
)

var (
	ErrNotFound        = domainerr.NotFound("STATION_NOT_FOUND", "station not found")
	ErrInvalidStatus   = domainerr.Validation("INVALID_STATION_STATUS", "unknown station status")
	ErrInvalidCapacity = domainerr.Validation("INVALID_CAPACITY", "capacity must be positive")
)

// Station is a dock. CurrentBikeCount counts docked bikes that are neither
// reserved nor in use and never leaves [0, Capacity].
type Station struct {
	ID               uuid.UUID    `db:"id"`
	Name             string       `db:"name"`
	Address          string       `db:"address"`
	CityID           string       `db:"city_id"`
	Location         pgtype.Point `db:"location"`
	Capacity         int          `db:"capacity"`
	CurrentBikeCount int          `db:"current_bike_count"`
	Status           Status       `db:"status"`
}

func New(name, address, cityID string, lat, lng float64, capacity int) (Station, error) {
	if capacity <= 0 {
		return Station{}, ErrInvalidCapacity
	}
	return Station{
		ID:       uuid.New(),
		Name:     name,
		Address:  address,
		CityID:   cityID,
		Location: pgtype.Point{P: pgtype.Vec2{X: lat, Y: lng}, Valid: true},
		Capacity: capacity,
		Status:   Active,
	}, nil
}

func (s Station) IsActive() bool {
	return s.Status == Active
}

func (s Station) IsFull() bool {
	return s.CurrentBikeCount >= s.Capacity
}

func (s Station) HasBikes() bool {
	return s.CurrentBikeCount > 0
}

func (s Station) Lat() float64 {
	return s.Location.P.X
}

func (s Station) Lng() float64 {
	return s.Location.P.Y
}

func ParseStatus(v string) (Status, error) {
	switch Status(v) {
	case Active, OutOfService:
		return Status(v), nil
	}
	return "", ErrInvalidStatus
}
