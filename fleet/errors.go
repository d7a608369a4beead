package fleet

import "github.com/semanticallynull/bikeshare-backend/internal/domainerr"

var (
	ErrMissingID          = domainerr.Validation("MISSING_ID", "bike, station and rider ids are required")
	ErrInvalidMeasurement = domainerr.Validation("INVALID_MEASUREMENT", "duration and distance must not be negative")
	ErrInvalidBattery     = domainerr.Validation("INVALID_BATTERY", "battery level must be between 0 and 100")
	ErrNotEBike           = domainerr.Validation("NOT_AN_EBIKE", "only e-bikes report a battery level")

	ErrStationInactive    = domainerr.Conflict("STATION_OUT_OF_SERVICE", "station is out of service")
	ErrStationFull        = domainerr.Conflict("STATION_FULL", "station is at capacity")
	ErrNoBikesAvailable   = domainerr.Conflict("NO_BIKES_AVAILABLE", "no bikes available at station")
	ErrAlreadyReserved    = domainerr.Conflict("DUPLICATE_RESERVATION", "rider already holds a reservation")
	ErrRiderBusy          = domainerr.Conflict("RIDE_IN_PROGRESS", "rider already has a bike in use")
	ErrReservedByOther    = domainerr.Conflict("RESERVED_BY_OTHER_RIDER", "bike is reserved by another rider")
	ErrReservationExpired = domainerr.Conflict("RESERVATION_EXPIRED", "reservation has expired")
	ErrBikeUnavailable    = domainerr.Conflict("BIKE_NOT_AVAILABLE", "bike cannot be used in its current state")
	ErrNotRiding          = domainerr.Conflict("BIKE_NOT_IN_USE_BY_RIDER", "bike is not in use by this rider")
	ErrAlreadyAtStation   = domainerr.Conflict("BIKE_ALREADY_AT_STATION", "bike is already at that station")
	ErrLockFailed         = domainerr.Conflict("LOCK_FAILED", "bike lock did not respond")
)
