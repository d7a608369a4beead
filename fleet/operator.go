package fleet

import (
	"context"

	"github.com/google/uuid"

	"github.com/semanticallynull/bikeshare-backend/bike"
	"github.com/semanticallynull/bikeshare-backend/event"
	"github.com/semanticallynull/bikeshare-backend/station"
)

type NewStation struct {
	Name     string
	Address  string
	CityID   string
	Lat, Lng float64
	Capacity int
}

func (s *Service) CreateStation(ctx context.Context, in NewStation) (station.Station, error) {
	st, err := station.New(in.Name, in.Address, in.CityID, in.Lat, in.Lng, in.Capacity)
	if err != nil {
		return station.Station{}, err
	}
	err = s.atomic(ctx, "CreateStation", func(ctx context.Context, tx Tx) error {
		return tx.InsertStation(ctx, st)
	})
	if err != nil {
		return station.Station{}, err
	}
	return st, nil
}

// SetStationStatus publishes StationStatusChanged when the status changes.
func (s *Service) SetStationStatus(ctx context.Context, stationID uuid.UUID, status station.Status) (station.Station, error) {
	if stationID == uuid.Nil {
		return station.Station{}, ErrMissingID
	}
	var out station.Station
	err := s.atomic(ctx, "SetStationStatus", func(ctx context.Context, tx Tx) error {
		st, err := tx.Station(ctx, stationID)
		if err != nil {
			return err
		}
		out = st
		if st.Status == status {
			return nil
		}
		old := st.Status
		st.Status = status
		if err := tx.SaveStation(ctx, st); err != nil {
			return err
		}
		out = st
		return s.bus.Publish(ctx, event.StationStatusChanged{
			Header:    event.NewHeader(s.clock.Now()),
			StationID: st.ID,
			OldStatus: string(old),
			NewStatus: string(status),
		})
	})
	if err != nil {
		return station.Station{}, err
	}
	return out, nil
}

// CreateBike docks a new bike at stationID, taking one of its free docks.
func (s *Service) CreateBike(ctx context.Context, t bike.Type, label string, stationID uuid.UUID) (bike.Bike, error) {
	if stationID == uuid.Nil {
		return bike.Bike{}, ErrMissingID
	}
	b, err := bike.New(t, label, stationID)
	if err != nil {
		return bike.Bike{}, err
	}
	now := s.clock.Now()
	b.LastMaintenance = &now

	err = s.atomic(ctx, "CreateBike", func(ctx context.Context, tx Tx) error {
		st, err := tx.Station(ctx, stationID)
		if err != nil {
			return err
		}
		if st.IsFull() {
			return ErrStationFull
		}
		st.CurrentBikeCount++
		if err := tx.InsertBike(ctx, b); err != nil {
			return err
		}
		return tx.SaveStation(ctx, st)
	})
	if err != nil {
		return bike.Bike{}, err
	}
	return b, nil
}

// SendToMaintenance takes a docked AVAILABLE or RESERVED bike out of
// circulation. A reservation on it is cancelled. The bike stays counted at its
// station.
func (s *Service) SendToMaintenance(ctx context.Context, bikeID uuid.UUID) (bike.Bike, error) {
	return s.maintenance(ctx, bikeID, false)
}

// CompleteMaintenance services the bike and makes it AVAILABLE again.
func (s *Service) CompleteMaintenance(ctx context.Context, bikeID uuid.UUID) (bike.Bike, error) {
	return s.maintenance(ctx, bikeID, true)
}

func (s *Service) maintenance(ctx context.Context, bikeID uuid.UUID, complete bool) (bike.Bike, error) {
	if bikeID == uuid.Nil {
		return bike.Bike{}, ErrMissingID
	}
	var out bike.Bike
	err := s.atomic(ctx, "Maintenance", func(ctx context.Context, tx Tx) error {
		b, err := tx.Bike(ctx, bikeID)
		if err != nil {
			return err
		}
		if !complete {
			if err := s.withdraw(ctx, tx, &b); err != nil {
				return err
			}
			out = b
			return nil
		}

		if b.Status != bike.StatusMaintenance {
			return ErrBikeUnavailable
		}
		now := s.clock.Now()
		b.PerformMaintenance(now)
		if err := tx.SaveBike(ctx, b); err != nil {
			return err
		}
		out = b
		ev := event.BikeMaintenance{Header: event.NewHeader(now), BikeID: b.ID, Completed: true}
		if b.StationID != nil {
			ev.StationID = *b.StationID
		}
		return s.bus.Publish(ctx, ev)
	})
	if err != nil {
		return bike.Bike{}, err
	}
	return out, nil
}

// withdraw puts a docked AVAILABLE or RESERVED bike into MAINTENANCE. A held
// bike gives its dock back to the count, since maintenance bikes stay counted.
func (s *Service) withdraw(ctx context.Context, tx Tx, b *bike.Bike) error {
	if b.StationID == nil || (b.Status != bike.StatusAvailable && b.Status != bike.StatusReserved) {
		return ErrBikeUnavailable
	}
	if b.Status == bike.StatusReserved {
		st, err := tx.Station(ctx, *b.StationID)
		if err != nil {
			return err
		}
		s.logger.InfoContext(ctx, "reservation cancelled for maintenance", "bike_id", b.ID, "rider_id", *b.ReservedBy)
		b.CancelReservation()
		s.dock(ctx, &st)
		if err := tx.SaveStation(ctx, st); err != nil {
			return err
		}
	}
	b.Status = bike.StatusMaintenance
	if err := tx.SaveBike(ctx, *b); err != nil {
		return err
	}
	return s.bus.Publish(ctx, event.BikeMaintenance{
		Header:    event.NewHeader(s.clock.Now()),
		BikeID:    b.ID,
		StationID: *b.StationID,
	})
}

type Telemetry struct {
	Lat, Lng     *float64
	BatteryLevel *int
}

// UpdateTelemetry forwards a bike's reported position to its lock and
// records an e-bike's battery level. A docked e-bike whose battery drops below
// the operating minimum goes to MAINTENANCE.
func (s *Service) UpdateTelemetry(ctx context.Context, bikeID uuid.UUID, t Telemetry) (bike.Bike, error) {
	if bikeID == uuid.Nil {
		return bike.Bike{}, ErrMissingID
	}
	if t.BatteryLevel != nil && (*t.BatteryLevel < 0 || *t.BatteryLevel > 100) {
		return bike.Bike{}, ErrInvalidBattery
	}
	var out bike.Bike
	err := s.atomic(ctx, "UpdateTelemetry", func(ctx context.Context, tx Tx) error {
		b, err := tx.Bike(ctx, bikeID)
		if err != nil {
			return err
		}
		if t.BatteryLevel != nil {
			if !b.IsEBike() {
				return ErrNotEBike
			}
			b.BatteryLevel = *t.BatteryLevel
			if err := tx.SaveBike(ctx, b); err != nil {
				return err
			}
			if b.NeedsMaintenance(s.clock.Now()) && b.StationID != nil &&
				(b.Status == bike.StatusAvailable || b.Status == bike.StatusReserved) {
				if err := s.withdraw(ctx, tx, &b); err != nil {
					return err
				}
			}
		}
		if t.Lat != nil && t.Lng != nil {
			if err := s.locks.UpdateLocation(ctx, b.ID, *t.Lat, *t.Lng); err != nil {
				s.logger.WarnContext(ctx, "location update failed", "bike_id", b.ID, "error", err)
				return ErrLockFailed
			}
		}
		out = b
		return nil
	})
	if err != nil {
		return bike.Bike{}, err
	}
	return out, nil
}

// Bike reads through the unit of work carried by ctx, if any.
func (s *Service) Bike(ctx context.Context, id uuid.UUID) (bike.Bike, error) {
	if tx, ok := txFrom(ctx); ok {
		return tx.ViewBike(ctx, id)
	}
	var b bike.Bike
	err := s.store.Atomic(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		b, err = tx.ViewBike(ctx, id)
		return err
	})
	return b, err
}

// Station reads through the unit of work carried by ctx, if any.
func (s *Service) Station(ctx context.Context, id uuid.UUID) (station.Station, error) {
	if tx, ok := txFrom(ctx); ok {
		return tx.ViewStation(ctx, id)
	}
	var st station.Station
	err := s.store.Atomic(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		st, err = tx.ViewStation(ctx, id)
		return err
	})
	return st, err
}

func (s *Service) Stations(ctx context.Context) ([]station.Station, error) {
	return s.store.Stations(ctx)
}

func (s *Service) Bikes(ctx context.Context) ([]bike.Bike, error) {
	return s.store.Bikes(ctx)
}

func (s *Service) BikesAtStation(ctx context.Context, stationID uuid.UUID) ([]bike.Bike, error) {
	return s.store.BikesAtStation(ctx, stationID)
}
