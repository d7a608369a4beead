// Package fleet is the bike and station state machine. Every operation reads,
// validates and writes bikes and stations as one unit of work, keeping bike
// status, reservation expiry and station occupancy consistent.
package fleet

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/semanticallynull/bikeshare-backend/bike"
	"github.com/semanticallynull/bikeshare-backend/event"
	"github.com/semanticallynull/bikeshare-backend/internal/clock"
	"github.com/semanticallynull/bikeshare-backend/lock"
	"github.com/semanticallynull/bikeshare-backend/station"
)

const DefaultReservationTTL = 15 * time.Minute

type Service struct {
	store          Store
	bus            event.Publisher
	locks          lock.Client
	clock          clock.Clock
	logger         *slog.Logger
	reservationTTL time.Duration
}

func NewService(store Store, bus event.Publisher, locks lock.Client, c clock.Clock, logger *slog.Logger, reservationTTL time.Duration) *Service {
	if reservationTTL <= 0 {
		reservationTTL = DefaultReservationTTL
	}
	return &Service{
		store:          store,
		bus:            bus,
		locks:          locks,
		clock:          c,
		logger:         logger.With("component", "fleet"),
		reservationTTL: reservationTTL,
	}
}

// atomic joins the unit of work already carried by ctx, so subscribers
// reacting to an event see the writes that produced it.
func (s *Service) atomic(ctx context.Context, name string, fn func(ctx context.Context, tx Tx) error) error {
	ctx, span := otel.GetTracerProvider().Tracer("fleet").Start(ctx, "fleet."+name)
	defer span.End()

	var err error
	if tx, ok := txFrom(ctx); ok {
		err = fn(ctx, tx)
	} else {
		err = s.store.Atomic(ctx, func(ctx context.Context, tx Tx) error {
			return fn(withTx(ctx, tx), tx)
		})
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// Reserve holds the first bike at stationID that can be checked out for
// riderID. ttlMinutes below 1 uses the default reservation TTL.
func (s *Service) Reserve(ctx context.Context, stationID, riderID uuid.UUID, ttlMinutes int) (bike.Bike, error) {
	if stationID == uuid.Nil || riderID == uuid.Nil {
		return bike.Bike{}, ErrMissingID
	}
	ttl := s.reservationTTL
	if ttlMinutes >= 1 {
		ttl = time.Duration(ttlMinutes) * time.Minute
	}

	var reserved bike.Bike
	err := s.atomic(ctx, "Reserve", func(ctx context.Context, tx Tx) error {
		now := s.clock.Now()

		// Bike rows are locked before station rows in every operation.
		held, err := tx.ReservedBy(ctx, riderID)
		switch {
		case err == nil && held.ReservationExpired(now):
			if err := s.expire(ctx, tx, held); err != nil {
				return err
			}
		case err == nil:
			return ErrAlreadyReserved
		case !errors.Is(err, bike.ErrNotFound):
			return err
		}
		if err := s.ensureNotRiding(ctx, tx, riderID); err != nil {
			return err
		}

		st, err := tx.Station(ctx, stationID)
		if err != nil {
			return err
		}
		if !st.IsActive() {
			return ErrStationInactive
		}
		// The count is authoritative: stale AVAILABLE rows are not reservable.
		if !st.HasBikes() {
			return ErrNoBikesAvailable
		}

		candidates, err := tx.Available(ctx, stationID)
		if err != nil {
			return err
		}
		var found bool
		for _, b := range candidates {
			if b.CanCheckout() && !b.NeedsMaintenance(now) {
				reserved, found = b, true
				break
			}
		}
		if !found {
			return ErrNoBikesAvailable
		}

		reserved.Reserve(riderID, now, ttl)
		st.CurrentBikeCount--
		if err := tx.SaveBike(ctx, reserved); err != nil {
			return err
		}
		if err := tx.SaveStation(ctx, st); err != nil {
			return err
		}
		return s.bus.Publish(ctx, event.BikeReserved{
			Header:    event.NewHeader(now),
			BikeID:    reserved.ID,
			RiderID:   riderID,
			StationID: stationID,
			ExpiresAt: *reserved.ReservationExpiresAt,
		})
	})
	if err != nil {
		return bike.Bike{}, err
	}
	return reserved, nil
}

// Checkout starts a trip on bikeID. A reservation found expired is cancelled
// and that cancellation is kept even though the checkout fails.
func (s *Service) Checkout(ctx context.Context, bikeID, riderID uuid.UUID) (bike.Bike, error) {
	if bikeID == uuid.Nil || riderID == uuid.Nil {
		return bike.Bike{}, ErrMissingID
	}

	var (
		out     bike.Bike
		expired bool
	)
	err := s.atomic(ctx, "Checkout", func(ctx context.Context, tx Tx) error {
		now := s.clock.Now()
		b, err := tx.Bike(ctx, bikeID)
		if err != nil {
			return err
		}

		walkUp := false
		switch b.Status {
		case bike.StatusReserved:
			if !b.IsReservedBy(riderID) {
				return ErrReservedByOther
			}
			if b.ReservationExpired(now) {
				expired = true
				return s.expire(ctx, tx, b)
			}
		case bike.StatusAvailable:
			walkUp = true
			if _, err := tx.ReservedBy(ctx, riderID); err == nil {
				return ErrAlreadyReserved
			} else if !errors.Is(err, bike.ErrNotFound) {
				return err
			}
		default:
			return ErrBikeUnavailable
		}
		if err := s.ensureNotRiding(ctx, tx, riderID); err != nil {
			return err
		}
		if !b.CanCheckout() {
			return ErrBikeUnavailable
		}
		if b.StationID == nil {
			return ErrBikeUnavailable
		}
		stationID := *b.StationID

		if walkUp {
			st, err := tx.Station(ctx, stationID)
			if err != nil {
				return err
			}
			st.CurrentBikeCount--
			if err := tx.SaveStation(ctx, st); err != nil {
				return err
			}
		}
		b.Checkout(riderID)
		if err := tx.SaveBike(ctx, b); err != nil {
			return err
		}

		if err := s.locks.Unlock(ctx, b.ID); err != nil {
			s.logger.WarnContext(ctx, "unlock failed, aborting checkout", "bike_id", b.ID, "error", err)
			return ErrLockFailed
		}
		err = s.bus.Publish(ctx, event.TripStarted{
			Header:    event.NewHeader(now),
			BikeID:    b.ID,
			RiderID:   riderID,
			StationID: stationID,
		})
		if err != nil {
			s.relock(ctx, b.ID)
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return bike.Bike{}, err
	}
	if expired {
		return bike.Bike{}, ErrReservationExpired
	}
	return out, nil
}

// Return docks bikeID at returnStationID and ends the rider's trip. Billing
// runs as a TripEnded subscriber, so a trip that cannot be priced is not
// returned.
func (s *Service) Return(ctx context.Context, bikeID, returnStationID, riderID uuid.UUID, durationMinutes, distanceKm float64) (bike.Bike, error) {
	if bikeID == uuid.Nil || returnStationID == uuid.Nil || riderID == uuid.Nil {
		return bike.Bike{}, ErrMissingID
	}
	if durationMinutes < 0 || distanceKm < 0 {
		return bike.Bike{}, ErrInvalidMeasurement
	}

	var out bike.Bike
	err := s.atomic(ctx, "Return", func(ctx context.Context, tx Tx) error {
		b, err := tx.Bike(ctx, bikeID)
		if err != nil {
			return err
		}
		if !b.IsRiddenBy(riderID) {
			return ErrNotRiding
		}
		st, err := tx.Station(ctx, returnStationID)
		if err != nil {
			return err
		}
		if !st.IsActive() {
			return ErrStationInactive
		}
		if st.IsFull() {
			return ErrStationFull
		}

		b.Return(returnStationID)
		st.CurrentBikeCount++
		if err := tx.SaveBike(ctx, b); err != nil {
			return err
		}
		if err := tx.SaveStation(ctx, st); err != nil {
			return err
		}
		err = s.bus.Publish(ctx, event.TripEnded{
			Header:          event.NewHeader(s.clock.Now()),
			BikeID:          b.ID,
			RiderID:         riderID,
			ReturnStationID: returnStationID,
			DurationMinutes: durationMinutes,
			DistanceKm:      distanceKm,
		})
		if err != nil {
			return err
		}

		// The bike is already docked; a lock that does not answer is logged
		// for the operators rather than failing the rider's return.
		if err := s.locks.Lock(ctx, b.ID); err != nil {
			s.logger.WarnContext(ctx, "lock failed on return", "bike_id", b.ID, "station_id", returnStationID, "error", err)
		}
		out = b
		return nil
	})
	if err != nil {
		return bike.Bike{}, err
	}
	return out, nil
}

// Move relocates a docked bike to another station on behalf of an operator.
func (s *Service) Move(ctx context.Context, bikeID, newStationID, operatorID uuid.UUID) (bike.Bike, error) {
	if bikeID == uuid.Nil || newStationID == uuid.Nil || operatorID == uuid.Nil {
		return bike.Bike{}, ErrMissingID
	}

	var out bike.Bike
	err := s.atomic(ctx, "Move", func(ctx context.Context, tx Tx) error {
		b, err := tx.Bike(ctx, bikeID)
		if err != nil {
			return err
		}
		if b.Status != bike.StatusAvailable && b.Status != bike.StatusMaintenance {
			return ErrBikeUnavailable
		}
		if b.StationID != nil && *b.StationID == newStationID {
			return ErrAlreadyAtStation
		}

		from, to, err := s.lockPair(ctx, tx, b.StationID, newStationID)
		if err != nil {
			return err
		}
		if !to.IsActive() {
			return ErrStationInactive
		}
		if to.IsFull() {
			return ErrStationFull
		}

		oldStationID := b.StationID
		if from != nil {
			s.undock(ctx, from)
			if err := tx.SaveStation(ctx, *from); err != nil {
				return err
			}
		}
		to.CurrentBikeCount++
		if err := tx.SaveStation(ctx, to); err != nil {
			return err
		}
		b.StationID = &newStationID
		if err := tx.SaveBike(ctx, b); err != nil {
			return err
		}

		if err := s.locks.UpdateLocation(ctx, b.ID, to.Lat(), to.Lng()); err != nil {
			s.logger.WarnContext(ctx, "location update failed on move", "bike_id", b.ID, "error", err)
		}
		out = b
		return s.bus.Publish(ctx, event.BikeMoved{
			Header:       event.NewHeader(s.clock.Now()),
			BikeID:       b.ID,
			OldStationID: oldStationID,
			NewStationID: newStationID,
			OperatorID:   operatorID,
		})
	})
	if err != nil {
		return bike.Bike{}, err
	}
	return out, nil
}

// ProcessExpiredReservations cancels every reservation past its expiry and
// returns how many it cancelled. Running it again straight away cancels none.
func (s *Service) ProcessExpiredReservations(ctx context.Context) (int, error) {
	var n int
	err := s.atomic(ctx, "ProcessExpiredReservations", func(ctx context.Context, tx Tx) error {
		n = 0
		expired, err := tx.ExpiredReservations(ctx, s.clock.Now())
		if err != nil {
			return err
		}
		for _, b := range expired {
			if err := s.expire(ctx, tx, b); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "expired reservations released", "count", n)
	}
	return n, nil
}

// expire cancels b's reservation and gives its dock back to the station.
func (s *Service) expire(ctx context.Context, tx Tx, b bike.Bike) error {
	if b.StationID == nil || b.ReservedBy == nil {
		return ErrBikeUnavailable
	}
	riderID := *b.ReservedBy
	st, err := tx.Station(ctx, *b.StationID)
	if err != nil {
		return err
	}
	b.CancelReservation()
	s.dock(ctx, &st)
	if err := tx.SaveBike(ctx, b); err != nil {
		return err
	}
	if err := tx.SaveStation(ctx, st); err != nil {
		return err
	}
	return s.bus.Publish(ctx, event.ReservationExpired{
		Header:    event.NewHeader(s.clock.Now()),
		BikeID:    b.ID,
		RiderID:   riderID,
		StationID: st.ID,
	})
}

func (s *Service) ensureNotRiding(ctx context.Context, tx Tx, riderID uuid.UUID) error {
	_, err := tx.RiddenBy(ctx, riderID)
	if err == nil {
		return ErrRiderBusy
	}
	if errors.Is(err, bike.ErrNotFound) {
		return nil
	}
	return err
}

// lockPair locks both stations of a move in id order so two moves in
// opposite directions cannot deadlock.
func (s *Service) lockPair(ctx context.Context, tx Tx, fromID *uuid.UUID, toID uuid.UUID) (*station.Station, station.Station, error) {
	if fromID == nil {
		to, err := tx.Station(ctx, toID)
		return nil, to, err
	}
	first, second := *fromID, toID
	if second.String() < first.String() {
		first, second = second, first
	}
	a, err := tx.Station(ctx, first)
	if err != nil {
		return nil, station.Station{}, err
	}
	b, err := tx.Station(ctx, second)
	if err != nil {
		return nil, station.Station{}, err
	}
	if a.ID == toID {
		return &b, a, nil
	}
	return &a, b, nil
}

func (s *Service) relock(ctx context.Context, bikeID uuid.UUID) {
	if err := s.locks.Lock(ctx, bikeID); err != nil {
		s.logger.ErrorContext(ctx, "relock after aborted checkout failed", "bike_id", bikeID, "error", err)
	}
}

// dock and undock move a station's count by one. A count that would leave
// [0, capacity] means bike and station rows disagree; it is logged and left
// as is.
func (s *Service) dock(ctx context.Context, st *station.Station) {
	if st.CurrentBikeCount >= st.Capacity {
		s.logger.ErrorContext(ctx, "station count out of step with bikes",
			"station_id", st.ID, "count", st.CurrentBikeCount, "capacity", st.Capacity, "change", 1)
		return
	}
	st.CurrentBikeCount++
}

func (s *Service) undock(ctx context.Context, st *station.Station) {
	if st.CurrentBikeCount <= 0 {
		s.logger.ErrorContext(ctx, "station count out of step with bikes",
			"station_id", st.ID, "count", st.CurrentBikeCount, "capacity", st.Capacity, "change", -1)
		return
	}
	st.CurrentBikeCount--
}
