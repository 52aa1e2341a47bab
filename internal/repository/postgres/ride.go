package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ridecore/internal/domain"
	"ridecore/internal/repository"
)

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

// NewRideRepositoryWithTx creates a ride repository using a transaction.
func NewRideRepositoryWithTx(tx *sql.Tx) *RideRepository {
	return &RideRepository{q: tx}
}

const rideColumns = `
	id, rider_id, driver_id, vehicle_id,
	pickup_lat, pickup_lng, pickup_address, drop_lat, drop_lng, drop_address,
	status, ride_otp,
	accepted_at, driver_arrived_at_pickup_at, rider_call_attempted_at,
	start_time, end_time, cancelled_at,
	estimated_fare, actual_fare, base_fare, surge_multiplier,
	waiting_recorded, waiting_minutes, waiting_charges,
	cancellation_reason, cancellation_fee, driver_strike_type,
	driver_compensation_amount, driver_cancellation_reason_type,
	driver_accept_lat, driver_accept_lng, last_waypoint_lat, last_waypoint_lng,
	actual_distance_km, actual_duration_seconds,
	payment_method, payment_status, rider_rating, created_at`

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (` + rideColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
				$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
				$21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
				$31, $32, $33, $34, $35, $36, $37, $38, $39, $40)
	`

	_, err := r.q.ExecContext(ctx, query, rideArgs(ride)...)
	return err
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`
	return r.scanRide(r.q.QueryRowContext(ctx, query, id))
}

// GetByIDForUpdate retrieves a ride by ID with a row lock. Two transitions
// on the same ride serialize here; distinct rides never contend.
func (r *RideRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1 FOR UPDATE`
	return r.scanRide(r.q.QueryRowContext(ctx, query, id))
}

// Update updates an existing ride.
func (r *RideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	query := `
		UPDATE rides SET
			rider_id = $2, driver_id = $3, vehicle_id = $4,
			pickup_lat = $5, pickup_lng = $6, pickup_address = $7,
			drop_lat = $8, drop_lng = $9, drop_address = $10,
			status = $11, ride_otp = $12,
			accepted_at = $13, driver_arrived_at_pickup_at = $14, rider_call_attempted_at = $15,
			start_time = $16, end_time = $17, cancelled_at = $18,
			estimated_fare = $19, actual_fare = $20, base_fare = $21, surge_multiplier = $22,
			waiting_recorded = $23, waiting_minutes = $24, waiting_charges = $25,
			cancellation_reason = $26, cancellation_fee = $27, driver_strike_type = $28,
			driver_compensation_amount = $29, driver_cancellation_reason_type = $30,
			driver_accept_lat = $31, driver_accept_lng = $32,
			last_waypoint_lat = $33, last_waypoint_lng = $34,
			actual_distance_km = $35, actual_duration_seconds = $36,
			payment_method = $37, payment_status = $38, rider_rating = $39
		WHERE id = $1
	`

	args := rideArgs(ride)
	// rideArgs ends with created_at, which Update never touches.
	args = args[:len(args)-1]

	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// rideArgs flattens a ride into the column order of rideColumns.
func rideArgs(ride *domain.Ride) []any {
	surge := ride.SurgeMultiplier
	if surge < 1.0 {
		surge = 1.0
	}

	paymentMethod := ride.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = domain.PaymentMethodCash
	}

	var rating sql.NullFloat64
	if ride.RiderRating != nil {
		rating = sql.NullFloat64{Float64: *ride.RiderRating, Valid: true}
	}

	return []any{
		ride.ID,
		ride.RiderID,
		nullString(ride.DriverID),
		nullString(ride.VehicleID),
		ride.PickupLat,
		ride.PickupLng,
		nullString(ride.PickupAddress),
		ride.DropLat,
		ride.DropLng,
		nullString(ride.DropAddress),
		ride.Status,
		nullString(ride.RideOTP),
		nullTime(ride.AcceptedAt),
		nullTime(ride.DriverArrivedAtPickupAt),
		nullTime(ride.RiderCallAttemptedAt),
		nullTime(ride.StartTime),
		nullTime(ride.EndTime),
		nullTime(ride.CancelledAt),
		ride.EstimatedFare,
		ride.ActualFare,
		ride.BaseFare,
		surge,
		ride.WaitingRecorded,
		ride.WaitingMinutes,
		ride.WaitingCharges,
		nullString(ride.CancellationReason),
		ride.CancellationFee,
		nullString(string(ride.DriverStrikeType)),
		ride.DriverCompensationAmount,
		nullString(ride.DriverCancellationReasonType),
		ride.DriverAcceptLat,
		ride.DriverAcceptLng,
		ride.LastWaypointLat,
		ride.LastWaypointLng,
		ride.ActualDistanceKm,
		int64(ride.ActualDuration / time.Second),
		paymentMethod,
		nullString(string(ride.PaymentStatus)),
		rating,
		ride.CreatedAt,
	}
}

// scanRide reads one ride row.
func (r *RideRepository) scanRide(row *sql.Row) (*domain.Ride, error) {
	var ride domain.Ride
	var driverID, vehicleID, pickupAddr, dropAddr, otp sql.NullString
	var acceptedAt, arrivedAt, callAt, startTime, endTime, cancelledAt sql.NullTime
	var cancelReason, strikeType, reasonType, paymentStatus sql.NullString
	var durationSeconds int64
	var rating sql.NullFloat64

	err := row.Scan(
		&ride.ID,
		&ride.RiderID,
		&driverID,
		&vehicleID,
		&ride.PickupLat,
		&ride.PickupLng,
		&pickupAddr,
		&ride.DropLat,
		&ride.DropLng,
		&dropAddr,
		&ride.Status,
		&otp,
		&acceptedAt,
		&arrivedAt,
		&callAt,
		&startTime,
		&endTime,
		&cancelledAt,
		&ride.EstimatedFare,
		&ride.ActualFare,
		&ride.BaseFare,
		&ride.SurgeMultiplier,
		&ride.WaitingRecorded,
		&ride.WaitingMinutes,
		&ride.WaitingCharges,
		&cancelReason,
		&ride.CancellationFee,
		&strikeType,
		&ride.DriverCompensationAmount,
		&reasonType,
		&ride.DriverAcceptLat,
		&ride.DriverAcceptLng,
		&ride.LastWaypointLat,
		&ride.LastWaypointLng,
		&ride.ActualDistanceKm,
		&durationSeconds,
		&ride.PaymentMethod,
		&paymentStatus,
		&rating,
		&ride.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	ride.DriverID = driverID.String
	ride.VehicleID = vehicleID.String
	ride.PickupAddress = pickupAddr.String
	ride.DropAddress = dropAddr.String
	ride.RideOTP = otp.String
	ride.AcceptedAt = acceptedAt.Time
	ride.DriverArrivedAtPickupAt = arrivedAt.Time
	ride.RiderCallAttemptedAt = callAt.Time
	ride.StartTime = startTime.Time
	ride.EndTime = endTime.Time
	ride.CancelledAt = cancelledAt.Time
	ride.CancellationReason = cancelReason.String
	ride.DriverStrikeType = strikeType.String
	ride.DriverCancellationReasonType = reasonType.String
	ride.ActualDuration = time.Duration(durationSeconds) * time.Second
	ride.PaymentStatus = domain.PaymentStatus(paymentStatus.String)
	if rating.Valid {
		v := rating.Float64
		ride.RiderRating = &v
	}

	return &ride, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
