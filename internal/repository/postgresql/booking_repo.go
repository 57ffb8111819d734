package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Donefal/Proyek-WebApp-RPL/internal/domain"
	"github.com/Donefal/Proyek-WebApp-RPL/internal/repository"
)

const bookingColumns = `id_booking, id_slot, id_customer, status, waktu_booking, waktu_masuk, waktu_keluar, qr_token, qr_expires_at, created_at, updated_at`

type pgBookingRepository struct {
	db repository.DBTX
}

func NewPgBookingRepository(db *sql.DB) repository.BookingRepository {
	return &pgBookingRepository{db: db}
}

func (r *pgBookingRepository) WithTx(tx *sql.Tx) repository.BookingRepository {
	return &pgBookingRepository{db: tx}
}

func scanBooking(row interface{ Scan(...any) error }) (*domain.Booking, error) {
	b := &domain.Booking{}
	err := row.Scan(
		&b.ID, &b.SlotID, &b.CustomerID, &b.Status, &b.BookedAt,
		&b.CheckIn, &b.CheckOut, &b.QRToken, &b.QRExpiresAt,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.BookedAt = b.BookedAt.In(time.UTC)
	if b.CheckIn.Valid {
		b.CheckIn.Time = b.CheckIn.Time.In(time.UTC)
	}
	if b.CheckOut.Valid {
		b.CheckOut.Time = b.CheckOut.Time.In(time.UTC)
	}
	if b.QRExpiresAt.Valid {
		b.QRExpiresAt.Time = b.QRExpiresAt.Time.In(time.UTC)
	}
	b.CreatedAt = b.CreatedAt.In(time.UTC)
	b.UpdatedAt = b.UpdatedAt.In(time.UTC)
	return b, nil
}

func (r *pgBookingRepository) Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	query := `INSERT INTO bookings (id_slot, id_customer, status, waktu_booking, qr_token, qr_expires_at, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING id_booking, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		booking.SlotID, booking.CustomerID, booking.Status, booking.BookedAt,
		booking.QRToken, booking.QRExpiresAt,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("BookingRepository.Create: %w", err)
	}
	booking.CreatedAt = booking.CreatedAt.In(time.UTC)
	booking.UpdatedAt = booking.UpdatedAt.In(time.UTC)
	return booking, nil
}

func (r *pgBookingRepository) FindByID(ctx context.Context, id int) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id_booking = $1`
	booking, err := scanBooking(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("BookingRepository.FindByID: %w", err)
	}
	return booking, nil
}

func (r *pgBookingRepository) FindActiveByCustomer(ctx context.Context, customerID int) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
	           WHERE id_customer = $1 AND status IN ('pending', 'checked-in')
	           ORDER BY id_booking DESC LIMIT 1`
	booking, err := scanBooking(r.db.QueryRowContext(ctx, query, customerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("BookingRepository.FindActiveByCustomer: %w", err)
	}
	return booking, nil
}

func (r *pgBookingRepository) FindActiveByToken(ctx context.Context, token string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
	           WHERE qr_token = $1 AND status IN ('pending', 'checked-in')`
	booking, err := scanBooking(r.db.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("BookingRepository.FindActiveByToken: %w", err)
	}
	return booking, nil
}

func (r *pgBookingRepository) FindActiveBySlot(ctx context.Context, slotID int) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
	           WHERE id_slot = $1 AND status IN ('pending', 'checked-in')
	           ORDER BY id_booking DESC LIMIT 1`
	booking, err := scanBooking(r.db.QueryRowContext(ctx, query, slotID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("BookingRepository.FindActiveBySlot: %w", err)
	}
	return booking, nil
}

func (r *pgBookingRepository) Update(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	query := `UPDATE bookings
	           SET status = $1, waktu_masuk = $2, waktu_keluar = $3, qr_token = $4, qr_expires_at = $5, updated_at = CURRENT_TIMESTAMP
	           WHERE id_booking = $6
	           RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		booking.Status, booking.CheckIn, booking.CheckOut,
		booking.QRToken, booking.QRExpiresAt, booking.ID,
	).Scan(&booking.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("BookingRepository.Update: %w", err)
	}
	booking.UpdatedAt = booking.UpdatedAt.In(time.UTC)
	return booking, nil
}

func (r *pgBookingRepository) FindHistoryByCustomer(ctx context.Context, customerID int) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
	           WHERE id_customer = $1 AND status IN ('checked-in', 'completed')
	           ORDER BY id_booking DESC`
	return r.queryBookings(ctx, "FindHistoryByCustomer", query, customerID)
}

func (r *pgBookingRepository) FindCompletedBetween(ctx context.Context, from, to time.Time) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
	           WHERE status = 'completed' AND waktu_keluar >= $1 AND waktu_keluar < $2
	           ORDER BY waktu_keluar DESC`
	return r.queryBookings(ctx, "FindCompletedBetween", query, from, to)
}

func (r *pgBookingRepository) queryBookings(ctx context.Context, op, query string, args ...any) ([]domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("BookingRepository.%s: %w", op, err)
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("BookingRepository.%s (scanning row): %w", op, err)
		}
		bookings = append(bookings, *booking)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("BookingRepository.%s (rows error): %w", op, err)
	}
	return bookings, nil
}
