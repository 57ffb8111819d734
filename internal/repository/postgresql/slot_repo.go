package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Donefal/Proyek-WebApp-RPL/internal/domain"
	"github.com/Donefal/Proyek-WebApp-RPL/internal/repository"

	"github.com/lib/pq"
)

const slotColumns = `id_slot, id_mikrokontroler, booked, confirmed, occupied, alarmed, last_sensor_report, created_at, updated_at`

type pgSlotRepository struct {
	db repository.DBTX
}

func NewPgSlotRepository(db *sql.DB) repository.SlotRepository {
	return &pgSlotRepository{db: db}
}

func (r *pgSlotRepository) WithTx(tx *sql.Tx) repository.SlotRepository {
	return &pgSlotRepository{db: tx}
}

func scanSlot(row interface{ Scan(...any) error }) (*domain.Slot, error) {
	slot := &domain.Slot{}
	var lastReport sql.NullTime
	err := row.Scan(
		&slot.ID, &slot.ControllerID, &slot.Booked, &slot.Confirmed,
		&slot.Occupied, &slot.Alarmed, &lastReport, &slot.CreatedAt, &slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastReport.Valid {
		t := lastReport.Time.In(time.UTC)
		slot.LastSensorReport = &t
	}
	slot.CreatedAt = slot.CreatedAt.In(time.UTC)
	slot.UpdatedAt = slot.UpdatedAt.In(time.UTC)
	return slot, nil
}

func (r *pgSlotRepository) Create(ctx context.Context, slot *domain.Slot) (*domain.Slot, error) {
	query := `INSERT INTO slots (id_mikrokontroler, booked, confirmed, occupied, alarmed, created_at, updated_at)
	           VALUES ($1, FALSE, FALSE, FALSE, FALSE, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING id_slot, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, slot.ControllerID).
		Scan(&slot.ID, &slot.CreatedAt, &slot.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "foreign_key_violation" {
			return nil, fmt.Errorf("%w: mikrokontroler %d không tồn tại", repository.ErrNotFound, slot.ControllerID)
		}
		return nil, fmt.Errorf("SlotRepository.Create: %w", err)
	}
	slot.CreatedAt = slot.CreatedAt.In(time.UTC)
	slot.UpdatedAt = slot.UpdatedAt.In(time.UTC)
	return slot, nil
}

func (r *pgSlotRepository) FindByID(ctx context.Context, id int) (*domain.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id_slot = $1`
	slot, err := scanSlot(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("SlotRepository.FindByID: %w", err)
	}
	return slot, nil
}

// FindByIDForUpdate giữ row lock tới khi transaction kết thúc: hai reserve
// đồng thời trên cùng slot sẽ tuần tự hóa tại đây.
func (r *pgSlotRepository) FindByIDForUpdate(ctx context.Context, id int) (*domain.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id_slot = $1 FOR UPDATE`
	slot, err := scanSlot(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("SlotRepository.FindByIDForUpdate: %w", err)
	}
	return slot, nil
}

func (r *pgSlotRepository) FindAll(ctx context.Context) ([]domain.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots ORDER BY id_slot`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("SlotRepository.FindAll: %w", err)
	}
	defer rows.Close()

	var slots []domain.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("SlotRepository.FindAll (scanning row): %w", err)
		}
		slots = append(slots, *slot)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("SlotRepository.FindAll (rows error): %w", err)
	}
	return slots, nil
}

func (r *pgSlotRepository) UpdateBookingFlags(ctx context.Context, id int, booked, confirmed bool) error {
	query := `UPDATE slots SET booked = $1, confirmed = $2, updated_at = CURRENT_TIMESTAMP WHERE id_slot = $3`
	result, err := r.db.ExecContext(ctx, query, booked, confirmed, id)
	if err != nil {
		return fmt.Errorf("SlotRepository.UpdateBookingFlags: %w", err)
	}
	return checkAffected(result, "SlotRepository.UpdateBookingFlags")
}

func (r *pgSlotRepository) Release(ctx context.Context, id int) error {
	query := `UPDATE slots SET booked = FALSE, confirmed = FALSE, occupied = FALSE, updated_at = CURRENT_TIMESTAMP WHERE id_slot = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("SlotRepository.Release: %w", err)
	}
	return checkAffected(result, "SlotRepository.Release")
}

// UpdateSensorFlags ghi đè vô điều kiện: báo cáo sensor mới nhất thắng.
func (r *pgSlotRepository) UpdateSensorFlags(ctx context.Context, id int, occupied, alarmed bool, reportedAt time.Time) error {
	query := `UPDATE slots SET occupied = $1, alarmed = $2, last_sensor_report = $3, updated_at = CURRENT_TIMESTAMP WHERE id_slot = $4`
	result, err := r.db.ExecContext(ctx, query, occupied, alarmed, reportedAt, id)
	if err != nil {
		return fmt.Errorf("SlotRepository.UpdateSensorFlags: %w", err)
	}
	return checkAffected(result, "SlotRepository.UpdateSensorFlags")
}

func (r *pgSlotRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM slots WHERE id_slot = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("SlotRepository.Delete: %w", err)
	}
	return checkAffected(result, "SlotRepository.Delete")
}

func checkAffected(result sql.Result, op string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s (checking rows affected): %w", op, err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
