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

const gateColumns = `id_aktuator, id_mikrokontroler, role, usable, buka, kondisi, last_report_at, created_at, updated_at`

type pgGateActuatorRepository struct {
	db repository.DBTX
}

func NewPgGateActuatorRepository(db *sql.DB) repository.GateActuatorRepository {
	return &pgGateActuatorRepository{db: db}
}

func (r *pgGateActuatorRepository) WithTx(tx *sql.Tx) repository.GateActuatorRepository {
	return &pgGateActuatorRepository{db: tx}
}

func scanGate(row interface{ Scan(...any) error }) (*domain.GateActuator, error) {
	gate := &domain.GateActuator{}
	var lastReport sql.NullTime
	err := row.Scan(
		&gate.ID, &gate.ControllerID, &gate.Role, &gate.Usable,
		&gate.DesiredOpen, &gate.LastCondition, &lastReport,
		&gate.CreatedAt, &gate.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastReport.Valid {
		t := lastReport.Time.In(time.UTC)
		gate.LastReportAt = &t
	}
	gate.CreatedAt = gate.CreatedAt.In(time.UTC)
	gate.UpdatedAt = gate.UpdatedAt.In(time.UTC)
	return gate, nil
}

func (r *pgGateActuatorRepository) Create(ctx context.Context, gate *domain.GateActuator) (*domain.GateActuator, error) {
	query := `INSERT INTO gate_actuators (id_mikrokontroler, role, usable, buka, kondisi, created_at, updated_at)
	           VALUES ($1, $2, $3, FALSE, $4, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING id_aktuator, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		gate.ControllerID, gate.Role, gate.Usable, domain.GateConditionClosed,
	).Scan(&gate.ID, &gate.CreatedAt, &gate.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "foreign_key_violation" {
			return nil, fmt.Errorf("%w: mikrokontroler %d không tồn tại", repository.ErrNotFound, gate.ControllerID)
		}
		return nil, fmt.Errorf("GateActuatorRepository.Create: %w", err)
	}
	gate.DesiredOpen = false
	gate.LastCondition = domain.GateConditionClosed
	gate.CreatedAt = gate.CreatedAt.In(time.UTC)
	gate.UpdatedAt = gate.UpdatedAt.In(time.UTC)
	return gate, nil
}

func (r *pgGateActuatorRepository) FindByID(ctx context.Context, id int) (*domain.GateActuator, error) {
	query := `SELECT ` + gateColumns + ` FROM gate_actuators WHERE id_aktuator = $1`
	gate, err := scanGate(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("GateActuatorRepository.FindByID: %w", err)
	}
	return gate, nil
}

func (r *pgGateActuatorRepository) FindUsable(ctx context.Context) ([]domain.GateActuator, error) {
	query := `SELECT ` + gateColumns + ` FROM gate_actuators WHERE usable = TRUE ORDER BY id_aktuator`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("GateActuatorRepository.FindUsable: %w", err)
	}
	defer rows.Close()

	var gates []domain.GateActuator
	for rows.Next() {
		gate, err := scanGate(rows)
		if err != nil {
			return nil, fmt.Errorf("GateActuatorRepository.FindUsable (scanning row): %w", err)
		}
		gates = append(gates, *gate)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("GateActuatorRepository.FindUsable (rows error): %w", err)
	}
	return gates, nil
}

func (r *pgGateActuatorRepository) FindUsableByRole(ctx context.Context, role domain.GateRole) (*domain.GateActuator, error) {
	query := `SELECT ` + gateColumns + ` FROM gate_actuators
	           WHERE usable = TRUE AND role = $1 ORDER BY id_aktuator LIMIT 1`
	gate, err := scanGate(r.db.QueryRowContext(ctx, query, role))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("GateActuatorRepository.FindUsableByRole: %w", err)
	}
	return gate, nil
}

func (r *pgGateActuatorRepository) SetDesiredOpen(ctx context.Context, id int, open bool) error {
	query := `UPDATE gate_actuators SET buka = $1, updated_at = CURRENT_TIMESTAMP WHERE id_aktuator = $2`
	result, err := r.db.ExecContext(ctx, query, open, id)
	if err != nil {
		return fmt.Errorf("GateActuatorRepository.SetDesiredOpen: %w", err)
	}
	return checkAffected(result, "GateActuatorRepository.SetDesiredOpen")
}

// RecordCondition chỉ ghi nhận condition; việc clear cờ buka khi condition=closed
// do HardwareSyncService quyết định.
func (r *pgGateActuatorRepository) RecordCondition(ctx context.Context, id int, condition domain.GateCondition, reportedAt time.Time) error {
	query := `UPDATE gate_actuators SET kondisi = $1, last_report_at = $2, updated_at = CURRENT_TIMESTAMP WHERE id_aktuator = $3`
	result, err := r.db.ExecContext(ctx, query, condition, reportedAt, id)
	if err != nil {
		return fmt.Errorf("GateActuatorRepository.RecordCondition: %w", err)
	}
	return checkAffected(result, "GateActuatorRepository.RecordCondition")
}
