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

const userColumns = `id_customer, username, email, password_hash, notelp, role, saldo, created_at, updated_at`

type pgUserRepository struct {
	db repository.DBTX
}

func NewPgUserRepository(db *sql.DB) repository.UserRepository {
	return &pgUserRepository{db: db}
}

func (r *pgUserRepository) WithTx(tx *sql.Tx) repository.UserRepository {
	return &pgUserRepository{db: tx}
}

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	user := &domain.User{}
	var phone sql.NullString
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.Password,
		&phone, &user.Role, &user.Balance, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if phone.Valid {
		user.Phone = phone.String
	}
	user.CreatedAt = user.CreatedAt.In(time.UTC)
	user.UpdatedAt = user.UpdatedAt.In(time.UTC)
	return user, nil
}

func (r *pgUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `INSERT INTO users (username, email, password_hash, notelp, role, saldo, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING id_customer, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		user.Username, user.Email, user.Password,
		sql.NullString{String: user.Phone, Valid: user.Phone != ""},
		user.Role, user.Balance,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return nil, fmt.Errorf("%w: email '%s' đã được đăng ký", repository.ErrDuplicateEntry, user.Email)
		}
		return nil, fmt.Errorf("UserRepository.Create: %w", err)
	}
	user.CreatedAt = user.CreatedAt.In(time.UTC)
	user.UpdatedAt = user.UpdatedAt.In(time.UTC)
	return user, nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("UserRepository.FindByEmail: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) FindByID(ctx context.Context, id int) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id_customer = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("UserRepository.FindByID: %w", err)
	}
	return user, nil
}

// DebitBalance: điều kiện saldo >= amount nằm ngay trong UPDATE nên không có
// cửa sổ giữa đọc và ghi; 0 row nghĩa là không đủ tiền hoặc user không tồn tại.
func (r *pgUserRepository) DebitBalance(ctx context.Context, id int, amount int) error {
	query := `UPDATE users SET saldo = saldo - $1, updated_at = CURRENT_TIMESTAMP
	           WHERE id_customer = $2 AND saldo >= $1`
	result, err := r.db.ExecContext(ctx, query, amount, id)
	if err != nil {
		return fmt.Errorf("UserRepository.DebitBalance: %w", err)
	}
	return checkAffected(result, "UserRepository.DebitBalance")
}

func (r *pgUserRepository) CreditBalance(ctx context.Context, id int, amount int) (int, error) {
	query := `UPDATE users SET saldo = saldo + $1, updated_at = CURRENT_TIMESTAMP
	           WHERE id_customer = $2 RETURNING saldo`
	var balance int
	err := r.db.QueryRowContext(ctx, query, amount, id).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, fmt.Errorf("UserRepository.CreditBalance: %w", err)
	}
	return balance, nil
}
