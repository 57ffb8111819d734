package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Donefal/Proyek-WebApp-RPL/internal/domain"
)

var ErrNotFound = errors.New("không tìm thấy bản ghi")
var ErrDuplicateEntry = errors.New("bản ghi đã tồn tại")

// DBTX được thỏa bởi cả *sql.DB và *sql.Tx: repo nào cũng chạy được
// trong hoặc ngoài transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxManager gom các mutation slot/booking/wallet của một thao tác API vào
// đúng một transaction: hoặc commit hết, hoặc rollback hết.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type UserRepository interface {
	WithTx(tx *sql.Tx) UserRepository
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id int) (*domain.User, error)
	// DebitBalance trừ tiền có điều kiện: trả ErrNotFound khi balance < amount
	// hoặc user không tồn tại (một UPDATE duy nhất, giữ invariant non-negative).
	DebitBalance(ctx context.Context, id int, amount int) error
	CreditBalance(ctx context.Context, id int, amount int) (int, error)
}

type SlotRepository interface {
	WithTx(tx *sql.Tx) SlotRepository
	Create(ctx context.Context, slot *domain.Slot) (*domain.Slot, error)
	FindByID(ctx context.Context, id int) (*domain.Slot, error)
	// FindByIDForUpdate khóa row slot (SELECT ... FOR UPDATE): điểm mutual
	// exclusion cho reserve, chỉ gọi trong transaction.
	FindByIDForUpdate(ctx context.Context, id int) (*domain.Slot, error)
	FindAll(ctx context.Context) ([]domain.Slot, error)
	UpdateBookingFlags(ctx context.Context, id int, booked, confirmed bool) error
	// Release kết thúc chu kỳ vật lý: booked=false, confirmed=false, occupied=false.
	Release(ctx context.Context, id int) error
	UpdateSensorFlags(ctx context.Context, id int, occupied, alarmed bool, reportedAt time.Time) error
	Delete(ctx context.Context, id int) error
}

type BookingRepository interface {
	WithTx(tx *sql.Tx) BookingRepository
	Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error)
	FindByID(ctx context.Context, id int) (*domain.Booking, error)
	FindActiveByCustomer(ctx context.Context, customerID int) (*domain.Booking, error)
	FindActiveByToken(ctx context.Context, token string) (*domain.Booking, error)
	FindActiveBySlot(ctx context.Context, slotID int) (*domain.Booking, error)
	Update(ctx context.Context, booking *domain.Booking) (*domain.Booking, error)
	FindHistoryByCustomer(ctx context.Context, customerID int) ([]domain.Booking, error)
	FindCompletedBetween(ctx context.Context, from, to time.Time) ([]domain.Booking, error)
}

type GateActuatorRepository interface {
	WithTx(tx *sql.Tx) GateActuatorRepository
	Create(ctx context.Context, gate *domain.GateActuator) (*domain.GateActuator, error)
	FindByID(ctx context.Context, id int) (*domain.GateActuator, error)
	FindUsable(ctx context.Context) ([]domain.GateActuator, error)
	// FindUsableByRole chọn cổng vào/ra để mở khi scan thành công.
	FindUsableByRole(ctx context.Context, role domain.GateRole) (*domain.GateActuator, error)
	SetDesiredOpen(ctx context.Context, id int, open bool) error
	RecordCondition(ctx context.Context, id int, condition domain.GateCondition, reportedAt time.Time) error
}
