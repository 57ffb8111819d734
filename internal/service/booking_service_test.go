package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/Donefal/Proyek-WebApp-RPL/internal/domain"
	"github.com/Donefal/Proyek-WebApp-RPL/internal/repository/postgresql"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

type stubNotifier struct {
	events []domain.AdmissionNotification
}

func (n *stubNotifier) BroadcastAdmission(event domain.AdmissionNotification) {
	n.events = append(n.events, event)
}

func newParkingFixture(t *testing.T) (*ParkingService, sqlmock.Sqlmock, *stubNotifier) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	qr := NewQRService(30 * time.Minute)
	qr.nowFn = func() time.Time { return testNow }

	notifier := &stubNotifier{}
	svc := NewParkingService(
		postgresql.NewTxManager(db),
		postgresql.NewPgUserRepository(db),
		postgresql.NewPgSlotRepository(db),
		postgresql.NewPgBookingRepository(db),
		postgresql.NewPgGateActuatorRepository(db),
		qr,
		Tariff{FirstHourRate: 10000, ExtraHourRate: 5000},
		notifier,
		nil,
	)
	svc.nowFn = func() time.Time { return testNow }
	return svc, mock, notifier
}

func slotRow(id int, booked, confirmed, occupied, alarmed bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id_slot", "id_mikrokontroler", "booked", "confirmed", "occupied", "alarmed",
		"last_sensor_report", "created_at", "updated_at",
	}).AddRow(id, 1, booked, confirmed, occupied, alarmed, nil, testNow, testNow)
}

func bookingRow(id, slotID, customerID int, status domain.BookingStatus, checkIn, checkOut interface{}, qrExpiresAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id_booking", "id_slot", "id_customer", "status", "waktu_booking",
		"waktu_masuk", "waktu_keluar", "qr_token", "qr_expires_at", "created_at", "updated_at",
	}).AddRow(id, slotID, customerID, status, testNow.Add(-time.Hour), checkIn, checkOut, "tok-abc", qrExpiresAt, testNow, testNow)
}

func gateRow(id int, role domain.GateRole, open bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id_aktuator", "id_mikrokontroler", "role", "usable", "buka", "kondisi",
		"last_report_at", "created_at", "updated_at",
	}).AddRow(id, 1, role, true, open, domain.GateConditionClosed, nil, testNow, testNow)
}

func userRow(id, balance int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id_customer", "username", "email", "password_hash", "notelp", "role", "saldo",
		"created_at", "updated_at",
	}).AddRow(id, "budi", "budi@mail.com", "hash", nil, domain.RoleCustomer, balance, testNow, testNow)
}

// --- Reserve ---

func TestReserve(t *testing.T) {
	svc, mock, _ := newParkingFixture(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM slots WHERE id_slot = \$1 FOR UPDATE`).
		WithArgs(3).
		WillReturnRows(slotRow(3, false, false, false, false))
	mock.ExpectQuery(`FROM bookings\s+WHERE id_customer = \$1`).
		WithArgs(7).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"id_booking", "created_at", "updated_at"}).
			AddRow(42, testNow, testNow))
	mock.ExpectExec(`UPDATE slots SET booked = \$1`).
		WithArgs(true, false, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	view, err := svc.Reserve(context.Background(), 7, domain.ReserveDTO{SpotID: "S3"})
	require.NoError(t, err)
	assert.Equal(t, "B-42", view.ID)
	assert.Equal(t, "S3", view.SpotID)
	assert.Equal(t, domain.BookingPending, view.Status)
	require.NotNil(t, view.QR)
	assert.NotEmpty(t, view.QR.Token)
	assert.Equal(t, testNow.Add(30*time.Minute), view.QR.ExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveSlotTaken(t *testing.T) {
	svc, mock, _ := newParkingFixture(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM slots WHERE id_slot = \$1 FOR UPDATE`).
		WithArgs(3).
		WillReturnRows(slotRow(3, true, false, false, false))
	mock.ExpectQuery(`FROM bookings\s+WHERE id_customer = \$1`).
		WithArgs(7).
		WillReturnError(sql.ErrNoRows)
	// Booking của người khác còn hạn QR: slot không được đụng tới.
	mock.ExpectQuery(`FROM bookings\s+WHERE id_slot = \$1`).
		WithArgs(3).
		WillReturnRows(bookingRow(9, 3, 8, domain.BookingPending, nil, nil, testNow.Add(10*time.Minute)))
	mock.ExpectRollback()

	_, err := svc.Reserve(context.Background(), 7, domain.ReserveDTO{SpotID: "S3"})
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveReclaimsExpiredHold(t *testing.T) {
	svc, mock, _ := newParkingFixture(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM slots WHERE id_slot = \$1 FOR UPDATE`).
		WithArgs(3).
		WillReturnRows(slotRow(3, true, false, false, false))
	mock.ExpectQuery(`FROM bookings\s+WHERE id_customer = \$1`).
		WithArgs(7).
		WillReturnError(sql.ErrNoRows)
	// Pending của người giữ slot đã quá hạn QR: tự hủy rồi nhả slot cho người mới.
	mock.ExpectQuery(`FROM bookings\s+WHERE id_slot = \$1`).
		WithArgs(3).
		WillReturnRows(bookingRow(9, 3, 8, domain.BookingPending, nil, nil, testNow.Add(-time.Minute)))
	mock.ExpectQuery(`UPDATE bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(testNow))
	mock.ExpectQuery(`FROM slots WHERE id_slot = \$1 FOR UPDATE`).
		WithArgs(3).
		WillReturnRows(slotRow(3, true, false, false, false))
	mock.ExpectExec(`UPDATE slots SET booked = \$1`).
		WithArgs(false, false, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"id_booking", "created_at", "updated_at"}).
			AddRow(43, testNow, testNow))
	mock.ExpectExec(`UPDATE slots SET booked = \$1`).
		WithArgs(true, false, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	view, err := svc.Reserve(context.Background(), 7, domain.ReserveDTO{SpotID: "S3"})
	require.NoError(t, err)
	assert.Equal(t, "B-43", view.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveWithActiveBooking(t *testing.T) {
	svc, mock, _ := newParkingFixture(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM slots WHERE id_slot = \$1 FOR UPDATE`).
		WithArgs(4).
		WillReturnRows(slotRow(4, false, false, false, false))
	mock.ExpectQuery(`FROM bookings\s+WHERE id_customer = \$1`).
		WithArgs(7).
		WillReturnRows(bookingRow(11, 2, 7, domain.BookingCheckedIn, testNow.Add(-time.Hour), nil, testNow.Add(-time.Minute)))
	mock.ExpectRollback()

	_, err := svc.Reserve(context.Background(), 7, domain.ReserveDTO{SpotID: "S4"})
	assert.ErrorIs(t, err, ErrActiveBookingExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveBadSpotID(t *testing.T) {
	svc, _, _ := newParkingFixture(t)

	_, err := svc.Reserve(context.Background(), 7, domain.ReserveDTO{SpotID: "garasi"})
	assert.ErrorIs(t, err, ErrInvalidSpotID)
}

// --- Scan: enter ---

func TestScanEnter(t *testing.T) {
	svc, mock, notifier := newParkingFixture(t)

	mock.ExpectQuery(`FROM bookings\s+WHERE qr_token = \$1`).
		WithArgs("tok-abc").
		WillReturnRows(bookingRow(42, 3, 7, domain.BookingPending, nil, nil, testNow.Add(10*time.Minute)))
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM slots WHERE id_slot = \$1 FOR UPDATE`).
		WithArgs(3).
		WillReturnRows(slotRow(3, true, false, false, false))
	mock.ExpectQuery(`FROM bookings WHERE id_booking = \$1`).
		WithArgs(42).
		WillReturnRows(bookingRow(42, 3, 7, domain.BookingPending, nil, nil, testNow.Add(10*time.Minute)))
	mock.ExpectQuery(`UPDATE bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(testNow))
	mock.ExpectExec(`UPDATE slots SET booked = \$1`).
		WithArgs(true, true, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM gate_actuators\s+WHERE usable = TRUE AND role = \$1`).
		WithArgs(domain.GateRoleEntry).
		WillReturnRows(gateRow(1, domain.GateRoleEntry, false))
	mock.ExpectExec(`UPDATE gate_actuators SET buka = \$1`).
		WithArgs(true, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := svc.Scan(context.Background(), domain.ScanDTO{QRToken: "tok-abc", Action: "enter"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.GateID)
	assert.True(t, result.DesiredOpen)
	assert.Nil(t, result.Cost)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, "checked-in", notifier.events[0].Event)
	assert.Equal(t, 3, notifier.events[0].SlotID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanEnterExpired(t *testing.T) {
	svc, mock, notifier := newParkingFixture(t)

	mock.ExpectQuery(`FROM bookings\s+WHERE qr_token = \$1`).
		WithArgs("tok-abc").
		WillReturnRows(bookingRow(42, 3, 7, domain.BookingPending, nil, nil, testNow.Add(-time.Second)))
	// Lazy expiry: pending quá hạn bị hủy và nhả slot trước khi trả lỗi.
	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(testNow))
	mock.ExpectQuery(`FROM slots WHERE id_slot = \$1 FOR UPDATE`).
		WithArgs(3).
		WillReturnRows(slotRow(3, true, false, false, false))
	mock.ExpectExec(`UPDATE slots SET booked = \$1`).
		WithArgs(false, false, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := svc.Scan(context.Background(), domain.ScanDTO{QRToken: "tok-abc", Action: "enter"})
	assert.ErrorIs(t, err, ErrCredentialExpired)
	assert.Empty(t, notifier.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanEnterTwice(t *testing.T) {
	svc, mock, _ := newParkingFixture(t)

	mock.ExpectQuery(`FROM bookings\s+WHERE qr_token = \$1`).
		WithArgs("tok-abc").
		WillReturnRows(bookingRow(42, 3, 7, domain.BookingCheckedIn, testNow.Add(-time.Hour), nil, testNow.Add(10*time.Minute)))

	_, err := svc.Scan(context.Background(), domain.ScanDTO{QRToken: "tok-abc", Action: "enter"})
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanEnterConcurrentDuplicate(t *testing.T) {
	svc, mock, notifier := newParkingFixture(t)

	// Lần đọc đầu còn thấy pending, nhưng một lần quét song song đã commit
	// checked-in trước khi ta giữ được khóa slot. Lần đọc lại trong
	// transaction phải bắt được và rollback, không mở cổng lần hai.
	mock.ExpectQuery(`FROM bookings\s+WHERE qr_token = \$1`).
		WithArgs("tok-abc").
		WillReturnRows(bookingRow(42, 3, 7, domain.BookingPending, nil, nil, testNow.Add(10*time.Minute)))
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM slots WHERE id_slot = \$1 FOR UPDATE`).
		WithArgs(3).
		WillReturnRows(slotRow(3, true, true, false, false))
	mock.ExpectQuery(`FROM bookings WHERE id_booking = \$1`).
		WithArgs(42).
		WillReturnRows(bookingRow(42, 3, 7, domain.BookingCheckedIn, testNow.Add(-time.Minute), nil, testNow.Add(10*time.Minute)))
	mock.ExpectRollback()

	_, err := svc.Scan(context.Background(), domain.ScanDTO{QRToken: "tok-abc", Action: "enter"})
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)
	assert.Empty(t, notifier.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanUnknownToken(t *testing.T) {
	svc, mock, _ := newParkingFixture(t)

	mock.ExpectQuery(`FROM bookings\s+WHERE qr_token = \$1`).
		WithArgs("tok-zzz").
		WillReturnError(sql.ErrNoRows)

	_, err := svc.Scan(context.Background(), domain.ScanDTO{QRToken: "tok-zzz", Action: "enter"})
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

// --- Scan: exit ---

func TestScanExit(t *testing.T) {
	svc, mock, notifier := newParkingFixture(t)

	// QR đã quá hạn từ lâu nhưng action=exit không xét hạn: khách trong bãi
	// luôn ra được. Đỗ 2h10m -> 10000 + 2*5000.
	checkIn := testNow.Add(-(2*time.Hour + 10*time.Minute))
	mock.ExpectQuery(`FROM bookings\s+WHERE qr_token = \$1`).
		WithArgs("tok-abc").
		WillReturnRows(bookingRow(42, 3, 7, domain.BookingCheckedIn, checkIn, nil, testNow.Add(-2*time.Hour)))
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM slots WHERE id_slot = \$1 FOR UPDATE`).
		WithArgs(3).
		WillReturnRows(slotRow(3, true, true, true, false))
	mock.ExpectQuery(`FROM bookings WHERE id_booking = \$1`).
		WithArgs(42).
		WillReturnRows(bookingRow(42, 3, 7, domain.BookingCheckedIn, checkIn, nil, testNow.Add(-2*time.Hour)))
	mock.ExpectQuery(`FROM users WHERE id_customer = \$1`).
		WithArgs(7).
		WillReturnRows(userRow(7, 50000))
	mock.ExpectExec(`UPDATE users SET saldo = saldo - \$1`).
		WithArgs(20000, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`UPDATE bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(testNow))
	mock.ExpectExec(`UPDATE slots SET booked = FALSE`).
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM gate_actuators\s+WHERE usable = TRUE AND role = \$1`).
		WithArgs(domain.GateRoleExit).
		WillReturnRows(gateRow(2, domain.GateRoleExit, false))
	mock.ExpectExec(`UPDATE gate_actuators SET buka = \$1`).
		WithArgs(true, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := svc.Scan(context.Background(), domain.ScanDTO{QRToken: "tok-abc", Action: "exit"})
	require.NoError(t, err)
	require.NotNil(t, result.Cost)
	assert.Equal(t, 20000, *result.Cost)
	assert.Equal(t, 2, result.GateID)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, "checked-out", notifier.events[0].Event)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanExitInsufficientBalance(t *testing.T) {
	svc, mock, notifier := newParkingFixture(t)

	checkIn := testNow.Add(-30 * time.Minute)
	mock.ExpectQuery(`FROM bookings\s+WHERE qr_token = \$1`).
		WithArgs("tok-abc").
		WillReturnRows(bookingRow(42, 3, 7, domain.BookingCheckedIn, checkIn, nil, testNow))
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM slots WHERE id_slot = \$1 FOR UPDATE`).
		WithArgs(3).
		WillReturnRows(slotRow(3, true, true, true, false))
	mock.ExpectQuery(`FROM bookings WHERE id_booking = \$1`).
		WithArgs(42).
		WillReturnRows(bookingRow(42, 3, 7, domain.BookingCheckedIn, checkIn, nil, testNow))
	mock.ExpectQuery(`FROM users WHERE id_customer = \$1`).
		WithArgs(7).
		WillReturnRows(userRow(7, 4000))
	// 0 row: saldo < 10000. Transaction rollback, booking vẫn checked-in.
	mock.ExpectExec(`UPDATE users SET saldo = saldo - \$1`).
		WithArgs(10000, 7).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := svc.Scan(context.Background(), domain.ScanDTO{QRToken: "tok-abc", Action: "exit"})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Empty(t, notifier.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanExitBeforeEnter(t *testing.T) {
	svc, mock, _ := newParkingFixture(t)

	mock.ExpectQuery(`FROM bookings\s+WHERE qr_token = \$1`).
		WithArgs("tok-abc").
		WillReturnRows(bookingRow(42, 3, 7, domain.BookingPending, nil, nil, testNow.Add(10*time.Minute)))

	_, err := svc.Scan(context.Background(), domain.ScanDTO{QRToken: "tok-abc", Action: "exit"})
	assert.ErrorIs(t, err, ErrNotCheckedIn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanExitConcurrentDuplicate(t *testing.T) {
	svc, mock, notifier := newParkingFixture(t)

	// Một lần quét exit song song đã hoàn tất thanh toán; lần đọc lại dưới
	// khóa slot thấy completed và từ chối, không debit lần hai.
	checkIn := testNow.Add(-time.Hour)
	mock.ExpectQuery(`FROM bookings\s+WHERE qr_token = \$1`).
		WithArgs("tok-abc").
		WillReturnRows(bookingRow(42, 3, 7, domain.BookingCheckedIn, checkIn, nil, testNow))
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM slots WHERE id_slot = \$1 FOR UPDATE`).
		WithArgs(3).
		WillReturnRows(slotRow(3, false, false, false, false))
	mock.ExpectQuery(`FROM bookings WHERE id_booking = \$1`).
		WithArgs(42).
		WillReturnRows(bookingRow(42, 3, 7, domain.BookingCompleted, checkIn, testNow.Add(-time.Second), testNow))
	mock.ExpectRollback()

	_, err := svc.Scan(context.Background(), domain.ScanDTO{QRToken: "tok-abc", Action: "exit"})
	assert.ErrorIs(t, err, ErrNotCheckedIn)
	assert.Empty(t, notifier.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- Cancel ---

func TestCancel(t *testing.T) {
	svc, mock, _ := newParkingFixture(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM bookings\s+WHERE id_customer = \$1`).
		WithArgs(7).
		WillReturnRows(bookingRow(42, 3, 7, domain.BookingPending, nil, nil, testNow.Add(10*time.Minute)))
	mock.ExpectQuery(`FROM slots WHERE id_slot = \$1 FOR UPDATE`).
		WithArgs(3).
		WillReturnRows(slotRow(3, true, false, false, false))
	mock.ExpectQuery(`UPDATE bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(testNow))
	mock.ExpectExec(`UPDATE slots SET booked = \$1`).
		WithArgs(false, false, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.Cancel(context.Background(), 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelNothingToCancel(t *testing.T) {
	svc, mock, _ := newParkingFixture(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM bookings\s+WHERE id_customer = \$1`).
		WithArgs(7).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := svc.Cancel(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNoActiveBooking)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelCheckedIn(t *testing.T) {
	svc, mock, _ := newParkingFixture(t)

	// Đã vào bãi thì không hủy được nữa, chỉ có thể checkout.
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM bookings\s+WHERE id_customer = \$1`).
		WithArgs(7).
		WillReturnRows(bookingRow(42, 3, 7, domain.BookingCheckedIn, testNow.Add(-time.Hour), nil, testNow))
	mock.ExpectRollback()

	err := svc.Cancel(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNoActiveBooking)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- ActiveBooking ---

func TestActiveBookingLazyExpiry(t *testing.T) {
	svc, mock, _ := newParkingFixture(t)

	mock.ExpectQuery(`FROM bookings\s+WHERE id_customer = \$1`).
		WithArgs(7).
		WillReturnRows(bookingRow(42, 3, 7, domain.BookingPending, nil, nil, testNow.Add(-time.Minute)))
	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(testNow))
	mock.ExpectQuery(`FROM slots WHERE id_slot = \$1 FOR UPDATE`).
		WithArgs(3).
		WillReturnRows(slotRow(3, true, false, false, false))
	mock.ExpectExec(`UPDATE slots SET booked = \$1`).
		WithArgs(false, false, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	view, err := svc.ActiveBooking(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, view)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActiveBookingKeepsIssuedQR(t *testing.T) {
	svc, mock, _ := newParkingFixture(t)

	expiresAt := testNow.Add(10 * time.Minute)
	mock.ExpectQuery(`FROM bookings\s+WHERE id_customer = \$1`).
		WithArgs(7).
		WillReturnRows(bookingRow(42, 3, 7, domain.BookingPending, nil, nil, expiresAt))

	view, err := svc.ActiveBooking(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, view)
	require.NotNil(t, view.QR)
	// Token hiển thị lại y nguyên, không cấp mới.
	assert.Equal(t, "tok-abc", view.QR.Token)
	assert.Equal(t, expiresAt, view.QR.ExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- Wallet ---

func TestTopUp(t *testing.T) {
	svc, mock, _ := newParkingFixture(t)

	mock.ExpectQuery(`UPDATE users SET saldo = saldo \+ \$1`).
		WithArgs(25000, 7).
		WillReturnRows(sqlmock.NewRows([]string{"saldo"}).AddRow(75000))

	balance, err := svc.TopUp(context.Background(), 7, 25000)
	require.NoError(t, err)
	assert.Equal(t, 75000, balance)
}

func TestTopUpInvalidAmount(t *testing.T) {
	svc, _, _ := newParkingFixture(t)

	for _, amount := range []int{0, -5000} {
		_, err := svc.TopUp(context.Background(), 7, amount)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}
}

// --- History ---

func TestHistory(t *testing.T) {
	svc, mock, _ := newParkingFixture(t)

	checkIn := testNow.Add(-3 * time.Hour)
	checkOut := checkIn.Add(61 * time.Minute)
	rows := sqlmock.NewRows([]string{
		"id_booking", "id_slot", "id_customer", "status", "waktu_booking",
		"waktu_masuk", "waktu_keluar", "qr_token", "qr_expires_at", "created_at", "updated_at",
	}).
		AddRow(43, 5, 7, domain.BookingCheckedIn, testNow.Add(-time.Hour),
			testNow.Add(-30*time.Minute), nil, "tok-def", testNow, testNow, testNow).
		AddRow(42, 3, 7, domain.BookingCompleted, testNow.Add(-4*time.Hour),
			checkIn, checkOut, "tok-abc", testNow, testNow, testNow)
	mock.ExpectQuery(`FROM bookings\s+WHERE id_customer = \$1 AND status IN \('checked-in', 'completed'\)`).
		WithArgs(7).
		WillReturnRows(rows)

	history, err := svc.History(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, history, 2)

	// Booking còn trong bãi: phí tạm tính tới hiện tại, chưa có giờ ra.
	assert.Equal(t, "B-43", history[0].BookingID)
	assert.Equal(t, domain.BookingCheckedIn, history[0].Status)
	assert.Nil(t, history[0].EndTime)
	assert.Equal(t, 1, history[0].DurationHours)
	assert.Equal(t, 10000, history[0].Cost)

	// Đỗ 61 phút: giờ thứ hai đã bắt đầu.
	assert.Equal(t, "B-42", history[1].BookingID)
	assert.Equal(t, domain.BookingCompleted, history[1].Status)
	assert.Equal(t, 2, history[1].DurationHours)
	assert.Equal(t, 15000, history[1].Cost)
	assert.NoError(t, mock.ExpectationsWereMet())
}
