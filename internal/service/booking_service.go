package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/Donefal/Proyek-WebApp-RPL/internal/domain"
	"github.com/Donefal/Proyek-WebApp-RPL/internal/repository"

	"gopkg.in/guregu/null.v4"
)

var ErrSlotUnavailable = errors.New("lahan tidak tersedia")
var ErrActiveBookingExists = errors.New("masih ada booking aktif")
var ErrNoActiveBooking = errors.New("tidak ada booking yang bisa dibatalkan")
var ErrAlreadyCheckedIn = errors.New("kedatangan sudah dikonfirmasi")
var ErrNotCheckedIn = errors.New("belum masuk atau sudah selesai")
var ErrInsufficientBalance = errors.New("saldo tidak cukup")
var ErrInvalidAmount = errors.New("nominal tidak valid")
var ErrInvalidSpotID = errors.New("spotId tidak valid")

// AdmissionNotifier đẩy sự kiện admission cho dashboard (WebSocket). Có thể nil.
type AdmissionNotifier interface {
	BroadcastAdmission(event domain.AdmissionNotification)
}

// GateCommander publish lệnh mở cổng qua MQTT khi được cấu hình. Có thể nil;
// instruction pull của phần cứng vẫn là nguồn chính.
type GateCommander interface {
	PublishGateCommand(ctx context.Context, payload domain.GateCommandPayload) error
}

// ParkingService điều phối vòng đời slot + booking + ví + cổng. Mọi mutation
// của một thao tác API đi qua đúng một transaction (txm), theo hợp đồng:
// hoặc commit hết, hoặc không gì cả.
type ParkingService struct {
	txm         repository.TxManager
	userRepo    repository.UserRepository
	slotRepo    repository.SlotRepository
	bookingRepo repository.BookingRepository
	gateRepo    repository.GateActuatorRepository
	qr          *QRService
	tariff      Tariff

	notifier AdmissionNotifier
	gateCmd  GateCommander

	nowFn func() time.Time
}

func NewParkingService(
	txm repository.TxManager,
	userRepo repository.UserRepository,
	slotRepo repository.SlotRepository,
	bookingRepo repository.BookingRepository,
	gateRepo repository.GateActuatorRepository,
	qr *QRService,
	tariff Tariff,
	notifier AdmissionNotifier,
	gateCmd GateCommander,
) *ParkingService {
	return &ParkingService{
		txm:         txm,
		userRepo:    userRepo,
		slotRepo:    slotRepo,
		bookingRepo: bookingRepo,
		gateRepo:    gateRepo,
		qr:          qr,
		tariff:      tariff,
		notifier:    notifier,
		gateCmd:     gateCmd,
		nowFn:       func() time.Time { return time.Now().UTC() },
	}
}

// ParseSpotID đổi "S12" thành slot id 12.
func ParseSpotID(spotID string) (int, error) {
	idStr := strings.TrimPrefix(spotID, "S")
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: '%s'", ErrInvalidSpotID, spotID)
	}
	return id, nil
}

func FormatSpotID(slotID int) string {
	return fmt.Sprintf("S%d", slotID)
}

// --- Spot listing ---

func (s *ParkingService) ListSpots(ctx context.Context) ([]domain.SpotView, error) {
	slots, err := s.slotRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("lỗi lấy danh sách slot: %w", err)
	}

	spots := make([]domain.SpotView, 0, len(slots))
	for i := range slots {
		slot := &slots[i]
		spots = append(spots, domain.SpotView{
			ID:          FormatSpotID(slot.ID),
			Name:        fmt.Sprintf("Slot %d", slot.ID),
			Code:        fmt.Sprintf("P-%d", slot.ID),
			Level:       1,
			Status:      domain.DeriveSlotStatus(slot),
			IsAvailable: slot.Available(),
			RatePerHour: s.tariff.FirstHourRate,
		})
	}
	return spots, nil
}

// --- Reservation ---

func (s *ParkingService) Reserve(ctx context.Context, customerID int, dto domain.ReserveDTO) (*domain.BookingView, error) {
	slotID, err := ParseSpotID(dto.SpotID)
	if err != nil {
		return nil, err
	}

	var booking *domain.Booking
	err = s.txm.WithinTx(ctx, func(tx *sql.Tx) error {
		slotRepo := s.slotRepo.WithTx(tx)
		bookingRepo := s.bookingRepo.WithTx(tx)

		// Row lock trên slot: "đọc cờ booked rồi set true" không bị xen giữa
		// bởi reserve khác trên cùng slot.
		slot, err := slotRepo.FindByIDForUpdate(ctx, slotID)
		if err != nil {
			return err
		}

		// Invariant một booking active mỗi customer, kiểm tra trong cùng
		// transaction với việc tạo booking.
		if existing, err := bookingRepo.FindActiveByCustomer(ctx, customerID); err == nil {
			if expired, lerr := s.lazyExpire(ctx, tx, existing); lerr != nil {
				return lerr
			} else if !expired {
				return ErrActiveBookingExists
			}
			if existing.SlotID == slot.ID {
				slot.Booked = false // vừa release chính slot này
			}
		} else if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("lỗi kiểm tra booking aktif: %w", err)
		}

		if !slot.Available() {
			// Slot đang booked bởi một pending đã hết hạn thì dọn luôn.
			holder, err := bookingRepo.FindActiveBySlot(ctx, slot.ID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return ErrSlotUnavailable
				}
				return fmt.Errorf("lỗi kiểm tra booking của slot: %w", err)
			}
			expired, err := s.lazyExpire(ctx, tx, holder)
			if err != nil {
				return err
			}
			if !expired {
				return ErrSlotUnavailable
			}
		}

		cred, err := s.qr.Issue()
		if err != nil {
			return err
		}

		now := s.nowFn()
		booking = &domain.Booking{
			SlotID:      slot.ID,
			CustomerID:  customerID,
			Status:      domain.BookingPending,
			BookedAt:    now,
			QRToken:     null.StringFrom(cred.Token),
			QRExpiresAt: null.TimeFrom(cred.ExpiresAt),
		}
		if _, err := bookingRepo.Create(ctx, booking); err != nil {
			return err
		}

		return slotRepo.UpdateBookingFlags(ctx, slot.ID, true, slot.Confirmed)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Đã tạo booking ID %d cho customer %d trên slot %d", booking.ID, customerID, slotID)
	return s.bookingView(booking), nil
}

// ActiveBooking trả về booking pending/checked-in hiện tại của customer,
// áp lazy expiry trước khi trả. QR giữ nguyên token đã cấp, không rotate.
func (s *ParkingService) ActiveBooking(ctx context.Context, customerID int) (*domain.BookingView, error) {
	booking, err := s.bookingRepo.FindActiveByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("lỗi tìm booking aktif: %w", err)
	}

	var qrExpiresAt *time.Time
	if booking.QRExpiresAt.Valid {
		qrExpiresAt = &booking.QRExpiresAt.Time
	}
	if booking.Status == domain.BookingPending && s.qr.Expired(qrExpiresAt) {
		err = s.txm.WithinTx(ctx, func(tx *sql.Tx) error {
			_, lerr := s.lazyExpire(ctx, tx, booking)
			return lerr
		})
		if err != nil {
			return nil, err
		}
		return nil, nil
	}
	return s.bookingView(booking), nil
}

// Cancel hủy booking pending của chính customer. Chỉ nhả cờ booked —
// confirmed/occupied giữ nguyên vì hủy xảy ra trước mọi xác nhận vật lý.
func (s *ParkingService) Cancel(ctx context.Context, customerID int) error {
	err := s.txm.WithinTx(ctx, func(tx *sql.Tx) error {
		bookingRepo := s.bookingRepo.WithTx(tx)
		slotRepo := s.slotRepo.WithTx(tx)

		booking, err := bookingRepo.FindActiveByCustomer(ctx, customerID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNoActiveBooking
			}
			return fmt.Errorf("lỗi tìm booking aktif: %w", err)
		}
		if booking.Status != domain.BookingPending {
			return ErrNoActiveBooking
		}

		slot, err := slotRepo.FindByIDForUpdate(ctx, booking.SlotID)
		if err != nil {
			return err
		}

		booking.Status = domain.BookingCancelled
		if _, err := bookingRepo.Update(ctx, booking); err != nil {
			return err
		}
		return slotRepo.UpdateBookingFlags(ctx, slot.ID, false, slot.Confirmed)
	})
	if err != nil {
		return err
	}
	log.Printf("Customer %d đã hủy booking pending", customerID)
	return nil
}

// --- Admission (scan) ---

// Scan là thao tác duy nhất chạm bốn thành phần trong một đơn vị logic:
// QR -> booking -> slot -> ví (khi exit) -> lệnh cổng. Toàn bộ trong một
// transaction; bước nào fail thì mọi mutation trước đó rollback.
func (s *ParkingService) Scan(ctx context.Context, dto domain.ScanDTO) (*domain.ScanResult, error) {
	booking, err := s.bookingRepo.FindActiveByToken(ctx, dto.QRToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredential
		}
		return nil, fmt.Errorf("lỗi tìm booking theo QR: %w", err)
	}

	action := ScanAction(dto.Action)
	var expiresAt *time.Time
	if booking.QRExpiresAt.Valid {
		expiresAt = &booking.QRExpiresAt.Time
	}

	// Lazy expiry trước khi vào đơn vị atomic: một pending đã quá hạn bị hủy
	// và commit riêng, rồi báo Expired cho attendant.
	if booking.Status == domain.BookingPending && s.qr.enforceExpiry[action] && s.qr.Expired(expiresAt) {
		err = s.txm.WithinTx(ctx, func(tx *sql.Tx) error {
			_, lerr := s.lazyExpire(ctx, tx, booking)
			return lerr
		})
		if err != nil {
			return nil, err
		}
		return nil, ErrCredentialExpired
	}

	if err := s.qr.CheckFreshness(expiresAt, action); err != nil {
		return nil, err
	}

	switch action {
	case ActionEnter:
		return s.scanEnter(ctx, booking)
	case ActionExit:
		return s.scanExit(ctx, booking)
	default:
		return nil, fmt.Errorf("aksi tidak dikenal: %s", dto.Action)
	}
}

func (s *ParkingService) scanEnter(ctx context.Context, booking *domain.Booking) (*domain.ScanResult, error) {
	if booking.Status == domain.BookingCheckedIn {
		return nil, ErrAlreadyCheckedIn
	}

	var gate *domain.GateActuator
	err := s.txm.WithinTx(ctx, func(tx *sql.Tx) error {
		bookingRepo := s.bookingRepo.WithTx(tx)
		slotRepo := s.slotRepo.WithTx(tx)
		gateRepo := s.gateRepo.WithTx(tx)

		slot, err := slotRepo.FindByIDForUpdate(ctx, booking.SlotID)
		if err != nil {
			return err
		}

		// Hai lần quét cùng token tuần tự hóa tại khóa slot; đọc lại booking
		// sau khi giữ khóa để lần quét sau thấy trạng thái lần trước đã commit.
		booking, err = bookingRepo.FindByID(ctx, booking.ID)
		if err != nil {
			return err
		}
		switch booking.Status {
		case domain.BookingPending:
		case domain.BookingCheckedIn:
			return ErrAlreadyCheckedIn
		default:
			return ErrInvalidCredential
		}

		now := s.nowFn()
		booking.Status = domain.BookingCheckedIn
		booking.CheckIn = null.TimeFrom(now)
		if _, err := bookingRepo.Update(ctx, booking); err != nil {
			return err
		}

		// confirmArrival: idempotent, set confirmed bất kể giá trị cũ.
		if err := slotRepo.UpdateBookingFlags(ctx, slot.ID, true, true); err != nil {
			return err
		}

		gate, err = gateRepo.FindUsableByRole(ctx, domain.GateRoleEntry)
		if err != nil {
			return fmt.Errorf("không tìm thấy cổng vào usable: %w", err)
		}
		return gateRepo.SetDesiredOpen(ctx, gate.ID, true)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Booking %d checked-in, mở cổng vào %d", booking.ID, gate.ID)
	s.afterAdmission(ctx, "checked-in", booking, domain.SlotStatusConfirmed, gate)

	return &domain.ScanResult{
		Message:     "Masuk dikonfirmasi admin",
		GateID:      gate.ID,
		DesiredOpen: true,
	}, nil
}

func (s *ParkingService) scanExit(ctx context.Context, booking *domain.Booking) (*domain.ScanResult, error) {
	if booking.Status != domain.BookingCheckedIn {
		return nil, ErrNotCheckedIn
	}

	var gate *domain.GateActuator
	var cost int
	err := s.txm.WithinTx(ctx, func(tx *sql.Tx) error {
		bookingRepo := s.bookingRepo.WithTx(tx)
		slotRepo := s.slotRepo.WithTx(tx)
		gateRepo := s.gateRepo.WithTx(tx)
		userRepo := s.userRepo.WithTx(tx)

		// Khóa slot rồi đọc lại booking: hai lần quét exit song song chỉ
		// một lần debit, lần sau thấy completed và bị từ chối.
		if _, err := slotRepo.FindByIDForUpdate(ctx, booking.SlotID); err != nil {
			return err
		}
		fresh, err := bookingRepo.FindByID(ctx, booking.ID)
		if err != nil {
			return err
		}
		if fresh.Status != domain.BookingCheckedIn {
			return ErrNotCheckedIn
		}
		booking = fresh

		now := s.nowFn()
		start := booking.BookedAt
		if booking.CheckIn.Valid {
			start = booking.CheckIn.Time
		}
		cost = s.tariff.Cost(start, now)

		if _, err := userRepo.FindByID(ctx, booking.CustomerID); err != nil {
			return fmt.Errorf("lỗi tìm customer %d: %w", booking.CustomerID, err)
		}
		// Debit có điều kiện; fail ở đây nghĩa là saldo < cost và transaction
		// rollback — booking vẫn checked-in, slot vẫn booked.
		if err := userRepo.DebitBalance(ctx, booking.CustomerID, cost); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInsufficientBalance
			}
			return err
		}

		booking.Status = domain.BookingCompleted
		booking.CheckOut = null.TimeFrom(now)
		if _, err := bookingRepo.Update(ctx, booking); err != nil {
			return err
		}

		// release: kết thúc chu kỳ vật lý của slot.
		if err := slotRepo.Release(ctx, booking.SlotID); err != nil {
			return err
		}

		gate, err = gateRepo.FindUsableByRole(ctx, domain.GateRoleExit)
		if err != nil {
			return fmt.Errorf("không tìm thấy cổng ra usable: %w", err)
		}
		return gateRepo.SetDesiredOpen(ctx, gate.ID, true)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Booking %d checked-out, phí %d, mở cổng ra %d", booking.ID, cost, gate.ID)
	s.afterAdmission(ctx, "checked-out", booking, domain.SlotStatusAvailable, gate)

	return &domain.ScanResult{
		Message:     "Keluar dikonfirmasi admin",
		GateID:      gate.ID,
		DesiredOpen: true,
		Cost:        &cost,
	}, nil
}

// afterAdmission chạy các side effect ngoài transaction (best effort):
// broadcast WebSocket và publish lệnh cổng qua MQTT nếu được cấu hình.
func (s *ParkingService) afterAdmission(ctx context.Context, event string, booking *domain.Booking, status domain.SlotStatus, gate *domain.GateActuator) {
	if s.notifier != nil {
		s.notifier.BroadcastAdmission(domain.AdmissionNotification{
			Event:      event,
			SlotID:     booking.SlotID,
			BookingID:  booking.ID,
			SlotStatus: status,
			Timestamp:  s.nowFn(),
		})
	}
	if s.gateCmd != nil && gate != nil {
		if err := s.gateCmd.PublishGateCommand(ctx, domain.GateCommandPayload{
			Command:    "open",
			ActuatorID: gate.ID,
		}); err != nil {
			log.Printf("Lỗi publish lệnh mở cổng %d: %v", gate.ID, err)
		}
	}
}

// --- Wallet ---

func (s *ParkingService) WalletBalance(ctx context.Context, customerID int) (int, error) {
	user, err := s.userRepo.FindByID(ctx, customerID)
	if err != nil {
		return 0, fmt.Errorf("lỗi tìm customer: %w", err)
	}
	return user.Balance, nil
}

func (s *ParkingService) TopUp(ctx context.Context, customerID int, amount int) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	balance, err := s.userRepo.CreditBalance(ctx, customerID, amount)
	if err != nil {
		return 0, fmt.Errorf("lỗi nạp ví: %w", err)
	}
	log.Printf("Customer %d nạp %d, saldo mới %d", customerID, amount, balance)
	return balance, nil
}

// --- History & reports ---

func (s *ParkingService) History(ctx context.Context, customerID int) ([]domain.HistoryEntry, error) {
	bookings, err := s.bookingRepo.FindHistoryByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("lỗi lấy lịch sử: %w", err)
	}

	history := make([]domain.HistoryEntry, 0, len(bookings))
	for i := range bookings {
		b := &bookings[i]
		start := b.BookedAt
		if b.CheckIn.Valid {
			start = b.CheckIn.Time
		}
		// Booking còn checked-in: phí tạm tính tới thời điểm hiện tại.
		end := s.nowFn()
		if b.CheckOut.Valid {
			end = b.CheckOut.Time
		}
		entry := domain.HistoryEntry{
			BookingID:     fmt.Sprintf("B-%d", b.ID),
			UserID:        strconv.Itoa(b.CustomerID),
			SpotName:      fmt.Sprintf("Slot %d", b.SlotID),
			Status:        b.Status,
			DurationHours: s.tariff.BillableHours(start, end),
			Cost:          s.tariff.Cost(start, end),
		}
		if b.CheckIn.Valid {
			t := b.CheckIn.Time
			entry.StartTime = &t
		}
		if b.CheckOut.Valid {
			t := b.CheckOut.Time
			entry.EndTime = &t
		}
		history = append(history, entry)
	}
	return history, nil
}

func (s *ParkingService) Reports(ctx context.Context) (*domain.ReportSummary, error) {
	now := s.nowFn()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	todayBookings, err := s.bookingRepo.FindCompletedBetween(ctx, todayStart, todayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("lỗi lấy booking trong ngày: %w", err)
	}
	monthBookings, err := s.bookingRepo.FindCompletedBetween(ctx, monthStart, now.Add(time.Second))
	if err != nil {
		return nil, fmt.Errorf("lỗi lấy booking trong tháng: %w", err)
	}

	report := &domain.ReportSummary{}
	for i := range todayBookings {
		b := &todayBookings[i]
		if b.CheckIn.Valid && b.CheckOut.Valid {
			report.TodayRevenue += s.tariff.Cost(b.CheckIn.Time, b.CheckOut.Time)
		}
		if b.CheckIn.Valid && !b.CheckIn.Time.Before(todayStart) {
			report.TodayEntries++
		}
		if b.CheckOut.Valid && !b.CheckOut.Time.Before(todayStart) {
			report.TodayExits++
		}
	}
	for i := range monthBookings {
		b := &monthBookings[i]
		if b.CheckIn.Valid && b.CheckOut.Valid {
			report.MonthRevenue += s.tariff.Cost(b.CheckIn.Time, b.CheckOut.Time)
		}
	}
	return report, nil
}

// --- helpers ---

// lazyExpire hủy một booking pending đã quá hạn QR và nhả cờ booked của slot.
// Trả về true nếu booking đã bị chuyển sang cancelled. Phải gọi trong transaction.
func (s *ParkingService) lazyExpire(ctx context.Context, tx *sql.Tx, booking *domain.Booking) (bool, error) {
	if booking.Status != domain.BookingPending {
		return false, nil
	}
	var expiresAt *time.Time
	if booking.QRExpiresAt.Valid {
		expiresAt = &booking.QRExpiresAt.Time
	}
	if !s.qr.Expired(expiresAt) {
		return false, nil
	}

	bookingRepo := s.bookingRepo.WithTx(tx)
	slotRepo := s.slotRepo.WithTx(tx)

	booking.Status = domain.BookingCancelled
	if _, err := bookingRepo.Update(ctx, booking); err != nil {
		return false, fmt.Errorf("lỗi hủy booking hết hạn %d: %w", booking.ID, err)
	}
	slot, err := slotRepo.FindByIDForUpdate(ctx, booking.SlotID)
	if err != nil {
		return false, err
	}
	if err := slotRepo.UpdateBookingFlags(ctx, slot.ID, false, slot.Confirmed); err != nil {
		return false, err
	}
	log.Printf("Booking %d hết hạn QR, đã tự hủy và nhả slot %d", booking.ID, booking.SlotID)
	return true, nil
}

func (s *ParkingService) bookingView(b *domain.Booking) *domain.BookingView {
	view := &domain.BookingView{
		ID:        fmt.Sprintf("B-%d", b.ID),
		UserID:    strconv.Itoa(b.CustomerID),
		SpotID:    FormatSpotID(b.SlotID),
		Status:    b.Status,
		CreatedAt: b.BookedAt,
	}
	if b.QRToken.Valid && b.QRExpiresAt.Valid {
		view.QR = &domain.QRCredential{
			Token:     b.QRToken.String,
			ExpiresAt: b.QRExpiresAt.Time,
		}
	}
	if b.CheckIn.Valid {
		t := b.CheckIn.Time
		view.StartTime = &t
	}
	if b.CheckOut.Valid {
		t := b.CheckOut.Time
		view.EndTime = &t
	}
	return view
}
