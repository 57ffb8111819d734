package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingCheckedIn BookingStatus = "checked-in"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// Active là các trạng thái còn chiếm slot. completed/cancelled là terminal,
// không bao giờ quay lại.
func (s BookingStatus) Active() bool {
	return s == BookingPending || s == BookingCheckedIn
}

type Booking struct {
	ID         int           `json:"id_booking"`
	SlotID     int           `json:"id_slot"`
	CustomerID int           `json:"id_customer"`
	Status     BookingStatus `json:"status"`
	BookedAt   time.Time     `json:"waktu_booking"`
	CheckIn    null.Time     `json:"waktu_masuk"`
	CheckOut   null.Time     `json:"waktu_keluar"`

	// QR credential gắn với booking: cấp một lần lúc tạo, không rotate khi đọc lại.
	QRToken     null.String `json:"-"`
	QRExpiresAt null.Time   `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QRCredential là cặp (token, expiry) trả về cho customer để hiển thị QR.
type QRCredential struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type ReserveDTO struct {
	SpotID string `json:"spotId" binding:"required"` // dạng "S1", "S2", ...
}

type ScanDTO struct {
	QRToken string `json:"qrToken" binding:"required"`
	Action  string `json:"action" binding:"required,oneof=enter exit"`
}

// ScanResult trả về cho attendant sau khi quét: cổng nào cần mở.
type ScanResult struct {
	Message     string `json:"message"`
	GateID      int    `json:"gate_id"`
	DesiredOpen bool   `json:"desiredOpen"`
	Cost        *int   `json:"cost,omitempty"` // chỉ có khi action=exit
}

// BookingView là shape trả về cho frontend customer.
type BookingView struct {
	ID        string        `json:"id"`
	UserID    string        `json:"userId"`
	SpotID    string        `json:"spotId"`
	QR        *QRCredential `json:"qr"`
	Status    BookingStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	StartTime *time.Time    `json:"startTime"`
	EndTime   *time.Time    `json:"endTime"`
	Cost      *int          `json:"cost"`
}

type HistoryEntry struct {
	BookingID     string        `json:"bookingId"`
	UserID        string        `json:"userId"`
	SpotName      string        `json:"spotName"`
	Status        BookingStatus `json:"status"`
	StartTime     *time.Time    `json:"startTime"`
	EndTime       *time.Time    `json:"endTime"`
	DurationHours int           `json:"durationHours"`
	Cost          int           `json:"cost"`
}

type ReportSummary struct {
	TodayRevenue int `json:"todayRevenue"`
	MonthRevenue int `json:"monthRevenue"`
	TodayEntries int `json:"todayEntries"`
	TodayExits   int `json:"todayExits"`
}
