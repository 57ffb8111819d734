package domain

import "time"

type SlotStatus string

const (
	SlotStatusAvailable SlotStatus = "available"
	SlotStatusBooked    SlotStatus = "booked"
	SlotStatusConfirmed SlotStatus = "confirmed"
	SlotStatusOccupied  SlotStatus = "occupied"
	SlotStatusAlert     SlotStatus = "alert"
	SlotStatusUnknown   SlotStatus = "unknown"
)

// Slot là một lahan đỗ vật lý, 1:1 với một bay. Bốn cờ độc lập:
// Booked/Confirmed do luồng booking ghi, Occupied/Alarmed do phần cứng ghi.
type Slot struct {
	ID               int       `json:"id_slot"`
	ControllerID     int       `json:"id_mikrokontroler"`
	Booked           bool      `json:"booked"`
	Confirmed        bool      `json:"confirmed"`
	Occupied         bool      `json:"occupied"`
	Alarmed          bool      `json:"alarmed"`
	LastSensorReport *time.Time `json:"last_sensor_report,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Available là policy duy nhất quyết định slot có nhận reservation mới hay không.
// Quyết định nghiệp vụ (phiên bản mới nhất): chỉ xét cờ booked — một slot đang
// occupied/alarmed nhưng chưa booked vẫn được đặt. Đổi policy thì sửa đúng một chỗ này.
func (s *Slot) Available() bool {
	return !s.Booked
}

// DeriveSlotStatus suy ra trạng thái hiển thị từ bốn cờ. Hàm total:
// tổ hợp nào không nằm trong bảng nghiệp vụ thì trả về unknown.
func DeriveSlotStatus(s *Slot) SlotStatus {
	switch {
	case !s.Booked && !s.Confirmed && !s.Occupied && !s.Alarmed:
		return SlotStatusAvailable
	case s.Booked && !s.Confirmed && !s.Occupied && !s.Alarmed:
		return SlotStatusBooked
	case s.Booked && s.Confirmed && !s.Occupied && !s.Alarmed:
		return SlotStatusConfirmed
	case s.Booked && s.Confirmed && s.Occupied && !s.Alarmed:
		return SlotStatusOccupied
	case !s.Booked && !s.Confirmed && s.Occupied && s.Alarmed:
		// Có xe trong slot mà không có booking được xác nhận: cần attendant xử lý,
		// không phải lỗi hệ thống.
		return SlotStatusAlert
	default:
		return SlotStatusUnknown
	}
}

type SlotDTO struct {
	ControllerID int `json:"id_mikrokontroler" binding:"required"`
}

// SpotView là hình dạng slot trả cho frontend (màn hình chọn chỗ).
type SpotView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	Level       int    `json:"level"`
	Status      SlotStatus `json:"status"`
	IsAvailable bool   `json:"isAvailable"`
	RatePerHour int    `json:"ratePerHour"`
}
