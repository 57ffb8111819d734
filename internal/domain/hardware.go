package domain

import "time"

// GateRole là vai trò logic của một actuator. Phần cứng địa chỉ theo id,
// backend chọn cổng theo role khi cần mở.
type GateRole string

const (
	GateRoleEntry GateRole = "entry"
	GateRoleExit  GateRole = "exit"
)

type GateCondition string

const (
	GateConditionOpen   GateCondition = "open"
	GateConditionClosed GateCondition = "closed"
)

// GateActuator là một rào chắn vật lý do ESP32 điều khiển.
// DesiredOpen chỉ được set bởi luồng admission; phần cứng chỉ được clear nó
// bằng cách báo condition=closed (đóng phải do hardware xác nhận).
type GateActuator struct {
	ID            int           `json:"id_aktuator"`
	ControllerID  int           `json:"id_mikrokontroler"`
	Role          GateRole      `json:"role"`
	Usable        bool          `json:"usable"`
	DesiredOpen   bool          `json:"buka"`
	LastCondition GateCondition `json:"kondisi"`
	LastReportAt  *time.Time    `json:"last_report_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type GateActuatorDTO struct {
	ControllerID int    `json:"id_mikrokontroler" binding:"required"`
	Role         string `json:"role" binding:"required,oneof=entry exit"`
}

// --- ESP32 -> Backend ---

type SlotReport struct {
	SlotID   int  `json:"id_slot"`
	Occupied bool `json:"occupied"`
	Alarmed  bool `json:"alarmed"`
}

type GateConditionReport struct {
	ActuatorID int    `json:"id_aktuator"`
	Condition  string `json:"kondisi"`
}

type HardwareReportDTO struct {
	DeviceID  string                `json:"device_id,omitempty"`
	Timestamp string                `json:"timestamp,omitempty"`
	Slots     []SlotReport          `json:"slots"`
	Gates     []GateConditionReport `json:"gates,omitempty"`
}

// --- Backend -> ESP32 ---

// SlotInstruction là cặp cờ duy nhất mà controller cần biết về một slot
// (occupied/alarmed là của chính nó, không gửi ngược lại).
type SlotInstruction struct {
	SlotID    int  `json:"id_slot"`
	Booked    bool `json:"booked"`
	Confirmed bool `json:"confirmed"`
}

type GateInstruction struct {
	ActuatorID  int  `json:"id_aktuator"`
	DesiredOpen bool `json:"buka"`
}

// InstructionSet là toàn bộ desired state cho phần cứng tại một thời điểm.
type InstructionSet struct {
	Slots []SlotInstruction `json:"slots"`
	Gates []GateInstruction `json:"gates"`
}

// GateCommandPayload publish qua MQTT khi có IoT endpoint (tùy chọn,
// instruction pull vẫn là nguồn chính).
type GateCommandPayload struct {
	Command    string `json:"command"` // "open" hoặc "close"
	ActuatorID int    `json:"id_aktuator"`
	RequestID  string `json:"request_id,omitempty"`
}

// AdmissionNotification đẩy qua WebSocket cho dashboard của attendant.
type AdmissionNotification struct {
	Event      string     `json:"event"` // "checked-in", "checked-out", "alert"
	SlotID     int        `json:"id_slot"`
	BookingID  int        `json:"id_booking,omitempty"`
	SlotStatus SlotStatus `json:"slot_status"`
	Timestamp  time.Time  `json:"timestamp"`
	Message    string     `json:"message,omitempty"`
}
