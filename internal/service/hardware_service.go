package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Donefal/Proyek-WebApp-RPL/internal/domain"
	"github.com/Donefal/Proyek-WebApp-RPL/internal/monitoring"
	"github.com/Donefal/Proyek-WebApp-RPL/internal/repository"
)

// HardwareService là cầu nối giữa DB và tầng thiết bị: nhận báo cáo cảm biến,
// nhận trạng thái cổng, và build instruction cho controller pull về.
type HardwareService struct {
	slotRepo repository.SlotRepository
	gateRepo repository.GateActuatorRepository

	notifier AdmissionNotifier
	nowFn    func() time.Time
}

func NewHardwareService(slotRepo repository.SlotRepository, gateRepo repository.GateActuatorRepository, notifier AdmissionNotifier) *HardwareService {
	return &HardwareService{
		slotRepo: slotRepo,
		gateRepo: gateRepo,
		notifier: notifier,
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

// ReportOccupancy xử lý một batch báo cáo cảm biến. Báo cáo cho slot id không
// tồn tại bị bỏ qua (phần cứng có thể cấu hình lệch, không được làm fail cả
// batch). Trả về số slot được cập nhật.
func (s *HardwareService) ReportOccupancy(ctx context.Context, reports []domain.SlotReport) (int, error) {
	updated := 0
	for _, report := range reports {
		slot, err := s.slotRepo.FindByID(ctx, report.SlotID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				log.Printf("Bỏ qua báo cáo cảm biến cho slot không tồn tại %d", report.SlotID)
				continue
			}
			return updated, fmt.Errorf("lỗi tìm slot %d: %w", report.SlotID, err)
		}

		// Forward nguyên trạng cả hai cờ: ESP32 tự tính alarm từ cặp
		// booked/confirmed nó pull về qua instruction. Báo cáo mới nhất thắng.
		if err := s.slotRepo.UpdateSensorFlags(ctx, slot.ID, report.Occupied, report.Alarmed, s.nowFn()); err != nil {
			return updated, fmt.Errorf("lỗi cập nhật cảm biến slot %d: %w", slot.ID, err)
		}
		updated++

		if report.Alarmed && !slot.Alarmed {
			monitoring.AlarmsTotal.Inc()
			log.Printf("CẢNH BÁO: slot %d có xe nhưng chưa xác nhận QR", slot.ID)
			if s.notifier != nil {
				s.notifier.BroadcastAdmission(domain.AdmissionNotification{
					Event:      "alert",
					SlotID:     slot.ID,
					SlotStatus: domain.SlotStatusAlert,
					Timestamp:  s.nowFn(),
				})
			}
		}
	}
	return updated, nil
}

// ReportGateCondition nhận trạng thái barrier từ controller. Chỉ khi cổng báo
// đã đóng lại thì cờ buka mới được hạ — chống race giữa lệnh mở và báo cáo cũ.
func (s *HardwareService) ReportGateCondition(ctx context.Context, reports []domain.GateConditionReport) (int, error) {
	updated := 0
	for _, report := range reports {
		condition := domain.GateCondition(report.Condition)
		if condition != domain.GateConditionOpen && condition != domain.GateConditionClosed {
			log.Printf("Bỏ qua trạng thái cổng không hợp lệ '%s' từ aktuator %d", report.Condition, report.ActuatorID)
			continue
		}

		if err := s.gateRepo.RecordCondition(ctx, report.ActuatorID, condition, s.nowFn()); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				log.Printf("Bỏ qua báo cáo cho aktuator không tồn tại %d", report.ActuatorID)
				continue
			}
			return updated, fmt.Errorf("lỗi cập nhật aktuator %d: %w", report.ActuatorID, err)
		}
		// Chỉ hardware báo closed mới được hạ cờ buka — backend không tự đoán
		// cổng đã đóng.
		if condition == domain.GateConditionClosed {
			if err := s.gateRepo.SetDesiredOpen(ctx, report.ActuatorID, false); err != nil {
				return updated, fmt.Errorf("lỗi hạ cờ buka aktuator %d: %w", report.ActuatorID, err)
			}
		}
		updated++
	}
	return updated, nil
}

// BuildInstruction lắp payload cho phần cứng pull về: cờ booked/confirmed của
// toàn bộ slot và cờ buka của các cổng usable.
func (s *HardwareService) BuildInstruction(ctx context.Context) (*domain.InstructionSet, error) {
	slots, err := s.slotRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("lỗi lấy danh sách slot: %w", err)
	}
	gates, err := s.gateRepo.FindUsable(ctx)
	if err != nil {
		return nil, fmt.Errorf("lỗi lấy danh sách aktuator: %w", err)
	}

	instruction := &domain.InstructionSet{
		Slots: make([]domain.SlotInstruction, 0, len(slots)),
		Gates: make([]domain.GateInstruction, 0, len(gates)),
	}
	for i := range slots {
		instruction.Slots = append(instruction.Slots, domain.SlotInstruction{
			SlotID:    slots[i].ID,
			Booked:    slots[i].Booked,
			Confirmed: slots[i].Confirmed,
		})
	}
	for i := range gates {
		instruction.Gates = append(instruction.Gates, domain.GateInstruction{
			ActuatorID:  gates[i].ID,
			DesiredOpen: gates[i].DesiredOpen,
		})
	}
	return instruction, nil
}

// --- Provisioning (admin) ---

func (s *HardwareService) CreateSlot(ctx context.Context, dto domain.SlotDTO) (*domain.Slot, error) {
	slot, err := s.slotRepo.Create(ctx, &domain.Slot{ControllerID: dto.ControllerID})
	if err != nil {
		return nil, fmt.Errorf("lỗi tạo slot: %w", err)
	}
	log.Printf("Đã tạo slot %d (mikrokontroler %d)", slot.ID, dto.ControllerID)
	return slot, nil
}

func (s *HardwareService) DeleteSlot(ctx context.Context, slotID int) error {
	if err := s.slotRepo.Delete(ctx, slotID); err != nil {
		return fmt.Errorf("lỗi xóa slot %d: %w", slotID, err)
	}
	return nil
}

func (s *HardwareService) CreateGate(ctx context.Context, dto domain.GateActuatorDTO) (*domain.GateActuator, error) {
	gate, err := s.gateRepo.Create(ctx, &domain.GateActuator{
		ControllerID: dto.ControllerID,
		Role:         domain.GateRole(dto.Role),
		Usable:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("lỗi tạo aktuator: %w", err)
	}
	log.Printf("Đã tạo aktuator %d (role %s)", gate.ID, dto.Role)
	return gate, nil
}

func (s *HardwareService) ListGates(ctx context.Context) ([]domain.GateActuator, error) {
	gates, err := s.gateRepo.FindUsable(ctx)
	if err != nil {
		return nil, fmt.Errorf("lỗi lấy danh sách aktuator: %w", err)
	}
	return gates, nil
}
