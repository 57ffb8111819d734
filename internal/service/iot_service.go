package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/Donefal/Proyek-WebApp-RPL/internal/config"
	"github.com/Donefal/Proyek-WebApp-RPL/internal/domain"
	"github.com/Donefal/Proyek-WebApp-RPL/internal/monitoring"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
	"github.com/google/uuid"
)

// IoTService nối backend với tầng MQTT: nhận báo cáo phần cứng qua SQS và
// publish lệnh cổng chủ động. Đường pull /hardware/instruction vẫn là nguồn
// chính; publish MQTT chỉ là đường nhanh cho cổng phản ứng tức thì.
type IoTService struct {
	hardwareService *HardwareService
	iotDataClient   *iotdataplane.Client
	cfg             *config.Config
}

func NewIoTService(hs *HardwareService, iotDataClient *iotdataplane.Client, cfg *config.Config) *IoTService {
	return &IoTService{
		hardwareService: hs,
		iotDataClient:   iotDataClient,
		cfg:             cfg,
	}
}

// HandleHardwareEvent xử lý một message SQS do IoT Rule đẩy sang. Body có
// cùng shape với payload /hardware/update nên ESP32 dùng được cả hai đường.
func (s *IoTService) HandleHardwareEvent(ctx context.Context, sqsMessageBody string) error {
	var report domain.HardwareReportDTO
	if err := json.Unmarshal([]byte(sqsMessageBody), &report); err != nil {
		// Payload hỏng thì xử lý lại cũng vô ích, log rồi bỏ.
		log.Printf("IoTService: Bỏ qua message không parse được: %v. Body: %s", err, sqsMessageBody)
		return nil
	}

	slotsUpdated, err := s.hardwareService.ReportOccupancy(ctx, report.Slots)
	if err != nil {
		return fmt.Errorf("lỗi xử lý báo cáo cảm biến từ SQS: %w", err)
	}
	monitoring.SensorReportsTotal.Add(float64(slotsUpdated))

	if _, err := s.hardwareService.ReportGateCondition(ctx, report.Gates); err != nil {
		return fmt.Errorf("lỗi xử lý trạng thái cổng từ SQS: %w", err)
	}

	log.Printf("IoTService: Đã xử lý message từ thiết bị '%s' (%d slot)", report.DeviceID, slotsUpdated)
	return nil
}

// PublishGateCommand thỏa GateCommander. Không có endpoint MQTT thì bỏ qua
// trong im lặng, cổng sẽ nhận desired state qua instruction pull.
func (s *IoTService) PublishGateCommand(ctx context.Context, payload domain.GateCommandPayload) error {
	if s.cfg.IoTMQTTEndpoint == "" {
		return nil
	}

	payload.RequestID = uuid.NewString()
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("lỗi marshal lệnh cổng: %w", err)
	}

	topic := fmt.Sprintf("parkir/aktuator/%d/commands", payload.ActuatorID)
	_, err = s.iotDataClient.Publish(ctx, &iotdataplane.PublishInput{
		Topic:   aws.String(topic),
		Qos:     1,
		Payload: payloadBytes,
	})
	if err != nil {
		return fmt.Errorf("lỗi publish lệnh MQTT: %w", err)
	}

	monitoring.GateCommandsTotal.Inc()
	log.Printf("Đã gửi lệnh '%s' (ReqID: %s) tới aktuator %d", payload.Command, payload.RequestID, payload.ActuatorID)
	return nil
}
