package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AdmissionsTotal đếm số lần quét QR thành công, phân theo chiều.
	AdmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parkir_admissions_total",
		Help: "Tổng số lần quét QR thành công, phân theo action (enter/exit).",
	}, []string{"action"})

	// AdmissionFailuresTotal đếm các lần quét bị từ chối.
	AdmissionFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parkir_admission_failures_total",
		Help: "Tổng số lần quét QR bị từ chối, phân theo lý do.",
	}, []string{"reason"})

	SensorReportsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parkir_sensor_reports_total",
		Help: "Tổng số báo cáo cảm biến slot đã xử lý.",
	})

	AlarmsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parkir_alarms_total",
		Help: "Tổng số lần slot chuyển sang trạng thái alert.",
	})

	InstructionPullsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parkir_instruction_pulls_total",
		Help: "Tổng số lần phần cứng pull instruction.",
	})

	GateCommandsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parkir_gate_commands_total",
		Help: "Tổng số lệnh mở cổng đã publish qua MQTT.",
	})

	RevenueTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parkir_revenue_total",
		Help: "Tổng doanh thu đã trừ từ ví (đơn vị tiền nguyên).",
	})
)
