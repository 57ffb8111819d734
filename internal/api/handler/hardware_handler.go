package handler

import (
	"net/http"

	"github.com/Donefal/Proyek-WebApp-RPL/internal/domain"
	"github.com/Donefal/Proyek-WebApp-RPL/internal/monitoring"
	"github.com/Donefal/Proyek-WebApp-RPL/internal/service"

	"github.com/gin-gonic/gin"
)

// HardwareHandler là mặt HTTP cho ESP32: push báo cáo cảm biến/cổng lên và
// pull instruction về. Firmware cũ không gửi JWT nên nhóm route này nằm
// ngoài middleware auth.
type HardwareHandler struct {
	hardwareService *service.HardwareService
}

func NewHardwareHandler(hs *service.HardwareService) *HardwareHandler {
	return &HardwareHandler{hardwareService: hs}
}

// POST /hardware/update
func (h *HardwareHandler) Update(c *gin.Context) {
	var dto domain.HardwareReportDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	slotsUpdated, err := h.hardwareService.ReportOccupancy(c.Request.Context(), dto.Slots)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi xử lý báo cáo cảm biến", "details": err.Error()})
		return
	}
	monitoring.SensorReportsTotal.Add(float64(slotsUpdated))

	gatesUpdated, err := h.hardwareService.ReportGateCondition(c.Request.Context(), dto.Gates)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi xử lý trạng thái cổng", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"slots_updated": slotsUpdated,
		"gates_updated": gatesUpdated,
	})
}

// GET /hardware/instruction
func (h *HardwareHandler) Instruction(c *gin.Context) {
	instruction, err := h.hardwareService.BuildInstruction(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể build instruction", "details": err.Error()})
		return
	}
	monitoring.InstructionPullsTotal.Inc()
	c.JSON(http.StatusOK, instruction)
}
