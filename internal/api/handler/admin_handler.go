package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Donefal/Proyek-WebApp-RPL/internal/domain"
	"github.com/Donefal/Proyek-WebApp-RPL/internal/monitoring"
	"github.com/Donefal/Proyek-WebApp-RPL/internal/repository"
	"github.com/Donefal/Proyek-WebApp-RPL/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminHandler phục vụ màn hình attendant/admin: quét QR ở cổng, báo cáo
// doanh thu và quản lý slot/cổng.
type AdminHandler struct {
	parkingService  *service.ParkingService
	hardwareService *service.HardwareService
}

func NewAdminHandler(ps *service.ParkingService, hs *service.HardwareService) *AdminHandler {
	return &AdminHandler{parkingService: ps, hardwareService: hs}
}

// POST /api/v1/admin/scan
func (h *AdminHandler) Scan(c *gin.Context) {
	var dto domain.ScanDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.parkingService.Scan(c.Request.Context(), dto)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredential):
			monitoring.AdmissionFailuresTotal.WithLabelValues("invalid").Inc()
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrCredentialExpired):
			monitoring.AdmissionFailuresTotal.WithLabelValues("expired").Inc()
			c.JSON(http.StatusGone, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrAlreadyCheckedIn):
			monitoring.AdmissionFailuresTotal.WithLabelValues("already_checked_in").Inc()
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrNotCheckedIn):
			monitoring.AdmissionFailuresTotal.WithLabelValues("not_checked_in").Inc()
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrInsufficientBalance):
			monitoring.AdmissionFailuresTotal.WithLabelValues("insufficient_balance").Inc()
			c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi xử lý quét QR", "details": err.Error()})
		}
		return
	}

	monitoring.AdmissionsTotal.WithLabelValues(dto.Action).Inc()
	if result.Cost != nil {
		monitoring.RevenueTotal.Add(float64(*result.Cost))
	}
	c.JSON(http.StatusOK, result)
}

// GET /api/v1/admin/reports
func (h *AdminHandler) GetReports(c *gin.Context) {
	report, err := h.parkingService.Reports(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể tạo báo cáo", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// POST /api/v1/admin/slots
func (h *AdminHandler) CreateSlot(c *gin.Context) {
	var dto domain.SlotDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	slot, err := h.hardwareService.CreateSlot(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể tạo slot", "details": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, slot)
}

// DELETE /api/v1/admin/slots/:id
func (h *AdminHandler) DeleteSlot(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID slot không hợp lệ"})
		return
	}

	if err := h.hardwareService.DeleteSlot(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể xóa slot", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Đã xóa slot"})
}

// POST /api/v1/admin/gates
func (h *AdminHandler) CreateGate(c *gin.Context) {
	var dto domain.GateActuatorDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	gate, err := h.hardwareService.CreateGate(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể tạo aktuator", "details": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gate)
}

// GET /api/v1/admin/gates
func (h *AdminHandler) GetGates(c *gin.Context) {
	gates, err := h.hardwareService.ListGates(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể lấy danh sách aktuator", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gates)
}
