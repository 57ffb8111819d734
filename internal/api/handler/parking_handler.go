package handler

import (
	"errors"
	"net/http"

	"github.com/Donefal/Proyek-WebApp-RPL/internal/api/middleware"
	"github.com/Donefal/Proyek-WebApp-RPL/internal/domain"
	"github.com/Donefal/Proyek-WebApp-RPL/internal/service"

	"github.com/gin-gonic/gin"
)

// ParkingHandler phục vụ các endpoint phía customer: xem chỗ, đặt chỗ,
// booking hiện tại, hủy, lịch sử và ví.
type ParkingHandler struct {
	parkingService *service.ParkingService
}

func NewParkingHandler(ps *service.ParkingService) *ParkingHandler {
	return &ParkingHandler{parkingService: ps}
}

// GET /api/v1/spots
func (h *ParkingHandler) GetSpots(c *gin.Context) {
	spots, err := h.parkingService.ListSpots(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể lấy danh sách chỗ đỗ", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, spots)
}

// POST /api/v1/bookings
func (h *ParkingHandler) CreateBooking(c *gin.Context) {
	customerID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Không xác định được người dùng"})
		return
	}

	var dto domain.ReserveDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := h.parkingService.Reserve(c.Request.Context(), customerID, dto)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSpotID):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrSlotUnavailable):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrActiveBookingExists):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể tạo booking", "details": err.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, booking)
}

// GET /api/v1/bookings/active
func (h *ParkingHandler) GetActiveBooking(c *gin.Context) {
	customerID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Không xác định được người dùng"})
		return
	}

	booking, err := h.parkingService.ActiveBooking(c.Request.Context(), customerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể lấy booking hiện tại", "details": err.Error()})
		return
	}
	if booking == nil {
		c.JSON(http.StatusOK, gin.H{"booking": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// DELETE /api/v1/bookings/active
func (h *ParkingHandler) CancelBooking(c *gin.Context) {
	customerID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Không xác định được người dùng"})
		return
	}

	if err := h.parkingService.Cancel(c.Request.Context(), customerID); err != nil {
		if errors.Is(err, service.ErrNoActiveBooking) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể hủy booking", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Booking berhasil dibatalkan"})
}

// GET /api/v1/bookings/history
func (h *ParkingHandler) GetHistory(c *gin.Context) {
	customerID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Không xác định được người dùng"})
		return
	}

	history, err := h.parkingService.History(c.Request.Context(), customerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể lấy lịch sử", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, history)
}

// GET /api/v1/wallet
func (h *ParkingHandler) GetWallet(c *gin.Context) {
	customerID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Không xác định được người dùng"})
		return
	}

	balance, err := h.parkingService.WalletBalance(c.Request.Context(), customerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể lấy số dư ví", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"saldo": balance})
}

// POST /api/v1/wallet/topup
func (h *ParkingHandler) TopUpWallet(c *gin.Context) {
	customerID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Không xác định được người dùng"})
		return
	}

	var dto domain.TopUpDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	balance, err := h.parkingService.TopUp(c.Request.Context(), customerID, dto.Amount)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAmount) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể nạp ví", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"saldo": balance})
}
