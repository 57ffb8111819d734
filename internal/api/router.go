package api

import (
	"time"

	"github.com/Donefal/Proyek-WebApp-RPL/internal/api/handler"
	"github.com/Donefal/Proyek-WebApp-RPL/internal/api/middleware"
	"github.com/Donefal/Proyek-WebApp-RPL/internal/domain"
	"github.com/Donefal/Proyek-WebApp-RPL/internal/service"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

func SetupRouter(as *service.AuthService, ps *service.ParkingService, hs *service.HardwareService,
	authMw *middleware.AuthMiddleware, wsManager *handler.WebSocketManager) *gin.Engine {
	r := gin.Default()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// WebSocket endpoint (không cần auth cho real-time connection)
	wsHandler := handler.NewWebSocketHandler(wsManager)
	r.GET("/ws", wsHandler.HandleWebSocket)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handler.NewAuthHandler(as)
	authRoutes := r.Group("/auth")
	authRoutes.Use(middleware.RateLimiter(rate.Limit(5), 10))
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	// Route cho ESP32: firmware không gửi JWT. Instruction được cache ngắn vì
	// hàng loạt controller poll cùng nhịp.
	hardwareHandler := handler.NewHardwareHandler(hs)
	instructionCache := gocache.New(2*time.Second, time.Minute)
	hardwareRoutes := r.Group("/hardware")
	{
		hardwareRoutes.POST("/update", hardwareHandler.Update)
		hardwareRoutes.GET("/instruction", middleware.Cache(instructionCache, 2*time.Second), hardwareHandler.Instruction)
	}

	v1 := r.Group("/api/v1")
	v1.Use(authMw.Authenticate())
	{
		parkingHandler := handler.NewParkingHandler(ps)
		v1.GET("/spots", parkingHandler.GetSpots)

		bookingRoutes := v1.Group("/bookings")
		{
			bookingRoutes.POST("", parkingHandler.CreateBooking)
			bookingRoutes.GET("/active", parkingHandler.GetActiveBooking)
			bookingRoutes.DELETE("/active", parkingHandler.CancelBooking)
			bookingRoutes.GET("/history", parkingHandler.GetHistory)
		}

		walletRoutes := v1.Group("/wallet")
		{
			walletRoutes.GET("", parkingHandler.GetWallet)
			walletRoutes.POST("/topup", parkingHandler.TopUpWallet)
		}

		adminHandler := handler.NewAdminHandler(ps, hs)
		adminRoutes := v1.Group("/admin")
		adminRoutes.Use(authMw.AuthorizeRole(domain.RoleAdmin))
		{
			adminRoutes.POST("/scan", adminHandler.Scan)
			adminRoutes.GET("/reports", adminHandler.GetReports)
			adminRoutes.POST("/slots", adminHandler.CreateSlot)
			adminRoutes.DELETE("/slots/:id", adminHandler.DeleteSlot)
			adminRoutes.POST("/gates", adminHandler.CreateGate)
			adminRoutes.GET("/gates", adminHandler.GetGates)
		}
	}
	return r
}
