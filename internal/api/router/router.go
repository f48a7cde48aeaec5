package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"clinic-booking/backend/config"
	"clinic-booking/backend/internal/api/handler"
	"clinic-booking/backend/internal/api/middleware"
	"clinic-booking/backend/internal/model"
	"clinic-booking/backend/pkg/jwt"
	"clinic-booking/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时黑名单与限流降级放行
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimitMB << 20))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	bookingLimit := middleware.RateLimit(rdb, cfg.Booking.RateLimit, cfg.Booking.RateWindow, logger)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 支付网关回调（无需认证，靠签名校验）
		v1.GET("/payments/vnpay-callback", h.Payment.VNPayReturn)
		v1.GET("/payments/vnpay-ipn", h.Payment.VNPayIPN)

		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 出诊安排
			doctors := authorized.Group("/doctors")
			{
				doctors.GET("/:id/schedule", h.Schedule.GetDoctorSchedule)
				doctors.PUT("/:id/schedule", middleware.RoleAuth(model.RoleDoctor, model.RoleAdmin), h.Schedule.UpdateDoctorSchedule)
			}

			// 预约
			appointments := authorized.Group("/appointments")
			{
				appointments.GET("/available-slots", h.Appointment.AvailableSlots)
				appointments.POST("", bookingLimit, h.Appointment.Create)
				appointments.GET("/me", h.Appointment.ListMine)
				appointments.GET("/me/calendar.ics", middleware.RoleAuth(model.RolePatient, model.RoleDoctor), h.Appointment.Calendar)
				appointments.GET("/:id", h.Appointment.Get)
				appointments.PUT("/:id/status", middleware.RoleAuth(model.RoleDoctor, model.RoleAdmin), h.Appointment.UpdateStatus)
				appointments.PUT("/:id/cancel", h.Appointment.Cancel) // 患者本人 / 医生本人 / 管理员（Service 层鉴权）
				appointments.POST("/:id/medical-record", middleware.RoleAuth(model.RoleDoctor, model.RoleAdmin), h.Appointment.MedicalRecord)
			}

			// 支付
			payments := authorized.Group("/payments")
			{
				payments.POST("/create-url", bookingLimit, h.Payment.CreateURL)
				payments.GET("/appointment/:id", h.Payment.GetByAppointment)
				payments.POST("/:id/refund", middleware.RoleAuth(model.RoleAdmin), h.Payment.Refund)
			}

			// 管理端
			admin := authorized.Group("/admin", middleware.RoleAuth(model.RoleAdmin))
			{
				admin.GET("/appointments", h.Appointment.AdminList)
			}
		}
	}

	return r
}

