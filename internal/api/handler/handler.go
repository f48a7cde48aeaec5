package handler

import (
	"go.uber.org/zap"

	"clinic-booking/backend/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Schedule    *ScheduleHandler
	Appointment *AppointmentHandler
	Payment     *PaymentHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Schedule:    NewScheduleHandler(svc.Schedule),
		Appointment: NewAppointmentHandler(svc.Appointment, svc.Availability, svc.Calendar),
		Payment:     NewPaymentHandler(svc.Payment, logger),
	}
}

