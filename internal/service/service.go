package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"clinic-booking/backend/config"
	"clinic-booking/backend/internal/repository"
	"clinic-booking/backend/pkg/vnpay"
)

// SlotLocker 预约时段的快速互斥锁（Redis 实现），为 nil 时跳过
// 真正的互斥由数据库部分唯一索引保证
type SlotLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, key, token string) error
}

// Service 所有 Service 的聚合入口
type Service struct {
	Schedule     ScheduleService
	Availability AvailabilityService
	Appointment  AppointmentService
	Payment      PaymentService
	Calendar     CalendarService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	locker SlotLocker,
	logger *zap.Logger,
) *Service {
	schedule := NewScheduleService(repo, logger)
	return &Service{
		Schedule:     schedule,
		Availability: NewAvailabilityService(repo, schedule, logger),
		Appointment:  NewAppointmentService(&cfg.Booking, repo, locker, logger),
		Payment:      NewPaymentService(&cfg.Payment, repo, vnpay.NewSigner(cfg.Payment.HashSecret), logger),
		Calendar:     NewCalendarService(&cfg.Booking, repo, logger),
	}
}

