package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"clinic-booking/backend/internal/dto"
	"clinic-booking/backend/internal/model"
	"clinic-booking/backend/internal/repository"
)

// ScheduleResolver 计算某日生效安排
type ScheduleResolver interface {
	ResolveForDate(ctx context.Context, doctorID string, date time.Time) ([]model.WorkingSchedule, error)
}

// AvailabilityService 可预约时段查询接口
// 结果只是查询时刻的快照，不占号；真正的互斥在 AppointmentService.Create 的事务内完成
type AvailabilityService interface {
	GetAvailableSlots(ctx context.Context, doctorID string, date time.Time) ([]dto.AvailableSlot, error)
}

type availabilityService struct {
	repo     *repository.Repository
	resolver ScheduleResolver
	logger   *zap.Logger
}

// NewAvailabilityService 创建 AvailabilityService 实例
func NewAvailabilityService(repo *repository.Repository, resolver ScheduleResolver, logger *zap.Logger) AvailabilityService {
	return &availabilityService{repo: repo, resolver: resolver, logger: logger}
}

func (s *availabilityService) GetAvailableSlots(ctx context.Context, doctorID string, date time.Time) ([]dto.AvailableSlot, error) {
	date = model.CivilDate(date)

	if _, err := s.repo.Catalog.GetDoctor(ctx, doctorID); err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrDoctorNotFound
		}
		s.logger.Error("查询医生失败", zap.String("doctor_id", doctorID), zap.Error(err))
		return nil, err
	}

	entries, err := s.resolver.ResolveForDate(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	result := make([]dto.AvailableSlot, 0)
	if len(entries) == 0 {
		return result, nil
	}

	scheduleIDs := make([]string, 0, len(entries))
	for _, e := range entries {
		scheduleIDs = append(scheduleIDs, e.ScheduleID)
	}

	slots, err := s.repo.TimeSlot.ListBySchedules(ctx, scheduleIDs, true)
	if err != nil {
		s.logger.Error("查询时段失败", zap.String("doctor_id", doctorID), zap.Error(err))
		return nil, err
	}

	// 一次查出当天所有有效预约的时刻，避免逐个时段探测
	times, err := s.repo.Appointment.ListActiveTimes(ctx, doctorID, date)
	if err != nil {
		s.logger.Error("查询已占用时段失败",
			zap.String("doctor_id", doctorID),
			zap.String("date", date.Format(model.DateLayout)),
			zap.Error(err))
		return nil, err
	}
	taken := make(map[string]bool, len(times))
	for _, t := range times {
		if c, err := model.NormalizeClock(t); err == nil {
			taken[c] = true
		}
	}

	// 容量字段暂不参与计算：每个时段至多一条有效预约
	for _, slot := range slots {
		if !slot.IsAvailable || taken[slot.StartTime] {
			continue
		}
		result = append(result, dto.AvailableSlot{
			ID:          slot.TimeSlotID,
			StartTime:   slot.StartTime,
			EndTime:     slot.EndTime,
			MaxPatients: slot.MaxPatients,
		})
	}

	sort.SliceStable(result, func(i, j int) bool { return result[i].StartTime < result[j].StartTime })
	return result, nil
}
