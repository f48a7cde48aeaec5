package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clinic-booking/backend/internal/model"
)

// TimeSlotRepository 时段数据访问接口
type TimeSlotRepository interface {
	Create(ctx context.Context, slot *model.TimeSlot) error
	GetByID(ctx context.Context, id string) (*model.TimeSlot, error)
	// GetByIDForUpdate 加行锁读取时段，必须在事务内调用
	GetByIDForUpdate(ctx context.Context, id string) (*model.TimeSlot, error)
	// ListBySchedules 查询若干安排下的时段，按开始时间排序
	ListBySchedules(ctx context.Context, scheduleIDs []string, onlyAvailable bool) ([]model.TimeSlot, error)
	Update(ctx context.Context, slot *model.TimeSlot) error
	// DisableExcept 关闭安排下不在 keepIDs 中的时段
	DisableExcept(ctx context.Context, scheduleID string, keepIDs []string) error
}

type timeSlotRepo struct {
	db *gorm.DB
}

// NewTimeSlotRepo 创建 TimeSlotRepository 实例
func NewTimeSlotRepo(db *gorm.DB) TimeSlotRepository {
	return &timeSlotRepo{db: db}
}

func (r *timeSlotRepo) Create(ctx context.Context, slot *model.TimeSlot) error {
	return r.db.WithContext(ctx).Omit("Schedule").Create(slot).Error
}

func (r *timeSlotRepo) GetByID(ctx context.Context, id string) (*model.TimeSlot, error) {
	var slot model.TimeSlot
	err := r.db.WithContext(ctx).
		Preload("Schedule").
		Where("time_slot_id = ?", id).
		First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *timeSlotRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.TimeSlot, error) {
	var slot model.TimeSlot
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("time_slot_id = ?", id).
		First(&slot).Error
	if err != nil {
		return nil, err
	}
	var schedule model.WorkingSchedule
	if err := r.db.WithContext(ctx).Where("schedule_id = ?", slot.ScheduleID).First(&schedule).Error; err != nil {
		return nil, err
	}
	slot.Schedule = &schedule
	return &slot, nil
}

func (r *timeSlotRepo) ListBySchedules(ctx context.Context, scheduleIDs []string, onlyAvailable bool) ([]model.TimeSlot, error) {
	var slots []model.TimeSlot
	if len(scheduleIDs) == 0 {
		return slots, nil
	}
	db := r.db.WithContext(ctx).Where("schedule_id IN ?", scheduleIDs)
	if onlyAvailable {
		db = db.Where("is_available = ?", true)
	}
	err := db.Order("start_time ASC").Find(&slots).Error
	return slots, err
}

func (r *timeSlotRepo) Update(ctx context.Context, slot *model.TimeSlot) error {
	return r.db.WithContext(ctx).
		Model(&model.TimeSlot{}).
		Where("time_slot_id = ?", slot.TimeSlotID).
		Updates(map[string]interface{}{
			"end_time":     slot.EndTime,
			"max_patients": slot.MaxPatients,
			"is_available": slot.IsAvailable,
			"updated_at":   gorm.Expr("NOW()"),
		}).Error
}

func (r *timeSlotRepo) DisableExcept(ctx context.Context, scheduleID string, keepIDs []string) error {
	db := r.db.WithContext(ctx).
		Model(&model.TimeSlot{}).
		Where("schedule_id = ? AND is_available = ?", scheduleID, true)
	if len(keepIDs) > 0 {
		db = db.Where("time_slot_id NOT IN ?", keepIDs)
	}
	return db.Updates(map[string]interface{}{
		"is_available": false,
		"updated_at":   gorm.Expr("NOW()"),
	}).Error
}
