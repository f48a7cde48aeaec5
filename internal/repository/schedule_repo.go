package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"clinic-booking/backend/internal/model"
)

// ScheduleRepository 出诊安排数据访问接口
type ScheduleRepository interface {
	// ListByDoctor 查询医生全部安排（含时段），固定安排在前按星期排序，覆盖安排按日期排序
	ListByDoctor(ctx context.Context, doctorID string) ([]model.WorkingSchedule, error)
	// ListForDate 查询可能作用于某日的安排：指定日期覆盖 + 同星期的固定安排，不过滤 is_available
	ListForDate(ctx context.Context, doctorID string, date time.Time) ([]model.WorkingSchedule, error)
	GetByID(ctx context.Context, id string) (*model.WorkingSchedule, error)
	Create(ctx context.Context, s *model.WorkingSchedule) error
	Update(ctx context.Context, s *model.WorkingSchedule) error
	// DisableExcept 关闭医生名下不在 keepIDs 中的安排（只改 is_available，不删除）
	DisableExcept(ctx context.Context, doctorID string, keepIDs []string) error
}

type scheduleRepo struct {
	db *gorm.DB
}

// NewScheduleRepo 创建 ScheduleRepository 实例
func NewScheduleRepo(db *gorm.DB) ScheduleRepository {
	return &scheduleRepo{db: db}
}

func (r *scheduleRepo) ListByDoctor(ctx context.Context, doctorID string) ([]model.WorkingSchedule, error) {
	var list []model.WorkingSchedule
	err := r.db.WithContext(ctx).
		Preload("Slots", func(db *gorm.DB) *gorm.DB {
			return db.Order("start_time ASC")
		}).
		Where("doctor_id = ?", doctorID).
		Order("specific_date ASC NULLS FIRST, day_of_week ASC").
		Find(&list).Error
	return list, err
}

func (r *scheduleRepo) ListForDate(ctx context.Context, doctorID string, date time.Time) ([]model.WorkingSchedule, error) {
	var list []model.WorkingSchedule
	err := r.db.WithContext(ctx).
		Where("doctor_id = ?", doctorID).
		Where("(specific_date = ? OR (specific_date IS NULL AND day_of_week = ?))",
			date.Format(model.DateLayout), model.Weekday(date)).
		Order("specific_date ASC NULLS LAST").
		Find(&list).Error
	return list, err
}

func (r *scheduleRepo) GetByID(ctx context.Context, id string) (*model.WorkingSchedule, error) {
	var s model.WorkingSchedule
	err := r.db.WithContext(ctx).
		Where("schedule_id = ?", id).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *scheduleRepo) Create(ctx context.Context, s *model.WorkingSchedule) error {
	return r.db.WithContext(ctx).Omit("Slots").Create(s).Error
}

func (r *scheduleRepo) Update(ctx context.Context, s *model.WorkingSchedule) error {
	return r.db.WithContext(ctx).
		Model(&model.WorkingSchedule{}).
		Where("schedule_id = ?", s.ScheduleID).
		Updates(map[string]interface{}{
			"is_available": s.IsAvailable,
			"notes":        s.Notes,
			"updated_at":   gorm.Expr("NOW()"),
		}).Error
}

func (r *scheduleRepo) DisableExcept(ctx context.Context, doctorID string, keepIDs []string) error {
	db := r.db.WithContext(ctx).
		Model(&model.WorkingSchedule{}).
		Where("doctor_id = ? AND is_available = ?", doctorID, true)
	if len(keepIDs) > 0 {
		db = db.Where("schedule_id NOT IN ?", keepIDs)
	}
	return db.Updates(map[string]interface{}{
		"is_available": false,
		"updated_at":   gorm.Expr("NOW()"),
	}).Error
}
