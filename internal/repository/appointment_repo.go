package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clinic-booking/backend/internal/model"
	pkgerrors "clinic-booking/backend/pkg/errors"
)

// AppointmentFilter 预约列表筛选条件
type AppointmentFilter struct {
	PatientID string
	DoctorID  string
	Status    model.AppointmentStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	// ExcludeCancelled 排除已取消的预约（日历导出使用）
	ExcludeCancelled bool
	Page             int
	PageSize         int
}

// AppointmentRepository 预约数据访问接口
type AppointmentRepository interface {
	// Create 插入预约，部分唯一索引冲突时返回 pkgerrors.ErrSlotTaken
	Create(ctx context.Context, a *model.Appointment) error
	GetByID(ctx context.Context, id string) (*model.Appointment, error)
	// GetByIDForUpdate 加行锁读取预约，必须在事务内调用
	GetByIDForUpdate(ctx context.Context, id string) (*model.Appointment, error)
	// ExistsActiveAt 查询 (医生, 日期, 时刻) 是否已有非 CANCELLED 预约
	ExistsActiveAt(ctx context.Context, doctorID string, date time.Time, clock string) (bool, error)
	// ListActiveTimes 返回医生某日全部非 CANCELLED 预约的时刻（HH:MM:SS）
	ListActiveTimes(ctx context.Context, doctorID string, date time.Time) ([]string, error)
	// Update 基于 version 的乐观锁更新
	Update(ctx context.Context, a *model.Appointment) error
	List(ctx context.Context, f AppointmentFilter) ([]model.Appointment, int64, error)
}

type appointmentRepo struct {
	db *gorm.DB
}

// NewAppointmentRepo 创建 AppointmentRepository 实例
func NewAppointmentRepo(db *gorm.DB) AppointmentRepository {
	return &appointmentRepo{db: db}
}

func (r *appointmentRepo) Create(ctx context.Context, a *model.Appointment) error {
	err := r.db.WithContext(ctx).
		Omit("Doctor", "Patient", "TimeSlot").
		Create(a).Error
	if IsUniqueViolation(err) {
		return pkgerrors.ErrSlotTaken
	}
	return err
}

func (r *appointmentRepo) GetByID(ctx context.Context, id string) (*model.Appointment, error) {
	var a model.Appointment
	err := r.db.WithContext(ctx).
		Preload("Doctor").
		Preload("Patient").
		Preload("TimeSlot").
		Where("appointment_id = ?", id).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *appointmentRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Appointment, error) {
	var a model.Appointment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("appointment_id = ?", id).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *appointmentRepo) ExistsActiveAt(ctx context.Context, doctorID string, date time.Time, clock string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Appointment{}).
		Where("doctor_id = ? AND appointment_date = ? AND appointment_time = ? AND status <> ?",
			doctorID, date.Format(model.DateLayout), clock, model.AppointmentCancelled).
		Count(&count).Error
	return count > 0, err
}

func (r *appointmentRepo) ListActiveTimes(ctx context.Context, doctorID string, date time.Time) ([]string, error) {
	var times []string
	err := r.db.WithContext(ctx).
		Model(&model.Appointment{}).
		Where("doctor_id = ? AND appointment_date = ? AND status <> ?",
			doctorID, date.Format(model.DateLayout), model.AppointmentCancelled).
		Pluck("to_char(appointment_time, 'HH24:MI:SS')", &times).Error
	return times, err
}

func (r *appointmentRepo) Update(ctx context.Context, a *model.Appointment) error {
	oldVersion := a.Version
	result := r.db.WithContext(ctx).
		Model(&model.Appointment{}).
		Where("appointment_id = ? AND version = ?", a.AppointmentID, oldVersion).
		Updates(map[string]interface{}{
			"status":           a.Status,
			"notes":            a.Notes,
			"cancelled_by":     a.CancelledBy,
			"cancelled_reason": a.CancelledReason,
			"confirmed_at":     a.ConfirmedAt,
			"completed_at":     a.CompletedAt,
			"cancelled_at":     a.CancelledAt,
			"version":          oldVersion + 1,
			"updated_at":       gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		// 取消后重新激活等情况可能撞上部分唯一索引
		if IsUniqueViolation(result.Error) {
			return pkgerrors.ErrSlotTaken
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	a.Version = oldVersion + 1
	return nil
}

func (r *appointmentRepo) List(ctx context.Context, f AppointmentFilter) ([]model.Appointment, int64, error) {
	var list []model.Appointment
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Appointment{})
	if f.PatientID != "" {
		db = db.Where("patient_id = ?", f.PatientID)
	}
	if f.DoctorID != "" {
		db = db.Where("doctor_id = ?", f.DoctorID)
	}
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if f.ExcludeCancelled {
		db = db.Where("status <> ?", model.AppointmentCancelled)
	}
	if f.DateFrom != nil {
		db = db.Where("appointment_date >= ?", f.DateFrom.Format(model.DateLayout))
	}
	if f.DateTo != nil {
		db = db.Where("appointment_date <= ?", f.DateTo.Format(model.DateLayout))
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = db.Preload("Doctor").Preload("TimeSlot").
		Order("appointment_date DESC, appointment_time DESC")
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		db = db.Offset((page - 1) * f.PageSize).Limit(f.PageSize)
	}

	err := db.Find(&list).Error
	return list, total, err
}
