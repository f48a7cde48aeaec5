package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Schedule      ScheduleRepository
	TimeSlot      TimeSlotRepository
	Appointment   AppointmentRepository
	Payment       PaymentRepository
	Catalog       CatalogRepository
	MedicalRecord MedicalRecordRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:            db,
		Schedule:      NewScheduleRepo(db),
		TimeSlot:      NewTimeSlotRepo(db),
		Appointment:   NewAppointmentRepo(db),
		Payment:       NewPaymentRepo(db),
		Catalog:       NewCatalogRepo(db),
		MedicalRecord: NewMedicalRecordRepo(db),
	}
}

// BeginTx 开启事务，返回事务连接
// 单元测试中聚合不持有 db，返回 nil 事务
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	return tx, tx.Error
}

// WithTx 返回绑定到事务连接的 Repository 聚合
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// Transaction 在同一事务中执行 fn，fn 返回错误或 panic 时回滚
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

