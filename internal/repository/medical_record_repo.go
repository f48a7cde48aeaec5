package repository

import (
	"context"

	"gorm.io/gorm"

	"clinic-booking/backend/internal/model"
)

// MedicalRecordRepository 就诊记录数据访问接口
type MedicalRecordRepository interface {
	Create(ctx context.Context, rec *model.MedicalRecord) error
	GetByAppointmentID(ctx context.Context, appointmentID string) (*model.MedicalRecord, error)
}

type medicalRecordRepo struct {
	db *gorm.DB
}

// NewMedicalRecordRepo 创建 MedicalRecordRepository 实例
func NewMedicalRecordRepo(db *gorm.DB) MedicalRecordRepository {
	return &medicalRecordRepo{db: db}
}

func (r *medicalRecordRepo) Create(ctx context.Context, rec *model.MedicalRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *medicalRecordRepo) GetByAppointmentID(ctx context.Context, appointmentID string) (*model.MedicalRecord, error) {
	var rec model.MedicalRecord
	err := r.db.WithContext(ctx).Where("appointment_id = ?", appointmentID).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
