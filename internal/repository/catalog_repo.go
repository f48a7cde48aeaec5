package repository

import (
	"context"

	"gorm.io/gorm"

	"clinic-booking/backend/internal/model"
)

// CatalogRepository 医生、患者、专科等目录数据访问接口
// 档案内容由外部服务维护，这里只读；患者档案在首次预约时补建
type CatalogRepository interface {
	GetDoctor(ctx context.Context, id string) (*model.Doctor, error)
	GetDoctorByUserID(ctx context.Context, userID string) (*model.Doctor, error)
	GetPatient(ctx context.Context, id string) (*model.Patient, error)
	GetPatientByUserID(ctx context.Context, userID string) (*model.Patient, error)
	CreatePatient(ctx context.Context, p *model.Patient) error
	GetSpecialty(ctx context.Context, id string) (*model.Specialty, error)
}

type catalogRepo struct {
	db *gorm.DB
}

// NewCatalogRepo 创建 CatalogRepository 实例
func NewCatalogRepo(db *gorm.DB) CatalogRepository {
	return &catalogRepo{db: db}
}

func (r *catalogRepo) GetDoctor(ctx context.Context, id string) (*model.Doctor, error) {
	var d model.Doctor
	err := r.db.WithContext(ctx).Where("doctor_id = ?", id).First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *catalogRepo) GetDoctorByUserID(ctx context.Context, userID string) (*model.Doctor, error) {
	var d model.Doctor
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *catalogRepo) GetPatient(ctx context.Context, id string) (*model.Patient, error) {
	var p model.Patient
	err := r.db.WithContext(ctx).Where("patient_id = ?", id).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *catalogRepo) GetPatientByUserID(ctx context.Context, userID string) (*model.Patient, error) {
	var p model.Patient
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *catalogRepo) CreatePatient(ctx context.Context, p *model.Patient) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *catalogRepo) GetSpecialty(ctx context.Context, id string) (*model.Specialty, error) {
	var s model.Specialty
	err := r.db.WithContext(ctx).Where("specialty_id = ?", id).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}
