package model

import "github.com/shopspring/decimal"

// Specialty 专科表 — 对应 specialties
type Specialty struct {
	SpecialtyID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"specialty_id"`
	Name        string `gorm:"type:varchar(100);not null"                     json:"name"`
	Description string `gorm:"type:text"                                      json:"description,omitempty"`
	BaseModel
}

func (Specialty) TableName() string { return "specialties" }

// Doctor 医生档案表 — 对应 doctors
// 由身份服务维护，本服务只读
type Doctor struct {
	DoctorID        string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"doctor_id"`
	UserID          string          `gorm:"type:uuid;not null;uniqueIndex"                 json:"user_id"`
	FullName        string          `gorm:"type:varchar(100);not null"                     json:"full_name"`
	SpecialtyID     *string         `gorm:"type:uuid"                                      json:"specialty_id,omitempty"`
	ConsultationFee decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0"          json:"consultation_fee"`
	BaseModel

	// 关联
	Specialty *Specialty `gorm:"foreignKey:SpecialtyID;references:SpecialtyID" json:"specialty,omitempty"`
}

func (Doctor) TableName() string { return "doctors" }

// Patient 患者档案表 — 对应 patients
// 患者首次预约时自动创建
type Patient struct {
	PatientID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"patient_id"`
	UserID    string `gorm:"type:uuid;not null;uniqueIndex"                 json:"user_id"`
	FullName  string `gorm:"type:varchar(100)"                              json:"full_name,omitempty"`
	BaseModel
}

func (Patient) TableName() string { return "patients" }
