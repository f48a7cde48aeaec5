package model

import "time"

// MedicalRecord 就诊记录表 — 对应 medical_records
// 创建时会把对应预约推进到 COMPLETED
type MedicalRecord struct {
	RecordID      string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"record_id"`
	AppointmentID string     `gorm:"type:uuid;not null;uniqueIndex"                 json:"appointment_id"`
	PatientID     string     `gorm:"type:uuid;not null"                             json:"patient_id"`
	DoctorID      string     `gorm:"type:uuid;not null"                             json:"doctor_id"`
	Diagnosis     string     `gorm:"type:text;not null"                             json:"diagnosis"`
	Symptoms      string     `gorm:"type:text"                                      json:"symptoms,omitempty"`
	Treatment     string     `gorm:"type:text"                                      json:"treatment,omitempty"`
	Notes         string     `gorm:"type:text"                                      json:"notes,omitempty"`
	FollowUpDate  *time.Time `gorm:"type:date"                                      json:"follow_up_date,omitempty"`
	BaseModel
}

func (MedicalRecord) TableName() string { return "medical_records" }
