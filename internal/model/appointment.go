package model

import (
	"time"

	"gorm.io/gorm"
)

// AppointmentStatus 预约状态
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "PENDING"
	AppointmentConfirmed AppointmentStatus = "CONFIRMED"
	AppointmentCompleted AppointmentStatus = "COMPLETED"
	AppointmentCancelled AppointmentStatus = "CANCELLED"
	AppointmentNoShow    AppointmentStatus = "NO_SHOW"
)

// appointmentTransitions 状态迁移表
// COMPLETED、CANCELLED、NO_SHOW 为终态
var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentPending:   {AppointmentConfirmed, AppointmentCancelled},
	AppointmentConfirmed: {AppointmentCompleted, AppointmentCancelled, AppointmentNoShow},
}

// Valid 是否为已知状态
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentPending, AppointmentConfirmed, AppointmentCompleted, AppointmentCancelled, AppointmentNoShow:
		return true
	}
	return false
}

// IsTerminal 是否为终态
func (s AppointmentStatus) IsTerminal() bool {
	_, ok := appointmentTransitions[s]
	return s.Valid() && !ok
}

// CanTransitionTo 按迁移表判断 s → next 是否合法
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, to := range appointmentTransitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

// Appointment 预约表 — 对应 appointments
// 同一 (doctor_id, appointment_date, appointment_time) 至多一条非 CANCELLED 记录，
// 由部分唯一索引 uq_appointments_active_slot 保证
type Appointment struct {
	AppointmentID   string            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"appointment_id"`
	PatientID       string            `gorm:"type:uuid;not null"                             json:"patient_id"`
	DoctorID        string            `gorm:"type:uuid;not null"                             json:"doctor_id"`
	SpecialtyID     *string           `gorm:"type:uuid"                                      json:"specialty_id,omitempty"`
	TimeSlotID      string            `gorm:"type:uuid;not null"                             json:"time_slot_id"`
	AppointmentDate time.Time         `gorm:"type:date;not null"                             json:"appointment_date"`
	AppointmentTime string            `gorm:"type:time;not null"                             json:"appointment_time"` // 预约时从时段复制
	Status          AppointmentStatus `gorm:"type:varchar(20);not null;default:'PENDING'"    json:"status"`
	Symptoms        string            `gorm:"type:text"                                      json:"symptoms,omitempty"`
	Notes           string            `gorm:"type:text"                                      json:"notes,omitempty"`
	CancelledBy     *string           `gorm:"type:uuid"                                      json:"cancelled_by,omitempty"`
	CancelledReason string            `gorm:"type:varchar(500)"                              json:"cancelled_reason,omitempty"`
	ConfirmedAt     *time.Time        `json:"confirmed_at,omitempty"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
	CancelledAt     *time.Time        `json:"cancelled_at,omitempty"`
	VersionedModel

	// 关联
	Doctor   *Doctor   `gorm:"foreignKey:DoctorID;references:DoctorID"     json:"doctor,omitempty"`
	Patient  *Patient  `gorm:"foreignKey:PatientID;references:PatientID"   json:"patient,omitempty"`
	TimeSlot *TimeSlot `gorm:"foreignKey:TimeSlotID;references:TimeSlotID" json:"time_slot,omitempty"`
}

func (Appointment) TableName() string { return "appointments" }

// AfterFind 统一预约时刻格式
func (a *Appointment) AfterFind(_ *gorm.DB) error {
	if c, err := NormalizeClock(a.AppointmentTime); err == nil {
		a.AppointmentTime = c
	}
	return nil
}
