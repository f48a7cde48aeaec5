package dto

// ── 预约模块 DTO ──

// CreateAppointmentRequest 创建预约请求
// 患者本人预约时 patient_id 可省略；医生/管理员代约时必填
type CreateAppointmentRequest struct {
	PatientID       *string `json:"patient_id"       binding:"omitempty,uuid"`
	DoctorID        string  `json:"doctor_id"        binding:"required,uuid"`
	SpecialtyID     *string `json:"specialty_id"     binding:"omitempty,uuid"`
	TimeSlotID      string  `json:"time_slot_id"     binding:"required,uuid"`
	AppointmentDate string  `json:"appointment_date" binding:"required"` // "2026-10-19"
	Symptoms        string  `json:"symptoms"         binding:"max=2000"`
	Notes           string  `json:"notes"            binding:"max=2000"`
}

// UpdateStatusRequest 变更预约状态请求
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=PENDING CONFIRMED COMPLETED CANCELLED NO_SHOW"`
}

// CancelAppointmentRequest 取消预约请求
type CancelAppointmentRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// MedicalRecordRequest 填写就诊记录（同时完成预约）
type MedicalRecordRequest struct {
	Diagnosis    string  `json:"diagnosis"      binding:"required,max=5000"`
	Symptoms     string  `json:"symptoms"       binding:"max=5000"`
	Treatment    string  `json:"treatment"      binding:"max=5000"`
	Notes        string  `json:"notes"          binding:"max=5000"`
	FollowUpDate *string `json:"follow_up_date"` // "2026-11-02"
}

// AppointmentListRequest 预约列表查询参数
type AppointmentListRequest struct {
	Page     int    `form:"page"      binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Status   string `form:"status"    binding:"omitempty,oneof=PENDING CONFIRMED COMPLETED CANCELLED NO_SHOW"`
	DoctorID string `form:"doctor_id" binding:"omitempty,uuid"`
	DateFrom string `form:"date_from"`
	DateTo   string `form:"date_to"`
}

// CalendarRequest 日历导出查询参数
type CalendarRequest struct {
	From string `form:"from"` // 缺省为今天
	To   string `form:"to"`   // 缺省为 from + 90 天
}

// AppointmentResponse 预约信息响应
type AppointmentResponse struct {
	ID              string  `json:"id"`
	PatientID       string  `json:"patient_id"`
	DoctorID        string  `json:"doctor_id"`
	DoctorName      string  `json:"doctor_name,omitempty"`
	SpecialtyID     *string `json:"specialty_id,omitempty"`
	TimeSlotID      string  `json:"time_slot_id"`
	AppointmentDate string  `json:"appointment_date"`
	AppointmentTime string  `json:"appointment_time"`
	EndTime         string  `json:"end_time,omitempty"`
	Status          string  `json:"status"`
	Symptoms        string  `json:"symptoms,omitempty"`
	Notes           string  `json:"notes,omitempty"`
	CancelledBy     *string `json:"cancelled_by,omitempty"`
	CancelledReason string  `json:"cancelled_reason,omitempty"`
	ConfirmedAt     *string `json:"confirmed_at,omitempty"`
	CompletedAt     *string `json:"completed_at,omitempty"`
	CancelledAt     *string `json:"cancelled_at,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

// MedicalRecordResponse 就诊记录响应
type MedicalRecordResponse struct {
	ID            string              `json:"id"`
	AppointmentID string              `json:"appointment_id"`
	Diagnosis     string              `json:"diagnosis"`
	Symptoms      string              `json:"symptoms,omitempty"`
	Treatment     string              `json:"treatment,omitempty"`
	Notes         string              `json:"notes,omitempty"`
	FollowUpDate  *string             `json:"follow_up_date,omitempty"`
	Appointment   AppointmentResponse `json:"appointment"`
}
