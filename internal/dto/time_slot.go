package dto

// ── 时段模块 DTO ──

// TimeSlotInput 发布安排时的时段
type TimeSlotInput struct {
	StartTime   string `json:"start_time"   binding:"required"` // "09:00"
	EndTime     string `json:"end_time"     binding:"required"` // "09:30"
	MaxPatients int    `json:"max_patients" binding:"omitempty,min=1"`
	IsAvailable *bool  `json:"is_available"`
}

// TimeSlotResponse 时段信息响应
type TimeSlotResponse struct {
	ID          string `json:"id"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	MaxPatients int    `json:"max_patients"`
	IsAvailable bool   `json:"is_available"`
}

// AvailableSlotsRequest 可预约时段查询参数
type AvailableSlotsRequest struct {
	DoctorID string `form:"doctor_id" binding:"required,uuid"`
	Date     string `form:"date"      binding:"required"` // "2026-10-19"
}

// AvailableSlot 可预约时段
type AvailableSlot struct {
	ID          string `json:"id"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	MaxPatients int    `json:"max_patients"`
}
