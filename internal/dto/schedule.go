package dto

// ── 出诊安排模块 DTO ──

// UpdateScheduleRequest 医生发布出诊安排请求（整体发布，按星期/日期合并）
type UpdateScheduleRequest struct {
	Entries []ScheduleEntryInput `json:"entries" binding:"dive"`
}

// ScheduleEntryInput 单条出诊安排
// day_of_week 与 specific_date 二选一
type ScheduleEntryInput struct {
	DayOfWeek    *int            `json:"day_of_week"   binding:"omitempty,min=0,max=6"`
	SpecificDate *string         `json:"specific_date"` // "2026-10-19"
	IsAvailable  *bool           `json:"is_available"`  // 缺省为 true
	Notes        string          `json:"notes"         binding:"max=500"`
	Slots        []TimeSlotInput `json:"slots"         binding:"dive"`
}

// ScheduleEntryResponse 出诊安排响应
type ScheduleEntryResponse struct {
	ID           string             `json:"id"`
	DoctorID     string             `json:"doctor_id"`
	DayOfWeek    *int               `json:"day_of_week,omitempty"`
	SpecificDate *string            `json:"specific_date,omitempty"`
	IsAvailable  bool               `json:"is_available"`
	Notes        string             `json:"notes,omitempty"`
	Slots        []TimeSlotResponse `json:"slots"`
}
