package model

import "gorm.io/gorm"

// TimeSlot 可预约时段 — 对应 time_slots
// 时段只更新不删除，已有预约始终能追溯到原时段
type TimeSlot struct {
	TimeSlotID  string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"time_slot_id"`
	ScheduleID  string `gorm:"type:uuid;not null"                             json:"schedule_id"`
	StartTime   string `gorm:"type:time;not null"                             json:"start_time"`
	EndTime     string `gorm:"type:time;not null"                             json:"end_time"`
	MaxPatients int    `gorm:"not null;default:1"                             json:"max_patients"` // 当前按单人时段处理
	IsAvailable bool   `gorm:"not null;default:true"                          json:"is_available"`
	BaseModel

	// 关联
	Schedule *WorkingSchedule `gorm:"foreignKey:ScheduleID;references:ScheduleID" json:"schedule,omitempty"`
}

// TableName 指定表名
func (TimeSlot) TableName() string { return "time_slots" }

// AfterFind 驱动读回的 time 列可能带小数秒，统一为 HH:MM:SS
func (s *TimeSlot) AfterFind(_ *gorm.DB) error {
	if c, err := NormalizeClock(s.StartTime); err == nil {
		s.StartTime = c
	}
	if c, err := NormalizeClock(s.EndTime); err == nil {
		s.EndTime = c
	}
	return nil
}

