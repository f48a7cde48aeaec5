package model

import (
	"strconv"
	"time"
)

// WorkingSchedule 医生出诊安排 — 对应 working_schedules
// DayOfWeek 与 SpecificDate 二选一：前者为每周固定安排，后者为指定日期的覆盖
type WorkingSchedule struct {
	ScheduleID   string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"schedule_id"`
	DoctorID     string     `gorm:"type:uuid;not null"                             json:"doctor_id"`
	DayOfWeek    *int       `gorm:"type:smallint"                                  json:"day_of_week,omitempty"` // 0=周日 … 6=周六
	SpecificDate *time.Time `gorm:"type:date"                                      json:"specific_date,omitempty"`
	IsAvailable  bool       `gorm:"not null;default:true"                          json:"is_available"`
	Notes        string     `gorm:"type:varchar(500)"                              json:"notes,omitempty"`
	BaseModel

	// 关联
	Slots []TimeSlot `gorm:"foreignKey:ScheduleID" json:"slots,omitempty"`
}

func (WorkingSchedule) TableName() string { return "working_schedules" }

// IsOverride 是否为指定日期的覆盖安排
func (s *WorkingSchedule) IsOverride() bool {
	return s.SpecificDate != nil
}

// Key 安排的唯一键，"dow:1" 或 "date:2026-10-19"
func (s *WorkingSchedule) Key() string {
	return ScheduleKey(s.DayOfWeek, s.SpecificDate)
}

// ScheduleKey 由星期或日期生成安排唯一键
func ScheduleKey(dayOfWeek *int, specificDate *time.Time) string {
	if specificDate != nil {
		return "date:" + specificDate.Format(DateLayout)
	}
	if dayOfWeek != nil {
		return "dow:" + strconv.Itoa(*dayOfWeek)
	}
	return ""
}

// AppliesTo 安排是否作用于该日历日（不考虑 IsAvailable）
func (s *WorkingSchedule) AppliesTo(date time.Time) bool {
	if s.SpecificDate != nil {
		return CivilDate(*s.SpecificDate).Equal(CivilDate(date))
	}
	return s.DayOfWeek != nil && *s.DayOfWeek == Weekday(date)
}
