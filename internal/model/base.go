package model

import (
	"fmt"
	"time"
)

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// VersionedModel 支持乐观锁的模型
type VersionedModel struct {
	BaseModel
	Version int `gorm:"not null;default:1" json:"version"`
}

// ── 日期与钟点 ──

// DateLayout 日期字段的文本格式
const DateLayout = "2006-01-02"

// ParseDate 解析 YYYY-MM-DD，返回 UTC 零点表示的日历日
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("日期格式错误，应为 YYYY-MM-DD: %q", s)
	}
	return d, nil
}

// CivilDate 取 t 在其所在时区的日历日，统一成 UTC 零点
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Weekday 日历日对应的星期（0=周日 … 6=周六）
func Weekday(date time.Time) int {
	return int(date.Weekday())
}

// NormalizeClock 将 "HH:MM" 或 "HH:MM:SS" 统一为 "HH:MM:SS"
// PostgreSQL time 列读回即为该格式，便于直接比较
func NormalizeClock(s string) (string, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04:05"), nil
		}
	}
	return "", fmt.Errorf("时间格式错误，应为 HH:MM: %q", s)
}

// At 把日历日与钟点组合成 loc 时区下的时刻
func At(date time.Time, clock string, loc *time.Location) (time.Time, error) {
	c, err := NormalizeClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	t, _ := time.Parse("15:04:05", c)
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
}
