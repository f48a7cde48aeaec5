package dto

import "time"

// ── 通用格式化 ──

// FormatTime 统一时间戳输出格式
func FormatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

// FormatTimePtr 可空时间戳
func FormatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatTime(*t)
	return &s
}

// FormatDate 日历日输出为 YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// FormatDatePtr 可空日历日
func FormatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatDate(*t)
	return &s
}

// ── 路径参数 ──

// PathID 形如 /:id 的资源 ID
type PathID struct {
	ID string `uri:"id" binding:"required,uuid"`
}
