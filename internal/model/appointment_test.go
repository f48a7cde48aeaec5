package model

import (
	"testing"
	"time"
)

func TestAppointmentStatus_Transitions(t *testing.T) {
	cases := []struct {
		from, to AppointmentStatus
		ok       bool
	}{
		{AppointmentPending, AppointmentConfirmed, true},
		{AppointmentPending, AppointmentCancelled, true},
		{AppointmentPending, AppointmentCompleted, false},
		{AppointmentPending, AppointmentNoShow, false},
		{AppointmentConfirmed, AppointmentCompleted, true},
		{AppointmentConfirmed, AppointmentCancelled, true},
		{AppointmentConfirmed, AppointmentNoShow, true},
		{AppointmentConfirmed, AppointmentPending, false},
		{AppointmentCompleted, AppointmentCancelled, false},
		{AppointmentCancelled, AppointmentPending, false},
		{AppointmentNoShow, AppointmentConfirmed, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.ok {
			t.Errorf("%s → %s 期望 %v，实际 %v", c.from, c.to, c.ok, got)
		}
	}
}

func TestAppointmentStatus_Terminal(t *testing.T) {
	for _, s := range []AppointmentStatus{AppointmentCompleted, AppointmentCancelled, AppointmentNoShow} {
		if !s.IsTerminal() {
			t.Errorf("%s 应为终态", s)
		}
	}
	for _, s := range []AppointmentStatus{AppointmentPending, AppointmentConfirmed, "UNKNOWN"} {
		if s.IsTerminal() {
			t.Errorf("%s 不应为终态", s)
		}
	}
}

func TestParseRole(t *testing.T) {
	for _, s := range []string{"PATIENT", "DOCTOR", "ADMIN"} {
		if _, err := ParseRole(s); err != nil {
			t.Errorf("ParseRole(%s) 应成功: %v", s, err)
		}
	}
	if _, err := ParseRole("admin"); err == nil {
		t.Error("小写角色应被拒绝")
	}
}

func TestNormalizeClock(t *testing.T) {
	got, err := NormalizeClock("09:00")
	if err != nil || got != "09:00:00" {
		t.Fatalf("NormalizeClock(09:00) = %q, %v", got, err)
	}
	if got, _ := NormalizeClock("09:30:00.000000"); got != "09:30:00" {
		t.Errorf("带小数秒的钟点应截断，实际 %q", got)
	}
	if _, err := NormalizeClock("25:00"); err == nil {
		t.Error("非法钟点应返回错误")
	}
}

func TestWorkingSchedule_AppliesTo(t *testing.T) {
	monday := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	dow := 1
	recurring := WorkingSchedule{DayOfWeek: &dow}
	if !recurring.AppliesTo(monday) {
		t.Error("周一固定安排应作用于周一")
	}
	if recurring.AppliesTo(monday.AddDate(0, 0, 1)) {
		t.Error("周一固定安排不应作用于周二")
	}

	override := WorkingSchedule{SpecificDate: &monday}
	if !override.AppliesTo(monday) || override.AppliesTo(monday.AddDate(0, 0, 7)) {
		t.Error("覆盖安排只应作用于指定日期")
	}
	if override.Key() != "date:2026-10-19" || recurring.Key() != "dow:1" {
		t.Errorf("Key 不符: %s / %s", override.Key(), recurring.Key())
	}
}
