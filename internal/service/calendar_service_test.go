package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"clinic-booking/backend/internal/model"
	pkgerrors "clinic-booking/backend/pkg/errors"
)

func (f *fixture) calendarService() *calendarService {
	svc := NewCalendarService(testBookingConfig(), f.repos.toRepository(), zap.NewNop()).(*calendarService)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func parseCalendar(t *testing.T, data string) *ics.Calendar {
	t.Helper()
	cal, err := ics.ParseCalendar(strings.NewReader(data))
	if err != nil {
		t.Fatalf("导出的日历应可解析: %v", err)
	}
	return cal
}

func TestExportCalendar(t *testing.T) {
	f := newFixture(t)
	apptSvc := f.appointmentService(nil)
	ctx := context.Background()

	confirmed := f.book(t, apptSvc, f.slot0900)
	if _, err := apptSvc.UpdateStatus(ctx, doctorActor, confirmed.ID, model.AppointmentConfirmed); err != nil {
		t.Fatalf("确认失败: %v", err)
	}
	cancelled := f.book(t, apptSvc, f.slot0930)
	if _, err := apptSvc.Cancel(ctx, patientActor, cancelled.ID, ""); err != nil {
		t.Fatalf("取消失败: %v", err)
	}

	data, err := f.calendarService().ExportCalendar(ctx, patientActor, nil, nil)
	if err != nil {
		t.Fatalf("ExportCalendar 应成功: %v", err)
	}

	events := parseCalendar(t, data).Events()
	if len(events) != 1 {
		t.Fatalf("已取消预约不应导出，期望 1 个事件，实际 %d", len(events))
	}
	evt := events[0]
	if uid := evt.GetProperty(ics.ComponentPropertyUniqueId); uid == nil || uid.Value != confirmed.ID {
		t.Errorf("事件 UID 应为预约 ID，实际 %v", uid)
	}
	if p := evt.GetProperty(ics.ComponentPropertyDtStart); p == nil || p.Value != "20261019T090000Z" {
		t.Errorf("开始时间应为 2026-10-19 09:00 UTC，实际 %v", p)
	}
	// 时段未预加载时使用 30 分钟默认时长
	if p := evt.GetProperty(ics.ComponentPropertyDtEnd); p == nil || p.Value != "20261019T093000Z" {
		t.Errorf("结束时间应为 09:30，实际 %v", p)
	}
	if !strings.Contains(data, "STATUS:CONFIRMED") {
		t.Error("已确认预约的事件状态应为 CONFIRMED")
	}
}

func TestExportCalendar_PendingIsTentative(t *testing.T) {
	f := newFixture(t)
	f.book(t, f.appointmentService(nil), f.slot0900)

	data, err := f.calendarService().ExportCalendar(context.Background(), doctorActor, nil, nil)
	if err != nil {
		t.Fatalf("ExportCalendar 应成功: %v", err)
	}
	if len(parseCalendar(t, data).Events()) != 1 {
		t.Fatal("医生应看到自己的预约")
	}
	if !strings.Contains(data, "STATUS:TENTATIVE") {
		t.Error("待确认预约的事件状态应为 TENTATIVE")
	}
}

func TestExportCalendar_Range(t *testing.T) {
	f := newFixture(t)
	f.book(t, f.appointmentService(nil), f.slot0900)
	svc := f.calendarService()
	ctx := context.Background()

	from := nextMonday.AddDate(0, 0, 1)
	data, err := svc.ExportCalendar(ctx, patientActor, &from, nil)
	if err != nil {
		t.Fatalf("ExportCalendar 应成功: %v", err)
	}
	if n := len(parseCalendar(t, data).Events()); n != 0 {
		t.Errorf("范围外的预约不应导出，实际 %d 个事件", n)
	}

	to := from.AddDate(0, 0, -2)
	if _, err := svc.ExportCalendar(ctx, patientActor, &from, &to); !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("结束早于开始应返回校验错误，实际: %v", err)
	}
	to = from.AddDate(0, 0, 400)
	if _, err := svc.ExportCalendar(ctx, patientActor, &from, &to); !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("超出最大范围应返回校验错误，实际: %v", err)
	}
}

func TestExportCalendar_Actors(t *testing.T) {
	f := newFixture(t)
	f.book(t, f.appointmentService(nil), f.slot0900)
	svc := f.calendarService()
	ctx := context.Background()

	if _, err := svc.ExportCalendar(ctx, adminActor, nil, nil); !errors.Is(err, ErrNotOwner) {
		t.Errorf("管理员没有个人日历，期望 ErrNotOwner，实际: %v", err)
	}

	data, err := svc.ExportCalendar(ctx, Actor{UserID: "user-no-profile", Role: model.RolePatient}, nil, nil)
	if err != nil {
		t.Fatalf("未建档患者应得到空日历: %v", err)
	}
	if n := len(parseCalendar(t, data).Events()); n != 0 {
		t.Errorf("未建档患者不应看到任何预约，实际 %d 个事件", n)
	}

	data, _ = svc.ExportCalendar(ctx, otherPatient, nil, nil)
	if n := len(parseCalendar(t, data).Events()); n != 0 {
		t.Errorf("其他患者不应看到该预约，实际 %d 个事件", n)
	}
}
