package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"clinic-booking/backend/config"
	"clinic-booking/backend/internal/model"
)

// ── 测试数据 ──

const (
	doctorUserID  = "user-doctor-1"
	otherDocUser  = "user-doctor-2"
	patientUserID = "user-patient-1"
	otherPatUser  = "user-patient-2"
	adminUserID   = "user-admin-1"
)

var (
	patientActor  = Actor{UserID: patientUserID, Role: model.RolePatient}
	otherPatient  = Actor{UserID: otherPatUser, Role: model.RolePatient}
	doctorActor   = Actor{UserID: doctorUserID, Role: model.RoleDoctor}
	otherDoctor   = Actor{UserID: otherDocUser, Role: model.RoleDoctor}
	adminActor    = Actor{UserID: adminUserID, Role: model.RoleAdmin}
	fixedNow      = time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC) // 周五
	nextMonday    = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	nextMondayStr = "2026-10-19"
)

func testBookingConfig() *config.BookingConfig {
	return &config.BookingConfig{
		Timezone:          "UTC",
		SlotLockTTL:       5 * time.Second,
		StrictTransitions: true,
	}
}

// fixture 一个医生、一个已建档患者、周一 09:00-09:30 与 09:30-10:00 两个时段
type fixture struct {
	repos    *testRepos
	doctor   *model.Doctor
	patient  *model.Patient
	monday   *model.WorkingSchedule
	slot0900 *model.TimeSlot
	slot0930 *model.TimeSlot
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	repos := newTestRepos()

	doctor := &model.Doctor{
		DoctorID:        "doc-1",
		UserID:          doctorUserID,
		FullName:        "Nguyễn Văn An",
		ConsultationFee: decimal.NewFromInt(150000),
	}
	repos.catalog.doctors[doctor.DoctorID] = doctor
	repos.catalog.doctors["doc-2"] = &model.Doctor{DoctorID: "doc-2", UserID: otherDocUser, FullName: "Trần Thị Bình"}

	patient := &model.Patient{PatientID: "pat-fixture", UserID: patientUserID}
	repos.catalog.patients[patient.PatientID] = patient
	repos.catalog.patients["pat-other"] = &model.Patient{PatientID: "pat-other", UserID: otherPatUser}
	repos.catalog.specialties["spec-1"] = &model.Specialty{SpecialtyID: "spec-1", Name: "Nội khoa"}

	dow := 1
	monday := &model.WorkingSchedule{DoctorID: doctor.DoctorID, DayOfWeek: &dow, IsAvailable: true}
	if err := repos.schedule.Create(ctx, monday); err != nil {
		t.Fatalf("seed 安排失败: %v", err)
	}

	slot0900 := &model.TimeSlot{ScheduleID: monday.ScheduleID, StartTime: "09:00:00", EndTime: "09:30:00", MaxPatients: 1, IsAvailable: true}
	slot0930 := &model.TimeSlot{ScheduleID: monday.ScheduleID, StartTime: "09:30:00", EndTime: "10:00:00", MaxPatients: 1, IsAvailable: true}
	for _, s := range []*model.TimeSlot{slot0900, slot0930} {
		if err := repos.timeSlot.Create(ctx, s); err != nil {
			t.Fatalf("seed 时段失败: %v", err)
		}
	}

	return &fixture{
		repos:    repos,
		doctor:   doctor,
		patient:  patient,
		monday:   monday,
		slot0900: slot0900,
		slot0930: slot0930,
	}
}

// addOverride 为医生添加指定日期覆盖安排
func (f *fixture) addOverride(t *testing.T, date time.Time, available bool, slots ...[2]string) *model.WorkingSchedule {
	t.Helper()
	ctx := context.Background()
	d := date
	entry := &model.WorkingSchedule{DoctorID: f.doctor.DoctorID, SpecificDate: &d, IsAvailable: available}
	if err := f.repos.schedule.Create(ctx, entry); err != nil {
		t.Fatalf("seed 覆盖安排失败: %v", err)
	}
	for _, s := range slots {
		slot := &model.TimeSlot{ScheduleID: entry.ScheduleID, StartTime: s[0], EndTime: s[1], MaxPatients: 1, IsAvailable: true}
		if err := f.repos.timeSlot.Create(ctx, slot); err != nil {
			t.Fatalf("seed 覆盖时段失败: %v", err)
		}
	}
	return entry
}

func (f *fixture) appointmentService(locker SlotLocker) *appointmentService {
	svc := NewAppointmentService(testBookingConfig(), f.repos.toRepository(), locker, zap.NewNop()).(*appointmentService)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func (f *fixture) scheduleService() ScheduleService {
	return NewScheduleService(f.repos.toRepository(), zap.NewNop())
}

func (f *fixture) availabilityService() AvailabilityService {
	repo := f.repos.toRepository()
	return NewAvailabilityService(repo, NewScheduleService(repo, zap.NewNop()), zap.NewNop())
}

func ptr[T any](v T) *T { return &v }
