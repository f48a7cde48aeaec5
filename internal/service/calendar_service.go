package service

import (
	"context"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"clinic-booking/backend/config"
	"clinic-booking/backend/internal/model"
	"clinic-booking/backend/internal/repository"
)

// 日历导出默认范围
const (
	defaultCalendarDays = 90
	maxCalendarDays     = 366
)

// CalendarService 预约日历（iCalendar）导出接口
type CalendarService interface {
	// ExportCalendar 导出调用方（作为患者或医生）在 [from, to] 内未取消的预约
	ExportCalendar(ctx context.Context, actor Actor, from, to *time.Time) (string, error)
}

type calendarService struct {
	cfg    *config.BookingConfig
	repo   *repository.Repository
	owner  ownership
	logger *zap.Logger
	now    func() time.Time
}

// NewCalendarService 创建 CalendarService 实例
func NewCalendarService(cfg *config.BookingConfig, repo *repository.Repository, logger *zap.Logger) CalendarService {
	return &calendarService{
		cfg:    cfg,
		repo:   repo,
		owner:  ownership{repo: repo, logger: logger},
		logger: logger,
		now:    time.Now,
	}
}

func (s *calendarService) ExportCalendar(ctx context.Context, actor Actor, from, to *time.Time) (string, error) {
	loc := s.cfg.Location()

	start := model.CivilDate(s.now().In(loc))
	if from != nil {
		start = model.CivilDate(*from)
	}
	end := start.AddDate(0, 0, defaultCalendarDays)
	if to != nil {
		end = model.CivilDate(*to)
	}
	if end.Before(start) {
		return "", validationError("结束日期不能早于开始日期")
	}
	if end.Sub(start) > maxCalendarDays*24*time.Hour {
		return "", validationError("导出范围不能超过 %d 天", maxCalendarDays)
	}

	filter := repository.AppointmentFilter{
		DateFrom:         &start,
		DateTo:           &end,
		ExcludeCancelled: true,
	}
	switch actor.Role {
	case model.RolePatient:
		id, err := s.owner.patientIDOf(ctx, actor)
		if err != nil {
			return "", err
		}
		filter.PatientID = id
	case model.RoleDoctor:
		id, err := s.owner.doctorIDOf(ctx, actor)
		if err != nil {
			return "", err
		}
		filter.DoctorID = id
	default:
		// 管理员没有个人日历
		return "", ErrNotOwner
	}

	var list []model.Appointment
	if filter.PatientID != "" || filter.DoctorID != "" {
		var err error
		list, _, err = s.repo.Appointment.List(ctx, filter)
		if err != nil {
			s.logger.Error("查询日历预约失败", zap.String("user_id", actor.UserID), zap.Error(err))
			return "", err
		}
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//clinic-booking//appointments//VI")
	cal.SetXWRCalName("Lịch khám")
	cal.SetXWRTimezone(loc.String())

	stamp := s.now().UTC()
	for i := range list {
		a := &list[i]
		startAt, err := model.At(a.AppointmentDate, a.AppointmentTime, loc)
		if err != nil {
			s.logger.Warn("预约时刻格式异常，跳过", zap.String("appointment_id", a.AppointmentID), zap.Error(err))
			continue
		}
		endAt := startAt.Add(30 * time.Minute)
		if a.TimeSlot != nil {
			if t, err := model.At(a.AppointmentDate, a.TimeSlot.EndTime, loc); err == nil && t.After(startAt) {
				endAt = t
			}
		}

		evt := cal.AddEvent(a.AppointmentID)
		evt.SetDtStampTime(stamp)
		evt.SetStartAt(startAt)
		evt.SetEndAt(endAt)
		evt.SetSummary(eventSummary(a))
		if a.Symptoms != "" {
			evt.SetDescription(a.Symptoms)
		}
		evt.SetStatus(eventStatus(a.Status))
	}

	return cal.Serialize(), nil
}

func eventSummary(a *model.Appointment) string {
	if a.Doctor != nil && a.Doctor.FullName != "" {
		return fmt.Sprintf("Khám bệnh - BS. %s", a.Doctor.FullName)
	}
	return "Khám bệnh"
}

func eventStatus(s model.AppointmentStatus) ics.ObjectStatus {
	switch s {
	case model.AppointmentPending:
		return ics.ObjectStatusTentative
	default:
		return ics.ObjectStatusConfirmed
	}
}
