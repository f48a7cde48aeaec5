package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"clinic-booking/backend/config"
	"clinic-booking/backend/internal/dto"
	"clinic-booking/backend/internal/model"
	"clinic-booking/backend/internal/repository"
	pkgerrors "clinic-booking/backend/pkg/errors"
	"clinic-booking/backend/pkg/redis"
)

// AppointmentService 预约生命周期业务接口
type AppointmentService interface {
	Create(ctx context.Context, actor Actor, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error)
	GetByID(ctx context.Context, actor Actor, id string) (*dto.AppointmentResponse, error)
	ListMine(ctx context.Context, actor Actor, req *dto.AppointmentListRequest) ([]dto.AppointmentResponse, int64, error)
	ListForAdmin(ctx context.Context, req *dto.AppointmentListRequest) ([]dto.AppointmentResponse, int64, error)
	UpdateStatus(ctx context.Context, actor Actor, id string, status model.AppointmentStatus) (*dto.AppointmentResponse, error)
	// Cancel 已取消的预约再次取消直接返回当前状态
	Cancel(ctx context.Context, actor Actor, id, reason string) (*dto.AppointmentResponse, error)
	// CompleteWithRecord 写入就诊记录并将预约置为 COMPLETED，二者在同一事务内
	CompleteWithRecord(ctx context.Context, actor Actor, id string, req *dto.MedicalRecordRequest) (*dto.MedicalRecordResponse, error)
}

type appointmentService struct {
	cfg    *config.BookingConfig
	repo   *repository.Repository
	locker SlotLocker
	owner  ownership
	logger *zap.Logger
	now    func() time.Time
}

// NewAppointmentService 创建 AppointmentService 实例
// locker 为 nil 时不使用 Redis 锁
func NewAppointmentService(cfg *config.BookingConfig, repo *repository.Repository, locker SlotLocker, logger *zap.Logger) AppointmentService {
	return &appointmentService{
		cfg:    cfg,
		repo:   repo,
		locker: locker,
		owner:  ownership{repo: repo, logger: logger},
		logger: logger,
		now:    time.Now,
	}
}

// ────────────────────── Create ──────────────────────

func (s *appointmentService) Create(ctx context.Context, actor Actor, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	date, err := model.ParseDate(req.AppointmentDate)
	if err != nil {
		return nil, validationError("%v", err)
	}
	today := model.CivilDate(s.now().In(s.cfg.Location()))
	if date.Before(today) {
		return nil, ErrPastDate
	}

	patient, err := s.resolvePatient(ctx, actor, req.PatientID)
	if err != nil {
		return nil, err
	}

	doctor, err := s.repo.Catalog.GetDoctor(ctx, req.DoctorID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrDoctorNotFound
		}
		s.logger.Error("查询医生失败", zap.String("doctor_id", req.DoctorID), zap.Error(err))
		return nil, err
	}

	if req.SpecialtyID != nil {
		if _, err := s.repo.Catalog.GetSpecialty(ctx, *req.SpecialtyID); err != nil {
			if repository.IsNotFound(err) {
				return nil, ErrSpecialtyNotFound
			}
			return nil, err
		}
	}

	unlock, err := s.lockSlot(ctx, doctor.DoctorID, date, req.TimeSlotID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	appt := &model.Appointment{
		PatientID:       patient.PatientID,
		DoctorID:        doctor.DoctorID,
		SpecialtyID:     req.SpecialtyID,
		TimeSlotID:      req.TimeSlotID,
		AppointmentDate: date,
		Status:          model.AppointmentPending,
		Symptoms:        req.Symptoms,
		Notes:           req.Notes,
	}

	var slot *model.TimeSlot
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		// 锁住时段行，使同一时段的预约在事务内串行
		locked, err := txRepo.TimeSlot.GetByIDForUpdate(ctx, req.TimeSlotID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrTimeSlotNotFound
			}
			return err
		}
		slot = locked
		if slot.Schedule == nil || slot.Schedule.DoctorID != doctor.DoctorID || !slot.IsAvailable {
			return ErrSlotUnavailable
		}

		entries, err := txRepo.Schedule.ListForDate(ctx, doctor.DoctorID, date)
		if err != nil {
			return err
		}
		if !containsSchedule(resolveEffective(entries, date), slot.ScheduleID) {
			return ErrSlotUnavailable
		}

		taken, err := txRepo.Appointment.ExistsActiveAt(ctx, doctor.DoctorID, date, slot.StartTime)
		if err != nil {
			return err
		}
		if taken {
			return ErrSlotTaken
		}

		appt.AppointmentTime = slot.StartTime
		// 并发事务同时通过上面的检查时，由部分唯一索引兜底返回 ErrSlotTaken
		return txRepo.Appointment.Create(ctx, appt)
	})
	if err != nil {
		if !isDomainError(err) {
			s.logger.Error("创建预约失败",
				zap.String("doctor_id", doctor.DoctorID),
				zap.String("slot_id", req.TimeSlotID),
				zap.String("date", req.AppointmentDate),
				zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("预约创建成功",
		zap.String("appointment_id", appt.AppointmentID),
		zap.String("doctor_id", doctor.DoctorID),
		zap.String("patient_id", patient.PatientID),
		zap.String("date", req.AppointmentDate),
		zap.String("time", appt.AppointmentTime))

	appt.Doctor = doctor
	appt.TimeSlot = slot
	resp := toAppointmentResponse(appt)
	return &resp, nil
}

// resolvePatient 患者本人预约时按需补建档案；医生 / 管理员代约时必须指定患者
func (s *appointmentService) resolvePatient(ctx context.Context, actor Actor, patientID *string) (*model.Patient, error) {
	switch actor.Role {
	case model.RolePatient:
		p, err := s.ensurePatientProfile(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		if patientID != nil && *patientID != p.PatientID {
			return nil, ErrNotOwner
		}
		return p, nil
	case model.RoleDoctor, model.RoleAdmin:
		if patientID == nil || *patientID == "" {
			return nil, ErrPatientRequired
		}
		p, err := s.repo.Catalog.GetPatient(ctx, *patientID)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, ErrPatientNotFound
			}
			return nil, err
		}
		return p, nil
	default:
		return nil, ErrNotOwner
	}
}

func (s *appointmentService) ensurePatientProfile(ctx context.Context, userID string) (*model.Patient, error) {
	p, err := s.repo.Catalog.GetPatientByUserID(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !repository.IsNotFound(err) {
		s.logger.Error("查询患者档案失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	p = &model.Patient{UserID: userID}
	if err := s.repo.Catalog.CreatePatient(ctx, p); err != nil {
		// 并发的首次预约已经建好了档案
		if repository.IsUniqueViolation(err) {
			return s.repo.Catalog.GetPatientByUserID(ctx, userID)
		}
		s.logger.Error("创建患者档案失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	s.logger.Info("已自动创建患者档案", zap.String("user_id", userID), zap.String("patient_id", p.PatientID))
	return p, nil
}

// lockSlot 获取 Redis 时段锁；Redis 不可用时只记录告警，继续依赖数据库约束
func (s *appointmentService) lockSlot(ctx context.Context, doctorID string, date time.Time, slotID string) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}

	key := fmt.Sprintf("appointment:%s:%s:%s", doctorID, date.Format(model.DateLayout), slotID)
	token, err := s.locker.TryLock(ctx, key, s.cfg.SlotLockTTL)
	if err != nil {
		if errors.Is(err, redis.ErrLockHeld) {
			return nil, ErrSlotTaken
		}
		s.logger.Warn("获取时段锁失败，降级为仅数据库约束", zap.String("key", key), zap.Error(err))
		return noop, nil
	}

	return func() {
		if err := s.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			s.logger.Warn("释放时段锁失败", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func containsSchedule(entries []model.WorkingSchedule, scheduleID string) bool {
	for _, e := range entries {
		if e.ScheduleID == scheduleID {
			return true
		}
	}
	return false
}

// ────────────────────── Read ──────────────────────

func (s *appointmentService) GetByID(ctx context.Context, actor Actor, id string) (*dto.AppointmentResponse, error) {
	appt, err := s.repo.Appointment.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrAppointmentNotFound
		}
		s.logger.Error("查询预约失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if err := s.owner.canAccessAppointment(ctx, actor, appt, true); err != nil {
		return nil, err
	}

	resp := toAppointmentResponse(appt)
	return &resp, nil
}

func (s *appointmentService) ListMine(ctx context.Context, actor Actor, req *dto.AppointmentListRequest) ([]dto.AppointmentResponse, int64, error) {
	filter, err := buildAppointmentFilter(req)
	if err != nil {
		return nil, 0, err
	}

	switch actor.Role {
	case model.RolePatient:
		id, err := s.owner.patientIDOf(ctx, actor)
		if err != nil {
			return nil, 0, err
		}
		if id == "" {
			return []dto.AppointmentResponse{}, 0, nil
		}
		filter.PatientID = id
	case model.RoleDoctor:
		id, err := s.owner.doctorIDOf(ctx, actor)
		if err != nil {
			return nil, 0, err
		}
		if id == "" {
			return []dto.AppointmentResponse{}, 0, nil
		}
		filter.DoctorID = id
	case model.RoleAdmin:
		// 管理员没有个人预约，按全部预约处理
	default:
		return nil, 0, ErrNotOwner
	}

	return s.list(ctx, filter)
}

func (s *appointmentService) ListForAdmin(ctx context.Context, req *dto.AppointmentListRequest) ([]dto.AppointmentResponse, int64, error) {
	filter, err := buildAppointmentFilter(req)
	if err != nil {
		return nil, 0, err
	}
	filter.DoctorID = req.DoctorID
	return s.list(ctx, filter)
}

func (s *appointmentService) list(ctx context.Context, filter repository.AppointmentFilter) ([]dto.AppointmentResponse, int64, error) {
	list, total, err := s.repo.Appointment.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询预约列表失败", zap.Error(err))
		return nil, 0, err
	}
	result := make([]dto.AppointmentResponse, 0, len(list))
	for i := range list {
		result = append(result, toAppointmentResponse(&list[i]))
	}
	return result, total, nil
}

func buildAppointmentFilter(req *dto.AppointmentListRequest) (repository.AppointmentFilter, error) {
	f := repository.AppointmentFilter{
		Status:   model.AppointmentStatus(req.Status),
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	if req.DateFrom != "" {
		d, err := model.ParseDate(req.DateFrom)
		if err != nil {
			return f, validationError("%v", err)
		}
		f.DateFrom = &d
	}
	if req.DateTo != "" {
		d, err := model.ParseDate(req.DateTo)
		if err != nil {
			return f, validationError("%v", err)
		}
		f.DateTo = &d
	}
	return f, nil
}

// ────────────────────── UpdateStatus ──────────────────────

func (s *appointmentService) UpdateStatus(ctx context.Context, actor Actor, id string, status model.AppointmentStatus) (*dto.AppointmentResponse, error) {
	if !status.Valid() {
		return nil, validationError("未知的预约状态 %q", status)
	}

	var appt *model.Appointment
	err := s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		var err error
		appt, err = s.loadForUpdate(ctx, txRepo, id)
		if err != nil {
			return err
		}
		if err := s.owner.canAccessAppointment(ctx, actor, appt, false); err != nil {
			return err
		}
		if appt.Status == status {
			return nil
		}
		if !s.transitionAllowed(appt.Status, status) {
			return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, appt.Status, status)
		}

		s.applyStatus(appt, status, actor)
		return txRepo.Appointment.Update(ctx, appt)
	})
	if err != nil {
		if !isDomainError(err) {
			s.logger.Error("更新预约状态失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("预约状态已更新",
		zap.String("appointment_id", id),
		zap.String("status", string(appt.Status)),
		zap.String("operator", actor.UserID))

	resp := toAppointmentResponse(appt)
	return &resp, nil
}

// transitionAllowed 严格模式按迁移表校验；宽松模式只禁止离开 COMPLETED / CANCELLED
func (s *appointmentService) transitionAllowed(from, to model.AppointmentStatus) bool {
	if s.cfg.StrictTransitions {
		return from.CanTransitionTo(to)
	}
	return from != model.AppointmentCompleted && from != model.AppointmentCancelled
}

// applyStatus 设置状态并打上对应时间戳
func (s *appointmentService) applyStatus(appt *model.Appointment, status model.AppointmentStatus, actor Actor) {
	now := s.now()
	appt.Status = status
	switch status {
	case model.AppointmentConfirmed:
		appt.ConfirmedAt = &now
	case model.AppointmentCompleted:
		appt.CompletedAt = &now
	case model.AppointmentCancelled:
		by := actor.UserID
		appt.CancelledBy = &by
		appt.CancelledAt = &now
	}
}

// ────────────────────── Cancel ──────────────────────

func (s *appointmentService) Cancel(ctx context.Context, actor Actor, id, reason string) (*dto.AppointmentResponse, error) {
	var appt *model.Appointment
	err := s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		var err error
		appt, err = s.loadForUpdate(ctx, txRepo, id)
		if err != nil {
			return err
		}
		if err := s.owner.canAccessAppointment(ctx, actor, appt, true); err != nil {
			return err
		}

		switch appt.Status {
		case model.AppointmentCancelled:
			return nil
		case model.AppointmentCompleted, model.AppointmentNoShow:
			return ErrCancelForbidden
		}

		s.applyStatus(appt, model.AppointmentCancelled, actor)
		appt.CancelledReason = reason
		return txRepo.Appointment.Update(ctx, appt)
	})
	if err != nil {
		if !isDomainError(err) {
			s.logger.Error("取消预约失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("预约已取消",
		zap.String("appointment_id", id),
		zap.String("operator", actor.UserID))

	resp := toAppointmentResponse(appt)
	return &resp, nil
}

// ────────────────────── CompleteWithRecord ──────────────────────

func (s *appointmentService) CompleteWithRecord(ctx context.Context, actor Actor, id string, req *dto.MedicalRecordRequest) (*dto.MedicalRecordResponse, error) {
	var followUp *time.Time
	if req.FollowUpDate != nil && *req.FollowUpDate != "" {
		d, err := model.ParseDate(*req.FollowUpDate)
		if err != nil {
			return nil, validationError("%v", err)
		}
		followUp = &d
	}

	var appt *model.Appointment
	var rec *model.MedicalRecord
	err := s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		var err error
		appt, err = s.loadForUpdate(ctx, txRepo, id)
		if err != nil {
			return err
		}
		if err := s.owner.canAccessAppointment(ctx, actor, appt, false); err != nil {
			return err
		}

		if _, err := txRepo.MedicalRecord.GetByAppointmentID(ctx, id); err == nil {
			return ErrRecordExists
		} else if !repository.IsNotFound(err) {
			return err
		}

		if appt.Status != model.AppointmentCompleted {
			if !s.transitionAllowed(appt.Status, model.AppointmentCompleted) {
				return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, appt.Status, model.AppointmentCompleted)
			}
			s.applyStatus(appt, model.AppointmentCompleted, actor)
			if err := txRepo.Appointment.Update(ctx, appt); err != nil {
				return err
			}
		}

		symptoms := req.Symptoms
		if symptoms == "" {
			symptoms = appt.Symptoms
		}
		rec = &model.MedicalRecord{
			AppointmentID: appt.AppointmentID,
			PatientID:     appt.PatientID,
			DoctorID:      appt.DoctorID,
			Diagnosis:     req.Diagnosis,
			Symptoms:      symptoms,
			Treatment:     req.Treatment,
			Notes:         req.Notes,
			FollowUpDate:  followUp,
		}
		if err := txRepo.MedicalRecord.Create(ctx, rec); err != nil {
			if repository.IsUniqueViolation(err) {
				return ErrRecordExists
			}
			return err
		}
		return nil
	})
	if err != nil {
		if !isDomainError(err) {
			s.logger.Error("写入就诊记录失败", zap.String("appointment_id", id), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("就诊记录已写入，预约完成",
		zap.String("appointment_id", id),
		zap.String("record_id", rec.RecordID))

	return &dto.MedicalRecordResponse{
		ID:            rec.RecordID,
		AppointmentID: rec.AppointmentID,
		Diagnosis:     rec.Diagnosis,
		Symptoms:      rec.Symptoms,
		Treatment:     rec.Treatment,
		Notes:         rec.Notes,
		FollowUpDate:  dto.FormatDatePtr(rec.FollowUpDate),
		Appointment:   toAppointmentResponse(appt),
	}, nil
}

func (s *appointmentService) loadForUpdate(ctx context.Context, txRepo *repository.Repository, id string) (*model.Appointment, error) {
	appt, err := txRepo.Appointment.GetByIDForUpdate(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return appt, nil
}

// isDomainError 业务错误只返回给调用方，不记错误日志
func isDomainError(err error) bool {
	for _, target := range []error{
		pkgerrors.ErrNotFound,
		pkgerrors.ErrSlotTaken,
		pkgerrors.ErrCancelForbidden,
		pkgerrors.ErrAuthentication,
		pkgerrors.ErrValidation,
		pkgerrors.ErrForbidden,
		pkgerrors.ErrInvalidTransition,
		pkgerrors.ErrOptimisticLock,
		ErrPaymentAlreadySettled,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ────────────────────── Converters ──────────────────────

func toAppointmentResponse(a *model.Appointment) dto.AppointmentResponse {
	resp := dto.AppointmentResponse{
		ID:              a.AppointmentID,
		PatientID:       a.PatientID,
		DoctorID:        a.DoctorID,
		SpecialtyID:     a.SpecialtyID,
		TimeSlotID:      a.TimeSlotID,
		AppointmentDate: dto.FormatDate(a.AppointmentDate),
		AppointmentTime: a.AppointmentTime,
		Status:          string(a.Status),
		Symptoms:        a.Symptoms,
		Notes:           a.Notes,
		CancelledBy:     a.CancelledBy,
		CancelledReason: a.CancelledReason,
		ConfirmedAt:     dto.FormatTimePtr(a.ConfirmedAt),
		CompletedAt:     dto.FormatTimePtr(a.CompletedAt),
		CancelledAt:     dto.FormatTimePtr(a.CancelledAt),
		CreatedAt:       dto.FormatTime(a.CreatedAt),
		UpdatedAt:       dto.FormatTime(a.UpdatedAt),
	}
	if a.Doctor != nil {
		resp.DoctorName = a.Doctor.FullName
	}
	if a.TimeSlot != nil {
		resp.EndTime = a.TimeSlot.EndTime
	}
	return resp
}
