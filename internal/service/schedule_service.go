package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"clinic-booking/backend/internal/dto"
	"clinic-booking/backend/internal/model"
	"clinic-booking/backend/internal/repository"
)

// ScheduleService 出诊安排业务接口
type ScheduleService interface {
	GetDoctorSchedule(ctx context.Context, doctorID string) ([]dto.ScheduleEntryResponse, error)
	// UpdateDoctorSchedule 按 星期/日期 合并发布：已有安排与时段原地更新，未发布的只关闭不删除
	UpdateDoctorSchedule(ctx context.Context, actor Actor, doctorID string, req *dto.UpdateScheduleRequest) ([]dto.ScheduleEntryResponse, error)
	// ResolveForDate 计算医生某日实际生效的安排
	ResolveForDate(ctx context.Context, doctorID string, date time.Time) ([]model.WorkingSchedule, error)
}

type scheduleService struct {
	repo   *repository.Repository
	owner  ownership
	logger *zap.Logger
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(repo *repository.Repository, logger *zap.Logger) ScheduleService {
	return &scheduleService{
		repo:   repo,
		owner:  ownership{repo: repo, logger: logger},
		logger: logger,
	}
}

// ────────────────────── Resolve ──────────────────────

func (s *scheduleService) ResolveForDate(ctx context.Context, doctorID string, date time.Time) ([]model.WorkingSchedule, error) {
	entries, err := s.repo.Schedule.ListForDate(ctx, doctorID, date)
	if err != nil {
		s.logger.Error("查询出诊安排失败",
			zap.String("doctor_id", doctorID),
			zap.String("date", date.Format(model.DateLayout)),
			zap.Error(err))
		return nil, err
	}
	return resolveEffective(entries, date), nil
}

// resolveEffective 覆盖优先：
// 当天存在指定日期安排时，可用则只返回它，不可用则整天无号；
// 否则返回同星期且可用的固定安排
func resolveEffective(entries []model.WorkingSchedule, date time.Time) []model.WorkingSchedule {
	var recurring []model.WorkingSchedule
	for i := range entries {
		e := entries[i]
		if !e.AppliesTo(date) {
			continue
		}
		if e.IsOverride() {
			if !e.IsAvailable {
				return nil
			}
			return []model.WorkingSchedule{e}
		}
		if e.IsAvailable {
			recurring = append(recurring, e)
		}
	}
	return recurring
}

// ────────────────────── Get ──────────────────────

func (s *scheduleService) GetDoctorSchedule(ctx context.Context, doctorID string) ([]dto.ScheduleEntryResponse, error) {
	if _, err := s.repo.Catalog.GetDoctor(ctx, doctorID); err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrDoctorNotFound
		}
		s.logger.Error("查询医生失败", zap.String("doctor_id", doctorID), zap.Error(err))
		return nil, err
	}

	entries, err := s.repo.Schedule.ListByDoctor(ctx, doctorID)
	if err != nil {
		s.logger.Error("查询出诊安排失败", zap.String("doctor_id", doctorID), zap.Error(err))
		return nil, err
	}

	sortEntries(entries)
	result := make([]dto.ScheduleEntryResponse, 0, len(entries))
	for i := range entries {
		result = append(result, toScheduleEntryResponse(&entries[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

// entryInput 校验、归一化后的安排
type entryInput struct {
	dayOfWeek    *int
	specificDate *time.Time
	isAvailable  bool
	notes        string
	slots        []slotInput
}

type slotInput struct {
	start, end  string
	maxPatients int
	isAvailable bool
}

func (s *scheduleService) UpdateDoctorSchedule(ctx context.Context, actor Actor, doctorID string, req *dto.UpdateScheduleRequest) ([]dto.ScheduleEntryResponse, error) {
	if _, err := s.repo.Catalog.GetDoctor(ctx, doctorID); err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrDoctorNotFound
		}
		s.logger.Error("查询医生失败", zap.String("doctor_id", doctorID), zap.Error(err))
		return nil, err
	}

	ok, err := s.owner.isDoctorOwner(ctx, actor, doctorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotOwner
	}

	inputs, err := normalizeEntries(req.Entries)
	if err != nil {
		return nil, err
	}

	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		existing, err := txRepo.Schedule.ListByDoctor(ctx, doctorID)
		if err != nil {
			return err
		}
		byKey := make(map[string]*model.WorkingSchedule, len(existing))
		for i := range existing {
			byKey[existing[i].Key()] = &existing[i]
		}

		keep := make([]string, 0, len(inputs))
		for _, in := range inputs {
			entry, err := s.upsertEntry(ctx, txRepo, doctorID, in, byKey)
			if err != nil {
				return err
			}
			keep = append(keep, entry.ScheduleID)
		}

		return txRepo.Schedule.DisableExcept(ctx, doctorID, keep)
	})
	if err != nil {
		s.logger.Error("发布出诊安排失败", zap.String("doctor_id", doctorID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("出诊安排已发布",
		zap.String("doctor_id", doctorID),
		zap.Int("entries", len(inputs)),
		zap.String("operator", actor.UserID))

	return s.GetDoctorSchedule(ctx, doctorID)
}

// upsertEntry 按键查找或创建安排，再按开始时间合并时段
func (s *scheduleService) upsertEntry(ctx context.Context, txRepo *repository.Repository, doctorID string, in entryInput, byKey map[string]*model.WorkingSchedule) (*model.WorkingSchedule, error) {
	entry, found := byKey[model.ScheduleKey(in.dayOfWeek, in.specificDate)]
	if found {
		entry.IsAvailable = in.isAvailable
		entry.Notes = in.notes
		if err := txRepo.Schedule.Update(ctx, entry); err != nil {
			return nil, err
		}
	} else {
		entry = &model.WorkingSchedule{
			DoctorID:     doctorID,
			DayOfWeek:    in.dayOfWeek,
			SpecificDate: in.specificDate,
			IsAvailable:  in.isAvailable,
			Notes:        in.notes,
		}
		if err := txRepo.Schedule.Create(ctx, entry); err != nil {
			return nil, err
		}
	}

	slotsByStart := make(map[string]*model.TimeSlot, len(entry.Slots))
	for i := range entry.Slots {
		slotsByStart[entry.Slots[i].StartTime] = &entry.Slots[i]
	}

	keep := make([]string, 0, len(in.slots))
	for _, si := range in.slots {
		if slot, ok := slotsByStart[si.start]; ok {
			slot.EndTime = si.end
			slot.MaxPatients = si.maxPatients
			slot.IsAvailable = si.isAvailable
			if err := txRepo.TimeSlot.Update(ctx, slot); err != nil {
				return nil, err
			}
			keep = append(keep, slot.TimeSlotID)
			continue
		}
		slot := &model.TimeSlot{
			ScheduleID:  entry.ScheduleID,
			StartTime:   si.start,
			EndTime:     si.end,
			MaxPatients: si.maxPatients,
			IsAvailable: si.isAvailable,
		}
		if err := txRepo.TimeSlot.Create(ctx, slot); err != nil {
			return nil, err
		}
		keep = append(keep, slot.TimeSlotID)
	}

	if err := txRepo.TimeSlot.DisableExcept(ctx, entry.ScheduleID, keep); err != nil {
		return nil, err
	}
	return entry, nil
}

// normalizeEntries 校验请求并统一时间格式
func normalizeEntries(entries []dto.ScheduleEntryInput) ([]entryInput, error) {
	seen := make(map[string]bool, len(entries))
	result := make([]entryInput, 0, len(entries))

	for i, e := range entries {
		in := entryInput{isAvailable: true, notes: e.Notes}
		if e.IsAvailable != nil {
			in.isAvailable = *e.IsAvailable
		}

		switch {
		case e.DayOfWeek != nil && e.SpecificDate != nil:
			return nil, validationError("第 %d 条安排不能同时指定星期和日期", i+1)
		case e.DayOfWeek != nil:
			if *e.DayOfWeek < 0 || *e.DayOfWeek > 6 {
				return nil, validationError("第 %d 条安排的星期必须在 0-6 之间", i+1)
			}
			dow := *e.DayOfWeek
			in.dayOfWeek = &dow
		case e.SpecificDate != nil:
			d, err := model.ParseDate(*e.SpecificDate)
			if err != nil {
				return nil, validationError("第 %d 条安排: %v", i+1, err)
			}
			in.specificDate = &d
		default:
			return nil, validationError("第 %d 条安排必须指定星期或日期", i+1)
		}

		key := model.ScheduleKey(in.dayOfWeek, in.specificDate)
		if seen[key] {
			return nil, validationError("安排 %s 重复", key)
		}
		seen[key] = true

		slots, err := normalizeSlots(e.Slots)
		if err != nil {
			return nil, validationError("安排 %s: %v", key, err)
		}
		in.slots = slots
		result = append(result, in)
	}
	return result, nil
}

func normalizeSlots(slots []dto.TimeSlotInput) ([]slotInput, error) {
	result := make([]slotInput, 0, len(slots))
	for _, t := range slots {
		start, err := model.NormalizeClock(t.StartTime)
		if err != nil {
			return nil, err
		}
		end, err := model.NormalizeClock(t.EndTime)
		if err != nil {
			return nil, err
		}
		if start >= end {
			return nil, fmt.Errorf("时段 %s-%s 开始时间必须早于结束时间", start, end)
		}
		maxPatients := t.MaxPatients
		if maxPatients == 0 {
			maxPatients = 1
		}
		if maxPatients < 1 {
			return nil, fmt.Errorf("时段 %s 容量必须不小于 1", start)
		}
		available := true
		if t.IsAvailable != nil {
			available = *t.IsAvailable
		}
		result = append(result, slotInput{start: start, end: end, maxPatients: maxPatients, isAvailable: available})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].start < result[j].start })
	for i := 1; i < len(result); i++ {
		prev, cur := result[i-1], result[i]
		if prev.start == cur.start {
			return nil, fmt.Errorf("时段 %s 重复", cur.start)
		}
		if prev.end > cur.start {
			return nil, fmt.Errorf("时段 %s-%s 与 %s-%s 重叠", prev.start, prev.end, cur.start, cur.end)
		}
	}
	return result, nil
}

// ────────────────────── Converters ──────────────────────

// sortEntries 固定安排按星期在前，覆盖安排按日期在后；时段按开始时间
func sortEntries(entries []model.WorkingSchedule) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsOverride() != b.IsOverride() {
			return !a.IsOverride()
		}
		if a.IsOverride() {
			return a.SpecificDate.Before(*b.SpecificDate)
		}
		return *a.DayOfWeek < *b.DayOfWeek
	})
	for i := range entries {
		slots := entries[i].Slots
		sort.SliceStable(slots, func(x, y int) bool { return slots[x].StartTime < slots[y].StartTime })
	}
}

func toScheduleEntryResponse(e *model.WorkingSchedule) dto.ScheduleEntryResponse {
	slots := make([]dto.TimeSlotResponse, 0, len(e.Slots))
	for _, t := range e.Slots {
		slots = append(slots, dto.TimeSlotResponse{
			ID:          t.TimeSlotID,
			StartTime:   t.StartTime,
			EndTime:     t.EndTime,
			MaxPatients: t.MaxPatients,
			IsAvailable: t.IsAvailable,
		})
	}
	return dto.ScheduleEntryResponse{
		ID:           e.ScheduleID,
		DoctorID:     e.DoctorID,
		DayOfWeek:    e.DayOfWeek,
		SpecificDate: dto.FormatDatePtr(e.SpecificDate),
		IsAvailable:  e.IsAvailable,
		Notes:        e.Notes,
		Slots:        slots,
	}
}
