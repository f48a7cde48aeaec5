package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"clinic-booking/backend/internal/model"
	"clinic-booking/backend/internal/repository"
	pkgerrors "clinic-booking/backend/pkg/errors"
)

// ── 测试聚合 ──

// testRepos 聚合所有 mock repo 便于 seed 数据
type testRepos struct {
	catalog     *mockCatalogRepo
	schedule    *mockScheduleRepo
	timeSlot    *mockTimeSlotRepo
	appointment *mockAppointmentRepo
	payment     *mockPaymentRepo
	record      *mockMedicalRecordRepo
}

func newTestRepos() *testRepos {
	slots := newMockTimeSlotRepo()
	schedules := newMockScheduleRepo(slots)
	slots.schedules = func(id string) *model.WorkingSchedule {
		s, err := schedules.GetByID(context.Background(), id)
		if err != nil {
			return nil
		}
		return s
	}
	return &testRepos{
		catalog:     newMockCatalogRepo(),
		schedule:    schedules,
		timeSlot:    slots,
		appointment: newMockAppointmentRepo(),
		payment:     newMockPaymentRepo(),
		record:      newMockMedicalRecordRepo(),
	}
}

func (r *testRepos) toRepository() *repository.Repository {
	return &repository.Repository{
		Schedule:      r.schedule,
		TimeSlot:      r.timeSlot,
		Appointment:   r.appointment,
		Payment:       r.payment,
		Catalog:       r.catalog,
		MedicalRecord: r.record,
	}
}

var idSeq struct {
	sync.Mutex
	n int
}

func nextID(prefix string) string {
	idSeq.Lock()
	defer idSeq.Unlock()
	idSeq.n++
	return fmt.Sprintf("%s-%d", prefix, idSeq.n)
}

// ── Mock CatalogRepository ──

type mockCatalogRepo struct {
	mu          sync.Mutex
	doctors     map[string]*model.Doctor
	patients    map[string]*model.Patient
	specialties map[string]*model.Specialty
}

func newMockCatalogRepo() *mockCatalogRepo {
	return &mockCatalogRepo{
		doctors:     make(map[string]*model.Doctor),
		patients:    make(map[string]*model.Patient),
		specialties: make(map[string]*model.Specialty),
	}
}

func (m *mockCatalogRepo) GetDoctor(_ context.Context, id string) (*model.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.doctors[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCatalogRepo) GetDoctorByUserID(_ context.Context, userID string) (*model.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.doctors {
		if d.UserID == userID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCatalogRepo) GetPatient(_ context.Context, id string) (*model.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.patients[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCatalogRepo) GetPatientByUserID(_ context.Context, userID string) (*model.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.patients {
		if p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCatalogRepo) CreatePatient(_ context.Context, p *model.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.patients {
		if existing.UserID == p.UserID {
			return gorm.ErrDuplicatedKey
		}
	}
	if p.PatientID == "" {
		p.PatientID = nextID("pat")
	}
	cp := *p
	m.patients[p.PatientID] = &cp
	return nil
}

func (m *mockCatalogRepo) GetSpecialty(_ context.Context, id string) (*model.Specialty, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.specialties[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock ScheduleRepository ──

type mockScheduleRepo struct {
	mu        sync.Mutex
	schedules map[string]*model.WorkingSchedule
	slots     *mockTimeSlotRepo
}

func newMockScheduleRepo(slots *mockTimeSlotRepo) *mockScheduleRepo {
	return &mockScheduleRepo{schedules: make(map[string]*model.WorkingSchedule), slots: slots}
}

func (m *mockScheduleRepo) ListByDoctor(_ context.Context, doctorID string) ([]model.WorkingSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.WorkingSchedule
	for _, s := range m.schedules {
		if s.DoctorID == doctorID {
			cp := *s
			cp.Slots = m.slots.bySchedule(s.ScheduleID)
			result = append(result, cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ScheduleID < result[j].ScheduleID })
	return result, nil
}

func (m *mockScheduleRepo) ListForDate(_ context.Context, doctorID string, date time.Time) ([]model.WorkingSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.WorkingSchedule
	for _, s := range m.schedules {
		if s.DoctorID == doctorID && s.AppliesTo(date) {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (m *mockScheduleRepo) GetByID(_ context.Context, id string) (*model.WorkingSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.schedules[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockScheduleRepo) Create(_ context.Context, s *model.WorkingSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.schedules {
		if existing.DoctorID == s.DoctorID && existing.Key() == s.Key() {
			return gorm.ErrDuplicatedKey
		}
	}
	if s.ScheduleID == "" {
		s.ScheduleID = nextID("sch")
	}
	cp := *s
	cp.Slots = nil
	m.schedules[s.ScheduleID] = &cp
	return nil
}

func (m *mockScheduleRepo) Update(_ context.Context, s *model.WorkingSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.schedules[s.ScheduleID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	existing.IsAvailable = s.IsAvailable
	existing.Notes = s.Notes
	return nil
}

func (m *mockScheduleRepo) DisableExcept(_ context.Context, doctorID string, keepIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	keep := toSet(keepIDs)
	for _, s := range m.schedules {
		if s.DoctorID == doctorID && !keep[s.ScheduleID] {
			s.IsAvailable = false
		}
	}
	return nil
}

// ── Mock TimeSlotRepository ──

type mockTimeSlotRepo struct {
	mu    sync.Mutex
	slots map[string]*model.TimeSlot
	// schedules 供 GetByIDForUpdate 回填 Schedule 关联
	schedules func(id string) *model.WorkingSchedule
}

func newMockTimeSlotRepo() *mockTimeSlotRepo {
	return &mockTimeSlotRepo{slots: make(map[string]*model.TimeSlot)}
}

func (m *mockTimeSlotRepo) bySchedule(scheduleID string) []model.TimeSlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.TimeSlot
	for _, t := range m.slots {
		if t.ScheduleID == scheduleID {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartTime < result[j].StartTime })
	return result
}

func (m *mockTimeSlotRepo) Create(_ context.Context, slot *model.TimeSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slot.TimeSlotID == "" {
		slot.TimeSlotID = nextID("slot")
	}
	cp := *slot
	m.slots[slot.TimeSlotID] = &cp
	return nil
}

func (m *mockTimeSlotRepo) GetByID(_ context.Context, id string) (*model.TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.slots[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTimeSlotRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.TimeSlot, error) {
	slot, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.schedules != nil {
		slot.Schedule = m.schedules(slot.ScheduleID)
	}
	return slot, nil
}

func (m *mockTimeSlotRepo) ListBySchedules(_ context.Context, scheduleIDs []string, onlyAvailable bool) ([]model.TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := toSet(scheduleIDs)
	var result []model.TimeSlot
	for _, t := range m.slots {
		if ids[t.ScheduleID] && (!onlyAvailable || t.IsAvailable) {
			result = append(result, *t)
		}
	}
	// 故意打乱顺序，验证 service 自行排序
	sort.Slice(result, func(i, j int) bool { return result[i].StartTime > result[j].StartTime })
	return result, nil
}

func (m *mockTimeSlotRepo) Update(_ context.Context, slot *model.TimeSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.slots[slot.TimeSlotID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	existing.EndTime = slot.EndTime
	existing.MaxPatients = slot.MaxPatients
	existing.IsAvailable = slot.IsAvailable
	return nil
}

func (m *mockTimeSlotRepo) DisableExcept(_ context.Context, scheduleID string, keepIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	keep := toSet(keepIDs)
	for _, t := range m.slots {
		if t.ScheduleID == scheduleID && !keep[t.TimeSlotID] {
			t.IsAvailable = false
		}
	}
	return nil
}

// ── Mock AppointmentRepository ──

type mockAppointmentRepo struct {
	mu           sync.Mutex
	appointments map[string]*model.Appointment
	// skipProbe 让 ExistsActiveAt 恒返回 false，模拟并发事务都通过了检查
	skipProbe bool
}

func newMockAppointmentRepo() *mockAppointmentRepo {
	return &mockAppointmentRepo{appointments: make(map[string]*model.Appointment)}
}

// activeAt 模拟部分唯一索引 uq_appointments_active_slot
func (m *mockAppointmentRepo) activeAt(doctorID string, date time.Time, clock, exceptID string) bool {
	for _, a := range m.appointments {
		if a.AppointmentID != exceptID && a.DoctorID == doctorID &&
			a.AppointmentDate.Equal(date) && a.AppointmentTime == clock &&
			a.Status != model.AppointmentCancelled {
			return true
		}
	}
	return false
}

func (m *mockAppointmentRepo) Create(_ context.Context, a *model.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeAt(a.DoctorID, a.AppointmentDate, a.AppointmentTime, "") {
		return pkgerrors.ErrSlotTaken
	}
	if a.AppointmentID == "" {
		a.AppointmentID = nextID("appt")
	}
	a.Version = 1
	cp := *a
	m.appointments[a.AppointmentID] = &cp
	return nil
}

func (m *mockAppointmentRepo) GetByID(_ context.Context, id string) (*model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.appointments[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAppointmentRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Appointment, error) {
	return m.GetByID(ctx, id)
}

func (m *mockAppointmentRepo) ExistsActiveAt(_ context.Context, doctorID string, date time.Time, clock string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.skipProbe {
		return false, nil
	}
	return m.activeAt(doctorID, date, clock, ""), nil
}

func (m *mockAppointmentRepo) ListActiveTimes(_ context.Context, doctorID string, date time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var times []string
	for _, a := range m.appointments {
		if a.DoctorID == doctorID && a.AppointmentDate.Equal(date) && a.Status != model.AppointmentCancelled {
			times = append(times, a.AppointmentTime)
		}
	}
	return times, nil
}

func (m *mockAppointmentRepo) Update(_ context.Context, a *model.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.appointments[a.AppointmentID]
	if !ok || existing.Version != a.Version {
		return pkgerrors.ErrOptimisticLock
	}
	if a.Status != model.AppointmentCancelled &&
		m.activeAt(a.DoctorID, a.AppointmentDate, a.AppointmentTime, a.AppointmentID) {
		return pkgerrors.ErrSlotTaken
	}
	a.Version++
	cp := *a
	m.appointments[a.AppointmentID] = &cp
	return nil
}

func (m *mockAppointmentRepo) List(_ context.Context, f repository.AppointmentFilter) ([]model.Appointment, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Appointment
	for _, a := range m.appointments {
		if f.PatientID != "" && a.PatientID != f.PatientID {
			continue
		}
		if f.DoctorID != "" && a.DoctorID != f.DoctorID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.ExcludeCancelled && a.Status == model.AppointmentCancelled {
			continue
		}
		if f.DateFrom != nil && a.AppointmentDate.Before(*f.DateFrom) {
			continue
		}
		if f.DateTo != nil && a.AppointmentDate.After(*f.DateTo) {
			continue
		}
		result = append(result, *a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AppointmentID < result[j].AppointmentID })
	return result, int64(len(result)), nil
}

// countActive 统计非取消预约数
func (m *mockAppointmentRepo) countActive() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.appointments {
		if a.Status != model.AppointmentCancelled {
			n++
		}
	}
	return n
}

// ── Mock PaymentRepository ──

type mockPaymentRepo struct {
	mu       sync.Mutex
	payments map[string]*model.Payment
	updates  int
}

func newMockPaymentRepo() *mockPaymentRepo {
	return &mockPaymentRepo{payments: make(map[string]*model.Payment)}
}

func (m *mockPaymentRepo) Create(_ context.Context, p *model.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.payments {
		if existing.AppointmentID == p.AppointmentID {
			return gorm.ErrDuplicatedKey
		}
	}
	if p.PaymentID == "" {
		p.PaymentID = uuid.NewString()
	}
	p.Version = 1
	cp := *p
	m.payments[p.PaymentID] = &cp
	return nil
}

func (m *mockPaymentRepo) GetByID(_ context.Context, id string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.payments[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPaymentRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Payment, error) {
	return m.GetByID(ctx, id)
}

func (m *mockPaymentRepo) GetByAppointmentID(_ context.Context, appointmentID string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.AppointmentID == appointmentID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPaymentRepo) Update(_ context.Context, p *model.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.payments[p.PaymentID]
	if !ok || existing.Version != p.Version {
		return pkgerrors.ErrOptimisticLock
	}
	p.Version++
	cp := *p
	m.payments[p.PaymentID] = &cp
	m.updates++
	return nil
}

// ── Mock MedicalRecordRepository ──

type mockMedicalRecordRepo struct {
	mu      sync.Mutex
	records map[string]*model.MedicalRecord
}

func newMockMedicalRecordRepo() *mockMedicalRecordRepo {
	return &mockMedicalRecordRepo{records: make(map[string]*model.MedicalRecord)}
}

func (m *mockMedicalRecordRepo) Create(_ context.Context, rec *model.MedicalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.AppointmentID]; ok {
		return gorm.ErrDuplicatedKey
	}
	if rec.RecordID == "" {
		rec.RecordID = nextID("rec")
	}
	cp := *rec
	m.records[rec.AppointmentID] = &cp
	return nil
}

func (m *mockMedicalRecordRepo) GetByAppointmentID(_ context.Context, appointmentID string) (*model.MedicalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[appointmentID]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
