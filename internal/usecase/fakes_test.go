package usecase

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"go-doctor-scheduling/internal/domain/entity"
	"go-doctor-scheduling/internal/domain/repository"
	"go-doctor-scheduling/internal/service"
	"go-doctor-scheduling/pkg/validator"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var errStorage = errors.New("storage unavailable")

// memStore backs every fake repository. All access goes through mu; the fake
// transactor snapshots it and restores the snapshot when fn fails.
type memStore struct {
	mu           sync.Mutex
	schedules    map[int64]entity.DoctorSchedule
	appointments map[int64]entity.Appointment
	doctors      map[uuid.UUID]bool
	patients     map[uuid.UUID]bool
	auditLogs    []entity.AuditLog
	nextID       int64

	// widens the window between reading a doctor's appointments and writing
	readDelay         time.Duration
	failScheduleWrite error
	failAuditWrite    error
}

func newMemStore() *memStore {
	return &memStore{
		schedules:    make(map[int64]entity.DoctorSchedule),
		appointments: make(map[int64]entity.Appointment),
		doctors:      make(map[uuid.UUID]bool),
		patients:     make(map[uuid.UUID]bool),
	}
}

type memSnapshot struct {
	schedules    map[int64]entity.DoctorSchedule
	appointments map[int64]entity.Appointment
	auditLogs    []entity.AuditLog
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := memSnapshot{
		schedules:    make(map[int64]entity.DoctorSchedule, len(s.schedules)),
		appointments: make(map[int64]entity.Appointment, len(s.appointments)),
		auditLogs:    append([]entity.AuditLog(nil), s.auditLogs...),
	}
	for id, schedule := range s.schedules {
		snap.schedules[id] = schedule
	}
	for id, appointment := range s.appointments {
		snap.appointments[id] = appointment
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules = snap.schedules
	s.appointments = snap.appointments
	s.auditLogs = snap.auditLogs
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) addDoctor() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.doctors[id] = true
	return id
}

func (s *memStore) addPatient() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.patients[id] = true
	return id
}

func (s *memStore) addSchedule(doctorID uuid.UUID, date, start, end string) entity.DoctorSchedule {
	workDate, err := time.Parse(entity.DateLayout, date)
	if err != nil {
		panic(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	schedule := entity.DoctorSchedule{
		ID:        s.id(),
		DoctorID:  doctorID,
		WorkDate:  workDate,
		StartTime: start,
		EndTime:   end,
		Status:    entity.ScheduleStatusAvailable,
	}
	s.schedules[schedule.ID] = schedule
	return schedule
}

func (s *memStore) setScheduleStatus(id int64, status entity.ScheduleStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	schedule := s.schedules[id]
	schedule.Status = status
	s.schedules[id] = schedule
}

func (s *memStore) schedule(id int64) entity.DoctorSchedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedules[id]
}

func (s *memStore) appointment(id int64) entity.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appointments[id]
}

func (s *memStore) doctorAppointments(doctorID uuid.UUID) []entity.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []entity.Appointment
	for _, appointment := range s.appointments {
		if appointment.DoctorID == doctorID {
			result = append(result, appointment)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartTime.Before(result[j].StartTime) })
	return result
}

func (s *memStore) auditActions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	actions := make([]string, len(s.auditLogs))
	for i, log := range s.auditLogs {
		actions[i] = log.Action
	}
	return actions
}

type fakeTransactor struct {
	store *memStore
}

func (t *fakeTransactor) WithinTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	snap := t.store.snapshot()
	if err := fn(nil); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

func (t *fakeTransactor) Conn(ctx context.Context) *gorm.DB {
	return nil
}

type fakeScheduleRepo struct {
	store *memStore
}

func (r *fakeScheduleRepo) Create(db *gorm.DB, schedule *entity.DoctorSchedule) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failScheduleWrite != nil {
		return r.store.failScheduleWrite
	}
	schedule.ID = r.store.id()
	r.store.schedules[schedule.ID] = *schedule
	return nil
}

func (r *fakeScheduleRepo) FindByID(db *gorm.DB, id int64) (*entity.DoctorSchedule, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	schedule, ok := r.store.schedules[id]
	if !ok {
		return nil, nil
	}
	return &schedule, nil
}

func (r *fakeScheduleRepo) FindByIDForUpdate(db *gorm.DB, id int64) (*entity.DoctorSchedule, error) {
	return r.FindByID(db, id)
}

func (r *fakeScheduleRepo) FindByDoctorAndDate(db *gorm.DB, doctorID uuid.UUID, workDate time.Time) ([]entity.DoctorSchedule, error) {
	all, _ := r.FindByDoctorID(db, doctorID)
	var result []entity.DoctorSchedule
	for _, schedule := range all {
		if schedule.WorkDate.Format(entity.DateLayout) == workDate.Format(entity.DateLayout) {
			result = append(result, schedule)
		}
	}
	return result, nil
}

func (r *fakeScheduleRepo) FindByDoctorID(db *gorm.DB, doctorID uuid.UUID) ([]entity.DoctorSchedule, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []entity.DoctorSchedule
	for _, schedule := range r.store.schedules {
		if schedule.DoctorID == doctorID {
			result = append(result, schedule)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeScheduleRepo) Update(db *gorm.DB, schedule *entity.DoctorSchedule) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failScheduleWrite != nil {
		return r.store.failScheduleWrite
	}
	r.store.schedules[schedule.ID] = *schedule
	return nil
}

type fakeAppointmentRepo struct {
	store *memStore
}

func (r *fakeAppointmentRepo) Create(db *gorm.DB, appointment *entity.Appointment) error {
	return r.CreateBatch(db, []*entity.Appointment{appointment})
}

func (r *fakeAppointmentRepo) CreateBatch(db *gorm.DB, appointments []*entity.Appointment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, appointment := range appointments {
		appointment.ID = r.store.id()
		appointment.CreatedAt = time.Now()
		appointment.UpdatedAt = appointment.CreatedAt
		r.store.appointments[appointment.ID] = *appointment
	}
	return nil
}

func (r *fakeAppointmentRepo) FindByID(db *gorm.DB, id int64) (*entity.Appointment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	appointment, ok := r.store.appointments[id]
	if !ok {
		return nil, nil
	}
	return &appointment, nil
}

func (r *fakeAppointmentRepo) FindByIDForUpdate(db *gorm.DB, id int64) (*entity.Appointment, error) {
	return r.FindByID(db, id)
}

func (r *fakeAppointmentRepo) FindByDoctorID(db *gorm.DB, doctorID uuid.UUID) ([]entity.Appointment, error) {
	result := r.store.doctorAppointments(doctorID)
	if r.store.readDelay > 0 {
		time.Sleep(r.store.readDelay)
	}
	return result, nil
}

func (r *fakeAppointmentRepo) FindByPatientID(db *gorm.DB, patientID uuid.UUID) ([]entity.Appointment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []entity.Appointment
	for _, appointment := range r.store.appointments {
		if appointment.PatientID != nil && *appointment.PatientID == patientID {
			result = append(result, appointment)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeAppointmentRepo) FindByScheduleIDs(db *gorm.DB, scheduleIDs []int64) ([]entity.Appointment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	wanted := make(map[int64]bool, len(scheduleIDs))
	for _, id := range scheduleIDs {
		wanted[id] = true
	}
	var result []entity.Appointment
	for _, appointment := range r.store.appointments {
		if wanted[appointment.ScheduleID] {
			result = append(result, appointment)
		}
	}
	return result, nil
}

func (r *fakeAppointmentRepo) Update(db *gorm.DB, appointment *entity.Appointment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	appointment.UpdatedAt = time.Now()
	r.store.appointments[appointment.ID] = *appointment
	return nil
}

type fakeDoctorRepo struct {
	store *memStore
}

func (r *fakeDoctorRepo) FindByUserID(db *gorm.DB, userID uuid.UUID) (*entity.DoctorProfile, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if !r.store.doctors[userID] {
		return nil, nil
	}
	return &entity.DoctorProfile{UserID: userID}, nil
}

type fakePatientRepo struct {
	store *memStore
}

func (r *fakePatientRepo) FindByUserID(db *gorm.DB, userID uuid.UUID) (*entity.PatientProfile, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if !r.store.patients[userID] {
		return nil, nil
	}
	return &entity.PatientProfile{UserID: userID}, nil
}

type fakeAuditRepo struct {
	store *memStore
}

func (r *fakeAuditRepo) Create(db *gorm.DB, log *entity.AuditLog) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failAuditWrite != nil {
		return r.store.failAuditWrite
	}
	log.ID = r.store.id()
	log.CreatedAt = time.Now()
	r.store.auditLogs = append(r.store.auditLogs, *log)
	return nil
}

func (r *fakeAuditRepo) FindRecent(db *gorm.DB, limit int) ([]entity.AuditLog, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []entity.AuditLog
	for i := len(r.store.auditLogs) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, r.store.auditLogs[i])
	}
	return result, nil
}

func (r *fakeAuditRepo) FindByID(db *gorm.DB, id int64) (*entity.AuditLog, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, log := range r.store.auditLogs {
		if log.ID == id {
			found := log
			return &found, nil
		}
	}
	return nil, nil
}

// recordingNotifier keeps every accepted event; err makes Notify fail like a full queue.
type recordingNotifier struct {
	mu     sync.Mutex
	events []entity.NotificationEvent
	err    error
}

func (n *recordingNotifier) Notify(event entity.NotificationEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) sent() []entity.NotificationEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]entity.NotificationEvent(nil), n.events...)
}

var (
	_ repository.Transactor               = (*fakeTransactor)(nil)
	_ repository.DoctorScheduleRepository = (*fakeScheduleRepo)(nil)
	_ repository.AppointmentRepository    = (*fakeAppointmentRepo)(nil)
	_ repository.DoctorProfileRepository  = (*fakeDoctorRepo)(nil)
	_ repository.PatientProfileRepository = (*fakePatientRepo)(nil)
	_ repository.AuditLogRepository       = (*fakeAuditRepo)(nil)
	_ service.Notifier                    = (*recordingNotifier)(nil)
)

type fixture struct {
	store     *memStore
	notifier  *recordingNotifier
	locker    *service.LocalDoctorLocker
	usecase   AppointmentUsecase
	schedules DoctorScheduleUsecase
	audits    AuditLogUsecase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	store := newMemStore()
	notifier := &recordingNotifier{}
	locker := service.NewLocalDoctorLocker(5*time.Second, log)
	transactor := &fakeTransactor{store: store}
	audit := service.NewAuditService(log, &fakeAuditRepo{store: store})
	v := validator.NewValidator()

	return &fixture{
		store:    store,
		notifier: notifier,
		locker:   locker,
		usecase: NewAppointmentUsecase(log, v, transactor, locker, notifier, audit,
			&fakeAppointmentRepo{store: store}, &fakeScheduleRepo{store: store},
			&fakeDoctorRepo{store: store}, &fakePatientRepo{store: store}, time.UTC),
		schedules: NewDoctorScheduleUsecase(log, v, transactor, locker, audit,
			&fakeScheduleRepo{store: store}, &fakeAppointmentRepo{store: store},
			&fakeDoctorRepo{store: store}, time.UTC),
		audits: NewAuditLogUsecase(log, transactor, &fakeAuditRepo{store: store}),
	}
}

// at builds an instant on date at HH:MM in UTC
func at(date, clock string) time.Time {
	t, err := time.Parse(entity.DateLayout+" "+entity.TimeOfDayLayout, date+" "+clock)
	if err != nil {
		panic(err)
	}
	return t
}
