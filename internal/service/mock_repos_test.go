package service

import (
	"context"
	"fmt"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// memStore is shared in-memory state backing all mock repositories, so
// that cross-entity queries (counts, preloads) behave like the database.
type memStore struct {
	activities   map[uuid.UUID]*model.Activity
	transporters map[uuid.UUID]*model.Transporter
	vehicles     map[uuid.UUID]*model.Vehicle
	pairs        map[uuid.UUID]*model.ActivityTransporter
	allocations  map[uuid.UUID]*model.VehicleAllocation
	departures   map[uuid.UUID]*model.DepartureRecord
	schedules    []model.ScheduleAssignment
	audits       []model.AuditLog
}

func newMemStore() *memStore {
	return &memStore{
		activities:   make(map[uuid.UUID]*model.Activity),
		transporters: make(map[uuid.UUID]*model.Transporter),
		vehicles:     make(map[uuid.UUID]*model.Vehicle),
		pairs:        make(map[uuid.UUID]*model.ActivityTransporter),
		allocations:  make(map[uuid.UUID]*model.VehicleAllocation),
		departures:   make(map[uuid.UUID]*model.DepartureRecord),
	}
}

// Seeding helpers

func (m *memStore) addActivity(po string, start, end time.Time, status string) *model.Activity {
	a := &model.Activity{
		ID:        uuid.New(),
		PONumber:  po,
		Vendor:    "PT Vendor",
		Material:  "coal",
		StartDate: start,
		EndDate:   end,
		Status:    status,
	}
	m.activities[a.ID] = a
	return a
}

func (m *memStore) addTransporter(code, name string) *model.Transporter {
	t := &model.Transporter{ID: uuid.New(), Code: code, Name: name}
	m.transporters[t.ID] = t
	return t
}

func (m *memStore) addVehicle(transporterID uuid.UUID, plate string) *model.Vehicle {
	v := &model.Vehicle{ID: uuid.New(), TransporterID: transporterID, PlateNumber: plate}
	m.vehicles[v.ID] = v
	return v
}

func (m *memStore) addPair(activityID, transporterID uuid.UUID, status string) *model.ActivityTransporter {
	p := &model.ActivityTransporter{
		ID:            uuid.New(),
		ActivityID:    activityID,
		TransporterID: transporterID,
		Status:        status,
	}
	m.pairs[p.ID] = p
	return p
}

func (m *memStore) addAllocation(pairID, vehicleID uuid.UUID) *model.VehicleAllocation {
	a := &model.VehicleAllocation{ID: uuid.New(), PairID: pairID, VehicleID: vehicleID}
	m.allocations[a.ID] = a
	return a
}

func (m *memStore) addSchedule(personID uuid.UUID, date time.Time, shift string) {
	m.schedules = append(m.schedules, model.ScheduleAssignment{
		ID:       uuid.New(),
		PersonID: personID,
		Date:     date,
		Shift:    shift,
	})
}

func sameDate(a, b time.Time) bool {
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}

// mockTxManager runs the function directly; mock state has no rollback.
type mockTxManager struct{}

func (mockTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// mockActivityRepo

type mockActivityRepo struct{ store *memStore }

func (r *mockActivityRepo) Create(_ context.Context, activity *model.Activity) error {
	for _, a := range r.store.activities {
		if a.PONumber == activity.PONumber {
			return gorm.ErrDuplicatedKey
		}
	}
	activity.ID = uuid.New()
	r.store.activities[activity.ID] = activity
	return nil
}

func (r *mockActivityRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Activity, error) {
	a, ok := r.store.activities[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *mockActivityRepo) FindByPONumber(_ context.Context, po string) (*model.Activity, error) {
	for _, a := range r.store.activities {
		if a.PONumber == po {
			copied := *a
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockActivityRepo) LockByID(ctx context.Context, id uuid.UUID) (*model.Activity, error) {
	return r.FindByID(ctx, id)
}

func (r *mockActivityRepo) Update(_ context.Context, activity *model.Activity) error {
	if _, ok := r.store.activities[activity.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *activity
	r.store.activities[activity.ID] = &copied
	return nil
}

func (r *mockActivityRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	a, ok := r.store.activities[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	a.Status = status
	return nil
}

func (r *mockActivityRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.store.activities, id)
	return nil
}

func (r *mockActivityRepo) List(_ context.Context, _, _ int, _ string) ([]model.Activity, int64, error) {
	out := make([]model.Activity, 0, len(r.store.activities))
	for _, a := range r.store.activities {
		out = append(out, *a)
	}
	return out, int64(len(out)), nil
}

// mockPairRepo

type mockPairRepo struct{ store *memStore }

func (r *mockPairRepo) GetOrCreate(ctx context.Context, activityID, transporterID uuid.UUID) (*model.ActivityTransporter, error) {
	if p, err := r.Find(ctx, activityID, transporterID); err == nil {
		return p, nil
	}
	p := r.store.addPair(activityID, transporterID, model.StatusWaiting)
	copied := *p
	return &copied, nil
}

func (r *mockPairRepo) Find(_ context.Context, activityID, transporterID uuid.UUID) (*model.ActivityTransporter, error) {
	for _, p := range r.store.pairs {
		if p.ActivityID == activityID && p.TransporterID == transporterID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockPairRepo) FindByID(_ context.Context, id uuid.UUID) (*model.ActivityTransporter, error) {
	p, ok := r.store.pairs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *p
	if t, ok := r.store.transporters[p.TransporterID]; ok {
		copied.Transporter = t
	}
	return &copied, nil
}

func (r *mockPairRepo) ListByActivity(_ context.Context, activityID uuid.UUID) ([]model.ActivityTransporter, error) {
	var out []model.ActivityTransporter
	for _, p := range r.store.pairs {
		if p.ActivityID != activityID {
			continue
		}
		copied := *p
		if t, ok := r.store.transporters[p.TransporterID]; ok {
			copied.Transporter = t
		}
		for _, a := range r.store.allocations {
			if a.PairID != p.ID {
				continue
			}
			allocCopy := *a
			if v, ok := r.store.vehicles[a.VehicleID]; ok {
				allocCopy.Vehicle = v
			}
			copied.Allocations = append(copied.Allocations, allocCopy)
		}
		out = append(out, copied)
	}
	return out, nil
}

func (r *mockPairRepo) TransitionStatus(_ context.Context, id uuid.UUID, from, to string) (bool, error) {
	p, ok := r.store.pairs[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	return true, nil
}

func (r *mockPairRepo) SetStatus(_ context.Context, id uuid.UUID, status string) error {
	p, ok := r.store.pairs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Status = status
	return nil
}

func (r *mockPairRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.store.pairs, id)
	return nil
}

// mockVehicleRepo

type mockVehicleRepo struct{ store *memStore }

func (r *mockVehicleRepo) Create(_ context.Context, vehicle *model.Vehicle) error {
	for _, v := range r.store.vehicles {
		if v.PlateNumber == vehicle.PlateNumber {
			return gorm.ErrDuplicatedKey
		}
	}
	vehicle.ID = uuid.New()
	r.store.vehicles[vehicle.ID] = vehicle
	return nil
}

func (r *mockVehicleRepo) FindByPlate(_ context.Context, plate string) (*model.Vehicle, error) {
	for _, v := range r.store.vehicles {
		if v.PlateNumber == plate {
			copied := *v
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockVehicleRepo) ListByTransporter(_ context.Context, transporterID uuid.UUID) ([]model.Vehicle, error) {
	var out []model.Vehicle
	for _, v := range r.store.vehicles {
		if v.TransporterID == transporterID {
			out = append(out, *v)
		}
	}
	return out, nil
}

// mockTransporterRepo

type mockTransporterRepo struct{ store *memStore }

func (r *mockTransporterRepo) Create(_ context.Context, transporter *model.Transporter) error {
	for _, t := range r.store.transporters {
		if t.Code == transporter.Code {
			return gorm.ErrDuplicatedKey
		}
	}
	transporter.ID = uuid.New()
	r.store.transporters[transporter.ID] = transporter
	return nil
}

func (r *mockTransporterRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Transporter, error) {
	t, ok := r.store.transporters[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *mockTransporterRepo) List(_ context.Context) ([]model.Transporter, error) {
	out := make([]model.Transporter, 0, len(r.store.transporters))
	for _, t := range r.store.transporters {
		out = append(out, *t)
	}
	return out, nil
}

// mockAllocationRepo

type mockAllocationRepo struct{ store *memStore }

func (r *mockAllocationRepo) GetOrCreate(ctx context.Context, pairID, vehicleID uuid.UUID) (*model.VehicleAllocation, error) {
	if a, err := r.Find(ctx, pairID, vehicleID); err == nil {
		return a, nil
	}
	a := r.store.addAllocation(pairID, vehicleID)
	copied := *a
	return &copied, nil
}

func (r *mockAllocationRepo) Find(_ context.Context, pairID, vehicleID uuid.UUID) (*model.VehicleAllocation, error) {
	for _, a := range r.store.allocations {
		if a.PairID == pairID && a.VehicleID == vehicleID {
			copied := *a
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// mockDepartureRepo

type mockDepartureRepo struct{ store *memStore }

func (r *mockDepartureRepo) Create(_ context.Context, record *model.DepartureRecord) error {
	record.ID = uuid.New()
	copied := *record
	r.store.departures[record.ID] = &copied
	return nil
}

func (r *mockDepartureRepo) FindByID(_ context.Context, id uuid.UUID) (*model.DepartureRecord, error) {
	d, ok := r.store.departures[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *d
	if a, ok := r.store.allocations[d.AllocationID]; ok {
		allocCopy := *a
		if v, ok := r.store.vehicles[a.VehicleID]; ok {
			allocCopy.Vehicle = v
		}
		copied.Allocation = &allocCopy
	}
	return &copied, nil
}

func (r *mockDepartureRepo) Update(_ context.Context, record *model.DepartureRecord) error {
	if _, ok := r.store.departures[record.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *record
	copied.Allocation = nil
	r.store.departures[record.ID] = &copied
	return nil
}

func (r *mockDepartureRepo) UpdateVerification(_ context.Context, id uuid.UUID, status string) error {
	d, ok := r.store.departures[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	d.VerificationStatus = status
	return nil
}

func (r *mockDepartureRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.store.departures, id)
	return nil
}

func (r *mockDepartureRepo) CountByPair(_ context.Context, pairID uuid.UUID) (int64, error) {
	var n int64
	for _, d := range r.store.departures {
		if a, ok := r.store.allocations[d.AllocationID]; ok && a.PairID == pairID {
			n++
		}
	}
	return n, nil
}

func (r *mockDepartureRepo) CountByActivity(_ context.Context, activityID uuid.UUID) (int64, error) {
	var n int64
	for _, d := range r.store.departures {
		a, ok := r.store.allocations[d.AllocationID]
		if !ok {
			continue
		}
		if p, ok := r.store.pairs[a.PairID]; ok && p.ActivityID == activityID {
			n++
		}
	}
	return n, nil
}

func (r *mockDepartureRepo) ListByActivity(_ context.Context, activityID uuid.UUID, _, _ int) ([]model.DepartureRecord, int64, error) {
	var out []model.DepartureRecord
	for _, d := range r.store.departures {
		a, ok := r.store.allocations[d.AllocationID]
		if !ok {
			continue
		}
		p, ok := r.store.pairs[a.PairID]
		if !ok || p.ActivityID != activityID {
			continue
		}
		copied := *d
		allocCopy := *a
		allocCopy.Pair = p
		if v, ok := r.store.vehicles[a.VehicleID]; ok {
			allocCopy.Vehicle = v
		}
		copied.Allocation = &allocCopy
		out = append(out, copied)
	}
	return out, int64(len(out)), nil
}

// mockScheduleRepo

type mockScheduleRepo struct{ store *memStore }

func (r *mockScheduleRepo) Create(_ context.Context, assignment *model.ScheduleAssignment) error {
	assignment.ID = uuid.New()
	r.store.schedules = append(r.store.schedules, *assignment)
	return nil
}

func (r *mockScheduleRepo) ListForPersonDate(_ context.Context, personID uuid.UUID, date time.Time) ([]model.ScheduleAssignment, error) {
	var out []model.ScheduleAssignment
	for _, a := range r.store.schedules {
		if a.PersonID == personID && sameDate(a.Date, date) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *mockScheduleRepo) ListByDate(_ context.Context, date time.Time, _, _ int) ([]model.ScheduleAssignment, int64, error) {
	var out []model.ScheduleAssignment
	for _, a := range r.store.schedules {
		if sameDate(a.Date, date) {
			out = append(out, a)
		}
	}
	return out, int64(len(out)), nil
}

// mockAuditRepo

type mockAuditRepo struct{ store *memStore }

func (r *mockAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	r.store.audits = append(r.store.audits, *entry)
	return nil
}

func (r *mockAuditRepo) List(_ context.Context, action string, _, _ int) ([]model.AuditLog, int64, error) {
	var out []model.AuditLog
	for _, e := range r.store.audits {
		if action == "" || e.Action == action {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

// mockEvidenceStore records saves and removals instead of touching disk.
type mockEvidenceStore struct {
	seq     int
	saved   []string
	removed []string
	failAt  int // 1-based save index that fails; 0 disables
}

func (s *mockEvidenceStore) Save(data []byte, ext string) (string, error) {
	s.seq++
	if s.failAt != 0 && s.seq == s.failAt {
		return "", fmt.Errorf("store unavailable")
	}
	key := fmt.Sprintf("blob-%d%s", s.seq, ext)
	s.saved = append(s.saved, key)
	return key, nil
}

func (s *mockEvidenceStore) Remove(key string) error {
	s.removed = append(s.removed, key)
	return nil
}
