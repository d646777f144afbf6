package service

import (
	"context"
	"testing"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type departureFixture struct {
	store    *memStore
	evidence *mockEvidenceStore
	svc      DepartureService
}

func newDepartureFixture() *departureFixture {
	store := newMemStore()
	ev := &mockEvidenceStore{}
	logger := zap.NewNop()
	schedules := NewScheduleService(&mockScheduleRepo{store: store}, logger)
	svc := NewDepartureService(
		&mockActivityRepo{store: store},
		&mockPairRepo{store: store},
		&mockVehicleRepo{store: store},
		&mockAllocationRepo{store: store},
		&mockDepartureRepo{store: store},
		&mockAuditRepo{store: store},
		mockTxManager{},
		schedules,
		ev,
		nil,
		logger,
	)
	return &departureFixture{store: store, evidence: ev, svc: svc}
}

func photoPair() EvidencePair {
	return EvidencePair{
		Front:    []byte("front-photo"),
		FrontExt: ".jpg",
		Rear:     []byte("rear-photo"),
		RearExt:  ".jpg",
	}
}

func wantRejection(t *testing.T, err error, code string) *Rejection {
	t.Helper()
	if err == nil {
		t.Fatalf("expected rejection %s, got nil error", code)
	}
	r, ok := AsRejection(err)
	if !ok {
		t.Fatalf("expected rejection %s, got %v", code, err)
	}
	if r.Code != code {
		t.Fatalf("expected rejection %s, got %s (%s)", code, r.Code, r.Message)
	}
	return r
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSubmitField_TemporalGates(t *testing.T) {
	f := newDepartureFixture()
	personID := uuid.New()
	activity := f.store.addActivity("PO-100", date(2024, 6, 1), date(2024, 6, 10), model.StatusWaiting)
	transporter := f.store.addTransporter("TR-A", "Alpha Haul")

	req := SubmitDepartureRequest{
		ActivityID:    activity.ID.String(),
		TransporterID: transporter.ID.String(),
		PlateNumber:   "B-1",
		DeliveryNote:  "DN-001",
	}

	early := time.Date(2024, 5, 20, 8, 0, 0, 0, time.UTC)
	_, err := f.svc.SubmitField(context.Background(), personID, early, req, photoPair())
	wantRejection(t, err, CodeTooEarly)

	late := time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC)
	_, err = f.svc.SubmitField(context.Background(), personID, late, req, photoPair())
	wantRejection(t, err, CodeTooLate)

	// Window edges are inclusive on both sides; the end date itself still
	// fails later gates, not the date range.
	edge := time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)
	_, err = f.svc.SubmitField(context.Background(), personID, edge, req, photoPair())
	wantRejection(t, err, CodeNoSchedule)
}

func TestSubmitField_CompletionGates(t *testing.T) {
	f := newDepartureFixture()
	personID := uuid.New()
	now := time.Date(2024, 6, 5, 8, 0, 0, 0, time.UTC)
	activity := f.store.addActivity("PO-100", date(2024, 6, 1), date(2024, 6, 30), model.StatusOnProgress)
	alpha := f.store.addTransporter("TR-A", "Alpha Haul")
	bravo := f.store.addTransporter("TR-B", "Bravo Haul")
	f.store.addSchedule(personID, now, model.Shift1)

	req := SubmitDepartureRequest{
		ActivityID:    activity.ID.String(),
		TransporterID: alpha.ID.String(),
		PlateNumber:   "B-1",
		DeliveryNote:  "DN-001",
	}

	// Every pair completed: the whole activity refuses departures.
	pair := f.store.addPair(activity.ID, alpha.ID, model.StatusCompleted)
	_, err := f.svc.SubmitField(context.Background(), personID, now, req, photoPair())
	wantRejection(t, err, CodeActivityClosed)

	// Another pair still open: only the completed transporter refuses.
	f.store.addPair(activity.ID, bravo.ID, model.StatusWaiting)
	_, err = f.svc.SubmitField(context.Background(), personID, now, req, photoPair())
	wantRejection(t, err, CodeTransporterClosed)

	// Reopened pair accepts again.
	pair.Status = model.StatusWaiting
	vehicle := f.store.addVehicle(alpha.ID, "B-1")
	f.store.addAllocation(pair.ID, vehicle.ID)
	if _, err := f.svc.SubmitField(context.Background(), personID, now, req, photoPair()); err != nil {
		t.Fatalf("expected success after reopen, got %v", err)
	}
}

func TestSubmitField_ShiftGate(t *testing.T) {
	f := newDepartureFixture()
	personID := uuid.New()
	now := time.Date(2024, 6, 5, 8, 0, 0, 0, time.UTC) // inside SHIFT_1
	activity := f.store.addActivity("PO-100", date(2024, 6, 1), date(2024, 6, 30), model.StatusWaiting)
	transporter := f.store.addTransporter("TR-A", "Alpha Haul")

	req := SubmitDepartureRequest{
		ActivityID:    activity.ID.String(),
		TransporterID: transporter.ID.String(),
		PlateNumber:   "B-1",
		DeliveryNote:  "DN-001",
	}

	// No schedule row at all.
	_, err := f.svc.SubmitField(context.Background(), personID, now, req, photoPair())
	wantRejection(t, err, CodeNoSchedule)

	// Assigned to a different window.
	f.store.addSchedule(personID, now, model.Shift2)
	_, err = f.svc.SubmitField(context.Background(), personID, now, req, photoPair())
	r := wantRejection(t, err, CodeShiftMismatch)
	if r.Detail["current_shift"] != model.Shift1 {
		t.Errorf("expected detail current_shift %s, got %v", model.Shift1, r.Detail["current_shift"])
	}

	// An OFF row blocks the day even alongside a matching window.
	f.store.addSchedule(personID, now, model.Shift1)
	f.store.addSchedule(personID, now, model.ShiftOff)
	_, err = f.svc.SubmitField(context.Background(), personID, now, req, photoPair())
	wantRejection(t, err, CodeNoSchedule)
}

func TestSubmitField_RejectsBackdatedDate(t *testing.T) {
	f := newDepartureFixture()
	personID := uuid.New()
	now := time.Date(2024, 6, 5, 8, 0, 0, 0, time.UTC)
	activity := f.store.addActivity("PO-100", date(2024, 6, 1), date(2024, 6, 30), model.StatusWaiting)
	transporter := f.store.addTransporter("TR-A", "Alpha Haul")

	req := SubmitDepartureRequest{
		ActivityID:    activity.ID.String(),
		TransporterID: transporter.ID.String(),
		PlateNumber:   "B-1",
		DeliveryNote:  "DN-001",
		Date:          "2024-06-04",
	}
	_, err := f.svc.SubmitField(context.Background(), personID, now, req, photoPair())
	wantRejection(t, err, CodeInvalidInput)
}

func TestSubmitField_EvidenceAndVehicleGates(t *testing.T) {
	f := newDepartureFixture()
	personID := uuid.New()
	now := time.Date(2024, 6, 5, 8, 0, 0, 0, time.UTC)
	activity := f.store.addActivity("PO-100", date(2024, 6, 1), date(2024, 6, 30), model.StatusWaiting)
	transporter := f.store.addTransporter("TR-A", "Alpha Haul")
	f.store.addSchedule(personID, now, model.Shift1)

	req := SubmitDepartureRequest{
		ActivityID:    activity.ID.String(),
		TransporterID: transporter.ID.String(),
		PlateNumber:   "B-1",
		DeliveryNote:  "DN-001",
	}

	// Missing rear photo.
	half := photoPair()
	half.Rear = nil
	_, err := f.svc.SubmitField(context.Background(), personID, now, req, half)
	wantRejection(t, err, CodeMissingEvidence)

	// Plate not in the registry.
	_, err = f.svc.SubmitField(context.Background(), personID, now, req, photoPair())
	wantRejection(t, err, CodeUnknownVehicle)
	if len(f.evidence.saved) != 0 {
		t.Errorf("no evidence should be stored before the vehicle resolves, got %v", f.evidence.saved)
	}

	// Registered but not allocated to this pair: the commit fails after the
	// evidence was already written, so both blobs must be retracted.
	vehicle := f.store.addVehicle(transporter.ID, "B-1")
	pair := f.store.addPair(activity.ID, transporter.ID, model.StatusWaiting)
	_, err = f.svc.SubmitField(context.Background(), personID, now, req, photoPair())
	wantRejection(t, err, CodeVehicleNotAllocated)
	if len(f.evidence.saved) != 2 || len(f.evidence.removed) != 2 {
		t.Fatalf("expected 2 saved and 2 retracted blobs, got saved=%v removed=%v", f.evidence.saved, f.evidence.removed)
	}

	f.store.addAllocation(pair.ID, vehicle.ID)
	if _, err := f.svc.SubmitField(context.Background(), personID, now, req, photoPair()); err != nil {
		t.Fatalf("expected success once allocated, got %v", err)
	}
}

func TestSubmitField_RetractsFirstBlobWhenSecondWriteFails(t *testing.T) {
	f := newDepartureFixture()
	personID := uuid.New()
	now := time.Date(2024, 6, 5, 8, 0, 0, 0, time.UTC)
	activity := f.store.addActivity("PO-100", date(2024, 6, 1), date(2024, 6, 30), model.StatusWaiting)
	transporter := f.store.addTransporter("TR-A", "Alpha Haul")
	vehicle := f.store.addVehicle(transporter.ID, "B-1")
	pair := f.store.addPair(activity.ID, transporter.ID, model.StatusWaiting)
	f.store.addAllocation(pair.ID, vehicle.ID)
	f.store.addSchedule(personID, now, model.Shift1)

	f.evidence.failAt = 2 // rear photo write fails

	req := SubmitDepartureRequest{
		ActivityID:    activity.ID.String(),
		TransporterID: transporter.ID.String(),
		PlateNumber:   "B-1",
		DeliveryNote:  "DN-001",
	}
	_, err := f.svc.SubmitField(context.Background(), personID, now, req, photoPair())
	if err == nil {
		t.Fatal("expected failure when the second photo write fails")
	}
	if _, ok := AsRejection(err); ok {
		t.Fatalf("store failure is not a gate rejection, got %v", err)
	}

	if len(f.evidence.saved) != 1 {
		t.Fatalf("expected exactly the first blob written, got %v", f.evidence.saved)
	}
	if len(f.evidence.removed) != 1 || f.evidence.removed[0] != f.evidence.saved[0] {
		t.Errorf("expected the first blob retracted, saved=%v removed=%v", f.evidence.saved, f.evidence.removed)
	}
	if len(f.store.departures) != 0 {
		t.Errorf("no record may be committed, got %d", len(f.store.departures))
	}
	if got := f.store.pairs[pair.ID].Status; got != model.StatusWaiting {
		t.Errorf("pair must stay WAITING, got %s", got)
	}
}

func TestSubmitField_TransitionsPairOnce(t *testing.T) {
	f := newDepartureFixture()
	personID := uuid.New()
	now := time.Date(2024, 6, 5, 16, 0, 0, 0, time.UTC) // SHIFT_2
	activity := f.store.addActivity("PO-100", date(2024, 6, 1), date(2024, 6, 30), model.StatusWaiting)
	transporter := f.store.addTransporter("TR-A", "Alpha Haul")
	vehicle := f.store.addVehicle(transporter.ID, "B-1")
	pair := f.store.addPair(activity.ID, transporter.ID, model.StatusWaiting)
	f.store.addAllocation(pair.ID, vehicle.ID)
	f.store.addSchedule(personID, now, model.Shift2)

	req := SubmitDepartureRequest{
		ActivityID:    activity.ID.String(),
		TransporterID: transporter.ID.String(),
		PlateNumber:   "B-1",
		DeliveryNote:  "DN-001",
		Remarks:       "first load",
	}

	res, err := f.svc.SubmitField(context.Background(), personID, now, req, photoPair())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if res.Shift != model.Shift2 {
		t.Errorf("expected resolved shift %s, got %s", model.Shift2, res.Shift)
	}
	if res.Date != "2024-06-05" {
		t.Errorf("expected departure date 2024-06-05, got %s", res.Date)
	}
	if res.EvidenceFront == "" || res.EvidenceRear == "" {
		t.Errorf("expected evidence keys on both photos, got %+v", res)
	}
	if got := f.store.pairs[pair.ID].Status; got != model.StatusOnProgress {
		t.Errorf("expected pair ON_PROGRESS after first departure, got %s", got)
	}

	// The second departure leaves the already-progressed pair untouched.
	if _, err := f.svc.SubmitField(context.Background(), personID, now, req, photoPair()); err != nil {
		t.Fatalf("second submit failed: %v", err)
	}
	if got := f.store.pairs[pair.ID].Status; got != model.StatusOnProgress {
		t.Errorf("expected pair still ON_PROGRESS, got %s", got)
	}
	if len(f.store.departures) != 2 {
		t.Errorf("expected 2 departure records, got %d", len(f.store.departures))
	}
	if len(f.store.audits) != 2 {
		t.Errorf("expected 2 audit rows, got %d", len(f.store.audits))
	}
}

func TestSubmitManual_AutoAllocates(t *testing.T) {
	f := newDepartureFixture()
	personID := uuid.New()
	activity := f.store.addActivity("PO-200", date(2024, 6, 1), date(2024, 6, 30), model.StatusWaiting)
	transporter := f.store.addTransporter("TR-A", "Alpha Haul")
	f.store.addVehicle(transporter.ID, "B-9")

	req := SubmitDepartureRequest{
		ActivityID:    activity.ID.String(),
		TransporterID: transporter.ID.String(),
		PlateNumber:   "B-9",
		DeliveryNote:  "DN-900",
		Shift:         model.Shift3,
		Date:          "2024-06-02",
	}

	// Shift is mandatory on the manual path, which skips the schedule gate.
	missing := req
	missing.Shift = ""
	_, err := f.svc.SubmitManual(context.Background(), personID, missing, nil)
	wantRejection(t, err, CodeInvalidInput)

	// No pair nor allocation exists yet; both are materialized on demand,
	// no evidence and no schedule required.
	res, err := f.svc.SubmitManual(context.Background(), personID, req, nil)
	if err != nil {
		t.Fatalf("manual submit failed: %v", err)
	}
	if res.Shift != model.Shift3 || res.Date != "2024-06-02" {
		t.Errorf("expected explicit shift and date kept, got %+v", res)
	}
	if len(f.store.pairs) != 1 || len(f.store.allocations) != 1 {
		t.Fatalf("expected pair and allocation materialized, got %d pairs %d allocations",
			len(f.store.pairs), len(f.store.allocations))
	}
	for _, p := range f.store.pairs {
		if p.Status != model.StatusOnProgress {
			t.Errorf("expected materialized pair ON_PROGRESS, got %s", p.Status)
		}
	}
}

func TestSubmitManual_StillRefusesCompletedTransporter(t *testing.T) {
	f := newDepartureFixture()
	personID := uuid.New()
	activity := f.store.addActivity("PO-200", date(2024, 6, 1), date(2024, 6, 30), model.StatusOnProgress)
	alpha := f.store.addTransporter("TR-A", "Alpha Haul")
	bravo := f.store.addTransporter("TR-B", "Bravo Haul")
	f.store.addVehicle(alpha.ID, "B-9")
	f.store.addPair(activity.ID, alpha.ID, model.StatusCompleted)
	f.store.addPair(activity.ID, bravo.ID, model.StatusOnProgress)

	req := SubmitDepartureRequest{
		ActivityID:    activity.ID.String(),
		TransporterID: alpha.ID.String(),
		PlateNumber:   "B-9",
		DeliveryNote:  "DN-901",
		Shift:         model.Shift1,
	}
	_, err := f.svc.SubmitManual(context.Background(), personID, req, nil)
	wantRejection(t, err, CodeTransporterClosed)
}

func TestDelete_RollsBackPairOnLastRecord(t *testing.T) {
	f := newDepartureFixture()
	personID := uuid.New()
	activity := f.store.addActivity("PO-300", date(2024, 6, 1), date(2024, 6, 30), model.StatusOnProgress)
	transporter := f.store.addTransporter("TR-A", "Alpha Haul")
	f.store.addVehicle(transporter.ID, "B-1")

	req := SubmitDepartureRequest{
		ActivityID:    activity.ID.String(),
		TransporterID: transporter.ID.String(),
		PlateNumber:   "B-1",
		DeliveryNote:  "DN-1",
		Shift:         model.Shift1,
	}
	first, err := f.svc.SubmitManual(context.Background(), personID, req, nil)
	if err != nil {
		t.Fatalf("seed submit failed: %v", err)
	}
	second, err := f.svc.SubmitManual(context.Background(), personID, req, nil)
	if err != nil {
		t.Fatalf("seed submit failed: %v", err)
	}

	var pairID uuid.UUID
	for id := range f.store.pairs {
		pairID = id
	}

	// Deleting one of two leaves the pair in progress.
	if err := f.svc.Delete(context.Background(), personID, first.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if got := f.store.pairs[pairID].Status; got != model.StatusOnProgress {
		t.Errorf("expected pair still ON_PROGRESS, got %s", got)
	}

	// Deleting the last record rolls the pair back to waiting.
	if err := f.svc.Delete(context.Background(), personID, second.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if got := f.store.pairs[pairID].Status; got != model.StatusWaiting {
		t.Errorf("expected pair rolled back to WAITING, got %s", got)
	}

	err = f.svc.Delete(context.Background(), personID, second.ID)
	wantRejection(t, err, CodeNotFound)
}

func TestEdit_ReparentsAcrossPairs(t *testing.T) {
	f := newDepartureFixture()
	personID := uuid.New()
	activity := f.store.addActivity("PO-400", date(2024, 6, 1), date(2024, 6, 30), model.StatusOnProgress)
	alpha := f.store.addTransporter("TR-A", "Alpha Haul")
	bravo := f.store.addTransporter("TR-B", "Bravo Haul")
	f.store.addVehicle(alpha.ID, "B-1")
	bravoTruck := f.store.addVehicle(bravo.ID, "B-2")

	seed := SubmitDepartureRequest{
		ActivityID:    activity.ID.String(),
		TransporterID: alpha.ID.String(),
		PlateNumber:   "B-1",
		DeliveryNote:  "DN-1",
		Shift:         model.Shift1,
		Date:          "2024-06-03",
	}
	created, err := f.svc.SubmitManual(context.Background(), personID, seed, nil)
	if err != nil {
		t.Fatalf("seed submit failed: %v", err)
	}
	var alphaPairID uuid.UUID
	for id := range f.store.pairs {
		alphaPairID = id
	}

	edit := EditDepartureRequest{
		TransporterID: bravo.ID.String(),
		PlateNumber:   "B-2",
		Shift:         model.Shift2,
		Date:          "2024-06-04",
		DeliveryNote:  "DN-1-fixed",
	}

	// Target pair does not exist yet: edit never materializes pairs.
	_, err = f.svc.Edit(context.Background(), personID, created.ID, edit)
	wantRejection(t, err, CodeVehicleNotAllocated)

	bravoPair := f.store.addPair(activity.ID, bravo.ID, model.StatusWaiting)
	_, err = f.svc.Edit(context.Background(), personID, created.ID, edit)
	wantRejection(t, err, CodeVehicleNotAllocated)

	f.store.addAllocation(bravoPair.ID, bravoTruck.ID)
	res, err := f.svc.Edit(context.Background(), personID, created.ID, edit)
	if err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if res.Shift != model.Shift2 || res.Date != "2024-06-04" || res.DeliveryNote != "DN-1-fixed" {
		t.Errorf("edited fields not applied: %+v", res)
	}

	// The record was this pair's only one, so the old pair rolls back and
	// the new pair progresses.
	if got := f.store.pairs[alphaPairID].Status; got != model.StatusWaiting {
		t.Errorf("expected old pair rolled back to WAITING, got %s", got)
	}
	if got := f.store.pairs[bravoPair.ID].Status; got != model.StatusOnProgress {
		t.Errorf("expected new pair ON_PROGRESS, got %s", got)
	}
}

func TestListByActivity_ReportsTransporterID(t *testing.T) {
	f := newDepartureFixture()
	personID := uuid.New()
	activity := f.store.addActivity("PO-500", date(2024, 6, 1), date(2024, 6, 30), model.StatusWaiting)
	transporter := f.store.addTransporter("TR-A", "Alpha Haul")
	f.store.addVehicle(transporter.ID, "B-1")

	seed := SubmitDepartureRequest{
		ActivityID:    activity.ID.String(),
		TransporterID: transporter.ID.String(),
		PlateNumber:   "B-1",
		DeliveryNote:  "DN-1",
		Shift:         model.Shift1,
		Date:          "2024-06-03",
	}
	if _, err := f.svc.SubmitManual(context.Background(), personID, seed, nil); err != nil {
		t.Fatalf("seed submit failed: %v", err)
	}

	listed, total, err := f.svc.ListByActivity(context.Background(), activity.ID.String(), 1, 20)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 || len(listed) != 1 {
		t.Fatalf("expected 1 record, got %d (total %d)", len(listed), total)
	}

	// The feed must name the Transporter, not the internal pair row.
	got := listed[0]
	if got.TransporterID != transporter.ID.String() {
		t.Errorf("expected transporter_id %s, got %s", transporter.ID, got.TransporterID)
	}
	for pairID := range f.store.pairs {
		if got.TransporterID == pairID.String() {
			t.Errorf("transporter_id leaked the pair id %s", pairID)
		}
	}
	if got.PlateNumber != "B-1" {
		t.Errorf("expected plate B-1, got %s", got.PlateNumber)
	}
}

func TestEdit_SamePairKeepsStatus(t *testing.T) {
	f := newDepartureFixture()
	personID := uuid.New()
	activity := f.store.addActivity("PO-400", date(2024, 6, 1), date(2024, 6, 30), model.StatusOnProgress)
	transporter := f.store.addTransporter("TR-A", "Alpha Haul")
	f.store.addVehicle(transporter.ID, "B-1")

	seed := SubmitDepartureRequest{
		ActivityID:    activity.ID.String(),
		TransporterID: transporter.ID.String(),
		PlateNumber:   "B-1",
		DeliveryNote:  "DN-1",
		Shift:         model.Shift1,
		Date:          "2024-06-03",
	}
	created, err := f.svc.SubmitManual(context.Background(), personID, seed, nil)
	if err != nil {
		t.Fatalf("seed submit failed: %v", err)
	}

	edit := EditDepartureRequest{
		TransporterID: transporter.ID.String(),
		PlateNumber:   "B-1",
		Shift:         model.Shift3,
		Date:          "2024-06-03",
		DeliveryNote:  "DN-1",
		Remarks:       "note corrected",
	}
	if _, err := f.svc.Edit(context.Background(), personID, created.ID, edit); err != nil {
		t.Fatalf("edit failed: %v", err)
	}

	if len(f.store.allocations) != 1 {
		t.Errorf("expected no duplicate allocation, got %d", len(f.store.allocations))
	}
	for _, p := range f.store.pairs {
		if p.Status != model.StatusOnProgress {
			t.Errorf("expected pair status unchanged, got %s", p.Status)
		}
	}
	recordID, _ := uuid.Parse(created.ID)
	if got := f.store.departures[recordID].Shift; got != model.Shift3 {
		t.Errorf("expected recorded shift updated to %s, got %s", model.Shift3, got)
	}
}
