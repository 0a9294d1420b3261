package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/domain"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
)

// FixtureProvider keeps every record in memory. It backs development mode
// when no database is configured and is seeded with the demo clinic.
type FixtureProvider struct {
	mu sync.RWMutex

	clinics   map[string]domain.Clinic
	patients  map[string]domain.Patient
	staff     map[string]domain.Staff
	items     map[string]domain.TreatmentItem
	plans     map[string]domain.TreatmentPlan
	messages  []domain.ChatMessage
	summaries []domain.ChatSummary
	outbox    [][]byte
}

var _ ports.DataProvider = (*FixtureProvider)(nil)

// NewFixtureProvider returns an empty provider.
func NewFixtureProvider() *FixtureProvider {
	return &FixtureProvider{
		clinics:  make(map[string]domain.Clinic),
		patients: make(map[string]domain.Patient),
		staff:    make(map[string]domain.Staff),
		items:    make(map[string]domain.TreatmentItem),
		plans:    make(map[string]domain.TreatmentPlan),
	}
}

func (p *FixtureProvider) Clinics() ports.ClinicRepository               { return fixtureClinics{p} }
func (p *FixtureProvider) Patients() ports.PatientRepository             { return fixturePatients{p} }
func (p *FixtureProvider) Staff() ports.StaffRepository                  { return fixtureStaff{p} }
func (p *FixtureProvider) TreatmentItems() ports.TreatmentItemRepository { return fixtureItems{p} }
func (p *FixtureProvider) TreatmentPlans() ports.TreatmentPlanRepository { return fixturePlans{p} }
func (p *FixtureProvider) Chat() ports.ChatRepository                    { return fixtureChat{p} }

func (p *FixtureProvider) Ping(context.Context) error { return nil }

// OutboxPayloads returns the registration events recorded so far.
func (p *FixtureProvider) OutboxPayloads() [][]byte {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.outbox)
}

// Seed adds records directly. Later records replace earlier ones with the same id.
func (p *FixtureProvider) Seed(clinics []domain.Clinic, patients []domain.Patient, staff []domain.Staff, items []domain.TreatmentItem, plans []domain.TreatmentPlan) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range clinics {
		p.clinics[c.ID] = c
	}
	for _, pt := range patients {
		p.patients[pt.ID] = pt
	}
	for _, s := range staff {
		p.staff[s.ID] = s
	}
	for _, it := range items {
		p.items[it.ID] = it
	}
	for _, pl := range plans {
		p.plans[pl.ID] = clonePlan(pl)
	}
}

type fixtureClinics struct{ p *FixtureProvider }

func (r fixtureClinics) FindByID(_ context.Context, id string) (*domain.Clinic, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()
	c, ok := r.p.clinics[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

type fixturePatients struct{ p *FixtureProvider }

func (r fixturePatients) FindByCredentials(_ context.Context, patientNumber, passcode string) (*domain.Patient, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()
	for _, pt := range r.p.patients {
		if pt.PatientNumber == patientNumber && pt.CurrentPasscode == passcode {
			return &pt, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r fixturePatients) FindByID(_ context.Context, id string) (*domain.Patient, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()
	pt, ok := r.p.patients[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &pt, nil
}

func (r fixturePatients) ListByClinic(_ context.Context, clinicID string) ([]domain.Patient, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()
	out := make([]domain.Patient, 0)
	for _, pt := range r.p.patients {
		if pt.ClinicID == clinicID {
			out = append(out, pt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PatientNumber < out[j].PatientNumber })
	return out, nil
}

func (r fixturePatients) Create(_ context.Context, patient domain.Patient) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()
	for _, pt := range r.p.patients {
		if pt.ID == patient.ID || (pt.ClinicID == patient.ClinicID && pt.PatientNumber == patient.PatientNumber) {
			return fmt.Errorf("patient number %s: %w", patient.PatientNumber, domain.ErrConflict)
		}
	}
	r.p.patients[patient.ID] = patient
	return nil
}

func (r fixturePatients) UpdatePasscode(_ context.Context, id, passcode string, expiresAt, updatedAt time.Time) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()
	pt, ok := r.p.patients[id]
	if !ok {
		return domain.ErrNotFound
	}
	pt.CurrentPasscode = passcode
	pt.PasscodeExpiresAt = expiresAt
	pt.UpdatedAt = updatedAt
	r.p.patients[id] = pt
	return nil
}

type fixtureStaff struct{ p *FixtureProvider }

func (r fixtureStaff) FindByEmail(_ context.Context, email string) (*domain.Staff, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()
	for _, s := range r.p.staff {
		if s.Email == email {
			return &s, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r fixtureStaff) FindByID(_ context.Context, id string) (*domain.Staff, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()
	s, ok := r.p.staff[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (r fixtureStaff) ListByClinic(_ context.Context, clinicID string, approved bool) ([]domain.Staff, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()
	out := make([]domain.Staff, 0)
	for _, s := range r.p.staff {
		if s.ClinicID == clinicID && s.Approved == approved {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r fixtureStaff) Create(_ context.Context, staff domain.Staff, outboxPayload []byte) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()
	for _, s := range r.p.staff {
		if s.Email == staff.Email {
			return fmt.Errorf("staff email %s: %w", staff.Email, domain.ErrConflict)
		}
	}
	r.p.staff[staff.ID] = staff
	if outboxPayload != nil {
		r.p.outbox = append(r.p.outbox, outboxPayload)
	}
	return nil
}

func (r fixtureStaff) Approve(_ context.Context, id string, at time.Time) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()
	s, ok := r.p.staff[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Approved = true
	s.UpdatedAt = at
	r.p.staff[id] = s
	return nil
}

func (r fixtureStaff) DeletePending(_ context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()
	s, ok := r.p.staff[id]
	if !ok || s.Approved {
		return domain.ErrNotFound
	}
	delete(r.p.staff, id)
	return nil
}

type fixtureItems struct{ p *FixtureProvider }

func (r fixtureItems) ListByClinic(_ context.Context, clinicID string) ([]domain.TreatmentItem, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()
	out := make([]domain.TreatmentItem, 0)
	for _, it := range r.p.items {
		if it.ClinicID == clinicID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r fixtureItems) Count(_ context.Context, clinicID string) (int, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()
	n := 0
	for _, it := range r.p.items {
		if it.ClinicID == clinicID {
			n++
		}
	}
	return n, nil
}

func (r fixtureItems) Create(_ context.Context, items ...domain.TreatmentItem) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()
	for _, it := range items {
		if _, ok := r.p.items[it.ID]; ok {
			return fmt.Errorf("treatment item %s: %w", it.ID, domain.ErrConflict)
		}
	}
	for _, it := range items {
		r.p.items[it.ID] = it
	}
	return nil
}

func (r fixtureItems) SetActive(_ context.Context, id string, active bool, at time.Time) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()
	it, ok := r.p.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	it.Active = active
	it.UpdatedAt = at
	r.p.items[id] = it
	return nil
}

func (r fixtureItems) Delete(_ context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()
	if _, ok := r.p.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.p.items, id)
	return nil
}

type fixturePlans struct{ p *FixtureProvider }

func (r fixturePlans) FindByPatient(_ context.Context, patientID string) (*domain.TreatmentPlan, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()
	for _, pl := range r.p.plans {
		if pl.PatientID == patientID {
			out := clonePlan(pl)
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r fixturePlans) FindByID(_ context.Context, id string) (*domain.TreatmentPlan, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()
	pl, ok := r.p.plans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := clonePlan(pl)
	return &out, nil
}

func (r fixturePlans) Create(_ context.Context, plan domain.TreatmentPlan) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()
	for _, pl := range r.p.plans {
		if pl.ID == plan.ID || pl.PatientID == plan.PatientID {
			return fmt.Errorf("treatment plan for patient %s: %w", plan.PatientID, domain.ErrConflict)
		}
	}
	r.p.plans[plan.ID] = clonePlan(plan)
	return nil
}

func (r fixturePlans) Save(_ context.Context, plan domain.TreatmentPlan) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()
	if _, ok := r.p.plans[plan.ID]; !ok {
		return domain.ErrNotFound
	}
	r.p.plans[plan.ID] = clonePlan(plan)
	return nil
}

// clonePlan copies the item slice and drops joined catalog details, which are
// never stored.
func clonePlan(pl domain.TreatmentPlan) domain.TreatmentPlan {
	items := make([]domain.TreatmentPlanItem, len(pl.Items))
	copy(items, pl.Items)
	for i := range items {
		items[i].TreatmentItem = nil
	}
	pl.Items = items
	return pl
}

type fixtureChat struct{ p *FixtureProvider }

func (r fixtureChat) Recent(_ context.Context, patientID string, limit int) ([]domain.ChatMessage, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()
	out := make([]domain.ChatMessage, 0, limit)
	for i := len(r.p.messages) - 1; i >= 0 && len(out) < limit; i-- {
		if r.p.messages[i].PatientID == patientID {
			out = append(out, r.p.messages[i])
		}
	}
	return out, nil
}

func (r fixtureChat) Transcript(_ context.Context, patientID string) ([]domain.ChatMessage, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()
	out := make([]domain.ChatMessage, 0)
	for _, m := range r.p.messages {
		if m.PatientID == patientID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r fixtureChat) Append(_ context.Context, msg domain.ChatMessage) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()
	r.p.messages = append(r.p.messages, msg)
	return nil
}

func (r fixtureChat) Summaries(_ context.Context, patientID string) ([]domain.ChatSummary, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()
	out := make([]domain.ChatSummary, 0)
	for i := len(r.p.summaries) - 1; i >= 0; i-- {
		if r.p.summaries[i].PatientID == patientID {
			out = append(out, r.p.summaries[i])
		}
	}
	return out, nil
}

func (r fixtureChat) SaveSummary(_ context.Context, summary domain.ChatSummary) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()
	r.p.summaries = append(r.p.summaries, summary)
	return nil
}

// SeedDemoData loads the demo clinic: three patients whose passcodes are
// valid for an hour from now, three approved staff members, the base
// treatment catalog and two plans in progress.
func SeedDemoData(p *FixtureProvider, now time.Time) error {
	hash := func(pw string) (string, error) {
		b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
		return string(b), err
	}
	suzukiHash, err := hash("password123")
	if err != nil {
		return err
	}
	takahashiHash, err := hash("admin123")
	if err != nil {
		return err
	}

	const clinicID = "hachi-dental-onojo"
	day := 24 * time.Hour
	at := func(d time.Duration) *time.Time {
		t := now.Add(d)
		return &t
	}
	expires := now.Add(time.Hour)

	clinics := []domain.Clinic{
		{ID: clinicID, Name: "はち歯科", Location: "福岡県大野城市", CreatedAt: now, UpdatedAt: now},
	}

	patients := []domain.Patient{
		{ID: "patient-001", PatientNumber: "12345", Name: "田中太郎", BirthDate: "1985-05-15", ClinicID: clinicID, CurrentPasscode: "123456", PasscodeExpiresAt: expires, CreatedAt: now, UpdatedAt: now},
		{ID: "patient-002", PatientNumber: "54321", Name: "佐藤花子", BirthDate: "1990-08-22", ClinicID: clinicID, CurrentPasscode: "654321", PasscodeExpiresAt: expires, CreatedAt: now, UpdatedAt: now},
		{ID: "patient-003", PatientNumber: "11111", Name: "山田次郎", BirthDate: "1978-12-03", ClinicID: clinicID, CurrentPasscode: "111111", PasscodeExpiresAt: expires, CreatedAt: now, UpdatedAt: now},
	}

	staff := []domain.Staff{
		{ID: "staff-001", Name: "鈴木衛生士", Email: "suzuki@hachi-dental.com", ClinicID: clinicID, Role: domain.StaffRoleHygienist, Approved: true, PasswordHash: suzukiHash, CreatedAt: now, UpdatedAt: now},
		{ID: "staff-002", Name: "高橋管理者", Email: "takahashi@hachi-dental.com", ClinicID: clinicID, Role: domain.StaffRoleAdmin, Approved: true, PasswordHash: takahashiHash, CreatedAt: now, UpdatedAt: now},
		// Signs in through Google only.
		{ID: "staff-003", Name: "Google衛生士", Email: "test@gmail.com", ClinicID: clinicID, Role: domain.StaffRoleHygienist, Approved: true, CreatedAt: now, UpdatedAt: now},
	}

	item := func(id, internal, patient, category, desc string, order int) domain.TreatmentItem {
		return domain.TreatmentItem{
			ID: id, ClinicID: clinicID, InternalName: internal, PatientName: patient,
			Category: category, Description: desc, Order: order, Active: true,
			CreatedAt: now, UpdatedAt: now,
		}
	}
	items := []domain.TreatmentItem{
		item("treatment-001", "スケーリング", "歯石除去・クリーニング", "予防", "歯石を除去し、歯の表面をきれいにします", 1),
		item("treatment-002", "CR充填", "虫歯の詰め物治療", "治療", "虫歯部分を削って、白い詰め物で修復します", 2),
		item("treatment-003", "ルートプレーニング", "歯周病治療（深いクリーニング）", "歯周病", "歯周ポケット内の歯石や細菌を除去します", 3),
		item("treatment-004", "フッ素塗布", "フッ素塗布（虫歯予防）", "予防", "歯を強化し、虫歯を予防するフッ素を塗布します", 4),
		item("treatment-005", "インレー", "詰め物（インレー）", "治療", "大きな虫歯に対する詰め物治療です", 5),
	}

	plans := []domain.TreatmentPlan{
		{
			ID: "plan-001", PatientID: "patient-001", CreatedBy: "staff-001", StaffName: "鈴木衛生士",
			Notes:  "初回検診の結果、軽度の歯周病と虫歯が見つかりました。まずは歯石除去から始めて、その後虫歯治療を行います。定期的なメンテナンスも重要です。",
			Status: domain.PlanStatusActive,
			Items: []domain.TreatmentPlanItem{
				{ID: "plan-item-001", TreatmentItemID: "treatment-001", ToothNumber: "全体", EstimatedSessions: 2, ScheduledDate: at(-5 * day), Notes: "上下顎の歯石除去を2回に分けて実施", Completed: true, CompletedDate: at(-3 * day), Order: 1},
				{ID: "plan-item-002", TreatmentItemID: "treatment-002", ToothNumber: "16", EstimatedSessions: 1, ScheduledDate: at(-2 * day), Notes: "右上第一大臼歯の虫歯治療", Completed: true, CompletedDate: at(-1 * day), Order: 2},
				{ID: "plan-item-003", TreatmentItemID: "treatment-003", ToothNumber: "下顎前歯部", EstimatedSessions: 3, ScheduledDate: at(3 * day), Notes: "歯周ポケット4-5mmの部位", Order: 3},
				{ID: "plan-item-004", TreatmentItemID: "treatment-004", EstimatedSessions: 1, ScheduledDate: at(10 * day), Notes: "治療完了後の予防処置", Order: 4},
			},
			CreatedAt: now.Add(-7 * day), UpdatedAt: now,
		},
		{
			ID: "plan-002", PatientID: "patient-002", CreatedBy: "staff-001", StaffName: "鈴木衛生士",
			Notes:  "定期検診で虫歯が複数見つかりました。治療を段階的に進めていきます。",
			Status: domain.PlanStatusActive,
			Items: []domain.TreatmentPlanItem{
				{ID: "plan-item-005", TreatmentItemID: "treatment-001", ToothNumber: "全体", EstimatedSessions: 1, ScheduledDate: at(-2 * day), Notes: "定期クリーニング", Completed: true, CompletedDate: at(-2 * day), Order: 1},
				{ID: "plan-item-006", TreatmentItemID: "treatment-002", ToothNumber: "26", EstimatedSessions: 1, ScheduledDate: at(5 * day), Notes: "左上第一大臼歯の小さな虫歯", Order: 2},
				{ID: "plan-item-007", TreatmentItemID: "treatment-005", ToothNumber: "37", EstimatedSessions: 2, ScheduledDate: at(12 * day), Notes: "左下第二小臼歯の大きな虫歯", Order: 3},
			},
			CreatedAt: now.Add(-3 * day), UpdatedAt: now,
		},
	}

	p.Seed(clinics, patients, staff, items, plans)
	return nil
}
