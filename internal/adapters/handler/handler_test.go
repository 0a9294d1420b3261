package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/adapters/completion"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/adapters/identity"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/adapters/middleware"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/adapters/repository"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/adapters/session"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/domain"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/services"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/metrics"
	"github.com/AchilleasB/planbee/clinic-portal-service/test/mocks"
)

type testServer struct {
	t        *testing.T
	router   http.Handler
	provider *repository.FixtureProvider
	redis    *mocks.MockRedisClient
}

func newTestServer(t *testing.T, completionClient ports.CompletionClient) *testServer {
	t.Helper()

	log := zap.NewNop()
	collector := metrics.NewCollector("planbee_test")

	provider := repository.NewFixtureProvider()
	if err := repository.SeedDemoData(provider, time.Now()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	redisClient := mocks.NewMockRedisClient()

	sessions := services.NewSessions(session.NewMemoryStore(), time.Hour)
	patients := services.NewPatientService(provider.Patients(), collector, log)

	h := Handlers{
		Auth: NewAuthHandler(
			services.NewPatientAuthService(provider.Patients(), sessions, collector, log),
			services.NewStaffAuthService(provider.Staff(), identity.NewFixtureVerifier(""), sessions, collector, log),
			sessions, false, log,
		),
		Registration: NewRegistrationHandler(services.NewRegistrationService(provider.Staff(), mocks.TestClinicID, log), log),
		Patients:     NewPatientHandler(patients, log),
		Catalog:      NewCatalogHandler(services.NewCatalogService(provider.TreatmentItems(), collector, log), log),
		Plans: NewPlanHandler(
			services.NewTreatmentPlanService(provider.TreatmentPlans(), provider.Patients(), provider.TreatmentItems(), log),
			patients, log,
		),
		Chat: NewChatHandler(
			services.NewChatService(provider.Chat(), completionClient, services.DefaultChatHistoryLimit, collector, log),
			patients, log,
		),
		Health: NewHealthHandler(provider, redisClient, "test", log),
	}

	return &testServer{
		t:        t,
		router:   NewRouter(h, middleware.NewSessionMiddleware(sessions, log), collector, []string{"*"}),
		provider: provider,
		redis:    redisClient,
	}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(path string, body any) LoginResponse {
	s.t.Helper()
	rec := s.do(http.MethodPost, path, "", body)
	if rec.Code != http.StatusOK {
		s.t.Fatalf("login %s: expected 200, got %d: %s", path, rec.Code, rec.Body.String())
	}
	var resp LoginResponse
	decode(s.t, rec, &resp)
	return resp
}

func (s *testServer) patientToken() string {
	return s.login("/patient/login", map[string]string{"patient_number": "12345", "passcode": "123456"}).Token
}

func (s *testServer) hygienistToken() string {
	return s.login("/staff/login", map[string]string{"email": "suzuki@hachi-dental.com", "password": "password123"}).Token
}

func (s *testServer) adminToken() string {
	return s.login("/staff/login", map[string]string{"email": "takahashi@hachi-dental.com", "password": "admin123"}).Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestPatientLogin_RotatesPasscode(t *testing.T) {
	s := newTestServer(t, completion.CannedClient{})

	resp := s.login("/patient/login", map[string]string{"patient_number": "12345", "passcode": "123456"})
	if resp.Token == "" {
		t.Fatal("expected session token")
	}
	if resp.Patient == nil || resp.Patient.CurrentPasscode == "123456" {
		t.Fatal("expected a rotated passcode in the response")
	}
	if resp.User.Role != domain.RolePatient || resp.User.PatientID != "patient-001" {
		t.Errorf("unexpected user %+v", resp.User)
	}

	rec := s.do(http.MethodPost, "/patient/login", "", map[string]string{"patient_number": "12345", "passcode": "123456"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("old passcode: expected 401, got %d", rec.Code)
	}

	rec = s.do(http.MethodPost, "/patient/login", "", map[string]string{"patient_number": "12345", "passcode": resp.Patient.CurrentPasscode})
	if rec.Code != http.StatusOK {
		t.Errorf("new passcode: expected 200, got %d", rec.Code)
	}
}

func TestPatientLogin_ValidationErrors(t *testing.T) {
	s := newTestServer(t, completion.CannedClient{})

	rec := s.do(http.MethodPost, "/patient/login", "", map[string]string{"patient_number": "123", "passcode": "abc"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var resp ErrorResponse
	decode(t, rec, &resp)
	fields := map[string]bool{}
	for _, f := range resp.Fields {
		fields[f.Field] = true
	}
	if !fields["patient_number"] || !fields["passcode"] {
		t.Errorf("expected both fields reported, got %+v", resp.Fields)
	}
}

func TestMalformedBody(t *testing.T) {
	s := newTestServer(t, completion.CannedClient{})

	req := httptest.NewRequest(http.MethodPost, "/staff/login", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestStaffLogin_GenericFailure(t *testing.T) {
	s := newTestServer(t, completion.CannedClient{})

	wrongPassword := s.do(http.MethodPost, "/staff/login", "", map[string]string{"email": "suzuki@hachi-dental.com", "password": "nope123"})
	unknownEmail := s.do(http.MethodPost, "/staff/login", "", map[string]string{"email": "nobody@hachi-dental.com", "password": "nope123"})

	if wrongPassword.Code != http.StatusUnauthorized || unknownEmail.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401s, got %d and %d", wrongPassword.Code, unknownEmail.Code)
	}
	if wrongPassword.Body.String() != unknownEmail.Body.String() {
		t.Error("failure bodies must not reveal which check failed")
	}
}

func TestChat(t *testing.T) {
	t.Run("patient chats about own record", func(t *testing.T) {
		s := newTestServer(t, mocks.NewMockCompletionClient("歯磨きを丁寧に行いましょう。"))
		token := s.patientToken()

		rec := s.do(http.MethodPost, "/api/chat", token, map[string]string{"message": "歯が痛い", "patientId": "patient-001"})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp ChatResponse
		decode(t, rec, &resp)
		if resp.Response != "歯磨きを丁寧に行いましょう。" {
			t.Errorf("unexpected reply %q", resp.Response)
		}

		rec = s.do(http.MethodGet, "/patient/chat", token, nil)
		var transcript []domain.ChatMessage
		decode(t, rec, &transcript)
		if len(transcript) != 2 || transcript[0].Role != domain.ChatRoleUser || transcript[1].Role != domain.ChatRoleAssistant {
			t.Errorf("unexpected transcript %+v", transcript)
		}
	})

	t.Run("completion outage answers with fallback", func(t *testing.T) {
		failing := mocks.NewMockCompletionClient("")
		failing.CompleteError = errors.New("upstream 500")
		s := newTestServer(t, failing)

		rec := s.do(http.MethodPost, "/api/chat", s.patientToken(), map[string]string{"message": "歯が痛い", "patientId": "patient-001"})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var resp ChatResponse
		decode(t, rec, &resp)
		if resp.Response != services.ChatFallbackReply {
			t.Errorf("expected fallback reply, got %q", resp.Response)
		}
	})

	t.Run("patient cannot post for someone else", func(t *testing.T) {
		s := newTestServer(t, completion.CannedClient{})
		rec := s.do(http.MethodPost, "/api/chat", s.patientToken(), map[string]string{"message": "hi", "patientId": "patient-002"})
		if rec.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("missing message", func(t *testing.T) {
		s := newTestServer(t, completion.CannedClient{})
		rec := s.do(http.MethodPost, "/api/chat", s.patientToken(), map[string]string{"message": " ", "patientId": "patient-001"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("requires session", func(t *testing.T) {
		s := newTestServer(t, completion.CannedClient{})
		rec := s.do(http.MethodPost, "/api/chat", "", map[string]string{"message": "hi", "patientId": "patient-001"})
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("staff reads transcript and generates summary", func(t *testing.T) {
		s := newTestServer(t, completion.CannedClient{})
		s.do(http.MethodPost, "/api/chat", s.patientToken(), map[string]string{"message": "歯が痛い", "patientId": "patient-001"})
		staff := s.hygienistToken()

		rec := s.do(http.MethodGet, "/staff/patients/patient-001/chat", staff, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("transcript: expected 200, got %d", rec.Code)
		}

		rec = s.do(http.MethodPost, "/staff/patients/patient-001/summaries", staff, nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("summary: expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		var summary domain.ChatSummary
		decode(t, rec, &summary)
		if summary.SummaryText != completion.CannedSummaryReply || summary.GeneratedBy != "staff-001" {
			t.Errorf("unexpected summary %+v", summary)
		}

		rec = s.do(http.MethodGet, "/staff/patients/patient-001/summaries", staff, nil)
		var summaries []domain.ChatSummary
		decode(t, rec, &summaries)
		if len(summaries) != 1 {
			t.Errorf("expected 1 summary, got %d", len(summaries))
		}
	})

	t.Run("summary of empty transcript", func(t *testing.T) {
		s := newTestServer(t, completion.CannedClient{})
		rec := s.do(http.MethodPost, "/staff/patients/patient-003/summaries", s.hygienistToken(), nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestPatientTreatmentPlan(t *testing.T) {
	s := newTestServer(t, completion.CannedClient{})

	rec := s.do(http.MethodGet, "/patient/treatment-plan", s.patientToken(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var view domain.PlanView
	decode(t, rec, &view)
	if view.Total != 4 || view.Completed != 2 || view.Progress != 50 {
		t.Errorf("unexpected progress %d/%d = %d%%", view.Completed, view.Total, view.Progress)
	}
	if len(view.Upcoming) != 2 || view.Upcoming[0].ID != "plan-item-003" {
		t.Errorf("unexpected upcoming %+v", view.Upcoming)
	}
	if view.Plan.Items[0].TreatmentItem == nil {
		t.Error("expected catalog item joined into plan items")
	}

	rec = s.do(http.MethodGet, "/patient/treatment-plan", s.hygienistToken(), nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("staff on patient route: expected 403, got %d", rec.Code)
	}
}

func TestStaffTreatmentPlan(t *testing.T) {
	s := newTestServer(t, completion.CannedClient{})
	token := s.hygienistToken()

	rec := s.do(http.MethodGet, "/staff/patients/patient-003/treatment-plan", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before a plan exists, got %d", rec.Code)
	}

	input := domain.PlanInput{
		Title: "初期治療",
		Items: []domain.PlanItemInput{
			{TreatmentItemID: "treatment-001", EstimatedSessions: 1},
			{TreatmentItemID: "treatment-004"},
		},
	}
	rec = s.do(http.MethodPost, "/staff/patients/patient-003/treatment-plan", token, input)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var plan domain.TreatmentPlan
	decode(t, rec, &plan)
	if plan.Status != domain.PlanStatusDraft || len(plan.Items) != 2 {
		t.Fatalf("unexpected plan %+v", plan)
	}

	rec = s.do(http.MethodPost, "/staff/patients/patient-003/treatment-plan", token, input)
	if rec.Code != http.StatusConflict {
		t.Errorf("second plan: expected 409, got %d", rec.Code)
	}

	input.Status = domain.PlanStatusActive
	input.Items[0].Completed = true
	rec = s.do(http.MethodPut, "/staff/treatment-plans/"+plan.ID, token, input)
	if rec.Code != http.StatusOK {
		t.Fatalf("save: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(http.MethodGet, "/staff/patients/patient-003/treatment-plan", token, nil)
	var view domain.PlanView
	decode(t, rec, &view)
	if view.Progress != 50 || view.Plan.Status != domain.PlanStatusActive {
		t.Errorf("unexpected view progress=%d status=%s", view.Progress, view.Plan.Status)
	}

	input.Status = "archived"
	rec = s.do(http.MethodPut, "/staff/treatment-plans/"+plan.ID, token, input)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown status: expected 400, got %d", rec.Code)
	}
}

func TestStaffPatients(t *testing.T) {
	s := newTestServer(t, completion.CannedClient{})
	token := s.hygienistToken()

	rec := s.do(http.MethodGet, "/staff/patients?search=%E7%94%B0%E4%B8%AD", token, nil) // 田中
	var found []domain.Patient
	decode(t, rec, &found)
	if len(found) != 1 || found[0].ID != "patient-001" {
		t.Fatalf("unexpected search result %+v", found)
	}

	rec = s.do(http.MethodPost, "/staff/patients", token, map[string]string{"name": "新規患者"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created domain.Patient
	decode(t, rec, &created)
	if len(created.PatientNumber) != 5 || len(created.CurrentPasscode) != 6 {
		t.Errorf("expected generated credentials, got %+v", created)
	}

	rec = s.do(http.MethodPost, "/staff/patients", token, map[string]string{"name": "重複", "patient_number": "12345"})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate number: expected 409, got %d", rec.Code)
	}

	rec = s.do(http.MethodPost, "/staff/patients/patient-002/passcode", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d", rec.Code)
	}
	var refreshed domain.Patient
	decode(t, rec, &refreshed)
	if refreshed.CurrentPasscode == "654321" {
		t.Error("expected a new passcode")
	}

	rec = s.do(http.MethodGet, "/staff/patients", s.patientToken(), nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("patient on staff route: expected 403, got %d", rec.Code)
	}
}

func TestCatalogCSV(t *testing.T) {
	s := newTestServer(t, completion.CannedClient{})
	token := s.hygienistToken()

	importCSV := func(contentType string, body io.Reader) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/staff/treatment-items/import", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("raw body", func(t *testing.T) {
		rec := importCSV("text/csv", strings.NewReader("internal_name,patient_name,category\nPMTC,クリーニング,予防\n,名前だけ,\n"))
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp ImportResponse
		decode(t, rec, &resp)
		if resp.Count != 1 || resp.Items[0].Order != 6 {
			t.Errorf("unexpected import %+v", resp)
		}
	})

	t.Run("multipart upload", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "items.csv")
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write([]byte("internal_name,patient_name\nImp,インプラント\n"))
		_ = mw.Close()

		rec := importCSV(mw.FormDataContentType(), &buf)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("missing columns", func(t *testing.T) {
		rec := importCSV("text/csv", strings.NewReader("name,category\nx,y\n"))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		var resp ErrorResponse
		decode(t, rec, &resp)
		if len(resp.Fields) != 2 {
			t.Errorf("expected both missing columns reported, got %+v", resp.Fields)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		rec := importCSV("text/csv", strings.NewReader("internal_name,patient_name\n"))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("unsupported content type", func(t *testing.T) {
		rec := importCSV("application/json", strings.NewReader("{}"))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("export", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/staff/treatment-items/export", token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
			t.Errorf("unexpected Content-Disposition %q", cd)
		}
		if !strings.HasPrefix(rec.Body.String(), "internal_name,patient_name,category,description\n") {
			t.Errorf("unexpected export header: %q", strings.SplitN(rec.Body.String(), "\n", 2)[0])
		}
	})

	t.Run("template", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/staff/treatment-items/template", token, nil)
		lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
		if len(lines) != 6 {
			t.Errorf("expected header and 5 rows, got %d lines", len(lines))
		}
	})
}

func TestCatalogCRUD(t *testing.T) {
	s := newTestServer(t, completion.CannedClient{})
	token := s.hygienistToken()

	rec := s.do(http.MethodPost, "/staff/treatment-items", token, map[string]string{"internal_name": "PMTC", "patient_name": "クリーニング"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", rec.Code)
	}
	var item domain.TreatmentItem
	decode(t, rec, &item)

	rec = s.do(http.MethodPost, "/staff/treatment-items/"+item.ID+"/toggle", token, nil)
	var toggled domain.TreatmentItem
	decode(t, rec, &toggled)
	if toggled.Active {
		t.Error("expected item deactivated")
	}

	rec = s.do(http.MethodDelete, "/staff/treatment-items/"+item.ID, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete: expected 204, got %d", rec.Code)
	}
	rec = s.do(http.MethodDelete, "/staff/treatment-items/"+item.ID, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete: expected 404, got %d", rec.Code)
	}
}

func TestRegistrationAndApproval(t *testing.T) {
	s := newTestServer(t, completion.CannedClient{})

	rec := s.do(http.MethodPost, "/staff/register", "", map[string]string{
		"name": "新人衛生士", "email": "new@hachi-dental.com", "password": "secret1", "confirm_password": "secret1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var reg RegistrationResponse
	decode(t, rec, &reg)
	if len(s.provider.OutboxPayloads()) != 1 {
		t.Error("expected registration event queued in outbox")
	}

	rec = s.do(http.MethodPost, "/staff/login", "", map[string]string{"email": "new@hachi-dental.com", "password": "secret1"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unapproved login: expected 401, got %d", rec.Code)
	}

	if rec := s.do(http.MethodGet, "/admin/staff/pending", s.hygienistToken(), nil); rec.Code != http.StatusForbidden {
		t.Errorf("hygienist on admin route: expected 403, got %d", rec.Code)
	}

	admin := s.adminToken()
	rec = s.do(http.MethodGet, "/admin/staff/pending", admin, nil)
	var pending []domain.Staff
	decode(t, rec, &pending)
	if len(pending) != 1 || pending[0].ID != reg.Staff.ID {
		t.Fatalf("unexpected pending list %+v", pending)
	}

	if rec := s.do(http.MethodPost, "/admin/staff/"+reg.Staff.ID+"/approve", admin, nil); rec.Code != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d", rec.Code)
	}
	s.login("/staff/login", map[string]string{"email": "new@hachi-dental.com", "password": "secret1"})

	if rec := s.do(http.MethodPost, "/admin/staff/"+reg.Staff.ID+"/reject", admin, nil); rec.Code != http.StatusConflict {
		t.Errorf("reject approved staff: expected 409, got %d", rec.Code)
	}
}

func TestGoogleLogin(t *testing.T) {
	s := newTestServer(t, completion.CannedClient{})

	rec := s.do(http.MethodGet, "/auth/google/login", "", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	location := rec.Header().Get("Location")
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 || cookies[0].Name != oauthStateCookie {
		t.Fatal("expected state cookie")
	}

	t.Run("state mismatch", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=mock&state=forged", nil)
		req.AddCookie(cookies[0])
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("valid callback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, location, nil)
		req.AddCookie(cookies[0])
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp LoginResponse
		decode(t, rec, &resp)
		if resp.Staff == nil || resp.Staff.ID != "staff-003" {
			t.Errorf("unexpected staff %+v", resp.Staff)
		}
	})
}

func TestLogoutAndMe(t *testing.T) {
	s := newTestServer(t, completion.CannedClient{})
	token := s.hygienistToken()

	rec := s.do(http.MethodGet, "/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", rec.Code)
	}

	if rec := s.do(http.MethodPost, "/logout", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/me", token, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("after logout: expected 401, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, completion.CannedClient{})

	if rec := s.do(http.MethodGet, "/health/live", "", nil); rec.Code != http.StatusOK {
		t.Errorf("live: expected 200, got %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/health/ready", "", nil); rec.Code != http.StatusOK {
		t.Errorf("ready: expected 200, got %d", rec.Code)
	}

	s.redis.PingError = errors.New("connection refused")
	rec := s.do(http.MethodGet, "/health/ready", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready with redis down: expected 503, got %d", rec.Code)
	}
	var resp HealthResponse
	decode(t, rec, &resp)
	if resp.Checks["redis"].Status != "DOWN" || resp.Checks["database"].Status != "UP" {
		t.Errorf("unexpected checks %+v", resp.Checks)
	}

	if rec := s.do(http.MethodGet, "/metrics", "", nil); !strings.Contains(rec.Body.String(), "planbee_test_http_requests_total") {
		t.Error("expected request metrics exposed")
	}
}
