package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	bookingx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/booking"
	contractx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/contract"
	creditx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/credit"
	dispatchx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/dispatch"
	orchestratorx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/orchestrator"
	sessionx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/session"
	logx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/pkg/logger"
)

type stubTenants struct{}

func (stubTenants) GetByPhone(ctx context.Context, phone string) (*contractx.Tenant, error) {
	return nil, contractx.ErrTenantNotFound
}

func (stubTenants) GetByEmail(ctx context.Context, email string) (*contractx.Tenant, error) {
	return nil, contractx.ErrTenantNotFound
}

func (stubTenants) Register(ctx context.Context, t *contractx.Tenant, password string) error {
	return nil
}

func (stubTenants) Authenticate(ctx context.Context, email, password string) (*contractx.Tenant, error) {
	return nil, contractx.ErrTenantNotFound
}

func (stubTenants) UpdatePrices(ctx context.Context, email string, prices map[string]contractx.PriceEntry) error {
	return nil
}

func (stubTenants) UpdateTeam(ctx context.Context, email string, team []contractx.TeamMember) error {
	return nil
}

func (stubTenants) UpdateHours(ctx context.Context, email string, hours contractx.OperatingHours) error {
	return nil
}

func (stubTenants) ActivatePlan(ctx context.Context, email, plan string) error {
	return nil
}

type stubLedger struct{}

func (stubLedger) Create(ctx context.Context, a *contractx.Appointment) error { return nil }

func (stubLedger) ListByTenant(ctx context.Context, tenantID string) ([]contractx.Appointment, error) {
	return nil, nil
}

func (stubLedger) Delete(ctx context.Context, tenantID, appointmentID string) (*contractx.Appointment, error) {
	return nil, contractx.ErrAppointmentNotFound
}

func (stubLedger) SetExternalRef(ctx context.Context, tenantID, appointmentID, eventID, calendarID string) error {
	return nil
}

type stubCredits struct {
	mu      sync.Mutex
	balance int
}

func (s *stubCredits) Debit(ctx context.Context, email string, n int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balance < n {
		return false, nil
	}
	s.balance -= n
	return true, nil
}

func (s *stubCredits) Credit(ctx context.Context, email string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance += n
	return nil
}

func (s *stubCredits) Balance(ctx context.Context, email string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance, nil
}

type stubVideo struct {
	url string
	err error
}

func (s *stubVideo) FromText(ctx context.Context, idea string) (string, error) {
	return s.url, s.err
}

func (s *stubVideo) FromImage(ctx context.Context, imageURL, motion string) (string, error) {
	return s.url, s.err
}

type stubChat struct {
	text string
	err  error
}

func (s *stubChat) Complete(ctx context.Context, req contractx.ChatRequest) (contractx.ChatResponse, error) {
	if s.err != nil {
		return contractx.ChatResponse{}, s.err
	}
	return contractx.ChatResponse{Text: s.text}, nil
}

func (s *stubChat) CompleteJSON(ctx context.Context, system, user string, out any) error {
	return errors.New("not used")
}

func newTestServer(t *testing.T, chat *stubChat) *Server {
	t.Helper()
	return newTestServerWith(t, chat, &stubCredits{}, nil)
}

func newTestServerWith(t *testing.T, chat *stubChat, store *stubCredits, video contractx.VideoGenerator) *Server {
	t.Helper()

	engine, err := dispatchx.NewEngine(chat)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	booking, err := bookingx.NewService(stubLedger{}, nil)
	if err != nil {
		t.Fatalf("booking: %v", err)
	}
	credits, err := creditx.NewLedger(store)
	if err != nil {
		t.Fatalf("credits: %v", err)
	}
	orch, err := orchestratorx.New(stubTenants{}, sessionx.NewMemoryStore(), engine, booking, credits, video, orchestratorx.Config{})
	if err != nil {
		t.Fatalf("orchestrator: %v", err)
	}

	srv, err := New(orch, stubTenants{}, stubLedger{}, booking, credits, nil, video, logx.NewRing(10), nil, Config{
		Addr:        ":0",
		TurnTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	return srv
}

func postWhatsApp(t *testing.T, srv *Server, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestWhatsAppWebhookRepliesWithTwiML(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubChat{text: "E aí mestre!"})

	rec := postWhatsApp(t, srv, url.Values{
		"From": {"whatsapp:+5511900000000"},
		"Body": {"oi"},
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/xml" {
		t.Fatalf("unexpected content type %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<Response>") || !strings.Contains(body, "E aí mestre!") {
		t.Fatalf("unexpected TwiML body: %s", body)
	}
	if strings.Contains(body, "<Media>") {
		t.Fatalf("plain reply must not carry media: %s", body)
	}
}

func TestWhatsAppWebhookAttachesMedia(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubChat{text: "Pronto: https://fal.media/files/abc/video.mp4"})

	rec := postWhatsApp(t, srv, url.Values{
		"From": {"whatsapp:+5511900000000"},
		"Body": {"oi"},
	})

	body := rec.Body.String()
	if !strings.Contains(body, "<Media>https://fal.media/files/abc/video.mp4</Media>") {
		t.Fatalf("expected media element in TwiML: %s", body)
	}
}

func TestWhatsAppWebhookMissingSender(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubChat{text: "ok"})

	rec := postWhatsApp(t, srv, url.Values{"Body": {"oi"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a missing sender, got %d", rec.Code)
	}
}

func TestWhatsAppWebhookTurnFailureApologizes(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubChat{err: errors.New("upstream down")})

	rec := postWhatsApp(t, srv, url.Values{
		"From": {"whatsapp:+5511900000000"},
		"Body": {"oi"},
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("failed turns still answer 200 TwiML, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "problema técnico") {
		t.Fatalf("expected apology body: %s", rec.Body.String())
	}
}

func postJSON(t *testing.T, srv *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestDashboardGenerateVideoDebitsAndReturnsURL(t *testing.T) {
	t.Parallel()

	store := &stubCredits{balance: 2}
	srv := newTestServerWith(t, &stubChat{text: "ok"}, store, &stubVideo{url: "https://fal.media/files/abc/video.mp4"})

	rec := postJSON(t, srv, "/api/dashboard/generate-video", `{"email_user":"dono@example.com","prompt":"barbearia neon"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "https://fal.media/files/abc/video.mp4") {
		t.Fatalf("expected video url in response: %s", rec.Body.String())
	}
	if balance, _ := store.Balance(context.Background(), "dono@example.com"); balance != 1 {
		t.Fatalf("expected one credit consumed, balance is %d", balance)
	}
}

func TestDashboardGenerateVideoWithoutCredits(t *testing.T) {
	t.Parallel()

	srv := newTestServerWith(t, &stubChat{text: "ok"}, &stubCredits{}, &stubVideo{url: "https://fal.media/x"})

	rec := postJSON(t, srv, "/api/dashboard/generate-video", `{"email_user":"dono@example.com","prompt":"ideia"}`)

	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 with exhausted balance, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Sem créditos") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestDashboardGenerateVideoRefundsOnFailure(t *testing.T) {
	t.Parallel()

	store := &stubCredits{balance: 3}
	srv := newTestServerWith(t, &stubChat{text: "ok"}, store, &stubVideo{err: errors.New("render exploded")})

	rec := postJSON(t, srv, "/api/dashboard/generate-video", `{"email_user":"dono@example.com","prompt":"ideia"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on render failure, got %d", rec.Code)
	}
	if balance, _ := store.Balance(context.Background(), "dono@example.com"); balance != 3 {
		t.Fatalf("expected the debit refunded, balance is %d", balance)
	}
}

func TestDashboardGenerateVideoUnconfigured(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubChat{text: "ok"})

	rec := postJSON(t, srv, "/api/dashboard/generate-video", `{"email_user":"dono@example.com","prompt":"ideia"}`)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a renderer, got %d", rec.Code)
	}
}

func TestDashboardGenerateVideoRequiresEmail(t *testing.T) {
	t.Parallel()

	srv := newTestServerWith(t, &stubChat{text: "ok"}, &stubCredits{balance: 1}, &stubVideo{url: "https://fal.media/x"})

	rec := postJSON(t, srv, "/api/dashboard/generate-video", `{"prompt":"ideia"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without email_user, got %d", rec.Code)
	}
}

func TestDashboardCalendarWithoutGrantIsEmptyList(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubChat{text: "ok"})

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/calendar", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Fatalf("expected an empty list, got %s", got)
	}
}

func TestNextSlotSkipsPastAppointments(t *testing.T) {
	t.Parallel()

	appts := []contractx.Appointment{
		{Start: "2025-10-25T09:00:00"},
		{Start: "2025-10-25T15:00:00"},
		{Start: "2025-10-26T10:00:00"},
	}

	if got := nextSlot(appts, "2025-10-25", "2025-10-25T12:00:00"); got != "25/10 às 15:00" {
		t.Fatalf("expected the first slot still ahead, got %q", got)
	}
	if got := nextSlot(appts, "2025-10-25", "2025-10-25T16:00:00"); got != "" {
		t.Fatalf("no slot remains today, got %q", got)
	}
	if got := nextSlot(appts, "2025-10-25", "2025-10-25T08:00:00"); got != "25/10 às 09:00" {
		t.Fatalf("expected the earliest slot of the day, got %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubChat{text: "ok"})

	req := httptest.NewRequest(http.MethodOptions, "/api/dashboard/prices", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}
}
