package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	bookingx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/booking"
	contractx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/contract"
)

/* ------------------------------- Auth ---------------------------------- */

type registerRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	Phone        string `json:"phone"`
	ShopName     string `json:"nome_barbearia"`
	BotName      string `json:"nome_bot"`
	CalendarMode string `json:"tipo_agenda"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	mode := contractx.CalendarMode(strings.TrimSpace(req.CalendarMode))
	if mode == "" {
		mode = contractx.CalendarInternal
	}

	tenant := &contractx.Tenant{
		Email:        req.Email,
		Phone:        normalizePhone(req.Phone),
		ShopName:     req.ShopName,
		BotName:      req.BotName,
		CalendarMode: mode,
	}
	if err := s.tenants.Register(r.Context(), tenant, req.Password); err != nil {
		if errors.Is(err, contractx.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusConflict, "registration failed")
		return
	}

	log.Info().Str("tenant", tenant.Email).Str("shop", tenant.ShopName).Msg("tenant registered")
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "user": tenant})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	tenant, err := s.tenants.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "e-mail ou senha incorretos")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "user": tenant})
}

/* --------------------------- Google Calendar ---------------------------- */

func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if s.calendar == nil {
		writeError(w, http.StatusServiceUnavailable, "calendário externo não configurado")
		return
	}
	email := strings.TrimSpace(r.URL.Query().Get("email_user"))
	if email == "" {
		writeError(w, http.StatusBadRequest, "email_user is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"url": s.calendar.AuthURL(email)})
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if s.calendar == nil {
		writeError(w, http.StatusServiceUnavailable, "calendário externo não configurado")
		return
	}
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if err := s.calendar.Exchange(r.Context(), code); err != nil {
		log.Error().Err(err).Str("tenant", state).Msg("google oauth exchange failed")
		writeError(w, http.StatusBadGateway, "falha na autorização do Google")
		return
	}

	log.Info().Str("tenant", state).Msg("google calendar grant renewed")
	http.Redirect(w, r, s.cfg.DashboardURL+"/equipe?status=google_success", http.StatusFound)
}

/* ------------------------------ Dashboard ------------------------------- */

func (s *Server) handleGetPrices(w http.ResponseWriter, r *http.Request) {
	tenant, ok := s.tenantFromQuery(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, tenant.Prices)
}

type pricesUpdateRequest struct {
	OwnerEmail string                          `json:"email_dono"`
	Prices     map[string]contractx.PriceEntry `json:"precos"`
}

func (s *Server) handleUpdatePrices(w http.ResponseWriter, r *http.Request) {
	var req pricesUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Prices) == 0 {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := s.tenants.UpdatePrices(r.Context(), req.OwnerEmail, req.Prices); err != nil {
		writeError(w, http.StatusNotFound, "cliente não encontrado")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "message": "Preços atualizados!"})
}

type teamUpdateRequest struct {
	OwnerEmail string                 `json:"email_dono"`
	Team       []contractx.TeamMember `json:"equipe"`
}

func (s *Server) handleUpdateTeam(w http.ResponseWriter, r *http.Request) {
	var req teamUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := s.tenants.UpdateTeam(r.Context(), req.OwnerEmail, req.Team); err != nil {
		writeError(w, http.StatusNotFound, "cliente não encontrado")
		return
	}
	log.Info().Str("tenant", req.OwnerEmail).Int("members", len(req.Team)).Msg("team updated")
	writeJSON(w, http.StatusOK, map[string]any{"status": "success"})
}

func (s *Server) handleAgenda(w http.ResponseWriter, r *http.Request) {
	tenant, ok := s.tenantFromQuery(w, r)
	if !ok {
		return
	}
	appts, err := s.ledger.ListByTenant(r.Context(), tenant.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "erro ao listar agenda")
		return
	}
	writeJSON(w, http.StatusOK, appts)
}

func (s *Server) handleCancelAppointment(w http.ResponseWriter, r *http.Request) {
	tenant, ok := s.tenantFromQuery(w, r)
	if !ok {
		return
	}
	msg, err := s.booking.Cancel(r.Context(), tenant, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, contractx.ErrAppointmentNotFound) {
			writeError(w, http.StatusNotFound, "agendamento não encontrado")
			return
		}
		writeError(w, http.StatusInternalServerError, "erro ao cancelar agendamento")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "message": msg})
}

func (s *Server) handleCredits(w http.ResponseWriter, r *http.Request) {
	tenant, ok := s.tenantFromQuery(w, r)
	if !ok {
		return
	}
	balance, err := s.credits.Balance(r.Context(), tenant.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "erro ao consultar créditos")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"creditos_video": balance})
}

type calendarEventView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Start       string `json:"start"`
	Description string `json:"description"`
}

// handleCalendarEvents feeds the dashboard's calendar widget. Failures and a
// missing grant both degrade to an empty list; the widget has nothing useful
// to do with an error payload.
func (s *Server) handleCalendarEvents(w http.ResponseWriter, r *http.Request) {
	views := []calendarEventView{}
	if s.calendar != nil {
		events, err := s.calendar.ListUpcoming(r.Context(), contractx.PrimaryCalendarID, time.Now().UTC(), 20)
		if err != nil {
			log.Error().Err(err).Msg("calendar listing failed")
		}
		for _, ev := range events {
			views = append(views, calendarEventView{
				ID:          ev.ID,
				Title:       ev.Summary,
				Start:       ev.Start,
				Description: ev.Description,
			})
		}
	}
	writeJSON(w, http.StatusOK, views)
}

type videoGenRequest struct {
	OwnerEmail string `json:"email_user"`
	Prompt     string `json:"prompt"`
	Kind       string `json:"tipo"`
	ImageURL   string `json:"image_url"`
}

func (s *Server) handleGenerateVideo(w http.ResponseWriter, r *http.Request) {
	if s.video == nil {
		writeError(w, http.StatusServiceUnavailable, "geração de vídeo não configurada")
		return
	}

	var req videoGenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if strings.TrimSpace(req.OwnerEmail) == "" {
		writeError(w, http.StatusBadRequest, "usuário não identificado")
		return
	}

	videoURL, err := s.credits.Meter(r.Context(), req.OwnerEmail, 1, func(ctx context.Context) (string, error) {
		if req.Kind == "imagem" && req.ImageURL != "" {
			return s.video.FromImage(ctx, req.ImageURL, req.Prompt)
		}
		return s.video.FromText(ctx, req.Prompt)
	})
	if err != nil {
		if errors.Is(err, contractx.ErrInsufficientCredits) {
			writeError(w, http.StatusPaymentRequired, "Sem créditos. Recarregue no Studio.")
			return
		}
		log.Error().Err(err).Str("tenant", req.OwnerEmail).Msg("dashboard video generation failed")
		writeError(w, http.StatusInternalServerError, "erro ao gerar vídeo")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"video_url": videoURL})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	lines := []string{}
	if s.logs != nil {
		lines = s.logs.Tail(50)
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": lines})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	tenant, ok := s.tenantFromQuery(w, r)
	if !ok {
		return
	}

	appts, err := s.ledger.ListByTenant(r.Context(), tenant.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "erro ao calcular estatísticas")
		return
	}

	now := time.Now().In(tenant.Location())
	today := now.Format("2006-01-02")
	bookedToday := 0
	revenue := 0.0
	for _, a := range appts {
		if !strings.HasPrefix(a.Start, today) {
			continue
		}
		bookedToday++
		if entry, ok := tenant.Prices[strings.ToLower(a.Service)]; ok {
			revenue += entry.Price
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"agendamentos_hoje": bookedToday,
		"receita_estimada":  revenue,
		"creditos_video":    tenant.VideoCredits,
		"status_sistema":    "online",
		"proximo_horario":   nextSlot(appts, today, now.Format("2006-01-02T15:04:05")),
	})
}

// nextSlot picks today's first appointment that has not started yet. Starts
// use the same lexicographically ordered timestamp layout, so plain string
// comparison suffices.
func nextSlot(appts []contractx.Appointment, todayPrefix, notBefore string) string {
	for _, a := range appts {
		if !strings.HasPrefix(a.Start, todayPrefix) || a.Start < notBefore {
			continue
		}
		return bookingx.FormatStart(a.Start)
	}
	return ""
}

/* ------------------------------- Helpers -------------------------------- */

func (s *Server) tenantFromQuery(w http.ResponseWriter, r *http.Request) (*contractx.Tenant, bool) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return nil, false
	}
	tenant, err := s.tenants.GetByEmail(r.Context(), email)
	if err != nil {
		writeError(w, http.StatusNotFound, "cliente não encontrado")
		return nil, false
	}
	return tenant, true
}

// normalizePhone brings a free-form phone into the transport's sender id
// format, e.g. "whatsapp:+5511999999999".
func normalizePhone(phone string) string {
	clean := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(phone))
	if clean == "" {
		return ""
	}
	if strings.HasPrefix(clean, "whatsapp:") {
		return clean
	}
	if !strings.HasPrefix(clean, "+") {
		clean = "+" + clean
	}
	return "whatsapp:" + clean
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]any{"detail": detail})
}
