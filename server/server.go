// Package server exposes the messaging webhook and the thin administrative
// API around the orchestrator.
package server

import (
	"context"
	"encoding/xml"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	bookingx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/booking"
	contractx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/contract"
	creditx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/credit"
	orchestratorx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/orchestrator"
	gcalx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/pkg/gcal"
	logx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/pkg/logger"
)

type Config struct {
	Addr         string        `split_words:"true" default:":8000"`
	TurnTimeout  time.Duration `envconfig:"TURN_TIMEOUT" split_words:"true" default:"90s"`
	DashboardURL string        `envconfig:"DASHBOARD_URL" split_words:"true" default:"http://localhost:5173"`
}

type Server struct {
	orch     *orchestratorx.Orchestrator
	tenants  contractx.TenantRepository
	ledger   contractx.AppointmentRepository
	booking  *bookingx.Service
	credits  *creditx.Ledger
	calendar *gcalx.Service
	video    contractx.VideoGenerator
	logs     *logx.Ring
	payments *Payments
	cfg      Config

	router chi.Router
}

func New(
	orch *orchestratorx.Orchestrator,
	tenants contractx.TenantRepository,
	ledger contractx.AppointmentRepository,
	booking *bookingx.Service,
	credits *creditx.Ledger,
	calendar *gcalx.Service,
	video contractx.VideoGenerator,
	logs *logx.Ring,
	payments *Payments,
	cfg Config,
) (*Server, error) {
	if orch == nil {
		return nil, errors.New("orchestrator is required")
	}
	if tenants == nil {
		return nil, errors.New("tenant repository is required")
	}
	if booking == nil {
		return nil, errors.New("booking service is required")
	}
	if credits == nil {
		return nil, errors.New("credit ledger is required")
	}

	s := &Server{
		orch:     orch,
		tenants:  tenants,
		ledger:   ledger,
		booking:  booking,
		credits:  credits,
		calendar: calendar,
		video:    video,
		logs:     logs,
		payments: payments,
		cfg:      cfg,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(corsAllowAll)

	r.Post("/whatsapp", s.handleWhatsApp)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.Get("/auth/google/login", s.handleGoogleLogin)
		r.Get("/auth/google/callback", s.handleGoogleCallback)

		r.Get("/dashboard/prices", s.handleGetPrices)
		r.Post("/dashboard/prices", s.handleUpdatePrices)
		r.Post("/dashboard/team", s.handleUpdateTeam)
		r.Get("/dashboard/agenda", s.handleAgenda)
		r.Delete("/dashboard/agenda/{id}", s.handleCancelAppointment)
		r.Get("/dashboard/credits", s.handleCredits)
		r.Get("/dashboard/calendar", s.handleCalendarEvents)
		r.Post("/dashboard/generate-video", s.handleGenerateVideo)
		r.Get("/dashboard/logs", s.handleLogs)
		r.Get("/dashboard/stats", s.handleStats)

		if s.payments != nil {
			r.Post("/payment/subscription", s.payments.handleSubscription)
			r.Post("/payment/buy-credits", s.payments.handleBuyCredits)
			r.Post("/webhook/stripe", s.payments.handleWebhook)
		}
	})

	return r
}

func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe runs the HTTP server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

/* ------------------------------ WhatsApp ------------------------------ */

type twimlResponse struct {
	XMLName xml.Name     `xml:"Response"`
	Message twimlMessage `xml:"Message"`
}

type twimlMessage struct {
	Body  string `xml:"Body"`
	Media string `xml:"Media,omitempty"`
}

// handleWhatsApp is the Twilio-style inbound webhook: one form POST per
// message, one TwiML document per reply.
func (s *Server) handleWhatsApp(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	sender := r.PostFormValue("From")
	body := r.PostFormValue("Body")
	if sender == "" {
		http.Error(w, "sender missing", http.StatusBadRequest)
		return
	}

	mediaURL := ""
	if n, _ := strconv.Atoi(r.PostFormValue("NumMedia")); n > 0 {
		mediaURL = r.PostFormValue("MediaUrl0")
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.TurnTimeout)
	defer cancel()

	reply, err := s.orch.HandleMessage(ctx, sender, body, mediaURL)
	if err != nil {
		// Provider and backend failures are scoped to this one turn; the
		// sender gets a generic apology rather than silence.
		log.Error().Err(err).Str("sender", sender).Msg("turn failed")
		writeTwiML(w, twimlResponse{Message: twimlMessage{Body: "Desculpe, tive um problema técnico agora. Tenta de novo em instantes?"}})
		return
	}

	writeTwiML(w, twimlResponse{Message: twimlMessage{Body: reply.Text, Media: reply.MediaURL}})
}

func writeTwiML(w http.ResponseWriter, resp twimlResponse) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_ = xml.NewEncoder(w).Encode(resp)
}

func corsAllowAll(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
