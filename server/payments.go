package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v76"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"

	contractx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/contract"
)

const creditsPerPurchase = 10

type PaymentsConfig struct {
	APIKey              string `envconfig:"API_KEY" split_words:"true"`
	SubscriptionPriceID string `envconfig:"PRICE_ID_SUBSCRIPTION" split_words:"true"`
	CreditsPriceID      string `envconfig:"PRICE_ID_CREDITS" split_words:"true"`
	WebhookSecret       string `envconfig:"WEBHOOK_SECRET" split_words:"true"`
	DashboardURL        string `envconfig:"DASHBOARD_URL" split_words:"true" default:"http://localhost:5173"`
}

// Payments wires Stripe checkout for the bot subscription and video credit
// top-ups. Without an API key it runs in simulation mode: purchases apply
// immediately, which keeps local development off the Stripe dashboard.
type Payments struct {
	tenants contractx.TenantRepository
	credits contractx.CreditStore
	cfg     PaymentsConfig
}

func NewPayments(tenants contractx.TenantRepository, credits contractx.CreditStore, cfg PaymentsConfig) *Payments {
	if strings.TrimSpace(cfg.APIKey) != "" {
		stripe.Key = strings.TrimSpace(cfg.APIKey)
	}
	return &Payments{tenants: tenants, credits: credits, cfg: cfg}
}

func (p *Payments) simulated() bool {
	return strings.TrimSpace(p.cfg.APIKey) == ""
}

type checkoutRequest struct {
	Email string `json:"email"`
}

func (p *Payments) handleSubscription(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if p.simulated() || p.cfg.SubscriptionPriceID == "" {
		log.Warn().Str("tenant", req.Email).Msg("stripe off, simulating subscription activation")
		if err := p.tenants.ActivatePlan(r.Context(), req.Email, "pro"); err != nil {
			writeError(w, http.StatusNotFound, "cliente não encontrado")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "simulated", "url": p.cfg.DashboardURL + "/dashboard?sucesso=simulacao_bot"})
		return
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(p.cfg.SubscriptionPriceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(p.cfg.DashboardURL + "/dashboard?sucesso=bot"),
		CancelURL:  stripe.String(p.cfg.DashboardURL + "/assinatura"),
	}
	params.AddMetadata("email_cliente", req.Email)
	params.AddMetadata("tipo", "assinatura_bot")

	sess, err := checkoutsession.New(params)
	if err != nil {
		log.Error().Err(err).Msg("stripe subscription checkout failed")
		writeError(w, http.StatusBadGateway, "erro no checkout")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "url": sess.URL})
}

func (p *Payments) handleBuyCredits(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if p.simulated() || p.cfg.CreditsPriceID == "" {
		log.Warn().Str("tenant", req.Email).Msg("stripe off, simulating credit purchase")
		if err := p.credits.Credit(r.Context(), req.Email, creditsPerPurchase); err != nil {
			writeError(w, http.StatusNotFound, "cliente não encontrado")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "simulated", "url": p.cfg.DashboardURL + "/studio?sucesso=simulacao_creditos"})
		return
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(p.cfg.CreditsPriceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(p.cfg.DashboardURL + "/studio?sucesso=creditos"),
		CancelURL:  stripe.String(p.cfg.DashboardURL + "/studio"),
	}
	params.AddMetadata("email_cliente", req.Email)
	params.AddMetadata("tipo", "compra_creditos")
	params.AddMetadata("qtd", strconv.Itoa(creditsPerPurchase))

	sess, err := checkoutsession.New(params)
	if err != nil {
		log.Error().Err(err).Msg("stripe credits checkout failed")
		writeError(w, http.StatusBadGateway, "erro no checkout")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "url": sess.URL})
}

func (p *Payments) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), p.cfg.WebhookSecret)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if event.Type != "checkout.session.completed" {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ignored"})
		return
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	email := sess.Metadata["email_cliente"]
	if email == "" {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ignored"})
		return
	}

	switch sess.Metadata["tipo"] {
	case "assinatura_bot":
		if err := p.tenants.ActivatePlan(r.Context(), email, "pro"); err != nil {
			log.Error().Err(err).Str("tenant", email).Msg("subscription activation failed")
		} else {
			log.Info().Str("tenant", email).Msg("chatbot subscription activated")
		}
	case "compra_creditos":
		qty := creditsPerPurchase
		if v, err := strconv.Atoi(sess.Metadata["qtd"]); err == nil && v > 0 {
			qty = v
		}
		if err := p.credits.Credit(r.Context(), email, qty); err != nil {
			log.Error().Err(err).Str("tenant", email).Msg("credit top-up failed")
		} else {
			log.Info().Str("tenant", email).Int("credits", qty).Msg("video credits added")
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "success"})
}
