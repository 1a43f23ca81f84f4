// Package orchestrator handles one inbound message end to end: tenant
// resolution, per-sender serialization, persona selection, the LLM dispatch
// loop, and history persistence.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	bookingx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/booking"
	contractx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/contract"
	creditx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/credit"
	dispatchx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/dispatch"
	personax "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/persona"
	sessionx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/session"
	toolx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/tool"
)

// mediaURLPattern extracts a hosted video link from the reply so the
// transport can attach it as media.
var mediaURLPattern = regexp.MustCompile(`https?://\S+(?:\.mp4|fal\.media|pexels)\S*`)

type Config struct {
	// AdminSenders are globally authorized sender identities (beyond tenant
	// owners), e.g. the operator's own number.
	AdminSenders []string
}

type Orchestrator struct {
	tenants  contractx.TenantRepository
	sessions sessionx.Store
	engine   *dispatchx.Engine
	booking  *bookingx.Service
	credits  *creditx.Ledger
	video    contractx.VideoGenerator

	admins map[string]bool
	now    func() time.Time
}

func New(
	tenants contractx.TenantRepository,
	sessions sessionx.Store,
	engine *dispatchx.Engine,
	booking *bookingx.Service,
	credits *creditx.Ledger,
	video contractx.VideoGenerator,
	cfg Config,
) (*Orchestrator, error) {
	if tenants == nil {
		return nil, errors.New("tenant repository is required")
	}
	if sessions == nil {
		return nil, errors.New("session store is required")
	}
	if engine == nil {
		return nil, errors.New("dispatch engine is required")
	}
	if booking == nil {
		return nil, errors.New("booking service is required")
	}
	if credits == nil {
		return nil, errors.New("credit ledger is required")
	}

	admins := make(map[string]bool, len(cfg.AdminSenders))
	for _, sender := range cfg.AdminSenders {
		if trimmed := strings.TrimSpace(sender); trimmed != "" {
			admins[trimmed] = true
		}
	}

	return &Orchestrator{
		tenants:  tenants,
		sessions: sessions,
		engine:   engine,
		booking:  booking,
		credits:  credits,
		video:    video,
		admins:   admins,
		now:      time.Now,
	}, nil
}

// WithClock overrides the time source, for tests.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	if now != nil {
		o.now = now
	}
	return o
}

// HandleMessage processes one inbound message and returns the reply. Turns
// for the same sender are serialized; different senders run in parallel.
func (o *Orchestrator) HandleMessage(ctx context.Context, sender, body, mediaURL string) (contractx.Reply, error) {
	sender = strings.TrimSpace(sender)
	if sender == "" {
		return contractx.Reply{}, fmt.Errorf("%w: sender is required", contractx.ErrValidation)
	}

	tenant, err := o.tenants.GetByPhone(ctx, sender)
	switch {
	case errors.Is(err, contractx.ErrTenantNotFound):
		tenant = demoTenant()
	case err != nil:
		return contractx.Reply{}, fmt.Errorf("resolve tenant for sender: %w", err)
	}

	// Tenant owners and allow-listed senders are authorized for admin tools
	// and the creative persona.
	authorized := o.admins[sender] || tenant.Phone == sender

	release := o.sessions.Acquire(sender)
	defer release()

	sess := o.sessions.Get(sender)

	decision := personax.Resolve(sess.Mode, body, tenant, authorized)
	sess.Mode = decision.Mode

	msgBody := decision.Body
	if mediaURL != "" && authorized && !decision.Denied {
		msgBody = strings.TrimSpace(msgBody + " [IMAGEM RECEBIDA: " + mediaURL + "]")
	}
	if msgBody == "" {
		return contractx.Reply{}, fmt.Errorf("%w: message body is empty", contractx.ErrValidation)
	}

	system := personax.BuildSystem(decision.Mode, tenant, o.now())
	specs := toolx.SpecsFor(decision.Mode)

	log.Info().Str("sender", sender).Str("tenant", tenant.ID).Str("mode", string(decision.Mode)).
		Msg("handling inbound message")

	text, err := o.engine.Run(ctx, sess, system, msgBody, specs, o.executor(tenant, authorized))
	if err != nil {
		// The user's own turn stays in history; nothing else was committed.
		o.sessions.Put(sess)
		return contractx.Reply{}, err
	}

	o.sessions.Put(sess)

	return contractx.Reply{
		Text:     text,
		MediaURL: mediaURLPattern.FindString(text),
	}, nil
}

// executor binds this turn's tenant and authorization to the tool handlers.
func (o *Orchestrator) executor(tenant *contractx.Tenant, authorized bool) dispatchx.Executor {
	return func(ctx context.Context, inv toolx.Invocation) (string, error) {
		switch args := inv.Args.(type) {
		case toolx.CheckAvailabilityArgs:
			return o.booking.Availability(ctx, tenant, args)

		case toolx.BookServiceArgs:
			return o.booking.Book(ctx, tenant, args)

		case toolx.UpdatePriceArgs:
			return o.updatePrice(ctx, tenant, authorized, args)

		case toolx.GenerateVideoArgs:
			if o.video == nil {
				return "Geração de vídeo indisponível no momento.", nil
			}
			return o.meterRender(ctx, tenant, func(ctx context.Context) (string, error) {
				return o.video.FromText(ctx, args.Idea)
			})

		case toolx.AnimatePhotoArgs:
			if o.video == nil {
				return "Geração de vídeo indisponível no momento.", nil
			}
			return o.meterRender(ctx, tenant, func(ctx context.Context) (string, error) {
				return o.video.FromImage(ctx, args.ImageURL, args.Motion)
			})
		}
		return "", fmt.Errorf("%w: no handler for tool %s", contractx.ErrValidation, inv.Name)
	}
}

// meterRender charges one credit for the render. The demo tenant carries no
// credit account, and the only senders who reach its creative tools are
// allow-listed admins, so demo renders run unmetered.
func (o *Orchestrator) meterRender(ctx context.Context, tenant *contractx.Tenant, op func(context.Context) (string, error)) (string, error) {
	if tenant.Email == "" {
		return op(ctx)
	}
	return o.credits.Meter(ctx, tenant.Email, 1, op)
}

func (o *Orchestrator) updatePrice(ctx context.Context, tenant *contractx.Tenant, authorized bool, args toolx.UpdatePriceArgs) (string, error) {
	if !authorized || tenant.Email == "" {
		return "Sem permissão.", nil
	}

	key := strings.ToLower(strings.TrimSpace(args.Service))
	prices := make(map[string]contractx.PriceEntry, len(tenant.Prices)+1)
	for name, entry := range tenant.Prices {
		prices[name] = entry
	}
	duration := 30
	if existing, ok := prices[key]; ok && existing.Duration > 0 {
		duration = existing.Duration
	}
	prices[key] = contractx.PriceEntry{Price: args.Price, Duration: duration}

	if err := o.tenants.UpdatePrices(ctx, tenant.Email, prices); err != nil {
		return "", fmt.Errorf("update prices: %w", err)
	}
	tenant.Prices = prices

	return fmt.Sprintf("✅ Preço de '%s' atualizado para R$ %.2f.", key, args.Price), nil
}

// demoTenant serves senders with no registered tenant: walk-ins talk to a
// demo barbershop instead of getting an error.
func demoTenant() *contractx.Tenant {
	return &contractx.Tenant{
		ID:           "demo",
		ShopName:     "Barbearia Modelo",
		BotName:      "Victor AI",
		CalendarMode: contractx.CalendarInternal,
		VideoEnabled: true,
		Team: []contractx.TeamMember{
			{Name: contractx.PrincipalMember, CalendarID: contractx.PrimaryCalendarID},
		},
		Prices: map[string]contractx.PriceEntry{
			"corte":       {Price: 35, Duration: 30},
			"barba":       {Price: 35, Duration: 30},
			"combo":       {Price: 70, Duration: 50},
			"sobrancelha": {Price: 15, Duration: 15},
		},
		Hours: defaultHours(),
	}
}

func defaultHours() contractx.OperatingHours {
	hours := make(contractx.OperatingHours, 7)
	for day := 0; day < 7; day++ {
		hours[fmt.Sprint(day)] = contractx.DayHours{Open: "09:00", Close: "19:00"}
	}
	return hours
}
