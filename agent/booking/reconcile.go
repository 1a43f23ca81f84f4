// Package booking executes availability and booking operations against the
// internal appointment ledger and, when the tenant is configured for it, the
// external calendar. The internal ledger is the record of intent and is
// always written first; the external calendar is a best-effort mirror unless
// the tenant declares it the source of truth for availability.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/contract"
	toolx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/tool"
)

const (
	startLayout     = "2006-01-02T15:04:05"
	defaultService  = "Agendamento"
	defaultDuration = 30 // minutes
)

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

type Service struct {
	ledger   contractx.AppointmentRepository
	calendar contractx.CalendarService
	now      func() time.Time
}

// NewService builds the reconciliation service. calendar may be nil, in which
// case every tenant behaves as internal-only regardless of configuration.
func NewService(ledger contractx.AppointmentRepository, calendar contractx.CalendarService, opts ...Option) (*Service, error) {
	if ledger == nil {
		return nil, errors.New("appointment ledger is required")
	}
	s := &Service{
		ledger:   ledger,
		calendar: calendar,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// ResolveMember matches the requested name against the tenant's team: the
// member whose name appears, case-insensitively, inside the request wins,
// first match first. Ambiguous partial matches therefore bias toward the
// member added first. No match resolves to the sentinel Principal member on
// the tenant's primary calendar.
func ResolveMember(tenant *contractx.Tenant, requested string) contractx.TeamMember {
	fallback := contractx.TeamMember{Name: contractx.PrincipalMember, CalendarID: contractx.PrimaryCalendarID}

	requested = strings.ToLower(strings.TrimSpace(requested))
	if tenant == nil || requested == "" {
		return fallback
	}
	for _, member := range tenant.Team {
		name := strings.ToLower(strings.TrimSpace(member.Name))
		if name == "" {
			continue
		}
		if strings.Contains(requested, name) {
			if strings.TrimSpace(member.CalendarID) == "" {
				member.CalendarID = contractx.PrimaryCalendarID
			}
			return member
		}
	}
	return fallback
}

// Book writes the appointment into the internal ledger and mirrors it to the
// external calendar when the tenant's mode or the member's own calendar asks
// for it. A failed mirror never rolls back the ledger entry: from the
// customer's perspective the slot is confirmed.
func (s *Service) Book(ctx context.Context, tenant *contractx.Tenant, args toolx.BookServiceArgs) (string, error) {
	start, err := time.Parse(startLayout, strings.TrimSpace(args.StartTime))
	if err != nil {
		return "", fmt.Errorf("%w: data em formato inválido, use AAAA-MM-DDTHH:MM:SS", contractx.ErrValidation)
	}

	member := ResolveMember(tenant, args.Member)
	service, duration := resolveService(tenant, args.Service)

	appt := &contractx.Appointment{
		ID:           uuid.NewString(),
		TenantID:     tenantID(tenant),
		Member:       member.Name,
		Start:        start.Format(startLayout),
		Service:      service,
		Duration:     duration,
		CustomerName: strings.TrimSpace(args.CustomerName),
	}

	if err := s.ledger.Create(ctx, appt); err != nil {
		return "", fmt.Errorf("write appointment ledger: %w", err)
	}

	when := FormatStart(appt.Start)

	mirror := tenant != nil && (tenant.CalendarMode == contractx.CalendarExternal || member.HasOwnCalendar())
	if !mirror || s.calendar == nil {
		return fmt.Sprintf("Agendado com sucesso para %s com %s em %s!", appt.CustomerName, member.Name, when), nil
	}

	calendarID := member.CalendarID
	if strings.TrimSpace(calendarID) == "" {
		calendarID = contractx.PrimaryCalendarID
	}

	summary := fmt.Sprintf("%s (%s)", appt.CustomerName, member.Name)
	created, mirrorErr := s.calendar.CreateEvent(ctx, calendarID, summary, appt.Start, tenant.Location().String(), time.Duration(duration)*time.Minute)
	if mirrorErr != nil {
		// Degraded success: the ledger holds the booking, only the mirror is
		// behind. The caller must not be told nothing happened.
		log.Warn().Err(mirrorErr).Str("tenant", appt.TenantID).Str("calendar", calendarID).
			Msg("external calendar sync failed, booking kept internal")
		return fmt.Sprintf("Agendado com sucesso no sistema interno para %s em %s. (Obs: falha na sincronização com a agenda externa: %s)",
			member.Name, when, mirrorReason(mirrorErr)), nil
	}

	if err := s.ledger.SetExternalRef(ctx, appt.TenantID, appt.ID, created.ID, calendarID); err != nil {
		log.Warn().Err(err).Str("appointment", appt.ID).Msg("external event ref not recorded")
	}

	return fmt.Sprintf("✅ Agendado com sucesso para %s com %s em %s! Verifique aqui: %s", appt.CustomerName, member.Name, when, created.Link), nil
}

// Availability answers a free/busy query. In external mode the calendar is
// the declared source of truth, so its errors are hard failures; in internal
// mode the ledger is filtered by member and optional date prefix.
func (s *Service) Availability(ctx context.Context, tenant *contractx.Tenant, args toolx.CheckAvailabilityArgs) (string, error) {
	member := ResolveMember(tenant, args.Member)

	if tenant != nil && tenant.CalendarMode == contractx.CalendarExternal {
		if s.calendar == nil {
			return "", fmt.Errorf("%w: nenhuma agenda externa configurada", contractx.ErrCalendarNotFound)
		}
		events, err := s.calendar.ListUpcoming(ctx, member.CalendarID, s.now(), 10)
		if err != nil {
			return "", err
		}
		if len(events) == 0 {
			return "A agenda está totalmente livre nos próximos dias.", nil
		}
		var b strings.Builder
		b.WriteString("📅 Horários já ocupados:\n")
		for _, ev := range events {
			fmt.Fprintf(&b, "- %s: %s\n", FormatStart(ev.Start), ev.Summary)
		}
		return b.String(), nil
	}

	appts, err := s.ledger.ListByTenant(ctx, tenantID(tenant))
	if err != nil {
		return "", fmt.Errorf("list appointment ledger: %w", err)
	}

	datePrefix := strings.TrimSpace(args.Date)
	occupied := make([]string, 0, len(appts))
	for _, a := range appts {
		if a.Member != member.Name {
			continue
		}
		if datePrefix != "" && !strings.HasPrefix(a.Start, datePrefix) {
			continue
		}
		occupied = append(occupied, a.Start)
	}

	if len(occupied) == 0 {
		if datePrefix != "" {
			return fmt.Sprintf("Agenda do %s está livre nesta data.", member.Name), nil
		}
		return fmt.Sprintf("Agenda do %s está livre.", member.Name), nil
	}
	return "Ocupado em: " + strings.Join(occupied, ", "), nil
}

// Cancel removes exactly one ledger entry by id and best-effort deletes the
// mirrored external event when one was recorded.
func (s *Service) Cancel(ctx context.Context, tenant *contractx.Tenant, appointmentID string) (string, error) {
	removed, err := s.ledger.Delete(ctx, tenantID(tenant), strings.TrimSpace(appointmentID))
	if err != nil {
		return "", err
	}

	if removed.ExternalEventID != "" && s.calendar != nil {
		calID := removed.ExternalCalID
		if calID == "" {
			calID = contractx.PrimaryCalendarID
		}
		if err := s.calendar.DeleteEvent(ctx, calID, removed.ExternalEventID); err != nil {
			log.Warn().Err(err).Str("appointment", removed.ID).Msg("external event not removed on cancel")
		}
	}

	return fmt.Sprintf("Agendamento de %s em %s cancelado.", removed.CustomerName, FormatStart(removed.Start)), nil
}

// FormatStart renders a stored start timestamp as the short Brazilian form
// used in confirmations, e.g. "25/10 às 14:30". Unparseable values pass
// through unchanged.
func FormatStart(start string) string {
	for _, layout := range []string{startLayout, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, start); err == nil {
			if layout == "2006-01-02" {
				return t.Format("02/01")
			}
			return t.Format("02/01 às 15:04")
		}
	}
	return start
}

func resolveService(tenant *contractx.Tenant, requested string) (string, int) {
	requested = strings.ToLower(strings.TrimSpace(requested))
	if requested == "" || tenant == nil {
		if requested == "" {
			return defaultService, defaultDuration
		}
		return capitalize(requested), defaultDuration
	}
	for name, entry := range tenant.Prices {
		if strings.Contains(requested, strings.ToLower(name)) {
			duration := entry.Duration
			if duration <= 0 {
				duration = defaultDuration
			}
			return capitalize(name), duration
		}
	}
	return capitalize(requested), defaultDuration
}

func tenantID(tenant *contractx.Tenant) string {
	if tenant == nil || strings.TrimSpace(tenant.ID) == "" {
		return "demo"
	}
	return tenant.ID
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func mirrorReason(err error) string {
	switch {
	case errors.Is(err, contractx.ErrCalendarNotFound):
		return "agenda não encontrada"
	case errors.Is(err, contractx.ErrCalendarUnauthorized):
		return "acesso à agenda não autorizado"
	default:
		return "erro técnico"
	}
}
