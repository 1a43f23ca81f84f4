package contract

import (
	"context"
	"time"
)

// ChatClient is the LLM provider boundary. One call, one completion; the
// response is plain text or tool calls, never both acted on.
type ChatClient interface {
	Complete(ctx context.Context, req ChatRequest) (ChatResponse, error)
	// CompleteJSON runs a one-shot system+user exchange in JSON mode and
	// decodes the object into out. Used by the video prompt refiner.
	CompleteJSON(ctx context.Context, system, user string, out any) error
}

// CalendarService is the external calendar boundary, best-effort mirror of
// the internal ledger unless the tenant designates it as the source of truth.
type CalendarService interface {
	ListUpcoming(ctx context.Context, calendarID string, notBefore time.Time, limit int) ([]CalendarEvent, error)
	CreateEvent(ctx context.Context, calendarID, summary, startISO, timezone string, duration time.Duration) (CreatedEvent, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}

// TenantRepository resolves and mutates tenant configuration.
type TenantRepository interface {
	GetByPhone(ctx context.Context, phone string) (*Tenant, error)
	GetByEmail(ctx context.Context, email string) (*Tenant, error)
	Register(ctx context.Context, t *Tenant, password string) error
	Authenticate(ctx context.Context, email, password string) (*Tenant, error)
	UpdatePrices(ctx context.Context, email string, prices map[string]PriceEntry) error
	UpdateTeam(ctx context.Context, email string, team []TeamMember) error
	UpdateHours(ctx context.Context, email string, hours OperatingHours) error
	ActivatePlan(ctx context.Context, email, plan string) error
}

// AppointmentRepository is the internal booking ledger. Entries are
// append-only: SetExternalRef backfills mirror metadata but booking facts
// (start, member, customer) never change; a reschedule is cancel+create.
type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	ListByTenant(ctx context.Context, tenantID string) ([]Appointment, error)
	Delete(ctx context.Context, tenantID, appointmentID string) (*Appointment, error)
	SetExternalRef(ctx context.Context, tenantID, appointmentID, eventID, calendarID string) error
}

// CreditStore meters video generation. Debit is all-or-nothing: on
// insufficient funds the balance is untouched and ok is false.
type CreditStore interface {
	Debit(ctx context.Context, email string, n int) (ok bool, err error)
	Credit(ctx context.Context, email string, n int) error
	Balance(ctx context.Context, email string) (int, error)
}

// VideoGenerator produces a hosted video URL from a text idea or a photo.
type VideoGenerator interface {
	FromText(ctx context.Context, idea string) (string, error)
	FromImage(ctx context.Context, imageURL, motion string) (string, error)
}
