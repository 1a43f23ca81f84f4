package contract

import (
	"strings"
	"time"
)

// Mode is the active conversation persona for a session.
type Mode string

const (
	ModeAssistant Mode = "assistant"
	ModeCreative  Mode = "creative"
)

// CalendarMode selects which backend answers availability queries.
type CalendarMode string

const (
	CalendarInternal CalendarMode = "internal"
	CalendarExternal CalendarMode = "external"
)

// PrimaryCalendarID is the sentinel meaning "the tenant's main calendar".
const PrimaryCalendarID = "primary"

// PrincipalMember is the fallback team member when no name matches.
const PrincipalMember = "Principal"

type TeamMember struct {
	Name       string `json:"nome"`
	CalendarID string `json:"id_google_calendar"`
}

// HasOwnCalendar reports whether the member maps to a dedicated external
// calendar rather than the tenant's primary one.
func (m TeamMember) HasOwnCalendar() bool {
	id := strings.TrimSpace(m.CalendarID)
	return id != "" && id != PrimaryCalendarID
}

type PriceEntry struct {
	Price    float64 `json:"preco"`
	Duration int     `json:"duracao"` // minutes
}

type DayHours struct {
	Open  string `json:"inicio"`
	Close string `json:"fim"`
}

// OperatingHours maps weekday digit ("0"=Sunday) to opening hours.
type OperatingHours map[string]DayHours

type Tenant struct {
	ID           string
	Email        string
	Phone        string
	ShopName     string
	BotName      string
	CalendarMode CalendarMode
	VideoEnabled bool
	PlanActive   bool
	Plan         string
	VideoCredits int
	Team         []TeamMember
	Prices       map[string]PriceEntry
	Hours        OperatingHours
	Timezone     string
}

// Location resolves the tenant timezone, defaulting to São Paulo where most
// tenants operate.
func (t *Tenant) Location() *time.Location {
	tz := "America/Sao_Paulo"
	if t != nil && strings.TrimSpace(t.Timezone) != "" {
		tz = t.Timezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Appointment is one internal ledger entry. Entries are immutable once
// created; a reschedule is a cancel followed by a new create.
type Appointment struct {
	ID              string
	TenantID        string
	Member          string
	Start           string // ISO 8601, tenant-local interpretation
	Service         string
	Duration        int // minutes
	CustomerName    string
	ExternalEventID string
	ExternalCalID   string
}

// ChatMessage is one turn of session history in the shape the LLM consumes.
type ChatMessage struct {
	Role       string    `json:"role"` // system | user | assistant | tool
	Content    string    `json:"content"`
	ToolCall   *ToolCall `json:"tool_call,omitempty"`
	ToolCallID string    `json:"tool_call_id,omitempty"`
	ToolName   string    `json:"tool_name,omitempty"`
}

// ToolCall is a structured invocation emitted by the model. Arguments stay
// raw JSON until the tool layer validates them against its declared schema.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolSpec declares one tool to the LLM.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ChatRequest is one provider round trip.
type ChatRequest struct {
	System  string
	History []ChatMessage
	Tools   []ToolSpec
}

// ChatResponse carries either plain text or the model's tool calls.
type ChatResponse struct {
	Text      string
	ToolCalls []ToolCall
}

// CalendarEvent is one entry returned by the external calendar.
type CalendarEvent struct {
	ID          string
	Summary     string
	Start       string
	Description string
}

// CreatedEvent is the result of mirroring a booking externally.
type CreatedEvent struct {
	ID   string
	Link string
}

// Reply is what the orchestrator hands back to the messaging transport.
type Reply struct {
	Text     string
	MediaURL string
}
